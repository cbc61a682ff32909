package provider

import (
	"regexp"
	"strings"
)

var artistCreditExpr = regexp.MustCompile(`(?i)(?:\s*[,;]\s*|\s+&\s+|\s+x\s+|\s+feat\.?\s+|\s+ft\.?\s+|\s+featuring\s+|\s+vs\.?\s+|\s+with\s+)`)

// SplitArtistCredit splits a joined artist credit ("A, B & C feat. D") into
// individual names, keeping the catalog's casing.
func SplitArtistCredit(credit string) []string {
	var artists []string
	for _, a := range artistCreditExpr.Split(credit, -1) {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	return artists
}
