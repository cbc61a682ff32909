// Package normtext canonicalises free text titles and artist credits so that
// strings from different catalogues can be compared.
package normtext

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rainycape/unidecode"
	"golang.org/x/text/unicode/norm"
)

// Text is the comparison-safe form of an input string. Value holds the
// canonical text, Extra holds filler segments split off it (featuring
// credits, parenthetical variant markers), and Artists holds any artist
// names found in those segments.
type Text struct {
	Value   string
	Extra   string
	Artists []string
}

func (t Text) Empty() bool {
	return t.Value == ""
}

var (
	parenExpr = regexp.MustCompile(`[(\[][^)\]]*[)\]]`)
	featExpr  = regexp.MustCompile(`(?i)\b(?:feat|ft|featuring)\.?\s+(.+)$`)
	splitExpr = regexp.MustCompile(`(?i)\s*(?:,|;|&|\bfeat\.?\s|\bft\.?\s|\bfeaturing\s|\bwith\b|\band\b|\bvs\.?\s|\bx\b)\s*`)
)

// Normalize returns the canonical form of s. It is deterministic and
// idempotent: Normalize(Normalize(s).Value).Value == Normalize(s).Value.
// An empty input yields an empty Text.
func Normalize(s string) Text {
	s = Fold(s)

	var extras []string
	s = parenExpr.ReplaceAllStringFunc(s, func(m string) string {
		extras = append(extras, strings.Trim(m, "()[]"))
		return " "
	})
	if m := featExpr.FindStringSubmatchIndex(s); m != nil {
		extras = append(extras, s[m[2]:m[3]])
		s = s[:m[0]]
	}

	var t Text
	t.Value = squash(s)
	for _, e := range extras {
		var credit string
		if m := featExpr.FindStringSubmatch(e); m != nil {
			credit = m[1]
		} else if !looksLikeVariant(e) {
			credit = e
		}
		for _, a := range SplitArtists(credit) {
			t.Artists = append(t.Artists, a)
		}
		if e = squash(e); e != "" {
			if t.Extra != "" {
				t.Extra += " "
			}
			t.Extra += e
		}
	}
	return t
}

// SplitArtists splits a combined artist credit ("A feat. B & C") into the
// individual normalised names, preserving order.
func SplitArtists(s string) []string {
	var r []string
	for _, part := range splitExpr.Split(Fold(s), -1) {
		if part = squash(part); part != "" {
			r = append(r, part)
		}
	}
	return r
}

// Fold lower-cases s and folds diacritics down to their base Latin letters.
func Fold(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsMark(r) {
			return -1
		}
		return r
	}, s)
	s = unidecode.Unidecode(s)
	return strings.ToLower(s)
}

var variantExpr = regexp.MustCompile(`(?i)\b(remix|remaster|remastered|version|edit|live|mix|deluxe|demo|instrumental|acoustic|mono|stereo|explicit|clean|audio|video|lyric|lyrics|official)\b`)

func looksLikeVariant(s string) bool {
	return variantExpr.MatchString(s)
}

// squash strips punctuation and collapses whitespace. Letters and digits
// survive, everything else becomes a word boundary.
func squash(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
