// Package lyrics defines the lyrics shapes and the fallback sources that
// search by artist and title when no provider match carried a lyrics
// reference.
package lyrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/lfavole/songs-dl/clientutil"
)

var ErrLyricsNotFound = errors.New("no lyrics found")

// Line is one timestamped lyrics line.
type Line struct {
	At   time.Duration
	Text string
}

// Lyrics holds plain text and, when a provider has them, synchronized
// lines. Synced lines are ordered by timestamp.
type Lyrics struct {
	Plain  string
	Synced []Line
}

func (l Lyrics) Empty() bool {
	return l.Plain == "" && len(l.Synced) == 0
}

// Text returns the plain lyrics, reconstructing them from the synced lines
// when only those are present.
func (l Lyrics) Text() string {
	if l.Plain != "" {
		return l.Plain
	}
	var sb strings.Builder
	for _, line := range l.Synced {
		sb.WriteString(line.Text)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// LRC renders the synced lines in LRC format, one "[mm:ss.xx]text" line per
// lyric. Returns "" when there are no synced lines.
func (l Lyrics) LRC() string {
	if len(l.Synced) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, line := range l.Synced {
		mins := int(line.At.Minutes())
		secs := int(line.At.Seconds()) % 60
		cents := int(line.At.Milliseconds()/10) % 100
		fmt.Fprintf(&sb, "[%02d:%02d.%02d]%s\n", mins, secs, cents, line.Text)
	}
	return sb.String()
}

var lrcLineExpr = regexp.MustCompile(`^\[(\d+):(\d+)(?:\.(\d+))?\](.*)$`)

// ParseLRC reads LRC text back into synced lines, skipping malformed and
// metadata lines.
func ParseLRC(text string) []Line {
	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		m := lrcLineExpr.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		at := time.Duration(atoi(m[1]))*time.Minute + time.Duration(atoi(m[2]))*time.Second
		if m[3] != "" {
			cents := m[3]
			for len(cents) < 2 {
				cents += "0"
			}
			at += time.Duration(atoi(cents[:2])) * 10 * time.Millisecond
		}
		lines = append(lines, Line{At: at, Text: strings.TrimSpace(m[4])})
	}
	return lines
}

func atoi(s string) int {
	var n int
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// Fetcher resolves an opaque lyrics reference issued by the same provider's
// search into lyrics text. Provider clients implement this next to their
// search methods.
type Fetcher interface {
	FetchLyrics(ctx context.Context, ref string) (Lyrics, error)
}

// Source finds lyrics by artist and title, without a prior search. Used as
// a fallback when no matched candidate carried a lyrics reference.
type Source interface {
	Search(ctx context.Context, artist, song string) (Lyrics, error)
}

// ChainSource tries each source in order, returning the first hit.
type ChainSource []Source

func (cs ChainSource) Search(ctx context.Context, artist, song string) (Lyrics, error) {
	var errs []error
	for _, src := range cs {
		lyrics, err := src.Search(ctx, artist, song)
		if errors.Is(err, ErrLyricsNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return lyrics, nil
	}
	if len(errs) > 0 {
		return Lyrics{}, errors.Join(errs...)
	}
	return Lyrics{}, ErrLyricsNotFound
}

type Genius struct {
	RateLimit time.Duration

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (g *Genius) init() {
	g.initOnce.Do(func() {
		g.HTTPClient = clientutil.Wrap(g.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(g.RateLimit),
		))
	})
}

var geniusSelectLyrics = cascadia.MustCompile(`div[data-lyrics-container="true"]`)

func (g *Genius) Search(ctx context.Context, artist, song string) (Lyrics, error) {
	g.init()

	url := fmt.Sprintf("https://genius.com/%s-%s-lyrics", geniusURLify(artist), geniusURLify(song))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Lyrics{}, err
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return Lyrics{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Lyrics{}, ErrLyricsNotFound
	}
	if resp.StatusCode/100 != 2 {
		return Lyrics{}, fmt.Errorf("page returned non 2xx: status %d", resp.StatusCode)
	}

	node, err := html.Parse(resp.Body)
	if err != nil {
		return Lyrics{}, fmt.Errorf("parse page: %w", err)
	}

	var sb strings.Builder
	for _, container := range cascadia.QueryAll(node, geniusSelectLyrics) {
		flattenText(&sb, container)
	}
	plain := strings.TrimSpace(sb.String())
	if plain == "" {
		return Lyrics{}, ErrLyricsNotFound
	}
	return Lyrics{Plain: plain}, nil
}

var geniusStripExpr = regexp.MustCompile(`[^a-z0-9]+`)

func geniusURLify(s string) string {
	s = strings.ToLower(s)
	s = geniusStripExpr.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// flattenText walks an element and writes its text content, turning <br>
// into newlines.
func flattenText(sb *strings.Builder, n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		sb.WriteString(n.Data)
	case n.Type == html.ElementNode && n.Data == "br":
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flattenText(sb, c)
	}
}
