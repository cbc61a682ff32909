// Package provider defines the catalog provider contract: a parsed search
// query, the normalized candidate shape every catalog maps into, and the
// error taxonomy the orchestrator uses to classify failures.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lfavole/songs-dl/cover"
	"github.com/lfavole/songs-dl/normtext"
)

// Field names a piece of song metadata a provider can contribute. A
// provider's coverage declares which fields it may fill; the merger only
// takes covered fields from it.
type Field string

const (
	FieldTitle       Field = "title"
	FieldArtists     Field = "artists"
	FieldAlbum       Field = "album"
	FieldReleaseDate Field = "release_date"
	FieldDuration    Field = "duration"
	FieldGenre       Field = "genre"
	FieldISRC        Field = "isrc"
	FieldTrackNumber Field = "track_number"
	FieldComposers   Field = "composers"
	FieldCopyright   Field = "copyright"
	FieldLanguage    Field = "language"
	FieldCover       Field = "cover"
	FieldLyrics      Field = "lyrics"
)

// Query is a parsed free-text search. RawTitle and RawArtist keep the user's
// text for display and query building, Title and Artists are the normalized
// forms used for scoring.
type Query struct {
	Raw       string
	RawTitle  string
	RawArtist string
	Market    string

	Title   normtext.Text
	Artists []string
}

func (q Query) String() string {
	if q.RawArtist != "" {
		return q.RawTitle + " " + q.RawArtist
	}
	return q.RawTitle
}

// ParseQuery splits a free-text query into its parts. A leading "market:XX"
// token pins the catalog region, and "title -- artist" splits the two halves
// explicitly. Anything else is treated as one title-and-artist blob.
func ParseQuery(raw string) Query {
	q := Query{Raw: raw}

	rest := strings.TrimSpace(raw)
	if m, after, ok := strings.Cut(rest, " "); ok && strings.HasPrefix(strings.ToLower(m), "market:") {
		if market := m[len("market:"):]; len(market) == 2 {
			q.Market = strings.ToUpper(market)
			rest = strings.TrimSpace(after)
		}
	}

	if title, artist, ok := strings.Cut(rest, "--"); ok {
		q.RawTitle = strings.TrimSpace(title)
		q.RawArtist = strings.TrimSpace(artist)
	} else {
		q.RawTitle = rest
	}

	q.Title = normtext.Normalize(q.RawTitle)
	if q.RawArtist != "" {
		q.Artists = normtext.SplitArtists(q.RawArtist)
	}
	q.Artists = append(q.Artists, q.Title.Artists...)
	return q
}

// Candidate is one search result in the common shape. Zero values mean the
// provider had nothing for that field.
type Candidate struct {
	Provider string
	SourceID string

	Title       string
	Artists     []string
	Album       string
	ReleaseDate time.Time
	Duration    time.Duration
	Genre       string
	ISRC        string
	TrackNumber int
	TrackTotal  int
	Composers   []string
	Copyright   string
	Language    string

	Cover     cover.Ref
	LyricsRef string
}

func (c Candidate) Empty() bool {
	return c.Title == "" && len(c.Artists) == 0
}

func (c Candidate) Artist() string {
	return strings.Join(c.Artists, ", ")
}

// Provider is a searchable song catalog. Priority orders providers for field
// merging, lower wins. Coverage lists the fields this catalog can fill.
type Provider interface {
	Name() string
	Priority() int
	Coverage() []Field
	Search(ctx context.Context, q Query, limit int) ([]Candidate, error)
}

// Enricher is implemented by providers whose search results are incomplete
// and need a follow-up request for the remaining fields. Only selected
// candidates are enriched.
type Enricher interface {
	Enrich(ctx context.Context, c Candidate) (Candidate, error)
}

// Covers reports whether p declares f in its coverage.
func Covers(p Provider, f Field) bool {
	for _, c := range p.Coverage() {
		if c == f {
			return true
		}
	}
	return false
}

// Kind classifies a provider failure for logging and retry decisions.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindHTTP        Kind = "http"
	KindRateLimited Kind = "rate_limited"
	KindParse       Kind = "parse"
	KindAuth        Kind = "auth"
)

// Error wraps a provider failure with the provider's name and a kind.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapErr classifies err for provider name. Context deadline errors become
// timeouts, HTTP 429s become rate limits, other status errors stay HTTP.
func WrapErr(name string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return err
	}

	kind := KindHTTP
	var statusErr StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &statusErr) && int(statusErr) == 429:
		kind = KindRateLimited
	}
	return &Error{Provider: name, Kind: kind, Err: err}
}

// ParseErr marks err as a malformed-response failure for provider name.
func ParseErr(name string, err error) error {
	return &Error{Provider: name, Kind: KindParse, Err: err}
}

type StatusError int

func (se StatusError) Error() string {
	return fmt.Sprintf("http status %d", int(se))
}

// StatusFromCode converts a non-2xx status code to an error, nil otherwise.
func StatusFromCode(code int) error {
	if code/100 == 2 {
		return nil
	}
	return StatusError(code)
}
