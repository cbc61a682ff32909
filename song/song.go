// Package song holds the merged metadata record. A Song is assembled from
// the per-provider match results by taking, for each field, the value from
// the highest-priority provider that covers and filled it.
package song

import (
	"errors"
	"strings"
	"time"

	"github.com/lfavole/songs-dl/cover"
	"github.com/lfavole/songs-dl/match"
	"github.com/lfavole/songs-dl/provider"
)

var ErrNoMatch = errors.New("no provider matched the query")

// Song is the final merged metadata record.
type Song struct {
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
	LyricsRef lyricsRef

	// Sources records which provider each field came from. Fields absent
	// from the map were not filled by any provider.
	Sources map[provider.Field]string

	// Confidence is the best match score among the contributing providers.
	Confidence float64
}

// lyricsRef pairs a provider-opaque lyrics handle with the provider that
// issued it, so the right fetcher resolves it later.
type lyricsRef struct {
	Provider string
	Ref      string
}

func (l lyricsRef) Empty() bool { return l.Ref == "" }

func (s *Song) Artist() string {
	return strings.Join(s.Artists, ", ")
}

func (s *Song) String() string {
	if len(s.Artists) == 0 {
		return s.Title
	}
	return s.Artist() + " - " + s.Title
}

// Merge builds a Song from match results. Results are visited in ascending
// provider priority and the first non-empty covered value wins each field.
// Title and artists fall back on the query itself only when at least one
// provider matched. With no matches at all, Merge returns ErrNoMatch.
func Merge(q provider.Query, results []match.Result) (*Song, error) {
	results = filterMatched(results)
	if len(results) == 0 {
		return nil, ErrNoMatch
	}
	match.SortResults(results)

	s := &Song{Sources: map[provider.Field]string{}}
	for _, r := range results {
		c := r.Candidate
		name := r.Provider.Name()
		covers := func(f provider.Field) bool { return provider.Covers(r.Provider, f) }

		if s.Title == "" && c.Title != "" && covers(provider.FieldTitle) {
			s.Title = c.Title
			s.Sources[provider.FieldTitle] = name
		}
		if len(s.Artists) == 0 && len(c.Artists) > 0 && covers(provider.FieldArtists) {
			s.Artists = c.Artists
			s.Sources[provider.FieldArtists] = name
		}
		if s.Album == "" && c.Album != "" && covers(provider.FieldAlbum) {
			s.Album = c.Album
			s.Sources[provider.FieldAlbum] = name
		}
		if s.ReleaseDate.IsZero() && !c.ReleaseDate.IsZero() && covers(provider.FieldReleaseDate) {
			s.ReleaseDate = c.ReleaseDate
			s.Sources[provider.FieldReleaseDate] = name
		}
		if s.Duration == 0 && c.Duration > 0 && covers(provider.FieldDuration) {
			s.Duration = c.Duration
			s.Sources[provider.FieldDuration] = name
		}
		if s.Genre == "" && c.Genre != "" && covers(provider.FieldGenre) {
			s.Genre = c.Genre
			s.Sources[provider.FieldGenre] = name
		}
		if s.ISRC == "" && c.ISRC != "" && covers(provider.FieldISRC) {
			s.ISRC = c.ISRC
			s.Sources[provider.FieldISRC] = name
		}
		if s.TrackNumber == 0 && c.TrackNumber > 0 && covers(provider.FieldTrackNumber) {
			s.TrackNumber = c.TrackNumber
			s.TrackTotal = c.TrackTotal
			s.Sources[provider.FieldTrackNumber] = name
		}
		if len(s.Composers) == 0 && len(c.Composers) > 0 && covers(provider.FieldComposers) {
			s.Composers = c.Composers
			s.Sources[provider.FieldComposers] = name
		}
		if s.Copyright == "" && c.Copyright != "" && covers(provider.FieldCopyright) {
			s.Copyright = c.Copyright
			s.Sources[provider.FieldCopyright] = name
		}
		if s.Language == "" && c.Language != "" && covers(provider.FieldLanguage) {
			s.Language = c.Language
			s.Sources[provider.FieldLanguage] = name
		}
		if s.Cover.Empty() && !c.Cover.Empty() && covers(provider.FieldCover) {
			s.Cover = c.Cover
			s.Sources[provider.FieldCover] = name
		}
		if s.LyricsRef.Empty() && c.LyricsRef != "" && covers(provider.FieldLyrics) {
			s.LyricsRef = lyricsRef{Provider: name, Ref: c.LyricsRef}
			s.Sources[provider.FieldLyrics] = name
		}

		s.Confidence = max(s.Confidence, r.Score)
	}

	if s.Title == "" {
		s.Title = q.RawTitle
	}
	if len(s.Artists) == 0 && q.RawArtist != "" {
		s.Artists = []string{q.RawArtist}
	}
	return s, nil
}

// LyricsSource returns the provider and reference for this song's lyrics,
// or ok false when no provider offered any.
func (s *Song) LyricsSource() (providerName, ref string, ok bool) {
	return s.LyricsRef.Provider, s.LyricsRef.Ref, !s.LyricsRef.Empty()
}

func filterMatched(results []match.Result) []match.Result {
	var out []match.Result
	for _, r := range results {
		if r.Matched() {
			out = append(out, r)
		}
	}
	return out
}
