package song

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfavole/songs-dl/match"
	"github.com/lfavole/songs-dl/provider"
)

func TestMergePriority(t *testing.T) {
	t.Parallel()

	q := provider.ParseQuery("Halo -- Beyoncé")
	results := []match.Result{
		{
			Provider: stubProvider{"deezer", 4, []provider.Field{provider.FieldTitle, provider.FieldArtists, provider.FieldAlbum, provider.FieldISRC}},
			Candidate: provider.Candidate{
				Title: "Halo (Deezer)", Artists: []string{"Beyoncé"},
				Album: "I Am... Sasha Fierce (Deluxe)", ISRC: "USSM10804562",
			},
			Score: 0.9,
		},
		{
			Provider: stubProvider{"spotify", 1, []provider.Field{provider.FieldTitle, provider.FieldArtists, provider.FieldAlbum}},
			Candidate: provider.Candidate{
				Title: "Halo", Artists: []string{"Beyoncé"},
				Album: "I Am... Sasha Fierce",
			},
			Score: 0.95,
		},
	}

	s, err := Merge(q, results)
	require.NoError(t, err)

	// spotify wins the shared fields, deezer fills what spotify lacks
	assert.Equal(t, "Halo", s.Title)
	assert.Equal(t, "I Am... Sasha Fierce", s.Album)
	assert.Equal(t, "USSM10804562", s.ISRC)
	assert.Equal(t, "spotify", s.Sources[provider.FieldTitle])
	assert.Equal(t, "deezer", s.Sources[provider.FieldISRC])
	assert.Equal(t, 0.95, s.Confidence)
}

func TestMergeCoverageRespected(t *testing.T) {
	t.Parallel()

	q := provider.ParseQuery("Halo -- Beyoncé")
	results := []match.Result{
		{
			// lrclib reports a title but only covers lyrics and duration
			Provider: stubProvider{"lrclib", 6, []provider.Field{provider.FieldLyrics, provider.FieldDuration}},
			Candidate: provider.Candidate{
				Title: "Halo (misparsed)", Artists: []string{"Beyoncé"},
				Duration: 3*time.Minute + 41*time.Second, LyricsRef: "12345",
			},
			Score: 0.8,
		},
	}

	s, err := Merge(q, results)
	require.NoError(t, err)

	// uncovered fields fall back on the query text
	assert.Equal(t, "Halo", s.Title)
	assert.Equal(t, []string{"Beyoncé"}, s.Artists)
	assert.NotContains(t, s.Sources, provider.FieldTitle)
	assert.Equal(t, 3*time.Minute+41*time.Second, s.Duration)

	name, ref, ok := s.LyricsSource()
	require.True(t, ok)
	assert.Equal(t, "lrclib", name)
	assert.Equal(t, "12345", ref)
}

func TestMergeNoMatch(t *testing.T) {
	t.Parallel()

	q := provider.ParseQuery("Halo -- Beyoncé")

	_, err := Merge(q, nil)
	assert.ErrorIs(t, err, ErrNoMatch)

	// errored and empty results don't count as matches
	results := []match.Result{
		{Provider: stubProvider{"itunes", 2, nil}, Err: provider.StatusError(500)},
		{Provider: stubProvider{"deezer", 4, nil}},
	}
	_, err = Merge(q, results)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSongString(t *testing.T) {
	t.Parallel()

	s := Song{Title: "Halo", Artists: []string{"Beyoncé", "Someone"}}
	assert.Equal(t, "Beyoncé, Someone - Halo", s.String())

	s = Song{Title: "Halo"}
	assert.Equal(t, "Halo", s.String())
}

type stubProvider struct {
	name     string
	priority int
	coverage []provider.Field
}

func (s stubProvider) Name() string               { return s.name }
func (s stubProvider) Priority() int              { return s.priority }
func (s stubProvider) Coverage() []provider.Field { return s.coverage }
func (s stubProvider) Search(context.Context, provider.Query, int) ([]provider.Candidate, error) {
	return nil, nil
}
