package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfavole/songs-dl/provider"
)

func newTestMatcher() *Matcher {
	return NewMatcher(DefaultWeights(), DefaultThresholds())
}

func TestScoreExactMatch(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Halo -- Beyoncé")

	c := provider.Candidate{Title: "Halo", Artists: []string{"Beyoncé"}}
	assert.Equal(t, 1.0, m.Score(q, c))

	// normalization differences don't cost anything
	c = provider.Candidate{Title: "HALO", Artists: []string{"Beyonce"}}
	assert.Equal(t, 1.0, m.Score(q, c))
}

func TestScoreEmptyTitle(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Halo -- Beyoncé")
	assert.Equal(t, 0.0, m.Score(q, provider.Candidate{Artists: []string{"Beyoncé"}}))
}

func TestScoreOrdering(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Blinding Lights -- The Weeknd")

	exact := m.Score(q, provider.Candidate{Title: "Blinding Lights", Artists: []string{"The Weeknd"}})
	coverVersion := m.Score(q, provider.Candidate{Title: "Blinding Lights", Artists: []string{"Piano Tribute Players"}})
	unrelated := m.Score(q, provider.Candidate{Title: "Save Your Tears", Artists: []string{"Ariana Grande"}})

	assert.Greater(t, exact, coverVersion)
	assert.Greater(t, coverVersion, unrelated)
}

func TestScoreTokenOrder(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Farmer Mylène -- x")

	swapped := m.Score(q, provider.Candidate{Title: "Mylène Farmer", Artists: []string{"x"}})
	assert.Equal(t, 1.0, swapped)
}

func TestScoreExtraArtistsPenalized(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Halo -- Beyoncé")

	solo := m.Score(q, provider.Candidate{Title: "Halo", Artists: []string{"Beyoncé"}})
	crowd := m.Score(q, provider.Candidate{Title: "Halo", Artists: []string{"Beyoncé", "DJ Unrelated", "MC Filler"}})
	assert.Greater(t, solo, crowd)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Halo -- Beyoncé")
	p := stubProvider{name: "itunes", priority: 2}

	r := m.Select(q, p, []provider.Candidate{
		{Title: "Halo (Live)", Artists: []string{"Beyoncé"}},
		{Title: "Halo", Artists: []string{"Beyoncé"}},
		{Title: "Completely Different", Artists: []string{"Someone"}},
	})
	require.True(t, r.Matched())
	assert.Equal(t, "Halo", r.Candidate.Title)
	assert.Equal(t, 1.0, r.Score)
}

func TestSelectTieKeepsEarlier(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Halo -- Beyoncé")
	p := stubProvider{name: "itunes", priority: 2}

	r := m.Select(q, p, []provider.Candidate{
		{SourceID: "first", Title: "Halo", Artists: []string{"Beyoncé"}},
		{SourceID: "second", Title: "Halo", Artists: []string{"Beyoncé"}},
	})
	require.True(t, r.Matched())
	assert.Equal(t, "first", r.Candidate.SourceID)
}

func TestSelectNothingAboveThreshold(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()
	q := provider.ParseQuery("Halo -- Beyoncé")
	p := stubProvider{name: "itunes", priority: 2}

	r := m.Select(q, p, []provider.Candidate{
		{Title: "Totally Unrelated Song", Artists: []string{"Nobody Known"}},
	})
	assert.False(t, r.Matched())
	assert.True(t, r.Candidate.Empty())
}

func TestSelectTitleOnlyStricter(t *testing.T) {
	t.Parallel()

	m := newTestMatcher()

	// a rough title alone stays under the title-only floor, but an exact
	// artist match carries the same candidate over the two-part floor
	withArtist := provider.ParseQuery("Hello -- Beyoncé")
	titleOnly := provider.ParseQuery("Hello")
	c := provider.Candidate{Title: "Halo", Artists: []string{"Beyoncé"}}

	assert.True(t, m.Select(withArtist, stubProvider{}, []provider.Candidate{c}).Matched())
	assert.False(t, m.Select(titleOnly, stubProvider{}, []provider.Candidate{c}).Matched())
}

func TestSortResults(t *testing.T) {
	t.Parallel()

	results := []Result{
		{Provider: stubProvider{name: "deezer", priority: 4}},
		{Provider: stubProvider{name: "spotify", priority: 1}},
		{Provider: stubProvider{name: "itunes", priority: 2}},
	}
	SortResults(results)
	assert.Equal(t, "spotify", results[0].Provider.Name())
	assert.Equal(t, "itunes", results[1].Provider.Name())
	assert.Equal(t, "deezer", results[2].Provider.Name())
}

type stubProvider struct {
	name     string
	priority int
}

func (s stubProvider) Name() string              { return s.name }
func (s stubProvider) Priority() int             { return s.priority }
func (s stubProvider) Coverage() []provider.Field { return nil }
func (s stubProvider) Search(context.Context, provider.Query, int) ([]provider.Candidate, error) {
	return nil, nil
}
