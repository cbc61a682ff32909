// Package match scores catalog candidates against a query and selects the
// best candidate per provider.
package match

import (
	"cmp"
	"slices"
	"strings"

	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/lfavole/songs-dl/normtext"
	"github.com/lfavole/songs-dl/provider"
)

type Weights struct {
	Title  float64
	Artist float64
}

type Thresholds struct {
	// MinScore is the floor for candidates scored on title and artist.
	MinScore float64
	// TitleOnlyMinScore is the stricter floor used when the query carries
	// no artist to compare against.
	TitleOnlyMinScore float64
}

func DefaultWeights() Weights {
	return Weights{Title: 0.6, Artist: 0.4}
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinScore: 0.55, TitleOnlyMinScore: 0.65}
}

type Matcher struct {
	Weights    Weights
	Thresholds Thresholds

	diff *dmp.DiffMatchPatch
}

func NewMatcher(w Weights, t Thresholds) *Matcher {
	return &Matcher{Weights: w, Thresholds: t, diff: dmp.New()}
}

// Score rates how well c answers q, in [0, 1]. An exact normalized title
// and artist match scores 1. Candidates without a title score 0.
func (m *Matcher) Score(q provider.Query, c provider.Candidate) float64 {
	cand := normtext.Normalize(c.Title)
	if cand.Empty() {
		return 0
	}

	titleScore := m.similarity(q.Title.Value, cand.Value)

	if len(q.Artists) == 0 {
		return titleScore
	}

	var candArtists []string
	for _, a := range c.Artists {
		candArtists = append(candArtists, normtext.SplitArtists(a)...)
	}
	candArtists = append(candArtists, cand.Artists...)

	artistScore := m.artistSimilarity(q.Artists, candArtists)
	return m.Weights.Title*titleScore + m.Weights.Artist*artistScore
}

// similarity is a normalized edit-distance ratio, taken as the better of the
// plain and token-sorted comparisons so word order doesn't dominate.
func (m *Matcher) similarity(a, b string) float64 {
	return max(m.ratio(a, b), m.ratio(sortTokens(a), sortTokens(b)))
}

func (m *Matcher) ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	diffs := m.diff.DiffMain(a, b, false)
	dist := m.diff.DiffLevenshtein(diffs)
	return 1 - float64(dist)/float64(longest)
}

// artistSimilarity blends a greedy best-pair mean with set overlap. The
// greedy half rewards each query artist's closest candidate artist, the
// Jaccard half punishes large one-sided credit lists.
func (m *Matcher) artistSimilarity(query, candidate []string) float64 {
	if len(candidate) == 0 {
		return 0
	}

	var total float64
	var matched int
	for _, qa := range query {
		var best float64
		for _, ca := range candidate {
			best = max(best, m.similarity(qa, ca))
		}
		total += best
		if best >= 0.8 {
			matched++
		}
	}
	greedy := total / float64(len(query))

	union := len(query) + len(candidate) - matched
	jaccard := float64(matched) / float64(max(union, 1))
	if matched == len(query) && matched == len(candidate) {
		jaccard = 1
	}
	return (greedy + jaccard) / 2
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// Result is the outcome of one provider's search: its best candidate if one
// cleared the threshold, or the error that stopped it.
type Result struct {
	Provider  provider.Provider
	Candidate provider.Candidate
	Score     float64
	Err       error
}

func (r Result) Matched() bool {
	return r.Err == nil && !r.Candidate.Empty()
}

// Select scores candidates and keeps the best one above the threshold.
// Earlier candidates win ties, preserving the provider's own relevance
// order. A Result with an empty Candidate means nothing qualified.
func (m *Matcher) Select(q provider.Query, p provider.Provider, candidates []provider.Candidate) Result {
	minScore := m.Thresholds.MinScore
	if len(q.Artists) == 0 {
		minScore = m.Thresholds.TitleOnlyMinScore
	}

	r := Result{Provider: p}
	for _, c := range candidates {
		score := m.Score(q, c)
		if score < minScore {
			continue
		}
		if r.Candidate.Empty() || score > r.Score {
			r.Candidate, r.Score = c, score
		}
	}
	return r
}

// SortResults orders results by ascending provider priority, for merging.
func SortResults(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(a.Provider.Priority(), b.Provider.Priority())
	})
}
