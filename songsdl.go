// Package songsdl resolves free-text song queries into merged metadata
// records. Providers are searched concurrently, each provider's results are
// scored against the query, and the per-provider winners are merged field
// by field in provider priority order.
package songsdl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lfavole/songs-dl/lyrics"
	"github.com/lfavole/songs-dl/match"
	"github.com/lfavole/songs-dl/provider"
	"github.com/lfavole/songs-dl/song"
)

var (
	ErrNoMatch            = song.ErrNoMatch
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Status is the lifecycle of one query resolution.
type Status string

const (
	StatusPending  Status = "pending"
	StatusQuerying Status = "querying"
	StatusScoring  Status = "scoring"
	StatusMerging  Status = "merging"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

type Resolver struct {
	Providers []provider.Provider
	Matcher   *match.Matcher

	// ProviderTimeout bounds each provider's search independently, so one
	// slow catalog doesn't stall the whole resolution.
	ProviderTimeout time.Duration
	MaxResults      int

	// LyricsFallback is searched by artist and title when no matched
	// candidate carried a lyrics reference.
	LyricsFallback lyrics.Source

	Logger *slog.Logger

	// OnStatus, when set, observes each state change of a resolution.
	OnStatus func(q provider.Query, s Status)
}

func NewResolver(providers ...provider.Provider) *Resolver {
	return &Resolver{
		Providers:       providers,
		Matcher:         match.NewMatcher(match.DefaultWeights(), match.DefaultThresholds()),
		ProviderTimeout: 15 * time.Second,
		MaxResults:      10,
		Logger:          slog.Default(),
	}
}

// Resolution is the outcome of one query: the merged song and the
// per-provider results that produced it.
type Resolution struct {
	Query   provider.Query
	Song    *song.Song
	Results []match.Result
}

// Resolve answers q with a merged metadata record. Provider failures are
// tolerated as long as at least one provider matches; Resolve fails with
// ErrNoMatch when every provider answered and none matched, and with
// ErrAllProvidersFailed when no provider answered at all. Cancellation of
// ctx aborts the whole resolution with no partial record.
func (r *Resolver) Resolve(ctx context.Context, q provider.Query) (*Resolution, error) {
	if len(r.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	r.status(q, StatusPending)
	r.status(q, StatusQuerying)

	results := make([]match.Result, len(r.Providers))
	var group errgroup.Group
	for i, p := range r.Providers {
		group.Go(func() error {
			results[i] = r.searchOne(ctx, p, q)
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.status(q, StatusScoring)

	var matched, failed int
	var errs []error
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			errs = append(errs, res.Err)
			r.Logger.WarnContext(ctx, "provider failed", "provider", res.Provider.Name(), "err", res.Err)
		case res.Matched():
			matched++
		}
	}
	if matched == 0 {
		r.status(q, StatusFailed)
		if failed == len(r.Providers) {
			return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
		}
		return nil, ErrNoMatch
	}

	r.enrich(ctx, results)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.status(q, StatusMerging)

	s, err := song.Merge(q, results)
	if err != nil {
		r.status(q, StatusFailed)
		return nil, err
	}

	r.status(q, StatusResolved)
	r.Logger.InfoContext(ctx, "resolved query",
		"query", q.Raw, "song", s.String(), "confidence", fmt.Sprintf("%.2f", s.Confidence), "matched", matched)
	return &Resolution{Query: q, Song: s, Results: results}, nil
}

// ResolveRaw parses and resolves a free-text query in one step.
func (r *Resolver) ResolveRaw(ctx context.Context, raw string) (*Resolution, error) {
	return r.Resolve(ctx, provider.ParseQuery(raw))
}

func (r *Resolver) searchOne(ctx context.Context, p provider.Provider, q provider.Query) match.Result {
	ctx, cancel := context.WithTimeout(ctx, r.ProviderTimeout)
	defer cancel()

	candidates, err := p.Search(ctx, q, r.MaxResults)
	if err != nil {
		return match.Result{Provider: p, Err: provider.WrapErr(p.Name(), err)}
	}

	res := r.Matcher.Select(q, p, candidates)
	if res.Matched() {
		r.Logger.DebugContext(ctx, "provider matched",
			"provider", p.Name(), "title", res.Candidate.Title, "score", fmt.Sprintf("%.2f", res.Score))
	}
	return res
}

// enrich runs the follow-up request for matched candidates whose provider
// needs one. Only winners are enriched, and an enrichment failure keeps the
// unenriched candidate rather than failing the resolution.
func (r *Resolver) enrich(ctx context.Context, results []match.Result) {
	for i, res := range results {
		if !res.Matched() {
			continue
		}
		enricher, ok := res.Provider.(provider.Enricher)
		if !ok {
			continue
		}
		enriched, err := enricher.Enrich(ctx, res.Candidate)
		if err != nil {
			r.Logger.WarnContext(ctx, "enrich failed", "provider", res.Provider.Name(), "err", err)
			continue
		}
		results[i].Candidate = enriched
	}
}

// Lyrics finds lyrics for a resolved song, first through the reference its
// matched provider issued, then through the fallback source.
func (r *Resolver) Lyrics(ctx context.Context, s *song.Song) (lyrics.Lyrics, error) {
	if name, ref, ok := s.LyricsSource(); ok {
		if fetcher, ok := r.fetcherFor(name); ok {
			l, err := fetcher.FetchLyrics(ctx, ref)
			if err == nil {
				return l, nil
			}
			if !errors.Is(err, lyrics.ErrLyricsNotFound) {
				r.Logger.WarnContext(ctx, "fetch lyrics failed", "provider", name, "err", err)
			}
		}
	}
	if r.LyricsFallback != nil {
		return r.LyricsFallback.Search(ctx, s.Artist(), s.Title)
	}
	return lyrics.Lyrics{}, lyrics.ErrLyricsNotFound
}

func (r *Resolver) fetcherFor(name string) (lyrics.Fetcher, bool) {
	for _, p := range r.Providers {
		if p.Name() != name {
			continue
		}
		fetcher, ok := p.(lyrics.Fetcher)
		return fetcher, ok
	}
	return nil, false
}

func (r *Resolver) status(q provider.Query, s Status) {
	if r.OnStatus != nil {
		r.OnStatus(q, s)
	}
}
