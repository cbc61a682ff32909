// Package lrclib searches the LRCLIB lyrics database. It contributes lyrics
// and duration only; its track metadata is community supplied and too noisy
// to merge.
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/lfavole/songs-dl/clientutil"
	"github.com/lfavole/songs-dl/lyrics"
	"github.com/lfavole/songs-dl/provider"
)

const Name = "lrclib"

type Client struct {
	BaseURL   string
	RateLimit time.Duration
	UserAgent string

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.BaseURL == "" {
			c.BaseURL = "https://lrclib.net"
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(c.RateLimit),
			clientutil.WithUserAgent(c.UserAgent),
		))
	})
}

func (c *Client) Name() string  { return Name }
func (c *Client) Priority() int { return 6 }

func (c *Client) Coverage() []provider.Field {
	return []provider.Field{provider.FieldLyrics, provider.FieldDuration}
}

func (c *Client) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Candidate, error) {
	c.init()

	params := url.Values{}
	params.Set("track_name", q.RawTitle)
	if q.RawArtist != "" {
		params.Set("artist_name", q.RawArtist)
	}

	var results []searchResult
	if err := c.getJSON(ctx, "/api/search?"+params.Encode(), &results); err != nil {
		return nil, provider.WrapErr(Name, err)
	}

	if len(results) > limit {
		results = results[:limit]
	}
	var candidates []provider.Candidate
	for _, r := range results {
		candidates = append(candidates, provider.Candidate{
			Provider:  Name,
			SourceID:  strconv.FormatInt(r.ID, 10),
			Title:     r.TrackName,
			Artists:   provider.SplitArtistCredit(r.ArtistName),
			Album:     r.AlbumName,
			Duration:  time.Duration(r.Duration * float64(time.Second)),
			LyricsRef: strconv.FormatInt(r.ID, 10),
		})
	}
	return candidates, nil
}

// FetchLyrics resolves a search result ID into its lyrics, synced when the
// record carries LRC text.
func (c *Client) FetchLyrics(ctx context.Context, ref string) (lyrics.Lyrics, error) {
	c.init()

	var result searchResult
	if err := c.getJSON(ctx, "/api/get/"+ref, &result); err != nil {
		var se provider.StatusError
		if errors.As(err, &se) && int(se) == http.StatusNotFound {
			return lyrics.Lyrics{}, lyrics.ErrLyricsNotFound
		}
		return lyrics.Lyrics{}, err
	}

	l := lyrics.Lyrics{
		Plain:  result.PlainLyrics,
		Synced: lyrics.ParseLRC(result.SyncedLyrics),
	}
	if l.Empty() {
		return lyrics.Lyrics{}, lyrics.ErrLyricsNotFound
	}
	return l, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request lrclib: %w", err)
	}
	defer resp.Body.Close()
	if err := provider.StatusFromCode(resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return provider.ParseErr(Name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

type searchResult struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}
