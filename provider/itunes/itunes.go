// Package itunes searches the iTunes Store catalog.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/lfavole/songs-dl/clientutil"
	"github.com/lfavole/songs-dl/cover"
	"github.com/lfavole/songs-dl/provider"
)

const Name = "itunes"

type Client struct {
	BaseURL   string
	RateLimit time.Duration
	Country   string

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.BaseURL == "" {
			c.BaseURL = "https://itunes.apple.com"
		}
		if c.Country == "" {
			c.Country = "US"
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(c.RateLimit),
		))
	})
}

func (c *Client) Name() string  { return Name }
func (c *Client) Priority() int { return 2 }

func (c *Client) Coverage() []provider.Field {
	return []provider.Field{
		provider.FieldTitle, provider.FieldArtists, provider.FieldAlbum,
		provider.FieldReleaseDate, provider.FieldDuration, provider.FieldGenre,
		provider.FieldTrackNumber, provider.FieldCover,
	}
}

func (c *Client) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Candidate, error) {
	c.init()

	country := c.Country
	if q.Market != "" {
		country = q.Market
	}

	params := url.Values{}
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("term", q.String())
	params.Set("country", country)
	params.Set("limit", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.getJSON(ctx, "/search", params, &resp); err != nil {
		return nil, provider.WrapErr(Name, err)
	}

	var candidates []provider.Candidate
	for _, t := range resp.Results {
		candidates = append(candidates, provider.Candidate{
			Provider:    Name,
			SourceID:    strconv.Itoa(t.TrackID),
			Title:       t.TrackName,
			Artists:     provider.SplitArtistCredit(t.ArtistName),
			Album:       t.CollectionName,
			ReleaseDate: t.ReleaseDate.Time,
			Duration:    time.Duration(t.TrackTimeMillis) * time.Millisecond,
			Genre:       t.PrimaryGenreName,
			TrackNumber: t.TrackNumber,
			TrackTotal:  t.TrackCount,
			Cover:       coverRef(t.ArtworkURL100),
		})
	}
	return candidates, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("search itunes: %w", err)
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

// coverRef seeds one sure 100px variant. The artwork host serves other
// renditions at the same path with the size substituted, which the ladder
// discovers on its own.
func coverRef(artworkURL string) cover.Ref {
	if artworkURL == "" {
		return cover.Ref{}
	}
	return cover.Ref{Variants: []cover.Variant{{URL: artworkURL, Size: 100, Sure: true}}}
}

type searchResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackID          int              `json:"trackId"`
		TrackName        string           `json:"trackName"`
		ArtistName       string           `json:"artistName"`
		CollectionName   string           `json:"collectionName"`
		ReleaseDate      provider.AnyTime `json:"releaseDate"`
		TrackTimeMillis  int              `json:"trackTimeMillis"`
		PrimaryGenreName string           `json:"primaryGenreName"`
		TrackNumber      int              `json:"trackNumber"`
		TrackCount       int              `json:"trackCount"`
		ArtworkURL100    string           `json:"artworkUrl100"`
	} `json:"results"`
}
