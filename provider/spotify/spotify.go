// Package spotify searches the Spotify catalog through the public web API,
// authenticated with the anonymous web player token. The token is renewed
// in place when it expires; nothing is persisted.
package spotify

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

const Name = "spotify"

type Client struct {
	BaseURL      string
	TokenBaseURL string
	RateLimit    time.Duration
	Market       string

	initOnce   sync.Once
	HTTPClient *http.Client

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.BaseURL == "" {
			c.BaseURL = "https://api.spotify.com/v1"
		}
		if c.TokenBaseURL == "" {
			c.TokenBaseURL = "https://open.spotify.com"
		}
		if c.Market == "" {
			c.Market = "US"
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(c.RateLimit),
		))
	})
}

func (c *Client) Name() string  { return Name }
func (c *Client) Priority() int { return 1 }

func (c *Client) Coverage() []provider.Field {
	return []provider.Field{
		provider.FieldTitle, provider.FieldArtists, provider.FieldAlbum,
		provider.FieldReleaseDate, provider.FieldDuration, provider.FieldISRC,
		provider.FieldTrackNumber, provider.FieldCover,
	}
}

func (c *Client) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Candidate, error) {
	c.init()

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, &provider.Error{Provider: Name, Kind: provider.KindAuth, Err: err}
	}

	market := c.Market
	if q.Market != "" {
		market = q.Market
	}

	params := url.Values{}
	params.Set("type", "track")
	params.Set("q", q.String())
	params.Set("market", market)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, provider.WrapErr(Name, fmt.Errorf("search tracks: %w", err))
	}
	defer resp.Body.Close()
	if err := provider.StatusFromCode(resp.StatusCode); err != nil {
		return nil, provider.WrapErr(Name, err)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, provider.ParseErr(Name, fmt.Errorf("decode response: %w", err))
	}

	var candidates []provider.Candidate
	for _, t := range sr.Tracks.Items {
		cand := provider.Candidate{
			Provider:    Name,
			SourceID:    t.ID,
			Title:       t.Name,
			Album:       t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate.Time,
			Duration:    time.Duration(t.DurationMS) * time.Millisecond,
			ISRC:        t.ExternalIDs.ISRC,
			TrackNumber: t.TrackNumber,
			TrackTotal:  t.Album.TotalTracks,
		}
		for _, a := range t.Artists {
			cand.Artists = append(cand.Artists, a.Name)
		}
		for _, img := range t.Album.Images {
			if img.URL == "" {
				continue
			}
			cand.Cover.Variants = append(cand.Cover.Variants, cover.Variant{
				URL:  img.URL,
				Size: min(img.Width, img.Height),
				Sure: true,
			})
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// accessToken returns a valid anonymous token, fetching a fresh one when
// the cached token is within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.init()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpires) > time.Minute {
		return c.token, nil
	}

	url := c.TokenBaseURL + "/get_access_token?reason=transport&productType=web_player"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer resp.Body.Close()
	if err := provider.StatusFromCode(resp.StatusCode); err != nil {
		return "", fmt.Errorf("token endpoint: %w", err)
	}

	var tr struct {
		AccessToken string `json:"accessToken"`
		ExpiresMS   int64  `json:"accessTokenExpirationTimestampMs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no token")
	}

	c.token = tr.AccessToken
	c.tokenExpires = time.UnixMilli(tr.ExpiresMS)
	return c.token, nil
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			DurationMS  int    `json:"duration_ms"`
			TrackNumber int    `json:"track_number"`
			Artists     []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name        string           `json:"name"`
				ReleaseDate provider.AnyTime `json:"release_date"`
				TotalTracks int              `json:"total_tracks"`
				Images      []struct {
					URL    string `json:"url"`
					Width  int    `json:"width"`
					Height int    `json:"height"`
				} `json:"images"`
			} `json:"album"`
			ExternalIDs struct {
				ISRC string `json:"isrc"`
			} `json:"external_ids"`
		} `json:"items"`
	} `json:"tracks"`
}
