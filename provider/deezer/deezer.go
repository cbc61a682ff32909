// Package deezer searches the Deezer catalog. The search API returns only
// the basics, so selected candidates are enriched from the track page's
// embedded app state, which also carries synchronized lyrics.
package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lfavole/songs-dl/clientutil"
	"github.com/lfavole/songs-dl/cover"
	"github.com/lfavole/songs-dl/lyrics"
	"github.com/lfavole/songs-dl/provider"
)

const Name = "deezer"

type Client struct {
	BaseURL     string
	PageBaseURL string
	RateLimit   time.Duration

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.BaseURL == "" {
			c.BaseURL = "https://api.deezer.com"
		}
		if c.PageBaseURL == "" {
			c.PageBaseURL = "https://www.deezer.com"
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(c.RateLimit),
		))
	})
}

func (c *Client) Name() string  { return Name }
func (c *Client) Priority() int { return 4 }

func (c *Client) Coverage() []provider.Field {
	return []provider.Field{
		provider.FieldTitle, provider.FieldArtists, provider.FieldAlbum,
		provider.FieldReleaseDate, provider.FieldDuration, provider.FieldISRC,
		provider.FieldComposers, provider.FieldCopyright, provider.FieldCover,
		provider.FieldLyrics,
	}
}

func (c *Client) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Candidate, error) {
	c.init()

	params := url.Values{}
	params.Set("q", q.String())
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, provider.WrapErr(Name, fmt.Errorf("search deezer: %w", err))
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
	for _, t := range sr.Data {
		id := strconv.FormatInt(t.ID, 10)
		candidates = append(candidates, provider.Candidate{
			Provider:  Name,
			SourceID:  id,
			Title:     t.Title,
			Artists:   provider.SplitArtistCredit(t.Artist.Name),
			Album:     t.Album.Title,
			Duration:  time.Duration(t.Duration) * time.Second,
			Cover:     coverRef(t.Album),
			LyricsRef: id,
		})
	}
	return candidates, nil
}

var appStateExpr = regexp.MustCompile(`(?s)window\.__DZR_APP_STATE__\s*=\s*(\{.*?\})\s*</script>`)

// Enrich fills the fields the search API leaves out by reading the track
// page's app state. A missing page leaves the candidate as is.
func (c *Client) Enrich(ctx context.Context, cand provider.Candidate) (provider.Candidate, error) {
	state, err := c.appState(ctx, cand.SourceID)
	if err != nil {
		return cand, provider.WrapErr(Name, err)
	}
	if !state.Exists() {
		return cand, nil
	}

	data := state.Get("DATA")
	if isrc := data.Get("ISRC").String(); isrc != "" {
		cand.ISRC = isrc
	}
	if date := data.Get("PHYSICAL_RELEASE_DATE").String(); date != "" {
		if parsed, err := time.Parse("2006-01-02", date); err == nil {
			cand.ReleaseDate = parsed
		}
	}
	if copyright := data.Get("COPYRIGHT").String(); copyright != "" {
		cand.Copyright = copyright
	}
	for _, composer := range data.Get("SNG_CONTRIBUTORS.composer").Array() {
		cand.Composers = append(cand.Composers, composer.String())
	}
	return cand, nil
}

// FetchLyrics resolves a track ID from Search into the page's lyrics,
// synced when the app state has timestamps.
func (c *Client) FetchLyrics(ctx context.Context, ref string) (lyrics.Lyrics, error) {
	state, err := c.appState(ctx, ref)
	if err != nil {
		return lyrics.Lyrics{}, fmt.Errorf("fetch track page: %w", err)
	}
	if !state.Exists() {
		return lyrics.Lyrics{}, lyrics.ErrLyricsNotFound
	}

	var l lyrics.Lyrics
	l.Plain = state.Get("LYRICS.LYRICS_TEXT").String()
	for _, line := range state.Get("LYRICS.LYRICS_SYNC_JSON").Array() {
		text := line.Get("line").String()
		if text == "" {
			continue
		}
		l.Synced = append(l.Synced, lyrics.Line{
			At:   time.Duration(line.Get("milliseconds").Int()) * time.Millisecond,
			Text: text,
		})
	}
	if l.Empty() {
		return lyrics.Lyrics{}, lyrics.ErrLyricsNotFound
	}
	return l, nil
}

func (c *Client) appState(ctx context.Context, trackID string) (gjson.Result, error) {
	c.init()

	url := c.PageBaseURL + "/en/track/" + trackID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request track page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return gjson.Result{}, nil
	}
	if err := provider.StatusFromCode(resp.StatusCode); err != nil {
		return gjson.Result{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read track page: %w", err)
	}
	m := appStateExpr.FindSubmatch(body)
	if m == nil {
		return gjson.Result{}, nil
	}
	return gjson.ParseBytes(m[1]), nil
}

func coverRef(album album) cover.Ref {
	var ref cover.Ref
	for _, v := range []struct {
		url  string
		size int
	}{
		{album.CoverXL, 1000},
		{album.CoverBig, 500},
		{album.CoverMedium, 250},
		{album.CoverSmall, 56},
	} {
		if v.url != "" {
			ref.Variants = append(ref.Variants, cover.Variant{URL: v.url, Size: v.size, Sure: true})
		}
	}
	return ref
}

type album struct {
	Title       string `json:"title"`
	CoverSmall  string `json:"cover_small"`
	CoverMedium string `json:"cover_medium"`
	CoverBig    string `json:"cover_big"`
	CoverXL     string `json:"cover_xl"`
}

type searchResponse struct {
	Data []struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Duration int    `json:"duration"`
		Artist   struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album album `json:"album"`
	} `json:"data"`
}
