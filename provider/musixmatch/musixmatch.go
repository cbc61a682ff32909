// Package musixmatch searches the Musixmatch catalog through the desktop
// app's web service. Requests carry an anonymous usertoken obtained from
// token.get; when the service answers with a captcha hint the client backs
// off instead of hammering it.
package musixmatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lfavole/songs-dl/clientutil"
	"github.com/lfavole/songs-dl/lyrics"
	"github.com/lfavole/songs-dl/provider"
)

const (
	Name = "musixmatch"

	appID     = "web-desktop-app-v1.0"
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	captchaCooldown = 10 * time.Minute
)

var errCaptcha = errors.New("musixmatch wants a captcha")

type Client struct {
	BaseURL   string
	RateLimit time.Duration

	initOnce   sync.Once
	HTTPClient *http.Client

	mu           sync.Mutex
	userToken    string
	captchaUntil time.Time
}

func (c *Client) init() {
	c.initOnce.Do(func() {
		if c.BaseURL == "" {
			c.BaseURL = "https://apic-desktop.musixmatch.com/ws/1.1"
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(c.RateLimit),
			clientutil.WithUserAgent(userAgent),
		))
	})
}

func (c *Client) Name() string  { return Name }
func (c *Client) Priority() int { return 3 }

func (c *Client) Coverage() []provider.Field {
	return []provider.Field{
		provider.FieldTitle, provider.FieldArtists, provider.FieldAlbum,
		provider.FieldReleaseDate, provider.FieldDuration, provider.FieldGenre,
		provider.FieldLyrics,
	}
}

func (c *Client) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Candidate, error) {
	c.init()

	params := url.Values{}
	params.Set("q_track", q.RawTitle)
	if q.RawArtist != "" {
		params.Set("q_artist", q.RawArtist)
	}
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("s_track_rating", "desc")

	body, err := c.call(ctx, "track.search", params)
	if err != nil {
		return nil, provider.WrapErr(Name, err)
	}

	var candidates []provider.Candidate
	for _, item := range body.Get("track_list").Array() {
		track := item.Get("track")
		cand := provider.Candidate{
			Provider: Name,
			SourceID: track.Get("track_id").String(),
			Title:    track.Get("track_name").String(),
			Artists:  provider.SplitArtistCredit(track.Get("artist_name").String()),
			Album:    track.Get("album_name").String(),
			Duration: time.Duration(track.Get("track_length").Int()) * time.Second,
			Genre:    track.Get("primary_genres.music_genre_list.0.music_genre.music_genre_name").String(),
		}
		if date := track.Get("first_release_date").String(); date != "" {
			if parsed, err := time.Parse(time.RFC3339, date); err == nil {
				cand.ReleaseDate = parsed
			}
		}
		if track.Get("has_subtitles").Int() == 1 || track.Get("has_lyrics").Int() == 1 {
			cand.LyricsRef = track.Get("commontrack_id").String()
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// FetchLyrics resolves a commontrack ID into the track's subtitles, falling
// back on plain lyrics when no subtitles exist.
func (c *Client) FetchLyrics(ctx context.Context, ref string) (lyrics.Lyrics, error) {
	c.init()

	params := url.Values{}
	params.Set("commontrack_id", ref)

	body, err := c.call(ctx, "track.subtitle.get", params)
	if err == nil {
		if subtitle := body.Get("subtitle.subtitle_body").String(); subtitle != "" {
			return lyrics.Lyrics{Synced: lyrics.ParseLRC(subtitle)}, nil
		}
	}

	body, err = c.call(ctx, "track.lyrics.get", params)
	if err != nil {
		return lyrics.Lyrics{}, err
	}
	if plain := body.Get("lyrics.lyrics_body").String(); plain != "" {
		return lyrics.Lyrics{Plain: plain}, nil
	}
	return lyrics.Lyrics{}, lyrics.ErrLyricsNotFound
}

// call performs one web service request, fetching a usertoken first when
// needed, and returns the response's message body.
func (c *Client) call(ctx context.Context, method string, params url.Values) (gjson.Result, error) {
	token, err := c.token(ctx)
	if err != nil {
		return gjson.Result{}, err
	}

	params.Set("app_id", appID)
	params.Set("usertoken", token)
	params.Set("format", "json")

	body, err := c.get(ctx, method, params)
	if err != nil {
		return gjson.Result{}, err
	}

	status := body.Get("message.header.status_code").Int()
	if status == http.StatusUnauthorized {
		c.invalidateToken()
		return gjson.Result{}, &provider.Error{Provider: Name, Kind: provider.KindAuth, Err: fmt.Errorf("usertoken rejected")}
	}
	if status != http.StatusOK {
		return gjson.Result{}, provider.StatusError(status)
	}
	return body.Get("message.body"), nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userToken != "" {
		return c.userToken, nil
	}
	if time.Now().Before(c.captchaUntil) {
		return "", &provider.Error{Provider: Name, Kind: provider.KindRateLimited, Err: errCaptcha}
	}

	params := url.Values{}
	params.Set("app_id", appID)
	body, err := c.get(ctx, "token.get", params)
	if err != nil {
		return "", err
	}

	if hint := body.Get("message.header.hint").String(); hint == "captcha" {
		c.captchaUntil = time.Now().Add(captchaCooldown)
		return "", &provider.Error{Provider: Name, Kind: provider.KindRateLimited, Err: errCaptcha}
	}
	token := body.Get("message.body.user_token").String()
	if token == "" || token == "UpgradeOnlyUpgradeOnlyUpgradeOnlyUpgradeOnly" {
		return "", &provider.Error{Provider: Name, Kind: provider.KindAuth, Err: fmt.Errorf("no usable usertoken")}
	}
	c.userToken = token
	return token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userToken = ""
}

func (c *Client) get(ctx context.Context, method string, params url.Values) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request %s: %w", method, err)
	}
	defer resp.Body.Close()
	if err := provider.StatusFromCode(resp.StatusCode); err != nil {
		return gjson.Result{}, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, provider.ParseErr(Name, fmt.Errorf("invalid json from %s", method))
	}
	return gjson.ParseBytes(data), nil
}
