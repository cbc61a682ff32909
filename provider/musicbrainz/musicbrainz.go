// Package musicbrainz searches the MusicBrainz recording index. Cover art
// is referenced by release ID and resolved through the Cover Art Archive.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lfavole/songs-dl/clientutil"
	"github.com/lfavole/songs-dl/cover"
	"github.com/lfavole/songs-dl/provider"
)

const Name = "musicbrainz"

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
			c.BaseURL = "https://musicbrainz.org/ws/2"
		}
		if c.RateLimit == 0 {
			// public instance policy
			c.RateLimit = time.Second
		}
		c.HTTPClient = clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(c.RateLimit),
			clientutil.WithUserAgent(c.UserAgent),
		))
	})
}

func (c *Client) Name() string  { return Name }
func (c *Client) Priority() int { return 5 }

func (c *Client) Coverage() []provider.Field {
	return []provider.Field{
		provider.FieldTitle, provider.FieldArtists, provider.FieldAlbum,
		provider.FieldReleaseDate, provider.FieldDuration, provider.FieldISRC,
		provider.FieldTrackNumber, provider.FieldCover,
	}
}

func (c *Client) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Candidate, error) {
	c.init()

	var query []string
	query = append(query, field("recording", q.RawTitle))
	if q.RawArtist != "" {
		query = append(query, field("artist", q.RawArtist))
	}

	params := url.Values{}
	params.Set("fmt", "json")
	params.Set("query", strings.Join(query, " AND "))
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/recording?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, provider.WrapErr(Name, fmt.Errorf("search recordings: %w", err))
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
	for _, rec := range sr.Recordings {
		cand := provider.Candidate{
			Provider: Name,
			SourceID: rec.ID,
			Title:    rec.Title,
			Duration: time.Duration(rec.Length) * time.Millisecond,
		}
		for _, ac := range rec.ArtistCredit {
			cand.Artists = append(cand.Artists, ac.Name)
		}
		for _, isrc := range rec.ISRCs {
			cand.ISRC = isrc
			break
		}
		if rel, ok := pickRelease(rec.Releases); ok {
			cand.Album = rel.Title
			cand.ReleaseDate = rel.Date.Time
			cand.Cover = cover.Ref{CAARelease: rel.ID}
			for _, m := range rel.Media {
				for _, t := range m.Tracks {
					cand.TrackNumber, _ = strconv.Atoi(t.Number)
					cand.TrackTotal = m.TrackCount
					break
				}
				break
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// pickRelease prefers the first release credited to the recording's own
// artists. Compilations sell the track too, but their album titles and
// track numbers describe the compilation, not the song.
func pickRelease(releases []release) (release, bool) {
	for _, rel := range releases {
		if !rel.variousArtists() {
			return rel, true
		}
	}
	if len(releases) > 0 {
		return releases[0], true
	}
	return release{}, false
}

// field renders a Lucene field query, escaping the value's special
// characters.
func field(name, value string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString(`:"`)
	for _, r := range value {
		if strings.ContainsRune(`+-&|!(){}[]^"~*?:\/`, r) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteString(`"`)
	return sb.String()
}

type artistCredit struct {
	Name string `json:"name"`
}

type release struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Date         provider.AnyTime `json:"date"`
	ArtistCredit []artistCredit   `json:"artist-credit"`
	Media        []struct {
		TrackCount int `json:"track-count"`
		Tracks     []struct {
			Number string `json:"number"`
		} `json:"track"`
	} `json:"media"`
}

func (r release) variousArtists() bool {
	for _, ac := range r.ArtistCredit {
		if strings.EqualFold(ac.Name, "various artists") {
			return true
		}
	}
	return false
}

type searchResponse struct {
	Recordings []struct {
		ID           string         `json:"id"`
		Title        string         `json:"title"`
		Length       int            `json:"length"`
		ArtistCredit []artistCredit `json:"artist-credit"`
		ISRCs        []string       `json:"isrcs"`
		Releases     []release      `json:"releases"`
	} `json:"recordings"`
}
