package musixmatch

import (
	"context"
	"embed"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfavole/songs-dl/clientutil"
	"github.com/lfavole/songs-dl/provider"
)

//go:embed testdata
var fixtures embed.FS

func newTestClient() *Client {
	return &Client{HTTPClient: clientutil.FSClient(fixtures, "testdata")}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	client := newTestClient()
	candidates, err := client.Search(context.Background(), provider.ParseQuery("Halo -- Beyoncé"), 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "84362419", c.SourceID)
	assert.Equal(t, "Halo", c.Title)
	assert.Equal(t, []string{"Beyoncé"}, c.Artists)
	assert.Equal(t, "I Am... Sasha Fierce", c.Album)
	assert.Equal(t, 261*time.Second, c.Duration)
	assert.Equal(t, "Pop", c.Genre)
	assert.Equal(t, 2008, c.ReleaseDate.Year())

	// lyrics are fetched by commontrack id, not track id
	assert.Equal(t, "8976181", c.LyricsRef)
}

func TestFetchLyrics(t *testing.T) {
	t.Parallel()

	client := newTestClient()
	l, err := client.FetchLyrics(context.Background(), "8976181")
	require.NoError(t, err)

	require.Len(t, l.Synced, 2)
	assert.Equal(t, 12340*time.Millisecond, l.Synced[0].At)
	assert.Equal(t, "Remember those walls I built?", l.Synced[0].Text)
}

func TestCaptchaCooldown(t *testing.T) {
	t.Parallel()

	client := newTestClient()
	client.captchaUntil = time.Now().Add(time.Hour)

	_, err := client.Search(context.Background(), provider.ParseQuery("Halo -- Beyoncé"), 5)
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, provider.KindRateLimited, perr.Kind)
}
