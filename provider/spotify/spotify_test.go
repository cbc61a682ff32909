package spotify

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
	assert.Equal(t, "0PDUDa38GO8lMxLCRc4lL1", c.SourceID)
	assert.Equal(t, "Halo", c.Title)
	assert.Equal(t, []string{"Beyoncé"}, c.Artists)
	assert.Equal(t, "I Am... Sasha Fierce", c.Album)
	assert.Equal(t, 2008, c.ReleaseDate.Year())
	assert.Equal(t, 261640*time.Millisecond, c.Duration)
	assert.Equal(t, "USSM10804562", c.ISRC)
	assert.Equal(t, 4, c.TrackNumber)
	assert.Equal(t, 16, c.TrackTotal)

	require.Len(t, c.Cover.Variants, 3)
	assert.Equal(t, 640, c.Cover.Variants[0].Size)
	assert.True(t, c.Cover.Variants[0].Sure)
}

func TestAccessTokenCached(t *testing.T) {
	t.Parallel()

	client := newTestClient()
	token, err := client.accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BQDtest-anonymous-token", token)

	// a still-valid token is reused without another request
	client.token = "still-valid"
	client.tokenExpires = time.Now().Add(time.Hour)
	token, err = client.accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "still-valid", token)

	// an expired token is replaced
	client.tokenExpires = time.Now().Add(-time.Hour)
	token, err = client.accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BQDtest-anonymous-token", token)
}
