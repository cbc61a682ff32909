package itunes

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

func TestSearch(t *testing.T) {
	t.Parallel()

	client := &Client{HTTPClient: clientutil.FSClient(fixtures, "testdata")}
	candidates, err := client.Search(context.Background(), provider.ParseQuery("Halo -- Beyoncé"), 5)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	c := candidates[0]
	assert.Equal(t, Name, c.Provider)
	assert.Equal(t, "285606837", c.SourceID)
	assert.Equal(t, "Halo", c.Title)
	assert.Equal(t, []string{"Beyoncé"}, c.Artists)
	assert.Equal(t, "I Am... Sasha Fierce", c.Album)
	assert.Equal(t, 2008, c.ReleaseDate.Year())
	assert.Equal(t, 261613*time.Millisecond, c.Duration)
	assert.Equal(t, "Pop", c.Genre)
	assert.Equal(t, 4, c.TrackNumber)
	assert.Equal(t, 16, c.TrackTotal)

	require.Len(t, c.Cover.Variants, 1)
	assert.Equal(t, 100, c.Cover.Variants[0].Size)
	assert.True(t, c.Cover.Variants[0].Sure)

	// the artwork host serves larger renditions at substituted sizes
	ladder := c.Cover.Ladder()
	assert.Equal(t, "https://is1-ssl.mzstatic.com/image/thumb/Music/v4/ab/cd/ef/source/1200x1200bb.jpg", ladder[0].URL)
}
