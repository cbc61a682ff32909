package musicbrainz

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
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "d6d0d227-a211-4b7a-8b56-a360d2cd212e", c.SourceID)
	assert.Equal(t, "Halo", c.Title)
	assert.Equal(t, []string{"Beyoncé"}, c.Artists)
	assert.Equal(t, 261*time.Second, c.Duration)
	assert.Equal(t, "USSM10804562", c.ISRC)

	// the compilation release is skipped in favor of the artist's own album
	assert.Equal(t, "I Am... Sasha Fierce", c.Album)
	assert.Equal(t, 2008, c.ReleaseDate.Year())
	assert.Equal(t, 4, c.TrackNumber)
	assert.Equal(t, 16, c.TrackTotal)
	assert.Equal(t, "9b9b84a6-3f1b-4f62-a7b9-cb2be7e718a9", c.Cover.CAARelease)
}

func TestField(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `recording:"Halo"`, field("recording", "Halo"))
	assert.Equal(t, `recording:"What\? \(Again\)"`, field("recording", "What? (Again)"))
	assert.Equal(t, `artist:"AC\/DC"`, field("artist", "AC/DC"))
}
