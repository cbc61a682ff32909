package normtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tr := Normalize("Shake It Off")
	assert.Equal(t, "shake it off", tr.Value)
	assert.Empty(t, tr.Artists)

	tr = Normalize("Désenchantée")
	assert.Equal(t, "desenchantee", tr.Value)

	tr = Normalize("Beyoncé – HALO!!")
	assert.Equal(t, "beyonce halo", tr.Value)

	tr = Normalize("One Kiss (with Dua Lipa)")
	assert.Equal(t, "one kiss", tr.Value)
	assert.Equal(t, []string{"dua lipa"}, tr.Artists)

	tr = Normalize("I Don't Care (feat. Justin Bieber & Chance the Rapper)")
	assert.Equal(t, "i don t care", tr.Value)
	assert.Equal(t, []string{"justin bieber", "chance the rapper"}, tr.Artists)

	tr = Normalize("Blinding Lights feat. ROSALÍA")
	assert.Equal(t, "blinding lights", tr.Value)
	assert.Equal(t, []string{"rosalia"}, tr.Artists)

	tr = Normalize("Levitating (Remix)")
	assert.Equal(t, "levitating", tr.Value)
	assert.Equal(t, "remix", tr.Extra)
	assert.Empty(t, tr.Artists)

	tr = Normalize("")
	assert.True(t, tr.Empty())
	assert.Empty(t, tr.Artists)
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"Shake It Off",
		"Désenchantée",
		"One Kiss (with Dua Lipa)",
		"I Don't Care (feat. Justin Bieber)",
		"MONTERO (Call Me by Your Name) [Official Video]",
		"  weird   spacing\tand, punct.: here  ",
		"",
	} {
		once := Normalize(s)
		twice := Normalize(once.Value)
		assert.Equal(t, once.Value, twice.Value, "normalize not idempotent for %q", s)
	}
}

func TestSplitArtists(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"taylor swift"}, SplitArtists("Taylor Swift"))
	assert.Equal(t, []string{"calvin harris", "dua lipa"}, SplitArtists("Calvin Harris & Dua Lipa"))
	assert.Equal(t, []string{"silk city", "dua lipa", "diplo", "mark ronson"},
		SplitArtists("Silk City, Dua Lipa feat. Diplo & Mark Ronson"))
	assert.Nil(t, SplitArtists(""))
}
