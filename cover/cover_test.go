package cover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLadder(t *testing.T) {
	t.Parallel()

	ref := Ref{Variants: []Variant{
		{URL: "https://img.example.com/ab/500x500.jpg", Size: 500, Sure: true},
		{URL: "https://img.example.com/ab/100x100.jpg", Size: 100, Sure: true},
	}}

	ladder := ref.Ladder()
	require.Len(t, ladder, 6)

	assert.Equal(t, Variant{URL: "https://img.example.com/ab/1200x1200.jpg", Size: 1200}, ladder[0])
	assert.Equal(t, Variant{URL: "https://img.example.com/ab/1000x1000.jpg", Size: 1000}, ladder[1])
	assert.Equal(t, Variant{URL: "https://img.example.com/ab/800x800.jpg", Size: 800}, ladder[2])
	assert.Equal(t, Variant{URL: "https://img.example.com/ab/500x500.jpg", Size: 500, Sure: true}, ladder[3])
	assert.Equal(t, Variant{URL: "https://img.example.com/ab/300x300.jpg", Size: 300}, ladder[4])
	assert.Equal(t, Variant{URL: "https://img.example.com/ab/100x100.jpg", Size: 100, Sure: true}, ladder[5])
}

func TestLadderNoGuessableURL(t *testing.T) {
	t.Parallel()

	// hash-based URL, size never appears in the path
	ref := Ref{Variants: []Variant{
		{URL: "https://i.scdn.co/image/ab67616d0000b273deadbeef", Size: 640, Sure: true},
	}}

	ladder := ref.Ladder()
	require.Len(t, ladder, 1)
	assert.True(t, ladder[0].Sure)
}

func TestLadderEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Ref{}.Ladder())
	assert.True(t, Ref{}.Empty())
	assert.False(t, Ref{CAARelease: "some-mbid"}.Empty())
}

func TestMIMEFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/png", MIMEFor("image/png", "https://x/cover.jpg"))
	assert.Equal(t, "image/jpeg", MIMEFor("image/jpeg; charset=binary", "https://x/cover.png"))
	assert.Equal(t, "image/jpeg", MIMEFor("", "https://x/cover.jpg"))
	assert.Equal(t, "image/png", MIMEFor("application/octet-stream", "https://x/cover.png"))
	assert.Equal(t, "image/jpeg", MIMEFor("", "https://x/cover"))
}
