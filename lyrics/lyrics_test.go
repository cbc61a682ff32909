package lyrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRC(t *testing.T) {
	t.Parallel()

	l := Lyrics{Synced: []Line{
		{At: 12340 * time.Millisecond, Text: "Remember those walls I built?"},
		{At: 75*time.Second + 500*time.Millisecond, Text: "Baby, they're tumbling down"},
	}}

	assert.Equal(t,
		"[00:12.34]Remember those walls I built?\n[01:15.50]Baby, they're tumbling down\n",
		l.LRC())

	assert.Empty(t, Lyrics{Plain: "just text"}.LRC())
}

func TestParseLRCRoundTrip(t *testing.T) {
	t.Parallel()

	text := "[ar:Beyoncé]\n[00:12.34]Remember those walls I built?\n\n[01:15.50]Baby, they're tumbling down\nnot a timestamp\n"
	lines := ParseLRC(text)
	require.Len(t, lines, 2)
	assert.Equal(t, Line{At: 12340 * time.Millisecond, Text: "Remember those walls I built?"}, lines[0])
	assert.Equal(t, Line{At: 75*time.Second + 500*time.Millisecond, Text: "Baby, they're tumbling down"}, lines[1])

	assert.Equal(t, Lyrics{Synced: lines}.LRC(), "[00:12.34]Remember those walls I built?\n[01:15.50]Baby, they're tumbling down\n")
}

func TestText(t *testing.T) {
	t.Parallel()

	l := Lyrics{Synced: []Line{{Text: "line one"}, {Text: "line two"}}}
	assert.Equal(t, "line one\nline two", l.Text())

	l = Lyrics{Plain: "already plain", Synced: []Line{{Text: "ignored"}}}
	assert.Equal(t, "already plain", l.Text())

	assert.True(t, Lyrics{}.Empty())
}

func TestChainSource(t *testing.T) {
	t.Parallel()

	miss := sourceFunc(func(context.Context, string, string) (Lyrics, error) {
		return Lyrics{}, ErrLyricsNotFound
	})
	hit := sourceFunc(func(context.Context, string, string) (Lyrics, error) {
		return Lyrics{Plain: "found"}, nil
	})
	boom := sourceFunc(func(context.Context, string, string) (Lyrics, error) {
		return Lyrics{}, errors.New("upstream down")
	})

	got, err := ChainSource{miss, hit}.Search(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "found", got.Plain)

	// a hit after a hard failure still wins
	got, err = ChainSource{boom, hit}.Search(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "found", got.Plain)

	_, err = ChainSource{miss}.Search(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrLyricsNotFound)

	_, err = ChainSource{miss, boom}.Search(context.Background(), "a", "b")
	assert.EqualError(t, err, "upstream down")
}

func TestGeniusURLify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "the-weeknd", geniusURLify("The Weeknd"))
	assert.Equal(t, "i-don-t-care", geniusURLify("I Don't Care!"))
}

type sourceFunc func(ctx context.Context, artist, song string) (Lyrics, error)

func (f sourceFunc) Search(ctx context.Context, artist, song string) (Lyrics, error) {
	return f(ctx, artist, song)
}
