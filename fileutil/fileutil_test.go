package fileutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Beyoncé - Halo.mp3", SafeFilename("Beyoncé - Halo.mp3"))
	assert.Equal(t, "ACDC - Back In Black", SafeFilename(`AC/DC - Back In Black`))
	assert.Equal(t, "What Again", SafeFilename(`What? "Again"`))
	assert.Equal(t, "a b", SafeFilename("a   \t b"))
	assert.Equal(t, "ends with dot", SafeFilename("ends with dot..."))
	assert.Empty(t, SafeFilename(`\/:*?"<>|`))

	long := SafeFilename(strings.Repeat("é", 300))
	assert.LessOrEqual(t, len(long), 200)
}

func TestUniqueSuffix(t *testing.T) {
	t.Parallel()

	taken := map[string]bool{"song.mp3": true, "song (1).mp3": true}
	exists := func(name string) bool { return taken[name] }

	assert.Equal(t, "other.mp3", UniqueSuffix("other.mp3", exists))
	assert.Equal(t, "song (2).mp3", UniqueSuffix("song.mp3", exists))
}
