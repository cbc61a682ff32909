// Package testcmds backs the commands' testscript runs with canned provider
// responses served over a file transport, so scripts exercise the real
// resolution path without the network.
package testcmds

import (
	"embed"
	"net/http"
	"os"
)

//go:embed testdata/responses
var responses embed.FS

// RegisterTransport points every provider client at the embedded responses.
// Called from TestMain so it applies in the re-executed test binary that
// testscript spawns for each command.
func RegisterTransport() {
	var t http.Transport
	t.RegisterProtocol("file", http.NewFileTransportFS(responses))

	os.Setenv("SONGS_DL_SPOTIFY_BASE_URL", "file:///testdata/responses/spotify/v1")
	os.Setenv("SONGS_DL_SPOTIFY_TOKEN_BASE_URL", "file:///testdata/responses/spotify")
	os.Setenv("SONGS_DL_ITUNES_BASE_URL", "file:///testdata/responses/itunes")
	os.Setenv("SONGS_DL_MUSIXMATCH_BASE_URL", "file:///testdata/responses/musixmatch")
	os.Setenv("SONGS_DL_DEEZER_BASE_URL", "file:///testdata/responses/deezer/api")
	os.Setenv("SONGS_DL_DEEZER_PAGE_BASE_URL", "file:///testdata/responses/deezer/page")
	os.Setenv("SONGS_DL_MB_BASE_URL", "file:///testdata/responses/musicbrainz/ws/2")
	os.Setenv("SONGS_DL_MB_RATE_LIMIT", "0")
	os.Setenv("SONGS_DL_LRCLIB_BASE_URL", "file:///testdata/responses/lrclib")
	os.Setenv("SONGS_DL_CAA_BASE_URL", "file:///testdata/responses/coverartarchive")

	http.DefaultTransport = &t
}
