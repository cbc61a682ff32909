// Package youtube downloads audio by driving yt-dlp as a subprocess.
package youtube

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/lfavole/songs-dl/song"
)

type Downloader struct {
	// Command is the yt-dlp invocation, shell-style. Extra arguments after
	// the binary name are passed through on every run.
	Command string
}

// Download searches YouTube for s and saves the best audio as an MP3 at
// dest. The search target is yt-dlp's own relevance pick for
// "artist - title".
func (d *Downloader) Download(ctx context.Context, s *song.Song, dest string) error {
	command := d.Command
	if command == "" {
		command = "yt-dlp"
	}
	parts, err := shlex.Split(command)
	if err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("no command provided")
	}

	args := append(parts[1:],
		"--no-playlist",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--output", dest,
	)
	if s.Duration > 0 {
		// steer yt-dlp away from extended mixes and sped-up reuploads
		secs := int(s.Duration.Seconds())
		args = append(args, "--match-filter",
			fmt.Sprintf("duration>%d & duration<%d", max(secs-20, 0), secs+20))
	}
	args = append(args, target(s))

	cmd := exec.CommandContext(ctx, parts[0], args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("run %s: %w: %s", parts[0], err, lastLine(msg))
		}
		return fmt.Errorf("run %s: %w", parts[0], err)
	}
	return nil
}

func target(s *song.Song) string {
	return "ytsearch1:" + s.String()
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
