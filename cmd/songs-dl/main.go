package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.senan.xyz/table/table"

	songsdl "github.com/lfavole/songs-dl"
	"github.com/lfavole/songs-dl/cmd/internal/flags"
	"github.com/lfavole/songs-dl/cover"
	"github.com/lfavole/songs-dl/fileutil"
	"github.com/lfavole/songs-dl/lyrics"
	"github.com/lfavole/songs-dl/notifications"
	"github.com/lfavole/songs-dl/song"
	"github.com/lfavole/songs-dl/tags"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] <query>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "A query is free text, \"title -- artist\", or @file with one query per line.\n")
		fmt.Fprintf(flag.Output(), "A leading \"market:XX\" token pins the catalog region.\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

var (
	resolver     = flags.Resolver()
	coverFetcher = flags.CoverFetcher()
	downloader   = flags.Downloader()
	notifs       = flags.Notifications()
	outputDir    = flag.String("output-dir", ".", "directory to write songs to")
	dryRun       = flag.Bool("dry-run", false, "resolve and print metadata without downloading")
	writeLRC     = flag.Bool("lrc", false, "write an .lrc sidecar when synced lyrics are found")
	numWorkers   = flag.Int("workers", 4, "number of parallel queries")
)

func main() {
	defer flags.ExitError()
	flags.EnvPrefix("songs_dl")
	flags.Parse()
	flags.DefaultClient()

	queries, err := expandQueries(flag.Args())
	if err != nil {
		slog.Error("read queries", "err", err)
		return
	}
	if len(queries) == 0 {
		flag.Usage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	work := make(chan string)
	go func() {
		for _, q := range queries {
			work <- q
		}
		close(work)
	}()

	var mu sync.Mutex
	var resolved []*songsdl.Resolution
	var doneN, errN atomic.Uint32

	var wg sync.WaitGroup
	for range max(*numWorkers, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctxConsume(ctx, work, func(raw string) {
				res, err := processQuery(ctx, raw)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					slog.ErrorContext(ctx, "processing query", "query", raw, "err", err)
					notifs.Sendf(ctx, notifications.ResolveError, "failed %q: %v", raw, err)
					errN.Add(1)
					return
				}
				mu.Lock()
				resolved = append(resolved, res)
				mu.Unlock()
				doneN.Add(1)
			})
		}()
	}
	wg.Wait()

	if *dryRun {
		printTable(resolved)
	}

	logger := slog.With("took", time.Since(start).Truncate(time.Millisecond), "done", doneN.Load(), "errs", errN.Load())
	if errN.Load() > 0 {
		notifs.Sendf(ctx, notifications.BatchComplete, "finished with %d errors", errN.Load())
		logger.Error("finished with errors")
		return
	}
	notifs.Send(ctx, notifications.BatchComplete, "finished")
	logger.Info("finished")
}

func processQuery(ctx context.Context, raw string) (*songsdl.Resolution, error) {
	res, err := resolver.ResolveRaw(ctx, raw)
	if err != nil {
		return nil, err
	}
	s := res.Song

	if *dryRun {
		return res, nil
	}

	dest := filepath.Join(*outputDir, fileutil.SafeFilename(s.String())+".mp3")
	dest = fileutil.UniqueSuffix(dest, func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})

	if err := downloader.Download(ctx, s, dest); err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	var coverArt *tags.Cover
	if !s.Cover.Empty() {
		data, mime, err := coverFetcher.Fetch(ctx, s.Cover)
		if err != nil && !errors.Is(err, cover.ErrNotFound) {
			slog.WarnContext(ctx, "fetch cover", "query", raw, "err", err)
		}
		if err == nil {
			coverArt = &tags.Cover{Data: data, MIME: mime}
		}
	}

	songLyrics, err := resolver.Lyrics(ctx, s)
	if err != nil && !errors.Is(err, lyrics.ErrLyricsNotFound) {
		slog.WarnContext(ctx, "fetch lyrics", "query", raw, "err", err)
	}

	if err := tags.Write(dest, s, coverArt, songLyrics); err != nil {
		return nil, fmt.Errorf("write tags: %w", err)
	}

	if *writeLRC {
		if lrc := songLyrics.LRC(); lrc != "" {
			lrcPath := strings.TrimSuffix(dest, ".mp3") + ".lrc"
			if err := os.WriteFile(lrcPath, []byte(lrc), 0o644); err != nil {
				return nil, fmt.Errorf("write lrc: %w", err)
			}
		}
	}

	slog.InfoContext(ctx, "wrote song", "path", dest, "confidence", fmt.Sprintf("%.2f", s.Confidence))
	notifs.Sendf(ctx, notifications.Complete, "downloaded %s", s)
	return res, nil
}

// expandQueries flattens args, reading @file arguments line by line. Blank
// lines and # comments are skipped.
func expandQueries(args []string) ([]string, error) {
	var queries []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") {
			queries = append(queries, arg)
			continue
		}
		f, err := os.Open(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, err
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			queries = append(queries, line)
		}
		if err := errors.Join(sc.Err(), f.Close()); err != nil {
			return nil, err
		}
	}
	return queries, nil
}

func printTable(resolved []*songsdl.Resolution) {
	t := table.NewStringWriter()
	fmt.Fprintf(t, "query\ttitle\tartist\talbum\tconfidence\tsources\n")
	for _, res := range resolved {
		s := res.Song
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			res.Query.Raw, s.Title, s.Artist(), s.Album, s.Confidence, sourceSummary(s))
	}
	fmt.Print(t.String())
}

func sourceSummary(s *song.Song) string {
	counts := map[string]int{}
	for _, name := range s.Sources {
		counts[name]++
	}
	var parts []string
	for name, n := range counts {
		parts = append(parts, fmt.Sprintf("%s(%d)", name, n))
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

func ctxConsume[T any](ctx context.Context, work <-chan T, f func(T)) {
	for {
		select { // prority select for ctx.Done()
		case <-ctx.Done():
			return
		default:
			select {
			case <-ctx.Done():
				return
			case w, ok := <-work:
				if !ok {
					return
				}
				f(w)
			}
		}
	}
}
