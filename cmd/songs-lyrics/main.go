package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lfavole/songs-dl/cmd/internal/flags"
	"github.com/lfavole/songs-dl/fileutil"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] <query>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

var (
	resolver  = flags.Resolver()
	outputDir = flag.String("output-dir", "", "write .lrc/.txt files here instead of printing")
)

func main() {
	defer flags.ExitError()
	flags.EnvPrefix("songs_dl") // reuse main binary's namespace
	flags.Parse()
	flags.DefaultClient()

	queries := flag.Args()
	if len(queries) == 0 {
		flag.Usage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	work := make(chan string)
	go func() {
		for _, q := range queries {
			work <- q
		}
		close(work)
	}()

	var stdoutMu sync.Mutex
	var start = time.Now()
	var doneN, errN atomic.Uint32

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-work:
					if !ok {
						return
					}
					if err := processQuery(ctx, &stdoutMu, raw); err != nil {
						if errors.Is(err, context.Canceled) {
							return
						}
						slog.ErrorContext(ctx, "processing query", "query", raw, "err", err)
						errN.Add(1)
						continue
					}
					doneN.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	var level slog.Level
	if errN.Load() > 0 {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "finished", "took", time.Since(start).Truncate(time.Millisecond), "done", doneN.Load(), "errs", errN.Load())
}

func processQuery(ctx context.Context, stdoutMu *sync.Mutex, raw string) error {
	res, err := resolver.ResolveRaw(ctx, raw)
	if err != nil {
		return err
	}
	s := res.Song

	l, err := resolver.Lyrics(ctx, s)
	if err != nil {
		return fmt.Errorf("lyrics for %s: %w", s, err)
	}

	if *outputDir == "" {
		stdoutMu.Lock()
		defer stdoutMu.Unlock()
		fmt.Printf("# %s\n", s)
		if lrc := l.LRC(); lrc != "" {
			fmt.Print(lrc)
		} else {
			fmt.Println(l.Text())
		}
		return nil
	}

	name := fileutil.SafeFilename(s.String())
	var path string
	var data string
	if lrc := l.LRC(); lrc != "" {
		path, data = filepath.Join(*outputDir, name+".lrc"), lrc
	} else {
		path, data = filepath.Join(*outputDir, name+".txt"), l.Text()+"\n"
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write lyrics: %w", err)
	}

	slog.InfoContext(ctx, "wrote lyrics", "path", path, "synced", len(l.Synced) > 0)
	return nil
}
