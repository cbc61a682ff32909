// Package flags wires the shared command line surface of the commands:
// process-wide logging, flagconf parsing, and flag-configured clients.
package flags

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.senan.xyz/flagconf"

	songsdl "github.com/lfavole/songs-dl"
	"github.com/lfavole/songs-dl/clientutil"
	"github.com/lfavole/songs-dl/cover"
	"github.com/lfavole/songs-dl/lyrics"
	"github.com/lfavole/songs-dl/notifications"
	"github.com/lfavole/songs-dl/provider"
	"github.com/lfavole/songs-dl/provider/deezer"
	"github.com/lfavole/songs-dl/provider/itunes"
	"github.com/lfavole/songs-dl/provider/lrclib"
	"github.com/lfavole/songs-dl/provider/musicbrainz"
	"github.com/lfavole/songs-dl/provider/musixmatch"
	"github.com/lfavole/songs-dl/provider/spotify"
	"github.com/lfavole/songs-dl/youtube"
)

var logLevel slog.LevelVar
var logHandler *slogErrorHandler

func init() {
	logHandler = &slogErrorHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}),
	}
	slog.SetDefault(slog.New(logHandler))
	slog.SetLogLoggerLevel(slog.LevelError)
}

// ExitError exits non zero when anything logged at error level during the
// run. Deferred first thing in each main.
func ExitError() {
	if logHandler.hadSlogError.Load() {
		os.Exit(1)
	}
	os.Exit(0)
}

type slogErrorHandler struct {
	slog.Handler
	hadSlogError atomic.Bool
}

func (n *slogErrorHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == slog.LevelError {
		n.hadSlogError.Store(true)
	}
	return n.Handler.Handle(ctx, r)
}

func EnvPrefix(prefix string) {
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string {
		return prefix
	}
}

func Parse() {
	userConfig, _ := os.UserConfigDir()
	defaultConfigPath := filepath.Join(userConfig, songsdl.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "path to config file")

	printVersion := flag.Bool("version", false, "print the version")
	printConfig := flag.Bool("config", false, "print the parsed config")

	flag.TextVar(&logLevel, "log-level", &logLevel, "set the logging level")

	flag.Parse()
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), songsdl.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-16s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

// DefaultClient decorates the process-wide transport with request logging
// and a user agent, which all provider clients then inherit.
func DefaultClient() {
	chain := clientutil.Chain(
		clientutil.WithLogging(slog.Default()),
		clientutil.WithUserAgent(fmt.Sprintf("%s/%s", songsdl.Name, songsdl.Version)),
	)
	http.DefaultTransport = chain(http.DefaultTransport)
}

// Resolver builds the resolver with every provider wired in. The -providers
// flag narrows the set; client endpoints and limits stay flag-tunable so
// tests and self-hosted mirrors can point elsewhere.
func Resolver() *songsdl.Resolver {
	// nil clients pick up the process-wide transport lazily, so each
	// provider gets its own middleware stack on top of DefaultClient's
	spotifyClient := &spotify.Client{}
	itunesClient := &itunes.Client{}
	musixmatchClient := &musixmatch.Client{}
	deezerClient := &deezer.Client{}
	musicbrainzClient := &musicbrainz.Client{}
	lrclibClient := &lrclib.Client{}

	flag.StringVar(&spotifyClient.BaseURL, "spotify-base-url", "https://api.spotify.com/v1", "spotify api base url")
	flag.StringVar(&spotifyClient.TokenBaseURL, "spotify-token-base-url", "https://open.spotify.com", "spotify access token base url")
	flag.StringVar(&spotifyClient.Market, "spotify-market", "US", "default spotify market")
	flag.StringVar(&itunesClient.BaseURL, "itunes-base-url", "https://itunes.apple.com", "itunes search base url")
	flag.StringVar(&itunesClient.Country, "itunes-country", "US", "default itunes storefront")
	flag.StringVar(&musixmatchClient.BaseURL, "musixmatch-base-url", "https://apic-desktop.musixmatch.com/ws/1.1", "musixmatch web service base url")
	flag.StringVar(&deezerClient.BaseURL, "deezer-base-url", "https://api.deezer.com", "deezer api base url")
	flag.StringVar(&deezerClient.PageBaseURL, "deezer-page-base-url", "https://www.deezer.com", "deezer track page base url")
	flag.StringVar(&musicbrainzClient.BaseURL, "mb-base-url", "https://musicbrainz.org/ws/2", "musicbrainz base url")
	flag.DurationVar(&musicbrainzClient.RateLimit, "mb-rate-limit", time.Second, "musicbrainz rate limit duration")
	flag.StringVar(&lrclibClient.BaseURL, "lrclib-base-url", "https://lrclib.net", "lrclib base url")

	byName := map[string]provider.Provider{
		spotify.Name:     spotifyClient,
		itunes.Name:      itunesClient,
		musixmatch.Name:  musixmatchClient,
		deezer.Name:      deezerClient,
		musicbrainz.Name: musicbrainzClient,
		lrclib.Name:      lrclibClient,
	}

	r := songsdl.NewResolver(
		spotifyClient, itunesClient, musixmatchClient,
		deezerClient, musicbrainzClient, lrclibClient,
	)
	r.LyricsFallback = lyrics.ChainSource{&lyrics.Genius{RateLimit: 500 * time.Millisecond}}

	flag.Var(&providersParser{resolver: r, byName: byName}, "providers", "comma separated providers to query (default all)")
	flag.DurationVar(&r.ProviderTimeout, "provider-timeout", 15*time.Second, "per provider search timeout")
	flag.IntVar(&r.MaxResults, "max-results", 10, "max results to score per provider")
	flag.Float64Var(&r.Matcher.Thresholds.MinScore, "min-score", r.Matcher.Thresholds.MinScore, "min match score to accept a candidate")
	flag.Float64Var(&r.Matcher.Thresholds.TitleOnlyMinScore, "title-only-min-score", r.Matcher.Thresholds.TitleOnlyMinScore, "min match score for queries without an artist")

	return r
}

func CoverFetcher() *cover.Fetcher {
	var f cover.Fetcher
	flag.StringVar(&f.CAABaseURL, "caa-base-url", "https://coverartarchive.org/", "coverartarchive base url")
	flag.DurationVar(&f.RateLimit, "caa-rate-limit", 0, "coverartarchive rate limit duration")
	return &f
}

func Downloader() *youtube.Downloader {
	var d youtube.Downloader
	flag.StringVar(&d.Command, "yt-dlp", "yt-dlp", "yt-dlp command, extra arguments are passed through")
	return &d
}

func Notifications() *notifications.Notifications {
	var n notifications.Notifications
	flag.Var(&notificationsParser{&n}, "notification-uri", "add a shoutrrr notification uri for an event (stackable)")
	return &n
}

var _ flag.Value = (*providersParser)(nil)
var _ flag.Value = (*notificationsParser)(nil)

type providersParser struct {
	resolver *songsdl.Resolver
	byName   map[string]provider.Provider
}

func (p *providersParser) Set(value string) error {
	var selected []provider.Provider
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		prov, ok := p.byName[name]
		if !ok {
			return fmt.Errorf("unknown provider %q", name)
		}
		selected = append(selected, prov)
	}
	p.resolver.Providers = selected
	return nil
}

func (p providersParser) String() string {
	if p.resolver == nil {
		return ""
	}
	var names []string
	for _, prov := range p.resolver.Providers {
		names = append(names, prov.Name())
	}
	return strings.Join(names, ",")
}

type notificationsParser struct{ *notifications.Notifications }

func (n *notificationsParser) Set(value string) error {
	eventsRaw, uri, ok := strings.Cut(value, " ")
	if !ok {
		return fmt.Errorf("invalid notification uri format. expected eg \"ev1,ev2 uri\"")
	}
	var lineErrs []error
	for _, ev := range strings.Split(eventsRaw, ",") {
		ev, uri = strings.TrimSpace(ev), strings.TrimSpace(uri)
		err := n.AddURI(notifications.Event(ev), uri)
		lineErrs = append(lineErrs, err)
	}
	return errors.Join(lineErrs...)
}

func (n notificationsParser) String() string {
	if n.Notifications == nil {
		return ""
	}
	var parts []string
	n.Notifications.IterMappings(func(e notifications.Event, uri string) {
		url, _ := url.Parse(uri)
		parts = append(parts, fmt.Sprintf("%s: %s://%s/...", e, url.Scheme, url.Host))
	})
	return strings.Join(parts, ", ")
}
