// Package cover carries cover art references between providers and the
// fetcher that turns the best reference into image bytes. The resolution
// pipeline itself never touches image data, only Refs.
package cover

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.senan.xyz/natcmp"

	"github.com/lfavole/songs-dl/clientutil"
)

var ErrNotFound = errors.New("no cover art found")

// Variant is one known or guessed rendition of a cover image. Size is the
// smallest dimension in pixels. Sure variants were reported by a provider;
// unsure ones are URL guesses that must be verified before download.
type Variant struct {
	URL  string
	Size int
	Sure bool
}

// Ref is an opaque cover art reference attached to a candidate. Either a set
// of sized URL variants, or a Cover Art Archive release ID resolved lazily
// by the Fetcher.
type Ref struct {
	Variants   []Variant
	CAARelease string
}

func (r Ref) Empty() bool {
	return len(r.Variants) == 0 && r.CAARelease == ""
}

// ladderSizes are tried on top of the provider-reported variants, largest
// first, by substituting the size into a known URL.
var ladderSizes = []int{1200, 1000, 800, 500, 300}

// Ladder returns the variants to try in order of preference: largest first,
// provider-reported sizes extended with speculative renditions.
func (r Ref) Ladder() []Variant {
	variants := slices.Clone(r.Variants)

	for _, size := range ladderSizes {
		if slices.ContainsFunc(variants, func(v Variant) bool { return v.Size == size }) {
			continue
		}
		if url := guessURL(r.Variants, size); url != "" {
			variants = append(variants, Variant{URL: url, Size: size})
		}
	}

	slices.SortFunc(variants, func(a, b Variant) int {
		return cmp.Or(cmp.Compare(b.Size, a.Size), natcmp.Compare(a.URL, b.URL))
	})
	return variants
}

// guessURL derives a URL for size by substituting the size of the largest
// sure variant in its last path segment. Providers with hash-based URLs
// produce no guesses since the size never appears in the path.
func guessURL(sure []Variant, size int) string {
	var best Variant
	for _, v := range sure {
		if v.Sure && v.Size > best.Size {
			best = v
		}
	}
	if best.URL == "" {
		return ""
	}
	i := strings.LastIndex(best.URL, "/")
	segment := best.URL[i+1:]
	if !strings.Contains(segment, strconv.Itoa(best.Size)) {
		return ""
	}
	return best.URL[:i+1] + strings.ReplaceAll(segment, strconv.Itoa(best.Size), strconv.Itoa(size))
}

type Fetcher struct {
	CAABaseURL string
	RateLimit  time.Duration
	MaxBytes   int64

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (f *Fetcher) init() {
	f.initOnce.Do(func() {
		if f.CAABaseURL == "" {
			f.CAABaseURL = "https://coverartarchive.org/"
		}
		f.HTTPClient = clientutil.Wrap(f.HTTPClient, clientutil.Chain(
			clientutil.WithCache(),
			clientutil.WithRateLimit(f.RateLimit),
		))
	})
}

// Fetch downloads the best available rendition for ref, returning the image
// bytes and their MIME type.
func (f *Fetcher) Fetch(ctx context.Context, ref Ref) ([]byte, string, error) {
	f.init()

	if ref.CAARelease != "" {
		variants, err := f.resolveCAA(ctx, ref.CAARelease)
		if err != nil {
			return nil, "", fmt.Errorf("resolve cover art archive: %w", err)
		}
		ref = Ref{Variants: variants}
	}

	for _, v := range ref.Ladder() {
		if !v.Sure && !f.exists(ctx, v.URL) {
			continue
		}
		data, mime, err := f.download(ctx, v.URL)
		if err != nil {
			continue
		}
		return data, mime, nil
	}
	return nil, "", ErrNotFound
}

func (f *Fetcher) exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download cover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, "", StatusError(resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if f.MaxBytes > 0 {
		body = io.LimitReader(body, f.MaxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read cover: %w", err)
	}
	return data, MIMEFor(resp.Header.Get("Content-Type"), url), nil
}

func (f *Fetcher) resolveCAA(ctx context.Context, releaseID string) ([]Variant, error) {
	url := joinPath(f.CAABaseURL, "release", releaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request caa release: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("caa returned non 2xx: %w", StatusError(resp.StatusCode))
	}

	var caa caaResponse
	if err := json.NewDecoder(resp.Body).Decode(&caa); err != nil {
		return nil, fmt.Errorf("decode caa response: %w", err)
	}

	var variants []Variant
	for _, img := range caa.Images {
		if !img.Front {
			continue
		}
		for sizeStr, url := range img.Thumbnails {
			size, err := strconv.Atoi(sizeStr)
			if err != nil {
				continue
			}
			variants = append(variants, Variant{URL: url, Size: size, Sure: true})
		}
		if img.Image != "" {
			// full-size image, dimensions unknown but at least thumbnail-sized
			variants = append(variants, Variant{URL: img.Image, Size: 1200, Sure: true})
		}
		break
	}
	return variants, nil
}

type caaResponse struct {
	Images []struct {
		Front      bool              `json:"front"`
		Image      string            `json:"image"`
		Thumbnails map[string]string `json:"thumbnails"`
	} `json:"images"`
}

// MIMEFor picks an image MIME type from a Content-Type header, falling back
// on the URL's file extension.
func MIMEFor(contentType, url string) string {
	if mime, _, _ := strings.Cut(contentType, ";"); strings.HasPrefix(mime, "image/") && len(mime) > len("image/") {
		return strings.TrimSpace(mime)
	}
	ext := url[strings.LastIndex(url, ".")+1:]
	ext = strings.ToLower(strings.ReplaceAll(ext, "jpg", "jpeg"))
	switch ext {
	case "jpeg", "png", "gif", "webp":
		return "image/" + ext
	}
	return "image/jpeg"
}

type StatusError int

func (se StatusError) Error() string {
	return strconv.Itoa(int(se))
}

func joinPath(base string, p ...string) string {
	r := strings.TrimSuffix(base, "/")
	for _, part := range p {
		r += "/" + part
	}
	return r
}
