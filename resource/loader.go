// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gogpu/gg"

	// Image formats seen in recorded canvas streams.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Loader errors.
var (
	// ErrUnsupportedSource is returned for image sources the loader cannot fetch.
	ErrUnsupportedSource = errors.New("resource: unsupported image source")

	// ErrEmptyData is returned when an inline image payload is empty.
	ErrEmptyData = errors.New("resource: empty image data")
)

// LoadError reports a failed image resolution. It wraps the underlying
// decode or transport error and names the cache key that failed.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return "resource: load image " + e.Key + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader fetches and decodes one image resource.
// Implementations must be safe for concurrent use; the cache collapses
// duplicate keys but distinct keys load in parallel.
type Loader interface {
	// Load resolves an image from src (a URL) or data (inline bytes).
	// Exactly one of the two is set.
	Load(ctx context.Context, src string, data []byte) (*gg.ImageBuf, error)
}

// Default HTTPLoader limits.
const (
	// DefaultFetchTimeout bounds one remote image fetch.
	DefaultFetchTimeout = 15 * time.Second

	// DefaultMaxImageBytes bounds the size of one fetched image.
	DefaultMaxImageBytes = 32 << 20
)

// HTTPLoader is the default Loader. It decodes inline bytes and data: URLs
// locally and fetches http(s) sources with a bounded client.
type HTTPLoader struct {
	// Client performs remote fetches. If nil, a client with
	// DefaultFetchTimeout is used.
	Client *http.Client

	// MaxBytes caps the size of a fetched image body.
	// If zero, DefaultMaxImageBytes applies.
	MaxBytes int64
}

// NewHTTPLoader creates an HTTPLoader with default limits.
func NewHTTPLoader() *HTTPLoader {
	return &HTTPLoader{
		Client:   &http.Client{Timeout: DefaultFetchTimeout},
		MaxBytes: DefaultMaxImageBytes,
	}
}

// Load implements Loader.
func (l *HTTPLoader) Load(ctx context.Context, src string, data []byte) (*gg.ImageBuf, error) {
	if len(data) > 0 {
		return DecodeImage(data)
	}

	switch {
	case strings.HasPrefix(src, "data:"):
		raw, err := decodeDataURL(src)
		if err != nil {
			return nil, err
		}
		return DecodeImage(raw)

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		raw, err := l.fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		return DecodeImage(raw)

	case src == "":
		return nil, ErrEmptyData

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, src)
	}
}

// fetch retrieves the body of a remote image source.
func (l *HTTPLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	maxBytes := l.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("resource: fetch %s: %w", src, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resource: fetch %s: %w", src, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resource: fetch %s: unexpected status %s", src, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("resource: fetch %s: %w", src, err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("resource: fetch %s: body exceeds %d bytes", src, maxBytes)
	}
	return raw, nil
}

// decodeDataURL extracts the payload of a data: URL.
// Both base64 and percent-encoded payloads occur in recorded streams.
func decodeDataURL(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: malformed data URL", ErrUnsupportedSource)
	}
	meta, payload := src[len("data:"):comma], src[comma+1:]

	if strings.HasSuffix(meta, ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("resource: data URL base64: %w", err)
		}
		return raw, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("resource: data URL payload: %w", err)
	}
	return []byte(unescaped), nil
}

// DecodeImage decodes raw image bytes into an ImageBuf, detecting the
// format from content. Supported formats: PNG, JPEG, GIF, WebP.
func DecodeImage(data []byte) (*gg.ImageBuf, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("resource: decode image: %w", err)
	}
	return gg.ImageBufFromImage(img), nil
}
