// Package assets resolves cosmetic asset paths against the asset host.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the asset host has no object at path.
var ErrNotFound = errors.New("asset not found")

// Store resolves asset paths to public URLs and content tags.
type Store interface {
	// URL returns the public URL of path.
	URL(ctx context.Context, path string) (string, error)
	// ETag returns the raw entity tag of path, which may be empty.
	ETag(ctx context.Context, path string) (string, error)
}

// HTTPStore is a Store backed by a public HTTP(S) bucket or CDN.
type HTTPStore struct {
	base       *url.URL
	httpClient *http.Client
}

var _ Store = (*HTTPStore)(nil)

// NewHTTPStore creates a store rooted at baseURL.
func NewHTTPStore(baseURL string, timeout time.Duration) (*HTTPStore, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid asset base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid asset base url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPStore{base: base, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (s *HTTPStore) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid asset path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("invalid asset path %q: must be relative", path)
	}
	return s.base.ResolveReference(ref), nil
}

// URL joins path onto the base URL.
func (s *HTTPStore) URL(ctx context.Context, path string) (string, error) {
	u, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ETag issues a HEAD request for path.
func (s *HTTPStore) ETag(ctx context.Context, path string) (string, error) {
	u, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to head %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("asset host returned %d for %s", resp.StatusCode, path)
	}
	return resp.Header.Get("ETag"), nil
}

// NormalizeETag strips the weak prefix and surrounding quotes.
func NormalizeETag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}
