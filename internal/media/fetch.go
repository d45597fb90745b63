package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"mediasift/internal/services"
)

// ErrDownload marks failures while retrieving remote media bytes.
var ErrDownload = errors.New("media download failed")

const (
	defaultFetchTimeout = 60 * time.Second
	maxRedirects        = 5
	userAgent           = "mediasift/1.0"
)

// Fetcher retrieves media content over HTTP, rewriting object-store URLs to
// their internal endpoint first.
type Fetcher struct {
	resolver Resolver
	client   *http.Client
}

// FetchOption adjusts Fetcher construction.
type FetchOption func(*Fetcher)

// WithHTTPClient substitutes the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFetcher builds a Fetcher with a redirect-capped client.
func NewFetcher(resolver Resolver, timeout time.Duration, opts ...FetchOption) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	fetcher := &Fetcher{
		resolver: resolver,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch downloads the full payload at rawURL and returns the bytes together
// with the response Content-Type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", services.Wrap(ErrDownload, "media", "fetch", "read response body", err)
	}
	return payload, resp.Header.Get("Content-Type"), nil
}

// Download streams the payload at rawURL into a temp file under dir. The
// file suffix is inferred from the URL and response Content-Type so that
// downstream tools keyed on extensions behave. Callers own the returned path.
func (f *Fetcher) Download(ctx context.Context, rawURL, dir string) (string, string, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	suffix := InferSuffix(rawURL, contentType)

	tmp, err := os.CreateTemp(dir, "media-*"+suffix)
	if err != nil {
		return "", "", services.Wrap(ErrDownload, "media", "download", "create temp file", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", services.Wrap(ErrDownload, "media", "download", "stream response body", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", services.Wrap(ErrDownload, "media", "download", "close temp file", err)
	}
	return tmp.Name(), contentType, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	resolved := f.resolver.Resolve(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "media", "fetch", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(ErrDownload, "media", "fetch", "execute request", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, services.Wrap(ErrDownload, "media", "fetch",
			fmt.Sprintf("unexpected status %d fetching media", resp.StatusCode), nil)
	}
	return resp, nil
}
