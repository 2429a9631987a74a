package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wrapstudio/wrapview/internal/logger"
)

// HTTPError reports a non-2xx response from an asset fetch.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.Status)
}

// ProgressFunc receives streaming fetch progress. total is -1 when the
// server sent no Content-Length.
type ProgressFunc func(done, total int64)

// Fetcher downloads binary assets over HTTP, populating the cache
// opportunistically.
type Fetcher struct {
	client *http.Client
	cache  *Cache
}

// NewFetcher creates a fetcher over cache (nil disables caching).
func NewFetcher(cache *Cache) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 2 * time.Minute},
		cache:  cache,
	}
}

// FetchWithCache returns the bytes at url, serving from cache when the
// stored version matches.
func (f *Fetcher) FetchWithCache(ctx context.Context, url, version string) ([]byte, error) {
	return f.FetchProgress(ctx, url, version, nil)
}

// FetchProgress is FetchWithCache with streaming progress callbacks.
// Cached hits report a single complete callback.
func (f *Fetcher) FetchProgress(ctx context.Context, url, version string, progress ProgressFunc) ([]byte, error) {
	if data, ok := f.cache.Get(url, version); ok {
		logger.Debug("asset cache hit", zap.String("url", url))
		if progress != nil {
			progress(int64(len(data)), int64(len(data)))
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: url, Status: resp.StatusCode}
	}

	total := resp.ContentLength
	var data []byte
	buf := make([]byte, 64*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			if progress != nil {
				progress(int64(len(data)), total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", url, err)
		}
	}

	f.cache.Put(url, version, data)
	return data, nil
}
