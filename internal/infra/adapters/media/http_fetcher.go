package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"manuscript-pipeline/internal/domain/ports/adapter"
)

var _ adapter.MediaFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher downloads media with a per-request timeout and a size cap.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*adapter.FetchedMedia, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch media: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Failed to fetch media: %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if f.maxBytes > 0 {
		r = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch media: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("Failed to fetch media: larger than %d bytes", f.maxBytes)
	}
	return &adapter.FetchedMedia{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}
