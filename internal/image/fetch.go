package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"assistbot/internal/domain"
)

const (
	DefaultDownloadTimeout = 10 * time.Second
	DefaultMaxImageBytes   = 5 << 20
)

// Fetcher downloads image bytes from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads over HTTP with a bounded total timeout and a size cap.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &HTTPFetcher{client: newDownloadClient(timeout), maxBytes: maxBytes}
}

// newDownloadClient returns a client whose Timeout covers the whole exchange,
// body read included.
func newDownloadClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.Fail("download", domain.ReasonRejected, fmt.Errorf("new request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.Fail("download", netReason(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.Fail("download", domain.ReasonBadStatus, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, domain.Fail("download", netReason(err), fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, domain.Fail("download", domain.ReasonTooLarge, fmt.Errorf("image exceeds %d bytes", f.maxBytes))
	}
	return data, nil
}

func netReason(err error) domain.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ReasonTimeout
	}
	return domain.ReasonUnavailable
}
