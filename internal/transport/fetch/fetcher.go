// Package fetch downloads tile images over HTTP with bounded size and
// transient-failure retries.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/stormlens/tileindex/internal/domain"
	"github.com/stormlens/tileindex/internal/metrics"
)

// Fetcher downloads tile images for embedding.
type Fetcher struct {
	client     *http.Client
	maxRetries int
	maxBytes   int64
	logger     *zap.Logger
}

// Config holds the fetcher settings.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	MaxBytes   int64
	Logger     *zap.Logger
}

// New creates a tile image fetcher.
func New(cfg *Config) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		maxBytes:   cfg.MaxBytes,
		logger:     cfg.Logger,
	}
}

// Fetch downloads the image at url. Transient upstream failures (transport
// errors and 500/502/503/504) are retried with exponential backoff; any other
// non-2xx status fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var data []byte

	start := time.Now()
	b := retry.NewExponential(500 * time.Millisecond)

	err := retry.Do(ctx, retry.WithMaxRetries(uint64(f.maxRetries), b), func(ctx context.Context) error {
		var attemptErr error
		data, attemptErr = f.fetchOnce(ctx, url)
		return attemptErr
	})

	duration := time.Since(start)

	if err != nil {
		metrics.TileFetchDuration.WithLabelValues("error").Observe(duration.Seconds())
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	metrics.TileFetchDuration.WithLabelValues("success").Observe(duration.Seconds())
	metrics.TileFetchBytes.Observe(float64(len(data)))
	return data, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", domain.ErrFetch)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("tile download failed, may retry", zap.String("url", url), zap.Error(err))
		return nil, retry.RetryableError(fmt.Errorf("download failed: %w", domain.ErrFetch))
	}
	defer resp.Body.Close()

	if isTransient(resp.StatusCode) {
		f.logger.Debug("tile download got transient status, may retry",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, retry.RetryableError(
			fmt.Errorf("upstream returned %d: %w", resp.StatusCode, domain.ErrFetch))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstream returned %d: %w", resp.StatusCode, domain.ErrFetch)
	}

	// Read one byte past the cap to distinguish "exactly at limit" from "over".
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("read body: %w", domain.ErrFetch))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes: %w", f.maxBytes, domain.ErrFetch)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image body: %w", domain.ErrFetch)
	}
	return data, nil
}

// isTransient reports whether an upstream status is worth retrying.
func isTransient(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
