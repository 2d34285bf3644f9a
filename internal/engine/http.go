package engine

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// NewHTTPClient creates the shared outbound client used by transcript sources.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// ReadBody reads at most limit bytes of resp, handling gzip if the server sent it.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, limit))
}

// Connect calls dial with exponential backoff until it succeeds, ctx ends,
// or maxElapsed passes. Used for startup connections to stores and caches.
func Connect[T any](ctx context.Context, name string, maxElapsed time.Duration, dial func(context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := dial(ctx)
		if err != nil {
			slog.Warn("connect failed", slog.String("target", name), slog.Int("attempt", attempt), slog.Any("error", err))
			var zero T
			return zero, err
		}
		return v, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	v, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(maxElapsed))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("connect %s: %w", name, err)
	}
	return v, nil
}
