package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxFetchBytes caps how much of a remote body is read. Source images
// larger than this are rejected rather than buffered into memory.
const MaxFetchBytes = 64 << 20 // 64 MiB

// DefaultTimeout bounds a single fetch attempt.
const DefaultTimeout = 30 * time.Second

// Fetch downloads the body at url, retrying transient failures (network
// errors and 5xx responses) with exponential backoff. Non-success 4xx
// responses fail immediately. The download blocks until the full transfer
// completes or ctx is cancelled.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	return FetchWith(ctx, client, url, 3, time.Second)
}

// FetchWith is Fetch with explicit retry parameters.
func FetchWith(ctx context.Context, client *http.Client, url string, attempts int, delay time.Duration) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	var body []byte
	err := Retry(ctx, attempts, delay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := client.Do(req)
		if err != nil {
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return &RetryableError{Err: fmt.Errorf("server error: %s", resp.Status)}
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
		if err != nil {
			return &RetryableError{Err: err}
		}
		if len(body) > MaxFetchBytes {
			return fmt.Errorf("response exceeds %d byte limit", MaxFetchBytes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
