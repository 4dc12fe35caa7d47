package platform

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig bounds exponential-backoff retry of idempotent upstream
// calls. Ticket creation is never retried (spec.md §4's C1 design: a failed
// ticket call is a per-account fault handled by set-mutation in the
// fan-out, not a transparent retry); only entitlement re-validation calls
// go through Retry.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// backoffDelay computes an exponential delay for the given attempt (0-based)
// clamped to maxDelay, with full jitter.
func backoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base * time.Duration(1<<uint(attempt))
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAfterDuration parses a Retry-After header, either as integer seconds
// or an HTTP-date, returning zero if absent or unparseable.
func retryAfterDuration(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping an exponentially
// backed-off, jittered delay between attempts. fn reports whether its
// result is retryable via the returned bool; Retry stops early on a
// non-retryable error or ctx cancellation.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (retryable bool, err error)) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		retryable, err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable || attempt == cfg.MaxAttempts-1 {
			return lastErr
		}
		if sleepErr := sleepWithContext(ctx, backoffDelay(attempt, cfg.BaseDelay, cfg.MaxDelay)); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}
