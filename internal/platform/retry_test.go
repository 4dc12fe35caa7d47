package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestRetry_SucceedsWithoutRetryingOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(ctx context.Context) (bool, error) {
		calls++
		return false, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected non-retryable error to stop after 1 call, got %d", calls)
	}
}

func TestRetry_RetriesUpToMaxAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, func(ctx context.Context) (bool, error) {
		calls++
		return true, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom after exhausting attempts, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestIsRetryableStatus(t *testing.T) {
	cases := map[int]bool{
		200: false,
		400: false,
		404: false,
		429: true,
		502: true,
		503: true,
		504: true,
	}
	for status, want := range cases {
		if got := isRetryableStatus(status); got != want {
			t.Errorf("status %d: got %v, want %v", status, got, want)
		}
	}
}

func TestRetryAfterDuration_Seconds(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"5"}}}
	d := retryAfterDuration(resp)
	if d != 5*time.Second {
		t.Fatalf("expected 5s, got %v", d)
	}
}

func TestRetryAfterDuration_HTTPDate(t *testing.T) {
	future := time.Now().Add(10 * time.Second).UTC()
	resp := &http.Response{Header: http.Header{"Retry-After": []string{future.Format(http.TimeFormat)}}}
	d := retryAfterDuration(resp)
	if d <= 0 || d > 10*time.Second {
		t.Fatalf("expected a positive duration near 10s, got %v", d)
	}
}

func TestRetryAfterDuration_Absent(t *testing.T) {
	resp := httptest.NewRecorder().Result()
	if d := retryAfterDuration(resp); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}
