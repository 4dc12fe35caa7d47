package wlsc

import (
	"errors"
	"testing"
	"time"
)

func TestHeartbeatBook_TouchRequiresEntry(t *testing.T) {
	h := NewHeartbeatBook(5 * time.Second)
	l := License("lic-1")
	now := time.Now()

	if err := h.Touch(l, now); !errors.Is(err, ErrWorkerNotFound) {
		t.Fatalf("expected ErrWorkerNotFound touching an absent license, got %v", err)
	}
}

func TestHeartbeatBook_RateLimits(t *testing.T) {
	h := NewHeartbeatBook(5 * time.Second)
	l := License("lic-1")
	now := time.Now()

	if err := h.Insert(l, now); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}

	if err := h.Touch(l, now.Add(1*time.Second)); !errors.Is(err, ErrHeartbeatTooFrequent) {
		t.Fatalf("expected ErrHeartbeatTooFrequent, got %v", err)
	}

	if err := h.Touch(l, now.Add(5*time.Second)); err != nil {
		t.Fatalf("expected touch at exactly the interval to succeed, got %v", err)
	}

	last, ok := h.Peek(l)
	if !ok || !last.Equal(now.Add(5*time.Second)) {
		t.Fatalf("expected last heartbeat to be updated, got %v ok=%v", last, ok)
	}
}

func TestHeartbeatBook_InsertDuplicateFails(t *testing.T) {
	h := NewHeartbeatBook(5 * time.Second)
	l := License("lic-1")
	now := time.Now()

	if err := h.Insert(l, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Insert(l, now); !errors.Is(err, ErrWorkerAlreadyExists) {
		t.Fatalf("expected ErrWorkerAlreadyExists, got %v", err)
	}
}

func TestHeartbeatBook_RemoveThenTouchMisses(t *testing.T) {
	h := NewHeartbeatBook(5 * time.Second)
	l := License("lic-1")
	now := time.Now()

	_ = h.Insert(l, now)
	h.Remove(l)

	if err := h.Touch(l, now.Add(time.Minute)); !errors.Is(err, ErrWorkerNotFound) {
		t.Fatalf("expected ErrWorkerNotFound after remove, got %v", err)
	}
}
