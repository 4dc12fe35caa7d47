package wlsc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestWLSC() (*WLSC, *fakeServerRepo, *fakeAccountRepo, *fakePlatformClient, *fakeClock) {
	servers := newFakeServerRepo()
	accounts := newFakeAccountRepo()
	platform := newFakePlatformClient()
	clock := newFakeClock(time.Now())
	w := New(servers, accounts, platform, clock, Config{AccountFloor: 4})
	return w, servers, accounts, platform, clock
}

// Scenario 1 (spec.md §8): cold start. Spawning for a known license creates
// a worker and a matching heartbeat-book entry.
func TestWLSC_Spawn_ColdStart(t *testing.T) {
	w, servers, _, _, _ := newTestWLSC()
	l := License("lic-1")
	servers.put(ServerDescriptor{ID: "srv-1", Name: "Server One", License: l, KeyToken: "tok"})

	if w.Exists(l) {
		t.Fatal("expected no worker before spawn")
	}
	if err := w.Spawn(context.Background(), l); err != nil {
		t.Fatalf("unexpected spawn error: %v", err)
	}
	if !w.Exists(l) {
		t.Fatal("expected worker to exist after spawn")
	}
	if _, ok := w.heartbeat.Peek(l); !ok {
		t.Fatal("expected matching heartbeat-book entry after spawn (invariant 1)")
	}
}

// Scenario 2: unknown license. Spawn fails with ErrServerNotFound and
// leaves no trace in either map (invariant 1 holds at zero entries too).
func TestWLSC_Spawn_UnknownLicense(t *testing.T) {
	w, _, _, _, _ := newTestWLSC()
	l := License("missing")

	err := w.Spawn(context.Background(), l)
	if !errors.Is(err, ErrServerNotFound) {
		t.Fatalf("expected ErrServerNotFound, got %v", err)
	}
	if w.Exists(l) {
		t.Fatal("expected no worker registered for an unknown license")
	}
	if _, ok := w.heartbeat.Peek(l); ok {
		t.Fatal("expected no heartbeat-book entry for an unknown license")
	}
}

// Spawn is idempotent: a second spawn for an already-running worker
// coalesces into success rather than propagating ErrWorkerAlreadyExists
// (spec.md §7, §9 — the heartbeat path SHOULD swallow this).
func TestWLSC_Spawn_Idempotent(t *testing.T) {
	w, servers, _, _, _ := newTestWLSC()
	l := License("lic-1")
	servers.put(ServerDescriptor{ID: "srv-1", Name: "Server One", License: l, KeyToken: "tok"})

	if err := w.Spawn(context.Background(), l); err != nil {
		t.Fatalf("unexpected error on first spawn: %v", err)
	}
	first, _ := w.registry.Get(l)

	if err := w.Spawn(context.Background(), l); err != nil {
		t.Fatalf("expected second spawn to coalesce into success, got %v", err)
	}
	second, _ := w.registry.Get(l)
	if first != second {
		t.Fatal("expected the second spawn to leave the original worker in place")
	}
}

// Invalid server data (missing id/license) is ErrInvalidServerData, not
// ErrServerNotFound, and spawns nothing.
func TestWLSC_Spawn_InvalidServerData(t *testing.T) {
	w, servers, _, _, _ := newTestWLSC()
	l := License("lic-1")
	servers.put(ServerDescriptor{ID: "", Name: "Broken", License: l})

	err := w.Spawn(context.Background(), l)
	if !errors.Is(err, ErrInvalidServerData) {
		t.Fatalf("expected ErrInvalidServerData, got %v", err)
	}
	if w.Exists(l) {
		t.Fatal("expected no worker registered for invalid server data")
	}
}

// Scenario 3: flood rejection. Heartbeats for an existing worker arriving
// faster than MinHeartbeatInterval are rejected with
// ErrHeartbeatTooFrequent, not silently accepted.
func TestWLSC_Heartbeat_FloodRejection(t *testing.T) {
	w, servers, _, _, clock := newTestWLSC()
	l := License("lic-1")
	servers.put(ServerDescriptor{ID: "srv-1", Name: "Server One", License: l, KeyToken: "tok"})
	_ = w.Spawn(context.Background(), l)

	// Spawn stamps the heartbeat book with the spawn instant, so the first
	// touch is accepted only once MinHeartbeatInterval has passed.
	clock.Advance(MinHeartbeatInterval)
	if err := w.Heartbeat(l); err != nil {
		t.Fatalf("unexpected error on first heartbeat: %v", err)
	}
	clock.Advance(1 * time.Second)
	if err := w.Heartbeat(l); !errors.Is(err, ErrHeartbeatTooFrequent) {
		t.Fatalf("expected ErrHeartbeatTooFrequent, got %v", err)
	}
	clock.Advance(5 * time.Second)
	if err := w.Heartbeat(l); err != nil {
		t.Fatalf("expected heartbeat after interval to succeed, got %v", err)
	}
}

// Heartbeat for a license with no worker is ErrWorkerNotFound (spec.md §6:
// maps to 404 at the HTTP layer).
func TestWLSC_Heartbeat_UnknownWorker(t *testing.T) {
	w, _, _, _, _ := newTestWLSC()
	if err := w.Heartbeat(License("nope")); !errors.Is(err, ErrWorkerNotFound) {
		t.Fatalf("expected ErrWorkerNotFound, got %v", err)
	}
}

// ActiveCount tracks the registry's population, for the active-worker gauge.
func TestWLSC_ActiveCount(t *testing.T) {
	w, servers, _, _, _ := newTestWLSC()
	if w.ActiveCount() != 0 {
		t.Fatalf("expected 0 active workers before spawn, got %d", w.ActiveCount())
	}

	servers.put(ServerDescriptor{ID: "srv-1", Name: "Server One", License: License("lic-1"), KeyToken: "tok"})
	servers.put(ServerDescriptor{ID: "srv-2", Name: "Server Two", License: License("lic-2"), KeyToken: "tok"})
	_ = w.Spawn(context.Background(), License("lic-1"))
	_ = w.Spawn(context.Background(), License("lic-2"))

	if w.ActiveCount() != 2 {
		t.Fatalf("expected 2 active workers, got %d", w.ActiveCount())
	}
}
