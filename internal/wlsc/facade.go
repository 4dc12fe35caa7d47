package wlsc

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Config is the tunable surface of a WLSC instance; everything else (tick
// cadence, timeouts) is the package's fixed constants.
type Config struct {
	// AccountFloor pre-sizes a new worker's maps; see InitialAccountFloor.
	AccountFloor int
}

// WLSC is the facade spec.md §4.2 describes: the single entry point the
// HTTP layer calls through. It owns the registry and heartbeat book and
// is safe for concurrent use by many goroutines (one per inbound request).
type WLSC struct {
	registry  *WorkerRegistry
	heartbeat *HeartbeatBook
	servers   ServerRepo
	accounts  AccountRepo
	platform  PlatformClient
	clock     Clock
	cfg       Config
}

// New constructs a WLSC instance. clock is RealClock() in production and a
// fake in tests.
func New(servers ServerRepo, accounts AccountRepo, platform PlatformClient, clock Clock, cfg Config) *WLSC {
	if clock == nil {
		clock = RealClock()
	}
	return &WLSC{
		registry:  NewWorkerRegistry(),
		heartbeat: NewHeartbeatBook(MinHeartbeatInterval),
		servers:   servers,
		accounts:  accounts,
		platform:  platform,
		clock:     clock,
		cfg:       cfg,
	}
}

// Exists reports whether a worker is currently registered for l.
func (s *WLSC) Exists(l License) bool {
	return s.registry.Contains(l)
}

// ActiveCount returns the number of currently registered workers, for the
// active-worker gauge (internal/metrics).
func (s *WLSC) ActiveCount() int {
	return s.registry.Len()
}

// Heartbeat records a liveness touch for l (spec.md §4.2). It returns
// ErrWorkerNotFound if no worker is registered and ErrHeartbeatTooFrequent
// if the touch arrived before MinHeartbeatInterval elapsed since the last
// one.
func (s *WLSC) Heartbeat(l License) error {
	return s.heartbeat.Touch(l, s.clock.Now())
}

// Spawn looks up l, and if no worker is registered, creates and starts one
// (spec.md §4.2). The sequence is:
//
//	(i)   look up the server descriptor by license
//	(ii)  construct the worker (not yet visible to anything)
//	(iii) insert into the heartbeat book
//	(iv)  insert into the registry
//
// If (iv) fails — another spawn won the race between (i) and (iv) — step
// (iii)'s heartbeat-book insert is rolled back so invariant 1 (L is in the
// registry iff L is in the heartbeat book) holds again once Spawn returns.
// The two inserts take separate locks, so between them L is briefly in the
// heartbeat book but not yet in the registry. On the heartbeat path (spec.md
// §7, §9) ErrWorkerAlreadyExists is not an error to the caller: Spawn
// coalesces it into success, since by the time Spawn returns a worker for
// l is guaranteed to exist either way.
func (s *WLSC) Spawn(ctx context.Context, l License) error {
	if s.registry.Contains(l) {
		return nil
	}

	server, err := s.servers.FindByLicense(ctx, l)
	if err != nil {
		return err
	}
	if server.License == "" || server.ID == "" {
		return ErrInvalidServerData
	}

	floor := s.cfg.AccountFloor
	if count, err := s.accounts.Count(ctx, server.ID); err == nil && count > floor {
		floor = count
	}

	w := newWorker(server, WorkerDeps{
		Registry:  s.registry,
		Heartbeat: s.heartbeat,
		Accounts:  s.accounts,
		Platform:  s.platform,
		Clock:     s.clock,
	}, floor)

	now := s.clock.Now()
	if err := s.heartbeat.Insert(l, now); err != nil {
		if errors.Is(err, ErrWorkerAlreadyExists) {
			return nil
		}
		return err
	}

	if err := s.registry.Insert(l, w); err != nil {
		// Roll back the heartbeat-book insert: the registry insert lost
		// the race, so this goroutine must not leave a dangling entry.
		s.heartbeat.Remove(l)
		if errors.Is(err, ErrWorkerAlreadyExists) {
			return nil
		}
		return err
	}

	log.Info().
		Str("server", server.Name).
		Str("license", string(l)).
		Msg("wlsc: worker spawned")

	go w.run(context.Background())
	return nil
}
