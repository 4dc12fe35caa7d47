package wlsc

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WorkerState is the worker's lifecycle state (spec.md §4.3.5). Running is
// the only non-terminal state; every other state is terminal and, on
// reaching it, the worker removes its own registry and heartbeat-book
// entries before returning.
type WorkerState int

const (
	// Running is the initial, steady-state value.
	Running WorkerState = iota
	// Timeout means the worker's heartbeat went stale past HeartbeatTimeout.
	Timeout
	// StorageFailure means a reconciliation read failed.
	StorageFailure
	// AllExpired means every account the worker ever held has expired.
	AllExpired
)

func (s WorkerState) String() string {
	switch s {
	case Running:
		return "running"
	case Timeout:
		return "timeout"
	case StorageFailure:
		return "storage_failure"
	case AllExpired:
		return "all_expired"
	default:
		return "unknown"
	}
}

// Worker is a single server's lifecycle task: one goroutine looping over
// ticks, reconciling its account set against storage and fanning out
// upstream calls to keep each account valid. A worker is never externally
// cancelable (spec.md §5) — it is self-terminating only, via its own state
// machine; Deps.Clock lets tests drive it deterministically.
type Worker struct {
	server ServerDescriptor

	registry  *WorkerRegistry
	heartbeat *HeartbeatBook
	accounts  AccountRepo
	platform  PlatformClient
	clock     Clock

	mu       sync.Mutex
	state    WorkerState
	assigned map[string]Account
	pending  map[string]Account
	expired  map[string]struct{}

	updateCounter uint8
	startupDone   bool

	done chan struct{}
}

// WorkerDeps bundles a worker's collaborators, so spawn call sites aren't
// long parameter lists.
type WorkerDeps struct {
	Registry  *WorkerRegistry
	Heartbeat *HeartbeatBook
	Accounts  AccountRepo
	Platform  PlatformClient
	Clock     Clock
}

// newWorker constructs a worker for server, pre-sizing its maps from
// accounts.Count (a hint only; spec.md §4.3). It does not register itself —
// the caller (WLSC.Spawn) owns the atomic insert-into-both-maps sequence.
func newWorker(server ServerDescriptor, deps WorkerDeps, accountFloor int) *Worker {
	if accountFloor <= 0 {
		accountFloor = InitialAccountFloor
	}
	return &Worker{
		server:    server,
		registry:  deps.Registry,
		heartbeat: deps.Heartbeat,
		accounts:  deps.Accounts,
		platform:  deps.Platform,
		clock:     deps.Clock,
		state:     Running,
		assigned:  make(map[string]Account, accountFloor),
		pending:   make(map[string]Account, accountFloor),
		expired:   make(map[string]struct{}),
		done:      make(chan struct{}),
	}
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Counts returns the current assigned/pending population, for metrics and
// bookkeeping logs.
func (w *Worker) Counts() (assigned, pending int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.assigned), len(w.pending)
}

// Done returns a channel closed once the worker reaches a terminal state
// and has finished its own cleanup.
func (w *Worker) Done() <-chan struct{} { return w.done }

// run is the worker's tick loop (spec.md §4.3): sleep, check the heartbeat
// or exit, reconcile if due, fan out, bookkeep. It runs until a terminal
// state is reached, then removes its own registry/heartbeat-book entries
// and closes w.done.
func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-w.clock.After(TickPeriod):
		case <-ctx.Done():
			return
		}

		tickID := uuid.NewString()

		if !w.checkHeartbeat() {
			w.terminate(Timeout, tickID)
			return
		}

		if due(w.updateCounter, UpdatePlayersTick) {
			start := w.clock.Now()
			if err := w.reconcile(ctx); err != nil {
				log.Error().
					Str("server", w.server.Name).
					Str("tick_id", tickID).
					Err(err).
					Msg("wlsc: reconciliation failed, terminating worker")
				w.terminate(StorageFailure, tickID)
				return
			}
			log.Debug().
				Str("server", w.server.Name).
				Str("tick_id", tickID).
				Dur("elapsed", w.clock.Now().Sub(start)).
				Msg("wlsc: reconciled")

			// AllExpired is only evaluated on the same cadence that expires
			// accounts into w.expired (spec.md §4.3.2: "if update_expired and
			// |expired| == |db_players|"); checking it on an off-cadence tick
			// could fire on a stale w.expired left over from an earlier tick.
			if due(w.updateCounter, UpdateExpiredPlayersTick) && w.allExpired() {
				w.terminate(AllExpired, tickID)
				return
			}
		}

		w.fanOut(ctx, tickID)
		w.bookkeep(tickID)
	}
}

// checkHeartbeat enforces spec.md §4.3.1: absence of a heartbeat-book entry
// is a fatal invariant violation (treated as a timeout, since the only way
// to recover a missing entry is the same cleanup a timeout performs); a
// heartbeat older than HeartbeatTimeout is a normal, expected termination.
func (w *Worker) checkHeartbeat() bool {
	last, ok := w.heartbeat.Peek(w.server.License)
	if !ok {
		log.Warn().
			Str("server", w.server.Name).
			Msg("wlsc: heartbeat-book entry missing, invariant violated")
		return false
	}
	return w.clock.Now().Sub(last) <= HeartbeatTimeout
}

// reconcile fetches the current account set from storage and folds it into
// assigned/pending/expired (spec.md §4.3.2).
func (w *Worker) reconcile(ctx context.Context) error {
	dbAccounts, err := w.accounts.FindAllByServer(ctx, w.server.ID)
	if err != nil {
		return err
	}

	updateExpired := due(w.updateCounter, UpdateExpiredPlayersTick)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	var newThisTick []string

	for id, acc := range dbAccounts {
		if !acc.Valid() {
			continue
		}
		if _, isExpired := w.expired[id]; isExpired {
			continue
		}
		if updateExpired && acc.Expired(now) {
			w.expired[id] = struct{}{}
			delete(w.assigned, id)
			delete(w.pending, id)
			continue
		}
		if _, wasPending := w.pending[id]; wasPending {
			// Surviving one full reconciliation cycle in pending is what
			// promotes an account to assigned — not a single successful
			// InitializePlayer call (spec.md §9: intentional, preserved
			// from the original; a 2-cycle minimum before assignment).
			w.assigned[id] = acc
			delete(w.pending, id)
			continue
		}
		if _, isAssigned := w.assigned[id]; !isAssigned {
			w.pending[id] = acc
			newThisTick = append(newThisTick, id)
		} else {
			// Refresh the stored copy (expire_on etc. may have moved).
			w.assigned[id] = acc
		}
	}

	// Retain only ids still present in storage: an account removed from
	// storage outright (not merely expired) drops out of every set.
	for id := range w.assigned {
		if _, stillThere := dbAccounts[id]; !stillThere {
			delete(w.assigned, id)
		}
	}
	for id := range w.pending {
		if _, stillThere := dbAccounts[id]; !stillThere {
			delete(w.pending, id)
		}
	}

	_ = newThisTick // observability only; the pending entries above are authoritative
	return nil
}

// allExpired reports the AllExpired transition condition: the expired set
// covers every account storage currently reports for this server.
func (w *Worker) allExpired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.expired) > 0 && len(w.assigned) == 0 && len(w.pending) == 0
}

// fanOut runs the two concurrent upstream streams (spec.md §4.3.3): newly
// pending accounts get InitializePlayer, already-assigned accounts get
// HeartbeatPlayer. Both streams use unbounded per-account concurrency and
// the tick waits for both to finish; a per-account failure is logged and
// does not affect any other account.
func (w *Worker) fanOut(ctx context.Context, tickID string) {
	w.mu.Lock()
	pendingSnapshot := make([]Account, 0, len(w.pending))
	for _, acc := range w.pending {
		pendingSnapshot = append(pendingSnapshot, acc)
	}
	assignedSnapshot := make([]Account, 0, len(w.assigned))
	for _, acc := range w.assigned {
		assignedSnapshot = append(assignedSnapshot, acc)
	}
	w.mu.Unlock()

	var wg sync.WaitGroup

	for _, acc := range pendingSnapshot {
		wg.Add(1)
		go func(acc Account) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("server", w.server.Name).
						Str("tick_id", tickID).
						Str("account_id", acc.ID).
						Interface("panic", r).
						Msg("wlsc: initialize player panicked, continuing worker")
				}
			}()
			err := w.platform.InitializePlayer(ctx, w.server.License, acc, w.server.KeyToken)
			if err != nil {
				log.Warn().
					Str("server", w.server.Name).
					Str("tick_id", tickID).
					Str("account_id", acc.ID).
					Err(err).
					Msg("wlsc: initialize player failed")
				w.mu.Lock()
				delete(w.pending, acc.ID)
				w.mu.Unlock()
				return
			}
			// Left in pending; reconcile promotes it to assigned on the
			// reconciliation after this one simply by finding it still in
			// pending, not because this call succeeded (spec.md §4.3.3
			// note, §9: promotion needs two cycles minimum and is
			// intentional, not a bug).
		}(acc)
	}

	for _, acc := range assignedSnapshot {
		wg.Add(1)
		go func(acc Account) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("server", w.server.Name).
						Str("tick_id", tickID).
						Str("account_id", acc.ID).
						Interface("panic", r).
						Msg("wlsc: heartbeat player panicked, continuing worker")
				}
			}()
			if err := w.platform.HeartbeatPlayer(ctx, w.server.License, acc); err != nil {
				log.Info().
					Str("server", w.server.Name).
					Str("tick_id", tickID).
					Str("account_id", acc.ID).
					Err(err).
					Msg("wlsc: heartbeat player failed")
			}
		}(acc)
	}

	wg.Wait()
}

// bookkeep logs the tick's summary and, on the cadence spec.md §4.3.4
// describes, shrinks the assigned/pending maps and advances update_counter.
func (w *Worker) bookkeep(tickID string) {
	w.mu.Lock()
	assignedN, pendingN := len(w.assigned), len(w.pending)

	shrink := !w.startupDone || due(w.updateCounter, ShrinkHashesTick)
	if shrink {
		w.assigned = shrinkMap(w.assigned)
		w.pending = shrinkMap(w.pending)
		w.startupDone = true
	}
	w.updateCounter = (w.updateCounter + 1) % TickLCM
	w.mu.Unlock()

	log.Info().
		Str("server", w.server.Name).
		Str("tick_id", tickID).
		Int("players", assignedN+pendingN).
		Msg("wlsc: tick complete")
}

// shrinkMap returns a fresh map with the same contents, reclaiming bucket
// capacity accumulated by churn (spec.md §4.3.4's "shrink hashes" step; Go
// maps never shrink their own bucket array on delete).
func shrinkMap(m map[string]Account) map[string]Account {
	fresh := make(map[string]Account, len(m))
	for k, v := range m {
		fresh[k] = v
	}
	return fresh
}

// terminate moves the worker to a terminal state and performs the cleanup
// every terminal transition requires (spec.md §4.3.5): remove the registry
// entry, then the heartbeat-book entry, in that order, before returning.
func (w *Worker) terminate(state WorkerState, tickID string) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()

	w.registry.Remove(w.server.License)
	w.heartbeat.Remove(w.server.License)

	log.Info().
		Str("server", w.server.Name).
		Str("tick_id", tickID).
		Str("state", state.String()).
		Msg("wlsc: worker terminated")
}
