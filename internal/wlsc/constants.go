package wlsc

import "time"

// Tick cadence, spec.md §4.3. The four constants are chosen so that every
// cadence divides TickLCM; update_counter cycles modulo TickLCM.
const (
	// TickPeriod is the sleep between worker ticks.
	TickPeriod = 60 * time.Second

	// HeartbeatTimeout is how long a worker tolerates a stale heartbeat
	// before self-terminating.
	HeartbeatTimeout = 30 * time.Second

	// MinHeartbeatInterval is the minimum spacing HeartbeatBook.Touch
	// enforces between accepted heartbeats for the same license.
	MinHeartbeatInterval = 5 * time.Second

	// UpdatePlayersTick: reconcile against storage every N ticks.
	UpdatePlayersTick uint8 = 2

	// UpdateExpiredPlayersTick: drain the expired set every N ticks.
	UpdateExpiredPlayersTick uint8 = 4

	// ShrinkHashesTick: shrink the pending/assigned maps every N ticks.
	ShrinkHashesTick uint8 = 6

	// TickLCM is lcm(2, lcm(4, 6)) = 12. update_counter cycles modulo this.
	TickLCM uint8 = 12

	// InitialAccountFloor is the size hint newWorker falls back to for the
	// assigned/pending maps when the floor it is given (the larger of
	// Config.AccountFloor and AccountRepo.Count) is not positive; a hint,
	// not a correctness requirement (spec.md §4.3).
	InitialAccountFloor = 20
)

// due reports whether a step keyed to the given cadence fires this tick.
// The source expresses this with update_counter & tick; this uses modular
// divisibility instead, so a step fires on every counter value that is a
// multiple of its cadence (for 2: 0, 2, 4, ...). The two forms do not pick
// the same counter values (0 & 2 and 1 & 2 are both zero) (see DESIGN.md).
func due(counter uint8, tick uint8) bool {
	return counter%tick == 0
}
