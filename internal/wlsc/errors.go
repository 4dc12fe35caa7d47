package wlsc

import "errors"

// Error kinds, by behavior rather than by type name (spec.md §7). Each is a
// sentinel comparable with errors.Is; internal/httpapi is the single place
// that maps these to HTTP status.
var (
	// ErrServerNotFound means no row exists for the license.
	ErrServerNotFound = errors.New("wlsc: server not found")

	// ErrInvalidServerData means a server row exists but is missing
	// required columns. This is operator-visible, not a client error.
	ErrInvalidServerData = errors.New("wlsc: server row missing required fields")

	// ErrWorkerNotFound means a heartbeat arrived for a license without a
	// running worker.
	ErrWorkerNotFound = errors.New("wlsc: worker not found")

	// ErrWorkerAlreadyExists means spawn raced with another spawn (or the
	// heartbeat book already held an entry with no matching worker, which
	// would itself be an invariant violation).
	ErrWorkerAlreadyExists = errors.New("wlsc: worker already exists")

	// ErrHeartbeatTooFrequent means the rate limit rejected the touch.
	ErrHeartbeatTooFrequent = errors.New("wlsc: heartbeat too frequent")

	// ErrStorageFailure is fatal for a worker: it terminates cleanly.
	ErrStorageFailure = errors.New("wlsc: storage failure")
)
