package wlsc

import "context"

// AccountRepo is the read-only account lookup capability (C2). Concrete
// implementations (internal/repo) must filter out accounts lacking
// required fields before returning them (spec.md §3).
type AccountRepo interface {
	// Count returns a size hint for server_id's account population; used
	// only to pre-size the worker's maps (spec.md §4.3).
	Count(ctx context.Context, serverID string) (int, error)

	// FindAllByServer returns the current account set for server_id, keyed
	// by account id.
	FindAllByServer(ctx context.Context, serverID string) (map[string]Account, error)
}

// ServerRepo is the read-only server lookup capability (C2).
type ServerRepo interface {
	// FindByLicense returns the server descriptor for l, or
	// ErrServerNotFound if no row exists. A row present but missing
	// required fields is ErrInvalidServerData, not ErrServerNotFound.
	FindByLicense(ctx context.Context, l License) (ServerDescriptor, error)
}

// PlatformClient is the upstream game-platform capability (C1).
type PlatformClient interface {
	// InitializePlayer validates entitlement and creates a session ticket
	// for the given account on behalf of the server identified by l.
	InitializePlayer(ctx context.Context, l License, acc Account, keyTokenEncoded string) error

	// HeartbeatPlayer re-validates entitlement for an already-initialized
	// account.
	HeartbeatPlayer(ctx context.Context, l License, acc Account) error
}
