// Package wlsc implements the Worker Lifecycle and Scheduling Core: the
// registry of per-server workers, heartbeat book-keeping, and the periodic
// reconciliation/fan-out pipeline that keeps a fleet of stock accounts
// validated and ticketed against an upstream game-platform API.
package wlsc

import "time"

// License is an opaque per-server key identifying a server in the worker
// namespace.
type License string

// ServerDescriptor is read once at spawn and immutable for a worker's
// lifetime.
type ServerDescriptor struct {
	ID       string
	Name     string
	License  License
	KeyToken string
}

// Account is a stock account: a bot identity a worker keeps validated and
// heartbeating upstream on behalf of its server.
type Account struct {
	ID            string
	Owner         string
	ExpireOn      *time.Time
	EntitlementID string
	AccountIndex  int
	MachineHash   string
}

// Expired reports whether the account is past its expiry at the given
// instant. An absent ExpireOn never expires.
func (a Account) Expired(now time.Time) bool {
	return a.ExpireOn != nil && now.After(*a.ExpireOn)
}

// Valid reports whether the account carries the fields a worker requires
// before it will ever enter assigned or pending. Repositories are expected
// to filter these out themselves (spec.md §3, the SQL WHERE clause on
// account_index IS NOT NULL among others); this is the worker's defensive
// second check (invariant 4) for the fields a plain Go int cannot represent
// "absent" for.
func (a Account) Valid() bool {
	return a.EntitlementID != "" && a.MachineHash != ""
}
