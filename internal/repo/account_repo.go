package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cfxstock/botfleet/internal/store"
	"github.com/cfxstock/botfleet/internal/wlsc"
)

// AccountRepo implements wlsc.AccountRepo against a Store's reader
// connection.
type AccountRepo struct {
	st *store.Store
}

// NewAccountRepo constructs an AccountRepo over st.
func NewAccountRepo(st *store.Store) *AccountRepo {
	return &AccountRepo{st: st}
}

// Count returns the number of accounts currently assigned to serverID,
// used only as a size hint (spec.md §4.3).
func (r *AccountRepo) Count(ctx context.Context, serverID string) (int, error) {
	var n int
	err := r.st.Reader().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_accounts WHERE assigned_server = ?`,
		serverID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repo: count accounts: %w", err)
	}
	return n, nil
}

// FindAllByServer returns every account currently assigned to serverID that
// carries the required fields (entitlement_id, machine_hash non-null and
// non-empty) — the SQL WHERE clause is the primary filter; wlsc.Account's
// own Valid() is the defensive second check (spec.md §3, §6).
func (r *AccountRepo) FindAllByServer(ctx context.Context, serverID string) (map[string]wlsc.Account, error) {
	rows, err := r.st.Reader().QueryContext(ctx,
		`SELECT id, owner, expire_on, entitlement_id, account_index, machine_hash
		 FROM stock_accounts
		 WHERE assigned_server = ?
		   AND entitlement_id IS NOT NULL AND entitlement_id != ''
		   AND account_index IS NOT NULL
		   AND machine_hash IS NOT NULL AND machine_hash != ''`,
		serverID,
	)
	if err != nil {
		return nil, fmt.Errorf("repo: find accounts by server: %w", err)
	}
	defer rows.Close()

	out := make(map[string]wlsc.Account)
	for rows.Next() {
		var (
			id, owner, entitlementID, machineHash string
			expireOn                              sql.NullTime
			accountIndex                           int
		)
		if err := rows.Scan(&id, &owner, &expireOn, &entitlementID, &accountIndex, &machineHash); err != nil {
			return nil, fmt.Errorf("repo: scan account row: %w", err)
		}

		acc := wlsc.Account{
			ID:            id,
			Owner:         owner,
			EntitlementID: entitlementID,
			AccountIndex:  accountIndex,
			MachineHash:   machineHash,
		}
		if expireOn.Valid {
			t := expireOn.Time
			acc.ExpireOn = &t
		}
		out[id] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate account rows: %w", err)
	}
	return out, nil
}
