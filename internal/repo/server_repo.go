// Package repo implements wlsc's ServerRepo and AccountRepo collaborator
// interfaces against internal/store's SQLite-backed Store (spec.md §4 C2).
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cfxstock/botfleet/internal/store"
	"github.com/cfxstock/botfleet/internal/wlsc"
)

// ServerRepo implements wlsc.ServerRepo against a Store's reader
// connection.
type ServerRepo struct {
	st *store.Store
}

// NewServerRepo constructs a ServerRepo over st.
func NewServerRepo(st *store.Store) *ServerRepo {
	return &ServerRepo{st: st}
}

// FindByLicense returns the server descriptor for l, wlsc.ErrServerNotFound
// if no row exists, or wlsc.ErrInvalidServerData if a row exists but is
// missing required fields.
func (r *ServerRepo) FindByLicense(ctx context.Context, l wlsc.License) (wlsc.ServerDescriptor, error) {
	row := r.st.Reader().QueryRowContext(ctx,
		`SELECT id, name, cfx_license, sv_license_key_token FROM servers WHERE cfx_license = ?`,
		string(l),
	)

	var d wlsc.ServerDescriptor
	var id, name, license, keyToken string
	if err := row.Scan(&id, &name, &license, &keyToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wlsc.ServerDescriptor{}, wlsc.ErrServerNotFound
		}
		return wlsc.ServerDescriptor{}, fmt.Errorf("repo: find server by license: %w", err)
	}

	if id == "" || license == "" {
		return wlsc.ServerDescriptor{}, wlsc.ErrInvalidServerData
	}

	d.ID = id
	d.Name = name
	d.License = wlsc.License(license)
	d.KeyToken = keyToken
	return d, nil
}
