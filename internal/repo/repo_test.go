package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cfxstock/botfleet/internal/store"
	"github.com/cfxstock/botfleet/internal/wlsc"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "botfleet.db"))
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestServerRepo_FindByLicense(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Writer().Exec(
		`INSERT INTO servers (id, name, cfx_license, sv_license_key_token) VALUES (?, ?, ?, ?)`,
		"srv-1", "Server One", "lic-1", "tok-1",
	)
	if err != nil {
		t.Fatalf("unexpected error seeding server: %v", err)
	}

	repo := NewServerRepo(st)
	d, err := repo.FindByLicense(context.Background(), wlsc.License("lic-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "srv-1" || d.Name != "Server One" || d.KeyToken != "tok-1" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
}

func TestServerRepo_FindByLicense_NotFound(t *testing.T) {
	st := newTestStore(t)
	repo := NewServerRepo(st)

	_, err := repo.FindByLicense(context.Background(), wlsc.License("missing"))
	if !errors.Is(err, wlsc.ErrServerNotFound) {
		t.Fatalf("expected ErrServerNotFound, got %v", err)
	}
}

func TestAccountRepo_FindAllByServer_FiltersIncompleteRows(t *testing.T) {
	st := newTestStore(t)
	w := st.Writer()

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := w.Exec(query, args...); err != nil {
			t.Fatalf("unexpected error seeding row: %v", err)
		}
	}

	mustExec(`INSERT INTO stock_accounts (id, owner, assigned_server, entitlement_id, account_index, machine_hash)
	          VALUES (?, ?, ?, ?, ?, ?)`,
		"acc-complete", "owner-a", "srv-1", "ent-1", 0, "hash-1")
	mustExec(`INSERT INTO stock_accounts (id, owner, assigned_server, entitlement_id, account_index, machine_hash)
	          VALUES (?, ?, ?, ?, ?, ?)`,
		"acc-missing-hash", "owner-b", "srv-1", "ent-2", 1, "")
	mustExec(`INSERT INTO stock_accounts (id, owner, assigned_server)
	          VALUES (?, ?, ?)`,
		"acc-null-fields", "owner-c", "srv-1")
	mustExec(`INSERT INTO stock_accounts (id, owner, assigned_server, entitlement_id, account_index, machine_hash)
	          VALUES (?, ?, ?, ?, ?, ?)`,
		"acc-other-server", "owner-d", "srv-2", "ent-3", 0, "hash-3")

	repo := NewAccountRepo(st)
	accounts, err := repo.FindAllByServer(context.Background(), "srv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(accounts) != 1 {
		t.Fatalf("expected exactly 1 complete account, got %d: %+v", len(accounts), accounts)
	}
	acc, ok := accounts["acc-complete"]
	if !ok {
		t.Fatal("expected acc-complete to be present")
	}
	if acc.AccountIndex != 0 || acc.EntitlementID != "ent-1" || acc.MachineHash != "hash-1" {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if !acc.Valid() {
		t.Fatal("expected the returned account to also pass wlsc.Account.Valid")
	}
}

func TestAccountRepo_FindAllByServer_CarriesExpireOn(t *testing.T) {
	st := newTestStore(t)
	expire := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	_, err := st.Writer().Exec(
		`INSERT INTO stock_accounts (id, owner, assigned_server, expire_on, entitlement_id, account_index, machine_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"acc-1", "owner-a", "srv-1", expire, "ent-1", 0, "hash-1",
	)
	if err != nil {
		t.Fatalf("unexpected error seeding row: %v", err)
	}

	repo := NewAccountRepo(st)
	accounts, err := repo.FindAllByServer(context.Background(), "srv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acc, ok := accounts["acc-1"]
	if !ok {
		t.Fatal("expected acc-1 to be present")
	}
	if acc.ExpireOn == nil {
		t.Fatal("expected ExpireOn to be set")
	}
	if !acc.ExpireOn.Equal(expire) {
		t.Fatalf("expected expire_on %v, got %v", expire, acc.ExpireOn)
	}
}

func TestAccountRepo_Count(t *testing.T) {
	st := newTestStore(t)
	w := st.Writer()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := w.Exec(`INSERT INTO stock_accounts (id, assigned_server) VALUES (?, ?)`, id, "srv-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	repo := NewAccountRepo(st)
	n, err := repo.Count(context.Background(), "srv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}
