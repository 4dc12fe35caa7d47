package store

import (
	"path/filepath"
	"testing"
)

func TestOpen_CreatesSchemaAndMigrates(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "botfleet.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if err := s.Ping(); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	version, err := s.currentVersion()
	if err != nil {
		t.Fatalf("unexpected error reading version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected schema version 1, got %d", version)
	}

	var name string
	err = s.Reader().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='servers'").Scan(&name)
	if err != nil {
		t.Fatalf("expected servers table to exist: %v", err)
	}
	err = s.Reader().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='stock_accounts'").Scan(&name)
	if err != nil {
		t.Fatalf("expected stock_accounts table to exist: %v", err)
	}
}

func TestOpen_ReaderIsQueryOnly(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "botfleet.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	_, err = s.Reader().Exec("INSERT INTO servers (id, name, cfx_license) VALUES ('x','y','z')")
	if err == nil {
		t.Fatal("expected the reader connection to reject writes")
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "botfleet.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
}
