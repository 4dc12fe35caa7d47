package store

// SQL schema constants for all botfleet tables.

const schemaServers = `
CREATE TABLE IF NOT EXISTS servers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    cfx_license TEXT NOT NULL UNIQUE,
    sv_license_key_token TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_servers_cfx_license ON servers(cfx_license);
`

const schemaStockAccounts = `
CREATE TABLE IF NOT EXISTS stock_accounts (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL DEFAULT '',
    assigned_server TEXT NOT NULL DEFAULT '',
    expire_on DATETIME,
    entitlement_id TEXT,
    account_index INTEGER,
    machine_hash TEXT
);
CREATE INDEX IF NOT EXISTS idx_stock_accounts_server ON stock_accounts(assigned_server);
`

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS migrations (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// allSchemas is the ordered list of schema DDL statements that form
// the initial (version-1) database layout.
var allSchemas = []string{
	schemaServers,
	schemaStockAccounts,
	schemaMigrations,
}
