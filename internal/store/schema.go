package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaVersion is the version the latest migration step produces.
const schemaVersion = 2

// migrations holds one DDL block per version transition, indexed so that
// migrations[n] upgrades a version-n database to version n+1. A database with
// no db_version row is treated as version 0 and replays everything. Steps are
// additive only; each runs inside the single migration transaction.
var migrations = []string{
	// v0 -> v1: base schema.
	`
	CREATE TABLE IF NOT EXISTS customers (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		place TEXT,
		area TEXT,
		phone TEXT,
		phone2 TEXT,
		super_code TEXT,
		balance REAL NOT NULL DEFAULT 0,
		master_debit REAL NOT NULL DEFAULT 0,
		master_credit REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		barcode TEXT,
		price REAL NOT NULL DEFAULT 0,
		stock REAL NOT NULL DEFAULT 0,
		unit TEXT,
		category TEXT,
		brand TEXT,
		taxcode TEXT,
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_code TEXT NOT NULL,
		batch_no TEXT,
		barcode TEXT,
		mrp REAL NOT NULL DEFAULT 0,
		retail REAL NOT NULL DEFAULT 0,
		dp REAL NOT NULL DEFAULT 0,
		cb REAL NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		net_rate REAL NOT NULL DEFAULT 0,
		pk_shop REAL NOT NULL DEFAULT 0,
		second_price REAL NOT NULL DEFAULT 0,
		third_price REAL NOT NULL DEFAULT 0,
		quantity REAL NOT NULL DEFAULT 0,
		expiry_date TEXT
	);

	CREATE TABLE IF NOT EXISTS product_photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_code TEXT NOT NULL,
		url TEXT NOT NULL,
		order_index INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS product_godowns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_code TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity REAL NOT NULL DEFAULT 0,
		barcode TEXT
	);

	CREATE TABLE IF NOT EXISTS areas (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS offline_collections (
		local_id TEXT PRIMARY KEY,
		customer_code TEXT NOT NULL,
		customer_name TEXT,
		amount REAL NOT NULL,
		payment_type TEXT NOT NULL,
		cheque_number TEXT,
		remarks TEXT,
		date TEXT NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		synced_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS offline_orders (
		local_id TEXT PRIMARY KEY,
		customer_code TEXT NOT NULL,
		customer_name TEXT,
		area TEXT,
		payment_type TEXT,
		items TEXT NOT NULL DEFAULT '[]',
		total_amount REAL NOT NULL DEFAULT 0,
		date TEXT NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		synced_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name);
	CREATE INDEX IF NOT EXISTS idx_customers_super ON customers(super_code);
	CREATE INDEX IF NOT EXISTS idx_customers_area ON customers(area);
	CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
	CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode);
	CREATE INDEX IF NOT EXISTS idx_batches_product ON batches(product_code);
	CREATE INDEX IF NOT EXISTS idx_photos_product ON product_photos(product_code);
	CREATE INDEX IF NOT EXISTS idx_godowns_product ON product_godowns(product_code);
	CREATE INDEX IF NOT EXISTS idx_collections_synced ON offline_collections(synced);
	CREATE INDEX IF NOT EXISTS idx_orders_synced ON offline_orders(synced);
	`,

	// v1 -> v2: composite indexes for the assembler's filtered product listing.
	`
	CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	CREATE INDEX IF NOT EXISTS idx_products_listing ON products(name, code);
	`,
}

// Migrate brings the schema up to schemaVersion, executing every missing
// migration step inside one transaction so a crash mid-upgrade leaves the
// version marker consistent with the structure. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS db_version (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for v := current; v < schemaVersion; v++ {
			if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
				return fmt.Errorf("failed to apply migration v%d->v%d: %w", v, v+1, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO db_version (id, version) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET version = excluded.version`,
			schemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the stored schema version. A missing marker row is
// version 0 (fresh or pre-versioning database).
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.conn.QueryRowContext(ctx, `SELECT version FROM db_version WHERE id = 1`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
