package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sreejithpm/fieldsync/internal/model"
)

// GetDataStats returns row counts for the cached entities and the pending
// upload queues.
func (s *Store) GetDataStats(ctx context.Context) (model.DataStats, error) {
	var stats model.DataStats

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM customers`, &stats.Customers},
		{`SELECT COUNT(*) FROM products`, &stats.Products},
		{`SELECT COUNT(*) FROM batches`, &stats.Batches},
		{`SELECT COUNT(*) FROM areas`, &stats.Areas},
		{`SELECT COUNT(*) FROM offline_collections`, &stats.OfflineCollections},
		{`SELECT COUNT(*) FROM offline_orders`, &stats.OfflineOrders},
		{`SELECT COUNT(*) FROM offline_collections WHERE synced = 0`, &stats.PendingCollections},
		{`SELECT COUNT(*) FROM offline_orders WHERE synced = 0`, &stats.PendingOrders},
	}

	for _, c := range counts {
		if err := s.conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return model.DataStats{}, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	return stats, nil
}

// downloadableTables are the server-sourced tables. Offline queues and the
// version marker are deliberately not in this list.
var downloadableTables = []string{
	"customers",
	"products",
	"batches",
	"product_photos",
	"product_godowns",
	"areas",
	"sync_meta",
}

// ClearDownloadableData wipes only the server-sourced cache, preserving
// offline-created collections and orders. This is what a forced refresh runs:
// it must never discard unsynced user-entered data.
func (s *Store) ClearDownloadableData(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range downloadableTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// ClearAllData wipes everything, including pending uploads. The schema and
// version marker stay.
func (s *Store) ClearAllData(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		tables := append([]string{}, downloadableTables...)
		tables = append(tables, "offline_collections", "offline_orders")
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
