package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sreejithpm/fieldsync/internal/model"
)

// SaveOfflineCollection inserts a locally-created payment record as unsynced.
// A missing local ID is generated client-side.
func (s *Store) SaveOfflineCollection(ctx context.Context, c *model.OfflineCollection) error {
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid collection: %w", err)
	}

	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO offline_collections (
		local_id, customer_code, customer_name, amount, payment_type,
		cheque_number, remarks, date, synced, synced_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)`,
		c.LocalID, c.CustomerCode, c.CustomerName, c.Amount, c.PaymentType,
		c.ChequeNumber, c.Remarks, c.Date, c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save offline collection: %w", err)
	}
	return nil
}

// SaveOfflineOrder inserts a locally-created order as unsynced.
func (s *Store) SaveOfflineOrder(ctx context.Context, o *model.OfflineOrder) error {
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}

	items, err := o.ItemsJSON()
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `
	INSERT INTO offline_orders (
		local_id, customer_code, customer_name, area, payment_type,
		items, total_amount, date, synced, synced_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)`,
		o.LocalID, o.CustomerCode, o.CustomerName, o.Area, o.PaymentType,
		items, o.TotalAmount, o.Date, o.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save offline order: %w", err)
	}
	return nil
}

// GetOfflineCollections returns offline collections, optionally only unsynced
// ones, newest first.
func (s *Store) GetOfflineCollections(ctx context.Context, unsyncedOnly bool) ([]model.OfflineCollection, error) {
	query := `
	SELECT local_id, customer_code, customer_name, amount, payment_type,
	       cheque_number, remarks, date, synced, synced_at, created_at
	FROM offline_collections`
	if unsyncedOnly {
		query += " WHERE synced = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query offline collections: %w", err)
	}
	defer rows.Close()

	var out []model.OfflineCollection
	for rows.Next() {
		var c model.OfflineCollection
		var customerName, chequeNumber, remarks sql.NullString
		var synced int
		var syncedAt sql.NullString
		var createdAt string
		if err := rows.Scan(
			&c.LocalID, &c.CustomerCode, &customerName, &c.Amount, &c.PaymentType,
			&chequeNumber, &remarks, &c.Date, &synced, &syncedAt, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan offline collection: %w", err)
		}
		c.CustomerName = customerName.String
		c.ChequeNumber = chequeNumber.String
		c.Remarks = remarks.String
		c.Synced = synced != 0
		c.SyncedAt = nullStringToTime(syncedAt)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			c.CreatedAt = t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offline collections: %w", err)
	}
	return out, nil
}

// GetOfflineOrders returns offline orders, optionally only unsynced ones,
// newest first.
func (s *Store) GetOfflineOrders(ctx context.Context, unsyncedOnly bool) ([]model.OfflineOrder, error) {
	query := `
	SELECT local_id, customer_code, customer_name, area, payment_type,
	       items, total_amount, date, synced, synced_at, created_at
	FROM offline_orders`
	if unsyncedOnly {
		query += " WHERE synced = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query offline orders: %w", err)
	}
	defer rows.Close()

	var out []model.OfflineOrder
	for rows.Next() {
		var o model.OfflineOrder
		var customerName, area, paymentType sql.NullString
		var items string
		var synced int
		var syncedAt sql.NullString
		var createdAt string
		if err := rows.Scan(
			&o.LocalID, &o.CustomerCode, &customerName, &area, &paymentType,
			&items, &o.TotalAmount, &o.Date, &synced, &syncedAt, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan offline order: %w", err)
		}
		o.CustomerName = customerName.String
		o.Area = area.String
		o.PaymentType = paymentType.String
		o.Synced = synced != 0
		o.SyncedAt = nullStringToTime(syncedAt)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			o.CreatedAt = t
		}
		if err := o.ParseItemsJSON(items); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offline orders: %w", err)
	}
	return out, nil
}

// MarkCollectionSynced flips the synced flag on. The transition is one-way:
// an already-synced row is left untouched.
func (s *Store) MarkCollectionSynced(ctx context.Context, localID string) error {
	now := time.Now()
	_, err := s.conn.ExecContext(ctx, `
	UPDATE offline_collections SET synced = 1, synced_at = ?
	WHERE local_id = ? AND synced = 0`,
		timeToNullString(&now), localID)
	if err != nil {
		return fmt.Errorf("failed to mark collection %q synced: %w", localID, err)
	}
	return nil
}

// MarkOrderSynced flips the synced flag on, one-way.
func (s *Store) MarkOrderSynced(ctx context.Context, localID string) error {
	now := time.Now()
	_, err := s.conn.ExecContext(ctx, `
	UPDATE offline_orders SET synced = 1, synced_at = ?
	WHERE local_id = ? AND synced = 0`,
		timeToNullString(&now), localID)
	if err != nil {
		return fmt.Errorf("failed to mark order %q synced: %w", localID, err)
	}
	return nil
}

// DeleteOfflineCollection removes a collection by local ID.
// Returns nil if the row doesn't exist (idempotent).
func (s *Store) DeleteOfflineCollection(ctx context.Context, localID string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM offline_collections WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", localID, err)
	}
	return nil
}

// DeleteOfflineOrder removes an order by local ID.
// Returns nil if the row doesn't exist (idempotent).
func (s *Store) DeleteOfflineOrder(ctx context.Context, localID string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM offline_orders WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("failed to delete order %q: %w", localID, err)
	}
	return nil
}
