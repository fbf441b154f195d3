package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sreejithpm/fieldsync/internal/model"
)

// SaveCustomers upserts the full customer list by code, in chunks, inside one
// transaction. Re-running with the same payload is a no-op on observable state.
func (s *Store) SaveCustomers(ctx context.Context, customers []model.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		const query = `
		INSERT INTO customers (
			code, name, place, area, phone, phone2, super_code,
			balance, master_debit, master_credit, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			place = excluded.place,
			area = excluded.area,
			phone = excluded.phone,
			phone2 = excluded.phone2,
			super_code = excluded.super_code,
			balance = excluded.balance,
			master_debit = excluded.master_debit,
			master_credit = excluded.master_credit,
			updated_at = excluded.updated_at
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare customer upsert: %w", err)
		}
		defer stmt.Close()

		for i := range customers {
			c := &customers[i]
			c.SetDefaults()
			if err := c.Validate(); err != nil {
				return fmt.Errorf("invalid customer %q: %w", c.Code, err)
			}
			if _, err := stmt.ExecContext(ctx,
				c.Code, c.Name, c.Place, c.Area, c.Phone, c.Phone2, c.SuperCode,
				c.Balance, c.MasterDebit, c.MasterCredit,
				c.CreatedAt.Format(time.RFC3339), c.UpdatedAt.Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("failed to upsert customer %q: %w", c.Code, err)
			}
		}
		return nil
	})
}

// GetCustomers returns all customers ordered by name, optionally filtered by
// super code (e.g. model.SuperCodeDebtor for sales-eligible debtors).
func (s *Store) GetCustomers(ctx context.Context, superCode string) ([]model.Customer, error) {
	query := `
	SELECT code, name, place, area, phone, phone2, super_code,
	       balance, master_debit, master_credit, created_at, updated_at
	FROM customers
	`
	var args []interface{}
	if superCode != "" {
		query += " WHERE super_code = ?"
		args = append(args, superCode)
	}
	query += " ORDER BY name ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	return scanCustomers(rows)
}

// GetCustomerByCode retrieves a single customer.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetCustomerByCode(ctx context.Context, code string) (*model.Customer, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT code, name, place, area, phone, phone2, super_code,
	       balance, master_debit, master_credit, created_at, updated_at
	FROM customers WHERE code = ?`, code)

	c, err := scanCustomer(row)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SearchCustomers matches text against name, code, phone and area with a
// case-insensitive substring, optionally filtered by super code. Results are
// capped at 50 and ordered by name.
func (s *Store) SearchCustomers(ctx context.Context, text, superCode string) ([]model.Customer, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"

	query := `
	SELECT code, name, place, area, phone, phone2, super_code,
	       balance, master_debit, master_credit, created_at, updated_at
	FROM customers
	WHERE (LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(area) LIKE ?)
	`
	args := []interface{}{pattern, pattern, pattern, pattern}
	if superCode != "" {
		query += " AND super_code = ?"
		args = append(args, superCode)
	}
	query += " ORDER BY name ASC LIMIT ?"
	args = append(args, searchLimit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	defer rows.Close()

	return scanCustomers(rows)
}

// SaveAreas replaces the area list. Replace-all keeps the table consistent
// with whatever the server (or the customer-derived fallback) produced.
func (s *Store) SaveAreas(ctx context.Context, areas []model.Area) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM areas`); err != nil {
			return fmt.Errorf("failed to clear areas: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO areas (name) VALUES (?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare area insert: %w", err)
		}
		defer stmt.Close()
		for _, a := range areas {
			name := strings.TrimSpace(a.Name)
			if name == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, name); err != nil {
				return fmt.Errorf("failed to insert area %q: %w", name, err)
			}
		}
		return nil
	})
}

// GetAreas returns all cached areas ordered by name. When the table is empty
// it falls back to the distinct area/place values across customers, which is
// what the server-less deployments rely on.
func (s *Store) GetAreas(ctx context.Context) ([]model.Area, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM areas ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating areas: %w", err)
	}

	if len(areas) > 0 {
		return areas, nil
	}
	return s.deriveAreasFromCustomers(ctx)
}

func (s *Store) deriveAreasFromCustomers(ctx context.Context) ([]model.Area, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT DISTINCT name FROM (
		SELECT area AS name FROM customers WHERE area IS NOT NULL AND area != ''
		UNION
		SELECT place AS name FROM customers WHERE place IS NOT NULL AND place != ''
	) ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to derive areas: %w", err)
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan derived area: %w", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating derived areas: %w", err)
	}
	return areas, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (*model.Customer, error) {
	var c model.Customer
	var createdAt, updatedAt string

	err := row.Scan(
		&c.Code, &c.Name, &c.Place, &c.Area, &c.Phone, &c.Phone2, &c.SuperCode,
		&c.Balance, &c.MasterDebit, &c.MasterCredit, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		c.UpdatedAt = t
	}
	return &c, nil
}

func scanCustomers(rows *sql.Rows) ([]model.Customer, error) {
	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return customers, nil
}
