package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sreejithpm/fieldsync/internal/model"
)

// SaveProducts upserts the full product list by code in chunks of 500 rows,
// all inside one transaction. Idempotent: replaying the same server payload
// leaves the table unchanged.
func (s *Store) SaveProducts(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		const query = `
		INSERT INTO products (
			code, name, barcode, price, stock, unit, category, brand,
			taxcode, description, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			barcode = excluded.barcode,
			price = excluded.price,
			stock = excluded.stock,
			unit = excluded.unit,
			category = excluded.category,
			brand = excluded.brand,
			taxcode = excluded.taxcode,
			description = excluded.description,
			updated_at = excluded.updated_at
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare product upsert: %w", err)
		}
		defer stmt.Close()

		for start := 0; start < len(products); start += bulkChunkSize {
			end := start + bulkChunkSize
			if end > len(products) {
				end = len(products)
			}
			for i := start; i < end; i++ {
				p := &products[i]
				p.SetDefaults()
				if err := p.Validate(); err != nil {
					return fmt.Errorf("invalid product %q: %w", p.Code, err)
				}
				if _, err := stmt.ExecContext(ctx,
					p.Code, p.Name, p.Barcode, p.Price, p.Stock, p.Unit,
					p.Category, p.Brand, p.TaxCode, p.Description,
					p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
				); err != nil {
					return fmt.Errorf("failed to upsert product %q: %w", p.Code, err)
				}
			}
		}
		return nil
	})
}

// GetProductByBarcode looks up a product by its barcode.
// Returns sql.ErrNoRows if no product carries the barcode.
func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	row := s.conn.QueryRowContext(ctx, productSelect+` WHERE barcode = ? LIMIT 1`, barcode)
	return scanProduct(row)
}

// SearchProducts matches text against name, code and barcode with a
// case-insensitive substring, capped at 50 results ordered by name.
func (s *Store) SearchProducts(ctx context.Context, text string) ([]model.Product, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"

	rows, err := s.conn.QueryContext(ctx, productSelect+`
	WHERE (LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(barcode) LIKE ?)
	ORDER BY name ASC LIMIT ?`, pattern, pattern, pattern, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ProductFilter configures ListProducts.
type ProductFilter struct {
	// Brands restricts to any of the given brands (empty = all).
	Brands []string
	// Categories restricts to any of the given categories (empty = all).
	Categories []string
	// Search matches name, code, barcode, brand or category by substring.
	Search string
	// InStockOnly keeps products with positive stock.
	InStockOnly bool
	// Limit restricts the number of results (0 = no limit).
	Limit int
	// Offset skips the first N results (for pagination).
	Offset int
}

// ListProducts retrieves products matching the filter, ordered by name.
// This is the product leg of the assembler's bulk join.
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	var conditions []string
	var args []interface{}

	if len(filter.Brands) > 0 {
		conditions = append(conditions, "brand IN ("+placeholders(len(filter.Brands))+")")
		for _, b := range filter.Brands {
			args = append(args, b)
		}
	}
	if len(filter.Categories) > 0 {
		conditions = append(conditions, "category IN ("+placeholders(len(filter.Categories))+")")
		for _, c := range filter.Categories {
			args = append(args, c)
		}
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		conditions = append(conditions,
			"(LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(barcode) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(category) LIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	if filter.InStockOnly {
		conditions = append(conditions, "stock > 0")
	}

	query := productSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET.
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// SaveBatches replaces the batch set of one product: delete old rows, insert
// the new set, in one transaction so a crash can never leave the product with
// zero batches while the server still has some.
func (s *Store) SaveBatches(ctx context.Context, productCode string, batches []model.Batch) error {
	if productCode == "" {
		return fmt.Errorf("product code is required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE product_code = ?`, productCode); err != nil {
			return fmt.Errorf("failed to clear batches for %q: %w", productCode, err)
		}
		return insertBatches(ctx, tx, productCode, batches)
	})
}

// SaveBatchesBulk inserts pre-flattened batches across all products in one
// transaction, clearing every product's old set first. One call per sync
// replaces thousands of per-product round trips.
func (s *Store) SaveBatchesBulk(ctx context.Context, batches []model.Batch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM batches`); err != nil {
			return fmt.Errorf("failed to clear batches: %w", err)
		}
		return insertBatches(ctx, tx, "", batches)
	})
}

func insertBatches(ctx context.Context, tx *sql.Tx, productCode string, batches []model.Batch) error {
	if len(batches) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO batches (
		product_code, batch_no, barcode, mrp, retail, dp, cb, cost,
		net_rate, pk_shop, second_price, third_price, quantity, expiry_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range batches {
		code := b.ProductCode
		if productCode != "" {
			code = productCode
		}
		if code == "" {
			return fmt.Errorf("batch missing product code")
		}
		if _, err := stmt.ExecContext(ctx,
			code, b.BatchNo, b.Barcode, b.MRP, b.Retail, b.DP, b.CB, b.Cost,
			b.NetRate, b.PkShop, b.SecondPrice, b.ThirdPrice, b.Quantity, b.ExpiryDate,
		); err != nil {
			return fmt.Errorf("failed to insert batch for %q: %w", code, err)
		}
	}
	return nil
}

// SavePhotosBulk replaces all product photos with the given flattened set.
func (s *Store) SavePhotosBulk(ctx context.Context, photos []model.ProductPhoto) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_photos`); err != nil {
			return fmt.Errorf("failed to clear photos: %w", err)
		}
		if len(photos) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_photos (product_code, url, order_index) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare photo insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range photos {
			if p.ProductCode == "" || p.URL == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, p.ProductCode, p.URL, p.OrderIndex); err != nil {
				return fmt.Errorf("failed to insert photo for %q: %w", p.ProductCode, err)
			}
		}
		return nil
	})
}

// SaveGodownsBulk replaces all product godowns with the given flattened set.
func (s *Store) SaveGodownsBulk(ctx context.Context, godowns []model.ProductGodown) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM product_godowns`); err != nil {
			return fmt.Errorf("failed to clear godowns: %w", err)
		}
		if len(godowns) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_godowns (product_code, name, quantity, barcode) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare godown insert: %w", err)
		}
		defer stmt.Close()
		for _, g := range godowns {
			if g.ProductCode == "" || g.Name == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, g.ProductCode, g.Name, g.Quantity, g.Barcode); err != nil {
				return fmt.Errorf("failed to insert godown for %q: %w", g.ProductCode, err)
			}
		}
		return nil
	})
}

// GetBatchesByProductCode returns the batch set of one product.
func (s *Store) GetBatchesByProductCode(ctx context.Context, productCode string) ([]model.Batch, error) {
	rows, err := s.conn.QueryContext(ctx, batchSelect+` WHERE product_code = ? ORDER BY id ASC`, productCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	return scanBatches(rows)
}

// GetAllBatches returns every batch in the cache grouped by product code.
// One whole-table query; the assembler joins in memory instead of issuing a
// query per product.
func (s *Store) GetAllBatches(ctx context.Context) (map[string][]model.Batch, error) {
	rows, err := s.conn.QueryContext(ctx, batchSelect+` ORDER BY product_code, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all batches: %w", err)
	}
	defer rows.Close()

	batches, err := scanBatches(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]model.Batch)
	for _, b := range batches {
		grouped[b.ProductCode] = append(grouped[b.ProductCode], b)
	}
	return grouped, nil
}

// GetAllProductPhotos returns every photo grouped by product code, ordered by
// order_index within each product.
func (s *Store) GetAllProductPhotos(ctx context.Context) (map[string][]model.ProductPhoto, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT product_code, url, order_index FROM product_photos
	ORDER BY product_code, order_index ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all photos: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]model.ProductPhoto)
	for rows.Next() {
		var p model.ProductPhoto
		if err := rows.Scan(&p.ProductCode, &p.URL, &p.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		grouped[p.ProductCode] = append(grouped[p.ProductCode], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return grouped, nil
}

// GetAllProductGodowns returns every godown row grouped by product code.
func (s *Store) GetAllProductGodowns(ctx context.Context) (map[string][]model.ProductGodown, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT product_code, name, quantity, barcode FROM product_godowns
	ORDER BY product_code, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all godowns: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]model.ProductGodown)
	for rows.Next() {
		var g model.ProductGodown
		var barcode sql.NullString
		if err := rows.Scan(&g.ProductCode, &g.Name, &g.Quantity, &barcode); err != nil {
			return nil, fmt.Errorf("failed to scan godown: %w", err)
		}
		g.Barcode = barcode.String
		grouped[g.ProductCode] = append(grouped[g.ProductCode], g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating godowns: %w", err)
	}
	return grouped, nil
}

const productSelect = `
	SELECT code, name, barcode, price, stock, unit, category, brand,
	       taxcode, description, created_at, updated_at
	FROM products`

const batchSelect = `
	SELECT id, product_code, batch_no, barcode, mrp, retail, dp, cb, cost,
	       net_rate, pk_shop, second_price, third_price, quantity, expiry_date
	FROM batches`

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	var barcode, unit, category, brand, taxcode, description sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&p.Code, &p.Name, &barcode, &p.Price, &p.Stock, &unit,
		&category, &brand, &taxcode, &description, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Barcode = barcode.String
	p.Unit = unit.String
	p.Category = category.String
	p.Brand = brand.String
	p.TaxCode = taxcode.String
	p.Description = description.String

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func scanBatches(rows *sql.Rows) ([]model.Batch, error) {
	var batches []model.Batch
	for rows.Next() {
		var b model.Batch
		var batchNo, barcode, expiry sql.NullString
		if err := rows.Scan(
			&b.ID, &b.ProductCode, &batchNo, &barcode, &b.MRP, &b.Retail,
			&b.DP, &b.CB, &b.Cost, &b.NetRate, &b.PkShop, &b.SecondPrice,
			&b.ThirdPrice, &b.Quantity, &expiry,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.BatchNo = batchNo.String
		b.Barcode = barcode.String
		b.ExpiryDate = expiry.String
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}
