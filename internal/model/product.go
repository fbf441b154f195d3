package model

import (
	"fmt"
	"time"
)

// Product is a catalog item synced from the server.
// Batches, photos and godowns hang off it by ProductCode.
type Product struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Barcode     string  `json:"barcode,omitempty"`
	Price       float64 `json:"price"`
	Stock       float64 `json:"stock"`
	Unit        string  `json:"unit,omitempty"`
	Category    string  `json:"category,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	TaxCode     string  `json:"taxcode,omitempty"`
	Description string  `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields the cache relies on.
func (p *Product) Validate() error {
	if p.Code == "" {
		return fmt.Errorf("code is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// SetDefaults applies defaults for optional fields.
func (p *Product) SetDefaults() {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
}

// Batch is a priced, quantity-tracked lot of a product. A product may have
// zero batches, in which case the assembler builds a synthetic card from the
// product fields alone.
type Batch struct {
	ID          int64   `json:"id,omitempty"`
	ProductCode string  `json:"product_code"`
	BatchNo     string  `json:"batch_no,omitempty"`
	Barcode     string  `json:"barcode,omitempty"`
	MRP         float64 `json:"mrp"`
	Retail      float64 `json:"retail"`
	DP          float64 `json:"dp"`
	CB          float64 `json:"cb"`
	Cost        float64 `json:"cost"`
	NetRate     float64 `json:"net_rate"`
	PkShop      float64 `json:"pk_shop"`
	SecondPrice float64 `json:"second_price"`
	ThirdPrice  float64 `json:"third_price"`
	Quantity    float64 `json:"quantity"`
	ExpiryDate  string  `json:"expiry_date,omitempty"`
}

// ProductPhoto is one image URL of a product. Photos are shared across all
// batches of the same product.
type ProductPhoto struct {
	ProductCode string `json:"product_code"`
	URL         string `json:"url"`
	OrderIndex  int    `json:"order_index"`
}

// ProductGodown is a warehouse location holding stock of a product. Like
// photos, godowns are product-level, not batch-partitioned.
type ProductGodown struct {
	ProductCode string  `json:"product_code"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Barcode     string  `json:"barcode,omitempty"`
}

// ProductWithBatches is the joined view the assembler hands to ordering
// screens: a product with its batch, photo and godown sublists attached.
type ProductWithBatches struct {
	Product
	Batches []Batch         `json:"batches"`
	Photos  []ProductPhoto  `json:"photos"`
	Godowns []ProductGodown `json:"goddowns"`
}
