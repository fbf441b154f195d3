// Package model defines the typed records cached by fieldsync.
//
// The remote API is loose about field names and types, so these structs are
// always produced through the normalization layer in internal/api; by the time
// a record reaches the store it has a stable shape.
package model

import (
	"fmt"
	"time"
)

// SuperCodeDebtor marks customers eligible for sales/collection workflows.
const SuperCodeDebtor = "DEBTO"

// Customer is a debtor/outlet record synced from the server.
// Upserted wholesale by code on every sync; never edited locally.
type Customer struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Place        string  `json:"place,omitempty"`
	Area         string  `json:"area,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Phone2       string  `json:"phone2,omitempty"`
	SuperCode    string  `json:"super_code,omitempty"`
	Balance      float64 `json:"balance"`
	MasterDebit  float64 `json:"master_debit"`
	MasterCredit float64 `json:"master_credit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields the cache relies on.
func (c *Customer) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// SetDefaults applies defaults for optional fields.
func (c *Customer) SetDefaults() {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
}

// IsDebtor reports whether this customer carries the sales-eligible tag.
func (c *Customer) IsDebtor() bool {
	return c.SuperCode == SuperCodeDebtor
}

// Area is a flat sales territory name, either synced from the server or
// derived from the distinct area/place values across customers.
type Area struct {
	Name string `json:"name"`
}
