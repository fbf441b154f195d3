package model

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// Payment types accepted on offline collections.
const (
	PaymentCash   = "cash"
	PaymentCheque = "cheque"
)

// OfflineCollection is a payment recorded while offline, pending upload.
// Rows are append-only until explicitly deleted; Synced flips to true exactly
// once, after the server acknowledges the upload.
type OfflineCollection struct {
	LocalID      string     `json:"local_id"`
	CustomerCode string     `json:"customer_code"`
	CustomerName string     `json:"customer_name,omitempty"`
	Amount       float64    `json:"amount"`
	PaymentType  string     `json:"payment_type"`
	ChequeNumber string     `json:"cheque_number,omitempty"`
	Remarks      string     `json:"remarks,omitempty"`
	Date         string     `json:"date"`
	Synced       bool       `json:"synced"`
	SyncedAt     *time.Time `json:"synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Validate checks the fields required before persisting.
func (c *OfflineCollection) Validate() error {
	if c.CustomerCode == "" {
		return fmt.Errorf("customer_code is required")
	}
	if c.Amount <= 0 {
		return fmt.Errorf("amount must be positive (got %v)", c.Amount)
	}
	if c.PaymentType != PaymentCash && c.PaymentType != PaymentCheque {
		return fmt.Errorf("payment_type must be %q or %q (got %q)", PaymentCash, PaymentCheque, c.PaymentType)
	}
	return nil
}

// SetDefaults fills the local ID, date and timestamps when omitted.
func (c *OfflineCollection) SetDefaults() {
	if c.LocalID == "" {
		c.LocalID = NewLocalID("col")
	}
	if c.Date == "" {
		c.Date = time.Now().Format("2006-01-02")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
}

// OrderItem is one line of an offline order.
type OrderItem struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
	Total float64 `json:"total"`
}

// OfflineOrder is an order captured while offline, pending upload.
// Items are serialized as JSON into a single column, matching how the
// record travels to the server.
type OfflineOrder struct {
	LocalID      string      `json:"local_id"`
	CustomerCode string      `json:"customer_code"`
	CustomerName string      `json:"customer_name,omitempty"`
	Area         string      `json:"area,omitempty"`
	PaymentType  string      `json:"payment_type,omitempty"`
	Items        []OrderItem `json:"items"`
	TotalAmount  float64     `json:"total_amount"`
	Date         string      `json:"date"`
	Synced       bool        `json:"synced"`
	SyncedAt     *time.Time  `json:"synced_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Validate checks the fields required before persisting.
func (o *OfflineOrder) Validate() error {
	if o.CustomerCode == "" {
		return fmt.Errorf("customer_code is required")
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("order must have at least one item")
	}
	return nil
}

// SetDefaults fills the local ID, date, total and timestamps when omitted.
func (o *OfflineOrder) SetDefaults() {
	if o.LocalID == "" {
		o.LocalID = NewLocalID("ord")
	}
	if o.Date == "" {
		o.Date = time.Now().Format("2006-01-02")
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.TotalAmount == 0 {
		for _, it := range o.Items {
			o.TotalAmount += it.Total
		}
	}
}

// ItemsJSON serializes the item lines for storage.
func (o *OfflineOrder) ItemsJSON() (string, error) {
	data, err := json.Marshal(o.Items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order items: %w", err)
	}
	return string(data), nil
}

// ParseItemsJSON restores the item lines from their stored form.
func (o *OfflineOrder) ParseItemsJSON(data string) error {
	if data == "" || data == "null" {
		o.Items = []OrderItem{}
		return nil
	}
	if err := json.Unmarshal([]byte(data), &o.Items); err != nil {
		return fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	return nil
}

// NewLocalID generates a client-side unique identifier for offline-created
// records: prefix, millisecond timestamp, random suffix. Server IDs are
// assigned later; this one only has to be unique on the device.
func NewLocalID(prefix string) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, time.Now().UnixMilli(), rand.Intn(10000))
}
