package api

import (
	"encoding/json"
	"testing"
)

func TestRecordStrAliasPriority(t *testing.T) {
	rec := Record{"CODE": "C-UPPER", "code": "c-lower"}
	if got := rec.Str("code", "CODE"); got != "c-lower" {
		t.Errorf("Str = %q, want lowercase alias to win", got)
	}
	if got := rec.Str("missing", "CODE"); got != "C-UPPER" {
		t.Errorf("Str fallback = %q, want C-UPPER", got)
	}
}

func TestRecordStrNumericCode(t *testing.T) {
	rec := Record{"code": float64(1042)}
	if got := rec.Str("code"); got != "1042" {
		t.Errorf("numeric code = %q, want 1042", got)
	}
}

func TestRecordNum(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want float64
	}{
		{"float", Record{"mrp": 45.5}, 45.5},
		{"string", Record{"mrp": "45.5"}, 45.5},
		{"string with commas", Record{"mrp": "1,250.75"}, 1250.75},
		{"json number", Record{"mrp": json.Number("12")}, 12},
		{"empty string", Record{"mrp": ""}, 0},
		{"garbage", Record{"mrp": "n/a"}, 0},
		{"nil", Record{"mrp": nil}, 0},
		{"missing", Record{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Num("mrp"); got != tt.want {
				t.Errorf("Num = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeCustomer(t *testing.T) {
	rec := Record{
		"CODE":         "C001",
		"NAME":         "Corner Store",
		"PLACE":        "Kochi",
		"SUPER CODE":   "DEBTO",
		"BALANCE":      "2,500.50",
		"MASTER DEBIT": float64(3000),
	}

	c := NormalizeCustomer(rec)
	if c.Code != "C001" || c.Name != "Corner Store" {
		t.Errorf("identity fields: %+v", c)
	}
	if c.SuperCode != "DEBTO" {
		t.Errorf("SuperCode = %q", c.SuperCode)
	}
	if c.Balance != 2500.50 {
		t.Errorf("Balance = %v, want 2500.50", c.Balance)
	}
	if c.MasterDebit != 3000 {
		t.Errorf("MasterDebit = %v, want 3000", c.MasterDebit)
	}
}

func TestNormalizeBatchAliases(t *testing.T) {
	rec := Record{
		"MRP":      "120",
		"D.P":      100.0,
		"NET RATE": "95.5",
		"QTY":      "48",
	}

	b := NormalizeBatch(rec, "P001")
	if b.ProductCode != "P001" {
		t.Errorf("ProductCode = %q", b.ProductCode)
	}
	if b.MRP != 120 {
		t.Errorf("MRP = %v", b.MRP)
	}
	if b.DP != 100 {
		t.Errorf("DP = %v", b.DP)
	}
	if b.NetRate != 95.5 {
		t.Errorf("NetRate = %v", b.NetRate)
	}
	if b.Quantity != 48 {
		t.Errorf("Quantity = %v", b.Quantity)
	}
}

func TestNormalizeProductStampsChildren(t *testing.T) {
	rec := Record{
		"code": "P001",
		"name": "Soap Bar",
		"batches": []interface{}{
			map[string]interface{}{"batch_no": "B1", "mrp": 20.0},
			map[string]interface{}{"batch_no": "B2", "mrp": 22.0},
		},
		"photos": []interface{}{
			"https://img.example.com/1.jpg",
			map[string]interface{}{"url": "https://img.example.com/2.jpg"},
			map[string]interface{}{"other": "ignored"},
		},
		"goddowns": []interface{}{
			map[string]interface{}{"name": "Main", "qty": 10.0},
		},
	}

	p := NormalizeProduct(rec)
	if p.Code != "P001" || p.Name != "Soap Bar" {
		t.Fatalf("product identity: %+v", p.Product)
	}

	if len(p.Batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(p.Batches))
	}
	for _, b := range p.Batches {
		if b.ProductCode != "P001" {
			t.Errorf("batch %s product code = %q", b.BatchNo, b.ProductCode)
		}
	}

	// Bare-string and {url} photo shapes both decode; the url-less map is
	// dropped.
	if len(p.Photos) != 2 {
		t.Fatalf("photos = %d, want 2", len(p.Photos))
	}
	if p.Photos[0].URL != "https://img.example.com/1.jpg" {
		t.Errorf("photo[0] = %q", p.Photos[0].URL)
	}
	if p.Photos[0].ProductCode != "P001" {
		t.Errorf("photo product code = %q", p.Photos[0].ProductCode)
	}

	if len(p.Godowns) != 1 || p.Godowns[0].Name != "Main" || p.Godowns[0].Quantity != 10 {
		t.Errorf("godowns: %+v", p.Godowns)
	}
}

func TestNormalizeProductGodownSpellings(t *testing.T) {
	// The upstream field is usually the misspelled "goddowns"; some
	// deployments correct it.
	for _, key := range []string{"goddowns", "godowns", "GODDOWNS"} {
		rec := Record{
			"code": "P001",
			"name": "X",
			key: []interface{}{
				map[string]interface{}{"name": "Store A", "quantity": 5.0},
			},
		}
		p := NormalizeProduct(rec)
		if len(p.Godowns) != 1 {
			t.Errorf("key %q: godowns = %d, want 1", key, len(p.Godowns))
		}
	}
}

func TestNormalizeProductEmptyChildren(t *testing.T) {
	p := NormalizeProduct(Record{"code": "P001", "name": "X"})
	if p.Batches == nil || p.Photos == nil || p.Godowns == nil {
		t.Error("child slices must be empty, not nil")
	}
}
