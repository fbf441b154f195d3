package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sreejithpm/fieldsync/internal/model"
)

// Record is a loosely-typed upstream record. The backend mixes field casing
// and naming between deployments ("MRP" vs "mrp", "D.P" vs "dp", "NET RATE"
// vs "net_rate"), so records are decoded untyped and mapped to DTOs by trying
// each known alias in priority order.
type Record map[string]interface{}

// Str returns the first non-empty string value among the given keys.
func (r Record) Str(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		case float64:
			// Codes sometimes arrive as numbers.
			return strconv.FormatFloat(s, 'f', -1, 64)
		case json.Number:
			return s.String()
		}
	}
	return ""
}

// Num returns the first parseable numeric value among the given keys.
// Empty or invalid values yield 0, never NaN.
func (r Record) Num(keys ...string) float64 {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		case string:
			cleaned := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
			if cleaned == "" {
				continue
			}
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// Int is Num truncated to an int.
func (r Record) Int(keys ...string) int {
	return int(r.Num(keys...))
}

// List returns the first array value among the given keys.
func (r Record) List(keys ...string) []interface{} {
	for _, k := range keys {
		if v, ok := r[k].([]interface{}); ok && len(v) > 0 {
			return v
		}
	}
	return nil
}

// NormalizeCustomer maps a loose debtor record to a Customer.
func NormalizeCustomer(rec Record) model.Customer {
	return model.Customer{
		Code:         rec.Str("code", "CODE", "Code"),
		Name:         rec.Str("name", "NAME", "Name"),
		Place:        rec.Str("place", "PLACE"),
		Area:         rec.Str("area", "AREA"),
		Phone:        rec.Str("phone", "PHONE", "mobile"),
		Phone2:       rec.Str("phone2", "PHONE2", "mobile2"),
		SuperCode:    rec.Str("super_code", "SUPER CODE", "supercode", "SUPERCODE"),
		Balance:      rec.Num("balance", "BALANCE"),
		MasterDebit:  rec.Num("master_debit", "MASTER DEBIT", "masterdebit"),
		MasterCredit: rec.Num("master_credit", "MASTER CREDIT", "mastercredit"),
	}
}

// NormalizeProduct maps a loose product record, with its embedded batches,
// photos and godowns, to typed DTOs. The product code is stamped onto every
// child row so they can be flattened into the bulk-insert lists.
func NormalizeProduct(rec Record) model.ProductWithBatches {
	p := model.ProductWithBatches{
		Product: model.Product{
			Code:        rec.Str("code", "CODE", "Code", "product_code"),
			Name:        rec.Str("name", "NAME", "Name", "product_name"),
			Barcode:     rec.Str("barcode", "BARCODE"),
			Price:       rec.Num("price", "PRICE", "retail", "RETAIL"),
			Stock:       rec.Num("stock", "STOCK", "quantity", "QTY"),
			Unit:        rec.Str("unit", "UNIT"),
			Category:    rec.Str("category", "CATEGORY"),
			Brand:       rec.Str("brand", "BRAND"),
			TaxCode:     rec.Str("taxcode", "tax_code", "TAXCODE"),
			Description: rec.Str("description", "DESCRIPTION"),
		},
		Batches: []model.Batch{},
		Photos:  []model.ProductPhoto{},
		Godowns: []model.ProductGodown{},
	}

	for _, item := range rec.List("batches", "BATCHES") {
		b, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		p.Batches = append(p.Batches, NormalizeBatch(Record(b), p.Code))
	}

	for i, item := range rec.List("photos", "PHOTOS", "images") {
		url := ""
		switch v := item.(type) {
		case string:
			url = strings.TrimSpace(v)
		case map[string]interface{}:
			url = Record(v).Str("url", "URL", "image_url")
		}
		if url == "" {
			continue
		}
		p.Photos = append(p.Photos, model.ProductPhoto{
			ProductCode: p.Code,
			URL:         url,
			OrderIndex:  i,
		})
	}

	for _, item := range rec.List("goddowns", "godowns", "GODDOWNS") {
		g, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		gr := Record(g)
		name := gr.Str("name", "NAME", "godown", "GODOWN")
		if name == "" {
			continue
		}
		p.Godowns = append(p.Godowns, model.ProductGodown{
			ProductCode: p.Code,
			Name:        name,
			Quantity:    gr.Num("quantity", "QUANTITY", "qty", "QTY"),
			Barcode:     gr.Str("barcode", "BARCODE"),
		})
	}

	return p
}

// NormalizeBatch maps a loose batch record to a Batch tagged with its
// product code.
func NormalizeBatch(rec Record, productCode string) model.Batch {
	return model.Batch{
		ProductCode: productCode,
		BatchNo:     rec.Str("batch_no", "BATCH NO", "batchno", "batch"),
		Barcode:     rec.Str("barcode", "BARCODE"),
		MRP:         rec.Num("mrp", "MRP"),
		Retail:      rec.Num("retail", "RETAIL"),
		DP:          rec.Num("dp", "DP", "D.P", "d.p"),
		CB:          rec.Num("cb", "CB", "C.B"),
		Cost:        rec.Num("cost", "COST"),
		NetRate:     rec.Num("net_rate", "NET RATE", "netrate", "NETRATE"),
		PkShop:      rec.Num("pk_shop", "PK SHOP", "pkshop"),
		SecondPrice: rec.Num("second_price", "SECOND PRICE", "secondprice"),
		ThirdPrice:  rec.Num("third_price", "THIRD PRICE", "thirdprice"),
		Quantity:    rec.Num("quantity", "QUANTITY", "qty", "QTY", "stock"),
		ExpiryDate:  rec.Str("expiry_date", "EXPIRY DATE", "expiry", "EXPIRY"),
	}
}
