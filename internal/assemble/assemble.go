// Package assemble joins the store's flat batch/photo/godown rows back into
// per-product card view models for the ordering screens.
//
// The join is bulk-then-group: one filtered product query plus exactly three
// whole-table queries (batches, photos, godowns), each grouped into a map by
// product code, then attached by O(1) lookup per product. A per-product join
// would issue three extra queries per product; this issues three total
// regardless of catalog size.
package assemble

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/sreejithpm/fieldsync/internal/model"
	"github.com/sreejithpm/fieldsync/internal/store"
)

// Assembler reads the product cache and produces joined view models.
type Assembler struct {
	store *store.Store
	log   *logrus.Entry
}

// New creates an Assembler over the given store.
// If logger is nil, the logrus standard logger is used.
func New(st *store.Store, logger *logrus.Logger) *Assembler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Assembler{
		store: st,
		log:   logger.WithField("component", "assemble"),
	}
}

// ProductBatches returns the filtered product listing with batches, photos
// and godowns attached.
//
// Errors degrade to an empty slice: this feeds a list UI that must render an
// empty state rather than crash, so nothing is thrown past this boundary.
func (a *Assembler) ProductBatches(ctx context.Context, filter store.ProductFilter) []model.ProductWithBatches {
	products, err := a.store.ListProducts(ctx, filter)
	if err != nil {
		a.log.WithError(err).Error("failed to list products")
		return []model.ProductWithBatches{}
	}
	if len(products) == 0 {
		return []model.ProductWithBatches{}
	}

	batchesByCode, err := a.store.GetAllBatches(ctx)
	if err != nil {
		a.log.WithError(err).Error("failed to load batches")
		return []model.ProductWithBatches{}
	}
	photosByCode, err := a.store.GetAllProductPhotos(ctx)
	if err != nil {
		a.log.WithError(err).Error("failed to load photos")
		return []model.ProductWithBatches{}
	}
	godownsByCode, err := a.store.GetAllProductGodowns(ctx)
	if err != nil {
		a.log.WithError(err).Error("failed to load godowns")
		return []model.ProductWithBatches{}
	}

	joined := make([]model.ProductWithBatches, 0, len(products))
	for _, p := range products {
		pw := model.ProductWithBatches{
			Product: p,
			Batches: batchesByCode[p.Code],
			Photos:  photosByCode[p.Code],
			Godowns: godownsByCode[p.Code],
		}
		if pw.Batches == nil {
			pw.Batches = []model.Batch{}
		}
		if pw.Photos == nil {
			pw.Photos = []model.ProductPhoto{}
		}
		if pw.Godowns == nil {
			pw.Godowns = []model.ProductGodown{}
		}
		joined = append(joined, pw)
	}
	return joined
}

// Card is one orderable unit: a single batch of a product, or the whole
// product when it has no batches. This is the flattened view model the
// ordering screens render.
type Card struct {
	ID          string                `json:"id"`
	ProductCode string                `json:"product_code"`
	ProductName string                `json:"product_name"`
	Barcode     string                `json:"barcode,omitempty"`
	BatchNo     string                `json:"batch_no,omitempty"`
	Price       float64               `json:"price"`
	MRP         float64               `json:"mrp"`
	Retail      float64               `json:"retail"`
	DP          float64               `json:"dp"`
	NetRate     float64               `json:"net_rate"`
	Quantity    float64               `json:"quantity"`
	Unit        string                `json:"unit,omitempty"`
	Brand       string                `json:"brand,omitempty"`
	Category    string                `json:"category,omitempty"`
	ExpiryDate  string                `json:"expiry_date,omitempty"`
	Photos      []string              `json:"photos"`
	Godowns     []model.ProductGodown `json:"godowns"`
	Synthetic   bool                  `json:"synthetic,omitempty"`
}

// TransformToCards flattens joined products into one card per batch. A
// batchless product still yields one synthetic card built from the product
// fields. The display price is retail when positive, MRP otherwise.
func TransformToCards(products []model.ProductWithBatches) []Card {
	var cards []Card
	for _, p := range products {
		photos := make([]string, 0, len(p.Photos))
		for _, ph := range p.Photos {
			photos = append(photos, ph.URL)
		}
		godowns := p.Godowns
		if godowns == nil {
			godowns = []model.ProductGodown{}
		}

		if len(p.Batches) == 0 {
			cards = append(cards, Card{
				ID:          cardID(p.Code, "0", p.Barcode),
				ProductCode: p.Code,
				ProductName: p.Name,
				Barcode:     p.Barcode,
				Price:       p.Price,
				MRP:         p.Price,
				Quantity:    p.Stock,
				Unit:        p.Unit,
				Brand:       p.Brand,
				Category:    p.Category,
				Photos:      photos,
				Godowns:     godowns,
				Synthetic:   true,
			})
			continue
		}

		for _, b := range p.Batches {
			price := b.Retail
			if price <= 0 {
				price = b.MRP
			}
			barcode := b.Barcode
			if barcode == "" {
				barcode = p.Barcode
			}
			cards = append(cards, Card{
				ID:          cardID(p.Code, fmt.Sprintf("%d", b.ID), barcode),
				ProductCode: p.Code,
				ProductName: p.Name,
				Barcode:     barcode,
				BatchNo:     b.BatchNo,
				Price:       price,
				MRP:         b.MRP,
				Retail:      b.Retail,
				DP:          b.DP,
				NetRate:     b.NetRate,
				Quantity:    b.Quantity,
				Unit:        p.Unit,
				Brand:       p.Brand,
				Category:    p.Category,
				ExpiryDate:  b.ExpiryDate,
				Photos:      photos,
				Godowns:     godowns,
			})
		}
	}
	if cards == nil {
		return []Card{}
	}
	return cards
}

// cardID builds a unique card identifier from the product code, the batch id
// (or barcode when the batch has no stable id), and a random suffix. Multiple
// batches of one product can share a barcode-less identity, so the suffix is
// what guarantees uniqueness within one transform.
func cardID(productCode, batchID, barcode string) string {
	key := batchID
	if key == "" || key == "0" {
		key = barcode
	}
	if key == "" {
		key = "nobatch"
	}
	return fmt.Sprintf("%s-%s-%04d", productCode, key, rand.Intn(10000))
}
