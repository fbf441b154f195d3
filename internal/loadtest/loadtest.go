// Package loadtest provides utilities for exercising the cache with
// realistically sized catalogs.
//
// It generates synthetic products, batches, photos and godowns,
// bulk-persists them the way a sync session does, and measures listing
// latency. Its main use is validating that the assembler's bulk-then-group
// join stays flat as the catalog grows, where a per-product join degrades
// linearly.
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sreejithpm/fieldsync/internal/assemble"
	"github.com/sreejithpm/fieldsync/internal/model"
	"github.com/sreejithpm/fieldsync/internal/store"
)

// TestCatalog is a populated cache ready for query benchmarks.
type TestCatalog struct {
	Store        *store.Store
	ProductCodes []string
	NumProducts  int
	NumBatches   int
}

// LatencyStats captures query timing from a load run.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration
	P95          time.Duration
	TotalQueries int
	Errors       int
	Durations    []time.Duration
}

// CreateTestCatalog opens a store at dbPath and fills it with numProducts
// synthetic products carrying 1-4 batches, 0-3 photos and 0-2 godowns each,
// persisted through the same bulk path a real sync uses.
func CreateTestCatalog(dbPath string, numProducts int) (*TestCatalog, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	tc := &TestCatalog{
		Store:        st,
		ProductCodes: make([]string, 0, numProducts),
		NumProducts:  numProducts,
	}

	products := make([]model.Product, 0, numProducts)
	var batches []model.Batch
	var photos []model.ProductPhoto
	var godowns []model.ProductGodown

	brands := []string{"Alfa", "Bedrock", "Cresta", "Dunes", "Everest"}
	categories := []string{"Snacks", "Beverages", "Dairy", "Household", "Stationery"}

	for i := 0; i < numProducts; i++ {
		code := fmt.Sprintf("P%05d", i)
		tc.ProductCodes = append(tc.ProductCodes, code)

		products = append(products, model.Product{
			Code:     code,
			Name:     fmt.Sprintf("Product %05d", i),
			Barcode:  fmt.Sprintf("890%09d", i),
			Price:    float64(10 + rand.Intn(490)),
			Stock:    float64(rand.Intn(200)),
			Unit:     "PCS",
			Brand:    brands[i%len(brands)],
			Category: categories[i%len(categories)],
		})

		nBatches := 1 + rand.Intn(4)
		for b := 0; b < nBatches; b++ {
			mrp := float64(20 + rand.Intn(480))
			batches = append(batches, model.Batch{
				ProductCode: code,
				BatchNo:     fmt.Sprintf("B%d", b+1),
				MRP:         mrp,
				Retail:      mrp * 0.9,
				DP:          mrp * 0.8,
				NetRate:     mrp * 0.75,
				Quantity:    float64(rand.Intn(100)),
				ExpiryDate:  "2027-03-31",
			})
			tc.NumBatches++
		}

		for ph := 0; ph < rand.Intn(4); ph++ {
			photos = append(photos, model.ProductPhoto{
				ProductCode: code,
				URL:         fmt.Sprintf("https://img.example.com/%s/%d.jpg", code, ph),
				OrderIndex:  ph,
			})
		}

		for g := 0; g < rand.Intn(3); g++ {
			godowns = append(godowns, model.ProductGodown{
				ProductCode: code,
				Name:        fmt.Sprintf("Godown %d", g+1),
				Quantity:    float64(rand.Intn(50)),
			})
		}
	}

	ctx := context.Background()
	if err := st.SaveProducts(ctx, products); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to save products: %w", err)
	}
	if err := st.SaveBatchesBulk(ctx, batches); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to save batches: %w", err)
	}
	if err := st.SavePhotosBulk(ctx, photos); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to save photos: %w", err)
	}
	if err := st.SaveGodownsBulk(ctx, godowns); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to save godowns: %w", err)
	}

	return tc, nil
}

// Close closes the underlying store.
func (tc *TestCatalog) Close() error {
	return tc.Store.Close()
}

// RunListingLoad runs the assembler listing numQueries times with random
// pagination and returns latency statistics.
func (tc *TestCatalog) RunListingLoad(asm *assemble.Assembler, numQueries int) LatencyStats {
	stats := LatencyStats{Durations: make([]time.Duration, 0, numQueries)}
	ctx := context.Background()

	for i := 0; i < numQueries; i++ {
		filter := store.ProductFilter{
			Limit:  50,
			Offset: rand.Intn(tc.NumProducts/2 + 1),
		}

		start := time.Now()
		products := asm.ProductBatches(ctx, filter)
		elapsed := time.Since(start)

		if len(products) == 0 && filter.Offset < tc.NumProducts-1 {
			stats.Errors++
			continue
		}
		stats.Durations = append(stats.Durations, elapsed)
	}

	stats.compute()
	return stats
}

func (s *LatencyStats) compute() {
	s.TotalQueries = len(s.Durations) + s.Errors
	if len(s.Durations) == 0 {
		return
	}

	sorted := make([]time.Duration, len(s.Durations))
	copy(sorted, s.Durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.P50 = sorted[len(sorted)/2]
	s.P95 = sorted[len(sorted)*95/100]

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	s.Mean = total / time.Duration(len(sorted))
}
