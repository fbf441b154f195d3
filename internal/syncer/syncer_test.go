package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sreejithpm/fieldsync/internal/model"
	"github.com/sreejithpm/fieldsync/internal/store"
)

// fakeAPI is a scriptable RemoteAPI. Each fetch can be made to fail for the
// first N calls, and every call is counted.
type fakeAPI struct {
	mu sync.Mutex

	customers []model.Customer
	areas     []model.Area
	products  []model.ProductWithBatches

	customerErr error
	areaErr     error

	productFailures  int
	productErr       error
	productCalls     int
	productRemaining time.Duration

	saveCollectionErr error
	saveOrderErr      error
	savedCollections  []string
	savedOrders       []string
}

func (f *fakeAPI) GetCustomers(ctx context.Context) ([]model.Customer, error) {
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	return f.customers, nil
}

func (f *fakeAPI) GetAreas(ctx context.Context) ([]model.Area, error) {
	if f.areaErr != nil {
		return nil, f.areaErr
	}
	return f.areas, nil
}

func (f *fakeAPI) GetProductDetails(ctx context.Context) ([]model.ProductWithBatches, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if deadline, ok := ctx.Deadline(); ok {
		f.productRemaining = time.Until(deadline)
	}
	if f.productCalls <= f.productFailures {
		err := f.productErr
		if err == nil {
			err = fmt.Errorf("transient failure %d", f.productCalls)
		}
		return nil, err
	}
	return f.products, nil
}

func (f *fakeAPI) SaveCollection(ctx context.Context, col model.OfflineCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveCollectionErr != nil {
		return f.saveCollectionErr
	}
	f.savedCollections = append(f.savedCollections, col.LocalID)
	return nil
}

func (f *fakeAPI) SaveOrder(ctx context.Context, ord model.OfflineOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveOrderErr != nil {
		return f.saveOrderErr
	}
	f.savedOrders = append(f.savedOrders, ord.LocalID)
	return nil
}

func testOrchestrator(t *testing.T, api *fakeAPI) (*Orchestrator, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := Config{ProductTimeout: time.Second, ProductAttempts: 3, BackoffBase: 2 * time.Second}
	o := New(st, api, cfg, nil)
	// Tests never actually wait out the backoff.
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o, st
}

func catalogAPI() *fakeAPI {
	return &fakeAPI{
		customers: []model.Customer{
			{Code: "C1", Name: "Corner Store", SuperCode: model.SuperCodeDebtor},
			{Code: "C2", Name: "Beach Shop"},
		},
		areas: []model.Area{{Name: "North"}, {Name: "South"}},
		products: []model.ProductWithBatches{
			{
				Product: model.Product{Code: "P1", Name: "Soap"},
				Batches: []model.Batch{{ProductCode: "P1", BatchNo: "B1", MRP: 20}},
				Photos:  []model.ProductPhoto{{ProductCode: "P1", URL: "https://img.example.com/1.jpg"}},
				Godowns: []model.ProductGodown{{ProductCode: "P1", Name: "Main", Quantity: 5}},
			},
			{
				Product: model.Product{Code: "P2", Name: "Cola"},
				Batches: []model.Batch{},
				Photos:  []model.ProductPhoto{},
				Godowns: []model.ProductGodown{},
			},
		},
	}
}

func TestDownloadAllHappyPath(t *testing.T) {
	api := catalogAPI()
	o, st := testOrchestrator(t, api)

	// The customer and area stages report concurrently.
	var stagesMu sync.Mutex
	var stages []Stage
	result, err := o.DownloadAll(context.Background(), false, func(p Progress) {
		stagesMu.Lock()
		stages = append(stages, p.Stage)
		stagesMu.Unlock()
	})
	if err != nil {
		t.Fatalf("DownloadAll: %v", err)
	}

	if result.Customers != 2 || result.Areas != 2 || result.Products != 2 || result.Batches != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.CustomerErr != nil || result.AreaErr != nil {
		t.Errorf("partial errors on happy path: %v / %v", result.CustomerErr, result.AreaErr)
	}

	if stages[0] != StageInit {
		t.Errorf("first stage = %s", stages[0])
	}
	if stages[len(stages)-1] != StageComplete {
		t.Errorf("last stage = %s", stages[len(stages)-1])
	}

	ctx := context.Background()
	customers, err := st.GetCustomers(ctx, "")
	if err != nil {
		t.Fatalf("get customers: %v", err)
	}
	if len(customers) != 2 {
		t.Errorf("persisted %d customers", len(customers))
	}

	last, err := st.LastSyncTime(ctx)
	if err != nil {
		t.Fatalf("last sync: %v", err)
	}
	if last.IsZero() {
		t.Error("last sync time not recorded")
	}
}

func TestDownloadAllSingleFlight(t *testing.T) {
	api := catalogAPI()
	o, _ := testOrchestrator(t, api)

	release := make(chan struct{})
	started := make(chan struct{})

	// Hold the first session open inside the customer fetch.
	blocking := &fakeAPI{customers: api.customers, areas: api.areas, products: api.products}
	o.api = &blockingAPI{fakeAPI: blocking, started: started, release: release}

	done := make(chan error, 1)
	go func() {
		_, err := o.DownloadAll(context.Background(), false, nil)
		done <- err
	}()

	<-started
	if _, err := o.DownloadAll(context.Background(), false, nil); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent download error = %v, want ErrSyncInProgress", err)
	}
	if !o.IsDownloading() {
		t.Error("IsDownloading = false while session in flight")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first download: %v", err)
	}

	// Guard released: a new session may start.
	if _, err := o.DownloadAll(context.Background(), false, nil); err != nil {
		t.Errorf("download after release: %v", err)
	}
}

// blockingAPI parks GetCustomers until released so tests can observe an
// in-flight session.
type blockingAPI struct {
	*fakeAPI
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingAPI) GetCustomers(ctx context.Context) ([]model.Customer, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.fakeAPI.GetCustomers(ctx)
}

func TestDownloadAllPartialFailure(t *testing.T) {
	api := catalogAPI()
	api.customerErr = errors.New("customers endpoint down")
	o, st := testOrchestrator(t, api)

	result, err := o.DownloadAll(context.Background(), false, nil)
	if err != nil {
		t.Fatalf("DownloadAll: %v (customer failure must stay partial)", err)
	}
	if result.CustomerErr == nil {
		t.Error("customer error not reported")
	}
	if result.AreaErr != nil {
		t.Errorf("area stage affected by customer failure: %v", result.AreaErr)
	}
	if result.Areas != 2 || result.Products != 2 {
		t.Errorf("surviving stages incomplete: %+v", result)
	}

	// The failed stage saved nothing; the rest did.
	areas, err := st.GetAreas(context.Background())
	if err != nil {
		t.Fatalf("get areas: %v", err)
	}
	if len(areas) != 2 {
		t.Errorf("areas = %d", len(areas))
	}
}

func TestDownloadProductsRetriesWithBackoff(t *testing.T) {
	api := catalogAPI()
	api.productFailures = 2
	o, _ := testOrchestrator(t, api)

	var waits []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	result, err := o.DownloadAll(context.Background(), false, nil)
	if err != nil {
		t.Fatalf("DownloadAll: %v", err)
	}
	if result.Products != 2 {
		t.Errorf("products = %d", result.Products)
	}
	if api.productCalls != 3 {
		t.Errorf("product calls = %d, want 3", api.productCalls)
	}
	// Waits double: base, then base*2.
	if len(waits) != 2 || waits[0] != 2*time.Second || waits[1] != 4*time.Second {
		t.Errorf("backoff waits = %v, want [2s 4s]", waits)
	}
}

func TestDownloadProductsExhaustsAttempts(t *testing.T) {
	api := catalogAPI()
	api.productFailures = 99
	o, _ := testOrchestrator(t, api)

	_, err := o.DownloadAll(context.Background(), false, nil)
	if err == nil {
		t.Fatal("expected failure after exhausted attempts")
	}
	if api.productCalls != 3 {
		t.Errorf("product calls = %d, want exactly 3", api.productCalls)
	}
	if o.IsDownloading() {
		t.Error("guard not released after failure")
	}
}

func TestDownloadProductsAttemptDeadline(t *testing.T) {
	api := catalogAPI()
	o, _ := testOrchestrator(t, api)
	o.config.ProductTimeout = 45 * time.Minute

	if _, err := o.DownloadAll(context.Background(), false, nil); err != nil {
		t.Fatalf("DownloadAll: %v", err)
	}
	// Each attempt gets its own ProductTimeout deadline, not some tighter
	// bound imposed further down the stack.
	if api.productRemaining <= 44*time.Minute || api.productRemaining > 45*time.Minute {
		t.Errorf("deadline remaining at fetch = %s, want about 45m", api.productRemaining)
	}
}

func TestDownloadProductsTimeoutError(t *testing.T) {
	api := catalogAPI()
	api.productFailures = 99
	api.productErr = context.DeadlineExceeded
	o, _ := testOrchestrator(t, api)

	_, err := o.DownloadAll(context.Background(), false, nil)
	if !errors.Is(err, ErrProductTimeout) {
		t.Errorf("error = %v, want ErrProductTimeout", err)
	}
}

func TestDownloadAllCancellation(t *testing.T) {
	api := catalogAPI()
	api.productFailures = 99
	o, _ := testOrchestrator(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	o.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := o.DownloadAll(ctx, false, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if o.IsDownloading() {
		t.Error("guard not released after cancellation")
	}
}

func TestDownloadAllForceRefresh(t *testing.T) {
	api := catalogAPI()
	o, st := testOrchestrator(t, api)
	ctx := context.Background()

	// Stale product the server no longer carries, plus a pending upload.
	if err := st.SaveProducts(ctx, []model.Product{{Code: "OLD", Name: "Gone"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	col := &model.OfflineCollection{CustomerCode: "C1", Amount: 10, PaymentType: model.PaymentCash}
	if err := st.SaveOfflineCollection(ctx, col); err != nil {
		t.Fatalf("seed collection: %v", err)
	}

	if _, err := o.DownloadAll(ctx, true, nil); err != nil {
		t.Fatalf("DownloadAll: %v", err)
	}

	stale, err := st.ListProducts(ctx, store.ProductFilter{Search: "OLD"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stale) != 0 {
		t.Error("stale product survived force refresh")
	}
	stats, err := st.GetDataStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCollections != 1 {
		t.Error("pending upload lost on force refresh")
	}
}
