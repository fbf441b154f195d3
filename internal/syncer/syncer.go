// Package syncer owns the download state machine that reconciles the remote
// catalog into the local store.
//
// A download session moves idle -> init -> (customers || areas) -> products
// -> complete, with error as an absorbing state reachable from any stage.
// Customers and areas are independent and fetched concurrently with a
// fault-tolerant join: a failure in one is reported per-stage and does not
// cancel the other. The product stage carries the largest payload, so it gets
// its own long deadline and retry with exponential backoff.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sreejithpm/fieldsync/internal/model"
	"github.com/sreejithpm/fieldsync/internal/store"
)

// ErrSyncInProgress is returned when a download is started while another is
// still running. Only one session may be in flight.
var ErrSyncInProgress = errors.New("download already in progress")

// ErrProductTimeout is the user-facing error for a product payload that
// exceeded its deadline; callers render it as a "try again", not a generic
// network failure.
var ErrProductTimeout = errors.New("product download timed out, try again")

// Stage identifies a step of the download state machine.
type Stage string

const (
	StageInit      Stage = "init"
	StageCustomers Stage = "customers"
	StageAreas     Stage = "areas"
	StageProducts  Stage = "products"
	StageComplete  Stage = "complete"
	StageError     Stage = "error"
)

// Progress is one stage-transition report. Progress runs 0-100 across the
// whole session so a caller can drive a checklist without polling.
type Progress struct {
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
	Progress  int    `json:"progress"`
	Completed bool   `json:"completed"`
	Err       error  `json:"-"`
}

// ProgressFunc receives stage reports. It is passed into each download call
// rather than registered on the orchestrator, so two logical callers can
// never cross-talk through a shared mutable field.
type ProgressFunc func(Progress)

// RemoteAPI is the slice of the backend client the orchestrator consumes.
type RemoteAPI interface {
	GetCustomers(ctx context.Context) ([]model.Customer, error)
	GetAreas(ctx context.Context) ([]model.Area, error)
	GetProductDetails(ctx context.Context) ([]model.ProductWithBatches, error)
	SaveCollection(ctx context.Context, col model.OfflineCollection) error
	SaveOrder(ctx context.Context, ord model.OfflineOrder) error
}

// Config tunes the download session.
type Config struct {
	// ProductTimeout bounds one product-fetch attempt. The payload can be
	// large, so it gets a deadline well past the client default.
	ProductTimeout time.Duration
	// ProductAttempts is how many times the product stage is tried.
	ProductAttempts int
	// BackoffBase is the first retry wait; attempt n waits base * 2^(n-1).
	BackoffBase time.Duration
}

// DefaultConfig returns the production settings: 120s product deadline,
// 3 attempts, 2s/4s/8s backoff.
func DefaultConfig() Config {
	return Config{
		ProductTimeout:  120 * time.Second,
		ProductAttempts: 3,
		BackoffBase:     2 * time.Second,
	}
}

// Result summarizes a download session. Customer/area failures are partial:
// they land here rather than in the session error.
type Result struct {
	Customers   int
	Areas       int
	Products    int
	Batches     int
	Photos      int
	Godowns     int
	CustomerErr error
	AreaErr     error
	Duration    time.Duration
}

// Orchestrator drives download and upload sessions against one store.
type Orchestrator struct {
	store  *store.Store
	api    RemoteAPI
	config Config
	log    *logrus.Entry

	// sleep is swapped for a fake in backoff tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	downloading bool
}

// New creates an Orchestrator. If logger is nil, the logrus standard logger
// is used.
func New(st *store.Store, remote RemoteAPI, config Config, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		store:  st,
		api:    remote,
		config: config,
		log:    logger.WithField("component", "syncer"),
		sleep:  sleepCtx,
	}
}

// IsDownloading reports whether a session is in flight.
func (o *Orchestrator) IsDownloading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.downloading
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.downloading {
		return ErrSyncInProgress
	}
	o.downloading = true
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.downloading = false
	o.mu.Unlock()
}

// DownloadAll runs a full download session: customers and areas in parallel,
// then the product catalog. forceRefresh clears the server-sourced cache
// first; pending offline uploads always survive.
//
// Cancellation is cooperative through ctx and is shared by every stage. The
// in-flight guard is released on every exit path.
func (o *Orchestrator) DownloadAll(ctx context.Context, forceRefresh bool, progress ProgressFunc) (*Result, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.end()

	if progress == nil {
		progress = func(Progress) {}
	}

	start := time.Now()
	result := &Result{}

	// One cancel scope for the whole session; a caller cancel tears down
	// the parallel fetches and the product fetch together.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress(Progress{Stage: StageInit, Message: "Preparing download", Progress: 0})

	if forceRefresh {
		if err := o.store.ClearDownloadableData(ctx); err != nil {
			progress(Progress{Stage: StageError, Message: "Failed to clear cache", Progress: 0, Err: err})
			return nil, fmt.Errorf("failed to clear downloadable data: %w", err)
		}
	}

	// Customers and areas are independent; run both, fail independently.
	// errgroup.Group without a derived context keeps one stage's failure
	// from cancelling the other.
	var g errgroup.Group
	g.Go(func() error {
		n, err := o.downloadCustomers(ctx)
		result.Customers = n
		result.CustomerErr = err
		o.reportStage(progress, StageCustomers, "Customers", 35, err)
		return nil
	})
	g.Go(func() error {
		n, err := o.downloadAreas(ctx)
		result.Areas = n
		result.AreaErr = err
		o.reportStage(progress, StageAreas, "Areas", 50, err)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		progress(Progress{Stage: StageError, Message: "Download cancelled", Err: err})
		return nil, err
	}

	if err := o.downloadProducts(ctx, progress, result); err != nil {
		progress(Progress{Stage: StageError, Message: "Product download failed", Err: err})
		return nil, err
	}

	if err := o.store.SetLastSyncTime(ctx, time.Now()); err != nil {
		o.log.WithError(err).Warn("failed to record last sync time")
	}

	result.Duration = time.Since(start)
	progress(Progress{Stage: StageComplete, Message: "Download complete", Progress: 100, Completed: true})
	o.log.WithFields(logrus.Fields{
		"customers": result.Customers,
		"areas":     result.Areas,
		"products":  result.Products,
		"batches":   result.Batches,
		"duration":  result.Duration,
	}).Info("download session complete")

	return result, nil
}

func (o *Orchestrator) reportStage(progress ProgressFunc, stage Stage, label string, pct int, err error) {
	if err != nil {
		o.log.WithError(err).Warnf("%s stage failed", stage)
		progress(Progress{Stage: stage, Message: label + " failed", Progress: pct, Err: err})
		return
	}
	progress(Progress{Stage: stage, Message: label + " downloaded", Progress: pct, Completed: true})
}

func (o *Orchestrator) downloadCustomers(ctx context.Context) (int, error) {
	customers, err := o.api.GetCustomers(ctx)
	if err != nil {
		return 0, err
	}
	if err := o.store.SaveCustomers(ctx, customers); err != nil {
		return 0, err
	}
	return len(customers), nil
}

func (o *Orchestrator) downloadAreas(ctx context.Context) (int, error) {
	areas, err := o.api.GetAreas(ctx)
	if err != nil {
		return 0, err
	}
	if len(areas) == 0 {
		// Server has no area list; the store derives areas from
		// customer area/place values on read instead.
		return 0, nil
	}
	if err := o.store.SaveAreas(ctx, areas); err != nil {
		return 0, err
	}
	return len(areas), nil
}

// downloadProducts fetches the product-with-batches payload with retry and
// backoff, then bulk-persists it: exactly one insert pass per entity type for
// the whole catalog, instead of per-product round trips.
func (o *Orchestrator) downloadProducts(ctx context.Context, progress ProgressFunc, result *Result) error {
	progress(Progress{Stage: StageProducts, Message: "Downloading products", Progress: 60})

	var products []model.ProductWithBatches
	var lastErr error

	for attempt := 1; attempt <= o.config.ProductAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.config.ProductTimeout)
		products, lastErr = o.api.GetProductDetails(attemptCtx)
		cancel()

		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(lastErr, context.DeadlineExceeded) {
			lastErr = ErrProductTimeout
		}

		if attempt < o.config.ProductAttempts {
			wait := o.config.BackoffBase << (attempt - 1)
			o.log.WithError(lastErr).Warnf("product fetch attempt %d/%d failed, retrying in %s",
				attempt, o.config.ProductAttempts, wait)
			if err := o.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}

	progress(Progress{Stage: StageProducts, Message: "Saving products", Progress: 80})

	// Flatten every product's children into three catalog-wide lists,
	// already tagged with product_code by the normalizer.
	flat := make([]model.Product, 0, len(products))
	var batches []model.Batch
	var photos []model.ProductPhoto
	var godowns []model.ProductGodown
	for _, p := range products {
		flat = append(flat, p.Product)
		batches = append(batches, p.Batches...)
		photos = append(photos, p.Photos...)
		godowns = append(godowns, p.Godowns...)
	}

	if err := o.store.SaveProducts(ctx, flat); err != nil {
		return fmt.Errorf("failed to save products: %w", err)
	}
	if err := o.store.SaveBatchesBulk(ctx, batches); err != nil {
		return fmt.Errorf("failed to save batches: %w", err)
	}
	if err := o.store.SavePhotosBulk(ctx, photos); err != nil {
		return fmt.Errorf("failed to save photos: %w", err)
	}
	if err := o.store.SaveGodownsBulk(ctx, godowns); err != nil {
		return fmt.Errorf("failed to save godowns: %w", err)
	}

	result.Products = len(flat)
	result.Batches = len(batches)
	result.Photos = len(photos)
	result.Godowns = len(godowns)

	progress(Progress{Stage: StageProducts, Message: "Products downloaded", Progress: 95, Completed: true})
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
