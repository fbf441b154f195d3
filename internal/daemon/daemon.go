// Package daemon runs the periodic auto-sync loop.
//
// The daemon alternates two jobs on independent intervals: uploading pending
// offline collections/orders, and refreshing the downloaded catalog. Both go
// through the orchestrator, whose single-flight guard means a daemon cycle
// and a manually triggered sync can never run concurrently; whichever starts
// second fails fast and is retried on the next tick.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sreejithpm/fieldsync/internal/syncer"
)

// Config holds daemon configuration.
type Config struct {
	// RefreshInterval is how often the catalog is re-downloaded.
	RefreshInterval time.Duration

	// UploadInterval is how often pending offline records are pushed.
	UploadInterval time.Duration

	// Logger for daemon activity.
	Logger *logrus.Logger
}

// DefaultConfig returns sensible defaults: push pending writes every minute,
// refresh the catalog every six hours.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval: 6 * time.Hour,
		UploadInterval:  time.Minute,
	}
}

// Daemon orchestrates the periodic upload and refresh cycles.
type Daemon struct {
	orch   *syncer.Orchestrator
	config *Config
	log    *logrus.Entry

	// OnProgress, when set, receives download stage reports (e.g. from a
	// dashboard server). Set before Start.
	OnProgress syncer.ProgressFunc

	// OnUpload, when set, receives each upload pass result.
	OnUpload func(syncer.UploadResult)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon over the given orchestrator.
func New(orch *syncer.Orchestrator, config *Config) *Daemon {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		orch:   orch,
		config: config,
		log:    logger.WithField("component", "daemon"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start runs the daemon until ctx is cancelled or Stop is called. An upload
// pass runs immediately on startup; the first catalog refresh waits one full
// interval so app launch isn't competing with a UI-triggered download.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Info("starting auto-sync daemon")

	d.uploadPass()

	d.wg.Add(2)
	go d.uploadLoop()
	go d.refreshLoop()

	select {
	case <-ctx.Done():
		d.log.Info("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.cancel()
	d.wg.Wait()
	d.log.Info("daemon stopped")
	return nil
}

func (d *Daemon) uploadLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.UploadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.uploadPass()
		}
	}
}

func (d *Daemon) uploadPass() {
	result, err := d.orch.UploadPending(d.ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.log.WithError(err).Warn("upload pass failed")
		}
		return
	}
	if result.Total() > 0 || result.Pending() > 0 {
		d.log.WithFields(logrus.Fields{
			"uploaded": result.Total(),
			"pending":  result.Pending(),
		}).Info("upload pass finished")
		if d.OnUpload != nil {
			d.OnUpload(result)
		}
	}
}

func (d *Daemon) refreshLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.refreshPass()
		}
	}
}

func (d *Daemon) refreshPass() {
	_, err := d.orch.DownloadAll(d.ctx, false, d.OnProgress)
	if err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			// A manual sync holds the guard; skip this cycle.
			d.log.Debug("refresh skipped, sync already running")
			return
		}
		if !errors.Is(err, context.Canceled) {
			d.log.WithError(err).Warn("catalog refresh failed")
		}
		return
	}
	d.log.Info("catalog refresh complete")
}
