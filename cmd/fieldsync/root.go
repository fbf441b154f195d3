package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sreejithpm/fieldsync/internal/api"
	"github.com/sreejithpm/fieldsync/internal/config"
	"github.com/sreejithpm/fieldsync/internal/store"
	"github.com/sreejithpm/fieldsync/internal/syncer"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fieldsync",
	Short: "Offline catalog cache and sync engine for field sales",
	Long: `fieldsync keeps a device-local copy of the sales backend catalog
(customers, products, batches, areas) in an embedded SQLite database and
queues offline-created collections and orders for upload.

Configuration lives in ` + "`~/.fieldsync/config.yaml`" + ` and can be
overridden with FIELDSYNC_* environment variables (FIELDSYNC_API_TOKEN,
FIELDSYNC_API_BASE_URL, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.fieldsync/config.yaml)")
}

// env bundles the dependencies most commands need: resolved config, the
// process logger, and the opened store.
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	store  *store.Store
}

func newEnv() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger()

	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	return &env{cfg: cfg, logger: logger, store: st}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.WithError(err).Warn("failed to close store")
	}
}

// orchestrator wires the remote client and store into a sync orchestrator.
// Commands that talk to the backend require api.base_url and api.token.
func (e *env) orchestrator() (*syncer.Orchestrator, error) {
	if e.cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is not configured (set FIELDSYNC_API_BASE_URL or edit config.yaml)")
	}
	if e.cfg.API.Token == "" {
		return nil, fmt.Errorf("api.token is not configured (set FIELDSYNC_API_TOKEN or edit config.yaml)")
	}

	client := api.New(e.cfg.API.BaseURL, e.cfg.API.Token, e.cfg.API.Timeout, e.logger)

	syncCfg := syncer.DefaultConfig()
	if e.cfg.Sync.ProductTimeout > 0 {
		syncCfg.ProductTimeout = e.cfg.Sync.ProductTimeout
	}
	if e.cfg.Sync.ProductAttempts > 0 {
		syncCfg.ProductAttempts = e.cfg.Sync.ProductAttempts
	}
	if e.cfg.Sync.BackoffBase > 0 {
		syncCfg.BackoffBase = e.cfg.Sync.BackoffBase
	}

	return syncer.New(e.store, client, syncCfg, e.logger), nil
}
