package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradesync/config"
	"github.com/rustyeddy/tradesync/internal/logger"
	"github.com/rustyeddy/tradesync/internal/trace"
	"github.com/rustyeddy/tradesync/journal"
	"github.com/rustyeddy/tradesync/notify"
	"github.com/rustyeddy/tradesync/recon"
	"github.com/rustyeddy/tradesync/service"
	"github.com/rustyeddy/tradesync/staging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const envUser = config.EnvUserID

// app holds everything a command needs, built from the config.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	journal journal.Journal
	store   staging.Store
	pub     notify.Publisher
	hub     *notify.Hub
	rec     *service.Reconciler
	batches *service.Batches

	closers []func(context.Context) error
}

func loadConfig() (*config.Config, error) {
	config.LoadDotEnv()
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	cfg := config.Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if userID != "" {
		cfg.UserID = userID
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func(context.Context) error {
		_ = log.Sync()
		return nil
	})

	shutdown, err := trace.Setup(ctx, trace.Options{Enabled: cfg.Tracing, Version: version})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	a.journal, err = journal.Open(ctx, cfg.Journal)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("open journal: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.journal.Close() })

	a.store, err = staging.Open(cfg.Staging)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("open staging: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })

	configured, err := notify.Open(cfg.Notify, log)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("notify: %w", err)
	}
	// Commands that follow progress subscribe to the hub.
	a.hub = notify.NewHub(0)
	pub := notify.Multi{configured, a.hub}
	a.pub = pub
	a.closers = append(a.closers, func(context.Context) error { return pub.Close() })

	specs := cfg.Specs()
	if src, ok := a.journal.(journal.SpecSource); ok {
		stored, err := src.ContractSpecs(ctx)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("load contract specs: %w", err)
		}
		specs.Merge(stored)
	}

	engine := recon.NewEngine(specs, recon.WithLogger(log.Named("recon")))
	a.rec = service.NewReconciler(engine, a.journal, a.pub, log.Named("service"))
	a.batches = service.NewBatches(a.store, a.rec, log)
	return a, nil
}

func (a *app) user() (string, error) {
	if a.cfg.UserID == "" {
		return "", fmt.Errorf("no user id: pass --user or set %s", envUser)
	}
	return a.cfg.UserID, nil
}

func (a *app) querier() (journal.Querier, error) {
	q, ok := a.journal.(journal.Querier)
	if !ok {
		return nil, fmt.Errorf("journal type %q does not support queries", a.cfg.Journal.Type)
	}
	return q, nil
}

// Close releases resources in reverse order of creation.
func (a *app) Close(ctx context.Context) error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i](ctx))
	}
	return err
}
