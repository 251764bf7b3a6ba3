package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	contributionledger "tessera/contexts/value-attribution/contribution-ledger"
	ledgerpostgres "tessera/contexts/value-attribution/contribution-ledger/adapters/postgres"
	ledgerworkers "tessera/contexts/value-attribution/contribution-ledger/application/workers"
	distributionengine "tessera/contexts/value-attribution/distribution-engine"
	engineledger "tessera/contexts/value-attribution/distribution-engine/adapters/ledger"
	enginememory "tessera/contexts/value-attribution/distribution-engine/adapters/memory"
	enginepostgres "tessera/contexts/value-attribution/distribution-engine/adapters/postgres"
	engineworkers "tessera/contexts/value-attribution/distribution-engine/application/workers"
	"tessera/internal/platform/config"
	"tessera/internal/platform/db"
	"tessera/internal/platform/httpserver"
	"tessera/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres          *db.Postgres
	ledgerRelay       ledgerworkers.OutboxRelay
	distributionRelay engineworkers.OutboxRelay
	runLedgerRelay    bool
	runDistRelay      bool
	pollInterval      time.Duration
	logger            *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	ledgerModule := contributionledger.NewModule(contributionledger.Dependencies{
		Repository: ledgerRepo,
		Clock:      ledgerpostgres.SystemClock{},
		IDGen:      ledgerpostgres.UUIDGenerator{},
		Outbox:     ledgerRepo,
		Logger:     logger,
	})

	engineRepo := enginepostgres.NewRepository(pg.DB, logger)
	engineModule := distributionengine.NewModule(distributionengine.Dependencies{
		Resolver:   engineledger.NewResolver(ledgerRepo),
		Repository: engineRepo,
		Locks:      enginememory.NewLockTable(),
		Clock:      enginepostgres.SystemClock{},
		IDGen:      enginepostgres.UUIDGenerator{},
		Outbox:     engineRepo,
		RunTimeout: cfg.DistributionRunTimeout,
		Logger:     logger,
	})

	server := httpserver.New(ledgerModule, engineModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	engineRepo := enginepostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		ledgerRelay: ledgerworkers.OutboxRelay{
			Outbox:    ledgerRepo,
			Publisher: kafka,
			Clock:     ledgerpostgres.SystemClock{},
			Topic:     "ledger.contribution.recorded",
			BatchSize: 100,
			Logger:    logger,
		},
		distributionRelay: engineworkers.OutboxRelay{
			Outbox:    engineRepo,
			Publisher: kafka,
			Clock:     enginepostgres.SystemClock{},
			Topic:     "distribution.completed",
			BatchSize: 100,
			Logger:    logger,
		},
		runLedgerRelay: cfg.EnableLedgerOutboxRelay,
		runDistRelay:   cfg.EnableDistributionOutboxRelay,
		pollInterval:   2 * time.Second,
		logger:         logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"ledger_relay_enabled", w.runLedgerRelay,
		"distribution_relay_enabled", w.runDistRelay,
	)

	for {
		if w.runLedgerRelay {
			if err := w.ledgerRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.runDistRelay {
			if err := w.distributionRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
