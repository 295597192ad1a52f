package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	duplicatedetection "civicpulse/contexts/civic-reporting/duplicate-detection"
	ddazure "civicpulse/contexts/civic-reporting/duplicate-detection/adapters/azureopenai"
	ddmemory "civicpulse/contexts/civic-reporting/duplicate-detection/adapters/memory"
	ddonnx "civicpulse/contexts/civic-reporting/duplicate-detection/adapters/onnx"
	ddports "civicpulse/contexts/civic-reporting/duplicate-detection/ports"
	issueservice "civicpulse/contexts/civic-reporting/issue-service"
	issuememory "civicpulse/contexts/civic-reporting/issue-service/adapters/memory"
	issuepostgres "civicpulse/contexts/civic-reporting/issue-service/adapters/postgres"
	issueworkers "civicpulse/contexts/civic-reporting/issue-service/application/workers"
	notificationservice "civicpulse/contexts/civic-reporting/notification-service"
	notificationmemory "civicpulse/contexts/civic-reporting/notification-service/adapters/memory"
	notificationpostgres "civicpulse/contexts/civic-reporting/notification-service/adapters/postgres"
	"civicpulse/internal/platform/config"
	"civicpulse/internal/platform/db"
	"civicpulse/internal/platform/httpserver"
	"civicpulse/internal/platform/messaging"
	"civicpulse/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  issueworkers.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

// Modules bundles the wired contexts for in-process composition and tests.
type Modules struct {
	Duplicates    duplicatedetection.Module
	Issues        issueservice.Module
	Notifications notificationservice.Module
	Metrics       *metrics.Metrics
	Bus           *messaging.Kafka
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	var pg *db.Postgres
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
	}

	modules, err := buildModules(cfg, pg, logger)
	if err != nil {
		if pg != nil {
			_ = pg.Close()
		}
		return nil, err
	}

	server := httpserver.New(
		modules.Duplicates,
		modules.Issues,
		modules.Notifications,
		modules.Metrics.Handler(),
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{server: server, postgres: pg, logger: logger}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	var pg *db.Postgres
	var outbox issueworkers.OutboxRelay

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := issuepostgres.NewRepository(pg.DB, logger)
		outbox = issueworkers.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     issuepostgres.SystemClock{},
			Topic:     cfg.OutboxTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		}
	} else {
		store := issuememory.NewStore()
		outbox = issueworkers.OutboxRelay{
			Outbox:    store,
			Publisher: kafka,
			Clock:     issuepostgres.SystemClock{},
			Topic:     cfg.OutboxTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		}
	}

	return &WorkerApp{
		postgres:     pg,
		outboxRelay:  outbox,
		pollInterval: cfg.OutboxInterval,
		logger:       logger,
	}, nil
}

// BuildInMemoryModules wires the full three-context composition against
// in-memory adapters. Used by the dev profile and end-to-end tests.
func BuildInMemoryModules(wardAdmins map[string]string, embedder ddports.EmbeddingProvider, logger *slog.Logger) (Modules, error) {
	cfg := config.Config{
		EmbeddingProvider:    "memory",
		EmbeddingTimeout:     10 * time.Second,
		EmbeddingConcurrency: 8,
		DedupThreshold:       0.75,
		DedupMaxMatches:      3,
		DedupFailOpen:        true,
		WardAdmins:           wardAdmins,
	}
	return wireModules(cfg, inMemoryStores(), embedder, logger)
}

type stores struct {
	issueStore        issueservice.Dependencies
	notificationStore notificationservice.Dependencies
}

func inMemoryStores() stores {
	issueStore := issuememory.NewStore()
	return stores{
		issueStore: issueservice.Dependencies{
			Store:       issueStore,
			Outbox:      issueStore,
			Idempotency: issueStore,
		},
		notificationStore: notificationservice.Dependencies{
			Store: notificationmemory.NewStore(),
		},
	}
}

func postgresStores(pg *db.Postgres, logger *slog.Logger) stores {
	repo := issuepostgres.NewRepository(pg.DB, logger)
	return stores{
		issueStore: issueservice.Dependencies{
			Store:       repo,
			Outbox:      repo,
			Idempotency: repo,
		},
		notificationStore: notificationservice.Dependencies{
			Store: notificationpostgres.NewStore(pg.DB, logger),
		},
	}
}

func buildModules(cfg config.Config, pg *db.Postgres, logger *slog.Logger) (Modules, error) {
	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return Modules{}, err
	}
	backing := inMemoryStores()
	if pg != nil {
		backing = postgresStores(pg, logger)
	}
	return wireModules(cfg, backing, embedder, logger)
}

func wireModules(cfg config.Config, backing stores, embedder ddports.EmbeddingProvider, logger *slog.Logger) (Modules, error) {
	m := metrics.New()
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return Modules{}, err
	}
	if embedder == nil {
		embedder = ddmemory.NewProvider()
	}

	notificationDeps := backing.notificationStore
	notificationDeps.Logger = logger
	notificationModule := notificationservice.NewModule(notificationDeps)

	ddModule := duplicatedetection.NewModule(duplicatedetection.Dependencies{
		Candidates:         issueCandidateSource{store: backing.issueStore.Store},
		Embedder:           metrics.InstrumentedEmbedder{Inner: embedder, Metrics: m},
		Threshold:          cfg.DedupThreshold,
		MaxMatches:         cfg.DedupMaxMatches,
		EmbedConcurrency:   cfg.EmbeddingConcurrency,
		EmbedTimeout:       cfg.EmbeddingTimeout,
		FailOpen:           cfg.DedupFailOpen,
		CategoryPrototypes: cfg.CategoryPrototypes,
		Logger:             logger,
	})

	issueDeps := backing.issueStore
	issueDeps.Duplicates = duplicateGate{service: ddModule.Service, metrics: m}
	issueDeps.Directory = issuememory.NewWardDirectory(cfg.WardAdmins)
	issueDeps.Dispatcher = lifecycleMetricsDispatcher{
		inner:   notificationDispatcher{service: notificationModule.Service},
		metrics: m,
	}
	issueDeps.Publisher = bus
	issueDeps.OutboxTopic = cfg.OutboxTopic
	issueDeps.OutboxBatch = cfg.OutboxBatchSize
	issueDeps.Logger = logger
	issueModule := issueservice.NewModule(issueDeps)

	return Modules{
		Duplicates:    ddModule,
		Issues:        issueModule,
		Notifications: notificationModule,
		Metrics:       m,
		Bus:           bus,
	}, nil
}

func buildEmbedder(cfg config.Config, logger *slog.Logger) (ddports.EmbeddingProvider, error) {
	switch cfg.EmbeddingProvider {
	case "azure-openai":
		return ddazure.New(ddazure.Options{
			Endpoint:          cfg.EmbeddingEndpoint,
			APIKey:            cfg.EmbeddingAPIKey,
			Timeout:           cfg.EmbeddingTimeout,
			RequestsPerSecond: cfg.EmbeddingRequestsPerSec,
			Logger:            logger,
		})
	case "onnx":
		return ddonnx.New(cfg.EmbeddingModelPath)
	case "memory", "":
		return ddmemory.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
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
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
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
