package issueservice

import (
	"log/slog"
	"time"

	httpadapter "civicpulse/contexts/civic-reporting/issue-service/adapters/http"
	"civicpulse/contexts/civic-reporting/issue-service/adapters/memory"
	postgresadapter "civicpulse/contexts/civic-reporting/issue-service/adapters/postgres"
	"civicpulse/contexts/civic-reporting/issue-service/application/commands"
	"civicpulse/contexts/civic-reporting/issue-service/application/queries"
	"civicpulse/contexts/civic-reporting/issue-service/application/workers"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

// Module is the issue-service composition root exposed to runtime wiring.
type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Store       ports.IssueStore
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Store          ports.IssueStore
	Outbox         ports.OutboxRepository
	Idempotency    ports.IdempotencyStore
	Duplicates     ports.DuplicateChecker
	Directory      ports.WardDirectory
	Dispatcher     ports.NotificationDispatcher
	Publisher      ports.EventPublisher
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	OutboxTopic    string
	OutboxBatch    int
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	if deps.Clock == nil {
		deps.Clock = postgresadapter.SystemClock{}
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = postgresadapter.UUIDGenerator{}
	}

	handler := httpadapter.Handler{
		ReportIssue: commands.ReportIssueUseCase{
			Store:          deps.Store,
			Duplicates:     deps.Duplicates,
			Directory:      deps.Directory,
			Dispatcher:     deps.Dispatcher,
			Outbox:         deps.Outbox,
			Idempotency:    deps.Idempotency,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		TransitionIssue: commands.TransitionIssueUseCase{
			Store:       deps.Store,
			Directory:   deps.Directory,
			Dispatcher:  deps.Dispatcher,
			Outbox:      deps.Outbox,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		GetIssue:       queries.GetIssueUseCase{Store: deps.Store, Logger: deps.Logger},
		ListUserIssues: queries.ListUserIssuesUseCase{Store: deps.Store, Logger: deps.Logger},
		UserStats:      queries.UserStatsUseCase{Store: deps.Store, Logger: deps.Logger},
		WardStats:      queries.WardStatsUseCase{Store: deps.Store, Logger: deps.Logger},
		WardInsights:   queries.WardInsightsUseCase{Store: deps.Store, Logger: deps.Logger},
		Logger:         deps.Logger,
	}

	relay := workers.OutboxRelay{
		Outbox:    deps.Outbox,
		Publisher: deps.Publisher,
		Clock:     deps.Clock,
		Topic:     deps.OutboxTopic,
		BatchSize: deps.OutboxBatch,
		Logger:    deps.Logger,
	}

	return Module{Handler: handler, OutboxRelay: relay, Store: deps.Store}
}

// NewInMemoryModule builds a development/testing module backed by the
// in-memory store. The store doubles as outbox and idempotency storage.
func NewInMemoryModule(
	duplicates ports.DuplicateChecker,
	directory ports.WardDirectory,
	dispatcher ports.NotificationDispatcher,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	if directory == nil {
		directory = memory.NewWardDirectory(nil)
	}
	return NewModule(Dependencies{
		Store:       store,
		Outbox:      store,
		Idempotency: store,
		Duplicates:  duplicates,
		Directory:   directory,
		Dispatcher:  dispatcher,
		Publisher:   publisher,
		Logger:      logger,
	})
}
