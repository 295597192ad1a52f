package notificationservice

import (
	"log/slog"

	httpadapter "civicpulse/contexts/civic-reporting/notification-service/adapters/http"
	"civicpulse/contexts/civic-reporting/notification-service/adapters/memory"
	postgresadapter "civicpulse/contexts/civic-reporting/notification-service/adapters/postgres"
	"civicpulse/contexts/civic-reporting/notification-service/application"
	"civicpulse/contexts/civic-reporting/notification-service/ports"
)

// Module is the notification-service composition root exposed to runtime wiring.
type Module struct {
	Handler httpadapter.Handler
	Service application.Service
}

// Dependencies captures all runtime ports required by NewModule.
type Dependencies struct {
	Store       ports.NotificationStore
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	if deps.Clock == nil {
		deps.Clock = postgresadapter.SystemClock{}
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = postgresadapter.UUIDGenerator{}
	}
	service := application.Service{
		Store:       deps.Store,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{Service: service, Logger: deps.Logger},
		Service: service,
	}
}

// NewInMemoryModule builds a development/testing module backed by the
// in-memory store.
func NewInMemoryModule(logger *slog.Logger) Module {
	return NewModule(Dependencies{Store: memory.NewStore(), Logger: logger})
}
