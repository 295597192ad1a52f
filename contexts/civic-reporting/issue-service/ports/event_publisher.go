package ports

import (
	"context"

	"civicpulse/internal/shared/events"
)

// EventPublisher hands envelopes to the platform event bus. Used by the
// outbox relay worker, never directly by commands.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, envelope events.Envelope) error
}
