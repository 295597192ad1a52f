package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
	"civicpulse/internal/shared/events"
)

// appendLifecycleOutbox records a pending outbox row for a lifecycle event.
// Best-effort: the issue write already committed, so failures are logged and
// the relay picks up whatever rows made it in.
func appendLifecycleOutbox(
	ctx context.Context,
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	ids ports.IDGenerator,
	issue entities.Issue,
	eventType string,
	now time.Time,
) {
	if outbox == nil {
		return
	}
	outboxID, err := ids.NewID(ctx)
	if err != nil {
		return
	}
	envelope := events.Envelope{
		EventID:        outboxID,
		EventType:      eventType,
		SourceService:  "civic-reporting/issue-service",
		OccurredAtUTC:  now,
		EntityType:     "issue",
		EntityID:       issue.IssueID,
		PayloadVersion: 1,
		Payload: map[string]any{
			"issue_id": issue.IssueID,
			"ward":     issue.Ward,
			"category": issue.Category,
			"status":   string(issue.Status),
		},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	if err := outbox.AppendOutbox(ctx, ports.OutboxMessage{
		OutboxID:  outboxID,
		EventType: eventType,
		Payload:   payload,
		Status:    "pending",
		CreatedAt: now,
	}); err != nil {
		logger.Warn("outbox append failed",
			"event", "issue_outbox_append_failed",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"issue_id", issue.IssueID,
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}
