package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "civicpulse/contexts/civic-reporting/issue-service/application"
	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

type TransitionIssueCommand struct {
	IssueID  string
	Action   entities.Action
	ActorID  string
	Feedback string
}

type TransitionIssueResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Issue   entities.Issue `json:"issue"`
}

// TransitionIssueUseCase applies one state-machine edge under ward-admin
// authorization, with compare-and-swap against concurrent transitions.
type TransitionIssueUseCase struct {
	Store       ports.IssueStore
	Directory   ports.WardDirectory
	Dispatcher  ports.NotificationDispatcher
	Outbox      ports.OutboxRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u TransitionIssueUseCase) Execute(ctx context.Context, cmd TransitionIssueCommand) (TransitionIssueResult, error) {
	logger := application.ResolveLogger(u.Logger)

	cmd.IssueID = strings.TrimSpace(cmd.IssueID)
	cmd.ActorID = strings.TrimSpace(cmd.ActorID)
	if cmd.IssueID == "" || cmd.ActorID == "" {
		return TransitionIssueResult{}, domainerrors.ErrInvalidRequest
	}
	transition, ok := entities.TransitionFor(cmd.Action)
	if !ok {
		return TransitionIssueResult{}, domainerrors.ErrInvalidRequest
	}

	updated, err := u.attempt(ctx, cmd, transition)
	if errors.Is(err, domainerrors.ErrStoreConflict) {
		// One retry with a fresh read; a second conflict means the caller
		// should re-fetch and reassess, so it surfaces as invalid transition.
		logger.Warn("transition lost concurrent write race, retrying once",
			"event", "issue_transition_conflict_retry",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"issue_id", cmd.IssueID,
			"action", string(cmd.Action),
		)
		updated, err = u.attempt(ctx, cmd, transition)
		if errors.Is(err, domainerrors.ErrStoreConflict) {
			err = domainerrors.ErrInvalidTransition
		}
	}
	if err != nil {
		return TransitionIssueResult{}, err
	}

	now := u.now()
	u.dispatchLifecycleEvent(ctx, logger, updated, transition, now)
	appendLifecycleOutbox(ctx, logger, u.Outbox, u.IDGenerator, updated, transition.EventType, now)

	logger.Info("issue transitioned",
		"event", "issue_transitioned",
		"module", "civic-reporting/issue-service",
		"layer", "application",
		"issue_id", updated.IssueID,
		"action", string(cmd.Action),
		"from_status", string(transition.From),
		"to_status", string(transition.To),
		"actor_id", cmd.ActorID,
	)
	return TransitionIssueResult{
		Success: true,
		Message: fmt.Sprintf("issue %s %s", updated.IssueID, transition.To),
		Issue:   updated,
	}, nil
}

func (u TransitionIssueUseCase) attempt(
	ctx context.Context,
	cmd TransitionIssueCommand,
	transition entities.Transition,
) (entities.Issue, error) {
	issue, err := u.Store.FindByID(ctx, cmd.IssueID)
	if err != nil {
		return entities.Issue{}, err
	}

	adminID, ok, err := u.Directory.AdminFor(ctx, issue.Ward)
	if err != nil {
		return entities.Issue{}, err
	}
	if !ok || adminID != cmd.ActorID {
		return entities.Issue{}, domainerrors.ErrForbidden
	}

	// Strict source-state check: acting on an issue already in (or past)
	// the target state is rejected, not treated as a no-op.
	if issue.Status != transition.From {
		return entities.Issue{}, domainerrors.ErrInvalidTransition
	}

	return u.Store.UpdateStatus(ctx, ports.UpdateStatusInput{
		IssueID:         issue.IssueID,
		FromStatus:      transition.From,
		ToStatus:        transition.To,
		ExpectedVersion: issue.Version,
		AdminFeedback:   strings.TrimSpace(cmd.Feedback),
		UpdatedAt:       u.now(),
	})
}

func (u TransitionIssueUseCase) dispatchLifecycleEvent(
	ctx context.Context,
	logger *slog.Logger,
	issue entities.Issue,
	transition entities.Transition,
	now time.Time,
) {
	if u.Dispatcher == nil {
		return
	}
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		logger.Warn("lifecycle event id generation failed",
			"event", "issue_notification_dispatch_failed",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"issue_id", issue.IssueID,
			"error", err.Error(),
		)
		return
	}

	event := ports.LifecycleEvent{
		EventID:     eventID,
		Type:        transition.EventType,
		RecipientID: issue.ReporterID,
		IssueID:     issue.IssueID,
		Category:    issue.Category,
		Title:       issue.Title,
		Ward:        issue.Ward,
		Message:     transitionMessage(issue, transition.To),
		OccurredAt:  now,
	}
	if err := u.Dispatcher.Dispatch(ctx, event); err != nil {
		// Best-effort delivery: the transition already committed.
		logger.Warn("lifecycle event dispatch failed",
			"event", "issue_notification_dispatch_failed",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"issue_id", issue.IssueID,
			"recipient_id", issue.ReporterID,
			"event_type", transition.EventType,
			"error", err.Error(),
		)
	}
}

func transitionMessage(issue entities.Issue, to entities.Status) string {
	switch to {
	case entities.StatusVerified:
		return fmt.Sprintf("Your issue %q has been verified by the ward administrator.", issue.Title)
	case entities.StatusResolved:
		return fmt.Sprintf("Your issue %q has been resolved.", issue.Title)
	case entities.StatusCancelled:
		message := fmt.Sprintf("Your issue %q was reviewed and cancelled.", issue.Title)
		if issue.AdminFeedback != "" {
			message += " Feedback: " + issue.AdminFeedback
		}
		return message
	default:
		return fmt.Sprintf("Your issue %q status changed to %s.", issue.Title, to)
	}
}

func (u TransitionIssueUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
