package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "civicpulse/contexts/civic-reporting/issue-service/application"
	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

// ReportIssueCommand contains transport-agnostic input for a new report.
type ReportIssueCommand struct {
	IdempotencyKey string
	Title          string
	Category       string
	Description    string
	Ward           string
	Location       entities.Location
	Images         []string
	ReporterID     string
	// Confirmed means the reporter has already seen the duplicate matches
	// and chose to file anyway, so the advisory gate is skipped.
	Confirmed bool
}

// ReportIssueResult carries either the created issue or the duplicate
// matches that paused the submission.
type ReportIssueResult struct {
	Created    bool                   `json:"created"`
	Issue      entities.Issue         `json:"issue"`
	Duplicates []ports.DuplicateMatch `json:"duplicates,omitempty"`
	Replayed   bool                   `json:"replayed"`
}

// ReportIssueUseCase runs the advisory duplicate gate, persists the issue,
// records an outbox row, and notifies the ward administrator.
type ReportIssueUseCase struct {
	Store          ports.IssueStore
	Duplicates     ports.DuplicateChecker
	Directory      ports.WardDirectory
	Dispatcher     ports.NotificationDispatcher
	Outbox         ports.OutboxRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func (u ReportIssueUseCase) Execute(ctx context.Context, cmd ReportIssueCommand) (ReportIssueResult, error) {
	logger := application.ResolveLogger(u.Logger)

	cmd.Title = strings.TrimSpace(cmd.Title)
	cmd.Category = strings.TrimSpace(cmd.Category)
	cmd.Description = strings.TrimSpace(cmd.Description)
	cmd.Ward = strings.TrimSpace(cmd.Ward)
	cmd.ReporterID = strings.TrimSpace(cmd.ReporterID)
	if cmd.Title == "" || cmd.Category == "" || cmd.Description == "" || cmd.Ward == "" || cmd.ReporterID == "" {
		return ReportIssueResult{}, domainerrors.ErrInvalidRequest
	}
	if cmd.Location.Latitude < -90 || cmd.Location.Latitude > 90 ||
		cmd.Location.Longitude < -180 || cmd.Location.Longitude > 180 {
		return ReportIssueResult{}, domainerrors.ErrInvalidRequest
	}

	replay, found, err := u.lookupReplay(ctx, cmd)
	if err != nil {
		return ReportIssueResult{}, err
	}
	if found {
		return replay, nil
	}

	if u.Duplicates != nil && !cmd.Confirmed {
		advisory, err := u.Duplicates.CheckDuplicates(ctx, cmd.Ward, cmd.Category, cmd.Description)
		if err != nil {
			return ReportIssueResult{}, err
		}
		if advisory.IsDuplicate {
			logger.Info("submission paused on duplicate matches",
				"event", "issue_report_duplicates_found",
				"module", "civic-reporting/issue-service",
				"layer", "application",
				"ward", cmd.Ward,
				"category", cmd.Category,
				"match_count", len(advisory.Matches),
			)
			return ReportIssueResult{Duplicates: advisory.Matches}, nil
		}
	}

	issueID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ReportIssueResult{}, err
	}
	now := u.now()
	issue := entities.Issue{
		IssueID:     issueID,
		Title:       cmd.Title,
		Category:    cmd.Category,
		Description: cmd.Description,
		Ward:        cmd.Ward,
		Location:    cmd.Location,
		Images:      append([]string(nil), cmd.Images...),
		ReporterID:  cmd.ReporterID,
		Status:      entities.StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.Store.Create(ctx, issue); err != nil {
		logger.Error("issue create failed",
			"event", "issue_report_write_failed",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"ward", cmd.Ward,
			"error", err.Error(),
		)
		return ReportIssueResult{}, err
	}

	appendLifecycleOutbox(ctx, logger, u.Outbox, u.IDGenerator, issue, "issue.reported", now)
	u.notifyWardAdmin(ctx, logger, issue, now)

	result := ReportIssueResult{Created: true, Issue: issue}
	u.storeReplay(ctx, logger, cmd, result)

	logger.Info("issue reported",
		"event", "issue_reported",
		"module", "civic-reporting/issue-service",
		"layer", "application",
		"issue_id", issue.IssueID,
		"ward", issue.Ward,
		"category", issue.Category,
	)
	return result, nil
}

func (u ReportIssueUseCase) notifyWardAdmin(ctx context.Context, logger *slog.Logger, issue entities.Issue, now time.Time) {
	if u.Dispatcher == nil {
		return
	}
	adminID, ok, err := u.Directory.AdminFor(ctx, issue.Ward)
	if err != nil || !ok {
		// Non-fatal: the report stands even when no admin is configured.
		logger.Warn("no ward administrator resolved, reported event dropped",
			"event", "issue_reported_event_dropped",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"issue_id", issue.IssueID,
			"ward", issue.Ward,
		)
		return
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		logger.Warn("reported event id generation failed",
			"event", "issue_reported_event_dropped",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"issue_id", issue.IssueID,
			"error", err.Error(),
		)
		return
	}

	event := ports.LifecycleEvent{
		EventID:     eventID,
		Type:        "issue.reported",
		RecipientID: adminID,
		IssueID:     issue.IssueID,
		Category:    issue.Category,
		Title:       issue.Title,
		Ward:        issue.Ward,
		Message:     fmt.Sprintf("New %s issue reported in ward %s: %s", issue.Category, issue.Ward, issue.Title),
		OccurredAt:  now,
	}
	if err := u.Dispatcher.Dispatch(ctx, event); err != nil {
		logger.Warn("reported event dispatch failed",
			"event", "issue_notification_dispatch_failed",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"issue_id", issue.IssueID,
			"recipient_id", adminID,
			"error", err.Error(),
		)
	}
}

func (u ReportIssueUseCase) lookupReplay(ctx context.Context, cmd ReportIssueCommand) (ReportIssueResult, bool, error) {
	if u.Idempotency == nil || strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return ReportIssueResult{}, false, nil
	}
	requestHash, err := hashRequest(cmd)
	if err != nil {
		return ReportIssueResult{}, false, err
	}
	record, found, err := u.Idempotency.GetRecord(ctx, "issue_report:"+cmd.IdempotencyKey, u.now())
	if err != nil || !found {
		return ReportIssueResult{}, false, err
	}
	if record.RequestHash != requestHash {
		return ReportIssueResult{}, false, domainerrors.ErrIdempotencyConflict
	}
	var replay ReportIssueResult
	if err := json.Unmarshal(record.ResponsePayload, &replay); err != nil {
		return ReportIssueResult{}, false, err
	}
	replay.Replayed = true
	return replay, true, nil
}

func (u ReportIssueUseCase) storeReplay(ctx context.Context, logger *slog.Logger, cmd ReportIssueCommand, result ReportIssueResult) {
	if u.Idempotency == nil || strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return
	}
	requestHash, err := hashRequest(cmd)
	if err != nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	ttl := u.IdempotencyTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if err := u.Idempotency.PutRecord(ctx, ports.IdempotencyRecord{
		Key:             "issue_report:" + cmd.IdempotencyKey,
		RequestHash:     requestHash,
		ResponsePayload: payload,
		ExpiresAt:       u.now().Add(ttl),
	}); err != nil {
		logger.Warn("idempotency record write failed",
			"event", "issue_idempotency_put_failed",
			"module", "civic-reporting/issue-service",
			"layer", "application",
			"error", err.Error(),
		)
	}
}

func (u ReportIssueUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
