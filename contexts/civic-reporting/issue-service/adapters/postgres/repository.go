package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"civicpulse/contexts/civic-reporting/issue-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/issue-service/domain/errors"
	"civicpulse/contexts/civic-reporting/issue-service/ports"
)

const uniqueViolationCode = "23505"

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Create(ctx context.Context, issue entities.Issue) error {
	row, err := toModel(issue)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainerrors.ErrStoreConflict
		}
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, issueID string) (entities.Issue, error) {
	var row issueModel
	err := r.db.WithContext(ctx).First(&row, "issue_id = ?", issueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Issue{}, domainerrors.ErrNotFound
	}
	if err != nil {
		return entities.Issue{}, err
	}
	return row.toEntity()
}

func (r *Repository) FindByWardAndCategory(ctx context.Context, ward string, category string) ([]entities.Issue, error) {
	var rows []issueModel
	err := r.db.WithContext(ctx).
		Where("ward = ? AND category = ?", ward, category).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "issue_id"}, Desc: false}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntities(rows)
}

func (r *Repository) FindByReporter(ctx context.Context, reporterID string) ([]entities.Issue, error) {
	var rows []issueModel
	err := r.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "issue_id"}, Desc: false}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntities(rows)
}

// UpdateStatus is a guarded UPDATE: the WHERE clause carries the expected
// status and version, so a lost race touches zero rows instead of silently
// overwriting the winner.
func (r *Repository) UpdateStatus(ctx context.Context, input ports.UpdateStatusInput) (entities.Issue, error) {
	updates := map[string]any{
		"status":     string(input.ToStatus),
		"version":    gorm.Expr("version + 1"),
		"updated_at": input.UpdatedAt,
	}
	if input.AdminFeedback != "" {
		updates["admin_feedback"] = input.AdminFeedback
	}

	result := r.db.WithContext(ctx).Model(&issueModel{}).
		Where("issue_id = ? AND status = ? AND version = ?",
			input.IssueID, string(input.FromStatus), input.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return entities.Issue{}, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&issueModel{}).
			Where("issue_id = ?", input.IssueID).Count(&count).Error; err != nil {
			return entities.Issue{}, err
		}
		if count == 0 {
			return entities.Issue{}, domainerrors.ErrNotFound
		}
		return entities.Issue{}, domainerrors.ErrStoreConflict
	}
	return r.FindByID(ctx, input.IssueID)
}

func (r *Repository) CountByStatus(ctx context.Context, filter ports.StatusCountFilter) (ports.StatusCounts, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	tx := r.db.WithContext(ctx).Model(&issueModel{})
	if filter.ReporterID != "" {
		tx = tx.Where("reporter_id = ?", filter.ReporterID)
	}
	if filter.Ward != "" {
		tx = tx.Where("ward = ?", filter.Ward)
	}

	var rows []statusCount
	if err := tx.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return ports.StatusCounts{}, err
	}

	var counts ports.StatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch entities.Status(row.Status) {
		case entities.StatusPending:
			counts.Pending = row.Count
		case entities.StatusVerified:
			counts.Verified = row.Count
		case entities.StatusResolved:
			counts.Resolved = row.Count
		case entities.StatusCancelled:
			counts.Cancelled = row.Count
		}
	}
	return counts, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, message ports.OutboxMessage) error {
	row := outboxModel{
		OutboxID:  message.OutboxID,
		EventType: message.EventType,
		Payload:   string(message.Payload),
		Status:    message.Status,
		CreatedAt: message.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: false}).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	messages := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   []byte(row.Payload),
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
		})
	}
	return messages, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{"status": "sent", "sent_at": sentAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).First(&row, "key = ? AND expires_at > ?", key, now).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return ports.IdempotencyRecord{}, false, err
	}
	return ports.IdempotencyRecord{
		Key:             row.Key,
		RequestHash:     row.RequestHash,
		ResponsePayload: []byte(row.ResponsePayload),
		ExpiresAt:       row.ExpiresAt,
	}, true, nil
}

func (r *Repository) PutRecord(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             record.Key,
		RequestHash:     record.RequestHash,
		ResponsePayload: string(record.ResponsePayload),
		ExpiresAt:       record.ExpiresAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"request_hash", "response_payload", "expires_at"}),
		}).
		Create(&row).Error
}

type issueModel struct {
	IssueID       string    `gorm:"column:issue_id;primaryKey"`
	Title         string    `gorm:"column:title"`
	Category      string    `gorm:"column:category"`
	Description   string    `gorm:"column:description"`
	Ward          string    `gorm:"column:ward;index"`
	Latitude      float64   `gorm:"column:latitude"`
	Longitude     float64   `gorm:"column:longitude"`
	Images        string    `gorm:"column:images"`
	ReporterID    string    `gorm:"column:reporter_id;index"`
	Status        string    `gorm:"column:status;index"`
	AdminFeedback string    `gorm:"column:admin_feedback"`
	CommentCount  int       `gorm:"column:comment_count"`
	Version       int64     `gorm:"column:version"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (issueModel) TableName() string { return "issues" }

type outboxModel struct {
	OutboxID  string     `gorm:"column:outbox_id;primaryKey"`
	EventType string     `gorm:"column:event_type"`
	Payload   string     `gorm:"column:payload"`
	Status    string     `gorm:"column:status;index"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	SentAt    *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "issue_outbox" }

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload string    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at;index"`
}

func (idempotencyModel) TableName() string { return "issue_idempotency_keys" }

func toModel(issue entities.Issue) (issueModel, error) {
	images, err := json.Marshal(issue.Images)
	if err != nil {
		return issueModel{}, err
	}
	return issueModel{
		IssueID:       issue.IssueID,
		Title:         issue.Title,
		Category:      issue.Category,
		Description:   issue.Description,
		Ward:          issue.Ward,
		Latitude:      issue.Location.Latitude,
		Longitude:     issue.Location.Longitude,
		Images:        string(images),
		ReporterID:    issue.ReporterID,
		Status:        string(issue.Status),
		AdminFeedback: issue.AdminFeedback,
		CommentCount:  issue.CommentCount,
		Version:       issue.Version,
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
	}, nil
}

func (m issueModel) toEntity() (entities.Issue, error) {
	// Older rows may hold a bare string rather than a JSON list; normalize
	// to a list either way.
	var images []string
	if m.Images != "" {
		if err := json.Unmarshal([]byte(m.Images), &images); err != nil {
			images = []string{m.Images}
		}
	}
	return entities.Issue{
		IssueID:       m.IssueID,
		Title:         m.Title,
		Category:      m.Category,
		Description:   m.Description,
		Ward:          m.Ward,
		Location:      entities.Location{Latitude: m.Latitude, Longitude: m.Longitude},
		Images:        images,
		ReporterID:    m.ReporterID,
		Status:        entities.Status(m.Status),
		AdminFeedback: m.AdminFeedback,
		CommentCount:  m.CommentCount,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func toEntities(rows []issueModel) ([]entities.Issue, error) {
	issues := make([]entities.Issue, 0, len(rows))
	for _, row := range rows {
		issue, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}
