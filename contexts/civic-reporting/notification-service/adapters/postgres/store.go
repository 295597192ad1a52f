package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"civicpulse/contexts/civic-reporting/notification-service/domain/entities"
	domainerrors "civicpulse/contexts/civic-reporting/notification-service/domain/errors"
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) Insert(ctx context.Context, notification entities.Notification) error {
	row := notificationModel{
		NotificationID: notification.NotificationID,
		RecipientID:    notification.RecipientID,
		IssueID:        notification.IssueID,
		Type:           string(notification.Type),
		Title:          notification.Title,
		Message:        notification.Message,
		Status:         string(notification.Status),
		CreatedAt:      notification.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) ListByRecipient(ctx context.Context, recipientID string) ([]entities.Notification, error) {
	var rows []notificationModel
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	notifications := make([]entities.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, row.toEntity())
	}
	return notifications, nil
}

func (s *Store) UpdateStatus(ctx context.Context, notificationID string, status entities.Status) (entities.Notification, error) {
	result := s.db.WithContext(ctx).Model(&notificationModel{}).
		Where("notification_id = ?", notificationID).
		Update("status", string(status))
	if result.Error != nil {
		return entities.Notification{}, result.Error
	}
	if result.RowsAffected == 0 {
		return entities.Notification{}, domainerrors.ErrNotFound
	}

	var row notificationModel
	err := s.db.WithContext(ctx).First(&row, "notification_id = ?", notificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Notification{}, domainerrors.ErrNotFound
	}
	if err != nil {
		return entities.Notification{}, err
	}
	return row.toEntity(), nil
}

type notificationModel struct {
	NotificationID string    `gorm:"column:notification_id;primaryKey"`
	RecipientID    string    `gorm:"column:recipient_id;index"`
	IssueID        string    `gorm:"column:issue_id"`
	Type           string    `gorm:"column:type"`
	Title          string    `gorm:"column:title"`
	Message        string    `gorm:"column:message"`
	Status         string    `gorm:"column:status;index"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (notificationModel) TableName() string { return "notifications" }

func (m notificationModel) toEntity() entities.Notification {
	return entities.Notification{
		NotificationID: m.NotificationID,
		RecipientID:    m.RecipientID,
		IssueID:        m.IssueID,
		Type:           entities.Type(m.Type),
		Title:          m.Title,
		Message:        m.Message,
		Status:         entities.Status(m.Status),
		CreatedAt:      m.CreatedAt,
	}
}
