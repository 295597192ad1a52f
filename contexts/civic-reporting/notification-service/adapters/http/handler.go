package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"civicpulse/contexts/civic-reporting/notification-service/application"
	"civicpulse/contexts/civic-reporting/notification-service/domain/entities"
	httptransport "civicpulse/contexts/civic-reporting/notification-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) ListNotificationsHandler(ctx context.Context, recipientID string) (httptransport.ListNotificationsResponse, error) {
	inbox, err := h.Service.ListForUser(ctx, recipientID)
	if err != nil {
		return httptransport.ListNotificationsResponse{}, err
	}
	resp := httptransport.ListNotificationsResponse{Status: "success"}
	resp.Data.Total = inbox.Total
	resp.Data.Unread = inbox.Unread
	resp.Data.Notifications = make([]httptransport.NotificationPayload, 0, len(inbox.Notifications))
	for _, notification := range inbox.Notifications {
		resp.Data.Notifications = append(resp.Data.Notifications, toPayload(notification))
	}
	return resp, nil
}

func (h Handler) MarkReadHandler(ctx context.Context, notificationID string) (httptransport.MarkReadResponse, error) {
	notification, err := h.Service.MarkRead(ctx, notificationID)
	if err != nil {
		return httptransport.MarkReadResponse{}, err
	}
	return httptransport.MarkReadResponse{Status: "success", Data: toPayload(notification)}, nil
}

func toPayload(notification entities.Notification) httptransport.NotificationPayload {
	return httptransport.NotificationPayload{
		NotificationID: notification.NotificationID,
		RecipientID:    notification.RecipientID,
		IssueID:        notification.IssueID,
		Type:           string(notification.Type),
		Title:          notification.Title,
		Message:        notification.Message,
		Status:         string(notification.Status),
		CreatedAt:      notification.CreatedAt.UTC().Format(time.RFC3339),
	}
}
