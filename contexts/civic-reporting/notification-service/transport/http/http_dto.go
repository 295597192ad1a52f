package httptransport

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type NotificationPayload struct {
	NotificationID string `json:"notification_id"`
	RecipientID    string `json:"recipient_id"`
	IssueID        string `json:"issue_id,omitempty"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

type ListNotificationsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Notifications []NotificationPayload `json:"notifications"`
		Total         int                   `json:"total"`
		Unread        int                   `json:"unread"`
	} `json:"data"`
}

type MarkReadResponse struct {
	Status string              `json:"status"`
	Data   NotificationPayload `json:"data"`
}
