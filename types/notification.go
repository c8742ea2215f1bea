package types

import "time"

// NotificationType classifies a notification event
type NotificationType string

const (
	NotifyReviewApproved NotificationType = "review_approved"
	NotifyReviewRejected NotificationType = "review_rejected"
	NotifyPublishSuccess NotificationType = "publish_success"
	NotifyImageAlert     NotificationType = "image_alert"
)

// Notification is a per-user event record. RelatedType/RelatedID are a weak
// reference: the target may be deleted without cleaning these up atomically.
type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message,omitempty"`
	RelatedType string           `json:"related_type,omitempty"`
	RelatedID   string           `json:"related_id,omitempty"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
