package notifications

import "time"

type Notification struct {
	ID              string    `json:"id"`
	RecipientID     string    `json:"recipientId"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	IsRead          bool      `json:"isRead"`
	RelatedRecordID *string   `json:"relatedRecordId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Outbound is a notification queued for e-mail once its transaction commits.
type Outbound struct {
	Notification Notification
	Email        bool
}
