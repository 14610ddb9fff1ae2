package notifications

import "context"

type StoreAPI interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	List(ctx context.Context, recipientID, filter string, limit, offset int) ([]Notification, error)
	Count(ctx context.Context, recipientID, filter string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (bool, error)
	RecipientEmail(ctx context.Context, recipientID string) (string, error)
}
