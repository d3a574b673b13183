package notify

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the notification operations exposed to the request layer.
type Service interface {
	Send(ctx context.Context, rec Recipient, n *Notification) (*Notification, error)
	Broadcast(ctx context.Context, title, message string, priority Priority) (int, error)
	Unread(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) (*Notification, error)
	MarkManyRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	ClearRead(ctx context.Context, userID uuid.UUID) (int, error)
	ClearOld(ctx context.Context) (int, error)
}
