package comments

import (
	"context"

	"github.com/google/uuid"
)

// EditInput is a partial comment change; nil fields are left untouched.
type EditInput struct {
	Rating  *int
	Content *string
}

// Service defines comment and moderation operations.
type Service interface {
	Add(ctx context.Context, userID, bookID uuid.UUID, rating int, content string) (*Comment, error)
	Edit(ctx context.Context, id, userID uuid.UUID, edit EditInput) (*Comment, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Flag(ctx context.Context, id uuid.UUID) (*Comment, error)

	Approve(ctx context.Context, id uuid.UUID) (*Comment, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*Comment, error)

	Get(ctx context.Context, id uuid.UUID) (*Comment, error)
	ApprovedByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]*Comment, error)
	Pending(ctx context.Context, limit int) ([]*Comment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Comment, error)
}
