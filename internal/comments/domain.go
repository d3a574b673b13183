package comments

import (
	"time"

	"github.com/google/uuid"
)

// Status is a comment's moderation state. PENDING comments await
// librarian review; HIDDEN is reached automatically through flag
// accumulation.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusHidden   Status = "HIDDEN"
)

// Comment is a user's review of a book. At most one exists per
// (user, book) pair; its rating counts toward the book's average only
// while the comment is APPROVED.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BookID    uuid.UUID `json:"book_id"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	FlagCount int       `json:"flag_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
