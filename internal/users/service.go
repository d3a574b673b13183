package users

import (
	"context"

	"github.com/google/uuid"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Password  string
}

// ProfileUpdate is a partial profile change; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// Stats summarizes a user's borrowing activity.
type Stats struct {
	TotalBorrowings   int     `json:"total_borrowings"`
	ActiveBorrowings  int     `json:"active_borrowings"`
	CurrentOverdue    int     `json:"current_overdue"`
	TotalOverdueCount int     `json:"total_overdue_count"`
	TotalFeesPaid     float64 `json:"total_fees_paid"`
	Status            Status  `json:"status"`
	EmailVerified     bool    `json:"email_verified"`
	MemberSince       string  `json:"member_since"`
}

// Service defines user account and administration operations.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error)
	VerifyEmail(ctx context.Context, id uuid.UUID) (*User, error)
	Stats(ctx context.Context, id uuid.UUID) (*Stats, error)

	Suspend(ctx context.Context, id uuid.UUID, days int, reason string) (*User, error)
	Ban(ctx context.Context, id uuid.UUID, reason string) (*User, error)
	Unsuspend(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]*User, int, error)
	Suspended(ctx context.Context) ([]*User, error)
}
