package borrowing

import (
	"context"

	"github.com/google/uuid"
)

// ReturnResult is what the borrower owes after a return.
type ReturnResult struct {
	Record    *Record `json:"record"`
	LateFee   float64 `json:"late_fee"`
	DamageFee float64 `json:"damage_fee"`
	TotalFee  float64 `json:"total_fee"`
	WasLate   bool    `json:"was_late"`
}

// Service defines the borrowing lifecycle operations.
type Service interface {
	Borrow(ctx context.Context, userID, bookID uuid.UUID) (*Record, error)
	Extend(ctx context.Context, id uuid.UUID, days int) (*Record, error)
	Return(ctx context.Context, id uuid.UUID, damage DamageLevel) (*ReturnResult, error)
	ForceReturn(ctx context.Context, id uuid.UUID) (*ReturnResult, error)
	WaiveFees(ctx context.Context, id uuid.UUID, reason string) (*Record, error)

	DetectOverdue(ctx context.Context) (int, error)
	SendDueSoonReminders(ctx context.Context) (int, error)

	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *Status, limit, offset int) ([]*Record, int, error)
	OpenByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error)
	ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]*Record, error)
	Overdue(ctx context.Context) ([]*Record, error)
}
