package borrowing

import (
	"time"

	"github.com/google/uuid"
)

// Status is a borrowing record's lifecycle state.
//
//	ACTIVE -> EXTENDED, OVERDUE, RETURNED
//	EXTENDED -> OVERDUE, RETURNED
//	OVERDUE -> RETURNED
//
// RETURNED is terminal; only fee waivers touch a returned record.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusExtended Status = "EXTENDED"
	StatusOverdue  Status = "OVERDUE"
	StatusReturned Status = "RETURNED"
)

// Open reports whether the record still has the book out.
func (s Status) Open() bool {
	return s == StatusActive || s == StatusExtended || s == StatusOverdue
}

// DamageLevel grades damage reported at return time.
type DamageLevel string

const (
	DamageMinor    DamageLevel = "MINOR"
	DamageModerate DamageLevel = "MODERATE"
	DamageSevere   DamageLevel = "SEVERE"
)

// Record is one loan transaction. At most one open record exists per
// (user, book) pair; a unique partial index enforces that under races.
type Record struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	BookID         uuid.UUID  `json:"book_id"`
	BorrowDate     time.Time  `json:"borrow_date"`
	DueDate        time.Time  `json:"due_date"`
	ReturnDate     *time.Time `json:"return_date,omitempty"`
	Status         Status     `json:"status"`
	ExtensionCount int        `json:"extension_count"`
	LateFee        float64    `json:"late_fee"`
	DamageFee      float64    `json:"damage_fee"`
	TotalFee       float64    `json:"total_fee"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsOverdue reports whether the book is out past its due date at now.
// Returned records are never overdue.
func (r *Record) IsOverdue(now time.Time) bool {
	return r.Status.Open() && now.After(r.DueDate)
}

// DaysOverdue counts whole days past the due date, zero when not overdue.
func (r *Record) DaysOverdue(now time.Time) int {
	if !r.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(r.DueDate).Hours() / 24)
}

// CanExtend reports whether the loan may be extended, with the blocking
// reason when not. The overdue check goes by the due date, not the
// stored status, so a record the sweep has not reached yet still rejects.
func (r *Record) CanExtend(now time.Time, maxExtensions int) (bool, string) {
	if r.Status == StatusReturned {
		return false, "cannot extend a returned borrowing"
	}
	if r.Status == StatusOverdue || now.After(r.DueDate) {
		return false, "cannot extend an overdue borrowing"
	}
	if r.ExtensionCount >= maxExtensions {
		return false, "maximum number of extensions reached"
	}
	return true, ""
}
