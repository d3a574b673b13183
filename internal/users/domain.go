package users

import (
	"time"

	"github.com/google/uuid"
)

// Status is a user's account standing.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusBanned    Status = "BANNED"
)

// User is a library member. Accounts are never deleted, only
// status-transitioned.
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone,omitempty"`
	PasswordHash  string    `json:"-"`
	PasswordSalt  string    `json:"-"`
	Status        Status    `json:"status"`
	EmailVerified bool      `json:"email_verified"`

	ActiveBorrowings int     `json:"active_borrowings_count"`
	TotalBorrowings  int     `json:"total_borrowings"`
	OverdueCount     int     `json:"overdue_count"`
	TotalFeesPaid    float64 `json:"total_fees_paid"`

	SuspensionStart  *time.Time `json:"suspension_start,omitempty"`
	SuspensionEnd    *time.Time `json:"suspension_end,omitempty"`
	SuspensionReason string     `json:"suspension_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CanBorrow reports whether the user may open a new borrowing, with the
// blocking reason when not.
func (u *User) CanBorrow(maxBooksPerUser int) (bool, string) {
	if u.Status != StatusActive {
		return false, "user is " + string(u.Status) + ", cannot borrow"
	}
	if !u.EmailVerified {
		return false, "email must be verified to borrow books"
	}
	if u.ActiveBorrowings >= maxBooksPerUser {
		return false, "borrowing limit reached"
	}
	return true, ""
}
