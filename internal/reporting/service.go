package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LibraryStats is the whole-library snapshot.
type LibraryStats struct {
	TotalBooks     int `json:"total_books"`
	AvailableBooks int `json:"available_books"`
	BorrowedBooks  int `json:"borrowed_books"`
	LostBooks      int `json:"lost_books"`
	DamagedBooks   int `json:"damaged_books"`

	TotalUsers     int `json:"total_users"`
	ActiveUsers    int `json:"active_users"`
	SuspendedUsers int `json:"suspended_users"`
	BannedUsers    int `json:"banned_users"`

	TotalBorrowings   int     `json:"total_borrowings"`
	OpenBorrowings    int     `json:"open_borrowings"`
	OverdueBorrowings int     `json:"overdue_borrowings"`
	TotalFeesCharged  float64 `json:"total_fees_charged"`
}

// DashboardStats is the librarian's day view.
type DashboardStats struct {
	BorrowedToday     int `json:"borrowed_today"`
	ReturnedToday     int `json:"returned_today"`
	NewUsersToday     int `json:"new_users_today"`
	OverdueBorrowings int `json:"overdue_borrowings"`
	PendingComments   int `json:"pending_comments"`
}

// TrendPoint is one day in a borrowing trend series.
type TrendPoint struct {
	Date     time.Time `json:"date"`
	Borrowed int       `json:"borrowed"`
	Returned int       `json:"returned"`
}

// CategoryPerformance aggregates catalog activity per category.
type CategoryPerformance struct {
	Category        string  `json:"category"`
	TotalBooks      int     `json:"total_books"`
	TotalBorrowings int     `json:"total_borrowings"`
	AverageRating   float64 `json:"average_rating"`
}

// TopBorrower is one row of the most-active-readers report.
type TopBorrower struct {
	UserID          uuid.UUID `json:"user_id"`
	Username        string    `json:"username"`
	TotalBorrowings int       `json:"total_borrowings"`
}

// Service defines the read-only reporting queries. It holds no
// invariants of its own; everything derives from the stored entities.
type Service interface {
	LibraryStats(ctx context.Context) (*LibraryStats, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	BorrowingTrends(ctx context.Context, days int) ([]TrendPoint, error)
	CategoryPerformance(ctx context.Context) ([]CategoryPerformance, error)
	TopBorrowers(ctx context.Context, limit int) ([]TopBorrower, error)
}
