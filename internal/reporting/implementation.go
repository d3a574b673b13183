package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface over plain SQL aggregations.
type service struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewService creates a new reporting service instance.
func NewService(db *sql.DB) Service {
	return &service{
		db:     db,
		tracer: otel.Tracer("library/reporting"),
	}
}

// LibraryStats returns the whole-library snapshot in one round trip per
// entity table.
func (s *service) LibraryStats(ctx context.Context) (*LibraryStats, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.library_stats")
	defer span.End()

	stats := &LibraryStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'AVAILABLE'),
			COUNT(*) FILTER (WHERE status = 'BORROWED'),
			COUNT(*) FILTER (WHERE status = 'LOST'),
			COUNT(*) FILTER (WHERE status = 'DAMAGED')
		FROM books
	`).Scan(&stats.TotalBooks, &stats.AvailableBooks, &stats.BorrowedBooks,
		&stats.LostBooks, &stats.DamagedBooks)
	if err != nil {
		return nil, fmt.Errorf("aggregate books: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE status = 'SUSPENDED'),
			COUNT(*) FILTER (WHERE status = 'BANNED')
		FROM users
	`).Scan(&stats.TotalUsers, &stats.ActiveUsers, &stats.SuspendedUsers, &stats.BannedUsers)
	if err != nil {
		return nil, fmt.Errorf("aggregate users: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('ACTIVE', 'EXTENDED', 'OVERDUE')),
			COUNT(*) FILTER (WHERE status = 'OVERDUE'),
			COALESCE(SUM(total_fee), 0)
		FROM borrowings
	`).Scan(&stats.TotalBorrowings, &stats.OpenBorrowings, &stats.OverdueBorrowings,
		&stats.TotalFeesCharged)
	if err != nil {
		return nil, fmt.Errorf("aggregate borrowings: %w", err)
	}

	return stats, nil
}

// DashboardStats returns today's activity counters.
func (s *service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.dashboard_stats")
	defer span.End()

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	stats := &DashboardStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM borrowings WHERE borrow_date >= $1),
			(SELECT COUNT(*) FROM borrowings WHERE return_date >= $1),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1),
			(SELECT COUNT(*) FROM borrowings WHERE status = 'OVERDUE'),
			(SELECT COUNT(*) FROM comments WHERE status = 'PENDING')
	`, midnight).Scan(&stats.BorrowedToday, &stats.ReturnedToday, &stats.NewUsersToday,
		&stats.OverdueBorrowings, &stats.PendingComments)
	if err != nil {
		return nil, fmt.Errorf("aggregate dashboard: %w", err)
	}
	return stats, nil
}

// BorrowingTrends returns per-day borrow and return counts over the last
// N days, including days with no activity.
func (s *service) BorrowingTrends(ctx context.Context, days int) ([]TrendPoint, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.borrowing_trends")
	defer span.End()

	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -(days - 1))

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.day,
			(SELECT COUNT(*) FROM borrowings WHERE borrow_date >= d.day AND borrow_date < d.day + INTERVAL '1 day'),
			(SELECT COUNT(*) FROM borrowings WHERE return_date >= d.day AND return_date < d.day + INTERVAL '1 day')
		FROM generate_series($1::timestamptz, $1::timestamptz + ($2 - 1) * INTERVAL '1 day', INTERVAL '1 day') AS d(day)
		ORDER BY d.day
	`, since, days)
	if err != nil {
		return nil, fmt.Errorf("query trends: %w", err)
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.Borrowed, &p.Returned); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend points: %w", err)
	}
	return out, nil
}

// CategoryPerformance aggregates books and borrowing activity per
// category, most borrowed first.
func (s *service) CategoryPerformance(ctx context.Context) ([]CategoryPerformance, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.category_performance")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT category,
			COUNT(*),
			COALESCE(SUM(total_borrowings), 0),
			COALESCE(AVG(average_rating) FILTER (WHERE total_ratings > 0), 0)
		FROM books
		GROUP BY category
		ORDER BY COALESCE(SUM(total_borrowings), 0) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query category performance: %w", err)
	}
	defer rows.Close()

	var out []CategoryPerformance
	for rows.Next() {
		var c CategoryPerformance
		if err := rows.Scan(&c.Category, &c.TotalBooks, &c.TotalBorrowings, &c.AverageRating); err != nil {
			return nil, fmt.Errorf("scan category performance: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category performance: %w", err)
	}
	return out, nil
}

// TopBorrowers returns the most active readers by lifetime borrowings.
func (s *service) TopBorrowers(ctx context.Context, limit int) ([]TopBorrower, error) {
	ctx, span := s.tracer.Start(ctx, "reporting.top_borrowers")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, total_borrowings
		FROM users
		WHERE total_borrowings > 0
		ORDER BY total_borrowings DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top borrowers: %w", err)
	}
	defer rows.Close()

	var out []TopBorrower
	for rows.Next() {
		var t TopBorrower
		if err := rows.Scan(&t.UserID, &t.Username, &t.TotalBorrowings); err != nil {
			return nil, fmt.Errorf("scan top borrower: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top borrowers: %w", err)
	}
	return out, nil
}
