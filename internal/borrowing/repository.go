package borrowing

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
)

const recordColumns = `
	id, user_id, book_id, borrow_date, due_date, return_date,
	status, extension_count, late_fee, damage_fee, total_fee,
	created_at, updated_at`

// Repository is the borrowing data-access layer.
type Repository struct{}

func NewRepository() Repository { return Repository{} }

// GetByID fetches a borrowing record by id.
func (Repository) GetByID(ctx context.Context, q storage.Querier, id uuid.UUID) (*Record, error) {
	return scanRecord(q.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM borrowings WHERE id = $1`, id), id.String())
}

// GetByIDForUpdate fetches a borrowing record with a row lock. Must be
// called inside a transaction.
func (Repository) GetByIDForUpdate(ctx context.Context, q storage.Querier, id uuid.UUID) (*Record, error) {
	return scanRecord(q.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM borrowings WHERE id = $1 FOR UPDATE`, id), id.String())
}

// OpenByUserAndBook fetches the open record for a (user, book) pair, if
// any. At most one can exist.
func (Repository) OpenByUserAndBook(ctx context.Context, q storage.Querier, userID, bookID uuid.UUID) (*Record, error) {
	return scanRecord(q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM borrowings
		WHERE user_id = $1 AND book_id = $2 AND status IN ('ACTIVE', 'EXTENDED', 'OVERDUE')
	`, userID, bookID), userID.String()+"/"+bookID.String())
}

// Insert persists a new borrowing record. The unique partial index on
// open records per book surfaces a concurrent double-borrow as
// ErrConflict.
func (Repository) Insert(ctx context.Context, q storage.Querier, r *Record) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO borrowings
			(id, user_id, book_id, borrow_date, due_date, return_date,
			 status, extension_count, late_fee, damage_fee, total_fee,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.ID, r.UserID, r.BookID, r.BorrowDate, r.DueDate, r.ReturnDate,
		r.Status, r.ExtensionCount, r.LateFee, r.DamageFee, r.TotalFee,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert borrowing: %w", storage.MapError(err))
	}
	return nil
}

// Update writes every mutable field back.
func (Repository) Update(ctx context.Context, q storage.Querier, r *Record) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE borrowings SET
			due_date = $2, return_date = $3, status = $4,
			extension_count = $5, late_fee = $6, damage_fee = $7, total_fee = $8,
			updated_at = $9
		WHERE id = $1
	`, r.ID, r.DueDate, r.ReturnDate, r.Status,
		r.ExtensionCount, r.LateFee, r.DamageFee, r.TotalFee, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update borrowing: %w", storage.MapError(err))
	}
	return nil
}

// ListByUser returns a user's borrowings newest first, optionally
// filtered by status, plus the unpaginated total.
func (r Repository) ListByUser(ctx context.Context, q storage.Querier, userID uuid.UUID, status *Status, limit, offset int) ([]*Record, int, error) {
	where := []goqu.Expression{goqu.C("user_id").Eq(userID.String())}
	if status != nil {
		where = append(where, goqu.C("status").Eq(string(*status)))
	}
	if limit <= 0 {
		limit = 100
	}

	countSQL, countArgs, err := storage.Dialect.
		From("borrowings").
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count borrowings: %w", err)
	}

	listSQL, listArgs, err := storage.Dialect.
		From("borrowings").
		Select(goqu.L(recordColumns)).
		Where(where...).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	records, err := r.queryRecords(ctx, q, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// OpenByUser returns a user's open borrowings, soonest due first.
func (r Repository) OpenByUser(ctx context.Context, q storage.Querier, userID uuid.UUID) ([]*Record, error) {
	return r.queryRecords(ctx, q, `
		SELECT `+recordColumns+`
		FROM borrowings
		WHERE user_id = $1 AND status IN ('ACTIVE', 'EXTENDED', 'OVERDUE')
		ORDER BY due_date ASC
	`, userID)
}

// ListByBook returns a book's borrowing history, newest first.
func (r Repository) ListByBook(ctx context.Context, q storage.Querier, bookID uuid.UUID, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryRecords(ctx, q, `
		SELECT `+recordColumns+`
		FROM borrowings
		WHERE book_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, bookID, limit)
}

// Overdue returns every record already marked OVERDUE, most overdue first.
func (r Repository) Overdue(ctx context.Context, q storage.Querier) ([]*Record, error) {
	return r.queryRecords(ctx, q, `
		SELECT `+recordColumns+`
		FROM borrowings
		WHERE status = 'OVERDUE'
		ORDER BY due_date ASC
	`)
}

// OverdueCandidates returns ids of open records whose due date has
// passed but that are not yet marked OVERDUE. The sweep locks and
// re-checks each record individually.
func (Repository) OverdueCandidates(ctx context.Context, q storage.Querier, now time.Time) ([]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id
		FROM borrowings
		WHERE status IN ('ACTIVE', 'EXTENDED') AND due_date < $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query overdue candidates: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan overdue candidate: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue candidates: %w", err)
	}
	return ids, nil
}

// DueSoon returns open, not-yet-overdue records due inside the window.
func (r Repository) DueSoon(ctx context.Context, q storage.Querier, from, to time.Time) ([]*Record, error) {
	return r.queryRecords(ctx, q, `
		SELECT `+recordColumns+`
		FROM borrowings
		WHERE status IN ('ACTIVE', 'EXTENDED') AND due_date >= $1 AND due_date <= $2
		ORDER BY due_date ASC
	`, from, to)
}

func (Repository) queryRecords(ctx context.Context, q storage.Querier, query string, args ...any) ([]*Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query borrowings: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecordRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan borrowing: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate borrowings: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, key string) (*Record, error) {
	rec, err := scanRecordRow(row)
	if err != nil {
		if storage.MapError(err) == liberr.ErrNotFound {
			return nil, liberr.NotFound("borrowing %s", key)
		}
		return nil, fmt.Errorf("get borrowing: %w", err)
	}
	return rec, nil
}

func scanRecordRow(row rowScanner) (*Record, error) {
	rec := &Record{}
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.BookID, &rec.BorrowDate, &rec.DueDate, &rec.ReturnDate,
		&rec.Status, &rec.ExtensionCount, &rec.LateFee, &rec.DamageFee, &rec.TotalFee,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
