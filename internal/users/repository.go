package users

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
)

const userColumns = `
	id, username, email, first_name, last_name, COALESCE(phone, ''),
	password_hash, password_salt, status, email_verified,
	active_borrowings_count, total_borrowings, overdue_count, total_fees_paid,
	suspension_start, suspension_end, COALESCE(suspension_reason, ''),
	created_at, updated_at`

// Repository is the user data-access layer. Methods take a storage.Querier
// so they run against the pool or inside a caller-owned transaction; the
// ForUpdate variants take out a row lock for the duration of that
// transaction.
type Repository struct{}

func NewRepository() Repository { return Repository{} }

// GetByID fetches a user by id.
func (Repository) GetByID(ctx context.Context, q storage.Querier, id uuid.UUID) (*User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id), id.String())
}

// GetByIDForUpdate fetches a user by id with a row lock. Must be called
// inside a transaction.
func (Repository) GetByIDForUpdate(ctx context.Context, q storage.Querier, id uuid.UUID) (*User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id), id.String())
}

// GetByUsername fetches a user by their unique username.
func (Repository) GetByUsername(ctx context.Context, q storage.Querier, username string) (*User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username), username)
}

// GetByEmail fetches a user by their unique email.
func (Repository) GetByEmail(ctx context.Context, q storage.Querier, email string) (*User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email), email)
}

// Insert persists a new user.
func (Repository) Insert(ctx context.Context, q storage.Querier, u *User) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO users
			(id, username, email, first_name, last_name, phone,
			 password_hash, password_salt, status, email_verified,
			 active_borrowings_count, total_borrowings, overdue_count, total_fees_paid,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.Phone,
		u.PasswordHash, u.PasswordSalt, u.Status, u.EmailVerified,
		u.ActiveBorrowings, u.TotalBorrowings, u.OverdueCount, u.TotalFeesPaid,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", storage.MapError(err))
	}
	return nil
}

// Update writes every mutable field back. Callers hold the row lock when
// the update is part of a state transition.
func (Repository) Update(ctx context.Context, q storage.Querier, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE users SET
			first_name = $2, last_name = $3, phone = NULLIF($4, ''),
			status = $5, email_verified = $6,
			active_borrowings_count = $7, total_borrowings = $8,
			overdue_count = $9, total_fees_paid = $10,
			suspension_start = $11, suspension_end = $12,
			suspension_reason = NULLIF($13, ''),
			updated_at = $14
		WHERE id = $1
	`, u.ID, u.FirstName, u.LastName, u.Phone,
		u.Status, u.EmailVerified,
		u.ActiveBorrowings, u.TotalBorrowings, u.OverdueCount, u.TotalFeesPaid,
		u.SuspensionStart, u.SuspensionEnd, u.SuspensionReason, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", storage.MapError(err))
	}
	return nil
}

// List returns users filtered by optional status, newest first, plus the
// unpaginated total.
func (Repository) List(ctx context.Context, q storage.Querier, status *Status, limit, offset int) ([]*User, int, error) {
	where := []goqu.Expression{}
	if status != nil {
		where = append(where, goqu.C("status").Eq(string(*status)))
	}

	countSQL, countArgs, err := storage.Dialect.
		From("users").
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	listSQL, listArgs, err := storage.Dialect.
		From("users").
		Select(goqu.L(userColumns)).
		Where(where...).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := q.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return out, total, nil
}

// Suspended returns suspended users ordered by soonest suspension end.
func (Repository) Suspended(ctx context.Context, q storage.Querier) ([]*User, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE status = $1
		ORDER BY suspension_end ASC
	`, StatusSuspended)
	if err != nil {
		return nil, fmt.Errorf("query suspended users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, key string) (*User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		if storage.MapError(err) == liberr.ErrNotFound {
			return nil, liberr.NotFound("user %s", key)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUserRow(row rowScanner) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone,
		&u.PasswordHash, &u.PasswordSalt, &u.Status, &u.EmailVerified,
		&u.ActiveBorrowings, &u.TotalBorrowings, &u.OverdueCount, &u.TotalFeesPaid,
		&u.SuspensionStart, &u.SuspensionEnd, &u.SuspensionReason,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}
