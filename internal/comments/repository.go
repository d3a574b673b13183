package comments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
)

const commentColumns = `
	id, user_id, book_id, rating, content, status, flag_count,
	created_at, updated_at`

// Repository is the comment data-access layer.
type Repository struct{}

func NewRepository() Repository { return Repository{} }

// GetByID fetches a comment by id.
func (Repository) GetByID(ctx context.Context, q storage.Querier, id uuid.UUID) (*Comment, error) {
	return scanComment(q.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id), id.String())
}

// GetByIDForUpdate fetches a comment with a row lock. Must be called
// inside a transaction.
func (Repository) GetByIDForUpdate(ctx context.Context, q storage.Querier, id uuid.UUID) (*Comment, error) {
	return scanComment(q.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1 FOR UPDATE`, id), id.String())
}

// GetByUserAndBook fetches the single comment a user left on a book.
func (Repository) GetByUserAndBook(ctx context.Context, q storage.Querier, userID, bookID uuid.UUID) (*Comment, error) {
	return scanComment(q.QueryRowContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE user_id = $1 AND book_id = $2
	`, userID, bookID), userID.String()+"/"+bookID.String())
}

// Insert persists a new comment. The unique (user, book) index surfaces
// a duplicate as ErrConflict.
func (Repository) Insert(ctx context.Context, q storage.Querier, c *Comment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO comments
			(id, user_id, book_id, rating, content, status, flag_count,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.UserID, c.BookID, c.Rating, c.Content, c.Status, c.FlagCount,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", storage.MapError(err))
	}
	return nil
}

// Update writes every mutable field back.
func (Repository) Update(ctx context.Context, q storage.Querier, c *Comment) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE comments SET
			rating = $2, content = $3, status = $4, flag_count = $5,
			updated_at = $6
		WHERE id = $1
	`, c.ID, c.Rating, c.Content, c.Status, c.FlagCount, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", storage.MapError(err))
	}
	return nil
}

// Delete removes a comment.
func (Repository) Delete(ctx context.Context, q storage.Querier, id uuid.UUID) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", storage.MapError(err))
	}
	return nil
}

// ApprovedByBook returns a book's approved comments, newest first.
func (r Repository) ApprovedByBook(ctx context.Context, q storage.Querier, bookID uuid.UUID, limit int) ([]*Comment, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryComments(ctx, q, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE book_id = $1 AND status = 'APPROVED'
		ORDER BY created_at DESC
		LIMIT $2
	`, bookID, limit)
}

// Pending returns comments awaiting moderation, oldest first so the
// queue is worked in arrival order.
func (r Repository) Pending(ctx context.Context, q storage.Querier, limit int) ([]*Comment, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryComments(ctx, q, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
}

// ListByUser returns a user's comments, newest first.
func (r Repository) ListByUser(ctx context.Context, q storage.Querier, userID uuid.UUID, limit int) ([]*Comment, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryComments(ctx, q, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
}

func (Repository) queryComments(ctx context.Context, q storage.Querier, query string, args ...any) ([]*Comment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var out []*Comment
	for rows.Next() {
		c, err := scanCommentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner, key string) (*Comment, error) {
	c, err := scanCommentRow(row)
	if err != nil {
		if storage.MapError(err) == liberr.ErrNotFound {
			return nil, liberr.NotFound("comment %s", key)
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func scanCommentRow(row rowScanner) (*Comment, error) {
	c := &Comment{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.BookID, &c.Rating, &c.Content, &c.Status, &c.FlagCount,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
