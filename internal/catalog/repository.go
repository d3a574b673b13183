package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
)

const bookColumns = `
	id, isbn, title, author, COALESCE(publisher, ''), COALESCE(year_published, 0),
	category, status, is_available, physical_state,
	COALESCE(location, ''), COALESCE(description, ''), COALESCE(language, ''),
	COALESCE(page_count, 0), base_price,
	average_rating, total_ratings,
	current_borrowing_count, total_borrowings, last_borrowed_at,
	created_at, updated_at`

// SearchFilter narrows a catalog search. Zero values mean "no filter".
type SearchFilter struct {
	Query         string
	Category      Category
	AvailableOnly bool
	MinRating     float64
	Limit         int
	Offset        int
}

// Repository is the book data-access layer.
type Repository struct{}

func NewRepository() Repository { return Repository{} }

// GetByID fetches a book by id.
func (Repository) GetByID(ctx context.Context, q storage.Querier, id uuid.UUID) (*Book, error) {
	return scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id), id.String())
}

// GetByIDForUpdate fetches a book by id with a row lock. Must be called
// inside a transaction; serializes the availability check against the
// mark-unavailable write.
func (Repository) GetByIDForUpdate(ctx context.Context, q storage.Querier, id uuid.UUID) (*Book, error) {
	return scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id), id.String())
}

// GetByISBN fetches a book by its unique ISBN.
func (Repository) GetByISBN(ctx context.Context, q storage.Querier, isbn string) (*Book, error) {
	return scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = $1`, isbn), isbn)
}

// Insert persists a new book. A duplicate ISBN surfaces as ErrConflict
// through the unique index.
func (Repository) Insert(ctx context.Context, q storage.Querier, b *Book) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO books
			(id, isbn, title, author, publisher, year_published,
			 category, status, is_available, physical_state,
			 location, description, language, page_count, base_price,
			 average_rating, total_ratings,
			 current_borrowing_count, total_borrowings,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, 0),
			$7, $8, $9, $10,
			NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, 0), $15,
			$16, $17, $18, $19, $20, $21)
	`, b.ID, b.ISBN, b.Title, b.Author, b.Publisher, b.YearPublished,
		b.Category, b.Status, b.IsAvailable, b.PhysicalState,
		b.Location, b.Description, b.Language, b.PageCount, b.BasePrice,
		b.AverageRating, b.TotalRatings,
		b.CurrentBorrowingCount, b.TotalBorrowings,
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", storage.MapError(err))
	}
	return nil
}

// Update writes every mutable field back.
func (Repository) Update(ctx context.Context, q storage.Querier, b *Book) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE books SET
			title = $2, author = $3, publisher = NULLIF($4, ''),
			year_published = NULLIF($5, 0), category = $6,
			status = $7, is_available = $8, physical_state = $9,
			location = NULLIF($10, ''), description = NULLIF($11, ''),
			language = NULLIF($12, ''), page_count = NULLIF($13, 0),
			base_price = $14,
			average_rating = $15, total_ratings = $16,
			current_borrowing_count = $17, total_borrowings = $18,
			last_borrowed_at = $19, updated_at = $20
		WHERE id = $1
	`, b.ID, b.Title, b.Author, b.Publisher, b.YearPublished, b.Category,
		b.Status, b.IsAvailable, b.PhysicalState,
		b.Location, b.Description, b.Language, b.PageCount, b.BasePrice,
		b.AverageRating, b.TotalRatings,
		b.CurrentBorrowingCount, b.TotalBorrowings,
		b.LastBorrowedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update book: %w", storage.MapError(err))
	}
	return nil
}

// Delete removes a book from the catalog.
func (Repository) Delete(ctx context.Context, q storage.Querier, id uuid.UUID) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete book: %w", storage.MapError(err))
	}
	return nil
}

// Search runs the dynamic catalog query: free-text match on title, author
// or ISBN, plus the optional filters. Returns the page and the total count.
func (r Repository) Search(ctx context.Context, q storage.Querier, f SearchFilter) ([]*Book, int, error) {
	where := []goqu.Expression{}
	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		where = append(where, goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
			goqu.C("isbn").ILike(pattern),
		))
	}
	if f.Category != "" {
		where = append(where, goqu.C("category").Eq(string(f.Category)))
	}
	if f.AvailableOnly {
		where = append(where, goqu.C("is_available").IsTrue())
	}
	if f.MinRating > 0 {
		where = append(where, goqu.C("average_rating").Gte(f.MinRating))
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}

	countSQL, countArgs, err := storage.Dialect.
		From("books").
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	listSQL, listArgs, err := storage.Dialect.
		From("books").
		Select(goqu.L(bookColumns)).
		Where(where...).
		Order(goqu.C("average_rating").Desc(), goqu.C("title").Asc()).
		Limit(uint(f.Limit)).
		Offset(uint(f.Offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build search query: %w", err)
	}

	books, err := r.queryBooks(ctx, q, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// List returns books filtered by optional status and category, newest
// first, plus the unpaginated total.
func (r Repository) List(ctx context.Context, q storage.Querier, status *Status, category *Category, limit, offset int) ([]*Book, int, error) {
	where := []goqu.Expression{}
	if status != nil {
		where = append(where, goqu.C("status").Eq(string(*status)))
	}
	if category != nil {
		where = append(where, goqu.C("category").Eq(string(*category)))
	}
	if limit <= 0 {
		limit = 100
	}

	countSQL, countArgs, err := storage.Dialect.
		From("books").
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	listSQL, listArgs, err := storage.Dialect.
		From("books").
		Select(goqu.L(bookColumns)).
		Where(where...).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	books, err := r.queryBooks(ctx, q, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// NewArrivals returns the most recently added books.
func (r Repository) NewArrivals(ctx context.Context, q storage.Querier, limit int) ([]*Book, error) {
	return r.queryBooks(ctx, q, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

// Popular returns the most borrowed books of all time.
func (r Repository) Popular(ctx context.Context, q storage.Querier, limit int) ([]*Book, error) {
	return r.queryBooks(ctx, q, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY total_borrowings DESC
		LIMIT $1
	`, limit)
}

// Trending returns the books borrowed most often inside the time window.
func (r Repository) Trending(ctx context.Context, q storage.Querier, since time.Time, limit int) ([]*Book, error) {
	return r.queryBooks(ctx, q, `
		SELECT `+bookColumnsQualified+`
		FROM books b
		JOIN borrowings br ON br.book_id = b.id
		WHERE br.created_at >= $1
		GROUP BY b.id
		ORDER BY COUNT(br.id) DESC
		LIMIT $2
	`, since, limit)
}

// AvailableCopies counts available copies carrying the given ISBN.
func (Repository) AvailableCopies(ctx context.Context, q storage.Querier, isbn string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM books
		WHERE isbn = $1 AND is_available = TRUE
	`, isbn).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count available copies: %w", err)
	}
	return count, nil
}

func (Repository) queryBooks(ctx context.Context, q storage.Querier, query string, args ...any) ([]*Book, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var out []*Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return out, nil
}

// bookColumnsQualified mirrors bookColumns with a "b." alias for joins.
const bookColumnsQualified = `
	b.id, b.isbn, b.title, b.author, COALESCE(b.publisher, ''), COALESCE(b.year_published, 0),
	b.category, b.status, b.is_available, b.physical_state,
	COALESCE(b.location, ''), COALESCE(b.description, ''), COALESCE(b.language, ''),
	COALESCE(b.page_count, 0), b.base_price,
	b.average_rating, b.total_ratings,
	b.current_borrowing_count, b.total_borrowings, b.last_borrowed_at,
	b.created_at, b.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner, key string) (*Book, error) {
	b, err := scanBookRow(row)
	if err != nil {
		if storage.MapError(err) == liberr.ErrNotFound {
			return nil, liberr.NotFound("book %s", key)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func scanBookRow(row rowScanner) (*Book, error) {
	b := &Book{}
	err := row.Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.YearPublished,
		&b.Category, &b.Status, &b.IsAvailable, &b.PhysicalState,
		&b.Location, &b.Description, &b.Language, &b.PageCount, &b.BasePrice,
		&b.AverageRating, &b.TotalRatings,
		&b.CurrentBorrowingCount, &b.TotalBorrowings, &b.LastBorrowedAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
