package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/config"
	"github.com/FCHEHIDI/Library-Management-System/internal/liberr"
	"github.com/FCHEHIDI/Library-Management-System/internal/storage"
)

// service implements the Service interface.
type service struct {
	db       *sql.DB
	repo     Repository
	policies config.Policies
}

// NewService creates a new catalog service instance.
func NewService(db *sql.DB, policies config.Policies) Service {
	return &service{
		db:       db,
		repo:     NewRepository(),
		policies: policies,
	}
}

// Add registers a new book in AVAILABLE status. A duplicate ISBN is
// rejected; the unique index backstops the precheck under races.
func (s *service) Add(ctx context.Context, in AddInput) (*Book, error) {
	if in.ISBN == "" || in.Title == "" || in.Author == "" {
		return nil, liberr.PolicyViolation("isbn, title and author are required")
	}
	if in.Category == "" {
		in.Category = CategoryGeneral
	}

	if _, err := s.repo.GetByISBN(ctx, s.db, in.ISBN); err == nil {
		return nil, liberr.Conflict("book with ISBN %s already exists", in.ISBN)
	}

	now := time.Now().UTC()
	book := &Book{
		ID:            uuid.New(),
		ISBN:          in.ISBN,
		Title:         in.Title,
		Author:        in.Author,
		Publisher:     in.Publisher,
		YearPublished: in.YearPublished,
		Category:      in.Category,
		Status:        StatusAvailable,
		IsAvailable:   true,
		PhysicalState: PhysicalExcellent,
		Location:      in.Location,
		Description:   in.Description,
		Language:      in.Language,
		PageCount:     in.PageCount,
		BasePrice:     in.BasePrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Update applies a partial update limited to descriptive fields.
func (s *service) Update(ctx context.Context, id uuid.UUID, update Update) (*Book, error) {
	var book *Book
	err := storage.WithTx(ctx, s.db, "catalog.update", func(tx *sql.Tx) error {
		var err error
		book, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.Title != nil {
			book.Title = *update.Title
		}
		if update.Author != nil {
			book.Author = *update.Author
		}
		if update.Publisher != nil {
			book.Publisher = *update.Publisher
		}
		if update.YearPublished != nil {
			book.YearPublished = *update.YearPublished
		}
		if update.Category != nil {
			book.Category = *update.Category
		}
		if update.Location != nil {
			book.Location = *update.Location
		}
		if update.Description != nil {
			book.Description = *update.Description
		}
		if update.Language != nil {
			book.Language = *update.Language
		}
		if update.PageCount != nil {
			book.PageCount = *update.PageCount
		}
		if update.BasePrice != nil {
			book.BasePrice = *update.BasePrice
		}
		return s.repo.Update(ctx, tx, book)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Remove deletes a book from the catalog. A book with an open borrowing
// cannot be removed.
func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	return storage.WithTx(ctx, s.db, "catalog.remove", func(tx *sql.Tx) error {
		book, err := s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if book.Status == StatusBorrowed {
			return liberr.PolicyViolation("cannot remove book '%s' while it is borrowed", book.Title)
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

// MarkLost transitions a book to LOST and takes it out of circulation.
func (s *service) MarkLost(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.transition(ctx, "catalog.mark_lost", id, func(b *Book) error {
		b.Status = StatusLost
		b.IsAvailable = false
		return nil
	})
}

// MarkDamaged transitions a book to DAMAGED and takes it out of
// circulation until repaired.
func (s *service) MarkDamaged(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.transition(ctx, "catalog.mark_damaged", id, func(b *Book) error {
		b.Status = StatusDamaged
		b.IsAvailable = false
		b.PhysicalState = PhysicalDamaged
		return nil
	})
}

// Repair returns a damaged book to circulation in GOOD condition. Only
// valid from DAMAGED.
func (s *service) Repair(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.transition(ctx, "catalog.repair", id, func(b *Book) error {
		if b.Status != StatusDamaged {
			return liberr.PolicyViolation("book '%s' is not damaged", b.Title)
		}
		b.Status = StatusAvailable
		b.IsAvailable = true
		b.PhysicalState = PhysicalGood
		return nil
	})
}

// Relocate moves a book to a new shelf location.
func (s *service) Relocate(ctx context.Context, id uuid.UUID, location string) (*Book, error) {
	if location == "" {
		return nil, liberr.PolicyViolation("location is required")
	}
	return s.transition(ctx, "catalog.relocate", id, func(b *Book) error {
		b.Location = location
		return nil
	})
}

// transition runs a locked read-modify-write on one book.
func (s *service) transition(ctx context.Context, name string, id uuid.UUID, mutate func(*Book) error) (*Book, error) {
	var book *Book
	err := storage.WithTx(ctx, s.db, name, func(tx *sql.Tx) error {
		var err error
		book, err = s.repo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(book); err != nil {
			return err
		}
		return s.repo.Update(ctx, tx, book)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Get retrieves a book by id.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

// GetByISBN retrieves a book by its ISBN.
func (s *service) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	return s.repo.GetByISBN(ctx, s.db, isbn)
}

// Search runs the filtered catalog search.
func (s *service) Search(ctx context.Context, filter SearchFilter) ([]*Book, int, error) {
	return s.repo.Search(ctx, s.db, filter)
}

// List returns books with optional status and category filters.
func (s *service) List(ctx context.Context, status *Status, category *Category, limit, offset int) ([]*Book, int, error) {
	return s.repo.List(ctx, s.db, status, category, limit, offset)
}

// NewArrivals returns the most recently added books.
func (s *service) NewArrivals(ctx context.Context, limit int) ([]*Book, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.NewArrivals(ctx, s.db, limit)
}

// Trending returns the books borrowed most often in the last N days.
func (s *service) Trending(ctx context.Context, days, limit int) ([]*Book, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 10
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.repo.Trending(ctx, s.db, since, limit)
}

// Popular returns the most borrowed books of all time.
func (s *service) Popular(ctx context.Context, limit int) ([]*Book, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.Popular(ctx, s.db, limit)
}

// CheckAvailability reports whether a book can be borrowed right now.
// For a borrowed book it includes the current due date and a day count
// until it is expected back.
func (s *service) CheckAvailability(ctx context.Context, id uuid.UUID) (*Availability, error) {
	book, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	av := &Availability{
		BookID:   book.ID,
		Title:    book.Title,
		Category: book.Category,
		Status:   book.Status,
	}
	if ok, reason := book.CanBeBorrowed(); !ok {
		av.Reason = reason
	} else {
		av.Available = true
		return av, nil
	}

	if book.Status == StatusBorrowed {
		var due time.Time
		err := s.db.QueryRowContext(ctx, `
			SELECT due_date
			FROM borrowings
			WHERE book_id = $1 AND status IN ('ACTIVE', 'EXTENDED', 'OVERDUE')
			ORDER BY created_at DESC
			LIMIT 1
		`, id).Scan(&due)
		switch {
		case err == sql.ErrNoRows:
			// status drifted; leave the due date unset
		case err != nil:
			return nil, fmt.Errorf("query open borrowing: %w", err)
		default:
			av.DueDate = &due
			if days := int(time.Until(due).Hours() / 24); days > 0 {
				av.DaysUntilAvailable = days
			}
		}
	}
	return av, nil
}

// AvailableCopies counts the available copies of an ISBN.
func (s *service) AvailableCopies(ctx context.Context, isbn string) (int, error) {
	return s.repo.AvailableCopies(ctx, s.db, isbn)
}
