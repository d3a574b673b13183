package catalog

import (
	"context"

	"github.com/google/uuid"
)

// AddInput carries the fields needed to register a new book.
type AddInput struct {
	ISBN          string
	Title         string
	Author        string
	Publisher     string
	YearPublished int
	Category      Category
	Location      string
	Description   string
	Language      string
	PageCount     int
	BasePrice     float64
}

// Update is a partial book change; nil fields are left untouched. Only
// descriptive fields may be changed this way; circulation state moves
// through the dedicated transitions.
type Update struct {
	Title         *string
	Author        *string
	Publisher     *string
	YearPublished *int
	Category      *Category
	Location      *string
	Description   *string
	Language      *string
	PageCount     *int
	BasePrice     *float64
}

// Service defines catalog management and discovery operations.
type Service interface {
	Add(ctx context.Context, in AddInput) (*Book, error)
	Update(ctx context.Context, id uuid.UUID, update Update) (*Book, error)
	Remove(ctx context.Context, id uuid.UUID) error

	MarkLost(ctx context.Context, id uuid.UUID) (*Book, error)
	MarkDamaged(ctx context.Context, id uuid.UUID) (*Book, error)
	Repair(ctx context.Context, id uuid.UUID) (*Book, error)
	Relocate(ctx context.Context, id uuid.UUID, location string) (*Book, error)

	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	Search(ctx context.Context, filter SearchFilter) ([]*Book, int, error)
	List(ctx context.Context, status *Status, category *Category, limit, offset int) ([]*Book, int, error)
	NewArrivals(ctx context.Context, limit int) ([]*Book, error)
	Trending(ctx context.Context, days, limit int) ([]*Book, error)
	Popular(ctx context.Context, limit int) ([]*Book, error)

	CheckAvailability(ctx context.Context, id uuid.UUID) (*Availability, error)
	AvailableCopies(ctx context.Context, isbn string) (int, error)
}
