package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies a book and drives its borrowing period.
type Category string

const (
	CategoryGeneral   Category = "GENERAL"
	CategoryReference Category = "REFERENCE"
	CategoryChildren  Category = "CHILDREN"
	CategoryAcademic  Category = "ACADEMIC"
	CategoryFiction   Category = "FICTION"
	CategoryScience   Category = "SCIENCE"
	CategoryHistory   Category = "HISTORY"
)

// Status is a book's circulation state.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusBorrowed  Status = "BORROWED"
	StatusLost      Status = "LOST"
	StatusDamaged   Status = "DAMAGED"
)

// PhysicalState describes the book's physical condition.
type PhysicalState string

const (
	PhysicalExcellent PhysicalState = "EXCELLENT"
	PhysicalGood      PhysicalState = "GOOD"
	PhysicalWorn      PhysicalState = "WORN"
	PhysicalDamaged   PhysicalState = "DAMAGED"
)

// Book is a catalog entry. IsAvailable is kept the logical negation of
// "has an open borrowing" and always equals (Status == AVAILABLE).
type Book struct {
	ID            uuid.UUID     `json:"id"`
	ISBN          string        `json:"isbn"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	Publisher     string        `json:"publisher,omitempty"`
	YearPublished int           `json:"year_published,omitempty"`
	Category      Category      `json:"category"`
	Status        Status        `json:"status"`
	IsAvailable   bool          `json:"is_available"`
	PhysicalState PhysicalState `json:"physical_state"`
	Location      string        `json:"location,omitempty"`
	Description   string        `json:"description,omitempty"`
	Language      string        `json:"language,omitempty"`
	PageCount     int           `json:"page_count,omitempty"`
	BasePrice     float64       `json:"base_price"`

	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`

	CurrentBorrowingCount int        `json:"current_borrowing_count"`
	TotalBorrowings       int        `json:"total_borrowings"`
	LastBorrowedAt        *time.Time `json:"last_borrowed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanBeBorrowed reports whether the book may be lent out, with the
// blocking reason when not. REFERENCE books are never borrowable.
func (b *Book) CanBeBorrowed() (bool, string) {
	if !b.IsAvailable {
		switch b.Status {
		case StatusLost:
			return false, "cannot borrow lost books"
		case StatusDamaged:
			return false, "cannot borrow damaged books"
		}
		return false, "book '" + b.Title + "' is not available"
	}
	if b.Category == CategoryReference {
		return false, "book category REFERENCE cannot be borrowed"
	}
	return true, ""
}

// ApplyRating folds one new rating into the running average. Callers
// guard against double counting; this only does the arithmetic.
func (b *Book) ApplyRating(rating int) {
	b.TotalRatings++
	total := b.AverageRating*float64(b.TotalRatings-1) + float64(rating)
	b.AverageRating = total / float64(b.TotalRatings)
}

// RemoveRating backs one rating out of the running average, the inverse
// of ApplyRating. A rating counts toward the average only while its
// comment is approved.
func (b *Book) RemoveRating(rating int) {
	if b.TotalRatings <= 1 {
		b.TotalRatings = 0
		b.AverageRating = 0
		return
	}
	total := b.AverageRating*float64(b.TotalRatings) - float64(rating)
	b.TotalRatings--
	b.AverageRating = total / float64(b.TotalRatings)
}

// Availability describes whether a book can currently be borrowed and,
// when it cannot, why and until when.
type Availability struct {
	Available          bool       `json:"available"`
	Reason             string     `json:"reason,omitempty"`
	BookID             uuid.UUID  `json:"book_id,omitempty"`
	Title              string     `json:"title,omitempty"`
	Category           Category   `json:"category,omitempty"`
	Status             Status     `json:"status,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	DaysUntilAvailable int        `json:"days_until_available,omitempty"`
}
