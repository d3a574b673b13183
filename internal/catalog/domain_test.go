package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanBeBorrowed(t *testing.T) {
	tests := []struct {
		name   string
		book   Book
		ok     bool
		reason string
	}{
		{
			name: "available general book",
			book: Book{Title: "Dune", Category: CategoryGeneral, Status: StatusAvailable, IsAvailable: true},
			ok:   true,
		},
		{
			name:   "reference book",
			book:   Book{Title: "Encyclopedia", Category: CategoryReference, Status: StatusAvailable, IsAvailable: true},
			reason: "REFERENCE",
		},
		{
			name:   "borrowed book",
			book:   Book{Title: "Dune", Category: CategoryGeneral, Status: StatusBorrowed},
			reason: "not available",
		},
		{
			name:   "lost book",
			book:   Book{Title: "Dune", Category: CategoryGeneral, Status: StatusLost},
			reason: "lost",
		},
		{
			name:   "damaged book",
			book:   Book{Title: "Dune", Category: CategoryGeneral, Status: StatusDamaged},
			reason: "damaged",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := tt.book.CanBeBorrowed()
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Contains(t, reason, tt.reason)
			}
		})
	}
}

func TestApplyRating(t *testing.T) {
	b := &Book{AverageRating: 4.0, TotalRatings: 2}
	b.ApplyRating(5)

	assert.Equal(t, 3, b.TotalRatings)
	assert.InDelta(t, 13.0/3.0, b.AverageRating, 0.0001)
}

func TestApplyRatingFirst(t *testing.T) {
	b := &Book{}
	b.ApplyRating(3)

	assert.Equal(t, 1, b.TotalRatings)
	assert.InDelta(t, 3.0, b.AverageRating, 0.0001)
}

func TestRemoveRatingInvertsApply(t *testing.T) {
	b := &Book{AverageRating: 4.0, TotalRatings: 2}
	b.ApplyRating(5)
	b.RemoveRating(5)

	assert.Equal(t, 2, b.TotalRatings)
	assert.InDelta(t, 4.0, b.AverageRating, 0.0001)
}

func TestRemoveRatingLast(t *testing.T) {
	b := &Book{AverageRating: 5.0, TotalRatings: 1}
	b.RemoveRating(5)

	assert.Equal(t, 0, b.TotalRatings)
	assert.Zero(t, b.AverageRating)
}
