package borrowing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func record(status Status, due time.Time, extensions int) *Record {
	return &Record{Status: status, DueDate: due, ExtensionCount: extensions}
}

func TestIsOverdue(t *testing.T) {
	now := day(10)

	assert.True(t, record(StatusActive, day(9), 0).IsOverdue(now))
	assert.True(t, record(StatusExtended, day(9), 1).IsOverdue(now))
	assert.False(t, record(StatusActive, day(11), 0).IsOverdue(now))
	assert.False(t, record(StatusReturned, day(0), 0).IsOverdue(now))
}

func TestDaysOverdue(t *testing.T) {
	now := day(10)

	assert.Equal(t, 0, record(StatusActive, day(12), 0).DaysOverdue(now))
	assert.Equal(t, 4, record(StatusActive, day(6), 0).DaysOverdue(now))
	assert.Equal(t, 0, record(StatusReturned, day(6), 0).DaysOverdue(now))
}

func TestCanExtend(t *testing.T) {
	now := day(10)
	maxExt := 2

	ok, _ := record(StatusActive, day(12), 0).CanExtend(now, maxExt)
	assert.True(t, ok)

	ok, reason := record(StatusReturned, day(12), 0).CanExtend(now, maxExt)
	assert.False(t, ok)
	assert.Contains(t, reason, "returned")

	ok, reason = record(StatusOverdue, day(12), 0).CanExtend(now, maxExt)
	assert.False(t, ok)
	assert.Contains(t, reason, "overdue")

	// Past due date rejects even if the sweep has not flipped the status.
	ok, reason = record(StatusActive, day(9), 0).CanExtend(now, maxExt)
	assert.False(t, ok)
	assert.Contains(t, reason, "overdue")

	ok, reason = record(StatusExtended, day(12), maxExt).CanExtend(now, maxExt)
	assert.False(t, ok)
	assert.Contains(t, reason, "extensions")
}

func TestStatusOpen(t *testing.T) {
	assert.True(t, StatusActive.Open())
	assert.True(t, StatusExtended.Open())
	assert.True(t, StatusOverdue.Open())
	assert.False(t, StatusReturned.Open())
}
