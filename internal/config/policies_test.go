package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBorrowingPeriodDays(t *testing.T) {
	p := Default()

	assert.Equal(t, p.DefaultPeriod, p.BorrowingPeriodDays("GENERAL"))
	assert.Equal(t, p.DefaultPeriod, p.BorrowingPeriodDays("FICTION"))
	assert.Equal(t, p.ChildrenPeriod, p.BorrowingPeriodDays("CHILDREN"))
	assert.Equal(t, p.AcademicPeriod, p.BorrowingPeriodDays("ACADEMIC"))
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LIBRARY_MAX_BOOKS_PER_USER", "3")
	t.Setenv("LIBRARY_LATE_FEE_PER_DAY", "0.75")
	t.Setenv("LIBRARY_GRACE_PERIOD_DAYS", "not-a-number")

	p := FromEnv()
	assert.Equal(t, 3, p.MaxBooksPerUser)
	assert.Equal(t, 0.75, p.LateFeePerDay)
	// Malformed values keep the default.
	assert.Equal(t, Default().GracePeriodDays, p.GracePeriodDays)
}
