// Package config holds the process-wide library policies. Policies is an
// immutable value passed explicitly into service constructors; nothing in
// the domain packages reads configuration ambiently.
package config

import (
	"os"
	"strconv"
	"time"
)

// Policies groups every tunable business constant in one place.
type Policies struct {
	// Borrowing
	MaxBooksPerUser  int
	MaxExtensions    int
	ExtensionDays    int
	DefaultPeriod    int // days, GENERAL and unlisted categories
	ChildrenPeriod   int
	AcademicPeriod   int
	DueSoonThreshold int // days before due date for reminders

	// Fees
	GracePeriodDays          int
	LateFeePerDay            float64
	LateFeeMaxAmount         float64
	MinWaivableAmount        float64
	MaxWaivableAmount        float64
	ReplacementProcessingFee float64

	// Comments
	FlagThreshold int

	// Notifications
	NotificationRetention time.Duration // read notifications older than this are cleared
}

// Default returns the standard policy set.
func Default() Policies {
	return Policies{
		MaxBooksPerUser:  5,
		MaxExtensions:    2,
		ExtensionDays:    7,
		DefaultPeriod:    14,
		ChildrenPeriod:   7,
		AcademicPeriod:   30,
		DueSoonThreshold: 3,

		GracePeriodDays:          3,
		LateFeePerDay:            0.50,
		LateFeeMaxAmount:         50.00,
		MinWaivableAmount:        0.50,
		MaxWaivableAmount:        5.00,
		ReplacementProcessingFee: 5.00,

		FlagThreshold: 3,

		NotificationRetention: 30 * 24 * time.Hour,
	}
}

// FromEnv returns Default overridden by LIBRARY_* environment variables.
// Unset or malformed variables keep the default.
func FromEnv() Policies {
	p := Default()
	envInt("LIBRARY_MAX_BOOKS_PER_USER", &p.MaxBooksPerUser)
	envInt("LIBRARY_MAX_EXTENSIONS", &p.MaxExtensions)
	envInt("LIBRARY_EXTENSION_DAYS", &p.ExtensionDays)
	envInt("LIBRARY_DEFAULT_PERIOD_DAYS", &p.DefaultPeriod)
	envInt("LIBRARY_CHILDREN_PERIOD_DAYS", &p.ChildrenPeriod)
	envInt("LIBRARY_ACADEMIC_PERIOD_DAYS", &p.AcademicPeriod)
	envInt("LIBRARY_GRACE_PERIOD_DAYS", &p.GracePeriodDays)
	envFloat("LIBRARY_LATE_FEE_PER_DAY", &p.LateFeePerDay)
	envFloat("LIBRARY_LATE_FEE_MAX", &p.LateFeeMaxAmount)
	envInt("LIBRARY_FLAG_THRESHOLD", &p.FlagThreshold)
	return p
}

// BorrowingPeriodDays returns the loan period for a book category.
// REFERENCE books are not borrowable; callers must reject them before
// asking for a period, so it falls through to the default here.
func (p Policies) BorrowingPeriodDays(category string) int {
	switch category {
	case "CHILDREN":
		return p.ChildrenPeriod
	case "ACADEMIC":
		return p.AcademicPeriod
	default:
		return p.DefaultPeriod
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
