package borrowing

import (
	"math"
	"strings"
	"time"

	"github.com/FCHEHIDI/Library-Management-System/internal/config"
)

// WaiverPolicy decides whether a fee may be waived for the given reason.
// The default implementation is a heuristic, not business law; swap it
// out when a real approval workflow exists.
type WaiverPolicy func(fee float64, reason string) bool

// waiverJustifications are the accepted reason fragments of the default
// policy, matched case-insensitively as substrings.
var waiverJustifications = []string{
	"first offense",
	"technical error",
	"system issue",
	"emergency",
	"special circumstances",
}

// DefaultWaiverPolicy waives trivial fees unconditionally, refuses fees
// above the manual-override threshold, and otherwise requires a reason
// of at least 10 characters matching an accepted justification.
func DefaultWaiverPolicy(p config.Policies) WaiverPolicy {
	return func(fee float64, reason string) bool {
		if fee < p.MinWaivableAmount {
			return true
		}
		if fee > p.MaxWaivableAmount {
			return false
		}
		if len(reason) < 10 {
			return false
		}
		lower := strings.ToLower(reason)
		for _, j := range waiverJustifications {
			if strings.Contains(lower, j) {
				return true
			}
		}
		return false
	}
}

// FeeCalculator computes late fees, damage fees and replacement costs
// from dates and policy constants. It is pure; all methods are safe for
// concurrent use.
type FeeCalculator struct {
	policies config.Policies
	waiver   WaiverPolicy
}

// NewFeeCalculator builds a calculator with the default waiver policy.
func NewFeeCalculator(p config.Policies) FeeCalculator {
	return FeeCalculator{policies: p, waiver: DefaultWaiverPolicy(p)}
}

// WithWaiverPolicy returns a copy of the calculator using the given
// waiver policy.
func (c FeeCalculator) WithWaiverPolicy(w WaiverPolicy) FeeCalculator {
	c.waiver = w
	return c
}

// LateFee computes the fee owed when a book due at dueDate comes back at
// returnedAt. Days inside the grace period are free; after that each day
// charges the daily rate up to the cap.
func (c FeeCalculator) LateFee(dueDate, returnedAt time.Time) float64 {
	if !returnedAt.After(dueDate) {
		return 0
	}
	daysLate := int(returnedAt.Sub(dueDate).Hours() / 24)
	if daysLate <= c.policies.GracePeriodDays {
		return 0
	}
	chargeable := daysLate - c.policies.GracePeriodDays
	fee := float64(chargeable) * c.policies.LateFeePerDay
	if fee > c.policies.LateFeeMaxAmount {
		fee = c.policies.LateFeeMaxAmount
	}
	return round2(fee)
}

// AccruedLateFee is the fee a still-open loan would owe if returned now.
func (c FeeCalculator) AccruedLateFee(dueDate, now time.Time) float64 {
	return c.LateFee(dueDate, now)
}

// DamageFee charges a fraction of the book's base price by damage level.
// An unrecognized level is treated as MODERATE.
func (c FeeCalculator) DamageFee(basePrice float64, level DamageLevel) float64 {
	var fraction float64
	switch level {
	case DamageMinor:
		fraction = 0.10
	case DamageSevere:
		fraction = 1.00
	default:
		fraction = 0.50
	}
	return round2(basePrice * fraction)
}

// ReplacementCost is what a lost book costs: base price plus the
// processing fee.
func (c FeeCalculator) ReplacementCost(basePrice float64) float64 {
	return round2(basePrice + c.policies.ReplacementProcessingFee)
}

// TotalFees sums the fee components.
func (c FeeCalculator) TotalFees(lateFee, damageFee float64) float64 {
	return round2(lateFee + damageFee)
}

// CanWaiveFee reports whether the configured waiver policy accepts
// waiving this fee for this reason.
func (c FeeCalculator) CanWaiveFee(fee float64, reason string) bool {
	return c.waiver(fee, reason)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
