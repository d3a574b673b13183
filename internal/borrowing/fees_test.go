package borrowing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/FCHEHIDI/Library-Management-System/internal/config"
)

func day(n int) time.Time {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, n)
}

func TestLateFeeOnTimeIsZero(t *testing.T) {
	calc := NewFeeCalculator(config.Default())

	assert.Zero(t, calc.LateFee(day(14), day(14)))
	assert.Zero(t, calc.LateFee(day(14), day(10)))
	assert.Zero(t, calc.LateFee(day(14), day(0)))
}

func TestLateFeeGracePeriod(t *testing.T) {
	p := config.Default()
	calc := NewFeeCalculator(p)
	due := day(0)

	for late := 1; late <= p.GracePeriodDays; late++ {
		assert.Zerof(t, calc.LateFee(due, day(late)), "day %d is inside the grace period", late)
	}

	// First chargeable day is exactly one day's rate.
	assert.Equal(t, p.LateFeePerDay, calc.LateFee(due, day(p.GracePeriodDays+1)))
}

func TestLateFeeDayTwentyScenario(t *testing.T) {
	// Borrowed day 0 with the default 14-day period, returned day 20:
	// 6 days late, 3 chargeable after grace, 3 * 0.50 = 1.50.
	calc := NewFeeCalculator(config.Default())
	borrowed := day(0)
	due := borrowed.AddDate(0, 0, config.Default().DefaultPeriod)

	assert.Equal(t, 1.50, calc.LateFee(due, borrowed.AddDate(0, 0, 20)))
}

func TestLateFeeProperties(t *testing.T) {
	p := config.Default()
	calc := NewFeeCalculator(p)
	due := day(0)

	rapid.Check(t, func(t *rapid.T) {
		late := rapid.IntRange(0, 5000).Draw(t, "daysLate")
		fee := calc.LateFee(due, due.AddDate(0, 0, late))

		assert.GreaterOrEqual(t, fee, 0.0)
		assert.LessOrEqual(t, fee, p.LateFeeMaxAmount, "fee never exceeds the cap")
		if late <= p.GracePeriodDays {
			assert.Zero(t, fee)
		} else {
			expected := float64(late-p.GracePeriodDays) * p.LateFeePerDay
			if expected > p.LateFeeMaxAmount {
				expected = p.LateFeeMaxAmount
			}
			assert.Equal(t, expected, fee)
		}
	})
}

func TestLateFeeMonotonic(t *testing.T) {
	calc := NewFeeCalculator(config.Default())
	due := day(0)

	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 400).Draw(t, "a")
		b := rapid.IntRange(0, 400).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		assert.LessOrEqual(t, calc.LateFee(due, due.AddDate(0, 0, a)), calc.LateFee(due, due.AddDate(0, 0, b)))
	})
}

func TestDamageFee(t *testing.T) {
	calc := NewFeeCalculator(config.Default())

	assert.Equal(t, 2.00, calc.DamageFee(20.00, DamageMinor))
	assert.Equal(t, 10.00, calc.DamageFee(20.00, DamageModerate))
	assert.Equal(t, 20.00, calc.DamageFee(20.00, DamageSevere))
	// Unrecognized levels fall back to MODERATE.
	assert.Equal(t, 10.00, calc.DamageFee(20.00, DamageLevel("SCRATCHED")))
}

func TestReplacementCost(t *testing.T) {
	calc := NewFeeCalculator(config.Default())
	assert.InDelta(t, 29.99, calc.ReplacementCost(24.99), 0.001)
}

func TestTotalFeesDamageOnly(t *testing.T) {
	// Zero days late plus damage d yields total == d exactly.
	calc := NewFeeCalculator(config.Default())
	due := day(14)
	late := calc.LateFee(due, day(14))
	damage := calc.DamageFee(30.00, DamageMinor)

	assert.Zero(t, late)
	assert.Equal(t, damage, calc.TotalFees(late, damage))
}

func TestCanWaiveFee(t *testing.T) {
	p := config.Default()
	calc := NewFeeCalculator(p)

	// Trivial amounts are always waivable, even without a reason.
	assert.True(t, calc.CanWaiveFee(0.25, ""))

	// Amounts above the ceiling need manual override.
	assert.False(t, calc.CanWaiveFee(10.00, "first offense, please"))

	// In-range amounts need a long enough accepted justification.
	assert.True(t, calc.CanWaiveFee(2.00, "This was my first offense"))
	assert.True(t, calc.CanWaiveFee(2.00, "TECHNICAL ERROR in the kiosk"))
	assert.False(t, calc.CanWaiveFee(2.00, "emergency"))
	assert.False(t, calc.CanWaiveFee(2.00, "I simply forgot about it"))
	assert.False(t, calc.CanWaiveFee(2.00, ""))
}

func TestCustomWaiverPolicy(t *testing.T) {
	calc := NewFeeCalculator(config.Default()).
		WithWaiverPolicy(func(fee float64, reason string) bool { return reason == "approved" })

	assert.True(t, calc.CanWaiveFee(100.00, "approved"))
	assert.False(t, calc.CanWaiveFee(0.01, "anything else"))
}
