package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const CurrencySymbol = "₹"

// LifetimeDays is the duration threshold from which a plan is presented as lifetime access.
const LifetimeDays = 36500

var ErrInvalidRate = errors.New("commission rate must be in [0, 1)")

// Format renders an amount in whole currency units with thousands grouping: ₹1,999.
func Format(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + CurrencySymbol + b.String()
}

func FormatDuration(days int) string {
	switch {
	case days >= LifetimeDays:
		return "Lifetime"
	case days == 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// ParseRate accepts "0.10", "10%" or "10" (treated as percent when > 1).
func ParseRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	rate, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse commission rate %q: %w", s, err)
	}
	hundred := decimal.NewFromInt(100)
	if percent || rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = rate.Div(hundred)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidRate
	}
	return rate, nil
}

// Commission is amount × rate rounded down to whole currency units.
func Commission(amount int64, rate decimal.Decimal) int64 {
	if amount <= 0 || rate.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(rate).Floor().IntPart()
}

func FormatRate(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).String() + "%"
}
