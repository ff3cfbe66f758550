package pricing

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// DefaultMonthlyRate compounds to roughly 2% a year.
const DefaultMonthlyRate = "1.00165"

var one = apd.New(1, 0)

// Inflation compounds a price monthly from the month it was set.
type Inflation struct {
	StartYear  int
	StartMonth time.Month
	Rate       *apd.Decimal
}

// ParseInflation builds an Inflation from a "YYYY-MM" start and a rate
// literal. An empty rate means DefaultMonthlyRate.
func ParseInflation(start, rate string) (Inflation, error) {
	t, err := time.Parse("2006-01", start)
	if err != nil {
		return Inflation{}, fmt.Errorf("parse inflation start %q: %w", start, err)
	}
	if rate == "" {
		rate = DefaultMonthlyRate
	}
	r, err := ParseDecimal(rate)
	if err != nil {
		return Inflation{}, err
	}
	if r.Cmp(one) < 0 {
		return Inflation{}, fmt.Errorf("compounding rate should be greater than or equal to 1, was %s", r)
	}
	return Inflation{StartYear: t.Year(), StartMonth: t.Month(), Rate: r}, nil
}

// MonthsElapsed counts whole calendar months from the start to at.
func (in Inflation) MonthsElapsed(at time.Time) int64 {
	return int64(at.Year()-in.StartYear)*12 + int64(at.Month()-in.StartMonth)
}

// Apply returns price compounded for every month between the start and at.
func (in Inflation) Apply(price *apd.Decimal, at time.Time) (*apd.Decimal, error) {
	rate := in.Rate
	if rate == nil {
		rate = Dec(DefaultMonthlyRate)
	}
	factor := new(apd.Decimal)
	if _, err := decimalCtx.Pow(factor, rate, apd.New(in.MonthsElapsed(at), 0)); err != nil {
		return nil, fmt.Errorf("compound %s over %d months: %w", rate, in.MonthsElapsed(at), err)
	}
	return mul(price, factor)
}
