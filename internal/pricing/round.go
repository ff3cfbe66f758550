package pricing

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

var roundingThreshold = Dec("1000")

// RoundToNearest rounds price half-up to a multiple of step.
func RoundToNearest(price *apd.Decimal, step int64) (*apd.Decimal, error) {
	if step <= 0 {
		return nil, fmt.Errorf("rounding step must be positive, got %d", step)
	}
	s := apd.New(step, 0)

	scaled := new(apd.Decimal)
	if _, err := decimalCtx.Quo(scaled, price, s); err != nil {
		return nil, err
	}
	if _, err := decimalCtx.Quantize(scaled, scaled, 0); err != nil {
		return nil, err
	}
	return mul(scaled, s)
}

// RoundEstimate rounds a quoted price: to the nearest 10 below 1000, to the
// nearest 50 from 1000 up.
func RoundEstimate(price *apd.Decimal) (*apd.Decimal, error) {
	if price.Cmp(roundingThreshold) < 0 {
		return RoundToNearest(price, 10)
	}
	return RoundToNearest(price, 50)
}
