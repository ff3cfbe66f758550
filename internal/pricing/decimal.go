package pricing

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// decimalCtx is used for every price calculation. Rounding is half-up.
var decimalCtx = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfUp
	return c
}()

// Dec parses a decimal literal. It panics on malformed input and is meant for
// constants in price tables.
func Dec(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("pricing: bad decimal literal %q: %v", s, err))
	}
	return d
}

// ParseDecimal parses s as a decimal.
func ParseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

func mul(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := decimalCtx.Mul(d, x, y); err != nil {
		return nil, err
	}
	return d, nil
}

func sub(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := decimalCtx.Sub(d, x, y); err != nil {
		return nil, err
	}
	return d, nil
}

// Cents formats d with two decimal places, rounding half-up.
func Cents(d *apd.Decimal) string {
	q := new(apd.Decimal)
	if _, err := decimalCtx.Quantize(q, d, -2); err != nil {
		return d.Text('f')
	}
	return q.Text('f')
}
