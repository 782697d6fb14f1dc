package validation

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// amount is an exact decimal used for audit totals, so that summing many
// redistributed shares does not drift.
type amount struct {
	value apd.Decimal
}

func newAmount(s string) (amount, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return amount{}, fmt.Errorf("invalid decimal: %w", err)
	}
	return amount{value: d}, nil
}

// amountOf converts a float through its shortest decimal representation.
func amountOf(f float64) amount {
	a, err := newAmount(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		// FormatFloat never produces an unparsable string for finite input
		return amount{}
	}
	return a
}

func (a amount) String() string {
	return a.value.Text('f')
}

func (a amount) Add(other amount) amount {
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Add(&result, &a.value, &other.value)
	return amount{value: result}
}

func (a amount) Sub(other amount) amount {
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Sub(&result, &a.value, &other.value)
	return amount{value: result}
}

func (a amount) Abs() amount {
	var result apd.Decimal
	result.Abs(&a.value)
	return amount{value: result}
}

func (a amount) Cmp(other amount) int {
	return a.value.Cmp(&other.value)
}
