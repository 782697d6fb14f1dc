package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies what a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
)

// ErrNull is returned when a numeric value is requested from an empty cell.
var ErrNull = errors.New("null value")

// Value is a single nullable cell.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Null returns the empty cell.
func Null() Value { return Value{} }

// Text returns a text cell. Blank strings become Null.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// Number returns a numeric cell.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Kind reports the kind of the cell.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.kind == KindNull }

// String renders the cell the way it is written to CSV output.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Float returns the numeric content of the cell. Text cells are coerced with
// ParseNumber.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindText:
		return ParseNumber(v.text)
	default:
		return 0, ErrNull
	}
}

// Equal reports whether two cells hold the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == other.text
	case KindNumber:
		return v.num == other.num
	default:
		return true
	}
}

// numberReplacer strips thousands separators, currency symbols and spacing
// that spreadsheets and ad platforms put around figures.
var numberReplacer = strings.NewReplacer(
	",", "",
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	" ", "",
	"\u00a0", "",
)

// ParseNumber parses a figure such as "$1,234.50" or "1 000".
func ParseNumber(s string) (float64, error) {
	cleaned := numberReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, ErrNull
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return d.InexactFloat64(), nil
}
