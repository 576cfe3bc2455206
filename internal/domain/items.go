package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxNumberLen caps the text of an item value before it is parsed.
const maxNumberLen = 64

// maxExponent bounds decimal exponents so values never expand into huge digit strings.
const maxExponent = 18

var (
	maxQuantity = decimal.NewFromInt(int64(math.MaxInt))
	minQuantity = decimal.NewFromInt(int64(math.MinInt))

	// MaxWeight is the largest weight accepted, in kilograms.
	MaxWeight = decimal.New(1, 9)
)

// Quantity is a whole number of units. It accepts JSON numbers and numeric
// strings because form inputs are often submitted as text.
type Quantity int

// UnmarshalJSON decodes 3, "3" or "" (as zero).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	raw, err := unquoteNumber(data)
	if err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	if raw == "" {
		*q = 0
		return nil
	}
	if len(raw) > maxNumberLen {
		return errors.New("quantity: value too long")
	}
	n, err := strconv.ParseInt(raw, 10, strconv.IntSize)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("quantity: %q out of range", raw)
		}
		// Accept 2.0 from number inputs, reject 2.5.
		d, derr := decimal.NewFromString(raw)
		if derr != nil {
			return fmt.Errorf("quantity: %q is not a whole number", raw)
		}
		if d.Exponent() > maxExponent || d.Exponent() < -maxExponent ||
			d.GreaterThan(maxQuantity) || d.LessThan(minQuantity) {
			return fmt.Errorf("quantity: %q out of range", raw)
		}
		if !d.IsInteger() {
			return fmt.Errorf("quantity: %q is not a whole number", raw)
		}
		n = d.IntPart()
	}
	*q = Quantity(n)
	return nil
}

// Weight is a decimal amount in kilograms.
type Weight struct {
	decimal.Decimal
}

// NewWeight parses s as a Weight. Weights beyond MaxWeight kilograms or
// with more than 18 decimal places are rejected.
func NewWeight(s string) (Weight, error) {
	if len(s) > maxNumberLen {
		return Weight{}, errors.New("value too long")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Weight{}, err
	}
	if d.Exponent() > maxExponent || d.Exponent() < -maxExponent || d.Abs().GreaterThan(MaxWeight) {
		return Weight{}, fmt.Errorf("weight %q out of range", s)
	}
	return Weight{Decimal: d}, nil
}

// MustWeight is NewWeight that panics on malformed input. Intended for tests and literals.
func MustWeight(s string) Weight {
	w, err := NewWeight(s)
	if err != nil {
		panic(err)
	}
	return w
}

// MarshalJSON writes the weight as a bare JSON number.
func (w Weight) MarshalJSON() ([]byte, error) {
	return []byte(w.Decimal.String()), nil
}

// UnmarshalJSON decodes 1.5, "1.5", "1,5" or "" (as zero).
func (w *Weight) UnmarshalJSON(data []byte) error {
	raw, err := unquoteNumber(data)
	if err != nil {
		return fmt.Errorf("weight: %w", err)
	}
	if raw == "" {
		w.Decimal = decimal.Zero
		return nil
	}
	parsed, err := NewWeight(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return fmt.Errorf("weight: %w", err)
	}
	*w = parsed
	return nil
}

// unquoteNumber returns the textual number inside data, which may be a JSON
// number, a JSON string or null.
func unquoteNumber(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return string(data), nil
}
