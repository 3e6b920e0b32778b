package metrics

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"hydroeval/internal/format"
)

// Value is a metric that may be undefined. Undefined values render as JSON
// null and as an empty CSV cell; NaN never leaves the engine.
type Value struct {
	V     float64
	Valid bool
}

// Defined wraps a finite number. Non-finite input yields an undefined Value.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, Valid: true}
}

// Undefined is the zero Value.
var Undefined = Value{}

// String renders the value for CSV output.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return format.Float(v.V)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return []byte(format.Float(v.V)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Undefined
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("metric value %s: %w", b, err)
	}
	*v = Defined(f)
	return nil
}
