package operation

import (
	"fmt"
	"math"
)

// Operation is one recorded addition. Rows are append-only and Result always
// equals A + B at creation time.
type Operation struct {
	ID     int64 `json:"id" db:"id"`
	A      int64 `json:"a" db:"a"`
	B      int64 `json:"b" db:"b"`
	Result int64 `json:"result" db:"result"`
}

// New computes the sum of a and b and returns an unsaved Operation.
func New(a, b int64) Operation {
	return Operation{A: a, B: b, Result: a + b}
}

// Validate checks the invariant and that every column fits a 32-bit integer.
func (o Operation) Validate() error {
	for _, v := range []struct {
		name  string
		value int64
	}{{"a", o.A}, {"b", o.B}, {"result", o.Result}} {
		if v.value < math.MinInt32 || v.value > math.MaxInt32 {
			return fmt.Errorf("%s %d out of range for a 32-bit integer", v.name, v.value)
		}
	}
	if o.Result != o.A+o.B {
		return fmt.Errorf("result %d does not equal %d + %d", o.Result, o.A, o.B)
	}
	return nil
}
