// Package input converts the sample sequences accepted by the rule engine into []float64.
package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrInvalidInputFormat is returned when an input cannot be read as a sequence of numbers
var ErrInvalidInputFormat = errors.New("invalid input format")

// Adapter is any source of a sample sequence
type Adapter interface {
	Float64s() ([]float64, error)
}

// NumericList is a heterogeneous list whose elements must all be Go numeric values.  Integers and floats may
// be mixed.  Booleans are rejected even though they convert cleanly.
type NumericList []interface{}

// Float64s converts every element, failing on the first one that is not numeric
func (l NumericList) Float64s() ([]float64, error) {
	out := make([]float64, len(l))
	for i, v := range l {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: element %d has non-numeric type %T", ErrInvalidInputFormat, i, v)
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// LabeledSequence is a sequence of values with a label per sample, such as a timestamp or batch id.  Labels are
// carried for display and ignored by the rules.
type LabeledSequence struct {
	Labels []string
	Values []float64
}

// Float64s returns a copy of the values in order
func (s *LabeledSequence) Float64s() ([]float64, error) {
	if len(s.Labels) != 0 && len(s.Labels) != len(s.Values) {
		return nil, fmt.Errorf("%w: %d labels for %d values", ErrInvalidInputFormat, len(s.Labels), len(s.Values))
	}
	out := make([]float64, len(s.Values))
	copy(out, s.Values)
	return out, nil
}

// RawBuffer holds packed IEEE-754 float64 values.  A nil Order reads little endian.
type RawBuffer struct {
	Data  []byte
	Order binary.ByteOrder
}

// Float64s decodes the buffer 8 bytes at a time
func (b RawBuffer) Float64s() ([]float64, error) {
	if len(b.Data)%8 != 0 {
		return nil, fmt.Errorf("%w: raw buffer length %d is not a multiple of 8", ErrInvalidInputFormat, len(b.Data))
	}
	order := b.Order
	if order == nil {
		order = binary.LittleEndian
	}
	out := make([]float64, len(b.Data)/8)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(b.Data[i*8:]))
	}
	return out, nil
}

// Float64s is a plain slice adapter
type Float64s []float64

// Float64s returns a copy of the slice
func (f Float64s) Float64s() ([]float64, error) {
	out := make([]float64, len(f))
	copy(out, f)
	return out, nil
}
