package dataset

import (
	"math"
	"strconv"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// IntColumn is a narrowed integer column. Invalid cells were coerced to zero,
// so integer columns never hold missing values.
type IntColumn[T constraints.Signed] struct {
	name   string
	values []T
}

func NewIntColumn[T constraints.Signed](name string, values []T) *IntColumn[T] {
	return &IntColumn[T]{name: name, values: values}
}

func (c *IntColumn[T]) Name() string { return c.name }
func (c *IntColumn[T]) Len() int { return len(c.values) }
func (c *IntColumn[T]) Kind() Kind { return KindInt }
func (c *IntColumn[T]) IsNull(int) bool { return false }
func (c *IntColumn[T]) Int(i int) int64 { return int64(c.values[i]) }
func (c *IntColumn[T]) Value(i int) any { return int64(c.values[i]) }
func (c *IntColumn[T]) String(i int) string { return strconv.FormatInt(int64(c.values[i]), 10) }

// Bits is the storage width of one value.
func (c *IntColumn[T]) Bits() int {
	var zero T
	return int(unsafe.Sizeof(zero)) * 8
}

func (c *IntColumn[T]) Take(rows []int) Column {
	values := make([]T, len(rows))
	for i, r := range rows {
		values[i] = c.values[r]
	}
	return &IntColumn[T]{name: c.name, values: values}
}

func (c *IntColumn[T]) Rename(name string) Column {
	return &IntColumn[T]{name: name, values: c.values}
}

// narrowInts picks the smallest signed width holding every value.
func narrowInts(name string, values []int64) Column {
	if len(values) == 0 {
		return NewIntColumn[int8](name, nil)
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	switch {
	case lo >= math.MinInt8 && hi <= math.MaxInt8:
		return convertInts[int8](name, values)
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		return convertInts[int16](name, values)
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		return convertInts[int32](name, values)
	}
	return NewIntColumn(name, values)
}

func convertInts[T constraints.Signed](name string, values []int64) *IntColumn[T] {
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return NewIntColumn(name, out)
}
