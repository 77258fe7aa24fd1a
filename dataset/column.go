package dataset

import (
	"strconv"
	"time"
)

type Kind int

const (
	KindString Kind = iota
	KindCategorical
	KindInt
	KindFloat
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindCategorical:
		return "categorical"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	}
	return "unknown"
}

// Column is an immutable, homogeneously typed sequence of values.
// Constructors take ownership of the slices they are given.
type Column interface {
	Name() string
	Len() int
	Kind() Kind
	IsNull(i int) bool
	// Value returns string, int64, float64 or time.Time, or nil when the cell is missing.
	Value(i int) any
	String(i int) string
	// Take returns a new column with the rows at the given indices, in that order.
	Take(rows []int) Column
	Rename(name string) Column
}

func takeNulls(nulls []bool, rows []int) []bool {
	if nulls == nil {
		return nil
	}
	out := make([]bool, len(rows))
	for i, r := range rows {
		out[i] = nulls[r]
	}
	return out
}

// StringColumn holds free text.
type StringColumn struct {
	name   string
	values []string
	nulls  []bool
}

func NewStringColumn(name string, values []string, nulls []bool) *StringColumn {
	return &StringColumn{name: name, values: values, nulls: nulls}
}

func (c *StringColumn) Name() string { return c.name }
func (c *StringColumn) Len() int { return len(c.values) }
func (c *StringColumn) Kind() Kind { return KindString }
func (c *StringColumn) IsNull(i int) bool { return c.nulls != nil && c.nulls[i] }
func (c *StringColumn) String(i int) string {
	if c.IsNull(i) {
		return ""
	}
	return c.values[i]
}

func (c *StringColumn) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	return c.values[i]
}

func (c *StringColumn) Take(rows []int) Column {
	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = c.values[r]
	}
	return &StringColumn{name: c.name, values: values, nulls: takeNulls(c.nulls, rows)}
}

func (c *StringColumn) Rename(name string) Column {
	return &StringColumn{name: name, values: c.values, nulls: c.nulls}
}

// CategoricalColumn stores each distinct value once; rows reference levels by code.
// Code -1 marks a missing cell.
type CategoricalColumn struct {
	name   string
	levels []string
	codes  []int32
}

// NewCategoricalColumn dictionary-encodes values, assigning codes in first-seen order.
func NewCategoricalColumn(name string, values []string, nulls []bool) *CategoricalColumn {
	b := newCategoricalBuilder()
	for i, v := range values {
		if nulls != nil && nulls[i] {
			b.Append(nil)
			continue
		}
		b.Append(v)
	}
	return b.Build(name).(*CategoricalColumn)
}

func (c *CategoricalColumn) Name() string { return c.name }
func (c *CategoricalColumn) Len() int { return len(c.codes) }
func (c *CategoricalColumn) Kind() Kind { return KindCategorical }
func (c *CategoricalColumn) IsNull(i int) bool { return c.codes[i] < 0 }
func (c *CategoricalColumn) Code(i int) int32 { return c.codes[i] }
func (c *CategoricalColumn) NumLevels() int { return len(c.levels) }
func (c *CategoricalColumn) Level(code int32) string {
	return c.levels[code]
}

// Levels returns a copy of the distinct values, in code order.
func (c *CategoricalColumn) Levels() []string {
	out := make([]string, len(c.levels))
	copy(out, c.levels)
	return out
}

// CodeOf returns the code of v, or -1 when v is not a level.
func (c *CategoricalColumn) CodeOf(v string) int32 {
	for i, l := range c.levels {
		if l == v {
			return int32(i)
		}
	}
	return -1
}

func (c *CategoricalColumn) String(i int) string {
	if c.codes[i] < 0 {
		return ""
	}
	return c.levels[c.codes[i]]
}

func (c *CategoricalColumn) Value(i int) any {
	if c.codes[i] < 0 {
		return nil
	}
	return c.levels[c.codes[i]]
}

// Take shares the level dictionary with the receiver.
func (c *CategoricalColumn) Take(rows []int) Column {
	codes := make([]int32, len(rows))
	for i, r := range rows {
		codes[i] = c.codes[r]
	}
	return &CategoricalColumn{name: c.name, levels: c.levels, codes: codes}
}

func (c *CategoricalColumn) Rename(name string) Column {
	return &CategoricalColumn{name: name, levels: c.levels, codes: c.codes}
}

type FloatColumn struct {
	name   string
	values []float64
	nulls  []bool
}

func NewFloatColumn(name string, values []float64, nulls []bool) *FloatColumn {
	return &FloatColumn{name: name, values: values, nulls: nulls}
}

func (c *FloatColumn) Name() string { return c.name }
func (c *FloatColumn) Len() int { return len(c.values) }
func (c *FloatColumn) Kind() Kind { return KindFloat }
func (c *FloatColumn) IsNull(i int) bool { return c.nulls != nil && c.nulls[i] }
func (c *FloatColumn) Float(i int) float64 { return c.values[i] }
func (c *FloatColumn) Rename(n string) Column {
	return &FloatColumn{name: n, values: c.values, nulls: c.nulls}
}

func (c *FloatColumn) String(i int) string {
	if c.IsNull(i) {
		return ""
	}
	return strconv.FormatFloat(c.values[i], 'f', -1, 64)
}

func (c *FloatColumn) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	return c.values[i]
}

func (c *FloatColumn) Take(rows []int) Column {
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = c.values[r]
	}
	return &FloatColumn{name: c.name, values: values, nulls: takeNulls(c.nulls, rows)}
}

// TimeColumn holds parsed dates; unparseable cells are missing.
type TimeColumn struct {
	name   string
	values []time.Time
	nulls  []bool
}

func NewTimeColumn(name string, values []time.Time, nulls []bool) *TimeColumn {
	return &TimeColumn{name: name, values: values, nulls: nulls}
}

func (c *TimeColumn) Name() string { return c.name }
func (c *TimeColumn) Len() int { return len(c.values) }
func (c *TimeColumn) Kind() Kind { return KindTime }
func (c *TimeColumn) IsNull(i int) bool { return c.nulls != nil && c.nulls[i] }

func (c *TimeColumn) Time(i int) (time.Time, bool) {
	if c.IsNull(i) {
		return time.Time{}, false
	}
	return c.values[i], true
}

// Max returns the latest non-missing value.
func (c *TimeColumn) Max() (time.Time, bool) {
	var latest time.Time
	found := false
	for i, v := range c.values {
		if c.IsNull(i) {
			continue
		}
		if !found || v.After(latest) {
			latest, found = v, true
		}
	}
	return latest, found
}

func (c *TimeColumn) String(i int) string {
	if c.IsNull(i) {
		return ""
	}
	return c.values[i].Format("02/01/2006")
}

func (c *TimeColumn) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	return c.values[i]
}

func (c *TimeColumn) Take(rows []int) Column {
	values := make([]time.Time, len(rows))
	for i, r := range rows {
		values[i] = c.values[r]
	}
	return &TimeColumn{name: c.name, values: values, nulls: takeNulls(c.nulls, rows)}
}

func (c *TimeColumn) Rename(name string) Column {
	return &TimeColumn{name: name, values: c.values, nulls: c.nulls}
}

// Number reads a numeric cell from an int or float column.
func Number(c Column, i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	switch col := c.(type) {
	case *FloatColumn:
		return col.values[i], true
	case interface{ Int(int) int64 }:
		return float64(col.Int(i)), true
	}
	return 0, false
}
