package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// columnBuilder accumulates decoded cells for one column. Cells arrive as
// nil, string, int64, float64 or time.Time.
type columnBuilder interface {
	Append(v any)
	Build(name string) Column
}

func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// nullMask grows lazily so fully populated columns carry no mask.
type nullMask struct {
	nulls []bool
}

func (m *nullMask) mark(row int, null bool) {
	if !null && m.nulls == nil {
		return
	}
	if m.nulls == nil {
		m.nulls = make([]bool, row, row+1)
	}
	m.nulls = append(m.nulls, null)
}

type stringBuilder struct {
	values []string
	mask   nullMask
}

func (b *stringBuilder) Append(v any) {
	row := len(b.values)
	if v == nil {
		b.values = append(b.values, "")
		b.mask.mark(row, true)
		return
	}
	b.values = append(b.values, textOf(v))
	b.mask.mark(row, false)
}

func (b *stringBuilder) Build(name string) Column {
	return NewStringColumn(name, b.values, b.mask.nulls)
}

type categoricalBuilder struct {
	index  map[string]int32
	levels []string
	codes  []int32
}

func newCategoricalBuilder() *categoricalBuilder {
	return &categoricalBuilder{index: make(map[string]int32)}
}

func (b *categoricalBuilder) Append(v any) {
	if v == nil {
		b.codes = append(b.codes, -1)
		return
	}
	s := textOf(v)
	code, ok := b.index[s]
	if !ok {
		code = int32(len(b.levels))
		b.index[s] = code
		b.levels = append(b.levels, s)
	}
	b.codes = append(b.codes, code)
}

func (b *categoricalBuilder) Build(name string) Column {
	return &CategoricalColumn{name: name, levels: b.levels, codes: b.codes}
}

// intBuilder coerces every cell to a number, zero when invalid. It switches
// to float storage the first time a fractional value shows up.
type intBuilder struct {
	ints   []int64
	floats []float64
}

func (b *intBuilder) Append(v any) {
	n, f, integral := coerceNumber(v)
	if b.floats == nil && integral {
		b.ints = append(b.ints, n)
		return
	}
	if b.floats == nil {
		b.floats = make([]float64, len(b.ints), len(b.ints)+1)
		for i, x := range b.ints {
			b.floats[i] = float64(x)
		}
		b.ints = nil
	}
	if integral {
		f = float64(n)
	}
	b.floats = append(b.floats, f)
}

func (b *intBuilder) Build(name string) Column {
	if b.floats != nil {
		return NewFloatColumn(name, b.floats, nil)
	}
	return narrowInts(name, b.ints)
}

// plainIntBuilder keeps native int64 values; a missing cell turns the column into floats.
type plainIntBuilder struct {
	values []int64
	mask   nullMask
}

func (b *plainIntBuilder) Append(v any) {
	row := len(b.values)
	n, ok := v.(int64)
	b.values = append(b.values, n)
	b.mask.mark(row, !ok)
}

func (b *plainIntBuilder) Build(name string) Column {
	if b.mask.nulls == nil {
		return NewIntColumn(name, b.values)
	}
	floats := make([]float64, len(b.values))
	for i, v := range b.values {
		floats[i] = float64(v)
	}
	return NewFloatColumn(name, floats, b.mask.nulls)
}

type floatBuilder struct {
	values []float64
	mask   nullMask
}

func (b *floatBuilder) Append(v any) {
	row := len(b.values)
	var (
		f  float64
		ok bool
	)
	switch x := v.(type) {
	case float64:
		f, ok = x, !math.IsNaN(x)
	case int64:
		f, ok = float64(x), true
	case string:
		f, ok = parseNumber(x)
	}
	b.values = append(b.values, f)
	b.mask.mark(row, !ok)
}

func (b *floatBuilder) Build(name string) Column {
	return NewFloatColumn(name, b.values, b.mask.nulls)
}

type timeBuilder struct {
	values []time.Time
	mask   nullMask
}

func (b *timeBuilder) Append(v any) {
	row := len(b.values)
	var (
		t  time.Time
		ok bool
	)
	switch x := v.(type) {
	case time.Time:
		t, ok = x, !x.IsZero()
	case string:
		t, ok = ParseDayFirst(x)
	}
	b.values = append(b.values, t)
	b.mask.mark(row, !ok)
}

func (b *timeBuilder) Build(name string) Column {
	return NewTimeColumn(name, b.values, b.mask.nulls)
}

// dynamicBuilder is used for spreadsheet columns without a declared type:
// columns made only of numeric cells become numbers, anything else stays text.
type dynamicBuilder struct {
	texts      []string
	nums       []float64
	mask       nullMask
	textSeen   bool
	fractional bool
}

func (b *dynamicBuilder) Append(v any) {
	row := len(b.texts)
	if v == nil {
		b.texts = append(b.texts, "")
		b.nums = append(b.nums, 0)
		b.mask.mark(row, true)
		return
	}
	if f, ok := v.(float64); ok {
		b.nums = append(b.nums, f)
		if f != math.Trunc(f) {
			b.fractional = true
		}
	} else {
		b.textSeen = true
		b.nums = append(b.nums, 0)
	}
	b.texts = append(b.texts, textOf(v))
	b.mask.mark(row, false)
}

func (b *dynamicBuilder) Build(name string) Column {
	numeric := !b.textSeen && len(b.texts) > 0 && countFalse(b.mask.nulls, len(b.texts)) > 0
	switch {
	case !numeric:
		return NewStringColumn(name, b.texts, b.mask.nulls)
	case !b.fractional && b.mask.nulls == nil:
		ints := make([]int64, len(b.nums))
		for i, f := range b.nums {
			ints[i] = int64(f)
		}
		return NewIntColumn(name, ints)
	}
	return NewFloatColumn(name, b.nums, b.mask.nulls)
}

func countFalse(mask []bool, n int) int {
	if mask == nil {
		return n
	}
	c := 0
	for _, m := range mask {
		if !m {
			c++
		}
	}
	return c
}

// coerceNumber converts a cell to a number, treating anything unparseable as zero.
func coerceNumber(v any) (n int64, f float64, integral bool) {
	switch x := v.(type) {
	case int64:
		return x, 0, true
	case float64:
		return splitFloat(x)
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, 0, true
		}
		if fv, ok := parseNumber(s); ok {
			return splitFloat(fv)
		}
	}
	return 0, 0, true
}

func splitFloat(f float64) (int64, float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, 0, true
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), 0, true
	}
	return 0, f, false
}

// parseNumber accepts "1234.5" and, when no dot is present, "1234,5".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
