package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"adinsight/dataset"
)

var (
	ErrInvalidParams = errors.New("invalid report parameters")
	ErrMissingColumn = errors.New("column missing from dataset")
)

// lookup finds a column by exact name, then case-insensitively.
func lookup(t *dataset.Table, name string) (dataset.Column, error) {
	if c, ok := t.Column(name); ok {
		return c, nil
	}
	for _, c := range t.Columns() {
		if strings.EqualFold(c.Name(), name) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
}

func optional(t *dataset.Table, name string) dataset.Column {
	c, err := lookup(t, name)
	if err != nil {
		return nil
	}
	return c
}

func timeColumn(t *dataset.Table, name string) (*dataset.TimeColumn, error) {
	c, err := lookup(t, name)
	if err != nil {
		return nil, err
	}
	tc, ok := c.(*dataset.TimeColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, not a date", ErrMissingColumn, name, c.Kind())
	}
	return tc, nil
}

func text(c dataset.Column) func(int) (string, bool) {
	return func(r int) (string, bool) {
		if c.IsNull(r) {
			return "", false
		}
		return c.String(r), true
	}
}

// weight sums the volume column, or counts rows when there is none.
func weight(c dataset.Column) func(int) float64 {
	if c == nil {
		return func(int) float64 { return 1 }
	}
	return func(r int) float64 {
		v, _ := dataset.Number(c, r)
		return v
	}
}

type stringSet map[string]bool

func setOf(values []string) stringSet {
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}

// distinct collects the non-missing values of c over rows.
func distinct(c dataset.Column, rows []int) stringSet {
	s := make(stringSet)
	for _, r := range rows {
		if !c.IsNull(r) {
			s[c.String(r)] = true
		}
	}
	return s
}

func (s stringSet) minus(o stringSet) stringSet {
	out := make(stringSet)
	for k := range s {
		if !o[k] {
			out[k] = true
		}
	}
	return out
}

func (s stringSet) intersect(o stringSet) stringSet {
	out := make(stringSet)
	for k := range s {
		if o[k] {
			out[k] = true
		}
	}
	return out
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// where keeps the rows of c whose text is in s.
func (s stringSet) where(c dataset.Column, rows []int) []int {
	var out []int
	for _, r := range rows {
		if !c.IsNull(r) && s[c.String(r)] {
			out = append(out, r)
		}
	}
	return out
}

func allRows(t *dataset.Table) []int {
	rows := make([]int, t.Rows())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func equals(c dataset.Column, v string) func(int) bool {
	if cat, ok := c.(*dataset.CategoricalColumn); ok {
		code := cat.CodeOf(v)
		return func(r int) bool { return code >= 0 && cat.Code(r) == code }
	}
	return func(r int) bool { return !c.IsNull(r) && c.String(r) == v }
}

func keep(rows []int, pred func(int) bool) []int {
	var out []int
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// between keeps rows dated within [from, to] whole days.
func between(dates *dataset.TimeColumn, from, to time.Time) func(int) bool {
	lo := day(from)
	hi := day(to).AddDate(0, 0, 1)
	return func(r int) bool {
		t, ok := dates.Time(r)
		if !ok {
			return false
		}
		return !t.Before(lo) && t.Before(hi)
	}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const dateLayout = "02/01/2006"

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

func sortRows(rows []int) { sort.Ints(rows) }
