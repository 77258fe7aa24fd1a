package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrColumnLength    = errors.New("column length does not match table rows")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Table is an ordered set of uniquely named columns sharing one row count.
// A Table is never modified after construction: every derivation returns a
// new Table, sharing column storage where it can.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

func NewTable(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if i == 0 {
			t.rows = c.Len()
		}
		if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrColumnLength, c.Name(), c.Len(), t.rows)
		}
		if _, dup := t.index[c.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name())
		}
		t.index[c.Name()] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

func (t *Table) Rows() int  { return t.rows }
func (t *Table) Width() int { return len(t.columns) }

// Names returns the column names in display order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Clone returns an independent table over the same column storage.
func (t *Table) Clone() *Table {
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &Table{columns: t.Columns(), index: index, rows: t.rows}
}

// WithColumn returns a table with c appended, or replacing the column of the same name.
func (t *Table) WithColumn(c Column) (*Table, error) {
	if len(t.columns) > 0 && c.Len() != t.rows {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrColumnLength, c.Name(), c.Len(), t.rows)
	}
	out := t.Clone()
	if i, ok := out.index[c.Name()]; ok {
		out.columns[i] = c
		return out, nil
	}
	out.index[c.Name()] = len(out.columns)
	out.columns = append(out.columns, c)
	out.rows = c.Len()
	return out, nil
}

func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, n)
		}
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

func (t *Table) Take(rows []int) *Table {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Take(rows)
	}
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &Table{columns: cols, index: index, rows: len(rows)}
}

// Filter returns the rows for which keep is true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	return t.Take(t.Match(keep))
}

// Match returns the indices of the rows for which keep is true.
func (t *Table) Match(keep func(row int) bool) []int {
	var rows []int
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return rows
}
