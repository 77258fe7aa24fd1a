package report

import (
	"sort"
)

// Pivot is a row label x column label matrix of summed values.
type Pivot struct {
	Index   string
	Columns []string
	Rows    []PivotRow
	// Grand is the column-wise total row, nil until AddGrandTotal.
	Grand *PivotRow
}

type PivotRow struct {
	Label  string
	Values []float64
	Total  float64
}

// pivotBy sums weight(row) into (rowKey, colKey) cells. Rows whose keys are
// missing are ignored. Columns come out sorted, rows by descending total.
func pivotBy(index string, rows []int, rowKey, colKey func(int) (string, bool), weight func(int) float64) *Pivot {
	cells := make(map[string]map[string]float64)
	var order []string
	seenCol := make(map[string]bool)
	for _, r := range rows {
		rk, ok := rowKey(r)
		if !ok {
			continue
		}
		ck, ok := colKey(r)
		if !ok {
			continue
		}
		m, ok := cells[rk]
		if !ok {
			m = make(map[string]float64)
			cells[rk] = m
			order = append(order, rk)
		}
		m[ck] += weight(r)
		seenCol[ck] = true
	}
	cols := make([]string, 0, len(seenCol))
	for c := range seenCol {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	p := &Pivot{Index: index, Columns: cols}
	for _, rk := range order {
		p.Rows = append(p.Rows, PivotRow{Label: rk, Values: make([]float64, len(cols))})
		row := &p.Rows[len(p.Rows)-1]
		for i, c := range cols {
			row.Values[i] = cells[rk][c]
		}
	}
	p.retotal()
	return p
}

// Reindex keeps exactly the given columns, in order, zero-filling new ones.
func (p *Pivot) Reindex(cols []string) {
	pos := make(map[string]int, len(p.Columns))
	for i, c := range p.Columns {
		pos[c] = i
	}
	for r := range p.Rows {
		values := make([]float64, len(cols))
		for i, c := range cols {
			if j, ok := pos[c]; ok {
				values[i] = p.Rows[r].Values[j]
			}
		}
		p.Rows[r].Values = values
	}
	p.Columns = cols
	p.retotal()
}

// DropEmpty removes rows whose total is not positive.
func (p *Pivot) DropEmpty() {
	kept := p.Rows[:0]
	for _, r := range p.Rows {
		if r.Total > 0 {
			kept = append(kept, r)
		}
	}
	p.Rows = kept
}

func (p *Pivot) AddGrandTotal(label string) {
	g := PivotRow{Label: label, Values: make([]float64, len(p.Columns))}
	for _, r := range p.Rows {
		for i, v := range r.Values {
			g.Values[i] += v
		}
		g.Total += r.Total
	}
	p.Grand = &g
}

func (p *Pivot) Len() int { return len(p.Rows) }

func (p *Pivot) Labels() []string {
	out := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.Label
	}
	return out
}

func (p *Pivot) retotal() {
	for i := range p.Rows {
		var t float64
		for _, v := range p.Rows[i].Values {
			t += v
		}
		p.Rows[i].Total = t
	}
	sort.SliceStable(p.Rows, func(i, j int) bool {
		if p.Rows[i].Total != p.Rows[j].Total {
			return p.Rows[i].Total > p.Rows[j].Total
		}
		return p.Rows[i].Label < p.Rows[j].Label
	})
}

func (p *Pivot) Sheet(name string) Sheet {
	s := Sheet{Name: name, Header: append(append([]string{p.Index}, p.Columns...), "TOTAL")}
	add := func(r PivotRow) {
		row := make([]any, 0, len(r.Values)+2)
		row = append(row, r.Label)
		for _, v := range r.Values {
			row = append(row, v)
		}
		s.Rows = append(s.Rows, append(row, r.Total))
	}
	for _, r := range p.Rows {
		add(r)
	}
	if p.Grand != nil {
		add(*p.Grand)
	}
	return s
}
