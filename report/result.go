package report

import "adinsight/dataset"

type Kind string

const (
	KindNewAdvertisers Kind = "new_advertisers"
	KindECA            Kind = "eca"
	KindFlight         Kind = "flight"
	KindOverview       Kind = "overview"
)

type Source int

const (
	SourceInsertions Source = iota
	SourceSales
)

// Spec is a parsed report request.
type Spec interface {
	Kind() Kind
	Source() Source
	// Columns lists the dataset columns the report reads.
	Columns(c Columns) []string
	Build(t *dataset.Table, c Columns) (*Result, error)
}

// Sheet is one tabular section of a result, exported as one workbook sheet.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

type Metric struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type Result struct {
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Dataset     string   `json:"dataset"`
	LastUpdated string   `json:"last_updated"`
	Stale       bool     `json:"stale,omitempty"`
	Empty       bool     `json:"empty,omitempty"`
	Message     string   `json:"message,omitempty"`
	Summary     []Metric `json:"summary,omitempty"`
	Sheets      []Sheet  `json:"-"`
}

const filtersSheet = "Filtros"

// Primary is the first data sheet, the one exported as CSV.
func (r *Result) Primary() (Sheet, bool) {
	for _, s := range r.Sheets {
		if s.Name != filtersSheet {
			return s, true
		}
	}
	return Sheet{}, false
}

func (r *Result) Sheet(name string) (Sheet, bool) {
	for _, s := range r.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

func filters(pairs ...string) Sheet {
	s := Sheet{Name: filtersSheet, Header: []string{"Parâmetro", "Valor"}}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Rows = append(s.Rows, []any{pairs[i], pairs[i+1]})
	}
	return s
}
