package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adinsight/dataset"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// insertions: two markets, three SP stations, one December row.
func insertions(t *testing.T) *dataset.Table {
	t.Helper()
	days := []string{"2024-01-05", "2024-01-06", "2024-01-05", "2024-01-10", "2023-12-20", "2024-01-07", "2024-01-08"}
	dates := make([]time.Time, len(days))
	for i, d := range days {
		dates[i] = date(d)
	}
	tbl, err := dataset.NewTable(
		dataset.NewTimeColumn("Data_Dt", dates, nil),
		dataset.NewCategoricalColumn("Praca", []string{"SP", "SP", "SP", "SP", "SP", "RJ", "SP"}, nil),
		dataset.NewCategoricalColumn("Emissora", []string{"A", "B", "A", "C", "A", "A", "B"}, nil),
		dataset.NewCategoricalColumn("Anunciante", []string{"Alpha", "Alpha", "Beta", "Gamma", "Alpha", "Delta", "Beta"}, nil),
		dataset.NewIntColumn("Volume de Insercoes", []int16{3, 2, 4, 5, 1, 9, 1}),
	)
	require.NoError(t, err)
	return tbl
}

func sales(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(
		dataset.NewTimeColumn("data_ref_Dt", []time.Time{
			date("2023-01-15"), date("2023-02-15"), date("2024-01-10"), date("2024-02-10"), date("2024-03-10"),
		}, nil),
		dataset.NewStringColumn("cliente", []string{"C1", "C2", "C1", "C3", "C3"}, nil),
		dataset.NewFloatColumn("faturamento", []float64{100, 50, 200, 100, 30}, nil),
		dataset.NewIntColumn("insercoes", []int8{10, 5, 20, 8, 1}),
		dataset.NewStringColumn("emissora", []string{"thathi", "globo", "Thathi ", "globo", "globo"}, nil),
		dataset.NewStringColumn("executivo", []string{"Ana", "Bob", "Ana", "Bob", "Bob"}, nil),
	)
	require.NoError(t, err)
	return tbl
}

func sheet(t *testing.T, res *Result, name string) Sheet {
	t.Helper()
	s, ok := res.Sheet(name)
	require.True(t, ok, "sheet %q missing", name)
	return s
}
