package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeParquet(t *testing.T) {
	path := writeParquet(t, t.TempDir(), sampleInsertions())
	snap, err := Decode(path, insertionDescriptor())
	require.NoError(t, err)

	tbl := snap.Table
	require.Equal(t, 4, tbl.Rows())
	_, hasRaw := tbl.Column("Data")
	assert.False(t, hasRaw, "source date column is replaced")

	dt, ok := tbl.Column("Data_Dt")
	require.True(t, ok)
	require.IsType(t, &TimeColumn{}, dt)
	assert.True(t, dt.IsNull(2))
	assert.Equal(t, "06/01/2024", dt.String(1))

	anunciante, _ := tbl.Column("Anunciante")
	cat := anunciante.(*CategoricalColumn)
	assert.Equal(t, []string{"Acme", "Beta"}, cat.Levels())
	assert.True(t, cat.IsNull(2))

	vol, _ := tbl.Column("Volume")
	require.IsType(t, &IntColumn[int8]{}, vol)
	if diff := cmp.Diff([]any{int64(3), int64(120), int64(7), int64(1)}, values(vol)); diff != "" {
		t.Errorf("volume mismatch (-want +got):\n%s", diff)
	}

	preco, _ := tbl.Column("Preco")
	assert.IsType(t, &FloatColumn{}, preco)

	assert.Equal(t, "31/01/2024", snap.LastUpdated)
	assert.Equal(t, "insercoes", snap.Key)
}

func TestDecodeIsDeterministic(t *testing.T) {
	path := writeParquet(t, t.TempDir(), sampleInsertions())
	first, err := Decode(path, insertionDescriptor())
	require.NoError(t, err)
	second, err := Decode(path, insertionDescriptor())
	require.NoError(t, err)

	require.Equal(t, first.Table.Names(), second.Table.Names())
	for _, name := range first.Table.Names() {
		a, _ := first.Table.Column(name)
		b, _ := second.Table.Column(name)
		if diff := cmp.Diff(values(a), values(b)); diff != "" {
			t.Errorf("column %s differs between decodes:\n%s", name, diff)
		}
	}
}

func TestDecodeEmptyParquet(t *testing.T) {
	path := writeParquet(t, t.TempDir(), []insertionRow{})
	snap, err := Decode(path, insertionDescriptor())
	require.NoError(t, err)
	assert.True(t, snap.Empty())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime().Format("02/01/2006 15:04"), snap.LastUpdated)
}

func TestDecodeRejectsBadContent(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.parquet")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	garbage := filepath.Join(dir, "garbage.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a zip"), 0644))
	truncated := filepath.Join(dir, "truncated.parquet")
	data := parquetBytes(t, sampleInsertions())
	require.NoError(t, os.WriteFile(truncated, data[:len(data)/2], 0644))

	for path, format := range map[string]Format{empty: FormatParquet, garbage: FormatXLSX, truncated: FormatParquet} {
		d := insertionDescriptor()
		d.Format = format
		_, err := Decode(path, d)
		var de *DecodeError
		assert.ErrorAs(t, err, &de, path)
	}
}

func TestDecodeXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendas.xlsx")
	writeXLSX(t, path, [][]any{
		{"data_ref", "cliente", "", "cliente", "faturamento", "insercoes"},
		{"01/02/2024", "Acme", "x", "dup", 1500.5, 3},
		{45292, "Beta", "y", "dup", 200, "4"},
		{nil, nil, nil, nil, nil, nil},
		{"bad", "Acme", "z", "dup", 10, "n/a"},
	})
	d := Descriptor{
		Key:           "vendas",
		Format:        FormatXLSX,
		Categorical:   []string{"cliente"},
		Integer:       []string{"insercoes"},
		DateColumn:    "data_ref",
		DisplayLayout: "01/2006",
	}
	snap, err := Decode(path, d)
	require.NoError(t, err)

	tbl := snap.Table
	assert.Equal(t, []string{"data_ref_Dt", "cliente", "column_3", "cliente.1", "faturamento", "insercoes"}, tbl.Names())
	require.Equal(t, 3, tbl.Rows(), "blank rows are skipped")

	dt, _ := tbl.Column("data_ref_Dt")
	got, ok := dt.(*TimeColumn).Time(1)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), got.Format("2006-01-02"))
	assert.True(t, dt.IsNull(2))

	fat, _ := tbl.Column("faturamento")
	assert.IsType(t, &FloatColumn{}, fat)
	ins, _ := tbl.Column("insercoes")
	if diff := cmp.Diff([]any{int64(3), int64(4), int64(0)}, values(ins)); diff != "" {
		t.Errorf("insercoes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "02/2024", snap.LastUpdated)
}

func TestUniqueHeaders(t *testing.T) {
	got := uniqueHeaders([]string{"a", "", "a", "a", ""})
	assert.Equal(t, []string{"a", "column_2", "a.1", "a.2", "column_5"}, got)
}
