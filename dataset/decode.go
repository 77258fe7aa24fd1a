package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/tealeg/xlsx/v3"
)

var errEmptyFile = errors.New("file is empty")

const parquetBatchRows = 512

// Decode parses the cached file of d into a Snapshot, applying the
// descriptor's type narrowing while cells are read.
func Decode(path string, d Descriptor) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Key, err)
	}
	if info.Size() == 0 {
		return nil, &DecodeError{Path: path, Format: d.Format, Err: errEmptyFile}
	}

	p := newPolicy(d)
	var (
		names    []string
		builders []columnBuilder
	)
	switch d.Format {
	case FormatParquet:
		names, builders, err = readParquet(path, info.Size(), p)
	case FormatXLSX:
		names, builders, err = readXLSX(path, p)
	default:
		return nil, fmt.Errorf("dataset %s: unsupported format %q", d.Key, d.Format)
	}
	if err != nil {
		return nil, &DecodeError{Path: path, Format: d.Format, Err: err}
	}

	cols := make([]Column, len(builders))
	for i, b := range builders {
		cols[i] = b.Build(p.outputName(names[i]))
	}
	tbl, err := NewTable(cols...)
	if err != nil {
		return nil, &DecodeError{Path: path, Format: d.Format, Err: err}
	}
	return &Snapshot{
		Key:         d.Key,
		Table:       tbl,
		LastUpdated: lastUpdated(tbl, d, info.ModTime()),
		ModTime:     info.ModTime(),
	}, nil
}

// lastUpdated prefers the freshest date found in the data, then the file time.
func lastUpdated(t *Table, d Descriptor, modTime time.Time) string {
	if name := d.ParsedDateColumn(); name != "" {
		if c, ok := t.Column(name); ok {
			if tc, ok := c.(*TimeColumn); ok {
				if latest, ok := tc.Max(); ok {
					return latest.Format(d.displayLayout())
				}
			}
		}
	}
	return modTime.Format(fallbackLayout)
}

func readParquet(path string, size int64, p policy) ([]string, []columnBuilder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	pf, err := parquet.OpenFile(f, size)
	if err != nil {
		return nil, nil, err
	}
	schema := pf.Schema()
	paths := schema.Columns()
	names := make([]string, len(paths))
	builders := make([]columnBuilder, len(paths))
	converters := make([]func(parquet.Value) any, len(paths))
	for i, path := range paths {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, nil, fmt.Errorf("column %s missing from schema", strings.Join(path, "."))
		}
		names[i] = strings.Join(path, ".")
		hint, conv := parquetConverter(leaf.Node.Type())
		builders[i] = p.builderFor(names[i], hint)
		converters[i] = conv
	}

	buf := make([]parquet.Row, parquetBatchRows)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, buf, builders, converters); err != nil {
			return nil, nil, err
		}
	}
	return names, builders, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, builders []columnBuilder, converters []func(parquet.Value) any) error {
	rows := rg.Rows()
	defer rows.Close()
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, v := range row {
				c := v.Column()
				if c < 0 || c >= len(builders) {
					continue
				}
				builders[c].Append(converters[c](v))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func parquetConverter(t parquet.Type) (valueHint, func(parquet.Value) any) {
	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.Date != nil:
			return hintTime, func(v parquet.Value) any {
				if v.IsNull() {
					return nil
				}
				return time.Unix(int64(v.Int32())*86400, 0).UTC()
			}
		case lt.Timestamp != nil:
			unit := lt.Timestamp.Unit
			return hintTime, func(v parquet.Value) any {
				if v.IsNull() {
					return nil
				}
				n := v.Int64()
				switch {
				case unit.Millis != nil:
					return time.UnixMilli(n).UTC()
				case unit.Micros != nil:
					return time.UnixMicro(n).UTC()
				}
				return time.Unix(0, n).UTC()
			}
		}
	}
	switch t.Kind() {
	case parquet.Boolean:
		return hintString, func(v parquet.Value) any {
			if v.IsNull() {
				return nil
			}
			return strconv.FormatBool(v.Boolean())
		}
	case parquet.Int32:
		return hintInt, func(v parquet.Value) any {
			if v.IsNull() {
				return nil
			}
			return int64(v.Int32())
		}
	case parquet.Int64:
		return hintInt, func(v parquet.Value) any {
			if v.IsNull() {
				return nil
			}
			return v.Int64()
		}
	case parquet.Float:
		return hintFloat, func(v parquet.Value) any {
			if v.IsNull() {
				return nil
			}
			return float64(v.Float())
		}
	case parquet.Double:
		return hintFloat, func(v parquet.Value) any {
			if v.IsNull() {
				return nil
			}
			return v.Double()
		}
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return hintString, func(v parquet.Value) any {
			if v.IsNull() {
				return nil
			}
			return string(v.ByteArray())
		}
	}
	return hintString, func(v parquet.Value) any {
		if v.IsNull() {
			return nil
		}
		return v.String()
	}
}

func readXLSX(path string, p policy) ([]string, []columnBuilder, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	if len(wb.Sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheet")
	}
	sh := wb.Sheets[0]
	defer sh.Close()
	if sh.MaxRow == 0 || sh.MaxCol == 0 {
		return nil, nil, nil
	}

	header := make([]string, sh.MaxCol)
	for c := range header {
		cell, err := sh.Cell(0, c)
		if err != nil {
			return nil, nil, err
		}
		header[c] = strings.TrimSpace(cell.String())
	}
	names := uniqueHeaders(header)
	builders := make([]columnBuilder, len(names))
	for i, n := range names {
		builders[i] = p.builderFor(n, hintDynamic)
	}

	cells := make([]any, len(names))
	for r := 1; r < sh.MaxRow; r++ {
		blank := true
		for c := range cells {
			cell, err := sh.Cell(r, c)
			if err != nil {
				return nil, nil, err
			}
			cells[c] = xlsxValue(cell, wb.Date1904, p.isDate(names[c]))
			if cells[c] != nil {
				blank = false
			}
		}
		// lignes vides en fin de feuille
		if blank {
			continue
		}
		for c, v := range cells {
			builders[c].Append(v)
		}
	}
	return names, builders, nil
}

func xlsxValue(c *xlsx.Cell, date1904, wantTime bool) any {
	if c == nil || strings.TrimSpace(c.Value) == "" {
		return nil
	}
	switch c.Type() {
	case xlsx.CellTypeNumeric:
		f, err := c.Float()
		if err != nil {
			return strings.TrimSpace(c.Value)
		}
		if wantTime {
			return xlsx.TimeFromExcelTime(f, date1904)
		}
		return f
	case xlsx.CellTypeBool:
		return strconv.FormatBool(c.Bool())
	case xlsx.CellTypeError:
		return nil
	}
	return strings.TrimSpace(c.String())
}

// uniqueHeaders names blank headers by position and suffixes duplicates.
func uniqueHeaders(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		if n := seen[h]; n > 0 {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[h]++
		out[i] = name
	}
	return out
}
