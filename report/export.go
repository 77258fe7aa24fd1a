package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tealeg/xlsx/v3"
)

// WriteXLSX writes one sheet per section of res, Filtros first.
func WriteXLSX(w io.Writer, res *Result) error {
	wb := xlsx.NewFile()
	sheets := res.Sheets
	if len(sheets) == 0 {
		sheets = []Sheet{{Name: filtersSheet}}
	}
	for _, s := range sheets {
		sh, err := wb.AddSheet(s.Name)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", s.Name, err)
		}
		if len(s.Header) > 0 {
			row := sh.AddRow()
			for _, h := range s.Header {
				row.AddCell().SetString(h)
			}
		}
		for _, values := range s.Rows {
			row := sh.AddRow()
			for _, v := range values {
				setCell(row.AddCell(), v)
			}
		}
	}
	return wb.Write(w)
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		c.SetString(x)
	case float64:
		c.SetFloat(x)
	case int:
		c.SetInt(x)
	case int64:
		c.SetInt64(x)
	case time.Time:
		c.SetDate(x)
	default:
		c.SetString(formatValue(v))
	}
}

// WriteCSV writes the primary sheet of res.
func WriteCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	s, ok := res.Primary()
	if ok {
		if err := cw.Write(s.Header); err != nil {
			return err
		}
		rec := make([]string, 0, len(s.Header))
		for _, values := range s.Rows {
			rec = rec[:0]
			for _, v := range values {
				rec = append(rec, formatValue(v))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatValue renders floats without exponent, integral ones without decimals.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(dateLayout)
	}
	return fmt.Sprint(v)
}
