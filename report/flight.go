package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"adinsight/dataset"
)

// Flight is the advertiser x day grid of insertion volume for one month.
type Flight struct {
	Year        int
	Month       time.Month
	Market      string
	Stations    []string
	Days        []int // vazio = mês inteiro
	Advertisers []string
}

func (Flight) Kind() Kind     { return KindFlight }
func (Flight) Source() Source { return SourceInsertions }

func (Flight) Columns(c Columns) []string {
	return append([]string{c.Date, c.Market, c.Station, c.Advertiser, c.Volume}, c.Detail...)
}

func (r Flight) Build(t *dataset.Table, c Columns) (*Result, error) {
	dates, err := timeColumn(t, c.Date)
	if err != nil {
		return nil, err
	}
	market, err := lookup(t, c.Market)
	if err != nil {
		return nil, err
	}
	station, err := lookup(t, c.Station)
	if err != nil {
		return nil, err
	}
	advertiser, err := lookup(t, c.Advertiser)
	if err != nil {
		return nil, err
	}
	volume := optional(t, c.Volume)

	first := time.Date(r.Year, r.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	days := r.monthDays(last.Day())
	wanted := make(map[int]bool, len(days))
	labels := make([]string, len(days))
	for i, d := range days {
		wanted[d] = true
		labels[i] = dayLabel(d)
	}

	rows := keep(allRows(t), equals(market, r.Market))
	if len(r.Stations) > 0 {
		rows = setOf(r.Stations).where(station, rows)
	}
	if len(r.Advertisers) > 0 {
		rows = setOf(r.Advertisers).where(advertiser, rows)
	}
	rows = keep(rows, func(row int) bool {
		d, ok := dates.Time(row)
		if !ok || d.Year() != r.Year || d.Month() != r.Month {
			return false
		}
		return wanted[d.Day()]
	})

	res := &Result{
		Kind:  KindFlight,
		Title: fmt.Sprintf("Flight %02d/%d - %s", int(r.Month), r.Year, r.Market),
		Sheets: []Sheet{filters(
			"Praça", r.Market,
			"Emissoras", joinOr(r.Stations, "Todas"),
			"Mês", fmt.Sprintf("%02d/%d", int(r.Month), r.Year),
			"Dias", joinOr(dayList(r.Days), "Todos"),
			"Anunciantes", joinOr(r.Advertisers, "Todos"),
		)},
	}
	if len(rows) == 0 {
		res.Empty = true
		res.Message = "Nenhuma inserção no período selecionado."
		return res, nil
	}

	dayKey := func(row int) (string, bool) {
		d, ok := dates.Time(row)
		if !ok {
			return "", false
		}
		return dayLabel(d.Day()), true
	}
	pv := pivotBy(c.Advertiser, rows, text(advertiser), dayKey, weight(volume))
	pv.Reindex(labels)
	pv.DropEmpty()
	pv.AddGrandTotal("TOTAL DIÁRIO")
	res.Summary = []Metric{
		{Name: "anunciantes", Value: pv.Len()},
		{Name: "insercoes", Value: pv.Grand.Total},
	}
	res.Sheets = append(res.Sheets, pv.Sheet("Flight Map"), detailSheet(t, c, rows, "Detalhamento"))
	return res, nil
}

func (r Flight) monthDays(lastDay int) []int {
	if len(r.Days) == 0 {
		out := make([]int, lastDay)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	var out []int
	seen := make(map[int]bool)
	for _, d := range r.Days {
		if d >= 1 && d <= lastDay && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

func dayLabel(d int) string { return fmt.Sprintf("%02d", d) }

func dayList(days []int) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = strconv.Itoa(d)
	}
	return out
}
