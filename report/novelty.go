package report

import (
	"fmt"
	"time"

	"adinsight/dataset"
)

// NewAdvertisers lists advertisers present in the current period of a market
// and absent from the reference period.
type NewAdvertisers struct {
	Market      string
	Station     string // vazio = consolidado
	Advertisers []string

	From, To       time.Time
	RefFrom, RefTo time.Time
}

func (NewAdvertisers) Kind() Kind     { return KindNewAdvertisers }
func (NewAdvertisers) Source() Source { return SourceInsertions }

func (NewAdvertisers) Columns(c Columns) []string {
	return append([]string{c.Date, c.Market, c.Station, c.Advertiser, c.Volume}, c.Detail...)
}

func (r NewAdvertisers) Build(t *dataset.Table, c Columns) (*Result, error) {
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

	scope := keep(allRows(t), equals(market, r.Market))
	if r.Station != "" {
		scope = keep(scope, equals(station, r.Station))
	}
	if len(r.Advertisers) > 0 {
		scope = setOf(r.Advertisers).where(advertiser, scope)
	}
	current := keep(scope, between(dates, r.From, r.To))
	reference := keep(scope, between(dates, r.RefFrom, r.RefTo))

	fresh := distinct(advertiser, current).minus(distinct(advertiser, reference))
	rows := fresh.where(advertiser, current)

	res := &Result{
		Kind:  KindNewAdvertisers,
		Title: fmt.Sprintf("Novos anunciantes - %s", r.Market),
		Sheets: []Sheet{filters(
			"Praça", r.Market,
			"Emissora", joinOr(nonEmpty(r.Station), "Consolidado"),
			"Anunciantes", joinOr(r.Advertisers, "Todos"),
			"Período atual", period(r.From, r.To),
			"Período de referência", period(r.RefFrom, r.RefTo),
		)},
		Summary: []Metric{
			{Name: "novos_anunciantes", Value: len(fresh)},
			{Name: "anunciantes_periodo_atual", Value: len(distinct(advertiser, current))},
		},
	}
	if len(rows) == 0 {
		res.Empty = true
		res.Message = "Nenhum anunciante novo no período."
		return res, nil
	}
	pv := pivotBy(c.Advertiser, rows, text(advertiser), text(station), weight(volume))
	pv.AddGrandTotal("TOTAL GERAL")
	res.Sheets = append(res.Sheets,
		pv.Sheet("Visão Geral"),
		detailSheet(t, c, rows, "Detalhamento"),
	)
	return res, nil
}

func period(from, to time.Time) string {
	return from.Format(dateLayout) + " a " + to.Format(dateLayout)
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

// detailSheet copies the configured detail columns of rows, with display labels.
// Columns the dataset lacks are skipped.
func detailSheet(t *dataset.Table, c Columns, rows []int, name string) Sheet {
	var cols []dataset.Column
	s := Sheet{Name: name}
	for _, n := range c.Detail {
		col := optional(t, n)
		if col == nil {
			continue
		}
		cols = append(cols, col)
		if label, ok := detailLabels[n]; ok {
			n = label
		}
		s.Header = append(s.Header, n)
	}
	for _, r := range rows {
		row := make([]any, len(cols))
		for i, col := range cols {
			row[i] = cellValue(col, r)
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func cellValue(c dataset.Column, r int) any {
	if tc, ok := c.(*dataset.TimeColumn); ok {
		if v, ok := tc.Time(r); ok {
			return v.Format(dateLayout)
		}
		return nil
	}
	return c.Value(r)
}
