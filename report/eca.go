package report

import (
	"fmt"
	"time"

	"adinsight/dataset"
)

// ECA compares the advertisers of a target station with its competitors in
// one market: Exclusivos, Compartilhados, Ausentes.
type ECA struct {
	Market      string
	Target      string
	Competitors []string // vazio = todas as outras emissoras da praça
	From, To    time.Time
}

func (ECA) Kind() Kind     { return KindECA }
func (ECA) Source() Source { return SourceInsertions }

func (ECA) Columns(c Columns) []string {
	return append([]string{c.Date, c.Market, c.Station, c.Advertiser, c.Volume}, c.Detail...)
}

func (r ECA) Build(t *dataset.Table, c Columns) (*Result, error) {
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
	scope = keep(scope, between(dates, r.From, r.To))

	targetRows := keep(scope, equals(station, r.Target))
	competitors := setOf(r.Competitors)
	if len(competitors) == 0 {
		competitors = distinct(station, scope)
	}
	delete(competitors, r.Target)
	rivalRows := competitors.where(station, scope)

	mine := distinct(advertiser, targetRows)
	theirs := distinct(advertiser, rivalRows)
	exclusive := mine.minus(theirs)
	shared := mine.intersect(theirs)
	absent := theirs.minus(mine)

	res := &Result{
		Kind:  KindECA,
		Title: fmt.Sprintf("ECA - %s (%s)", r.Target, r.Market),
		Sheets: []Sheet{filters(
			"Praça", r.Market,
			"Emissora alvo", r.Target,
			"Concorrentes", joinOr(competitors.sorted(), "Nenhuma"),
			"Período", period(r.From, r.To),
		)},
		Summary: []Metric{
			{Name: "exclusivos", Value: len(exclusive)},
			{Name: "compartilhados", Value: len(shared)},
			{Name: "ausentes", Value: len(absent)},
		},
	}
	if len(targetRows)+len(rivalRows) == 0 {
		res.Empty = true
		res.Message = "Nenhuma inserção para os filtros selecionados."
		return res, nil
	}

	sections := []struct {
		name string
		set  stringSet
		rows []int
	}{
		{"Exclusivos", exclusive, targetRows},
		{"Compartilhados", shared, append(append([]int{}, targetRows...), rivalRows...)},
		{"Ausentes", absent, rivalRows},
	}
	var detail []int
	seen := make(map[int]bool)
	for _, s := range sections {
		rows := s.set.where(advertiser, s.rows)
		pv := pivotBy(c.Advertiser, rows, text(advertiser), text(station), weight(volume))
		pv.AddGrandTotal("TOTAL GERAL")
		res.Sheets = append(res.Sheets, pv.Sheet(s.name))
		for _, row := range rows {
			if !seen[row] {
				seen[row] = true
				detail = append(detail, row)
			}
		}
	}
	sortRows(detail)
	ds := detailSheet(t, c, detail, "Detalhamento")
	ds.Rows = append(ds.Rows, detailTotal(ds.Header, detailLabel(c.Advertiser), detailLabel(c.Volume), sumRows(volume, detail)))
	res.Sheets = append(res.Sheets, ds)
	return res, nil
}

func detailLabel(name string) string {
	if l, ok := detailLabels[name]; ok {
		return l
	}
	return name
}

func sumRows(c dataset.Column, rows []int) float64 {
	w := weight(c)
	var total float64
	for _, r := range rows {
		total += w(r)
	}
	return total
}

// detailTotal builds a TOTAL GERAL line: the label under the advertiser
// header (first column when absent), total under the volume header.
func detailTotal(header []string, advertiser, volume string, total float64) []any {
	row := make([]any, len(header))
	labelAt := 0
	for i, h := range header {
		switch h {
		case advertiser:
			labelAt = i
		case volume:
			row[i] = total
		}
	}
	if len(row) > 0 && row[labelAt] == nil {
		row[labelAt] = "TOTAL GERAL"
	}
	return row
}
