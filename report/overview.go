package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"adinsight/dataset"
)

// Overview compares the sales base of the two most recent years over a month range.
type Overview struct {
	MonthStart, MonthEnd time.Month
}

func (Overview) Kind() Kind     { return KindOverview }
func (Overview) Source() Source { return SourceSales }

func (Overview) Columns(c Columns) []string {
	return []string{c.SalesDate, c.Year, c.Month, c.Client, c.Revenue, c.Insertions, c.SalesStation, c.Executive}
}

var monthAbbr = [...]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// salesView resolves the sales columns once; year and month fall back to the
// reference date when the base has no explicit columns.
type salesView struct {
	date      *dataset.TimeColumn
	year      dataset.Column
	month     dataset.Column
	client    dataset.Column
	revenue   dataset.Column
	inserts   dataset.Column
	station   dataset.Column
	executive dataset.Column
	aliases   map[string]string
	title     cases.Caser
}

func newSalesView(t *dataset.Table, c Columns) (*salesView, error) {
	v := &salesView{
		year:      optional(t, c.Year),
		month:     optional(t, c.Month),
		client:    optional(t, c.Client),
		inserts:   optional(t, c.Insertions),
		station:   optional(t, c.SalesStation),
		executive: optional(t, c.Executive),
		aliases:   c.StationAliases,
		title:     cases.Title(language.BrazilianPortuguese),
	}
	if col := optional(t, c.SalesDate); col != nil {
		v.date, _ = col.(*dataset.TimeColumn)
	}
	if (v.year == nil || v.month == nil) && v.date == nil {
		return nil, fmt.Errorf("%w: %s or %s/%s", ErrMissingColumn, c.SalesDate, c.Year, c.Month)
	}
	var err error
	if v.revenue, err = lookup(t, c.Revenue); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *salesView) yearMonth(r int) (int, time.Month, bool) {
	if v.year != nil && v.month != nil {
		y, okY := dataset.Number(v.year, r)
		if !okY {
			y, okY = parseInt(v.year.String(r))
		}
		m, okM := dataset.Number(v.month, r)
		if !okM {
			m, okM = parseInt(v.month.String(r))
		}
		if okY && okM && m >= 1 && m <= 12 {
			return int(y), time.Month(m), true
		}
	}
	if v.date != nil {
		if d, ok := v.date.Time(r); ok {
			return d.Year(), d.Month(), true
		}
	}
	return 0, 0, false
}

func parseInt(s string) (float64, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return float64(n), err == nil
}

func (v *salesView) stationName(r int) (string, bool) {
	if v.station == nil || v.station.IsNull(r) {
		return "", false
	}
	name := v.title.String(strings.TrimSpace(v.station.String(r)))
	if name == "" {
		return "", false
	}
	if alias, ok := v.aliases[name]; ok {
		return alias, true
	}
	return name, true
}

type yearTotals struct {
	revenue, inserts float64
	clients          stringSet
	byClient         map[string]float64
	byMonth          [12]float64
}

func (r Overview) bounds() (time.Month, time.Month) {
	lo, hi := r.MonthStart, r.MonthEnd
	if lo < 1 || lo > 12 {
		lo = time.January
	}
	if hi < 1 || hi > 12 {
		hi = time.December
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi
}

func (r Overview) Build(t *dataset.Table, c Columns) (*Result, error) {
	v, err := newSalesView(t, c)
	if err != nil {
		return nil, err
	}
	lo, hi := r.bounds()

	type keyed struct {
		row   int
		year  int
		month time.Month
	}
	var rows []keyed
	// les années viennent de toute la base, avant le filtre de mois
	years := make(map[int]bool)
	for row := 0; row < t.Rows(); row++ {
		y, m, ok := v.yearMonth(row)
		if !ok {
			continue
		}
		years[y] = true
		if m >= lo && m <= hi {
			rows = append(rows, keyed{row, y, m})
		}
	}

	res := &Result{
		Kind:  KindOverview,
		Title: "Visão geral de vendas",
		Sheets: []Sheet{filters(
			"Mês inicial", monthAbbr[lo-1],
			"Mês final", monthAbbr[hi-1],
		)},
	}
	if len(rows) == 0 {
		res.Empty = true
		res.Message = "Nenhuma venda no intervalo de meses selecionado."
		return res, nil
	}

	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)
	// a single year is compared with itself
	yB := sorted[len(sorted)-1]
	yA := yB
	if len(sorted) > 1 {
		yA = sorted[len(sorted)-2]
	}
	res.Sheets[0].Rows = append(res.Sheets[0].Rows,
		[]any{"Ano base", strconv.Itoa(yA)},
		[]any{"Ano comparação", strconv.Itoa(yB)},
	)

	totals := map[int]*yearTotals{
		yA: {clients: make(stringSet), byClient: make(map[string]float64)},
	}
	if yB != yA {
		totals[yB] = &yearTotals{clients: make(stringSet), byClient: make(map[string]float64)}
	}
	var compared []int
	yearOf := make(map[int]int, len(rows))
	for _, k := range rows {
		yt, ok := totals[k.year]
		if !ok {
			continue
		}
		compared = append(compared, k.row)
		yearOf[k.row] = k.year
		rev, _ := dataset.Number(v.revenue, k.row)
		yt.revenue += rev
		yt.byMonth[k.month-1] += rev
		if v.inserts != nil {
			n, _ := dataset.Number(v.inserts, k.row)
			yt.inserts += n
		}
		if v.client != nil && !v.client.IsNull(k.row) {
			name := strings.TrimSpace(v.client.String(k.row))
			yt.clients[name] = true
			yt.byClient[name] += rev
		}
	}
	a, b := totals[yA], totals[yB]

	topA, topRevenueA := topClient(a.byClient)
	topB, topRevenueB := topClient(b.byClient)
	res.Summary = []Metric{
		{Name: "ano_base", Value: yA},
		{Name: "ano_comparacao", Value: yB},
		{Name: "faturamento_base", Value: a.revenue},
		{Name: "faturamento_comparacao", Value: b.revenue},
		{Name: "variacao", Value: b.revenue - a.revenue},
		{Name: "variacao_pct", Value: pct(b.revenue-a.revenue, a.revenue)},
		{Name: "clientes_base", Value: len(a.clients)},
		{Name: "clientes_comparacao", Value: len(b.clients)},
		{Name: "ticket_medio_base", Value: ratio(a.revenue, float64(len(a.clients)))},
		{Name: "ticket_medio", Value: ratio(b.revenue, float64(len(b.clients)))},
		{Name: "maior_cliente_base", Value: topA},
		{Name: "maior_cliente_base_faturamento", Value: topRevenueA},
		{Name: "maior_cliente", Value: topB},
		{Name: "maior_cliente_faturamento", Value: topRevenueB},
	}

	ya, yb := strconv.Itoa(yA), strconv.Itoa(yB)
	cols := []string{ya, yb}
	if yA == yB {
		cols = cols[1:]
	}
	summary := Sheet{Name: "Resumo", Header: []string{"Métrica", ya, yb, "Variação", "Variação %"}}
	line := func(name string, x, y float64) {
		summary.Rows = append(summary.Rows, []any{name, x, y, y - x, pct(y-x, x)})
	}
	line("Faturamento", a.revenue, b.revenue)
	line("Inserções", a.inserts, b.inserts)
	line("Clientes", float64(len(a.clients)), float64(len(b.clients)))
	line("Ticket médio", ratio(a.revenue, float64(len(a.clients))), ratio(b.revenue, float64(len(b.clients))))

	monthly := Sheet{Name: "Evolução Mensal", Header: []string{"Mês", ya, yb, "Variação", "Variação %"}}
	for m := lo; m <= hi; m++ {
		x, y := a.byMonth[m-1], b.byMonth[m-1]
		monthly.Rows = append(monthly.Rows, []any{monthAbbr[m-1], x, y, y - x, pct(y-x, x)})
	}

	yearKey := func(row int) (string, bool) { return strconv.Itoa(yearOf[row]), true }
	revenue := weight(v.revenue)
	res.Sheets = append(res.Sheets, summary, monthly)
	if v.station != nil {
		pv := pivotBy("Emissora", compared, v.stationName, yearKey, revenue)
		pv.Reindex(cols)
		pv.AddGrandTotal("TOTAL GERAL")
		res.Sheets = append(res.Sheets, pv.Sheet("Por Emissora"), shareSheet(pv, yb))
	}
	if v.executive != nil {
		pv := pivotBy("Executivo", compared, text(v.executive), yearKey, revenue)
		pv.Reindex(cols)
		pv.AddGrandTotal("TOTAL GERAL")
		res.Sheets = append(res.Sheets, pv.Sheet("Por Executivo"))
	}
	return res, nil
}

// shareSheet is each station's part of the comparison year revenue.
func shareSheet(pv *Pivot, year string) Sheet {
	s := Sheet{Name: "Share", Header: []string{"Emissora", "Faturamento " + year, "Share %"}}
	col := -1
	for i, c := range pv.Columns {
		if c == year {
			col = i
		}
	}
	if col < 0 {
		return s
	}
	var total float64
	for _, r := range pv.Rows {
		total += r.Values[col]
	}
	rows := append([]PivotRow(nil), pv.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Values[col] > rows[j].Values[col] })
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.Label, r.Values[col], pct(r.Values[col], total)})
	}
	return s
}

func topClient(byClient map[string]float64) (string, float64) {
	var (
		name string
		best = math.Inf(-1)
	)
	for c, v := range byClient {
		if v > best || (v == best && c < name) {
			name, best = c, v
		}
	}
	if name == "" {
		return "", 0
	}
	return name, best
}

// pct returns part/whole in percent, nil when whole is zero.
func pct(part, whole float64) any {
	if whole == 0 {
		return nil
	}
	return math.Round(part/whole*10000) / 100
}

func ratio(x, y float64) float64 {
	if y == 0 {
		return 0
	}
	return x / y
}
