package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

const defaultWindow = 30 // jours

// Parse turns a decoded JSON request into a report Spec. Every invalid
// parameter is reported, wrapped in ErrInvalidParams.
func Parse(payload map[string]any, now time.Time) (Spec, error) {
	p := params{payload: payload}
	kind := Kind(p.str("report"))
	var spec Spec
	switch kind {
	case KindNewAdvertisers:
		spec = p.newAdvertisers(now)
	case KindECA:
		spec = p.eca(now)
	case KindFlight:
		spec = p.flight(now)
	case KindOverview:
		spec = p.overview()
	case "":
		p.fail("report is required")
	default:
		p.fail("unknown report %q", kind)
	}
	if err := p.errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return spec, nil
}

type params struct {
	payload map[string]any
	errs    *multierror.Error
}

func (p *params) fail(format string, args ...any) {
	p.errs = multierror.Append(p.errs, fmt.Errorf(format, args...))
}

func (p *params) str(key string) string {
	switch v := p.payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		p.fail("%s: want a string, got %T", key, v)
		return ""
	}
}

func (p *params) required(key string) string {
	v := p.str(key)
	if v == "" {
		p.fail("%s is required", key)
	}
	return v
}

// list accepts a JSON array of strings or a single string.
func (p *params) list(key string) []string {
	switch v := p.payload[key].(type) {
	case nil:
		return nil
	case string:
		if v = strings.TrimSpace(v); v != "" {
			return []string{v}
		}
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				p.fail("%s: want strings, got %T", key, e)
				return nil
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		p.fail("%s: want a list of strings, got %T", key, v)
		return nil
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func (p *params) integer(key string, def int) int {
	v, present := p.payload[key]
	if !present || v == nil {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		p.fail("%s: want an integer, got %v", key, v)
		return def
	}
	return n
}

func (p *params) ints(key string) []int {
	raw, ok := p.payload[key].([]any)
	if !ok {
		if p.payload[key] != nil {
			p.fail("%s: want a list of integers", key)
		}
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, e := range raw {
		n, ok := toInt(e)
		if !ok {
			p.fail("%s: want integers, got %v", key, e)
			return nil
		}
		out = append(out, n)
	}
	return out
}

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

func (p *params) date(key string, def time.Time) time.Time {
	s := p.str(key)
	if s == "" {
		return def
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	p.fail("%s: invalid date %q", key, s)
	return def
}

func (p *params) span(fromKey, toKey string, defFrom, defTo time.Time) (time.Time, time.Time) {
	from := p.date(fromKey, defFrom)
	to := p.date(toKey, defTo)
	if to.Before(from) {
		p.fail("%s is after %s", fromKey, toKey)
	}
	return from, to
}

func (p *params) newAdvertisers(now time.Time) Spec {
	today := day(now)
	r := NewAdvertisers{
		Market:      p.required("market"),
		Station:     p.str("station"),
		Advertisers: p.list("advertisers"),
	}
	r.From, r.To = p.span("start", "end", today.AddDate(0, 0, -defaultWindow+1), today)
	n := int(r.To.Sub(r.From).Hours()/24) + 1
	r.RefFrom, r.RefTo = p.span("ref_start", "ref_end",
		r.From.AddDate(0, 0, -n), r.From.AddDate(0, 0, -1))
	return r
}

func (p *params) eca(now time.Time) Spec {
	today := day(now)
	r := ECA{
		Market:      p.required("market"),
		Target:      p.required("station"),
		Competitors: p.list("competitors"),
	}
	r.From, r.To = p.span("start", "end", today.AddDate(0, 0, -defaultWindow+1), today)
	return r
}

func (p *params) flight(now time.Time) Spec {
	r := Flight{
		Year:        p.integer("year", now.Year()),
		Month:       time.Month(p.integer("month", int(now.Month()))),
		Market:      p.required("market"),
		Stations:    p.list("stations"),
		Days:        p.ints("days"),
		Advertisers: p.list("advertisers"),
	}
	if len(r.Stations) == 0 {
		r.Stations = p.list("station")
	}
	if r.Month < time.January || r.Month > time.December {
		p.fail("month: %d out of range", r.Month)
	}
	for _, d := range r.Days {
		if d < 1 || d > 31 {
			p.fail("days: %d out of range", d)
		}
	}
	return r
}

func (p *params) overview() Spec {
	r := Overview{
		MonthStart: time.Month(p.integer("month_start", 1)),
		MonthEnd:   time.Month(p.integer("month_end", 12)),
	}
	for _, m := range []time.Month{r.MonthStart, r.MonthEnd} {
		if m < time.January || m > time.December {
			p.fail("month %d out of range", m)
		}
	}
	if r.MonthEnd < r.MonthStart {
		p.fail("month_start is after month_end")
	}
	return r
}
