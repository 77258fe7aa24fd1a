package dataset

import (
	"strings"
	"time"
)

type valueHint int

const (
	hintString valueHint = iota
	hintInt
	hintFloat
	hintTime
	hintDynamic
)

// policy maps column names to the type narrowing declared by a descriptor.
type policy struct {
	categorical map[string]bool
	integer     map[string]bool
	dateColumn  string
	dateOutput  string
}

func newPolicy(d Descriptor) policy {
	p := policy{
		categorical: make(map[string]bool, len(d.Categorical)),
		integer:     make(map[string]bool, len(d.Integer)),
		dateColumn:  d.DateColumn,
		dateOutput:  d.ParsedDateColumn(),
	}
	for _, c := range d.Categorical {
		p.categorical[c] = true
	}
	for _, c := range d.Integer {
		p.integer[c] = true
	}
	return p
}

// outputName is the name a source column takes in the decoded table.
func (p policy) outputName(name string) string {
	if p.dateColumn != "" && name == p.dateColumn {
		return p.dateOutput
	}
	return name
}

func (p policy) isDate(name string) bool {
	return p.dateColumn != "" && name == p.dateColumn
}

func (p policy) builderFor(name string, hint valueHint) columnBuilder {
	switch {
	case p.isDate(name):
		return &timeBuilder{}
	case p.categorical[name]:
		return newCategoricalBuilder()
	case p.integer[name]:
		return &intBuilder{}
	}
	switch hint {
	case hintInt:
		return &plainIntBuilder{}
	case hintFloat:
		return &floatBuilder{}
	case hintTime:
		return &timeBuilder{}
	case hintDynamic:
		return &dynamicBuilder{}
	}
	return &stringBuilder{}
}

// Day-first layouts, most specific first. Year-first ISO forms are unambiguous
// and accepted as well.
var dayFirstLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDayFirst parses s reading dd/mm before mm/dd. Values that only make
// sense month-first (13th month) are rejected rather than reinterpreted.
func ParseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
