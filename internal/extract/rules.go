// Package extract turns bill text into typed fields. Each provider layout is
// a declarative RuleSet; unknown providers use the generic rules. Parsers
// are pure functions of their input and never panic on noisy text.
package extract

import (
	"regexp"

	"cloud.google.com/go/civil"

	"splitroom/internal/normalize"
	"splitroom/pkg/models"
)

// Fields is what one parser found. Missing values stay nil or empty.
type Fields struct {
	Total       *models.Cents
	PeriodStart *civil.Date
	PeriodEnd   *civil.Date
	FixedItems  []models.FixedItem
}

// FixedTotal is the gross sum of the fixed items.
func (f Fields) FixedTotal() models.Cents {
	return models.SumFixed(f.FixedItems)
}

// Parser extracts Fields from bill text.
type Parser interface {
	ID() string
	Parse(text string) Fields
}

// TotalRule captures the amount in group 1 of Pattern.
type TotalRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// PeriodRule turns a match of Pattern into period boundaries. Either date
// may be absent; a rule that yields neither is skipped.
type PeriodRule struct {
	Name    string
	Pattern *regexp.Regexp
	Dates   func(m []string) (start, end *civil.Date)
}

// NearestRule finds one fixed charge with NearestValue. Keywords are tried
// in order until one yields a value. Values already found by the rules named
// in ExcludeFound are blacklisted.
type NearestRule struct {
	Label        string
	Keywords     []string
	Options      NearestOptions
	ExcludeFound []string
}

// FixedRule is either a NearestRule or a custom extractor.
type FixedRule struct {
	Nearest *NearestRule
	Custom  func(text string, total *models.Cents) []models.FixedItem
}

// RuleSet is a declarative parser for one bill layout.
type RuleSet struct {
	Name string
	// Prepare rewrites the text before any rule runs (e.g. folding).
	Prepare func(string) string
	Totals  []TotalRule
	Periods []PeriodRule
	Fixed   []FixedRule
	// AcceptZeroTotal keeps a matched total of 0,00 instead of trying the next rule.
	AcceptZeroTotal bool
}

func (r *RuleSet) ID() string { return r.Name }

// Parse applies the rules in order: first total, first period, then every
// fixed rule.
func (r *RuleSet) Parse(text string) Fields {
	t := text
	if r.Prepare != nil {
		t = r.Prepare(text)
	}

	var f Fields
	f.Total = r.total(t)
	f.PeriodStart, f.PeriodEnd = r.period(t)
	f.FixedItems = r.fixed(t, f.Total)
	return f
}

func (r *RuleSet) total(t string) *models.Cents {
	for _, rule := range r.Totals {
		m := rule.Pattern.FindStringSubmatch(t)
		if m == nil || len(m) < 2 {
			continue
		}
		v, ok := normalize.ParseMoney(m[1])
		if !ok || (v == 0 && !r.AcceptZeroTotal) {
			continue
		}
		return &v
	}
	return nil
}

func (r *RuleSet) period(t string) (*civil.Date, *civil.Date) {
	for _, rule := range r.Periods {
		m := rule.Pattern.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		start, end := rule.Dates(m)
		if start != nil || end != nil {
			return start, end
		}
	}
	return nil, nil
}

func (r *RuleSet) fixed(t string, total *models.Cents) []models.FixedItem {
	var items []models.FixedItem
	found := map[string]models.Cents{}

	for _, rule := range r.Fixed {
		if rule.Custom != nil {
			items = append(items, rule.Custom(t, total)...)
			continue
		}
		n := rule.Nearest
		if n == nil {
			continue
		}
		opts := n.Options
		for _, label := range n.ExcludeFound {
			if v, ok := found[label]; ok {
				opts.Blacklist = append(append([]models.Cents(nil), opts.Blacklist...), v)
			}
		}
		for _, kw := range n.Keywords {
			v, ok := NearestValue(t, kw, total, opts)
			if !ok {
				continue
			}
			found[n.Label] = v
			items = append(items, models.FixedItem{
				Label:    n.Label,
				Amount:   v,
				Net:      v,
				Evidence: kw,
			})
			break
		}
	}
	return items
}

// datePair parses both groups with normalize.ParseDate. A start without a
// year borrows the end's year.
func datePair(startGroup, endGroup int) func(m []string) (*civil.Date, *civil.Date) {
	return func(m []string) (*civil.Date, *civil.Date) {
		var start, end *civil.Date
		if d, ok := normalize.ParseDate(m[endGroup]); ok {
			end = &d
		} else if d, ok := normalize.ParseDayMonth(m[endGroup], 0); ok {
			end = &d
		}
		if d, ok := normalize.ParseDate(m[startGroup]); ok {
			start = &d
		} else if end != nil {
			if d, ok := normalize.ParseDayMonth(m[startGroup], end.Year); ok {
				start = &d
			}
		}
		return start, end
	}
}
