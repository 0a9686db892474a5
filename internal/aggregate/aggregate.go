// Package aggregate folds drained outcomes into a nested lookup of closing
// prices keyed by exchange, then date, then symbol.
package aggregate

import (
	"cmp"
	"maps"
	"slices"

	"pricepool/internal/task"
)

// Result maps exchange → date → symbol → price. A nil price means the
// triple was requested but its fetch failed; a missing key means it was
// never requested. Treat it as read-only once built.
type Result map[string]map[string]map[string]*float64

// Aggregate folds outcomes into a Result. It is pure: the same outcomes
// always produce an equal Result. For duplicate triples the later outcome
// in the slice wins.
func Aggregate(outcomes []task.Outcome) Result {
	r := make(Result)
	for _, o := range outcomes {
		t := o.Task

		dates, ok := r[t.Exchange]
		if !ok {
			dates = make(map[string]map[string]*float64)
			r[t.Exchange] = dates
		}
		symbols, ok := dates[t.Date]
		if !ok {
			symbols = make(map[string]*float64)
			dates[t.Date] = symbols
		}

		if !o.OK() {
			symbols[t.Symbol] = nil
			continue
		}
		price := *o.Price
		symbols[t.Symbol] = &price
	}
	return r
}

// Lookup returns the price for a triple. requested reports whether the
// triple exists at all; ok reports whether it has a price.
func (r Result) Lookup(exchange, date, symbol string) (price float64, ok, requested bool) {
	p, requested := r[exchange][date][symbol]
	if !requested || p == nil {
		return 0, false, requested
	}
	return *p, true, true
}

// Leaves returns the number of (exchange, date, symbol) entries.
func (r Result) Leaves() int {
	n := 0
	for _, dates := range r {
		for _, symbols := range dates {
			n += len(symbols)
		}
	}
	return n
}

// Absent returns every requested triple without a price, sorted.
func (r Result) Absent() []task.Task {
	var out []task.Task
	for exchange, dates := range r {
		for date, symbols := range dates {
			for symbol, p := range symbols {
				if p == nil {
					out = append(out, task.Task{Exchange: exchange, Symbol: symbol, Date: date})
				}
			}
		}
	}
	slices.SortFunc(out, compareTasks)
	return out
}

// Exchanges returns the exchanges present, sorted.
func (r Result) Exchanges() []string {
	return slices.Sorted(maps.Keys(r))
}

// Dates returns the dates present for an exchange, sorted.
func (r Result) Dates(exchange string) []string {
	return slices.Sorted(maps.Keys(r[exchange]))
}

// Symbols returns the symbols present for an exchange and date, sorted.
func (r Result) Symbols(exchange, date string) []string {
	return slices.Sorted(maps.Keys(r[exchange][date]))
}

// Equal reports whether two results hold the same keys and prices.
func (r Result) Equal(other Result) bool {
	if r.Leaves() != other.Leaves() {
		return false
	}
	for exchange, dates := range r {
		for date, symbols := range dates {
			for symbol, p := range symbols {
				q, ok := other[exchange][date][symbol]
				if !ok || (p == nil) != (q == nil) {
					return false
				}
				if p != nil && *p != *q {
					return false
				}
			}
		}
	}
	return true
}

func compareTasks(a, b task.Task) int {
	return cmp.Or(
		cmp.Compare(a.Exchange, b.Exchange),
		cmp.Compare(a.Date, b.Date),
		cmp.Compare(a.Symbol, b.Symbol),
	)
}
