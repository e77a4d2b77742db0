package compare

import (
	"sort"

	"github.com/san-kum/capsim/internal/battery"
)

// Entry is one solved variant at one sweep parameter.
type Entry struct {
	Variant  battery.Variant
	Solution *battery.Solution
}

// Table maps a sweep parameter (a C-rate or a grid point count) to the
// solved variants, in model-set order.
type Table map[float64][]Entry

// Params returns the sweep parameters in increasing order.
func (t Table) Params() []float64 {
	params := make([]float64, 0, len(t))
	for p := range t {
		params = append(params, p)
	}
	sort.Float64s(params)
	return params
}

// Restrict keeps only the listed parameters. Parameters missing from the
// table are ignored.
func (t Table) Restrict(params []float64) Table {
	out := make(Table, len(params))
	for _, p := range params {
		if entries, ok := t[p]; ok {
			out[p] = entries
		}
	}
	return out
}

// Lookup finds the solution of variant v at param.
func (t Table) Lookup(param float64, v battery.Variant) (*battery.Solution, bool) {
	for _, e := range t[param] {
		if e.Variant == v {
			return e.Solution, true
		}
	}
	return nil, false
}

// Variants lists every variant in the table, ordered by first appearance
// when walking parameters in increasing order.
func (t Table) Variants() []battery.Variant {
	seen := make(map[battery.Variant]bool)
	var out []battery.Variant
	for _, p := range t.Params() {
		for _, e := range t[p] {
			if !seen[e.Variant] {
				seen[e.Variant] = true
				out = append(out, e.Variant)
			}
		}
	}
	return out
}
