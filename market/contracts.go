package market

import (
	"math"
	"sort"
)

// Tick economics applied when an instrument has no usable contract spec.
// They match a 30-year treasury bond future (1/64 point, $15.625).
const (
	DefaultTickSize  = 1.0 / 64.0
	DefaultTickValue = 15.625
)

// ContractSpec holds the tick economics of a root symbol.
type ContractSpec struct {
	Symbol    string  `json:"symbol" yaml:"symbol"`
	TickSize  float64 `json:"tick_size" yaml:"tick_size"`
	TickValue float64 `json:"tick_value" yaml:"tick_value"`
}

// DefaultSpec returns the fallback spec for symbol.
func DefaultSpec(symbol string) ContractSpec {
	return ContractSpec{Symbol: symbol, TickSize: DefaultTickSize, TickValue: DefaultTickValue}
}

// Valid reports whether the spec can be used for PnL math.
func (c ContractSpec) Valid() bool {
	return isPositive(c.TickSize) && isPositive(c.TickValue)
}

func isPositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// SpecProvider supplies contract specs by normalized symbol. A miss is not
// an error; callers fall back to DefaultSpec.
type SpecProvider interface {
	ContractSpec(symbol string) (ContractSpec, bool)
}

// SpecTable is an in-memory SpecProvider keyed by normalized symbol.
type SpecTable map[string]ContractSpec

// NewSpecTable builds a table from a list, normalizing each symbol.
// Later entries win.
func NewSpecTable(specs ...ContractSpec) SpecTable {
	t := make(SpecTable, len(specs))
	for _, s := range specs {
		t.Put(s)
	}
	return t
}

func (t SpecTable) Put(s ContractSpec) {
	s.Symbol = Normalize(s.Symbol)
	t[s.Symbol] = s
}

func (t SpecTable) ContractSpec(symbol string) (ContractSpec, bool) {
	if t == nil {
		return ContractSpec{}, false
	}
	s, ok := t[symbol]
	return s, ok
}

// Merge copies other into t. Entries in other replace existing ones.
func (t SpecTable) Merge(other SpecTable) {
	for _, s := range other {
		t.Put(s)
	}
}

// Symbols returns the table keys in sorted order.
func (t SpecTable) Symbols() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
