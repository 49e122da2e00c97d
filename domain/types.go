package domain

import (
	"fmt"
	"sort"
)

// Currency a currency code
type Currency string

// Amount a monetary amount... which should be a float...
type Amount float64

// Rate an exchange rate
type Rate float64

// Exchanged result of converting an amount at a rate
type Exchanged struct {
	Rate   Rate
	Amount Amount

	// From and To are the published entries the conversion used, taken from
	// the same table as Rate and Amount. Zero when the codes are equal and
	// not listed.
	From RateEntry
	To   RateEntry
}

// Pivot is the currency every published rate is quoted in.
const Pivot Currency = "RUB"

// PivotName display name used when the pivot row has to be synthesized.
const PivotName = "Российский рубль"

// RateEntry one row of the daily rate table: Value roubles buy Nominal units of Code.
type RateEntry struct {
	Code    Currency
	Nominal int
	Name    string
	Value   float64
}

// RateTable is an immutable set of rate entries keyed by currency code.
// It is safe for concurrent reads.
type RateTable struct {
	entries []RateEntry // sorted by code
	index   map[Currency]int
}

// NewRateTable builds a table from entries. The input slice is copied.
// Codes must be non-empty and unique; numeric sanity is left to whoever
// produced the entries.
func NewRateTable(entries []RateEntry) (*RateTable, error) {
	sorted := make([]RateEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	index := make(map[Currency]int, len(sorted))
	for i, e := range sorted {
		if e.Code == "" {
			return nil, fmt.Errorf("rate table: empty currency code")
		}
		if _, dup := index[e.Code]; dup {
			return nil, fmt.Errorf("rate table: duplicate currency code %v", e.Code)
		}
		index[e.Code] = i
	}

	return &RateTable{entries: sorted, index: index}, nil
}

// Lookup returns the entry for code.
func (t *RateTable) Lookup(code Currency) (RateEntry, bool) {
	if t == nil {
		return RateEntry{}, false
	}
	i, ok := t.index[code]
	if !ok {
		return RateEntry{}, false
	}
	return t.entries[i], true
}

// Has reports whether code is present.
func (t *RateTable) Has(code Currency) bool {
	_, ok := t.Lookup(code)
	return ok
}

// Len number of entries
func (t *RateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Codes returns the currency codes in ascending order.
func (t *RateTable) Codes() []Currency {
	if t == nil {
		return nil
	}
	codes := make([]Currency, len(t.entries))
	for i, e := range t.entries {
		codes[i] = e.Code
	}
	return codes
}

// Entries returns a copy of the entries in ascending code order.
func (t *RateTable) Entries() []RateEntry {
	if t == nil {
		return nil
	}
	out := make([]RateEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
