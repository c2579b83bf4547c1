package dataset

import (
	"sort"
	"time"
)

// Record is one normalized row. It is a plain value: copying it never
// aliases the cached table.
type Record struct {
	Date        time.Time
	State       string
	District    string
	SubDistrict string
	Pincode     string
	Measures    [MaxMeasures]float64
	Total       float64
}

// Stats describes a load: counts, defaults applied and coverage.
type Stats struct {
	Rows           int
	Columns        int
	Cells          int
	DefaultedCells int
	DroppedRows    int
	NegativeCells  int
	Files          []string
	First          time.Time
	Last           time.Time
	States         int
	Districts      int
}

// Table is an immutable, date-sorted snapshot of one source table.
type Table struct {
	schema  Schema
	rows    []Record
	headers []string
	stats   Stats
}

// NewTable finalizes records into a Table: totals are derived from the
// schema's measures, rows are stably sorted by date and coverage stats are
// filled in. The records slice is owned by the table afterwards.
func NewTable(schema Schema, records []Record, headers []string, stats Stats) *Table {
	n := len(schema.Measures)
	states := map[string]struct{}{}
	districts := map[string]struct{}{}
	for i := range records {
		total := 0.0
		for j := 0; j < n && j < MaxMeasures; j++ {
			total += records[i].Measures[j]
		}
		records[i].Total = total
		states[records[i].State] = struct{}{}
		districts[DistrictKey(records[i])] = struct{}{}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	stats.Rows = len(records)
	stats.States = len(states)
	stats.Districts = len(districts)
	if stats.Columns == 0 {
		stats.Columns = len(headers)
	}
	if stats.Cells == 0 {
		stats.Cells = len(records) * (5 + n)
	}
	if len(records) > 0 {
		stats.First = records[0].Date
		stats.Last = records[len(records)-1].Date
	}
	return &Table{
		schema:  schema,
		rows:    records,
		headers: append([]string(nil), headers...),
		stats:   stats,
	}
}

// Kind of the table.
func (t *Table) Kind() Kind { return t.schema.Kind }

// Schema returns a copy of the table's schema.
func (t *Table) Schema() Schema {
	s := t.schema
	s.Measures = append([]string(nil), s.Measures...)
	return s
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns row i by value.
func (t *Table) Row(i int) Record { return t.rows[i] }

// Each calls fn with every row in date order.
func (t *Table) Each(fn func(Record)) {
	for _, r := range t.rows {
		fn(r)
	}
}

// Rows returns a private copy of all rows.
func (t *Table) Rows() []Record {
	return append([]Record(nil), t.rows...)
}

// Headers are the normalized header names seen across source files.
func (t *Table) Headers() []string {
	return append([]string(nil), t.headers...)
}

// Stats returns a copy of the load statistics.
func (t *Table) Stats() Stats {
	s := t.stats
	s.Files = append([]string(nil), s.Files...)
	return s
}

// MeasureTotal sums measure i across all rows.
func (t *Table) MeasureTotal(i int) float64 {
	sum := 0.0
	for _, r := range t.rows {
		sum += r.Measures[i]
	}
	return sum
}

// GrandTotal sums the derived total across all rows.
func (t *Table) GrandTotal() float64 {
	sum := 0.0
	for _, r := range t.rows {
		sum += r.Total
	}
	return sum
}

// Values returns the derived totals in row order.
func (t *Table) Values() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Total
	}
	return out
}
