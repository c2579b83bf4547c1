package dataset

import (
	"sort"
	"time"
)

// Group is an aggregate of rows sharing a key at some grain.
type Group struct {
	Key      string
	Date     time.Time
	Count    int
	Measures [MaxMeasures]float64
	Total    float64
}

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// StateKey groups by state.
func StateKey(r Record) string { return r.State }

// DistrictKey groups by (state, district).
func DistrictKey(r Record) string { return r.State + " / " + r.District }

// MonthStart truncates t to the first of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string { return t.Format(monthLayout) }

func accumulate(m map[string]*Group, key string, date time.Time, r Record) {
	g, ok := m[key]
	if !ok {
		g = &Group{Key: key, Date: date}
		m[key] = g
	}
	g.Count++
	g.Total += r.Total
	for i := range r.Measures {
		g.Measures[i] += r.Measures[i]
	}
}

func sortedByDate(m map[string]*Group) []Group {
	out := make([]Group, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Daily sums rows per calendar date, ascending.
func Daily(t *Table) []Group {
	m := map[string]*Group{}
	t.Each(func(r Record) {
		accumulate(m, r.Date.Format(dayLayout), r.Date, r)
	})
	return sortedByDate(m)
}

// Monthly sums rows per calendar month, ascending.
func Monthly(t *Table) []Group {
	m := map[string]*Group{}
	t.Each(func(r Record) {
		ms := MonthStart(r.Date)
		accumulate(m, MonthKey(ms), ms, r)
	})
	return sortedByDate(m)
}

// By sums rows per key, sorted by key.
func By(t *Table, key func(Record) string) []Group {
	m := map[string]*Group{}
	t.Each(func(r Record) {
		accumulate(m, key(r), time.Time{}, r)
	})
	out := make([]Group, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MonthlyBy returns, per key, that key's monthly series in ascending order.
func MonthlyBy(t *Table, key func(Record) string) map[string][]Group {
	nested := map[string]map[string]*Group{}
	t.Each(func(r Record) {
		k := key(r)
		inner, ok := nested[k]
		if !ok {
			inner = map[string]*Group{}
			nested[k] = inner
		}
		ms := MonthStart(r.Date)
		accumulate(inner, MonthKey(ms), ms, r)
	})
	out := make(map[string][]Group, len(nested))
	for k, inner := range nested {
		out[k] = sortedByDate(inner)
	}
	return out
}

// DailyBy returns, per key, that key's daily series in ascending order.
func DailyBy(t *Table, key func(Record) string) map[string][]Group {
	nested := map[string]map[string]*Group{}
	t.Each(func(r Record) {
		k := key(r)
		inner, ok := nested[k]
		if !ok {
			inner = map[string]*Group{}
			nested[k] = inner
		}
		accumulate(inner, r.Date.Format(dayLayout), r.Date, r)
	})
	out := make(map[string][]Group, len(nested))
	for k, inner := range nested {
		out[k] = sortedByDate(inner)
	}
	return out
}

// Totals extracts the Total of each group.
func Totals(gs []Group) []float64 {
	out := make([]float64, len(gs))
	for i, g := range gs {
		out[i] = g.Total
	}
	return out
}

// Keys extracts the Key of each group.
func Keys(gs []Group) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.Key
	}
	return out
}

// SortByTotalDesc orders groups by descending total, ties by key.
func SortByTotalDesc(gs []Group) []Group {
	out := append([]Group(nil), gs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Key < out[j].Key
	})
	return out
}
