// Package datasettest builds in-memory tables for tests of packages that
// consume the dataset repository.
package datasettest

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

// Day returns midnight UTC of the given date.
func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Row is a compact record literal.
func Row(date time.Time, state, district string, measures ...float64) dataset.Record {
	r := dataset.Record{
		Date:        date,
		State:       state,
		District:    district,
		SubDistrict: dataset.Unknown,
		Pincode:     "000000",
	}
	copy(r.Measures[:], measures)
	return r
}

// Table finalizes records into a table of kind.
func Table(kind dataset.Kind, records ...dataset.Record) *dataset.Table {
	s, err := dataset.SchemaFor(kind)
	if err != nil {
		panic(err)
	}
	headers := []string{dataset.ColDate, dataset.ColState, dataset.ColDistrict, dataset.ColPincode}
	headers = append(headers, s.Measures...)
	return dataset.NewTable(s, append([]dataset.Record(nil), records...), headers, dataset.Stats{Files: []string{"memory"}})
}

// Source serves fixed tables and reports ErrDataUnavailable for the rest.
type Source map[dataset.Kind]*dataset.Table

// Load implements the techniques' data source.
func (s Source) Load(_ context.Context, kind dataset.Kind) (*dataset.Table, error) {
	t, ok := s[kind]
	if !ok || t == nil {
		return nil, errors.Mark(errors.Newf("no %s table in fixture", kind), analysis.ErrDataUnavailable)
	}
	return t, nil
}

// Loader adapts Source to dataset.Loader for repository-level tests.
func (s Source) LoadTable(ctx context.Context, kind dataset.Kind) (*dataset.Table, error) {
	return s.Load(ctx, kind)
}

// Synthetic builds a deterministic multi-state dataset spanning the given
// number of days starting 2024-01-01, with every table populated. Volumes
// vary by state, district, weekday and a slow upward trend so every
// technique has non-degenerate input.
func Synthetic(days int) Source {
	states := []struct {
		name      string
		districts []string
		scale     float64
	}{
		{"Uttar Pradesh", []string{"Lucknow", "Kanpur", "Agra", "Varanasi"}, 9},
		{"Maharashtra", []string{"Pune", "Nagpur", "Nashik"}, 7},
		{"Bihar", []string{"Patna", "Gaya", "Bhagalpur"}, 6},
		{"Kerala", []string{"Ernakulam", "Kollam"}, 3},
		{"Goa", []string{"North Goa", "South Goa"}, 1},
		{"Assam", []string{"Kamrup", "Dibrugarh"}, 2},
	}
	start := Day(2024, 1, 1)
	var enr, demo, bio []dataset.Record
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		wk := 1.0
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			wk = 0.8
		}
		trend := 1 + float64(d)/float64(days+1)*0.3
		for si, st := range states {
			for di, dist := range st.districts {
				base := st.scale * float64(20+7*di+(d*(si+3)+di*11)%17) * wk * trend
				if st.name == "Bihar" && dist == "Gaya" {
					base *= 6
				}
				a := float64(int(base * 0.2))
				b := float64(int(base * 0.3))
				c := float64(int(base * 0.5))
				enr = append(enr, Row(date, st.name, dist, a, b, c))
				if d >= si*3 {
					demo = append(demo, Row(date, st.name, dist, float64(int(b*0.6)), float64(int(c*0.7))))
				}
				bio = append(bio, Row(date, st.name, dist, float64(int(b*0.4)), float64(int(c*0.3))))
			}
		}
	}
	return Source{
		dataset.Enrolment:   Table(dataset.Enrolment, enr...),
		dataset.Demographic: Table(dataset.Demographic, demo...),
		dataset.Biometric:   Table(dataset.Biometric, bio...),
	}
}
