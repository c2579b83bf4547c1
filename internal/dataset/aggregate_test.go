package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

func fixture() *Table {
	s, _ := SchemaFor(Enrolment)
	recs := []Record{
		{Date: day(2, 3), State: "B", District: "y", Measures: [MaxMeasures]float64{1, 1, 1}},
		{Date: day(1, 5), State: "A", District: "x", Measures: [MaxMeasures]float64{2, 0, 0}},
		{Date: day(1, 5), State: "A", District: "z", Measures: [MaxMeasures]float64{0, 4, 0}},
		{Date: day(2, 9), State: "A", District: "x", Measures: [MaxMeasures]float64{0, 0, 10}},
	}
	return NewTable(s, recs, nil, Stats{})
}

func TestAggregations(t *testing.T) {
	tbl := fixture()

	daily := Daily(tbl)
	require.Len(t, daily, 3)
	assert.Equal(t, "2025-01-05", daily[0].Key)
	assert.Equal(t, 6.0, daily[0].Total)
	assert.Equal(t, 2, daily[0].Count)

	monthly := Monthly(tbl)
	require.Len(t, monthly, 2)
	assert.Equal(t, []string{"2025-01", "2025-02"}, Keys(monthly))
	assert.Equal(t, []float64{6, 13}, Totals(monthly))

	byState := By(tbl, StateKey)
	require.Len(t, byState, 2)
	assert.Equal(t, "A", byState[0].Key)
	assert.Equal(t, 16.0, byState[0].Total)
	assert.Equal(t, [MaxMeasures]float64{2, 4, 10, 0}, byState[0].Measures)

	desc := SortByTotalDesc(byState)
	assert.Equal(t, "A", desc[0].Key)

	perState := MonthlyBy(tbl, StateKey)
	assert.Len(t, perState["A"], 2)
	assert.Len(t, perState["B"], 1)

	districts := By(tbl, DistrictKey)
	assert.Equal(t, []string{"A / x", "A / z", "B / y"}, Keys(districts))
}

func TestTableIsReadOnly(t *testing.T) {
	tbl := fixture()
	rows := tbl.Rows()
	rows[0].Total = -1
	rows[0].Measures[0] = 99
	assert.NotEqual(t, -1.0, tbl.Row(0).Total)
	assert.NotEqual(t, 99.0, tbl.Row(0).Measures[0])

	st := tbl.Stats()
	st.Files = append(st.Files, "x")
	assert.Empty(t, tbl.Stats().Files)

	assert.Equal(t, 19.0, tbl.GrandTotal())
	assert.Equal(t, 2, tbl.Stats().States)
	assert.Equal(t, day(1, 5), tbl.Stats().First)
}
