package techniques

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset/datasettest"
)

func TestKMeansSeparatesObviousGroups(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.1, 0.2}, {0.2, 0.1},
		{10, 10}, {10.2, 9.9}, {9.8, 10.1},
		{-10, 10}, {-9.9, 10.2}, {-10.1, 9.8},
	}
	r := kmeans(points, 3, 10, 300, 42)
	require.Len(t, r.Labels, len(points))
	for g := 0; g < 3; g++ {
		base := r.Labels[g*3]
		assert.Equal(t, base, r.Labels[g*3+1])
		assert.Equal(t, base, r.Labels[g*3+2])
	}
	assert.NotEqual(t, r.Labels[0], r.Labels[3])
	assert.NotEqual(t, r.Labels[3], r.Labels[6])
	assert.Less(t, r.Inertia, 1.0)
}

func TestKMeansDeterministic(t *testing.T) {
	points := [][]float64{{1, 2}, {3, 1}, {8, 9}, {2, 2}, {9, 8}, {5, 5}, {0, 7}}
	a := kmeans(points, 3, 10, 300, 42)
	b := kmeans(points, 3, 10, 300, 42)
	assert.Equal(t, a, b)
}

func TestStandardize(t *testing.T) {
	out, means, sds := standardize([][]float64{{1, 10}, {3, 10}})
	assert.Equal(t, []float64{2, 10}, means)
	assert.Equal(t, []float64{1, 0}, sds)
	assert.InDelta(t, -1, out[0][0], 1e-6)
	assert.InDelta(t, 1, out[1][0], 1e-6)
	assert.Equal(t, 0.0, out[0][1])
}

func TestClustersProfilesCoverEveryState(t *testing.T) {
	res, err := Clusters(context.Background(), syntheticEnv(90))
	require.NoError(t, err)
	profiles := res.Findings["clusters"].([]clusterProfile)
	size := 0
	for _, p := range profiles {
		size += p.Size
	}
	assert.Equal(t, 6, size)
	assert.Equal(t, analysis.RiskInfo, res.Risk)
}

func TestHotspotsFindsInflatedDistrict(t *testing.T) {
	res, err := Hotspots(context.Background(), syntheticEnv(90))
	require.NoError(t, err)
	assert.Equal(t, "Bihar / Gaya", res.Final["top_hotspot"])
	assert.GreaterOrEqual(t, res.Final["hotspot_count"].(int), 1)
}

func TestCohortSharesSumToHundred(t *testing.T) {
	res, err := Cohorts(context.Background(), syntheticEnv(90))
	require.NoError(t, err)
	shares := res.Visualization["values"].([]float64)
	require.Len(t, shares, 3)
	assert.InDelta(t, 100, analysis.Sum(shares), 0.1)
	assert.Equal(t, "18+", res.Final["dominant_cohort"])
	assert.Equal(t, []string{"0-5", "5-17", "18+"}, res.Visualization["labels"])
}

func enrolmentEnv(rows ...dataset.Record) Env {
	return NewEnv(datasettest.Source{dataset.Enrolment: datasettest.Table(dataset.Enrolment, rows...)})
}

func TestGrowthNeedsTwoMonths(t *testing.T) {
	env := enrolmentEnv(
		datasettest.Row(datasettest.Day(2024, 3, 1), "Goa", "North Goa", 10, 20, 30),
		datasettest.Row(datasettest.Day(2024, 3, 2), "Goa", "North Goa", 12, 18, 40),
	)
	for name, fn := range map[string]Func{"cohorts": Cohorts, "scenarios": Scenarios, "forecast": Forecast} {
		res, err := fn(context.Background(), env)
		require.NoError(t, err, name)
		assert.True(t, res.IsInsufficient(), name)
		assert.NotContains(t, res.Final, "fastest_growing_cohort", name)
	}
}

func TestCohortGrowthSkipsBandsWithoutBase(t *testing.T) {
	env := enrolmentEnv(
		datasettest.Row(datasettest.Day(2024, 1, 5), "Goa", "North Goa", 0, 0, 100),
		datasettest.Row(datasettest.Day(2024, 2, 5), "Goa", "North Goa", 10, 0, 150),
		datasettest.Row(datasettest.Day(2024, 3, 5), "Goa", "North Goa", 20, 0, 180),
	)
	res, err := Cohorts(context.Background(), env)
	require.NoError(t, err)
	require.False(t, res.IsInsufficient())
	growth := res.Intermediate["avg_growth_pct"].(map[string]float64)
	assert.NotContains(t, growth, "5-17")
	assert.InDelta(t, 100, growth["0-5"], 0.01)
	assert.Equal(t, "0-5", res.Final["fastest_growing_cohort"])

	zero := enrolmentEnv(
		datasettest.Row(datasettest.Day(2024, 1, 5), "Goa", "North Goa", 0, 0, 0),
		datasettest.Row(datasettest.Day(2024, 2, 5), "Goa", "North Goa", 10, 5, 5),
	)
	res, err = Cohorts(context.Background(), zero)
	require.NoError(t, err)
	assert.True(t, res.IsInsufficient())
}

func TestCoverageGapFlagsCollapsedState(t *testing.T) {
	var rows []dataset.Record
	for m := 0; m < 6; m++ {
		d := datasettest.Day(2024, 1, 1).AddDate(0, m, 0)
		rows = append(rows, datasettest.Row(d, "Kerala", "Kollam", 100, 0, 0))
		collapsed := 100.0
		if m >= 3 {
			collapsed = 5
		}
		rows = append(rows, datasettest.Row(d, "Goa", "North Goa", collapsed, 0, 0))
	}
	env := NewEnv(datasettest.Source{dataset.Enrolment: datasettest.Table(dataset.Enrolment, rows...)})
	res, err := CoverageGap(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Final["potential_saturation_states"])
}

func TestTrendDirection(t *testing.T) {
	assert.Equal(t, "increasing", trendDirection([]float64{10, 10, 10, 20, 20, 20}))
	assert.Equal(t, "decreasing", trendDirection([]float64{20, 20, 20, 10, 10, 10}))
	assert.Equal(t, "stable", trendDirection([]float64{10, 10.5, 10}))
	assert.Equal(t, "insufficient_data", trendDirection([]float64{1}))
}

func TestLagChange(t *testing.T) {
	assert.Equal(t, []float64{0, 100, -50, -100}, lagChange([]float64{10, 20, 10, 0}, 1))
	assert.Equal(t, []float64{0, 0, 0, 0}, lagChange([]float64{0, 5, 0, 5}, 2))
}

func TestZAnomaliesSeverity(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 200}
	keys := make([]string, len(values))
	for i := range keys {
		keys[i] = string(rune('a' + i))
	}
	found := zAnomalies("national", keys, values, 2)
	require.Len(t, found, 1)
	assert.Equal(t, "p", found[0].Key)
	assert.Equal(t, "spike", found[0].Type)
	assert.Equal(t, string(analysis.RiskHigh), found[0].Severity)

	assert.Empty(t, zAnomalies("state", []string{"a", "b"}, []float64{1, 100}, 1))
}

func TestGenderParityWithoutColumns(t *testing.T) {
	res, err := GenderParity(context.Background(), syntheticEnv(10))
	require.NoError(t, err)
	assert.Equal(t, analysis.RiskHigh, res.Risk)
	assert.Equal(t, "DATA_UNAVAILABLE", res.Final["status"])
}

func TestInsightsListsTopStates(t *testing.T) {
	res, err := Insights(context.Background(), syntheticEnv(60))
	require.NoError(t, err)
	require.NoError(t, res.Validate())
	assert.NotEmpty(t, res.Findings["insights"])
}
