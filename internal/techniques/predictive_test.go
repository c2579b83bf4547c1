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

func monthlyEnv(values ...float64) Env {
	rows := make([]dataset.Record, len(values))
	for i, v := range values {
		rows[i] = datasettest.Row(datasettest.Day(2022, 1, 1).AddDate(0, i, 0), "Goa", "North Goa", v, 0, 0)
	}
	return NewEnv(datasettest.Source{dataset.Enrolment: datasettest.Table(dataset.Enrolment, rows...)})
}

func TestForecastNonNegative(t *testing.T) {
	// A steep decline would project below zero without clamping.
	res, err := Forecast(context.Background(), monthlyEnv(1000, 800, 600, 400, 200, 100))
	require.NoError(t, err)
	fc := res.Visualization["forecast"].(map[string]any)
	for _, key := range []string{"values", "ci_lower", "ci_upper"} {
		for _, v := range fc[key].([]float64) {
			assert.GreaterOrEqual(t, v, 0.0, key)
		}
	}
	assert.Len(t, fc["months"], 6)
	assert.Equal(t, analysis.RiskHigh, res.Risk)
}

func TestForecastFlatSeries(t *testing.T) {
	flat := make([]float64, 36)
	for i := range flat {
		flat[i] = 500
	}
	res, err := Forecast(context.Background(), monthlyEnv(flat...))
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Intermediate["trend_slope"].(float64), 1e-6)
	assert.NotEqual(t, analysis.RiskHigh, res.Risk)
	assert.Equal(t, true, res.Intermediate["seasonal_applied"])
	for _, v := range res.Visualization["forecast"].(map[string]any)["values"].([]float64) {
		assert.InDelta(t, 500, v, 1)
	}
	assert.InDelta(t, 0, res.Final["growth_rate_percent"].(float64), 0.5)
}

func TestForecastMonthKeysContinueHistory(t *testing.T) {
	res, err := Forecast(context.Background(), monthlyEnv(10, 20, 30))
	require.NoError(t, err)
	fc := res.Visualization["forecast"].(map[string]any)
	assert.Equal(t, []string{"2022-04", "2022-05", "2022-06", "2022-07", "2022-08", "2022-09"}, fc["months"])
	assert.Equal(t, false, res.Intermediate["seasonal_applied"])
	assert.InDelta(t, 1.0, res.Final["r_squared"].(float64), 1e-9)
}

func TestKaplanMeierProperties(t *testing.T) {
	subjects := []Subject{
		{Duration: 5, Event: true},
		{Duration: 8, Event: false},
		{Duration: 8, Event: true},
		{Duration: 12, Event: true},
		{Duration: 20, Event: false},
		{Duration: 3, Event: true},
	}
	curve := KaplanMeier(subjects)
	require.NotEmpty(t, curve)
	assert.Equal(t, 0.0, curve[0].Time)
	assert.Equal(t, 1.0, curve[0].Survival)
	assert.Equal(t, len(subjects), curve[0].AtRisk)
	for i := 1; i < len(curve); i++ {
		assert.LessOrEqual(t, curve[i].Survival, curve[i-1].Survival)
		assert.Greater(t, curve[i].Time, curve[i-1].Time)
		assert.True(t, curve[i].Survival >= 0 && curve[i].Survival <= 1)
	}
	// t=3: 6 at risk, 1 event → 5/6.
	assert.InDelta(t, 5.0/6, curve[1].Survival, 1e-12)

	// t=5: 4/6, t=8: 4/6 × 3/4 = 0.5.
	median, reached := medianSurvival(curve, 20)
	assert.True(t, reached)
	assert.Equal(t, 8.0, median)
}

func TestKaplanMeierAllCensored(t *testing.T) {
	curve := KaplanMeier([]Subject{{Duration: 4}, {Duration: 9}})
	require.Len(t, curve, 1)
	median, reached := medianSurvival(curve, 9)
	assert.False(t, reached)
	assert.Equal(t, 9.0, median)
}

func TestRegressionExplainsTotals(t *testing.T) {
	res, err := Regression(context.Background(), syntheticEnv(200))
	require.NoError(t, err)
	require.False(t, res.IsInsufficient())
	r2 := res.Final["r_squared"].(float64)
	assert.True(t, r2 >= 0 && r2 <= 1)
	assert.Greater(t, r2, 0.99, "the age bands sum to the total")
	assert.Len(t, res.Visualization["labels"], 3)
}

func TestRegressionRiskBoundaries(t *testing.T) {
	cal := DefaultCalibration()
	cases := []struct {
		r2   float64
		want analysis.Risk
	}{
		{0.3, analysis.RiskHigh},
		{0.5, analysis.RiskHigh},
		{0.51, analysis.RiskMedium},
		{0.8, analysis.RiskMedium},
		{0.81, analysis.RiskLow},
	}
	for _, c := range cases {
		got, decision := regressionRisk(c.r2, cal)
		assert.Equal(t, c.want, got, "r2 %v", c.r2)
		assert.NotEmpty(t, decision)
	}
}

func TestScenariosAreOrdered(t *testing.T) {
	res, err := Scenarios(context.Background(), monthlyEnv(100, 110, 105, 120, 118, 130))
	require.NoError(t, err)
	viz := res.Visualization
	pess := viz["pessimistic"].([]float64)
	base := viz["baseline"].([]float64)
	opt := viz["optimistic"].([]float64)
	require.Len(t, base, 12)
	for i := range base {
		assert.LessOrEqual(t, pess[i], base[i])
		assert.LessOrEqual(t, base[i], opt[i])
	}
}

func TestSurvivalOnSynthetic(t *testing.T) {
	res, err := Survival(context.Background(), syntheticEnv(90))
	require.NoError(t, err)
	require.NoError(t, res.Validate())
	surv := res.Visualization["survival"].([]float64)
	require.NotEmpty(t, surv)
	assert.Equal(t, 1.0, surv[0])
}
