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

func TestParetoCount(t *testing.T) {
	n, cum := paretoCount([]float64{50, 30, 10, 5, 5})
	assert.Equal(t, 2, n)
	assert.InDelta(t, 100.0, cum[len(cum)-1], 1e-9)

	n, _ = paretoCount([]float64{20, 20, 20, 20, 20})
	assert.Equal(t, 4, n)
}

func TestQueueStableSystem(t *testing.T) {
	res, err := Queue(context.Background(), syntheticEnv(60))
	require.NoError(t, err)
	rho := res.Final["utilization_rho"].(float64)
	assert.True(t, rho > 0 && rho < 1, "μ is 110%% of the busiest day so ρ < 1")
	assert.Greater(t, res.Final["avg_wait_time_mins"].(float64), 0.0)
	assert.Contains(t, res.Visualization, "capacity_line")
}

func TestLoadBalancePerfectlyEven(t *testing.T) {
	d := datasettest.Day(2025, 1, 1)
	env := NewEnv(datasettest.Source{dataset.Enrolment: datasettest.Table(dataset.Enrolment,
		datasettest.Row(d, "Goa", "North Goa", 10, 10, 10),
		datasettest.Row(d, "Kerala", "Kollam", 10, 10, 10),
		datasettest.Row(d, "Assam", "Kamrup", 10, 10, 10),
	)})
	res, err := LoadBalance(context.Background(), env)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.Final["balance_score"].(float64), 1e-9)
	assert.Equal(t, analysis.RiskLow, res.Risk)
}

func TestYieldRatios(t *testing.T) {
	res, err := Yield(context.Background(), syntheticEnv(60))
	require.NoError(t, err)
	require.NoError(t, res.Validate())
	score := res.Final["yield_score"].(float64)
	assert.True(t, score >= 0 && score <= 100)
}

func TestThroughputPercentilesOrdered(t *testing.T) {
	res, err := Throughput(context.Background(), syntheticEnv(60))
	require.NoError(t, err)
	p := res.Intermediate["percentiles"].(map[string]float64)
	assert.LessOrEqual(t, p["p50"], p["p90"])
	assert.LessOrEqual(t, p["p90"], p["p99"])
}

func TestDecileAssignment(t *testing.T) {
	var rows []dataset.Record
	d := datasettest.Day(2025, 1, 1)
	for i := 1; i <= 20; i++ {
		rows = append(rows, datasettest.Row(d, "State", string(rune('A'+i-1)), float64(i*10), 0, 0))
	}
	env := NewEnv(datasettest.Source{dataset.Enrolment: datasettest.Table(dataset.Enrolment, rows...)})
	res, err := Deciles(context.Background(), env)
	require.NoError(t, err)
	stats := res.Findings["deciles"].([]decileStat)
	require.Len(t, stats, 10)
	for _, s := range stats {
		assert.Equal(t, 2, s.Count, "20 districts fill ten deciles evenly")
	}
	// Top decile holds 190+200 of 2100.
	assert.InDelta(t, 390.0/2100, res.Final["top_decile_share"].(float64), 1e-4)
	assert.Len(t, res.Visualization["values"], 10)
}

func TestBenchmarkingRanksStates(t *testing.T) {
	res, err := Benchmarking(context.Background(), syntheticEnv(60))
	require.NoError(t, err)
	labels := res.Visualization["labels"].([]string)
	values := res.Visualization["values"].([]float64)
	require.Equal(t, len(labels), len(values))
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i-1], values[i])
	}
}

func TestGiniRangeOnTechniqueInput(t *testing.T) {
	src := datasettest.Synthetic(60)
	states := dataset.By(src[dataset.Enrolment], dataset.StateKey)
	g := analysis.Gini(dataset.Totals(states))
	assert.True(t, g >= 0 && g <= 1)
	assert.Equal(t, 0.0, analysis.Gini([]float64{3, 3, 3}))
}
