package techniques

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset/datasettest"
)

func syntheticEnv(days int) Env {
	return NewEnv(datasettest.Synthetic(days))
}

func TestEveryTechniqueProducesValidResult(t *testing.T) {
	env := syntheticEnv(400)
	ctx := context.Background()
	require.NotEmpty(t, All())
	for _, tech := range All() {
		t.Run(tech.Name, func(t *testing.T) {
			res, err := tech.Run(ctx, env)
			require.NoError(t, err)
			require.NoError(t, res.Validate())
			assert.False(t, res.IsInsufficient(), "synthetic data should satisfy %s", tech.Name)
			assert.NotNil(t, res.Visualization)
		})
	}
}

func TestRegistryShape(t *testing.T) {
	names := Names()
	assert.Len(t, names, 27)
	assert.Contains(t, names, "benford")
	assert.Contains(t, names, "coverage-gap")
	assert.Equal(t, []string{
		CategoryDescriptive, CategoryFraud, CategoryGeographic, CategoryOperations,
		CategoryPredictive, CategoryQuality, CategoryTrends,
	}, Categories())
	for _, tech := range All() {
		assert.NotEmpty(t, tech.Title, tech.Name)
		assert.NotEmpty(t, tech.Datasets, tech.Name)
		assert.Equal(t, dataset.Enrolment, tech.Datasets[0], tech.Name)
	}
}

func TestLookupUnknownTechnique(t *testing.T) {
	_, err := Lookup("astrology")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))

	_, err = Run(context.Background(), syntheticEnv(30), "astrology")
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))
}

func TestMissingTableIsDataUnavailable(t *testing.T) {
	src := datasettest.Synthetic(60)
	delete(src, dataset.Demographic)
	env := NewEnv(src)

	_, err := Yield(context.Background(), env)
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrDataUnavailable))

	_, err = Survival(context.Background(), env)
	assert.True(t, errors.Is(err, analysis.ErrDataUnavailable))

	// Trend techniques tolerate missing update tables.
	res, err := GrowthTrends(context.Background(), env)
	require.NoError(t, err)
	require.NoError(t, res.Validate())

	_, err = Benford(context.Background(), Env{Cal: DefaultCalibration()})
	assert.True(t, errors.Is(err, analysis.ErrDataUnavailable))
}

func TestInsufficientSamples(t *testing.T) {
	d := datasettest.Day
	tiny := datasettest.Source{
		dataset.Enrolment: datasettest.Table(dataset.Enrolment,
			datasettest.Row(d(2025, 1, 1), "Goa", "North Goa", 1, 2, 3),
			datasettest.Row(d(2025, 1, 2), "Goa", "North Goa", 2, 2, 3),
			datasettest.Row(d(2025, 1, 3), "Kerala", "Kollam", 4, 1, 3),
		),
	}
	env := NewEnv(tiny)
	cases := map[string]Func{
		"outliers":   Outliers,
		"timeseries": Timeseries,
		"clusters":   Clusters,
		"patterns":   Patterns,
		"deciles":    Deciles,
		"forecast":   Forecast,
		"throughput": Throughput,
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := fn(context.Background(), env)
			require.NoError(t, err)
			require.NoError(t, res.Validate())
			assert.True(t, res.IsInsufficient())
			assert.Equal(t, analysis.RiskInfo, res.Risk)
			assert.Equal(t, analysis.StatusInsufficient, res.Final["status"])
		})
	}
}

func TestTechniquesAreIdempotent(t *testing.T) {
	env := syntheticEnv(200)
	for _, name := range []string{"benford", "outliers", "forecast", "clusters", "pareto", "queue", "deciles"} {
		a, err := Run(context.Background(), env, name)
		require.NoError(t, err)
		b, err := Run(context.Background(), env, name)
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestCalibrationOverride(t *testing.T) {
	cal := DefaultCalibration()
	require.NoError(t, cal.Override("outlier_rate", analysis.Band{High: 10, Medium: 4}))
	assert.Equal(t, analysis.Band{High: 10, Medium: 4}, cal.OutlierRate)

	err := cal.Override("benford_p", analysis.Band{High: 0.05, Medium: 0.01})
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter), "lower-is-worse bands need high ≤ medium")
	assert.Equal(t, DefaultCalibration().BenfordP, cal.BenfordP)

	err = cal.Override("vibes", analysis.Band{})
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))
	assert.Contains(t, cal.BandNames(), "anomaly_count")
}

func TestCalibrationChangesVerdict(t *testing.T) {
	env := syntheticEnv(120)
	env.Cal.OutlierRate = analysis.Band{High: -2, Medium: -1}
	res, err := Outliers(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, analysis.RiskHigh, res.Risk)
}
