package summary

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset/datasettest"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

func kpi(t *testing.T, s *ExecutiveSummary, label string) KPI {
	t.Helper()
	for _, k := range s.KPIs {
		if k.Label == label {
			return k
		}
	}
	t.Fatalf("no KPI %q", label)
	return KPI{}
}

func TestSummarizeAllComponents(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := datasettest.Synthetic(120)
	svc := New(techniques.NewEnv(src))
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	sum, err := svc.Summarize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Degraded())
	assert.Len(t, sum.Components, 5)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), sum.Generated)

	total := kpi(t, sum, "Total Enrolments")
	assert.Equal(t, src[dataset.Enrolment].GrandTotal(), total.Value)
	assert.Equal(t, StatusOK, total.Status)

	fraud := kpi(t, sum, "Fraud Risk Level")
	assert.NotEqual(t, RiskUnknown, fraud.Text)

	normality := kpi(t, sum, "Operational Normality")
	assert.True(t, normality.Value >= 0 && normality.Value <= 100)

	require.NotNil(t, sum.Result)
	require.NoError(t, sum.Result.Validate())
	assert.Equal(t, "Executive Summary", sum.Result.Technique)
	assert.Len(t, sum.Result.Steps, 5)
}

func TestSummarizeDegradesWhenTableMissing(t *testing.T) {
	svc := New(techniques.NewEnv(datasettest.Source{}))

	sum, err := svc.Summarize(context.Background())
	require.NoError(t, err, "component failures never fail the summary")
	assert.ElementsMatch(t, componentOrder, sum.Degraded())

	assert.Equal(t, 0.0, kpi(t, sum, "Total Enrolments").Value)
	assert.Equal(t, StatusUnavailable, kpi(t, sum, "Total Enrolments").Status)
	assert.Equal(t, RiskUnknown, kpi(t, sum, "Fraud Risk Level").Text)
	assert.Equal(t, 0.0, kpi(t, sum, "Operational Normality").Value)
	assert.Equal(t, 0.0, kpi(t, sum, "Forecast Growth").Value)

	require.NoError(t, sum.Result.Validate())
	assert.Equal(t, "UNKNOWN", sum.Result.Final["Fraud Risk Level"])
	assert.Contains(t, sum.Result.Decision, "5 of 5")
}

func TestSummarizeDegradesOnInsufficientData(t *testing.T) {
	d := datasettest.Day(2025, 1, 1)
	src := datasettest.Source{dataset.Enrolment: datasettest.Table(dataset.Enrolment,
		datasettest.Row(d, "Goa", "North Goa", 1, 2, 3),
	)}
	sum, err := New(techniques.NewEnv(src)).Summarize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusOK, sum.Components[ComponentTotal].Status)
	assert.Equal(t, StatusUnavailable, sum.Components[ComponentOutliers].Status)
	assert.Equal(t, StatusUnavailable, sum.Components[ComponentForecast].Status)
	assert.Equal(t, 6.0, kpi(t, sum, "Total Enrolments").Value)
}

type panicSource struct{}

func (panicSource) Load(context.Context, dataset.Kind) (*dataset.Table, error) {
	panic("corrupt cache")
}

func TestSummarizeRecoversComponentPanic(t *testing.T) {
	sum, err := New(techniques.NewEnv(panicSource{})).Summarize(context.Background())
	require.NoError(t, err)
	for _, name := range componentOrder {
		assert.Contains(t, sum.Components[name].Error, "corrupt cache", name)
	}
}

func TestSummarizeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(techniques.NewEnv(datasettest.Synthetic(30))).Summarize(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFinalFloat(t *testing.T) {
	r := analysis.NewResult(analysis.Parts{Final: map[string]any{"a": 1.5, "b": 3, "c": "x"}})
	v, ok := finalFloat(r, "a")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
	v, ok = finalFloat(r, "b")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = finalFloat(r, "c")
	assert.False(t, ok)
	_, ok = finalFloat(nil, "a")
	assert.False(t, ok)
}
