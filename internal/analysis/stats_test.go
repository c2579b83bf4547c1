package analysis

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantileLinear(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, Quantile(s, 0))
	assert.Equal(t, 4.0, Quantile(s, 1))
	assert.InDelta(t, 2.5, Quantile(s, 0.5), 1e-12)
	assert.InDelta(t, 1.75, Quantile(s, 0.25), 1e-12)
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}

func TestMedianMAD(t *testing.T) {
	med, mad := MedianMAD([]float64{1, 1, 2, 2, 4, 6, 9})
	assert.Equal(t, 2.0, med)
	assert.Equal(t, 1.0, mad)
}

func TestGiniBoundsAndEquality(t *testing.T) {
	assert.Equal(t, 0.0, Gini([]float64{5, 5, 5, 5}))
	assert.Equal(t, 0.0, Gini([]float64{0, 0, 0}))
	assert.Equal(t, 0.0, Gini(nil))

	inputs := [][]float64{
		{0, 0, 0, 100},
		{1, 2, 3, 4, 5},
		{1000, 1, 1, 1, 1, 1},
		{0, 7},
	}
	for _, in := range inputs {
		g := Gini(in)
		assert.GreaterOrEqual(t, g, 0.0)
		assert.LessOrEqual(t, g, 1.0)
	}
	assert.InDelta(t, 0.75, Gini([]float64{0, 0, 0, 100}), 1e-12)
}

func TestHHI(t *testing.T) {
	assert.InDelta(t, 10000, HHI([]float64{42}), 1e-9)
	assert.InDelta(t, 2500, HHI([]float64{1, 1, 1, 1}), 1e-9)
	assert.Equal(t, 0.0, HHI([]float64{0, 0}))
}

func TestSafeDivAndFinite(t *testing.T) {
	assert.Equal(t, 0.0, SafeDiv(1, 0))
	assert.Equal(t, 2.0, SafeDiv(4, 2))
	assert.Equal(t, 0.0, Finite(math.NaN()))
	assert.Equal(t, 0.0, Finite(math.Inf(-1)))
	assert.Equal(t, 1.23, Round(1.2345, 2))
}

func TestMomentsGuardSmallSamples(t *testing.T) {
	assert.Equal(t, 0.0, Skewness([]float64{1, 2}))
	assert.Equal(t, 0.0, ExcessKurtosis([]float64{3, 3, 3, 3, 3}))
	assert.Greater(t, Skewness([]float64{1, 1, 1, 2, 10}), 0.0)
	assert.Equal(t, 0.0, SampleStdDev([]float64{4}))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestHistogram(t *testing.T) {
	counts, edges := Histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 10}, 5)
	require.Len(t, counts, 5)
	require.Len(t, edges, 6)
	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 0.0, edges[0])
	assert.Equal(t, 10.0, edges[5])

	counts, _ = Histogram([]float64{3, 3, 3}, 4)
	assert.Equal(t, 3, counts[0]+counts[1]+counts[2]+counts[3])
}

func TestPctChangeSkipsZeroBase(t *testing.T) {
	assert.Equal(t, []float64{-1, 1}, PctChange([]float64{5, 0, 0, 2, 4}))
	assert.Equal(t, []float64{1}, PctChange([]float64{0, 2, 4}))
}

func TestFitLine(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	fit, err := FitLine(x, []float64{1, 3, 5, 7})
	require.NoError(t, err)
	assert.InDelta(t, 1, fit.Intercept, 1e-9)
	assert.InDelta(t, 2, fit.Slope, 1e-9)
	assert.InDelta(t, 1, fit.R2, 1e-9)

	flat, err := FitLine(x, []float64{5, 5, 5, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0, flat.Slope, 1e-12)
	assert.Equal(t, 0.0, flat.R2)

	_, err = FitLine([]float64{1}, []float64{1})
	assert.True(t, errors.Is(err, ErrInsufficientSample))
}

func TestOLS(t *testing.T) {
	// y = 2 + 3a - b
	rows := [][2]float64{{1, 0}, {2, 1}, {3, 5}, {4, 2}, {5, 9}}
	var x, y []float64
	for _, r := range rows {
		x = append(x, 1, r[0], r[1])
		y = append(y, 2+3*r[0]-r[1])
	}
	beta, err := OLS(x, 3, y)
	require.NoError(t, err)
	assert.InDelta(t, 2, beta[0], 1e-8)
	assert.InDelta(t, 3, beta[1], 1e-8)
	assert.InDelta(t, -1, beta[2], 1e-8)

	_, err = OLS([]float64{1, 2}, 2, []float64{1})
	assert.True(t, errors.Is(err, ErrInsufficientSample))
}
