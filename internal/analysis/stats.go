package analysis

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Finite replaces NaN and ±Inf with 0.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SafeDiv returns num/den, or 0 when den is zero or the quotient is not finite.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Finite(num / den)
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	v = Finite(v)
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Sum of xs.
func Sum(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Sum(xs)
}

// Mean of xs, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev is the population standard deviation (ddof=0).
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	_, sd := stat.PopMeanStdDev(xs, nil)
	return Finite(sd)
}

// SampleStdDev is the ddof=1 standard deviation, 0 below two observations.
func SampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return Finite(stat.StdDev(xs, nil))
}

// Sorted returns an ascending copy of xs.
func Sorted(xs []float64) []float64 {
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)
	return cp
}

// Quantile uses linear interpolation between closest ranks on an ascending
// slice (the numpy default).
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median of xs (unsorted input).
func Median(xs []float64) float64 {
	return Quantile(Sorted(xs), 0.5)
}

// MedianMAD returns the median and the median absolute deviation.
func MedianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := Sorted(vals)
	median = Quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = Quantile(dev, 0.5)
	return
}

// Skewness is the bias-adjusted sample skewness. Below three observations or
// with zero spread it is 0.
func Skewness(xs []float64) float64 {
	if len(xs) < 3 || SampleStdDev(xs) == 0 {
		return 0
	}
	return Finite(stat.Skew(xs, nil))
}

// ExcessKurtosis is the bias-adjusted sample excess kurtosis, 0 below four
// observations or with zero spread.
func ExcessKurtosis(xs []float64) float64 {
	if len(xs) < 4 || SampleStdDev(xs) == 0 {
		return 0
	}
	return Finite(stat.ExKurtosis(xs, nil))
}

// ZScores standardizes xs against the given mean and spread. A zero spread
// yields all zeros.
func ZScores(xs []float64, mean, sd float64) []float64 {
	out := make([]float64, len(xs))
	if sd == 0 {
		return out
	}
	for i, v := range xs {
		out[i] = (v - mean) / sd
	}
	return out
}

// Gini coefficient of a non-negative vector, clamped to [0, 1].
// G = (2·Σ i·x_(i)) / (n·Σx) − (n+1)/n with x sorted ascending and i from 1.
func Gini(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := Sorted(xs)
	total := 0.0
	weighted := 0.0
	for i, v := range sorted {
		if v < 0 {
			v = 0
		}
		total += v
		weighted += float64(i+1) * v
	}
	if total == 0 {
		return 0
	}
	g := (2*weighted)/(float64(n)*total) - float64(n+1)/float64(n)
	return math.Max(0, math.Min(1, Finite(g)))
}

// HHI is the Herfindahl–Hirschman index on percentage shares (0..10000).
func HHI(xs []float64) float64 {
	total := Sum(xs)
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, v := range xs {
		s := v / total * 100
		h += s * s
	}
	return h
}

// Histogram bins xs into n equal-width bins between min and max, the last
// bin closed on the right. It returns counts and the n+1 edges.
func Histogram(xs []float64, n int) (counts []int, edges []float64) {
	if len(xs) == 0 || n <= 0 {
		return []int{}, []float64{}
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	edges = make([]float64, n+1)
	floats.Span(edges, lo, hi)
	counts = make([]int, n)
	width := (hi - lo) / float64(n)
	for _, v := range xs {
		idx := int((v - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return counts, edges
}

// PctChange returns successive relative changes (x[i]-x[i-1])/x[i-1],
// skipping steps whose base is zero.
func PctChange(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for i := 1; i < len(xs); i++ {
		if xs[i-1] == 0 {
			continue
		}
		out = append(out, (xs[i]-xs[i-1])/xs[i-1])
	}
	return out
}

// LinearFit is an ordinary least-squares line y = Intercept + Slope·x.
type LinearFit struct {
	Intercept float64
	Slope     float64
	R2        float64
}

// Predict evaluates the line at x.
func (f LinearFit) Predict(x float64) float64 { return f.Intercept + f.Slope*x }

// FitLine fits y on x. R² is 0 when y has no variance.
func FitLine(x, y []float64) (LinearFit, error) {
	if len(x) != len(y) || len(x) < 2 {
		return LinearFit{}, errors.Mark(errors.Newf("line fit needs two aligned points, have %d", len(x)), ErrInsufficientSample)
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	fit := LinearFit{Intercept: Finite(alpha), Slope: Finite(beta)}
	mean := Mean(y)
	ssTot, ssRes := 0.0, 0.0
	for i := range y {
		d := y[i] - mean
		ssTot += d * d
		r := y[i] - fit.Predict(x[i])
		ssRes += r * r
	}
	if ssTot > 0 {
		fit.R2 = Finite(1 - ssRes/ssTot)
	}
	return fit, nil
}

// OLS solves y = Xβ by least squares. X is row-major with cols columns and
// must already contain an intercept column if one is wanted.
func OLS(x []float64, cols int, y []float64) ([]float64, error) {
	rows := len(y)
	if cols <= 0 || rows*cols != len(x) {
		return nil, errors.Mark(errors.Newf("design matrix shape %dx%d does not match %d values", rows, cols, len(x)), ErrInvalidParameter)
	}
	if rows < cols {
		return nil, errors.Mark(errors.Newf("%d observations for %d coefficients", rows, cols), ErrInsufficientSample)
	}
	design := mat.NewDense(rows, cols, append([]float64(nil), x...))
	target := mat.NewVecDense(rows, append([]float64(nil), y...))
	var beta mat.VecDense
	if err := beta.SolveVec(design, target); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "solve least squares"), ErrArithmeticDegenerate)
	}
	out := make([]float64, cols)
	for i := range out {
		out[i] = beta.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, errors.Mark(errors.New("least squares produced non-finite coefficients"), ErrArithmeticDegenerate)
		}
	}
	return out, nil
}
