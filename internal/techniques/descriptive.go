package techniques

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

var univariateMeta = analysis.Meta{
	Technique:   "Univariate Statistical Analysis",
	Description: "Central tendency, dispersion and shape of per-record enrolment volumes.",
	Formula:     "μ = Σx/N | s = √(Σ(x−μ)²/(N−1)) | skew = G1 adjusted Fisher–Pearson",
}

// Univariate summarizes the distribution of row-level enrolment totals.
func Univariate(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	values := t.Values()
	if len(values) < 2 {
		return analysis.Insufficient(univariateMeta, "fewer than 2 records", 2, len(values)), nil
	}

	sorted := analysis.Sorted(values)
	mean := analysis.Mean(values)
	median := analysis.Quantile(sorted, 0.5)
	sd := analysis.SampleStdDev(values)
	skew := analysis.Skewness(values)
	kurt := analysis.ExcessKurtosis(values)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	q1, q3 := analysis.Quantile(sorted, 0.25), analysis.Quantile(sorted, 0.75)

	label, insight := "Symmetrical (Normal-like)", "Volumes are roughly symmetric around the mean."
	switch {
	case math.Abs(skew) < 0.5:
	case skew > 0:
		label, insight = "Right-Skewed (Positive)", "A long tail of high-volume records; outliers are likely."
	default:
		label, insight = "Left-Skewed (Negative)", "A long tail of low-volume records."
	}

	var steps analysis.Steps
	steps.Add("Calculate Central Tendency", "Compute mean and median",
		fmt.Sprintf("N=%s", analysis.Count(float64(len(values)))),
		fmt.Sprintf("Mean=%s, Median=%s", analysis.Num(mean, 1), analysis.Num(median, 1)))
	steps.Add("Calculate Dispersion", "Compute sample standard deviation, range and IQR",
		"Enrolment values",
		fmt.Sprintf("Std Dev=%s, Range=[%s, %s], IQR=%s", analysis.Num(sd, 1), analysis.Count(lo), analysis.Count(hi), analysis.Num(q3-q1, 1)))
	steps.Add("Analyze Distribution Shape", "Compute skewness and excess kurtosis",
		"Distribution moments",
		fmt.Sprintf("Skew=%.2f, Kurtosis=%.2f", skew, kurt))

	counts, edges := analysis.Histogram(values, 20)
	return analysis.NewResult(analysis.Parts{
		Meta:  univariateMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"sum":      analysis.Sum(values),
			"count":    len(values),
			"variance": analysis.Round(sd*sd, 2),
			"q1":       analysis.Round(q1, 2),
			"q3":       analysis.Round(q3, 2),
		},
		Final: map[string]any{
			"mean":     analysis.Round(mean, 2),
			"median":   analysis.Round(median, 2),
			"std_dev":  analysis.Round(sd, 2),
			"min":      lo,
			"max":      hi,
			"skewness": analysis.Round(skew, 4),
			"kurtosis": analysis.Round(kurt, 4),
		},
		Risk:     analysis.RiskInfo,
		Decision: label,
		Insight:  insight,
		Visualization: map[string]any{
			"histogram": map[string]any{
				"values":    counts,
				"bin_edges": roundAll(edges, 0),
			},
			"box_plot": map[string]any{
				"min": lo, "q1": analysis.Round(q1, 2), "median": analysis.Round(median, 2),
				"q3": analysis.Round(q3, 2), "max": hi,
			},
		},
	}), nil
}

var timeseriesMeta = analysis.Meta{
	Technique:   "Time Series Decomposition (Additive)",
	Description: "Splits daily enrolments into trend, weekly seasonality and residual noise.",
	Formula:     "Y(t) = Trend(t) + Seasonality(t) + Residual(t)",
}

const trendWindow = 30

// Timeseries decomposes daily totals additively.
func Timeseries(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	daily := dataset.Daily(t)
	if len(daily) < trendWindow {
		return analysis.Insufficient(timeseriesMeta, "fewer daily observations than the trend window", trendWindow, len(daily)), nil
	}
	obs := dataset.Totals(daily)
	n := len(obs)

	// Centered moving average; for an even window position i covers
	// [i−w/2, i+w/2−1]. Edges without a full window are undefined.
	trend := make([]float64, n)
	defined := make([]bool, n)
	half := trendWindow / 2
	for i := half; i+half <= n; i++ {
		trend[i] = analysis.Mean(obs[i-half : i+half])
		defined[i] = true
	}

	overall := analysis.Mean(obs)
	var dowSum, dowN [7]float64
	for i, g := range daily {
		d := mondayIndex(g.Date)
		dowSum[d] += obs[i]
		dowN[d]++
	}
	var dowMean [7]float64
	strongest := 0
	for d := 0; d < 7; d++ {
		dowMean[d] = analysis.SafeDiv(dowSum[d], dowN[d])
		if dowN[d] > 0 && dowMean[d] > dowMean[strongest] {
			strongest = d
		}
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	var resid []float64
	first, last := -1, -1
	for i, g := range daily {
		seasonal[i] = dowMean[mondayIndex(g.Date)] - overall
		if defined[i] {
			residual[i] = obs[i] - trend[i] - seasonal[i]
			resid = append(resid, residual[i])
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	sMin, sMax := seasonal[0], seasonal[0]
	for _, v := range seasonal {
		sMin = math.Min(sMin, v)
		sMax = math.Max(sMax, v)
	}
	noise := analysis.SampleStdDev(resid)
	direction := "Flat"
	switch {
	case trend[last] > trend[first]:
		direction = "Rising"
	case trend[last] < trend[first]:
		direction = "Falling"
	}
	var trendVals []float64
	for i := range trend {
		if defined[i] {
			trendVals = append(trendVals, trend[i])
		}
	}

	var steps analysis.Steps
	steps.Add("Calculate Trend Component",
		fmt.Sprintf("Apply a %d-day centered moving average", trendWindow),
		fmt.Sprintf("%d daily totals", n),
		fmt.Sprintf("%d trend points defined", len(trendVals)))
	steps.Add("Extract Seasonality", "Average deviation of each weekday from the overall mean",
		"Daily totals by weekday",
		fmt.Sprintf("Amplitude=%s, peak day=%s", analysis.Num(sMax-sMin, 1), weekdayNames[strongest]))
	steps.Add("Compute Residuals", "Subtract trend and seasonality from observed values",
		"Y − T − S",
		fmt.Sprintf("Residual noise (Std Dev: %s)", analysis.Num(noise, 0)))

	return analysis.NewResult(analysis.Parts{
		Meta:  timeseriesMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"trend_mean":            analysis.Round(analysis.Mean(trendVals), 2),
			"seasonality_amplitude": analysis.Round(sMax-sMin, 2),
			"residual_noise":        analysis.Round(noise, 2),
			"window":                trendWindow,
		},
		Final: map[string]any{
			"trend_direction":           direction,
			"strongest_seasonality_day": strongest,
			"strongest_day_name":        weekdayNames[strongest],
			"days_observed":             n,
		},
		Risk:     analysis.RiskInfo,
		Decision: fmt.Sprintf("%s trend, weekly peak on %s", direction, weekdayNames[strongest]),
		Insight:  "Weekly seasonality is measured as each weekday's mean deviation from the overall mean.",
		Visualization: map[string]any{
			"dates":       dataset.Keys(daily),
			"observed":    obs,
			"trend":       roundAll(trend, 2),
			"seasonality": roundAll(seasonal, 2),
			"residuals":   roundAll(residual, 2),
		},
	}), nil
}

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// mondayIndex maps a date to 0=Monday … 6=Sunday.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

var profileMeta = analysis.Meta{
	Technique:   "Raw Data Profile",
	Description: "Baseline row, column, completeness and coverage counts for each source table.",
	Formula:     "completeness = 1 − defaulted cells / expected cells",
}

// Profile reports raw statistics of every table that loads. It needs at
// least the enrolment table.
func Profile(ctx context.Context, env Env) (*analysis.Result, error) {
	enr, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	tables := map[dataset.Kind]*dataset.Table{dataset.Enrolment: enr}
	for _, k := range []dataset.Kind{dataset.Demographic, dataset.Biometric} {
		if t, err := load(ctx, env, k); err == nil {
			tables[k] = t
		}
	}

	var steps analysis.Steps
	perTable := map[string]any{}
	var labels []string
	var rows, totals []float64
	for _, k := range dataset.Kinds() {
		t, ok := tables[k]
		if !ok {
			continue
		}
		st := t.Stats()
		completeness := 100 * (1 - analysis.SafeDiv(float64(st.DefaultedCells), float64(st.Cells)))
		perTable[string(k)] = map[string]any{
			"rows":            st.Rows,
			"columns":         st.Columns,
			"files":           len(st.Files),
			"defaulted_cells": st.DefaultedCells,
			"dropped_rows":    st.DroppedRows,
			"completeness":    analysis.Round(completeness, 2),
			"first_date":      st.First.Format("2006-01-02"),
			"last_date":       st.Last.Format("2006-01-02"),
			"states":          st.States,
			"districts":       st.Districts,
			"total":           t.GrandTotal(),
		}
		steps.Add(fmt.Sprintf("Profile %s", k), "Count rows, defaults and coverage",
			fmt.Sprintf("%d files", len(st.Files)),
			fmt.Sprintf("%s rows, %d states, %d districts, %s complete",
				analysis.Count(float64(st.Rows)), st.States, st.Districts, analysis.Pct(completeness)))
		labels = append(labels, string(k))
		rows = append(rows, float64(st.Rows))
		totals = append(totals, t.GrandTotal())
	}

	est := enr.Stats()
	return analysis.NewResult(analysis.Parts{
		Meta:         profileMeta,
		Steps:        steps,
		Intermediate: perTable,
		Final: map[string]any{
			"tables_loaded":    len(tables),
			"total_records":    analysis.Sum(rows),
			"total_enrolments": enr.GrandTotal(),
			"states":           est.States,
			"districts":        est.Districts,
			"period_days":      int(est.Last.Sub(est.First).Hours()/24) + 1,
		},
		Risk:     analysis.RiskInfo,
		Decision: fmt.Sprintf("%d of 3 tables loaded", len(tables)),
		Visualization: map[string]any{
			"labels": labels,
			"values": rows,
			"totals": totals,
		},
	}), nil
}
