package techniques

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

var forecastMeta = analysis.Meta{
	Technique:   "Time Series Forecasting",
	Description: "Linear monthly trend plus calendar-month seasonality, projected six months ahead with a 95% band.",
	Formula:     "Y = α + βt + S(month) | forecast(t+h) = max(0, α + β(t+h) + S) | CI = ±1.96·σ(residual)",
}

const (
	forecastHorizon   = 6
	seasonalMinMonths = 12
)

type forecastPoint struct {
	Month     string  `json:"month" yaml:"month"`
	Predicted float64 `json:"predicted" yaml:"predicted"`
	Lower     float64 `json:"ci_lower" yaml:"ci_lower"`
	Upper     float64 `json:"ci_upper" yaml:"ci_upper"`
}

// Forecast projects monthly enrolment.
func Forecast(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	monthly := dataset.Monthly(t)
	if len(monthly) < 2 {
		return analysis.Insufficient(forecastMeta, "fewer than 2 months", 2, len(monthly)), nil
	}
	y := dataset.Totals(monthly)
	n := len(y)
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	fit, err := analysis.FitLine(x, y)
	if err != nil {
		return nil, err
	}
	trend := make([]float64, n)
	residuals := make([]float64, n)
	for i := range y {
		trend[i] = fit.Predict(x[i])
		residuals[i] = y[i] - trend[i]
	}

	// Seasonal factor per calendar month, zero below a full year.
	var seasonal [12]float64
	seasonalApplied := n >= seasonalMinMonths
	if seasonalApplied {
		var sum, cnt [12]float64
		for i, g := range monthly {
			m := int(g.Date.Month()) - 1
			sum[m] += residuals[i]
			cnt[m]++
		}
		for m := range seasonal {
			seasonal[m] = analysis.SafeDiv(sum[m], cnt[m])
		}
	}
	sigma := analysis.StdDev(residuals)
	band := 1.96 * sigma

	last := monthly[n-1].Date
	points := make([]forecastPoint, forecastHorizon)
	months := make([]string, forecastHorizon)
	values := make([]float64, forecastHorizon)
	lower := make([]float64, forecastHorizon)
	upper := make([]float64, forecastHorizon)
	for h := 0; h < forecastHorizon; h++ {
		date := last.AddDate(0, h+1, 0)
		v := fit.Predict(float64(n+h)) + seasonal[int(date.Month())-1]
		v = math.Max(0, v)
		months[h] = dataset.MonthKey(date)
		values[h] = math.Round(v)
		lower[h] = math.Round(math.Max(0, v-band))
		upper[h] = math.Round(v + band)
		points[h] = forecastPoint{Month: months[h], Predicted: values[h], Lower: lower[h], Upper: upper[h]}
	}

	recent := y
	if len(recent) > forecastHorizon {
		recent = recent[len(recent)-forecastHorizon:]
	}
	growth := (analysis.SafeDiv(analysis.Mean(values), analysis.Mean(recent)) - 1) * 100
	if analysis.Mean(recent) == 0 {
		growth = 0
	}

	mean := analysis.Mean(y)
	direction := "increasing"
	if fit.Slope < 0 {
		direction = "decreasing"
	} else if fit.Slope == 0 {
		direction = "flat"
	}
	risk := analysis.RiskLow
	decision := "Reliable trend model for forecasting"
	switch {
	case fit.Slope < 0 && math.Abs(fit.Slope) > env.Cal.ForecastDecline*mean:
		risk = analysis.RiskHigh
		decision = "Significant declining trend, investigate root causes"
	case fit.R2 < env.Cal.ForecastR2:
		risk = analysis.RiskMedium
		decision = "Low model fit, forecast reliability limited"
	}

	ssTot, ssRes := 0.0, 0.0
	for i := range y {
		ssTot += (y[i] - mean) * (y[i] - mean)
		ssRes += residuals[i] * residuals[i]
	}
	seasonalOut := "No seasonal adjustment (fewer than 12 months)"
	if seasonalApplied {
		seasonalOut = "Seasonal factors for 12 calendar months"
	}
	var steps analysis.Steps
	steps.Add("Aggregate Monthly", "Sum enrolments per calendar month",
		fmt.Sprintf("%s daily records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d months of data", n))
	steps.Add("Fit Linear Trend", "Ordinary least squares on the month index",
		fmt.Sprintf("t = 0 to %d", n-1),
		fmt.Sprintf("α = %s, β = %s", analysis.Num(fit.Intercept, 0), analysis.Num(fit.Slope, 2)))
	steps.Add("Extract Seasonality", "Mean detrended residual per calendar month",
		"Detrended residuals", seasonalOut)
	steps.Add("Model Fit", "Coefficient of determination",
		fmt.Sprintf("SS_res = %s, SS_tot = %s", analysis.Num(ssRes, 0), analysis.Num(ssTot, 0)),
		fmt.Sprintf("R² = %.4f", fit.R2))
	steps.Add("Project Forward", "Trend plus seasonal factor, floored at zero",
		fmt.Sprintf("Months %d to %d", n, n+forecastHorizon-1),
		fmt.Sprintf("Forecasted %d months", forecastHorizon))
	steps.Add("Confidence Interval", "±1.96 standard deviations of the residuals",
		fmt.Sprintf("σ_residual = %s", analysis.Num(sigma, 0)),
		fmt.Sprintf("±%s", analysis.Num(band, 0)))

	return analysis.NewResult(analysis.Parts{
		Meta:  forecastMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"trend_intercept":  analysis.Round(fit.Intercept, 2),
			"trend_slope":      analysis.Round(fit.Slope, 2),
			"trend_direction":  direction,
			"seasonal_factors": roundAll(seasonal[:], 2),
			"seasonal_applied": seasonalApplied,
			"residual_std":     analysis.Round(sigma, 2),
		},
		Final: map[string]any{
			"r_squared":           analysis.Round(fit.R2, 4),
			"months_analyzed":     n,
			"forecast_total":      analysis.Sum(values),
			"forecast_avg":        analysis.Round(analysis.Mean(values), 0),
			"growth_rate_percent": analysis.Round(growth, 2),
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"historical": map[string]any{
				"months": dataset.Keys(monthly),
				"values": y,
				"trend":  roundAll(trend, 0),
			},
			"forecast": map[string]any{
				"months":   months,
				"values":   values,
				"ci_lower": lower,
				"ci_upper": upper,
			},
		},
		Findings: map[string]any{"forecast": points},
	}), nil
}

var regressionMeta = analysis.Meta{
	Technique:   "Multi-Variable Regression Analysis",
	Description: "State totals explained by age-band volumes with ordinary least squares.",
	Formula:     "y = β₀ + Σ βᵢxᵢ + ε | R² = 1 − SS_res/SS_tot | adj R² = 1 − (1 − R²)(n − 1)/(n − p − 1)",
}

// Regression fits state totals on the enrolment age bands.
func Regression(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	features := t.Schema().Measures
	p := len(features)
	states := dataset.By(t, dataset.StateKey)
	n := len(states)
	if n < p+2 {
		return analysis.Insufficient(regressionMeta, "fewer states than coefficients plus one", p+2, n), nil
	}

	design := make([]float64, 0, n*(p+1))
	y := make([]float64, n)
	cols := make([][]float64, p)
	for i, g := range states {
		design = append(design, 1)
		for j := 0; j < p; j++ {
			design = append(design, g.Measures[j])
			cols[j] = append(cols[j], g.Measures[j])
		}
		y[i] = g.Total
	}
	beta, err := analysis.OLS(design, p+1, y)
	if errors.Is(err, analysis.ErrArithmeticDegenerate) {
		return analysis.Insufficient(regressionMeta, "age-band features are collinear", p+2, 0), nil
	}
	if err != nil {
		return nil, err
	}

	pred := make([]float64, n)
	resid := make([]float64, n)
	mean := analysis.Mean(y)
	ssTot, ssRes := 0.0, 0.0
	for i := range y {
		v := beta[0]
		for j := 0; j < p; j++ {
			v += beta[j+1] * cols[j][i]
		}
		pred[i] = v
		resid[i] = y[i] - v
		ssTot += (y[i] - mean) * (y[i] - mean)
		ssRes += resid[i] * resid[i]
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = analysis.Finite(1 - ssRes/ssTot)
	}
	adj := 1 - (1-r2)*float64(n-1)/float64(n-p-1)

	// |β·σ(x)| equals the slope on a z-scored feature.
	coefficients := map[string]float64{}
	importance := map[string]float64{}
	raw := make([]float64, p)
	for j, f := range features {
		coefficients[f] = analysis.Round(beta[j+1], 4)
		raw[j] = math.Abs(beta[j+1] * analysis.StdDev(cols[j]))
	}
	totalImp := analysis.Sum(raw)
	impVals := make([]float64, p)
	for j, f := range features {
		impVals[j] = analysis.Round(analysis.SafeDiv(raw[j], totalImp)*100, 2)
		importance[f] = impVals[j]
	}

	rMean, rSD := analysis.Mean(resid), analysis.StdDev(resid)
	var outliers []string
	if rSD > 0 {
		for i, z := range analysis.ZScores(resid, rMean, rSD) {
			if math.Abs(z) > 2 {
				outliers = append(outliers, states[i].Key)
			}
		}
	}
	sorted := analysis.Sorted(resid)

	risk, decision := regressionRisk(r2, env.Cal)

	var steps analysis.Steps
	steps.Add("Prepare Design Matrix", "Intercept column plus one column per age band",
		fmt.Sprintf("Features: %v", features),
		fmt.Sprintf("Matrix shape: %d states × %d features", n, p))
	steps.Add("Fit Model", "Solve the least-squares system",
		"X (features) and y (total enrolments)",
		fmt.Sprintf("Intercept: %s", analysis.Num(beta[0], 2)))
	steps.Add("Coefficients", "Marginal effect of each age band",
		"Model parameters", analysis.KV(coefficients, 4))
	steps.Add("Goodness of Fit", "R² and adjusted R²",
		fmt.Sprintf("SS_res = %s, SS_tot = %s", analysis.Num(ssRes, 0), analysis.Num(ssTot, 0)),
		fmt.Sprintf("R² = %.4f, Adj R² = %.4f", r2, adj))
	steps.Add("Feature Importance", "Standardized coefficient magnitudes normalized to 100%",
		"Standardized features", analysis.KV(importance, 2))
	steps.Add("Residual Analysis", "States with |residual z| > 2",
		"Predicted vs actual values", fmt.Sprintf("Outlier states: %d", len(outliers)))

	limit := n
	if limit > 20 {
		limit = 20
	}
	shownOutliers := outliers
	if len(shownOutliers) > 5 {
		shownOutliers = shownOutliers[:5]
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  regressionMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"sample_size":  n,
			"num_features": p,
			"intercept":    analysis.Round(beta[0], 2),
			"coefficients": coefficients,
			"residual_stats": map[string]float64{
				"mean":         analysis.Round(rMean, 2),
				"std":          analysis.Round(rSD, 2),
				"max_positive": analysis.Round(sorted[n-1], 2),
				"max_negative": analysis.Round(sorted[0], 2),
			},
		},
		Final: map[string]any{
			"r_squared":              analysis.Round(r2, 4),
			"adjusted_r_squared":     analysis.Round(adj, 4),
			"feature_importance_pct": importance,
			"outlier_states":         len(outliers),
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels": features,
			"values": impVals,
			"actual_vs_predicted": map[string]any{
				"states":    dataset.Keys(states[:limit]),
				"actual":    y[:limit],
				"predicted": roundAll(pred[:limit], 0),
			},
		},
		Findings: map[string]any{"outlier_states": shownOutliers},
	}), nil
}

var scenarioMeta = analysis.Meta{
	Technique:   "Scenario Planning",
	Description: "Twelve-month compound projections under pessimistic, baseline, optimistic and aggressive growth.",
	Formula:     "projected(t) = current × (1 + rate)^t | rates: μ − σ, μ, μ + σ, μ + 2σ",
}

const scenarioMonths = 12

type scenario struct {
	Name               string    `json:"name" yaml:"name"`
	GrowthRate         float64   `json:"growth_rate" yaml:"growth_rate"`
	Projections        []float64 `json:"projections" yaml:"projections"`
	TotalProjected     float64   `json:"total_projected" yaml:"total_projected"`
	ChangeFromBaseline float64   `json:"change_from_baseline" yaml:"change_from_baseline"`
}

// Scenarios projects monthly volume under four growth assumptions.
func Scenarios(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	monthly := dataset.Monthly(t)
	if len(monthly) < 2 {
		return analysis.Insufficient(scenarioMeta, "fewer than 2 months", 2, len(monthly)), nil
	}
	y := dataset.Totals(monthly)
	tail := y
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	current := analysis.Mean(tail)
	rates := analysis.PctChange(y)
	if len(rates) == 0 {
		return analysis.Insufficient(scenarioMeta, "no month-over-month change from a non-zero month", 1, 0), nil
	}
	mu := analysis.Mean(rates)
	sigma := analysis.SampleStdDev(rates)

	defs := []struct {
		name string
		rate float64
	}{
		{"pessimistic", mu - sigma},
		{"baseline", mu},
		{"optimistic", mu + sigma},
		{"aggressive", mu + 2*sigma},
	}
	scenarios := make([]scenario, len(defs))
	byName := map[string]*scenario{}
	for i, d := range defs {
		s := scenario{Name: d.name, GrowthRate: analysis.Round(d.rate*100, 2), Projections: make([]float64, scenarioMonths)}
		v := current
		for m := 0; m < scenarioMonths; m++ {
			v *= 1 + d.rate
			s.Projections[m] = math.Max(0, math.Floor(v))
		}
		s.TotalProjected = analysis.Sum(s.Projections)
		s.ChangeFromBaseline = analysis.Round((analysis.SafeDiv(s.TotalProjected, current*scenarioMonths)-1)*100, 2)
		scenarios[i] = s
		byName[d.name] = &scenarios[i]
	}
	baseTotal := byName["baseline"].TotalProjected
	variance := map[string]float64{}
	for _, s := range scenarios {
		variance[s.Name] = analysis.Round(analysis.SafeDiv(s.TotalProjected-baseTotal, baseTotal)*100, 2)
	}

	risk := analysis.RiskLow
	decision := "Stable growth pattern, scenarios converge"
	switch {
	case sigma > env.Cal.ScenarioVolatility.High*math.Abs(mu):
		risk = analysis.RiskHigh
		decision = "High volatility, wide range between scenarios"
	case sigma > env.Cal.ScenarioVolatility.Medium*math.Abs(mu):
		risk = analysis.RiskMedium
		decision = "Moderate uncertainty in projections"
	}

	changes := map[string]float64{}
	for _, s := range scenarios {
		changes[s.Name] = s.ChangeFromBaseline
	}
	var steps analysis.Steps
	steps.Add("Establish Baseline", "Mean of the last 3 months",
		"Last 3 months data", fmt.Sprintf("Baseline: %s/month", analysis.Num(current, 0)))
	steps.Add("Historical Growth", "Mean and sample deviation of month-over-month growth",
		fmt.Sprintf("%d months of data", len(y)),
		fmt.Sprintf("Avg growth: %.2f%%, Std: %.2f%%", mu*100, sigma*100))
	steps.Add("Define Scenarios", "μ − σ, μ, μ + σ and μ + 2σ",
		"Historical statistics", fmt.Sprintf("%d scenarios defined", len(scenarios)))
	steps.Add("Project Scenarios", fmt.Sprintf("Compound monthly for %d months", scenarioMonths),
		fmt.Sprintf("Base: %s", analysis.Num(current, 0)), analysis.KV(changes, 1))
	steps.Add("Compare to Baseline", "Relative difference of each 12-month total",
		fmt.Sprintf("Baseline total: %s", analysis.Count(baseTotal)), analysis.KV(variance, 2))

	monthIdx := make([]string, scenarioMonths)
	for m := range monthIdx {
		monthIdx[m] = fmt.Sprintf("M+%d", m+1)
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  scenarioMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"current_monthly_avg":   analysis.Round(current, 2),
			"historical_avg_growth": analysis.Round(mu*100, 2),
			"growth_std_dev":        analysis.Round(sigma*100, 2),
			"growth_observations":   len(rates),
			"months_ahead":          scenarioMonths,
		},
		Final: map[string]any{
			"baseline_12month_total":    baseTotal,
			"optimistic_12month_total":  byName["optimistic"].TotalProjected,
			"pessimistic_12month_total": byName["pessimistic"].TotalProjected,
			"scenario_variance_percent": variance,
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels":      monthIdx,
			"pessimistic": byName["pessimistic"].Projections,
			"baseline":    byName["baseline"].Projections,
			"optimistic":  byName["optimistic"].Projections,
			"aggressive":  byName["aggressive"].Projections,
		},
		Findings: map[string]any{"scenarios": scenarios},
	}), nil
}

var survivalMeta = analysis.Meta{
	Technique:   "Survival Analysis",
	Description: "Kaplan–Meier curve of days from a state's first activity to its first demographic update.",
	Formula:     "S(t) = Π_{tᵢ ≤ t} (1 − dᵢ/nᵢ) | median = min t with S(t) ≤ 0.5",
}

// Subject is one observed duration; Event is false for a censored subject.
type Subject struct {
	Duration float64
	Event    bool
}

// KMPoint is one step of a Kaplan–Meier curve.
type KMPoint struct {
	Time     float64 `json:"time" yaml:"time"`
	AtRisk   int     `json:"at_risk" yaml:"at_risk"`
	Events   int     `json:"events" yaml:"events"`
	Survival float64 `json:"survival" yaml:"survival"`
}

// KaplanMeier estimates the survival curve. The first point is always
// (0, 1) with nobody removed yet.
func KaplanMeier(subjects []Subject) []KMPoint {
	curve := []KMPoint{{Time: 0, AtRisk: len(subjects), Survival: 1}}
	times := make([]float64, 0, len(subjects))
	seen := map[float64]bool{}
	for _, s := range subjects {
		if !seen[s.Duration] {
			seen[s.Duration] = true
			times = append(times, s.Duration)
		}
	}
	sort.Float64s(times)
	surv := 1.0
	for _, tm := range times {
		atRisk, events := 0, 0
		for _, s := range subjects {
			if s.Duration >= tm {
				atRisk++
				if s.Event && s.Duration == tm {
					events++
				}
			}
		}
		if events == 0 {
			continue
		}
		surv *= 1 - float64(events)/float64(atRisk)
		curve = append(curve, KMPoint{Time: tm, AtRisk: atRisk, Events: events, Survival: surv})
	}
	return curve
}

// medianSurvival returns the first time S(t) ≤ 0.5, or the last observed
// time with reached=false.
func medianSurvival(curve []KMPoint, maxTime float64) (median float64, reached bool) {
	for _, p := range curve {
		if p.Survival <= 0.5 {
			return p.Time, true
		}
	}
	return maxTime, false
}

func days(d time.Duration) float64 { return math.Round(d.Hours() / 24) }

// Survival measures how long states take to see their first update.
func Survival(ctx context.Context, env Env) (*analysis.Result, error) {
	enr, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	demo, err := load(ctx, env, dataset.Demographic)
	if err != nil {
		return nil, err
	}
	type window struct{ first, last, update time.Time }
	states := map[string]*window{}
	touch := func(r dataset.Record) *window {
		w, ok := states[r.State]
		if !ok {
			w = &window{first: r.Date, last: r.Date}
			states[r.State] = w
		}
		if r.Date.Before(w.first) {
			w.first = r.Date
		}
		if r.Date.After(w.last) {
			w.last = r.Date
		}
		return w
	}
	enr.Each(func(r dataset.Record) { touch(r) })
	demo.Each(func(r dataset.Record) {
		w := touch(r)
		if w.update.IsZero() || r.Date.Before(w.update) {
			w.update = r.Date
		}
	})
	if len(states) == 0 {
		return analysis.Insufficient(survivalMeta, "no states observed", 1, 0), nil
	}

	names := make([]string, 0, len(states))
	for s := range states {
		names = append(names, s)
	}
	sort.Strings(names)
	subjects := make([]Subject, 0, len(names))
	var eventDurations []float64
	maxTime := 0.0
	censored := 0
	for _, s := range names {
		w := states[s]
		sub := Subject{Duration: days(w.last.Sub(w.first))}
		if !w.update.IsZero() {
			sub = Subject{Duration: days(w.update.Sub(w.first)), Event: true}
			eventDurations = append(eventDurations, sub.Duration)
		} else {
			censored++
		}
		maxTime = math.Max(maxTime, sub.Duration)
		subjects = append(subjects, sub)
	}
	curve := KaplanMeier(subjects)
	median, reached := medianSurvival(curve, maxTime)
	final := curve[len(curve)-1].Survival

	risk, _ := analysis.AssessRisk(median, env.Cal.SurvivalMedianDays, analysis.HigherIsWorse)
	decision := "Quick update adoption, healthy engagement pattern"
	switch risk {
	case analysis.RiskHigh:
		decision = "Long time to updates, citizen engagement may be low"
	case analysis.RiskMedium:
		decision = "Moderate update cycle, consider awareness campaigns"
	}

	times := make([]float64, len(curve))
	surv := make([]float64, len(curve))
	atRisk := make([]int, len(curve))
	events := 0
	for i, p := range curve {
		times[i], surv[i], atRisk[i] = p.Time, analysis.Round(p.Survival, 4), p.AtRisk
		events += p.Events
	}
	medianOut := fmt.Sprintf("Median = %.0f days", median)
	if !reached {
		medianOut = fmt.Sprintf("S(t) stays above 0.5, median > %.0f days", median)
	}

	var steps analysis.Steps
	steps.Add("Build Durations", "Days from a state's first activity to its first demographic update",
		"Enrolment and demographic update data",
		fmt.Sprintf("%d states, %d censored", len(subjects), censored))
	steps.Add("Event Times", "Distinct durations with at least one update",
		"Duration values", fmt.Sprintf("%d event time points", len(curve)-1))
	steps.Add("Kaplan–Meier Product", "Multiply (1 − events/at-risk) at each event time",
		"Hazard at each time", fmt.Sprintf("Final S(t) = %.3f", final))
	steps.Add("Median Survival", "First time the curve reaches 0.5",
		"Survival curve", medianOut)
	steps.Add("Duration Statistics", "Mean and deviation of observed event durations",
		"Event durations",
		fmt.Sprintf("Mean = %.1f days, SD = %.1f days", analysis.Mean(eventDurations), analysis.StdDev(eventDurations)))

	return analysis.NewResult(analysis.Parts{
		Meta:  survivalMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"states_analyzed": len(subjects),
			"time_points":     len(curve),
			"events_observed": events,
			"censored":        censored,
		},
		Final: map[string]any{
			"median_survival_days":  median,
			"median_reached":        reached,
			"mean_duration_days":    analysis.Round(analysis.Mean(eventDurations), 2),
			"std_duration_days":     analysis.Round(analysis.StdDev(eventDurations), 2),
			"initial_survival_rate": 1.0,
			"final_survival_rate":   analysis.Round(final, 3),
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"times":       times,
			"survival":    surv,
			"at_risk":     atRisk,
			"median_line": median,
		},
	}), nil
}

// regressionRisk grades model fit: R² must exceed a threshold to clear it.
func regressionRisk(r2 float64, cal Calibration) (analysis.Risk, string) {
	risk, _ := analysis.AssessRisk(r2, cal.RegressionR2, analysis.AtMostIsWorse)
	switch risk {
	case analysis.RiskHigh:
		return risk, "Weak relationship, additional factors needed"
	case analysis.RiskMedium:
		return risk, "Moderate relationship, use with caution"
	}
	return risk, "Strong predictive relationship, model reliable for estimation"
}
