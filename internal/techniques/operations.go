package techniques

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

var paretoMeta = analysis.Meta{
	Technique:   "Pareto Analysis (80/20 Rule)",
	Description: "How few states and districts account for 80% of enrolment volume.",
	Formula:     "N₈₀ = min N with Σ top-N share ≥ 80% | Pareto ratio = 80 / (N₈₀ / N × 100)",
}

// paretoCount is the smallest number of leading values whose cumulative
// share reaches 80%. values must be sorted descending.
func paretoCount(values []float64) (n int, cumulative []float64) {
	total := analysis.Sum(values)
	cumulative = make([]float64, len(values))
	acc := 0.0
	for i, v := range values {
		acc += v
		cumulative[i] = analysis.SafeDiv(acc, total) * 100
		if n == 0 && cumulative[i] >= 80-1e-9 {
			n = i + 1
		}
	}
	if n == 0 {
		n = len(values)
	}
	return n, cumulative
}

// Pareto measures volume concentration across states and districts.
func Pareto(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	states := dataset.SortByTotalDesc(dataset.By(t, dataset.StateKey))
	districts := dataset.SortByTotalDesc(dataset.By(t, dataset.DistrictKey))
	total := t.GrandTotal()
	if len(states) == 0 || total <= 0 {
		return analysis.Insufficient(paretoMeta, "no enrolment volume", 1, 0), nil
	}
	stateVals := dataset.Totals(states)
	nStates, stateCum := paretoCount(stateVals)
	nDistricts, _ := paretoCount(dataset.Totals(districts))
	statePct := float64(nStates) / float64(len(states)) * 100
	districtPct := float64(nDistricts) / float64(len(districts)) * 100
	ratioStates := analysis.SafeDiv(80, statePct)
	ratioDistricts := analysis.SafeDiv(80, districtPct)

	top5 := 0.0
	for i := 0; i < len(stateVals) && i < 5; i++ {
		top5 += stateVals[i]
	}
	vital := dataset.Keys(states[:nStates])
	if len(vital) > 10 {
		vital = vital[:10]
	}

	risk, _ := analysis.AssessRisk(statePct, env.Cal.ParetoShare, analysis.LowerIsWorse)
	decision := "Healthy distribution across states"
	switch risk {
	case analysis.RiskHigh:
		decision = "Extreme concentration, few states dominate volume"
	case analysis.RiskMedium:
		decision = "Moderate concentration, consider diversification"
	}

	var steps analysis.Steps
	steps.Add("Aggregate by State", "Sum enrolments per state",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d states with %s total", len(states), analysis.Count(total)))
	steps.Add("Rank Contributors", "Sort states by descending volume",
		"State totals",
		fmt.Sprintf("Top state: %s (%s)", states[0].Key, analysis.Pct(stateVals[0]/total*100)))
	steps.Add("Cumulative Share", "Running share of total volume",
		"Sorted percentages", "Cumulative distribution calculated")
	steps.Add("Find 80% Threshold", "Smallest number of states reaching 80%",
		"Cumulative percentages",
		fmt.Sprintf("%d states = 80%% (%s of states)", nStates, analysis.Pct(statePct)))
	steps.Add("District-Level Pareto", "Repeat the threshold search for districts",
		fmt.Sprintf("%d districts", len(districts)),
		fmt.Sprintf("%d districts = 80%% (%s)", nDistricts, analysis.Pct(districtPct)))
	steps.Add("Pareto Ratio", "80% divided by the contributor percentage",
		"80 / contributor %",
		fmt.Sprintf("States: %.2f, Districts: %.2f", ratioStates, ratioDistricts))

	return analysis.NewResult(analysis.Parts{
		Meta:  paretoMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"total_states":       len(states),
			"total_districts":    len(districts),
			"total_volume":       total,
			"top_5_states_share": analysis.Round(top5/total*100, 2),
		},
		Final: map[string]any{
			"states_for_80_percent":    nStates,
			"state_percentage":         analysis.Round(statePct, 2),
			"districts_for_80_percent": nDistricts,
			"district_percentage":      analysis.Round(districtPct, 2),
			"pareto_ratio_states":      analysis.Round(ratioStates, 2),
			"pareto_ratio_districts":   analysis.Round(ratioDistricts, 2),
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels":         dataset.Keys(states),
			"values":         stateVals,
			"cumulative":     roundAll(stateCum, 2),
			"threshold_line": 80,
		},
		Findings: map[string]any{"vital_few_states": vital},
	}), nil
}

var queueMeta = analysis.Meta{
	Technique:   "Queue Theory (Little's Law)",
	Description: "Treats daily enrolment as an M/M/1 system against a capacity estimated from the busiest day.",
	Formula:     "ρ = λ/μ | W = 1/(μ − λ) | L = λW | Wq = ρ/(μ − λ) | Lq = ρ²/(1 − ρ)",
}

// queueOverload replaces wait and length figures when λ ≥ μ.
const queueOverload = 999

type bottleneck struct {
	State       string  `json:"state" yaml:"state"`
	DailyAvg    float64 `json:"daily_avg" yaml:"daily_avg"`
	Peak        float64 `json:"peak" yaml:"peak"`
	Utilization float64 `json:"utilization" yaml:"utilization"`
}

// Queue estimates utilization and waiting figures of the enrolment system.
func Queue(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	daily := dataset.Daily(t)
	if len(daily) == 0 {
		return analysis.Insufficient(queueMeta, "no daily observations", 1, 0), nil
	}
	values := dataset.Totals(daily)
	lambda := analysis.Mean(values)
	sorted := analysis.Sorted(values)
	maxDaily := sorted[len(sorted)-1]
	mu := maxDaily * 1.1
	rho := analysis.SafeDiv(lambda, mu)

	var w, l, wq, lq float64
	overloaded := false
	switch {
	case mu == 0:
	case mu > lambda:
		w = 1 / (mu - lambda)
		l = lambda * w
		wq = rho / (mu - lambda)
		lq = rho * rho / (1 - rho)
	default:
		overloaded = true
		w, l, wq, lq = queueOverload, queueOverload, queueOverload, queueOverload
	}
	waitMins := w * 1440
	if overloaded {
		waitMins = queueOverload
	}

	var bottlenecks []bottleneck
	for state, series := range dataset.DailyBy(t, dataset.StateKey) {
		vals := dataset.Totals(series)
		peak := 0.0
		for _, v := range vals {
			peak = math.Max(peak, v)
		}
		u := analysis.SafeDiv(analysis.Mean(vals), peak)
		if u > env.Cal.BottleneckUtilization {
			bottlenecks = append(bottlenecks, bottleneck{
				State: state, DailyAvg: analysis.Round(analysis.Mean(vals), 2), Peak: peak, Utilization: analysis.Round(u, 3),
			})
		}
	}
	sort.Slice(bottlenecks, func(i, j int) bool {
		if bottlenecks[i].Utilization != bottlenecks[j].Utilization {
			return bottlenecks[i].Utilization > bottlenecks[j].Utilization
		}
		return bottlenecks[i].State < bottlenecks[j].State
	})
	nBottlenecks := len(bottlenecks)
	if len(bottlenecks) > 5 {
		bottlenecks = bottlenecks[:5]
	}

	risk, _ := analysis.AssessRisk(rho, env.Cal.Utilization, analysis.HigherIsWorse)
	decision := "System has adequate capacity for current demand"
	switch risk {
	case analysis.RiskHigh:
		decision = "System operating near capacity, risk of delays and backlogs"
	case analysis.RiskMedium:
		decision = "Moderate utilization, monitor for peak period issues"
	}

	wOut, lOut := fmt.Sprintf("W = %.6f days", w), fmt.Sprintf("L = %s", analysis.Num(l, 2))
	if overloaded {
		wOut, lOut = "System overloaded", "Infinite backlog"
	}
	var steps analysis.Steps
	steps.Add("Calculate Arrival Rate (λ)", "Mean daily enrolments",
		fmt.Sprintf("%d days of data", len(daily)),
		fmt.Sprintf("λ = %s enrolments/day", analysis.Num(lambda, 0)))
	steps.Add("Estimate Service Capacity (μ)", "Busiest day plus a 10% buffer",
		fmt.Sprintf("Max daily: %s", analysis.Count(maxDaily)),
		fmt.Sprintf("μ = %s enrolments/day", analysis.Num(mu, 0)))
	steps.Add("Calculate Utilization (ρ)", "Ratio of arrivals to capacity",
		fmt.Sprintf("λ = %s, μ = %s", analysis.Num(lambda, 0), analysis.Num(mu, 0)),
		fmt.Sprintf("ρ = %s", analysis.Pct(rho*100)))
	steps.Add("Calculate Time in System (W)", "M/M/1 mean time in system",
		fmt.Sprintf("μ − λ = %s", analysis.Num(mu-lambda, 0)), wOut)
	steps.Add("Apply Little's Law", "L = λW",
		fmt.Sprintf("λ = %s", analysis.Num(lambda, 0)), lOut)
	steps.Add("Identify Bottlenecks", fmt.Sprintf("States whose mean daily volume exceeds %.0f%% of their peak", env.Cal.BottleneckUtilization*100),
		"Per-state daily series", fmt.Sprintf("%d bottleneck states", nBottlenecks))

	tail := daily
	if len(tail) > 30 {
		tail = tail[len(tail)-30:]
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  queueMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"days_analyzed":     len(daily),
			"total_enrolments":  analysis.Sum(values),
			"min_daily":         sorted[0],
			"max_daily":         maxDaily,
			"std_daily":         analysis.Round(analysis.SampleStdDev(values), 2),
			"service_intensity": analysis.Round(rho, 4),
		},
		Final: map[string]any{
			"arrival_rate_lambda":    analysis.Round(lambda, 2),
			"processing_capacity_mu": analysis.Round(mu, 2),
			"utilization_rho":        analysis.Round(rho, 4),
			"prob_queue_p1":          analysis.Round(rho*rho, 4),
			"avg_time_in_system_w":   analysis.Round(w, 6),
			"avg_in_system_l":        analysis.Round(l, 4),
			"avg_wait_time_wq":       analysis.Round(wq, 6),
			"avg_queue_length_lq":    analysis.Round(lq, 4),
			"avg_wait_time_mins":     analysis.Round(waitMins, 2),
			"bottleneck_states":      nBottlenecks,
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels":            dataset.Keys(tail),
			"values":            dataset.Totals(tail),
			"capacity_line":     analysis.Round(mu, 2),
			"utilization_gauge": analysis.Round(rho*100, 1),
		},
		Findings: map[string]any{"bottlenecks": bottlenecks},
	}), nil
}

var loadBalanceMeta = analysis.Meta{
	Technique:   "Load Balancing Analysis",
	Description: "Evenness of enrolment workload across states.",
	Formula:     "CV = s/μ | Gini = (2Σ i·xᵢ)/(nΣxᵢ) − (n+1)/n | balance = max(0, 100 − 50·CV − 50·Gini)",
}

// LoadBalance scores how evenly volume is spread across states.
func LoadBalance(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	states := dataset.SortByTotalDesc(dataset.By(t, dataset.StateKey))
	if len(states) < 2 {
		return analysis.Insufficient(loadBalanceMeta, "fewer than 2 states", 2, len(states)), nil
	}
	values := dataset.Totals(states)
	total := analysis.Sum(values)
	mean := analysis.Mean(values)
	sd := analysis.SampleStdDev(values)
	cv := analysis.SafeDiv(sd, mean)
	gini := analysis.Gini(values)
	score := math.Max(0, 100-cv*50-gini*50)

	over, under := 0, 0
	for _, v := range values {
		switch {
		case v > mean*1.5:
			over++
		case v < mean*0.5:
			under++
		}
	}

	risk, _ := analysis.AssessRisk(score, env.Cal.BalanceScore, analysis.LowerIsWorse)
	decision := "Load reasonably balanced across states"
	switch risk {
	case analysis.RiskHigh:
		decision = "Severe load imbalance, consider redistribution of resources"
	case analysis.RiskMedium:
		decision = "Moderate imbalance, some states may need additional capacity"
	}

	labels := []string{}
	shares := []float64{}
	others := 0.0
	for i, g := range states {
		share := analysis.SafeDiv(g.Total, total) * 100
		if i < 8 {
			labels = append(labels, g.Key)
			shares = append(shares, analysis.Round(share, 2))
			continue
		}
		others += share
	}
	if len(states) > 8 {
		labels = append(labels, "Others")
		shares = append(shares, analysis.Round(others, 2))
	}

	var steps analysis.Steps
	steps.Add("Aggregate State Load", "Sum enrolments per state",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d states analyzed", len(states)))
	steps.Add("Calculate Load Statistics", "Mean and sample standard deviation of state loads",
		fmt.Sprintf("Total load: %s", analysis.Count(total)),
		fmt.Sprintf("μ = %s, σ = %s", analysis.Num(mean, 0), analysis.Num(sd, 0)))
	steps.Add("Coefficient of Variation", "Relative dispersion σ/μ",
		fmt.Sprintf("σ = %s, μ = %s", analysis.Num(sd, 0), analysis.Num(mean, 0)),
		fmt.Sprintf("CV = %.4f", cv))
	steps.Add("Gini Coefficient", "Inequality of the sorted loads",
		fmt.Sprintf("Sorted loads for %d states", len(states)),
		fmt.Sprintf("Gini = %.4f", gini))
	steps.Add("Classify States", "Over 1.5× or under 0.5× the mean load",
		"State loads vs thresholds",
		fmt.Sprintf("Overloaded: %d, Underloaded: %d", over, under))
	steps.Add("Balance Score", "100 − 50·CV − 50·Gini, floored at 0",
		fmt.Sprintf("CV=%.4f, Gini=%.4f", cv, gini),
		fmt.Sprintf("Balance Score = %.1f/100", score))

	return analysis.NewResult(analysis.Parts{
		Meta:  loadBalanceMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"total_load":               total,
			"mean_load":                analysis.Round(mean, 2),
			"std_load":                 analysis.Round(sd, 2),
			"coefficient_of_variation": analysis.Round(cv, 4),
			"gini_coefficient":         analysis.Round(gini, 4),
		},
		Final: map[string]any{
			"balance_score":      analysis.Round(score, 2),
			"overloaded_states":  over,
			"underloaded_states": under,
			"balanced_states":    len(states) - over - under,
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels":        labels,
			"values":        shares,
			"balance_gauge": analysis.Round(score, 1),
		},
		Findings: map[string]any{"state_distribution": topN(states, 10)},
	}), nil
}

var throughputMeta = analysis.Meta{
	Technique:   "Throughput Analysis",
	Description: "Recent processing rate against history, week-over-week trend and daily percentiles.",
	Formula:     "current = mean(last 7 days) | trend = (last 7 − previous 7) / previous 7 × 100",
}

// Throughput compares the latest week against the full history.
func Throughput(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	daily := dataset.Daily(t)
	if len(daily) < 7 {
		return analysis.Insufficient(throughputMeta, "fewer than 7 days", 7, len(daily)), nil
	}
	values := dataset.Totals(daily)
	n := len(values)
	current := analysis.Mean(values[n-7:])
	historical := analysis.Mean(values)
	trend := 0.0
	if n >= 14 {
		previous := analysis.Mean(values[n-14 : n-7])
		trend = analysis.SafeDiv(current-previous, previous) * 100
	}
	sorted := analysis.Sorted(values)
	p50 := analysis.Quantile(sorted, 0.5)
	p90 := analysis.Quantile(sorted, 0.9)
	p99 := analysis.Quantile(sorted, 0.99)
	lowDays := 0
	for _, v := range values {
		if v < historical*0.5 {
			lowDays++
		}
	}

	risk := analysis.RiskLow
	decision := "Throughput within normal operating range"
	switch {
	case current < historical*env.Cal.ThroughputRatio:
		risk = analysis.RiskHigh
		decision = "Current throughput significantly below historical average"
	case trend < env.Cal.ThroughputTrend:
		risk = analysis.RiskMedium
		decision = "Declining throughput trend detected"
	}

	var steps analysis.Steps
	steps.Add("Aggregate Daily Throughput", "Sum enrolments per day",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d days of throughput data", n))
	steps.Add("Current Throughput", "Mean of the last 7 days",
		"Last 7 days data", fmt.Sprintf("%s enrolments/day", analysis.Num(current, 0)))
	steps.Add("Historical Throughput", "Mean over the full period",
		fmt.Sprintf("%d days", n), fmt.Sprintf("%s enrolments/day", analysis.Num(historical, 0)))
	steps.Add("Throughput Trend", "Last 7 days against the 7 before",
		"Week-over-week comparison", fmt.Sprintf("Trend: %+.1f%%", trend))
	steps.Add("Percentile Analysis", "Distribution of daily throughput",
		"Daily throughput distribution",
		fmt.Sprintf("P50=%s, P90=%s, P99=%s", analysis.Num(p50, 0), analysis.Num(p90, 0), analysis.Num(p99, 0)))

	return analysis.NewResult(analysis.Parts{
		Meta:  throughputMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"total_days":      n,
			"total_processed": analysis.Sum(values),
			"min_daily":       sorted[0],
			"max_daily":       sorted[n-1],
			"std_daily":       analysis.Round(analysis.SampleStdDev(values), 2),
		},
		Final: map[string]any{
			"current_throughput":    analysis.Round(current, 2),
			"historical_throughput": analysis.Round(historical, 2),
			"peak_throughput":       sorted[n-1],
			"trend_percent":         analysis.Round(trend, 2),
			"low_performance_days":  lowDays,
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels":      dataset.Keys(daily),
			"values":      values,
			"avg_line":    analysis.Round(historical, 2),
			"percentiles": map[string]float64{"p50": p50, "p90": p90, "p99": p99},
		},
	}), nil
}

var yieldMeta = analysis.Meta{
	Technique:   "Yield Analysis",
	Description: "Demographic and biometric update volumes as a share of enrolments.",
	Formula:     "yield = updates / enrolments × 100 | score = min(100, (demo + bio) / 2)",
}

type stateYield struct {
	State    string  `json:"state" yaml:"state"`
	Demo     float64 `json:"demo_yield" yaml:"demo_yield"`
	Bio      float64 `json:"bio_yield" yaml:"bio_yield"`
	Combined float64 `json:"combined_yield" yaml:"combined_yield"`
}

// Yield relates update activity to enrolment; it needs all three tables.
func Yield(ctx context.Context, env Env) (*analysis.Result, error) {
	enr, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	demo, err := load(ctx, env, dataset.Demographic)
	if err != nil {
		return nil, err
	}
	bio, err := load(ctx, env, dataset.Biometric)
	if err != nil {
		return nil, err
	}
	totalEnrol, totalDemo, totalBio := enr.GrandTotal(), demo.GrandTotal(), bio.GrandTotal()
	demoYield := analysis.SafeDiv(totalDemo, totalEnrol) * 100
	bioYield := analysis.SafeDiv(totalBio, totalEnrol) * 100
	score := math.Min(100, (demoYield+bioYield)/2)

	demoBy := map[string]float64{}
	for _, g := range dataset.By(demo, dataset.StateKey) {
		demoBy[g.Key] = g.Total
	}
	bioBy := map[string]float64{}
	for _, g := range dataset.By(bio, dataset.StateKey) {
		bioBy[g.Key] = g.Total
	}
	var perState []stateYield
	var combined []float64
	for _, g := range dataset.By(enr, dataset.StateKey) {
		d := analysis.Round(analysis.SafeDiv(demoBy[g.Key], g.Total)*100, 2)
		b := analysis.Round(analysis.SafeDiv(bioBy[g.Key], g.Total)*100, 2)
		c := analysis.Round((d+b)/2, 2)
		perState = append(perState, stateYield{State: g.Key, Demo: d, Bio: b, Combined: c})
		combined = append(combined, c)
	}
	avg := analysis.Mean(combined)
	high, low := 0, 0
	for _, c := range combined {
		switch {
		case c > avg*1.2:
			high++
		case c < avg*0.8:
			low++
		}
	}
	sort.SliceStable(perState, func(i, j int) bool { return perState[i].Combined > perState[j].Combined })
	if len(perState) > 10 {
		perState = perState[:10]
	}

	risk, _ := analysis.AssessRisk(score, env.Cal.Yield, analysis.LowerIsWorse)
	decision := "Healthy yield rates, good citizen engagement"
	switch risk {
	case analysis.RiskHigh:
		decision = "Low yield rates, citizens not actively updating records"
	case analysis.RiskMedium:
		decision = "Moderate yield, room for improvement in update rates"
	}

	var steps analysis.Steps
	steps.Add("Aggregate Totals", "Sum each table's total column",
		"Three datasets",
		fmt.Sprintf("Enrolments: %s, Demo: %s, Bio: %s", analysis.Count(totalEnrol), analysis.Count(totalDemo), analysis.Count(totalBio)))
	steps.Add("Demographic Yield", "Demographic updates over enrolments",
		fmt.Sprintf("%s / %s", analysis.Count(totalDemo), analysis.Count(totalEnrol)),
		fmt.Sprintf("Demo Yield = %.2f%%", demoYield))
	steps.Add("Biometric Yield", "Biometric updates over enrolments",
		fmt.Sprintf("%s / %s", analysis.Count(totalBio), analysis.Count(totalEnrol)),
		fmt.Sprintf("Bio Yield = %.2f%%", bioYield))
	steps.Add("State-Level Yield", "Combined yield per state against the mean",
		fmt.Sprintf("%d states", len(combined)),
		fmt.Sprintf("High yield: %d, Low yield: %d", high, low))
	steps.Add("Yield Score", "Mean of the two yields, capped at 100",
		fmt.Sprintf("Demo=%.2f%%, Bio=%.2f%%", demoYield, bioYield),
		fmt.Sprintf("Yield Score = %.2f", score))

	return analysis.NewResult(analysis.Parts{
		Meta:  yieldMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"total_enrolments":   totalEnrol,
			"total_demo_updates": totalDemo,
			"total_bio_updates":  totalBio,
			"avg_state_yield":    analysis.Round(avg, 2),
		},
		Final: map[string]any{
			"demo_yield_percent": analysis.Round(demoYield, 2),
			"bio_yield_percent":  analysis.Round(bioYield, 2),
			"yield_score":        analysis.Round(score, 2),
			"high_yield_states":  high,
			"low_yield_states":   low,
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels":            []string{"Enrolments", "Demo Updates", "Bio Updates"},
			"values":            []float64{totalEnrol, totalDemo, totalBio},
			"yield_percentages": map[string]float64{"demo": analysis.Round(demoYield, 1), "bio": analysis.Round(bioYield, 1)},
		},
		Findings: map[string]any{"state_breakdown": perState},
	}), nil
}
