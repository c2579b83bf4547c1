package techniques

import (
	"context"
	"fmt"
	"math"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

var benchmarkMeta = analysis.Meta{
	Technique:   "Peer Benchmarking (State vs National)",
	Description: "Ranks each state's volume against the mean of all states.",
	Formula:     "performance index = (state − national mean) / national s",
}

type benchmark struct {
	State  string  `json:"state" yaml:"state"`
	Total  float64 `json:"total" yaml:"total"`
	ZScore float64 `json:"z_score" yaml:"z_score"`
}

// Benchmarking ranks states by z-score.
func Benchmarking(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	states := dataset.SortByTotalDesc(dataset.By(t, dataset.StateKey))
	if len(states) < 2 {
		return analysis.Insufficient(benchmarkMeta, "fewer than 2 states", 2, len(states)), nil
	}
	values := dataset.Totals(states)
	mean := analysis.Mean(values)
	sd := analysis.SampleStdDev(values)
	z := analysis.ZScores(values, mean, sd)
	ranking := make([]benchmark, len(states))
	for i, g := range states {
		ranking[i] = benchmark{State: g.Key, Total: g.Total, ZScore: analysis.Round(z[i], 2)}
	}
	n := len(ranking)
	k := 5
	if k > n {
		k = n
	}
	top := ranking[:k]
	bottom := make([]benchmark, k)
	for i := 0; i < k; i++ {
		bottom[i] = ranking[n-1-i]
	}
	lead := analysis.SafeDiv(values[0], mean)

	var steps analysis.Steps
	steps.Add("Aggregate State Volumes", "Sum enrolments per state",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d states aggregated", n))
	steps.Add("National Benchmark", "Mean and sample standard deviation of state totals",
		"State totals",
		fmt.Sprintf("National Mean = %s, Std = %s", analysis.Num(mean, 0), analysis.Num(sd, 0)))
	steps.Add("Performance Index", "Z-score of each state against the national benchmark",
		"State totals vs national mean", "Z-scores calculated for ranking")

	return analysis.NewResult(analysis.Parts{
		Meta:  benchmarkMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"national_mean": analysis.Round(mean, 2),
			"national_std":  analysis.Round(sd, 2),
		},
		Final: map[string]any{
			"top_state":    ranking[0].State,
			"bottom_state": ranking[n-1].State,
			"spread":       values[0] - values[n-1],
		},
		Risk:     analysis.RiskInfo,
		Decision: "Benchmarking complete",
		Insight:  fmt.Sprintf("Top performer %s is %.1fx the national average.", ranking[0].State, lead),
		Visualization: map[string]any{
			"labels":       dataset.Keys(states),
			"values":       values,
			"average_line": analysis.Round(mean, 2),
		},
		Findings: map[string]any{"top_performers": top, "bottom_performers": bottom},
	}), nil
}

var decileMeta = analysis.Meta{
	Technique:   "Decile Segmentation Analysis",
	Description: "Districts ranked by volume and binned into ten equal-count groups.",
	Formula:     "decile = ⌈rank / N × 10⌉ | concentration = share of deciles 9–10",
}

type decileStat struct {
	Decile int     `json:"decile" yaml:"decile"`
	Count  int     `json:"count" yaml:"count"`
	Sum    float64 `json:"sum" yaml:"sum"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Deciles segments districts by rank; decile 10 holds the largest.
func Deciles(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	districts := dataset.By(t, dataset.DistrictKey)
	n := len(districts)
	if n < 10 {
		return analysis.Insufficient(decileMeta, "fewer than 10 districts", 10, n), nil
	}
	ascending := analysis.Sorted(dataset.Totals(districts))
	total := analysis.Sum(ascending)
	stats := make([]decileStat, 10)
	for d := range stats {
		stats[d] = decileStat{Decile: d + 1, Min: math.Inf(1), Max: math.Inf(-1)}
	}
	for i, v := range ascending {
		// ceil((i+1)·10 / n) in integer arithmetic.
		d := ((i+1)*10+n-1)/n - 1
		s := &stats[d]
		s.Count++
		s.Sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	labels := make([]string, 10)
	shares := make([]float64, 10)
	avgs := make([]float64, 10)
	for d := range stats {
		s := &stats[d]
		s.Mean = analysis.Round(analysis.SafeDiv(s.Sum, float64(s.Count)), 0)
		if s.Count == 0 {
			s.Min, s.Max = 0, 0
		}
		labels[d] = fmt.Sprintf("D%d", d+1)
		shares[d] = analysis.Round(analysis.SafeDiv(s.Sum, total)*100, 1)
		avgs[d] = s.Mean
	}
	top2 := analysis.SafeDiv(stats[8].Sum+stats[9].Sum, total)

	risk, decision := analysis.AssessRisk(top2, env.Cal.TopDecileShare, analysis.HigherIsWorse)
	insight := "Balanced distribution across deciles."
	if risk != analysis.RiskLow {
		insight = "High concentration in top deciles."
	}

	var steps analysis.Steps
	steps.Add("Rank Districts", "Aggregate and sort districts by total volume",
		fmt.Sprintf("%d districts", n), "Districts ranked 1 to N")
	steps.Add("Assign Deciles", "decile = ceil(rank / N × 10)",
		"Ranked districts", "10 decile groups created").Details = stats
	steps.Add("Concentration Check", "Share of volume held by the top two deciles",
		"Decile groups", fmt.Sprintf("Top 20%% hold %s of volume", analysis.Pct(top2*100)))

	return analysis.NewResult(analysis.Parts{
		Meta:  decileMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"gini_proxy":       analysis.Round(top2, 4),
			"total_volume":     total,
			"gini_coefficient": analysis.Round(analysis.Gini(ascending), 4),
		},
		Final: map[string]any{
			"top_decile_share":     analysis.Round(analysis.SafeDiv(stats[9].Sum, total), 4),
			"bottom_decile_share":  analysis.Round(analysis.SafeDiv(stats[0].Sum, total), 4),
			"top_two_decile_share": analysis.Round(top2, 4),
		},
		Risk:     risk,
		Decision: decision,
		Insight:  insight,
		Visualization: map[string]any{
			"labels":       labels,
			"values":       shares,
			"volume_share": shares,
			"avg_volume":   avgs,
		},
		Findings: map[string]any{"deciles": stats},
	}), nil
}
