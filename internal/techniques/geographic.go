package techniques

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

var clusterMeta = analysis.Meta{
	Technique:   "K-Means Cluster Analysis",
	Description: "Groups states into tiers by enrolment volume and age-band mix.",
	Formula:     "minimize Σ ||xᵢ − μⱼ||² over z-normalized features",
}

const (
	clusterK     = 3
	clusterSeed  = 42
	clusterInits = 10
	clusterIters = 300
)

type clusterProfile struct {
	ID           int      `json:"cluster_id" yaml:"cluster_id"`
	Size         int      `json:"size" yaml:"size"`
	AvgEnrolment float64  `json:"avg_enrolment" yaml:"avg_enrolment"`
	Label        string   `json:"label" yaml:"label"`
	States       []string `json:"states" yaml:"states"`
}

// Clusters segments states with k-means on total and age-band volumes.
func Clusters(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	states := dataset.By(t, dataset.StateKey)
	if len(states) < clusterK {
		return analysis.Insufficient(clusterMeta, "fewer states than clusters", clusterK, len(states)), nil
	}
	features := []string{"total_enrolments"}
	features = append(features, t.Schema().Measures...)
	rows := make([][]float64, len(states))
	for i, g := range states {
		rows[i] = append([]float64{g.Total}, g.Measures[:len(features)-1]...)
	}
	norm, means, sds := standardize(rows)
	km := kmeans(norm, clusterK, clusterInits, clusterIters, clusterSeed)

	overall := analysis.Mean(dataset.Totals(states))
	profiles := make([]clusterProfile, clusterK)
	for c := range profiles {
		profiles[c].ID = c
	}
	clusterTotals := make([][]float64, clusterK)
	for i, g := range states {
		c := km.Labels[i]
		profiles[c].Size++
		clusterTotals[c] = append(clusterTotals[c], g.Total)
		if len(profiles[c].States) < 5 {
			profiles[c].States = append(profiles[c].States, g.Key)
		}
	}
	largest := 0
	for c := range profiles {
		avg := analysis.Mean(clusterTotals[c])
		profiles[c].AvgEnrolment = analysis.Round(avg, 0)
		switch {
		case avg > overall*1.5:
			profiles[c].Label = "High Volume Major States"
		case avg < overall*0.5:
			profiles[c].Label = "Low Volume / Smaller Regions"
		default:
			profiles[c].Label = "Medium Volume / Average States"
		}
		if profiles[c].Size > largest {
			largest = profiles[c].Size
		}
	}
	quality := "Medium"
	if km.Inertia < float64(len(states))*2 {
		quality = "High"
	}
	sizes := make([]int, clusterK)
	for c, p := range profiles {
		sizes[c] = p.Size
	}

	var steps analysis.Steps
	steps.Add("Feature Extraction", "Aggregate volume and age bands by state",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d states × %d features", len(states), len(features)))
	steps.Add("Normalize Data", "Scale each feature to mean 0 and unit variance",
		"Raw state metrics", "Standardized feature matrix")
	steps.Add("Initialize Centroids", fmt.Sprintf("k-means++ seeding, %d restarts", clusterInits),
		fmt.Sprintf("k=%d, seed=%d", clusterK, clusterSeed), "Initial centroids set")
	steps.Add("Assign Clusters", "Assign each state to its nearest centroid",
		"Euclidean distance", fmt.Sprintf("States distributed: %v", sizes))
	steps.Add("Update Centroids", "Recompute centroids until assignments stabilize",
		"Cluster members", fmt.Sprintf("Converged in %d iterations, inertia %.2f", km.Iters, km.Inertia))

	featureMeans, featureSDs := map[string]float64{}, map[string]float64{}
	for j, f := range features {
		featureMeans[f] = analysis.Round(means[j], 2)
		featureSDs[f] = analysis.Round(sds[j], 2)
	}
	x := make([]float64, len(states))
	y := make([]float64, len(states))
	adultIdx := len(features) - 1
	for i, r := range rows {
		x[i], y[i] = r[0], r[adultIdx]
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  clusterMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"num_clusters":  clusterK,
			"inertia":       analysis.Round(km.Inertia, 2),
			"feature_means": featureMeans,
			"feature_stds":  featureSDs,
		},
		Final: map[string]any{
			"clusters_formed":      clusterK,
			"segmentation_quality": quality,
			"largest_cluster_size": largest,
		},
		Risk:     analysis.RiskInfo,
		Decision: "Grouping identifies clear tiers of operational scale",
		Visualization: map[string]any{
			"labels": dataset.Keys(states),
			"values": dataset.Totals(states),
			"scatter": map[string]any{
				"x": x, "y": y, "labels": dataset.Keys(states), "colors": km.Labels,
			},
		},
		Findings: map[string]any{"clusters": profiles},
	}), nil
}

var hotspotMeta = analysis.Meta{
	Technique:   "Geospatial Hotspot Analysis",
	Description: "Districts significantly above (hotspots) or below (coldspots) the national district mean, plus concentration.",
	Formula:     "z = (x − mean) / s | HHI = Σ sᵢ² with sᵢ in percent",
}

// Hotspots finds extreme districts and the Herfindahl concentration index.
func Hotspots(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	districts := dataset.By(t, dataset.DistrictKey)
	if len(districts) < 2 {
		return analysis.Insufficient(hotspotMeta, "fewer than 2 districts", 2, len(districts)), nil
	}
	values := dataset.Totals(districts)
	mean := analysis.Mean(values)
	sd := analysis.SampleStdDev(values)
	z := analysis.ZScores(values, mean, sd)

	var hot, cold []flaggedDistrict
	maxZ := math.Inf(-1)
	for i, g := range districts {
		maxZ = math.Max(maxZ, z[i])
		f := flaggedDistrict{District: g.Key, Total: g.Total, ZScore: analysis.Round(z[i], 2)}
		switch {
		case z[i] > env.Cal.HotspotZ:
			hot = append(hot, f)
		case z[i] < env.Cal.ColdspotZ:
			cold = append(cold, f)
		}
	}
	sort.Slice(hot, func(i, j int) bool { return hot[i].ZScore > hot[j].ZScore })
	sort.Slice(cold, func(i, j int) bool { return cold[i].ZScore < cold[j].ZScore })

	hhi := analysis.HHI(values)
	level := "High Concentration"
	switch {
	case hhi < 100:
		level = "Diverse"
	case hhi < env.Cal.HHI.Medium:
		level = "Moderate Concentration"
	}
	risk, _ := analysis.AssessRisk(hhi, env.Cal.HHI, analysis.HigherIsWorse)
	top := "None"
	if len(hot) > 0 {
		top = hot[0].District
	}
	shown := hot
	if len(shown) > 10 {
		shown = shown[:10]
	}
	labels := make([]string, len(shown))
	zs := make([]float64, len(shown))
	for i, f := range shown {
		labels[i], zs[i] = f.District, f.ZScore
	}

	var steps analysis.Steps
	steps.Add("Calculate Global Statistics", "Mean and sample standard deviation across districts",
		fmt.Sprintf("%d districts", len(values)),
		fmt.Sprintf("mean = %s, std = %s", analysis.Num(mean, 0), analysis.Num(sd, 0)))
	steps.Add("Compute Local Z-Scores", "Normalize each district against the global statistics",
		"District volumes", "Z-scores calculated")
	steps.Add("Identify Hotspots", fmt.Sprintf("Flag z > %.1f as hot and z < %.1f as cold", env.Cal.HotspotZ, env.Cal.ColdspotZ),
		fmt.Sprintf("Thresholds %.1f / %.1f", env.Cal.HotspotZ, env.Cal.ColdspotZ),
		fmt.Sprintf("%d hotspots, %d coldspots", len(hot), len(cold)))
	steps.Add("Calculate Concentration (HHI)", "Sum of squared percentage shares",
		"District shares", fmt.Sprintf("HHI = %.1f", hhi))

	top5 := hot
	if len(top5) > 5 {
		top5 = top5[:5]
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  hotspotMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"global_mean": analysis.Round(mean, 2),
			"global_std":  analysis.Round(sd, 2),
			"max_z_score": analysis.Round(maxZ, 2),
			"hhi_index":   analysis.Round(hhi, 2),
		},
		Final: map[string]any{
			"hotspot_count":       len(hot),
			"coldspot_count":      len(cold),
			"concentration_level": level,
			"top_hotspot":         top,
			"total_districts":     len(values),
			"global_mean":         analysis.Round(mean, 2),
		},
		Risk:     risk,
		Decision: "Geographic distribution is " + level,
		Visualization: map[string]any{
			"labels":   labels,
			"values":   zs,
			"map_data": map[string]any{"hotspots": shown},
		},
		Findings: map[string]any{"top_hotspots": top5, "coldspots": len(cold)},
	}), nil
}

var cohortMeta = analysis.Meta{
	Technique:   "Demographic Cohort Analysis",
	Description: "Age-band shares of enrolment and their average month-over-month growth.",
	Formula:     "share = band / total × 100 | growth = mean(MoM % change) per band",
}

// cohortLabel turns a measure column into a short band label.
func cohortLabel(measure string) string {
	switch measure {
	case "age_0_5":
		return "0-5"
	case "age_5_17":
		return "5-17"
	case "age_18_greater":
		return "18+"
	}
	return measure
}

// Cohorts splits enrolment into its age bands.
func Cohorts(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	measures := t.Schema().Measures
	total := t.GrandTotal()
	if total <= 0 {
		return analysis.Insufficient(cohortMeta, "no enrolment volume", 1, 0), nil
	}
	monthly := dataset.Monthly(t)
	if len(monthly) < 2 {
		return analysis.Insufficient(cohortMeta, "growth needs at least 2 months", 2, len(monthly)), nil
	}

	labels := make([]string, len(measures))
	totals := map[string]float64{}
	shares := map[string]float64{}
	growth := map[string]float64{}
	shareVals := make([]float64, len(measures))
	dominant, fastest := "", ""
	for i, m := range measures {
		label := cohortLabel(m)
		labels[i] = label
		v := t.MeasureTotal(i)
		totals[label] = v
		shares[label] = analysis.SafeDiv(v, total) * 100
		shareVals[i] = analysis.Round(shares[label], 2)

		series := make([]float64, len(monthly))
		for j, g := range monthly {
			series[j] = g.Measures[i]
		}
		if dominant == "" || v > totals[dominant] {
			dominant = label
		}
		// Bands with no non-zero earlier month have no growth rate.
		rates := analysis.PctChange(series)
		if len(rates) == 0 {
			continue
		}
		growth[label] = analysis.Mean(rates) * 100
		if fastest == "" || growth[label] > growth[fastest] {
			fastest = label
		}
	}
	if fastest == "" {
		return analysis.Insufficient(cohortMeta, "no age band has a non-zero earlier month", 1, 0), nil
	}
	child := 0.0
	for _, l := range labels {
		if l != "18+" {
			child += shares[l]
		}
	}

	var steps analysis.Steps
	steps.Add("Segment by Age Group", "Sum enrolments for each age band",
		"Dataset columns", fmt.Sprintf("%d cohorts identified", len(measures)))
	steps.Add("Calculate Cohort Share", "Percentage contribution of each band",
		fmt.Sprintf("Total: %s", analysis.Count(total)), analysis.KV(shares, 1))
	steps.Add("Analyze Growth Trends", "Average month-over-month growth per band",
		fmt.Sprintf("%d months", len(monthly)), fmt.Sprintf("Fastest: %s", fastest))

	roundedShares := map[string]float64{}
	roundedGrowth := map[string]float64{}
	for k, v := range shares {
		roundedShares[k] = analysis.Round(v, 2)
	}
	for k, v := range growth {
		roundedGrowth[k] = analysis.Round(v, 2)
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  cohortMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"total_volume":      total,
			"cohort_totals":     totals,
			"shares":            roundedShares,
			"avg_growth_pct":    roundedGrowth,
			"cohort_count":      len(measures),
			"months_considered": len(monthly),
		},
		Final: map[string]any{
			"dominant_cohort":         dominant,
			"fastest_growing_cohort":  fastest,
			"child_enrolment_percent": analysis.Round(child, 2),
		},
		Risk:     analysis.RiskInfo,
		Decision: "Cohort distribution aligns with expectations",
		Visualization: map[string]any{
			"labels":    labels,
			"values":    shareVals,
			"pie_chart": map[string]any{"labels": labels, "values": shareVals},
		},
	}), nil
}

var gapMeta = analysis.Meta{
	Technique:   "Coverage Gap Analysis",
	Description: "States whose recent activity has fallen far below their historical peak.",
	Formula:     "saturation index = mean(last 3 months) / peak month",
}

type saturation struct {
	State      string  `json:"state" yaml:"state"`
	Index      float64 `json:"saturation_index" yaml:"saturation_index"`
	PeakVol    float64 `json:"peak_vol" yaml:"peak_vol"`
	CurrentVol float64 `json:"current_vol" yaml:"current_vol"`
}

// CoverageGap ranks states by how far recent volume sits below peak.
func CoverageGap(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	byState := dataset.MonthlyBy(t, dataset.StateKey)
	var gaps []saturation
	for state, series := range byState {
		if len(series) < 3 {
			continue
		}
		totals := dataset.Totals(series)
		peak := 0.0
		for _, v := range totals {
			peak = math.Max(peak, v)
		}
		recent := analysis.Mean(totals[len(totals)-3:])
		gaps = append(gaps, saturation{
			State:      state,
			Index:      analysis.Round(analysis.SafeDiv(recent, peak), 2),
			PeakVol:    peak,
			CurrentVol: analysis.Round(recent, 0),
		})
	}
	if len(gaps) == 0 {
		return analysis.Insufficient(gapMeta, "no state with 3 or more months", 1, 0), nil
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Index != gaps[j].Index {
			return gaps[i].Index < gaps[j].Index
		}
		return gaps[i].State < gaps[j].State
	})
	var low []string
	idx := make([]float64, len(gaps))
	labels := make([]string, len(gaps))
	for i, g := range gaps {
		idx[i], labels[i] = g.Index, g.State
		if g.Index < env.Cal.SaturationFloor {
			low = append(low, g.State)
		}
	}
	decision := "Saturation levels are broadly even across states"
	if len(low) > 0 {
		decision = "Mixed saturation levels, targeted outreach required for low index states"
	}

	var steps analysis.Steps
	steps.Add("Establish Peak Capacity", "Maximum monthly enrolment per state",
		"Monthly state series", fmt.Sprintf("%d states with 3+ months", len(gaps)))
	steps.Add("Measure Current Velocity", "Mean of the last 3 months",
		"Recent months", "Current velocity calculated")
	steps.Add("Compute Saturation Index", "Ratio of current to peak activity",
		"Current / Peak", fmt.Sprintf("Average index %.2f", analysis.Mean(idx)))
	steps.Add("Identify Lagging Regions", fmt.Sprintf("Flag states with index < %.2f", env.Cal.SaturationFloor),
		fmt.Sprintf("Threshold %.2f", env.Cal.SaturationFloor), fmt.Sprintf("%d regions identified", len(low)))

	return analysis.NewResult(analysis.Parts{
		Meta:  gapMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"states_analyzed": len(gaps),
			"avg_saturation":  analysis.Round(analysis.Mean(idx), 2),
		},
		Final: map[string]any{
			"potential_saturation_states": len(low),
			"highest_gap_state":           gaps[0].State,
		},
		Risk:     analysis.RiskInfo,
		Decision: decision,
		Visualization: map[string]any{
			"labels":    labels,
			"values":    idx,
			"bar_chart": map[string]any{"labels": labels, "values": idx},
		},
		Findings: map[string]any{"saturation": gaps, "low_saturation_states": low},
	}), nil
}
