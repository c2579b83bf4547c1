package techniques

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

// optionalTables loads the enrolment table and whichever update tables are
// available.
func optionalTables(ctx context.Context, env Env) (map[dataset.Kind]*dataset.Table, error) {
	enr, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	out := map[dataset.Kind]*dataset.Table{dataset.Enrolment: enr}
	for _, k := range []dataset.Kind{dataset.Demographic, dataset.Biometric} {
		if t, err := load(ctx, env, k); err == nil {
			out[k] = t
		}
	}
	return out, nil
}

var growthMeta = analysis.Meta{
	Technique:   "Growth Trend Analysis",
	Description: "Month-over-month and year-over-year growth of enrolments and updates.",
	Formula:     "MoM = (xₜ − xₜ₋₁)/xₜ₋₁ × 100 | YoY = (xₜ − xₜ₋₁₂)/xₜ₋₁₂ × 100",
}

type growthSeries struct {
	Months    []string  `json:"months" yaml:"months"`
	Values    []float64 `json:"values" yaml:"values"`
	MoM       []float64 `json:"mom_growth" yaml:"mom_growth"`
	YoY       []float64 `json:"yoy_growth" yaml:"yoy_growth"`
	Direction string    `json:"overall_trend" yaml:"overall_trend"`
	PeakMonth string    `json:"peak_month" yaml:"peak_month"`
	PeakValue float64   `json:"peak_value" yaml:"peak_value"`
	LowMonth  string    `json:"low_month" yaml:"low_month"`
	LowValue  float64   `json:"low_value" yaml:"low_value"`
	AvgMoM    float64   `json:"avg_mom_growth" yaml:"avg_mom_growth"`
	Total     float64   `json:"total" yaml:"total"`
}

// lagChange is (x[i] − x[i−lag]) / x[i−lag] × 100, 0 where undefined.
func lagChange(xs []float64, lag int) []float64 {
	out := make([]float64, len(xs))
	for i := lag; i < len(xs); i++ {
		out[i] = analysis.Round(analysis.SafeDiv(xs[i]-xs[i-lag], xs[i-lag])*100, 2)
	}
	return out
}

func trendDirection(xs []float64) string {
	if len(xs) < 2 {
		return "insufficient_data"
	}
	k := 3
	if k > len(xs) {
		k = len(xs)
	}
	recent, earlier := analysis.Mean(xs[len(xs)-k:]), analysis.Mean(xs[:k])
	switch {
	case recent > earlier*1.1:
		return "increasing"
	case recent < earlier*0.9:
		return "decreasing"
	}
	return "stable"
}

func growthOf(t *dataset.Table) growthSeries {
	monthly := dataset.Monthly(t)
	values := dataset.Totals(monthly)
	s := growthSeries{
		Months:    dataset.Keys(monthly),
		Values:    values,
		MoM:       lagChange(values, 1),
		YoY:       lagChange(values, 12),
		Direction: trendDirection(values),
		Total:     analysis.Sum(values),
	}
	if len(values) > 1 {
		s.AvgMoM = analysis.Round(analysis.Mean(s.MoM[1:]), 2)
	}
	if len(values) > 0 {
		hi, lo := 0, 0
		for i, v := range values {
			if v > values[hi] {
				hi = i
			}
			if v < values[lo] {
				lo = i
			}
		}
		s.PeakMonth, s.PeakValue = s.Months[hi], values[hi]
		s.LowMonth, s.LowValue = s.Months[lo], values[lo]
	}
	return s
}

// GrowthTrends reports growth rates for every available table.
func GrowthTrends(ctx context.Context, env Env) (*analysis.Result, error) {
	tables, err := optionalTables(ctx, env)
	if err != nil {
		return nil, err
	}
	series := map[string]growthSeries{}
	directions := map[string]any{}
	var steps analysis.Steps
	for _, k := range dataset.Kinds() {
		t, ok := tables[k]
		if !ok {
			continue
		}
		g := growthOf(t)
		series[string(k)] = g
		directions[string(k)] = g.Direction
		steps.Add(fmt.Sprintf("Growth of %s", k), "Monthly totals with MoM and YoY change",
			fmt.Sprintf("%d months", len(g.Months)),
			fmt.Sprintf("%s, avg MoM %+.2f%%, peak %s", g.Direction, g.AvgMoM, g.PeakMonth))
	}
	enr := series[string(dataset.Enrolment)]
	if len(enr.Months) < 2 {
		return analysis.Insufficient(growthMeta, "fewer than 2 months", 2, len(enr.Months)), nil
	}
	steps.Add("Classify Direction", "Mean of the last 3 months against the first 3, ±10%",
		"Monthly series", fmt.Sprintf("Enrolment trend: %s", enr.Direction))

	return analysis.NewResult(analysis.Parts{
		Meta:  growthMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"series": series,
		},
		Final: map[string]any{
			"enrolment_trend":   enr.Direction,
			"avg_mom_growth":    enr.AvgMoM,
			"peak_month":        enr.PeakMonth,
			"low_month":         enr.LowMonth,
			"tables_analyzed":   len(series),
			"trend_by_table":    directions,
			"total_enrolments":  enr.Total,
			"latest_yoy_growth": enr.YoY[len(enr.YoY)-1],
		},
		Risk:     analysis.RiskInfo,
		Decision: fmt.Sprintf("Enrolment volume is %s", enr.Direction),
		Visualization: map[string]any{
			"labels":     enr.Months,
			"values":     enr.Values,
			"mom_growth": enr.MoM,
			"yoy_growth": enr.YoY,
		},
	}), nil
}

var anomalyMeta = analysis.Meta{
	Technique:   "Anomaly Scan",
	Description: "Z-score screening of national monthly series, state totals and district totals.",
	Formula:     "z = (x − μ)/σ | national |z| > 2, state |z| > 1.5, district |z| > 2.5",
}

// Anomaly is one flagged observation.
type Anomaly struct {
	Level       string  `json:"level" yaml:"level"`
	Key         string  `json:"key" yaml:"key"`
	Value       float64 `json:"value" yaml:"value"`
	ZScore      float64 `json:"z_score" yaml:"z_score"`
	Type        string  `json:"anomaly_type" yaml:"anomaly_type"`
	Deviation   float64 `json:"deviation_percent" yaml:"deviation_percent"`
	Severity    string  `json:"severity" yaml:"severity"`
	Explanation string  `json:"explanation" yaml:"explanation"`
}

// zAnomalies flags |z| > threshold using the population deviation. Fewer
// than three values are never flagged.
func zAnomalies(level string, keys []string, values []float64, threshold float64) []Anomaly {
	if len(values) < 3 {
		return nil
	}
	mean := analysis.Mean(values)
	z := analysis.ZScores(values, mean, analysis.StdDev(values))
	var out []Anomaly
	for i, v := range values {
		if math.Abs(z[i]) <= threshold {
			continue
		}
		kind, where := "spike", "above"
		if v < mean {
			kind, where = "drop", "below"
		}
		dev := analysis.Round(analysis.SafeDiv(v-mean, mean)*100, 1)
		sev := string(analysis.RiskMedium)
		if math.Abs(z[i]) > 3 {
			sev = string(analysis.RiskHigh)
		}
		out = append(out, Anomaly{
			Level: level, Key: keys[i], Value: v, ZScore: analysis.Round(z[i], 2),
			Type: kind, Deviation: dev, Severity: sev,
			Explanation: fmt.Sprintf("Significant %s, %.1f%% %s average (z=%.2f)", kind, math.Abs(dev), where, z[i]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].ZScore) > math.Abs(out[j].ZScore) })
	return out
}

// AnomalyScan screens monthly, state and district aggregates for outliers.
func AnomalyScan(ctx context.Context, env Env) (*analysis.Result, error) {
	tables, err := optionalTables(ctx, env)
	if err != nil {
		return nil, err
	}
	var national []Anomaly
	for _, k := range dataset.Kinds() {
		t, ok := tables[k]
		if !ok {
			continue
		}
		monthly := dataset.Monthly(t)
		national = append(national, zAnomalies("national/"+string(k), dataset.Keys(monthly), dataset.Totals(monthly), 2)...)
	}
	enr := tables[dataset.Enrolment]
	states := dataset.By(enr, dataset.StateKey)
	districts := dataset.By(enr, dataset.DistrictKey)
	stateHits := zAnomalies("state", dataset.Keys(states), dataset.Totals(states), 1.5)
	districtHits := zAnomalies("district", dataset.Keys(districts), dataset.Totals(districts), 2.5)

	total := len(national) + len(stateHits) + len(districtHits)
	countRisk, _ := analysis.AssessRisk(float64(total), env.Cal.AnomalyCount, analysis.HigherIsWorse)
	severe := analysis.RiskLow
	for _, a := range national {
		if a.Severity == string(analysis.RiskHigh) {
			severe = analysis.RiskHigh
		}
	}
	risk := analysis.Worst(countRisk, severe)
	decision := "No material anomalies detected"
	switch risk {
	case analysis.RiskHigh:
		decision = "Severe anomalies detected, investigate flagged periods and regions"
	case analysis.RiskMedium:
		decision = "Some anomalies detected, review flagged entries"
	}

	var steps analysis.Steps
	steps.Add("National Monthly Scan", "Flag months with |z| > 2 in each available table",
		fmt.Sprintf("%d tables", len(tables)), fmt.Sprintf("%d national anomalies", len(national)))
	steps.Add("State Scan", "Flag state totals with |z| > 1.5",
		fmt.Sprintf("%d states", len(states)), fmt.Sprintf("%d state anomalies", len(stateHits)))
	steps.Add("District Scan", "Flag district totals with |z| > 2.5",
		fmt.Sprintf("%d districts", len(districts)), fmt.Sprintf("%d district anomalies", len(districtHits)))

	if len(stateHits) > 10 {
		stateHits = stateHits[:10]
	}
	if len(districtHits) > 15 {
		districtHits = districtHits[:15]
	}
	all := append(append(append([]Anomaly{}, national...), stateHits...), districtHits...)
	labels := make([]string, len(all))
	zs := make([]float64, len(all))
	for i, a := range all {
		labels[i], zs[i] = a.Key, a.ZScore
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  anomalyMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"thresholds": map[string]float64{"national": 2, "state": 1.5, "district": 2.5},
		},
		Final: map[string]any{
			"total_national_anomalies": len(national),
			"total_state_anomalies":    len(stateHits),
			"total_district_anomalies": len(districtHits),
			"total_anomalies":          total,
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"labels": labels,
			"values": zs,
		},
		Findings: map[string]any{
			"national_level": national,
			"state_level":    stateHits,
			"district_level": districtHits,
		},
	}), nil
}

var insightsMeta = analysis.Meta{
	Technique:   "Interpreted Insights",
	Description: "Headline metrics with interpreted findings on scale, age mix, update activity and regional spread.",
	Formula:     "share = band / total × 100 | top and bottom states by total",
}

// Insight is one interpreted finding.
type Insight struct {
	Category     string `json:"category" yaml:"category"`
	Finding      string `json:"finding" yaml:"finding"`
	Detail       string `json:"detail" yaml:"detail"`
	Significance string `json:"significance" yaml:"significance"`
}

// Insights turns headline aggregates into narrated findings.
func Insights(ctx context.Context, env Env) (*analysis.Result, error) {
	tables, err := optionalTables(ctx, env)
	if err != nil {
		return nil, err
	}
	enr := tables[dataset.Enrolment]
	total := enr.GrandTotal()
	if enr.Len() == 0 {
		return analysis.Insufficient(insightsMeta, "no enrolment records", 1, 0), nil
	}
	var demoTotal, bioTotal float64
	if t, ok := tables[dataset.Demographic]; ok {
		demoTotal = t.GrandTotal()
	}
	if t, ok := tables[dataset.Biometric]; ok {
		bioTotal = t.GrandTotal()
	}
	st := enr.Stats()
	measures := enr.Schema().Measures
	mix := map[string]float64{}
	for i, m := range measures {
		mix[cohortLabel(m)] = enr.MeasureTotal(i)
	}
	states := dataset.By(enr, dataset.StateKey)
	top := topN(states, 5)
	bottom := bottomN(states, 5)
	adultShare := analysis.SafeDiv(mix["18+"], total) * 100

	findings := []Insight{
		{
			Category:     "Scale",
			Finding:      "Identity coverage at scale",
			Detail:       fmt.Sprintf("%s new enrolments across %d states and %d districts.", analysis.Count(total), st.States, st.Districts),
			Significance: "high",
		},
		{
			Category: "Demographics",
			Finding:  "Age group distribution",
			Detail: fmt.Sprintf("Adults (18+) account for %s enrolments (%s); children 5-17 %s; infants 0-5 %s.",
				analysis.Count(mix["18+"]), analysis.Pct(adultShare), analysis.Count(mix["5-17"]), analysis.Count(mix["0-5"])),
			Significance: "medium",
		},
	}
	if len(tables) == 3 {
		findings = append(findings, Insight{
			Category:     "Updates",
			Finding:      "Update activity indicates active usage",
			Detail:       fmt.Sprintf("%s demographic and %s biometric updates recorded.", analysis.Count(demoTotal), analysis.Count(bioTotal)),
			Significance: "high",
		})
	}
	if len(top) > 0 {
		share := analysis.SafeDiv(analysis.Sum(rankedValues(top)), total) * 100
		findings = append(findings, Insight{
			Category:     "Regional",
			Finding:      "Geographic concentration",
			Detail:       fmt.Sprintf("The top %d states hold %s of enrolments, led by %s.", len(top), analysis.Pct(share), top[0].Key),
			Significance: "medium",
		})
	}
	if len(bottom) > 0 {
		names := rankedKeys(bottom)
		if len(names) > 3 {
			names = names[:3]
		}
		findings = append(findings, Insight{
			Category:     "Saturation",
			Finding:      "Low activity regions need attention",
			Detail:       "Lowest-volume states may be saturated or need targeted outreach: " + strings.Join(names, ", "),
			Significance: "medium",
		})
	}

	var steps analysis.Steps
	steps.Add("Key Metrics", "Totals of each available table",
		fmt.Sprintf("%d tables", len(tables)),
		fmt.Sprintf("Enrolments %s, demographic %s, biometric %s", analysis.Count(total), analysis.Count(demoTotal), analysis.Count(bioTotal)))
	steps.Add("Age Mix", "Enrolments per age band", "Age band columns", analysis.KV(mix, 0))
	steps.Add("Regional Ranking", "Top and bottom 5 states by enrolment",
		fmt.Sprintf("%d states", len(states)), fmt.Sprintf("Leader: %s", top[0].Key))
	steps.Add("Interpret Findings", "Turn aggregates into narrated findings",
		"Metrics above", fmt.Sprintf("%d findings", len(findings)))

	return analysis.NewResult(analysis.Parts{
		Meta:  insightsMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"age_mix":       mix,
			"top_states":    top,
			"bottom_states": bottom,
		},
		Final: map[string]any{
			"total_enrolments":          total,
			"total_demographic_updates": demoTotal,
			"total_biometric_updates":   bioTotal,
			"states_covered":            st.States,
			"districts_covered":         st.Districts,
			"data_period_days":          int(st.Last.Sub(st.First).Hours() / 24),
		},
		Risk:     analysis.RiskInfo,
		Decision: fmt.Sprintf("%d interpreted findings", len(findings)),
		Visualization: map[string]any{
			"labels": rankedKeys(top),
			"values": rankedValues(top),
		},
		Findings: map[string]any{"insights": findings},
	}), nil
}

var genderMeta = analysis.Meta{
	Technique:   "Gender Parity Analysis",
	Description: "Ratio of female to male enrolments, or an audit finding when the data carries no gender columns.",
	Formula:     "parity index = female / male (target 0.95–1.05)",
}

// GenderParity audits the loaded headers for gender disaggregation.
func GenderParity(ctx context.Context, env Env) (*analysis.Result, error) {
	tables, err := optionalTables(ctx, env)
	if err != nil {
		return nil, err
	}
	var found []string
	for _, k := range dataset.Kinds() {
		t, ok := tables[k]
		if !ok {
			continue
		}
		for _, h := range t.Headers() {
			if strings.Contains(h, "gender") || strings.Contains(h, "female") || strings.HasPrefix(h, "male") || strings.Contains(h, "_male") {
				found = append(found, string(k)+"."+h)
			}
		}
	}

	var steps analysis.Steps
	if len(found) == 0 {
		steps.Add("Check Data Availability", "Scan table headers for gender-disaggregated columns",
			"Dataset schema", "Gender columns NOT FOUND")
		steps.Add("Audit Finding", "Record the missing demographic attribute",
			"Schema validation", "Critical gap identified")
		return analysis.NewResult(analysis.Parts{
			Meta:  genderMeta,
			Steps: steps,
			Final: map[string]any{
				"status":         "DATA_UNAVAILABLE",
				"recommendation": "Update data collection to include gender disaggregation",
			},
			Risk:     analysis.RiskHigh,
			Decision: "Cannot assess gender parity, compliance risk",
		}), nil
	}

	steps.Add("Check Data Availability", "Scan table headers for gender-disaggregated columns",
		"Dataset schema", fmt.Sprintf("Found: %s", strings.Join(found, ", ")))
	steps.Add("Audit Finding", "Columns are present but not part of the analysed schema",
		"Schema validation", "Parity index not computed")
	return analysis.NewResult(analysis.Parts{
		Meta:  genderMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"gender_columns": found,
		},
		Final: map[string]any{
			"status":         "COLUMNS_PRESENT",
			"recommendation": "Add the gender columns to the table schema to compute the parity index",
		},
		Risk:     analysis.RiskMedium,
		Decision: "Gender columns present, extend the schema to measure parity",
	}), nil
}
