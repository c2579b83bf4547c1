package techniques

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

var benfordMeta = analysis.Meta{
	Technique:   "Benford's Law Analysis",
	Description: "First-digit distribution of record volumes tested against Benford's expected frequencies.",
	Formula:     "P(d) = log10(1 + 1/d), d ∈ [1,9] | χ² = Σ (O − E)² / E, 8 df",
}

const benfordDF = 8

// BenfordExpected returns P(d) for d = 1..9 at index d−1.
func BenfordExpected() [9]float64 {
	var p [9]float64
	for d := 1; d <= 9; d++ {
		p[d-1] = math.Log10(1 + 1/float64(d))
	}
	return p
}

// leadingDigit returns the first significant digit of v ≥ 1.
func leadingDigit(v float64) int {
	s := strconv.FormatFloat(math.Floor(v), 'f', 0, 64)
	return int(s[0] - '0')
}

// Benford runs a first-digit chi-square goodness-of-fit test.
func Benford(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	var counts [9]float64
	n := 0
	t.Each(func(r dataset.Record) {
		if r.Total >= 1 {
			counts[leadingDigit(r.Total)-1]++
			n++
		}
	})
	if n == 0 {
		return analysis.Insufficient(benfordMeta, "no positive values", 1, 0), nil
	}

	expected := BenfordExpected()
	observedFreq := map[string]float64{}
	expectedFreq := map[string]float64{}
	labels := make([]string, 9)
	obsPct := make([]float64, 9)
	expPct := make([]float64, 9)
	chi := 0.0
	for i := 0; i < 9; i++ {
		key := strconv.Itoa(i + 1)
		o := counts[i] / float64(n)
		observedFreq[key] = o
		expectedFreq[key] = expected[i]
		e := expected[i] * float64(n)
		chi += (counts[i] - e) * (counts[i] - e) / e
		labels[i] = key
		obsPct[i] = analysis.Round(o*100, 2)
		expPct[i] = analysis.Round(expected[i]*100, 2)
	}
	p := distuv.ChiSquared{K: benfordDF}.Survival(chi)
	p = analysis.Finite(p)

	risk, decision := analysis.AssessRisk(p, env.Cal.BenfordP, analysis.LowerIsWorse)
	insight := "First digits follow Benford's Law; no manipulation signal."
	switch risk {
	case analysis.RiskHigh:
		insight = "First-digit frequencies deviate strongly from Benford's Law; possible fabricated or rounded entries."
	case analysis.RiskMedium:
		insight = "Moderate deviation from Benford's Law."
	}

	var steps analysis.Steps
	steps.Add("Extract First Digits", "Take the leading digit of every positive record total",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%s values with a leading digit", analysis.Count(float64(n))))
	steps.Add("Calculate Observed Frequencies", "Share of each digit 1–9",
		"Digit counts", analysis.KV(observedFreq, 4)).Details = counts
	steps.Add("Calculate Expected Frequencies", "Benford's P(d) = log10(1 + 1/d)",
		"Digits 1–9", analysis.KV(expectedFreq, 4))
	steps.Add("Chi-Square Test", "Goodness of fit against the expected distribution",
		fmt.Sprintf("df=%d", benfordDF),
		fmt.Sprintf("χ²=%.4f, p=%.6f", chi, p))

	return analysis.NewResult(analysis.Parts{
		Meta:  benfordMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"observed_frequencies": observedFreq,
			"expected_frequencies": expectedFreq,
			"sample_size":          n,
		},
		Final: map[string]any{
			"chi_square":         analysis.Round(chi, 4),
			"p_value":            analysis.Round(p, 6),
			"degrees_of_freedom": benfordDF,
		},
		Risk:     risk,
		Decision: decision,
		Insight:  insight,
		Visualization: map[string]any{
			"labels":   labels,
			"observed": obsPct,
			"expected": expPct,
		},
	}), nil
}

var outlierMeta = analysis.Meta{
	Technique:   "Statistical Outlier Detection",
	Description: "District volumes flagged only when both the Z-score and the IQR fence agree.",
	Formula:     "z = (x − μ)/σ, |z| > 2.5 | x ∉ [Q1 − 1.5·IQR, Q3 + 1.5·IQR] | outlier = z-flag ∧ IQR-flag",
}

// outlierScan holds the per-method flags over one vector.
type outlierScan struct {
	Mean, SD     float64
	Q1, Q3, IQR  float64
	Lower, Upper float64
	Z            []float64
	ZFlagged     []int
	IQRFlagged   []int
	Confirmed    []int
}

func scanOutliers(values []float64, zThreshold float64) outlierScan {
	s := outlierScan{Mean: analysis.Mean(values), SD: analysis.StdDev(values)}
	sorted := analysis.Sorted(values)
	s.Q1 = analysis.Quantile(sorted, 0.25)
	s.Q3 = analysis.Quantile(sorted, 0.75)
	s.IQR = s.Q3 - s.Q1
	s.Lower = s.Q1 - 1.5*s.IQR
	s.Upper = s.Q3 + 1.5*s.IQR
	s.Z = analysis.ZScores(values, s.Mean, s.SD)
	for i, v := range values {
		zf := math.Abs(s.Z[i]) > zThreshold
		qf := v < s.Lower || v > s.Upper
		if zf {
			s.ZFlagged = append(s.ZFlagged, i)
		}
		if qf {
			s.IQRFlagged = append(s.IQRFlagged, i)
		}
		if zf && qf {
			s.Confirmed = append(s.Confirmed, i)
		}
	}
	return s
}

type flaggedDistrict struct {
	District string  `json:"district" yaml:"district"`
	Total    float64 `json:"total" yaml:"total"`
	ZScore   float64 `json:"z_score" yaml:"z_score"`
}

// Outliers flags anomalous district totals.
func Outliers(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	districts := dataset.By(t, dataset.DistrictKey)
	if len(districts) < 3 {
		return analysis.Insufficient(outlierMeta, "fewer than 3 districts", 3, len(districts)), nil
	}
	values := dataset.Totals(districts)
	s := scanOutliers(values, env.Cal.OutlierZ)
	rate := float64(len(s.Confirmed)) / float64(len(values)) * 100

	flagged := make([]flaggedDistrict, 0, len(s.Confirmed))
	for _, i := range s.Confirmed {
		flagged = append(flagged, flaggedDistrict{District: districts[i].Key, Total: values[i], ZScore: analysis.Round(s.Z[i], 2)})
	}
	sort.Slice(flagged, func(i, j int) bool { return math.Abs(flagged[i].ZScore) > math.Abs(flagged[j].ZScore) })
	if len(flagged) > 15 {
		flagged = flagged[:15]
	}

	risk, decision := analysis.AssessRisk(rate, env.Cal.OutlierRate, analysis.HigherIsWorse)

	var steps analysis.Steps
	steps.Add("Aggregate by District", "Sum enrolments per (state, district)",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d districts", len(values)))
	steps.Add("Z-Score Method", fmt.Sprintf("Flag |z| > %.1f using the population standard deviation", env.Cal.OutlierZ),
		fmt.Sprintf("μ=%s, σ=%s", analysis.Num(s.Mean, 1), analysis.Num(s.SD, 1)),
		fmt.Sprintf("%d flagged", len(s.ZFlagged)))
	steps.Add("IQR Method", "Flag values outside Q1 − 1.5·IQR and Q3 + 1.5·IQR",
		fmt.Sprintf("Q1=%s, Q3=%s", analysis.Num(s.Q1, 1), analysis.Num(s.Q3, 1)),
		fmt.Sprintf("%d flagged, bounds [%s, %s]", len(s.IQRFlagged), analysis.Num(s.Lower, 0), analysis.Num(s.Upper, 0)))
	steps.Add("Combine Methods", "Keep districts flagged by both methods",
		"Z-flags ∧ IQR-flags",
		fmt.Sprintf("%d confirmed, rate %s", len(s.Confirmed), analysis.Pct(rate)))

	counts, edges := analysis.Histogram(values, 30)
	labels := make([]string, len(flagged))
	flaggedVals := make([]float64, len(flagged))
	zs := make([]float64, len(flagged))
	for i, f := range flagged {
		labels[i], flaggedVals[i], zs[i] = f.District, f.Total, f.ZScore
	}
	return analysis.NewResult(analysis.Parts{
		Meta:  outlierMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"z_score_stats": map[string]float64{"mean": analysis.Round(s.Mean, 2), "std": analysis.Round(s.SD, 2), "threshold": env.Cal.OutlierZ},
			"iqr_stats":     map[string]float64{"q1": analysis.Round(s.Q1, 2), "q3": analysis.Round(s.Q3, 2), "iqr": analysis.Round(s.IQR, 2)},
			"iqr_bounds":    map[string]float64{"lower": analysis.Round(s.Lower, 2), "upper": analysis.Round(s.Upper, 2)},
		},
		Final: map[string]any{
			"total_districts":      len(values),
			"z_score_outliers":     len(s.ZFlagged),
			"iqr_outliers":         len(s.IQRFlagged),
			"confirmed_outliers":   len(s.Confirmed),
			"outlier_rate_percent": analysis.Round(rate, 2),
		},
		Risk:     risk,
		Decision: decision,
		Insight:  fmt.Sprintf("%d of %d districts are extreme by both methods.", len(s.Confirmed), len(values)),
		Visualization: map[string]any{
			"histogram": map[string]any{"values": counts, "bin_edges": roundAll(edges, 0)},
			"bounds":    map[string]float64{"lower": analysis.Round(s.Lower, 0), "upper": analysis.Round(s.Upper, 0), "mean": analysis.Round(s.Mean, 0)},
			"labels":    labels,
			"values":    flaggedVals,
			"z_scores":  zs,
		},
		Findings: map[string]any{"flagged_districts": flagged},
	}), nil
}

var patternMeta = analysis.Meta{
	Technique:   "Temporal Pattern Recognition",
	Description: "Weekday and month-end deviations in daily volumes that suggest batching or target-driven entry.",
	Formula:     "weekend ratio = mean(weekend) / mean(weekday) | surge = (mean(day ≥ 25) − mean(other)) / mean(other) × 100",
}

type detectedPattern struct {
	Pattern  string  `json:"pattern" yaml:"pattern"`
	Value    float64 `json:"value" yaml:"value"`
	Severity string  `json:"severity" yaml:"severity"`
}

// Patterns looks for weekend and month-end anomalies in daily totals.
func Patterns(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	daily := dataset.Daily(t)
	if len(daily) < 7 {
		return analysis.Insufficient(patternMeta, "fewer than 7 days", 7, len(daily)), nil
	}

	var weekend, weekday, monthEnd, other []float64
	var dowSum, dowN [7]float64
	for _, g := range daily {
		d := mondayIndex(g.Date)
		dowSum[d] += g.Total
		dowN[d]++
		if d >= 5 {
			weekend = append(weekend, g.Total)
		} else {
			weekday = append(weekday, g.Total)
		}
		if g.Date.Day() >= 25 {
			monthEnd = append(monthEnd, g.Total)
		} else {
			other = append(other, g.Total)
		}
	}
	overall := analysis.Mean(dataset.Totals(daily))
	weekdayMean, weekendMean := analysis.Mean(weekday), analysis.Mean(weekend)
	ratio := 1.0
	if len(weekend) > 0 && len(weekday) > 0 {
		ratio = analysis.SafeDiv(weekendMean, weekdayMean)
	}
	surge := 0.0
	if len(monthEnd) > 0 && len(other) > 0 {
		surge = analysis.SafeDiv(analysis.Mean(monthEnd)-analysis.Mean(other), analysis.Mean(other)) * 100
	}

	var found []detectedPattern
	switch {
	case ratio > env.Cal.WeekendRatioHigh:
		found = append(found, detectedPattern{"Weekend Spike", analysis.Round(ratio, 3), string(analysis.RiskHigh)})
	case ratio < env.Cal.WeekendRatioLow:
		found = append(found, detectedPattern{"Weekend Drop", analysis.Round(ratio, 3), string(analysis.RiskMedium)})
	}
	if surge > env.Cal.MonthEndSurge {
		found = append(found, detectedPattern{"Month-End Surge", analysis.Round(surge, 2), string(analysis.RiskMedium)})
	}

	risk := analysis.RiskLow
	decision := "No suspicious temporal patterns detected"
	for _, p := range found {
		if p.Severity == string(analysis.RiskHigh) {
			risk = analysis.RiskHigh
		} else if risk != analysis.RiskHigh {
			risk = analysis.RiskMedium
		}
	}
	if len(found) > 0 {
		decision = fmt.Sprintf("%d suspicious pattern(s) detected, review entry practices", len(found))
	}

	labels := make([]string, 7)
	means := make([]float64, 7)
	deviations := make([]float64, 7)
	for d := 0; d < 7; d++ {
		labels[d] = weekdayNames[d]
		means[d] = analysis.Round(analysis.SafeDiv(dowSum[d], dowN[d]), 0)
		deviations[d] = analysis.Round(analysis.SafeDiv(analysis.SafeDiv(dowSum[d], dowN[d])-overall, overall)*100, 2)
	}

	var steps analysis.Steps
	steps.Add("Aggregate Daily Volumes", "Sum enrolments per calendar date",
		fmt.Sprintf("%s records", analysis.Count(float64(t.Len()))),
		fmt.Sprintf("%d days, mean %s", len(daily), analysis.Num(overall, 1)))
	steps.Add("Weekday vs Weekend", "Compare mean weekend volume to mean weekday volume",
		fmt.Sprintf("%d weekday, %d weekend days", len(weekday), len(weekend)),
		fmt.Sprintf("ratio=%.3f", ratio))
	steps.Add("Month-End Effect", "Compare days 25–31 against the rest of the month",
		fmt.Sprintf("%d month-end days", len(monthEnd)),
		fmt.Sprintf("surge=%s", analysis.Pct(surge)))
	steps.Add("Classify Patterns", "Apply weekend and month-end thresholds",
		fmt.Sprintf("weekend band (%.2f, %.2f), surge > %.0f%%", env.Cal.WeekendRatioLow, env.Cal.WeekendRatioHigh, env.Cal.MonthEndSurge),
		fmt.Sprintf("%d pattern(s)", len(found))).Details = found

	return analysis.NewResult(analysis.Parts{
		Meta:  patternMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"overall_mean":            analysis.Round(overall, 2),
			"weekday_mean":            analysis.Round(weekdayMean, 2),
			"weekend_mean":            analysis.Round(weekendMean, 2),
			"weekend_ratio":           analysis.Round(ratio, 3),
			"month_end_surge_percent": analysis.Round(surge, 2),
		},
		Final: map[string]any{
			"patterns_detected":    len(found),
			"day_of_week_variance": analysis.Round(analysis.SampleStdDev(deviations), 2),
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"day_of_week": map[string]any{"labels": labels, "values": means, "deviations": deviations},
		},
		Findings: map[string]any{"patterns": found},
	}), nil
}

var duplicateMeta = analysis.Meta{
	Technique:   "Identity Resolution & Duplicate Detection",
	Description: "Collisions on the (date, location) key and exact repeats of the full value signature.",
	Formula:     "duplicate rate = Σ(size − 1) over exact (date, location, values) groups of size > 1 / records × 100",
}

type repeatedValue struct {
	Value       float64 `json:"value" yaml:"value"`
	Occurrences int     `json:"occurrences" yaml:"occurrences"`
}

// Duplicates counts key collisions and exact repeats.
func Duplicates(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	if n == 0 {
		return analysis.Insufficient(duplicateMeta, "no records", 1, 0), nil
	}
	type exactKey struct {
		loc      string
		measures [dataset.MaxMeasures]float64
	}
	locations := map[string]struct{}{}
	locKeys := map[string]int{}
	exact := map[exactKey]int{}
	valueCounts := map[float64]int{}
	t.Each(func(r dataset.Record) {
		loc := r.State + "|" + r.District + "|" + r.Pincode
		locations[loc] = struct{}{}
		dl := r.Date.Format("2006-01-02") + "|" + loc
		locKeys[dl]++
		exact[exactKey{dl, r.Measures}]++
		valueCounts[r.Total]++
	})

	multiCases, multiRecords := 0, 0
	for _, c := range locKeys {
		if c > 1 {
			multiCases++
			multiRecords += c
		}
	}
	exactSets, exactExtra := 0, 0
	for _, c := range exact {
		if c > 1 {
			exactSets++
			exactExtra += c - 1
		}
	}
	var repeated []repeatedValue
	for v, c := range valueCounts {
		if c > 100 {
			repeated = append(repeated, repeatedValue{v, c})
		}
	}
	sort.Slice(repeated, func(i, j int) bool {
		if repeated[i].Occurrences != repeated[j].Occurrences {
			return repeated[i].Occurrences > repeated[j].Occurrences
		}
		return repeated[i].Value < repeated[j].Value
	})
	suspicious := len(repeated)
	if len(repeated) > 5 {
		repeated = repeated[:5]
	}

	rate := float64(exactExtra) / float64(n) * 100
	multiRate := float64(multiRecords) / float64(n) * 100
	rateRisk, _ := analysis.AssessRisk(rate, env.Cal.DuplicateRate, analysis.HigherIsWorse)
	setRisk, _ := analysis.AssessRisk(float64(exactSets), env.Cal.ExactDuplicateSets, analysis.HigherIsWorse)
	risk := analysis.Worst(rateRisk, setRisk)
	decision := "Duplicate rate within acceptable limits"
	switch risk {
	case analysis.RiskHigh:
		decision = "Significant duplicate patterns detected, data integrity review required"
	case analysis.RiskMedium:
		decision = "Some duplicate patterns found, recommend investigation"
	}

	var steps analysis.Steps
	steps.Add("Create Location Keys", "Combine state, district and pincode",
		fmt.Sprintf("%s records", analysis.Count(float64(n))),
		fmt.Sprintf("%s unique locations", analysis.Count(float64(len(locations)))))
	steps.Add("Identify Multi-Entry Locations", "Locations with several records on the same day",
		"Date + location keys",
		fmt.Sprintf("%s multi-entry cases covering %s records", analysis.Count(float64(multiCases)), analysis.Count(float64(multiRecords))))
	steps.Add("Detect Exact Value Duplicates", "Records identical in date, location and every measure",
		"Date + location + value signature",
		fmt.Sprintf("%d exact duplicate sets, %d surplus records", exactSets, exactExtra))
	steps.Add("Analyze Value Repetition", "Totals occurring more than 100 times",
		"Value distribution",
		fmt.Sprintf("%d repeated values", suspicious))
	steps.Add("Calculate Duplicate Rate", "Surplus exact copies over all records",
		fmt.Sprintf("surplus=%d, total=%d", exactExtra, n),
		fmt.Sprintf("rate=%.2f%%", rate))

	return analysis.NewResult(analysis.Parts{
		Meta:  duplicateMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"total_records":         n,
			"unique_locations":      len(locations),
			"multi_entry_cases":     multiCases,
			"multi_entry_records":   multiRecords,
			"multi_entry_rate":      analysis.Round(multiRate, 2),
			"exact_duplicate_sets":  exactSets,
			"exact_surplus_records": exactExtra,
		},
		Final: map[string]any{
			"duplicate_rate_percent": analysis.Round(rate, 2),
			"suspicious_values":      suspicious,
			"integrity_score":        analysis.Round(100-rate, 2),
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"duplicate_breakdown": map[string]any{
				"labels": []string{"Clean Records", "Multi-Entry", "Exact Duplicates"},
				"values": []float64{float64(n - multiRecords), float64(multiRecords), float64(exactExtra)},
			},
		},
		Findings: map[string]any{"repeated_values": repeated},
	}), nil
}

var forensicMeta = analysis.Meta{
	Technique:   "Forensic Analytics",
	Description: "Weighted integrity index over completeness, range validity, temporal consistency, coverage and normality.",
	Formula:     "score = 0.25·completeness + 0.20·range + 0.20·temporal + 0.15·coverage + 0.20·normality",
}

var forensicWeights = map[string]float64{
	"completeness":   0.25,
	"range_validity": 0.20,
	"temporal":       0.20,
	"coverage":       0.15,
	"normality":      0.20,
}

// Forensic computes the composite integrity score of the enrolment table.
func Forensic(ctx context.Context, env Env) (*analysis.Result, error) {
	t, err := load(ctx, env, dataset.Enrolment)
	if err != nil {
		return nil, err
	}
	st := t.Stats()
	if st.Rows == 0 {
		return analysis.Insufficient(forensicMeta, "no records", 1, 0), nil
	}

	completeness := 100 * (1 - analysis.SafeDiv(float64(st.DefaultedCells), float64(st.Cells)))
	numericCells := float64(st.Rows * len(t.Schema().Measures))
	rangeValidity := 100 * (1 - analysis.SafeDiv(float64(st.NegativeCells), numericCells))

	daily := dataset.Daily(t)
	perDay := make([]float64, len(daily))
	for i, g := range daily {
		perDay[i] = float64(g.Count)
	}
	temporal := 100.0
	if len(perDay) > 1 {
		cv := analysis.SafeDiv(analysis.SampleStdDev(perDay), analysis.Mean(perDay)) * 100
		temporal = math.Max(0, 100-cv)
	}
	expected := env.Cal.ExpectedStates
	if expected <= 0 {
		expected = 36
	}
	coverage := math.Min(100, float64(st.States)/float64(expected)*100)
	normality := 50.0
	values := t.Values()
	if len(values) > 100 {
		normality = math.Max(0, 100-math.Abs(analysis.Skewness(values))*20)
	}

	score := completeness*forensicWeights["completeness"] +
		rangeValidity*forensicWeights["range_validity"] +
		temporal*forensicWeights["temporal"] +
		coverage*forensicWeights["coverage"] +
		normality*forensicWeights["normality"]

	risk, _ := analysis.AssessRisk(score, env.Cal.ForensicScore, analysis.LowerIsWorse)
	decision := "Data integrity is strong, suitable for analytical use"
	switch risk {
	case analysis.RiskHigh:
		decision = "Significant data quality concerns, thorough investigation required"
	case analysis.RiskMedium:
		decision = "Some data quality issues detected, review before critical decisions"
	}

	var recs []string
	if completeness < 90 {
		recs = append(recs, "Address missing data in key fields")
	}
	if rangeValidity < 95 {
		recs = append(recs, "Investigate negative or invalid values")
	}
	if temporal < 80 {
		recs = append(recs, "Review temporal data consistency")
	}
	if coverage < 80 {
		recs = append(recs, "Expand geographic data coverage")
	}
	if normality < 60 {
		recs = append(recs, "Investigate statistical distribution anomalies")
	}

	var steps analysis.Steps
	steps.Add("Data Completeness Analysis", "Share of cells that did not need a default",
		fmt.Sprintf("cells=%s, defaulted=%s", analysis.Count(float64(st.Cells)), analysis.Count(float64(st.DefaultedCells))),
		fmt.Sprintf("Completeness: %s", analysis.Pct(completeness))).Details = forensicWeights["completeness"]
	steps.Add("Value Range Validity", "Share of numeric cells that are non-negative",
		fmt.Sprintf("%d negative cells", st.NegativeCells),
		fmt.Sprintf("Validity: %s", analysis.Pct(rangeValidity))).Details = forensicWeights["range_validity"]
	steps.Add("Temporal Consistency", "Variation of daily record counts",
		fmt.Sprintf("%d days", len(daily)),
		fmt.Sprintf("Temporal score: %s", analysis.Pct(temporal))).Details = forensicWeights["temporal"]
	steps.Add("Geographic Coverage", "States present against the expected count",
		fmt.Sprintf("expected=%d, actual=%d", expected, st.States),
		fmt.Sprintf("Coverage: %s", analysis.Pct(coverage))).Details = forensicWeights["coverage"]
	steps.Add("Statistical Normality", "Skewness penalty on record totals (neutral 50 for ≤100 records)",
		fmt.Sprintf("n=%s", analysis.Count(float64(len(values)))),
		fmt.Sprintf("Normality: %s", analysis.Pct(normality))).Details = forensicWeights["normality"]
	steps.Add("Calculate Overall Score", "Weighted sum of the five metrics",
		"Metric scores with weights",
		fmt.Sprintf("Overall: %s", analysis.Pct(score)))

	return analysis.NewResult(analysis.Parts{
		Meta:  forensicMeta,
		Steps: steps,
		Intermediate: map[string]any{
			"completeness_score":   analysis.Round(completeness, 2),
			"range_validity_score": analysis.Round(rangeValidity, 2),
			"temporal_score":       analysis.Round(temporal, 2),
			"coverage_score":       analysis.Round(coverage, 2),
			"normality_score":      analysis.Round(normality, 2),
			"weights":              forensicWeights,
		},
		Final: map[string]any{
			"overall_integrity_score": analysis.Round(score, 2),
			"total_records_analyzed":  st.Rows,
			"states_covered":          st.States,
			"date_range_days":         len(daily),
		},
		Risk:     risk,
		Decision: decision,
		Visualization: map[string]any{
			"radar_chart": map[string]any{
				"labels": []string{"Completeness", "Range Validity", "Temporal", "Coverage", "Normality"},
				"values": []float64{
					analysis.Round(completeness, 1), analysis.Round(rangeValidity, 1), analysis.Round(temporal, 1),
					analysis.Round(coverage, 1), analysis.Round(normality, 1),
				},
			},
		},
		Findings: map[string]any{"recommendations": recs},
	}), nil
}
