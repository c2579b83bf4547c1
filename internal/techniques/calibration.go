package techniques

import (
	"sort"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
)

// Calibration holds every risk threshold used by the techniques. The
// defaults carry no statistical derivation; they are tunable through the
// config file's thresholds section.
type Calibration struct {
	BenfordP           analysis.Band
	OutlierRate        analysis.Band
	DuplicateRate      analysis.Band
	ExactDuplicateSets analysis.Band
	ForensicScore      analysis.Band
	HHI                analysis.Band
	ParetoShare        analysis.Band
	Utilization        analysis.Band
	BalanceScore       analysis.Band
	Yield              analysis.Band
	RegressionR2       analysis.Band
	ScenarioVolatility analysis.Band
	SurvivalMedianDays analysis.Band
	TopDecileShare     analysis.Band
	AnomalyCount       analysis.Band

	OutlierZ              float64
	HotspotZ              float64
	ColdspotZ             float64
	WeekendRatioHigh      float64
	WeekendRatioLow       float64
	MonthEndSurge         float64
	BottleneckUtilization float64
	ThroughputRatio       float64
	ThroughputTrend       float64
	ForecastR2            float64
	ForecastDecline       float64
	SaturationFloor       float64
	ExpectedStates        int
}

// DefaultCalibration returns the shipped thresholds.
func DefaultCalibration() Calibration {
	return Calibration{
		BenfordP:           analysis.Band{High: 0.01, Medium: 0.05},
		OutlierRate:        analysis.Band{High: 5, Medium: 2},
		DuplicateRate:      analysis.Band{High: 5, Medium: 1},
		ExactDuplicateSets: analysis.Band{High: 100, Medium: 20},
		ForensicScore:      analysis.Band{High: 70, Medium: 85},
		HHI:                analysis.Band{High: 10000, Medium: 1500},
		ParetoShare:        analysis.Band{High: 15, Medium: 30},
		Utilization:        analysis.Band{High: 0.9, Medium: 0.7},
		BalanceScore:       analysis.Band{High: 40, Medium: 70},
		Yield:              analysis.Band{High: 30, Medium: 60},
		RegressionR2:       analysis.Band{High: 0.5, Medium: 0.8},
		ScenarioVolatility: analysis.Band{High: 2, Medium: 1},
		SurvivalMedianDays: analysis.Band{High: 30, Medium: 14},
		TopDecileShare:     analysis.Band{High: 1, Medium: 0.6},
		AnomalyCount:       analysis.Band{High: 10, Medium: 3},

		OutlierZ:              2.5,
		HotspotZ:              2,
		ColdspotZ:             -1,
		WeekendRatioHigh:      1.2,
		WeekendRatioLow:       0.5,
		MonthEndSurge:         30,
		BottleneckUtilization: 0.85,
		ThroughputRatio:       0.7,
		ThroughputTrend:       -20,
		ForecastR2:            0.5,
		ForecastDecline:       0.1,
		SaturationFloor:       0.2,
		ExpectedStates:        36,
	}
}

type bandRef struct {
	band *analysis.Band
	dir  analysis.Direction
}

func (c *Calibration) bands() map[string]bandRef {
	return map[string]bandRef{
		"benford_p":            {&c.BenfordP, analysis.LowerIsWorse},
		"outlier_rate":         {&c.OutlierRate, analysis.HigherIsWorse},
		"duplicate_rate":       {&c.DuplicateRate, analysis.HigherIsWorse},
		"exact_duplicate_sets": {&c.ExactDuplicateSets, analysis.HigherIsWorse},
		"forensic_score":       {&c.ForensicScore, analysis.LowerIsWorse},
		"hhi":                  {&c.HHI, analysis.HigherIsWorse},
		"pareto_share":         {&c.ParetoShare, analysis.LowerIsWorse},
		"utilization":          {&c.Utilization, analysis.HigherIsWorse},
		"balance_score":        {&c.BalanceScore, analysis.LowerIsWorse},
		"yield":                {&c.Yield, analysis.LowerIsWorse},
		"regression_r2":        {&c.RegressionR2, analysis.AtMostIsWorse},
		"scenario_volatility":  {&c.ScenarioVolatility, analysis.HigherIsWorse},
		"survival_median_days": {&c.SurvivalMedianDays, analysis.HigherIsWorse},
		"top_decile_share":     {&c.TopDecileShare, analysis.HigherIsWorse},
		"anomaly_count":        {&c.AnomalyCount, analysis.HigherIsWorse},
	}
}

// BandNames lists the thresholds Override accepts.
func (c *Calibration) BandNames() []string {
	m := c.bands()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Override replaces the named band after checking its ordering.
func (c *Calibration) Override(name string, b analysis.Band) error {
	ref, ok := c.bands()[name]
	if !ok {
		return analysis.InvalidParameter("threshold", name, c.BandNames())
	}
	if err := b.Check(ref.dir); err != nil {
		return err
	}
	*ref.band = b
	return nil
}

// Band returns the named threshold band.
func (c *Calibration) Band(name string) (analysis.Band, error) {
	ref, ok := c.bands()[name]
	if !ok {
		return analysis.Band{}, analysis.InvalidParameter("threshold", name, c.BandNames())
	}
	return *ref.band, nil
}
