package techniques

import (
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

var (
	enrolmentOnly = []dataset.Kind{dataset.Enrolment}
	enrolmentDemo = []dataset.Kind{dataset.Enrolment, dataset.Demographic}
	allKinds      = []dataset.Kind{dataset.Enrolment, dataset.Demographic, dataset.Biometric}
)

func init() {
	for _, t := range []Technique{
		{"univariate", univariateMeta.Technique, CategoryDescriptive, enrolmentOnly, Univariate},
		{"timeseries", timeseriesMeta.Technique, CategoryDescriptive, enrolmentOnly, Timeseries},
		{"profile", profileMeta.Technique, CategoryDescriptive, allKinds, Profile},

		{"benford", benfordMeta.Technique, CategoryFraud, enrolmentOnly, Benford},
		{"outliers", outlierMeta.Technique, CategoryFraud, enrolmentOnly, Outliers},
		{"patterns", patternMeta.Technique, CategoryFraud, enrolmentOnly, Patterns},
		{"duplicates", duplicateMeta.Technique, CategoryFraud, enrolmentOnly, Duplicates},
		{"forensic", forensicMeta.Technique, CategoryFraud, enrolmentOnly, Forensic},

		{"clusters", clusterMeta.Technique, CategoryGeographic, enrolmentOnly, Clusters},
		{"hotspots", hotspotMeta.Technique, CategoryGeographic, enrolmentOnly, Hotspots},
		{"cohorts", cohortMeta.Technique, CategoryGeographic, enrolmentOnly, Cohorts},
		{"coverage-gap", gapMeta.Technique, CategoryGeographic, enrolmentOnly, CoverageGap},
		{"gender-parity", genderMeta.Technique, CategoryGeographic, allKinds, GenderParity},

		{"pareto", paretoMeta.Technique, CategoryOperations, enrolmentOnly, Pareto},
		{"queue", queueMeta.Technique, CategoryOperations, enrolmentOnly, Queue},
		{"load-balance", loadBalanceMeta.Technique, CategoryOperations, enrolmentOnly, LoadBalance},
		{"throughput", throughputMeta.Technique, CategoryOperations, enrolmentOnly, Throughput},
		{"yield", yieldMeta.Technique, CategoryOperations, allKinds, Yield},

		{"forecast", forecastMeta.Technique, CategoryPredictive, enrolmentOnly, Forecast},
		{"regression", regressionMeta.Technique, CategoryPredictive, enrolmentOnly, Regression},
		{"scenarios", scenarioMeta.Technique, CategoryPredictive, enrolmentOnly, Scenarios},
		{"survival", survivalMeta.Technique, CategoryPredictive, enrolmentDemo, Survival},

		{"benchmarking", benchmarkMeta.Technique, CategoryQuality, enrolmentOnly, Benchmarking},
		{"deciles", decileMeta.Technique, CategoryQuality, enrolmentOnly, Deciles},

		{"growth-trends", growthMeta.Technique, CategoryTrends, allKinds, GrowthTrends},
		{"anomaly-scan", anomalyMeta.Technique, CategoryTrends, allKinds, AnomalyScan},
		{"insights", insightsMeta.Technique, CategoryTrends, allKinds, Insights},
	} {
		register(t)
	}
}
