package dispatch

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
)

// projection is what a projector extracts from visualization_data.
type projection struct {
	chartType string
	labels    []string
	datasets  []Dataset
}

type projector func(v map[string]any) projection

var projectors = map[string]projector{
	"univariate": func(v map[string]any) projection {
		h := sub(v, "histogram")
		counts := floats(h, "values")
		edges := floats(h, "bin_edges")
		labels := make([]string, len(counts))
		for i := range counts {
			if i < len(edges) {
				labels[i] = fmt.Sprintf("%.0f", edges[i])
			}
		}
		return projection{"histogram", labels, []Dataset{{"Records", counts}}}
	},
	"timeseries": func(v map[string]any) projection {
		return projection{"line", strs(v, "dates"), []Dataset{
			{"Observed", floats(v, "observed")},
			{"Trend", floats(v, "trend")},
		}}
	},
	"benford": func(v map[string]any) projection {
		return projection{"bar", strs(v, "labels"), []Dataset{
			{"Observed %", floats(v, "observed")},
			{"Expected %", floats(v, "expected")},
		}}
	},
	"outliers": func(v map[string]any) projection {
		if labels := strs(v, "labels"); len(labels) > 0 {
			return projection{"bar", labels, []Dataset{{"Flagged total", floats(v, "values")}}}
		}
		h := sub(v, "histogram")
		return projection{"histogram", edgeLabels(floats(h, "bin_edges")), []Dataset{{"Districts", floats(h, "values")}}}
	},
	"queue": func(v map[string]any) projection {
		values := floats(v, "values")
		return projection{"line", strs(v, "labels"), []Dataset{
			{"Daily enrolments", values},
			{"Capacity", repeat(scalar(v, "capacity_line"), len(values))},
		}}
	},
	"throughput": func(v map[string]any) projection {
		values := floats(v, "values")
		return projection{"line", strs(v, "labels"), []Dataset{
			{"Daily enrolments", values},
			{"Historical mean", repeat(scalar(v, "avg_line"), len(values))},
		}}
	},
	"forecast": func(v map[string]any) projection {
		hist, fc := sub(v, "historical"), sub(v, "forecast")
		histMonths, fcMonths := strs(hist, "months"), strs(fc, "months")
		labels := append(append([]string{}, histMonths...), fcMonths...)
		pad := func(prefix int, xs []float64) []float64 {
			out := make([]float64, prefix, prefix+len(xs))
			return append(out, xs...)
		}
		return projection{"line", labels, []Dataset{
			{"Historical", floats(hist, "values")},
			{"Forecast", pad(len(histMonths), floats(fc, "values"))},
			{"Upper 95%", pad(len(histMonths), floats(fc, "ci_upper"))},
			{"Lower 95%", pad(len(histMonths), floats(fc, "ci_lower"))},
		}}
	},
	"pareto": func(v map[string]any) projection {
		return projection{"pareto", strs(v, "labels"), []Dataset{
			{"Enrolments", floats(v, "values")},
			{"Cumulative %", floats(v, "cumulative")},
		}}
	},
	"cohorts":      pie,
	"load-balance": pie,
	"survival": func(v map[string]any) projection {
		times := floats(v, "times")
		labels := make([]string, len(times))
		for i, t := range times {
			labels[i] = fmt.Sprintf("%.0f", t)
		}
		return projection{"step", labels, []Dataset{{"S(t)", floats(v, "survival")}}}
	},
}

func pie(v map[string]any) projection {
	return projection{"pie", strs(v, "labels"), []Dataset{{"Share %", floats(v, "values")}}}
}

// generic reads the labels/values pair every technique that has a natural
// bar form publishes.
func generic(v map[string]any) projection {
	return projection{"bar", strs(v, "labels"), []Dataset{{"Value", floats(v, "values")}}}
}

// Project turns a result into a chart. Missing visualization keys produce
// empty series rather than errors.
func Project(technique string, r *analysis.Result) *Chart {
	p, ok := projectors[technique]
	if !ok {
		p = generic
	}
	v := r.Visualization
	if v == nil {
		v = map[string]any{}
	}
	out := p(v)
	if out.labels == nil {
		out.labels = []string{}
	}
	if out.datasets == nil {
		out.datasets = []Dataset{}
	}
	for i := range out.datasets {
		if out.datasets[i].Data == nil {
			out.datasets[i].Data = []float64{}
		}
	}
	return &Chart{
		Technique: technique,
		Title:     r.Technique,
		ChartType: out.chartType,
		Labels:    out.labels,
		Datasets:  out.datasets,
		KPIs:      headline(r.Final),
		Risk:      r.Risk,
		Decision:  r.Decision,
	}
}

const maxKPIs = 6

// headline picks scalar final_result entries in key order.
func headline(final map[string]any) []KPI {
	keys := make([]string, 0, len(final))
	for k := range final {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := []KPI{}
	for _, k := range keys {
		switch final[k].(type) {
		case float64, int, string, bool:
			out = append(out, KPI{Label: k, Value: final[k]})
		}
		if len(out) == maxKPIs {
			break
		}
	}
	return out
}

func sub(v map[string]any, key string) map[string]any {
	if m, ok := v[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func strs(v map[string]any, key string) []string {
	switch xs := v[key].(type) {
	case []string:
		return append([]string(nil), xs...)
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			out = append(out, fmt.Sprint(x))
		}
		return out
	}
	return []string{}
}

func floats(v map[string]any, key string) []float64 {
	switch xs := v[key].(type) {
	case []float64:
		return append([]float64(nil), xs...)
	case []int:
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = float64(x)
		}
		return out
	case []any:
		out := make([]float64, 0, len(xs))
		for _, x := range xs {
			if f, ok := toFloat(x); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return []float64{}
}

func scalar(v map[string]any, key string) float64 {
	f, _ := toFloat(v[key])
	return f
}

func toFloat(x any) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return analysis.Finite(n), true
	case float32:
		return analysis.Finite(float64(n)), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func edgeLabels(edges []float64) []string {
	if len(edges) < 2 {
		return []string{}
	}
	out := make([]string, len(edges)-1)
	for i := range out {
		out[i] = fmt.Sprintf("%.0f–%.0f", edges[i], edges[i+1])
	}
	return out
}
