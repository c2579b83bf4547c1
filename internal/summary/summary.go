// Package summary composes the executive overview from a fixed set of
// techniques. It depends on techniques and is never called by them.
package summary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

// Component names, in the order they are reported.
const (
	ComponentTotal    = "total"
	ComponentBenford  = "benford"
	ComponentOutliers = "outliers"
	ComponentQueue    = "queue"
	ComponentForecast = "forecast"
)

// Status values carried by KPIs and components.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	RiskUnknown       = "UNKNOWN"
)

// KPI is one headline indicator.
type KPI struct {
	Label  string  `json:"label" yaml:"label"`
	Value  float64 `json:"value" yaml:"value"`
	Text   string  `json:"text,omitempty" yaml:"text,omitempty"`
	Unit   string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Status string  `json:"status" yaml:"status"`
}

// ComponentStatus records how one sub-computation went.
type ComponentStatus struct {
	Status     string        `json:"status" yaml:"status"`
	Risk       analysis.Risk `json:"risk,omitempty" yaml:"risk,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64         `json:"duration_ms" yaml:"duration_ms"`
}

// ExecutiveSummary is the aggregated view plus the same content expressed
// as an analysis result.
type ExecutiveSummary struct {
	Generated  time.Time                  `json:"generated" yaml:"generated"`
	KPIs       []KPI                      `json:"kpis" yaml:"kpis"`
	Components map[string]ComponentStatus `json:"components" yaml:"components"`
	Result     *analysis.Result           `json:"result" yaml:"result"`
}

// Degraded lists the components that fell back to defaults.
func (s *ExecutiveSummary) Degraded() []string {
	var out []string
	for _, name := range componentOrder {
		if c, ok := s.Components[name]; ok && c.Status != StatusOK {
			out = append(out, name)
		}
	}
	return out
}

var componentOrder = []string{ComponentTotal, ComponentBenford, ComponentOutliers, ComponentQueue, ComponentForecast}

var summaryMeta = analysis.Meta{
	Technique:   "Executive Summary",
	Description: "Headline indicators aggregated from fraud, operations and forecasting analyses.",
	Formula:     "fraud risk = worst(benford, outliers) | normality = 100 − min(wait minutes, 100) | growth = forecast growth rate",
}

// Service builds executive summaries against one environment.
type Service struct {
	env techniques.Env
	now func() time.Time
}

// New returns a service over env.
func New(env techniques.Env) *Service {
	return &Service{env: env, now: time.Now}
}

type outcome struct {
	result *analysis.Result
	total  float64
	status ComponentStatus
}

// Summarize runs the component techniques concurrently. A failing component
// is reported and replaced by its default; only cancellation of ctx makes
// Summarize itself fail.
func (s *Service) Summarize(ctx context.Context) (*ExecutiveSummary, error) {
	log := logger.Named("summary")
	var (
		mu       sync.Mutex
		outcomes = map[string]outcome{}
	)
	record := func(name string, o outcome) {
		mu.Lock()
		outcomes[name] = o
		mu.Unlock()
	}

	// A plain group: one component's failure must not cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		record(ComponentTotal, s.enrolmentTotal(ctx))
		return nil
	})
	for _, name := range []string{ComponentBenford, ComponentOutliers, ComponentQueue, ComponentForecast} {
		name := name
		g.Go(func() error {
			record(name, s.run(ctx, name))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "executive summary")
	}

	components := make(map[string]ComponentStatus, len(outcomes))
	for name, o := range outcomes {
		components[name] = o.status
		if o.status.Status != StatusOK {
			log.Warnw("component degraded to default", logger.FieldTechnique, name, logger.FieldError, o.status.Error)
		}
	}
	kpis, risk := buildKPIs(outcomes)
	sum := &ExecutiveSummary{
		Generated:  s.now().UTC(),
		KPIs:       kpis,
		Components: components,
	}
	sum.Result = buildResult(kpis, components, risk)
	log.Debugw("summary built", logger.FieldCount, len(kpis), logger.FieldRisk, risk)
	return sum, nil
}

func (s *Service) enrolmentTotal(ctx context.Context) (o outcome) {
	defer guard(&o, time.Now())
	if s.env.Data == nil {
		o.status = ComponentStatus{Status: StatusUnavailable, Error: "no data source configured"}
		return o
	}
	t, err := s.env.Data.Load(ctx, dataset.Enrolment)
	if err != nil {
		o.status = ComponentStatus{Status: StatusUnavailable, Error: err.Error()}
		return o
	}
	o.total = t.GrandTotal()
	o.status = ComponentStatus{Status: StatusOK}
	return o
}

// run executes one technique, converting errors, panics and insufficient
// results into an unavailable component.
func (s *Service) run(ctx context.Context, name string) (o outcome) {
	defer guard(&o, time.Now())
	res, err := techniques.Run(ctx, s.env, name)
	switch {
	case err != nil:
		o.status = ComponentStatus{Status: StatusUnavailable, Error: err.Error()}
	case res.IsInsufficient():
		o.status = ComponentStatus{Status: StatusUnavailable, Risk: res.Risk, Error: res.Decision}
	default:
		o.result = res
		o.status = ComponentStatus{Status: StatusOK, Risk: res.Risk}
	}
	return o
}

// guard turns a panic into an unavailable outcome and stamps the duration.
func guard(o *outcome, start time.Time) {
	if r := recover(); r != nil {
		*o = outcome{status: ComponentStatus{Status: StatusUnavailable, Error: fmt.Sprintf("panic: %v", r)}}
	}
	o.status.DurationMS = time.Since(start).Milliseconds()
}

func finalFloat(r *analysis.Result, key string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	switch v := r.Final[key].(type) {
	case float64:
		return analysis.Finite(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func buildKPIs(o map[string]outcome) ([]KPI, analysis.Risk) {
	kpis := make([]KPI, 0, 4)

	total := o[ComponentTotal]
	k := KPI{Label: "Total Enrolments", Status: StatusUnavailable}
	if total.status.Status == StatusOK {
		k.Value, k.Status = total.total, StatusOK
		k.Text = humanize.Commaf(total.total)
	}
	kpis = append(kpis, k)

	var levels []analysis.Risk
	for _, name := range []string{ComponentBenford, ComponentOutliers} {
		if r := o[name].result; r != nil {
			levels = append(levels, r.Risk)
		}
	}
	risk := analysis.Worst(levels...)
	k = KPI{Label: "Fraud Risk Level", Text: RiskUnknown, Status: StatusUnavailable}
	if len(levels) > 0 {
		k.Text, k.Value, k.Status = string(risk), float64(risk.Severity()), StatusOK
	}
	kpis = append(kpis, k)

	k = KPI{Label: "Operational Normality", Unit: "%", Status: StatusUnavailable}
	if wait, ok := finalFloat(o[ComponentQueue].result, "avg_wait_time_mins"); ok {
		k.Value = analysis.Round(100-min(wait, 100), 2)
		k.Status = StatusOK
	}
	kpis = append(kpis, k)

	k = KPI{Label: "Forecast Growth", Unit: "%", Status: StatusUnavailable}
	if growth, ok := finalFloat(o[ComponentForecast].result, "growth_rate_percent"); ok {
		k.Value, k.Status = growth, StatusOK
	}
	kpis = append(kpis, k)
	return kpis, risk
}

func buildResult(kpis []KPI, components map[string]ComponentStatus, risk analysis.Risk) *analysis.Result {
	var steps analysis.Steps
	for _, name := range componentOrder {
		c := components[name]
		out := c.Status
		if c.Risk != "" {
			out += ", risk " + string(c.Risk)
		}
		if c.Error != "" {
			out += ": " + c.Error
		}
		steps.Add("Run "+name, "Compute the component and fall back to its default on failure",
			fmt.Sprintf("%d ms", c.DurationMS), out)
	}

	final := map[string]any{}
	labels := make([]string, len(kpis))
	values := make([]float64, len(kpis))
	for i, k := range kpis {
		labels[i], values[i] = k.Label, k.Value
		if k.Text != "" && k.Label == "Fraud Risk Level" {
			final[k.Label] = k.Text
			continue
		}
		final[k.Label] = k.Value
	}

	degraded := 0
	statuses := map[string]any{}
	for name, c := range components {
		statuses[name] = c.Status
		if c.Status != StatusOK {
			degraded++
		}
	}
	decision := "All indicators computed"
	if degraded > 0 {
		decision = fmt.Sprintf("%d of %d indicators fell back to defaults", degraded, len(components))
	}
	return analysis.NewResult(analysis.Parts{
		Meta:         summaryMeta,
		Steps:        steps,
		Intermediate: map[string]any{"components": statuses},
		Final:        final,
		Risk:         risk,
		Decision:     decision,
		Visualization: map[string]any{
			"labels": labels,
			"values": values,
		},
	})
}
