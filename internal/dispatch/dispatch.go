// Package dispatch maps dashboard panels to techniques and projects their
// results into chart payloads.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
	"github.com/KaramelBytes/enrolytics-cli/internal/summary"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

// Mode selects the baseline or the enriched view of a panel.
type Mode string

const (
	Baseline Mode = "baseline"
	Enriched Mode = "enriched"
)

// Modes lists the accepted modes.
func Modes() []string { return []string{string(Baseline), string(Enriched)} }

// ParseMode accepts "baseline" or "enriched" in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Baseline, Enriched:
		return m, nil
	}
	return "", analysis.InvalidParameter("mode", s, Modes())
}

// executive is the technique name reserved for the executive summary.
const executive = "executive-summary"

// Panel binds a dashboard panel to its two techniques.
type Panel struct {
	Name     string
	Baseline string
	Enriched string
}

// Technique returns the technique serving mode.
func (p Panel) Technique(m Mode) string {
	if m == Enriched {
		return p.Enriched
	}
	return p.Baseline
}

var panels = map[string]Panel{
	"executive":     {"executive", "profile", executive},
	"descriptive":   {"descriptive", "univariate", "timeseries"},
	"fraud":         {"fraud", "benford", "outliers"},
	"operations":    {"operations", "throughput", "queue"},
	"predictive":    {"predictive", "regression", "forecast"},
	"geographic":    {"geographic", "hotspots", "cohorts"},
	"quality":       {"quality", "benchmarking", "deciles"},
	"concentration": {"concentration", "pareto", "load-balance"},
	"survival":      {"survival", "yield", "survival"},
}

// Panels lists the panel names in order.
func Panels() []string {
	out := make([]string, 0, len(panels))
	for name := range panels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LookupPanel returns the named panel.
func LookupPanel(name string) (Panel, error) {
	p, ok := panels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Panel{}, analysis.InvalidParameter("panel", name, Panels())
	}
	return p, nil
}

// Dataset is one plotted series.
type Dataset struct {
	Label string    `json:"label" yaml:"label"`
	Data  []float64 `json:"data" yaml:"data"`
}

// KPI is a headline number shown beside the chart.
type KPI struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// Chart is the payload handed to a dashboard or renderer.
type Chart struct {
	RequestID string        `json:"request_id" yaml:"request_id"`
	Panel     string        `json:"panel" yaml:"panel"`
	Mode      Mode          `json:"mode" yaml:"mode"`
	Technique string        `json:"technique" yaml:"technique"`
	Title     string        `json:"title" yaml:"title"`
	ChartType string        `json:"chart_type" yaml:"chart_type"`
	Labels    []string      `json:"labels" yaml:"labels"`
	Datasets  []Dataset     `json:"datasets" yaml:"datasets"`
	KPIs      []KPI         `json:"kpis" yaml:"kpis"`
	Risk      analysis.Risk `json:"risk" yaml:"risk"`
	Decision  string        `json:"decision" yaml:"decision"`
}

// Summarizer produces the executive summary. *summary.Service satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context) (*summary.ExecutiveSummary, error)
}

// Dispatcher routes panel requests.
type Dispatcher struct {
	env     techniques.Env
	summary Summarizer
	run     func(ctx context.Context, env techniques.Env, name string) (*analysis.Result, error)
}

// New returns a dispatcher. A nil svc gets a summary service over env.
func New(env techniques.Env, svc Summarizer) *Dispatcher {
	if svc == nil {
		svc = summary.New(env)
	}
	return &Dispatcher{env: env, summary: svc, run: techniques.Run}
}

// Dispatch computes the panel's technique for mode and projects it. A
// technique that panics is reported as analysis.ErrInternal.
func (d *Dispatcher) Dispatch(ctx context.Context, panel string, mode Mode) (chart *Chart, err error) {
	p, err := LookupPanel(panel)
	if err != nil {
		return nil, err
	}
	mode, err = ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	name := p.Technique(mode)
	log := logger.Named("dispatch").With(
		logger.FieldRequestID, reqID,
		logger.FieldPanel, p.Name,
		logger.FieldMode, string(mode),
		logger.FieldTechnique, name,
	)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			chart = nil
			err = errors.Mark(errors.Newf("panel %s (%s): panic: %v", p.Name, name, r), analysis.ErrInternal)
		}
		if err != nil {
			log.Errorw("dispatch failed", logger.FieldError, err, logger.FieldDurationMS, time.Since(start).Milliseconds())
			return
		}
		log.Infow("dispatch complete", logger.FieldRisk, chart.Risk, logger.FieldDurationMS, time.Since(start).Milliseconds())
	}()

	if name == executive {
		sum, err := d.summary.Summarize(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "panel %s", p.Name)
		}
		chart = fromSummary(sum)
	} else {
		res, err := d.run(ctx, d.env, name)
		if err != nil {
			return nil, errors.Wrapf(err, "panel %s", p.Name)
		}
		chart = Project(name, res)
	}
	chart.RequestID = reqID
	chart.Panel = p.Name
	chart.Mode = mode
	return chart, nil
}

func fromSummary(s *summary.ExecutiveSummary) *Chart {
	c := &Chart{
		Technique: executive,
		Title:     s.Result.Technique,
		ChartType: "kpi",
		Risk:      s.Result.Risk,
		Decision:  s.Result.Decision,
	}
	values := make([]float64, 0, len(s.KPIs))
	for _, k := range s.KPIs {
		c.Labels = append(c.Labels, k.Label)
		values = append(values, k.Value)
		var v any = k.Value
		if k.Text != "" {
			v = k.Text
		}
		if k.Unit != "" && k.Text == "" {
			v = fmt.Sprintf("%.2f%s", k.Value, k.Unit)
		}
		c.KPIs = append(c.KPIs, KPI{Label: k.Label, Value: v})
	}
	c.Datasets = []Dataset{{Label: "KPI", Data: values}}
	return c
}
