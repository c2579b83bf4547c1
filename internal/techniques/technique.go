package techniques

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
)

// Source yields cached tables. *dataset.Repository satisfies it.
type Source interface {
	Load(ctx context.Context, kind dataset.Kind) (*dataset.Table, error)
}

// Env is what every technique runs against.
type Env struct {
	Data Source
	Cal  Calibration
}

// NewEnv pairs a source with the default calibration.
func NewEnv(src Source) Env {
	return Env{Data: src, Cal: DefaultCalibration()}
}

// Func computes one explainable result. A missing table is returned as an
// error; a too-small grouping is returned as an insufficient-data result.
type Func func(ctx context.Context, env Env) (*analysis.Result, error)

// Categories group techniques for listing.
const (
	CategoryDescriptive = "descriptive"
	CategoryFraud       = "fraud"
	CategoryGeographic  = "geographic"
	CategoryOperations  = "operations"
	CategoryPredictive  = "predictive"
	CategoryQuality     = "quality"
	CategoryTrends      = "trends"
)

// Technique describes one registered analysis.
type Technique struct {
	Name     string
	Title    string
	Category string
	Datasets []dataset.Kind
	Run      Func
}

var registry = map[string]Technique{}

func register(t Technique) {
	if _, dup := registry[t.Name]; dup {
		panic("techniques: duplicate registration of " + t.Name)
	}
	registry[t.Name] = t
}

// Lookup returns the technique registered under name.
func Lookup(name string) (Technique, error) {
	t, ok := registry[name]
	if !ok {
		return Technique{}, analysis.InvalidParameter("technique", name, Names())
	}
	return t, nil
}

// Names lists registered technique names in order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns every technique ordered by category then name.
func All() []Technique {
	out := make([]Technique, 0, len(registry))
	for _, t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Categories lists the distinct categories in order.
func Categories() []string {
	seen := map[string]struct{}{}
	for _, t := range registry {
		seen[t.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Run looks up name and runs it.
func Run(ctx context.Context, env Env, name string) (*analysis.Result, error) {
	t, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, env)
}

func load(ctx context.Context, env Env, kind dataset.Kind) (*dataset.Table, error) {
	if env.Data == nil {
		return nil, errors.Mark(errors.New("no data source configured"), analysis.ErrDataUnavailable)
	}
	t, err := env.Data.Load(ctx, kind)
	if err != nil {
		return nil, errors.Wrapf(err, "%s table", kind)
	}
	return t, nil
}

// ranked is a labelled value used for ordered findings.
type ranked struct {
	Key   string  `json:"key" yaml:"key"`
	Value float64 `json:"value" yaml:"value"`
}

func topN(gs []dataset.Group, n int) []ranked {
	sorted := dataset.SortByTotalDesc(gs)
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]ranked, n)
	for i := 0; i < n; i++ {
		out[i] = ranked{Key: sorted[i].Key, Value: sorted[i].Total}
	}
	return out
}

func bottomN(gs []dataset.Group, n int) []ranked {
	sorted := dataset.SortByTotalDesc(gs)
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]ranked, n)
	for i := 0; i < n; i++ {
		g := sorted[len(sorted)-1-i]
		out[i] = ranked{Key: g.Key, Value: g.Total}
	}
	return out
}

func rankedKeys(rs []ranked) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Key
	}
	return out
}

func rankedValues(rs []ranked) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Value
	}
	return out
}

func roundAll(xs []float64, places int) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = analysis.Round(v, places)
	}
	return out
}
