// Package render draws dispatcher chart payloads with gonum/plot.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dispatch"
)

// ErrEmptyChart is returned when no dataset has a single point to draw.
var ErrEmptyChart = errors.New("chart has no data to draw")

// Default canvas size.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// maxTicks bounds how many category labels are printed on the x axis.
const maxTicks = 24

var riskColors = map[analysis.Risk]color.Color{
	analysis.RiskHigh:   color.RGBA{R: 192, G: 57, B: 43, A: 255},
	analysis.RiskMedium: color.RGBA{R: 230, G: 126, B: 34, A: 255},
	analysis.RiskLow:    color.RGBA{R: 39, G: 174, B: 96, A: 255},
}

// Plot builds a plot for c. Bar-like charts (bar, histogram, pareto, pie,
// kpi) become grouped bars over nominal categories; line and step charts
// become one line per dataset.
func Plot(c *dispatch.Chart) (*plot.Plot, error) {
	if c == nil {
		return nil, errors.Wrap(ErrEmptyChart, "nil chart")
	}
	p := plot.New()
	p.Title.Text = c.Title
	if c.Risk != "" {
		p.Title.Text = fmt.Sprintf("%s (%s)", c.Title, c.Risk)
	}
	p.Title.TextStyle.Font.Size = vg.Points(14)
	if col, ok := riskColors[c.Risk]; ok {
		p.Title.TextStyle.Color = col
	}
	p.Legend.Top = true

	var (
		drawn int
		err   error
	)
	switch c.ChartType {
	case "line", "step":
		drawn, err = addLines(p, c.Datasets, c.ChartType == "step")
	default:
		drawn, err = addBars(p, c.Datasets)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "render %s", c.Technique)
	}
	if drawn == 0 {
		return nil, errors.Wrapf(ErrEmptyChart, "render %s", c.Technique)
	}
	p.Add(plotter.NewGrid())
	p.NominalX(thin(c.Labels)...)
	if len(c.Labels) > 8 {
		p.X.Tick.Label.Rotation = math.Pi / 3
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	return p, nil
}

func addBars(p *plot.Plot, sets []dispatch.Dataset) (int, error) {
	var nonEmpty []dispatch.Dataset
	for _, ds := range sets {
		if len(ds.Data) > 0 {
			nonEmpty = append(nonEmpty, ds)
		}
	}
	if len(nonEmpty) == 0 {
		return 0, nil
	}
	width := vg.Points(36) / vg.Length(len(nonEmpty))
	for i, ds := range nonEmpty {
		bars, err := plotter.NewBarChart(values(ds.Data), width)
		if err != nil {
			return i, errors.Wrapf(err, "dataset %q", ds.Label)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = width * vg.Length(float64(i)-float64(len(nonEmpty)-1)/2)
		p.Add(bars)
		p.Legend.Add(ds.Label, bars)
	}
	return len(nonEmpty), nil
}

func addLines(p *plot.Plot, sets []dispatch.Dataset, step bool) (int, error) {
	drawn := 0
	for i, ds := range sets {
		if len(ds.Data) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(ds.Data))
		for j, v := range ds.Data {
			pts[j].X = float64(j)
			pts[j].Y = analysis.Finite(v)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return drawn, errors.Wrapf(err, "dataset %q", ds.Label)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		if step {
			line.StepStyle = plotter.PostStep
		}
		p.Add(line)
		p.Legend.Add(ds.Label, line)
		drawn++
	}
	return drawn, nil
}

func values(xs []float64) plotter.Values {
	out := make(plotter.Values, len(xs))
	for i, v := range xs {
		out[i] = analysis.Finite(v)
	}
	return out
}

// thin blanks all but every k-th label so at most maxTicks remain visible.
func thin(labels []string) []string {
	if len(labels) <= maxTicks {
		return labels
	}
	k := (len(labels) + maxTicks - 1) / maxTicks
	out := make([]string, len(labels))
	for i := range labels {
		if i%k == 0 {
			out[i] = labels[i]
		}
	}
	return out
}

// Write encodes c to w. format is any extension gonum/plot supports
// ("png", "svg", "pdf", ...).
func Write(w io.Writer, c *dispatch.Chart, format string) error {
	p, err := Plot(c)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, strings.ToLower(format))
	if err != nil {
		return errors.Wrapf(err, "encode %s", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	return nil
}

// Save writes c to path, choosing the format from its extension.
func Save(path string, c *dispatch.Chart) error {
	p, err := Plot(c)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
