package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset"
	"github.com/KaramelBytes/enrolytics-cli/internal/dispatch"
)

// resetFlags restores every package-level flag variable, since cobra keeps
// values from one Execute to the next.
func resetFlags() {
	cfgFile, flagDataDir, verbose, logJSON, cfg = "", "", false, false, nil
	anaFormat, anaOutputPath = "", ""
	abAll, abCategory, abOutputDir, abXLSX, abFormat, abParallel, abQuiet = false, "", "", "", "", 4, false
	listCategory, listPanels = "", false
	sumFormat, sumOutputPath = "", ""
	chartMode, chartFormat, chartPNG, chartOutput = string(dispatch.Baseline), "json", "", ""
	profileDetail = false
	initForce = false
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// writeDataset lays out the three table folders under a temp dir with a
// deterministic 90-day history over 6 states and 12 districts.
func writeDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	states := []string{"Bihar", "Goa", "Kerala", "Punjab", "Assam", "Odisha"}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, k := range dataset.Kinds() {
		s, err := dataset.SchemaFor(k)
		require.NoError(t, err)
		var b strings.Builder
		b.WriteString("date,state,district,pincode," + strings.Join(s.Measures, ",") + "\n")
		for d := 0; d < 90; d++ {
			day := start.AddDate(0, 0, d).Format("02-01-2006")
			for si, st := range states {
				for di := 0; di < 2; di++ {
					fmt.Fprintf(&b, "%s,%s,%s D%d,%d", day, st, st, di, 800000+si*10+di)
					for m := range s.Measures {
						v := 10 + (d*7+si*13+di*5+m*3)%40
						if si == 0 && di == 0 {
							v *= 5
						}
						fmt.Fprintf(&b, ",%d", v)
					}
					b.WriteString("\n")
				}
			}
		}
		dir := filepath.Join(root, s.Folder)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "part1.csv"), []byte(b.String()), 0o644))
	}
	return root
}

// isolate points HOME at a temp dir and returns a config path inside it.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return filepath.Join(home, ".enrolytics", "config.yaml")
}

func TestCLI_InitConfigSetShowPath(t *testing.T) {
	path := isolate(t)

	out := runCmd(t, "init")
	assert.Contains(t, out, path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "init")
	require.Error(t, err, "init refuses to overwrite")
	runCmd(t, "init", "--force")

	runCmd(t, "config", "set", "data_dir", "/srv/enrolment")
	runCmd(t, "config", "set", "thresholds.outlier_rate.high", "12")
	out = runCmd(t, "config", "show")
	assert.Contains(t, out, "data_dir: /srv/enrolment")
	assert.Contains(t, out, "high: 12")

	_, err = execute(t, "config", "set", "output_format", "pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))

	assert.Equal(t, path+"\n", runCmd(t, "config", "path"))
}

func TestCLI_AnalyzeWritesJSON(t *testing.T) {
	isolate(t)
	data := writeDataset(t)
	outFile := filepath.Join(t.TempDir(), "benford.json")

	runCmd(t, "--data-dir", data, "analyze", "benford", "--format", "json", "-o", outFile)

	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "Benford's Law Analysis", got["technique"])
	assert.Contains(t, []any{"LOW", "MEDIUM", "HIGH", "INFO"}, got["risk_classification"])
	assert.NotEmpty(t, got["calculation_steps"])
}

func TestCLI_AnalyzeMarkdownToStdout(t *testing.T) {
	isolate(t)
	data := writeDataset(t)

	out := runCmd(t, "--data-dir", data, "analyze", "pareto")
	assert.Contains(t, out, "[CALCULATION STEPS]")
	assert.Contains(t, out, "[ASSESSMENT]")
}

func TestCLI_AnalyzeErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "analyze", "astrology")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))

	_, err = execute(t, "--data-dir", t.TempDir(), "analyze", "benford")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrDataUnavailable))
	assert.NotEmpty(t, errors.FlattenHints(err))
}

func TestCLI_ListAndPanels(t *testing.T) {
	isolate(t)

	out := runCmd(t, "list")
	assert.Contains(t, out, "[FRAUD]")
	assert.Contains(t, out, "- benford: ")

	out = runCmd(t, "list", "--category", "predictive")
	assert.Contains(t, out, "- forecast: ")
	assert.NotContains(t, out, "benford")

	out = runCmd(t, "list", "--panels")
	assert.Contains(t, out, "- fraud: baseline=benford enriched=outliers")

	_, err := execute(t, "list", "--category", "astrology")
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))
}

func TestCLI_SummaryJSON(t *testing.T) {
	isolate(t)
	data := writeDataset(t)

	out := runCmd(t, "--data-dir", data, "summary", "--format", "json")
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	kpis, ok := got["kpis"].([]any)
	require.True(t, ok)
	assert.Len(t, kpis, 4)
}

func TestCLI_ChartWithPNG(t *testing.T) {
	isolate(t)
	data := writeDataset(t)
	png := filepath.Join(t.TempDir(), "forecast.png")

	out := runCmd(t, "--data-dir", data, "chart", "predictive", "--mode", "enriched", "--png", png)
	idx := strings.Index(out, "✓ Rendered")
	require.Positive(t, idx)
	var chart dispatch.Chart
	require.NoError(t, json.Unmarshal([]byte(out[:idx]), &chart))
	assert.Equal(t, "forecast", chart.Technique)
	assert.Equal(t, dispatch.Enriched, chart.Mode)

	b, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))

	_, err = execute(t, "--data-dir", data, "chart", "predictive", "--mode", "sideways")
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))
}

func TestCLI_Profile(t *testing.T) {
	isolate(t)
	data := writeDataset(t)

	out := runCmd(t, "--data-dir", data, "profile", "enrolment")
	assert.Contains(t, out, "[enrolment]")
	assert.Contains(t, out, "rows:            1,080")
	assert.Contains(t, out, "states:          6")
	assert.NotContains(t, out, "[biometric]")
}
