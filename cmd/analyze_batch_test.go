package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/export"
)

func TestAnalyzeBatch_CategoryToFilesAndWorkbook(t *testing.T) {
	isolate(t)
	data := writeDataset(t)
	outDir := filepath.Join(t.TempDir(), "results")
	book := filepath.Join(t.TempDir(), "fraud.xlsx")

	out := runCmd(t, "--data-dir", data, "analyze-batch", "--category", "fraud", "pareto",
		"--output-dir", outDir, "--xlsx", book, "--format", "yaml")

	want := []string{"benford", "duplicates", "forensic", "outliers", "pareto", "patterns"}
	assert.Equal(t, len(want), strings.Count(out, "] ✓ "), out)
	for _, name := range want {
		b, err := os.ReadFile(filepath.Join(outDir, name+".yaml"))
		require.NoError(t, err, name)
		assert.Contains(t, string(b), "risk_classification:")
	}

	f, err := excelize.OpenFile(book)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, append([]string{export.SummarySheet}, want...), f.GetSheetList())
}

func TestAnalyzeBatch_QuietMarkdown(t *testing.T) {
	isolate(t)
	data := writeDataset(t)
	outDir := t.TempDir()

	out := runCmd(t, "--data-dir", data, "analyze-batch", "queue", "queue", "forecast",
		"--output-dir", outDir, "--quiet", "--parallel", "1")
	assert.Empty(t, out)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "duplicate names run once")
	_, err = os.Stat(filepath.Join(outDir, "forecast.md"))
	assert.NoError(t, err)
}

func TestAnalyzeBatch_ReportsFailures(t *testing.T) {
	isolate(t)
	outDir := t.TempDir()

	out, err := execute(t, "--data-dir", t.TempDir(), "analyze-batch", "benford", "pareto", "--output-dir", outDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 techniques failed")
	assert.Contains(t, out, "✗ benford")
	assert.Contains(t, errors.FlattenHints(err), "benford")
}

func TestAnalyzeBatch_Validation(t *testing.T) {
	isolate(t)

	_, err := execute(t, "analyze-batch", "--output-dir", t.TempDir())
	assert.ErrorContains(t, err, "no techniques selected")

	_, err = execute(t, "analyze-batch", "benford")
	assert.ErrorContains(t, err, "nowhere to write")

	_, err = execute(t, "analyze-batch", "--category", "astrology", "--xlsx", "x.xlsx")
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))
}
