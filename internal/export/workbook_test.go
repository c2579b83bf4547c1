package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/dataset/datasettest"
	"github.com/KaramelBytes/enrolytics-cli/internal/techniques"
)

func TestSaveWritesSummaryAndResultSheets(t *testing.T) {
	env := techniques.NewEnv(datasettest.Synthetic(120))
	var entries []Entry
	for _, name := range []string{"benford", "pareto", "queue"} {
		res, err := techniques.Run(context.Background(), env, name)
		require.NoError(t, err)
		entries = append(entries, Entry{Name: name, Result: res})
	}

	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, Save(path, entries))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, "benford", "pareto", "queue"}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Technique", "Name", "Risk", "Decision", "Insight"}, rows[0])
	assert.Equal(t, "benford", rows[1][1])
	assert.Equal(t, string(entries[0].Result.Risk), rows[1][2])

	rows, err = f.GetRows("pareto")
	require.NoError(t, err)
	assert.Equal(t, entries[1].Result.Technique, rows[0][0])
	assert.Equal(t, []string{"Risk", string(entries[1].Result.Risk)}, rows[2])
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 1.5, cellValue(1.5))
	assert.Equal(t, 3, cellValue(3))
	assert.Equal(t, "HIGH", cellValue(analysis.RiskHigh))
	assert.Equal(t, "", cellValue(nil))
	assert.Equal(t, `[1,2]`, cellValue([]int{1, 2}))
	assert.Equal(t, `{"a":1}`, cellValue(map[string]any{"a": 1}))
}

func TestSheetName(t *testing.T) {
	seen := map[string]int{}
	assert.Equal(t, "a_b", sheetName("a/b", seen))
	assert.Equal(t, "a_b_2", sheetName("a:b", seen))
	assert.Equal(t, "summary_", sheetName("summary", seen))
	assert.Equal(t, "Result", sheetName("", seen))
	assert.Len(t, []rune(sheetName("a-very-long-technique-name-that-overflows", seen)), 28)
}
