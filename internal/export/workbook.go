// Package export writes analysis results to an Excel workbook.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
)

// SummarySheet is the first sheet: one row per result.
const SummarySheet = "Summary"

// Entry is one named result to export.
type Entry struct {
	Name   string
	Result *analysis.Result
}

var summaryHeader = []any{"Technique", "Name", "Risk", "Decision", "Insight"}

// Workbook builds a workbook with a summary sheet and one sheet per entry
// listing its final values, intermediate values and calculation steps.
// The caller closes the returned file.
func Workbook(entries []Entry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "rename first sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "create header style")
	}

	w := &writer{f: f, bold: bold}
	w.header(SummarySheet, 1, summaryHeader...)
	for i, e := range entries {
		if e.Result == nil {
			continue
		}
		w.row(SummarySheet, i+2, e.Result.Technique, e.Name, string(e.Result.Risk), e.Result.Decision, e.Result.Insight)
	}
	_ = f.SetColWidth(SummarySheet, "A", "B", 24)
	_ = f.SetColWidth(SummarySheet, "C", "C", 10)
	_ = f.SetColWidth(SummarySheet, "D", "E", 60)

	seen := map[string]int{}
	for _, e := range entries {
		if e.Result == nil {
			continue
		}
		name := sheetName(e.Name, seen)
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "add sheet %s", name)
		}
		w.result(name, e.Result)
	}
	if w.err != nil {
		_ = f.Close()
		return nil, w.err
	}
	return f, nil
}

// Save builds the workbook and writes it to path.
func Save(path string, entries []Entry) error {
	f, err := Workbook(entries)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save workbook %s", path)
	}
	return nil
}

// writer keeps the first error so callers can issue many cell writes and
// check once.
type writer struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *writer) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err == nil {
		err = w.f.SetSheetRow(sheet, cell, &values)
	}
	if err != nil {
		w.err = errors.Wrapf(err, "write %s row %d", sheet, n)
	}
}

func (w *writer) header(sheet string, n int, values ...any) {
	w.row(sheet, n, values...)
	if w.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, n)
	last, _ := excelize.CoordinatesToCellName(len(values), n)
	if err := w.f.SetCellStyle(sheet, first, last, w.bold); err != nil {
		w.err = errors.Wrapf(err, "style %s header", sheet)
	}
}

func (w *writer) result(sheet string, r *analysis.Result) {
	n := 1
	w.header(sheet, n, r.Technique)
	n++
	w.row(sheet, n, "Formula", r.Formula)
	n++
	w.row(sheet, n, "Risk", string(r.Risk))
	n++
	w.row(sheet, n, "Decision", r.Decision)
	n += 2

	n = w.values(sheet, n, "Final result", r.Final)
	n = w.values(sheet, n+1, "Intermediate values", r.Intermediate)

	w.header(sheet, n+1, "Step", "Title", "Input", "Output")
	n += 2
	for _, s := range r.Steps {
		w.row(sheet, n, s.Index, s.Title, s.Input, s.Output)
		n++
	}
	_ = w.f.SetColWidth(sheet, "A", "A", 28)
	_ = w.f.SetColWidth(sheet, "B", "D", 48)
}

// values writes a key/value block and returns the next free row.
func (w *writer) values(sheet string, n int, title string, m map[string]any) int {
	w.header(sheet, n, title, "Value")
	n++
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.row(sheet, n, k, cellValue(m[k]))
		n++
	}
	return n
}

// cellValue keeps scalars native so Excel sees numbers; composite values
// are written as compact JSON.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return analysis.Finite(x)
	case float32, int, int64, string, bool:
		return x
	case analysis.Risk:
		return string(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// sheetName makes name valid for Excel: no reserved characters, at most 31
// runes, unique within the workbook and never the summary sheet's name.
func sheetName(name string, seen map[string]int) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if clean == "" {
		clean = "Result"
	}
	if strings.EqualFold(clean, SummarySheet) {
		clean += "_"
	}
	if r := []rune(clean); len(r) > 28 {
		clean = string(r[:28])
	}
	key := strings.ToLower(clean)
	seen[key]++
	if seen[key] > 1 {
		clean = fmt.Sprintf("%s_%d", clean, seen[key])
	}
	return clean
}
