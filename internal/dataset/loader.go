package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
)

// Options controls where tables are read from and how cells are parsed.
type Options struct {
	// Dir is the root holding one folder per table.
	Dir string
	// Folders overrides the default folder name per kind.
	Folders map[Kind]string
	// DateLayouts are tried in order; the first match wins.
	DateLayouts []string
	// LoadTimeout bounds a single table load. Zero means unbounded.
	LoadTimeout time.Duration
}

// DefaultOptions returns the layout of the published dataset.
func DefaultOptions() Options {
	return Options{
		Dir:         "data",
		DateLayouts: []string{"02-01-2006", "2006-01-02", "02/01/2006"},
		LoadTimeout: 2 * time.Minute,
	}
}

// Loader produces a normalized table for a kind.
type Loader interface {
	LoadTable(ctx context.Context, kind Kind) (*Table, error)
}

// FileLoader reads every .csv, .tsv and .xlsx file in a kind's folder.
type FileLoader struct {
	opts Options
}

// NewFileLoader returns a loader over opts.
func NewFileLoader(opts Options) *FileLoader {
	if len(opts.DateLayouts) == 0 {
		opts.DateLayouts = DefaultOptions().DateLayouts
	}
	return &FileLoader{opts: opts}
}

// Folder resolves the source folder of kind.
func (l *FileLoader) Folder(kind Kind) (string, error) {
	s, err := SchemaFor(kind)
	if err != nil {
		return "", err
	}
	name := s.Folder
	if f, ok := l.opts.Folders[kind]; ok && f != "" {
		name = f
	}
	return filepath.Join(l.opts.Dir, name), nil
}

// LoadTable implements Loader.
func (l *FileLoader) LoadTable(ctx context.Context, kind Kind) (*Table, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	dir, err := l.Folder(kind)
	if err != nil {
		return nil, err
	}
	files, err := sourceFiles(dir)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(schema, l.opts.DateLayouts)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "load %s", kind), analysis.ErrDataUnavailable)
		}
		var ferr error
		if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
			ferr = acc.readXLSX(ctx, path)
		} else {
			ferr = acc.readCSV(ctx, path)
		}
		if ferr != nil {
			return nil, errors.Wrapf(ferr, "read %s", filepath.Base(path))
		}
		logger.Logger.Debugw("source file read", logger.FieldKind, kind, logger.FieldFile, path)
	}
	if len(acc.records) == 0 {
		return nil, errors.WithHintf(
			errors.Mark(errors.Newf("%s: no rows with a valid date in %s", kind, dir), analysis.ErrDataUnavailable),
			"check date_layouts; rows dropped for bad dates: %d", acc.stats.DroppedRows)
	}
	acc.stats.Files = files
	return NewTable(schema, acc.records, acc.headerList(), acc.stats), nil
}

func sourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WithHint(
			errors.Mark(errors.Wrapf(err, "open source folder %s", dir), analysis.ErrDataUnavailable),
			"set data_dir in the config file or pass --data-dir")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".tsv", ".xlsx":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, errors.Mark(errors.Newf("no .csv or .xlsx files in %s", dir), analysis.ErrDataUnavailable)
	}
	sort.Strings(files)
	return files, nil
}

// accumulator normalizes rows from any number of files into records.
type accumulator struct {
	schema  Schema
	layouts []string
	records []Record
	headers map[string]struct{}
	stats   Stats
}

func newAccumulator(schema Schema, layouts []string) *accumulator {
	return &accumulator{schema: schema, layouts: layouts, headers: map[string]struct{}{}}
}

func (a *accumulator) headerList() []string {
	out := make([]string, 0, len(a.headers))
	for h := range a.headers {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// columnIndex maps schema columns to positions in one file's header; -1 marks
// an optional column the file lacks.
type columnIndex struct {
	date, state, district, subDistrict, pincode int
	measures                                    [MaxMeasures]int
}

func (a *accumulator) index(header []string) (columnIndex, error) {
	pos := map[string]int{}
	for i, h := range header {
		n := normalizeHeader(h)
		pos[n] = i
		a.headers[n] = struct{}{}
	}
	look := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}
	ci := columnIndex{
		date:        look(ColDate),
		state:       look(ColState),
		district:    look(ColDistrict),
		subDistrict: look(ColSubDistrict),
		pincode:     look(ColPincode),
	}
	for i := range ci.measures {
		ci.measures[i] = -1
	}
	for i, m := range a.schema.Measures {
		ci.measures[i] = look(m)
	}
	if ci.date < 0 {
		return ci, errors.Mark(errors.Newf("header has no %q column", ColDate), analysis.ErrDataUnavailable)
	}
	if len(header) > a.stats.Columns {
		a.stats.Columns = len(header)
	}
	return ci, nil
}

func (a *accumulator) add(ci columnIndex, row []string) {
	cell := func(i int) (string, bool) {
		if i < 0 || i >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[i])
		return v, v != ""
	}
	raw, _ := cell(ci.date)
	date, ok := parseDate(raw, a.layouts)
	if !ok {
		a.stats.DroppedRows++
		return
	}
	text := func(i int) string {
		if v, ok := cell(i); ok {
			return v
		}
		a.stats.DefaultedCells++
		return Unknown
	}
	rec := Record{
		Date:     date,
		State:    text(ci.state),
		District: text(ci.district),
		Pincode:  text(ci.pincode),
	}
	// sub_district is not published for every table; absence is not a defect.
	if v, ok := cell(ci.subDistrict); ok {
		rec.SubDistrict = v
	} else {
		rec.SubDistrict = Unknown
	}
	for i := range a.schema.Measures {
		v, ok := cell(ci.measures[i])
		if !ok {
			a.stats.DefaultedCells++
			continue
		}
		f, ok := parseNumeric(v)
		if !ok {
			a.stats.DefaultedCells++
			continue
		}
		if f < 0 {
			a.stats.NegativeCells++
		}
		rec.Measures[i] = f
	}
	a.stats.Cells += 5 + len(a.schema.Measures)
	a.records = append(a.records, rec)
}

func (a *accumulator) readCSV(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open csv")
	}
	defer f.Close()

	br := bufio.NewReader(f)
	first, _ := br.Peek(4096)
	line := string(first)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	r := csv.NewReader(br)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = sniffDelimiter(path, line)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrap(err, "read header")
	}
	ci, err := a.index(header)
	if err != nil {
		return err
	}
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Mark(err, analysis.ErrDataUnavailable)
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read row %d", n+2)
		}
		a.add(ci, rec)
	}
}

func (a *accumulator) readXLSX(ctx context.Context, path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return errors.Wrapf(err, "read sheet %s", sheets[0])
	}
	defer rows.Close()

	var ci columnIndex
	for n := 0; rows.Next(); n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Mark(err, analysis.ErrDataUnavailable)
			}
		}
		cols, err := rows.Columns()
		if err != nil {
			return errors.Wrapf(err, "read row %d", n+1)
		}
		if n == 0 {
			if ci, err = a.index(cols); err != nil {
				return err
			}
			continue
		}
		a.add(ci, cols)
	}
	return rows.Error()
}
