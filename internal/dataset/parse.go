package dataset

import (
	"strconv"
	"strings"
	"time"
)

// parseNumeric parses counts written with either locale convention
// ("1,234", "1.234,5", "12 345", "12%"). The decimal separator is detected
// per value from the last of ',' and '.'.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	commas := strings.Count(raw, ",")
	dots := strings.Count(raw, ".")
	dec := '.'
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			dec = ','
		}
	case commas == 1:
		// "1,234" groups thousands; "12,5" is a decimal comma.
		if len(raw)-strings.LastIndex(raw, ",")-1 != 3 {
			dec = ','
		}
	case dots > 1:
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseDate tries each layout in order and returns a UTC calendar date.
func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// sniffDelimiter picks the delimiter from the header line: the most frequent
// of ',', ';' and tab, defaulting to comma.
func sniffDelimiter(path, headerLine string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	best, bestN := ',', strings.Count(headerLine, ",")
	for _, c := range []rune{';', '\t'} {
		if n := strings.Count(headerLine, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// normalizeHeader maps a raw header cell to its schema spelling.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, " ", "_")
	return h
}
