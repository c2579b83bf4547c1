package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// Count formats v as a rounded integer with thousands separators.
func Count(v float64) string {
	return humanize.Comma(int64(math.Round(Finite(v))))
}

// Num formats v with thousands separators and at most the given decimals.
func Num(v float64, decimals int) string {
	return humanize.CommafWithDigits(Round(v, decimals), decimals)
}

// Pct formats v (already a percentage) with one decimal.
func Pct(v float64) string {
	return fmt.Sprintf("%.1f%%", Finite(v))
}

// KV renders pairs as "k=v, k=v" in key order for step summaries.
func KV(m map[string]float64, decimals int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, Num(m[k], decimals))
	}
	return strings.Join(parts, ", ")
}
