package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders the result as a bracketed-section text report.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[TECHNIQUE]\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", r.Technique))
	if r.Description != "" {
		b.WriteString(fmt.Sprintf("Description: %s\n", r.Description))
	}
	b.WriteString(fmt.Sprintf("Formula: %s\n\n", r.Formula))

	b.WriteString("[CALCULATION STEPS]\n")
	for _, s := range r.Steps {
		b.WriteString(fmt.Sprintf("%d. %s: %s\n", s.Index, s.Title, s.Description))
		if s.Input != "" {
			b.WriteString(fmt.Sprintf("   in:  %s\n", oneLine(s.Input)))
		}
		if s.Output != "" {
			b.WriteString(fmt.Sprintf("   out: %s\n", oneLine(s.Output)))
		}
	}

	if len(r.Intermediate) > 0 {
		b.WriteString("\n[INTERMEDIATE VALUES]\n")
		writeMap(&b, r.Intermediate)
	}

	b.WriteString("\n[FINAL RESULT]\n")
	writeMap(&b, r.Final)

	b.WriteString("\n[ASSESSMENT]\n")
	b.WriteString(fmt.Sprintf("Risk: %s\n", r.Risk))
	b.WriteString(fmt.Sprintf("Decision: %s\n", r.Decision))
	if r.Insight != "" {
		b.WriteString(fmt.Sprintf("Insight: %s\n", r.Insight))
	}
	return b.String()
}

func writeMap(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("- %s: %s\n", k, oneLine(renderValue(m[k]))))
	}
}

func renderValue(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.4g", x)
	case []string:
		if len(x) > 8 {
			return strings.Join(x[:8], ", ") + fmt.Sprintf(" … (+%d)", len(x)-8)
		}
		return strings.Join(x, ", ")
	case map[string]float64:
		return KV(x, 2)
	case []float64:
		if len(x) > 8 {
			return fmt.Sprintf("%v … (+%d)", x[:8], len(x)-8)
		}
		return fmt.Sprintf("%v", x)
	}
	return fmt.Sprintf("%v", v)
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 240 {
		return s[:237] + "..."
	}
	return s
}
