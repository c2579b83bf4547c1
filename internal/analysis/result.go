package analysis

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Risk is the coarse verdict attached to every result.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
	RiskInfo   Risk = "INFO"
)

// Valid reports whether r is one of the four known levels.
func (r Risk) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskInfo:
		return true
	}
	return false
}

// Severity orders levels for "worst of" comparisons. INFO ranks below LOW.
func (r Risk) Severity() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

// Step is one narrated phase of a calculation.
type Step struct {
	Index       int    `json:"step" yaml:"step"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Input       string `json:"input" yaml:"input"`
	Output      string `json:"output" yaml:"output"`
	Details     any    `json:"details,omitempty" yaml:"details,omitempty"`
}

// Steps accumulates numbered calculation steps.
type Steps []Step

// Add appends a step numbered after the last one and returns it so callers
// can attach Details.
func (s *Steps) Add(title, description, input, output string) *Step {
	*s = append(*s, Step{
		Index:       len(*s) + 1,
		Title:       title,
		Description: description,
		Input:       input,
		Output:      output,
	})
	return &(*s)[len(*s)-1]
}

// Result is the explainable analysis record returned by every technique.
// Build it with NewResult; treat it as read-only afterwards.
type Result struct {
	Technique     string         `json:"technique" yaml:"technique"`
	Description   string         `json:"description" yaml:"description"`
	Formula       string         `json:"formula" yaml:"formula"`
	Steps         []Step         `json:"calculation_steps" yaml:"calculation_steps"`
	Intermediate  map[string]any `json:"intermediate_values" yaml:"intermediate_values"`
	Final         map[string]any `json:"final_result" yaml:"final_result"`
	Risk          Risk           `json:"risk_classification" yaml:"risk_classification"`
	Decision      string         `json:"decision" yaml:"decision"`
	Insight       string         `json:"risk_or_insight" yaml:"risk_or_insight"`
	Visualization map[string]any `json:"visualization_data" yaml:"visualization_data"`
	Findings      map[string]any `json:"findings,omitempty" yaml:"findings,omitempty"`
}

// Meta names a technique and its formula.
type Meta struct {
	Technique   string
	Description string
	Formula     string
}

// Parts are the named pieces NewResult assembles.
type Parts struct {
	Meta
	Steps         Steps
	Intermediate  map[string]any
	Final         map[string]any
	Risk          Risk
	Decision      string
	Insight       string
	Visualization map[string]any
	Findings      map[string]any
}

// NewResult assembles a Result. Nil maps become empty maps and a blank risk
// becomes INFO, so serialized output never carries null for those keys.
func NewResult(p Parts) *Result {
	r := &Result{
		Technique:     p.Technique,
		Description:   p.Description,
		Formula:       p.Formula,
		Steps:         []Step(p.Steps),
		Intermediate:  p.Intermediate,
		Final:         p.Final,
		Risk:          p.Risk,
		Decision:      p.Decision,
		Insight:       p.Insight,
		Visualization: p.Visualization,
		Findings:      p.Findings,
	}
	if r.Steps == nil {
		r.Steps = []Step{}
	}
	if r.Intermediate == nil {
		r.Intermediate = map[string]any{}
	}
	if r.Final == nil {
		r.Final = map[string]any{}
	}
	if r.Visualization == nil {
		r.Visualization = map[string]any{}
	}
	if r.Risk == "" {
		r.Risk = RiskInfo
	}
	return r
}

// Validate checks that every required field is populated.
func (r *Result) Validate() error {
	var missing []string
	if r.Technique == "" {
		missing = append(missing, "technique")
	}
	if r.Description == "" {
		missing = append(missing, "description")
	}
	if r.Formula == "" {
		missing = append(missing, "formula")
	}
	if len(r.Steps) == 0 {
		missing = append(missing, "calculation_steps")
	}
	if len(r.Final) == 0 {
		missing = append(missing, "final_result")
	}
	if r.Decision == "" {
		missing = append(missing, "decision")
	}
	if r.Intermediate == nil {
		missing = append(missing, "intermediate_values")
	}
	if r.Visualization == nil {
		missing = append(missing, "visualization_data")
	}
	if len(missing) > 0 {
		return errors.Newf("result %q missing fields: %s", r.Technique, strings.Join(missing, ", "))
	}
	if !r.Risk.Valid() {
		return errors.Newf("result %q has invalid risk %q", r.Technique, r.Risk)
	}
	for i, s := range r.Steps {
		if s.Index != i+1 {
			return errors.Newf("result %q step %d numbered %d", r.Technique, i+1, s.Index)
		}
	}
	return nil
}

// StatusInsufficient marks a result produced by Insufficient.
const StatusInsufficient = "INSUFFICIENT_DATA"

// Insufficient is the explicit result for a grouping below the technique's
// minimum sample. It never carries a fabricated number.
func Insufficient(meta Meta, reason string, need, have int) *Result {
	var steps Steps
	steps.Add("Sample Check",
		"Verify the grouping has enough units for this technique",
		fmt.Sprintf("available=%d", have),
		fmt.Sprintf("required=%d", need))
	return NewResult(Parts{
		Meta:  meta,
		Steps: steps,
		Intermediate: map[string]any{
			"reason": reason,
		},
		Final: map[string]any{
			"status":    StatusInsufficient,
			"required":  need,
			"available": have,
		},
		Risk:     RiskInfo,
		Decision: fmt.Sprintf("Insufficient data: %s (need %d, have %d)", reason, need, have),
		Insight:  ErrInsufficientSample.Error(),
	})
}

// IsInsufficient reports whether r was produced by Insufficient.
func (r *Result) IsInsufficient() bool {
	if r == nil {
		return false
	}
	s, _ := r.Final["status"].(string)
	return s == StatusInsufficient
}
