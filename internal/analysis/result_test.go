package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMeta = Meta{Technique: "Demo", Description: "demo technique", Formula: "x = 1"}

func TestNewResultDefaults(t *testing.T) {
	r := NewResult(Parts{Meta: testMeta})
	assert.NotNil(t, r.Visualization)
	assert.NotNil(t, r.Intermediate)
	assert.NotNil(t, r.Final)
	assert.Equal(t, RiskInfo, r.Risk)
	assert.Equal(t, "", r.Insight)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"visualization_data":{}`)
	assert.Contains(t, string(b), `"risk_or_insight":""`)
	assert.NotContains(t, string(b), "findings")
}

func TestStepsAreNumbered(t *testing.T) {
	var s Steps
	s.Add("a", "first", "in", "out")
	st := s.Add("b", "second", "in", "out")
	st.Details = map[string]int{"k": 1}
	require.Len(t, s, 2)
	assert.Equal(t, 1, s[0].Index)
	assert.Equal(t, 2, s[1].Index)
	assert.NotNil(t, s[1].Details)
}

func TestValidate(t *testing.T) {
	assert.Error(t, NewResult(Parts{Meta: testMeta}).Validate())

	var s Steps
	s.Add("a", "b", "c", "d")
	ok := NewResult(Parts{
		Meta:     testMeta,
		Steps:    s,
		Final:    map[string]any{"x": 1.0},
		Risk:     RiskLow,
		Decision: "fine",
	})
	require.NoError(t, ok.Validate())

	bad := NewResult(Parts{Meta: testMeta, Steps: s, Final: map[string]any{"x": 1}, Risk: "SEVERE", Decision: "d"})
	assert.Error(t, bad.Validate())
}

func TestInsufficient(t *testing.T) {
	r := Insufficient(testMeta, "fewer than 3 states", 3, 1)
	require.NoError(t, r.Validate())
	assert.True(t, r.IsInsufficient())
	assert.Equal(t, RiskInfo, r.Risk)
	assert.Equal(t, 3, r.Final["required"])
	assert.True(t, strings.HasPrefix(r.Decision, "Insufficient data"))

	var nilResult *Result
	assert.False(t, nilResult.IsInsufficient())
}

func TestAssessRisk(t *testing.T) {
	band := Band{High: 5, Medium: 2}
	cases := []struct {
		v    float64
		dir  Direction
		want Risk
	}{
		{6, HigherIsWorse, RiskHigh},
		{5, HigherIsWorse, RiskMedium},
		{3, HigherIsWorse, RiskMedium},
		{2, HigherIsWorse, RiskLow},
		{1, LowerIsWorse, RiskHigh},
		{4, LowerIsWorse, RiskMedium},
		{5, LowerIsWorse, RiskLow},
		{2, AtMostIsWorse, RiskHigh},
		{2.01, AtMostIsWorse, RiskMedium},
		{5, AtMostIsWorse, RiskMedium},
		{5.01, AtMostIsWorse, RiskLow},
	}
	lower := Band{High: 2, Medium: 5}
	for _, c := range cases {
		b := band
		if c.dir != HigherIsWorse {
			b = lower
		}
		got, decision := AssessRisk(c.v, b, c.dir)
		assert.Equal(t, c.want, got, "value %v", c.v)
		assert.NotEmpty(t, decision)
	}
}

func TestBandCheckAndWorst(t *testing.T) {
	assert.NoError(t, Band{High: 5, Medium: 2}.Check(HigherIsWorse))
	err := Band{High: 1, Medium: 2}.Check(HigherIsWorse)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.NoError(t, Band{High: 1, Medium: 2}.Check(LowerIsWorse))
	err = Band{High: 3, Medium: 2}.Check(AtMostIsWorse)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	assert.Equal(t, RiskHigh, Worst(RiskLow, RiskHigh, RiskMedium))
	assert.Equal(t, RiskInfo, Worst())
}

func TestInvalidParameterHint(t *testing.T) {
	err := InvalidParameter("technique", "nope", []string{"benford", "outliers"})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	assert.Contains(t, errors.FlattenHints(err), "benford")
}

func TestMarkdown(t *testing.T) {
	var s Steps
	s.Add("Count", "count rows", "rows", "3")
	r := NewResult(Parts{
		Meta:         testMeta,
		Steps:        s,
		Intermediate: map[string]any{"labels": []string{"a", "b"}},
		Final:        map[string]any{"value": 1.5},
		Risk:         RiskMedium,
		Decision:     "watch",
		Insight:      "something",
	})
	md := r.Markdown()
	for _, want := range []string{"[TECHNIQUE]", "[CALCULATION STEPS]", "1. Count", "[FINAL RESULT]", "- value: 1.5", "Risk: MEDIUM", "Insight: something"} {
		assert.Contains(t, md, want)
	}
}
