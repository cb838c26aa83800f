package detval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEngine wraps another engine and counts Evaluate calls
type countingEngine struct {
	inner Engine
	calls int
}

func (e *countingEngine) Name() string { return e.inner.Name() }

func (e *countingEngine) Evaluate(event map[string]interface{}) DetectionResult {
	e.calls++
	return e.inner.Evaluate(event)
}

// rundll32 by image path only, defeated by renaming the binary
func rundllRuleV1() ParsedRule {
	return ParsedRule{
		RuleName: "Rundll32 v1",
		Conditions: []Condition{
			{Field: "Image", Op: OpEndswith, Value: `\rundll32.exe`},
			{Field: "CommandLine", Op: OpContains, Value: "javascript:"},
		},
		Logic: LogicAnd,
	}
}

// v2 also accepts the PE-header original filename, catching renames
func rundllRuleV2() ParsedRule {
	return ParsedRule{
		RuleName: "Rundll32 v2",
		Conditions: []Condition{
			{Field: "Image", Op: OpEndswith, Value: `\rundll32.exe`},
			{Field: "OriginalFileName", Op: OpEquals, Value: "RUNDLL32.EXE"},
		},
		Logic: LogicOr,
	}
}

func comparisonEvents() []SyntheticEvent {
	return []SyntheticEvent{
		{
			EventID: "c1", Category: CategoryTrueAttack, ExpectedDetection: true,
			Description: "straight rundll32 javascript execution",
			LogData: map[string]interface{}{
				"Image":            `C:\Windows\System32\rundll32.exe`,
				"CommandLine":      `rundll32.exe javascript:x`,
				"OriginalFileName": "RUNDLL32.EXE",
			},
		},
		{
			EventID: "c2", Category: CategoryEvasion, ExpectedDetection: true,
			Description: "renamed rundll32 binary",
			LogData: map[string]interface{}{
				"Image":            `C:\Users\Public\winhelper.exe`,
				"CommandLine":      `winhelper.exe javascript:x`,
				"OriginalFileName": "RUNDLL32.EXE",
			},
		},
		{
			EventID: "c3", Category: CategoryTrueBenign, ExpectedDetection: false,
			Description: "unrelated process",
			LogData: map[string]interface{}{
				"Image":            `C:\Windows\System32\svchost.exe`,
				"CommandLine":      `svchost.exe -k netsvcs`,
				"OriginalFileName": "svchost.exe",
			},
		},
	}
}

func TestCompareImprovedRule(t *testing.T) {
	cmp := NewRuleComparator(
		NewDynamicEngine(rundllRuleV1()),
		NewDynamicEngine(rundllRuleV2()),
		comparisonEvents(),
	).Compare()

	// v1 misses the renamed binary, v2 catches it
	assert.Equal(t, "Rundll32 v1", cmp.EngineA.Name)
	assert.Equal(t, ConfusionMatrix{TP: 1, FN: 1, TN: 1}, cmp.EngineA.Metrics.ConfusionMatrix)
	assert.Equal(t, ConfusionMatrix{TP: 2, TN: 1}, cmp.EngineB.Metrics.ConfusionMatrix)

	require.Equal(t, 1, cmp.TotalDiffs)
	diff := cmp.OutcomeDiffs[0]
	assert.Equal(t, "c2", diff.EventID)
	assert.Equal(t, "FN", diff.OutcomeA)
	assert.Equal(t, "TP", diff.OutcomeB)

	assert.Positive(t, cmp.Deltas["composite_score"])
	assert.Equal(t, VerdictSignificantImprovement, cmp.Verdict)

	delta, ok := cmp.Deltas["evasion_resistance"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, delta, 1e-9)
}

func TestCompareMemoization(t *testing.T) {
	engineA := &countingEngine{inner: NewDynamicEngine(rundllRuleV1())}
	engineB := &countingEngine{inner: NewDynamicEngine(rundllRuleV2())}
	events := comparisonEvents()
	comparator := NewRuleComparator(engineA, engineB, events)

	first := comparator.Compare()
	second := comparator.Compare()

	assert.Equal(t, len(events), engineA.calls)
	assert.Equal(t, len(events), engineB.calls)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.TotalDiffs, second.TotalDiffs)
}

func TestVerdictBuckets(t *testing.T) {
	cases := []struct {
		delta   float64
		verdict Verdict
	}{
		{0.2, VerdictSignificantImprovement},
		{0.051, VerdictSignificantImprovement},
		{0.05, VerdictMarginalImprovement},
		{0.001, VerdictMarginalImprovement},
		{0.0, VerdictNoChange},
		{-0.001, VerdictMarginalRegression},
		{-0.049, VerdictMarginalRegression},
		// strict comparison on the margin: -0.05 is already significant
		{-0.05, VerdictSignificantRegression},
		{-0.051, VerdictSignificantRegression},
		{-0.2, VerdictSignificantRegression},
	}
	for _, c := range cases {
		assert.Equal(t, c.verdict, verdictFor(c.delta), "delta %f", c.delta)
	}
}

func TestComparisonText(t *testing.T) {
	cmp := NewRuleComparator(
		NewDynamicEngine(rundllRuleV1()),
		NewDynamicEngine(rundllRuleV2()),
		comparisonEvents(),
	).Compare()

	var buf bytes.Buffer
	require.NoError(t, cmp.WriteText(&buf))
	out := buf.String()
	for _, want := range []string{"Rundll32 v1", "Rundll32 v2", "composite", "verdict: SIGNIFICANT_IMPROVEMENT", "c2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("comparison output missing %q:\n%s", want, out)
		}
	}
}
