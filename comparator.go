package detval

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
)

// Verdict classifies the composite score delta between two rule versions
type Verdict int

const (
	VerdictNoChange Verdict = iota
	VerdictMarginalImprovement
	VerdictSignificantImprovement
	VerdictMarginalRegression
	VerdictSignificantRegression
)

// String implements fmt.Stringer
func (v Verdict) String() string {
	switch v {
	case VerdictSignificantImprovement:
		return "SIGNIFICANT_IMPROVEMENT"
	case VerdictMarginalImprovement:
		return "MARGINAL_IMPROVEMENT"
	case VerdictMarginalRegression:
		return "MARGINAL_REGRESSION"
	case VerdictSignificantRegression:
		return "SIGNIFICANT_REGRESSION"
	default:
		return "NO_CHANGE"
	}
}

// MarshalJSON implements json.Marshaler
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

const verdictMargin = 0.05

func verdictFor(delta float64) Verdict {
	switch {
	case delta > verdictMargin:
		return VerdictSignificantImprovement
	case delta > 0:
		return VerdictMarginalImprovement
	case delta == 0:
		return VerdictNoChange
	case delta > -verdictMargin:
		return VerdictMarginalRegression
	default:
		return VerdictSignificantRegression
	}
}

// OutcomeDiff records one event the two engines disagreed on
type OutcomeDiff struct {
	EventID     string        `json:"event_id"`
	Description string        `json:"description"`
	Category    EventCategory `json:"category"`
	OutcomeA    string        `json:"outcome_a"`
	OutcomeB    string        `json:"outcome_b"`
	MatchedA    bool          `json:"matched_a"`
	MatchedB    bool          `json:"matched_b"`
	ConditionsA []string      `json:"conditions_a,omitempty"`
	ConditionsB []string      `json:"conditions_b,omitempty"`
}

// EngineSummary pairs an engine name with its scored metrics
type EngineSummary struct {
	Name    string  `json:"name"`
	Metrics Metrics `json:"metrics"`
}

// Comparison is the full A/B result over one shared event set.
// Deltas holds B minus A per metric; the evasion key is omitted when either
// side could not be scored on evasion.
type Comparison struct {
	EngineA      EngineSummary      `json:"engine_a"`
	EngineB      EngineSummary      `json:"engine_b"`
	Deltas       map[string]float64 `json:"deltas"`
	OutcomeDiffs []OutcomeDiff      `json:"outcome_diffs"`
	TotalDiffs   int                `json:"total_diffs"`
	Verdict      Verdict            `json:"verdict"`
}

// RuleComparator runs two engines over the same events exactly once; the
// comparison is memoized so repeated Compare calls never re-evaluate.
type RuleComparator struct {
	runnerA *TestRunner
	runnerB *TestRunner
	once    sync.Once
	cached  Comparison
}

// NewRuleComparator builds a comparator sharing one event set between both
// engines
func NewRuleComparator(a, b Engine, events []SyntheticEvent) *RuleComparator {
	return &RuleComparator{
		runnerA: NewTestRunner(a, events),
		runnerB: NewTestRunner(b, events),
	}
}

// WithGrading applies one grading config to both sides
func (c *RuleComparator) WithGrading(cfg GradingConfig) *RuleComparator {
	c.runnerA.WithGrading(cfg)
	c.runnerB.WithGrading(cfg)
	return c
}

// Compare scores both engines and diffs per-event outcomes
func (c *RuleComparator) Compare() Comparison {
	c.once.Do(func() {
		resultsA := c.runnerA.Run()
		resultsB := c.runnerB.Run()
		metricsA := c.runnerA.Metrics()
		metricsB := c.runnerB.Metrics()

		deltas := map[string]float64{
			"accuracy":        metricsB.Accuracy - metricsA.Accuracy,
			"precision":       metricsB.Precision - metricsA.Precision,
			"recall":          metricsB.Recall - metricsA.Recall,
			"f1_score":        metricsB.F1Score - metricsA.F1Score,
			"composite_score": metricsB.CompositeScore - metricsA.CompositeScore,
		}
		if metricsA.EvasionResistance != nil && metricsB.EvasionResistance != nil {
			deltas["evasion_resistance"] = *metricsB.EvasionResistance - *metricsA.EvasionResistance
		}

		diffs := make([]OutcomeDiff, 0)
		for i := range resultsA {
			if i >= len(resultsB) {
				break
			}
			a, b := resultsA[i], resultsB[i]
			if a.Outcome == b.Outcome {
				continue
			}
			diffs = append(diffs, OutcomeDiff{
				EventID:     a.Event.EventID,
				Description: a.Event.Description,
				Category:    a.Event.Category,
				OutcomeA:    a.Outcome.String(),
				OutcomeB:    b.Outcome.String(),
				MatchedA:    a.Detection.Matched,
				MatchedB:    b.Detection.Matched,
				ConditionsA: a.Detection.MatchedConditions,
				ConditionsB: b.Detection.MatchedConditions,
			})
		}

		c.cached = Comparison{
			EngineA:      EngineSummary{Name: c.runnerA.engine.Name(), Metrics: metricsA},
			EngineB:      EngineSummary{Name: c.runnerB.engine.Name(), Metrics: metricsB},
			Deltas:       deltas,
			OutcomeDiffs: diffs,
			TotalDiffs:   len(diffs),
			Verdict:      verdictFor(deltas["composite_score"]),
		}
	})
	return c.cached
}

// WriteText renders the comparison as a side-by-side table
func (cmp Comparison) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "metric\t%s\t%s\tdelta\n", cmp.EngineA.Name, cmp.EngineB.Name)
	rows := []struct {
		label string
		a, b  float64
		key   string
	}{
		{"accuracy", cmp.EngineA.Metrics.Accuracy, cmp.EngineB.Metrics.Accuracy, "accuracy"},
		{"precision", cmp.EngineA.Metrics.Precision, cmp.EngineB.Metrics.Precision, "precision"},
		{"recall", cmp.EngineA.Metrics.Recall, cmp.EngineB.Metrics.Recall, "recall"},
		{"f1_score", cmp.EngineA.Metrics.F1Score, cmp.EngineB.Metrics.F1Score, "f1_score"},
		{"composite", cmp.EngineA.Metrics.CompositeScore, cmp.EngineB.Metrics.CompositeScore, "composite_score"},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%+.4f\n", row.label, row.a, row.b, cmp.Deltas[row.key])
	}
	if delta, ok := cmp.Deltas["evasion_resistance"]; ok {
		fmt.Fprintf(tw, "evasion\t%.4f\t%.4f\t%+.4f\n",
			*cmp.EngineA.Metrics.EvasionResistance, *cmp.EngineB.Metrics.EvasionResistance, delta)
	}
	fmt.Fprintf(tw, "grade\t%s\t%s\t\n", cmp.EngineA.Metrics.OverallGrade, cmp.EngineB.Metrics.OverallGrade)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nverdict: %s (%d outcome diffs)\n", cmp.Verdict, cmp.TotalDiffs)
	for _, d := range cmp.OutcomeDiffs {
		fmt.Fprintf(w, "  %s [%s] %s -> %s: %s\n", d.EventID, d.Category, d.OutcomeA, d.OutcomeB, d.Description)
	}
	return nil
}
