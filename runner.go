package detval

import (
	"io"
	"time"
)

// GradingConfig sets the composite score weights and letter grade cutoffs.
// Weights must sum to one; when evasion resistance is unscorable its weight
// is redistributed proportionally across the remaining two.
type GradingConfig struct {
	F1Weight        float64            `json:"f1_weight"`
	EvasionWeight   float64            `json:"evasion_weight"`
	FPWeight        float64            `json:"fp_weight"`
	GradeThresholds map[string]float64 `json:"grade_thresholds"`
}

// DefaultGradingConfig returns the standard 40/30/30 weighting
func DefaultGradingConfig() GradingConfig {
	return GradingConfig{
		F1Weight:      0.4,
		EvasionWeight: 0.3,
		FPWeight:      0.3,
		GradeThresholds: map[string]float64{
			"A": 0.9,
			"B": 0.8,
			"C": 0.7,
			"D": 0.6,
		},
	}
}

// NewGradingConfig validates custom weights before use
func NewGradingConfig(f1, evasion, fp float64) (GradingConfig, error) {
	sum := f1 + evasion + fp
	if sum < 0.999 || sum > 1.001 {
		return GradingConfig{}, ErrInvalidWeights{F1: f1, Evasion: evasion, FP: fp}
	}
	cfg := DefaultGradingConfig()
	cfg.F1Weight, cfg.EvasionWeight, cfg.FPWeight = f1, evasion, fp
	return cfg, nil
}

// Grade maps a composite score to a letter
func (c GradingConfig) Grade(score float64) string {
	for _, letter := range []string{"A", "B", "C", "D"} {
		if threshold, ok := c.GradeThresholds[letter]; ok && score >= threshold {
			return letter
		}
	}
	return "F"
}

// ConfusionMatrix tallies outcome counts across a run
type ConfusionMatrix struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// CategoryStats is the per-category pass breakdown
type CategoryStats struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	PassRate float64 `json:"pass_rate"`
}

// Metrics is the full scorecard for one engine over one event set.
// EvasionResistance is nil when the set held no evasion samples, which is
// distinct from a resistance of zero.
type Metrics struct {
	ConfusionMatrix       ConfusionMatrix          `json:"confusion_matrix"`
	Accuracy              float64                  `json:"accuracy"`
	Precision             float64                  `json:"precision"`
	Recall                float64                  `json:"recall"`
	F1Score               float64                  `json:"f1_score"`
	EvasionResistance     *float64                 `json:"evasion_resistance"`
	EvasionCaught         int                      `json:"evasion_caught"`
	EvasionTotal          int                      `json:"evasion_total"`
	FPCandidatesTriggered int                      `json:"fp_candidates_triggered"`
	FPCandidatesTotal     int                      `json:"fp_candidates_total"`
	CompositeScore        float64                  `json:"composite_score"`
	OverallGrade          string                   `json:"overall_grade"`
	TotalEvents           int                      `json:"total_events"`
	Passed                int                      `json:"passed"`
	Failed                int                      `json:"failed"`
	CategoryBreakdown     map[string]CategoryStats `json:"category_breakdown"`
	AvgExecutionTimeMs    float64                  `json:"avg_execution_time_ms"`
}

// TestRunner drives one engine over a fixed event set and scores the
// outcomes. Run is idempotent per runner; results accumulate once.
type TestRunner struct {
	engine  Engine
	events  []SyntheticEvent
	grading GradingConfig
	results []TestResult
}

// NewTestRunner builds a runner with the default grading config
func NewTestRunner(engine Engine, events []SyntheticEvent) *TestRunner {
	return &TestRunner{
		engine:  engine,
		events:  events,
		grading: DefaultGradingConfig(),
	}
}

// WithGrading overrides the grading config, returning the runner for
// chaining
func (r *TestRunner) WithGrading(cfg GradingConfig) *TestRunner {
	r.grading = cfg
	return r
}

// Run evaluates every event once and records per-event results in input
// order
func (r *TestRunner) Run() []TestResult {
	if len(r.results) > 0 {
		return r.results
	}
	r.results = make([]TestResult, 0, len(r.events))
	for _, ev := range r.events {
		start := time.Now()
		detection := r.engine.Evaluate(ev.LogData)
		if detection.ExecutionTimeMs == 0 {
			detection.ExecutionTimeMs = float64(time.Since(start).Nanoseconds()) / 1e6
		}
		r.results = append(r.results, NewTestResult(ev, detection))
	}
	return r.results
}

// Results returns the recorded per-event results, running first if needed
func (r *TestRunner) Results() []TestResult {
	return r.Run()
}

// Metrics scores the run. Division guards: every rate with a zero
// denominator reports zero rather than NaN.
func (r *TestRunner) Metrics() Metrics {
	results := r.Run()
	m := Metrics{
		TotalEvents:       len(results),
		CategoryBreakdown: make(map[string]CategoryStats),
	}
	var totalMs float64
	for _, res := range results {
		totalMs += res.Detection.ExecutionTimeMs
		switch res.Outcome {
		case OutcomeTP:
			m.ConfusionMatrix.TP++
		case OutcomeFP:
			m.ConfusionMatrix.FP++
		case OutcomeTN:
			m.ConfusionMatrix.TN++
		case OutcomeFN:
			m.ConfusionMatrix.FN++
		}
		if res.Passed {
			m.Passed++
		} else {
			m.Failed++
		}
		stats := m.CategoryBreakdown[string(res.Event.Category)]
		stats.Total++
		if res.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
		m.CategoryBreakdown[string(res.Event.Category)] = stats

		switch res.Event.Category {
		case CategoryEvasion:
			m.EvasionTotal++
			if res.Detection.Matched {
				m.EvasionCaught++
			}
		case CategoryFPCandidate:
			m.FPCandidatesTotal++
			if res.Detection.Matched {
				m.FPCandidatesTriggered++
			}
		}
	}
	for key, stats := range m.CategoryBreakdown {
		if stats.Total > 0 {
			stats.PassRate = float64(stats.Passed) / float64(stats.Total)
		}
		m.CategoryBreakdown[key] = stats
	}

	cm := m.ConfusionMatrix
	if total := cm.TP + cm.FP + cm.TN + cm.FN; total > 0 {
		m.Accuracy = float64(cm.TP+cm.TN) / float64(total)
	}
	if cm.TP+cm.FP > 0 {
		m.Precision = float64(cm.TP) / float64(cm.TP+cm.FP)
	}
	if cm.TP+cm.FN > 0 {
		m.Recall = float64(cm.TP) / float64(cm.TP+cm.FN)
	}
	if m.Precision+m.Recall > 0 {
		m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if m.EvasionTotal > 0 {
		resistance := float64(m.EvasionCaught) / float64(m.EvasionTotal)
		m.EvasionResistance = &resistance
	}
	if m.TotalEvents > 0 {
		m.AvgExecutionTimeMs = totalMs / float64(m.TotalEvents)
	}

	// false positive avoidance counts matrix FPs over the whole corpus, so
	// a benign event the rule fires on costs the same as a tripped candidate
	fpScore := 1.0
	if m.TotalEvents > 0 {
		fpScore = 1 - float64(cm.FP)/float64(m.TotalEvents)
	}
	g := r.grading
	if m.EvasionResistance != nil {
		m.CompositeScore = g.F1Weight*m.F1Score +
			g.EvasionWeight**m.EvasionResistance +
			g.FPWeight*fpScore
	} else {
		// redistribute the evasion weight proportionally
		remaining := g.F1Weight + g.FPWeight
		if remaining > 0 {
			m.CompositeScore = (g.F1Weight*m.F1Score + g.FPWeight*fpScore) / remaining
		}
	}
	m.OverallGrade = g.Grade(m.CompositeScore)
	return m
}

// TruePositives filters the run to events the engine correctly matched
func (r *TestRunner) TruePositives() []TestResult { return r.filter(OutcomeTP) }

// FalsePositives filters the run to benign events the engine matched
func (r *TestRunner) FalsePositives() []TestResult { return r.filter(OutcomeFP) }

// FalseNegatives filters the run to attacks the engine missed
func (r *TestRunner) FalseNegatives() []TestResult { return r.filter(OutcomeFN) }

func (r *TestRunner) filter(outcome Outcome) []TestResult {
	out := make([]TestResult, 0)
	for _, res := range r.Run() {
		if res.Outcome == outcome {
			out = append(out, res)
		}
	}
	return out
}

// Failures returns every result where the engine disagreed with the label
func (r *TestRunner) Failures() []TestResult {
	out := make([]TestResult, 0)
	for _, res := range r.Run() {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// EvasionMisses returns the evasion samples the engine failed to catch
func (r *TestRunner) EvasionMisses() []TestResult {
	out := make([]TestResult, 0)
	for _, res := range r.Run() {
		if res.Event.Category == CategoryEvasion && !res.Detection.Matched {
			out = append(out, res)
		}
	}
	return out
}

// Report bundles a full run for serialization
type Report struct {
	RuleName    string       `json:"rule_name"`
	GeneratedAt string       `json:"generated_at"`
	Metrics     Metrics      `json:"metrics"`
	Results     []TestResult `json:"results"`
}

// Report builds the serializable run summary. The timestamp is the fixed
// reference instant, keeping full-report output byte-stable across runs.
func (r *TestRunner) Report() Report {
	return Report{
		RuleName:    r.engine.Name(),
		GeneratedAt: referenceTime.Format(time.RFC3339),
		Metrics:     r.Metrics(),
		Results:     r.Run(),
	}
}

// WriteJSON serializes the report with indentation
func (rep Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
