package detval

// DetectionResult is the outcome of running one event through an engine.
// Produced fresh per evaluation; never reused across events.
type DetectionResult struct {
	Matched           bool     `json:"matched"`
	MatchedConditions []string `json:"matched_conditions,omitempty"`
	ConfidenceScore   float64  `json:"confidence_score"`
	ExecutionTimeMs   float64  `json:"execution_time_ms"`
}

// Outcome classifies one test result against expectation
type Outcome int

const (
	OutcomeTP Outcome = iota
	OutcomeFN
	OutcomeFP
	OutcomeTN
)

// String implements fmt.Stringer
func (o Outcome) String() string {
	switch o {
	case OutcomeTP:
		return "TP"
	case OutcomeFN:
		return "FN"
	case OutcomeFP:
		return "FP"
	default:
		return "TN"
	}
}

// TestResult pairs one event with its detection result. Outcome and Passed
// are derived in the constructor and cannot be set inconsistently.
type TestResult struct {
	Event     SyntheticEvent  `json:"event"`
	Detection DetectionResult `json:"detection"`
	Outcome   Outcome         `json:"-"`
	Passed    bool            `json:"passed"`
}

// NewTestResult derives outcome and pass state from expectation vs reality:
//
//	expected  matched  outcome  passed
//	true      true     TP       true
//	true      false    FN       false
//	false     true     FP       false
//	false     false    TN       true
func NewTestResult(event SyntheticEvent, detection DetectionResult) TestResult {
	outcome, passed := deriveOutcome(event.ExpectedDetection, detection.Matched)
	return TestResult{
		Event:     event,
		Detection: detection,
		Outcome:   outcome,
		Passed:    passed,
	}
}

func deriveOutcome(expected, matched bool) (Outcome, bool) {
	switch {
	case expected && matched:
		return OutcomeTP, true
	case expected && !matched:
		return OutcomeFN, false
	case !expected && matched:
		return OutcomeFP, false
	default:
		return OutcomeTN, true
	}
}
