package detval

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteText renders the report as the human-readable scorecard
func (rep Report) WriteText(w io.Writer) error {
	m := rep.Metrics
	line := strings.Repeat("=", 60)

	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "DETECTION VALIDATION REPORT: %s\n", rep.RuleName)
	fmt.Fprintln(w, line)

	fmt.Fprintf(w, "\nEvents evaluated: %d (passed %d, failed %d)\n",
		m.TotalEvents, m.Passed, m.Failed)

	fmt.Fprintln(w, "\nConfusion matrix")
	fmt.Fprintf(w, "  TP %-4d FP %-4d\n", m.ConfusionMatrix.TP, m.ConfusionMatrix.FP)
	fmt.Fprintf(w, "  FN %-4d TN %-4d\n", m.ConfusionMatrix.FN, m.ConfusionMatrix.TN)

	fmt.Fprintln(w, "\nScores")
	fmt.Fprintf(w, "  accuracy   %.4f\n", m.Accuracy)
	fmt.Fprintf(w, "  precision  %.4f\n", m.Precision)
	fmt.Fprintf(w, "  recall     %.4f\n", m.Recall)
	fmt.Fprintf(w, "  f1         %.4f\n", m.F1Score)
	if m.EvasionResistance != nil {
		fmt.Fprintf(w, "  evasion    %.4f (%d/%d caught)\n",
			*m.EvasionResistance, m.EvasionCaught, m.EvasionTotal)
	} else {
		fmt.Fprintln(w, "  evasion    n/a (no evasion samples)")
	}
	fmt.Fprintf(w, "  fp noise   %d/%d candidates triggered\n",
		m.FPCandidatesTriggered, m.FPCandidatesTotal)
	fmt.Fprintf(w, "  composite  %.4f\n", m.CompositeScore)
	fmt.Fprintf(w, "  grade      %s\n", m.OverallGrade)

	if len(m.CategoryBreakdown) > 0 {
		fmt.Fprintln(w, "\nCategory breakdown")
		keys := make([]string, 0, len(m.CategoryBreakdown))
		for k := range m.CategoryBreakdown {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			stats := m.CategoryBreakdown[k]
			fmt.Fprintf(w, "  %-14s %d/%d passed (%.0f%%)\n",
				k, stats.Passed, stats.Total, stats.PassRate*100)
		}
	}

	failures := make([]TestResult, 0)
	for _, res := range rep.Results {
		if !res.Passed {
			failures = append(failures, res)
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(w, "\nFailures")
		for _, res := range failures {
			fmt.Fprintf(w, "  %s [%s] %s: %s\n",
				res.Event.EventID, res.Outcome, res.Event.Category, res.Event.Description)
			if res.Event.Notes != "" {
				fmt.Fprintf(w, "      %s\n", res.Event.Notes)
			}
		}
	}

	fmt.Fprintf(w, "\nAvg evaluation time: %.3f ms\n", m.AvgExecutionTimeMs)
	fmt.Fprintln(w, line)
	return nil
}
