package detval

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// highSignal are command-line fragments that raise confidence when present in
// a matched event: script protocol abuse, credential dumping helpers, and
// staging directories rarely seen in clean telemetry.
var highSignal = []string{
	"javascript:", "vbscript:", "http://", "https://", "comsvcs", "minidump",
}

var mediumSignal = []string{
	".dll,", "\\temp\\", "\\public\\", "\\programdata\\", "\\users\\",
}

var suspiciousParents = []string{
	"\\wscript.exe", "\\cscript.exe", "\\mshta.exe",
	"\\winword.exe", "\\excel.exe", "\\powershell.exe",
}

// DynamicEngine evaluates any ParsedRule through the canonical predicate set,
// so every dialect shares one evaluator. The "selection and not filter"
// pattern native to Sigma is generalized uniformly: any filter condition
// firing suppresses a positive result, whatever the rule's combinator.
type DynamicEngine struct {
	Rule ParsedRule
}

// NewDynamicEngine wraps a parsed rule in an evaluator
func NewDynamicEngine(rule ParsedRule) *DynamicEngine {
	return &DynamicEngine{Rule: rule}
}

// Name implements Engine
func (e *DynamicEngine) Name() string { return e.Rule.RuleName }

// Evaluate implements Engine. A rule with zero conditions never matches and
// reports confidence 0.0; confidence is otherwise the fraction of conditions
// that fired, with heuristic boosts for high-signal content on a match.
func (e *DynamicEngine) Evaluate(event map[string]interface{}) DetectionResult {
	total := len(e.Rule.Conditions)
	if total == 0 {
		return DetectionResult{}
	}

	trace := make([]string, 0, total)
	var fired int
	for _, c := range e.Rule.Conditions {
		if evalCondition(event, c) {
			fired++
			trace = append(trace, "selection:"+c.String())
		}
	}

	matched := func() bool {
		if e.Rule.Logic == LogicOr {
			return fired > 0
		}
		return fired == total
	}()

	if matched {
		for _, f := range e.Rule.Filters {
			if evalCondition(event, f) {
				matched = false
				trace = append(trace, "filter:"+f.String())
			}
		}
	}

	confidence := float64(fired) / float64(total)
	if matched {
		confidence = boostConfidence(confidence, event, &trace)
	}

	return DetectionResult{
		Matched:           matched,
		MatchedConditions: trace,
		ConfidenceScore:   confidence,
	}
}

func boostConfidence(confidence float64, event map[string]interface{}, trace *[]string) float64 {
	cmdline := strings.ToLower(fieldString(event, "CommandLine"))
	if cmdline == "" {
		cmdline = strings.ToLower(fieldString(event, "process.command_line"))
	}
	if anySubstring(cmdline, highSignal) {
		confidence += 0.2
		*trace = append(*trace, "confidence_boost:high_signal_content")
	} else if anySubstring(cmdline, mediumSignal) {
		confidence += 0.1
		*trace = append(*trace, "confidence_boost:suspicious_path")
	}
	parent := strings.ToLower(fieldString(event, "ParentImage"))
	if anySubstring(parent, suspiciousParents) {
		confidence += 0.05
		*trace = append(*trace, "confidence_boost:suspicious_parent")
	}
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}

func anySubstring(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// evalCondition dispatches one condition over the closed operator set.
// Numeric operators with an unparsable rule-side threshold warn and resolve
// to no-match, same policy as invalid regex patterns.
func evalCondition(event map[string]interface{}, c Condition) bool {
	values := c.Values
	if len(values) == 0 {
		values = []string{c.Value}
	}
	switch c.Op {
	case OpEquals:
		return FieldIn(event, c.Field, values)
	case OpContains:
		return FieldAnyOf(event, c.Field, values)
	case OpContainsAll:
		return FieldAllOf(event, c.Field, values)
	case OpStartswith:
		for _, v := range values {
			if FieldStartswith(event, c.Field, v) {
				return true
			}
		}
		return false
	case OpEndswith:
		for _, v := range values {
			if FieldEndswith(event, c.Field, v) {
				return true
			}
		}
		return false
	case OpRegex:
		for _, v := range values {
			if FieldRegex(event, c.Field, v) {
				return true
			}
		}
		return false
	case OpGt, OpGte, OpLt, OpLte:
		threshold, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		if err != nil {
			logrus.WithFields(logrus.Fields{"field": c.Field, "value": c.Value}).
				Warn("non-numeric threshold in numeric condition")
			return false
		}
		switch c.Op {
		case OpGt:
			return FieldGt(event, c.Field, threshold)
		case OpGte:
			return FieldGte(event, c.Field, threshold)
		case OpLt:
			return FieldLt(event, c.Field, threshold)
		default:
			return FieldLte(event, c.Field, threshold)
		}
	default:
		return false
	}
}
