package detval

import (
	"regexp"
	"strings"
)

// RuleParser converts dialect-native rule text into the canonical condition
// model. Parse never fails: malformed input of any dialect degrades into the
// generic token scanner, and a rule that yields zero conditions is a valid,
// representable result.
type RuleParser struct{}

// Parse extracts a ParsedRule from raw rule text. An explicit dialect hint
// wins; otherwise the dialect is sniffed from distinctive structure.
func (RuleParser) Parse(text, hint string) ParsedRule {
	format := ParseFormat(hint)
	if format == FormatGeneric && strings.TrimSpace(hint) == "" {
		format = sniffFormat(text)
	}

	var rule ParsedRule
	switch format {
	case FormatSigma:
		rule = parseSigma(text)
	case FormatKQL:
		rule = parseKQL(text)
	case FormatSPL:
		rule = parseSPL(text)
	case FormatEQL:
		rule = parseEQL(text)
	case FormatSnort:
		rule = parseSnort(text)
	case FormatS1QL:
		rule = parseS1QL(text)
	case FormatASQ:
		rule = parseASQ(text)
	case FormatOQL:
		rule = parseOQL(text)
	case FormatPANOS:
		rule = parsePANOS(text)
	case FormatOkta:
		rule = parseOkta(text)
	default:
		rule = parseGeneric(text)
	}

	rule.Format = format
	if len(rule.Conditions) == 0 && format != FormatGeneric {
		// best effort: fall back to the token scanner rather than emit nothing
		if fallback := parseGeneric(text); len(fallback.Conditions) > 0 {
			fallback.Format = format
			if rule.RuleName != "" {
				fallback.RuleName = rule.RuleName
			}
			rule = fallback
		}
	}
	if rule.RuleName == "" {
		rule.RuleName = "Unnamed Rule"
	}
	return rule
}

var (
	reSigmaDoc    = regexp.MustCompile(`(?m)^detection\s*:`)
	reSigmaLogsrc = regexp.MustCompile(`(?m)^logsource\s*:`)
	reSnortHead   = regexp.MustCompile(`(?m)^\s*(alert|log|pass|drop|reject|sdrop)\s+\w+\s+\S+\s+\S+\s+[-<]>`)
	reS1QLField   = regexp.MustCompile(`\b(?:src|tgt|event)\.process\.`)
	reASQStage    = regexp.MustCompile(`\|\s*filter\b`)
	reKQLStage    = regexp.MustCompile(`\|\s*where\b`)
	reSPLMarker   = regexp.MustCompile(`(?i)\b(?:index|sourcetype)\s*=|\|\s*(?:stats|tstats|search|table)\b`)
	reEQLMarker   = regexp.MustCompile(`(?m)^\s*(?:sequence\b|\w+\s+where\s)`)
	reOQLMarker   = regexp.MustCompile(`(?is)^\s*select\b.+\bfrom\b`)
	rePANOSMarker = regexp.MustCompile(`\(\s*[\w.-]+\s+(?:eq|neq|leq|geq|contains)\s+`)
	reOktaMarker  = regexp.MustCompile(`\beventType\b|\b(?:eq|co|sw|ew)\s+"`)
)

// sniffFormat guesses the dialect from structural markers. Order matters:
// the more distinctive idioms are tried before the loose ones, and anything
// unrecognized drops through to the generic scanner.
func sniffFormat(text string) Format {
	switch {
	case reSigmaDoc.MatchString(text) && reSigmaLogsrc.MatchString(text):
		return FormatSigma
	case reSnortHead.MatchString(text):
		return FormatSnort
	case reS1QLField.MatchString(text) && !reASQStage.MatchString(text):
		return FormatS1QL
	case reASQStage.MatchString(text):
		return FormatASQ
	case reKQLStage.MatchString(text):
		return FormatKQL
	case reSPLMarker.MatchString(text):
		return FormatSPL
	case reOQLMarker.MatchString(text):
		return FormatOQL
	case rePANOSMarker.MatchString(text):
		return FormatPANOS
	case reEQLMarker.MatchString(text):
		return FormatEQL
	case reOktaMarker.MatchString(text):
		return FormatOkta
	default:
		return FormatGeneric
	}
}

// genericStopwords are boolean and query keywords the token scanner must not
// mistake for field names.
var genericStopwords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "where": {}, "select": {}, "from": {},
	"if": {}, "then": {}, "else": {}, "in": {}, "like": {}, "by": {},
	"index": {}, "sourcetype": {}, "source": {}, "table": {}, "stats": {},
	"true": {}, "false": {}, "null": {}, "none": {}, "condition": {},
}

var reGenericToken = regexp.MustCompile(`([A-Za-z_][\w.]*)\s*[=:]\s*("((?:[^"\\]|\\.)*)"|'([^']*)'|[^\s,;)]+)`)

// parseGeneric is the last-resort scanner: identifier (=|:) value pairs with
// stop words discarded, combined with OR. Under uncertainty this prefers
// over-triggering recall over mis-parsing into zero conditions.
func parseGeneric(text string) ParsedRule {
	conditions := make([]Condition, 0)
	for _, m := range reGenericToken.FindAllStringSubmatch(text, -1) {
		field := m[1]
		if _, stop := genericStopwords[strings.ToLower(field)]; stop {
			continue
		}
		value := unquote(m[2])
		if value == "" {
			continue
		}
		conditions = append(conditions, wildcardCondition(field, value))
	}
	return ParsedRule{
		Conditions: conditions,
		Logic:      LogicOr,
	}
}

// unquote strips one layer of single or double quotes and unescapes \" and \\
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			inner := s[1 : len(s)-1]
			inner = strings.ReplaceAll(inner, `\"`, `"`)
			inner = strings.ReplaceAll(inner, `\\`, `\`)
			return inner
		}
	}
	return s
}

// wildcardCondition derives the operator from asterisk placement in a value:
// *v* contains, *v endswith, v* startswith, bare v equals.
func wildcardCondition(field, value string) Condition {
	leading := strings.HasPrefix(value, "*")
	trailing := strings.HasSuffix(value, "*")
	trimmed := strings.Trim(value, "*")
	switch {
	case trimmed == "":
		return Condition{Field: field, Op: OpContains, Value: value}
	case leading && trailing:
		return Condition{Field: field, Op: OpContains, Value: trimmed}
	case leading:
		return Condition{Field: field, Op: OpEndswith, Value: trimmed}
	case trailing:
		return Condition{Field: field, Op: OpStartswith, Value: trimmed}
	default:
		return Condition{Field: field, Op: OpEquals, Value: value}
	}
}

// inferLogic reads the combinator off a condition expression: presence of
// "or" yields OR, presence of "not" yields AND_NOT_FILTER, else AND.
func inferLogic(expr string) Logic {
	lower := " " + strings.ToLower(expr) + " "
	switch {
	case strings.Contains(lower, " or "):
		return LogicOr
	case strings.Contains(lower, " not "):
		return LogicAndNotFilter
	default:
		return LogicAnd
	}
}
