package detval

import (
	"fmt"
	"strings"
)

// Op is the canonical comparison operator shared by every rule dialect.
// Dialect parsers translate their native idioms onto this closed set, so the
// evaluator never needs to know which language a rule was written in.
type Op int

const (
	OpEquals Op = iota
	OpContains
	OpContainsAll
	OpStartswith
	OpEndswith
	OpRegex
	OpGt
	OpGte
	OpLt
	OpLte
)

// String documents human readable textual value of operator
func (o Op) String() string {
	switch o {
	case OpEquals:
		return "equals"
	case OpContains:
		return "contains"
	case OpContainsAll:
		return "contains_all"
	case OpStartswith:
		return "startswith"
	case OpEndswith:
		return "endswith"
	case OpRegex:
		return "regex"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	default:
		return "unknown"
	}
}

// Logic is the combinator joining a rule's selection conditions.
// Filters are applied after the combinator regardless of its value, so
// LogicAndNotFilter is the explicit "selection and not filter" form while
// LogicAnd and LogicOr simply have empty or implicit filter sets.
type Logic int

const (
	LogicAnd Logic = iota
	LogicOr
	LogicAndNotFilter
)

// String implements fmt.Stringer
func (l Logic) String() string {
	switch l {
	case LogicOr:
		return "OR"
	case LogicAndNotFilter:
		return "AND_NOT_FILTER"
	default:
		return "AND"
	}
}

// Format tags the rule dialect a ParsedRule was extracted from.
type Format int

const (
	FormatGeneric Format = iota
	FormatSigma
	FormatKQL
	FormatSPL
	FormatEQL
	FormatSnort
	FormatS1QL
	FormatASQ
	FormatOQL
	FormatPANOS
	FormatOkta
)

// String implements fmt.Stringer
func (f Format) String() string {
	switch f {
	case FormatSigma:
		return "sigma"
	case FormatKQL:
		return "kql"
	case FormatSPL:
		return "spl"
	case FormatEQL:
		return "eql"
	case FormatSnort:
		return "snort"
	case FormatS1QL:
		return "s1ql"
	case FormatASQ:
		return "asq"
	case FormatOQL:
		return "oql"
	case FormatPANOS:
		return "panos"
	case FormatOkta:
		return "okta"
	default:
		return "generic"
	}
}

// ParseFormat maps a user-supplied dialect label onto a Format tag.
// Unrecognized or empty labels fall back to FormatGeneric, which triggers
// structural sniffing in the parser.
func ParseFormat(hint string) Format {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "sigma":
		return FormatSigma
	case "kql", "kusto", "sentinel", "microsoft sentinel":
		return FormatKQL
	case "spl", "splunk":
		return FormatSPL
	case "eql", "elastic", "elastic siem":
		return FormatEQL
	case "snort", "suricata", "snort/suricata":
		return FormatSnort
	case "s1ql", "sentinelone", "deep visibility":
		return FormatS1QL
	case "asq", "powerquery":
		return FormatASQ
	case "oql", "osquery":
		return FormatOQL
	case "panos", "pan-os", "palo alto":
		return FormatPANOS
	case "okta", "okta eventhook", "eventhook":
		return FormatOkta
	default:
		return FormatGeneric
	}
}

// Condition is one atomic field predicate extracted from rule text.
// Values carries alternatives when the dialect grouped several candidates on
// one field; the evaluator treats them as any-of (all-of for OpContainsAll).
type Condition struct {
	Field  string   `json:"field"`
	Op     Op       `json:"op"`
	Value  string   `json:"value"`
	Values []string `json:"values,omitempty"`
}

// String renders the condition in trace form, e.g. Image|endswith:'\rundll32.exe'
func (c Condition) String() string {
	if len(c.Values) > 0 {
		return fmt.Sprintf("%s|%s:['%s']", c.Field, c.Op, strings.Join(c.Values, "','"))
	}
	return fmt.Sprintf("%s|%s:'%s'", c.Field, c.Op, c.Value)
}

// ParsedRule is the dialect-independent condition model every parser emits.
// Immutable once parsed; a rule with zero conditions is a valid result and
// means "never matches" downstream.
type ParsedRule struct {
	RuleName   string      `json:"rule_name"`
	Format     Format      `json:"format"`
	Conditions []Condition `json:"conditions"`
	Filters    []Condition `json:"filters,omitempty"`
	Logic      Logic       `json:"logic"`
	LogSource  string      `json:"log_source,omitempty"`
	Mitre      []string    `json:"mitre,omitempty"`
}

// Technique returns the primary MITRE technique id, empty when untagged
func (r ParsedRule) Technique() string {
	if len(r.Mitre) == 0 {
		return ""
	}
	return r.Mitre[0]
}
