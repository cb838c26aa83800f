package detval

import (
	"regexp"
	"strings"
)

// Query-language extraction. Each dialect is a pure function from rule text
// to ParsedRule; adding a dialect means adding a function, never touching the
// evaluator. Parsers pull field comparisons out of the query text and map the
// operators onto the canonical set, defaulting anything unmapped to contains.

var reKQLComparison = regexp.MustCompile(
	`(?i)([A-Za-z_][\w.]*)\s*(==|=~|!=|!~|>=|<=|>|<|contains|!contains|startswith|endswith|has_any|has|matches\s+regex|in~|in)\s*(\(.*?\)|"(?:[^"\\]|\\.)*"|'[^']*'|@?"[^"]*"|\S+)`)

// parseKQL walks pipe-delimited stages and extracts comparisons from every
// where stage. The leading table name becomes the log source.
func parseKQL(text string) ParsedRule {
	rule := ParsedRule{Logic: LogicAnd}
	stages := strings.Split(text, "|")
	if len(stages) > 0 {
		rule.LogSource = strings.TrimSpace(strings.Split(stages[0], "\n")[0])
	}
	var whereText strings.Builder
	for _, stage := range stages[1:] {
		trimmed := strings.TrimSpace(stage)
		if !strings.HasPrefix(strings.ToLower(trimmed), "where") {
			continue
		}
		expr := strings.TrimSpace(trimmed[len("where"):])
		whereText.WriteString(expr)
		whereText.WriteString(" ")
		for _, m := range reKQLComparison.FindAllStringSubmatch(expr, -1) {
			rule.Conditions = append(rule.Conditions,
				queryCondition(m[1], strings.ToLower(m[2]), m[3]))
		}
	}
	rule.Logic = inferLogic(whereText.String())
	return rule
}

var reSPLPair = regexp.MustCompile(
	`(?i)([A-Za-z_][\w.]*)\s*(!=|>=|<=|=|>|<)\s*("(?:[^"\\]|\\.)*"|'[^']*'|\S+)`)

// parseSPL scans key=value search terms. index and sourcetype terms describe
// the log source rather than conditions, and wildcard placement in values
// picks the substring operator.
func parseSPL(text string) ParsedRule {
	rule := ParsedRule{}
	sources := make([]string, 0, 2)
	for _, m := range reSPLPair.FindAllStringSubmatch(text, -1) {
		field, op, raw := m[1], m[2], unquote(m[3])
		switch strings.ToLower(field) {
		case "index", "sourcetype", "source":
			sources = append(sources, raw)
			continue
		}
		rule.Conditions = append(rule.Conditions, queryCondition(field, op, m[3]))
	}
	rule.LogSource = strings.Join(sources, "/")
	rule.Logic = func() Logic {
		if strings.Contains(text, " OR ") {
			return LogicOr
		}
		return LogicAnd
	}()
	return rule
}

var (
	reEQLHead       = regexp.MustCompile(`(?m)^\s*([\w.]+)\s+where\s`)
	reEQLComparison = regexp.MustCompile(
		`(?i)([A-Za-z_][\w.]*)\s*(==|!=|>=|<=|>|<|:|like~?|regex~?|in~?)\s*(\[[^\]]*\]|\((?:[^)(]*)\)|"(?:[^"\\]|\\.)*"|\S+)`)
)

// parseEQL extracts comparisons after the event-category "where" clause.
// The ":" operator is EQL's case-insensitive wildcard match.
func parseEQL(text string) ParsedRule {
	rule := ParsedRule{}
	if m := reEQLHead.FindStringSubmatch(text); m != nil {
		rule.LogSource = m[1]
	}
	body := text
	if idx := strings.Index(strings.ToLower(text), "where"); idx >= 0 {
		body = text[idx+len("where"):]
	}
	for _, m := range reEQLComparison.FindAllStringSubmatch(body, -1) {
		rule.Conditions = append(rule.Conditions,
			queryCondition(m[1], strings.ToLower(m[2]), m[3]))
	}
	rule.Logic = inferLogic(body)
	return rule
}

var (
	reSnortHeader  = regexp.MustCompile(`(?m)^\s*(?:alert|log|pass|drop|reject|sdrop)\s+(\w+)`)
	reSnortMsg     = regexp.MustCompile(`msg\s*:\s*"([^"]*)"`)
	reSnortContent = regexp.MustCompile(`content\s*:\s*(!?)"([^"]*)"\s*;([^;]*(?:http_uri|http_header|http_host)[^;]*;)?`)
	reSnortPcre    = regexp.MustCompile(`pcre\s*:\s*"/(.*?)/\w*"`)
	reSnortDsize   = regexp.MustCompile(`dsize\s*:\s*([<>])\s*(\d+)`)
)

// parseSnort reads rule options between parentheses. content matches land on
// the payload field (or the http field named by a sticky modifier), pcre
// becomes a regex condition, negated content becomes a filter.
func parseSnort(text string) ParsedRule {
	rule := ParsedRule{Logic: LogicAnd}
	if m := reSnortHeader.FindStringSubmatch(text); m != nil {
		rule.LogSource = "network/" + strings.ToLower(m[1])
	}
	if m := reSnortMsg.FindStringSubmatch(text); m != nil {
		rule.RuleName = m[1]
	}
	for _, m := range reSnortContent.FindAllStringSubmatch(text, -1) {
		field := "payload"
		if m[3] != "" {
			switch {
			case strings.Contains(m[3], "http_uri"):
				field = "http.uri"
			case strings.Contains(m[3], "http_host"):
				field = "http.host"
			default:
				field = "http.header"
			}
		}
		c := Condition{Field: field, Op: OpContains, Value: m[2]}
		if m[1] == "!" {
			rule.Filters = append(rule.Filters, c)
		} else {
			rule.Conditions = append(rule.Conditions, c)
		}
	}
	for _, m := range reSnortPcre.FindAllStringSubmatch(text, -1) {
		rule.Conditions = append(rule.Conditions,
			Condition{Field: "payload", Op: OpRegex, Value: m[1]})
	}
	if m := reSnortDsize.FindStringSubmatch(text); m != nil {
		op := OpGt
		if m[1] == "<" {
			op = OpLt
		}
		rule.Conditions = append(rule.Conditions,
			Condition{Field: "dsize", Op: op, Value: m[2]})
	}
	if len(rule.Filters) > 0 {
		rule.Logic = LogicAndNotFilter
	}
	return rule
}

var reS1QLComparison = regexp.MustCompile(
	`(?i)([A-Za-z_][\w.]*)\s+(==|!=|>=|<=|>|<|contains(?:cis)?|in contains anycase|startswith(?:cis)?|endswith(?:cis)?|regexp|matches|in)\s*(\(.*?\)|"(?:[^"\\]|\\.)*"|'[^']*'|\S+)`)

// parseS1QL handles the dotted src.process/tgt.process field idiom with its
// CIS-suffixed (case-insensitive) operator variants.
func parseS1QL(text string) ParsedRule {
	rule := ParsedRule{LogSource: "edr"}
	for _, m := range reS1QLComparison.FindAllStringSubmatch(text, -1) {
		op := strings.TrimSuffix(strings.ToLower(m[2]), "cis")
		rule.Conditions = append(rule.Conditions, queryCondition(m[1], op, m[3]))
	}
	rule.Logic = inferLogic(text)
	return rule
}

var (
	reASQFunc = regexp.MustCompile(
		`(?i)\b(contains|matches|in)\s*\(\s*([\w.]+)\s*,\s*("(?:[^"\\]|\\.)*"|'[^']*'|[^)]+)\)`)
	reASQComparison = regexp.MustCompile(
		`(?i)([A-Za-z_][\w.]*)\s*(==|!=|>=|<=|>|<|contains|matches)\s*("(?:[^"\\]|\\.)*"|'[^']*'|\S+)`)
)

// parseASQ walks "| filter" stages, accepting both the function-call form
// contains(field, value) and plain binary comparisons.
func parseASQ(text string) ParsedRule {
	rule := ParsedRule{LogSource: "edr"}
	var filterText strings.Builder
	for _, stage := range strings.Split(text, "|") {
		trimmed := strings.TrimSpace(stage)
		if !strings.HasPrefix(strings.ToLower(trimmed), "filter") {
			continue
		}
		expr := strings.TrimSpace(trimmed[len("filter"):])
		filterText.WriteString(expr)
		filterText.WriteString(" ")
		consumed := make(map[string]struct{})
		for _, m := range reASQFunc.FindAllStringSubmatch(expr, -1) {
			rule.Conditions = append(rule.Conditions,
				queryCondition(m[2], strings.ToLower(m[1]), m[3]))
			consumed[m[2]] = struct{}{}
		}
		for _, m := range reASQComparison.FindAllStringSubmatch(expr, -1) {
			if _, done := consumed[m[1]]; done {
				continue
			}
			rule.Conditions = append(rule.Conditions,
				queryCondition(m[1], strings.ToLower(m[2]), m[3]))
		}
	}
	rule.Logic = inferLogic(filterText.String())
	return rule
}

var (
	reOQLFrom       = regexp.MustCompile(`(?i)\bfrom\s+([\w.]+)`)
	reOQLComparison = regexp.MustCompile(
		`(?i)([A-Za-z_][\w.]*)\s*(=|!=|<>|>=|<=|>|<|like|regexp)\s*('(?:[^'\\]|\\.)*'|"[^"]*"|\S+)`)
)

// parseOQL extracts WHERE-clause comparisons from SQL-shaped queries.
// LIKE percent placement maps onto the substring operators.
func parseOQL(text string) ParsedRule {
	rule := ParsedRule{}
	if m := reOQLFrom.FindStringSubmatch(text); m != nil {
		rule.LogSource = m[1]
	}
	body := text
	if idx := strings.Index(strings.ToLower(text), "where"); idx >= 0 {
		body = text[idx+len("where"):]
	}
	for _, m := range reOQLComparison.FindAllStringSubmatch(body, -1) {
		field, op, raw := m[1], strings.ToLower(m[2]), unquote(m[3])
		if op == "like" {
			rule.Conditions = append(rule.Conditions, likeCondition(field, raw))
			continue
		}
		rule.Conditions = append(rule.Conditions, queryCondition(field, op, m[3]))
	}
	rule.Logic = inferLogic(body)
	return rule
}

// likeCondition maps SQL LIKE percent placement: %v% contains, %v endswith,
// v% startswith, bare v equals.
func likeCondition(field, pattern string) Condition {
	leading := strings.HasPrefix(pattern, "%")
	trailing := strings.HasSuffix(pattern, "%")
	trimmed := strings.Trim(pattern, "%")
	switch {
	case leading && trailing:
		return Condition{Field: field, Op: OpContains, Value: trimmed}
	case leading:
		return Condition{Field: field, Op: OpEndswith, Value: trimmed}
	case trailing:
		return Condition{Field: field, Op: OpStartswith, Value: trimmed}
	default:
		return Condition{Field: field, Op: OpEquals, Value: pattern}
	}
}

var rePANOSComparison = regexp.MustCompile(
	`\(\s*([\w.-]+)\s+(eq|neq|leq|geq|contains|in)\s+('[^']*'|"[^"]*"|\S+?)\s*\)`)

// parsePANOS reads parenthesized traffic-filter terms
func parsePANOS(text string) ParsedRule {
	rule := ParsedRule{LogSource: "firewall"}
	for _, m := range rePANOSComparison.FindAllStringSubmatch(text, -1) {
		rule.Conditions = append(rule.Conditions,
			queryCondition(m[1], m[2], m[3]))
	}
	rule.Logic = inferLogic(text)
	return rule
}

var reOktaComparison = regexp.MustCompile(
	`([A-Za-z_][\w.]*)\s+(eq|ne|co|sw|ew|gt|ge|lt|le)\s+("(?:[^"\\]|\\.)*"|'[^']*'|\S+)`)

// parseOkta reads SCIM-style filter expressions used by event hooks
func parseOkta(text string) ParsedRule {
	rule := ParsedRule{LogSource: "saas/okta"}
	for _, m := range reOktaComparison.FindAllStringSubmatch(text, -1) {
		rule.Conditions = append(rule.Conditions,
			queryCondition(m[1], m[2], m[3]))
	}
	rule.Logic = inferLogic(text)
	return rule
}

// queryCondition maps a dialect operator token onto the canonical set and
// cleans the raw value. Unmapped operators, including all the negated forms,
// default conservatively to contains.
func queryCondition(field, op, rawValue string) Condition {
	value := unquote(strings.TrimSpace(rawValue))

	// bracketed or parenthesized candidate lists become multi-valued conditions
	if values := splitCandidates(value); values != nil {
		c := Condition{Field: field, Values: values, Value: values[0]}
		switch op {
		case "in", "in~", "has_any", "in contains anycase":
			c.Op = OpEquals
		default:
			c.Op = OpContains
		}
		return c
	}

	switch op {
	case "==", "=~", "=", "eq", ":":
		if strings.Contains(value, "*") {
			return wildcardCondition(field, value)
		}
		return Condition{Field: field, Op: OpEquals, Value: value}
	case "contains", "has", "co", "in contains anycase":
		return Condition{Field: field, Op: OpContains, Value: value}
	case "startswith", "sw":
		return Condition{Field: field, Op: OpStartswith, Value: value}
	case "endswith", "ew":
		return Condition{Field: field, Op: OpEndswith, Value: value}
	case "matches regex", "matches", "regexp", "regex", "regex~", "re":
		return Condition{Field: field, Op: OpRegex, Value: value}
	case "like", "like~":
		return likeCondition(field, strings.ReplaceAll(value, "*", "%"))
	case ">", "gt":
		return Condition{Field: field, Op: OpGt, Value: value}
	case ">=", "ge", "gte", "geq":
		return Condition{Field: field, Op: OpGte, Value: value}
	case "<", "lt":
		return Condition{Field: field, Op: OpLt, Value: value}
	case "<=", "le", "lte", "leq":
		return Condition{Field: field, Op: OpLte, Value: value}
	case "in", "in~":
		return Condition{Field: field, Op: OpEquals, Value: value}
	default:
		return Condition{Field: field, Op: OpContains, Value: value}
	}
}

// splitCandidates unwraps ("a", "b") / ["a", "b"] value lists, nil otherwise
func splitCandidates(value string) []string {
	if len(value) < 2 {
		return nil
	}
	first, last := value[0], value[len(value)-1]
	if !(first == '(' && last == ')') && !(first == '[' && last == ']') {
		return nil
	}
	parts := strings.Split(value[1:len(value)-1], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := unquote(strings.TrimSpace(p)); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
