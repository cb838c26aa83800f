package detval

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// sigmaDoc is the subset of a Sigma yaml document the condition model needs.
// Detection keys other than "condition" are selection-like identifiers;
// anything prefixed "filter" is a suppression predicate.
type sigmaDoc struct {
	Title     string `yaml:"title"`
	Level     string `yaml:"level"`
	Logsource struct {
		Product  string `yaml:"product"`
		Category string `yaml:"category"`
		Service  string `yaml:"service"`
	} `yaml:"logsource"`
	Detection yaml.MapSlice `yaml:"detection"`
	Tags      []string      `yaml:"tags"`
}

// parseSigma extracts conditions and filters from a Sigma document.
// The combinator is inferred from the textual condition expression; document
// order of detection keys is preserved so traces stay stable.
func parseSigma(text string) ParsedRule {
	var doc sigmaDoc
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return ParsedRule{}
	}

	rule := ParsedRule{
		RuleName:  doc.Title,
		LogSource: sigmaLogSource(doc),
		Mitre:     sigmaMitre(doc.Tags),
	}

	var conditionExpr string
	for _, item := range doc.Detection {
		key, ok := item.Key.(string)
		if !ok {
			continue
		}
		if key == "condition" {
			conditionExpr, _ = item.Value.(string)
			continue
		}
		extracted := sigmaIdent(item.Value)
		if strings.HasPrefix(strings.ToLower(key), "filter") {
			rule.Filters = append(rule.Filters, extracted...)
		} else {
			rule.Conditions = append(rule.Conditions, extracted...)
		}
	}

	rule.Logic = inferLogic(conditionExpr)
	if rule.Logic == LogicAndNotFilter && len(rule.Filters) == 0 {
		rule.Logic = LogicAnd
	}
	return rule
}

// sigmaIdent flattens one selection identifier into conditions. Map values
// are field predicates, list values are keyword-style contains conditions on
// the whole selection.
func sigmaIdent(val interface{}) []Condition {
	conditions := make([]Condition, 0)
	switch v := val.(type) {
	case yaml.MapSlice:
		for _, entry := range v {
			key, ok := entry.Key.(string)
			if !ok {
				continue
			}
			conditions = append(conditions, sigmaField(key, entry.Value))
		}
	case map[interface{}]interface{}:
		for key, fv := range v {
			ks, ok := key.(string)
			if !ok {
				continue
			}
			conditions = append(conditions, sigmaField(ks, fv))
		}
	case []interface{}:
		// bare keyword list; no field to anchor to, so scan the message field
		values := scalarList(v)
		if len(values) > 0 {
			conditions = append(conditions, Condition{
				Field:  "Message",
				Op:     OpContains,
				Values: values,
				Value:  values[0],
			})
		}
	}
	return conditions
}

// sigmaField maps one "Field|modifier" entry onto a canonical condition.
// List values become a single multi-valued condition (any-of; all-of when the
// |all modifier is present), keeping conjunctive selections satisfiable.
func sigmaField(key string, val interface{}) Condition {
	parts := strings.Split(key, "|")
	field := parts[0]

	op := OpEquals
	all := false
	for _, mod := range parts[1:] {
		switch strings.ToLower(mod) {
		case "contains":
			op = OpContains
		case "startswith":
			op = OpStartswith
		case "endswith":
			op = OpEndswith
		case "re":
			op = OpRegex
		case "all":
			all = true
		case "gt":
			op = OpGt
		case "gte":
			op = OpGte
		case "lt":
			op = OpLt
		case "lte":
			op = OpLte
		case "base64", "base64offset", "windash", "cidr":
			// unmapped modifiers degrade conservatively to substring matching
			op = OpContains
		}
	}
	if all && op == OpContains {
		op = OpContainsAll
	}

	switch v := val.(type) {
	case []interface{}:
		values := scalarList(v)
		c := Condition{Field: field, Op: op, Values: values}
		if len(values) > 0 {
			c.Value = values[0]
		}
		return c
	default:
		value := scalarString(val)
		if op == OpEquals && strings.Contains(value, "*") {
			return wildcardCondition(field, value)
		}
		return Condition{Field: field, Op: op, Value: value}
	}
}

func scalarList(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sigmaLogSource(doc sigmaDoc) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{doc.Logsource.Product, doc.Logsource.Category, doc.Logsource.Service} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// sigmaMitre lifts attack.t* tags into technique identifiers
func sigmaMitre(tags []string) []string {
	out := make([]string, 0)
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		if strings.HasPrefix(lower, "attack.t") {
			out = append(out, strings.ToUpper(strings.TrimPrefix(lower, "attack.")))
		}
	}
	return out
}
