package detval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/ruleforge/detval/utils"
)

// Engine evaluates one event against a rule's matching logic.
// Evaluate must never panic on malformed conditions; bad predicates resolve
// to no-match so one broken condition cannot abort a corpus run.
type Engine interface {
	Name() string
	Evaluate(event map[string]interface{}) DetectionResult
}

// Resolve performs dual-mode field access: the field is tried first as a
// literal key (flat schemas store "src.process.cmdline" as one key), and only
// if absent walked as a dot-separated path through nested maps. Different log
// sources encode the same logical field both ways.
func Resolve(event map[string]interface{}, field string) (interface{}, bool) {
	if v, ok := event[field]; ok {
		return v, true
	}
	if strings.Contains(field, ".") {
		return utils.GetField(field, event)
	}
	return nil, false
}

// fieldString resolves a field to its string form, empty when absent
func fieldString(event map[string]interface{}, field string) string {
	v, ok := Resolve(event, field)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// fieldNumber resolves a field to a float, reporting failure instead of
// erroring when the field is absent or non-numeric
func fieldNumber(event map[string]interface{}, field string) (float64, bool) {
	v, ok := Resolve(event, field)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			logrus.WithFields(logrus.Fields{"field": field, "value": n}).
				Warn("non-numeric value in numeric comparison")
			return 0, false
		}
		return f, true
	default:
		logrus.WithFields(logrus.Fields{"field": field, "type": fmt.Sprintf("%T", v)}).
			Warn("non-numeric value in numeric comparison")
		return 0, false
	}
}

// FieldEquals matches full field value, case insensitive
func FieldEquals(event map[string]interface{}, field, value string) bool {
	return strings.EqualFold(fieldString(event, field), value)
}

// FieldContains matches a substring anywhere in the field value
func FieldContains(event map[string]interface{}, field, value string) bool {
	return strings.Contains(
		strings.ToLower(fieldString(event, field)),
		strings.ToLower(value),
	)
}

// FieldStartswith matches a prefix on the field value
func FieldStartswith(event map[string]interface{}, field, value string) bool {
	return strings.HasPrefix(
		strings.ToLower(fieldString(event, field)),
		strings.ToLower(value),
	)
}

// FieldEndswith matches a suffix on the field value
func FieldEndswith(event map[string]interface{}, field, value string) bool {
	return strings.HasSuffix(
		strings.ToLower(fieldString(event, field)),
		strings.ToLower(value),
	)
}

// FieldRegex matches the field value against a regular expression.
// An invalid pattern is logged and resolves to false, never an error, so one
// broken condition in a many-condition rule cannot abort the batch.
func FieldRegex(event map[string]interface{}, field, pattern string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		logrus.Warn(ErrInvalidRegex{Pattern: pattern, Err: err})
		return false
	}
	return re.MatchString(fieldString(event, field))
}

// FieldGlob matches the field value against a wildcard pattern
func FieldGlob(event map[string]interface{}, field, pattern string) bool {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		logrus.WithFields(logrus.Fields{"pattern": pattern}).Warn(err)
		return false
	}
	return g.Match(strings.ToLower(fieldString(event, field)))
}

// FieldIn matches full field value against any of the candidates
func FieldIn(event map[string]interface{}, field string, values []string) bool {
	val := fieldString(event, field)
	for _, v := range values {
		if strings.EqualFold(val, v) {
			return true
		}
	}
	return false
}

// FieldNotIn is the negated set membership check
func FieldNotIn(event map[string]interface{}, field string, values []string) bool {
	return !FieldIn(event, field, values)
}

// FieldExists reports a present, non-empty field
func FieldExists(event map[string]interface{}, field string) bool {
	v, ok := Resolve(event, field)
	if !ok || v == nil {
		return false
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v)) != ""
}

// FieldGt matches numeric field values strictly above the threshold
func FieldGt(event map[string]interface{}, field string, threshold float64) bool {
	n, ok := fieldNumber(event, field)
	return ok && n > threshold
}

// FieldGte matches numeric field values at or above the threshold
func FieldGte(event map[string]interface{}, field string, threshold float64) bool {
	n, ok := fieldNumber(event, field)
	return ok && n >= threshold
}

// FieldLt matches numeric field values strictly below the threshold
func FieldLt(event map[string]interface{}, field string, threshold float64) bool {
	n, ok := fieldNumber(event, field)
	return ok && n < threshold
}

// FieldLte matches numeric field values at or below the threshold
func FieldLte(event map[string]interface{}, field string, threshold float64) bool {
	n, ok := fieldNumber(event, field)
	return ok && n <= threshold
}

// FieldBetween matches numeric field values inside [lo, hi]
func FieldBetween(event map[string]interface{}, field string, lo, hi float64) bool {
	n, ok := fieldNumber(event, field)
	return ok && n >= lo && n <= hi
}

// FieldAnyOf matches when the field contains any of the candidate substrings
func FieldAnyOf(event map[string]interface{}, field string, values []string) bool {
	val := strings.ToLower(fieldString(event, field))
	for _, v := range values {
		if strings.Contains(val, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

// FieldAllOf matches when the field contains every candidate substring
func FieldAllOf(event map[string]interface{}, field string, values []string) bool {
	val := strings.ToLower(fieldString(event, field))
	for _, v := range values {
		if !strings.Contains(val, strings.ToLower(v)) {
			return false
		}
	}
	return len(values) > 0
}

// FieldCount counts occurrences of a pattern in the field value
func FieldCount(event map[string]interface{}, field, pattern string) int {
	if pattern == "" {
		return 0
	}
	return strings.Count(
		strings.ToLower(fieldString(event, field)),
		strings.ToLower(pattern),
	)
}

// FieldLengthGt matches field values longer than the threshold
func FieldLengthGt(event map[string]interface{}, field string, length int) bool {
	return len(fieldString(event, field)) > length
}

// FieldLengthLt matches field values shorter than the threshold
func FieldLengthLt(event map[string]interface{}, field string, length int) bool {
	return len(fieldString(event, field)) < length
}

// CheckProcessLineage verifies a child/ancestor executable-name chain.
// lineage lists expected executable names from child upward, e.g.
// ["rundll32.exe", "powershell.exe"] means rundll32 spawned by powershell.
// Only child and direct parent fields are available in flat process telemetry.
func CheckProcessLineage(event map[string]interface{}, lineage []string, imageField, parentField string) bool {
	if len(lineage) == 0 {
		return true
	}
	if !strings.HasSuffix(
		strings.ToLower(fieldString(event, imageField)),
		strings.ToLower(lineage[0]),
	) {
		return false
	}
	if len(lineage) >= 2 {
		return strings.HasSuffix(
			strings.ToLower(fieldString(event, parentField)),
			strings.ToLower(lineage[1]),
		)
	}
	return true
}

// CheckOriginalFilename compares the OS-reported original file name metadata,
// which endpoint sensors populate from the PE header independent of the
// on-disk path. Defeats simple renamed-binary evasion.
func CheckOriginalFilename(event map[string]interface{}, expected string) bool {
	return FieldEquals(event, "OriginalFileName", expected)
}
