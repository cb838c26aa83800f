package detval

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// benignValues replace trigger fields in true negatives. Keyed by rough
// field role so a process rule gets plausible process noise and a network
// rule gets plausible network noise.
var benignCommandLines = []string{
	`C:\Windows\System32\svchost.exe -k netsvcs -p`,
	`C:\Program Files\Microsoft Office\root\Office16\WINWORD.EXE /n`,
	`C:\Windows\System32\wbem\wmiprvse.exe -Embedding`,
	`C:\Windows\System32\taskhostw.exe {222A245B-E637-4AE9-A93F-A59CA119A75E}`,
	`"C:\Program Files\Google\Chrome\Application\chrome.exe" --type=utility`,
}

// lookalike noise sits near common detection content without being an
// attack, the raw material for false positive candidates
var lookalikeCommandLines = []string{
	`C:\Windows\System32\rundll32.exe shell32.dll,Control_RunDLL`,
	`C:\Windows\System32\rundll32.exe printui.dll,PrintUIEntry`,
	`powershell.exe -ExecutionPolicy Bypass -File C:\scripts\inventory.ps1`,
	`C:\Windows\System32\regsvr32.exe /s C:\Program Files\Common Files\component.dll`,
	`cmd.exe /c "C:\Program Files\Vendor\updater.exe" --check`,
}

var benignImages = []string{
	`C:\Windows\System32\svchost.exe`,
	`C:\Windows\explorer.exe`,
	`C:\Program Files\Microsoft Office\root\Office16\WINWORD.EXE`,
	`C:\Windows\System32\taskhostw.exe`,
	`C:\Windows\System32\wbem\wmiprvse.exe`,
}

var benignGeneric = []string{
	"scheduled maintenance task",
	"software inventory scan",
	"routine configuration sync",
	"user profile refresh",
	"telemetry upload",
}

// evasionTransform rewrites a trigger value the way an attacker dodging a
// literal match would
type evasionTransform struct {
	name  string
	apply func(value string) string
}

var evasionTransforms = []evasionTransform{
	{"case_invert", invertCase},
	{"env_substitution", func(v string) string {
		out := strings.Replace(v, `C:\Windows`, `%SystemRoot%`, 1)
		if out == v {
			out = strings.Replace(v, `C:\Users\Public`, `%PUBLIC%`, 1)
		}
		if out == v {
			out = `%TEMP%\` + strings.TrimLeft(v, `\`)
		}
		return out
	}},
	{"path_traversal", func(v string) string {
		if idx := strings.LastIndex(v, `\`); idx > 0 {
			return v[:idx] + `\..` + v[idx:]
		}
		return `..\` + v
	}},
	{"alt_syspath", func(v string) string {
		out := strings.Replace(v, `System32`, `SysWOW64`, 1)
		if out == v {
			out = strings.Replace(v, `system32`, `syswow64`, 1)
		}
		return out
	}},
	{"whitespace_padding", func(v string) string {
		return strings.Replace(v, " ", "    ", 1)
	}},
	{"double_extension", func(v string) string {
		if strings.HasSuffix(strings.ToLower(v), ".exe") {
			return v[:len(v)-4] + ".pdf.exe"
		}
		return v + ".txt"
	}},
	{"quote_insertion", func(v string) string {
		if idx := strings.LastIndex(v, `\`); idx > 0 {
			return `"` + v[:idx] + `"` + v[idx:]
		}
		return `"` + v + `"`
	}},
	{"base64_encoding", func(v string) string {
		return "powershell -EncodedCommand " + base64.StdEncoding.EncodeToString([]byte(v))
	}},
	{"unicode_homoglyph", func(v string) string {
		// Cyrillic small o for Latin o
		return strings.Replace(v, "o", "о", 1)
	}},
}

func invertCase(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-'a'+'A')
		case r >= 'A' && r <= 'Z':
			out = append(out, r-'A'+'a')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// RuleDrivenGenerator derives all four event categories from a parsed rule:
// true positives satisfy every condition, negatives swap trigger fields for
// benign noise, FP candidates satisfy a strict subset, and evasion samples
// mutate trigger values with known dodges.
type RuleDrivenGenerator struct {
	*TelemetryGenerator
	Rule ParsedRule
}

// NewRuleDrivenGenerator builds a generator for rule seeded with seed
func NewRuleDrivenGenerator(rule ParsedRule, seed int64) *RuleDrivenGenerator {
	return &RuleDrivenGenerator{
		TelemetryGenerator: NewTelemetryGenerator(seed),
		Rule:               rule,
	}
}

// triggerValue produces a field value that satisfies c
func (g *RuleDrivenGenerator) triggerValue(c Condition, variant int) string {
	value := c.Value
	if len(c.Values) > 0 {
		value = c.Values[variant%len(c.Values)]
	}
	switch c.Op {
	case OpEquals:
		return value
	case OpContains, OpContainsAll:
		pads := []string{
			"cmd.exe /c " + value,
			value + " /s",
			`powershell -nop ` + value,
			value,
		}
		if c.Op == OpContainsAll && len(c.Values) > 0 {
			return strings.Join(c.Values, " ")
		}
		return pads[variant%len(pads)]
	case OpStartswith:
		suffixes := []string{"", " /quiet", " -windowstyle hidden", "  "}
		return value + suffixes[variant%len(suffixes)]
	case OpEndswith:
		prefixes := []string{`C:\Windows\System32`, `C:\Windows`, `C:\Users\Public\Downloads`, `D:\tools`}
		prefix := prefixes[variant%len(prefixes)]
		if strings.HasPrefix(value, `\`) || strings.HasPrefix(value, "/") {
			return prefix + value
		}
		return prefix + `\` + value
	case OpRegex:
		return regexSeedValue(value)
	case OpGt, OpGte:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return value
		}
		if c.Op == OpGte {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return strconv.FormatFloat(n+1+float64(variant), 'f', -1, 64)
	case OpLt, OpLte:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return value
		}
		if c.Op == OpLte {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return strconv.FormatFloat(n-1-float64(variant), 'f', -1, 64)
	default:
		return value
	}
}

// regexSeedValue strips common metacharacters to a literal fragment likely
// to satisfy the pattern. A fragment match is best effort, patterns with
// mandatory anchors around alternation may need a hand-built sample.
func regexSeedValue(pattern string) string {
	replacer := strings.NewReplacer(
		"^", "", "$", "", "(?i)", "",
		".*", "x", ".+", "x", "\\", "",
		"(", "", ")", "", "?", "", "+", "", "*", "",
	)
	fragment := replacer.Replace(pattern)
	if idx := strings.Index(fragment, "|"); idx > 0 {
		fragment = fragment[:idx]
	}
	return fragment
}

// benignValue picks replacement noise appropriate to the field role
func (g *RuleDrivenGenerator) benignValue(field string) string {
	lower := strings.ToLower(field)
	switch {
	case strings.Contains(lower, "commandline") || strings.Contains(lower, "cmdline") ||
		strings.Contains(lower, "command_line"):
		return benignCommandLines[g.rng.Intn(len(benignCommandLines))]
	case strings.Contains(lower, "image") || strings.Contains(lower, "path") ||
		strings.Contains(lower, "filename"):
		return benignImages[g.rng.Intn(len(benignImages))]
	case strings.Contains(lower, "domain") || strings.Contains(lower, "query") ||
		strings.Contains(lower, "host"):
		return g.domain(false)
	case strings.Contains(lower, "ip") || strings.Contains(lower, "addr"):
		return g.internalIP()
	case strings.Contains(lower, "user") || strings.Contains(lower, "actor"):
		return g.username()
	default:
		return benignGeneric[g.rng.Intn(len(benignGeneric))]
	}
}

// lookalikeValue picks near-miss noise for FP candidate fields
func (g *RuleDrivenGenerator) lookalikeValue(field string) string {
	lower := strings.ToLower(field)
	if strings.Contains(lower, "commandline") || strings.Contains(lower, "cmdline") ||
		strings.Contains(lower, "command_line") || strings.Contains(lower, "message") {
		return lookalikeCommandLines[g.rng.Intn(len(lookalikeCommandLines))]
	}
	return g.benignValue(field)
}

func (g *RuleDrivenGenerator) event(category EventCategory, desc string, data map[string]interface{}, expected bool, notes string, tags []string) SyntheticEvent {
	return SyntheticEvent{
		EventID:           g.nextID(),
		Category:          category,
		Description:       desc,
		LogData:           data,
		AttackTechnique:   g.Rule.Technique(),
		ExpectedDetection: expected,
		Notes:             notes,
		Tags:              tags,
		Severity:          severityFor(category),
	}
}

func severityFor(category EventCategory) string {
	switch category {
	case CategoryTrueAttack, CategoryEvasion:
		return "high"
	case CategoryFPCandidate:
		return "medium"
	default:
		return "low"
	}
}

// setField writes value under the condition's field spelling. Dotted fields
// from nested dialects are written with the literal key, matching the
// evaluator's literal-first resolution.
func setField(data map[string]interface{}, field, value string) {
	data[field] = value
}

// TruePositives implements Generator. Each event satisfies every selection
// condition under AND logic, or a rotating single condition under OR.
func (g *RuleDrivenGenerator) TruePositives(count int) ([]SyntheticEvent, error) {
	events := make([]SyntheticEvent, 0, count)
	for i := 0; i < count; i++ {
		data := g.baseEvent(g.Rule.LogSource)
		if g.Rule.Logic == LogicOr && len(g.Rule.Conditions) > 0 {
			c := g.Rule.Conditions[i%len(g.Rule.Conditions)]
			setField(data, c.Field, g.triggerValue(c, i))
		} else {
			for _, c := range g.Rule.Conditions {
				setField(data, c.Field, g.triggerValue(c, i))
			}
		}
		events = append(events, g.event(
			CategoryTrueAttack,
			fmt.Sprintf("Attack matching %s, variant %d", g.Rule.RuleName, i+1),
			data, true,
			"all selection conditions satisfied",
			[]string{"generated", "true_positive"},
		))
	}
	return events, nil
}

// TrueNegatives implements Generator. Trigger fields carry benign values so
// a correct rule stays silent.
func (g *RuleDrivenGenerator) TrueNegatives(count int) ([]SyntheticEvent, error) {
	events := make([]SyntheticEvent, 0, count)
	for i := 0; i < count; i++ {
		data := g.baseEvent(g.Rule.LogSource)
		for _, c := range g.Rule.Conditions {
			setField(data, c.Field, g.benignValue(c.Field))
		}
		events = append(events, g.event(
			CategoryTrueBenign,
			fmt.Sprintf("Benign activity, variant %d", i+1),
			data, false,
			"routine activity, no trigger values present",
			[]string{"generated", "true_negative"},
		))
	}
	return events, nil
}

// FPCandidates implements Generator. Events satisfy a strict subset of the
// selection, and when the rule carries filters, inject the filter value so
// well-scoped rules get credit for suppressing them.
func (g *RuleDrivenGenerator) FPCandidates(count int) ([]SyntheticEvent, error) {
	events := make([]SyntheticEvent, 0, count)
	conditions := g.Rule.Conditions
	for i := 0; i < count; i++ {
		data := g.baseEvent(g.Rule.LogSource)
		// satisfy roughly half the conditions, never all of them
		limit := len(conditions) / 2
		if limit == 0 && len(conditions) > 1 {
			limit = 1
		}
		for j, c := range conditions {
			if j < limit {
				setField(data, c.Field, g.triggerValue(c, i))
			} else {
				setField(data, c.Field, g.lookalikeValue(c.Field))
			}
		}
		notes := "partial overlap with trigger conditions"
		if len(g.Rule.Filters) > 0 && i%2 == 0 {
			// legitimate activity the rule's own filter should suppress
			f := g.Rule.Filters[i%len(g.Rule.Filters)]
			for _, c := range conditions {
				setField(data, c.Field, g.triggerValue(c, i))
			}
			setField(data, f.Field, g.triggerValue(f, i))
			notes = "trigger values present alongside filter value"
		}
		events = append(events, g.event(
			CategoryFPCandidate,
			fmt.Sprintf("Benign lookalike, variant %d", i+1),
			data, false, notes,
			[]string{"generated", "fp_candidate"},
		))
	}
	return events, nil
}

// EvasionSamples implements Generator. Every sample is a real attack the
// rule should still catch, so expected detection stays true even though the
// literal trigger value has been mutated.
func (g *RuleDrivenGenerator) EvasionSamples(count int) ([]SyntheticEvent, error) {
	events := make([]SyntheticEvent, 0, count)
	for i := 0; i < count; i++ {
		data := g.baseEvent(g.Rule.LogSource)
		for _, c := range g.Rule.Conditions {
			setField(data, c.Field, g.triggerValue(c, i))
		}
		name := "renamed_binary"
		if i%len(evasionTransforms) != 0 || !g.renameBinary(data) {
			t := evasionTransforms[i%len(evasionTransforms)]
			name = t.name
			for _, c := range g.Rule.Conditions {
				if s, ok := data[c.Field].(string); ok {
					setField(data, c.Field, t.apply(s))
				}
			}
		}
		events = append(events, g.event(
			CategoryEvasion,
			fmt.Sprintf("Evasion attempt (%s), variant %d", name, i+1),
			data, true,
			"attack with "+name+" applied to trigger values",
			[]string{"generated", "evasion", name},
		))
	}
	return events, nil
}

// renameBinary moves an endswith-matched executable name into
// OriginalFileName and randomizes the on-disk path, the classic defeat for
// image-suffix rules. Returns false when the rule has no such condition.
func (g *RuleDrivenGenerator) renameBinary(data map[string]interface{}) bool {
	for _, c := range g.Rule.Conditions {
		if c.Op != OpEndswith || !strings.HasSuffix(strings.ToLower(c.Value), ".exe") {
			continue
		}
		original := strings.TrimLeft(c.Value, `\`)
		data["OriginalFileName"] = original
		setField(data, c.Field, fmt.Sprintf(`C:\Users\Public\%s.exe`, g.faker.LetterN(8)))
		return true
	}
	return false
}
