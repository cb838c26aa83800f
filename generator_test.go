package detval

import (
	"reflect"
	"testing"
)

func TestGeneratorDeterminism(t *testing.T) {
	rule := rundllRule()
	a := NewRuleDrivenGenerator(rule, 42)
	b := NewRuleDrivenGenerator(rule, 42)

	eventsA, err := GenerateAll(a, a.TelemetryGenerator, 10, 10, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	eventsB, err := GenerateAll(b, b.TelemetryGenerator, 10, 10, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(eventsA, eventsB) {
		t.Fatal("same seed produced different event sets")
	}

	c := NewRuleDrivenGenerator(rule, 43)
	eventsC, err := GenerateAll(c, c.TelemetryGenerator, 10, 10, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(eventsA, eventsC) {
		t.Fatal("different seeds produced identical event sets")
	}
}

func TestGeneratorCounts(t *testing.T) {
	gen := NewRuleDrivenGenerator(rundllRule(), 7)
	events, err := GenerateAll(gen, gen.TelemetryGenerator, 8, 6, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 21 {
		t.Fatalf("wanted 21 events, got %d", len(events))
	}
	tally := make(map[EventCategory]int)
	seen := make(map[string]struct{})
	for _, e := range events {
		tally[e.Category]++
		if _, dup := seen[e.EventID]; dup {
			t.Fatalf("duplicate event id %s", e.EventID)
		}
		seen[e.EventID] = struct{}{}
	}
	if tally[CategoryTrueAttack] != 8 || tally[CategoryTrueBenign] != 6 ||
		tally[CategoryFPCandidate] != 4 || tally[CategoryEvasion] != 3 {
		t.Fatalf("category tally off: %v", tally)
	}
}

func TestGeneratorExpectations(t *testing.T) {
	gen := NewRuleDrivenGenerator(rundllRule(), 7)
	events, err := GenerateAll(gen, gen.TelemetryGenerator, 5, 5, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		switch e.Category {
		case CategoryTrueAttack, CategoryEvasion:
			if !e.ExpectedDetection {
				t.Fatalf("%s %s should expect detection", e.EventID, e.Category)
			}
		default:
			if e.ExpectedDetection {
				t.Fatalf("%s %s should not expect detection", e.EventID, e.Category)
			}
		}
	}
}

// true positives must actually satisfy the rule they were derived from
func TestTruePositivesSatisfyRule(t *testing.T) {
	rule := rundllRule()
	gen := NewRuleDrivenGenerator(rule, 11)
	events, err := gen.TruePositives(10)
	if err != nil {
		t.Fatal(err)
	}
	engine := NewDynamicEngine(rule)
	for _, e := range events {
		if !engine.Evaluate(e.LogData).Matched {
			t.Fatalf("%s did not match its own rule: %v", e.EventID, e.LogData)
		}
	}
}

func TestTrueNegativesMissRule(t *testing.T) {
	rule := rundllRule()
	gen := NewRuleDrivenGenerator(rule, 11)
	events, err := gen.TrueNegatives(10)
	if err != nil {
		t.Fatal(err)
	}
	engine := NewDynamicEngine(rule)
	for _, e := range events {
		if engine.Evaluate(e.LogData).Matched {
			t.Fatalf("%s matched despite benign values: %v", e.EventID, e.LogData)
		}
	}
}

func TestFPCandidatesNeverSatisfyFullSelection(t *testing.T) {
	rule := rundllRule()
	gen := NewRuleDrivenGenerator(rule, 13)
	events, err := gen.FPCandidates(6)
	if err != nil {
		t.Fatal(err)
	}
	engine := NewDynamicEngine(rule)
	for _, e := range events {
		if engine.Evaluate(e.LogData).Matched {
			t.Fatalf("%s fp candidate fully satisfied an unfiltered AND rule", e.EventID)
		}
	}
}

// a rule with a filter gets fp candidates carrying the filter value, which
// the filter must suppress
func TestFPCandidatesExerciseFilters(t *testing.T) {
	rule := rundllRule()
	rule.Logic = LogicAndNotFilter
	rule.Filters = []Condition{
		{Field: "ParentImage", Op: OpEndswith, Value: `\msiexec.exe`},
	}
	gen := NewRuleDrivenGenerator(rule, 13)
	events, err := gen.FPCandidates(6)
	if err != nil {
		t.Fatal(err)
	}
	engine := NewDynamicEngine(rule)
	withFilterValue := 0
	for _, e := range events {
		if engine.Evaluate(e.LogData).Matched {
			t.Fatalf("%s fp candidate matched a filtered rule", e.EventID)
		}
		if FieldEndswith(e.LogData, "ParentImage", `\msiexec.exe`) {
			withFilterValue++
		}
	}
	if withFilterValue == 0 {
		t.Fatal("no fp candidate carried the filter value")
	}
}

func TestEvasionRenamedBinary(t *testing.T) {
	gen := NewRuleDrivenGenerator(rundllRule(), 17)
	events, err := gen.EvasionSamples(len(evasionTransforms) + 1)
	if err != nil {
		t.Fatal(err)
	}
	renamed := 0
	for _, e := range events {
		for _, tag := range e.Tags {
			if tag == "renamed_binary" {
				renamed++
				if !FieldEquals(e.LogData, "OriginalFileName", "rundll32.exe") {
					t.Fatalf("%s renamed binary lost its original filename: %v",
						e.EventID, e.LogData["OriginalFileName"])
				}
				if FieldEndswith(e.LogData, "Image", `\rundll32.exe`) {
					t.Fatalf("%s renamed binary kept the rule-visible image path", e.EventID)
				}
			}
		}
	}
	if renamed == 0 {
		t.Fatal("no renamed_binary sample generated for an endswith .exe rule")
	}
}

func TestTemplateSelection(t *testing.T) {
	cases := []struct {
		logSource string
		field     string
	}{
		{"windows/process_creation", "Image"},
		{"network/tcp", "DestinationIp"},
		{"saas/okta", "eventType"},
		{"firewall", "dport"},
		{"", "Image"},
	}
	gen := NewTelemetryGenerator(1)
	for _, c := range cases {
		data := gen.baseEvent(c.logSource)
		if _, ok := data[c.field]; !ok {
			t.Fatalf("log source %q template missing field %q: %v", c.logSource, c.field, data)
		}
	}
}

// a generator that does not provide a requested category must fail the whole
// run, not quietly return a short corpus
func TestGenerateAllUnimplementedHook(t *testing.T) {
	tg := NewTelemetryGenerator(1)
	events, err := GenerateAll(tg, tg, 5, 5, 5, 5)
	if err == nil {
		t.Fatalf("wanted an error from unimplemented hooks, got %d events", len(events))
	}
	if _, ok := err.(ErrNotImplemented); !ok {
		t.Fatalf("wanted ErrNotImplemented, got %T %s", err, err)
	}

	// categories with zero requested events never invoke their hook
	if _, err := GenerateAll(tg, tg, 0, 0, 0, 0); err != nil {
		t.Fatalf("zero counts should not touch any hook, got %s", err)
	}
}
