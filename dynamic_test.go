package detval

import "testing"

func rundllRule() ParsedRule {
	return ParsedRule{
		RuleName: "Rundll32 JavaScript Execution",
		Format:   FormatSigma,
		Conditions: []Condition{
			{Field: "Image", Op: OpEndswith, Value: `\rundll32.exe`},
			{Field: "CommandLine", Op: OpContains, Value: "javascript:"},
		},
		Logic: LogicAnd,
	}
}

func TestDynamicEngineMatch(t *testing.T) {
	engine := NewDynamicEngine(rundllRule())
	res := engine.Evaluate(map[string]interface{}{
		"Image":       `C:\Windows\System32\rundll32.exe`,
		"CommandLine": `rundll32.exe javascript:"\..\mshtml,RunHTMLApplication"`,
	})
	if !res.Matched {
		t.Fatalf("positive event did not match, trace %v", res.MatchedConditions)
	}
	if len(res.MatchedConditions) < 2 {
		t.Fatalf("wanted at least 2 trace entries, got %v", res.MatchedConditions)
	}
	// both conditions fired plus high-signal boost, capped at 1.0
	if res.ConfidenceScore != 1.0 {
		t.Fatalf("wanted confidence 1.0, got %f", res.ConfidenceScore)
	}
}

func TestDynamicEnginePartialMatch(t *testing.T) {
	engine := NewDynamicEngine(rundllRule())
	res := engine.Evaluate(map[string]interface{}{
		"Image":       `C:\Windows\System32\rundll32.exe`,
		"CommandLine": `rundll32.exe shell32.dll,Control_RunDLL`,
	})
	if res.Matched {
		t.Fatal("partial event matched under AND logic")
	}
	if res.ConfidenceScore != 0.5 {
		t.Fatalf("wanted confidence 0.5 for one of two conditions, got %f", res.ConfidenceScore)
	}
}

func TestDynamicEngineOrLogic(t *testing.T) {
	rule := rundllRule()
	rule.Logic = LogicOr
	engine := NewDynamicEngine(rule)
	res := engine.Evaluate(map[string]interface{}{
		"Image":       `C:\Users\Public\renamed.exe`,
		"CommandLine": `renamed.exe javascript:x`,
	})
	if !res.Matched {
		t.Fatal("single fired condition did not match under OR logic")
	}
}

func TestDynamicEngineFilterSuppression(t *testing.T) {
	rule := rundllRule()
	rule.Logic = LogicAndNotFilter
	rule.Filters = []Condition{
		{Field: "ParentImage", Op: OpEndswith, Value: `\msiexec.exe`},
	}
	engine := NewDynamicEngine(rule)

	suppressed := engine.Evaluate(map[string]interface{}{
		"Image":       `C:\Windows\System32\rundll32.exe`,
		"CommandLine": `rundll32.exe javascript:x`,
		"ParentImage": `C:\Windows\System32\msiexec.exe`,
	})
	if suppressed.Matched {
		t.Fatalf("filter did not suppress, trace %v", suppressed.MatchedConditions)
	}
	found := false
	for _, entry := range suppressed.MatchedConditions {
		if len(entry) > 7 && entry[:7] == "filter:" {
			found = true
		}
	}
	if !found {
		t.Fatalf("suppression not traced, got %v", suppressed.MatchedConditions)
	}

	unfiltered := engine.Evaluate(map[string]interface{}{
		"Image":       `C:\Windows\System32\rundll32.exe`,
		"CommandLine": `rundll32.exe javascript:x`,
		"ParentImage": `C:\Windows\explorer.exe`,
	})
	if !unfiltered.Matched {
		t.Fatal("non-filter parent was suppressed")
	}
}

// filters suppress after any combinator, not only the explicit and-not form
func TestDynamicEngineFilterAfterOr(t *testing.T) {
	rule := ParsedRule{
		RuleName: "Renamed Rundll32",
		Conditions: []Condition{
			{Field: "Image", Op: OpEndswith, Value: `\rundll32.exe`},
			{Field: "OriginalFileName", Op: OpEquals, Value: "RUNDLL32.EXE"},
		},
		Filters: []Condition{
			{Field: "CommandLine", Op: OpContains, Value: "printui.dll"},
		},
		Logic: LogicOr,
	}
	engine := NewDynamicEngine(rule)
	res := engine.Evaluate(map[string]interface{}{
		"Image":            `C:\Users\Public\x.exe`,
		"OriginalFileName": "RUNDLL32.EXE",
		"CommandLine":      `x.exe printui.dll,PrintUIEntry`,
	})
	if res.Matched {
		t.Fatal("filter did not suppress an OR match")
	}
}

// rundll32 with a shell32.dll suppression filter: a malicious payload is a
// TP, the same selection alongside the filter value is a TN
func TestFilteredRuleOutcomes(t *testing.T) {
	rule := ParsedRule{
		RuleName: "Rundll32 Without Shell32",
		Conditions: []Condition{
			{Field: "Image", Op: OpEndswith, Value: `\rundll32.exe`},
		},
		Filters: []Condition{
			{Field: "CommandLine", Op: OpContains, Value: "shell32.dll"},
		},
		Logic: LogicAndNotFilter,
	}
	engine := NewDynamicEngine(rule)

	attack := SyntheticEvent{
		EventID: "s1", Category: CategoryTrueAttack, ExpectedDetection: true,
		LogData: map[string]interface{}{
			"Image":       `C:\Windows\System32\rundll32.exe`,
			"CommandLine": `rundll32.exe javascript:"\..\mshtml,RunHTMLApplication"`,
		},
	}
	res := NewTestResult(attack, engine.Evaluate(attack.LogData))
	if res.Outcome != OutcomeTP || !res.Passed {
		t.Fatalf("attack wanted TP, got %s", res.Outcome)
	}

	legit := SyntheticEvent{
		EventID: "s2", Category: CategoryFPCandidate, ExpectedDetection: false,
		LogData: map[string]interface{}{
			"Image":       `C:\Windows\System32\rundll32.exe`,
			"CommandLine": `rundll32.exe shell32.dll,Control_RunDLL`,
		},
	}
	res = NewTestResult(legit, engine.Evaluate(legit.LogData))
	if res.Outcome != OutcomeTN || !res.Passed {
		t.Fatalf("filtered lookalike wanted TN, got %s", res.Outcome)
	}
}

func TestDynamicEngineZeroConditions(t *testing.T) {
	engine := NewDynamicEngine(ParsedRule{RuleName: "Empty"})
	res := engine.Evaluate(map[string]interface{}{"Image": "anything"})
	if res.Matched {
		t.Fatal("zero-condition rule matched")
	}
	if res.ConfidenceScore != 0 {
		t.Fatalf("wanted confidence 0, got %f", res.ConfidenceScore)
	}
}

func TestDynamicEngineMultiValue(t *testing.T) {
	rule := ParsedRule{
		RuleName: "Script Hosts",
		Conditions: []Condition{
			{Field: "Image", Op: OpEndswith, Value: `\wscript.exe`,
				Values: []string{`\wscript.exe`, `\cscript.exe`}},
		},
		Logic: LogicAnd,
	}
	engine := NewDynamicEngine(rule)
	if !engine.Evaluate(map[string]interface{}{"Image": `C:\Windows\System32\cscript.exe`}).Matched {
		t.Fatal("second candidate value did not match")
	}
	if engine.Evaluate(map[string]interface{}{"Image": `C:\Windows\System32\mshta.exe`}).Matched {
		t.Fatal("non-candidate matched")
	}
}

func TestConfidenceBoostSuspiciousParent(t *testing.T) {
	rule := ParsedRule{
		RuleName: "Any Process",
		Conditions: []Condition{
			{Field: "Image", Op: OpEndswith, Value: `\cmd.exe`},
		},
		Logic: LogicAnd,
	}
	engine := NewDynamicEngine(rule)
	res := engine.Evaluate(map[string]interface{}{
		"Image":       `C:\Windows\System32\cmd.exe`,
		"CommandLine": `cmd.exe /c whoami`,
		"ParentImage": `C:\Windows\System32\wscript.exe`,
	})
	if !res.Matched {
		t.Fatal("event did not match")
	}
	if res.ConfidenceScore != 1.0 {
		// one of one conditions fired, already at 1.0 before the boost cap
		t.Fatalf("wanted capped confidence 1.0, got %f", res.ConfidenceScore)
	}
	boosted := false
	for _, entry := range res.MatchedConditions {
		if entry == "confidence_boost:suspicious_parent" {
			boosted = true
		}
	}
	if !boosted {
		t.Fatalf("parent boost not traced, got %v", res.MatchedConditions)
	}
}
