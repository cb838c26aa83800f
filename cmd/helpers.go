package cmd

import (
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ruleforge/detval"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// loadRule reads rule text from path and parses it with the optional
// dialect hint
func loadRule(path, format string) detval.ParsedRule {
	raw, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatal(err)
	}
	parser := detval.RuleParser{}
	rule := parser.Parse(string(raw), format)
	logrus.Infof("parsed %q as %s, %d conditions, %d filters, logic %s",
		rule.RuleName, rule.Format, len(rule.Conditions), len(rule.Filters), rule.Logic)
	return rule
}

// loadOrGenerate returns events from the given file, or synthesizes a set
// around the rule when no file was provided
func loadOrGenerate(eventsPath string, rule detval.ParsedRule) []detval.SyntheticEvent {
	if eventsPath != "" {
		f, err := os.Open(eventsPath)
		if err != nil {
			logrus.Fatal(err)
		}
		defer f.Close()
		events, err := detval.ReadEvents(f)
		if err != nil {
			logrus.Fatal(err)
		}
		return events
	}
	return generateEvents(rule)
}

func generateEvents(rule detval.ParsedRule) []detval.SyntheticEvent {
	gen := detval.NewRuleDrivenGenerator(rule, viper.GetInt64("detval.seed"))
	events, err := detval.GenerateAll(gen, gen.TelemetryGenerator,
		viper.GetInt("detval.counts.tp"),
		viper.GetInt("detval.counts.tn"),
		viper.GetInt("detval.counts.fp"),
		viper.GetInt("detval.counts.evasion"))
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Infof("generated %d events with seed %d", len(events), viper.GetInt64("detval.seed"))
	return events
}

func writeComparisonJSON(w io.Writer, cmp detval.Comparison) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cmp)
}

func gradingFromFlags() detval.GradingConfig {
	cfg, err := detval.NewGradingConfig(
		viper.GetFloat64("detval.grading.f1"),
		viper.GetFloat64("detval.grading.evasion"),
		viper.GetFloat64("detval.grading.fp"))
	if err != nil {
		logrus.Fatal(err)
	}
	return cfg
}
