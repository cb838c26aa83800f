package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruleforge/detval"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a rule against an event set and print the scorecard",
	Long: `Parses the rule and evaluates it over the given events, or over a
freshly generated set when no events file is provided. Prints the
confusion matrix, scores and letter grade; optionally writes the full
report as JSON.`,
	Run: evaluate,
}

func evaluate(cmd *cobra.Command, args []string) {
	rule := loadRule(evalRulePath, evalRuleFormat)
	events := loadOrGenerate(evalEventsPath, rule)

	engine := detval.NewDynamicEngine(rule)
	runner := detval.NewTestRunner(engine, events).WithGrading(gradingFromFlags())
	report := runner.Report()

	if err := report.WriteText(os.Stdout); err != nil {
		logrus.Fatal(err)
	}
	if evalJSONPath != "" {
		f, err := os.Create(evalJSONPath)
		if err != nil {
			logrus.Fatal(err)
		}
		defer f.Close()
		if err := report.WriteJSON(f); err != nil {
			logrus.Fatal(err)
		}
		logrus.Infof("wrote JSON report to %s", evalJSONPath)
	}
}

var (
	evalRulePath   string
	evalRuleFormat string
	evalEventsPath string
	evalJSONPath   string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalRulePath, "rule", "", "Path to rule text file.")
	evaluateCmd.MarkFlagRequired("rule")
	evaluateCmd.Flags().StringVar(&evalRuleFormat, "format", "", "Rule dialect hint. Empty means sniff.")
	evaluateCmd.Flags().StringVar(&evalEventsPath, "events", "", "Events JSON file. Empty means generate.")
	evaluateCmd.Flags().StringVar(&evalJSONPath, "json", "", "Write full JSON report to this path.")
}
