package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruleforge/detval"
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "A/B compare two rule versions on one event set",
	Long: `Parses both rule versions and evaluates them over the same events.
The shared set is generated from rule A unless an events file is given,
so version B is measured on ground it did not shape.`,
	Run: compare,
}

func compare(cmd *cobra.Command, args []string) {
	ruleA := loadRule(cmpRulePathA, cmpRuleFormat)
	ruleB := loadRule(cmpRulePathB, cmpRuleFormat)
	events := loadOrGenerate(cmpEventsPath, ruleA)

	comparator := detval.NewRuleComparator(
		detval.NewDynamicEngine(ruleA),
		detval.NewDynamicEngine(ruleB),
		events,
	).WithGrading(gradingFromFlags())
	result := comparator.Compare()

	if err := result.WriteText(os.Stdout); err != nil {
		logrus.Fatal(err)
	}
	if cmpJSONPath != "" {
		f, err := os.Create(cmpJSONPath)
		if err != nil {
			logrus.Fatal(err)
		}
		defer f.Close()
		if err := writeComparisonJSON(f, result); err != nil {
			logrus.Fatal(err)
		}
		logrus.Infof("wrote JSON comparison to %s", cmpJSONPath)
	}
}

var (
	cmpRulePathA  string
	cmpRulePathB  string
	cmpRuleFormat string
	cmpEventsPath string
	cmpJSONPath   string
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&cmpRulePathA, "rule-a", "", "Path to baseline rule text file.")
	compareCmd.MarkFlagRequired("rule-a")
	compareCmd.Flags().StringVar(&cmpRulePathB, "rule-b", "", "Path to candidate rule text file.")
	compareCmd.MarkFlagRequired("rule-b")
	compareCmd.Flags().StringVar(&cmpRuleFormat, "format", "", "Rule dialect hint applied to both rules. Empty means sniff.")
	compareCmd.Flags().StringVar(&cmpEventsPath, "events", "", "Events JSON file. Empty means generate from rule A.")
	compareCmd.Flags().StringVar(&cmpJSONPath, "json", "", "Write JSON comparison to this path.")
}
