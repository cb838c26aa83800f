package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruleforge/detval"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic telemetry for a rule",
	Long: `Parses the rule, derives true positive, true negative, false positive
candidate and evasion events from its conditions, and writes the shuffled
set as JSON. Same seed, same output.`,
	Run: generate,
}

func generate(cmd *cobra.Command, args []string) {
	rule := loadRule(rulePath, ruleFormat)
	events := generateEvents(rule)

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logrus.Fatal(err)
		}
		defer f.Close()
		out = f
	}
	if err := detval.WriteEvents(out, events); err != nil {
		logrus.Fatal(err)
	}
}

var (
	rulePath   string
	ruleFormat string
	outPath    string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&rulePath, "rule", "", "Path to rule text file.")
	generateCmd.MarkFlagRequired("rule")
	generateCmd.Flags().StringVar(&ruleFormat, "format", "", "Rule dialect hint. Empty means sniff.")
	generateCmd.Flags().StringVar(&outPath, "out", "", "Output file. Empty means stdout.")
}
