package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruleforge/detval"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Generate events for a rule and write them to stdout",
	Long: `Shorthand for generate without an output file, for piping the event
set into other tooling.`,
	Run: export,
}

func export(cmd *cobra.Command, args []string) {
	rule := loadRule(exportRulePath, exportRuleFormat)
	events := generateEvents(rule)
	if err := detval.WriteEvents(os.Stdout, events); err != nil {
		logrus.Fatal(err)
	}
}

var (
	exportRulePath   string
	exportRuleFormat string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportRulePath, "rule", "", "Path to rule text file.")
	exportCmd.MarkFlagRequired("rule")
	exportCmd.Flags().StringVar(&exportRuleFormat, "format", "", "Rule dialect hint. Empty means sniff.")
}
