package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	quiet   bool
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "detval",
	Short: "Validate detection rules against synthetic telemetry",
	Long: `detval parses detection rules from many query dialects, generates
seeded synthetic telemetry around them, evaluates the rule against the
events and scores the result. Two rule versions can be compared A/B on
the same event set.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.detval.yaml)")

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet output. Suppress warnings and other stuff. Cannot be used together with --debug and --quiet will take precedence.")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Debug mode. Enable trace logging. Cannot be used together with --quiet.")

	rootCmd.PersistentFlags().Int64("seed", 42, "Seed for deterministic event generation.")
	viper.BindPFlag("detval.seed", rootCmd.PersistentFlags().Lookup("seed"))

	rootCmd.PersistentFlags().Int("tp", 10, "True positive event count.")
	viper.BindPFlag("detval.counts.tp", rootCmd.PersistentFlags().Lookup("tp"))
	rootCmd.PersistentFlags().Int("tn", 10, "True negative event count.")
	viper.BindPFlag("detval.counts.tn", rootCmd.PersistentFlags().Lookup("tn"))
	rootCmd.PersistentFlags().Int("fp", 5, "False positive candidate event count.")
	viper.BindPFlag("detval.counts.fp", rootCmd.PersistentFlags().Lookup("fp"))
	rootCmd.PersistentFlags().Int("evasion", 5, "Evasion sample event count.")
	viper.BindPFlag("detval.counts.evasion", rootCmd.PersistentFlags().Lookup("evasion"))

	rootCmd.PersistentFlags().Float64("weight-f1", 0.4, "Composite score weight for F1.")
	viper.BindPFlag("detval.grading.f1", rootCmd.PersistentFlags().Lookup("weight-f1"))
	rootCmd.PersistentFlags().Float64("weight-evasion", 0.3, "Composite score weight for evasion resistance.")
	viper.BindPFlag("detval.grading.evasion", rootCmd.PersistentFlags().Lookup("weight-evasion"))
	rootCmd.PersistentFlags().Float64("weight-fp", 0.3, "Composite score weight for FP avoidance.")
	viper.BindPFlag("detval.grading.fp", rootCmd.PersistentFlags().Lookup("weight-fp"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".detval" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".detval")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func initLogging() {
	log.SetFormatter(&log.TextFormatter{
		DisableColors: false,
		FullTimestamp: true,
	})
	if quiet {
		log.SetLevel(log.ErrorLevel)
	} else if debug {
		log.SetLevel(log.TraceLevel)
	}
}
