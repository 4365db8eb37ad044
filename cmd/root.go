package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "claimai",
	Short: "AI-powered medical insurance claim processing",
	Long: `Claim AI extracts structured data from raw medical invoices, adjudicates
claims against the patient's ingested policy documents using retrieval
augmented generation, and persists grounded claim decisions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// API keys usually live in a local .env; absence is fine.
		_ = godotenv.Load()
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".claimai.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
