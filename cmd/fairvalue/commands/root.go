package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fairvalue",
	Short: "DCF 기반 내재가치 평가 엔진",
	Long: `fairvalue CLI

Discounted cash flow valuation of listed companies.
WACC, blended growth and a Gordon terminal value give an intrinsic value per share.

Usage:
  go run ./cmd/fairvalue [command]

Examples:
  go run ./cmd/fairvalue api
  go run ./cmd/fairvalue value --ticker AAPL
  go run ./cmd/fairvalue value --file config/example_record.yaml
  go run ./cmd/fairvalue scheduler start
  go run ./cmd/fairvalue benchmarks`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
