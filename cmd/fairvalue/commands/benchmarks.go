package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/fairvalue/internal/benchmark"
	"github.com/wonny/fairvalue/pkg/logger"
)

// benchmarksCmd represents the benchmarks command
var benchmarksCmd = &cobra.Command{
	Use:   "benchmarks",
	Short: "벤치마크 테이블 출력",
	Long: `BENCHMARK_FILE의 국가/업종 벤치마크를 검증하고 출력합니다.

Example:
  go run ./cmd/fairvalue benchmarks
  go run ./cmd/fairvalue benchmarks --file config/benchmarks.yaml`,
	RunE: runBenchmarks,
}

var benchmarkFile string

func init() {
	rootCmd.AddCommand(benchmarksCmd)

	benchmarksCmd.Flags().StringVar(&benchmarkFile, "file", "", "benchmark file (default BENCHMARK_FILE)")
}

func runBenchmarks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewForOutput(cfg, os.Stderr)

	path := firstNonEmpty(benchmarkFile, cfg.Valuation.BenchmarkFile)
	table, err := benchmark.LoadOrDefault(path, log)
	if err != nil {
		return err
	}
	hash, err := benchmark.Hash(table)
	if err != nil {
		return err
	}

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Benchmarks %s\n", table.Version)
	fmt.Printf("  File: %s  Hash: %s\n", path, shortHash(hash))
	PrintDoubleSeparator()

	fmt.Println()
	widths := []int{16, 10, 8, 10}
	PrintTableHeader([]string{"Country", "Treasury", "ETF", "Return"}, widths)
	for _, name := range sortedNames(table.Countries) {
		c := table.Countries[name]
		PrintTableRow([]string{name, formatPercent(c.TreasuryRate), c.BenchmarkETF, formatPercent(c.BenchmarkReturn)}, widths)
	}

	fmt.Println()
	widths = []int{24, 10}
	PrintTableHeader([]string{"Industry", "Growth"}, widths)
	for _, name := range sortedNames(table.Industries) {
		PrintTableRow([]string{name, formatPercent(table.Industries[name].GrowthRate)}, widths)
	}
	fmt.Println()

	PrintSuccess(fmt.Sprintf("%d countries, %d industries", len(table.Countries), len(table.Industries)))
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
