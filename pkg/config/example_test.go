package config_test

import (
	"fmt"

	"github.com/wonny/fairvalue/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Projection horizon: %d years\n", cfg.Valuation.ProjectionYears)
	fmt.Printf("Benchmark table: %s\n", cfg.Valuation.BenchmarkFile)
	fmt.Printf("Result cache TTL: %s\n", cfg.Valuation.CacheTTL)
}
