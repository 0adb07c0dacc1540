package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/fairvalue/internal/sensitivity"
	"github.com/wonny/fairvalue/internal/service"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// formatPercent renders a fraction as a percentage
func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// formatAmount renders large amounts with K/M/B/T suffixes
func formatAmount(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// shortHash trims a benchmark version hash for display
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// PrintValuationReport prints a valuation in the standard report layout
func PrintValuationReport(v *service.Valuation) {
	r := v.Result
	const w = 22

	fmt.Println()
	PrintDoubleSeparator()
	title := r.Ticker
	if v.Name != "" {
		title = fmt.Sprintf("%s (%s)", r.Ticker, v.Name)
	}
	fmt.Printf("  %s\n", title)
	PrintSeparator()

	PrintKeyValue("Intrinsic value/share", fmt.Sprintf("%.2f %s", r.IntrinsicValuePerShare, v.Currency), w)
	PrintKeyValue("Equity value", formatAmount(r.EquityValue), w)
	PrintKeyValue("Net debt", formatAmount(r.NetDebt), w)
	PrintKeyValue("Status", string(r.Status), w)
	if v.Cached {
		PrintKeyValue("Source", "cache", w)
	}

	PrintSeparator()
	PrintKeyValue("Cost of equity", formatPercent(r.Costs.CostOfEquity), w)
	PrintKeyValue("Cost of debt", formatPercent(r.Costs.CostOfDebt), w)
	PrintKeyValue("Tax rate", formatPercent(r.Costs.TaxRate), w)
	PrintKeyValue("WACC", formatPercent(r.WACC), w)

	PrintSeparator()
	PrintKeyValue("Historical CAGR", formatPercent(r.CAGR), w)
	PrintKeyValue("Reinvestment × ROIC", formatPercent(r.ReinvestmentRate), w)
	PrintKeyValue("Industry rate", formatPercent(r.IndustryRate), w)
	PrintKeyValue("Chosen growth", formatPercent(r.ChosenGrowthRate), w)

	if v.Benchmark != nil {
		PrintSeparator()
		b := v.Benchmark
		PrintKeyValue("Benchmark", fmt.Sprintf("%s / %s", b.Country, b.Industry), w)
		PrintKeyValue("Treasury rate", formatPercent(b.TreasuryRate), w)
		PrintKeyValue("Market return", fmt.Sprintf("%s (%s)", formatPercent(b.BenchmarkReturn), b.BenchmarkETF), w)
		if b.Defaulted {
			PrintKeyValue("Note", "built-in defaults used", w)
		}
	}

	PrintSeparator()
	fmt.Println("  Projected FCF")
	for i, fcf := range r.ProjectedFCF {
		PrintKeyValue(fmt.Sprintf("Year +%d", i+1), formatAmount(fcf), w)
	}

	if len(r.Warnings) > 0 {
		PrintSeparator()
		fmt.Printf("  %d warning(s)\n", len(r.Warnings))
		for _, d := range r.Warnings {
			PrintWarning(fmt.Sprintf("[%s] %s", d.Stage, d.Message))
		}
	}
	PrintDoubleSeparator()
}

// PrintSensitivityReport prints the distribution summary and the WACC × growth grid
func PrintSensitivityReport(s *sensitivity.Result) {
	const w = 22

	fmt.Println()
	fmt.Printf("  Sensitivity (%d/%d draws, seed %d)\n", s.ValidSamples, s.Config.Simulations, s.Config.Seed)
	PrintSeparator()
	PrintKeyValue("Mean ± σ", fmt.Sprintf("%.2f ± %.2f", s.Mean, s.StdDev), w)
	PrintKeyValue("P5 / P50 / P95", fmt.Sprintf("%.2f / %.2f / %.2f", s.Percentiles[5], s.Percentiles[50], s.Percentiles[95]), w)
	if s.MarketPrice > 0 {
		PrintKeyValue("Market price", fmt.Sprintf("%.2f", s.MarketPrice), w)
		PrintKeyValue("P(value > price)", formatPercent(s.ProbabilityAboveMarket), w)
	}

	PrintSeparator()
	widths := make([]int, len(s.Grid.Growth)+1)
	header := make([]string, len(s.Grid.Growth)+1)
	widths[0], header[0] = 12, "WACC / g"
	for j, g := range s.Grid.Growth {
		widths[j+1], header[j+1] = 10, formatPercent(g)
	}
	PrintTableHeader(header, widths)

	for i, wacc := range s.Grid.WACC {
		row := []string{formatPercent(wacc)}
		for _, v := range s.Grid.Values[i] {
			if v == nil {
				row = append(row, "n/a")
				continue
			}
			row = append(row, fmt.Sprintf("%.2f", *v))
		}
		PrintTableRow(row, widths)
	}
	PrintDoubleSeparator()
}
