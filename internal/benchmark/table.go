package benchmark

import (
	"strings"

	"github.com/wonny/fairvalue/internal/contracts"
)

// Built-in defaults used when a country or industry is not in the table
const (
	DefaultTreasuryRate    = 0.05
	DefaultBenchmarkETF    = "SPY"
	DefaultBenchmarkReturn = 0.05
	DefaultGrowthRate      = 0.05
)

// Table maps countries to risk-free and market rates and industries to
// long-term growth rates. Rates are fractional.
// ⭐ SSOT: 국가/업종 벤치마크는 이 테이블에서만
type Table struct {
	Version    string              `yaml:"version" json:"version"`
	Countries  map[string]Country  `yaml:"countries" json:"countries"`
	Industries map[string]Industry `yaml:"industries" json:"industries"`
}

// Country holds the benchmark rates of one market
type Country struct {
	TreasuryRate    float64 `yaml:"treasury_rate" json:"treasury_rate"`
	BenchmarkETF    string  `yaml:"benchmark_etf" json:"benchmark_etf"`
	BenchmarkReturn float64 `yaml:"benchmark_return" json:"benchmark_return"`
}

// Industry holds the long-term growth rate of one sector
type Industry struct {
	GrowthRate float64 `yaml:"growth_rate" json:"growth_rate"`
}

// Lookup is the resolved benchmark set for a country/industry pair
type Lookup struct {
	Country            string  `json:"country"`
	Industry           string  `json:"industry"`
	TreasuryRate       float64 `json:"treasury_rate"`
	BenchmarkETF       string  `json:"benchmark_etf"`
	BenchmarkReturn    float64 `json:"benchmark_return"`
	IndustryGrowthRate float64 `json:"industry_growth_rate"`
	Defaulted          bool    `json:"defaulted"`
}

// Default returns an empty table; every lookup resolves to the built-in defaults
func Default() *Table {
	return &Table{
		Version:    "builtin",
		Countries:  map[string]Country{},
		Industries: map[string]Industry{},
	}
}

// Lookup resolves the rates for a country and industry.
// Names match case-insensitively; unknown names fall back to the defaults.
func (t *Table) Lookup(country, industry string) Lookup {
	out := Lookup{
		Country:            country,
		Industry:           industry,
		TreasuryRate:       DefaultTreasuryRate,
		BenchmarkETF:       DefaultBenchmarkETF,
		BenchmarkReturn:    DefaultBenchmarkReturn,
		IndustryGrowthRate: DefaultGrowthRate,
	}

	if c, found := findCountry(t.Countries, country); found {
		out.TreasuryRate = c.TreasuryRate
		out.BenchmarkETF = c.BenchmarkETF
		out.BenchmarkReturn = c.BenchmarkReturn
	} else {
		out.Defaulted = true
	}

	if i, found := findIndustry(t.Industries, industry); found {
		out.IndustryGrowthRate = i.GrowthRate
	} else {
		out.Defaulted = true
	}

	return out
}

// Apply fills the record's missing benchmark rates from the table.
// Rates already present on the record are kept.
func (t *Table) Apply(record *contracts.FinancialRecord, country, industry string) Lookup {
	l := t.Lookup(country, industry)

	if !contracts.IsFinite(record.TreasuryRate) {
		record.TreasuryRate = l.TreasuryRate
	}
	if !contracts.IsFinite(record.BenchmarkReturn) {
		record.BenchmarkReturn = l.BenchmarkReturn
	}
	if !contracts.IsFinite(record.IndustryGrowthRate) {
		record.IndustryGrowthRate = l.IndustryGrowthRate
	}

	return l
}

func findCountry(m map[string]Country, name string) (Country, bool) {
	if c, found := m[name]; found {
		return c, true
	}
	for k, c := range m {
		if strings.EqualFold(k, name) {
			return c, true
		}
	}
	return Country{}, false
}

func findIndustry(m map[string]Industry, name string) (Industry, bool) {
	if i, found := m[name]; found {
		return i, true
	}
	for k, i := range m {
		if strings.EqualFold(k, name) {
			return i, true
		}
	}
	return Industry{}, false
}
