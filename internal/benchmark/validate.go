package benchmark

import (
	"fmt"
	"math"
	"sort"
)

// ValidationError 검증 실패 (로드 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that every rate is a fraction in [−1, 1]
func Validate(t *Table) error {
	for _, name := range sortedKeys(t.Countries) {
		c := t.Countries[name]
		if err := checkRate("countries."+name+".treasury_rate", c.TreasuryRate); err != nil {
			return err
		}
		if err := checkRate("countries."+name+".benchmark_return", c.BenchmarkReturn); err != nil {
			return err
		}
		if c.BenchmarkETF == "" {
			return ValidationError{"countries." + name + ".benchmark_etf", "required"}
		}
	}

	for _, name := range sortedKeys(t.Industries) {
		if err := checkRate("industries."+name+".growth_rate", t.Industries[name].GrowthRate); err != nil {
			return err
		}
	}

	return nil
}

func checkRate(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ValidationError{field, "must be a number"}
	}
	// 퍼센트(5)로 잘못 입력한 경우 방지
	if v < -1 || v > 1 {
		return ValidationError{field, fmt.Sprintf("%v is not a fraction in [-1, 1]", v)}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
