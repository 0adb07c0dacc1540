package sensitivity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidConfig is returned for unusable simulation settings
	ErrInvalidConfig = errors.New("invalid sensitivity config")

	// ErrInsufficientSamples is returned when too few draws keep growth below WACC
	ErrInsufficientSamples = errors.New("insufficient valid samples")
)

// reportedPercentiles are the percentiles included in every Result
var reportedPercentiles = []int{5, 10, 25, 50, 75, 90, 95}

// Config controls the Monte Carlo run.
// ⭐ SSOT: 재현성을 위해 모든 설정을 결과에 기록
type Config struct {
	Simulations  int     `json:"simulations"`    // draws (기본: 5000)
	WACCStdDev   float64 `json:"wacc_std_dev"`   // absolute σ of the WACC shock
	GrowthStdDev float64 `json:"growth_std_dev"` // absolute σ of the growth shock
	Seed         int64   `json:"seed"`           // 재현성용 시드 (0=랜덤)
	MinValid     float64 `json:"min_valid"`      // minimum share of draws with growth < WACC

	GridStep  float64 `json:"grid_step"`  // spacing of the WACC × growth grid
	GridSteps int     `json:"grid_steps"` // points on each side of the base case
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		Simulations:  5000,
		WACCStdDev:   0.01,
		GrowthStdDev: 0.005,
		Seed:         42,
		MinValid:     0.5,
		GridStep:     0.005,
		GridSteps:    2,
	}
}

// Validate checks the settings
func (c Config) Validate() error {
	if c.Simulations <= 0 || c.Simulations > 100_000 {
		return fmt.Errorf("%w: simulations must be in (0, 100000]", ErrInvalidConfig)
	}
	if c.WACCStdDev < 0 || c.GrowthStdDev < 0 {
		return fmt.Errorf("%w: standard deviations must not be negative", ErrInvalidConfig)
	}
	if c.MinValid < 0 || c.MinValid > 1 {
		return fmt.Errorf("%w: min_valid must be between 0 and 1", ErrInvalidConfig)
	}
	if c.GridStep <= 0 || c.GridSteps < 0 || c.GridSteps > 10 {
		return fmt.Errorf("%w: grid step must be positive and grid steps in [0, 10]", ErrInvalidConfig)
	}
	return nil
}

// Result summarizes the distribution of intrinsic value per share
type Result struct {
	RunID  uuid.UUID `json:"run_id"`
	Ticker string    `json:"ticker"`
	Config Config    `json:"config"`

	BaseValue    float64 `json:"base_value"`             // engine value per share
	MarketPrice  float64 `json:"market_price,omitempty"` // market cap / diluted shares
	ValidSamples int     `json:"valid_samples"`

	Mean        float64         `json:"mean"`
	StdDev      float64         `json:"std_dev"`
	Percentiles map[int]float64 `json:"percentiles"`

	// ProbabilityAboveMarket is the share of draws valued above MarketPrice
	ProbabilityAboveMarket float64 `json:"probability_above_market,omitempty"`

	Grid      Grid      `json:"grid"`
	CreatedAt time.Time `json:"created_at"`
}

// Grid is a deterministic WACC × growth table of value per share.
// Values[i][j] uses WACC[i] and Growth[j]; it is nil where growth ≥ WACC.
type Grid struct {
	WACC   []float64    `json:"wacc"`
	Growth []float64    `json:"growth"`
	Values [][]*float64 `json:"values"`
}
