package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/sensitivity"
	"github.com/wonny/fairvalue/internal/service"
)

// valueCmd represents the value command
var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "단일 종목 평가",
	Long: `한 종목의 내재가치를 계산하고 결과를 출력합니다.

--ticker: 시장 데이터 API에서 재무 데이터를 가져와 평가
--file:   YAML 파일의 재무 데이터를 그대로 평가 (record + history)

Example:
  go run ./cmd/fairvalue value --ticker AAPL
  go run ./cmd/fairvalue value --ticker AAPL --refresh --json
  go run ./cmd/fairvalue value --file config/example_record.yaml
  go run ./cmd/fairvalue value --ticker AAPL --sensitivity --simulations 10000`,
	RunE: runValue,
}

var (
	valueTicker   string
	valueFilePath string
	valueCountry  string
	valueIndustry string
	valueRefresh  bool
	valueJSON     bool

	valueSensitivity bool
	valueSimulations int
	valueSeed        int64
)

func init() {
	rootCmd.AddCommand(valueCmd)

	valueCmd.Flags().StringVar(&valueTicker, "ticker", "", "ticker symbol")
	valueCmd.Flags().StringVar(&valueFilePath, "file", "", "YAML file with record and history")
	valueCmd.Flags().StringVar(&valueCountry, "country", "", "benchmark country override")
	valueCmd.Flags().StringVar(&valueIndustry, "industry", "", "benchmark industry override")
	valueCmd.Flags().BoolVar(&valueRefresh, "refresh", false, "bypass the result cache")
	valueCmd.Flags().BoolVar(&valueJSON, "json", false, "print the result as JSON")
	valueCmd.Flags().BoolVar(&valueSensitivity, "sensitivity", false, "add a Monte Carlo and WACC × growth sensitivity analysis")
	valueCmd.Flags().IntVar(&valueSimulations, "simulations", sensitivity.DefaultConfig().Simulations, "sensitivity draws")
	valueCmd.Flags().Int64Var(&valueSeed, "seed", sensitivity.DefaultConfig().Seed, "sensitivity random seed (0=random)")
	valueCmd.MarkFlagsMutuallyExclusive("ticker", "file")
	valueCmd.MarkFlagsOneRequired("ticker", "file")
}

// valueFile is the --file input
type valueFile struct {
	Record   contracts.FinancialRecord `yaml:"record"`
	History  map[int]float64           `yaml:"history"`
	Country  string                    `yaml:"country"`
	Industry string                    `yaml:"industry"`
}

func loadValueFile(path string) (*valueFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var vf valueFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if vf.Record.Ticker == "" {
		return nil, fmt.Errorf("%s: record.ticker is required", path)
	}
	return &vf, nil
}

func runValue(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	var v *service.Valuation
	var sens *sensitivity.Result

	cfg := sensitivity.DefaultConfig()
	cfg.Simulations = valueSimulations
	cfg.Seed = valueSeed

	if valueFilePath != "" {
		vf, err := loadValueFile(valueFilePath)
		if err != nil {
			return err
		}
		v, err = a.valuator.ValueRecord(ctx, &vf.Record, contracts.NewFCFSeries(vf.History),
			firstNonEmpty(valueCountry, vf.Country), firstNonEmpty(valueIndustry, vf.Industry))
		if err != nil {
			return err
		}

		if valueSensitivity {
			analyzer, err := sensitivity.NewAnalyzer(cfg)
			if err != nil {
				return err
			}
			if sens, err = analyzer.Analyze(&vf.Record, v.Result); err != nil {
				return err
			}
		}
	} else {
		opts := service.Options{
			Refresh:  valueRefresh,
			Country:  valueCountry,
			Industry: valueIndustry,
		}
		v, err = a.valuator.ValueTicker(ctx, valueTicker, opts)
		if err != nil {
			return err
		}

		if valueSensitivity {
			if sens, err = a.valuator.Sensitivity(ctx, valueTicker, opts, cfg); err != nil {
				return err
			}
		}
	}

	if valueJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*service.Valuation
			Sensitivity *sensitivity.Result `json:"sensitivity,omitempty"`
		}{v, sens})
	}

	PrintValuationReport(v)
	if sens != nil {
		PrintSensitivityReport(sens)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
