package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	os.Unsetenv("DB_ENABLED")
	os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8089" {
		t.Errorf("Expected Port to be 8089, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Valuation.ProjectionYears != 5 {
		t.Errorf("Expected ProjectionYears to be 5, got %d", cfg.Valuation.ProjectionYears)
	}

	if cfg.Valuation.CacheTTL != 5*time.Minute {
		t.Errorf("Expected CacheTTL to be 5m, got %v", cfg.Valuation.CacheTTL)
	}

	if cfg.Database.Enabled {
		t.Error("Expected database to be disabled by default")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("PROJECTION_YEARS", "10")
	os.Setenv("REVALUE_TICKERS", "aapl, msft,,goog ")
	os.Setenv("MARKETDATA_RATE_LIMIT", "2.5")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("PROJECTION_YEARS")
		os.Unsetenv("REVALUE_TICKERS")
		os.Unsetenv("MARKETDATA_RATE_LIMIT")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Valuation.ProjectionYears != 10 {
		t.Errorf("Expected ProjectionYears to be 10, got %d", cfg.Valuation.ProjectionYears)
	}

	want := []string{"AAPL", "MSFT", "GOOG"}
	if len(cfg.Revalue.Tickers) != len(want) {
		t.Fatalf("Expected tickers %v, got %v", want, cfg.Revalue.Tickers)
	}
	for i := range want {
		if cfg.Revalue.Tickers[i] != want[i] {
			t.Errorf("Expected ticker %s at %d, got %s", want[i], i, cfg.Revalue.Tickers[i])
		}
	}

	if cfg.MarketData.RateLimit != 2.5 {
		t.Errorf("Expected RateLimit to be 2.5, got %v", cfg.MarketData.RateLimit)
	}
}

func TestValidateMissingDatabaseURL(t *testing.T) {
	os.Setenv("DB_ENABLED", "true")
	os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("DB_ENABLED")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DATABASE_URL is missing with DB_ENABLED, got nil")
	}
}

func TestValidateInvalidEnv(t *testing.T) {
	os.Setenv("ENV", "invalid")
	defer os.Unsetenv("ENV")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidateProjectionYears(t *testing.T) {
	os.Setenv("PROJECTION_YEARS", "0")
	defer os.Unsetenv("PROJECTION_YEARS")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when PROJECTION_YEARS is 0, got nil")
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2h")
	defer os.Unsetenv("TEST_DURATION")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	if duration != 2*time.Hour {
		t.Errorf("Expected duration to be 2h, got %v", duration)
	}

	os.Setenv("TEST_DURATION", "garbage")
	if got := getEnvAsDuration("TEST_DURATION", "1h"); got != time.Hour {
		t.Errorf("Expected fallback to 1h, got %v", got)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	os.Setenv("TEST_FLOAT", "0.25")
	defer os.Unsetenv("TEST_FLOAT")

	if value := getEnvAsFloat("TEST_FLOAT", 1); value != 0.25 {
		t.Errorf("Expected value to be 0.25, got %v", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "true")
	defer os.Unsetenv("TEST_BOOL")

	if value := getEnvAsBool("TEST_BOOL", false); value != true {
		t.Errorf("Expected value to be true, got %v", value)
	}
}
