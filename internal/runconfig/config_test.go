package runconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/meenmo/marketmodel/internal/runconfig"
)

const sampleYAML = `
grid:
  valuation_date: "2025-01-02"
  start_date: "2025-01-06"
  tenor_months: 3
  periods: 8
  calendar: TARGET
curve:
  flat_rate: 0.025
product:
  type: forwards
  strike: 0.03
model:
  volatility: 0.18
  measure: money_market
simulation:
  paths: 2000
  workers: 2
  seed: 7
logger:
  level: debug
  format: json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := runconfig.Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Grid.Periods != 8 || cfg.Grid.TenorMonths != 3 || cfg.Grid.Calendar != "TARGET" {
		t.Fatalf("grid not decoded: %+v", cfg.Grid)
	}
	if cfg.Product.Type != "forwards" || cfg.Product.Strike != 0.03 {
		t.Fatalf("product not decoded: %+v", cfg.Product)
	}
	if cfg.Model.Measure != "money_market" || cfg.Simulation.Seed != 7 {
		t.Fatalf("model/simulation not decoded: %+v %+v", cfg.Model, cfg.Simulation)
	}
	// defaults fill what the file leaves out
	if cfg.Grid.DayCount != "ACT/365F" || cfg.Product.Notional != 1_000_000 || cfg.Store.Table != "mc_runs" {
		t.Fatalf("defaults missing: day count %q, notional %g, table %q", cfg.Grid.DayCount, cfg.Product.Notional, cfg.Store.Table)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Output != "stderr" {
		t.Fatalf("logger: %+v", cfg.Logger)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MCPRICE_SIMULATION_PATHS", "123")
	t.Setenv("MCPRICE_MODEL_MEASURE", "terminal")

	cfg, err := runconfig.Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Simulation.Paths != 123 || cfg.Model.Measure != "terminal" {
		t.Fatalf("env overrides ignored: paths %d, measure %q", cfg.Simulation.Paths, cfg.Model.Measure)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	body := `
grid:
  rate_times: [1]
product:
  type: swaptions
model:
  measure: spot
  volatility: -0.1
simulation:
  paths: 0
`
	_, err := runconfig.Load(writeConfig(t, body))
	if !errors.Is(err, runconfig.ErrInvalid) {
		t.Fatalf("got %v, want ErrInvalid", err)
	}

	if _, err := runconfig.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate_DateGrid(t *testing.T) {
	t.Parallel()

	cfg := runconfig.Config{
		Grid:       runconfig.GridConfig{TenorMonths: 6},
		Product:    runconfig.ProductConfig{Type: "caplets", Notional: 1},
		Model:      runconfig.ModelConfig{Measure: "terminal"},
		Simulation: runconfig.SimulationConfig{Paths: 1, Workers: 1},
	}
	if err := cfg.Validate(); !errors.Is(err, runconfig.ErrInvalid) {
		t.Fatalf("missing dates: got %v", err)
	}
	cfg.Grid.RateTimes = []float64{0.5, 1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("explicit rate times: %v", err)
	}
}

func TestLoad_EnvOverrideWithoutDefault(t *testing.T) {
	t.Setenv("MCPRICE_MODEL_VOLATILITY", "0.25")
	t.Setenv("MCPRICE_PRODUCT_STRIKE", "0.04")
	t.Setenv("MCPRICE_CURVE_FLAT_RATE", "0.03")
	t.Setenv("MCPRICE_SIMULATION_MAX_STEPS_PER_PATH", "7")
	t.Setenv("MCPRICE_MODEL_VOLATILITIES", "0.2,0.3")
	t.Setenv("MCPRICE_STORE_DSN", "postgres://localhost/runs")
	t.Setenv("MCPRICE_LOGGER_FILE_PATH", "/var/log/mcprice.log")

	cfg, err := runconfig.Load(writeConfig(t, "grid:\n  rate_times: [0.5, 1.0, 1.5]\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.Volatility != 0.25 || cfg.Product.Strike != 0.04 || cfg.Curve.FlatRate != 0.03 {
		t.Fatalf("env overrides ignored: vol %g, strike %g, flat %g", cfg.Model.Volatility, cfg.Product.Strike, cfg.Curve.FlatRate)
	}
	if cfg.Simulation.MaxStepsPerPath != 7 {
		t.Fatalf("max_steps_per_path = %d, want 7", cfg.Simulation.MaxStepsPerPath)
	}
	if len(cfg.Model.Volatilities) != 2 || cfg.Model.Volatilities[1] != 0.3 {
		t.Fatalf("volatilities = %v, want [0.2 0.3]", cfg.Model.Volatilities)
	}
	if cfg.Store.DSN != "postgres://localhost/runs" || cfg.Logger.FilePath != "/var/log/mcprice.log" {
		t.Fatalf("dsn %q, file path %q", cfg.Store.DSN, cfg.Logger.FilePath)
	}
	if len(cfg.Grid.RateTimes) != 3 {
		t.Fatalf("file value lost: rate_times %v", cfg.Grid.RateTimes)
	}
}
