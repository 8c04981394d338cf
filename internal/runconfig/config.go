// Package runconfig loads the Monte Carlo run configuration for the CLI.
package runconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/meenmo/marketmodel/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. MCPRICE_SIMULATION_PATHS.
const EnvPrefix = "MCPRICE"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid run config")

// Config is the full description of one pricing run.
type Config struct {
	Grid       GridConfig       `mapstructure:"grid"`
	Curve      CurveConfig      `mapstructure:"curve"`
	Product    ProductConfig    `mapstructure:"product"`
	Model      ModelConfig      `mapstructure:"model"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Logger     logger.Config    `mapstructure:"logger"`
	Store      StoreConfig      `mapstructure:"store"`
}

// GridConfig defines the rate times, either directly or from a date schedule.
type GridConfig struct {
	// explicit year fractions; when set, the date fields are ignored
	RateTimes []float64 `mapstructure:"rate_times"`

	ValuationDate string `mapstructure:"valuation_date"`
	StartDate     string `mapstructure:"start_date"`
	TenorMonths   int    `mapstructure:"tenor_months"`
	Periods       int    `mapstructure:"periods"`
	Calendar      string `mapstructure:"calendar"`
	DayCount      string `mapstructure:"day_count"`
}

// CurveConfig is the time-zero discount curve.
type CurveConfig struct {
	// continuously compounded; used when Pillars is empty
	FlatRate float64        `mapstructure:"flat_rate"`
	Pillars  []PillarConfig `mapstructure:"pillars"`
}

type PillarConfig struct {
	Time           float64 `mapstructure:"time"`
	DiscountFactor float64 `mapstructure:"discount_factor"`
}

type ProductConfig struct {
	// caplets or forwards
	Type string `mapstructure:"type"`
	// one strike for all periods unless Strikes is set
	Strike  float64   `mapstructure:"strike"`
	Strikes []float64 `mapstructure:"strikes"`
	// reported values are per unit notional times Notional
	Notional float64 `mapstructure:"notional"`
}

type ModelConfig struct {
	Volatility   float64   `mapstructure:"volatility"`
	Volatilities []float64 `mapstructure:"volatilities"`
	// terminal or money_market
	Measure string `mapstructure:"measure"`
}

type SimulationConfig struct {
	Paths           int    `mapstructure:"paths"`
	Workers         int    `mapstructure:"workers"`
	Seed            uint64 `mapstructure:"seed"`
	MaxStepsPerPath int    `mapstructure:"max_steps_per_path"`
}

// StoreConfig enables the Postgres results sink when DSN is set.
type StoreConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.tenor_months", 6)
	v.SetDefault("grid.day_count", "ACT/365F")
	v.SetDefault("product.type", "caplets")
	v.SetDefault("product.notional", 1_000_000)
	v.SetDefault("model.measure", "terminal")
	v.SetDefault("simulation.paths", 10000)
	v.SetDefault("simulation.workers", 4)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("store.table", "mc_runs")
}

// Load reads path (YAML, JSON or TOML by extension) and applies MCPRICE_*
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvKeys(v, "", reflect.TypeOf(Config{})); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// bindEnvKeys registers every leaf key of t with viper. Unmarshal only
// consults the environment for keys it already knows, so keys without a
// default would otherwise ignore their MCPRICE_* variable.
func bindEnvKeys(v *viper.Viper, prefix string, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		switch {
		case f.Type.Kind() == reflect.Struct:
			if err := bindEnvKeys(v, key, f.Type); err != nil {
				return err
			}
		case f.Type.Kind() == reflect.Slice && f.Type.Elem().Kind() == reflect.Struct:
			// lists of tables, e.g. curve.pillars, come from the file only
		default:
			if err := v.BindEnv(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks the fields that do not need a built model to verify.
func (c Config) Validate() error {
	var errs []error
	if len(c.Grid.RateTimes) == 0 {
		if c.Grid.ValuationDate == "" || c.Grid.StartDate == "" {
			errs = append(errs, errors.New("grid: rate_times or valuation_date and start_date required"))
		}
		if c.Grid.TenorMonths <= 0 {
			errs = append(errs, fmt.Errorf("grid: tenor_months %d must be positive", c.Grid.TenorMonths))
		}
		if c.Grid.Periods < 1 {
			errs = append(errs, fmt.Errorf("grid: periods %d must be at least 1", c.Grid.Periods))
		}
	} else if len(c.Grid.RateTimes) < 2 {
		errs = append(errs, errors.New("grid: need at least 2 rate_times"))
	}

	switch strings.ToLower(c.Product.Type) {
	case "caplets", "forwards":
	default:
		errs = append(errs, fmt.Errorf("product: unknown type %q", c.Product.Type))
	}
	switch strings.ToLower(c.Model.Measure) {
	case "terminal", "money_market":
	default:
		errs = append(errs, fmt.Errorf("model: unknown measure %q", c.Model.Measure))
	}
	if c.Product.Notional <= 0 {
		errs = append(errs, fmt.Errorf("product: notional %g must be positive", c.Product.Notional))
	}
	if c.Model.Volatility < 0 {
		errs = append(errs, fmt.Errorf("model: volatility %g is negative", c.Model.Volatility))
	}
	if c.Simulation.Paths <= 0 {
		errs = append(errs, fmt.Errorf("simulation: paths %d must be positive", c.Simulation.Paths))
	}
	if c.Simulation.Workers <= 0 {
		errs = append(errs, fmt.Errorf("simulation: workers %d must be positive", c.Simulation.Workers))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
