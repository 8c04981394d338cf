package pricer

import (
	"fmt"
	"strings"

	"github.com/meenmo/marketmodel/calendar"
	"github.com/meenmo/marketmodel/curve"
	"github.com/meenmo/marketmodel/internal/runconfig"
	"github.com/meenmo/marketmodel/marketmodel"
	"github.com/meenmo/marketmodel/marketmodel/products"
	"github.com/meenmo/marketmodel/utils"
)

// Model is everything shared read-only by the workers of a run.
type Model struct {
	RateTimes             []float64
	Evolution             *marketmodel.EvolutionDescription
	Curve                 *curve.Curve
	InitialForwards       []float64
	Volatilities          []float64
	InitialNumeraireValue float64
}

// BuildModel turns a run configuration into an evolution description and the
// time-zero state of the forward curve.
func BuildModel(cfg runconfig.Config) (*Model, error) {
	rateTimes, err := rateGrid(cfg.Grid)
	if err != nil {
		return nil, err
	}
	if len(rateTimes) < 2 {
		return nil, fmt.Errorf("BuildModel: need at least 2 rate times, got %d", len(rateTimes))
	}
	if rateTimes[0] <= 0 {
		return nil, fmt.Errorf("BuildModel: first fixing time %g must be after valuation", rateTimes[0])
	}

	var crv *curve.Curve
	if len(cfg.Curve.Pillars) > 0 {
		times := make([]float64, len(cfg.Curve.Pillars))
		dfs := make([]float64, len(cfg.Curve.Pillars))
		for i, p := range cfg.Curve.Pillars {
			times[i], dfs[i] = p.Time, p.DiscountFactor
		}
		crv, err = curve.NewCurveFromDFs(times, dfs)
	} else {
		crv, err = curve.NewFlatCurve(cfg.Curve.FlatRate)
	}
	if err != nil {
		return nil, fmt.Errorf("BuildModel: %w", err)
	}

	forwards, err := crv.ForwardRates(rateTimes)
	if err != nil {
		return nil, fmt.Errorf("BuildModel: %w", err)
	}

	evolutionTimes := marketmodel.DefaultEvolutionTimes(rateTimes)
	var numeraires []int
	switch strings.ToLower(cfg.Model.Measure) {
	case "money_market":
		numeraires = marketmodel.MoneyMarketMeasure(rateTimes, evolutionTimes)
	default:
		numeraires = marketmodel.TerminalMeasure(rateTimes, evolutionTimes)
	}
	evolution, err := marketmodel.NewEvolutionDescription(rateTimes, evolutionTimes, numeraires)
	if err != nil {
		return nil, fmt.Errorf("BuildModel: %w", err)
	}

	vols, err := fill("volatilities", cfg.Model.Volatilities, cfg.Model.Volatility, evolution.NumberOfRates())
	if err != nil {
		return nil, err
	}

	return &Model{
		RateTimes:             rateTimes,
		Evolution:             evolution,
		Curve:                 crv,
		InitialForwards:       forwards,
		Volatilities:          vols,
		InitialNumeraireValue: crv.DF(rateTimes[numeraires[0]]),
	}, nil
}

// NewProduct builds a fresh product; products carry path state, so every
// worker needs its own.
func NewProduct(cfg runconfig.ProductConfig, evolution *marketmodel.EvolutionDescription) (marketmodel.Product, error) {
	strikes, err := Strikes(cfg, evolution.NumberOfRates())
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Type) {
	case "caplets":
		return products.NewCaplets(evolution, strikes)
	case "forwards":
		return products.NewForwards(evolution, strikes)
	default:
		return nil, fmt.Errorf("NewProduct: unknown product type %q", cfg.Type)
	}
}

// BlackReference returns the Black caplet price of every period, per unit notional.
func (m *Model) BlackReference(strikes []float64) []float64 {
	taus := m.Evolution.RateTaus()
	out := make([]float64, len(taus))
	for k, tau := range taus {
		out[k] = products.BlackCaplet(m.Curve.DF(m.RateTimes[k+1]), tau, m.InitialForwards[k], strikes[k], m.Volatilities[k], m.RateTimes[k])
	}
	return out
}

// Strikes expands the configured strike(s) to one per period.
func Strikes(cfg runconfig.ProductConfig, n int) ([]float64, error) {
	return fill("strikes", cfg.Strikes, cfg.Strike, n)
}

func rateGrid(cfg runconfig.GridConfig) ([]float64, error) {
	if len(cfg.RateTimes) > 0 {
		return append([]float64(nil), cfg.RateTimes...), nil
	}

	valuation, err := utils.ParseDate(cfg.ValuationDate)
	if err != nil {
		return nil, fmt.Errorf("grid: valuation_date: %w", err)
	}
	start, err := utils.ParseDate(cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("grid: start_date: %w", err)
	}
	cal, err := calendar.Parse(cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	dc, err := utils.ParseDayCount(cfg.DayCount)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}

	dates := calendar.RegularDates(cal, start, cfg.TenorMonths, cfg.Periods)
	return utils.YearFractions(valuation, dates, dc), nil
}

func fill(name string, explicit []float64, single float64, n int) ([]float64, error) {
	if len(explicit) > 0 {
		if len(explicit) != n {
			return nil, fmt.Errorf("%s: got %d values for %d periods", name, len(explicit), n)
		}
		return append([]float64(nil), explicit...), nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = single
	}
	return out, nil
}
