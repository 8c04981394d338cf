package marketmodel

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/meenmo/marketmodel/marketmodel/config"
)

// AccountingEngine values one simulated path of a product.
//
// Each cash flow is turned into numeraire bonds when it is generated. When the
// numeraire changes between steps, the bonds held so far are rolled into the
// new numeraire at the prevailing discount ratio, which changes the unit of
// account but not the value. At the end of the path the holdings are
// converted back to currency with the initial numeraire value.
//
// An engine owns scratch buffers and is not safe for concurrent use. Run one
// engine per goroutine, each with its own Evolver.
type AccountingEngine struct {
	evolver               Evolver
	product               Product
	evolution             *EvolutionDescription
	initialNumeraireValue float64

	numberProducts int
	capacity       int
	maxSteps       int
	logger         *slog.Logger

	discounters []Discounter

	numerairesHeld []float64
	counts         []int
	cashFlows      [][]CashFlow
}

// Option customises an AccountingEngine.
type Option func(*AccountingEngine)

// WithLogger sets the logger used for construction and path failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *AccountingEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithConfig overrides the package configuration for this engine.
func WithConfig(c config.Config) Option {
	return func(e *AccountingEngine) {
		e.maxSteps = c.MaxStepsPerPath
	}
}

// WithDiscounters shares a prebuilt discounter collection, one per possible
// cash-flow time of the product. Discounters are immutable, so engines on
// different goroutines may share the same slice.
func WithDiscounters(d []Discounter) Option {
	return func(e *AccountingEngine) {
		e.discounters = d
	}
}

// NewAccountingEngine wires an engine for repeated single-path valuation.
func NewAccountingEngine(evolver Evolver, product Product, evolution *EvolutionDescription, initialNumeraireValue float64, opts ...Option) (*AccountingEngine, error) {
	switch {
	case evolver == nil:
		return nil, fmt.Errorf("NewAccountingEngine: nil evolver: %w", ErrConstruction)
	case product == nil:
		return nil, fmt.Errorf("NewAccountingEngine: nil product: %w", ErrConstruction)
	case evolution == nil:
		return nil, fmt.Errorf("NewAccountingEngine: nil evolution description: %w", ErrConstruction)
	case math.IsNaN(initialNumeraireValue) || math.IsInf(initialNumeraireValue, 0):
		return nil, fmt.Errorf("NewAccountingEngine: initial numeraire value %g: %w", initialNumeraireValue, ErrNonFinite)
	case initialNumeraireValue <= 0:
		return nil, fmt.Errorf("NewAccountingEngine: initial numeraire value %g must be positive: %w", initialNumeraireValue, ErrConstruction)
	}

	cfg := config.GetConfig()
	e := &AccountingEngine{
		evolver:               evolver,
		product:               product,
		evolution:             evolution,
		initialNumeraireValue: initialNumeraireValue,
		numberProducts:        product.NumberOfProducts(),
		capacity:              product.MaxCashFlowsPerProductPerStep(),
		maxSteps:              cfg.MaxStepsPerPath,
		logger:                slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.numberProducts <= 0 {
		return nil, fmt.Errorf("NewAccountingEngine: product declares %d products: %w", e.numberProducts, ErrConstruction)
	}
	if e.capacity < 0 {
		return nil, fmt.Errorf("NewAccountingEngine: product declares capacity %d: %w", e.capacity, ErrConstruction)
	}
	if e.maxSteps <= 0 {
		e.maxSteps = evolution.NumberOfSteps()
	}

	cashFlowTimes := product.PossibleCashFlowTimes()
	if e.discounters == nil {
		d, err := NewDiscounters(cashFlowTimes, evolution.rateTimes)
		if err != nil {
			return nil, fmt.Errorf("NewAccountingEngine: %w", err)
		}
		e.discounters = d
	} else if len(e.discounters) != len(cashFlowTimes) {
		return nil, fmt.Errorf("NewAccountingEngine: %d shared discounters for %d cash flow times: %w",
			len(e.discounters), len(cashFlowTimes), ErrConstruction)
	}

	e.numerairesHeld = make([]float64, e.numberProducts)
	e.counts = make([]int, e.numberProducts)
	e.cashFlows = make([][]CashFlow, e.numberProducts)
	for i := range e.cashFlows {
		e.cashFlows[i] = make([]CashFlow, e.capacity)
	}

	e.logger.Debug("accounting engine ready",
		slog.Int("products", e.numberProducts),
		slog.Int("capacity", e.capacity),
		slog.Int("cash_flow_times", len(e.discounters)),
		slog.Int("steps", evolution.NumberOfSteps()),
		slog.Int("max_steps", e.maxSteps),
	)
	return e, nil
}

// NumberOfProducts is the length SinglePathValues expects for its output.
func (e *AccountingEngine) NumberOfProducts() int { return e.numberProducts }

// Discounters returns the engine's discounter collection so other engines can
// share it through WithDiscounters. The slice must not be modified.
func (e *AccountingEngine) Discounters() []Discounter { return e.discounters }

// SinglePathValues simulates one path and writes each product's value, in the
// currency of the initial numeraire value, into values. It returns the path
// weight accumulated from the evolver.
//
// On error values is left untouched and the path must be discarded.
func (e *AccountingEngine) SinglePathValues(values []float64) (float64, error) {
	if len(values) != e.numberProducts {
		return 0, fmt.Errorf("SinglePathValues: output has %d slots for %d products: %w", len(values), e.numberProducts, ErrConstruction)
	}

	clear(e.numerairesHeld)
	weight := e.evolver.StartNewPath()
	e.product.Reset()
	principalInNumerairePortfolio := 1.0

	for taken := 0; ; taken++ {
		if taken >= e.maxSteps {
			return 0, e.fail(fmt.Errorf("SinglePathValues: no completion after %d steps: %w", taken, ErrStepOverflow))
		}

		weight *= e.evolver.AdvanceStep()
		if !isFinite(weight) {
			return 0, e.fail(fmt.Errorf("SinglePathValues: path weight %g: %w", weight, ErrNonFinite))
		}
		state := e.evolver.CurrentState()

		// products that generate nothing this step must see a zero count and
		// no leftovers from the previous step or path
		clear(e.counts)
		for i := range e.cashFlows {
			clear(e.cashFlows[i])
		}
		done := e.product.NextStep(state, e.counts, e.cashFlows)

		step := e.evolver.CurrentStep()
		if step < 0 || step >= e.evolution.NumberOfSteps() {
			return 0, e.fail(fmt.Errorf("SinglePathValues: evolver at step %d of %d: %w", step, e.evolution.NumberOfSteps(), ErrNumeraireIndex))
		}
		numeraire, err := e.evolution.Numeraire(step)
		if err != nil {
			return 0, e.fail(fmt.Errorf("SinglePathValues: %w", err))
		}

		for i := 0; i < e.numberProducts; i++ {
			n := e.counts[i]
			if n < 0 || n > e.capacity {
				return 0, e.fail(fmt.Errorf("SinglePathValues: product %d reported %d cash flows, capacity %d: %w", i, n, e.capacity, ErrCashFlowCount))
			}
			for _, cf := range e.cashFlows[i][:n] {
				if cf.TimeIndex < 0 || cf.TimeIndex >= len(e.discounters) {
					return 0, e.fail(fmt.Errorf("SinglePathValues: product %d time index %d of %d: %w", i, cf.TimeIndex, len(e.discounters), ErrDiscounterLookup))
				}
				bonds := cf.Amount * e.discounters[cf.TimeIndex].ValueInBonds(state, numeraire)
				if !isFinite(bonds) {
					return 0, e.fail(fmt.Errorf("SinglePathValues: product %d amount %g is %g bonds: %w", i, cf.Amount, bonds, ErrNonFinite))
				}
				// holdings stay in units of the original numeraire portfolio
				e.numerairesHeld[i] += bonds / principalInNumerairePortfolio
			}
		}

		if done {
			break
		}

		nextNumeraire, err := e.evolution.Numeraire(step + 1)
		if err != nil {
			return 0, e.fail(fmt.Errorf("SinglePathValues: look-ahead: %w", err))
		}
		// self-financing roll into the next numeraire bond
		principalInNumerairePortfolio *= state.DiscountRatio(nextNumeraire, numeraire)
		if !isFinite(principalInNumerairePortfolio) || principalInNumerairePortfolio <= 0 {
			return 0, e.fail(fmt.Errorf("SinglePathValues: numeraire principal %g after step %d: %w", principalInNumerairePortfolio, step, ErrNonFinite))
		}
	}

	for i, held := range e.numerairesHeld {
		values[i] = held * e.initialNumeraireValue
	}
	return weight, nil
}

func (e *AccountingEngine) fail(err error) error {
	e.logger.Warn("path valuation failed", slog.String("error", err.Error()))
	return err
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
