// Package products provides rate products valued by the accounting engine.
package products

import (
	"errors"
	"fmt"

	"github.com/meenmo/marketmodel/marketmodel"
)

// ErrSchedule is returned when a product cannot be laid on the evolution.
var ErrSchedule = errors.New("product schedule does not fit evolution")

// strip is a set of single-period products, one per forward rate of the grid.
// Product k fixes on the forward f_k at T_k and pays at T_{k+1}.
type strip struct {
	rateTaus      []float64
	strikes       []float64
	cashFlowTimes []float64
	fixingStep    []int
	lastStep      int
	currentStep   int
	payoff        func(forward, strike float64) float64
}

func newStrip(name string, evolution *marketmodel.EvolutionDescription, strikes []float64, payoff func(forward, strike float64) float64) (strip, error) {
	if evolution == nil {
		return strip{}, fmt.Errorf("%s: nil evolution description: %w", name, ErrSchedule)
	}
	n := evolution.NumberOfRates()
	if len(strikes) != n {
		return strip{}, fmt.Errorf("%s: %d strikes for %d rates: %w", name, len(strikes), n, ErrSchedule)
	}

	rateTimes := evolution.RateTimes()
	evolutionTimes := evolution.EvolutionTimes()
	stepAt := make(map[float64]int, len(evolutionTimes))
	for s, t := range evolutionTimes {
		stepAt[t] = s
	}

	fixingStep := make([]int, n)
	lastStep := 0
	for k := 0; k < n; k++ {
		s, ok := stepAt[rateTimes[k]]
		if !ok {
			return strip{}, fmt.Errorf("%s: no evolution step ends at fixing time %g of rate %d: %w", name, rateTimes[k], k, ErrSchedule)
		}
		fixingStep[k] = s
		lastStep = max(lastStep, s)
	}

	return strip{
		rateTaus:      evolution.RateTaus(),
		strikes:       append([]float64(nil), strikes...),
		cashFlowTimes: rateTimes[1:],
		fixingStep:    fixingStep,
		lastStep:      lastStep,
		payoff:        payoff,
	}, nil
}

func (p *strip) NumberOfProducts() int              { return len(p.strikes) }
func (p *strip) MaxCashFlowsPerProductPerStep() int { return 1 }

// PossibleCashFlowTimes are the payment times T_1..T_n; product k pays at index k.
func (p *strip) PossibleCashFlowTimes() []float64 {
	return append([]float64(nil), p.cashFlowTimes...)
}

func (p *strip) Reset() { p.currentStep = 0 }

func (p *strip) NextStep(state marketmodel.CurveState, counts []int, cashFlows [][]marketmodel.CashFlow) bool {
	for k, s := range p.fixingStep {
		if s != p.currentStep {
			counts[k] = 0
			continue
		}
		amount := p.rateTaus[k] * p.payoff(forwardRate(state, k, p.rateTaus[k]), p.strikes[k])
		cashFlows[k][0] = marketmodel.CashFlow{TimeIndex: k, Amount: amount}
		counts[k] = 1
	}
	done := p.currentStep >= p.lastStep
	p.currentStep++
	return done
}

// forwardRate recovers f_k from the bond ratio P(T_k)/P(T_{k+1}) = 1 + tau_k f_k.
func forwardRate(state marketmodel.CurveState, k int, tau float64) float64 {
	return (state.DiscountRatio(k+1, k) - 1) / tau
}
