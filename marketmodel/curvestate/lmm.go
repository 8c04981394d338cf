// Package curvestate holds forward-rate curve snapshots produced by market-model
// evolvers.
package curvestate

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrRateTimes is returned for a rate grid that is too short or not strictly increasing.
	ErrRateTimes = errors.New("invalid rate times")
	// ErrForwardRates is returned when forwards do not match the grid or imply a non-positive bond price.
	ErrForwardRates = errors.New("invalid forward rates")
)

// LMMCurveState is the curve implied by simple forward rates f_k over the
// accrual periods [T_k, T_{k+1}] of a rate grid.
//
// Bond prices are kept relative to the first bond, P(T_i)/P(T_0), which is all
// a discount ratio needs.
type LMMCurveState struct {
	rateTimes  []float64
	rateTaus   []float64
	forwards   []float64
	discRatios []float64
}

// New allocates a curve state for rateTimes. Forward rates must be set with
// SetOnForwardRates before the state is queried.
func New(rateTimes []float64) (*LMMCurveState, error) {
	if len(rateTimes) < 2 {
		return nil, fmt.Errorf("curvestate.New: %d rate times: %w", len(rateTimes), ErrRateTimes)
	}
	taus := make([]float64, len(rateTimes)-1)
	for i := range taus {
		taus[i] = rateTimes[i+1] - rateTimes[i]
		if !(taus[i] > 0) {
			return nil, fmt.Errorf("curvestate.New: rate time %d (%g) not after %g: %w", i+1, rateTimes[i+1], rateTimes[i], ErrRateTimes)
		}
	}
	return &LMMCurveState{
		rateTimes:  append([]float64(nil), rateTimes...),
		rateTaus:   taus,
		forwards:   make([]float64, len(taus)),
		discRatios: make([]float64, len(rateTimes)),
	}, nil
}

// SetOnForwardRates replaces the forward rates and recomputes bond ratios.
func (cs *LMMCurveState) SetOnForwardRates(forwards []float64) error {
	if len(forwards) != len(cs.forwards) {
		return fmt.Errorf("SetOnForwardRates: %d forwards for %d periods: %w", len(forwards), len(cs.forwards), ErrForwardRates)
	}
	copy(cs.forwards, forwards)
	cs.discRatios[0] = 1
	for k, f := range forwards {
		growth := 1 + cs.rateTaus[k]*f
		if !(growth > 0) || math.IsInf(growth, 0) {
			return fmt.Errorf("SetOnForwardRates: forward %d = %g gives growth %g: %w", k, f, growth, ErrForwardRates)
		}
		cs.discRatios[k+1] = cs.discRatios[k] / growth
	}
	return nil
}

// Clone returns an independent copy, so a snapshot can outlive the next step.
func (cs *LMMCurveState) Clone() *LMMCurveState {
	return &LMMCurveState{
		rateTimes:  cs.rateTimes,
		rateTaus:   cs.rateTaus,
		forwards:   append([]float64(nil), cs.forwards...),
		discRatios: append([]float64(nil), cs.discRatios...),
	}
}

// DiscountRatio returns P(T_j)/P(T_i). It is exactly 1 when i == j and NaN
// for indices outside the grid.
func (cs *LMMCurveState) DiscountRatio(i, j int) float64 {
	if i == j {
		return 1
	}
	if i < 0 || j < 0 || i >= len(cs.discRatios) || j >= len(cs.discRatios) {
		return math.NaN()
	}
	return cs.discRatios[j] / cs.discRatios[i]
}

// ForwardRate returns the simple forward rate over [T_k, T_{k+1}].
func (cs *LMMCurveState) ForwardRate(k int) float64 { return cs.forwards[k] }

// ForwardRates returns a copy of all forward rates.
func (cs *LMMCurveState) ForwardRates() []float64 {
	return append([]float64(nil), cs.forwards...)
}

// Annuity returns sum_{k=begin}^{end-1} tau_k P(T_{k+1}), in units of the
// bond maturing at T_numeraire.
func (cs *LMMCurveState) Annuity(begin, end, numeraire int) float64 {
	var a float64
	for k := begin; k < end; k++ {
		a += cs.rateTaus[k] * cs.DiscountRatio(numeraire, k+1)
	}
	return a
}

// SwapRate returns the par rate of a swap with fixed periods [T_begin, T_end].
func (cs *LMMCurveState) SwapRate(begin, end int) float64 {
	return (1 - cs.DiscountRatio(begin, end)) / cs.Annuity(begin, end, begin)
}

// RateTimes returns the rate grid. The slice must not be modified.
func (cs *LMMCurveState) RateTimes() []float64 { return cs.rateTimes }

// RateTaus returns the accrual periods. The slice must not be modified.
func (cs *LMMCurveState) RateTaus() []float64 { return cs.rateTaus }

func (cs *LMMCurveState) NumberOfRates() int { return len(cs.forwards) }
