// Package evolver provides forward-rate evolvers for the accounting engine.
package evolver

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/meenmo/marketmodel/marketmodel"
	"github.com/meenmo/marketmodel/marketmodel/curvestate"
)

// ErrInvalidInput is returned for forwards or volatilities that do not fit the evolution.
var ErrInvalidInput = errors.New("invalid evolver input")

// LogNormal evolves every alive forward rate as a one-factor log-normal
// process, drifted under the numeraire bond of each step:
//
//	f_k(t+dt) = f_k(t) exp((mu_k - sigma_k^2/2) dt + sigma_k sqrt(dt) Z)
//
// with a single standard normal draw Z per step shared by all rates. Forwards
// stop evolving once they have fixed. Every step has weight 1.
//
// The curve state returned by CurrentState is overwritten by the next call to
// AdvanceStep or StartNewPath.
type LogNormal struct {
	evolution       *marketmodel.EvolutionDescription
	rateTimes       []float64
	rateTaus        []float64
	evolutionTimes  []float64
	numeraires      []int
	initialForwards []float64
	vols            []float64

	rng      *rand.Rand
	forwards []float64
	drifts   []float64
	state    *curvestate.LMMCurveState
	step     int
}

// NewLogNormal builds an evolver starting every path from initialForwards,
// with one volatility per forward rate. The seed fixes the random stream;
// give each concurrent evolver its own seed.
func NewLogNormal(evolution *marketmodel.EvolutionDescription, initialForwards, vols []float64, seed uint64) (*LogNormal, error) {
	if evolution == nil {
		return nil, fmt.Errorf("NewLogNormal: nil evolution description: %w", ErrInvalidInput)
	}
	n := evolution.NumberOfRates()
	if len(initialForwards) != n {
		return nil, fmt.Errorf("NewLogNormal: %d forwards for %d rates: %w", len(initialForwards), n, ErrInvalidInput)
	}
	if len(vols) != n {
		return nil, fmt.Errorf("NewLogNormal: %d volatilities for %d rates: %w", len(vols), n, ErrInvalidInput)
	}
	for k, v := range vols {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("NewLogNormal: volatility %d = %g: %w", k, v, ErrInvalidInput)
		}
	}
	for k, f := range initialForwards {
		// log-normal rates must start positive
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return nil, fmt.Errorf("NewLogNormal: forward %d = %g: %w", k, f, ErrInvalidInput)
		}
	}

	state, err := curvestate.New(evolution.RateTimes())
	if err != nil {
		return nil, fmt.Errorf("NewLogNormal: %w", err)
	}
	if err := state.SetOnForwardRates(initialForwards); err != nil {
		return nil, fmt.Errorf("NewLogNormal: %w", err)
	}

	return &LogNormal{
		evolution:       evolution,
		rateTimes:       evolution.RateTimes(),
		rateTaus:        evolution.RateTaus(),
		evolutionTimes:  evolution.EvolutionTimes(),
		numeraires:      evolution.Numeraires(),
		initialForwards: append([]float64(nil), initialForwards...),
		vols:            append([]float64(nil), vols...),
		rng:             rand.New(rand.NewSource(seed)),
		forwards:        append([]float64(nil), initialForwards...),
		drifts:          make([]float64, n),
		state:           state,
		step:            -1,
	}, nil
}

func (e *LogNormal) StartNewPath() float64 {
	copy(e.forwards, e.initialForwards)
	// initial forwards were validated at construction
	_ = e.state.SetOnForwardRates(e.forwards)
	e.step = -1
	return 1
}

// AdvanceStep evolves the curve to the end of the next step. Past the last
// step, or if the evolved curve is not a valid curve, it returns NaN so the
// caller fails the path.
func (e *LogNormal) AdvanceStep() float64 {
	if e.step+1 >= len(e.evolutionTimes) {
		return math.NaN()
	}
	e.step++

	start := 0.0
	if e.step > 0 {
		start = e.evolutionTimes[e.step-1]
	}
	dt := e.evolutionTimes[e.step] - start
	sqrtDt := math.Sqrt(dt)
	alive := e.evolution.FirstAliveRate(e.step)

	e.computeDrifts(alive, e.numeraires[e.step])
	z := e.rng.NormFloat64()
	for k := alive; k < len(e.forwards); k++ {
		v := e.vols[k]
		e.forwards[k] *= math.Exp((e.drifts[k]-0.5*v*v)*dt + v*sqrtDt*z)
	}

	if err := e.state.SetOnForwardRates(e.forwards); err != nil {
		return math.NaN()
	}
	return 1
}

// computeDrifts fills drifts for the alive rates under the measure of the
// bond maturing at T_numeraire. Rate k is a martingale under the T_{k+1}
// bond, so its drift collects the terms between k+1 and the numeraire.
func (e *LogNormal) computeDrifts(alive, numeraire int) {
	for k := alive; k < len(e.forwards); k++ {
		var sum float64
		switch {
		case k+1 < numeraire:
			for j := k + 1; j < numeraire; j++ {
				sum -= e.driftTerm(j)
			}
		case k+1 > numeraire:
			for j := max(numeraire, alive); j <= k; j++ {
				sum += e.driftTerm(j)
			}
		}
		e.drifts[k] = e.vols[k] * sum
	}
}

func (e *LogNormal) driftTerm(j int) float64 {
	tf := e.rateTaus[j] * e.forwards[j]
	return e.vols[j] * tf / (1 + tf)
}

func (e *LogNormal) CurrentState() marketmodel.CurveState { return e.state }

// Curve exposes the concrete state for products that need forward rates.
func (e *LogNormal) Curve() *curvestate.LMMCurveState { return e.state }

func (e *LogNormal) CurrentStep() int { return e.step }
