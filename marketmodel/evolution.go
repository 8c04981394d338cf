package marketmodel

import (
	"fmt"
	"math"
	"sort"
)

// EvolutionDescription fixes the rate grid, the simulation steps and the
// numeraire used during each step.
//
// It is immutable after construction and safe to share between goroutines.
type EvolutionDescription struct {
	rateTimes      []float64
	rateTaus       []float64
	evolutionTimes []float64
	numeraires     []int
	firstAliveRate []int
}

// NewEvolutionDescription validates and stores an evolution.
//
// rateTimes must be strictly increasing, non-negative and have at least two
// entries. evolutionTimes must be strictly increasing, positive and no later
// than the last fixing time rateTimes[len-2]. numeraires must hold one entry
// per step plus one trailing entry used for the look-ahead after the last
// step; a nil slice selects TerminalMeasure.
func NewEvolutionDescription(rateTimes, evolutionTimes []float64, numeraires []int) (*EvolutionDescription, error) {
	if err := checkIncreasingTimes(rateTimes); err != nil {
		return nil, fmt.Errorf("NewEvolutionDescription: rate times: %w", err)
	}
	if len(rateTimes) < 2 {
		return nil, fmt.Errorf("NewEvolutionDescription: need at least 2 rate times, got %d: %w", len(rateTimes), ErrConstruction)
	}
	if rateTimes[0] < 0 {
		return nil, fmt.Errorf("NewEvolutionDescription: first rate time %g is negative: %w", rateTimes[0], ErrConstruction)
	}
	if len(evolutionTimes) == 0 {
		return nil, fmt.Errorf("NewEvolutionDescription: no evolution times: %w", ErrConstruction)
	}
	if err := checkIncreasingTimes(evolutionTimes); err != nil {
		return nil, fmt.Errorf("NewEvolutionDescription: evolution times: %w", err)
	}
	if evolutionTimes[0] <= 0 {
		return nil, fmt.Errorf("NewEvolutionDescription: first evolution time %g must be positive: %w", evolutionTimes[0], ErrConstruction)
	}
	lastFixing := rateTimes[len(rateTimes)-2]
	if last := evolutionTimes[len(evolutionTimes)-1]; last > lastFixing {
		return nil, fmt.Errorf("NewEvolutionDescription: last evolution time %g after last fixing time %g: %w", last, lastFixing, ErrConstruction)
	}

	if numeraires == nil {
		numeraires = TerminalMeasure(rateTimes, evolutionTimes)
	}
	if len(numeraires) != len(evolutionTimes)+1 {
		return nil, fmt.Errorf("NewEvolutionDescription: %d numeraires for %d steps, want steps+1: %w",
			len(numeraires), len(evolutionTimes), ErrNumeraireIndex)
	}
	for i, n := range numeraires {
		if n < 0 || n >= len(rateTimes) {
			return nil, fmt.Errorf("NewEvolutionDescription: numeraire %d at step %d: %w", n, i, ErrNumeraireIndex)
		}
		// the numeraire bond must still be alive at the end of its step
		if i < len(evolutionTimes) && rateTimes[n] < evolutionTimes[i] {
			return nil, fmt.Errorf("NewEvolutionDescription: numeraire bond %d (t=%g) expired before step %d ends (t=%g): %w",
				n, rateTimes[n], i, evolutionTimes[i], ErrNumeraireIndex)
		}
	}

	d := &EvolutionDescription{
		rateTimes:      append([]float64(nil), rateTimes...),
		evolutionTimes: append([]float64(nil), evolutionTimes...),
		numeraires:     append([]int(nil), numeraires...),
		rateTaus:       make([]float64, len(rateTimes)-1),
		firstAliveRate: make([]int, len(evolutionTimes)),
	}
	for i := range d.rateTaus {
		d.rateTaus[i] = rateTimes[i+1] - rateTimes[i]
	}
	for i, t := range evolutionTimes {
		d.firstAliveRate[i] = firstIndexAtOrAfter(rateTimes, t)
	}
	return d, nil
}

// DefaultEvolutionTimes returns one step per fixing time: every rate time
// except the last, skipping a leading zero.
func DefaultEvolutionTimes(rateTimes []float64) []float64 {
	if len(rateTimes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(rateTimes)-1)
	for _, t := range rateTimes[:len(rateTimes)-1] {
		if t > 0 {
			out = append(out, t)
		}
	}
	return out
}

// TerminalMeasure uses the bond maturing at the last rate time as numeraire
// on every step.
func TerminalMeasure(rateTimes, evolutionTimes []float64) []int {
	out := make([]int, len(evolutionTimes)+1)
	for i := range out {
		out[i] = len(rateTimes) - 1
	}
	return out
}

// MoneyMarketMeasure uses the discretely compounded money-market account: on
// each step the numeraire is the first bond maturing at or after the end of
// the step. The trailing entry rolls into the next bond.
func MoneyMarketMeasure(rateTimes, evolutionTimes []float64) []int {
	out := make([]int, len(evolutionTimes)+1)
	last := len(rateTimes) - 1
	for i, t := range evolutionTimes {
		out[i] = min(firstIndexAtOrAfter(rateTimes, t), last)
	}
	if n := len(evolutionTimes); n > 0 {
		out[n] = min(out[n-1]+1, last)
	} else {
		out[0] = min(firstIndexAtOrAfter(rateTimes, 0), last)
	}
	return out
}

func (d *EvolutionDescription) NumberOfRates() int { return len(d.rateTimes) - 1 }
func (d *EvolutionDescription) NumberOfSteps() int { return len(d.evolutionTimes) }

// RateTimes returns a copy of the rate grid.
func (d *EvolutionDescription) RateTimes() []float64 {
	return append([]float64(nil), d.rateTimes...)
}

// RateTaus returns a copy of the accrual periods between rate times.
func (d *EvolutionDescription) RateTaus() []float64 {
	return append([]float64(nil), d.rateTaus...)
}

// EvolutionTimes returns a copy of the step end times.
func (d *EvolutionDescription) EvolutionTimes() []float64 {
	return append([]float64(nil), d.evolutionTimes...)
}

// Numeraires returns a copy of the numeraire indices, one per step plus the
// trailing look-ahead entry.
func (d *EvolutionDescription) Numeraires() []int {
	return append([]int(nil), d.numeraires...)
}

// Numeraire returns the numeraire index used during step.
// step == NumberOfSteps() addresses the trailing look-ahead entry.
func (d *EvolutionDescription) Numeraire(step int) (int, error) {
	if step < 0 || step >= len(d.numeraires) {
		return 0, fmt.Errorf("step %d of %d: %w", step, len(d.evolutionTimes), ErrNumeraireIndex)
	}
	return d.numeraires[step], nil
}

// FirstAliveRate returns the index of the first forward rate that has not
// fixed before the end of step.
func (d *EvolutionDescription) FirstAliveRate(step int) int {
	return d.firstAliveRate[step]
}

func firstIndexAtOrAfter(times []float64, t float64) int {
	return sort.Search(len(times), func(i int) bool {
		return times[i] >= t
	})
}

func checkIncreasingTimes(times []float64) error {
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("time %d is %g: %w", i, t, ErrNonFinite)
		}
		if i > 0 && t <= times[i-1] {
			return fmt.Errorf("times not strictly increasing at %d (%g after %g): %w", i, t, times[i-1], ErrConstruction)
		}
	}
	return nil
}
