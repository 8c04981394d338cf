package products

import "github.com/meenmo/marketmodel/marketmodel"

// Forwards is a strip of forward-rate agreements on unit notional: FRA k pays
// tau_k * (f_k - K_k) at T_{k+1}, which is negative when the rate fixes below
// the strike.
type Forwards struct {
	strip
}

func NewForwards(evolution *marketmodel.EvolutionDescription, strikes []float64) (*Forwards, error) {
	s, err := newStrip("NewForwards", evolution, strikes, func(f, k float64) float64 {
		return f - k
	})
	if err != nil {
		return nil, err
	}
	return &Forwards{strip: s}, nil
}
