package products

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/marketmodel/marketmodel"
)

// Caplets is a strip of caplets on unit notional: caplet k pays
// tau_k * max(f_k - K_k, 0) at T_{k+1}.
type Caplets struct {
	strip
}

func NewCaplets(evolution *marketmodel.EvolutionDescription, strikes []float64) (*Caplets, error) {
	s, err := newStrip("NewCaplets", evolution, strikes, func(f, k float64) float64 {
		return math.Max(f-k, 0)
	})
	if err != nil {
		return nil, err
	}
	return &Caplets{strip: s}, nil
}

// BlackCaplet is the Black price of a caplet on unit notional.
//
// discount is P(0, T_pay), tau the accrual, expiry the fixing time in years.
func BlackCaplet(discount, tau, forward, strike, vol, expiry float64) float64 {
	stdDev := vol * math.Sqrt(expiry)
	if stdDev == 0 || forward <= 0 || strike <= 0 {
		return discount * tau * math.Max(forward-strike, 0)
	}
	d1 := (math.Log(forward/strike) + 0.5*stdDev*stdDev) / stdDev
	d2 := d1 - stdDev
	return discount * tau * (forward*distuv.UnitNormal.CDF(d1) - strike*distuv.UnitNormal.CDF(d2))
}
