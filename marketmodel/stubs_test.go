package marketmodel_test

import (
	"github.com/meenmo/marketmodel/marketmodel"
)

// bondCurve is a curve state given directly by bond prices P(T_i).
type bondCurve []float64

func (b bondCurve) DiscountRatio(i, j int) float64 {
	if i == j {
		return 1
	}
	return b[j] / b[i]
}

// scriptedEvolver replays a fixed sequence of curve states.
type scriptedEvolver struct {
	states      []marketmodel.CurveState
	weights     []float64
	startWeight float64
	step        int
	stepOffset  int
}

func (e *scriptedEvolver) StartNewPath() float64 {
	e.step = -1
	if e.startWeight == 0 {
		return 1
	}
	return e.startWeight
}

func (e *scriptedEvolver) AdvanceStep() float64 {
	e.step++
	if e.weights == nil {
		return 1
	}
	return e.weights[e.step]
}

func (e *scriptedEvolver) CurrentState() marketmodel.CurveState {
	return e.states[min(e.step, len(e.states)-1)]
}

func (e *scriptedEvolver) CurrentStep() int { return e.step + e.stepOffset }

// scriptedProduct pays flows[step][product] and finishes after doneAt.
// Products without flows on a step are left untouched in the buffers, so
// the engine has to clear them.
type scriptedProduct struct {
	n        int
	capacity int
	times    []float64
	flows    map[int]map[int][]marketmodel.CashFlow
	doneAt   int
	never    bool
	counts   map[int]map[int]int // overrides reported counts
	step     int
	resets   int
}

func (p *scriptedProduct) NumberOfProducts() int              { return p.n }
func (p *scriptedProduct) MaxCashFlowsPerProductPerStep() int { return p.capacity }
func (p *scriptedProduct) PossibleCashFlowTimes() []float64   { return p.times }

func (p *scriptedProduct) Reset() {
	p.step = 0
	p.resets++
}

func (p *scriptedProduct) NextStep(_ marketmodel.CurveState, counts []int, cashFlows [][]marketmodel.CashFlow) bool {
	for i, flows := range p.flows[p.step] {
		copy(cashFlows[i], flows)
		counts[i] = len(flows)
	}
	for i, c := range p.counts[p.step] {
		counts[i] = c
	}
	done := !p.never && p.step >= p.doneAt
	p.step++
	return done
}
