package marketmodel

import "errors"

var (
	// ErrConstruction is returned when the engine or one of its building blocks
	// is given a nil or inconsistent collaborator.
	ErrConstruction = errors.New("invalid construction")

	// ErrPaymentOutsideGrid is returned when a discounter is requested for a
	// payment time before the first or after the last rate time.
	ErrPaymentOutsideGrid = errors.New("payment time outside rate grid")

	// ErrStepOverflow is returned when a product never signals completion.
	ErrStepOverflow = errors.New("product did not complete within step limit")

	// ErrDiscounterLookup is returned when a cash flow references a time index
	// that has no discounter.
	ErrDiscounterLookup = errors.New("cash flow time index has no discounter")

	// ErrNumeraireIndex is returned when a step has no numeraire entry or the
	// entry is not a valid rate-time index.
	ErrNumeraireIndex = errors.New("numeraire index out of range")

	// ErrCashFlowCount is returned when a product reports more cash flows for a
	// step than its declared capacity, or a negative count.
	ErrCashFlowCount = errors.New("cash flow count out of range")

	// ErrNonFinite is returned when NaN or Inf reaches the engine.
	ErrNonFinite = errors.New("non-finite value")
)

// CurveState is an immutable snapshot of the forward-rate curve after a step.
//
// DiscountRatio(i, j) is the price of the bond maturing at rate time j
// expressed in units of the bond maturing at rate time i, P(T_j)/P(T_i).
// DiscountRatio(n, n) must be exactly 1.
type CurveState interface {
	DiscountRatio(i, j int) float64
}

// Evolver advances the simulated forward-rate curve one step at a time.
//
// An Evolver carries mutable path state and must not be shared between
// goroutines.
type Evolver interface {
	// StartNewPath resets the evolver to time zero and returns the initial
	// path weight.
	StartNewPath() float64
	// AdvanceStep evolves the curve over the next step and returns the
	// step's weight factor.
	AdvanceStep() float64
	// CurrentState is the curve state after the most recent step.
	CurrentState() CurveState
	// CurrentStep is the 0-based index of the most recently completed step.
	CurrentStep() int
}

// CashFlow is a payment generated by a product during a step.
//
// TimeIndex points into the product's PossibleCashFlowTimes.
type CashFlow struct {
	TimeIndex int
	Amount    float64
}

// Product generates cash flows from the evolving curve.
//
// A single Product value may carry several products; they are valued
// together on the same path.
type Product interface {
	NumberOfProducts() int
	MaxCashFlowsPerProductPerStep() int
	PossibleCashFlowTimes() []float64
	Reset()
	// NextStep writes, for each product i, the number of cash flows generated
	// this step into counts[i] and the flows into cashFlows[i][:counts[i]].
	// It returns true once every product is finished on this path.
	NextStep(state CurveState, counts []int, cashFlows [][]CashFlow) bool
}
