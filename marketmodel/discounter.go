package marketmodel

import (
	"fmt"
	"math"
	"sort"
)

// Discounter converts a unit payment at a fixed time into a number of
// numeraire bonds.
//
// The discount factor to the payment time is interpolated log-linearly between
// the two bracketing rate times, so inside an accrual period the continuously
// compounded forward is flat. Payment times outside the rate grid are rejected.
type Discounter struct {
	paymentTime  float64
	before       int
	beforeWeight float64
}

// NewDiscounter builds the discounter for paymentTime on the given rate grid.
func NewDiscounter(paymentTime float64, rateTimes []float64) (Discounter, error) {
	if math.IsNaN(paymentTime) || math.IsInf(paymentTime, 0) {
		return Discounter{}, fmt.Errorf("NewDiscounter: payment time %g: %w", paymentTime, ErrNonFinite)
	}
	if len(rateTimes) < 2 {
		return Discounter{}, fmt.Errorf("NewDiscounter: need at least 2 rate times: %w", ErrConstruction)
	}
	first, last := rateTimes[0], rateTimes[len(rateTimes)-1]
	if paymentTime < first || paymentTime > last {
		return Discounter{}, fmt.Errorf("NewDiscounter: payment time %g not in [%g, %g]: %w",
			paymentTime, first, last, ErrPaymentOutsideGrid)
	}

	// last index with rateTimes[i] <= paymentTime, kept one short of the end
	// so that before+1 is always a valid bond
	before := sort.Search(len(rateTimes), func(i int) bool {
		return rateTimes[i] > paymentTime
	}) - 1
	if before >= len(rateTimes)-1 {
		before = len(rateTimes) - 2
	}
	t1, t2 := rateTimes[before], rateTimes[before+1]
	return Discounter{
		paymentTime:  paymentTime,
		before:       before,
		beforeWeight: 1 - (paymentTime-t1)/(t2-t1),
	}, nil
}

// PaymentTime is the time the discounter was built for.
func (d Discounter) PaymentTime() float64 { return d.paymentTime }

// ValueInBonds returns P(T_pay)/P(T_numeraire) implied by state: the number of
// numeraire bonds worth a unit payment at the discounter's time.
func (d Discounter) ValueInBonds(state CurveState, numeraire int) float64 {
	pre := state.DiscountRatio(numeraire, d.before)
	if d.beforeWeight == 1 {
		return pre
	}
	post := state.DiscountRatio(numeraire, d.before+1)
	if d.beforeWeight == 0 {
		return post
	}
	return math.Pow(pre, d.beforeWeight) * math.Pow(post, 1-d.beforeWeight)
}

// NewDiscounters builds one discounter per payment time, in the same order.
func NewDiscounters(paymentTimes, rateTimes []float64) ([]Discounter, error) {
	out := make([]Discounter, len(paymentTimes))
	for i, t := range paymentTimes {
		d, err := NewDiscounter(t, rateTimes)
		if err != nil {
			return nil, fmt.Errorf("cash flow time %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}
