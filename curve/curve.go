// Package curve builds the time-zero discount curve a market model starts from.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrPillars is returned for missing, unsorted or non-positive pillars.
	ErrPillars = errors.New("invalid curve pillars")
)

// Curve is a discount curve on a year-fraction time axis.
//
// Discount factors between pillars are interpolated log-linearly; outside the
// pillars the nearest pair is extrapolated, so the continuously compounded
// forward is flat beyond the ends.
type Curve struct {
	times []float64
	dfs   []float64
}

// NewCurveFromDFs creates a curve from pillar discount factors.
//
// A pillar at t=0 with DF 1 is added when missing. Pillars need not be sorted
// but must be distinct and non-negative, with positive discount factors.
func NewCurveFromDFs(times, dfs []float64) (*Curve, error) {
	if len(times) != len(dfs) {
		return nil, fmt.Errorf("NewCurveFromDFs: %d times for %d discount factors: %w", len(times), len(dfs), ErrPillars)
	}
	type pillar struct{ t, df float64 }
	pillars := make([]pillar, 0, len(times)+1)
	hasOrigin := false
	for i, t := range times {
		df := dfs[i]
		if math.IsNaN(t) || t < 0 || math.IsInf(t, 0) {
			return nil, fmt.Errorf("NewCurveFromDFs: pillar time %g: %w", t, ErrPillars)
		}
		if !(df > 0) || math.IsInf(df, 0) {
			return nil, fmt.Errorf("NewCurveFromDFs: discount factor %g at t=%g: %w", df, t, ErrPillars)
		}
		if t == 0 {
			hasOrigin = true
		}
		pillars = append(pillars, pillar{t, df})
	}
	if !hasOrigin {
		pillars = append(pillars, pillar{0, 1})
	}
	sort.Slice(pillars, func(i, j int) bool { return pillars[i].t < pillars[j].t })

	c := &Curve{
		times: make([]float64, len(pillars)),
		dfs:   make([]float64, len(pillars)),
	}
	for i, p := range pillars {
		if i > 0 && p.t == pillars[i-1].t {
			return nil, fmt.Errorf("NewCurveFromDFs: duplicate pillar at t=%g: %w", p.t, ErrPillars)
		}
		c.times[i] = p.t
		c.dfs[i] = p.df
	}
	if len(c.times) < 2 {
		return nil, fmt.Errorf("NewCurveFromDFs: need a pillar after t=0: %w", ErrPillars)
	}
	return c, nil
}

// NewFlatCurve returns DF(t) = exp(-rate*t) for a continuously compounded rate.
func NewFlatCurve(rate float64) (*Curve, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("NewFlatCurve: rate %g: %w", rate, ErrPillars)
	}
	return NewCurveFromDFs([]float64{1}, []float64{math.Exp(-rate)})
}

// DF returns the discount factor to time t.
func (c *Curve) DF(t float64) float64 {
	i1, i2 := findBracketOrBoundary(c.times, t)
	t1, t2 := c.times[i1], c.times[i2]
	df1, df2 := c.dfs[i1], c.dfs[i2]
	if t == t1 {
		return df1
	}
	if t == t2 {
		return df2
	}

	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(t-t1))
}

// ZeroRate returns the continuously compounded zero rate to t (t > 0).
func (c *Curve) ZeroRate(t float64) float64 {
	return -math.Log(c.DF(t)) / t
}

// ForwardRates returns the simple forward rates over consecutive rate times,
// f_k = (DF(T_k)/DF(T_{k+1}) - 1) / (T_{k+1} - T_k).
func (c *Curve) ForwardRates(rateTimes []float64) ([]float64, error) {
	if len(rateTimes) < 2 {
		return nil, fmt.Errorf("ForwardRates: need at least 2 rate times, got %d", len(rateTimes))
	}
	out := make([]float64, len(rateTimes)-1)
	for k := range out {
		tau := rateTimes[k+1] - rateTimes[k]
		if !(tau > 0) {
			return nil, fmt.Errorf("ForwardRates: rate times not increasing at %d", k+1)
		}
		out[k] = (c.DF(rateTimes[k])/c.DF(rateTimes[k+1]) - 1) / tau
	}
	return out, nil
}
