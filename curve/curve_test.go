package curve_test

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/marketmodel/curve"
)

func TestCurve_DFInterpolation(t *testing.T) {
	t.Parallel()

	c, err := curve.NewCurveFromDFs([]float64{2, 1}, []float64{0.94, 0.97})
	if err != nil {
		t.Fatalf("NewCurveFromDFs error: %v", err)
	}
	if c.DF(0) != 1 || c.DF(1) != 0.97 || c.DF(2) != 0.94 {
		t.Fatalf("pillar DFs not reproduced: %g %g %g", c.DF(0), c.DF(1), c.DF(2))
	}
	// log-linear between pillars
	if got, want := c.DF(1.5), math.Sqrt(0.97*0.94); math.Abs(got-want) > 1e-15 {
		t.Fatalf("DF(1.5) = %.16g, want %.16g", got, want)
	}
	// flat forward beyond the last pillar
	if got, want := c.DF(3), 0.94*0.94/0.97; math.Abs(got-want) > 1e-15 {
		t.Fatalf("DF(3) = %.16g, want %.16g", got, want)
	}
}

func TestFlatCurve(t *testing.T) {
	t.Parallel()

	c, err := curve.NewFlatCurve(0.03)
	if err != nil {
		t.Fatalf("NewFlatCurve error: %v", err)
	}
	for _, tm := range []float64{0.25, 1, 7.5} {
		if got := c.ZeroRate(tm); math.Abs(got-0.03) > 1e-14 {
			t.Fatalf("ZeroRate(%g) = %.16g, want 0.03", tm, got)
		}
	}

	fwd, err := c.ForwardRates([]float64{0.5, 1, 2})
	if err != nil {
		t.Fatalf("ForwardRates error: %v", err)
	}
	if want := (math.Exp(0.015) - 1) / 0.5; math.Abs(fwd[0]-want) > 1e-14 {
		t.Fatalf("forward 0 = %.16g, want %.16g", fwd[0], want)
	}
	if want := math.Exp(0.03) - 1; math.Abs(fwd[1]-want) > 1e-14 {
		t.Fatalf("forward 1 = %.16g, want %.16g", fwd[1], want)
	}
}

func TestNewCurveFromDFs_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		times []float64
		dfs   []float64
	}{
		{"length mismatch", []float64{1, 2}, []float64{0.9}},
		{"negative time", []float64{-1}, []float64{0.9}},
		{"zero df", []float64{1}, []float64{0}},
		{"duplicate", []float64{1, 1}, []float64{0.9, 0.9}},
		{"origin only", []float64{0}, []float64{1}},
	}
	for _, c := range cases {
		if _, err := curve.NewCurveFromDFs(c.times, c.dfs); !errors.Is(err, curve.ErrPillars) {
			t.Fatalf("%s: got %v, want ErrPillars", c.name, err)
		}
	}
	if _, err := curve.NewFlatCurve(math.Inf(1)); !errors.Is(err, curve.ErrPillars) {
		t.Fatalf("infinite flat rate: got %v", err)
	}
}
