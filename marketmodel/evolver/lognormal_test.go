package evolver_test

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/marketmodel/marketmodel"
	"github.com/meenmo/marketmodel/marketmodel/evolver"
)

func newEvolution(t *testing.T, numeraires []int) *marketmodel.EvolutionDescription {
	t.Helper()
	rateTimes := []float64{0.5, 1, 1.5, 2}
	evo, err := marketmodel.NewEvolutionDescription(rateTimes, marketmodel.DefaultEvolutionTimes(rateTimes), numeraires)
	if err != nil {
		t.Fatalf("NewEvolutionDescription error: %v", err)
	}
	return evo
}

func TestLogNormal_PathLifecycle(t *testing.T) {
	t.Parallel()

	evo := newEvolution(t, nil)
	forwards := []float64{0.03, 0.035, 0.04}
	ev, err := evolver.NewLogNormal(evo, forwards, []float64{0.2, 0.2, 0.2}, 1)
	if err != nil {
		t.Fatalf("NewLogNormal error: %v", err)
	}

	if w := ev.StartNewPath(); w != 1 {
		t.Fatalf("start weight %g, want 1", w)
	}
	if ev.CurrentStep() != -1 {
		t.Fatalf("CurrentStep before first advance = %d, want -1", ev.CurrentStep())
	}
	var fixed float64
	for step := 0; step < evo.NumberOfSteps(); step++ {
		if w := ev.AdvanceStep(); w != 1 {
			t.Fatalf("step %d weight %g, want 1", step, w)
		}
		if ev.CurrentStep() != step {
			t.Fatalf("CurrentStep = %d, want %d", ev.CurrentStep(), step)
		}
		if step == 0 {
			fixed = ev.Curve().ForwardRate(0)
			if fixed == forwards[0] {
				t.Fatalf("forward 0 did not move on its fixing step")
			}
		} else if ev.Curve().ForwardRate(0) != fixed {
			t.Fatalf("forward 0 moved after fixing")
		}
	}
	if w := ev.AdvanceStep(); !math.IsNaN(w) {
		t.Fatalf("advance past the last step returned %g, want NaN", w)
	}

	ev.StartNewPath()
	for k, f := range ev.Curve().ForwardRates() {
		if f != forwards[k] {
			t.Fatalf("forward %d not reset: %g", k, f)
		}
	}
}

func TestLogNormal_SeedDeterminism(t *testing.T) {
	t.Parallel()

	evo := newEvolution(t, nil)
	run := func(seed uint64) []float64 {
		ev, err := evolver.NewLogNormal(evo, []float64{0.03, 0.035, 0.04}, []float64{0.25, 0.2, 0.15}, seed)
		if err != nil {
			t.Fatalf("NewLogNormal error: %v", err)
		}
		ev.StartNewPath()
		for i := 0; i < evo.NumberOfSteps(); i++ {
			ev.AdvanceStep()
		}
		return ev.Curve().ForwardRates()
	}

	a, b, c := run(9), run(9), run(10)
	for k := range a {
		if a[k] != b[k] {
			t.Fatalf("same seed diverged at forward %d: %g vs %g", k, a[k], b[k])
		}
	}
	if a[2] == c[2] {
		t.Fatalf("different seeds gave the same path")
	}
}

func TestLogNormal_TerminalForwardIsMartingale(t *testing.T) {
	t.Parallel()

	// under the terminal measure the last forward has zero drift
	evo := newEvolution(t, nil)
	f0 := []float64{0.03, 0.035, 0.04}
	ev, err := evolver.NewLogNormal(evo, f0, []float64{0.3, 0.3, 0.3}, 2024)
	if err != nil {
		t.Fatalf("NewLogNormal error: %v", err)
	}

	const paths = 20000
	last := make([]float64, paths)
	for p := range last {
		ev.StartNewPath()
		for i := 0; i < evo.NumberOfSteps(); i++ {
			ev.AdvanceStep()
		}
		last[p] = ev.Curve().ForwardRate(2)
	}
	mean, std := stat.MeanStdDev(last, nil)
	if se := stat.StdErr(std, paths); math.Abs(mean-f0[2]) > 4*se {
		t.Fatalf("E[f_2] = %.6f +/- %.6f, want %.6f", mean, se, f0[2])
	}
}

func TestLogNormal_DriftSignFollowsNumeraire(t *testing.T) {
	t.Parallel()

	f0 := []float64{0.03, 0.035, 0.04}
	vols := []float64{0.3, 0.3, 0.3}
	mean := func(numeraires []int) float64 {
		evo := newEvolution(t, numeraires)
		ev, err := evolver.NewLogNormal(evo, f0, vols, 5)
		if err != nil {
			t.Fatalf("NewLogNormal error: %v", err)
		}
		var sum float64
		const paths = 4000
		for p := 0; p < paths; p++ {
			ev.StartNewPath()
			ev.AdvanceStep()
			ev.AdvanceStep()
			sum += ev.Curve().ForwardRate(1)
		}
		return sum / paths
	}

	// same seed, so only the drift differs: forward 1 is pushed down under a
	// later numeraire and up under an earlier one
	terminal := mean([]int{3, 3, 3, 3})
	spot := mean([]int{1, 1, 2, 3})
	if !(terminal < spot) {
		t.Fatalf("terminal-measure mean %.6f should be below spot-measure mean %.6f", terminal, spot)
	}
}

func TestNewLogNormal_Errors(t *testing.T) {
	t.Parallel()

	evo := newEvolution(t, nil)
	tests := []struct {
		name     string
		evo      *marketmodel.EvolutionDescription
		forwards []float64
		vols     []float64
	}{
		{"nil evolution", nil, []float64{0.03, 0.03, 0.03}, []float64{0.2, 0.2, 0.2}},
		{"short forwards", evo, []float64{0.03, 0.03}, []float64{0.2, 0.2, 0.2}},
		{"short vols", evo, []float64{0.03, 0.03, 0.03}, []float64{0.2}},
		{"negative vol", evo, []float64{0.03, 0.03, 0.03}, []float64{0.2, -0.1, 0.2}},
		{"zero forward", evo, []float64{0.03, 0, 0.03}, []float64{0.2, 0.2, 0.2}},
		{"NaN forward", evo, []float64{0.03, math.NaN(), 0.03}, []float64{0.2, 0.2, 0.2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := evolver.NewLogNormal(tc.evo, tc.forwards, tc.vols, 1); !errors.Is(err, evolver.ErrInvalidInput) {
				t.Fatalf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}
