package ode

import (
	"errors"
	"testing"

	"github.com/edp1096/rlc-spice/pkg/util"
)

func TestImplicitOscillator(t *testing.T) {
	o := oscillator{a: 200, w0: 1000}
	g := grid(t, 20e-3, 401)

	tests := []struct {
		method util.IntegrationMethod
		order  int
		tol    float64
	}{
		{util.GearMethod, 1, 5e-2},
		{util.GearMethod, 2, 1e-3},
		{util.GearMethod, 3, 1e-3},
		{util.GearMethod, 6, 1e-3},
		{util.TrapezoidalMethod, 1, 5e-2},
		{util.TrapezoidalMethod, 2, 1e-3},
	}
	for _, tt := range tests {
		in := NewImplicit(tt.method, tt.order, 50)
		t.Run(in.Info().Name, func(t *testing.T) {
			sol, err := in.Solve(o.problem(), g, []float64{1, 0})
			if err != nil {
				t.Fatalf("Solve failed: %v", err)
			}
			checkAgainstExact(t, o, sol, tt.tol)
			if want := uint(50 * (len(g) - 1)); sol.Stats.StepCount != want {
				t.Errorf("steps = %d, want %d", sol.Stats.StepCount, want)
			}
		})
	}
}

func TestImplicitForced(t *testing.T) {
	// y' = -y + 1, y(0) = 0  ->  y = 1 - exp(-t)
	p := &Problem{
		Dim: 1,
		RHS: func(t float64, y, dy []float64) { dy[0] = -y[0] + 1 },
		A:   [][]float64{{-1}},
		B:   func(t float64, b []float64) { b[0] = 1 },
	}
	g := grid(t, 5, 51)
	sol, err := NewImplicit(util.TrapezoidalMethod, 2, 20).Solve(p, g, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	last := sol.Y[len(g)-1][0]
	if want := 0.9932620530009145; last < want-1e-5 || last > want+1e-5 {
		t.Errorf("y(5) = %.10g, want %.10g", last, want)
	}
}

func TestImplicitNeedsLinearForm(t *testing.T) {
	p := &Problem{Dim: 1, RHS: func(t float64, y, dy []float64) { dy[0] = -y[0] }}
	_, err := NewImplicit(util.GearMethod, 2, 10).Solve(p, []float64{0, 1}, []float64{1})
	if !errors.Is(err, ErrNotLinear) {
		t.Errorf("err = %v, want ErrNotLinear", err)
	}
}

func TestNewImplicitDefaults(t *testing.T) {
	in := NewImplicit(util.GearMethod, 7, 0)
	if in.Order != 2 || in.Substeps != 20 {
		t.Errorf("got order %d substeps %d, want 2 and 20", in.Order, in.Substeps)
	}
	if in.Info().Name != "gear2" {
		t.Errorf("name = %q, want gear2", in.Info().Name)
	}
	if in := NewImplicit(util.GearMethod, 6, 10); in.Order != 6 {
		t.Errorf("gear order = %d, want 6", in.Order)
	}
	if in := NewImplicit(util.TrapezoidalMethod, 3, 10); in.Order != 2 {
		t.Errorf("trapezoidal order = %d, want 2", in.Order)
	}
}
