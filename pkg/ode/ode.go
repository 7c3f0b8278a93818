// Package ode integrates first-order systems dy/dt = f(t, y) and reports the
// state at every point of a caller-supplied time grid.
package ode

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrStepTooSmall = errors.New("ode: step size collapsed below minimum")
	ErrNonFinite    = errors.New("ode: non-finite state (NaN or Inf)")
	ErrMaxSteps     = errors.New("ode: maximum step count exceeded")
	ErrNotLinear    = errors.New("ode: implicit integration needs the linear form A, B")
	ErrBadProblem   = errors.New("ode: malformed problem")
)

// StepError reports where integration stopped.
type StepError struct {
	Time float64
	Step float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%v (t=%g, h=%g)", e.Err, e.Time, e.Step)
}

func (e *StepError) Unwrap() error { return e.Err }

// Func writes dy/dt at (t, y) into dy.
type Func func(t float64, y, dy []float64)

// Forcing writes the input term B(t) of a linear system into b.
type Forcing func(t float64, b []float64)

type Problem struct {
	Dim int
	RHS Func

	// A and B describe dy/dt = A*y + B(t). Only implicit integrators need them.
	A [][]float64
	B Forcing
}

func (p *Problem) Linear() bool {
	return p.A != nil && p.B != nil
}

type Config struct {
	// RelativeTolerance and AbsoluteTolerance bound the local error of adaptive methods.
	RelativeTolerance float64
	AbsoluteTolerance float64

	// InitialStepSize, if > 0, is used for the first step.
	// Otherwise a starting step is estimated from the problem.
	InitialStepSize float64

	// MinStepSize, if > 0, is the smallest step accepted before failing.
	MinStepSize float64

	// MaxStepSize, if > 0, caps every step.
	MaxStepSize float64

	// MaxStepCount, if > 0, bounds the number of attempted steps.
	MaxStepCount uint
}

type Statistics struct {
	StepCount       uint
	RejectedCount   uint
	EvaluationCount uint
	LastStepSize    float64
}

type Info struct {
	Name          string
	Stages, Order uint
}

type Solution struct {
	T     []float64
	Y     [][]float64 // Y[k] is the state at T[k]
	Stats Statistics
}

type Integrator interface {
	Info() Info
	Solve(p *Problem, grid []float64, y0 []float64) (*Solution, error)
}

func checkProblem(p *Problem, grid, y0 []float64) error {
	if p == nil || p.RHS == nil || p.Dim <= 0 {
		return fmt.Errorf("%w: missing right-hand side or dimension", ErrBadProblem)
	}
	if len(y0) != p.Dim {
		return fmt.Errorf("%w: initial state has %d values, want %d", ErrBadProblem, len(y0), p.Dim)
	}
	if len(grid) < 2 {
		return fmt.Errorf("%w: grid needs at least 2 points, got %d", ErrBadProblem, len(grid))
	}
	for k := 1; k < len(grid); k++ {
		if !(grid[k] > grid[k-1]) {
			return fmt.Errorf("%w: grid not strictly increasing at %d", ErrBadProblem, k)
		}
	}
	return nil
}

func newSolution(grid, y0 []float64) *Solution {
	sol := &Solution{
		T: append([]float64(nil), grid...),
		Y: make([][]float64, len(grid)),
	}
	sol.Y[0] = append([]float64(nil), y0...)
	return sol
}

func finite(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
