package ode

import (
	"fmt"
	"math"

	"github.com/edp1096/rlc-spice/internal/consts"
	"github.com/edp1096/rlc-spice/pkg/matrix"
	"github.com/edp1096/rlc-spice/pkg/util"
)

// Implicit integrates linear problems with fixed sub-steps using the companion
// coefficients of Gear (BDF1-6) or trapezoidal integration. Gear starts at
// order 1 and climbs as history accumulates. Each step solves
// (c0*I - A) * y[n+1] = rhs with a sparse LU factorization.
type Implicit struct {
	Method   util.IntegrationMethod
	Order    int // 1..6 for Gear, 1 or 2 for trapezoidal
	Substeps int // sub-steps per grid interval
}

var _ Integrator = (*Implicit)(nil)

func NewImplicit(method util.IntegrationMethod, order, substeps int) *Implicit {
	maxOrder := consts.MaxGearOrder
	if method == util.TrapezoidalMethod {
		maxOrder = consts.MaxTrapezoidalOrder
	}
	if order < 1 || order > maxOrder {
		order = consts.DefaultImplicitOrder
	}
	if substeps < 1 {
		substeps = consts.DefaultSubsteps
	}
	return &Implicit{Method: method, Order: order, Substeps: substeps}
}

func (im *Implicit) Info() Info {
	return Info{Name: fmt.Sprintf("%s%d", im.Method, im.Order), Stages: 1, Order: uint(im.Order)}
}

func (im *Implicit) Solve(p *Problem, grid []float64, y0 []float64) (*Solution, error) {
	if err := checkProblem(p, grid, y0); err != nil {
		return nil, err
	}
	if !p.Linear() {
		return nil, ErrNotLinear
	}

	n := p.Dim
	sys, err := matrix.NewSystem(n)
	if err != nil {
		return nil, err
	}
	defer sys.Destroy()

	sol := newSolution(grid, y0)
	stats := &sol.Stats

	// history[0] is the newest accepted state
	history := [][]float64{append([]float64(nil), y0...)}
	bNow := make([]float64, n)
	bNext := make([]float64, n)
	ay := make([]float64, n)

	t := grid[0]
	prevStep := 0.0
	for idx := 1; idx < len(grid); idx++ {
		h := (grid[idx] - grid[idx-1]) / float64(im.Substeps)
		if prevStep > 0 && math.Abs(h-prevStep) > 1e-9*prevStep {
			// multistep history assumes a constant step
			history = history[:1]
		}
		prevStep = h

		for s := 0; s < im.Substeps; s++ {
			tNext := grid[idx-1] + float64(s+1)*h
			if s == im.Substeps-1 {
				tNext = grid[idx]
			}

			order := im.Order
			if im.Method == util.GearMethod {
				order = min(order, len(history))
			}
			yn := history[0]

			sys.Clear()
			p.B(tNext, bNext)
			stats.EvaluationCount++

			switch {
			case im.Method == util.TrapezoidalMethod && order == 2:
				c0 := util.GetIntegratorCoeffs(im.Method, 2, h)[0]
				p.B(t, bNow)
				stats.EvaluationCount++
				mulVec(p.A, yn, ay)
				im.stampMatrix(sys, p.A, c0)
				for i := 0; i < n; i++ {
					sys.AddRHS(i+1, c0*yn[i]+ay[i]+bNow[i]+bNext[i])
				}

			case im.Method == util.TrapezoidalMethod:
				c0 := util.GetIntegratorCoeffs(im.Method, 1, h)[0]
				im.stampMatrix(sys, p.A, c0)
				for i := 0; i < n; i++ {
					sys.AddRHS(i+1, c0*yn[i]+bNext[i])
				}

			default:
				coeffs := util.GetBDFcoeffs(order, h)
				im.stampMatrix(sys, p.A, coeffs[0])
				for i := 0; i < n; i++ {
					rhs := bNext[i]
					for j := 1; j <= order; j++ {
						rhs -= coeffs[j] * history[j-1][i]
					}
					sys.AddRHS(i+1, rhs)
				}
			}

			x, err := sys.Solve()
			if err != nil {
				return nil, &StepError{Time: t, Step: h, Err: err}
			}
			yNext := make([]float64, n)
			copy(yNext, x[1:n+1])
			if !finite(yNext) {
				return nil, &StepError{Time: tNext, Step: h, Err: ErrNonFinite}
			}

			history = append([][]float64{yNext}, history...)
			if len(history) > im.Order {
				history = history[:im.Order]
			}
			t = tNext
			stats.StepCount++
			stats.LastStepSize = h
		}

		sol.Y[idx] = append([]float64(nil), history[0]...)
	}

	return sol, nil
}

// stampMatrix loads c0*I - A.
func (im *Implicit) stampMatrix(sys *matrix.System, a [][]float64, c0 float64) {
	for i := range a {
		for j := range a[i] {
			v := -a[i][j]
			if i == j {
				v += c0
			}
			if v != 0 {
				sys.Add(i+1, j+1, v)
			}
		}
	}
}

func mulVec(a [][]float64, x, dst []float64) {
	for i := range a {
		acc := 0.0
		for j := range a[i] {
			acc += a[i][j] * x[j]
		}
		dst[i] = acc
	}
}
