package ode

import (
	"math"

	"github.com/edp1096/rlc-spice/internal/consts"
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// fifth order weights minus embedded fourth order weights
	dpE = [7]float64{
		71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40,
	}
)

// DormandPrince is an adaptive explicit Runge-Kutta 5(4) integrator. Steps are
// clipped so that every grid point is hit exactly.
type DormandPrince struct {
	Config Config
}

var _ Integrator = (*DormandPrince)(nil)

func NewDormandPrince(cfg Config) *DormandPrince {
	if cfg.RelativeTolerance <= 0 {
		cfg.RelativeTolerance = consts.DefaultRelTol
	}
	if cfg.AbsoluteTolerance <= 0 {
		cfg.AbsoluteTolerance = consts.DefaultAbsTol
	}
	if cfg.MaxStepCount == 0 {
		cfg.MaxStepCount = consts.DefaultMaxSteps
	}
	return &DormandPrince{Config: cfg}
}

func (dp *DormandPrince) Info() Info {
	return Info{Name: "dopri5", Stages: 7, Order: 5}
}

func (dp *DormandPrince) Solve(p *Problem, grid []float64, y0 []float64) (*Solution, error) {
	if err := checkProblem(p, grid, y0); err != nil {
		return nil, err
	}

	n := p.Dim
	cfg := dp.Config
	sol := newSolution(grid, y0)
	stats := &sol.Stats

	y := append([]float64(nil), y0...)
	yNew := make([]float64, n)
	yTmp := make([]float64, n)
	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}

	t := grid[0]
	span := grid[len(grid)-1] - grid[0]
	p.RHS(t, y, k[0])
	stats.EvaluationCount++

	h := cfg.InitialStepSize
	if h <= 0 {
		h = dp.initialStep(p, t, y, k[0], yTmp, k[1], span)
		stats.EvaluationCount++
	}

	for idx := 1; idx < len(grid); idx++ {
		target := grid[idx]

		for t < target {
			if stats.StepCount+stats.RejectedCount >= cfg.MaxStepCount {
				return nil, &StepError{Time: t, Step: h, Err: ErrMaxSteps}
			}
			if cfg.MaxStepSize > 0 && h > cfg.MaxStepSize {
				h = cfg.MaxStepSize
			}

			step := h
			last := false
			if t+step >= target || target-(t+step) <= 1e-12*math.Abs(target) {
				step = target - t
				last = true
			}

			minStep := cfg.MinStepSize
			if minStep <= 0 {
				minStep = consts.MinStepFactor * math.Max(math.Abs(t), span)
			}
			if step < minStep && !last {
				return nil, &StepError{Time: t, Step: step, Err: ErrStepTooSmall}
			}

			// stages 2..7
			for s := 1; s < 7; s++ {
				for i := 0; i < n; i++ {
					acc := y[i]
					for j := 0; j < s; j++ {
						acc += step * dpA[s][j] * k[j][i]
					}
					yTmp[i] = acc
				}
				p.RHS(t+dpC[s]*step, yTmp, k[s])
			}
			stats.EvaluationCount += 6
			copy(yNew, yTmp) // stage 7 argument is the fifth order solution

			errNorm := 0.0
			for i := 0; i < n; i++ {
				e := 0.0
				for s := 0; s < 7; s++ {
					e += dpE[s] * k[s][i]
				}
				e *= step
				sc := cfg.AbsoluteTolerance + cfg.RelativeTolerance*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
				errNorm += (e / sc) * (e / sc)
			}
			errNorm = math.Sqrt(errNorm / float64(n))

			if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) || !finite(yNew) {
				stats.RejectedCount++
				h = step * consts.MinStepShrink
				if h < minStep {
					return nil, &StepError{Time: t, Step: h, Err: ErrNonFinite}
				}
				continue
			}

			factor := consts.StepSafetyFactor * math.Pow(math.Max(errNorm, 1e-10), -0.2)
			if errNorm > 1 {
				stats.RejectedCount++
				h = step * math.Max(consts.MinStepShrink, factor)
				if h < minStep {
					return nil, &StepError{Time: t, Step: h, Err: ErrStepTooSmall}
				}
				continue
			}

			stats.StepCount++
			stats.LastStepSize = step
			if last {
				t = target
			} else {
				t += step
			}
			y, yNew = yNew, y
			k[0], k[6] = k[6], k[0] // first same as last

			grown := step * math.Min(consts.MaxStepGrowth, factor)
			if last {
				// keep the unclipped proposal for the next interval
				h = math.Max(h, grown)
			} else {
				h = grown
			}
		}

		sol.Y[idx] = append([]float64(nil), y...)
	}

	return sol, nil
}

// initialStep follows the starting step heuristic of Hairer, Norsett and Wanner.
func (dp *DormandPrince) initialStep(p *Problem, t float64, y, f0, yTmp, f1 []float64, span float64) float64 {
	cfg := dp.Config
	n := len(y)

	var d0, d1 float64
	for i := 0; i < n; i++ {
		sc := cfg.AbsoluteTolerance + cfg.RelativeTolerance*math.Abs(y[i])
		d0 += (y[i] / sc) * (y[i] / sc)
		d1 += (f0[i] / sc) * (f0[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(n))
	d1 = math.Sqrt(d1 / float64(n))

	h0 := 1e-6 * span
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, span)

	for i := 0; i < n; i++ {
		yTmp[i] = y[i] + h0*f0[i]
	}
	p.RHS(t+h0, yTmp, f1)

	var d2 float64
	for i := 0; i < n; i++ {
		sc := cfg.AbsoluteTolerance + cfg.RelativeTolerance*math.Abs(y[i])
		d := (f1[i] - f0[i]) / sc
		d2 += d * d
	}
	d2 = math.Sqrt(d2/float64(n)) / h0

	var h1 float64
	if dmax := math.Max(d1, d2); dmax <= 1e-15 {
		h1 = math.Max(1e-6*span, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/dmax, 0.2)
	}
	return math.Min(math.Min(100*h0, h1), span)
}
