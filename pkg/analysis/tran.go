package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/rlc-spice/internal/consts"
	"github.com/edp1096/rlc-spice/pkg/circuit"
	"github.com/edp1096/rlc-spice/pkg/device"
	"github.com/edp1096/rlc-spice/pkg/ode"
	"github.com/edp1096/rlc-spice/pkg/util"
)

// Trajectory holds the loop state on the integration grid. All slices are
// indexed like Time and owned by the trajectory.
type Trajectory struct {
	Time    []float64
	Charge  []float64 // Q, coulombs
	Current []float64 // I = dQ/dt, amperes
	VIn     []float64
	VR      []float64 // R*I
	VL      []float64 // L*dI/dt by finite difference of Current
	VC      []float64 // Q/C
	DIDt    []float64 // dI/dt from the loop equation at each sample
	VLModel []float64 // L*DIDt, free of the finite-difference edge effect
	Stats   ode.Statistics
}

type Option func(*options)

type options struct {
	y0         [2]float64
	integrator ode.Integrator
}

// WithInitialState overrides the default rest state Q=0, I=0.
func WithInitialState(q, i float64) Option {
	return func(o *options) { o.y0 = [2]float64{q, i} }
}

// WithIntegrator replaces the default Dormand-Prince integrator.
func WithIntegrator(in ode.Integrator) Option {
	return func(o *options) { o.integrator = in }
}

// LoopProblem is the series loop ODE with state y = [Q, I]:
//
//	dQ/dt = I
//	dI/dt = (Vin(t) - R*I - Q/C) / L
func LoopProblem(p circuit.Params, src device.Source) *ode.Problem {
	return &ode.Problem{
		Dim: 2,
		RHS: func(t float64, y, dy []float64) {
			dy[0] = y[1]
			dy[1] = (src.Voltage(t) - p.R*y[1] - y[0]/p.C) / p.L
		},
		A: denseRows(p.StateMatrix()),
		B: func(t float64, b []float64) {
			b[0] = 0
			b[1] = src.Voltage(t) / p.L
		},
	}
}

// Integrate solves the loop on grid starting from rest (unless overridden)
// and derives the element voltages from the returned charge and current.
func Integrate(p circuit.Params, src device.Source, grid []float64, opts ...Option) (*Trajectory, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: missing excitation", circuit.ErrInvalidParameter)
	}
	if err := validateGrid("time", grid, 2); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.integrator == nil {
		o.integrator = ode.NewDormandPrince(ode.Config{})
	}
	if !finite(o.y0[0]) {
		return nil, circuit.InvalidParam("Q0", o.y0[0])
	}
	if !finite(o.y0[1]) {
		return nil, circuit.InvalidParam("I0", o.y0[1])
	}

	sol, err := o.integrator.Solve(LoopProblem(p, src), grid, o.y0[:])
	if err != nil {
		var se *ode.StepError
		if errors.As(err, &se) {
			return nil, &circuit.InstabilityError{
				Index: sort.SearchFloat64s(grid, se.Time),
				Time:  se.Time,
				Err:   err,
			}
		}
		return nil, fmt.Errorf("integration with %s failed: %w", o.integrator.Info().Name, err)
	}

	n := len(grid)
	tr := &Trajectory{
		Time:    append([]float64(nil), grid...),
		Charge:  make([]float64, n),
		Current: make([]float64, n),
		VIn:     make([]float64, n),
		VR:      make([]float64, n),
		VC:      make([]float64, n),
		DIDt:    make([]float64, n),
		VLModel: make([]float64, n),
		Stats:   sol.Stats,
	}

	for k, t := range tr.Time {
		q, i := sol.Y[k][0], sol.Y[k][1]
		vin := src.Voltage(t)
		didt := (vin - p.R*i - q/p.C) / p.L

		tr.Charge[k] = q
		tr.Current[k] = i
		tr.VIn[k] = vin
		tr.VR[k] = p.R * i
		tr.VC[k] = q / p.C
		tr.DIDt[k] = didt
		tr.VLModel[k] = p.L * didt

		if !finite(q) || !finite(i) || !finite(didt) {
			return nil, &circuit.InstabilityError{Index: k, Time: t, Err: ode.ErrNonFinite}
		}
	}

	tr.VL = gradient(tr.Current, tr.Time)
	for k := range tr.VL {
		tr.VL[k] *= p.L
	}

	return tr, nil
}

func (tr *Trajectory) Len() int { return len(tr.Time) }

// Window copies the samples with t >= from into a new trajectory.
func (tr *Trajectory) Window(from float64) *Trajectory {
	start := sort.SearchFloat64s(tr.Time, from)
	cut := func(s []float64) []float64 {
		if s == nil {
			return nil
		}
		return append([]float64(nil), s[start:]...)
	}
	return &Trajectory{
		Time:    cut(tr.Time),
		Charge:  cut(tr.Charge),
		Current: cut(tr.Current),
		VIn:     cut(tr.VIn),
		VR:      cut(tr.VR),
		VL:      cut(tr.VL),
		VC:      cut(tr.VC),
		DIDt:    cut(tr.DIDt),
		VLModel: cut(tr.VLModel),
		Stats:   tr.Stats,
	}
}

// SteadyState returns the last two drive periods, t >= t_max - 2*(2*pi/omega).
// The window is a fixed convention: the transient decays as exp(-zeta*omega0*t)
// and callers must simulate long enough for it to be negligible.
func (tr *Trajectory) SteadyState(omega float64) (*Trajectory, error) {
	if !(omega > 0) || math.IsInf(omega, 0) {
		return nil, circuit.InvalidParam("omega", omega)
	}
	if tr.Len() == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", circuit.ErrInvalidParameter)
	}
	period := 2 * math.Pi / omega
	return tr.Window(tr.Time[tr.Len()-1] - consts.SteadyPeriods*period), nil
}

// Amplitude is half the peak-to-peak excursion of samples.
func Amplitude(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	lo, hi := samples[0], samples[0]
	for _, v := range samples[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return (hi - lo) / 2
}

// ResonantSource returns src retuned to the loop's resonant frequency omega0,
// keeping its amplitude. Only sinusoidal sources can be retuned.
func ResonantSource(p circuit.Params, src device.Source) (device.Sinusoid, error) {
	sin, ok := src.(device.Sinusoid)
	if !ok {
		return device.Sinusoid{}, fmt.Errorf("%w: resonance drive needs a sinusoidal source, got %v", circuit.ErrInvalidParameter, src)
	}
	d, err := circuit.Derive(p)
	if err != nil {
		return device.Sinusoid{}, err
	}
	return device.NewSinusoid(sin.Amplitude, d.Omega0)
}

type Transient struct {
	BaseAnalysis
	Source     device.Source
	timeStep   float64
	stopTime   float64
	opts       []Option
	Trajectory *Trajectory
}

func NewTransient(src device.Source, tStep, tStop float64, opts ...Option) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(),
		Source:       src,
		timeStep:     tStep,
		stopTime:     tStop,
		opts:         opts,
	}
}

func (tr *Transient) Setup(p circuit.Params) error {
	if err := tr.BaseAnalysis.Setup(p); err != nil {
		return err
	}
	if !(tr.timeStep > 0) {
		return circuit.InvalidParam("tstep", tr.timeStep)
	}
	if !(tr.stopTime > tr.timeStep) {
		return circuit.InvalidParam("tstop", tr.stopTime)
	}
	return nil
}

func (tr *Transient) Execute() error {
	if tr.Source == nil {
		return fmt.Errorf("source not set")
	}

	points := int(math.Round(tr.stopTime/tr.timeStep)) + 1
	grid, err := util.LinSpace(0, tr.stopTime, points)
	if err != nil {
		return err
	}

	traj, err := Integrate(tr.Params, tr.Source, grid, tr.opts...)
	if err != nil {
		return fmt.Errorf("transient analysis: %w", err)
	}
	tr.Trajectory = traj

	for k, t := range traj.Time {
		tr.StoreTimeResult(t, map[string]float64{
			KeyVIn: traj.VIn[k],
			KeyQ:   traj.Charge[k],
			KeyI:   traj.Current[k],
			KeyVR:  traj.VR[k],
			KeyVL:  traj.VL[k],
			KeyVC:  traj.VC[k],
		})
	}
	return nil
}

func denseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return rows
}
