package circuit

import (
	"fmt"
	"math"
)

// Params holds the series loop elements. Values are in ohms, henries and farads.
type Params struct {
	R float64
	L float64
	C float64
}

// Derived is recomputed from Params on every call to Derive.
type Derived struct {
	Omega0 float64 // rad/s
	F0     float64 // Hz
	Zeta   float64
	Q      float64
	Regime Regime
}

func New(r, l, c float64) (Params, error) {
	p := Params{R: r, L: l, C: c}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate requires all three elements to be finite and strictly positive.
func (p Params) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{{"R", p.R}, {"L", p.L}, {"C", p.C}} {
		if !positive(v.value) {
			return InvalidParam(v.name, v.value)
		}
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("R=%g ohm, L=%g H, C=%g F", p.R, p.L, p.C)
}

func Derive(p Params) (Derived, error) {
	if err := p.Validate(); err != nil {
		return Derived{}, err
	}

	omega0, f0, err := Resonance(p.L, p.C)
	if err != nil {
		return Derived{}, err
	}
	zeta, err := DampingRatio(p.R, p.L, p.C)
	if err != nil {
		return Derived{}, err
	}
	q, err := QualityFactor(p.R, p.L, p.C)
	if err != nil {
		return Derived{}, err
	}

	return Derived{
		Omega0: omega0,
		F0:     f0,
		Zeta:   zeta,
		Q:      q,
		Regime: Classify(zeta),
	}, nil
}

// Resonance returns omega0 = 1/sqrt(LC) and f0 = omega0/2pi.
func Resonance(l, c float64) (omega0, f0 float64, err error) {
	if !positive(l) {
		return 0, 0, InvalidParam("L", l)
	}
	if !positive(c) {
		return 0, 0, InvalidParam("C", c)
	}
	omega0 = 1 / math.Sqrt(l*c)
	return omega0, omega0 / (2 * math.Pi), nil
}

// DampingRatio returns zeta = R / (2*sqrt(L/C)).
func DampingRatio(r, l, c float64) (float64, error) {
	if !positive(l) {
		return 0, InvalidParam("L", l)
	}
	if !positive(c) {
		return 0, InvalidParam("C", c)
	}
	if !nonNegative(r) {
		return 0, InvalidParam("R", r)
	}
	return r / (2 * math.Sqrt(l/c)), nil
}

// QualityFactor returns Q = omega0*L/R. A lossless loop (R == 0) has infinite Q
// and is reported as ErrDivisionByZero.
func QualityFactor(r, l, c float64) (float64, error) {
	omega0, _, err := Resonance(l, c)
	if err != nil {
		return 0, err
	}
	if !nonNegative(r) {
		return 0, InvalidParam("R", r)
	}
	if r == 0 {
		return 0, fmt.Errorf("undamped loop, infinite Q: %w", divisionByZero("R", r))
	}
	return omega0 * l / r, nil
}

// CriticalResistance is the R that makes zeta exactly 1.
func CriticalResistance(l, c float64) (float64, error) {
	if !positive(l) {
		return 0, InvalidParam("L", l)
	}
	if !positive(c) {
		return 0, InvalidParam("C", c)
	}
	return 2 * math.Sqrt(l/c), nil
}

// Reactance returns X = omega*L - 1/(omega*C).
func Reactance(l, c, omega float64) (float64, error) {
	if !positive(l) {
		return 0, InvalidParam("L", l)
	}
	if !positive(c) {
		return 0, InvalidParam("C", c)
	}
	if !nonNegative(omega) {
		return 0, InvalidParam("omega", omega)
	}
	if omega == 0 {
		return 0, fmt.Errorf("capacitive reactance is infinite at DC: %w", divisionByZero("omega", omega))
	}
	return omega*l - 1/(omega*c), nil
}

// Impedance returns |Z| = sqrt(R^2 + X^2) at the angular frequency omega.
// omega == 0 fails; use Params.DCImpedance to ask for the DC limit explicitly.
func Impedance(r, l, c, omega float64) (float64, error) {
	if !nonNegative(r) {
		return 0, InvalidParam("R", r)
	}
	x, err := Reactance(l, c, omega)
	if err != nil {
		return 0, err
	}
	return math.Hypot(r, x), nil
}

func (p Params) Impedance(omega float64) (float64, error) {
	return Impedance(p.R, p.L, p.C, omega)
}

// DCImpedance is the series capacitor's open circuit.
func (p Params) DCImpedance() float64 { return math.Inf(1) }

// SteadyStateCurrent is the current amplitude I0 = V0/|Z| under a sinusoidal drive.
func (p Params) SteadyStateCurrent(v0, omega float64) (float64, error) {
	z, err := p.Impedance(omega)
	if err != nil {
		return 0, err
	}
	return v0 / z, nil
}

// AveragePower is the mean power dissipated in R, P = I0^2*R/2.
func (p Params) AveragePower(v0, omega float64) (float64, error) {
	i0, err := p.SteadyStateCurrent(v0, omega)
	if err != nil {
		return 0, err
	}
	return 0.5 * i0 * i0 * p.R, nil
}

// DampedFrequency is omega0*sqrt(1-zeta^2). It is zero outside the underdamped regime.
func (d Derived) DampedFrequency() float64 {
	if d.Regime != Underdamped {
		return 0
	}
	return d.Omega0 * math.Sqrt(1-d.Zeta*d.Zeta)
}

// DecayRate is the envelope exponent zeta*omega0 = R/2L.
func (d Derived) DecayRate() float64 { return d.Zeta * d.Omega0 }

// MagnificationFactor is the normalized resonance curve 1/sqrt((1-r^2)^2 + (2*zeta*r)^2)
// at the frequency ratio r = omega/omega0.
func MagnificationFactor(ratio, zeta float64) (float64, error) {
	if !nonNegative(ratio) {
		return 0, InvalidParam("ratio", ratio)
	}
	if !nonNegative(zeta) {
		return 0, InvalidParam("zeta", zeta)
	}
	a := 1 - ratio*ratio
	b := 2 * zeta * ratio
	den := math.Sqrt(a*a + b*b)
	if den == 0 {
		return 0, fmt.Errorf("undamped resonance: %w", divisionByZero("zeta", zeta))
	}
	return 1 / den, nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

func nonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 0) }
