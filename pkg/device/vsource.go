package device

import (
	"fmt"
	"math"
)

// Step is a constant voltage E applied at t=0.
type Step struct {
	Amplitude float64
}

// Sinusoid is V0*sin(omega*t).
type Sinusoid struct {
	Amplitude float64
	Omega     float64 // rad/s
}

var (
	_ Source = Step{}
	_ Source = Sinusoid{}
)

func NewStep(amplitude float64) (Step, error) {
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 0) {
		return Step{}, fmt.Errorf("step amplitude must be finite, got %g", amplitude)
	}
	return Step{Amplitude: amplitude}, nil
}

func NewSinusoid(amplitude, omega float64) (Sinusoid, error) {
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 0) {
		return Sinusoid{}, fmt.Errorf("sinusoid amplitude must be finite, got %g", amplitude)
	}
	if !(omega > 0) || math.IsInf(omega, 0) {
		return Sinusoid{}, fmt.Errorf("sinusoid angular frequency must be positive, got %g", omega)
	}
	return Sinusoid{Amplitude: amplitude, Omega: omega}, nil
}

// NewSinusoidHz takes the drive frequency in Hz.
func NewSinusoidHz(amplitude, freq float64) (Sinusoid, error) {
	return NewSinusoid(amplitude, 2*math.Pi*freq)
}

func (s Step) Type() SourceType { return DC }

func (s Step) Voltage(t float64) float64 {
	if t < 0 {
		return 0
	}
	return s.Amplitude
}

func (s Sinusoid) Type() SourceType { return SIN }

func (s Sinusoid) Voltage(t float64) float64 {
	return s.Amplitude * math.Sin(s.Omega*t)
}

// Period returns 2*pi/omega in seconds.
func (s Sinusoid) Period() float64 { return 2 * math.Pi / s.Omega }

// Freq returns the drive frequency in Hz.
func (s Sinusoid) Freq() float64 { return s.Omega / (2 * math.Pi) }

func (s Step) String() string { return fmt.Sprintf("DC %g V", s.Amplitude) }

func (s Sinusoid) String() string {
	return fmt.Sprintf("SIN(0 %g %g)", s.Amplitude, s.Freq())
}
