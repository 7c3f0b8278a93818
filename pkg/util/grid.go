package util

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// LinSpace returns n evenly spaced samples over [start, stop].
func LinSpace(start, stop float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("linspace needs at least 2 points, got %d", n)
	}
	if !(stop > start) {
		return nil, fmt.Errorf("linspace needs stop > start, got [%g, %g]", start, stop)
	}
	return floats.Span(make([]float64, n), start, stop), nil
}

// LogSpace returns n logarithmically spaced samples over [start, stop].
func LogSpace(start, stop float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("logspace needs at least 2 points, got %d", n)
	}
	if !(start > 0) || !(stop > start) {
		return nil, fmt.Errorf("logspace needs 0 < start < stop, got [%g, %g]", start, stop)
	}
	return floats.LogSpan(make([]float64, n), start, stop), nil
}

// SweepPoints generates an AC sweep. For DEC and OCT, points is the count per
// decade or octave; for LIN it is the total count.
func SweepPoints(kind string, fStart, fStop float64, points int) ([]float64, error) {
	if points < 1 {
		return nil, fmt.Errorf("sweep needs at least 1 point, got %d", points)
	}

	switch strings.ToUpper(kind) {
	case "DEC":
		n := int(math.Ceil(float64(points)*math.Log10(fStop/fStart)-1e-9)) + 1
		return LogSpace(fStart, fStop, max(n, 2))
	case "OCT":
		n := int(math.Ceil(float64(points)*math.Log2(fStop/fStart)-1e-9)) + 1
		return LogSpace(fStart, fStop, max(n, 2))
	case "LIN":
		return LinSpace(fStart, fStop, max(points, 2))
	}
	return nil, fmt.Errorf("invalid sweep type: %s", kind)
}

// AngularFrequencies converts Hz to rad/s into a new slice.
func AngularFrequencies(freqs []float64) []float64 {
	omega := make([]float64, len(freqs))
	copy(omega, freqs)
	floats.Scale(2*math.Pi, omega)
	return omega
}
