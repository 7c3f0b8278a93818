package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/edp1096/rlc-spice/pkg/circuit"
)

type Analysis interface {
	Setup(p circuit.Params) error
	Execute() error
	GetResults() map[string][]float64
}

// Result keys.
const (
	KeyTime = "TIME"
	KeyFreq = "FREQ"
	KeyVIn  = "V(IN)"
	KeyQ    = "Q(C)"
	KeyI    = "I(L)"
	KeyVR   = "V(R)"
	KeyVL   = "V(L)"
	KeyVC   = "V(C)"
)

type BaseAnalysis struct {
	Params  circuit.Params
	results map[string][]float64 // key: variable name, value: samples in sweep order
}

func NewBaseAnalysis() *BaseAnalysis {
	return &BaseAnalysis{results: make(map[string][]float64)}
}

func (a *BaseAnalysis) Setup(p circuit.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	a.Params = p
	a.results = make(map[string][]float64)
	return nil
}

func (a *BaseAnalysis) StoreTimeResult(time float64, solution map[string]float64) {
	a.results[KeyTime] = append(a.results[KeyTime], time)
	for name, value := range solution {
		a.results[name] = append(a.results[name], value)
	}
}

// StoreACResult records magnitude in dB and phase in degrees under
// name_MAG and name_PHASE.
func (a *BaseAnalysis) StoreACResult(freq float64, name string, magDB, phaseDeg float64) {
	a.results[KeyFreq] = append(a.results[KeyFreq], freq)
	a.results[name+"_MAG"] = append(a.results[name+"_MAG"], magDB)
	a.results[name+"_PHASE"] = append(a.results[name+"_PHASE"], phaseDeg)
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

// validateGrid requires a finite, non-negative, strictly increasing grid of at
// least minLen points.
func validateGrid(name string, grid []float64, minLen int) error {
	if len(grid) < minLen {
		return &circuit.ParamError{
			Name:  name,
			Value: float64(len(grid)),
			Index: -1,
			Err:   fmt.Errorf("%w: %s needs at least %d points", circuit.ErrInvalidParameter, name, minLen),
		}
	}
	for k, v := range grid {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return circuit.InvalidGridPoint(name, k, v)
		}
		if k > 0 && !(v > grid[k-1]) {
			return circuit.InvalidGridPoint(name, k, v)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteComplex(z complex128) bool { return !cmplx.IsNaN(z) && !cmplx.IsInf(z) }
