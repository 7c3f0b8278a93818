package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strings"

	"github.com/edp1096/rlc-spice/internal/consts"
	"github.com/edp1096/rlc-spice/pkg/circuit"
	"github.com/edp1096/rlc-spice/pkg/util"
)

// TransferFunction is the rational H(s) = Num(s)/Den(s). Coefficients are
// ordered from the highest power of s down to the constant term.
type TransferFunction struct {
	Num []float64
	Den []float64
}

func NewTransferFunction(num, den []float64) (*TransferFunction, error) {
	if len(num) == 0 {
		return nil, fmt.Errorf("%w: empty numerator", circuit.ErrInvalidParameter)
	}
	if len(den) == 0 {
		return nil, fmt.Errorf("%w: empty denominator", circuit.ErrInvalidParameter)
	}
	for k, v := range num {
		if !finite(v) {
			return nil, circuit.InvalidGridPoint("num", k, v)
		}
	}
	allZero := true
	for k, v := range den {
		if !finite(v) {
			return nil, circuit.InvalidGridPoint("den", k, v)
		}
		if v != 0 {
			allZero = false
		}
	}
	if allZero {
		return nil, fmt.Errorf("%w: zero denominator polynomial", circuit.ErrDivisionByZero)
	}
	return &TransferFunction{
		Num: append([]float64(nil), num...),
		Den: append([]float64(nil), den...),
	}, nil
}

// Eval evaluates H at the complex frequency s.
func (tf *TransferFunction) Eval(s complex128) complex128 {
	return horner(tf.Num, s) / horner(tf.Den, s)
}

// Response evaluates H(j*omega).
func (tf *TransferFunction) Response(omega float64) complex128 {
	return tf.Eval(complex(0, omega))
}

func (tf *TransferFunction) String() string {
	return fmt.Sprintf("H(s) = %v / %v", tf.Num, tf.Den)
}

func horner(coeffs []float64, s complex128) complex128 {
	var acc complex128
	for _, c := range coeffs {
		acc = acc*s + complex(c, 0)
	}
	return acc
}

// loopDen is LC*s^2 + RC*s + 1, shared by every voltage-driven observable.
func loopDen(p circuit.Params) []float64 {
	return []float64{p.L * p.C, p.R * p.C, 1}
}

// LowPass is the capacitor voltage response 1/(LCs^2 + RCs + 1).
func LowPass(p circuit.Params) (*TransferFunction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return NewTransferFunction([]float64{1}, loopDen(p))
}

// BandPass is the resistor voltage response RCs/(LCs^2 + RCs + 1).
func BandPass(p circuit.Params) (*TransferFunction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return NewTransferFunction([]float64{p.R * p.C, 0}, loopDen(p))
}

// Admittance is the loop current per volt, Cs/(LCs^2 + RCs + 1).
func Admittance(p circuit.Params) (*TransferFunction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return NewTransferFunction([]float64{p.C, 0}, loopDen(p))
}

// HighPass is the inductor voltage response LCs^2/(LCs^2 + RCs + 1).
func HighPass(p circuit.Params) (*TransferFunction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return NewTransferFunction([]float64{p.L * p.C, 0, 0}, loopDen(p))
}

// Observable selects the loop quantity a frequency response is taken across.
type Observable int

const (
	OutCapacitor Observable = iota
	OutResistor
	OutInductor
	OutCurrent
)

// Key is the result map name used for the observable.
func (o Observable) Key() string {
	switch o {
	case OutCapacitor:
		return KeyVC
	case OutResistor:
		return KeyVR
	case OutInductor:
		return KeyVL
	case OutCurrent:
		return KeyI
	}
	return "UNKNOWN"
}

func (o Observable) String() string {
	switch o {
	case OutCapacitor:
		return "low-pass V(C)"
	case OutResistor:
		return "band-pass V(R)"
	case OutInductor:
		return "high-pass V(L)"
	case OutCurrent:
		return "admittance I"
	}
	return "unknown"
}

// ParseObservable accepts the probe spellings V(C), V(R), V(L) and I (or I(L)).
func ParseObservable(s string) (Observable, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "V(C)", "VC", "C":
		return OutCapacitor, nil
	case "V(R)", "VR", "R":
		return OutResistor, nil
	case "V(L)", "VL", "L":
		return OutInductor, nil
	case "I", "I(L)", "I(R)", "I(C)":
		return OutCurrent, nil
	}
	return 0, fmt.Errorf("unknown observable %q", s)
}

func ForObservable(p circuit.Params, o Observable) (*TransferFunction, error) {
	switch o {
	case OutCapacitor:
		return LowPass(p)
	case OutResistor:
		return BandPass(p)
	case OutInductor:
		return HighPass(p)
	case OutCurrent:
		return Admittance(p)
	}
	return nil, fmt.Errorf("unknown observable %d", o)
}

// FrequencyResponse holds a Bode sweep. Slices are indexed like Omega.
type FrequencyResponse struct {
	Omega       []float64 // rad/s
	MagnitudeDB []float64 // 20*log10|H|, -Inf where H is exactly zero
	PhaseDeg    []float64 // unwrapped

	tf *TransferFunction
}

// Bode evaluates tf on the angular frequency grid omega.
func Bode(tf *TransferFunction, omega []float64) (*FrequencyResponse, error) {
	if tf == nil {
		return nil, fmt.Errorf("%w: nil transfer function", circuit.ErrInvalidParameter)
	}
	if err := validateGrid("omega", omega, 1); err != nil {
		return nil, err
	}

	fr := &FrequencyResponse{
		Omega:       append([]float64(nil), omega...),
		MagnitudeDB: make([]float64, len(omega)),
		PhaseDeg:    make([]float64, len(omega)),
		tf:          tf,
	}
	for k, w := range omega {
		h := tf.Response(w)
		if !finiteComplex(h) {
			return nil, &circuit.InstabilityError{
				Index: k,
				Time:  w,
				Err:   fmt.Errorf("H(j%g) = %v: %w", w, h, circuit.ErrDivisionByZero),
			}
		}
		fr.MagnitudeDB[k] = 20 * math.Log10(cmplx.Abs(h))
		fr.PhaseDeg[k] = cmplx.Phase(h) * 180 / math.Pi
	}
	UnwrapDegrees(fr.PhaseDeg)

	return fr, nil
}

// UnwrapDegrees removes 360 degree jumps in place: whenever two consecutive
// samples differ by more than 180 degrees, the remainder of the slice is
// shifted by the multiple of 360 that closes the gap.
func UnwrapDegrees(phase []float64) []float64 {
	offset := 0.0
	prev := 0.0
	for k, raw := range phase {
		if k > 0 {
			d := raw - prev
			if math.Abs(d) > consts.PhaseWrapDeg {
				offset -= 360 * math.Round(d/360)
			}
		}
		prev = raw
		phase[k] = raw + offset
	}
	return phase
}

func (fr *FrequencyResponse) Len() int { return len(fr.Omega) }

// FrequencyHz returns the sweep grid in Hz.
func (fr *FrequencyResponse) FrequencyHz() []float64 {
	hz := make([]float64, len(fr.Omega))
	for k, w := range fr.Omega {
		hz[k] = w / (2 * math.Pi)
	}
	return hz
}

// Peak returns the sample with the largest magnitude.
func (fr *FrequencyResponse) Peak() (omega, magDB float64) {
	best := -1
	for k, m := range fr.MagnitudeDB {
		if best < 0 || m > fr.MagnitudeDB[best] {
			best = k
		}
	}
	if best < 0 {
		return math.NaN(), math.NaN()
	}
	return fr.Omega[best], fr.MagnitudeDB[best]
}

var (
	ErrOutOfSweep = errors.New("frequency outside the sweep")

	// ErrNotInterpolable is returned when a bracketing sample is -Inf dB and
	// the response carries no transfer function to evaluate instead.
	ErrNotInterpolable = errors.New("magnitude cannot be interpolated")
)

// MagnitudeAt interpolates the magnitude linearly in log(omega). Next to a
// zero-gain sample the transfer function is evaluated exactly.
func (fr *FrequencyResponse) MagnitudeAt(omega float64) (float64, error) {
	n := fr.Len()
	if n == 0 || omega < fr.Omega[0] || omega > fr.Omega[n-1] {
		return 0, fmt.Errorf("%w: omega=%g", ErrOutOfSweep, omega)
	}
	k := sort.SearchFloat64s(fr.Omega, omega)
	if fr.Omega[k] == omega {
		return fr.MagnitudeDB[k], nil
	}
	if finite(fr.MagnitudeDB[k-1]) && finite(fr.MagnitudeDB[k]) {
		return fr.interpolate(k-1, omega), nil
	}
	if fr.tf == nil {
		return 0, fmt.Errorf("%w: omega=%g lies next to a zero-gain sample", ErrNotInterpolable, omega)
	}
	return 20 * math.Log10(cmplx.Abs(fr.tf.Response(omega))), nil
}

func (fr *FrequencyResponse) interpolate(k int, omega float64) float64 {
	w0, w1 := fr.Omega[k], fr.Omega[k+1]
	m0, m1 := fr.MagnitudeDB[k], fr.MagnitudeDB[k+1]
	var x float64
	if w0 > 0 {
		x = math.Log(omega/w0) / math.Log(w1/w0)
	} else {
		x = (omega - w0) / (w1 - w0)
	}
	return m0 + x*(m1-m0)
}

// HalfPowerBand locates the frequencies where the magnitude has fallen
// 10*log10(2) dB below the peak on either side of it. Crossings are found by
// interpolating in log(omega) between the bracketing samples.
func (fr *FrequencyResponse) HalfPowerBand() (lo, hi float64, err error) {
	peakIdx := -1
	for k, m := range fr.MagnitudeDB {
		if peakIdx < 0 || m > fr.MagnitudeDB[peakIdx] {
			peakIdx = k
		}
	}
	if peakIdx < 0 {
		return 0, 0, fmt.Errorf("%w: empty response", ErrOutOfSweep)
	}
	level := fr.MagnitudeDB[peakIdx] - consts.HalfPowerDB

	lo, hi = math.NaN(), math.NaN()
	for k := peakIdx; k > 0; k-- {
		if fr.MagnitudeDB[k-1] <= level {
			lo = fr.crossing(k-1, level)
			break
		}
	}
	for k := peakIdx; k < fr.Len()-1; k++ {
		if fr.MagnitudeDB[k+1] <= level {
			hi = fr.crossing(k, level)
			break
		}
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return lo, hi, fmt.Errorf("%w: half-power band not bracketed", ErrOutOfSweep)
	}
	return lo, hi, nil
}

// crossing solves for the omega in [Omega[k], Omega[k+1]] where the magnitude equals level.
func (fr *FrequencyResponse) crossing(k int, level float64) float64 {
	w0, w1 := fr.Omega[k], fr.Omega[k+1]
	m0, m1 := fr.MagnitudeDB[k], fr.MagnitudeDB[k+1]
	if math.IsInf(m0, -1) {
		return w1
	}
	if math.IsInf(m1, -1) {
		return w0
	}
	x := (level - m0) / (m1 - m0)
	if w0 > 0 {
		return w0 * math.Pow(w1/w0, x)
	}
	return w0 + x*(w1-w0)
}

type ACAnalysis struct {
	BaseAnalysis
	startFreq   float64
	stopFreq    float64
	numPoints   int
	pointsType  string // "DEC", "OCT", "LIN"
	observable  Observable
	frequencies []float64
	Response    *FrequencyResponse
}

func NewAC(fStart, fStop float64, nPoints int, pType string, observable Observable) *ACAnalysis {
	return &ACAnalysis{
		BaseAnalysis: *NewBaseAnalysis(),
		startFreq:    fStart,
		stopFreq:     fStop,
		numPoints:    nPoints,
		pointsType:   pType,
		observable:   observable,
	}
}

func (ac *ACAnalysis) Setup(p circuit.Params) error {
	if err := ac.BaseAnalysis.Setup(p); err != nil {
		return err
	}
	if !(ac.startFreq > 0) || !finite(ac.startFreq) {
		return circuit.InvalidParam("fstart", ac.startFreq)
	}
	if !(ac.stopFreq > ac.startFreq) || !finite(ac.stopFreq) {
		return circuit.InvalidParam("fstop", ac.stopFreq)
	}

	freqs, err := util.SweepPoints(ac.pointsType, ac.startFreq, ac.stopFreq, ac.numPoints)
	if err != nil {
		return fmt.Errorf("frequency points: %w", err)
	}
	ac.frequencies = freqs
	return nil
}

func (ac *ACAnalysis) Execute() error {
	if len(ac.frequencies) == 0 {
		return fmt.Errorf("frequency points not set")
	}

	tf, err := ForObservable(ac.Params, ac.observable)
	if err != nil {
		return err
	}
	resp, err := Bode(tf, util.AngularFrequencies(ac.frequencies))
	if err != nil {
		return fmt.Errorf("ac analysis: %w", err)
	}
	ac.Response = resp

	name := ac.observable.Key()
	for k, freq := range ac.frequencies {
		ac.StoreACResult(freq, name, resp.MagnitudeDB[k], resp.PhaseDeg[k])
	}
	return nil
}
