package circuit

import (
	"math"

	"github.com/edp1096/rlc-spice/internal/consts"
)

type Regime int

const (
	Underdamped Regime = iota
	CriticallyDamped
	Overdamped
)

func (r Regime) String() string {
	switch r {
	case Underdamped:
		return "Underdamped"
	case CriticallyDamped:
		return "Critically damped"
	case Overdamped:
		return "Overdamped"
	default:
		return "Unknown"
	}
}

// Classify maps a damping ratio to its regime. Ratios within consts.CriticalBand
// of 1 are critically damped.
func Classify(zeta float64) Regime {
	switch {
	case math.Abs(zeta-1) < consts.CriticalBand:
		return CriticallyDamped
	case zeta < 1:
		return Underdamped
	default:
		return Overdamped
	}
}
