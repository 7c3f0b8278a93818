package device

// Source is the voltage driving the series loop.
type Source interface {
	Type() SourceType
	Voltage(t float64) float64
}

type SourceType int

const (
	DC SourceType = iota // step switched on at t=0
	SIN
)

func (s SourceType) String() string {
	switch s {
	case DC:
		return "DC"
	case SIN:
		return "SIN"
	default:
		return "UNKNOWN"
	}
}
