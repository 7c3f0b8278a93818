package util

import (
	"fmt"
	"math"
)

var siPrefixes = []struct {
	scale  float64
	prefix string
}{
	{1e9, "G"},
	{1e6, "M"},
	{1e3, "k"},
	{1, ""},
	{1e-3, "m"},
	{1e-6, "u"},
	{1e-9, "n"},
	{1e-12, "p"},
}

// FormatValueFactor prints value with an SI prefix: 0.0047 F -> "4.700 mF".
func FormatValueFactor(value float64, unit string) string {
	if value == 0 {
		return fmt.Sprintf("%.3f %s", value, unit)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return fmt.Sprintf("%v %s", value, unit)
	}

	absValue := math.Abs(value)
	for k, p := range siPrefixes {
		if absValue < p.scale {
			continue
		}
		// 999.9996 m rounds to 1000.000 m; print it as 1.000 instead
		if k > 0 && math.Abs(math.Round(value/p.scale*1e3)) >= 1e6 {
			p = siPrefixes[k-1]
		}
		return fmt.Sprintf("%.3f %s%s", value/p.scale, p.prefix, unit)
	}
	return fmt.Sprintf("%.3e %s", value, unit)
}

func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e6:
		return fmt.Sprintf("%7.3f MHz", freq/1e6)
	case freq >= 1e3:
		return fmt.Sprintf("%7.3f kHz", freq/1e3)
	default:
		return fmt.Sprintf("%7.3f Hz ", freq)
	}
}

// FormatDecibel prints a gain in dB; zero gain prints as -inf.
func FormatDecibel(db float64) string {
	if math.IsInf(db, -1) {
		return "    -inf"
	}
	return fmt.Sprintf("%8.2f", db)
}

func FormatPhase(value float64) string {
	return fmt.Sprintf("%7.2f", value)
}
