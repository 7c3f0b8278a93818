package report

import (
	"fmt"
	"io"

	"github.com/edp1096/rlc-spice/pkg/circuit"
	"github.com/edp1096/rlc-spice/pkg/device"
	"github.com/edp1096/rlc-spice/pkg/util"
)

// CircuitInfo prints the derived quantities of p and, for a sinusoidal
// drive, the steady-state operating point.
func CircuitInfo(w io.Writer, p circuit.Params, src device.Source) error {
	d, err := circuit.Derive(p)
	if err != nil {
		return err
	}
	rCrit, err := circuit.CriticalResistance(p.L, p.C)
	if err != nil {
		return err
	}
	poles, err := p.Poles()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Circuit Information")
	fmt.Fprintln(w, "===================")
	fmt.Fprintf(w, "R = %s, L = %s, C = %s\n",
		util.FormatValueFactor(p.R, "Ohm"), util.FormatValueFactor(p.L, "H"), util.FormatValueFactor(p.C, "F"))
	fmt.Fprintf(w, "Resonant frequency: %s (%s)\n", util.FormatValueFactor(d.Omega0, "rad/s"), util.FormatValueFactor(d.F0, "Hz"))
	fmt.Fprintf(w, "Damping ratio:      %.6g (%s)\n", d.Zeta, d.Regime)
	fmt.Fprintf(w, "Quality factor:     %.6g\n", d.Q)
	fmt.Fprintf(w, "Critical R:         %s\n", util.FormatValueFactor(rCrit, "Ohm"))
	if wd := d.DampedFrequency(); wd > 0 {
		fmt.Fprintf(w, "Damped frequency:   %s\n", util.FormatValueFactor(wd, "rad/s"))
	}
	fmt.Fprintf(w, "Poles:              %.6g, %.6g\n", poles[0], poles[1])

	sin, ok := src.(device.Sinusoid)
	if !ok {
		if src != nil {
			fmt.Fprintf(w, "Source:             %v\n", src)
		}
		return nil
	}

	z, err := p.Impedance(sin.Omega)
	if err != nil {
		return err
	}
	i0, err := p.SteadyStateCurrent(sin.Amplitude, sin.Omega)
	if err != nil {
		return err
	}
	pw, err := p.AveragePower(sin.Amplitude, sin.Omega)
	if err != nil {
		return err
	}
	mf, err := circuit.MagnificationFactor(sin.Omega/d.Omega0, d.Zeta)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Source:             %v\n", sin)
	fmt.Fprintf(w, "Impedance |Z|:      %s\n", util.FormatValueFactor(z, "Ohm"))
	fmt.Fprintf(w, "Current amplitude:  %s\n", util.FormatValueFactor(i0, "A"))
	fmt.Fprintf(w, "Average power:      %s\n", util.FormatValueFactor(pw, "W"))
	fmt.Fprintf(w, "Magnification:      %.6g\n", mf)
	return nil
}
