package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/edp1096/rlc-spice/pkg/analysis"
	"github.com/edp1096/rlc-spice/pkg/util"
)

// Columns returns the result names in print order: the sweep variable first,
// then voltages, charges and currents sorted by name.
func Columns(results map[string][]float64) []string {
	var head string
	switch {
	case results[analysis.KeyFreq] != nil:
		head = analysis.KeyFreq
	case results[analysis.KeyTime] != nil:
		head = analysis.KeyTime
	}

	keys := make([]string, 0, len(results))
	for k := range results {
		if k != head {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if head == "" {
		return keys
	}
	return append([]string{head}, keys...)
}

// PrintResults writes results as a fixed-width table.
func PrintResults(w io.Writer, results map[string][]float64) {
	fmt.Fprintln(w, "\nAnalysis Results:")
	fmt.Fprintln(w, "================")

	// AC
	if freqs, isAC := results[analysis.KeyFreq]; isAC {
		fmt.Fprintf(w, "\nAC Analysis Results (%d frequency points):\n", len(freqs))
		fmt.Fprintln(w, "Frequency      Magnitude (dB) / Phase (deg)")
		fmt.Fprintln(w, "--------------------------------------------")

		var names []string
		for name := range results {
			if strings.HasSuffix(name, "_MAG") {
				names = append(names, strings.TrimSuffix(name, "_MAG"))
			}
		}
		sort.Strings(names)

		for i, freq := range freqs {
			fmt.Fprintf(w, "%-13s", util.FormatFrequency(freq))
			for _, name := range names {
				mag, phase := results[name+"_MAG"], results[name+"_PHASE"]
				if mag == nil || phase == nil {
					continue
				}
				fmt.Fprintf(w, "%s=%s dB<%sdeg  ", name, util.FormatDecibel(mag[i]), util.FormatPhase(phase[i]))
			}
			fmt.Fprintln(w)
		}
		return
	}

	// Transient
	times := results[analysis.KeyTime]
	fmt.Fprintf(w, "\nTransient Analysis Results (%d time points):\n", len(times))
	fmt.Fprintln(w, "Time        Voltages        Charge        Currents")
	fmt.Fprintln(w, "------------------------------------------------")

	var voltageNames, chargeNames, currentNames []string
	for name := range results {
		switch {
		case strings.HasPrefix(name, "V("):
			voltageNames = append(voltageNames, name)
		case strings.HasPrefix(name, "Q("):
			chargeNames = append(chargeNames, name)
		case strings.HasPrefix(name, "I("):
			currentNames = append(currentNames, name)
		}
	}
	sort.Strings(voltageNames)
	sort.Strings(chargeNames)
	sort.Strings(currentNames)

	for i, t := range times {
		fmt.Fprintf(w, "%11s  ", util.FormatValueFactor(t, "s"))
		for _, name := range voltageNames {
			fmt.Fprintf(w, "%s=%s  ", name, util.FormatValueFactor(results[name][i], "V"))
		}
		for _, name := range chargeNames {
			fmt.Fprintf(w, "%s=%s  ", name, util.FormatValueFactor(results[name][i], "C"))
		}
		for _, name := range currentNames {
			fmt.Fprintf(w, "%s=%s  ", name, util.FormatValueFactor(results[name][i], "A"))
		}
		fmt.Fprintln(w)
	}
}
