package netlist

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/rlc-spice/pkg/analysis"
	"github.com/edp1096/rlc-spice/pkg/circuit"
	"github.com/edp1096/rlc-spice/pkg/device"
)

type AnalysisType int

const (
	AnalysisTRAN AnalysisType = iota
	AnalysisAC
)

func (a AnalysisType) String() string {
	switch a {
	case AnalysisTRAN:
		return "TRAN"
	case AnalysisAC:
		return "AC"
	}
	return "UNKNOWN"
}

// Deck is a parsed series RLC netlist.
type Deck struct {
	Title     string
	Elements  []Element      // Circuit elements in deck order
	Nodes     map[string]int // Node name and index
	Analyses  []AnalysisType // in deck order
	TranParam struct {
		TStep float64 // timestep
		TStop float64 // stop time
	}
	ACParam struct {
		Sweep  string  // DEC, OCT, LIN
		Points int     // points per decade/octave, or total for LIN
		FStart float64 // start frequency
		FStop  float64 // stop frequency
	}
	IC struct {
		Q   float64
		I   float64
		Set bool
	}
	Probes []analysis.Observable

	Params circuit.Params
	Source device.Source
}

type Element struct {
	Type   string            // Part type (R, L, C, V)
	Name   string            // Part name
	Nodes  []string          // Node names
	Value  float64           // Part value
	Params map[string]string // Parameter values
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"M":   1e-3,  // milli, as in SPICE; mega is MEG
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)((?i:meg)|[TGKkMmunpf])?[a-zA-Z]*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func Parse(input string) (*Deck, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	deck := &Deck{Nodes: make(map[string]int)}

	// Title or comment
	if scanner.Scan() {
		deck.Title = strings.TrimPrefix(scanner.Text(), "*")
		deck.Title = strings.TrimSpace(deck.Title)
	}

	var currentLine string
	lineNo := 1
	startLine := 0
	flush := func() error {
		if currentLine == "" {
			return nil
		}
		err := parseLine(deck, currentLine)
		currentLine = ""
		if err != nil {
			return fmt.Errorf("line %d: %w", startLine, err)
		}
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if idx := strings.IndexAny(line, "*;"); idx >= 0 { // Comment
			line = strings.TrimSpace(line[:idx])
		}
		if len(line) == 0 {
			continue
		}

		if strings.HasPrefix(line, "+") { // Line continue
			currentLine += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		if strings.EqualFold(line, ".end") {
			break
		}
		currentLine = line
		startLine = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := deck.build(); err != nil {
		return nil, err
	}
	return deck, nil
}

func parseLine(deck *Deck, line string) error {
	line = spaceRe.ReplaceAllString(line, " ")

	if strings.HasPrefix(line, ".") {
		return parseDotOperator(deck, line)
	}

	element, err := parseElement(line)
	if err != nil {
		return err
	}

	deck.Elements = append(deck.Elements, *element)
	for _, node := range element.Nodes {
		if _, exists := deck.Nodes[node]; !exists {
			deck.Nodes[node] = len(deck.Nodes)
		}
	}
	return nil
}

// Parse .tran, .ac, .ic, .probe
func parseDotOperator(deck *Deck, line string) error {
	var err error

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ".tran":
		if len(fields) < 3 {
			return fmt.Errorf("insufficient tran parameters, need tstep and tstop")
		}
		deck.TranParam.TStep, err = ParseValue(fields[1])
		if err != nil {
			return fmt.Errorf("invalid tstep: %w", err)
		}
		deck.TranParam.TStop, err = ParseValue(fields[2])
		if err != nil {
			return fmt.Errorf("invalid tstop: %w", err)
		}
		if !(deck.TranParam.TStep > 0) || !(deck.TranParam.TStop > deck.TranParam.TStep) {
			return fmt.Errorf("tran needs 0 < tstep < tstop, got %g %g", deck.TranParam.TStep, deck.TranParam.TStop)
		}
		deck.Analyses = append(deck.Analyses, AnalysisTRAN)

	case ".ac":
		if len(fields) < 5 {
			return fmt.Errorf("insufficient AC parameters, need sweep type, points, fstart, and fstop")
		}

		// DEC, OCT, LIN
		deck.ACParam.Sweep = strings.ToUpper(fields[1])
		if deck.ACParam.Sweep != "DEC" && deck.ACParam.Sweep != "OCT" && deck.ACParam.Sweep != "LIN" {
			return fmt.Errorf("invalid sweep type: %s", deck.ACParam.Sweep)
		}

		deck.ACParam.Points, err = strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("invalid points number: %w", err)
		}
		deck.ACParam.FStart, err = ParseValue(fields[3])
		if err != nil {
			return fmt.Errorf("invalid fstart: %w", err)
		}
		deck.ACParam.FStop, err = ParseValue(fields[4])
		if err != nil {
			return fmt.Errorf("invalid fstop: %w", err)
		}
		deck.Analyses = append(deck.Analyses, AnalysisAC)

	case ".ic":
		for _, f := range fields[1:] {
			key, val, ok := strings.Cut(f, "=")
			if !ok {
				return fmt.Errorf("invalid initial condition %q, want Q=value or I=value", f)
			}
			v, err := ParseValue(val)
			if err != nil {
				return fmt.Errorf("invalid initial condition %s: %w", key, err)
			}
			switch strings.ToUpper(key) {
			case "Q":
				deck.IC.Q = v
			case "I":
				deck.IC.I = v
			default:
				return fmt.Errorf("unknown initial condition %q", key)
			}
			deck.IC.Set = true
		}

	case ".probe":
		for _, f := range fields[1:] {
			obs, err := analysis.ParseObservable(f)
			if err != nil {
				return err
			}
			deck.Probes = append(deck.Probes, obs)
		}

	default:
		return fmt.Errorf("unsupported control card: %s", fields[0])
	}

	return nil
}

func parseElement(line string) (*Element, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, fmt.Errorf("invalid element format: %s", line)
	}

	elem := &Element{
		Name:   fields[0],
		Type:   strings.ToUpper(string(fields[0][0])),
		Nodes:  fields[1:3],
		Params: make(map[string]string),
	}
	if strings.EqualFold(elem.Nodes[0], elem.Nodes[1]) {
		return nil, fmt.Errorf("%s is shorted: both terminals on node %s", elem.Name, elem.Nodes[0])
	}

	switch elem.Type {
	case "V":
		return parseVoltageSource(fields)

	case "R", "L", "C":
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", elem.Name, err)
		}
		elem.Value = value

	default:
		return nil, fmt.Errorf("unsupported element type: %s", elem.Type)
	}

	return elem, nil
}

func parseVoltageSource(fields []string) (*Element, error) {
	elem := &Element{
		Name:   fields[0],
		Type:   "V",
		Nodes:  []string{fields[1], fields[2]},
		Params: make(map[string]string),
	}

	remaining := strings.Join(fields[3:], " ")
	remaining = strings.ReplaceAll(remaining, "(", " ( ") // Append whitespace around parentheses
	remaining = strings.ReplaceAll(remaining, ")", " ) ")
	words := strings.Fields(remaining)

	switch strings.ToUpper(words[0]) {
	case "DC":
		if len(words) < 2 {
			return nil, fmt.Errorf("missing DC value")
		}
		elem.Params["type"] = "dc"
		value, err := ParseValue(words[1])
		if err != nil {
			return nil, err
		}
		elem.Value = value

	case "SIN":
		elem.Params["type"] = "sin"
		sinParams := strings.Join(words[1:], " ")
		sinParams = strings.Trim(sinParams, "() ")
		elem.Params["sin"] = sinParams

	default:
		// bare value is a DC step
		value, err := ParseValue(words[0])
		if err != nil {
			return nil, fmt.Errorf("unsupported voltage source type: %s", words[0])
		}
		elem.Params["type"] = "dc"
		elem.Value = value
	}

	return elem, nil
}

// ParseValue reads a SPICE number with an optional scale suffix. Trailing
// unit letters after the suffix are ignored, so 10mH and 4.7uF both parse.
// M is milli; mega must be written MEG.
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if suffix := matches[2]; suffix != "" {
		if strings.EqualFold(suffix, "meg") {
			suffix = "meg"
		}
		num *= unitMap[suffix]
	}

	return num, nil
}

func parseSinParams(params string) (offset, amplitude, freq, phase float64, err error) {
	sinParams := strings.Fields(params)
	if len(sinParams) < 3 {
		return 0, 0, 0, 0, fmt.Errorf("insufficient SIN parameters")
	}

	// DC offset
	offset, err = ParseValue(sinParams[0])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid SIN offset: %w", err)
	}

	// Amplitude
	amplitude, err = ParseValue(sinParams[1])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid SIN amplitude: %w", err)
	}

	// Frequency
	freq, err = ParseValue(sinParams[2])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid SIN frequency: %w", err)
	}

	// Phase
	if len(sinParams) > 3 {
		phase, err = ParseValue(sinParams[3])
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid SIN phase: %w", err)
		}
	}

	return offset, amplitude, freq, phase, nil
}

// build checks the topology and resolves elements into circuit parameters
// and an excitation.
func (d *Deck) build() error {
	byType := map[string]*Element{}
	for i := range d.Elements {
		e := &d.Elements[i]
		if prev, dup := byType[e.Type]; dup {
			return fmt.Errorf("series loop takes one %s element, found %s and %s", e.Type, prev.Name, e.Name)
		}
		byType[e.Type] = e
	}
	for _, t := range []string{"R", "L", "C", "V"} {
		if byType[t] == nil {
			return fmt.Errorf("missing %s element", t)
		}
	}

	if err := d.checkLoop(); err != nil {
		return err
	}

	p, err := circuit.New(byType["R"].Value, byType["L"].Value, byType["C"].Value)
	if err != nil {
		return err
	}
	d.Params = p

	src, err := newSource(byType["V"])
	if err != nil {
		return fmt.Errorf("%s: %w", byType["V"].Name, err)
	}
	d.Source = src

	if len(d.Probes) == 0 {
		d.Probes = []analysis.Observable{analysis.OutCapacitor}
	}
	if len(d.Analyses) == 0 {
		return fmt.Errorf("no analysis card, add .tran or .ac")
	}
	return nil
}

// checkLoop requires every node to join exactly two elements and all
// elements to form one connected ring.
func (d *Deck) checkLoop() error {
	adj := make(map[string][]int)
	for i, e := range d.Elements {
		for _, n := range e.Nodes {
			adj[n] = append(adj[n], i)
		}
	}
	for n, elems := range adj {
		if len(elems) != 2 {
			return fmt.Errorf("node %s joins %d elements, a series loop needs exactly 2", n, len(elems))
		}
	}

	seen := make(map[int]bool)
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		for _, n := range d.Elements[i].Nodes {
			stack = append(stack, adj[n]...)
		}
	}
	if len(seen) != len(d.Elements) {
		return fmt.Errorf("elements do not form a single series loop")
	}
	return nil
}

func newSource(e *Element) (device.Source, error) {
	switch e.Params["type"] {
	case "dc":
		return device.NewStep(e.Value)

	case "sin":
		offset, amplitude, freq, phase, err := parseSinParams(e.Params["sin"])
		if err != nil {
			return nil, err
		}
		if offset != 0 || phase != 0 {
			return nil, fmt.Errorf("SIN offset and phase must be zero, got %g and %g", offset, phase)
		}
		return device.NewSinusoidHz(amplitude, freq)
	}
	return nil, fmt.Errorf("unsupported source type %q", e.Params["type"])
}
