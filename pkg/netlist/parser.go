package netlist

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Listing is one component line: type name, unique label, ordered numeric
// parameters and ordered node indices (0 = ground).
type Listing struct {
	Type      string
	Label     string
	Params    []float64
	Terminals []int
	Line      int
}

// Port declares where a subsystem couples to the rest of a decomposed system.
type Port struct {
	ID   int
	P, N int
	Line int
}

type Netlist struct {
	Name       string
	Components []Listing
	Ports      []Port
	NodeCount  int // max terminal index seen
}

// SyntaxError reports a malformed netlist line. Line is 1-based.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"M":   1e-3,  // milli, as SPICE reads it
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valuePattern      = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGMKkmunpf])?$`)
	identPattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	componentPattern  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^(){}]*)\)\s*\{([^(){}]*)\}\s*;?$`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ParseValue - Parse value and factor. 1k -> 1000
func ParseValue(val string) (float64, error) {
	matches := valuePattern.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %q", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}
	if matches[2] != "" {
		multiplier, ok := unitMap[matches[2]]
		if !ok {
			return 0, fmt.Errorf("unknown unit suffix %q in %q", matches[2], val)
		}
		num *= multiplier
	}
	return num, nil
}

type constant struct {
	pattern *regexp.Regexp
	value   string
}

type parser struct {
	netlist   *Netlist
	constants []constant
	line      int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

// substitute replaces every #const label in text, whole words only.
func (p *parser) substitute(text string) string {
	for _, c := range p.constants {
		text = c.pattern.ReplaceAllLiteralString(text, c.value)
	}
	return text
}

// Parse reads netlist text. On error no netlist is returned.
func Parse(input string) (*Netlist, error) {
	p := &parser{netlist: &Netlist{}}

	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		p.line++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading netlist: %w", err)
	}

	if p.netlist.Name == "" {
		return nil, &SyntaxError{Line: p.line, Msg: "missing #name directive"}
	}
	return p.netlist, nil
}

// Load parses the netlist file at path.
func Load(path string) (*Netlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading netlist: %w", err)
	}
	n, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func (p *parser) parseLine(line string) error {
	if strings.HasPrefix(line, "#") {
		return p.parseDirective(strings.Fields(line))
	}
	return p.parseComponent(line)
}

func (p *parser) parseDirective(fields []string) error {
	switch fields[0] {
	case "#name":
		if len(fields) != 2 {
			return p.errorf("#name takes exactly one model label")
		}
		if p.netlist.Name != "" {
			return p.errorf("duplicate #name directive")
		}
		if len(p.netlist.Components) > 0 || len(p.netlist.Ports) > 0 {
			return p.errorf("#name must precede all components")
		}
		if !identPattern.MatchString(fields[1]) {
			return p.errorf("invalid model name %q", fields[1])
		}
		p.netlist.Name = fields[1]

	case "#const":
		if len(fields) != 3 {
			return p.errorf("#const takes a label and a value")
		}
		if !identPattern.MatchString(fields[1]) {
			return p.errorf("invalid constant label %q", fields[1])
		}
		value := p.substitute(fields[2])
		if _, err := ParseValue(value); err != nil {
			return p.errorf("constant %s: %v", fields[1], err)
		}
		p.constants = append(p.constants, constant{
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(fields[1]) + `\b`),
			value:   value,
		})

	case "#port":
		if p.netlist.Name == "" {
			return p.errorf("#name must precede all components")
		}
		if len(fields) != 4 {
			return p.errorf("#port takes an id and two nodes")
		}
		var nums [3]int
		for i, f := range fields[1:] {
			v, err := strconv.Atoi(f)
			if err != nil || v < 0 {
				return p.errorf("#port: invalid integer %q", f)
			}
			nums[i] = v
		}
		port := Port{ID: nums[0], P: nums[1], N: nums[2], Line: p.line}
		p.netlist.Ports = append(p.netlist.Ports, port)
		p.netlist.NodeCount = max(p.netlist.NodeCount, port.P, port.N)

	default:
		return p.errorf("unknown directive %s", fields[0])
	}
	return nil
}

func (p *parser) parseComponent(line string) error {
	line = whitespacePattern.ReplaceAllString(line, " ")
	m := componentPattern.FindStringSubmatch(line)
	if m == nil {
		return p.errorf("malformed component line %q, want: Type label (params) {nodes}", line)
	}
	if p.netlist.Name == "" {
		return p.errorf("#name must precede all components")
	}

	listing := Listing{Type: m[1], Label: m[2], Line: p.line}

	if params := strings.TrimSpace(p.substitute(m[3])); params != "" {
		for _, f := range strings.Split(params, ",") {
			v, err := ParseValue(f)
			if err != nil {
				return p.errorf("%s %s: %v", listing.Type, listing.Label, err)
			}
			listing.Params = append(listing.Params, v)
		}
	}

	if nodes := strings.TrimSpace(m[4]); nodes != "" {
		for _, f := range strings.Split(nodes, ",") {
			f = strings.TrimSpace(f)
			v, err := strconv.Atoi(f)
			if err != nil || v < 0 {
				return p.errorf("%s %s: invalid node index %q", listing.Type, listing.Label, f)
			}
			listing.Terminals = append(listing.Terminals, v)
			p.netlist.NodeCount = max(p.netlist.NodeCount, v)
		}
	}

	p.netlist.Components = append(p.netlist.Components, listing)
	return nil
}
