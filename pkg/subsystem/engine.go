// Package subsystem generates solvers for the parts of a decomposed network.
// Subsystems see each other only through Norton equivalents at their ports
// and exchange port injections once per step.
package subsystem

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/generator"
	"github.com/edp1096/lblmc/pkg/matrix"
)

var (
	ErrNoPorts     = errors.New("subsystem has no ports")
	ErrInvalidPort = errors.New("invalid port")
)

// Port is where a subsystem couples to the others: the node pair (P, N)
// shared under a system-wide ID.
type Port struct {
	ID   int
	P, N int
}

// PortModel is the Norton equivalent of a subsystem seen at one port.
// Transconductances[j] is the current into this port per volt across port
// j. SourceGains[s] is the short-circuit current out of the port per unit
// of source slot s.
type PortModel struct {
	ID                int
	Conductance       float64
	Transconductances map[int]float64
	SourceGains       map[int]float64
}

// HasSources reports whether any source gain is non-zero.
func (m PortModel) HasSources() bool {
	for _, g := range m.SourceGains {
		if g != 0 {
			return true
		}
	}
	return false
}

// injection is a remote Norton current entering through a local slot.
type injection struct {
	port int
	slot int
}

type Engine struct {
	*generator.Engine

	ports   []Port
	index   map[int]int // port id -> position in ports
	models  []PortModel
	inputs  []injection
	outputs []PortModel
	log     *slog.Logger
}

func New(name string, numSolutions int, opts generator.Options) (*Engine, error) {
	g, err := generator.New(name, numSolutions, opts)
	if err != nil {
		return nil, err
	}
	e := &Engine{Engine: g, index: make(map[int]int), log: g.Logger()}
	g.SetLayout(e.layout)
	return e, nil
}

func (e *Engine) DeclarePort(p Port) error {
	if _, exists := e.index[p.ID]; exists {
		return fmt.Errorf("%w: port %d declared twice", ErrInvalidPort, p.ID)
	}
	n := e.NumSolutions()
	if p.P < 0 || p.N < 0 || p.P > n || p.N > n {
		return fmt.Errorf("%w: port %d nodes (%d,%d) outside 0..%d", ErrInvalidPort, p.ID, p.P, p.N, n)
	}
	if p.P == p.N {
		return fmt.Errorf("%w: port %d is shorted at node %d", ErrInvalidPort, p.ID, p.P)
	}
	e.index[p.ID] = len(e.ports)
	e.ports = append(e.ports, p)
	return nil
}

func (e *Engine) Ports() []Port { return append([]Port(nil), e.ports...) }

func (e *Engine) Port(id int) (Port, bool) {
	i, ok := e.index[id]
	if !ok {
		return Port{}, false
	}
	return e.ports[i], true
}

// Models returns the port models of the last ComputePortModels call.
func (e *Engine) Models() []PortModel { return e.models }

// ComputePortModels extracts the Norton equivalent at every port from the
// conductance and sources stamped so far. The augmented matrix (own
// conductance plus one ideal voltage source per port) is factored once and
// solved for every probe.
func (e *Engine) ComputePortModels() ([]PortModel, error) {
	if len(e.ports) == 0 {
		return nil, fmt.Errorf("%s: %w", e.Name(), ErrNoPorts)
	}

	d, k := e.NumSolutions(), len(e.ports)
	solver, err := e.probeSolver()
	if err != nil {
		return nil, err
	}
	defer solver.Destroy()

	models := make([]PortModel, k)
	for i, p := range e.ports {
		models[i] = PortModel{
			ID:                p.ID,
			Transconductances: make(map[int]float64),
			SourceGains:       make(map[int]float64),
		}
	}

	// unit voltage at port i, every other port shorted
	for i, pi := range e.ports {
		rhs := make([]float64, d+k)
		rhs[d+i] = 1
		x, err := solver.Solve(rhs)
		if err != nil {
			return nil, fmt.Errorf("%s: probing port %d: %w", e.Name(), pi.ID, err)
		}
		models[i].Conductance = -x[d+i]
		for j := range e.ports {
			if j != i {
				models[j].Transconductances[pi.ID] = -x[d+j]
			}
		}
	}

	// unit current through every source slot, all ports shorted
	sources := e.Sources()
	for s := 1; s <= sources.NumSources(); s++ {
		pair, err := sources.NodesByID(s)
		if err != nil {
			return nil, err
		}
		rhs := make([]float64, d+k)
		if pair.P != 0 {
			rhs[pair.P-1] += 1
		}
		if pair.N != 0 {
			rhs[pair.N-1] -= 1
		}
		x, err := solver.Solve(rhs)
		if err != nil {
			return nil, fmt.Errorf("%s: probing source slot %d: %w", e.Name(), s, err)
		}
		for j := range e.ports {
			models[j].SourceGains[s] = x[d+j]
		}
	}

	e.models = models
	e.log.Debug("port models computed",
		"subsystem", e.Name(),
		"ports", k,
		"sources", sources.NumSources())
	return models, nil
}

func (e *Engine) probeSolver() (*matrix.SparseSolver, error) {
	g := e.Conductance()
	d, k := g.Dim(), len(e.ports)

	solver, err := matrix.NewSparseSolver(d + k)
	if err != nil {
		return nil, err
	}
	add := func(i, j int, v float64) error {
		if i == 0 || j == 0 {
			return nil
		}
		return solver.AddElement(i, j, v)
	}

	for i := 1; i <= d; i++ {
		for j := 1; j <= d; j++ {
			if v := g.At(i, j); v != 0 || i == j {
				if err := add(i, j, v); err != nil {
					solver.Destroy()
					return nil, err
				}
			}
		}
	}
	for i, p := range e.ports {
		s := d + i + 1
		for _, cell := range []struct {
			r, c int
			v    float64
		}{
			{p.P, s, 1}, {s, p.P, 1}, {p.N, s, -1}, {s, p.N, -1},
		} {
			if err := add(cell.r, cell.c, cell.v); err != nil {
				solver.Destroy()
				return nil, err
			}
		}
	}

	if err := solver.Factor(); err != nil {
		solver.Destroy()
		return nil, fmt.Errorf("%s: probe matrix: %w", e.Name(), err)
	}
	return solver, nil
}

// StampOthersPortModel stamps the Norton equivalent another subsystem shows
// at port m.ID across the local terminals of that port.
func (e *Engine) StampOthersPortModel(m PortModel) error {
	port, ok := e.Port(m.ID)
	if !ok {
		return fmt.Errorf("%w: %s has no port %d", ErrInvalidPort, e.Name(), m.ID)
	}

	g := e.Conductance()
	if err := g.StampConductance(m.Conductance, port.P, port.N); err != nil {
		return err
	}

	ids := make([]int, 0, len(m.Transconductances))
	for id := range m.Transconductances {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		other, ok := e.Port(id)
		if !ok {
			e.log.Debug("transconductance to remote port skipped",
				"subsystem", e.Name(), "port", m.ID, "remote_port", id)
			continue
		}
		// the remote draws Y*(V(other)) out of this port's p terminal
		if err := g.StampTransconductance(m.Transconductances[id], other.P, other.N, port.P, port.N); err != nil {
			return err
		}
	}

	if m.HasSources() {
		slot, err := e.Sources().InsertSource(port.P, port.N)
		if err != nil {
			return err
		}
		e.inputs = append(e.inputs, injection{port: m.ID, slot: slot})
	}
	return nil
}

// AddOwnSourceGains registers the outgoing injection of port m.ID: the
// short-circuit current computed from this subsystem's own source slots.
func (e *Engine) AddOwnSourceGains(m PortModel) error {
	if _, ok := e.Port(m.ID); !ok {
		return fmt.Errorf("%w: %s has no port %d", ErrInvalidPort, e.Name(), m.ID)
	}
	for _, out := range e.outputs {
		if out.ID == m.ID {
			return fmt.Errorf("%w: source gains of port %d already added", ErrInvalidPort, m.ID)
		}
	}
	e.outputs = append(e.outputs, m)
	return nil
}

// InputPorts lists the port ids read from port_in, by index.
func (e *Engine) InputPorts() []int {
	ids := make([]int, len(e.inputs))
	for i, in := range e.inputs {
		ids[i] = in.port
	}
	return ids
}

// OutputPorts lists the port ids written to port_out, by index.
func (e *Engine) OutputPorts() []int {
	ids := make([]int, len(e.outputs))
	for i, m := range e.outputs {
		ids[i] = m.ID
	}
	return ids
}

func (e *Engine) portIn() []codegen.Stmt {
	in := codegen.Var("", codegen.PortInput)
	var stmts []codegen.Stmt
	for i, inj := range e.inputs {
		if inj.slot == 0 {
			continue
		}
		stmts = append(stmts,
			codegen.Comment(fmt.Sprintf("port %d", inj.port)),
			codegen.Set(codegen.SourceSlot(inj.slot), codegen.At(in, i)))
	}
	return stmts
}

func (e *Engine) portOut() []codegen.Stmt {
	out := codegen.Var("", codegen.PortOutput)
	stmts := make([]codegen.Stmt, 0, len(e.outputs))
	for i, m := range e.outputs {
		slots := make([]int, 0, len(m.SourceGains))
		for s := range m.SourceGains {
			slots = append(slots, s)
		}
		sort.Ints(slots)

		var terms []codegen.Expr
		for _, s := range slots {
			if gain := m.SourceGains[s]; gain != 0 {
				terms = append(terms, codegen.Mul(codegen.L(gain), codegen.SourceSlot(s)))
			}
		}
		stmts = append(stmts, codegen.Set(codegen.At(out, i), codegen.Sum(terms...)))
	}
	return stmts
}

// layout orders one step as: read port injections, aggregate, solve,
// update components, update outputs, write port injections, outputs.
func (e *Engine) layout(name string, p *generator.Parts) *codegen.Function {
	params := p.Params
	if n := len(e.inputs); n > 0 {
		params = append(params, codegen.Param{
			Decl: codegen.Decl{Name: codegen.PortInput, Type: codegen.Real, Dims: []int{n}},
			Dir:  codegen.In,
		})
	}
	if n := len(e.outputs); n > 0 {
		params = append(params, codegen.Param{
			Decl: codegen.Decl{Name: codegen.PortOutput, Type: codegen.Real, Dims: []int{n}},
			Dir:  codegen.Out,
		})
	}

	return &codegen.Function{
		Name:           name,
		TemplateParams: p.TemplateParams,
		Params:         params,
		Pragmas:        p.Pragmas,
		Sections: []codegen.Section{
			{Title: "Parameters", Decls: p.Parameters},
			{Title: "Fields", Decls: p.Fields},
			{Title: "Solution storage", Decls: p.Storage},
			{Title: "Inverted conductance matrix", Decls: []codegen.Decl{p.Inverse}},
			{Title: "Port injections in", Stmts: e.portIn()},
			{Title: "Source vector aggregation", Stmts: p.Aggregation},
			{Title: "Solve x = Ainv * b", Stmts: p.Solve},
			{Title: "Component updates", Stmts: p.Update},
			{Title: "Output updates", Stmts: p.OutputsUpdate},
			{Title: "Port injections out", Stmts: e.portOut()},
			{Title: "Outputs", Stmts: p.Outputs},
		},
	}
}
