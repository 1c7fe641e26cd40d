// Package component defines the contract every circuit element implements to
// take part in system assembly and code generation, and the registry that
// builds elements from netlist listings.
package component

import (
	"errors"
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

// Unconnected marks a terminal that was never assigned. It is distinct from
// ground (0).
const Unconnected = -1

var (
	ErrSealed      = errors.New("component already sealed")
	ErrUnconnected = errors.New("terminal not connected")
)

type Component interface {
	Label() string
	Type() string
	Terminals() []int
	NumTerminals() int
	NumSources() int
	NumIdealVoltageSources() int

	// Connect assigns the terminal node indices. BindSolutionSlots assigns
	// the MNA solution slots of ideal voltage sources. Both are rejected once
	// stamping has begun.
	Connect(nodes ...int) error
	BindSolutionSlots(slots ...int) error

	StampConductance(m matrix.Stamper) error
	StampSources(s *source.IndexVector) error

	Parameters() []codegen.Decl
	Fields() []codegen.Decl
	Inputs() []codegen.Decl
	Outputs() []codegen.Decl
	OutputsUpdate() []codegen.Stmt
	Update() []codegen.Stmt
}

// Base carries the bookkeeping shared by every element: identity, terminal
// assignment, solution slots and the source slot ids handed out by the
// index vector. Concrete elements embed it.
type Base struct {
	label     string
	typ       string
	terminals []int
	slots     []int
	sources   []int

	conductanceStamped bool
	sourcesStamped     bool
}

// NewBase returns a Base with numTerminals unconnected terminals and
// numSlots unbound solution slots.
func NewBase(typ, label string, numTerminals, numSlots int) Base {
	b := Base{
		label:     label,
		typ:       typ,
		terminals: make([]int, numTerminals),
		slots:     make([]int, numSlots),
	}
	for i := range b.terminals {
		b.terminals[i] = Unconnected
	}
	for i := range b.slots {
		b.slots[i] = Unconnected
	}
	return b
}

func (b *Base) Label() string { return b.label }

func (b *Base) Type() string { return b.typ }

func (b *Base) Terminals() []int { return append([]int(nil), b.terminals...) }

func (b *Base) NumTerminals() int { return len(b.terminals) }

func (b *Base) NumIdealVoltageSources() int { return len(b.slots) }

// SourceIDs returns the source slot ids registered so far.
func (b *Base) SourceIDs() []int { return append([]int(nil), b.sources...) }

func (b *Base) sealed() bool { return b.conductanceStamped || b.sourcesStamped }

func (b *Base) Connect(nodes ...int) error {
	if b.sealed() {
		return fmt.Errorf("%s %s: connect: %w", b.typ, b.label, ErrSealed)
	}
	if len(nodes) != len(b.terminals) {
		return fmt.Errorf("%s %s: %d terminals given, want %d", b.typ, b.label, len(nodes), len(b.terminals))
	}
	for _, n := range nodes {
		if n < 0 {
			return fmt.Errorf("%s %s: negative node index %d", b.typ, b.label, n)
		}
	}
	copy(b.terminals, nodes)
	return nil
}

func (b *Base) BindSolutionSlots(slots ...int) error {
	if b.sealed() {
		return fmt.Errorf("%s %s: bind: %w", b.typ, b.label, ErrSealed)
	}
	if len(slots) != len(b.slots) {
		return fmt.Errorf("%s %s: %d solution slots given, want %d", b.typ, b.label, len(slots), len(b.slots))
	}
	for i, s := range slots {
		if b.slots[i] != Unconnected {
			return fmt.Errorf("%s %s: solution slots already bound: %w", b.typ, b.label, ErrSealed)
		}
		if s <= 0 {
			return fmt.Errorf("%s %s: invalid solution slot %d", b.typ, b.label, s)
		}
	}
	copy(b.slots, slots)
	return nil
}

func (b *Base) ready() error {
	for i, n := range b.terminals {
		if n == Unconnected {
			return fmt.Errorf("%s %s: terminal %d: %w", b.typ, b.label, i+1, ErrUnconnected)
		}
	}
	for i, s := range b.slots {
		if s == Unconnected {
			return fmt.Errorf("%s %s: solution slot %d: %w", b.typ, b.label, i+1, ErrUnconnected)
		}
	}
	return nil
}

// BeginConductance seals the element for conductance stamping. It fails on
// a second call or while a terminal or slot is unassigned.
func (b *Base) BeginConductance() error {
	if b.conductanceStamped {
		return fmt.Errorf("%s %s: conductance already stamped: %w", b.typ, b.label, ErrSealed)
	}
	if err := b.ready(); err != nil {
		return err
	}
	b.conductanceStamped = true
	return nil
}

// BeginSources is BeginConductance for source registration.
func (b *Base) BeginSources() error {
	if b.sourcesStamped {
		return fmt.Errorf("%s %s: sources already stamped: %w", b.typ, b.label, ErrSealed)
	}
	if err := b.ready(); err != nil {
		return err
	}
	b.sourcesStamped = true
	return nil
}

// AddSource records a slot id returned by the index vector. Zero ids of
// shorted sources are kept so positions line up with NumSources.
func (b *Base) AddSource(id int) { b.sources = append(b.sources, id) }

// Node is the node index of terminal i (0-based).
func (b *Base) Node(i int) int { return b.terminals[i] }

// Slot is the solution slot of ideal voltage source i (0-based).
func (b *Base) Slot(i int) int { return b.slots[i] }

// Ref names a variable owned by this element.
func (b *Base) Ref(name string) codegen.Ref { return codegen.Var(b.label, name) }

// Voltage is V(terminal p) - V(terminal n) read from the solution vector.
func (b *Base) Voltage(p, n int) codegen.Expr {
	vp, vn := b.terminals[p], b.terminals[n]
	switch {
	case vn == 0:
		return codegen.Solution(vp)
	case vp == 0:
		return codegen.Neg(codegen.Solution(vn))
	}
	return codegen.Sub(codegen.Solution(vp), codegen.Solution(vn))
}

// SetSource assigns value to the i-th registered source slot. A shorted
// slot has no storage and yields no statement.
func (b *Base) SetSource(i int, value codegen.Expr) []codegen.Stmt {
	if i >= len(b.sources) || b.sources[i] == 0 {
		return nil
	}
	return []codegen.Stmt{codegen.Set(codegen.SourceSlot(b.sources[i]), value)}
}

// Constant declares a compile-time parameter of this element.
func (b *Base) Constant(name string, value float64) codegen.Decl {
	return codegen.Decl{Owner: b.label, Name: name, Type: codegen.Real, Qualifier: codegen.StaticConst, Init: []float64{value}}
}

// State declares a zero-initialized variable that persists between steps.
func (b *Base) State(name string) codegen.Decl {
	return codegen.Decl{Owner: b.label, Name: name, Type: codegen.Real, Qualifier: codegen.Static, Init: []float64{0}}
}

// Signal declares a scalar signal input or output of this element.
func (b *Base) Signal(name string, typ codegen.Type) codegen.Decl {
	return codegen.Decl{Owner: b.label, Name: name, Type: typ}
}

// Passive is embedded by elements that contribute no code of their own in
// some category.
type Passive struct{}

func (Passive) Parameters() []codegen.Decl { return nil }
func (Passive) Fields() []codegen.Decl { return nil }
func (Passive) Inputs() []codegen.Decl { return nil }
func (Passive) Outputs() []codegen.Decl { return nil }
func (Passive) OutputsUpdate() []codegen.Stmt { return nil }
func (Passive) Update() []codegen.Stmt { return nil }
