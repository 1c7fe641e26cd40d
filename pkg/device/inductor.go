package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
	"github.com/edp1096/lblmc/pkg/util"
)

// Inductor is replaced every step by Geq = dt/2L in parallel with a history
// current flowing from p to n.
type Inductor struct {
	component.Base
	component.Passive
	TimeStep float64
	Value    float64
}

var _ component.Component = (*Inductor)(nil)

func NewInductor(label string, dt, value float64) (*Inductor, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("inductor %s: time step must be positive, got %g", label, dt)
	}
	if value <= 0 {
		return nil, fmt.Errorf("inductor %s: inductance must be positive, got %g", label, value)
	}
	return &Inductor{Base: component.NewBase("Inductor", label, 2, 0), TimeStep: dt, Value: value}, nil
}

func newInductor(label string, params []float64) (component.Component, error) {
	return NewInductor(label, params[0], params[1])
}

func (l *Inductor) NumSources() int { return 1 }

func (l *Inductor) geq() float64 { return util.InductorConductance(l.TimeStep, l.Value) }

func (l *Inductor) StampConductance(m matrix.Stamper) error {
	if err := l.BeginConductance(); err != nil {
		return err
	}
	return m.StampConductance(l.geq(), l.Node(0), l.Node(1))
}

func (l *Inductor) StampSources(s *source.IndexVector) error {
	if err := l.BeginSources(); err != nil {
		return err
	}
	id, err := s.InsertSource(l.Node(0), l.Node(1))
	if err != nil {
		return fmt.Errorf("inductor %s: %w", l.Label(), err)
	}
	l.AddSource(id)
	return nil
}

func (l *Inductor) Parameters() []codegen.Decl {
	return []codegen.Decl{l.Constant("G", l.geq())}
}

func (l *Inductor) Fields() []codegen.Decl {
	return []codegen.Decl{l.State("v"), l.State("i"), l.State("ihist")}
}

func (l *Inductor) Outputs() []codegen.Decl {
	return []codegen.Decl{l.Signal("iout", codegen.Real)}
}

func (l *Inductor) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{codegen.Set(l.Ref("iout"), l.Ref("i"))}
}

// Update: i(n) = G*v(n) + ihist(n-1), ihist(n) = i(n) + G*v(n). The history
// current leaves p, so the slot carries its negation.
func (l *Inductor) Update() []codegen.Stmt {
	g, v, i, hist := l.Ref("G"), l.Ref("v"), l.Ref("i"), l.Ref("ihist")
	stmts := []codegen.Stmt{
		codegen.Set(v, l.Voltage(0, 1)),
		codegen.Set(i, codegen.Add(codegen.Mul(g, v), hist)),
		codegen.Set(hist, codegen.Add(i, codegen.Mul(g, v))),
	}
	return append(stmts, l.SetSource(0, codegen.Neg(hist))...)
}
