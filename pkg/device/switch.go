package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

// Switch is a two-state resistor controlled by a boolean input. The matrix
// holds the average of both conductances so it never changes; a source
// corrects the difference using the voltage of the previous step.
type Switch struct {
	component.Base
	component.Passive
	Ron  float64
	Roff float64
}

var _ component.Component = (*Switch)(nil)

func NewSwitch(label string, ron, roff float64) (*Switch, error) {
	if ron <= 0 || roff <= 0 {
		return nil, fmt.Errorf("switch %s: resistances must be positive, got Ron=%g Roff=%g", label, ron, roff)
	}
	return &Switch{Base: component.NewBase("Switch", label, 2, 0), Ron: ron, Roff: roff}, nil
}

func newSwitch(label string, params []float64) (component.Component, error) {
	return NewSwitch(label, params[0], params[1])
}

func (s *Switch) NumSources() int { return 1 }

func (s *Switch) average() float64 { return (1.0/s.Ron + 1.0/s.Roff) / 2 }

func (s *Switch) StampConductance(m matrix.Stamper) error {
	if err := s.BeginConductance(); err != nil {
		return err
	}
	return m.StampConductance(s.average(), s.Node(0), s.Node(1))
}

func (s *Switch) StampSources(iv *source.IndexVector) error {
	if err := s.BeginSources(); err != nil {
		return err
	}
	id, err := iv.InsertSource(s.Node(0), s.Node(1))
	if err != nil {
		return fmt.Errorf("switch %s: %w", s.Label(), err)
	}
	s.AddSource(id)
	return nil
}

func (s *Switch) Parameters() []codegen.Decl {
	return []codegen.Decl{
		s.Constant("Gon", 1.0/s.Ron),
		s.Constant("Goff", 1.0/s.Roff),
		s.Constant("Gavg", s.average()),
	}
}

func (s *Switch) Fields() []codegen.Decl {
	return []codegen.Decl{s.State("v"), s.State("g")}
}

func (s *Switch) Inputs() []codegen.Decl {
	return []codegen.Decl{s.Signal("on", codegen.Bool)}
}

func (s *Switch) Outputs() []codegen.Decl {
	return []codegen.Decl{s.Signal("iout", codegen.Real)}
}

func (s *Switch) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{codegen.Set(s.Ref("iout"), codegen.Mul(s.Ref("g"), s.Ref("v")))}
}

// Update injects (Gavg - g)*v into p, which turns the stamped average back
// into the selected conductance.
func (s *Switch) Update() []codegen.Stmt {
	v, g := s.Ref("v"), s.Ref("g")
	stmts := []codegen.Stmt{
		codegen.Set(v, s.Voltage(0, 1)),
		codegen.Set(g, codegen.Select{Cond: s.Ref("on"), Then: s.Ref("Gon"), Else: s.Ref("Goff")}),
	}
	return append(stmts, s.SetSource(0, codegen.Mul(codegen.Sub(s.Ref("Gavg"), g), v))...)
}
