package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

// VoltageSource is a DC source with a series resistance, stamped as its
// Norton equivalent G = 1/Rs, I = V/Rs.
type VoltageSource struct {
	component.Base
	component.Passive
	Value      float64
	Resistance float64
}

var _ component.Component = (*VoltageSource)(nil)

func NewVoltageSource(label string, v, rs float64) (*VoltageSource, error) {
	if rs <= 0 {
		return nil, fmt.Errorf("voltage source %s: series resistance must be positive, got %g", label, rs)
	}
	return &VoltageSource{Base: component.NewBase("VoltageSource", label, 2, 0), Value: v, Resistance: rs}, nil
}

func newVoltageSource(label string, params []float64) (component.Component, error) {
	return NewVoltageSource(label, params[0], params[1])
}

func (v *VoltageSource) NumSources() int { return 1 }

func (v *VoltageSource) StampConductance(m matrix.Stamper) error {
	if err := v.BeginConductance(); err != nil {
		return err
	}
	return m.StampConductance(1.0/v.Resistance, v.Node(0), v.Node(1))
}

func (v *VoltageSource) StampSources(s *source.IndexVector) error {
	if err := v.BeginSources(); err != nil {
		return err
	}
	id, err := s.InsertSource(v.Node(0), v.Node(1))
	if err != nil {
		return fmt.Errorf("voltage source %s: %w", v.Label(), err)
	}
	v.AddSource(id)
	return nil
}

func (v *VoltageSource) Parameters() []codegen.Decl {
	return []codegen.Decl{
		v.Constant("G", 1.0/v.Resistance),
		v.Constant("I", v.Value/v.Resistance),
	}
}

func (v *VoltageSource) Outputs() []codegen.Decl {
	return []codegen.Decl{v.Signal("iout", codegen.Real)}
}

// OutputsUpdate reports the current delivered out of p.
func (v *VoltageSource) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{
		codegen.Set(v.Ref("iout"), codegen.Sub(v.Ref("I"), codegen.Mul(v.Ref("G"), v.Voltage(0, 1)))),
	}
}

func (v *VoltageSource) Update() []codegen.Stmt {
	return v.SetSource(0, v.Ref("I"))
}

// IdealVoltageSource forces V(p) - V(n) = V through an extra MNA unknown
// carrying its branch current.
type IdealVoltageSource struct {
	component.Base
	component.Passive
	Value float64
}

var _ component.Component = (*IdealVoltageSource)(nil)

func NewIdealVoltageSource(label string, v float64) *IdealVoltageSource {
	return &IdealVoltageSource{Base: component.NewBase("IdealVoltageSource", label, 2, 1), Value: v}
}

func newIdealVoltageSource(label string, params []float64) (component.Component, error) {
	return NewIdealVoltageSource(label, params[0]), nil
}

func (v *IdealVoltageSource) NumSources() int { return 1 }

func (v *IdealVoltageSource) StampConductance(m matrix.Stamper) error {
	if err := v.BeginConductance(); err != nil {
		return err
	}
	return m.StampIdealVoltageSourceIncidence(v.Slot(0), v.Node(0), v.Node(1))
}

func (v *IdealVoltageSource) StampSources(s *source.IndexVector) error {
	if err := v.BeginSources(); err != nil {
		return err
	}
	id, err := s.InsertIdealVoltageSource(v.Slot(0))
	if err != nil {
		return fmt.Errorf("ideal voltage source %s: %w", v.Label(), err)
	}
	v.AddSource(id)
	return nil
}

func (v *IdealVoltageSource) Parameters() []codegen.Decl {
	return []codegen.Decl{v.Constant("V", v.Value)}
}

func (v *IdealVoltageSource) Outputs() []codegen.Decl {
	return []codegen.Decl{v.Signal("iout", codegen.Real)}
}

// OutputsUpdate reports the branch current delivered out of p. The MNA
// unknown flows from p into the source, hence the sign.
func (v *IdealVoltageSource) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{
		codegen.Set(v.Ref("iout"), codegen.Neg(codegen.Solution(v.Slot(0)))),
	}
}

func (v *IdealVoltageSource) Update() []codegen.Stmt {
	return v.SetSource(0, v.Ref("V"))
}
