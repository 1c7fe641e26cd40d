package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

type Resistor struct {
	component.Base
	component.Passive
	Value float64
}

var _ component.Component = (*Resistor)(nil)

func NewResistor(label string, value float64) (*Resistor, error) {
	if value <= 0 {
		return nil, fmt.Errorf("resistor %s: resistance must be positive, got %g", label, value)
	}
	return &Resistor{Base: component.NewBase("Resistor", label, 2, 0), Value: value}, nil
}

func newResistor(label string, params []float64) (component.Component, error) {
	return NewResistor(label, params[0])
}

func (r *Resistor) NumSources() int { return 0 }

// Conductance. G = 1/R
func (r *Resistor) conductance() float64 { return 1.0 / r.Value }

func (r *Resistor) StampConductance(m matrix.Stamper) error {
	if err := r.BeginConductance(); err != nil {
		return err
	}
	return m.StampConductance(r.conductance(), r.Node(0), r.Node(1))
}

func (r *Resistor) StampSources(s *source.IndexVector) error {
	return r.BeginSources()
}

func (r *Resistor) Parameters() []codegen.Decl {
	return []codegen.Decl{r.Constant("G", r.conductance())}
}

func (r *Resistor) Outputs() []codegen.Decl {
	return []codegen.Decl{r.Signal("i", codegen.Real)}
}

func (r *Resistor) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{
		codegen.Set(r.Ref("i"), codegen.Mul(r.Ref("G"), r.Voltage(0, 1))),
	}
}
