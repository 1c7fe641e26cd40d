package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

// CurrentSource injects a constant current into p, drawn from n.
type CurrentSource struct {
	component.Base
	component.Passive
	Value float64
}

var _ component.Component = (*CurrentSource)(nil)

func NewCurrentSource(label string, value float64) *CurrentSource {
	return &CurrentSource{Base: component.NewBase("CurrentSource", label, 2, 0), Value: value}
}

func newCurrentSource(label string, params []float64) (component.Component, error) {
	return NewCurrentSource(label, params[0]), nil
}

func (c *CurrentSource) NumSources() int { return 1 }

func (c *CurrentSource) StampConductance(m matrix.Stamper) error {
	return c.BeginConductance()
}

func (c *CurrentSource) StampSources(s *source.IndexVector) error {
	if err := c.BeginSources(); err != nil {
		return err
	}
	id, err := s.InsertSource(c.Node(0), c.Node(1))
	if err != nil {
		return fmt.Errorf("current source %s: %w", c.Label(), err)
	}
	c.AddSource(id)
	return nil
}

func (c *CurrentSource) Parameters() []codegen.Decl {
	return []codegen.Decl{c.Constant("I", c.Value)}
}

func (c *CurrentSource) Outputs() []codegen.Decl {
	return []codegen.Decl{c.Signal("vout", codegen.Real)}
}

func (c *CurrentSource) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{codegen.Set(c.Ref("vout"), c.Voltage(0, 1))}
}

func (c *CurrentSource) Update() []codegen.Stmt {
	return c.SetSource(0, c.Ref("I"))
}

// SignalCurrentSource injects the current given by a function input each
// step.
type SignalCurrentSource struct {
	component.Base
	component.Passive
}

var _ component.Component = (*SignalCurrentSource)(nil)

func NewSignalCurrentSource(label string) *SignalCurrentSource {
	return &SignalCurrentSource{Base: component.NewBase("SignalCurrentSource", label, 2, 0)}
}

func newSignalCurrentSource(label string, _ []float64) (component.Component, error) {
	return NewSignalCurrentSource(label), nil
}

func (c *SignalCurrentSource) NumSources() int { return 1 }

func (c *SignalCurrentSource) StampConductance(m matrix.Stamper) error {
	return c.BeginConductance()
}

func (c *SignalCurrentSource) StampSources(s *source.IndexVector) error {
	if err := c.BeginSources(); err != nil {
		return err
	}
	id, err := s.InsertSource(c.Node(0), c.Node(1))
	if err != nil {
		return fmt.Errorf("signal current source %s: %w", c.Label(), err)
	}
	c.AddSource(id)
	return nil
}

func (c *SignalCurrentSource) Inputs() []codegen.Decl {
	return []codegen.Decl{c.Signal("iin", codegen.Real)}
}

func (c *SignalCurrentSource) Outputs() []codegen.Decl {
	return []codegen.Decl{c.Signal("vout", codegen.Real)}
}

func (c *SignalCurrentSource) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{codegen.Set(c.Ref("vout"), c.Voltage(0, 1))}
}

func (c *SignalCurrentSource) Update() []codegen.Stmt {
	return c.SetSource(0, c.Ref("iin"))
}
