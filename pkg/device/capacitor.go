package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
	"github.com/edp1096/lblmc/pkg/util"
)

// Capacitor is replaced every step by Geq = 2C/dt in parallel with a history
// current injected into p.
type Capacitor struct {
	component.Base
	component.Passive
	TimeStep float64
	Value    float64
}

var _ component.Component = (*Capacitor)(nil)

func NewCapacitor(label string, dt, value float64) (*Capacitor, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("capacitor %s: time step must be positive, got %g", label, dt)
	}
	if value <= 0 {
		return nil, fmt.Errorf("capacitor %s: capacitance must be positive, got %g", label, value)
	}
	return &Capacitor{Base: component.NewBase("Capacitor", label, 2, 0), TimeStep: dt, Value: value}, nil
}

func newCapacitor(label string, params []float64) (component.Component, error) {
	return NewCapacitor(label, params[0], params[1])
}

func (c *Capacitor) NumSources() int { return 1 }

func (c *Capacitor) geq() float64 { return util.CapacitorConductance(c.TimeStep, c.Value) }

func (c *Capacitor) StampConductance(m matrix.Stamper) error {
	if err := c.BeginConductance(); err != nil {
		return err
	}
	return m.StampConductance(c.geq(), c.Node(0), c.Node(1))
}

func (c *Capacitor) StampSources(s *source.IndexVector) error {
	if err := c.BeginSources(); err != nil {
		return err
	}
	id, err := s.InsertSource(c.Node(0), c.Node(1))
	if err != nil {
		return fmt.Errorf("capacitor %s: %w", c.Label(), err)
	}
	c.AddSource(id)
	return nil
}

func (c *Capacitor) Parameters() []codegen.Decl {
	return []codegen.Decl{c.Constant("G", c.geq())}
}

func (c *Capacitor) Fields() []codegen.Decl {
	return []codegen.Decl{c.State("v"), c.State("i"), c.State("ihist")}
}

func (c *Capacitor) Outputs() []codegen.Decl {
	return []codegen.Decl{c.Signal("vout", codegen.Real)}
}

func (c *Capacitor) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{codegen.Set(c.Ref("vout"), c.Ref("v"))}
}

// Update: i(n) = G*v(n) - ihist(n-1), ihist(n) = G*v(n) + i(n).
func (c *Capacitor) Update() []codegen.Stmt {
	g, v, i, hist := c.Ref("G"), c.Ref("v"), c.Ref("i"), c.Ref("ihist")
	stmts := []codegen.Stmt{
		codegen.Set(v, c.Voltage(0, 1)),
		codegen.Set(i, codegen.Sub(codegen.Mul(g, v), hist)),
		codegen.Set(hist, codegen.Add(codegen.Mul(g, v), i)),
	}
	return append(stmts, c.SetSource(0, hist)...)
}
