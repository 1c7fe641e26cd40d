package device

import (
	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

// VCCS drives gm*(V(cp)-V(cn)) from p through the source to n.
type VCCS struct {
	component.Base
	component.Passive
	Gain float64
}

var _ component.Component = (*VCCS)(nil)

func NewVCCS(label string, gm float64) *VCCS {
	return &VCCS{Base: component.NewBase("VCCS", label, 4, 0), Gain: gm}
}

func newVCCS(label string, params []float64) (component.Component, error) {
	return NewVCCS(label, params[0]), nil
}

func (g *VCCS) NumSources() int { return 0 }

func (g *VCCS) StampConductance(m matrix.Stamper) error {
	if err := g.BeginConductance(); err != nil {
		return err
	}
	return m.StampTransconductance(g.Gain, g.Node(2), g.Node(3), g.Node(0), g.Node(1))
}

func (g *VCCS) StampSources(s *source.IndexVector) error {
	return g.BeginSources()
}

func (g *VCCS) Parameters() []codegen.Decl {
	return []codegen.Decl{g.Constant("gm", g.Gain)}
}

func (g *VCCS) Outputs() []codegen.Decl {
	return []codegen.Decl{g.Signal("iout", codegen.Real)}
}

func (g *VCCS) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{
		codegen.Set(g.Ref("iout"), codegen.Mul(g.Ref("gm"), g.Voltage(2, 3))),
	}
}
