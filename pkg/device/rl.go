package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
	"github.com/edp1096/lblmc/pkg/util"
)

// SeriesRL is a resistor and an inductor in series discretized as one
// branch: G = 1/(R + 2L/dt).
type SeriesRL struct {
	component.Base
	component.Passive
	TimeStep   float64
	Resistance float64
	Inductance float64
}

var _ component.Component = (*SeriesRL)(nil)

func NewSeriesRL(label string, dt, r, l float64) (*SeriesRL, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("series RL %s: time step must be positive, got %g", label, dt)
	}
	if r < 0 || l <= 0 {
		return nil, fmt.Errorf("series RL %s: need R >= 0 and L > 0, got R=%g L=%g", label, r, l)
	}
	return &SeriesRL{
		Base:       component.NewBase("SeriesRL", label, 2, 0),
		TimeStep:   dt,
		Resistance: r,
		Inductance: l,
	}, nil
}

func newSeriesRL(label string, params []float64) (component.Component, error) {
	return NewSeriesRL(label, params[0], params[1], params[2])
}

func (b *SeriesRL) NumSources() int { return 1 }

// reactance is the companion resistance of the inductor, 2L/dt.
func (b *SeriesRL) reactance() float64 {
	return b.Inductance * util.GetIntegratorCoeff(b.TimeStep)
}

func (b *SeriesRL) geq() float64 { return 1.0 / (b.Resistance + b.reactance()) }

func (b *SeriesRL) StampConductance(m matrix.Stamper) error {
	if err := b.BeginConductance(); err != nil {
		return err
	}
	return m.StampConductance(b.geq(), b.Node(0), b.Node(1))
}

func (b *SeriesRL) StampSources(s *source.IndexVector) error {
	if err := b.BeginSources(); err != nil {
		return err
	}
	id, err := s.InsertSource(b.Node(0), b.Node(1))
	if err != nil {
		return fmt.Errorf("series RL %s: %w", b.Label(), err)
	}
	b.AddSource(id)
	return nil
}

func (b *SeriesRL) Parameters() []codegen.Decl {
	return []codegen.Decl{
		b.Constant("G", b.geq()),
		b.Constant("K", b.reactance()-b.Resistance),
	}
}

func (b *SeriesRL) Fields() []codegen.Decl {
	return []codegen.Decl{b.State("v"), b.State("i"), b.State("ihist")}
}

func (b *SeriesRL) Outputs() []codegen.Decl {
	return []codegen.Decl{b.Signal("iout", codegen.Real)}
}

func (b *SeriesRL) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{codegen.Set(b.Ref("iout"), b.Ref("i"))}
}

// Update: i(n) = G*v(n) + ihist(n-1), ihist(n) = G*(v(n) + K*i(n)) with
// K = 2L/dt - R.
func (b *SeriesRL) Update() []codegen.Stmt {
	g, k, v, i, hist := b.Ref("G"), b.Ref("K"), b.Ref("v"), b.Ref("i"), b.Ref("ihist")
	stmts := []codegen.Stmt{
		codegen.Set(v, b.Voltage(0, 1)),
		codegen.Set(i, codegen.Add(codegen.Mul(g, v), hist)),
		codegen.Set(hist, codegen.Mul(g, codegen.Add(v, codegen.Mul(k, i)))),
	}
	return append(stmts, b.SetSource(0, codegen.Neg(hist))...)
}
