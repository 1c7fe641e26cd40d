package device

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
	"github.com/edp1096/lblmc/pkg/util"
)

// MutualInductance is a pair of coupled inductors (p1,n1) and (p2,n2).
// The trapezoidal rule gives i(n) = Geq*v(n) + ihist(n-1) with
// Geq = (dt/2) * Lmat^-1, Lmat = [[L1, M], [M, L2]].
type MutualInductance struct {
	component.Base
	component.Passive
	TimeStep float64
	L1, L2   float64
	M        float64
}

var _ component.Component = (*MutualInductance)(nil)

func NewMutualInductance(label string, dt, l1, l2, m float64) (*MutualInductance, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("mutual inductance %s: time step must be positive, got %g", label, dt)
	}
	if l1 <= 0 || l2 <= 0 {
		return nil, fmt.Errorf("mutual inductance %s: self inductances must be positive", label)
	}
	if l1*l2-m*m <= 0 {
		return nil, fmt.Errorf("mutual inductance %s: coupling M=%g exceeds sqrt(L1*L2)", label, m)
	}
	return &MutualInductance{
		Base:     component.NewBase("MutualInductance", label, 4, 0),
		TimeStep: dt,
		L1:       l1,
		L2:       l2,
		M:        m,
	}, nil
}

func newMutualInductance(label string, params []float64) (component.Component, error) {
	return NewMutualInductance(label, params[0], params[1], params[2], params[3])
}

func (k *MutualInductance) NumSources() int { return 2 }

// geq returns the entries of the companion conductance matrix.
func (k *MutualInductance) geq() (g11, g22, g12 float64) {
	a0 := util.GetIntegratorCoeff(k.TimeStep)
	det := (k.L1*k.L2 - k.M*k.M) * a0
	return k.L2 / det, k.L1 / det, -k.M / det
}

func (k *MutualInductance) StampConductance(m matrix.Stamper) error {
	if err := k.BeginConductance(); err != nil {
		return err
	}
	p1, n1, p2, n2 := k.Node(0), k.Node(1), k.Node(2), k.Node(3)
	g11, g22, g12 := k.geq()

	if err := m.StampConductance(g11, p1, n1); err != nil {
		return err
	}
	if err := m.StampConductance(g22, p2, n2); err != nil {
		return err
	}
	// i1 depends on v2 and i2 on v1
	if err := m.StampTransconductance(g12, p2, n2, p1, n1); err != nil {
		return err
	}
	return m.StampTransconductance(g12, p1, n1, p2, n2)
}

func (k *MutualInductance) StampSources(s *source.IndexVector) error {
	if err := k.BeginSources(); err != nil {
		return err
	}
	// a shorted winding gets no slot but keeps its position
	for w := 0; w < 2; w++ {
		id, err := s.InsertSource(k.Node(2*w), k.Node(2*w+1))
		if err != nil {
			return fmt.Errorf("mutual inductance %s: %w", k.Label(), err)
		}
		k.AddSource(id)
	}
	return nil
}

func (k *MutualInductance) Parameters() []codegen.Decl {
	g11, g22, g12 := k.geq()
	return []codegen.Decl{
		k.Constant("G11", g11),
		k.Constant("G22", g22),
		k.Constant("G12", g12),
	}
}

func (k *MutualInductance) Fields() []codegen.Decl {
	return []codegen.Decl{
		k.State("v1"), k.State("v2"),
		k.State("i1"), k.State("i2"),
		k.State("ihist1"), k.State("ihist2"),
	}
}

func (k *MutualInductance) Outputs() []codegen.Decl {
	return []codegen.Decl{k.Signal("iout1", codegen.Real), k.Signal("iout2", codegen.Real)}
}

func (k *MutualInductance) OutputsUpdate() []codegen.Stmt {
	return []codegen.Stmt{
		codegen.Set(k.Ref("iout1"), k.Ref("i1")),
		codegen.Set(k.Ref("iout2"), k.Ref("i2")),
	}
}

func (k *MutualInductance) Update() []codegen.Stmt {
	g11, g22, g12 := k.Ref("G11"), k.Ref("G22"), k.Ref("G12")
	v1, v2 := k.Ref("v1"), k.Ref("v2")
	i1, i2 := k.Ref("i1"), k.Ref("i2")
	h1, h2 := k.Ref("ihist1"), k.Ref("ihist2")

	// Geq*v for winding 1 and 2
	gv1 := codegen.Add(codegen.Mul(g11, v1), codegen.Mul(g12, v2))
	gv2 := codegen.Add(codegen.Mul(g12, v1), codegen.Mul(g22, v2))

	stmts := []codegen.Stmt{
		codegen.Set(v1, k.Voltage(0, 1)),
		codegen.Set(v2, k.Voltage(2, 3)),
		codegen.Set(i1, codegen.Add(gv1, h1)),
		codegen.Set(i2, codegen.Add(gv2, h2)),
		codegen.Set(h1, codegen.Add(i1, gv1)),
		codegen.Set(h2, codegen.Add(i2, gv2)),
	}
	stmts = append(stmts, k.SetSource(0, codegen.Neg(h1))...)
	return append(stmts, k.SetSource(1, codegen.Neg(h2))...)
}
