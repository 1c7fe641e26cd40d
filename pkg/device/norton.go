package device

import (
	"fmt"
	"strconv"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

// NortonPort is k independent Norton branches (Gk across pk,nk) whose
// currents come from function inputs. It couples a netlist to signals
// computed elsewhere, e.g. another subsystem.
type NortonPort struct {
	component.Base
	component.Passive
	Conductances []float64
}

var _ component.Component = (*NortonPort)(nil)

func NewNortonPort(label string, conductances ...float64) (*NortonPort, error) {
	if len(conductances) == 0 {
		return nil, fmt.Errorf("norton port %s: needs at least one branch", label)
	}
	for i, g := range conductances {
		if g < 0 {
			return nil, fmt.Errorf("norton port %s: branch %d has negative conductance %g", label, i+1, g)
		}
	}
	return &NortonPort{
		Base:         component.NewBase("NortonPort", label, 2*len(conductances), 0),
		Conductances: conductances,
	}, nil
}

func newNortonPort(label string, params []float64) (component.Component, error) {
	return NewNortonPort(label, params...)
}

func (n *NortonPort) NumSources() int { return len(n.Conductances) }

func branch(name string, k int) string { return name + strconv.Itoa(k+1) }

func (n *NortonPort) StampConductance(m matrix.Stamper) error {
	if err := n.BeginConductance(); err != nil {
		return err
	}
	for k, g := range n.Conductances {
		if err := m.StampConductance(g, n.Node(2*k), n.Node(2*k+1)); err != nil {
			return err
		}
	}
	return nil
}

func (n *NortonPort) StampSources(s *source.IndexVector) error {
	if err := n.BeginSources(); err != nil {
		return err
	}
	for k := range n.Conductances {
		id, err := s.InsertSource(n.Node(2*k), n.Node(2*k+1))
		if err != nil {
			return fmt.Errorf("norton port %s: %w", n.Label(), err)
		}
		n.AddSource(id)
	}
	return nil
}

func (n *NortonPort) Inputs() []codegen.Decl {
	decls := make([]codegen.Decl, len(n.Conductances))
	for k := range decls {
		decls[k] = n.Signal(branch("iin", k), codegen.Real)
	}
	return decls
}

func (n *NortonPort) Outputs() []codegen.Decl {
	decls := make([]codegen.Decl, len(n.Conductances))
	for k := range decls {
		decls[k] = n.Signal(branch("vout", k), codegen.Real)
	}
	return decls
}

func (n *NortonPort) OutputsUpdate() []codegen.Stmt {
	stmts := make([]codegen.Stmt, len(n.Conductances))
	for k := range stmts {
		stmts[k] = codegen.Set(n.Ref(branch("vout", k)), n.Voltage(2*k, 2*k+1))
	}
	return stmts
}

func (n *NortonPort) Update() []codegen.Stmt {
	var stmts []codegen.Stmt
	for k := range n.Conductances {
		stmts = append(stmts, n.SetSource(k, n.Ref(branch("iin", k)))...)
	}
	return stmts
}
