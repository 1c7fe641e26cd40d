// Package analysis steps a generated solver through the IR interpreter, so
// a netlist can be checked before its header goes to a compiler.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/edp1096/lblmc/pkg/circuit"
	"github.com/edp1096/lblmc/pkg/codegen"
)

var ErrNotSetup = errors.New("analysis not set up")

type Analysis interface {
	Setup(ckt *circuit.Circuit) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Circuit     *circuit.Circuit
	interp      *codegen.Interpreter
	inputs      map[codegen.Ref]float64
	results     map[string][]float64 // key: variable name, value: result by step
	convergence struct {
		maxIter int
		abstol  float64
		reltol  float64
	}
}

func NewBaseAnalysis() *BaseAnalysis {
	ba := &BaseAnalysis{
		inputs:  make(map[codegen.Ref]float64),
		results: make(map[string][]float64),
	}

	ba.convergence.maxIter = 100000
	ba.convergence.abstol = 1e-12
	ba.convergence.reltol = 1e-9

	return ba
}

// SetInput holds a signal input of a component, e.g. ("s1", "on"), at v for
// every step.
func (a *BaseAnalysis) SetInput(owner, name string, v float64) {
	a.inputs[codegen.Var(owner, name)] = v
}

func (a *BaseAnalysis) Setup(ckt *circuit.Circuit) error {
	fn, err := ckt.Engine().Program()
	if err != nil {
		return fmt.Errorf("building program: %w", err)
	}
	a.Circuit = ckt
	a.interp = codegen.NewInterpreter(fn)
	for ref := range a.inputs {
		if _, ok := a.interp.Env().Get(ref); !ok {
			return fmt.Errorf("%s: %w: %s", ckt.Name(), codegen.ErrUndefined, ref.Name+"_"+ref.Owner)
		}
	}
	return nil
}

// step runs the solver once with the held inputs and returns its solution.
func (a *BaseAnalysis) step() ([]float64, error) {
	if a.interp == nil {
		return nil, ErrNotSetup
	}
	env := a.interp.Env()
	for ref, v := range a.inputs {
		env.Set(ref, v)
	}
	if err := a.interp.Step(); err != nil {
		return nil, err
	}
	x, ok := env.Array(codegen.Var("", codegen.SolutionOutput))
	if !ok {
		return nil, fmt.Errorf("%w: %s", codegen.ErrUndefined, codegen.SolutionOutput)
	}
	return x, nil
}

func (a *BaseAnalysis) CheckConvergence(oldSol, newSol []float64) bool {
	if len(oldSol) != len(newSol) {
		return false
	}

	for i := range oldSol {
		diff := math.Abs(newSol[i] - oldSol[i])
		if diff > a.convergence.abstol &&
			diff > a.convergence.reltol*math.Abs(newSol[i]) {
			return false
		}
	}
	return true
}

// SolutionNames labels each unknown: V(n) for nodes, I(label) or
// I(label#k) for ideal voltage source branches.
func (a *BaseAnalysis) SolutionNames() []string {
	names := make([]string, a.Circuit.NumSolutions())
	for i := 1; i <= a.Circuit.NumNodes(); i++ {
		names[i-1] = fmt.Sprintf("V(%d)", i)
	}
	for _, dev := range a.Circuit.Devices() {
		k := dev.NumIdealVoltageSources()
		if k == 0 {
			continue
		}
		first, _ := a.Circuit.Branch(dev.Label())
		for j := 0; j < k; j++ {
			name := fmt.Sprintf("I(%s)", dev.Label())
			if k > 1 {
				name = fmt.Sprintf("I(%s#%d)", dev.Label(), j+1)
			}
			names[first+j-1] = name
		}
	}
	return names
}

func (a *BaseAnalysis) StoreResult(key string, value float64, solution []float64) {
	a.results[key] = append(a.results[key], value)
	for i, name := range a.SolutionNames() {
		a.results[name] = append(a.results[name], solution[i])
	}
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
