package generator

import (
	"fmt"

	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/util"
)

// Parts are the building blocks of a solver function. A Layout arranges
// them into sections.
type Parts struct {
	TemplateParams []string
	Pragmas        []string
	Params         []codegen.Param

	Parameters []codegen.Decl
	Fields     []codegen.Decl
	Storage    []codegen.Decl
	Inverse    codegen.Decl

	Update        []codegen.Stmt
	OutputsUpdate []codegen.Stmt
	Aggregation   []codegen.Stmt
	Solve         []codegen.Stmt
	Outputs       []codegen.Stmt
}

type Layout func(name string, p *Parts) *codegen.Function

// Monolithic updates components from the previous solution, then aggregates
// and solves.
func Monolithic(name string, p *Parts) *codegen.Function {
	return &codegen.Function{
		Name:           name,
		TemplateParams: p.TemplateParams,
		Params:         p.Params,
		Pragmas:        p.Pragmas,
		Sections: []codegen.Section{
			{Title: "Parameters", Decls: p.Parameters},
			{Title: "Fields", Decls: p.Fields},
			{Title: "Solution storage", Decls: p.Storage},
			{Title: "Inverted conductance matrix", Decls: []codegen.Decl{p.Inverse}},
			{Title: "Component updates", Stmts: p.Update},
			{Title: "Output updates", Stmts: p.OutputsUpdate},
			{Title: "Source vector aggregation", Stmts: p.Aggregation},
			{Title: "Solve x = Ainv * b", Stmts: p.Solve},
			{Title: "Outputs", Stmts: p.Outputs},
		},
	}
}

func (e *Engine) pragmas() []string {
	if !e.opts.TargetPragmas {
		return nil
	}
	pragmas := []string{
		fmt.Sprintf("// target clock period %s", util.FormatValueFactor(e.opts.ClockPeriod*1e-9, "s")),
		"#pragma HLS INLINE off",
		"#pragma HLS PIPELINE II=1",
	}
	if e.opts.Latency > 0 {
		pragmas = append(pragmas, fmt.Sprintf("#pragma HLS LATENCY min=%d max=%d", e.opts.Latency, e.opts.Latency))
	}
	return pragmas
}

func (e *Engine) templateParams() []string {
	var params []string
	if e.opts.TemplateFunction {
		params = append(params, "int id")
	}
	if e.opts.TemplateRealType {
		params = append(params, "typename real")
	}
	return params
}

func array(name string, dims ...int) codegen.Decl {
	return codegen.Decl{Name: name, Type: codegen.Real, Dims: dims}
}

// Parts inverts a copy of the conductance matrix and collects every piece
// of the solver. It fails if the matrix is singular.
func (e *Engine) Parts() (*Parts, error) {
	inv, err := e.conductance.Invert()
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", e.name, err)
	}

	n := e.size
	k := e.componentSlots()
	p := &Parts{
		TemplateParams: e.templateParams(),
		Pragmas:        e.pragmas(),
	}

	// signature: solution, signal outputs, signal inputs, debug outputs
	p.Params = append(p.Params, codegen.Param{Decl: array(codegen.SolutionOutput, n), Dir: codegen.Out})
	for _, f := range e.fragments {
		if e.opts.SignalOutputs {
			for _, d := range f.Outputs {
				p.Params = append(p.Params, codegen.Param{Decl: d, Dir: codegen.Out})
			}
		}
	}
	for _, f := range e.fragments {
		for _, d := range f.Inputs {
			p.Params = append(p.Params, codegen.Param{Decl: d, Dir: codegen.In})
		}
	}
	if e.opts.RawSourceVectorOutput {
		p.Params = append(p.Params, codegen.Param{Decl: array(codegen.SourceOutput, n), Dir: codegen.Out})
	}
	if e.opts.ComponentSourceOutput {
		p.Params = append(p.Params, codegen.Param{Decl: array(codegen.ComponentOutput, k), Dir: codegen.Out})
	}

	for _, f := range e.fragments {
		p.Parameters = append(p.Parameters, f.Parameters...)
		p.Fields = append(p.Fields, f.Fields...)

		if len(f.Update) > 0 {
			p.Update = append(p.Update, codegen.Comment(f.Owner))
			p.Update = append(p.Update, f.Update...)
		}
		if e.opts.SignalOutputs {
			p.OutputsUpdate = append(p.OutputsUpdate, f.OutputsUpdate...)
		}
	}

	x := array(codegen.SolutionVector, n)
	x.Qualifier, x.Init = codegen.Static, make([]float64, n)
	b := array(codegen.SourceVector, n)
	bc := array(codegen.ComponentSources, k)
	bc.Qualifier, bc.Init = codegen.Static, make([]float64, k)
	p.Storage = []codegen.Decl{x, b, bc}

	scale := e.opts.divisor()
	ainv := array(codegen.InverseMatrix, n, n)
	ainv.Qualifier, ainv.Init = codegen.StaticConst, make([]float64, 0, n*n)
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			ainv.Init = append(ainv.Init, inv.At(i, j)*scale)
		}
	}
	p.Inverse = ainv

	p.Aggregation = e.sources.Aggregation()

	var terms, pruned int
	p.Solve, terms, pruned = e.solve(inv)

	p.Outputs = copyArray(codegen.SolutionOutput, codegen.SolutionVector, n)
	if e.opts.RawSourceVectorOutput {
		p.Outputs = append(p.Outputs, copyArray(codegen.SourceOutput, codegen.SourceVector, n)...)
	}
	if e.opts.ComponentSourceOutput {
		p.Outputs = append(p.Outputs, copyArray(codegen.ComponentOutput, codegen.ComponentSources, k)...)
	}

	e.stats.Unknowns = n
	e.stats.Sources = e.sources.NumSources()
	e.stats.Components = len(e.components)
	e.stats.SolveTerms = terms
	e.stats.PrunedTerms = pruned

	e.log.Debug("solver assembled",
		"model", e.name,
		"unknowns", n,
		"sources", e.stats.Sources,
		"solve_terms", terms,
		"pruned_terms", pruned)
	return p, nil
}

func copyArray(dst, src string, n int) []codegen.Stmt {
	stmts := make([]codegen.Stmt, n)
	for i := range stmts {
		stmts[i] = codegen.Set(codegen.At(codegen.Var("", dst), i), codegen.At(codegen.Var("", src), i))
	}
	return stmts
}
