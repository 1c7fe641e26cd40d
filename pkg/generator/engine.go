// Package generator drives the components of one model through assembly and
// emits the LB-LMC solver function for it.
package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edp1096/lblmc/internal/consts"
	"github.com/edp1096/lblmc/pkg/codegen"
	"github.com/edp1096/lblmc/pkg/component"
	"github.com/edp1096/lblmc/pkg/matrix"
	"github.com/edp1096/lblmc/pkg/source"
)

var ErrUsage = errors.New("invalid generator usage")

// Stats describes the last emitted solver.
type Stats struct {
	Unknowns    int
	Sources     int
	Components  int
	SolveTerms  int
	PrunedTerms int
	Duration    time.Duration
}

type Engine struct {
	name string
	size int
	opts Options
	log  *slog.Logger

	conductance *matrix.Conductance
	sources     *source.IndexVector
	components  []component.Component
	fragments   []codegen.Fragment

	layout Layout
	stats  Stats
}

// New creates an engine for a model with numSolutions unknowns (nodes plus
// ideal voltage source slots).
func New(name string, numSolutions int, opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	e := &Engine{opts: opts, log: opts.logger(), layout: Monolithic}
	if err := e.Reset(name, numSolutions); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset discards everything stamped so far and starts a new model.
func (e *Engine) Reset(name string, numSolutions int) error {
	if name == "" {
		return fmt.Errorf("%w: empty model name", ErrUsage)
	}
	if numSolutions < 1 {
		return fmt.Errorf("%w: model %s has %d unknowns", ErrUsage, name, numSolutions)
	}

	g, err := matrix.NewConductance(numSolutions)
	if err != nil {
		return err
	}
	s, err := source.New(numSolutions)
	if err != nil {
		return err
	}

	e.name = name
	e.size = numSolutions
	e.conductance = g
	e.sources = s
	e.components = nil
	e.fragments = nil
	e.stats = Stats{}
	return nil
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) NumSolutions() int { return e.size }

func (e *Engine) Options() Options { return e.opts }

func (e *Engine) Logger() *slog.Logger { return e.log }

// Conductance is the assembled matrix. Callers may stamp into it directly
// before emission.
func (e *Engine) Conductance() *matrix.Conductance { return e.conductance }

func (e *Engine) Sources() *source.IndexVector { return e.sources }

func (e *Engine) Components() []component.Component { return e.components }

func (e *Engine) Fragments() []codegen.Fragment { return e.fragments }

func (e *Engine) Stats() Stats { return e.stats }

// SetLayout replaces the emission order used by Program.
func (e *Engine) SetLayout(l Layout) { e.layout = l }

// StampSystem stamps c's conductance and sources and collects its code.
func (e *Engine) StampSystem(c component.Component) error {
	if err := c.StampConductance(e.conductance); err != nil {
		return fmt.Errorf("%s %s: stamping conductance: %w", c.Type(), c.Label(), err)
	}
	if err := c.StampSources(e.sources); err != nil {
		return fmt.Errorf("%s %s: stamping sources: %w", c.Type(), c.Label(), err)
	}

	e.components = append(e.components, c)
	e.fragments = append(e.fragments, codegen.Fragment{
		Owner:         c.Label(),
		Parameters:    c.Parameters(),
		Fields:        c.Fields(),
		Inputs:        c.Inputs(),
		Outputs:       c.Outputs(),
		OutputsUpdate: c.OutputsUpdate(),
		Update:        c.Update(),
	})

	e.log.Debug("component stamped",
		"model", e.name,
		"type", c.Type(),
		"label", c.Label(),
		"terminals", c.Terminals(),
		"sources", e.sources.NumSources())
	return nil
}

// Program inverts a copy of the conductance matrix and builds the solver
// function in the current layout.
func (e *Engine) Program() (*codegen.Function, error) {
	start := time.Now()

	parts, err := e.Parts()
	if err != nil {
		return nil, err
	}
	fn := e.layout(e.name, parts)

	e.stats.Duration = time.Since(start)
	return fn, nil
}

// InlineCode is the solver body without a signature.
func (e *Engine) InlineCode() (string, error) {
	fn, err := e.Program()
	if err != nil {
		return "", err
	}
	return codegen.NewRenderer().Body(fn, 0), nil
}

// Function is the complete solver function definition.
func (e *Engine) Function() (string, error) {
	fn, err := e.Program()
	if err != nil {
		return "", err
	}
	return codegen.NewRenderer().Function(fn), nil
}

// Header is the content of the exported file: the real type alias and the
// solver function.
func (e *Engine) Header() (string, error) {
	fn, err := e.Function()
	if err != nil {
		return "", err
	}

	guard := headerGuard(e.name)

	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s: LB-LMC solver, %d unknowns, %d source slots\n", e.name, e.size, e.sources.NumSources())
	fmt.Fprintf(&sb, "#ifndef %s\n#define %s\n\n", guard, guard)
	sb.WriteString("#include <cmath>\n")
	if e.opts.FixedPoint {
		sb.WriteString("#include \"ap_fixed.h\"\n")
	}
	sb.WriteByte('\n')
	if !e.opts.TemplateRealType {
		sb.WriteString(e.RealType())
		sb.WriteString("\n\n")
	}
	sb.WriteString(fn)
	fmt.Fprintf(&sb, "\n#endif // %s\n", guard)
	return sb.String(), nil
}

// RealType is the typedef of the real type.
func (e *Engine) RealType() string {
	if e.opts.FixedPoint {
		return fmt.Sprintf("typedef ap_fixed<%d,%d> real;", e.opts.WordWidth, e.opts.IntWidth)
	}
	return "typedef double real;"
}

func headerGuard(name string) string {
	guard := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
	return "LBLMC_" + guard + "_HPP"
}

// Export writes <dir>/<name>.hpp, replacing any existing file. Nothing is
// written unless the whole file was generated.
func (e *Engine) Export(dir string) (string, error) {
	content, err := e.Header()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, e.name+consts.HeaderExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("exporting %s: %w", e.name, err)
	}

	e.log.Info("solver exported",
		"model", e.name,
		"path", path,
		"unknowns", e.stats.Unknowns,
		"solve_terms", e.stats.SolveTerms,
		"pruned_terms", e.stats.PrunedTerms)
	return path, nil
}

// componentSlots is the length of b_components; C arrays cannot be empty.
func (e *Engine) componentSlots() int {
	return max(1, e.sources.NumSources())
}

// solve emits x[i] = sum of Ainv[i][j]*b[j] over the entries with
// |Ainv[i][j]| > ZeroBound.
func (e *Engine) solve(inv *matrix.Conductance) (stmts []codegen.Stmt, terms, pruned int) {
	ainv := codegen.Var("", codegen.InverseMatrix)
	b := codegen.Var("", codegen.SourceVector)
	x := codegen.Var("", codegen.SolutionVector)
	scale := 1 / e.opts.divisor()

	for i := 0; i < e.size; i++ {
		var row []codegen.Expr
		for j := 0; j < e.size; j++ {
			if math.Abs(inv.At(i+1, j+1)) > e.opts.ZeroBound {
				row = append(row, codegen.Mul(codegen.At(ainv, i, j), codegen.At(b, j)))
			}
		}
		terms += len(row)
		pruned += e.size - len(row)

		sum := codegen.Sum(row...)
		if scale != 1 && len(row) > 0 {
			sum = codegen.Mul(sum, codegen.L(scale))
		}
		stmts = append(stmts, codegen.Set(codegen.At(x, i), sum))
	}
	return stmts, terms, pruned
}
