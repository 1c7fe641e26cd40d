package codegen

import (
	"errors"
	"fmt"
	"math"
)

var ErrUndefined = errors.New("undefined variable")

type array struct {
	dims []int
	data []float64
}

// Env holds variable values for evaluating IR, keyed by mangled name.
type Env struct {
	names   *Renderer
	scalars map[string]float64
	arrays  map[string]*array
}

func NewEnv() *Env {
	return &Env{
		names:   NewRenderer(),
		scalars: make(map[string]float64),
		arrays:  make(map[string]*array),
	}
}

// Declare allocates d and applies its initializer. Re-declaring a Static
// variable keeps its current value.
func (env *Env) Declare(d Decl) {
	name := env.names.Name(d.Ref())
	static := d.Qualifier == Static

	if len(d.Dims) == 0 {
		if _, ok := env.scalars[name]; ok && static {
			return
		}
		v := 0.0
		if len(d.Init) > 0 {
			v = d.Init[0]
		}
		env.scalars[name] = v
		return
	}

	if _, ok := env.arrays[name]; ok && static {
		return
	}
	a := &array{dims: append([]int(nil), d.Dims...), data: make([]float64, d.Len())}
	copy(a.data, d.Init)
	env.arrays[name] = a
}

func (env *Env) Set(ref Ref, v float64) {
	env.scalars[env.names.Name(ref)] = v
}

func (env *Env) Get(ref Ref) (float64, bool) {
	v, ok := env.scalars[env.names.Name(ref)]
	return v, ok
}

// SetArray replaces the data of a declared array, or declares a 1-D one.
func (env *Env) SetArray(ref Ref, values []float64) {
	name := env.names.Name(ref)
	if a, ok := env.arrays[name]; ok && len(a.data) == len(values) {
		copy(a.data, values)
		return
	}
	env.arrays[name] = &array{dims: []int{len(values)}, data: append([]float64(nil), values...)}
}

func (env *Env) Array(ref Ref) ([]float64, bool) {
	a, ok := env.arrays[env.names.Name(ref)]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), a.data...), true
}

func (env *Env) offset(ix Index) (*array, int, error) {
	name := env.names.Name(ix.Array)
	a, ok := env.arrays[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	if len(ix.At) != len(a.dims) {
		return nil, 0, fmt.Errorf("%s: %d indices for %d dimensions", name, len(ix.At), len(a.dims))
	}
	off := 0
	for k, i := range ix.At {
		if i < 0 || i >= a.dims[k] {
			return nil, 0, fmt.Errorf("%s: index %d out of bounds [0,%d)", name, i, a.dims[k])
		}
		off = off*a.dims[k] + i
	}
	return a, off, nil
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var functions = map[string]func(args []float64) (float64, error){
	"sin":  unary(math.Sin),
	"cos":  unary(math.Cos),
	"exp":  unary(math.Exp),
	"sqrt": unary(math.Sqrt),
	"fabs": unary(math.Abs),
	"pow": func(a []float64) (float64, error) {
		if len(a) != 2 {
			return 0, fmt.Errorf("pow takes 2 arguments, got %d", len(a))
		}
		return math.Pow(a[0], a[1]), nil
	},
}

func unary(f func(float64) float64) func([]float64) (float64, error) {
	return func(a []float64) (float64, error) {
		if len(a) != 1 {
			return 0, fmt.Errorf("expected 1 argument, got %d", len(a))
		}
		return f(a[0]), nil
	}
}

func (env *Env) Eval(e Expr) (float64, error) {
	switch v := e.(type) {
	case Lit:
		return float64(v), nil
	case Ref:
		name := env.names.Name(v)
		x, ok := env.scalars[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUndefined, name)
		}
		return x, nil
	case Index:
		a, off, err := env.offset(v)
		if err != nil {
			return 0, err
		}
		return a.data[off], nil
	case Unary:
		x, err := env.Eval(v.X)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case "-":
			return -x, nil
		case "!":
			return truth(x == 0), nil
		}
		return 0, fmt.Errorf("unknown unary operator %q", v.Op)
	case Binary:
		l, err := env.Eval(v.L)
		if err != nil {
			return 0, err
		}
		r, err := env.Eval(v.R)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/":
			return l / r, nil
		case "<":
			return truth(l < r), nil
		case "<=":
			return truth(l <= r), nil
		case ">":
			return truth(l > r), nil
		case ">=":
			return truth(l >= r), nil
		case "==":
			return truth(l == r), nil
		case "!=":
			return truth(l != r), nil
		case "&&":
			return truth(l != 0 && r != 0), nil
		case "||":
			return truth(l != 0 || r != 0), nil
		}
		return 0, fmt.Errorf("unknown binary operator %q", v.Op)
	case Call:
		fn, ok := functions[v.Func]
		if !ok {
			return 0, fmt.Errorf("unknown function %q", v.Func)
		}
		args := make([]float64, len(v.Args))
		for i, a := range v.Args {
			x, err := env.Eval(a)
			if err != nil {
				return 0, err
			}
			args[i] = x
		}
		return fn(args)
	case Select:
		c, err := env.Eval(v.Cond)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return env.Eval(v.Then)
		}
		return env.Eval(v.Else)
	}
	return 0, fmt.Errorf("cannot evaluate %T", e)
}

func (env *Env) Exec(stmts ...Stmt) error {
	for _, s := range stmts {
		switch v := s.(type) {
		case Assign:
			value, err := env.Eval(v.Value)
			if err != nil {
				return err
			}
			switch t := v.Target.(type) {
			case Ref:
				env.scalars[env.names.Name(t)] = value
			case Index:
				a, off, err := env.offset(t)
				if err != nil {
					return err
				}
				a.data[off] = value
			default:
				return fmt.Errorf("cannot assign to %T", v.Target)
			}
		case Comment:
		case If:
			c, err := env.Eval(v.Cond)
			if err != nil {
				return err
			}
			branch := v.Else
			if c != 0 {
				branch = v.Then
			}
			if err := env.Exec(branch...); err != nil {
				return err
			}
		default:
			return fmt.Errorf("cannot execute %T", s)
		}
	}
	return nil
}

// Interpreter steps a generated Function the way the compiled code would:
// static state survives between calls, everything else is re-initialized.
type Interpreter struct {
	fn  *Function
	env *Env
}

func NewInterpreter(fn *Function) *Interpreter {
	env := NewEnv()
	for _, p := range fn.Params {
		env.Declare(p.Decl)
	}
	return &Interpreter{fn: fn, env: env}
}

func (in *Interpreter) Env() *Env { return in.env }

func (in *Interpreter) Step() error {
	for _, sec := range in.fn.Sections {
		for _, d := range sec.Decls {
			in.env.Declare(d)
		}
		if err := in.env.Exec(sec.Stmts...); err != nil {
			return fmt.Errorf("%s: %w", sec.Title, err)
		}
	}
	return nil
}
