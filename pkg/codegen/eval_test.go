package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	env := NewEnv()
	env.Set(Var("r1", "G"), 0.5)
	env.SetArray(Var("", "x"), []float64{2, 4})

	tests := []struct {
		name string
		expr Expr
		want float64
	}{
		{"scaled node", Mul(Var("r1", "G"), Solution(2)), 2},
		{"difference", Sub(Solution(1), Solution(2)), -2},
		{"ground", Solution(0), 0},
		{"divide", Div(Solution(2), Solution(1)), 2},
		{"negate", Neg(Solution(1)), -2},
		{"not", Unary{Op: "!", X: L(0)}, 1},
		{"compare", Gt(Solution(2), Solution(1)), 1},
		{"and", Binary{Op: "&&", L: L(1), R: L(0)}, 0},
		{"select", Select{Cond: L(0), Then: L(1), Else: L(7)}, 7},
		{"call", Call{Func: "pow", Args: []Expr{L(2), L(3)}}, 8},
		{"abs", Call{Func: "fabs", Args: []Expr{L(-3)}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Eval(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	env := NewEnv()
	env.SetArray(Var("", "x"), []float64{1})

	_, err := env.Eval(Var("c1", "v"))
	assert.ErrorIs(t, err, ErrUndefined)
	_, err = env.Eval(At(Var("", "b"), 0))
	assert.ErrorIs(t, err, ErrUndefined)

	_, err = env.Eval(At(Var("", "x"), 1))
	assert.Error(t, err)
	_, err = env.Eval(At(Var("", "x"), 0, 0))
	assert.Error(t, err)
	_, err = env.Eval(Call{Func: "tanh", Args: []Expr{L(1)}})
	assert.Error(t, err)
	_, err = env.Eval(Call{Func: "sqrt"})
	assert.Error(t, err)
	_, err = env.Eval(Binary{Op: "%", L: L(1), R: L(1)})
	assert.Error(t, err)

	assert.Error(t, env.Exec(Set(L(1), L(2))))
}

func TestExec(t *testing.T) {
	env := NewEnv()
	env.Declare(Decl{Owner: "s1", Name: "on", Type: Bool})
	env.Declare(Decl{Owner: "s1", Name: "g", Type: Real, Qualifier: Static, Init: []float64{0}})
	env.Set(Var("s1", "on"), 1)

	toggle := []Stmt{
		Comment("pick the conductance"),
		If{
			Cond: Var("s1", "on"),
			Then: []Stmt{Set(Var("s1", "g"), L(10))},
			Else: []Stmt{Set(Var("s1", "g"), L(0.1))},
		},
	}
	require.NoError(t, env.Exec(toggle...))
	g, ok := env.Get(Var("s1", "g"))
	require.True(t, ok)
	assert.Equal(t, 10.0, g)

	env.Set(Var("s1", "on"), 0)
	require.NoError(t, env.Exec(toggle...))
	g, _ = env.Get(Var("s1", "g"))
	assert.Equal(t, 0.1, g)
}

func TestDeclareStatic(t *testing.T) {
	env := NewEnv()
	state := Decl{Owner: "c1", Name: "ihist", Type: Real, Qualifier: Static, Init: []float64{0}}
	temp := Decl{Owner: "c1", Name: "v", Type: Real, Init: []float64{0}}
	hist := Decl{Name: "x", Type: Real, Qualifier: Static, Dims: []int{2}, Init: []float64{}}

	env.Declare(state)
	env.Declare(temp)
	env.Declare(hist)
	require.NoError(t, env.Exec(
		Set(state.Ref(), L(3)),
		Set(temp.Ref(), L(4)),
		Set(At(hist.Ref(), 1), L(5)),
	))

	env.Declare(state)
	env.Declare(temp)
	env.Declare(hist)
	v, _ := env.Get(state.Ref())
	assert.Equal(t, 3.0, v)
	v, _ = env.Get(temp.Ref())
	assert.Zero(t, v)
	x, _ := env.Array(hist.Ref())
	assert.Equal(t, []float64{0, 5}, x)
}

func TestInterpreter(t *testing.T) {
	// an accumulator: acc += in every step, out = acc
	acc := Decl{Name: "acc", Type: Real, Qualifier: Static, Init: []float64{0}}
	fn := &Function{
		Name: "accumulate",
		Params: []Param{
			{Decl: Decl{Name: "in", Type: Real}, Dir: In},
			{Decl: Decl{Name: "out", Type: Real, Dims: []int{1}}, Dir: Out},
		},
		Sections: []Section{
			{Title: "State", Decls: []Decl{acc}},
			{Title: "Update", Stmts: []Stmt{
				Set(acc.Ref(), Add(acc.Ref(), Var("", "in"))),
				Set(At(Var("", "out"), 0), acc.Ref()),
			}},
		},
	}

	in := NewInterpreter(fn)
	in.Env().Set(Var("", "in"), 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, in.Step())
	}
	out, ok := in.Env().Array(Var("", "out"))
	require.True(t, ok)
	assert.Equal(t, []float64{6}, out)

	broken := &Function{Name: "broken", Sections: []Section{{Title: "Bad", Stmts: []Stmt{Set(Var("", "y"), Var("", "z"))}}}}
	err := NewInterpreter(broken).Step()
	assert.ErrorIs(t, err, ErrUndefined)
	assert.Contains(t, err.Error(), "Bad")
}
