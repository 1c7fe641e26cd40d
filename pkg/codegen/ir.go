// Package codegen holds the intermediate representation of an emitted
// solver function: declarations, statements and expressions tagged with
// the component that owns them. Text is produced only by the Renderer, which
// appends the owner label to every component identifier.
package codegen

// Function-scope names shared by every generated solver.
const (
	SolutionVector   = "x"
	SourceVector     = "b"
	ComponentSources = "b_components"
	InverseMatrix    = "Ainv"
	SolutionOutput   = "x_out"
	SourceOutput     = "b_out"
	ComponentOutput  = "b_components_out"
	PortInput        = "port_in"
	PortOutput       = "port_out"
)

type Type string

const (
	Real Type = "real"
	Int  Type = "int"
	Bool Type = "bool"
)

type Qualifier int

const (
	Plain Qualifier = iota
	Static
	StaticConst
	Const
)

func (q Qualifier) String() string {
	switch q {
	case Static:
		return "static"
	case StaticConst:
		return "static const"
	case Const:
		return "const"
	default:
		return ""
	}
}

// Expr is one of Lit, Ref, Index, Unary, Binary, Call, Select.
type Expr interface{ expr() }

// Lit is a floating point literal.
type Lit float64

// Ref names a variable. An empty Owner is a function-scope global.
type Ref struct {
	Owner string
	Name  string
}

// Index is an element of an array variable.
type Index struct {
	Array Ref
	At    []int
}

type Unary struct {
	Op string
	X  Expr
}

type Binary struct {
	Op   string
	L, R Expr
}

type Call struct {
	Func string
	Args []Expr
}

// Select is the conditional expression Cond ? Then : Else.
type Select struct {
	Cond, Then, Else Expr
}

func (Lit) expr()    {}
func (Ref) expr()    {}
func (Index) expr()  {}
func (Unary) expr()  {}
func (Binary) expr() {}
func (Call) expr()   {}
func (Select) expr() {}

// Stmt is one of Assign, Comment, If.
type Stmt interface{ stmt() }

type Assign struct {
	Target Expr
	Value  Expr
}

type Comment string

type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (Assign) stmt()  {}
func (Comment) stmt() {}
func (If) stmt()      {}

// Decl declares a scalar (no Dims) or an array. Init is flattened row-major;
// a nil Init leaves the variable uninitialized.
type Decl struct {
	Owner     string
	Name      string
	Type      Type
	Qualifier Qualifier
	Dims      []int
	Init      []float64
}

func (d Decl) Ref() Ref { return Ref{Owner: d.Owner, Name: d.Name} }

func (d Decl) Len() int {
	n := 1
	for _, dim := range d.Dims {
		n *= dim
	}
	return n
}

type Direction int

const (
	In Direction = iota
	Out
)

// Param is a function parameter. Scalar outputs are passed by reference.
type Param struct {
	Decl
	Dir Direction
}

// Section is a titled group of declarations followed by statements.
type Section struct {
	Title string
	Decls []Decl
	Stmts []Stmt
}

type Function struct {
	Name           string
	TemplateParams []string
	Params         []Param
	Pragmas        []string
	Sections       []Section
}

// Fragment is everything one component contributes to a generated function.
type Fragment struct {
	Owner         string
	Parameters    []Decl
	Fields        []Decl
	Inputs        []Decl
	Outputs       []Decl
	OutputsUpdate []Stmt
	Update        []Stmt
}

func L(v float64) Expr { return Lit(v) }

func Var(owner, name string) Ref { return Ref{Owner: owner, Name: name} }

func At(array Ref, at ...int) Index { return Index{Array: array, At: at} }

func Neg(x Expr) Expr { return Unary{Op: "-", X: x} }

func Add(l, r Expr) Expr { return Binary{Op: "+", L: l, R: r} }

func Sub(l, r Expr) Expr { return Binary{Op: "-", L: l, R: r} }

func Mul(l, r Expr) Expr { return Binary{Op: "*", L: l, R: r} }

func Div(l, r Expr) Expr { return Binary{Op: "/", L: l, R: r} }

func Gt(l, r Expr) Expr { return Binary{Op: ">", L: l, R: r} }

func Set(target, value Expr) Stmt { return Assign{Target: target, Value: value} }

// Sum folds terms with +, returning 0.0 for an empty list.
func Sum(terms ...Expr) Expr {
	if len(terms) == 0 {
		return Lit(0)
	}
	out := terms[0]
	for _, t := range terms[1:] {
		out = Add(out, t)
	}
	return out
}

// Solution is x[node-1], or 0.0 for the ground node.
func Solution(node int) Expr {
	if node <= 0 {
		return Lit(0)
	}
	return At(Var("", SolutionVector), node-1)
}

// SourceSlot is b_components[id-1] for a registered source slot id.
func SourceSlot(id int) Index {
	return At(Var("", ComponentSources), id-1)
}
