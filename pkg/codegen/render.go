package codegen

import (
	"fmt"
	"strings"

	"github.com/edp1096/lblmc/pkg/util"
)

// Renderer turns the IR into C++ source text.
type Renderer struct {
	Indent  string
	Literal func(float64) string
}

func NewRenderer() *Renderer {
	return &Renderer{Indent: "\t", Literal: util.FormatLiteral}
}

// Name mangles a component identifier by appending its owner label.
func (r *Renderer) Name(ref Ref) string {
	if ref.Owner == "" {
		return ref.Name
	}
	return ref.Name + "_" + ref.Owner
}

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6,
}

func (r *Renderer) Expr(e Expr) string {
	switch v := e.(type) {
	case Lit:
		return r.Literal(float64(v))
	case Ref:
		return r.Name(v)
	case Index:
		var sb strings.Builder
		sb.WriteString(r.Name(v.Array))
		for _, i := range v.At {
			fmt.Fprintf(&sb, "[%d]", i)
		}
		return sb.String()
	case Unary:
		inner := r.Expr(v.X)
		switch v.X.(type) {
		case Binary, Select:
			inner = "(" + inner + ")"
		default:
			if strings.HasPrefix(inner, "-") {
				inner = "(" + inner + ")"
			}
		}
		return v.Op + inner
	case Binary:
		p := precedence[v.Op]
		l := r.operand(v.L, p, false)
		rr := r.operand(v.R, p, v.Op == "-" || v.Op == "/" || p <= 4)
		return l + " " + v.Op + " " + rr
	case Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = r.Expr(a)
		}
		return v.Func + "(" + strings.Join(args, ", ") + ")"
	case Select:
		return "(" + r.Expr(v.Cond) + " ? " + r.Expr(v.Then) + " : " + r.Expr(v.Else) + ")"
	case nil:
		return "0.0"
	default:
		panic(fmt.Sprintf("codegen: unknown expression %T", e))
	}
}

// operand parenthesizes a binary child that binds looser than its parent, or
// equally tight on the right of a non-associative operator.
func (r *Renderer) operand(e Expr, parent int, strictRight bool) string {
	s := r.Expr(e)
	if b, ok := e.(Binary); ok {
		p := precedence[b.Op]
		if p < parent || (strictRight && p == parent) {
			return "(" + s + ")"
		}
	}
	return s
}

func (r *Renderer) writeStmts(sb *strings.Builder, stmts []Stmt, depth int) {
	for _, s := range stmts {
		r.writeStmt(sb, s, depth)
	}
}

func (r *Renderer) writeStmt(sb *strings.Builder, s Stmt, depth int) {
	indent := strings.Repeat(r.Indent, depth)
	switch v := s.(type) {
	case Assign:
		fmt.Fprintf(sb, "%s%s = %s;\n", indent, r.Expr(v.Target), r.Expr(v.Value))
	case Comment:
		fmt.Fprintf(sb, "%s// %s\n", indent, string(v))
	case If:
		fmt.Fprintf(sb, "%sif (%s) {\n", indent, r.Expr(v.Cond))
		r.writeStmts(sb, v.Then, depth+1)
		if len(v.Else) > 0 {
			fmt.Fprintf(sb, "%s} else {\n", indent)
			r.writeStmts(sb, v.Else, depth+1)
		}
		fmt.Fprintf(sb, "%s}\n", indent)
	default:
		panic(fmt.Sprintf("codegen: unknown statement %T", s))
	}
}

// Stmts renders statements at the given indentation depth.
func (r *Renderer) Stmts(stmts []Stmt, depth int) string {
	var sb strings.Builder
	r.writeStmts(&sb, stmts, depth)
	return sb.String()
}

func (r *Renderer) declarator(d Decl) string {
	var sb strings.Builder
	sb.WriteString(r.Name(d.Ref()))
	for _, dim := range d.Dims {
		fmt.Fprintf(&sb, "[%d]", dim)
	}
	return sb.String()
}

func (r *Renderer) initializer(dims []int, init []float64) string {
	if len(dims) == 0 {
		return r.Literal(init[0])
	}
	if len(dims) == 1 {
		items := make([]string, dims[0])
		for i := range items {
			items[i] = r.Literal(init[i])
		}
		return "{ " + strings.Join(items, ", ") + " }"
	}

	stride := len(init) / dims[0]
	rows := make([]string, dims[0])
	for i := range rows {
		rows[i] = r.initializer(dims[1:], init[i*stride:(i+1)*stride])
	}
	return "{\n" + r.Indent + strings.Join(rows, ",\n"+r.Indent) + "\n}"
}

// Decl renders a declaration statement without indentation.
func (r *Renderer) Decl(d Decl) string {
	var sb strings.Builder
	if q := d.Qualifier.String(); q != "" {
		sb.WriteString(q)
		sb.WriteByte(' ')
	}
	sb.WriteString(string(d.Type))
	sb.WriteByte(' ')
	sb.WriteString(r.declarator(d))
	if d.Init != nil {
		init := d.Init
		if len(init) < d.Len() {
			init = make([]float64, d.Len())
			copy(init, d.Init)
		}
		sb.WriteString(" = ")
		sb.WriteString(r.initializer(d.Dims, init))
	}
	sb.WriteByte(';')
	return sb.String()
}

func (r *Renderer) Param(p Param) string {
	switch {
	case len(p.Dims) > 0 && p.Dir == In:
		return "const " + string(p.Type) + " " + r.declarator(p.Decl)
	case len(p.Dims) > 0:
		return string(p.Type) + " " + r.declarator(p.Decl)
	case p.Dir == Out:
		return string(p.Type) + " &" + r.Name(p.Ref())
	default:
		return string(p.Type) + " " + r.Name(p.Ref())
	}
}

// Body renders the pragmas and sections of f without the signature.
func (r *Renderer) Body(f *Function, depth int) string {
	var sb strings.Builder
	indent := strings.Repeat(r.Indent, depth)
	for _, p := range f.Pragmas {
		fmt.Fprintf(&sb, "%s%s\n", indent, p)
	}
	for _, sec := range f.Sections {
		if len(sec.Decls) == 0 && len(sec.Stmts) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		if sec.Title != "" {
			fmt.Fprintf(&sb, "%s// %s\n", indent, sec.Title)
		}
		for _, d := range sec.Decls {
			fmt.Fprintf(&sb, "%s%s\n", indent, strings.ReplaceAll(r.Decl(d), "\n", "\n"+indent))
		}
		r.writeStmts(&sb, sec.Stmts, depth)
	}
	return sb.String()
}

func (r *Renderer) Signature(f *Function) string {
	var sb strings.Builder
	if len(f.TemplateParams) > 0 {
		fmt.Fprintf(&sb, "template<%s>\n", strings.Join(f.TemplateParams, ", "))
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = r.Param(p)
	}
	if len(params) == 0 {
		fmt.Fprintf(&sb, "void %s()", f.Name)
		return sb.String()
	}
	fmt.Fprintf(&sb, "void %s(\n%s%s\n)", f.Name, r.Indent, strings.Join(params, ",\n"+r.Indent))
	return sb.String()
}

func (r *Renderer) Function(f *Function) string {
	return r.Signature(f) + "\n{\n" + r.Body(f, 1) + "}\n"
}
