// Package ast holds the tagged tree the parser produces and the code
// generator consumes. Every node kind the language grammar can produce is
// represented as its own Go type implementing a narrow marker interface,
// rather than as a single tuple discriminated by a string tag.
package ast

// BinOpKind is one of the five arithmetic operators the language supports.
type BinOpKind int

const (
	Add BinOpKind = iota
	Sub
	Mul
	Div
	Mod
)

func (k BinOpKind) String() string {
	switch k {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	default:
		return "?"
	}
}

// RelKind is one of the six relational operators a condition may use.
type RelKind int

const (
	Eq RelKind = iota
	Ne
	Lt
	Gt
	Le
	Ge
)

func (k RelKind) String() string {
	switch k {
	case Eq:
		return "="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	default:
		return "?"
	}
}

// Lvalue is anything an assignment, read, or procedure argument can name:
// a bare scalar or an indexed array element.
type Lvalue interface {
	lvalue()
}

// Name is a bare identifier: a scalar variable or a procedure's by-reference
// parameter.
type Name struct {
	Ident string
	Line  int
}

func (Name) lvalue() {}

// ArrayAccess is an indexed array element. Index is either a *Const (a
// literal subscript, checkable at compile time) or a *Load wrapping a Name
// (a variable subscript, resolved at runtime).
type ArrayAccess struct {
	Array string
	Index Expr
	Line  int
}

func (ArrayAccess) lvalue() {}

// Undeclared wraps an identifier the parser could not resolve against any
// declaration in scope. It exists purely so parsing can continue far enough
// to produce a line number for the eventual UndeclaredName diagnostic.
type Undeclared struct {
	Ident string
	Line  int
}

func (Undeclared) lvalue() {}

// Expr is any value-producing node: a literal, a load of an lvalue, or a
// binary arithmetic operation.
type Expr interface {
	expr()
}

// Const is an integer literal.
type Const struct {
	Value uint64
	Line  int
}

func (Const) expr() {}

// Load reads the current value of an lvalue.
type Load struct {
	Target Lvalue
	Line   int
}

func (Load) expr() {}

// BinOp is a binary arithmetic expression.
type BinOp struct {
	Kind        BinOpKind
	Left, Right Expr
	Line        int
}

func (BinOp) expr() {}

// Cond is a relational expression, the sole form a condition may take.
type Cond struct {
	Kind        RelKind
	Left, Right Expr
	Line        int
}

// Stmt is any executable statement.
type Stmt interface {
	stmt()
}

// ReadStmt reads one value from input into an lvalue.
type ReadStmt struct {
	Target Lvalue
	Line   int
}

func (ReadStmt) stmt() {}

// WriteStmt writes the value of an expression to output.
type WriteStmt struct {
	Value Expr
	Line  int
}

func (WriteStmt) stmt() {}

// AssignStmt assigns the value of an expression to an lvalue.
type AssignStmt struct {
	Target Lvalue
	Value  Expr
	Line   int
}

func (AssignStmt) stmt() {}

// IfStmt is a conditional with no else branch.
type IfStmt struct {
	Cond Cond
	Body []Stmt
	Line int
}

func (IfStmt) stmt() {}

// IfElseStmt is a conditional with both branches.
type IfElseStmt struct {
	Cond     Cond
	Then     []Stmt
	Else     []Stmt
	Line     int
}

func (IfElseStmt) stmt() {}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	Cond Cond
	Body []Stmt
	Line int
}

func (WhileStmt) stmt() {}

// UntilStmt is a post-tested loop: the body always runs at least once, and
// the loop repeats while Cond is false.
type UntilStmt struct {
	Body []Stmt
	Cond Cond
	Line int
}

func (UntilStmt) stmt() {}

// ProcCallStmt invokes a previously declared procedure by name.
type ProcCallStmt struct {
	Name string
	Args []string
	Line int
}

func (ProcCallStmt) stmt() {}

// ParamKind distinguishes a procedure's formal parameters.
type ParamKind int

const (
	ScalarParam ParamKind = iota
	ArrayParam
)

// Param is one formal parameter in a procedure declaration.
type Param struct {
	Name string
	Kind ParamKind
}

// Decl is one declaration in a program or procedure's declaration block.
type Decl struct {
	Name string
	// IsArray distinguishes `name` (scalar) from `name[size]` (array):
	// Size alone cannot, since a size-0 array declaration is itself a
	// distinct, rejected shape (symtab.ZeroSizedArrayError) and
	// must not be silently treated as a scalar.
	IsArray bool
	Size    uint64
	Line    int
}

// Procedure is one PROCEDURE ... IS ... IN ... END block.
type Procedure struct {
	Name   string
	Params []Param
	Decls  []Decl
	Body   []Stmt
	Line   int
}

// Program is the whole compilation unit: procedures in declaration order,
// then the main program's own declarations and body.
type Program struct {
	Procedures []Procedure
	MainDecls  []Decl
	MainBody   []Stmt
}
