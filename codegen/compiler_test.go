package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldhatfield/imperare/ast"
	"github.com/oldhatfield/imperare/symtab"
	"github.com/oldhatfield/imperare/vm"
)

// runProgram compiles prog to a line-based instruction stream and executes
// it through the vm package, feeding input and capturing WRITE output.
func runProgram(t *testing.T, prog *ast.Program, input string) string {
	t.Helper()
	lines, _, err := Compile(prog, nil)
	require.NoError(t, err)

	instrs, err := vm.ParseProgram(lines)
	require.NoError(t, err)

	var out bytes.Buffer
	machine := vm.New(instrs, strings.NewReader(input), &out)
	err = machine.RunProgram()
	require.NoError(t, err)
	return out.String()
}

func name(id string) ast.Lvalue    { return ast.Name{Ident: id} }
func load(id string) ast.Expr      { return &ast.Load{Target: name(id)} }
func constant(v uint64) ast.Expr   { return &ast.Const{Value: v} }
func assign(id string, e ast.Expr) ast.Stmt {
	return &ast.AssignStmt{Target: name(id), Value: e}
}
func write(e ast.Expr) ast.Stmt { return &ast.WriteStmt{Value: e} }
func read(id string) ast.Stmt   { return &ast.ReadStmt{Target: name(id)} }

func scalarDecl(id string) ast.Decl { return ast.Decl{Name: id} }
func arrayDecl(id string, size uint64) ast.Decl {
	return ast.Decl{Name: id, IsArray: true, Size: size}
}

func program(decls []ast.Decl, body []ast.Stmt) *ast.Program {
	return &ast.Program{MainDecls: decls, MainBody: body}
}

func TestWriteLiteralConstant(t *testing.T) {
	prog := program(nil, []ast.Stmt{write(constant(42))})
	out := runProgram(t, prog, "")
	require.Equal(t, "42\n", out)
}

func TestAssignAndWriteScalar(t *testing.T) {
	prog := program([]ast.Decl{scalarDecl("x")}, []ast.Stmt{
		assign("x", constant(7)),
		write(load("x")),
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "7\n", out)
}

func TestReadThenWriteRoundTrip(t *testing.T) {
	prog := program([]ast.Decl{scalarDecl("x")}, []ast.Stmt{
		read("x"),
		write(load("x")),
	})
	out := runProgram(t, prog, "99")
	require.Equal(t, "99\n", out)
}

func TestArithmeticAddSubMulDivMod(t *testing.T) {
	cases := []struct {
		name string
		kind ast.BinOpKind
		l, r uint64
		want uint64
	}{
		{"add", ast.Add, 17, 25, 42},
		{"sub_saturating", ast.Sub, 3, 9, 0},
		{"sub_normal", ast.Sub, 9, 3, 6},
		{"mul", ast.Mul, 6, 7, 42},
		{"div", ast.Div, 42, 6, 7},
		{"div_uneven", ast.Div, 13, 3, 4},
		{"mod", ast.Mod, 13, 3, 1},
		{"div_by_zero", ast.Div, 5, 0, 0},
		{"mod_by_zero", ast.Mod, 5, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog := program([]ast.Decl{scalarDecl("x"), scalarDecl("y"), scalarDecl("z")}, []ast.Stmt{
				assign("x", constant(tc.l)),
				assign("y", constant(tc.r)),
				assign("z", &ast.BinOp{Kind: tc.kind, Left: load("x"), Right: load("y")}),
				write(load("z")),
			})
			out := runProgram(t, prog, "")
			require.Equal(t, fmt.Sprintf("%d\n", tc.want), out)
		})
	}
}

func TestIfTrueBranchExecutes(t *testing.T) {
	prog := program([]ast.Decl{scalarDecl("x")}, []ast.Stmt{
		assign("x", constant(5)),
		&ast.IfStmt{
			Cond: ast.Cond{Kind: ast.Gt, Left: load("x"), Right: constant(0)},
			Body: []ast.Stmt{write(constant(1))},
		},
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "1\n", out)
}

func TestIfFalseBranchSkipped(t *testing.T) {
	prog := program([]ast.Decl{scalarDecl("x")}, []ast.Stmt{
		assign("x", constant(0)),
		&ast.IfStmt{
			Cond: ast.Cond{Kind: ast.Gt, Left: load("x"), Right: constant(0)},
			Body: []ast.Stmt{write(constant(1))},
		},
		write(constant(2)),
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "2\n", out)
}

func TestIfElseTakesElseBranch(t *testing.T) {
	prog := program([]ast.Decl{scalarDecl("x")}, []ast.Stmt{
		assign("x", constant(0)),
		&ast.IfElseStmt{
			Cond: ast.Cond{Kind: ast.Gt, Left: load("x"), Right: constant(0)},
			Then: []ast.Stmt{write(constant(1))},
			Else: []ast.Stmt{write(constant(2))},
		},
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "2\n", out)
}

func TestWhileLoopCountsDown(t *testing.T) {
	prog := program([]ast.Decl{scalarDecl("x")}, []ast.Stmt{
		assign("x", constant(3)),
		&ast.WhileStmt{
			Cond: ast.Cond{Kind: ast.Gt, Left: load("x"), Right: constant(0)},
			Body: []ast.Stmt{
				write(load("x")),
				assign("x", &ast.BinOp{Kind: ast.Sub, Left: load("x"), Right: constant(1)}),
			},
		},
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "3\n2\n1\n", out)
}

func TestUntilLoopRunsBodyAtLeastOnce(t *testing.T) {
	prog := program([]ast.Decl{scalarDecl("x")}, []ast.Stmt{
		assign("x", constant(0)),
		&ast.UntilStmt{
			Body: []ast.Stmt{
				write(load("x")),
				assign("x", &ast.BinOp{Kind: ast.Add, Left: load("x"), Right: constant(1)}),
			},
			Cond: ast.Cond{Kind: ast.Ge, Left: load("x"), Right: constant(3)},
		},
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "0\n1\n2\n", out)
}

func TestArrayWriteAndReadBack(t *testing.T) {
	prog := program([]ast.Decl{arrayDecl("arr", 5)}, []ast.Stmt{
		&ast.AssignStmt{
			Target: &ast.ArrayAccess{Array: "arr", Index: constant(2)},
			Value:  constant(77),
		},
		write(&ast.Load{Target: &ast.ArrayAccess{Array: "arr", Index: constant(2)}}),
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "77\n", out)
}

func TestArrayVariableIndex(t *testing.T) {
	prog := program([]ast.Decl{arrayDecl("arr", 5), scalarDecl("i")}, []ast.Stmt{
		assign("i", constant(3)),
		&ast.AssignStmt{
			Target: &ast.ArrayAccess{Array: "arr", Index: load("i")},
			Value:  constant(9),
		},
		write(&ast.Load{Target: &ast.ArrayAccess{Array: "arr", Index: load("i")}}),
	})
	out := runProgram(t, prog, "")
	require.Equal(t, "9\n", out)
}

func TestProcedureCallByReferenceMutatesCallerScalar(t *testing.T) {
	prog := &ast.Program{
		Procedures: []ast.Procedure{{
			Name:   "bump",
			Params: []ast.Param{{Name: "n", Kind: ast.ScalarParam}},
			Body: []ast.Stmt{
				assign("n", &ast.BinOp{Kind: ast.Add, Left: load("n"), Right: constant(1)}),
			},
		}},
		MainDecls: []ast.Decl{scalarDecl("x")},
		MainBody: []ast.Stmt{
			assign("x", constant(41)),
			&ast.ProcCallStmt{Name: "bump", Args: []string{"x"}},
			write(load("x")),
		},
	}
	out := runProgram(t, prog, "")
	require.Equal(t, "42\n", out)
}

func TestConstantFoldingAcrossLiteralRange(t *testing.T) {
	for l := uint64(0); l <= 20; l += 5 {
		for r := uint64(0); r <= 20; r += 7 {
			prog := program([]ast.Decl{scalarDecl("z")}, []ast.Stmt{
				assign("z", &ast.BinOp{Kind: ast.Add, Left: constant(l), Right: constant(r)}),
				write(load("z")),
			})
			out := runProgram(t, prog, "")
			require.Equal(t, fmt.Sprintf("%d\n", l+r), out)
		}
	}
}

func TestAssignToArrayWithoutIndexRejected(t *testing.T) {
	prog := program([]ast.Decl{arrayDecl("arr", 3)}, []ast.Stmt{
		assign("arr", constant(1)),
	})
	_, _, err := Compile(prog, nil)
	require.Error(t, err)
	_, ok := err.(*AssignToArrayWithoutIndexError)
	require.True(t, ok)
}

func TestZeroSizedArrayDeclarationRejected(t *testing.T) {
	prog := program([]ast.Decl{arrayDecl("arr", 0)}, []ast.Stmt{
		write(constant(0)),
	})
	_, _, err := Compile(prog, nil)
	require.Error(t, err)
	_, ok := err.(*symtab.ZeroSizedArrayError)
	require.True(t, ok)
}
