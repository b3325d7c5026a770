package lang

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oldhatfield/imperare/ast"
	"github.com/oldhatfield/imperare/codegen"
)

func stripLines(lines []codegen.LineToken) []codegen.LineToken {
	stripped := make([]codegen.LineToken, len(lines))
	for i, l := range lines {
		stripped[i] = codegen.LineToken{Token: l.Token}
	}
	return stripped
}

func TestParseAssignAndWrite(t *testing.T) {
	src := `
PROGRAM IS
    x
IN
    x := 40 + 2;
    WRITE x;
END
`
	prog, lines, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.MainDecls, 1)
	require.Equal(t, "x", prog.MainDecls[0].Name)
	require.Len(t, prog.MainBody, 2)

	assign, ok := prog.MainBody[0].(*ast.AssignStmt)
	require.True(t, ok)
	require.Equal(t, ast.Name{Ident: "x", Line: assign.Line}, assign.Target)
	bin, ok := assign.Value.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, ast.Add, bin.Kind)

	write, ok := prog.MainBody[1].(*ast.WriteStmt)
	require.True(t, ok)
	load, ok := write.Value.(*ast.Load)
	require.True(t, ok)
	require.Equal(t, ast.Name{Ident: "x", Line: load.Line}, load.Target)

	require.Equal(t, []codegen.LineToken{{Token: "ASSIGN"}, {Token: "WRITE"}}, stripLines(lines))
}

func TestParseArrayDeclarationAndIndexing(t *testing.T) {
	src := `
PROGRAM IS
    arr[10], i
IN
    i := 3;
    arr[i] := 7;
    WRITE arr[0];
END
`
	prog, _, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.MainDecls, 2)
	require.Equal(t, uint64(10), prog.MainDecls[0].Size)
	require.Equal(t, uint64(0), prog.MainDecls[1].Size)

	assign, ok := prog.MainBody[1].(*ast.AssignStmt)
	require.True(t, ok)
	access, ok := assign.Target.(*ast.ArrayAccess)
	require.True(t, ok)
	require.Equal(t, "arr", access.Array)
	_, ok = access.Index.(*ast.Load)
	require.True(t, ok)
}

func TestParseIfWhileRepeatProcedure(t *testing.T) {
	src := `
PROCEDURE bump(n) IS
IN
    n := n + 1;
END
PROGRAM IS
    x
IN
    x := 0;
    IF x = 0 THEN
        WRITE 1;
    ELSE
        WRITE 2;
    ENDIF
    WHILE x < 3 DO
        x := x + 1;
    ENDWHILE
    REPEAT
        x := x - 1;
    UNTIL x = 0;
    bump(x);
END
`
	prog, lines, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Procedures, 1)
	require.Equal(t, "bump", prog.Procedures[0].Name)
	require.Equal(t, ast.ScalarParam, prog.Procedures[0].Params[0].Kind)

	require.IsType(t, &ast.IfElseStmt{}, prog.MainBody[1])
	require.IsType(t, &ast.WhileStmt{}, prog.MainBody[2])
	require.IsType(t, &ast.UntilStmt{}, prog.MainBody[3])
	call, ok := prog.MainBody[4].(*ast.ProcCallStmt)
	require.True(t, ok)
	require.Equal(t, "bump", call.Name)
	require.Equal(t, []string{"x"}, call.Args)

	require.NotEmpty(t, lines)
}

func TestParseArrayByReferenceParam(t *testing.T) {
	src := `
PROCEDURE fill(T arr, n) IS
IN
    arr[0] := n;
END
PROGRAM IS
    data[5], k
IN
    k := 9;
    fill(data, k);
END
`
	prog, _, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, ast.ArrayParam, prog.Procedures[0].Params[0].Kind)
	require.Equal(t, ast.ScalarParam, prog.Procedures[0].Params[1].Kind)
}

func TestParseUndeclaredNameMarked(t *testing.T) {
	src := `
PROGRAM IS
IN
    WRITE y;
END
`
	prog, _, err := Parse(src)
	require.NoError(t, err)
	write := prog.MainBody[0].(*ast.WriteStmt)
	load := write.Value.(*ast.Load)
	_, ok := load.Target.(ast.Undeclared)
	require.True(t, ok)
}

func TestLexInvalidCharacter(t *testing.T) {
	_, err := Lex("PROGRAM IS IN WRITE 1 $; END")
	require.Error(t, err)
	_, ok := err.(*LexerError)
	require.True(t, ok)
}

func TestParseSyntaxErrorReportsLine(t *testing.T) {
	src := "PROGRAM IS\nIN\n    WRITE ;\nEND\n"
	_, _, err := Parse(src)
	require.Error(t, err)
	parseErr, ok := err.(*ParseError)
	require.True(t, ok)
	require.Equal(t, 3, parseErr.Got.Line)
}
