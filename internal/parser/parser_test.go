package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/lexer"
)

func parse(t *testing.T, src string) (*ast.Node, *diagnostics.Sink) {
	t.Helper()
	sink := diagnostics.NewSink()
	toks := lexer.New(src, sink).Tokens()
	prog := Parse(toks, sink, arena.New(0))
	return prog, sink
}

func TestParseSimpleFunction(t *testing.T) {
	prog, sink := parse(t, "func add(a: int, b: int): int\nreturn a + b\nend\n")
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Decls, 1)

	fn := prog.Decls[0]
	assert.Equal(t, ast.DeclFunc, fn.Kind)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	require.Len(t, fn.Body, 1)
	assert.Equal(t, ast.StmtReturn, fn.Body[0].Kind)
	assert.Equal(t, ast.ExprBinary, fn.Body[0].Value.Kind)
	assert.Equal(t, "+", fn.Body[0].Value.Text)
}

func TestParseStructWithMethod(t *testing.T) {
	src := "struct Point\n" +
		"x: int\n" +
		"y: int\n" +
		"func sum(): int\n" +
		"return self.x + self.y\n" +
		"end\n" +
		"end\n"
	prog, sink := parse(t, src)
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Decls, 1)

	st := prog.Decls[0]
	assert.Equal(t, ast.DeclStruct, st.Kind)
	require.Len(t, st.Fields, 2)
	require.Len(t, st.Methods, 1)
	assert.Equal(t, "Point", st.Methods[0].ReceiverStruct)
}

func TestParseStructLiteralVsCallDisambiguation(t *testing.T) {
	prog, sink := parse(t, "var p: Point = Point(x = 1, y = 2)\n")
	require.False(t, sink.HasErrors())
	init := prog.Decls[0].Init
	require.Equal(t, ast.ExprStructLiteral, init.Kind)
	require.Len(t, init.FieldInits, 2)
	assert.Equal(t, "x", init.FieldInits[0].Name)
}

func TestParseCallExpression(t *testing.T) {
	prog, sink := parse(t, "var s: int = p.sum()\n")
	require.False(t, sink.HasErrors())
	init := prog.Decls[0].Init
	require.Equal(t, ast.ExprMethodCall, init.Kind)
	assert.Equal(t, "sum", init.Name)
}

func TestParseGenericCallCapturesTypeArguments(t *testing.T) {
	prog, sink := parse(t, "var x: int = max[int](1, 2)\n")
	require.False(t, sink.HasErrors())
	call := prog.Decls[0].Init
	require.Equal(t, ast.ExprCall, call.Kind)
	require.Len(t, call.TypeArgs, 1)
	assert.Equal(t, "int", call.TypeArgs[0].Name)
	require.Len(t, call.Args, 2)
}

func TestParseIndexExpressionNotConfusedWithGenericArgs(t *testing.T) {
	prog, sink := parse(t, "var x: int = arr[0]\n")
	require.False(t, sink.HasErrors())
	idx := prog.Decls[0].Init
	require.Equal(t, ast.ExprIndex, idx.Kind)
	assert.Equal(t, ast.ExprIdent, idx.IndexTarget.Kind)
}

func TestParseIfElseIfElse(t *testing.T) {
	src := "func f(): int\n" +
		"if a\n  return 1\n" +
		"elseif b\n  return 2\n" +
		"else\n  return 3\n" +
		"end\n" +
		"end\n"
	prog, sink := parse(t, src)
	require.False(t, sink.HasErrors())
	ifStmt := prog.Decls[0].Body[0]
	assert.Equal(t, ast.StmtIf, ifStmt.Kind)
	require.Len(t, ifStmt.ElseIfConds, 1)
	require.Len(t, ifStmt.Else, 1)
}

func TestParseForRangeWithStep(t *testing.T) {
	src := "func f(): int\nfor i in 0 until 10 step 2\nend\nend\n"
	prog, sink := parse(t, src)
	require.False(t, sink.HasErrors())
	loop := prog.Decls[0].Body[0]
	assert.Equal(t, ast.StmtForRange, loop.Kind)
	assert.Equal(t, "i", loop.IterName)
	require.NotNil(t, loop.Step)
}

func TestParseMatchWithCasesAndElse(t *testing.T) {
	src := "func f(): int\n" +
		"match x\n" +
		"case 1, 2:\n  return 0\n" +
		"else\n  return 1\n" +
		"end\n" +
		"end\n"
	prog, sink := parse(t, src)
	require.False(t, sink.HasErrors())
	m := prog.Decls[0].Body[0]
	assert.Equal(t, ast.StmtMatch, m.Kind)
	require.Len(t, m.Cases, 1)
	assert.Len(t, m.Cases[0].Values, 2)
	require.Len(t, m.Else, 1)
}

func TestParseCompoundAssignment(t *testing.T) {
	src := "func f(): int\nx += 1\nend\n"
	prog, sink := parse(t, src)
	require.False(t, sink.HasErrors())
	stmt := prog.Decls[0].Body[0]
	assert.Equal(t, ast.StmtCompoundAssign, stmt.Kind)
	assert.Equal(t, "+=", stmt.Text)
}

func TestParseImportPlainAndExportStyle(t *testing.T) {
	prog, sink := parse(t, "from a.b.c import x, y\nfrom d export z\n")
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Decls, 2)

	first := prog.Decls[0]
	assert.Equal(t, []string{"a", "b", "c"}, first.ModulePath)
	assert.Equal(t, []string{"x", "y"}, first.ImportNames)
	assert.False(t, first.ImportExport)

	second := prog.Decls[1]
	assert.True(t, second.ImportExport)
}

func TestParseExternFuncHasNoBody(t *testing.T) {
	prog, sink := parse(t, "extern func puts(s: string): int\n")
	require.False(t, sink.HasErrors())
	fn := prog.Decls[0]
	assert.True(t, fn.Extern)
	assert.Nil(t, fn.Body)
}

func TestParseArrayAndSliceTypes(t *testing.T) {
	prog, sink := parse(t, "var a: int[4]\nvar b: int[]\n")
	require.False(t, sink.HasErrors())
	assert.Equal(t, ast.TypeArray, prog.Decls[0].DeclType.Kind)
	assert.Equal(t, ast.TypeSlice, prog.Decls[1].DeclType.Kind)
}

func TestParsePrecedenceMultiplicationBindsTighterThanAddition(t *testing.T) {
	prog, sink := parse(t, "var x: int = 1 + 2 * 3\n")
	require.False(t, sink.HasErrors())
	top := prog.Decls[0].Init
	assert.Equal(t, "+", top.Text)
	assert.Equal(t, "*", top.Right.Text)
}

func TestParseErrorEntersPanicModeAndSynchronizes(t *testing.T) {
	prog, sink := parse(t, "123\nfunc ok(): int\nreturn 1\nend\n")
	assert.True(t, sink.HasErrors())
	var names []string
	for _, d := range prog.Decls {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "ok", "parser must recover and still parse the well-formed declaration after the broken one")
}

func TestParseDeterminismSameTokensSameShape(t *testing.T) {
	src := "func add(a: int, b: int): int\nreturn a + b\nend\n"
	sink := diagnostics.NewSink()
	toks := lexer.New(src, sink).Tokens()

	first := Parse(toks, diagnostics.NewSink(), arena.New(0))
	second := Parse(toks, diagnostics.NewSink(), arena.New(0))

	assert.Equal(t, first.Decls[0].Name, second.Decls[0].Name)
	assert.Equal(t, first.Decls[0].Body[0].Value.Text, second.Decls[0].Body[0].Value.Text)
}
