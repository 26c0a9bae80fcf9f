package sem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/types"
)

// analyze writes each dotted-path -> source pair to a temp source tree,
// loads every module into a graph, and runs the analyzer over it.
func analyze(t *testing.T, files map[string]string) (*modgraph.Graph, *diagnostics.Sink, *types.Registry) {
	t.Helper()
	dir := t.TempDir()
	for dotted, src := range files {
		rel := filepath.Join(strings.Split(dotted, ".")...) + modgraph.SourceExt
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}

	sink := diagnostics.NewSink()
	a := arena.New(0)
	reg := types.NewRegistry(a)
	g := modgraph.New(dir, a, sink)
	for dotted := range files {
		g.Load(dotted)
	}

	New(reg, sink, g).Analyze()
	return g, sink, reg
}

func moduleOf(g *modgraph.Graph, dotted string) *modgraph.Module {
	m, _ := g.Lookup(g.FilePathFor(dotted))
	return m
}

func TestAnalyzeSimpleFunctionResolvesParamAndReturnTypes(t *testing.T) {
	g, sink, _ := analyze(t, map[string]string{
		"main": "func add(a: int, b: int): int\nreturn a + b\nend\n",
	})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	sym, ok := m.Symbols.Lookup("add")
	require.True(t, ok)
	fn := sym.Type
	require.NotNil(t, fn)
	assert.Equal(t, types.Int, fn.Result.Kind)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, types.Int, fn.Params[0].Kind)
}

func TestAnalyzeReturnTypeMismatchIsReported(t *testing.T) {
	_, sink, _ := analyze(t, map[string]string{
		"main": "func f(): int\nreturn true\nend\n",
	})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeMismatch, sink.Entries()[0].Code)
}

func TestAnalyzeStructFieldsAndSelfMethod(t *testing.T) {
	src := "struct Point\n" +
		"x: int\n" +
		"y: int\n" +
		"func sum(): int\n" +
		"return self.x + self.y\n" +
		"end\n" +
		"end\n"
	g, sink, _ := analyze(t, map[string]string{"main": src})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	sym, ok := m.Symbols.Lookup("Point")
	require.True(t, ok)
	st := sym.Type
	require.NotNil(t, st)
	require.Len(t, st.Fields, 2)
	assert.Equal(t, "x", st.Fields[0].Name)
	assert.Equal(t, types.Int, st.Fields[0].Type.Kind)
	require.Len(t, st.Methods, 1)

	methodFn := declType(st.Methods[0])
	require.NotNil(t, methodFn)
	assert.Equal(t, types.Int, methodFn.Result.Kind)
}

func TestAnalyzeImplicitLocalAssignmentInfersType(t *testing.T) {
	src := "func f(): int\n" +
		"x = 1\n" +
		"x = x + 1\n" +
		"return x\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeGenericStructInstantiationAndFieldAccess(t *testing.T) {
	src := "struct Box[T]\n" +
		"value: T\n" +
		"end\n" +
		"func make(): int\n" +
		"b = Box[int](value = 1)\n" +
		"return b.value\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.False(t, sink.HasErrors())
}

func TestAnalyzeInterfaceSatisfactionRecordsImplementationPair(t *testing.T) {
	src := "interface Shape\n" +
		"func area(): int\n" +
		"end\n" +
		"struct Square\n" +
		"side: int\n" +
		"func area(): int\n" +
		"return self.side * self.side\n" +
		"end\n" +
		"end\n" +
		"func use(s: Shape): int\n" +
		"return s.area()\n" +
		"end\n" +
		"func main(): int\n" +
		"sq = Square(side = 2)\n" +
		"return use(sq)\n" +
		"end\n"
	g, sink, _ := analyze(t, map[string]string{"main": src})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	require.Len(t, m.ImplPairs, 1)
	assert.Equal(t, "Square", m.ImplPairs[0].Struct.Name)
	assert.Equal(t, "Shape", m.ImplPairs[0].Interface.Name)
}

func TestAnalyzeBreakOutsideLoopIsRejected(t *testing.T) {
	_, sink, _ := analyze(t, map[string]string{
		"main": "func f(): int\nbreak\nreturn 0\nend\n",
	})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeBreakOutside, sink.Entries()[0].Code)
}

func TestAnalyzeBreakInsideMatchIsAccepted(t *testing.T) {
	src := "func f(): int\n" +
		"match 1\n" +
		"case 1:\n  break\n" +
		"end\n" +
		"return 0\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeContinueInsideMatchOutsideLoopIsRejected(t *testing.T) {
	src := "func f(): int\n" +
		"match 1\n" +
		"case 1:\n  continue\n" +
		"end\n" +
		"return 0\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeContinueBad, sink.Entries()[0].Code)
}

func TestAnalyzeImportResolutionAcrossModules(t *testing.T) {
	g, sink, _ := analyze(t, map[string]string{
		"util": "export func double(x: int): int\nreturn x * 2\nend\n",
		"main": "from util import double\nfunc run(): int\nreturn double(21)\nend\n",
	})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	sym, ok := m.Symbols.Lookup("double")
	require.True(t, ok)
	assert.NotNil(t, declType(sym.Decl))
}

func TestAnalyzeImportOfUnexportedNameIsRejected(t *testing.T) {
	_, sink, _ := analyze(t, map[string]string{
		"util": "func hidden(): int\nreturn 1\nend\n",
		"main": "from util import hidden\nfunc run(): int\nreturn hidden()\nend\n",
	})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeSymNotExported, sink.Entries()[0].Code)
}

func TestAnalyzeConstAssignmentIsRejected(t *testing.T) {
	src := "export const limit: int = 10\n" +
		"func f(): int\n" +
		"limit = 5\n" +
		"return limit\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeConstAssign, sink.Entries()[0].Code)
}

func TestAnalyzeForRangeDeclaresIteratorAsInteger(t *testing.T) {
	src := "func f(): int\n" +
		"total = 0\n" +
		"for i in 0 until 10 step 2\n" +
		"total = total + i\n" +
		"end\n" +
		"return total\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeArithmeticOperandMismatchIsRejected(t *testing.T) {
	src := "func f(a: int, b: double): double\n" +
		"return a + b\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeMismatch, sink.Entries()[0].Code)
}

func TestAnalyzeArithmeticWideningOperandIsAccepted(t *testing.T) {
	src := "func f(a: long): long\n" +
		"return a + 1\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeArityMismatchOnCallIsRejected(t *testing.T) {
	src := "func add(a: int, b: int): int\nreturn a + b\nend\n" +
		"func f(): int\nreturn add(1)\nend\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeArity, sink.Entries()[0].Code)
}

func TestAnalyzeNullAssignedToNonPointerIsRejected(t *testing.T) {
	src := "var x: int = null\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeMismatch, sink.Entries()[0].Code)
}

func TestAnalyzeNullAssignedToReferenceIsAccepted(t *testing.T) {
	src := "struct Thing\n" +
		"x: int\n" +
		"end\n" +
		"var p: &Thing = null\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeNullAssignedToPointerIsAccepted(t *testing.T) {
	src := "var p: *int = null\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeReferenceWidensToPointerOfSameElement(t *testing.T) {
	src := "var x: int = 1\nvar r: &int = &x\nvar p: *int = r\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeArrayLiteralAssignsToMatchingSlice(t *testing.T) {
	src := "var s: int[] = [1, 2, 3]\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeIntegerNoLongerImplicitlyConvertsToFloat(t *testing.T) {
	src := "var x: double = 1\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeTypeMismatch, sink.Entries()[0].Code)
}

func TestAnalyzeGenericInstantiationIsDeduplicatedAcrossCallsites(t *testing.T) {
	src := "func max[T](a: T, b: T): T\n" +
		"if a > b\n" +
		"return a\n" +
		"end\n" +
		"return b\n" +
		"end\n" +
		"func f(): int\nreturn max(1, 2)\nend\n" +
		"func g(): int\nreturn max(3, 4)\nend\n"
	g, sink, _ := analyze(t, map[string]string{"main": src})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	count := 0
	for _, inst := range m.Instantiations {
		if inst.Mangled == "max[int]" {
			count++
		}
	}
	assert.Equal(t, 1, count, "two callsites requesting max[int] must share one instantiation")
}

func TestAnalyzeSelfReferentialGenericTerminates(t *testing.T) {
	src := "struct Node[T]\n" +
		"value: T\n" +
		"next: *Node[T]\n" +
		"end\n" +
		"func f(): int\n" +
		"n = Node[int](value = 1, next = null)\n" +
		"return n.value\n" +
		"end\n"
	g, sink, _ := analyze(t, map[string]string{"main": src})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	var inst *modgraph.Instantiation
	for _, i := range m.Instantiations {
		if i.Mangled == "Node[int]" {
			inst = i
		}
	}
	require.NotNil(t, inst)

	var next *types.Type
	for _, f := range inst.Resolved.Fields {
		if f.Name == "next" {
			next = f.Type
		}
	}
	require.NotNil(t, next)
	require.Equal(t, types.Ptr, next.Kind)
	assert.Same(t, inst.Resolved, next.Elem, "next must point back at the same Node[int] instantiation")
}

func TestAnalyzeGenericMethodInstantiatedFromCallsite(t *testing.T) {
	src := "struct Holder\n" +
		"x: int\n" +
		"func pick[T](a: T, b: T): T\n" +
		"if self.x > 0\n" +
		"return a\n" +
		"end\n" +
		"return b\n" +
		"end\n" +
		"end\n" +
		"func f(): int\n" +
		"h = Holder(x = 1)\n" +
		"return h.pick(1, 2)\n" +
		"end\n"
	g, sink, _ := analyze(t, map[string]string{"main": src})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	found := false
	for _, inst := range m.Instantiations {
		if inst.Mangled == "Holder__pick[int]" {
			found = true
			assert.NotNil(t, inst.SelfType)
			assert.Equal(t, types.Int, inst.Resolved.Result.Kind)
		}
	}
	assert.True(t, found, "h.pick(1, 2) must record a Holder__pick[int] instantiation")
}

func TestAnalyzeEnumVariantAccessAndMatch(t *testing.T) {
	src := "enum Color\n" +
		"Red\n" +
		"Green\n" +
		"end\n" +
		"func f(): int\n" +
		"c = Color.Red\n" +
		"match c\n" +
		"case Color.Green:\n" +
		"return 1\n" +
		"end\n" +
		"return 0\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	assert.False(t, sink.HasErrors())
}

func TestAnalyzeEnumUnknownVariantIsRejected(t *testing.T) {
	src := "enum Color\nRed\nend\n" +
		"func f(): int\n" +
		"c = Color.Blue\n" +
		"return 0\n" +
		"end\n"
	_, sink, _ := analyze(t, map[string]string{"main": src})
	require.True(t, sink.HasErrors())
	assert.Equal(t, diagnostics.CodeSymUnknown, sink.Entries()[0].Code)
}

func TestAnalyzeReferenceToStructSatisfiesReferenceToInterface(t *testing.T) {
	src := "interface Printable\n" +
		"func describe(): int\n" +
		"end\n" +
		"struct Doc\n" +
		"id: int\n" +
		"func describe(): int\n" +
		"return self.id\n" +
		"end\n" +
		"end\n" +
		"func run(x: &Printable): int\n" +
		"return x.describe()\n" +
		"end\n" +
		"func main(): int\n" +
		"doc = Doc(id = 1)\n" +
		"return run(&doc)\n" +
		"end\n"
	g, sink, _ := analyze(t, map[string]string{"main": src})
	require.False(t, sink.HasErrors())

	m := moduleOf(g, "main")
	require.Len(t, m.ImplPairs, 1)
	assert.Equal(t, "Doc", m.ImplPairs[0].Struct.Name)
	assert.Equal(t, "Printable", m.ImplPairs[0].Interface.Name)
}
