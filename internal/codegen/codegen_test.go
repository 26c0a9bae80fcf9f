package codegen

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
	"github.com/anchorlang/anchor/internal/sem"
	"github.com/anchorlang/anchor/internal/types"
)

// generate writes each dotted-path -> source pair to a temp source tree,
// loads and checks every module, then lowers the result to C. It requires
// a clean sink, since the backend is never entered otherwise.
func generate(t *testing.T, files map[string]string, entry string) map[string]*Unit {
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
	sem.New(reg, sink, g).Analyze()
	require.False(t, sink.HasErrors(), "unexpected diagnostics: %v", sink.Entries())

	return New("prog", g, entry).Generate()
}

func unitFor(t *testing.T, units map[string]*Unit, dotted string) *Unit {
	t.Helper()
	u, ok := units[dotted]
	require.True(t, ok, "no generated unit for module %q", dotted)
	return u
}

func TestGenerateAddFunctionLowersToCFunction(t *testing.T) {
	units := generate(t, map[string]string{
		"main": "func add(a: int, b: int): int\nreturn a + b\nend\n",
	}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "int32_t anc__prog__main__add(int32_t a, int32_t b) {")
	assert.Contains(t, u.Source, "return (a + b);")
}

func TestGenerateStructMethodDispatchesStatically(t *testing.T) {
	src := "struct Point\n" +
		"x: int\n" +
		"y: int\n" +
		"func sum(): int\n" +
		"return self.x + self.y\n" +
		"end\n" +
		"end\n" +
		"func main(): int\n" +
		"p = Point(x = 1, y = 2)\n" +
		"return p.sum()\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "typedef struct anc__prog__main__Point {")
	assert.Contains(t, u.Source, "anc__prog__main__Point__sum(anc__prog__main__Point* self) {")
	assert.Contains(t, u.Source, "self->x")
	assert.Contains(t, u.Source, "anc__prog__main__Point__sum((&p))")
}

func TestGenerateInterfaceSatisfactionEmitsVtableAndWrapper(t *testing.T) {
	src := "export interface Printable\n" +
		"func text(): string\n" +
		"end\n" +
		"struct Doc\n" +
		"body: string\n" +
		"func text(): string\n" +
		"return self.body\n" +
		"end\n" +
		"end\n" +
		"func show(p: Printable): string\n" +
		"return p.text()\n" +
		"end\n" +
		"func main(): int\n" +
		"d = Doc(body = \"hi\")\n" +
		"show(d)\n" +
		"return 0\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "anc__prog__main__Doc__Printable__vtable")
	assert.Contains(t, u.Source, "__wrapper(void* self) {")
	assert.Contains(t, u.Source, "anc__prog__main__Doc__text((anc__prog__main__Doc*)self)")
	assert.Contains(t, u.Header, "anc__prog__main__Printable__ref")
	assert.Contains(t, u.Source, "((anc__prog__main__Printable__ref){ .data = (void*)&d, .vtable = &anc__prog__main__Doc__Printable__vtable })")
}

func TestGenerateGenericFunctionInstantiationIsMangledWithTypeArgument(t *testing.T) {
	src := "func max[T](a: T, b: T): T\n" +
		"if a > b\n" +
		"return a\n" +
		"end\n" +
		"return b\n" +
		"end\n" +
		"func main(): int\n" +
		"return max(1, 2)\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "anc__prog__main__max_int_(int32_t a, int32_t b)")
	assert.Contains(t, u.Source, "anc__prog__main__max_int_(1, 2)")
}

func TestGenerateEntryWrapperReturnsMainResult(t *testing.T) {
	units := generate(t, map[string]string{
		"main": "func main(): int\nreturn 7\nend\n",
	}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "int main(void) {")
	assert.Contains(t, u.Source, "return (int)anc__prog__main__main();")
}

func TestGenerateReferenceToStructWrapsIntoReferenceToInterface(t *testing.T) {
	src := "interface Printable\n" +
		"func text(): string\n" +
		"end\n" +
		"struct Doc\n" +
		"body: string\n" +
		"func text(): string\n" +
		"return self.body\n" +
		"end\n" +
		"end\n" +
		"func run(p: &Printable): string\n" +
		"return p.text()\n" +
		"end\n" +
		"func main(): int\n" +
		"d = Doc(body = \"hi\")\n" +
		"run(&d)\n" +
		"return 0\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "anc__prog__main__Doc__Printable__vtable")
	assert.Contains(t, u.Source, "((anc__prog__main__Printable__ref){ .data = (void*)(&d), .vtable = &anc__prog__main__Doc__Printable__vtable })")
}

func TestGenerateStringLiteralLowersToFatPointerWithoutQuotes(t *testing.T) {
	src := "func main(): int\n" +
		"s = \"hi\"\n" +
		"return 0\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, `((anc__string){ .ptr = (uint8_t*)"hi", .len = 2 })`)
	assert.NotContains(t, u.Source, `\"hi\"`)
}

func TestGenerateEnumLowersToCEnumAndVariantConstants(t *testing.T) {
	src := "enum Color\n" +
		"Red\n" +
		"Green\n" +
		"end\n" +
		"func main(): int\n" +
		"c = Color.Red\n" +
		"match c\n" +
		"case Color.Green:\n" +
		"return 1\n" +
		"end\n" +
		"return 0\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "typedef enum anc__prog__main__Color {")
	assert.Contains(t, u.Source, "anc__prog__main__Color__Red,")
	assert.Contains(t, u.Source, "case anc__prog__main__Color__Green:")
}

func TestGenerateForRangeLowersToCForLoop(t *testing.T) {
	src := "func main(): int\n" +
		"total = 0\n" +
		"for i in 0 until 10 step 2\n" +
		"total = total + i\n" +
		"end\n" +
		"return total\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "for (int32_t i = 0; i < 10; i += 2) {")
}

func TestGenerateSizeofLowersToCSizeof(t *testing.T) {
	src := "func main(): int\n" +
		"n = sizeof(int)\n" +
		"return 0\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "sizeof(int32_t)")
}

func TestGenerateGenericStructMethodsKeepPerInstantiationSignatures(t *testing.T) {
	src := "struct Box[T]\n" +
		"value: T\n" +
		"func get(): T\n" +
		"return self.value\n" +
		"end\n" +
		"end\n" +
		"func main(): int\n" +
		"a = Box[int](value = 1)\n" +
		"b = Box[double](value = 2.5)\n" +
		"a.get()\n" +
		"b.get()\n" +
		"return 0\n" +
		"end\n"
	units := generate(t, map[string]string{"main": src}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "int32_t anc__prog__main__Box_int___get(anc__prog__main__Box_int_* self) {")
	assert.Contains(t, u.Source, "double anc__prog__main__Box_double___get(anc__prog__main__Box_double_* self) {")
}

func TestGenerateImportedCallMangledWithSourceModule(t *testing.T) {
	units := generate(t, map[string]string{
		"util": "export func double(x: int): int\nreturn x * 2\nend\n",
		"main": "from util import double\nfunc main(): int\nreturn double(21)\nend\n",
	}, "main")
	u := unitFor(t, units, "main")

	assert.Contains(t, u.Source, "anc__prog__util__double(21)")
	assert.Contains(t, u.Header, `#include "prog__util.h"`)
}
