package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorlang/anchor/internal/ast"
)

func TestDeclareAndLookup(t *testing.T) {
	tbl := NewTable()
	ok := tbl.Declare(&Symbol{Name: "add", Kind: KindFunc, Decl: &ast.Node{Kind: ast.DeclFunc, Name: "add"}})
	require.True(t, ok)

	sym, found := tbl.Lookup("add")
	require.True(t, found)
	assert.Equal(t, KindFunc, sym.Kind)
}

func TestDeclareRejectsDuplicateName(t *testing.T) {
	tbl := NewTable()
	require.True(t, tbl.Declare(&Symbol{Name: "x", Kind: KindVar}))
	assert.False(t, tbl.Declare(&Symbol{Name: "x", Kind: KindConst}), "second declaration of the same name must be rejected")

	sym, _ := tbl.Lookup("x")
	assert.Equal(t, KindVar, sym.Kind, "the first declaration wins")
}

func TestNamesPreservesDeclarationOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Declare(&Symbol{Name: "c", Kind: KindConst})
	tbl.Declare(&Symbol{Name: "a", Kind: KindVar})
	tbl.Declare(&Symbol{Name: "b", Kind: KindFunc})

	assert.Equal(t, []string{"c", "a", "b"}, tbl.Names())
	assert.Equal(t, 3, tbl.Len())
}

func TestNamesReturnsDefensiveCopy(t *testing.T) {
	tbl := NewTable()
	tbl.Declare(&Symbol{Name: "a", Kind: KindVar})

	names := tbl.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, tbl.Names())
}

func TestAllReturnsSymbolsInOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Declare(&Symbol{Name: "first", Kind: KindFunc})
	tbl.Declare(&Symbol{Name: "second", Kind: KindStruct})

	all := tbl.All()
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Name)
	assert.Equal(t, "second", all[1].Name)
}

func TestScopeStackLookupSearchesOutward(t *testing.T) {
	s := NewScopeStack()
	s.Declare(&Local{Name: "x"})
	s.Push()
	s.Declare(&Local{Name: "y"})

	_, ok := s.Lookup("x")
	assert.True(t, ok, "inner scope must see outer bindings")
	_, ok = s.Lookup("y")
	assert.True(t, ok)

	s.Pop()
	_, ok = s.Lookup("y")
	assert.False(t, ok, "y must not survive its scope's Pop")
}

func TestScopeStackDeclareRejectsSameScopeRedeclaration(t *testing.T) {
	s := NewScopeStack()
	require.True(t, s.Declare(&Local{Name: "x"}))
	assert.False(t, s.Declare(&Local{Name: "x"}))
}

func TestScopeStackShadowingOuterIsAllowedAndDetected(t *testing.T) {
	s := NewScopeStack()
	s.Declare(&Local{Name: "x"})
	s.Push()

	assert.True(t, s.ShadowsOuter("x"))
	assert.True(t, s.Declare(&Local{Name: "x"}), "shadowing an outer scope is allowed")

	l, ok := s.Lookup("x")
	require.True(t, ok)
	assert.NotNil(t, l)
}

func TestScopeStackPopOnLastScopePanics(t *testing.T) {
	s := NewScopeStack()
	s.Pop()
	assert.Panics(t, func() { s.Pop() })
}
