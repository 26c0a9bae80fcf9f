// Package symbols implements the per-module symbol table and the
// per-function local-scope stack used by the semantic analyzer. The
// module table is insertion-ordered: header emission and duplicate
// reporting both need deterministic declaration order, which a bare map
// cannot give without a second ordering structure.
package symbols

import (
	"golang.org/x/exp/slices"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/types"
)

// Kind tags which variant a module-level Symbol is.
type Kind int

const (
	KindFunc Kind = iota
	KindStruct
	KindInterface
	KindEnum
	KindConst
	KindVar
)

// ModuleRef is the minimal view of a module a Symbol needs to carry for
// imports. internal/modgraph.Module implements this; symbols does not
// import modgraph so that modgraph (which embeds a *Table) can depend on
// symbols without a cycle.
type ModuleRef interface {
	Path() string
}

// Symbol is one module-level declaration or import alias.
type Symbol struct {
	Name     string
	Kind     Kind
	Exported bool
	Decl     *ast.Node // originating declaration node; nil for nothing synthetic
	Type     *types.Type

	// Imports only: the module the name was imported from (nil for a
	// symbol declared locally), and whether this was the `export`-style
	// (re-exporting) import form. An imported symbol keeps the source
	// declaration's Kind so lookups can switch on it uniformly.
	SourceModule ModuleRef
	ReExport     bool
}

// IsImport reports whether s was brought in by an import declaration
// rather than declared in its own module.
func (s *Symbol) IsImport() bool { return s.SourceModule != nil }

// Table is an insertion-ordered, single-scope symbol table: one per
// module, built by the collect pass and extended by import resolution.
type Table struct {
	order  []string
	byName map[string]*Symbol
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{byName: make(map[string]*Symbol)}
}

// Declare adds sym to the table. It reports false without modifying the
// table if a symbol with the same name is already declared; the caller is
// responsible for emitting the duplicate-name diagnostic. First
// declaration wins.
func (t *Table) Declare(sym *Symbol) bool {
	if _, exists := t.byName[sym.Name]; exists {
		return false
	}
	t.byName[sym.Name] = sym
	t.order = append(t.order, sym.Name)
	return true
}

// Lookup returns the symbol named name, if declared.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// Names returns declared names in declaration order. The returned slice is
// a defensive copy; mutating it does not affect the table.
func (t *Table) Names() []string {
	return slices.Clone(t.order)
}

// All returns every declared symbol in declaration order.
func (t *Table) All() []*Symbol {
	out := make([]*Symbol, len(t.order))
	for i, name := range t.order {
		out[i] = t.byName[name]
	}
	return out
}

// Len reports how many symbols are declared.
func (t *Table) Len() int { return len(t.order) }
