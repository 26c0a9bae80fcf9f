// Package modgraph implements the module graph loader: each dotted import
// path loads its own *ast.Node and owns its own symbol table, keyed by
// resolved file path. The graph map gets an entry for a module before its
// imports are visited, which is what makes import cycles terminate
// instead of looping the DFS forever.
package modgraph

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/lexer"
	"github.com/anchorlang/anchor/internal/parser"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

// SourceExt is the source file extension.
const SourceExt = ".anc"

// Module is a source file parsed into an AST, associated with its dotted
// module path and its resolved file path.
type Module struct {
	DottedPath string
	FilePath   string
	AST        *ast.Node
	Symbols    *symbols.Table

	// Populated during semantic analysis: discovered (struct, interface)
	// implementation pairs and generic instantiations owned by this module.
	ImplPairs      []ImplPair
	Instantiations []*Instantiation
}

// Path implements symbols.ModuleRef.
func (m *Module) Path() string { return m.DottedPath }

// ImplPair records a (struct, interface) satisfaction discovered while
// checking this module, deduplicated by the analyzer. It is owned by the
// module the struct was declared in and drives vtable emission.
type ImplPair struct {
	Struct    *types.Type
	Interface *types.Type
}

// Instantiation records one generic monomorphization owned by the module
// containing the callsite, not the template.
type Instantiation struct {
	// TemplateDecl is the generic DeclFunc or DeclStruct the instantiation
	// was produced from.
	TemplateDecl *ast.Node
	// TypeArgs is the concrete type-argument vector the cache key is built
	// from; the key uses their type names, not types.Equals.
	TypeArgs []*types.Type
	// Mangled is the instantiation's cache key: the template name followed
	// by the bracketed type-argument names, e.g. "max[int]". The backend
	// turns it into a C identifier by replacing every character not valid
	// in one with '_' ("max_int_"); it is not a base__arg1__arg2 name.
	Mangled string
	// Resolved is the monomorphized declaration's materialized type.
	Resolved *types.Type
	// MethodTypes maps a generic struct template's method declarations to
	// their signatures under this instantiation's substitution (struct
	// instantiations only). The template's method nodes are shared across
	// instantiations, so their own resolved-type back-pointers cannot be
	// trusted per instantiation; the backend reads these instead.
	MethodTypes map[*ast.Node]*types.Type
	// SelfType is the receiver struct type when the template is a generic
	// method; nil for plain function and struct instantiations.
	SelfType *types.Type
}

// Graph is the set of loaded modules, keyed by resolved file path so that
// importing the same module transitively via multiple routes still dedups.
type Graph struct {
	srcDir string
	a      *arena.Arena
	sink   *diagnostics.Sink
	byPath map[string]*Module
}

// New returns an empty graph rooted at srcDir.
func New(srcDir string, a *arena.Arena, sink *diagnostics.Sink) *Graph {
	return &Graph{srcDir: srcDir, a: a, sink: sink, byPath: make(map[string]*Module)}
}

// FilePathFor builds the file path for a dotted module path by replacing
// dots with the platform separator and appending the source extension.
func (g *Graph) FilePathFor(dottedPath string) string {
	rel := strings.ReplaceAll(dottedPath, ".", string(filepath.Separator)) + SourceExt
	return filepath.Join(g.srcDir, rel)
}

// Modules returns every module loaded so far.
func (g *Graph) Modules() map[string]*Module {
	return g.byPath
}

// Lookup returns the module already loaded at the given resolved file
// path, if any.
func (g *Graph) Lookup(filePath string) (*Module, bool) {
	m, ok := g.byPath[filePath]
	return m, ok
}

// Load loads the module at dottedPath, recursively loading its imports.
// Loading is idempotent: a module already present in the graph (by
// resolved file path) is returned without re-parsing. Insertion into the
// graph happens before imports are visited, so a cycle back to a module
// already being loaded finds it present and does not recurse again.
func (g *Graph) Load(dottedPath string) *Module {
	return g.load(dottedPath, diagnostics.Position{Line: 1, Column: 1})
}

func (g *Graph) load(dottedPath string, importPos diagnostics.Position) *Module {
	filePath := g.FilePathFor(dottedPath)
	if m, ok := g.byPath[filePath]; ok {
		return m
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		g.sink.Error(diagnostics.CodeModNotFound, importPos, "module '%s' not found", dottedPath)
		return nil
	}

	m := &Module{DottedPath: dottedPath, FilePath: filePath, Symbols: symbols.NewTable()}
	// Insert before recursing into imports: a self-importing or mutually
	// importing module graph terminates because the second visit finds
	// this entry already present.
	g.byPath[filePath] = m

	src := g.a.CopyString(string(data))
	toks := lexer.New(src, g.sink).Tokens()
	m.AST = parser.Parse(toks, g.sink, g.a)

	for _, decl := range m.AST.Decls {
		if decl.Kind != ast.DeclImport {
			continue
		}
		imported := strings.Join(decl.ModulePath, ".")
		g.load(imported, decl.Pos)
	}

	return m
}
