// Package codegen implements the C backend: one header and one
// translation unit per module, name-mangled symbols, C99 type lowering,
// and interface vtable emission driven by the implementation pairs and
// generic instantiations internal/sem recorded on each
// internal/modgraph.Module.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
)

// Unit is the pair of files the backend emits for one module.
type Unit struct {
	HeaderName string
	SourceName string
	Header     string
	Source     string
}

// Generator lowers every module in a graph into C. pkg is the package name
// from the manifest's `name` key, the first mangling segment.
type Generator struct {
	pkg   string
	graph *modgraph.Graph
	entry string // dotted path of the module whose main is the program entry
}

// New returns a generator for graph's modules, mangling under pkg, with
// entry naming the module the driver should wrap with `int main(void)`.
func New(pkg string, graph *modgraph.Graph, entry string) *Generator {
	return &Generator{pkg: pkg, graph: graph, entry: entry}
}

// Generate lowers every loaded module into a header/source pair, keyed by
// dotted module path. The caller (internal/driver) is responsible for
// checking the diagnostic sink has no errors before calling this; the
// backend is never entered otherwise.
func (g *Generator) Generate() map[string]*Unit {
	mods := g.graph.Modules()
	out := make(map[string]*Unit, len(mods))
	for _, m := range mods {
		if m == nil || m.AST == nil {
			continue
		}
		e := newEmitter(g.pkg, m, g.graph)
		out[m.DottedPath] = e.emit(m.DottedPath == g.entry)
	}
	return out
}

// emitter assembles one module's header and translation unit.
type emitter struct {
	pkg   string
	mod   *modgraph.Module
	graph *modgraph.Graph

	header strings.Builder
	source strings.Builder

	// auxTypes holds the guarded typedefs synthesized for array/slice types
	// encountered while lowering this module, keyed by canonical name so
	// repeated use of the same element/size pair only defines it once.
	auxTypes map[string]string
	auxOrder []string

	// scopes tracks local-variable bindings while lowering one function or
	// method body, mirroring internal/sem's checkCtx.scopes so the same
	// identifier is recognized as a fresh implicit local (rather than a
	// reassignment or a module-level reference) at exactly the same point
	// body-checking did.
	scopes *symbols.ScopeStack
}

func newEmitter(pkg string, mod *modgraph.Module, graph *modgraph.Graph) *emitter {
	return &emitter{pkg: pkg, mod: mod, graph: graph, auxTypes: make(map[string]string), scopes: symbols.NewScopeStack()}
}

func headerGuardName(pkg, mod string) string {
	return strings.ToUpper(fmt.Sprintf("ANC_%s_%s_H", pkg, sanitize(mod)))
}

func sanitize(dotted string) string { return strings.ReplaceAll(dotted, ".", "_") }

// modSeg is this emitter's own module's mangling segment.
func (e *emitter) modSeg() string { return sanitize(e.mod.DottedPath) }

func (e *emitter) emit(isEntry bool) *Unit {
	guard := headerGuardName(e.pkg, e.mod.DottedPath)
	hFile := fmt.Sprintf("%s__%s.h", e.pkg, e.modSeg())
	cFile := fmt.Sprintf("%s__%s.c", e.pkg, e.modSeg())

	fmt.Fprintf(&e.header, "#ifndef %s\n#define %s\n\n", guard, guard)
	e.header.WriteString("#include <stdint.h>\n#include <stdbool.h>\n#include <stddef.h>\n")
	// Imported modules' headers are included here rather than in the
	// translation unit, so a module that includes this header also sees
	// every imported type this module's declarations mention.
	for _, dotted := range e.importedModules() {
		fmt.Fprintf(&e.header, "#include %q\n", fmt.Sprintf("%s__%s.h", e.pkg, sanitize(dotted)))
	}
	e.header.WriteString("\n")
	e.header.WriteString(stringTypedef())

	fmt.Fprintf(&e.source, "#include %q\n\n", hFile)

	e.emitEnums()
	e.emitStructs()
	e.emitInterfaces()
	// Prototypes for every function and method go out before the vtable
	// wrapper functions and the bodies themselves, so a wrapper (or a
	// function defined earlier in source order) calling one defined later
	// in this translation unit always has a visible declaration first.
	e.emitPrototypes()
	e.emitVtables()
	e.emitConstsAndVars()
	e.emitFunctions()

	if isEntry {
		e.emitEntryWrapper()
	}

	// Aux typedefs (array/slice wrappers) are inserted into the header right
	// after the anc__string typedef block, once every use site has
	// registered what it needs.
	aux := e.renderAux()

	header := e.header.String()
	marker := stringTypedef()
	header = strings.Replace(header, marker, marker+aux, 1)
	header += "\n#endif\n"

	return &Unit{HeaderName: hFile, SourceName: cFile, Header: header, Source: e.source.String()}
}

func (e *emitter) renderAux() string {
	var b strings.Builder
	for _, name := range e.auxOrder {
		b.WriteString(e.auxTypes[name])
	}
	return b.String()
}

// importedModules returns the dotted paths this module imports from, in
// declaration order with duplicates removed.
func (e *emitter) importedModules() []string {
	seen := make(map[string]bool)
	var out []string
	for _, decl := range e.mod.AST.Decls {
		if decl.Kind != ast.DeclImport {
			continue
		}
		dotted := strings.Join(decl.ModulePath, ".")
		if !seen[dotted] {
			seen[dotted] = true
			out = append(out, dotted)
		}
	}
	return out
}

func stringTypedef() string {
	return "#ifndef ANC_STRING_DEFINED\n#define ANC_STRING_DEFINED\n" +
		"typedef struct { uint8_t* ptr; size_t len; } anc__string;\n" +
		"static inline bool anc__string_eq(anc__string a, anc__string b) {\n" +
		"    if (a.len != b.len) return false;\n" +
		"    for (size_t i = 0; i < a.len; i++) {\n" +
		"        if (a.ptr[i] != b.ptr[i]) return false;\n" +
		"    }\n" +
		"    return true;\n" +
		"}\n" +
		"#endif\n\n"
}

// sortedDecls returns mod's declarations filtered to kind, in source order.
func sortedDecls(mod *modgraph.Module, kind ast.Kind) []*ast.Node {
	var out []*ast.Node
	for _, d := range mod.AST.Decls {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// sortedImplPairs returns a copy of the module's implementation pairs
// sorted by struct name, then interface name, so emission order is
// deterministic regardless of discovery order during checking.
func sortedImplPairs(pairs []modgraph.ImplPair) []modgraph.ImplPair {
	out := append([]modgraph.ImplPair(nil), pairs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Struct.Name != out[j].Struct.Name {
			return out[i].Struct.Name < out[j].Struct.Name
		}
		return out[i].Interface.Name < out[j].Interface.Name
	})
	return out
}
