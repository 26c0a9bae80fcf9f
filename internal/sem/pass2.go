package sem

import (
	"strings"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
)

// pass2Imports resolves every `from ... import ...` / `from ... export ...`
// declaration: the named source module must already be in the graph
// (modgraph.Load resolves the whole transitive import graph up front),
// the imported name must exist and be exported there, and it must not
// shadow a name the importing module already declared.
func (a *Analyzer) pass2Imports(mods map[string]*modgraph.Module, order []string) {
	for _, path := range order {
		m := mods[path]
		if m == nil || m.AST == nil {
			continue
		}
		for _, decl := range m.AST.Decls {
			if decl.Kind != ast.DeclImport {
				continue
			}
			a.resolveImport(mods, m, decl)
		}
	}
}

func (a *Analyzer) resolveImport(mods map[string]*modgraph.Module, m *modgraph.Module, decl *ast.Node) {
	dotted := strings.Join(decl.ModulePath, ".")
	filePath := a.graph.FilePathFor(dotted)
	src, ok := mods[filePath]
	if !ok {
		a.sink.Error(diagnostics.CodeModNotFound, decl.Pos, "module %q not found", dotted)
		return
	}

	for _, name := range decl.ImportNames {
		srcSym, ok := src.Symbols.Lookup(name)
		if !ok {
			a.sink.Error(diagnostics.CodeSymUnknown, decl.Pos, "module %q has no symbol %q", dotted, name)
			continue
		}
		if !srcSym.Exported {
			a.sink.Error(diagnostics.CodeSymNotExported, decl.Pos, "%q in module %q is not exported", name, dotted)
			continue
		}

		imported := &symbols.Symbol{
			Name:         name,
			Kind:         srcSym.Kind,
			Exported:     decl.ImportExport,
			Decl:         srcSym.Decl,
			SourceModule: src,
			ReExport:     decl.ImportExport,
		}
		if !m.Symbols.Declare(imported) {
			a.sink.Error(diagnostics.CodeSymShadowsLocal, decl.Pos, "import %q shadows a declaration in module %q", name, m.DottedPath)
		}
	}
}
