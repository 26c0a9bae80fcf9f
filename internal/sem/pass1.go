package sem

import (
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
)

// pass1Collect builds each module's symbol table from its own top-level
// declarations. Imports are skipped here; they are resolved in pass 2,
// once every module's own names are known.
func (a *Analyzer) pass1Collect(mods map[string]*modgraph.Module, order []string) {
	for _, path := range order {
		m := mods[path]
		if m == nil || m.AST == nil {
			continue
		}
		for _, decl := range m.AST.Decls {
			a.collectDecl(m, decl)
		}
	}
}

func (a *Analyzer) collectDecl(m *modgraph.Module, decl *ast.Node) {
	var kind symbols.Kind
	switch decl.Kind {
	case ast.DeclImport:
		return
	case ast.DeclFunc:
		kind = symbols.KindFunc
	case ast.DeclStruct:
		kind = symbols.KindStruct
	case ast.DeclInterface:
		kind = symbols.KindInterface
	case ast.DeclEnum:
		kind = symbols.KindEnum
	case ast.DeclConst:
		kind = symbols.KindConst
	case ast.DeclVar:
		kind = symbols.KindVar
	default:
		return
	}

	sym := &symbols.Symbol{Name: decl.Name, Kind: kind, Exported: decl.Exported, Decl: decl}
	if !m.Symbols.Declare(sym) {
		a.sink.Error(diagnostics.CodeSymDuplicate, decl.Pos, "%q is already declared in module %q", decl.Name, m.DottedPath)
	}
}
