package sem

import (
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

// pass3aTypeStubs allocates a canonical, still-empty types.Type for every
// non-generic struct/interface/enum declaration across every module
// before any field or signature is resolved. Splitting stub allocation
// from stub filling is what lets field/signature resolution (pass3b)
// reference a type declared in a module that has not been visited yet in
// iteration order, including a struct in module B that refers back to a
// struct in module A that itself refers to B, the same
// insert-before-recurse trick modgraph.Load uses for import cycles.
// Generic declarations are skipped: they are only materialized on
// demand, at first instantiation.
func (a *Analyzer) pass3aTypeStubs(mods map[string]*modgraph.Module, order []string) {
	a.declModule = make(map[*ast.Node]string)
	for _, path := range order {
		m := mods[path]
		if m == nil || m.AST == nil {
			continue
		}
		for _, decl := range m.AST.Decls {
			a.declModule[decl] = m.DottedPath
			if len(decl.TypeParams) > 0 {
				continue
			}
			var t *types.Type
			switch decl.Kind {
			case ast.DeclStruct:
				t = a.reg.NewStruct(decl.Name, m.DottedPath, nil, nil)
			case ast.DeclInterface:
				t = a.reg.NewInterface(decl.Name, m.DottedPath, nil)
			case ast.DeclEnum:
				t = a.reg.NewEnum(decl.Name, m.DottedPath, decl.Variants)
			default:
				continue
			}
			decl.ResolvedType = t
			if sym, ok := m.Symbols.Lookup(decl.Name); ok {
				sym.Type = t
			}
		}
	}
}

// pass3bFillTypes resolves struct fields and interface method signatures
// now that every module's stubs exist.
func (a *Analyzer) pass3bFillTypes(mods map[string]*modgraph.Module, order []string) {
	for _, path := range order {
		m := mods[path]
		if m == nil || m.AST == nil {
			continue
		}
		a.curModule = m
		for _, decl := range m.AST.Decls {
			if len(decl.TypeParams) > 0 {
				continue
			}
			switch decl.Kind {
			case ast.DeclStruct:
				a.fillStruct(decl, m)
			case ast.DeclInterface:
				a.fillInterface(decl, m)
			}
		}
	}
}

func (a *Analyzer) fillStruct(decl *ast.Node, m *modgraph.Module) {
	t := declType(decl)
	if t == nil {
		return
	}
	fields := make([]types.StructField, len(decl.Fields))
	for i, f := range decl.Fields {
		fields[i] = types.StructField{Name: f.Name, Type: a.resolveType(f.Type, m.Symbols)}
	}
	t.Fields = fields
	t.Methods = decl.Methods
}

func (a *Analyzer) fillInterface(decl *ast.Node, m *modgraph.Module) {
	t := declType(decl)
	if t == nil {
		return
	}
	sigs := make([]types.InterfaceMethod, len(decl.Signatures))
	for i, sig := range decl.Signatures {
		fnType := a.resolveFuncSignature(sig, m.Symbols, nil)
		sigs[i] = types.InterfaceMethod{Name: sig.Name, Type: fnType, Decl: sig}
	}
	t.Sigs = sigs
}

// pass3cFuncTypes resolves the function type of every non-generic
// top-level function and every non-generic struct's non-generic methods,
// once every struct/interface/enum's field and signature shape is known.
// Methods on a generic struct are resolved lazily per instantiation
// instead, since their parameter/result types may mention the struct's
// own type parameters.
func (a *Analyzer) pass3cFuncTypes(mods map[string]*modgraph.Module, order []string) {
	a.methodSelf = make(map[*ast.Node]*types.Type)
	for _, path := range order {
		m := mods[path]
		if m == nil || m.AST == nil {
			continue
		}
		a.curModule = m
		for _, decl := range m.AST.Decls {
			switch decl.Kind {
			case ast.DeclFunc:
				if len(decl.TypeParams) == 0 {
					fn := a.resolveFuncSignature(decl, m.Symbols, nil)
					if sym, ok := m.Symbols.Lookup(decl.Name); ok {
						sym.Type = fn
					}
				}
			case ast.DeclStruct:
				if len(decl.TypeParams) > 0 {
					continue
				}
				self := a.reg.NewRef(declType(decl))
				for _, method := range decl.Methods {
					if len(method.TypeParams) > 0 {
						continue
					}
					a.resolveFuncSignature(method, m.Symbols, self)
					a.methodSelf[method] = self
				}
			}
		}
	}
}

// resolveFuncSignature resolves decl's parameter and return types into a
// types.Func type, attaches it to decl.ResolvedType, and returns it. self
// is non-nil when decl is a struct method but is not read here: callers
// record the receiver type themselves (pass3c's methodSelf), and self is
// not a parameter in the Func type, matching how call-site arity checks
// ignore it.
func (a *Analyzer) resolveFuncSignature(decl *ast.Node, tbl *symbols.Table, self *types.Type) *types.Type {
	params := make([]*types.Type, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = a.resolveType(p.Type, tbl)
	}
	result := a.reg.Void()
	if decl.ReturnType != nil {
		result = a.resolveType(decl.ReturnType, tbl)
	}
	fn := a.reg.NewFunc(params, result)
	decl.ResolvedType = fn
	return fn
}
