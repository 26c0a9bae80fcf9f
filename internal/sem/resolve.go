// Package sem implements the multi-pass semantic analyzer: symbol
// collection, import resolution, type resolution, and body checking, plus
// the generic monomorphization engine and interface-satisfaction
// discovery that drive the C backend's vtable emission. The type model is
// nominal; there is no inference beyond generic-argument inference at
// call sites, so the analyzer walks the AST once per pass computing
// concrete types directly rather than solving constraints.
package sem

import (
	"strconv"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

var primitiveNames = map[string]types.Kind{
	"void": types.Void, "bool": types.Bool, "byte": types.Byte,
	"short": types.Short, "ushort": types.UShort, "int": types.Int,
	"uint": types.UInt, "long": types.Long, "ulong": types.ULong,
	"isize": types.ISize, "usize": types.USize, "float": types.Float,
	"double": types.Double, "string": types.String,
}

// resolveType turns a type-expression Node into a concrete *types.Type.
// Named types (struct/interface/enum) are looked up in tbl, which must
// already hold every canonical type stub for the module (see pass3a's
// two-step stub-then-fill discipline). A lookup failure emits
// TYPE-UNKNOWN and returns nil; callers must treat a nil resolveType
// result the same way the rest of the analyzer treats a nil
// resolved-type back-pointer: already reported, do not cascade.
func (a *Analyzer) resolveType(n *ast.Node, tbl *symbols.Table) *types.Type {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ast.TypeSimple:
		return a.resolveSimpleType(n, tbl)
	case ast.TypeRef:
		inner := a.resolveType(n.Inner, tbl)
		if inner == nil {
			return nil
		}
		return a.reg.NewRef(inner)
	case ast.TypePtr:
		inner := a.resolveType(n.Inner, tbl)
		if inner == nil {
			return nil
		}
		return a.reg.NewPtr(inner)
	case ast.TypeArray:
		elem := a.resolveType(n.Inner, tbl)
		if elem == nil {
			return nil
		}
		size, err := strconv.Atoi(n.Size.Text)
		if err != nil {
			a.sink.Error(diagnostics.CodeTypeUnknown, n.Pos, "invalid array size %q", n.Size.Text)
			return nil
		}
		return a.reg.NewArray(elem, size)
	case ast.TypeSlice:
		elem := a.resolveType(n.Inner, tbl)
		if elem == nil {
			return nil
		}
		return a.reg.NewSlice(elem)
	default:
		a.sink.Error(diagnostics.CodeTypeUnknown, n.Pos, "not a type expression")
		return nil
	}
}

func (a *Analyzer) resolveSimpleType(n *ast.Node, tbl *symbols.Table) *types.Type {
	if t, ok := a.substLookup(n.Name); ok {
		return t
	}
	if kind, ok := primitiveNames[n.Name]; ok {
		return a.reg.Primitive(kind)
	}

	sym, ok := tbl.Lookup(n.Name)
	if !ok {
		a.sink.Error(diagnostics.CodeTypeUnknown, n.Pos, "unknown type %q", n.Name)
		return nil
	}
	// declType reads off the shared Decl node rather than sym.Type: an
	// imported symbol copies its Decl pointer in pass2, before the source
	// module's pass3a has necessarily run, so the only value that is
	// guaranteed live by the time this is called is the back-pointer on
	// the declaration node itself.
	base := declType(sym.Decl)
	// A generic template has no resolved type of its own (pass3a skips
	// it); with type arguments it is instantiated below instead.
	generic := sym.Decl != nil && len(sym.Decl.TypeParams) > 0
	if base == nil && !(generic && len(n.TypeArgs) > 0) {
		a.sink.Error(diagnostics.CodeTypeUnknown, n.Pos, "type %q has no resolved definition", n.Name)
		return nil
	}

	if len(n.TypeArgs) == 0 {
		return base
	}
	if sym.Decl == nil || len(sym.Decl.TypeParams) == 0 {
		a.sink.Error(diagnostics.CodeTypeGenericArgs, n.Pos, "%q is not generic", n.Name)
		return base
	}

	args := make([]*types.Type, len(n.TypeArgs))
	for i, argNode := range n.TypeArgs {
		args[i] = a.resolveType(argNode, tbl)
	}
	for _, arg := range args {
		if arg == nil {
			return base
		}
	}
	return a.instantiateStruct(sym.Decl, args, tbl)
}

// declType reads a declaration's resolved type off its shared AST node.
func declType(decl *ast.Node) *types.Type {
	if decl == nil || decl.ResolvedType == nil {
		return nil
	}
	t, _ := decl.ResolvedType.(*types.Type)
	return t
}
