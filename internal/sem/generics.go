package sem

import (
	"strings"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

// pushSubst/popSubst/substLookup implement the active generic
// type-parameter substitution stack described on Analyzer.substStack.
func (a *Analyzer) pushSubst(m map[string]*types.Type) {
	a.substStack = append(a.substStack, m)
}

func (a *Analyzer) popSubst() {
	a.substStack = a.substStack[:len(a.substStack)-1]
}

func (a *Analyzer) substLookup(name string) (*types.Type, bool) {
	for i := len(a.substStack) - 1; i >= 0; i-- {
		if t, ok := a.substStack[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

// mangledName renders a template name and its concrete type arguments
// into the string used both as the instantiation cache key and (by the
// backend) as the basis for the mangled C symbol. Type arguments appear
// in declaration order.
func mangledName(name string, args []*types.Type) string {
	parts := make([]string, len(args))
	for i, t := range args {
		parts[i] = t.TypeName()
	}
	return name + "[" + strings.Join(parts, ",") + "]"
}

// instantiateStruct monomorphizes a generic struct declaration for a
// concrete type-argument vector, memoized by mangled name so a repeated
// request for the same instantiation (from any module) returns the
// identical *types.Type. The stub is registered in the cache before its
// fields are filled, so a struct that references itself through a
// pointer field (a linked-list node parameterized by its own element
// type, for instance) does not recurse forever. This is the same
// insert-before-fill discipline pass3a/3b use for ordinary struct stubs.
func (a *Analyzer) instantiateStruct(templateDecl *ast.Node, args []*types.Type, tbl *symbols.Table) *types.Type {
	key := mangledName(templateDecl.Name, args)
	if cached, ok := a.instCache[key]; ok {
		a.recordInstantiation(templateDecl, args, key, cached)
		return cached.typ
	}
	if len(args) != len(templateDecl.TypeParams) {
		a.sink.Error(diagnostics.CodeTypeArity, templateDecl.Pos,
			"generic type %q expects %d type arguments, got %d", templateDecl.Name, len(templateDecl.TypeParams), len(args))
		return nil
	}

	module := a.declModule[templateDecl]
	stub := a.reg.NewStruct(key, module, nil, nil)
	// methodTypes is shared by reference with every Instantiation record
	// built from this cache entry, so filling it below back-fills records
	// made on the insert-before-fill path too.
	res := &instResult{typ: stub, methods: make(map[*ast.Node]*types.Type)}
	a.instCache[key] = res
	a.recordInstantiation(templateDecl, args, key, res)

	subst := make(map[string]*types.Type, len(args))
	for i, p := range templateDecl.TypeParams {
		subst[p] = args[i]
	}
	a.pushSubst(subst)
	fields := make([]types.StructField, len(templateDecl.Fields))
	for i, f := range templateDecl.Fields {
		fields[i] = types.StructField{Name: f.Name, Type: a.resolveType(f.Type, tbl)}
	}
	stub.Fields = fields
	stub.Methods = templateDecl.Methods

	self := a.reg.NewRef(stub)
	owner := a.modulesByDotted[module]
	for _, method := range templateDecl.Methods {
		if len(method.TypeParams) > 0 || method.Extern {
			continue
		}
		fn := a.resolveFuncSignature(method, tbl, self)
		res.methods[method] = fn
		a.checkGenericBody(owner, method, fn, self)
	}
	a.popSubst()

	return stub
}

// checkGenericBody type-checks a generic template's body once per
// monomorphization, under the substitution currently pushed onto
// substStack, so expressions inside it resolve concrete types the way
// pass4 does for non-generic bodies. Every monomorphization shares the
// same underlying template AST: only the type-level shape (field and
// parameter/return types) is specialized per instantiation, and a shared
// body node's resolved-type back-pointer reflects whichever instantiation
// was checked most recently. Codegen therefore carries an explicit type
// override per instantiation instead of reading those back-pointers.
func (a *Analyzer) checkGenericBody(owner *modgraph.Module, decl *ast.Node, fn *types.Type, self *types.Type) {
	if decl.Body == nil || owner == nil {
		return
	}
	ctx := &checkCtx{a: a, m: owner, scopes: symbols.NewScopeStack(), returnType: fn.Result, selfType: self}
	for i, p := range decl.Params {
		if i >= len(fn.Params) {
			break
		}
		ctx.scopes.Declare(&symbols.Local{Name: p.Name, Type: fn.Params[i], Decl: decl})
	}
	ctx.checkBlock(decl.Body)
}

// instantiateFunc monomorphizes a generic top-level function for a
// concrete type-argument vector. Unlike struct instantiation there is no
// field-cycle hazard, so the function type is built directly rather than
// stubbed first.
func (a *Analyzer) instantiateFunc(templateDecl *ast.Node, args []*types.Type, tbl *symbols.Table) *types.Type {
	key := mangledName(templateDecl.Name, args)
	if cached, ok := a.instCache[key]; ok {
		a.recordInstantiation(templateDecl, args, key, cached)
		return cached.typ
	}
	if len(args) != len(templateDecl.TypeParams) {
		a.sink.Error(diagnostics.CodeTypeArity, templateDecl.Pos,
			"generic function %q expects %d type arguments, got %d", templateDecl.Name, len(templateDecl.TypeParams), len(args))
		return nil
	}

	subst := make(map[string]*types.Type, len(args))
	for i, p := range templateDecl.TypeParams {
		subst[p] = args[i]
	}
	a.pushSubst(subst)
	params := make([]*types.Type, len(templateDecl.Params))
	for i, p := range templateDecl.Params {
		params[i] = a.resolveType(p.Type, tbl)
	}
	result := a.reg.Void()
	if templateDecl.ReturnType != nil {
		result = a.resolveType(templateDecl.ReturnType, tbl)
	}
	fn := a.reg.NewFunc(params, result)
	res := &instResult{typ: fn}
	a.instCache[key] = res

	if !templateDecl.Extern {
		a.checkGenericBody(a.modulesByDotted[a.declModule[templateDecl]], templateDecl, fn, nil)
	}
	a.popSubst()

	a.recordInstantiation(templateDecl, args, key, res)
	return fn
}

// instantiateMethod monomorphizes a generic method declared on structType
// for a concrete type-argument vector. The cache key embeds the struct's
// own (possibly already-instantiated) name so the same method name on two
// different structs, or on two instantiations of one generic struct,
// stays distinct.
func (a *Analyzer) instantiateMethod(structType *types.Type, templateDecl *ast.Node, args []*types.Type, tbl *symbols.Table) *types.Type {
	key := mangledName(structType.Name+"__"+templateDecl.Name, args)
	if cached, ok := a.instCache[key]; ok {
		a.recordInstantiation(templateDecl, args, key, cached)
		return cached.typ
	}
	if len(args) != len(templateDecl.TypeParams) {
		a.sink.Error(diagnostics.CodeTypeArity, templateDecl.Pos,
			"generic method %q expects %d type arguments, got %d", templateDecl.Name, len(templateDecl.TypeParams), len(args))
		return nil
	}

	subst := make(map[string]*types.Type, len(args))
	for i, p := range templateDecl.TypeParams {
		subst[p] = args[i]
	}
	a.pushSubst(subst)
	params := make([]*types.Type, len(templateDecl.Params))
	for i, p := range templateDecl.Params {
		params[i] = a.resolveType(p.Type, tbl)
	}
	result := a.reg.Void()
	if templateDecl.ReturnType != nil {
		result = a.resolveType(templateDecl.ReturnType, tbl)
	}
	fn := a.reg.NewFunc(params, result)
	res := &instResult{typ: fn, self: structType}
	a.instCache[key] = res

	self := a.reg.NewRef(structType)
	a.checkGenericBody(a.modulesByDotted[structType.Module], templateDecl, fn, self)
	a.popSubst()

	a.recordInstantiation(templateDecl, args, key, res)
	return fn
}

// recordInstantiation appends an Instantiation record onto the module
// currently being checked, so the backend can find the mangled name a
// generic callsite or struct literal binds to. It is
// called both the first time a given (template, type-argument) pair is
// monomorphized and on every later cache hit, since a second module calling
// the same instantiation still needs its own record to look codegen up
// from; a module is only recorded once per distinct instantiation even if
// it calls it many times.
func (a *Analyzer) recordInstantiation(templateDecl *ast.Node, args []*types.Type, key string, res *instResult) {
	if a.curModule == nil {
		return
	}
	for _, inst := range a.curModule.Instantiations {
		if inst.TemplateDecl == templateDecl && inst.Mangled == key {
			return
		}
	}
	a.curModule.Instantiations = append(a.curModule.Instantiations, &modgraph.Instantiation{
		TemplateDecl: templateDecl,
		TypeArgs:     args,
		Mangled:      key,
		Resolved:     res.typ,
		MethodTypes:  res.methods,
		SelfType:     res.self,
	})
}

// inferTypeArgs infers a generic function's type arguments from its call
// arguments' checked types when the call omits an explicit `[T, ...]`
// list; explicit type arguments take precedence at the caller. It returns
// false if any type parameter could not be pinned down, matching the
// ambiguous-generic-call diagnostic the caller emits.
func inferTypeArgs(templateDecl *ast.Node, argTypes []*types.Type) ([]*types.Type, bool) {
	bound := make(map[string]*types.Type, len(templateDecl.TypeParams))
	n := len(templateDecl.Params)
	if len(argTypes) < n {
		n = len(argTypes)
	}
	for i := 0; i < n; i++ {
		matchTypeParam(templateDecl.Params[i].Type, argTypes[i], bound)
	}

	out := make([]*types.Type, len(templateDecl.TypeParams))
	for i, p := range templateDecl.TypeParams {
		t, ok := bound[p]
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

// matchTypeParam walks a declared parameter's type-expression shape
// alongside a concrete argument type, recording any bare type-parameter
// name it finds (e.g. matching `T` against `int`, or `&T` against `&Box`
// to bind T to Box) into bound.
func matchTypeParam(paramExpr *ast.Node, concrete *types.Type, bound map[string]*types.Type) {
	if paramExpr == nil || concrete == nil {
		return
	}
	switch paramExpr.Kind {
	case ast.TypeSimple:
		if len(paramExpr.TypeArgs) == 0 {
			if _, isPrimitive := primitiveNames[paramExpr.Name]; !isPrimitive {
				bound[paramExpr.Name] = concrete
			}
		}
	case ast.TypeRef, ast.TypePtr:
		if concrete.Kind == types.Ref || concrete.Kind == types.Ptr {
			matchTypeParam(paramExpr.Inner, concrete.Elem, bound)
		}
	case ast.TypeArray, ast.TypeSlice:
		if concrete.Kind == types.Array || concrete.Kind == types.Slice {
			matchTypeParam(paramExpr.Inner, concrete.Elem, bound)
		}
	}
}

// satisfiesInterface reports whether structType implements every method
// ifaceType declares, matching by name, parameter count, and generic-
// parameter count. Signature-level type matching is deferred: a
// mismatched parameter type surfaces at the callsite's argument check
// instead of blocking the conversion here.
func satisfiesInterface(structType, ifaceType *types.Type) bool {
	if structType == nil || ifaceType == nil {
		return false
	}
	if structType.Kind != types.Struct || ifaceType.Kind != types.Interface {
		return false
	}
	for _, sig := range ifaceType.Sigs {
		if !hasMatchingMethod(structType, sig) {
			return false
		}
	}
	return true
}

func hasMatchingMethod(structType *types.Type, sig types.InterfaceMethod) bool {
	for _, m := range structType.Methods {
		if m.Name != sig.Name {
			continue
		}
		if sig.Decl != nil && len(m.Params) == len(sig.Decl.Params) && len(m.TypeParams) == len(sig.Decl.TypeParams) {
			return true
		}
	}
	return false
}

// recordImplementation deduplicates and appends a discovered (struct,
// interface) satisfaction pair onto owner's ImplPairs, driving the
// backend's per-module vtable emission.
func recordImplementation(owner *modgraph.Module, structType, ifaceType *types.Type) {
	for _, p := range owner.ImplPairs {
		if p.Struct == structType && p.Interface == ifaceType {
			return
		}
	}
	owner.ImplPairs = append(owner.ImplPairs, modgraph.ImplPair{Struct: structType, Interface: ifaceType})
}
