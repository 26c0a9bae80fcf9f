package codegen

import (
	"fmt"
	"strings"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

// beginBody opens a fresh scope stack seeded with a function or method's
// parameters, mirroring internal/sem.checkFuncBody so lowerBlock's
// implicit-local detection agrees with what body-checking already decided.
func (e *emitter) beginBody(params []*ast.Param, paramTypes []*types.Type, selfType *types.Type) {
	e.scopes = symbols.NewScopeStack()
	if selfType != nil {
		e.scopes.Declare(&symbols.Local{Name: "self", Type: selfType})
	}
	for i, p := range params {
		if i >= len(paramTypes) {
			break
		}
		e.scopes.Declare(&symbols.Local{Name: p.Name, Type: paramTypes[i]})
	}
}

// nodeType reads a node's analyzer-resolved type off its back-pointer
// (mirrors internal/sem.declType, duplicated here rather than imported so
// the backend does not depend on the analyzer package for one accessor).
func nodeType(n *ast.Node) *types.Type {
	if n == nil || n.ResolvedType == nil {
		return nil
	}
	t, _ := n.ResolvedType.(*types.Type)
	return t
}

// emitEnums renders each enum declaration as a C enum whose constants are
// the mangled type name joined to each variant, so a variant reference in
// any module lowers to the same identifier.
func (e *emitter) emitEnums() {
	for _, decl := range sortedDecls(e.mod, ast.DeclEnum) {
		t := nodeType(decl)
		if t == nil {
			continue
		}
		name := e.mangle(t.Module, t.Name)
		var members strings.Builder
		for _, v := range t.Variants {
			fmt.Fprintf(&members, "    %s__%s,\n", name, v)
		}
		def := fmt.Sprintf("typedef enum %s {\n%s} %s;\n\n", name, members.String(), name)
		if decl.Exported {
			e.header.WriteString(def)
		} else {
			e.source.WriteString(def)
		}
	}
}

func (e *emitter) emitStructs() {
	for _, decl := range sortedDecls(e.mod, ast.DeclStruct) {
		if len(decl.TypeParams) > 0 {
			continue // materialized lazily per instantiation below
		}
		t := nodeType(decl)
		if t == nil {
			continue
		}
		e.emitStructType(t, decl.Exported)
	}
	for _, inst := range e.mod.Instantiations {
		if inst.TemplateDecl.Kind != ast.DeclStruct {
			continue
		}
		e.emitStructType(inst.Resolved, false)
	}
}

func (e *emitter) emitStructType(t *types.Type, exported bool) {
	name := e.mangle(t.Module, sanitizeIdent(t.Name))
	var fields strings.Builder
	for _, f := range t.Fields {
		fmt.Fprintf(&fields, "    %s;\n", cDecl(e.cType(f.Type), f.Name))
	}
	def := fmt.Sprintf("typedef struct %s {\n%s} %s;\n\n", name, fields.String(), name)
	if exported {
		e.header.WriteString(def)
		for _, m := range t.Methods {
			if m.Exported && len(m.TypeParams) == 0 && nodeType(m) != nil {
				e.header.WriteString(e.methodSig(t, m, nodeType(m), e.methodName(t, m.Name)) + ";\n")
			}
		}
		e.header.WriteString("\n")
	} else {
		e.source.WriteString(def)
	}
}

func (e *emitter) emitInterfaces() {
	for _, decl := range sortedDecls(e.mod, ast.DeclInterface) {
		t := nodeType(decl)
		if t == nil {
			continue
		}
		e.emitInterfaceType(t, decl.Exported)
	}
}

func (e *emitter) emitInterfaceType(t *types.Type, exported bool) {
	vtable := e.vtableTypeName(t)
	ref := e.refTypeName(t)
	var members strings.Builder
	for _, sig := range t.Sigs {
		members.WriteString("    " + e.funcPtrDecl(sig.Name, sig.Type) + ";\n")
	}
	def := fmt.Sprintf("typedef struct %s {\n%s} %s;\n\ntypedef struct %s { void* data; %s* vtable; } %s;\n\n",
		vtable, members.String(), vtable, ref, vtable, ref)
	if exported {
		e.header.WriteString(def)
	} else {
		e.source.WriteString(def)
	}
}

// funcPtrDecl renders a vtable member: `R (*name)(void* self, …params)`.
func (e *emitter) funcPtrDecl(name string, fn *types.Type) string {
	parts := []string{"void* self"}
	for i, p := range fn.Params {
		parts = append(parts, cDecl(e.cType(p), fmt.Sprintf("a%d", i)))
	}
	return fmt.Sprintf("%s (*%s)(%s)", e.cType(fn.Result), name, strings.Join(parts, ", "))
}

// emitVtables emits, for every discovered (struct, interface) pair owned
// by this module, the static wrapper functions and the vtable instance
// (external linkage, see emitVtablePair). Implementation pairs are owned by the struct's declaring
// module, so the emitter switches its mangling to the interface's own
// module only for the vtable struct type name (already mangled via
// vtableTypeName), and to the struct's module for the wrapper bodies.
func (e *emitter) emitVtables() {
	for _, pair := range sortedImplPairs(e.mod.ImplPairs) {
		e.emitVtablePair(pair.Struct, pair.Interface)
	}
}

func (e *emitter) emitVtablePair(st, iface *types.Type) {
	vtableType := e.vtableTypeName(iface)
	structMangled := e.mangle(st.Module, sanitizeIdent(st.Name))
	instanceName := e.mangleVtable(st.Module, sanitizeIdent(st.Name), iface.Name)

	var wrappers strings.Builder
	var members []string
	for _, sig := range iface.Sigs {
		wrapper := e.mangleWrapper(st.Module, sanitizeIdent(st.Name), sig.Name)
		methodMangled := structMangled + "__" + sig.Name
		params := []string{"void* self"}
		args := []string{fmt.Sprintf("(%s*)self", structMangled)}
		for i, p := range sig.Type.Params {
			pname := fmt.Sprintf("a%d", i)
			params = append(params, cDecl(e.cType(p), pname))
			args = append(args, pname)
		}
		ret := e.cType(sig.Type.Result)
		body := fmt.Sprintf("%s(%s)", methodMangled, strings.Join(args, ", "))
		if sig.Type.Result == nil || sig.Type.Result.Kind == types.Void {
			fmt.Fprintf(&wrappers, "static %s %s(%s) {\n    %s;\n}\n\n", ret, wrapper, strings.Join(params, ", "), body)
		} else {
			fmt.Fprintf(&wrappers, "static %s %s(%s) {\n    return %s;\n}\n\n", ret, wrapper, strings.Join(params, ", "), body)
		}
		members = append(members, fmt.Sprintf("    .%s = %s,\n", sig.Name, wrapper))
	}

	e.source.WriteString(wrappers.String())
	// The instance has external linkage: a callsite in another module
	// builds the fat ref by naming this symbol, so it cannot be static the
	// way the wrappers are. The header declaration is only emitted when
	// the interface itself is header-visible; an unexported interface can
	// never be satisfied from another module anyway.
	if e.ifaceVisibleInHeader(iface) {
		fmt.Fprintf(&e.header, "extern %s %s;\n", vtableType, instanceName)
	}
	fmt.Fprintf(&e.source, "%s %s = {\n%s};\n\n", vtableType, instanceName, strings.Join(members, ""))
}

func (e *emitter) ifaceVisibleInHeader(iface *types.Type) bool {
	for _, m := range e.graph.Modules() {
		if m == nil || m.DottedPath != iface.Module {
			continue
		}
		if sym, ok := m.Symbols.Lookup(iface.Name); ok && sym.Decl != nil {
			return sym.Decl.Exported
		}
	}
	return false
}

func (e *emitter) emitConstsAndVars() {
	for _, decl := range e.mod.AST.Decls {
		if decl.Kind != ast.DeclConst && decl.Kind != ast.DeclVar {
			continue
		}
		t := nodeType(decl)
		name := e.mangle(e.mod.DottedPath, decl.Name)
		cty := e.cType(t)
		var init string
		if decl.Init != nil {
			init = " = " + e.lowerExpr(decl.Init)
		}
		if decl.Exported {
			fmt.Fprintf(&e.header, "extern %s;\n", cDecl(cty, name))
			fmt.Fprintf(&e.source, "%s%s;\n", cDecl(cty, name), init)
		} else {
			fmt.Fprintf(&e.source, "static %s%s;\n", cDecl(cty, name), init)
		}
	}
	e.source.WriteString("\n")
	if hasTopLevelBinding(e.mod) {
		e.header.WriteString("\n")
	}
}

func hasTopLevelBinding(m *modgraph.Module) bool {
	for _, d := range m.AST.Decls {
		if d.Kind == ast.DeclConst || d.Kind == ast.DeclVar {
			return true
		}
	}
	return false
}

// emitPrototypes writes a static (or, for exported names, already-declared
// in the header) prototype for every function and method this module will
// define, before any bodies or vtable wrappers are emitted, so every
// cross-call within the translation unit has a visible declaration first.
func (e *emitter) emitPrototypes() {
	for _, decl := range sortedDecls(e.mod, ast.DeclFunc) {
		if len(decl.TypeParams) > 0 || decl.Extern {
			continue
		}
		e.emitFuncPrototype(decl, e.mod.DottedPath, decl.Name, nil)
	}
	for _, decl := range sortedDecls(e.mod, ast.DeclStruct) {
		if len(decl.TypeParams) > 0 {
			continue
		}
		st := nodeType(decl)
		if st == nil {
			continue
		}
		for _, method := range decl.Methods {
			if len(method.TypeParams) > 0 || method.Extern {
				continue
			}
			e.emitMethodPrototype(st, method, nil)
		}
	}
	for _, inst := range e.mod.Instantiations {
		switch {
		case inst.SelfType != nil:
			e.emitGenericMethodInst(inst, true)
		case inst.TemplateDecl.Kind == ast.DeclFunc:
			e.emitFuncPrototype(inst.TemplateDecl, e.mod.DottedPath, inst.Mangled, inst.Resolved)
		case inst.TemplateDecl.Kind == ast.DeclStruct:
			for _, method := range inst.TemplateDecl.Methods {
				if len(method.TypeParams) > 0 || method.Extern {
					continue
				}
				e.emitMethodPrototype(inst.Resolved, method, inst.MethodTypes[method])
			}
		}
	}
}

func (e *emitter) emitFuncPrototype(decl *ast.Node, modDotted, mangledName string, fnOverride *types.Type) {
	fn := fnOverride
	if fn == nil {
		fn = nodeType(decl)
	}
	if fn == nil {
		return
	}
	name := e.mangle(modDotted, sanitizeIdent(mangledName))
	params := make([]string, len(decl.Params))
	for i, p := range decl.Params {
		var ct *types.Type
		if i < len(fn.Params) {
			ct = fn.Params[i]
		}
		params[i] = cDecl(e.cType(ct), p.Name)
	}
	sig := fmt.Sprintf("%s %s(%s)", e.cType(fn.Result), name, strings.Join(params, ", "))
	if decl.Exported {
		e.header.WriteString(sig + ";\n")
	} else {
		fmt.Fprintf(&e.source, "static %s;\n", sig)
	}
}

func (e *emitter) emitMethodPrototype(st *types.Type, method *ast.Node, fnOverride *types.Type) {
	fn := fnOverride
	if fn == nil {
		fn = nodeType(method)
	}
	if method.Extern || fn == nil {
		return
	}
	sig := e.methodSig(st, method, fn, e.methodName(st, method.Name))
	if method.Exported {
		e.header.WriteString(sig + ";\n")
	} else {
		fmt.Fprintf(&e.source, "static %s;\n", sig)
	}
}

func (e *emitter) emitFunctions() {
	for _, decl := range sortedDecls(e.mod, ast.DeclFunc) {
		if len(decl.TypeParams) > 0 {
			continue
		}
		e.emitFunc(decl, e.mod.DottedPath, decl.Name, nil)
	}
	for _, decl := range sortedDecls(e.mod, ast.DeclStruct) {
		if len(decl.TypeParams) > 0 {
			continue
		}
		st := nodeType(decl)
		if st == nil {
			continue
		}
		for _, method := range decl.Methods {
			if len(method.TypeParams) > 0 {
				continue
			}
			e.emitMethod(st, method, nil)
		}
	}
	for _, inst := range e.mod.Instantiations {
		switch {
		case inst.SelfType != nil:
			e.emitGenericMethodInst(inst, false)
		case inst.TemplateDecl.Kind == ast.DeclFunc:
			e.emitFunc(inst.TemplateDecl, e.mod.DottedPath, inst.Mangled, inst.Resolved)
		case inst.TemplateDecl.Kind == ast.DeclStruct:
			st := inst.Resolved
			for _, method := range inst.TemplateDecl.Methods {
				if len(method.TypeParams) > 0 {
					continue
				}
				e.emitMethod(st, method, inst.MethodTypes[method])
			}
		}
	}
}

func (e *emitter) emitMethod(st *types.Type, method *ast.Node, fnOverride *types.Type) {
	if method.Extern {
		return
	}
	fn := fnOverride
	if fn == nil {
		fn = nodeType(method)
	}
	if fn == nil {
		return
	}
	sig := e.methodSig(st, method, fn, e.methodName(st, method.Name))
	if !method.Exported {
		sig = "static " + sig
	}
	e.source.WriteString(sig + " {\n")
	e.beginBody(method.Params, fn.Params, types_NewSyntheticRef(st))
	e.lowerBlock(method.Body, 1)
	e.source.WriteString("}\n\n")
}

// emitGenericMethodInst emits one generic-method monomorphization: a
// static function named by the instantiation's mangled key, with the
// receiver struct's reference type as its self parameter. It lives in the
// translation unit of whichever module triggered the instantiation, so
// internal linkage keeps repeated instantiations in other modules from
// colliding.
func (e *emitter) emitGenericMethodInst(inst *modgraph.Instantiation, protoOnly bool) {
	st := inst.SelfType
	fn := inst.Resolved
	if st == nil || fn == nil {
		return
	}
	name := e.mangle(st.Module, sanitizeIdent(inst.Mangled))
	sig := e.methodSig(st, inst.TemplateDecl, fn, name)
	if protoOnly {
		fmt.Fprintf(&e.source, "static %s;\n", sig)
		return
	}
	e.source.WriteString("static " + sig + " {\n")
	e.beginBody(inst.TemplateDecl.Params, fn.Params, types_NewSyntheticRef(st))
	e.lowerBlock(inst.TemplateDecl.Body, 1)
	e.source.WriteString("}\n\n")
}

// types_NewSyntheticRef builds a Ref(st) for rendering the `self` receiver
// type; it does not go through the registry since it is only ever used to
// ask cType for a spelling, never compared or cached.
func types_NewSyntheticRef(st *types.Type) *types.Type {
	return &types.Type{Kind: types.Ref, Elem: st}
}

// methodName is the mangled symbol for st's method: the struct mangling
// plus a double-underscore method segment.
func (e *emitter) methodName(st *types.Type, method string) string {
	return e.mangle(st.Module, sanitizeIdent(st.Name)) + "__" + method
}

func (e *emitter) methodSig(st *types.Type, method *ast.Node, fn *types.Type, name string) string {
	params := []string{e.cType(types_NewSyntheticRef(st)) + " self"}
	for i, p := range method.Params {
		if fn != nil && i < len(fn.Params) {
			params = append(params, cDecl(e.cType(fn.Params[i]), p.Name))
		}
	}
	ret := "void"
	if fn != nil {
		ret = e.cType(fn.Result)
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(params, ", "))
}

// emitFunc emits one function, either a plain declaration (fnOverride nil,
// its type read off decl's own ResolvedType back-pointer) or one generic
// instantiation (fnOverride the concrete *types.Type internal/sem recorded
// for it, since a generic template's own AST node is never stamped with a
// single resolved type, since every instantiation shares the template but has
// its own signature).
func (e *emitter) emitFunc(decl *ast.Node, modDotted, mangledOverrideOrName string, fnOverride *types.Type) {
	fn := fnOverride
	if fn == nil {
		fn = nodeType(decl)
	}
	if fn == nil && !decl.Extern {
		return
	}
	name := e.mangle(modDotted, sanitizeIdent(mangledOverrideOrName))
	if decl.Extern {
		params := []string{}
		for i, p := range decl.Params {
			var pt *types.Type
			if fn != nil && i < len(fn.Params) {
				pt = fn.Params[i]
			}
			params = append(params, cDecl(e.cType(pt), p.Name))
		}
		ret := "void"
		if fn != nil {
			ret = e.cType(fn.Result)
		}
		decl2 := fmt.Sprintf("extern %s %s(%s);\n", ret, name, strings.Join(params, ", "))
		// Header declaration only for exported externs; a non-exported one
		// is declared in the translation unit so its own callsites compile.
		if decl.Exported {
			e.header.WriteString(decl2)
		} else {
			e.source.WriteString(decl2)
		}
		return
	}

	params := make([]string, len(decl.Params))
	for i, p := range decl.Params {
		var ct *types.Type
		if i < len(fn.Params) {
			ct = fn.Params[i]
		}
		params[i] = cDecl(e.cType(ct), p.Name)
	}
	sig := fmt.Sprintf("%s %s(%s)", e.cType(fn.Result), name, strings.Join(params, ", "))
	if !decl.Exported {
		sig = "static " + sig
	}
	e.source.WriteString(sig + " {\n")
	e.beginBody(decl.Params, fn.Params, nil)
	e.lowerBlock(decl.Body, 1)
	e.source.WriteString("}\n\n")
}

func (e *emitter) emitEntryWrapper() {
	mainFn := e.mangle(e.mod.DottedPath, "main")
	e.source.WriteString("int main(void) {\n")
	var resultTy *types.Type
	for _, decl := range e.mod.AST.Decls {
		if decl.Kind == ast.DeclFunc && decl.Name == "main" {
			resultTy = nodeType(decl)
		}
	}
	if resultTy != nil && resultTy.Result != nil && types.IsInteger(resultTy.Result.Kind) {
		fmt.Fprintf(&e.source, "    return (int)%s();\n", mainFn)
	} else {
		fmt.Fprintf(&e.source, "    %s();\n    return 0;\n", mainFn)
	}
	e.source.WriteString("}\n")
}

// cDecl renders a C variable declaration `type name`, special-casing
// nothing beyond a space join; none of this language's types need C's
// right-to-left declarator syntax (no raw function pointers or
// multi-dimensional arrays are surfaced to user code).
func cDecl(ctype, name string) string {
	return ctype + " " + name
}
