package codegen

import (
	"fmt"
	"strings"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

// lowerExpr renders n as a C expression. It reads types purely off the
// ResolvedType back-pointer internal/sem stamped onto every expression
// node during checking rather than re-deriving them.
func (e *emitter) lowerExpr(n *ast.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case ast.ExprInt:
		return n.Text
	case ast.ExprFloat:
		return n.Text
	case ast.ExprString:
		return e.lowerStringLiteral(n.Text)
	case ast.ExprBool:
		return n.Text
	case ast.ExprNull:
		return "NULL"
	case ast.ExprSelf:
		// self is always the receiver pointer itself in C (methodSig
		// renders it as `T* self`), matching how every other Ref value
		// lowers: lowerField and lowerMethodCall both expect a self
		// expression to already be the pointer, not a dereferenced value.
		return "self"
	case ast.ExprIdent:
		return e.lowerIdent(n)
	case ast.ExprParen:
		return "(" + e.lowerExpr(n.Inner) + ")"
	case ast.ExprUnary:
		return e.lowerUnary(n)
	case ast.ExprBinary:
		return e.lowerBinary(n)
	case ast.ExprCall:
		return e.lowerCall(n)
	case ast.ExprMethodCall:
		return e.lowerMethodCall(n)
	case ast.ExprField:
		return e.lowerField(n)
	case ast.ExprStructLiteral:
		return e.lowerStructLiteral(n)
	case ast.ExprCast:
		return fmt.Sprintf("((%s)%s)", e.cType(nodeType(n)), e.lowerExpr(n.CastExpr))
	case ast.ExprSizeof:
		return fmt.Sprintf("sizeof(%s)", e.cType(nodeType(n.SizeofType)))
	case ast.ExprArrayLiteral:
		return e.lowerArrayLiteral(n)
	case ast.ExprIndex:
		return fmt.Sprintf("%s.ptr[%s]", e.lowerExpr(n.IndexTarget), e.lowerExpr(n.IndexExpr))
	}
	return ""
}

// lowerStringLiteral renders a string literal as a compound literal of the
// anc__string {ptr,len} struct; the string type carries an explicit
// length rather than relying on a C nul terminator. The token text still
// carries the source delimiters (the lexer records the raw slice), so the
// quotes are stripped here before the bytes and length are computed.
func (e *emitter) lowerStringLiteral(text string) string {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	return fmt.Sprintf("((anc__string){ .ptr = (uint8_t*)%q, .len = %d })", text, len(text))
}

// lowerIdent resolves an identifier the way internal/sem.checkIdent does:
// a local (parameter or implicitly-declared body local) renders as its bare
// name; anything else is a module-level symbol, rendered as its mangled C
// name, qualified by whichever module actually declared it (its own module,
// or the module it was imported from).
func (e *emitter) lowerIdent(n *ast.Node) string {
	if _, ok := e.scopes.Lookup(n.Name); ok {
		return n.Name
	}
	sym, ok := e.mod.Symbols.Lookup(n.Name)
	if !ok {
		return n.Name
	}
	owner := e.mod.DottedPath
	if sym.SourceModule != nil {
		owner = sym.SourceModule.Path()
	}
	return e.mangle(owner, sym.Name)
}

func (e *emitter) lowerUnary(n *ast.Node) string {
	operand := e.lowerExpr(n.Operand)
	switch n.Text {
	case "not":
		return "(!" + operand + ")"
	case "-":
		return "(-" + operand + ")"
	case "*":
		return "(*" + operand + ")"
	case "&":
		return "(&" + operand + ")"
	}
	return operand
}

func (e *emitter) lowerBinary(n *ast.Node) string {
	op := n.Text
	switch op {
	case "and":
		op = "&&"
	case "or":
		op = "||"
	}
	left := e.lowerExpr(n.Left)
	// String equality has no native C operator; anc__string compares by
	// length then contents (the backend's own synthesized helper, not a
	// libc routine, since the string's byte buffer is not nul-terminated).
	leftT := nodeType(n.Left)
	if (op == "==" || op == "!=") && leftT != nil && leftT.Kind == types.String {
		cmp := fmt.Sprintf("anc__string_eq(%s, %s)", left, e.lowerExpr(n.Right))
		if op == "!=" {
			return "(!" + cmp + ")"
		}
		return cmp
	}
	return fmt.Sprintf("(%s %s %s)", left, op, e.lowerExpr(n.Right))
}

func (e *emitter) lowerCall(n *ast.Node) string {
	name := n.Callee.Name
	sym, ok := e.mod.Symbols.Lookup(name)
	mangled := name
	var fn *types.Type
	if ok {
		owner := e.mod.DottedPath
		if sym.SourceModule != nil {
			owner = sym.SourceModule.Path()
		}
		target := name
		fn = nodeType(sym.Decl)
		if fn == nil {
			fn = sym.Type
		}
		if inst, found := e.instantiationFor(sym, n); found {
			target = sanitizeIdent(inst)
			for _, i := range e.mod.Instantiations {
				if i.Mangled == inst {
					fn = i.Resolved
				}
			}
		}
		mangled = e.mangle(owner, target)
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		var paramT *types.Type
		if fn != nil && i < len(fn.Params) {
			paramT = fn.Params[i]
		}
		args[i] = e.lowerArgForParam(a, paramT)
	}
	return fmt.Sprintf("%s(%s)", mangled, strings.Join(args, ", "))
}

// lowerArgForParam lowers a call argument, wrapping it into an interface
// fat-ref compound literal when the declared parameter expects an
// interface and the argument is a struct value, or when both sides are
// wrapped in the same Ref/Ptr layer (`&Struct` flowing into
// `&Interface`). The conversion to the {data,vtable} representation
// happens at the point a struct value flows into an interface-typed
// slot, however it got there. Only addressable argument expressions
// (identifiers, fields, self, indexing, struct literals) are handled for
// the bare-struct case; passing the non-addressable result of a call
// directly where an interface is expected is not supported.
func (e *emitter) lowerArgForParam(arg *ast.Node, paramT *types.Type) string {
	argT := nodeType(arg)
	if paramT == nil || argT == nil {
		return e.lowerExpr(arg)
	}
	if paramT.Kind == types.Interface && argT.Kind == types.Struct {
		return e.wrapStructAsInterfaceAddr(e.addressableExpr(arg), argT, paramT)
	}
	if paramT.Kind == argT.Kind && (paramT.Kind == types.Ref || paramT.Kind == types.Ptr) &&
		paramT.Elem.Kind == types.Interface && argT.Elem.Kind == types.Struct {
		return e.wrapStructAsInterfaceAddr(e.lowerExpr(arg), argT.Elem, paramT.Elem)
	}
	return e.lowerExpr(arg)
}

// wrapStructAsInterfaceAddr builds the {data,vtable} compound literal an
// interface-typed slot expects, given addr (a C expression already
// evaluating to a pointer to the struct value).
func (e *emitter) wrapStructAsInterfaceAddr(addr string, structT, ifaceT *types.Type) string {
	vtableInstance := e.mangleVtable(structT.Module, sanitizeIdent(structT.Name), ifaceT.Name)
	return fmt.Sprintf("((%s){ .data = (void*)%s, .vtable = &%s })", e.refTypeName(ifaceT), addr, vtableInstance)
}

// addressableExpr renders n's address: a dereference `*p` yields p itself,
// and anything else gets a leading &. That is well-formed C for the lvalue
// kinds (a bare name, a field/index access, a C99 compound literal); a
// call or method-call result is not an lvalue, so & of it is not valid C.
func (e *emitter) addressableExpr(n *ast.Node) string {
	if n.Kind == ast.ExprUnary && n.Text == "*" {
		return e.lowerExpr(n.Operand)
	}
	return "&" + e.lowerExpr(n)
}

// instantiationFor finds the mangled name a generic callsite binds to, by
// re-deriving the same mangled key internal/sem computed for it: either
// from the call's explicit type arguments, when every one of them is
// itself a bare primitive or struct/interface name (the common case, and
// the only one resolvable without a full type-expression resolver in this
// backend), or, when the call omitted them, by matching the callee's
// declared parameter shapes against the checked argument types the same
// way internal/sem's inferTypeArgs does. When a call used an explicit
// type-argument list containing anything beyond a bare name (a nested
// generic or array/slice type argument), the call falls back to whichever
// instantiation this module recorded first for the template.
func (e *emitter) instantiationFor(sym *symbols.Symbol, n *ast.Node) (string, bool) {
	if sym.Decl == nil || len(sym.Decl.TypeParams) == 0 {
		return "", false
	}
	if key, ok := e.instantiationKey(sym.Decl.Name, sym.Decl, n); ok {
		for _, inst := range e.mod.Instantiations {
			if inst.TemplateDecl == sym.Decl && inst.Mangled == key {
				return inst.Mangled, true
			}
		}
	}
	for _, inst := range e.mod.Instantiations {
		if inst.TemplateDecl == sym.Decl {
			return inst.Mangled, true
		}
	}
	return "", false
}

// instantiationKey derives the mangled instantiation key for a call to a
// generic function or method, from its explicit type-argument list if
// present, or else from the checked types of its arguments matched
// positionally against the template's declared parameter shapes. prefix
// is the template's own key prefix (the bare name for functions, the
// struct-qualified name for methods).
func (e *emitter) instantiationKey(prefix string, templateDecl *ast.Node, n *ast.Node) (string, bool) {
	var argTypes []*types.Type
	if len(n.TypeArgs) > 0 {
		argTypes = make([]*types.Type, len(n.TypeArgs))
		for i, ta := range n.TypeArgs {
			t, ok := e.bareTypeExprType(ta)
			if !ok {
				return "", false
			}
			argTypes[i] = t
		}
	} else {
		bound := make(map[string]*types.Type, len(templateDecl.TypeParams))
		count := len(templateDecl.Params)
		if len(n.Args) < count {
			count = len(n.Args)
		}
		for i := 0; i < count; i++ {
			bindTypeParam(templateDecl.Params[i].Type, nodeType(n.Args[i]), bound)
		}
		argTypes = make([]*types.Type, len(templateDecl.TypeParams))
		for i, p := range templateDecl.TypeParams {
			t, ok := bound[p]
			if !ok {
				return "", false
			}
			argTypes[i] = t
		}
	}
	parts := make([]string, len(argTypes))
	for i, t := range argTypes {
		if t == nil {
			return "", false
		}
		parts[i] = t.TypeName()
	}
	return prefix + "[" + strings.Join(parts, ",") + "]", true
}

// bareTypeExprType resolves a type-expression node to a concrete type only
// when it is a bare, non-generic name (a primitive or an already-declared
// struct/interface this module can see via its symbol table); anything
// more structured returns ok == false.
func (e *emitter) bareTypeExprType(n *ast.Node) (*types.Type, bool) {
	if n.Kind != ast.TypeSimple || len(n.TypeArgs) > 0 {
		return nil, false
	}
	if t, ok := primitiveTypeNamed(n.Name); ok {
		return t, true
	}
	sym, ok := e.mod.Symbols.Lookup(n.Name)
	if !ok || sym.Decl == nil {
		return nil, false
	}
	return nodeType(sym.Decl), true
}

func bindTypeParam(paramExpr *ast.Node, concrete *types.Type, bound map[string]*types.Type) {
	if paramExpr == nil || concrete == nil {
		return
	}
	switch paramExpr.Kind {
	case ast.TypeSimple:
		if len(paramExpr.TypeArgs) == 0 {
			if _, isPrim := primitiveTypeNamed(paramExpr.Name); !isPrim {
				bound[paramExpr.Name] = concrete
			}
		}
	case ast.TypeRef, ast.TypePtr:
		if concrete.Kind == types.Ref || concrete.Kind == types.Ptr {
			bindTypeParam(paramExpr.Inner, concrete.Elem, bound)
		}
	case ast.TypeArray, ast.TypeSlice:
		if concrete.Kind == types.Array || concrete.Kind == types.Slice {
			bindTypeParam(paramExpr.Inner, concrete.Elem, bound)
		}
	}
}

var primitiveKindByName = map[string]types.Kind{
	"void": types.Void, "bool": types.Bool, "byte": types.Byte,
	"short": types.Short, "ushort": types.UShort, "int": types.Int,
	"uint": types.UInt, "long": types.Long, "ulong": types.ULong,
	"isize": types.ISize, "usize": types.USize, "float": types.Float,
	"double": types.Double, "string": types.String,
}

func primitiveTypeNamed(name string) (*types.Type, bool) {
	k, ok := primitiveKindByName[name]
	if !ok {
		return nil, false
	}
	return &types.Type{Kind: k}, true
}

// lowerMethodCall dispatches a method call either through a struct's
// mangled method function (static dispatch) or through an interface
// value's vtable function pointer (`obj.vtable->m(obj.data, ...)`),
// matching internal/sem.checkMethodCall's own Struct/Interface split on
// the receiver's unwrapped type.
func (e *emitter) lowerMethodCall(n *ast.Node) string {
	recvT := nodeType(n.Receiver)
	base := unwrapRefPtrType(recvT)

	if base != nil && base.Kind == types.Interface {
		recv := e.lowerExpr(n.Receiver)
		acc := "."
		if recvT != nil && recvT.Kind == types.Ptr {
			acc = "->"
		}
		var fn *types.Type
		for _, sig := range base.Sigs {
			if sig.Name == n.Name {
				fn = sig.Type
			}
		}
		parts := append([]string{recv + acc + "data"}, e.lowerArgsForParams(n.Args, fn)...)
		return fmt.Sprintf("%s%svtable->%s(%s)", recv, acc, n.Name, strings.Join(parts, ", "))
	}

	if base != nil && base.Kind == types.Struct {
		mangled := e.methodName(base, n.Name)
		var fn *types.Type
		if method := structMethodNamed(base, n.Name); method != nil {
			if len(method.TypeParams) > 0 {
				if inst := e.methodInstantiationFor(base, method, n); inst != nil {
					mangled = e.mangle(base.Module, sanitizeIdent(inst.Mangled))
					fn = inst.Resolved
				}
			} else if mt := e.instantiatedMethodType(base, method); mt != nil {
				fn = mt
			} else {
				fn = nodeType(method)
			}
		}
		recv := e.receiverPointer(n.Receiver, recvT)
		parts := append([]string{recv}, e.lowerArgsForParams(n.Args, fn)...)
		return fmt.Sprintf("%s(%s)", mangled, strings.Join(parts, ", "))
	}
	return ""
}

// lowerArgsForParams lowers each argument against the matching declared
// parameter, so struct-to-interface wrapping applies at method-call
// argument positions exactly as it does at plain-call ones.
func (e *emitter) lowerArgsForParams(args []*ast.Node, fn *types.Type) []string {
	out := make([]string, len(args))
	for i, a := range args {
		var pt *types.Type
		if fn != nil && i < len(fn.Params) {
			pt = fn.Params[i]
		}
		out[i] = e.lowerArgForParam(a, pt)
	}
	return out
}

func structMethodNamed(st *types.Type, name string) *ast.Node {
	for _, m := range st.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// instantiatedMethodType returns the per-instantiation signature recorded
// for a non-generic method of an instantiated generic struct, or nil when
// st is an ordinary struct (whose shared method node carries the one true
// signature itself).
func (e *emitter) instantiatedMethodType(st *types.Type, method *ast.Node) *types.Type {
	for _, inst := range e.mod.Instantiations {
		if inst.Resolved == st && inst.MethodTypes != nil {
			return inst.MethodTypes[method]
		}
	}
	return nil
}

// methodInstantiationFor finds the generic-method monomorphization a
// callsite binds to, by re-deriving the cache key from the call's type
// arguments (explicit or inferred from the checked argument types); it
// falls back to the first instantiation of that method this module
// recorded when the key cannot be re-derived.
func (e *emitter) methodInstantiationFor(st *types.Type, method *ast.Node, n *ast.Node) *modgraph.Instantiation {
	if key, ok := e.instantiationKey(st.Name+"__"+method.Name, method, n); ok {
		for _, inst := range e.mod.Instantiations {
			if inst.TemplateDecl == method && inst.Mangled == key {
				return inst
			}
		}
	}
	for _, inst := range e.mod.Instantiations {
		if inst.TemplateDecl == method {
			return inst
		}
	}
	return nil
}

// receiverPointer renders a method-call receiver as the pointer every
// mangled method function expects, taking the address of a bare struct
// value and passing a ref/ptr receiver straight through.
func (e *emitter) receiverPointer(recv *ast.Node, recvT *types.Type) string {
	if recvT != nil && (recvT.Kind == types.Ref || recvT.Kind == types.Ptr) {
		return e.lowerExpr(recv)
	}
	return "(&" + e.lowerExpr(recv) + ")"
}

func unwrapRefPtrType(t *types.Type) *types.Type {
	for t != nil && (t.Kind == types.Ref || t.Kind == types.Ptr) {
		t = t.Elem
	}
	return t
}

func (e *emitter) lowerField(n *ast.Node) string {
	baseT := nodeType(n.Base)
	// Enum variant access lowers to the mangled enum constant, not a C
	// member access.
	if baseT != nil && baseT.Kind == types.Enum && n.Base.Kind == ast.ExprIdent {
		return e.mangle(baseT.Module, baseT.Name) + "__" + n.Name
	}
	base := e.lowerExpr(n.Base)
	if baseT != nil && (baseT.Kind == types.Ref || baseT.Kind == types.Ptr) {
		return fmt.Sprintf("%s->%s", base, n.Name)
	}
	return fmt.Sprintf("%s.%s", base, n.Name)
}

func (e *emitter) lowerStructLiteral(n *ast.Node) string {
	t := nodeType(n)
	ctype := e.cType(t)
	var parts []string
	for _, fi := range n.FieldInits {
		parts = append(parts, fmt.Sprintf(".%s = %s", fi.Name, e.lowerExpr(fi.Value)))
	}
	return fmt.Sprintf("((%s){ %s })", ctype, strings.Join(parts, ", "))
}

// lowerArrayLiteral renders an array literal as a {ptr,len} struct whose
// ptr field is a nested C99 array compound literal. The compound literal
// has automatic storage duration for the enclosing block, which in every
// production site (an initializer, a call argument, a return value) well
// outlives the expression itself.
func (e *emitter) lowerArrayLiteral(n *ast.Node) string {
	t := nodeType(n)
	elemC := e.cType(t.Elem)
	vecName := e.vecTypeName(t.Elem)
	elems := make([]string, len(n.Elements))
	for i, el := range n.Elements {
		elems[i] = e.lowerExpr(el)
	}
	inner := fmt.Sprintf("(%s[]){ %s }", elemC, strings.Join(elems, ", "))
	return fmt.Sprintf("((%s){ .ptr = %s, .len = %d })", vecName, inner, len(n.Elements))
}
