package sem

import (
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

// checkExpr type-checks n and every subexpression it contains, returning
// n's type (nil if a diagnostic was already emitted for n and checking
// cannot usefully continue). The resolved type is also stamped onto
// n.ResolvedType so the backend can read it straight off the tree
// without re-deriving it.
func (c *checkCtx) checkExpr(n *ast.Node) *types.Type {
	if n == nil {
		return nil
	}
	t := c.checkExprKind(n)
	if t != nil {
		n.ResolvedType = t
	}
	return t
}

func (c *checkCtx) checkExprKind(n *ast.Node) *types.Type {
	a := c.a
	reg := a.reg
	switch n.Kind {
	case ast.ExprInt:
		return reg.Int()
	case ast.ExprFloat:
		return reg.Double()
	case ast.ExprString:
		return reg.String()
	case ast.ExprBool:
		return reg.Bool()
	case ast.ExprNull:
		// null is typed as *void; assignable's *void conversion rules let
		// it flow into any pointer or reference target while rejecting
		// non-pointer ones, e.g. `int`.
		return reg.NewPtr(reg.Void())

	case ast.ExprSelf:
		if c.selfType == nil {
			a.sink.Error(diagnostics.CodeSymUnknown, n.Pos, "self used outside a method")
			return nil
		}
		return c.selfType

	case ast.ExprIdent:
		return c.checkIdent(n)

	case ast.ExprParen:
		return c.checkExpr(n.Inner)

	case ast.ExprUnary:
		return c.checkUnary(n)

	case ast.ExprBinary:
		return c.checkBinary(n)

	case ast.ExprCall:
		return c.checkCall(n)

	case ast.ExprMethodCall:
		return c.checkMethodCall(n)

	case ast.ExprField:
		return c.checkField(n)

	case ast.ExprStructLiteral:
		return c.checkStructLiteral(n)

	case ast.ExprCast:
		return c.checkCast(n)

	case ast.ExprSizeof:
		if t := a.resolveType(n.SizeofType, c.m.Symbols); t != nil {
			n.SizeofType.ResolvedType = t
		}
		return reg.Primitive(types.USize)

	case ast.ExprArrayLiteral:
		return c.checkArrayLiteral(n)

	case ast.ExprIndex:
		return c.checkIndex(n)
	}
	return nil
}

func (c *checkCtx) checkIdent(n *ast.Node) *types.Type {
	if local, ok := c.scopes.Lookup(n.Name); ok {
		return local.Type
	}
	sym, ok := c.m.Symbols.Lookup(n.Name)
	if !ok {
		c.a.sink.Error(diagnostics.CodeSymUnknown, n.Pos, "undefined name %q", n.Name)
		return nil
	}
	return declType(sym.Decl)
}

func (c *checkCtx) checkUnary(n *ast.Node) *types.Type {
	operandT := c.checkExpr(n.Operand)
	switch n.Text {
	case "-":
		if operandT != nil && !types.IsNumeric(operandT.Kind) {
			c.a.sink.Error(diagnostics.CodeTypeNotNumeric, n.Pos, "unary - requires a numeric operand, got %s", operandT.TypeName())
		}
		return operandT
	case "not":
		if operandT != nil && operandT.Kind != types.Bool {
			c.a.sink.Error(diagnostics.CodeTypeNotBool, n.Pos, "not requires a bool operand, got %s", operandT.TypeName())
		}
		return operandT
	case "*":
		if operandT == nil {
			return nil
		}
		if operandT.Kind != types.Ptr && operandT.Kind != types.Ref {
			c.a.sink.Error(diagnostics.CodeTypeNotPointer, n.Pos, "cannot dereference %s", operandT.TypeName())
			return nil
		}
		return operandT.Elem
	case "&":
		if operandT == nil {
			return nil
		}
		return c.a.reg.NewRef(operandT)
	}
	return nil
}

func (c *checkCtx) checkBinary(n *ast.Node) *types.Type {
	a := c.a
	leftT := c.checkExpr(n.Left)
	rightT := c.checkExpr(n.Right)

	switch n.Text {
	case "and", "or":
		if leftT != nil && leftT.Kind != types.Bool {
			a.sink.Error(diagnostics.CodeTypeNotBool, n.Left.Pos, "%s requires bool operands", n.Text)
		}
		if rightT != nil && rightT.Kind != types.Bool {
			a.sink.Error(diagnostics.CodeTypeNotBool, n.Right.Pos, "%s requires bool operands", n.Text)
		}
		return a.reg.Bool()

	case "==", "!=":
		if leftT != nil && rightT != nil && !c.assignable(leftT, rightT) && !c.assignable(rightT, leftT) {
			a.sink.Error(diagnostics.CodeTypeMismatch, n.Pos, "cannot compare %s with %s", leftT.TypeName(), rightT.TypeName())
		}
		return a.reg.Bool()

	case "<", ">", "<=", ">=":
		if leftT != nil && !types.IsNumeric(leftT.Kind) {
			a.sink.Error(diagnostics.CodeTypeNotNumeric, n.Left.Pos, "comparison requires numeric operands")
		}
		if rightT != nil && !types.IsNumeric(rightT.Kind) {
			a.sink.Error(diagnostics.CodeTypeNotNumeric, n.Right.Pos, "comparison requires numeric operands")
		}
		if leftT != nil && rightT != nil && types.IsNumeric(leftT.Kind) && types.IsNumeric(rightT.Kind) &&
			!c.assignable(leftT, rightT) && !c.assignable(rightT, leftT) {
			a.sink.Error(diagnostics.CodeTypeMismatch, n.Pos, "cannot compare %s with %s", leftT.TypeName(), rightT.TypeName())
		}
		return a.reg.Bool()

	case "^":
		if leftT != nil && !types.IsInteger(leftT.Kind) {
			a.sink.Error(diagnostics.CodeTypeNotInteger, n.Left.Pos, "^ requires integer operands")
		}
		if rightT != nil && !types.IsInteger(rightT.Kind) {
			a.sink.Error(diagnostics.CodeTypeNotInteger, n.Right.Pos, "^ requires integer operands")
		}
		return widerOf(leftT, rightT)

	case "+", "-", "*", "/":
		if leftT != nil && !types.IsNumeric(leftT.Kind) {
			a.sink.Error(diagnostics.CodeTypeNotNumeric, n.Left.Pos, "arithmetic requires numeric operands, got %s", leftT.TypeName())
		}
		if rightT != nil && !types.IsNumeric(rightT.Kind) {
			a.sink.Error(diagnostics.CodeTypeNotNumeric, n.Right.Pos, "arithmetic requires numeric operands, got %s", rightT.TypeName())
		}
		if leftT != nil && rightT != nil && types.IsNumeric(leftT.Kind) && types.IsNumeric(rightT.Kind) &&
			!c.assignable(leftT, rightT) && !c.assignable(rightT, leftT) {
			a.sink.Error(diagnostics.CodeTypeMismatch, n.Pos, "arithmetic requires matching operands, got %s and %s", leftT.TypeName(), rightT.TypeName())
		}
		return widerOf(leftT, rightT)
	}
	return nil
}

// widerOf returns whichever of a, b is the wider integer rank (the
// result type of a binary arithmetic or bitwise expression); it falls
// back to whichever operand is non-nil when the two are incomparable
// (one is a floating-point kind, say), since a mismatch there was
// already reported by the caller.
func widerOf(a, b *types.Type) *types.Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if types.IsInteger(a.Kind) && types.IsInteger(b.Kind) {
		if types.IsWidening(a.Kind, b.Kind) {
			return b
		}
		return a
	}
	if a.Kind == types.Double || b.Kind == types.Double {
		return a
	}
	return a
}

func (c *checkCtx) checkCall(n *ast.Node) *types.Type {
	a := c.a
	if n.Callee.Kind != ast.ExprIdent {
		a.sink.Error(diagnostics.CodeTypeMismatch, n.Pos, "expression is not callable")
		c.checkExprList(n.Args)
		return nil
	}

	sym, ok := c.m.Symbols.Lookup(n.Callee.Name)
	if !ok || sym.Kind != symbols.KindFunc {
		a.sink.Error(diagnostics.CodeSymUnknown, n.Pos, "undefined function %q", n.Callee.Name)
		c.checkExprList(n.Args)
		return nil
	}

	templateDecl := sym.Decl
	if len(templateDecl.TypeParams) == 0 {
		fn := declType(templateDecl)
		c.checkCallArgs(n.Args, fn, n.Pos)
		if fn == nil {
			return nil
		}
		return fn.Result
	}

	argTypes := c.checkExprList(n.Args)
	var typeArgs []*types.Type
	if len(n.TypeArgs) > 0 {
		typeArgs = make([]*types.Type, len(n.TypeArgs))
		for i, ta := range n.TypeArgs {
			typeArgs[i] = a.resolveType(ta, c.m.Symbols)
		}
	} else {
		inferred, ok := inferTypeArgs(templateDecl, argTypes)
		if !ok {
			a.sink.Error(diagnostics.CodeTypeGenericArgs, n.Pos, "cannot infer type arguments for %q", n.Callee.Name)
			return nil
		}
		typeArgs = inferred
	}

	fn := a.instantiateFunc(templateDecl, typeArgs, c.m.Symbols)
	c.checkArgTypes(argTypes, n.Args, fn, n.Pos)
	if fn == nil {
		return nil
	}
	return fn.Result
}

func (c *checkCtx) checkMethodCall(n *ast.Node) *types.Type {
	a := c.a
	recvT := c.checkExpr(n.Receiver)
	base := unwrapRefPtr(recvT)
	if base == nil {
		if recvT != nil {
			a.sink.Error(diagnostics.CodeTypeNoMethod, n.Pos, "%s has no method %q", recvT.TypeName(), n.Name)
		}
		c.checkExprList(n.Args)
		return nil
	}

	var fn *types.Type
	switch base.Kind {
	case types.Struct:
		method := findMethod(base, n.Name)
		if method == nil {
			a.sink.Error(diagnostics.CodeTypeNoMethod, n.Pos, "%s has no method %q", base.TypeName(), n.Name)
			c.checkExprList(n.Args)
			return nil
		}
		if len(method.TypeParams) > 0 {
			return c.checkGenericMethodCall(n, base, method)
		}
		fn = declType(method)
		// An instantiated generic struct's method nodes are shared with the
		// template, so the node's own back-pointer may reflect a different
		// instantiation; the cache holds this instantiation's signature.
		if res, ok := a.instCache[base.Name]; ok && res.methods != nil {
			if mt, found := res.methods[method]; found {
				fn = mt
			}
		}
	case types.Interface:
		fn = findSig(base, n.Name)
		if fn == nil {
			a.sink.Error(diagnostics.CodeTypeNoMethod, n.Pos, "%s has no method %q", base.TypeName(), n.Name)
			c.checkExprList(n.Args)
			return nil
		}
	default:
		a.sink.Error(diagnostics.CodeTypeNoMethod, n.Pos, "%s has no method %q", base.TypeName(), n.Name)
		c.checkExprList(n.Args)
		return nil
	}

	c.checkCallArgs(n.Args, fn, n.Pos)
	if fn == nil {
		return nil
	}
	return fn.Result
}

// checkGenericMethodCall resolves or infers a generic struct method's
// type arguments, monomorphizes it, and checks the call against the
// instantiated signature.
func (c *checkCtx) checkGenericMethodCall(n *ast.Node, structT *types.Type, method *ast.Node) *types.Type {
	a := c.a
	argTypes := c.checkExprList(n.Args)
	var typeArgs []*types.Type
	if len(n.TypeArgs) > 0 {
		typeArgs = make([]*types.Type, len(n.TypeArgs))
		for i, ta := range n.TypeArgs {
			typeArgs[i] = a.resolveType(ta, c.m.Symbols)
		}
	} else {
		inferred, ok := inferTypeArgs(method, argTypes)
		if !ok {
			a.sink.Error(diagnostics.CodeTypeGenericArgs, n.Pos, "cannot infer type arguments for method %q", n.Name)
			return nil
		}
		typeArgs = inferred
	}

	fn := a.instantiateMethod(structT, method, typeArgs, c.m.Symbols)
	c.checkArgTypes(argTypes, n.Args, fn, n.Pos)
	if fn == nil {
		return nil
	}
	return fn.Result
}

func (c *checkCtx) checkField(n *ast.Node) *types.Type {
	baseT := c.checkExpr(n.Base)
	// Enum variant access: the enum's name used as the base of a field
	// expression selects a variant and has the enum's own type.
	if baseT != nil && baseT.Kind == types.Enum && n.Base.Kind == ast.ExprIdent {
		for _, v := range baseT.Variants {
			if v == n.Name {
				return baseT
			}
		}
		c.a.sink.Error(diagnostics.CodeSymUnknown, n.Pos, "%s has no variant %q", baseT.TypeName(), n.Name)
		return nil
	}
	structT := unwrapToStruct(baseT)
	if structT == nil {
		if baseT != nil {
			c.a.sink.Error(diagnostics.CodeSymUnknown, n.Pos, "%s has no field %q", baseT.TypeName(), n.Name)
		}
		return nil
	}
	for _, f := range structT.Fields {
		if f.Name == n.Name {
			return f.Type
		}
	}
	c.a.sink.Error(diagnostics.CodeSymUnknown, n.Pos, "%s has no field %q", structT.TypeName(), n.Name)
	return nil
}

func (c *checkCtx) checkStructLiteral(n *ast.Node) *types.Type {
	a := c.a
	sym, ok := c.m.Symbols.Lookup(n.Name)
	if !ok || sym.Kind != symbols.KindStruct {
		a.sink.Error(diagnostics.CodeSymUnknown, n.Pos, "undefined struct %q", n.Name)
		for _, fi := range n.FieldInits {
			c.checkExpr(fi.Value)
		}
		return nil
	}

	var structT *types.Type
	if len(sym.Decl.TypeParams) > 0 {
		if len(n.TypeArgs) == 0 {
			a.sink.Error(diagnostics.CodeTypeGenericArgs, n.Pos, "missing type arguments for generic struct %q", n.Name)
			for _, fi := range n.FieldInits {
				c.checkExpr(fi.Value)
			}
			return nil
		}
		args := make([]*types.Type, len(n.TypeArgs))
		for i, ta := range n.TypeArgs {
			args[i] = a.resolveType(ta, c.m.Symbols)
		}
		structT = a.instantiateStruct(sym.Decl, args, c.m.Symbols)
	} else {
		structT = declType(sym.Decl)
	}
	if structT == nil {
		return nil
	}

	seen := make(map[string]bool, len(n.FieldInits))
	for _, fi := range n.FieldInits {
		valT := c.checkExpr(fi.Value)
		var fieldType *types.Type
		for _, f := range structT.Fields {
			if f.Name == fi.Name {
				fieldType = f.Type
				break
			}
		}
		if fieldType == nil {
			a.sink.Error(diagnostics.CodeSymUnknown, fi.Pos, "%s has no field %q", structT.TypeName(), fi.Name)
			continue
		}
		if !c.assignable(fieldType, valT) {
			a.sink.Error(diagnostics.CodeTypeMismatch, fi.Pos, "field %q expects %s, got %s", fi.Name, fieldType.TypeName(), safeTypeName(valT))
		}
		seen[fi.Name] = true
	}
	if len(seen) != len(structT.Fields) {
		a.sink.Error(diagnostics.CodeTypeArity, n.Pos, "struct literal for %q must initialize all %d fields", n.Name, len(structT.Fields))
	}
	return structT
}

func (c *checkCtx) checkCast(n *ast.Node) *types.Type {
	c.checkExpr(n.CastExpr)
	return c.a.resolveType(n.CastType, c.m.Symbols)
}

func (c *checkCtx) checkArrayLiteral(n *ast.Node) *types.Type {
	if len(n.Elements) == 0 {
		c.a.sink.Error(diagnostics.CodeTypeMismatch, n.Pos, "empty array literal has no inferrable element type")
		return nil
	}
	elemT := c.checkExpr(n.Elements[0])
	for _, e := range n.Elements[1:] {
		t := c.checkExpr(e)
		if elemT != nil && t != nil && !c.assignable(elemT, t) {
			c.a.sink.Error(diagnostics.CodeTypeMismatch, e.Pos, "array element of type %s does not match element type %s", t.TypeName(), elemT.TypeName())
		}
	}
	if elemT == nil {
		return nil
	}
	return c.a.reg.NewArray(elemT, len(n.Elements))
}

func (c *checkCtx) checkIndex(n *ast.Node) *types.Type {
	targetT := c.checkExpr(n.IndexTarget)
	idxT := c.checkExpr(n.IndexExpr)
	if idxT != nil && !types.IsInteger(idxT.Kind) {
		c.a.sink.Error(diagnostics.CodeTypeNotInteger, n.IndexExpr.Pos, "index must be an integer, got %s", idxT.TypeName())
	}
	if targetT == nil {
		return nil
	}
	if targetT.Kind != types.Array && targetT.Kind != types.Slice {
		c.a.sink.Error(diagnostics.CodeTypeMismatch, n.Pos, "%s is not indexable", targetT.TypeName())
		return nil
	}
	return targetT.Elem
}

func (c *checkCtx) checkExprList(exprs []*ast.Node) []*types.Type {
	out := make([]*types.Type, len(exprs))
	for i, e := range exprs {
		out[i] = c.checkExpr(e)
	}
	return out
}

func (c *checkCtx) checkCallArgs(args []*ast.Node, fn *types.Type, pos diagnostics.Position) {
	argTypes := c.checkExprList(args)
	c.checkArgTypes(argTypes, args, fn, pos)
}

// checkArgTypes validates arity and per-argument assignability against
// already-checked argument types, so callers that needed the types first
// (generic inference) do not walk the argument expressions twice.
func (c *checkCtx) checkArgTypes(argTypes []*types.Type, args []*ast.Node, fn *types.Type, pos diagnostics.Position) {
	if fn == nil {
		return
	}
	if len(argTypes) != len(fn.Params) {
		c.a.sink.Error(diagnostics.CodeTypeArity, pos, "expected %d arguments, got %d", len(fn.Params), len(argTypes))
	}
	for i, t := range argTypes {
		if i >= len(fn.Params) {
			continue
		}
		if !c.assignable(fn.Params[i], t) {
			c.a.sink.Error(diagnostics.CodeTypeMismatch, args[i].Pos, "argument %d: expected %s, got %s", i+1, fn.Params[i].TypeName(), safeTypeName(t))
		}
	}
}

// assignable reports whether a value of type src may be used where dst
// is expected, admitting only the fixed set of implicit conversions:
// identical types; a widening integer conversion; `&T` to `*T` when inner
// types match; any `*T`/`&T` to `*void`; `*void` (including `null`) to any
// `*U` or `&U`; an array `T[N]` to a slice `T[]` with a matching element;
// or a struct (optionally behind one matching `&`/`*` layer) discovered to
// satisfy an interface. A nil src or dst means a diagnostic was already
// emitted upstream, so assignable reports true rather than cascading a
// second error.
func (c *checkCtx) assignable(dst, src *types.Type) bool {
	if dst == nil || src == nil {
		return true
	}
	if types.Equals(dst, src) {
		return true
	}
	if types.IsInteger(dst.Kind) && types.IsInteger(src.Kind) {
		return types.IsWidening(src.Kind, dst.Kind)
	}

	// &T to *T when inner types match.
	if dst.Kind == types.Ptr && src.Kind == types.Ref && types.Equals(dst.Elem, src.Elem) {
		return true
	}
	// any *T or &T to *void.
	if dst.Kind == types.Ptr && dst.Elem.Kind == types.Void && (src.Kind == types.Ptr || src.Kind == types.Ref) {
		return true
	}
	// *void (typically from null) to any *U or &U.
	if src.Kind == types.Ptr && src.Elem.Kind == types.Void && (dst.Kind == types.Ptr || dst.Kind == types.Ref) {
		return true
	}
	// array T[N] to slice T[] with matching element.
	if dst.Kind == types.Slice && src.Kind == types.Array && types.Equals(dst.Elem, src.Elem) {
		return true
	}

	ifaceT, structT := unwrapInterfaceSatisfaction(dst, src)
	if ifaceT.Kind == types.Interface && structT.Kind == types.Struct {
		if !satisfiesInterface(structT, ifaceT) {
			return false
		}
		if owner, ok := c.a.modulesByDotted[structT.Module]; ok {
			recordImplementation(owner, structT, ifaceT)
		}
		return true
	}
	return false
}

// unwrapInterfaceSatisfaction strips one matching Ref or Ptr layer off both
// dst and src so `&Struct` satisfies `&Interface` (and `*Struct` satisfies
// `*Interface`) the same way the bare `Struct`/`Interface` form does. dst
// and src pass through unchanged when they are not wrapped in the same
// kind of reference/pointer layer.
func unwrapInterfaceSatisfaction(dst, src *types.Type) (*types.Type, *types.Type) {
	if dst.Kind == src.Kind && (dst.Kind == types.Ref || dst.Kind == types.Ptr) {
		return dst.Elem, src.Elem
	}
	return dst, src
}

func unwrapToStruct(t *types.Type) *types.Type {
	for t != nil && (t.Kind == types.Ref || t.Kind == types.Ptr) {
		t = t.Elem
	}
	if t != nil && t.Kind == types.Struct {
		return t
	}
	return nil
}

// unwrapRefPtr strips reference/pointer layers without requiring the base
// to be any particular kind, so a method call receiver can resolve to
// either a struct (static dispatch) or an interface value (virtual
// dispatch through the signature list).
func unwrapRefPtr(t *types.Type) *types.Type {
	for t != nil && (t.Kind == types.Ref || t.Kind == types.Ptr) {
		t = t.Elem
	}
	return t
}

func findMethod(structT *types.Type, name string) *ast.Node {
	for _, m := range structT.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func findSig(ifaceT *types.Type, name string) *types.Type {
	for _, s := range ifaceT.Sigs {
		if s.Name == name {
			return s.Type
		}
	}
	return nil
}
