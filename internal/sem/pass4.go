package sem

import (
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/symbols"
	"github.com/anchorlang/anchor/internal/types"
)

// checkCtx is the per-function-body checking context: the module the
// function is declared in (for symbol lookups), a nested local-variable
// scope stack seeded with parameters, and the declared return type
// (void's Kind when the function has none). selfType is non-nil only
// while checking a struct method's body.
type checkCtx struct {
	a          *Analyzer
	m          *modgraph.Module
	scopes     *symbols.ScopeStack
	returnType *types.Type
	selfType   *types.Type
}

// pass4Bodies type-checks every non-generic function body, struct method
// body, and top-level const/var initializer. Generic functions and
// methods on generic structs are checked at instantiation time instead;
// there is no concrete type to check against until a callsite supplies
// one.
func (a *Analyzer) pass4Bodies(mods map[string]*modgraph.Module, order []string) {
	for _, path := range order {
		m := mods[path]
		if m == nil || m.AST == nil {
			continue
		}
		a.curModule = m
		for _, decl := range m.AST.Decls {
			switch decl.Kind {
			case ast.DeclFunc:
				if len(decl.TypeParams) == 0 && !decl.Extern {
					a.checkFuncBody(m, decl, nil)
				}
			case ast.DeclStruct:
				if len(decl.TypeParams) > 0 {
					continue
				}
				for _, method := range decl.Methods {
					if len(method.TypeParams) == 0 && !method.Extern {
						a.checkFuncBody(m, method, a.methodSelf[method])
					}
				}
			case ast.DeclConst, ast.DeclVar:
				a.checkTopLevelBinding(m, decl)
			}
		}
	}
}

func (a *Analyzer) checkFuncBody(m *modgraph.Module, decl *ast.Node, self *types.Type) {
	fn := declType(decl)
	if fn == nil {
		return
	}
	ctx := &checkCtx{a: a, m: m, scopes: symbols.NewScopeStack(), returnType: fn.Result, selfType: self}
	for i, p := range decl.Params {
		if i >= len(fn.Params) {
			break
		}
		ctx.scopes.Declare(&symbols.Local{Name: p.Name, Type: fn.Params[i], Decl: decl})
	}
	ctx.checkBlock(decl.Body)
}

func (a *Analyzer) checkTopLevelBinding(m *modgraph.Module, decl *ast.Node) {
	ctx := &checkCtx{a: a, m: m, scopes: symbols.NewScopeStack()}

	var declared *types.Type
	if decl.DeclType != nil {
		declared = a.resolveType(decl.DeclType, m.Symbols)
	}
	var initType *types.Type
	if decl.Init != nil {
		initType = ctx.checkExpr(decl.Init)
	}

	result := declared
	if result == nil {
		result = initType
	}
	decl.ResolvedType = result
	if sym, ok := m.Symbols.Lookup(decl.Name); ok {
		sym.Type = result
	}

	if declared != nil && decl.Init != nil && !ctx.assignable(declared, initType) {
		a.sink.Error(diagnostics.CodeTypeMismatch, decl.Pos,
			"cannot initialize %q of type %s with value of type %s", decl.Name, declared.TypeName(), safeTypeName(initType))
	}
}

func (c *checkCtx) checkBlock(stmts []*ast.Node) {
	for _, s := range stmts {
		c.checkStmt(s)
	}
}

func (c *checkCtx) checkStmt(s *ast.Node) {
	a := c.a
	switch s.Kind {
	case ast.StmtReturn:
		if s.Value != nil {
			t := c.checkExpr(s.Value)
			if c.returnType != nil && c.returnType.Kind != types.Void && !c.assignable(c.returnType, t) {
				a.sink.Error(diagnostics.CodeTypeMismatch, s.Pos, "return value of type %s does not match declared return type %s",
					safeTypeName(t), c.returnType.TypeName())
			}
		} else if c.returnType != nil && c.returnType.Kind != types.Void {
			a.sink.Error(diagnostics.CodeTypeMismatch, s.Pos, "missing return value, function returns %s", c.returnType.TypeName())
		}

	case ast.StmtIf:
		c.checkCondition(s.Cond)
		c.scopes.Push()
		c.checkBlock(s.Then)
		c.scopes.Pop()
		for i, cond := range s.ElseIfConds {
			c.checkCondition(cond)
			c.scopes.Push()
			c.checkBlock(s.ElseIfBody[i])
			c.scopes.Pop()
		}
		if s.Else != nil {
			c.scopes.Push()
			c.checkBlock(s.Else)
			c.scopes.Pop()
		}

	case ast.StmtForRange:
		c.checkForRange(s)

	case ast.StmtWhile:
		c.checkCondition(s.Cond)
		a.loopDepth++
		a.realLoopDepth++
		c.scopes.Push()
		c.checkBlock(s.Body)
		c.scopes.Pop()
		a.realLoopDepth--
		a.loopDepth--

	case ast.StmtBreak:
		if a.loopDepth == 0 {
			a.sink.Error(diagnostics.CodeTypeBreakOutside, s.Pos, "break outside a loop or match")
		}

	case ast.StmtContinue:
		if a.realLoopDepth == 0 {
			a.sink.Error(diagnostics.CodeTypeContinueBad, s.Pos, "continue outside a for or while loop")
		}

	case ast.StmtMatch:
		c.checkMatch(s)

	case ast.StmtAssign:
		c.checkAssign(s)

	case ast.StmtCompoundAssign:
		c.checkCompoundAssign(s)

	case ast.StmtExpr:
		c.checkExpr(s.Value)
	}
}

// checkCondition accepts bool and any pointer/reference (a null check
// without an explicit comparison).
func (c *checkCtx) checkCondition(cond *ast.Node) {
	t := c.checkExpr(cond)
	if t == nil {
		return
	}
	switch t.Kind {
	case types.Bool, types.Ptr, types.Ref:
		return
	}
	c.a.sink.Error(diagnostics.CodeTypeNotBool, cond.Pos, "condition must be bool or a pointer, got %s", t.TypeName())
}

func (c *checkCtx) checkForRange(s *ast.Node) {
	a := c.a
	startT := c.checkExpr(s.Start)
	endT := c.checkExpr(s.End)
	requireInteger(a, s.Start.Pos, startT)
	requireInteger(a, s.End.Pos, endT)
	if s.Step != nil {
		stepT := c.checkExpr(s.Step)
		requireInteger(a, s.Step.Pos, stepT)
	}

	iterType := startT
	if iterType == nil {
		iterType = endT
	}

	a.loopDepth++
	a.realLoopDepth++
	c.scopes.Push()
	c.scopes.Declare(&symbols.Local{Name: s.IterName, Type: iterType, Decl: s})
	c.checkBlock(s.Body)
	c.scopes.Pop()
	a.realLoopDepth--
	a.loopDepth--
}

func requireInteger(a *Analyzer, pos diagnostics.Position, t *types.Type) {
	if t != nil && !types.IsInteger(t.Kind) {
		a.sink.Error(diagnostics.CodeTypeNotInteger, pos, "expected an integer type, got %s", t.TypeName())
	}
}

// checkMatch checks a match statement. Match counts toward loopDepth (so
// a break inside a case arm can target it) but not realLoopDepth: a bare
// continue inside a match that is not itself nested in a for/while is
// still rejected.
func (c *checkCtx) checkMatch(s *ast.Node) {
	a := c.a
	subjT := c.checkExpr(s.Subject)

	a.loopDepth++
	seen := make(map[string]bool)
	for _, cc := range s.Cases {
		for _, val := range cc.Values {
			valT := c.checkExpr(val)
			if subjT != nil && valT != nil && !c.assignable(subjT, valT) {
				a.sink.Error(diagnostics.CodeTypeMismatch, val.Pos, "case value of type %s does not match subject type %s",
					valT.TypeName(), subjT.TypeName())
			}
			key := val.Text
			if key != "" {
				if seen[key] {
					a.sink.Error(diagnostics.CodeTypeDuplicateCase, val.Pos, "duplicate case value %q", key)
				}
				seen[key] = true
			}
		}
		c.scopes.Push()
		c.checkBlock(cc.Body)
		c.scopes.Pop()
	}
	if s.Else != nil {
		c.scopes.Push()
		c.checkBlock(s.Else)
		c.scopes.Pop()
	}
	a.loopDepth--
}

// checkAssign checks a plain `lhs = rhs` statement. There is no separate
// local-variable-declaration statement: assigning to a bare identifier
// that is not already bound, as a local or a module-level name,
// introduces it as a fresh local scoped to the enclosing block, with its
// type inferred from the right-hand side. The for-range iterator
// variable follows the same first-assignment-binds-the-type rule.
func (c *checkCtx) checkAssign(s *ast.Node) {
	if s.Lhs.Kind == ast.ExprIdent {
		if _, ok := c.scopes.Lookup(s.Lhs.Name); !ok {
			if _, ok := c.m.Symbols.Lookup(s.Lhs.Name); !ok {
				rhsT := c.checkExpr(s.Rhs)
				c.scopes.Declare(&symbols.Local{Name: s.Lhs.Name, Type: rhsT, Decl: s.Lhs})
				s.Lhs.ResolvedType = rhsT
				return
			}
		}
	}

	lhsT := c.checkExpr(s.Lhs)
	c.checkLvalue(s.Lhs)
	rhsT := c.checkExpr(s.Rhs)
	if lhsT != nil && rhsT != nil && !c.assignable(lhsT, rhsT) {
		c.a.sink.Error(diagnostics.CodeTypeMismatch, s.Pos, "cannot assign value of type %s to target of type %s",
			rhsT.TypeName(), lhsT.TypeName())
	}
}

func (c *checkCtx) checkCompoundAssign(s *ast.Node) {
	lhsT := c.checkExpr(s.Lhs)
	c.checkLvalue(s.Lhs)
	rhsT := c.checkExpr(s.Rhs)
	if lhsT != nil && !types.IsNumeric(lhsT.Kind) {
		c.a.sink.Error(diagnostics.CodeTypeNotNumeric, s.Pos, "compound assignment target must be numeric, got %s", lhsT.TypeName())
	}
	if lhsT != nil && rhsT != nil && !c.assignable(lhsT, rhsT) {
		c.a.sink.Error(diagnostics.CodeTypeMismatch, s.Pos, "cannot combine value of type %s into target of type %s",
			rhsT.TypeName(), lhsT.TypeName())
	}
}

func (c *checkCtx) checkLvalue(n *ast.Node) {
	if !n.IsLvalueKind() {
		c.a.sink.Error(diagnostics.CodeTypeNotLvalue, n.Pos, "not a valid assignment target")
		return
	}
	if n.Kind == ast.ExprIdent {
		if sym, ok := c.m.Symbols.Lookup(n.Name); ok && sym.Kind == symbols.KindConst {
			c.a.sink.Error(diagnostics.CodeTypeConstAssign, n.Pos, "cannot assign to constant %q", n.Name)
		}
	}
}

func safeTypeName(t *types.Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.TypeName()
}
