package codegen

import (
	"fmt"
	"strings"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/symbols"
)

// lowerBlock lowers a statement list into the source buffer, indenting each
// line by depth levels of four spaces. It does not open its own scope;
// callers push/pop around it exactly where internal/sem's checkBlock
// callers do (function bodies share their parameter scope; every nested
// if/for/while/match body gets its own), so the same identifier binds the
// same C declaration the analyzer checked it against.
func (e *emitter) lowerBlock(stmts []*ast.Node, depth int) {
	for _, s := range stmts {
		e.lowerStmt(s, depth)
	}
}

func (e *emitter) indent(depth int) string {
	return strings.Repeat("    ", depth)
}

func (e *emitter) lowerStmt(s *ast.Node, depth int) {
	ind := e.indent(depth)
	switch s.Kind {
	case ast.StmtReturn:
		if s.Value != nil {
			fmt.Fprintf(&e.source, "%sreturn %s;\n", ind, e.lowerExpr(s.Value))
		} else {
			fmt.Fprintf(&e.source, "%sreturn;\n", ind)
		}

	case ast.StmtIf:
		fmt.Fprintf(&e.source, "%sif (%s) {\n", ind, e.lowerExpr(s.Cond))
		e.scopes.Push()
		e.lowerBlock(s.Then, depth+1)
		e.scopes.Pop()
		fmt.Fprintf(&e.source, "%s}\n", ind)
		for i, cond := range s.ElseIfConds {
			fmt.Fprintf(&e.source, "%selse if (%s) {\n", ind, e.lowerExpr(cond))
			e.scopes.Push()
			e.lowerBlock(s.ElseIfBody[i], depth+1)
			e.scopes.Pop()
			fmt.Fprintf(&e.source, "%s}\n", ind)
		}
		if s.Else != nil {
			fmt.Fprintf(&e.source, "%selse {\n", ind)
			e.scopes.Push()
			e.lowerBlock(s.Else, depth+1)
			e.scopes.Pop()
			fmt.Fprintf(&e.source, "%s}\n", ind)
		}

	case ast.StmtForRange:
		e.lowerForRange(s, depth)

	case ast.StmtWhile:
		fmt.Fprintf(&e.source, "%swhile (%s) {\n", ind, e.lowerExpr(s.Cond))
		e.scopes.Push()
		e.lowerBlock(s.Body, depth+1)
		e.scopes.Pop()
		fmt.Fprintf(&e.source, "%s}\n", ind)

	case ast.StmtBreak:
		fmt.Fprintf(&e.source, "%sbreak;\n", ind)

	case ast.StmtContinue:
		fmt.Fprintf(&e.source, "%scontinue;\n", ind)

	case ast.StmtMatch:
		e.lowerMatch(s, depth)

	case ast.StmtAssign:
		e.lowerAssign(s, depth)

	case ast.StmtCompoundAssign:
		fmt.Fprintf(&e.source, "%s%s %s= %s;\n", ind, e.lowerExpr(s.Lhs), s.Text, e.lowerExpr(s.Rhs))

	case ast.StmtExpr:
		fmt.Fprintf(&e.source, "%s%s;\n", ind, e.lowerExpr(s.Value))
	}
}

// lowerForRange renders a `for i in start until end step s` loop as a plain C for
// loop. The iterator's C type follows its resolved type the analyzer
// stamped onto the range's Start expression.
func (e *emitter) lowerForRange(s *ast.Node, depth int) {
	ind := e.indent(depth)
	ct := e.cType(nodeType(s.Start))
	step := "1"
	if s.Step != nil {
		step = e.lowerExpr(s.Step)
	}
	fmt.Fprintf(&e.source, "%sfor (%s %s = %s; %s < %s; %s += %s) {\n",
		ind, ct, s.IterName, e.lowerExpr(s.Start), s.IterName, e.lowerExpr(s.End), s.IterName, step)
	e.scopes.Push()
	e.scopes.Declare(&symbols.Local{Name: s.IterName, Type: nodeType(s.Start), Decl: s})
	e.lowerBlock(s.Body, depth+1)
	e.scopes.Pop()
	fmt.Fprintf(&e.source, "%s}\n", ind)
}

// lowerMatch renders a match statement as a C switch; case groups with more
// than one value emit stacked `case` labels each falling through to the
// same body, and an else body (if present) becomes `default`.
func (e *emitter) lowerMatch(s *ast.Node, depth int) {
	ind := e.indent(depth)
	fmt.Fprintf(&e.source, "%sswitch (%s) {\n", ind, e.lowerExpr(s.Subject))
	for _, cc := range s.Cases {
		for _, v := range cc.Values {
			fmt.Fprintf(&e.source, "%scase %s:\n", e.indent(depth+1), e.lowerExpr(v))
		}
		fmt.Fprintf(&e.source, "%s{\n", e.indent(depth+1))
		e.scopes.Push()
		e.lowerBlock(cc.Body, depth+2)
		e.scopes.Pop()
		fmt.Fprintf(&e.source, "%s}\n%sbreak;\n", e.indent(depth+2), e.indent(depth+1))
	}
	if s.Else != nil {
		fmt.Fprintf(&e.source, "%sdefault: {\n", e.indent(depth+1))
		e.scopes.Push()
		e.lowerBlock(s.Else, depth+2)
		e.scopes.Pop()
		fmt.Fprintf(&e.source, "%s}\n%sbreak;\n", e.indent(depth+2), e.indent(depth+1))
	}
	fmt.Fprintf(&e.source, "%s}\n", ind)
}

// lowerAssign mirrors internal/sem.checkCtx.checkAssign's binding rule: an
// unqualified identifier not already bound as a local or a module symbol
// introduces a fresh C local declared with the type the analyzer resolved
// onto the identifier node, instead of being rendered as a bare assignment
// to an undeclared name.
func (e *emitter) lowerAssign(s *ast.Node, depth int) {
	ind := e.indent(depth)
	if s.Lhs.Kind == ast.ExprIdent {
		if _, ok := e.scopes.Lookup(s.Lhs.Name); !ok {
			if _, ok := e.mod.Symbols.Lookup(s.Lhs.Name); !ok {
				ct := e.cType(nodeType(s.Lhs))
				fmt.Fprintf(&e.source, "%s%s %s = %s;\n", ind, ct, s.Lhs.Name, e.lowerExpr(s.Rhs))
				e.scopes.Declare(&symbols.Local{Name: s.Lhs.Name, Type: nodeType(s.Lhs), Decl: s.Lhs})
				return
			}
		}
	}
	fmt.Fprintf(&e.source, "%s%s = %s;\n", ind, e.lowerExpr(s.Lhs), e.lowerExpr(s.Rhs))
}
