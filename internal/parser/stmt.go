package parser

import (
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/token"
)

func (p *Parser) parseStmt() *ast.Node {
	switch p.curKind() {
	case token.RETURN:
		return p.parseReturn()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseForRange()
	case token.WHILE:
		return p.parseWhile()
	case token.BREAK:
		pos := p.advance().Pos
		n := p.newNode(ast.StmtBreak, pos)
		p.consumeTerminator()
		return n
	case token.CONTINUE:
		pos := p.advance().Pos
		n := p.newNode(ast.StmtContinue, pos)
		p.consumeTerminator()
		return n
	case token.MATCH:
		return p.parseMatch()
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) parseReturn() *ast.Node {
	pos := p.advance().Pos
	n := p.newNode(ast.StmtReturn, pos)
	if !p.check(token.NEWLINE) && !p.check(token.EOF) {
		n.Value = p.parseExpr()
	}
	p.consumeTerminator()
	return n
}

func (p *Parser) parseIf() *ast.Node {
	pos := p.advance().Pos
	n := p.newNode(ast.StmtIf, pos)
	n.Cond = p.parseExpr()
	p.consumeTerminator()
	n.Then = p.parseBlock()

	for p.check(token.ELSEIF) {
		p.advance()
		cond := p.parseExpr()
		p.consumeTerminator()
		body := p.parseBlock()
		n.ElseIfConds = append(n.ElseIfConds, cond)
		n.ElseIfBody = append(n.ElseIfBody, body)
	}

	if p.match(token.ELSE) {
		p.consumeTerminator()
		n.Else = p.parseBlock()
	}

	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

func (p *Parser) parseForRange() *ast.Node {
	pos := p.advance().Pos
	n := p.newNode(ast.StmtForRange, pos)
	n.IterName = p.expect(token.IDENT, "a loop variable name").Text
	p.expect(token.IN, "in")
	n.Start = p.parseExpr()
	p.expect(token.UNTIL, "until")
	n.End = p.parseExpr()
	if p.match(token.STEP) {
		n.Step = p.parseExpr()
	}
	p.consumeTerminator()
	n.Body = p.parseBlock()
	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

func (p *Parser) parseWhile() *ast.Node {
	pos := p.advance().Pos
	n := p.newNode(ast.StmtWhile, pos)
	n.Cond = p.parseExpr()
	p.consumeTerminator()
	n.Body = p.parseBlock()
	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

// parseMatch parses `match subject` followed by `case value, value: …`
// arms and an optional trailing else arm, closed by `end`.
func (p *Parser) parseMatch() *ast.Node {
	pos := p.advance().Pos
	n := p.newNode(ast.StmtMatch, pos)
	n.Subject = p.parseExpr()
	p.consumeTerminator()

	for p.check(token.CASE) {
		p.advance()
		cc := &ast.CaseClause{}
		for {
			cc.Values = append(cc.Values, p.parseExpr())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.COLON, ":")
		p.consumeTerminator()
		cc.Body = p.parseBlock()
		n.Cases = append(n.Cases, cc)
		if p.panicMode {
			p.synchronize()
		}
	}

	if p.match(token.ELSE) {
		p.consumeTerminator()
		n.Else = p.parseBlock()
	}

	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

// parseSimpleStmt parses an expression-led statement: a plain expression
// statement, an assignment, or a compound assignment.
func (p *Parser) parseSimpleStmt() *ast.Node {
	pos := p.cur().Pos
	expr := p.parseExpr()

	var op string
	var kind ast.Kind
	switch p.curKind() {
	case token.ASSIGN:
		kind, op = ast.StmtAssign, "="
	case token.PLUS_ASSIGN:
		kind, op = ast.StmtCompoundAssign, "+="
	case token.MINUS_ASSIGN:
		kind, op = ast.StmtCompoundAssign, "-="
	case token.STAR_ASSIGN:
		kind, op = ast.StmtCompoundAssign, "*="
	case token.SLASH_ASSIGN:
		kind, op = ast.StmtCompoundAssign, "/="
	default:
		n := p.newNode(ast.StmtExpr, pos)
		n.Value = expr
		p.consumeTerminator()
		return n
	}

	p.advance()
	n := p.newNode(kind, pos)
	n.Text = op
	n.Lhs = expr
	n.Rhs = p.parseExpr()
	p.consumeTerminator()
	return n
}
