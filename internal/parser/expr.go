package parser

import (
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/token"
)

func (p *Parser) binary(left *ast.Node, op string, right *ast.Node, pos diagnostics.Position) *ast.Node {
	n := p.newNode(ast.ExprBinary, pos)
	n.Text = op
	n.Left = left
	n.Right = right
	return n
}

// parseExpr enters the precedence ladder at its lowest level: or, and,
// comparison, addition, multiplication, bitwise ^, as-cast, unary,
// postfix, primary (lowest to highest).
func (p *Parser) parseExpr() *ast.Node { return p.parseOr() }

func (p *Parser) parseOr() *ast.Node {
	left := p.parseAnd()
	for p.check(token.OR) {
		op := p.advance()
		right := p.parseAnd()
		left = p.binary(left, "or", right, op.Pos)
	}
	return left
}

func (p *Parser) parseAnd() *ast.Node {
	left := p.parseComparison()
	for p.check(token.AND) {
		op := p.advance()
		right := p.parseComparison()
		left = p.binary(left, "and", right, op.Pos)
	}
	return left
}

func (p *Parser) parseComparison() *ast.Node {
	left := p.parseAddition()
	for {
		var text string
		switch p.curKind() {
		case token.EQ:
			text = "=="
		case token.NEQ:
			text = "!="
		case token.LT:
			text = "<"
		case token.GT:
			text = ">"
		case token.LE:
			text = "<="
		case token.GE:
			text = ">="
		default:
			return left
		}
		op := p.advance()
		right := p.parseAddition()
		left = p.binary(left, text, right, op.Pos)
	}
}

func (p *Parser) parseAddition() *ast.Node {
	left := p.parseMultiplication()
	for p.check(token.PLUS) || p.check(token.MINUS) {
		op := p.advance()
		right := p.parseMultiplication()
		left = p.binary(left, op.Text, right, op.Pos)
	}
	return left
}

func (p *Parser) parseMultiplication() *ast.Node {
	left := p.parseBitwiseXor()
	for p.check(token.STAR) || p.check(token.SLASH) {
		op := p.advance()
		right := p.parseBitwiseXor()
		left = p.binary(left, op.Text, right, op.Pos)
	}
	return left
}

func (p *Parser) parseBitwiseXor() *ast.Node {
	left := p.parseAsCast()
	for p.check(token.CARET) {
		op := p.advance()
		right := p.parseAsCast()
		left = p.binary(left, "^", right, op.Pos)
	}
	return left
}

func (p *Parser) parseAsCast() *ast.Node {
	left := p.parseUnary()
	for p.check(token.AS) {
		pos := p.advance().Pos
		n := p.newNode(ast.ExprCast, pos)
		n.CastExpr = left
		n.CastType = p.parseType()
		left = n
	}
	return left
}

func (p *Parser) parseUnary() *ast.Node {
	switch p.curKind() {
	case token.MINUS, token.AMP, token.STAR:
		op := p.advance()
		n := p.newNode(ast.ExprUnary, op.Pos)
		n.Text = op.Text
		n.Operand = p.parseUnary()
		return n
	case token.NOT:
		op := p.advance()
		n := p.newNode(ast.ExprUnary, op.Pos)
		n.Text = "not"
		n.Operand = p.parseUnary()
		return n
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Node {
	expr := p.parsePrimary()
	for {
		switch p.curKind() {
		case token.DOT:
			dotPos := p.advance().Pos
			name := p.expect(token.IDENT, "a field or method name").Text
			var typeArgs []*ast.Node
			if p.check(token.LBRACKET) && p.genericArgsFollow() {
				typeArgs = p.parseTypeArgList()
			}
			if p.check(token.LPAREN) {
				call := p.newNode(ast.ExprMethodCall, dotPos)
				call.Receiver = expr
				call.Name = name
				call.TypeArgs = typeArgs
				call.Args = p.parseArgList()
				expr = call
			} else {
				field := p.newNode(ast.ExprField, dotPos)
				field.Base = expr
				field.Name = name
				expr = field
			}
		case token.LBRACKET:
			lb := p.advance()
			idx := p.newNode(ast.ExprIndex, lb.Pos)
			idx.IndexTarget = expr
			idx.IndexExpr = p.parseExpr()
			p.expect(token.RBRACKET, "]")
			expr = idx
		default:
			return expr
		}
	}
}

// parsePrimary handles literals, self, parenthesized expressions, array
// literals, and the identifier overload: `name(...)` is a struct literal
// when the arguments are `field = value` pairs and a call otherwise;
// `name[...]` is only consumed here as a generic type-argument list when
// a `(` immediately follows the matching `]`, otherwise the `[` is left
// for parsePostfix's index handling.
func (p *Parser) parsePrimary() *ast.Node {
	tok := p.cur()
	switch tok.Kind {
	case token.INT:
		p.advance()
		n := p.newNode(ast.ExprInt, tok.Pos)
		n.Text = tok.Text
		return n
	case token.FLOAT:
		p.advance()
		n := p.newNode(ast.ExprFloat, tok.Pos)
		n.Text = tok.Text
		return n
	case token.STRING:
		p.advance()
		n := p.newNode(ast.ExprString, tok.Pos)
		n.Text = tok.Text
		return n
	case token.TRUE, token.FALSE:
		p.advance()
		n := p.newNode(ast.ExprBool, tok.Pos)
		n.Text = tok.Text
		return n
	case token.NULL:
		p.advance()
		return p.newNode(ast.ExprNull, tok.Pos)
	case token.SELF:
		p.advance()
		return p.newNode(ast.ExprSelf, tok.Pos)
	case token.LPAREN:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RPAREN, ")")
		n := p.newNode(ast.ExprParen, tok.Pos)
		n.Inner = inner
		return n
	case token.LBRACKET:
		p.advance()
		n := p.newNode(ast.ExprArrayLiteral, tok.Pos)
		for !p.check(token.RBRACKET) && !p.check(token.EOF) {
			n.Elements = append(n.Elements, p.parseExpr())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACKET, "]")
		return n
	case token.SIZEOF:
		p.advance()
		p.expect(token.LPAREN, "(")
		n := p.newNode(ast.ExprSizeof, tok.Pos)
		n.SizeofType = p.parseType()
		p.expect(token.RPAREN, ")")
		return n
	case token.IDENT:
		return p.parseIdentPrimary()
	default:
		p.syntaxError("expected an expression, found %q", tok.Text)
		p.advance()
		return p.newNode(ast.ExprNull, tok.Pos)
	}
}

func (p *Parser) parseIdentPrimary() *ast.Node {
	tok := p.advance()
	ident := p.newNode(ast.ExprIdent, tok.Pos)
	ident.Name = tok.Text

	var typeArgs []*ast.Node
	if p.check(token.LBRACKET) && p.genericArgsFollow() {
		typeArgs = p.parseTypeArgList()
	}

	if p.check(token.LPAREN) {
		return p.parseCallOrStructLiteral(ident, typeArgs, tok.Pos)
	}
	if typeArgs != nil {
		// Type arguments with no following call: treat as a bare generic
		// type reference used in expression position (e.g. passed as a
		// value to a function expecting a type descriptor). Attach and
		// return the identifier unchanged, letting the analyzer reject it
		// if the context does not accept one.
		ident.TypeArgs = typeArgs
	}
	return ident
}

// parseTypeArgList consumes `[T, U, ...]` into type-expression nodes. The
// caller has already decided via genericArgsFollow that these are type
// arguments rather than an index.
func (p *Parser) parseTypeArgList() []*ast.Node {
	p.advance() // [
	var typeArgs []*ast.Node
	for !p.check(token.RBRACKET) {
		typeArgs = append(typeArgs, p.parseType())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACKET, "]")
	return typeArgs
}

// genericArgsFollow looks ahead from the current '[' to its matching ']'
// and reports whether a '(' immediately follows: the disambiguation
// between a generic type-argument list and an index expression.
func (p *Parser) genericArgsFollow() bool {
	depth := 0
	i := p.pos
	for ; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case token.LBRACKET:
			depth++
		case token.RBRACKET:
			depth--
			if depth == 0 {
				return i+1 < len(p.toks) && p.toks[i+1].Kind == token.LPAREN
			}
		case token.NEWLINE, token.EOF:
			return false
		}
	}
	return false
}

// parseCallOrStructLiteral is entered with the current token at the `(`
// following an identifier (optionally with type arguments already
// consumed). It distinguishes a struct literal `(field = value, …)` from
// a call `(args…)` by checking whether the first argument, if any, is an
// identifier immediately followed by `=`.
func (p *Parser) parseCallOrStructLiteral(ident *ast.Node, typeArgs []*ast.Node, pos diagnostics.Position) *ast.Node {
	p.advance() // (

	if p.check(token.RPAREN) {
		p.advance()
		call := p.newNode(ast.ExprCall, pos)
		call.Callee = ident
		call.TypeArgs = typeArgs
		return call
	}

	if p.check(token.IDENT) && p.peekAt(1).Kind == token.ASSIGN {
		n := p.newNode(ast.ExprStructLiteral, pos)
		n.Name = ident.Name
		n.TypeArgs = typeArgs
		for {
			fieldPos := p.cur().Pos
			name := p.expect(token.IDENT, "a field name").Text
			p.expect(token.ASSIGN, "=")
			value := p.parseExpr()
			n.FieldInits = append(n.FieldInits, &ast.FieldInit{Name: name, Value: value, Pos: fieldPos})
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN, ")")
		return n
	}

	call := p.newNode(ast.ExprCall, pos)
	call.Callee = ident
	call.TypeArgs = typeArgs
	call.Args = p.parseArgListBody()
	return call
}

// parseArgList parses a full `(args…)` argument list, used for method
// calls where the struct-literal ambiguity does not apply (a receiver
// already precedes the dot).
func (p *Parser) parseArgList() []*ast.Node {
	p.expect(token.LPAREN, "(")
	return p.parseArgListBody()
}

// parseArgListBody parses comma-separated expressions up to and including
// the closing `)`; the caller has already consumed the opening `(`.
func (p *Parser) parseArgListBody() []*ast.Node {
	var args []*ast.Node
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		args = append(args, p.parseExpr())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, ")")
	return args
}
