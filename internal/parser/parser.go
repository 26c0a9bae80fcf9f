// Package parser implements the recursive-descent, precedence-climbing
// parser: a descent ladder per precedence level for expressions, paired
// with statement and declaration parsing and panic-mode recovery.
package parser

import (
	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/token"
)

// Parser consumes a flat token slice (already lexed in full) and builds
// an *ast.Node program tree under an arena.
type Parser struct {
	toks      []token.Token
	pos       int
	sink      *diagnostics.Sink
	a         *arena.Arena
	panicMode bool
}

// New returns a parser over toks. toks must end with an EOF token.
func New(toks []token.Token, sink *diagnostics.Sink, a *arena.Arena) *Parser {
	return &Parser{toks: toks, sink: sink, a: a}
}

// Parse lexes nothing itself; it parses toks into a Program node. This is
// the convenience entrypoint the module graph loader calls.
func Parse(toks []token.Token, sink *diagnostics.Sink, a *arena.Arena) *ast.Node {
	return New(toks, sink, a).ParseProgram()
}

func (p *Parser) newNode(k ast.Kind, pos diagnostics.Position) *ast.Node {
	n := arena.Alloc[ast.Node](p.a)
	n.Kind = k
	n.Pos = pos
	return n
}

func (p *Parser) cur() token.Token    { return p.toks[p.pos] }
func (p *Parser) curKind() token.Kind { return p.toks[p.pos].Kind }

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[idx]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.curKind() == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of kind k or records a SYNTAX-EXPECTED
// diagnostic and enters panic mode.
func (p *Parser) expect(k token.Kind, what string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.syntaxError("expected %s, found %q", what, p.cur().Text)
	return p.cur()
}

func (p *Parser) syntaxError(format string, args ...any) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.sink.Error(diagnostics.CodeSynExpected, p.cur().Pos, format, args...)
}

// synchronize advances past tokens until a declaration- or statement-
// starting keyword is found, then clears panic mode. This bounds error
// spew without bailing on the file.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.check(token.EOF) {
		switch p.curKind() {
		case token.FUNC, token.CONST, token.VAR, token.STRUCT, token.INTERFACE,
			token.ENUM, token.FROM, token.EXPORT, token.EXTERN,
			token.IF, token.FOR, token.WHILE, token.RETURN, token.BREAK,
			token.CONTINUE, token.MATCH:
			return
		}
		p.advance()
	}
}

// skipNewlines consumes zero or more NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

// consumeTerminator consumes the NEWLINE or EOF that must end a
// declaration or statement, plus any further blank newlines.
func (p *Parser) consumeTerminator() {
	if p.check(token.NEWLINE) {
		p.skipNewlines()
		return
	}
	if p.check(token.EOF) {
		return
	}
	p.syntaxError("expected end of line, found %q", p.cur().Text)
}

// atBlockEnd reports whether the current token closes an enclosing block:
// end, else, elseif, case, or EOF.
func (p *Parser) atBlockEnd() bool {
	switch p.curKind() {
	case token.END, token.ELSE, token.ELSEIF, token.CASE, token.EOF:
		return true
	}
	return false
}

// ParseProgram parses the whole token stream into a Program node,
// recovering from declaration-level errors via synchronize so one bad
// declaration does not suppress diagnostics for the rest of the file.
func (p *Parser) ParseProgram() *ast.Node {
	prog := p.newNode(ast.Program, p.cur().Pos)
	p.skipNewlines()
	for !p.check(token.EOF) {
		decl := p.parseDeclaration()
		if decl != nil {
			prog.Decls = append(prog.Decls, decl)
		}
		if p.panicMode {
			p.synchronize()
		}
		p.skipNewlines()
	}
	return prog
}

func (p *Parser) parseDeclaration() *ast.Node {
	exported := false
	extern := false
	for {
		switch p.curKind() {
		case token.EXPORT:
			exported = true
			p.advance()
			continue
		case token.EXTERN:
			extern = true
			p.advance()
			continue
		}
		break
	}

	switch p.curKind() {
	case token.CONST:
		return p.parseConstOrVar(ast.DeclConst, exported)
	case token.VAR:
		return p.parseConstOrVar(ast.DeclVar, exported)
	case token.FUNC:
		return p.parseFunc(exported, extern, "")
	case token.STRUCT:
		return p.parseStruct(exported)
	case token.INTERFACE:
		return p.parseInterface(exported)
	case token.ENUM:
		return p.parseEnum(exported)
	case token.FROM:
		return p.parseImport()
	default:
		p.syntaxError("expected a declaration, found %q", p.cur().Text)
		return nil
	}
}

func (p *Parser) parseConstOrVar(kind ast.Kind, exported bool) *ast.Node {
	start := p.cur().Pos
	p.advance() // const | var
	n := p.newNode(kind, start)
	n.Exported = exported
	n.Name = p.expect(token.IDENT, "a name").Text
	if p.match(token.COLON) {
		n.DeclType = p.parseType()
	}
	if p.match(token.ASSIGN) {
		n.Init = p.parseExpr()
	}
	p.consumeTerminator()
	return n
}

func (p *Parser) parseTypeParams() []string {
	if !p.match(token.LBRACKET) {
		return nil
	}
	var names []string
	for {
		names = append(names, p.expect(token.IDENT, "a type parameter").Text)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACKET, "]")
	return names
}

func (p *Parser) parseFunc(exported, extern bool, receiverStruct string) *ast.Node {
	start := p.cur().Pos
	p.advance() // func
	n := p.newNode(ast.DeclFunc, start)
	n.Exported = exported
	n.Extern = extern
	n.ReceiverStruct = receiverStruct
	n.Name = p.expect(token.IDENT, "a function name").Text
	n.TypeParams = p.parseTypeParams()

	p.expect(token.LPAREN, "(")
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		paramPos := p.cur().Pos
		name := p.expect(token.IDENT, "a parameter name").Text
		p.expect(token.COLON, ":")
		typ := p.parseType()
		n.Params = append(n.Params, &ast.Param{Name: name, Type: typ, Pos: paramPos})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, ")")

	if p.match(token.COLON) {
		n.ReturnType = p.parseType()
	}

	if n.Extern {
		p.consumeTerminator()
		return n
	}

	p.consumeTerminator()
	n.Body = p.parseBlock()
	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

func (p *Parser) parseStruct(exported bool) *ast.Node {
	start := p.cur().Pos
	p.advance() // struct
	n := p.newNode(ast.DeclStruct, start)
	n.Exported = exported
	n.Name = p.expect(token.IDENT, "a struct name").Text
	n.TypeParams = p.parseTypeParams()
	p.consumeTerminator()

	for !p.check(token.END) && !p.check(token.EOF) {
		if p.check(token.FUNC) {
			m := p.parseFunc(false, false, n.Name)
			n.Methods = append(n.Methods, m)
		} else {
			fieldPos := p.cur().Pos
			name := p.expect(token.IDENT, "a field name").Text
			p.expect(token.COLON, ":")
			typ := p.parseType()
			n.Fields = append(n.Fields, &ast.Field{Name: name, Type: typ, Pos: fieldPos})
			p.consumeTerminator()
		}
		if p.panicMode {
			p.synchronize()
		}
		p.skipNewlines()
	}
	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

func (p *Parser) parseInterface(exported bool) *ast.Node {
	start := p.cur().Pos
	p.advance() // interface
	n := p.newNode(ast.DeclInterface, start)
	n.Exported = exported
	n.Name = p.expect(token.IDENT, "an interface name").Text
	p.consumeTerminator()

	for !p.check(token.END) && !p.check(token.EOF) {
		sig := p.parseFunc(false, true, "")
		n.Signatures = append(n.Signatures, sig)
		if p.panicMode {
			p.synchronize()
		}
		p.skipNewlines()
	}
	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

func (p *Parser) parseEnum(exported bool) *ast.Node {
	start := p.cur().Pos
	p.advance() // enum
	n := p.newNode(ast.DeclEnum, start)
	n.Exported = exported
	n.Name = p.expect(token.IDENT, "an enum name").Text
	p.consumeTerminator()

	for !p.check(token.END) && !p.check(token.EOF) {
		n.Variants = append(n.Variants, p.expect(token.IDENT, "a variant name").Text)
		p.consumeTerminator()
		if p.panicMode {
			p.synchronize()
		}
		p.skipNewlines()
	}
	p.expect(token.END, "end")
	p.consumeTerminator()
	return n
}

func (p *Parser) parseImport() *ast.Node {
	start := p.cur().Pos
	p.advance() // from
	n := p.newNode(ast.DeclImport, start)
	n.ModulePath = append(n.ModulePath, p.expect(token.IDENT, "a module path").Text)
	for p.match(token.DOT) {
		n.ModulePath = append(n.ModulePath, p.expect(token.IDENT, "a module path segment").Text)
	}

	switch p.curKind() {
	case token.IMPORT:
		p.advance()
	case token.EXPORT:
		p.advance()
		n.ImportExport = true
	default:
		p.syntaxError("expected import or export, found %q", p.cur().Text)
	}

	for {
		n.ImportNames = append(n.ImportNames, p.expect(token.IDENT, "an imported name").Text)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consumeTerminator()
	return n
}

// parseType parses a type-expression: simple names (with optional generic
// type arguments), `&T`, `*T`, `T[N]`, and `T[]`.
func (p *Parser) parseType() *ast.Node {
	start := p.cur().Pos
	switch p.curKind() {
	case token.AMP:
		p.advance()
		n := p.newNode(ast.TypeRef, start)
		n.Inner = p.parseType()
		return n
	case token.STAR:
		p.advance()
		n := p.newNode(ast.TypePtr, start)
		n.Inner = p.parseType()
		return n
	}

	name := p.expect(token.IDENT, "a type name").Text
	base := p.newNode(ast.TypeSimple, start)
	base.Name = name
	if p.match(token.LBRACKET) {
		if p.check(token.RBRACKET) {
			p.advance()
			slice := p.newNode(ast.TypeSlice, start)
			slice.Inner = base
			return slice
		}
		if isDigitToken(p.cur()) {
			sizeTok := p.advance()
			arr := p.newNode(ast.TypeArray, start)
			arr.Inner = base
			sizeNode := p.newNode(ast.ExprInt, sizeTok.Pos)
			sizeNode.Text = sizeTok.Text
			arr.Size = sizeNode
			p.expect(token.RBRACKET, "]")
			return arr
		}
		for {
			base.TypeArgs = append(base.TypeArgs, p.parseType())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACKET, "]")
	}
	return base
}

func isDigitToken(t token.Token) bool { return t.Kind == token.INT }

// parseBlock parses statements until the enclosing block closes.
func (p *Parser) parseBlock() []*ast.Node {
	var stmts []*ast.Node
	p.skipNewlines()
	for !p.atBlockEnd() {
		s := p.parseStmt()
		if s != nil {
			stmts = append(stmts, s)
		}
		if p.panicMode {
			p.synchronize()
		}
		p.skipNewlines()
	}
	return stmts
}
