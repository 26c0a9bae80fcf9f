// Package token defines the lexical token kinds and positions shared by
// the lexer and parser.
package token

import "github.com/anchorlang/anchor/internal/diagnostics"

// Kind enumerates every lexical token variant.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF
	NEWLINE

	IDENT
	INT
	FLOAT
	STRING

	// Keywords
	FUNC
	RETURN
	END
	CONST
	EXPORT
	EXTERN
	VAR
	IF
	ELSEIF
	ELSE
	STRUCT
	INTERFACE
	FOR
	IN
	UNTIL
	STEP
	WHILE
	BREAK
	CONTINUE
	MATCH
	CASE
	ENUM
	SELF
	NULL
	TRUE
	FALSE
	FROM
	IMPORT
	AND
	OR
	NOT
	AS
	SIZEOF

	// Arithmetic
	PLUS
	MINUS
	STAR
	SLASH
	AMP
	CARET

	// Comparison
	EQ
	NEQ
	LT
	GT
	LE
	GE

	// Assignment
	ASSIGN
	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	COLON
	COMMA
	DOT
)

var keywords = map[string]Kind{
	"func":      FUNC,
	"return":    RETURN,
	"end":       END,
	"const":     CONST,
	"export":    EXPORT,
	"extern":    EXTERN,
	"var":       VAR,
	"if":        IF,
	"elseif":    ELSEIF,
	"else":      ELSE,
	"struct":    STRUCT,
	"interface": INTERFACE,
	"for":       FOR,
	"in":        IN,
	"until":     UNTIL,
	"step":      STEP,
	"while":     WHILE,
	"break":     BREAK,
	"continue":  CONTINUE,
	"match":     MATCH,
	"case":      CASE,
	"enum":      ENUM,
	"self":      SELF,
	"null":      NULL,
	"true":      TRUE,
	"false":     FALSE,
	"from":      FROM,
	"import":    IMPORT,
	"and":       AND,
	"or":        OR,
	"not":       NOT,
	"as":        AS,
	"sizeof":    SIZEOF,
}

// LookupIdent returns the keyword Kind for name, or IDENT if it is not a
// keyword.
func LookupIdent(name string) Kind {
	if k, ok := keywords[name]; ok {
		return k
	}
	return IDENT
}

// Token is one lexical unit: a kind, its raw source slice, and its
// starting position.
type Token struct {
	Kind Kind
	Text string
	Pos  diagnostics.Position
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", NEWLINE: "NEWLINE",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	FUNC: "func", RETURN: "return", END: "end", CONST: "const",
	EXPORT: "export", EXTERN: "extern", VAR: "var", IF: "if",
	ELSEIF: "elseif", ELSE: "else", STRUCT: "struct", INTERFACE: "interface",
	FOR: "for", IN: "in", UNTIL: "until", STEP: "step", WHILE: "while",
	BREAK: "break", CONTINUE: "continue", MATCH: "match", CASE: "case",
	ENUM: "enum", SELF: "self", NULL: "null", TRUE: "true", FALSE: "false",
	FROM: "from", IMPORT: "import", AND: "and", OR: "or", NOT: "not", AS: "as",
	SIZEOF: "sizeof",
	PLUS:   "+", MINUS: "-", STAR: "*", SLASH: "/", AMP: "&", CARET: "^",
	EQ: "==", NEQ: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	ASSIGN: "=", PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=", STAR_ASSIGN: "*=", SLASH_ASSIGN: "/=",
	LPAREN: "(", RPAREN: ")", LBRACKET: "[", RBRACKET: "]",
	COLON: ":", COMMA: ",", DOT: ".",
}
