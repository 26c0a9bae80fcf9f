// Package ast defines the compiler's abstract syntax tree: one tagged
// variant type with a case per construct. Walkers switch on Kind and read
// the fields that kind populates, rather than dispatching through an
// interface hierarchy.
package ast

import "github.com/anchorlang/anchor/internal/diagnostics"

// Kind tags which construct a Node represents.
type Kind int

const (
	Program Kind = iota

	// Declarations
	DeclImport
	DeclConst
	DeclVar
	DeclFunc
	DeclStruct
	DeclInterface
	DeclEnum

	// Statements
	StmtReturn
	StmtIf
	StmtForRange
	StmtWhile
	StmtBreak
	StmtContinue
	StmtMatch
	StmtAssign
	StmtCompoundAssign
	StmtExpr

	// Expressions
	ExprInt
	ExprFloat
	ExprString
	ExprBool
	ExprNull
	ExprIdent
	ExprSelf
	ExprBinary
	ExprUnary
	ExprParen
	ExprCall
	ExprField
	ExprMethodCall
	ExprStructLiteral
	ExprCast
	ExprSizeof
	ExprArrayLiteral
	ExprIndex

	// Type expressions
	TypeSimple
	TypeRef
	TypePtr
	TypeArray
	TypeSlice
)

// ResolvedType is implemented by internal/types.Type. It is declared here,
// not imported, so that internal/types (which needs *Node back-pointers
// for struct fields and interface/struct methods) does not create an
// import cycle with internal/ast.
type ResolvedType interface {
	TypeName() string
}

// CaseClause is one `case value, value: ...` arm of a match statement.
type CaseClause struct {
	Values []*Node // expressions that must equal the subject
	Body   []*Node
}

// Param is one `name: Type` function/method parameter.
type Param struct {
	Name string
	Type *Node // a type-expression Node
	Pos  diagnostics.Position
}

// Field is one `name: Type` struct member. (Function parameters use
// Param above.)
type Field struct {
	Name string
	Type *Node
	Pos  diagnostics.Position
}

// Node is the single tagged-variant AST node. Only the fields relevant to
// Kind are populated; the rest are zero. Field groups below are documented
// by which Kinds use them.
type Node struct {
	Kind Kind
	Pos  diagnostics.Position

	// Identifier text: ExprIdent name, DeclFunc/DeclStruct/DeclInterface/
	// DeclEnum/DeclConst/DeclVar name, Param/Field name, ExprField/
	// ExprMethodCall member name, TypeSimple base name, import alias.
	Name string

	// Raw literal text: ExprInt/ExprFloat/ExprString text, ExprBool value
	// rendered as "true"/"false", operator spelling for ExprBinary/
	// ExprUnary/StmtCompoundAssign.
	Text string

	// Export flag: any declaration may be preceded by `export`.
	Exported bool

	// Generic type-parameter names: DeclFunc, DeclStruct (empty if
	// non-generic). Cleared on a monomorphized copy so the instantiation
	// is no longer generic.
	TypeParams []string

	// Declarations -----------------------------------------------------

	// DeclImport: module path segments ("from a.b.c import x, y").
	ModulePath []string
	// DeclImport: imported names; ImportExport true means this was the
	// `export`-style (re-export) form rather than plain `import`.
	ImportNames  []string
	ImportExport bool

	// DeclConst/DeclVar: optional type annotation and initializer.
	DeclType *Node // type-expression Node, nil if omitted
	Init     *Node // initializer expression, nil if omitted

	// DeclFunc: parameters, optional return type, body statements. Extern
	// functions have Body == nil and Extern true.
	Params     []*Param
	ReturnType *Node // nil means void
	Body       []*Node
	Extern     bool
	// DeclFunc as a method: the struct it is declared on (set by the
	// parser while inside a `struct ... end` body).
	ReceiverStruct string

	// DeclStruct: fields and inline method declarations (Kind == DeclFunc).
	Fields  []*Field
	Methods []*Node

	// DeclInterface: bodiless method signatures (Kind == DeclFunc, Body == nil).
	Signatures []*Node

	// DeclEnum: bare variant identifiers.
	Variants []string

	// Statements ---------------------------------------------------------

	// StmtReturn: optional value.
	Value *Node

	// StmtIf: condition, then-body, elseif branches, optional else-body.
	Cond        *Node
	Then        []*Node
	ElseIfConds []*Node
	ElseIfBody  [][]*Node
	Else        []*Node

	// StmtForRange: iterator name, start/end/step, body.
	IterName string
	Start    *Node
	End      *Node
	Step     *Node // nil means default step of 1

	// StmtWhile: reuses Cond and Body (Body also reused for block bodies).

	// StmtMatch: subject, cases, optional else body.
	Subject *Node
	Cases   []*CaseClause

	// StmtAssign/StmtCompoundAssign: lhs (lvalue expression) and rhs.
	Lhs *Node
	Rhs *Node

	// Expressions --------------------------------------------------------

	// ExprBinary/ExprUnary: operands. Left is nil for unary.
	Left  *Node
	Right *Node
	// ExprUnary: Operand is the single operand (Right unused for unary).
	Operand *Node

	// ExprParen: inner expression.
	Inner *Node

	// ExprCall/ExprMethodCall: callee (ExprCall) or receiver (ExprMethodCall),
	// explicit type arguments (generic calls), and arguments.
	Callee   *Node
	Receiver *Node
	TypeArgs []*Node // type-expression Nodes
	Args     []*Node

	// ExprField/ExprMethodCall: base expression (ExprField only; method
	// call reuses Receiver above) and member Name.
	Base *Node

	// ExprStructLiteral: struct type name (Name) and field initializers.
	FieldInits []*FieldInit

	// ExprCast: expression being cast and target type.
	CastExpr *Node
	CastType *Node

	// ExprSizeof: target type.
	SizeofType *Node

	// ExprArrayLiteral: elements.
	Elements []*Node

	// ExprIndex: indexed expression and index expression.
	IndexTarget *Node
	IndexExpr   *Node

	// Type expressions -----------------------------------------------------

	// TypeSimple: Name plus optional TypeArgs (generic instantiation, e.g. Box[int]).
	// TypeRef/TypePtr: Inner.
	// TypeArray: Inner element type, Size (constant expression or resolved int).
	Size *Node
	// TypeSlice: Inner element type.

	// Program: top-level declarations.
	Decls []*Node

	// Back-pointer filled in by the analyzer; nil means resolution failed
	// and the error is already reported.
	ResolvedType ResolvedType
}

// FieldInit is one `name = value` struct-literal field initializer.
type FieldInit struct {
	Name  string
	Value *Node
	Pos   diagnostics.Position
}

// IsLvalueKind reports whether n is a valid assignment target: identifier,
// field-access, self, index-expression, or dereference.
func (n *Node) IsLvalueKind() bool {
	switch n.Kind {
	case ExprIdent, ExprField, ExprSelf, ExprIndex:
		return true
	case ExprUnary:
		return n.Text == "*"
	}
	return false
}
