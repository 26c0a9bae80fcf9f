// Package types implements the canonical type registry: one singleton per
// primitive (pointer identity is type identity for primitives), with
// compound kinds allocated fresh per construction and compared
// structurally. There is no type inference here, only resolution and
// structural/pointer equality.
package types

import (
	"fmt"
	"strings"

	"github.com/anchorlang/anchor/internal/ast"
)

// Kind tags which variant a Type is.
type Kind int

const (
	Void Kind = iota
	Bool
	Byte
	Short
	UShort
	Int
	UInt
	Long
	ULong
	ISize
	USize
	Float
	Double
	String

	Struct
	Interface
	Enum
	Func
	Ref
	Ptr
	Array
	Slice
)

// StructField is one resolved `name: Type` struct member.
type StructField struct {
	Name string
	Type *Type
}

// InterfaceMethod is one resolved interface method signature.
type InterfaceMethod struct {
	Name string
	Type *Type // Kind == Func
	Decl *ast.Node
}

// Type is the single variant type value. Only the fields relevant to Kind
// are populated, mirroring internal/ast.Node's tagged-variant design.
type Type struct {
	Kind Kind

	// Struct/Interface/Enum: declaration identity.
	Name   string
	Module string

	// Struct.
	Fields  []StructField
	Methods []*ast.Node // DeclFunc nodes, receiver set

	// Interface.
	Sigs []InterfaceMethod

	// Enum.
	Variants []string

	// Func.
	Params []*Type
	Result *Type

	// Ref/Ptr/Array/Slice.
	Elem *Type
	Size int // Array only
}

// TypeName implements ast.ResolvedType, rendering t the way it would be
// written in source. Every call builds and returns its own string, so
// interleaved calls in one format expression never collide.
func (t *Type) TypeName() string {
	if t == nil {
		return "<unresolved>"
	}
	switch t.Kind {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Byte:
		return "byte"
	case Short:
		return "short"
	case UShort:
		return "ushort"
	case Int:
		return "int"
	case UInt:
		return "uint"
	case Long:
		return "long"
	case ULong:
		return "ulong"
	case ISize:
		return "isize"
	case USize:
		return "usize"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case Struct:
		return t.Name
	case Interface:
		return t.Name
	case Enum:
		return t.Name
	case Func:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.TypeName()
		}
		ret := "void"
		if t.Result != nil {
			ret = t.Result.TypeName()
		}
		return fmt.Sprintf("func(%s): %s", strings.Join(parts, ", "), ret)
	case Ref:
		return "&" + t.Elem.TypeName()
	case Ptr:
		return "*" + t.Elem.TypeName()
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem.TypeName(), t.Size)
	case Slice:
		return t.Elem.TypeName() + "[]"
	default:
		return "<invalid>"
	}
}

// IsPrimitive reports whether k is one of the primitive kinds.
func IsPrimitive(k Kind) bool {
	return k >= Void && k <= String
}

// IsInteger reports whether k is an integer primitive.
func IsInteger(k Kind) bool {
	switch k {
	case Byte, Short, UShort, Int, UInt, Long, ULong, ISize, USize:
		return true
	}
	return false
}

// IsNumeric reports whether k is an integer or floating-point primitive.
func IsNumeric(k Kind) bool {
	return IsInteger(k) || k == Float || k == Double
}
