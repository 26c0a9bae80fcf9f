package types

import (
	"golang.org/x/exp/constraints"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/ast"
)

// Registry owns the canonical primitive singletons for one compiler
// invocation, so primitive identity is pointer identity. Compound types
// are allocated fresh under the same arena by the New* constructors
// below; compounds are never structurally deduplicated.
type Registry struct {
	a          *arena.Arena
	primitives map[Kind]*Type
}

var primitiveKinds = []Kind{
	Void, Bool, Byte, Short, UShort, Int, UInt, Long, ULong, ISize, USize, Float, Double, String,
}

// NewRegistry allocates the primitive singletons under a.
func NewRegistry(a *arena.Arena) *Registry {
	r := &Registry{a: a, primitives: make(map[Kind]*Type, len(primitiveKinds))}
	for _, k := range primitiveKinds {
		t := arena.Alloc[Type](a)
		t.Kind = k
		r.primitives[k] = t
	}
	return r
}

// Primitive returns the canonical singleton for a primitive kind. Calling
// it twice for the same kind returns the identical pointer.
func (r *Registry) Primitive(k Kind) *Type {
	if t, ok := r.primitives[k]; ok {
		return t
	}
	panic("types: not a primitive kind")
}

func (r *Registry) Void() *Type   { return r.Primitive(Void) }
func (r *Registry) Bool() *Type   { return r.Primitive(Bool) }
func (r *Registry) Int() *Type    { return r.Primitive(Int) }
func (r *Registry) Double() *Type { return r.Primitive(Double) }
func (r *Registry) Float() *Type  { return r.Primitive(Float) }
func (r *Registry) String() *Type { return r.Primitive(String) }

// NewStruct allocates a fresh struct type. Two separate calls, even with
// identical arguments, produce distinct pointers (structs are named types
// compared by pointer identity; see Equals).
func (r *Registry) NewStruct(name, module string, fields []StructField, methods []*ast.Node) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Name, t.Module, t.Fields, t.Methods = Struct, name, module, fields, methods
	return t
}

func (r *Registry) NewInterface(name, module string, sigs []InterfaceMethod) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Name, t.Module, t.Sigs = Interface, name, module, sigs
	return t
}

func (r *Registry) NewEnum(name, module string, variants []string) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Name, t.Module, t.Variants = Enum, name, module, variants
	return t
}

func (r *Registry) NewFunc(params []*Type, result *Type) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Params, t.Result = Func, params, result
	return t
}

func (r *Registry) NewRef(inner *Type) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Elem = Ref, inner
	return t
}

func (r *Registry) NewPtr(inner *Type) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Elem = Ptr, inner
	return t
}

func (r *Registry) NewArray(elem *Type, size int) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Elem, t.Size = Array, elem, size
	return t
}

func (r *Registry) NewSlice(elem *Type) *Type {
	t := arena.Alloc[Type](r.a)
	t.Kind, t.Elem = Slice, elem
	return t
}

// Equals compares structurally on compound kinds (ref/ptr/array/slice)
// and by pointer identity on primitives and named types
// (struct/interface/enum/func).
func Equals(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Ref, Ptr:
		return Equals(a.Elem, b.Elem)
	case Array:
		return a.Size == b.Size && Equals(a.Elem, b.Elem)
	case Slice:
		return Equals(a.Elem, b.Elem)
	default:
		// primitives and named types: already excluded by the a == b check above.
		return false
	}
}

// ranks orders integer kinds for widening checks.
var ranks = map[Kind]int{
	Byte: 1,
	Short: 2, UShort: 2,
	Int: 3, UInt: 3,
	Long: 4, ULong: 4, ISize: 4, USize: 4,
}

// Rank returns the integer conversion rank of k, or 0 if k is not integer.
func Rank(k Kind) int { return ranks[k] }

// widens reports whether a value of rank `from` may implicitly widen to a
// value of rank `to`, for any ordered rank representation.
func widens[R constraints.Ordered](from, to R) bool { return from <= to }

// IsWidening reports whether an implicit integer conversion from `from`
// to `to` is a widening: rank(from) <= rank(to). Narrowing never widens.
func IsWidening(from, to Kind) bool {
	if !IsInteger(from) || !IsInteger(to) {
		return false
	}
	return widens(Rank(from), Rank(to))
}
