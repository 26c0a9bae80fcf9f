package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/anchorlang/anchor/internal/types"
)

var identUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

func sanitizeIdent(s string) string { return identUnsafe.ReplaceAllString(s, "_") }

// cType lowers t to its C spelling. Slices and arrays lower to a
// synthesized {ptr,len} struct, registered into the emitter's aux-typedef
// set on first use so the header only defines each distinct shape once.
func (e *emitter) cType(t *types.Type) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case types.Void:
		return "void"
	case types.Bool:
		return "bool"
	case types.Byte:
		return "uint8_t"
	case types.Short:
		return "int16_t"
	case types.UShort:
		return "uint16_t"
	case types.Int:
		return "int32_t"
	case types.UInt:
		return "uint32_t"
	case types.Long:
		return "int64_t"
	case types.ULong:
		return "uint64_t"
	case types.ISize:
		return "intptr_t"
	case types.USize:
		return "size_t"
	case types.Float:
		return "float"
	case types.Double:
		return "double"
	case types.String:
		return "anc__string"
	case types.Struct, types.Interface, types.Enum:
		// Monomorphized generics carry a mangled Name like "Box[int]";
		// sanitizeIdent turns the bracket/comma punctuation the cache key
		// uses into a valid C identifier.
		return e.mangle(t.Module, sanitizeIdent(t.Name))
	case types.Ref:
		if t.Elem != nil && t.Elem.Kind == types.Interface {
			return e.refTypeName(t.Elem)
		}
		return e.cType(t.Elem) + "*"
	case types.Ptr:
		if t.Elem != nil && t.Elem.Kind == types.Interface {
			return e.refTypeName(t.Elem) + "*"
		}
		return e.cType(t.Elem) + "*"
	case types.Array, types.Slice:
		return e.vecTypeName(t.Elem)
	case types.Func:
		return e.cType(t.Result)
	}
	return "void"
}

// refTypeName is the fat-pointer ref struct name paired with every
// interface: "{ void* data; …__vtable* vtable }".
func (e *emitter) refTypeName(iface *types.Type) string {
	return e.mangle(iface.Module, iface.Name) + "__ref"
}

func (e *emitter) vtableTypeName(iface *types.Type) string {
	return e.mangle(iface.Module, iface.Name) + "__vtable"
}

// vecTypeName returns (registering it if new) the name of the {ptr,len}
// struct used for both array and slice element types of elem. Arrays and
// slices share the identical runtime representation, which is what makes
// the array-to-slice implicit conversion a no-op at emission.
func (e *emitter) vecTypeName(elem *types.Type) string {
	elemC := e.cType(elem)
	name := "anc__vec_" + sanitizeIdent(elemC)
	if _, ok := e.auxTypes[name]; ok {
		return name
	}
	guard := strings.ToUpper(name) + "_DEFINED"
	def := fmt.Sprintf("#ifndef %s\n#define %s\ntypedef struct { %s* ptr; size_t len; } %s;\n#endif\n\n", guard, guard, elemC, name)
	e.auxTypes[name] = def
	e.auxOrder = append(e.auxOrder, name)
	return name
}
