package codegen

import "fmt"

// mangle renders the module-level symbol mangling scheme:
// "anc__<pkg>__<mod>__<name>".
func (e *emitter) mangle(modDotted, name string) string {
	return fmt.Sprintf("anc__%s__%s__%s", e.pkg, sanitize(modDotted), name)
}

// mangleMethod renders "anc__<pkg>__<mod>__<struct>__<method>".
func (e *emitter) mangleMethod(modDotted, structName, method string) string {
	return e.mangle(modDotted, structName) + "__" + method
}

// mangleVtable renders "anc__<pkg>__<mod_of_struct>__<struct>__<interface>__vtable".
func (e *emitter) mangleVtable(structModDotted, structName, ifaceName string) string {
	return e.mangle(structModDotted, structName) + "__" + ifaceName + "__vtable"
}

// mangleWrapper names the static per-implementation-pair wrapper
// function, "…__<struct>__<method>__wrapper", qualified with the full
// struct mangling so two structs named alike in different modules never
// collide even though the wrapper itself has internal linkage.
func (e *emitter) mangleWrapper(structModDotted, structName, method string) string {
	return e.mangleMethod(structModDotted, structName, method) + "__wrapper"
}
