package sem

import (
	"sort"

	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/modgraph"
	"github.com/anchorlang/anchor/internal/types"
)

// Analyzer runs the ordered analysis passes across every module in a
// graph. Each pass runs to completion across all modules before the next
// begins, so cross-module references (an imported struct's fields, a call
// into another module's generic function) are guaranteed resolved by the
// time a later pass needs them.
type Analyzer struct {
	reg   *types.Registry
	sink  *diagnostics.Sink
	graph *modgraph.Graph

	// instCache memoizes generic monomorphizations by a composite key of
	// the template declaration's identity and its concrete type argument
	// names, so instantiating Box[int] twice returns the same *types.Type.
	instCache map[string]*instResult

	loopDepth     int // any construct break may target: for/while/match
	realLoopDepth int // for/while only, what continue may target

	// declModule maps every top-level declaration node to the dotted path
	// of the module it was declared in, populated once in pass3a and read
	// by generic instantiation (generics.go) to stamp the owning module
	// onto a monomorphized type.
	declModule map[*ast.Node]string
	// methodSelf maps a non-generic struct method's Decl node to its
	// receiver type (&Struct), populated in pass3c and read in pass4 to
	// seed the body-checking scope's "self" binding.
	methodSelf map[*ast.Node]*types.Type
	// curModule is the module pass3b/3c/pass4 is currently walking, used
	// by generic instantiation to record which module's Instantiations
	// list a fresh monomorphization belongs to.
	curModule *modgraph.Module
	// substStack holds the active generic type-parameter substitutions
	// while filling a monomorphized struct's fields, innermost last, so a
	// nested generic instantiation's own substitution shadows the
	// enclosing one without losing it.
	substStack []map[string]*types.Type
	// modulesByDotted indexes every module by its dotted path, used when
	// recording a discovered interface implementation against the module
	// that owns the satisfying struct.
	modulesByDotted map[string]*modgraph.Module
}

// instResult is one instantiation-cache entry. methods is non-nil only
// for struct instantiations (per-instantiation method signatures, keyed
// by the shared template method node); self is non-nil only for generic
// method instantiations (the receiver struct type).
type instResult struct {
	typ     *types.Type
	methods map[*ast.Node]*types.Type
	self    *types.Type
}

// New returns an analyzer over every module already loaded into graph.
func New(reg *types.Registry, sink *diagnostics.Sink, graph *modgraph.Graph) *Analyzer {
	return &Analyzer{reg: reg, sink: sink, graph: graph, instCache: make(map[string]*instResult)}
}

// Analyze runs collection, import resolution, type resolution, and body
// checking over every module currently in the graph, in that order.
func (a *Analyzer) Analyze() {
	mods := a.graph.Modules()
	order := sortedModulePaths(mods)

	a.modulesByDotted = make(map[string]*modgraph.Module, len(mods))
	for _, m := range mods {
		if m != nil {
			a.modulesByDotted[m.DottedPath] = m
		}
	}

	a.pass1Collect(mods, order)
	a.pass2Imports(mods, order)
	a.pass3aTypeStubs(mods, order)
	a.pass3bFillTypes(mods, order)
	a.pass3cFuncTypes(mods, order)
	a.pass4Bodies(mods, order)
}

// sortedModulePaths returns the graph's file-path keys sorted, so passes
// iterate in a deterministic order regardless of Go's randomized map
// iteration: the same input module set always produces the same
// diagnostic order.
func sortedModulePaths(mods map[string]*modgraph.Module) []string {
	keys := make([]string, 0, len(mods))
	for k := range mods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
