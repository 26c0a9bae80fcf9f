package symbols

import (
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/types"
)

// Local is one function parameter or body-local variable binding
// discovered during body checking.
type Local struct {
	Name string
	Type *types.Type
	Decl *ast.Node
}

// ScopeStack is the nested-block local-variable stack a check context
// owns while walking one function or method body. The outermost scope
// holds parameters; each `if`/`for`/`while`/`match` body pushes a fresh
// scope and pops it on exit.
type ScopeStack struct {
	scopes []map[string]*Local
}

// NewScopeStack returns a stack with one (empty) scope already pushed, so
// callers can Declare parameters immediately.
func NewScopeStack() *ScopeStack {
	s := &ScopeStack{}
	s.Push()
	return s
}

// Push opens a new nested scope.
func (s *ScopeStack) Push() {
	s.scopes = append(s.scopes, make(map[string]*Local))
}

// Pop closes the innermost scope. Popping when no scope remains (after
// the outermost one was already popped) is a caller bug and panics,
// mirroring the check context's invariant that a function body never
// outlives its own enclosing scope.
func (s *ScopeStack) Pop() {
	if len(s.scopes) == 0 {
		panic("symbols: Pop on empty ScopeStack")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Declare binds name in the innermost scope. It reports false, without
// declaring, if name already exists in that same innermost scope (a
// same-scope redeclaration); shadowing an outer scope's binding is
// permitted and returns true.
func (s *ScopeStack) Declare(l *Local) bool {
	top := s.scopes[len(s.scopes)-1]
	if _, exists := top[l.Name]; exists {
		return false
	}
	top[l.Name] = l
	return true
}

// Lookup searches from the innermost scope outward.
func (s *ScopeStack) Lookup(name string) (*Local, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if l, ok := s.scopes[i][name]; ok {
			return l, true
		}
	}
	return nil, false
}

// ShadowsOuter reports whether name is already bound in some scope other
// than the innermost one. The analyzer does not call it; no shadowing
// diagnostic is emitted for locals.
func (s *ScopeStack) ShadowsOuter(name string) bool {
	for i := len(s.scopes) - 2; i >= 0; i-- {
		if _, ok := s.scopes[i][name]; ok {
			return true
		}
	}
	return false
}
