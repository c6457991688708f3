package interp

import (
	"sort"

	"github.com/chazu/minitalk/lib/runtime"
)

// Scope holds the local variables of one script run. It is flat: the only
// nesting is an iteration variable, bound for the duration of a loop.
type Scope struct {
	vars map[string]runtime.Value
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]runtime.Value)}
}

// Declare binds each name to nil unless it is already bound.
func (s *Scope) Declare(names ...string) {
	for _, n := range names {
		if _, ok := s.vars[n]; !ok {
			s.vars[n] = runtime.NilValue()
		}
	}
}

// Get looks up a local.
func (s *Scope) Get(name string) (runtime.Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Set binds name, replacing any prior binding.
func (s *Scope) Set(name string, v runtime.Value) {
	s.vars[name] = v
}

// Names returns the bound names, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// shadow binds name to v and returns a function restoring the previous
// state, unbinding name if it was unbound.
func (s *Scope) shadow(name string, v runtime.Value) func() {
	prev, had := s.vars[name]
	s.vars[name] = v
	return func() {
		if had {
			s.vars[name] = prev
		} else {
			delete(s.vars, name)
		}
	}
}
