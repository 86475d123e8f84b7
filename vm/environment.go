package vm

import (
	"sort"

	"github.com/chazu/lox/lib/runtime"
)

// ---------------------------------------------------------------------------
// Environments: arena of lexical scopes
// ---------------------------------------------------------------------------

// EnvID is a handle to a scope in an Environments arena.
type EnvID int

const (
	// NoEnv is the parent of the global scope.
	NoEnv EnvID = -1

	// GlobalEnv is the outermost scope, created with the arena.
	GlobalEnv EnvID = 0
)

type scope struct {
	values   map[string]runtime.Value
	parent   EnvID
	captured bool // a closure holds this scope
}

// Environments owns every scope of one interpreter. Scopes refer to their
// parent by handle, so a chain always runs toward GlobalEnv and never
// forms a cycle.
type Environments struct {
	scopes []scope
}

// NewEnvironments creates an arena holding only the global scope.
func NewEnvironments() *Environments {
	e := &Environments{}
	e.New(NoEnv)
	return e
}

// New allocates a scope whose parent is parent.
func (e *Environments) New(parent EnvID) EnvID {
	e.scopes = append(e.scopes, scope{
		values: make(map[string]runtime.Value),
		parent: parent,
	})
	return EnvID(len(e.scopes) - 1)
}

// Parent returns the enclosing scope of env, or NoEnv for the globals.
func (e *Environments) Parent(env EnvID) EnvID {
	return e.scopes[env].parent
}

// Len returns the number of live scopes.
func (e *Environments) Len() int {
	return len(e.scopes)
}

// Define binds name in env itself, replacing any existing binding there.
func (e *Environments) Define(env EnvID, name string, v runtime.Value) {
	e.scopes[env].values[name] = v
}

// Get looks name up in env and then in each enclosing scope.
func (e *Environments) Get(env EnvID, name string) (runtime.Value, bool) {
	for id := env; id != NoEnv; id = e.scopes[id].parent {
		if v, ok := e.scopes[id].values[name]; ok {
			return v, true
		}
	}
	return runtime.Value{}, false
}

// Assign rebinds name in the nearest scope that already defines it. It
// reports false when no scope in the chain does.
func (e *Environments) Assign(env EnvID, name string, v runtime.Value) bool {
	for id := env; id != NoEnv; id = e.scopes[id].parent {
		if _, ok := e.scopes[id].values[name]; ok {
			e.scopes[id].values[name] = v
			return true
		}
	}
	return false
}

// Capture marks env as held by a closure. Captured scopes are never
// released.
func (e *Environments) Capture(env EnvID) {
	e.scopes[env].captured = true
}

// Release frees env if it is the most recently allocated scope and no
// closure captured it. Anything that could still refer to the top scope
// was allocated after it, so freeing only the top is always safe.
func (e *Environments) Release(env EnvID) {
	last := EnvID(len(e.scopes) - 1)
	if env != last || env == GlobalEnv || e.scopes[env].captured {
		return
	}
	e.scopes[last] = scope{}
	e.scopes = e.scopes[:last]
}

// Names returns the names bound directly in env, sorted.
func (e *Environments) Names(env EnvID) []string {
	names := make([]string, 0, len(e.scopes[env].values))
	for name := range e.scopes[env].values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
