// Package scope implements C2: a layered variable environment resolved as
// a single flat namespace (spec.md §4.1). Tiers (secrets, env, mod,
// inputs, response) are declared as object-valued top-level variables;
// the designated "global" module's entries are declared directly as flat
// top-level variables, matching the original implementation's
// GlobalInterpreterContext wiring (interpreter/scope.rs).
package scope

import (
	"github.com/dropctl/dropctl/internal/dropvalue"
)

// Tier names the well-known object-valued top-level variables a Scope
// carries (spec.md §3).
const (
	TierSecrets  = "secrets"
	TierEnv      = "env"
	TierMod      = "mod"
	TierInputs   = "inputs"
	TierResponse = "response"
	// TierChain carries a ChainNode's dependency outputs, namespaced by
	// node id (`chain.<node>.<output>`), so a node's own attributes can
	// reference a predecessor's result (spec.md §4.7).
	TierChain = "chain"
)

// Scope is a push-down mapping from names to Value plus a function table
// (spec.md §4.1).
type Scope struct {
	vars  map[string]dropvalue.Value
	funcs map[string]dropvalue.FunctionDef
	diags *Diagnostics
}

// New creates an empty Scope pre-populated with the built-in helper
// functions (spec.md §4.1).
func New() *Scope {
	s := &Scope{
		vars:  make(map[string]dropvalue.Value),
		funcs: make(map[string]dropvalue.FunctionDef),
		diags: &Diagnostics{},
	}
	for name, def := range dropvalue.BuiltinFunctions() {
		s.funcs[name] = def
	}
	return s
}

// Diagnostics returns the diagnostics accumulated by DeclareVar overwrite
// warnings and any Evaluate calls routed through this Scope.
func (s *Scope) Diagnostics() *Diagnostics {
	return s.diags
}

// DeclareVar idempotently inserts or overwrites a binding. Overwriting an
// existing key logs a diagnostic but succeeds (spec.md §3 invariant).
func (s *Scope) DeclareVar(name string, v dropvalue.Value) {
	if _, exists := s.vars[name]; exists {
		s.diags.Add(Diagnostic{
			Kind:    OverwriteWarning,
			Subject: name,
			Message: "declaration shadows an existing binding",
		})
	}
	s.vars[name] = v
}

// DeclareFunc registers a host function, overwriting any prior
// registration under the same name.
func (s *Scope) DeclareFunc(name string, def dropvalue.FunctionDef) {
	s.funcs[name] = def
}

// Lookup resolves a bare name through the flat namespace.
func (s *Scope) Lookup(name string) (dropvalue.Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// LookupFunc resolves a registered function by name.
func (s *Scope) LookupFunc(name string) (dropvalue.FunctionDef, bool) {
	def, ok := s.funcs[name]
	return def, ok
}

// OverlayObject declares one of the well-known tiers (secrets, env, mod,
// inputs, response) as an object-valued variable. Per spec.md §3, each of
// secrets/env/mod/inputs must already be a mapping; passing nil installs
// an empty object so lookups fail with NoSuchKey rather than
// UndefinedVariable.
func (s *Scope) OverlayObject(tier string, obj *dropvalue.Object) {
	s.DeclareVar(tier, dropvalue.ObjectValue(obj))
}

// Clone returns an independent copy of the Scope suitable for per-DropRun
// mutation (spec.md §3: "Scopes are... cloned per DropRun, and mutated
// only by the owning DropRun"). Diagnostics are not shared with the
// clone's future mutations.
func (s *Scope) Clone() *Scope {
	clone := &Scope{
		vars:  make(map[string]dropvalue.Value, len(s.vars)),
		funcs: make(map[string]dropvalue.FunctionDef, len(s.funcs)),
		diags: &Diagnostics{},
	}
	for k, v := range s.vars {
		clone.vars[k] = v
	}
	for k, v := range s.funcs {
		clone.funcs[k] = v
	}
	return clone
}

// Names returns every top-level variable name currently bound, for
// debugging and the `give` command's evaluated-block dump.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	return names
}
