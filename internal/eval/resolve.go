package eval

import (
	"fmt"

	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/scope"
)

// ModuleSource supplies the attribute lists for the global module, a
// named environment, and a named module, as discovered by dropconfig.
// Blocks not present in the loaded config return (nil, false).
type ModuleSource interface {
	GlobalAttrs() []AttributeExpr
	EnvironmentAttrs(name string) ([]AttributeExpr, bool)
	ModuleAttrs(name string) ([]AttributeExpr, bool)
}

// DefaultEnvironment is the environment name that need not be declared
// explicitly (spec.md §4.2 step 2).
const DefaultEnvironment = "base"

// BuildModuleScope implements spec.md §4.2's module resolution order: it
// layers global, then the named environment, then the named module onto
// a fresh Scope, returning the resulting Scope together with every
// deferred/fatal diagnostic collected along the way.
//
// The global module's entries are declared directly as flat top-level
// variables (spec.md §3); env and mod overlay as object-valued tiers
// under their respective names so `env.*` and `mod.*` traversals resolve.
func BuildModuleScope(src ModuleSource, envName, moduleName string) (*scope.Scope, *Diagnostics, error) {
	s := scope.New()
	all := &Diagnostics{}
	ctx := scope.EvalContext{AssertionRefsAllowed: true}

	globalAttrs := src.GlobalAttrs()
	globalObj, gd := EvaluateAttributes(globalAttrs, s, ctx)
	all.Deferred = append(all.Deferred, gd.Deferred...)
	all.Fatal = append(all.Fatal, gd.Fatal...)
	for _, key := range globalObj.Keys() {
		v, _ := globalObj.Get(key)
		s.DeclareVar(key, v)
	}

	envAttrs, ok := src.EnvironmentAttrs(envName)
	if !ok && envName != DefaultEnvironment {
		all.Fatal = append(all.Fatal, Finding{
			Path:  "env." + envName,
			Diag:  scope.Diagnostic{Kind: scope.NoSuchKey, Subject: "env." + envName, Message: fmt.Sprintf("environment %q is not declared", envName)},
			Class: ClassFatal,
		})
	}
	if ok {
		envObj, ed := EvaluateAttributes(envAttrs, s, ctx)
		all.Deferred = append(all.Deferred, ed.Deferred...)
		all.Fatal = append(all.Fatal, ed.Fatal...)
		s.OverlayObject(scope.TierEnv, envObj)
	} else {
		s.OverlayObject(scope.TierEnv, dropvalue.NewObject())
	}

	modAttrs, ok := src.ModuleAttrs(moduleName)
	if ok {
		modObj, md := EvaluateAttributes(modAttrs, s, ctx)
		all.Deferred = append(all.Deferred, md.Deferred...)
		all.Fatal = append(all.Fatal, md.Fatal...)
		s.OverlayObject(scope.TierMod, modObj)
	} else {
		s.OverlayObject(scope.TierMod, dropvalue.NewObject())
	}

	if all.ShouldAbort() {
		return s, all, fmt.Errorf("fatal evaluation errors building scope for %s/%s:\n%s", envName, moduleName, all.Report())
	}
	return s, all, nil
}
