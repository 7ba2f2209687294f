// Package eval implements C3: block-level evaluation on top of a Scope,
// classifying the diagnostics a Scope evaluation raises into the three
// buckets spec.md §4.2 describes (silently ignored, deferred-to-caller,
// fatal) and deciding when accumulated fatal diagnostics should abort the
// process.
package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/scope"
)

// Class tags which bucket a Scope diagnostic falls into once a block
// evaluation attributes it to a particular attribute path.
type Class int

const (
	// ClassSilentlyIgnored covers `assert.*` and `response.*` references:
	// legitimately unresolved until call time, and never reported.
	ClassSilentlyIgnored Class = iota
	// ClassDeferred covers `secrets.*`, `inputs.*`, and `chain.*`
	// references: user input or a predecessor's output that may only be
	// supplied at call time. Surfaced as a warning, never fatal.
	ClassDeferred
	// ClassFatal is everything else: a real evaluation error.
	ClassFatal
)

// Finding pairs a raised diagnostic with the attribute path it was found
// evaluating and its classification.
type Finding struct {
	Path  string
	Diag  scope.Diagnostic
	Class Class
}

// Diagnostics is the classified result of evaluating a block: the
// deferred warnings and fatal errors kept apart so callers can decide
// whether to proceed.
type Diagnostics struct {
	Deferred []Finding
	Fatal    []Finding
}

// HasFatal reports whether any fatal finding was recorded.
func (d *Diagnostics) HasFatal() bool {
	return d != nil && len(d.Fatal) > 0
}

// classify maps a referenced root identifier to its Class, per spec.md
// §4.2's deferral rule.
func classify(rootName string) Class {
	switch rootName {
	case "assert", "response":
		return ClassSilentlyIgnored
	case scope.TierSecrets, scope.TierInputs, scope.TierChain:
		return ClassDeferred
	default:
		return ClassFatal
	}
}

// rootOf extracts the first dotted segment of a diagnostic subject, which
// by convention is either a bare variable name or a dotted traversal path
// (e.g. "secrets.token").
func rootOf(subject string) string {
	if subject == "" {
		return ""
	}
	if i := strings.IndexByte(subject, '.'); i >= 0 {
		return subject[:i]
	}
	return subject
}

// EvaluateAttributes evaluates every expression in attrs against scope,
// classifying each raised diagnostic by the root identifier its subject
// names. It returns the evaluated values in the same key order as attrs
// and the classified Diagnostics.
func EvaluateAttributes(attrs []AttributeExpr, s *scope.Scope, ctx scope.EvalContext) (*dropvalue.Object, *Diagnostics) {
	result := dropvalue.NewObject()
	diags := &Diagnostics{}

	for _, attr := range attrs {
		v, d := s.Evaluate(attr.Expr, ctx)
		result.Set(attr.Key, v)
		for _, item := range d.Items {
			class := classify(rootOf(item.Subject))
			finding := Finding{Path: attr.Key, Diag: item, Class: class}
			switch class {
			case ClassSilentlyIgnored:
				// dropped entirely
			case ClassDeferred:
				diags.Deferred = append(diags.Deferred, finding)
			case ClassFatal:
				diags.Fatal = append(diags.Fatal, finding)
			}
		}
	}

	return result, diags
}

// AttributeExpr is one named expression of a block body, in source order.
type AttributeExpr struct {
	Key  string
	Expr dropvalue.Expression
}

// EvaluateInputs strictly evaluates a single object-literal expression,
// returning its OrderedMap. Any diagnostic raised (of any class) is
// treated as fatal — inputs have no deferral tier of their own (spec.md
// §4.2, evaluate_inputs).
func EvaluateInputs(expr dropvalue.Expression, s *scope.Scope) (*dropvalue.Object, error) {
	v, diags := s.Evaluate(expr, scope.EvalContext{})
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating inputs: %s", diags.String())
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("evaluating inputs: expected an object expression, got %s", v.Kind())
	}
	return obj, nil
}

// uniqueMessages counts distinct diagnostic messages, used to compare the
// fatal count against the deferred count per spec.md §4.2's exit rule.
func uniqueMessages(findings []Finding) int {
	seen := make(map[string]struct{})
	for _, f := range findings {
		seen[f.Diag.Error()] = struct{}{}
	}
	return len(seen)
}

// ShouldAbort reports whether accumulated diagnostics warrant an
// immediate process exit: fatal diagnostics exist and their unique
// message count exceeds the deferred count (spec.md §4.2).
func (d *Diagnostics) ShouldAbort() bool {
	if d == nil {
		return false
	}
	return len(d.Fatal) > 0 && uniqueMessages(d.Fatal) > uniqueMessages(d.Deferred)
}

// Report renders a human-readable fatal-error report in the style of the
// CLI's startup-abort path: one line per fatal finding, sorted by path for
// determinism, followed by a summary of deferred warnings.
func (d *Diagnostics) Report() string {
	if d == nil {
		return ""
	}
	var b strings.Builder

	fatal := append([]Finding(nil), d.Fatal...)
	sort.Slice(fatal, func(i, j int) bool { return fatal[i].Path < fatal[j].Path })
	for _, f := range fatal {
		fmt.Fprintf(&b, "error: %s: %s\n", f.Path, f.Diag.Error())
	}

	deferred := append([]Finding(nil), d.Deferred...)
	sort.Slice(deferred, func(i, j int) bool { return deferred[i].Path < deferred[j].Path })
	for _, f := range deferred {
		fmt.Fprintf(&b, "warning: %s.%s will have to be defined at calltime\n", rootOf(f.Diag.Subject), strings.TrimPrefix(f.Diag.Subject, rootOf(f.Diag.Subject)+"."))
	}

	return strings.TrimRight(b.String(), "\n")
}
