package scope

import (
	"fmt"
	"strings"
)

// ErrorKind tags the pattern-matched error classes produced while
// resolving a Scope (spec.md §4.1, §9 "Expression evaluation with errors").
type ErrorKind int

const (
	// NoSuchKey is raised walking a traversal whose root resolved but an
	// intermediate or final segment does not exist.
	NoSuchKey ErrorKind = iota
	// UndefinedVariable is raised when a traversal or bare reference's
	// root identifier has no binding in the Scope at all.
	UndefinedVariable
	// TypeErrorKind is raised on a function-argument type mismatch or an
	// attempt to index into a non-indexable Value.
	TypeErrorKind
	// ArityErrorKind is raised calling a fixed-arity function with the
	// wrong number of arguments.
	ArityErrorKind
	// OverwriteWarning is raised (non-fatally) when a declaration shadows
	// an existing key at the same tier (spec.md §3 invariant).
	OverwriteWarning
)

func (k ErrorKind) String() string {
	switch k {
	case NoSuchKey:
		return "NoSuchKey"
	case UndefinedVariable:
		return "UndefinedVariable"
	case TypeErrorKind:
		return "TypeError"
	case ArityErrorKind:
		return "ArityError"
	case OverwriteWarning:
		return "OverwriteWarning"
	default:
		return "Unknown"
	}
}

// Diagnostic is a single classified error or warning produced while
// evaluating an expression against a Scope.
type Diagnostic struct {
	Kind    ErrorKind
	Subject string // the name/key/function implicated
	Message string
}

func (d Diagnostic) Error() string {
	if d.Subject != "" {
		return fmt.Sprintf("%s(%s): %s", d.Kind, d.Subject, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Diagnostics accumulates Diagnostic entries across a block evaluation
// without aborting sibling evaluation (spec.md §4.1: "Errors accumulate
// into a Diagnostics bundle rather than short-circuiting").
type Diagnostics struct {
	Items []Diagnostic
}

// Add appends a Diagnostic.
func (d *Diagnostics) Add(item Diagnostic) {
	d.Items = append(d.Items, item)
}

// Merge appends another Diagnostics' items.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.Items = append(d.Items, other.Items...)
}

// HasErrors reports whether any diagnostic was recorded, excluding
// OverwriteWarning which is informational only.
func (d *Diagnostics) HasErrors() bool {
	if d == nil {
		return false
	}
	for _, item := range d.Items {
		if item.Kind != OverwriteWarning {
			return true
		}
	}
	return false
}

// Of filters diagnostics by kind.
func (d *Diagnostics) Of(kind ErrorKind) []Diagnostic {
	if d == nil {
		return nil
	}
	var out []Diagnostic
	for _, item := range d.Items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// String renders all diagnostics, one per line, for the fatal-report path
// described in spec.md §4.2.
func (d *Diagnostics) String() string {
	if d == nil || len(d.Items) == 0 {
		return ""
	}
	lines := make([]string, len(d.Items))
	for i, item := range d.Items {
		lines[i] = item.Error()
	}
	return strings.Join(lines, "\n")
}
