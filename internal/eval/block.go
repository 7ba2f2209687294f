package eval

import (
	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/scope"
)

// Decoder converts an evaluated object back into a typed shape T. Each
// dropconfig block type (Call, Module, Environment, ChainNode, ...)
// supplies its own Decoder built from its own attribute schema.
type Decoder[T any] func(obj *dropvalue.Object) (T, error)

// EvaluateBlock implements spec.md §4.2's evaluate_block<T> contract: it
// evaluates every attribute of a block against scope, classifies the
// diagnostics raised, and — so long as no fatal diagnostic demands an
// abort — decodes the evaluated attributes into T via decode.
//
// The caller owns the abort decision: inspect the returned Diagnostics
// with ShouldAbort before trusting a zero-value T.
func EvaluateBlock[T any](attrs []AttributeExpr, s *scope.Scope, ctx scope.EvalContext, decode Decoder[T]) (T, *Diagnostics, error) {
	obj, diags := EvaluateAttributes(attrs, s, ctx)
	if diags.ShouldAbort() {
		var zero T
		return zero, diags, nil
	}
	typed, err := decode(obj)
	if err != nil {
		var zero T
		return zero, diags, err
	}
	return typed, diags, nil
}
