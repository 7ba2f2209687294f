package assertion

import (
	"fmt"

	"github.com/dropctl/dropctl/internal/dropvalue"
)

var operatorNames = map[string]Operator{
	"equals":       OpEquals,
	"contains":     OpContains,
	"starts_with":  OpStartsWith,
	"length":       OpLength,
	"less_than":    OpLessThan,
	"greater_than": OpGreaterThan,
	"exist":        OpExist,
	"not_exist":    OpNotExist,
}

// FromValue decodes an evaluated `assert` attribute object into the
// Assertion list Evaluate consumes. Each key is a dotted path into the
// response (e.g. "response.body.id"); each value is either a bare
// expected value (OpEquals) or an object `{ operator = "...", value =
// ... }` naming one of the other seven operators (spec.md §4.4), decoded
// the way the original's AssertExpectedValue::from_traversal classifies
// an assert entry by its operator name.
func FromValue(obj *dropvalue.Object) ([]Assertion, error) {
	if obj == nil {
		return nil, nil
	}

	assertions := make([]Assertion, 0, obj.Len())
	for _, path := range obj.Keys() {
		v, _ := obj.Get(path)

		_, ops, err := dropvalue.ParseTraversalPath(path)
		if err != nil {
			return nil, fmt.Errorf("assert key %q: %w", path, err)
		}

		a, err := assertionFromValue(path, ops, v)
		if err != nil {
			return nil, err
		}
		assertions = append(assertions, a)
	}
	return assertions, nil
}

func assertionFromValue(path string, ops []dropvalue.TraversalOp, v dropvalue.Value) (Assertion, error) {
	entry, ok := v.AsObject()
	if !ok {
		return Assertion{DisplayName: path, Operator: OpEquals, Operand: v, Ops: ops}, nil
	}

	opName, ok := entry.Get("operator")
	if !ok {
		return Assertion{DisplayName: path, Operator: OpEquals, Operand: v, Ops: ops}, nil
	}
	name, _ := opName.AsString()
	op, ok := operatorNames[name]
	if !ok {
		return Assertion{}, fmt.Errorf("assert %q: unrecognized operator %q", path, name)
	}

	operand, _ := entry.Get("value")
	return Assertion{DisplayName: path, Operator: op, Operand: operand, Ops: ops}, nil
}
