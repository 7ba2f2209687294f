package dropconfig

import (
	"fmt"

	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/dropvalue"
)

// ExprToDottedPath flattens a bare variable reference or traversal
// expression into its dotted string form, used to read `hit = mod.get.x`
// and chain `nodes = [...]` references without evaluating them against a
// Scope — they name other blocks, not data.
func ExprToDottedPath(expr dropvalue.Expression) (string, error) {
	switch e := expr.(type) {
	case dropvalue.VariableRef:
		return e.Name, nil
	case dropvalue.Traversal:
		root, ok := e.Root.(dropvalue.VariableRef)
		if !ok {
			return "", fmt.Errorf("drop id reference must start with a bare identifier")
		}
		return dropvalue.TraversalToString(root.Name, e.Operators), nil
	default:
		return "", fmt.Errorf("expected a drop id reference, got %T", expr)
	}
}

// OutputsFromExpressions converts a block's raw `outputs` traversal list
// into call.Output descriptors. Each entry must be a traversal rooted at
// the `response` variable (spec.md §4.3).
func OutputsFromExpressions(exprs []dropvalue.Expression) ([]call.Output, error) {
	outputs := make([]call.Output, 0, len(exprs))
	for _, expr := range exprs {
		trav, ok := expr.(dropvalue.Traversal)
		if !ok {
			return nil, fmt.Errorf("output must be a traversal expression")
		}
		root, ok := trav.Root.(dropvalue.VariableRef)
		if !ok || root.Name != "response" {
			return nil, fmt.Errorf("output traversal must be rooted at response")
		}
		path := dropvalue.TraversalToString("response", trav.Operators)
		outputs = append(outputs, call.Output{Path: path, Ops: trav.Operators})
	}
	return outputs, nil
}

// NamedOutputsFromEntries converts a ChainNode's keyed `outputs = { name =
// response.… }` entries into call.Output descriptors whose Path is the
// declared name rather than the traversal's own dotted path, so a later
// chain node can address this one's output by that name (spec.md §4.7,
// DESIGN.md's ChainNode named outputs decision).
func NamedOutputsFromEntries(entries []dropvalue.ObjectEntry) ([]call.Output, error) {
	outputs := make([]call.Output, 0, len(entries))
	for _, entry := range entries {
		name, err := objectKeyName(entry.Key)
		if err != nil {
			return nil, err
		}
		trav, ok := entry.Value.(dropvalue.Traversal)
		if !ok {
			return nil, fmt.Errorf("output %q must be a traversal expression", name)
		}
		root, ok := trav.Root.(dropvalue.VariableRef)
		if !ok || root.Name != "response" {
			return nil, fmt.Errorf("output %q traversal must be rooted at response", name)
		}
		outputs = append(outputs, call.Output{Path: name, Ops: trav.Operators})
	}
	return outputs, nil
}

// objectKeyName extracts a plain string name from an object-literal key
// expression: a bare identifier (the common case) or a string literal.
func objectKeyName(expr dropvalue.Expression) (string, error) {
	switch k := expr.(type) {
	case dropvalue.VariableRef:
		return k.Name, nil
	case dropvalue.Literal:
		if s, ok := k.Value.AsString(); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("output key must be a bare identifier or string literal")
}

// AfterActionsFromValue decodes an evaluated `after` attribute (an array
// of objects) into the module's AfterAction list (spec.md §4.6).
func AfterActionsFromValue(v dropvalue.Value) ([]call.AfterAction, error) {
	if v.IsNull() {
		return nil, nil
	}
	arr, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("after must be an array of objects")
	}
	actions := make([]call.AfterAction, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.AsObject()
		if !ok {
			return nil, fmt.Errorf("after entry must be an object")
		}
		action := call.AfterAction{Env: "base"}
		if t, ok := obj.Get("type"); ok {
			action.Type, _ = t.AsString()
		}
		if in, ok := obj.Get("input"); ok {
			action.Input, _ = in.AsString()
		}
		if k, ok := obj.Get("key"); ok {
			action.Key, _ = k.AsString()
		}
		if env, ok := obj.Get("env"); ok {
			if s, ok := env.AsString(); ok && s != "" {
				action.Env = s
			}
		}
		if ow, ok := obj.Get("overwrite"); ok {
			action.Overwrite, _ = ow.AsBool()
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// HeadersFromValue decodes an evaluated `headers` attribute (an array of
// single-entry objects) into a flat map (spec.md §4.5).
func HeadersFromValue(v dropvalue.Value) map[string]string {
	if v.IsNull() {
		return nil
	}
	arr, ok := v.AsArray()
	if !ok {
		return nil
	}
	return call.HeadersFromArray(arr)
}

// CallFromAttrs builds the resolved part of a Call block from its
// evaluated attribute object and raw outputs list. BaseURL and Path are
// stored separately; Call.URL concatenates them when the request is built.
func CallFromAttrs(dropID string, method call.Method, obj *dropvalue.Object, outputs []dropvalue.Expression) (call.Call, error) {
	c := call.Call{DropID: dropID, Method: method}

	if v, ok := obj.Get("base_url"); ok {
		c.BaseURL, _ = v.AsString()
	}
	if v, ok := obj.Get("path"); ok {
		c.Path, _ = v.AsString()
	}
	if v, ok := obj.Get("headers"); ok {
		c.Headers = HeadersFromValue(v)
	}
	if v, ok := obj.Get("body"); ok && !v.IsNull() {
		body := v
		c.Body = &body
	}
	if v, ok := obj.Get("assert"); ok {
		if assertObj, ok := v.AsObject(); ok {
			c.Assertions = assertObj
		}
	}
	if v, ok := obj.Get("after"); ok {
		actions, err := AfterActionsFromValue(v)
		if err != nil {
			return call.Call{}, fmt.Errorf("decoding call %s: %w", dropID, err)
		}
		c.After = actions
	}

	resolvedOutputs, err := OutputsFromExpressions(outputs)
	if err != nil {
		return call.Call{}, fmt.Errorf("decoding call %s outputs: %w", dropID, err)
	}
	c.Outputs = resolvedOutputs

	return c, nil
}
