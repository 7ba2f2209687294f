package scope

import (
	"fmt"

	"github.com/dropctl/dropctl/internal/dropvalue"
)

// EvalContext carries per-call flags that affect how unresolved
// references are classified. The Evaluator (C3) sets DeferUnresolved when
// evaluating module/environment bodies ahead of calltime, per spec.md
// §4.2's deferral rule for `secrets.*` and `inputs.*`.
type EvalContext struct {
	// AssertionRefsAllowed permits bare `assert` and `response` variable
	// roots to resolve to Null instead of raising UndefinedVariable,
	// matching the "silently ignored" diagnostic class in spec.md §4.2.
	AssertionRefsAllowed bool
}

// Evaluate recursively walks expr against the Scope's flat namespace and
// function table, returning a best-effort Value together with any
// diagnostics raised along the way. Evaluation never aborts early: object
// and array literal entries, and traversal operator chains, continue
// evaluating siblings after a sub-expression fails so every error in a
// block surfaces in one pass (spec.md §4.1).
func (s *Scope) Evaluate(expr dropvalue.Expression, ctx EvalContext) (dropvalue.Value, *Diagnostics) {
	diags := &Diagnostics{}
	v := s.evaluate(expr, ctx, diags)
	return v, diags
}

func (s *Scope) evaluate(expr dropvalue.Expression, ctx EvalContext, diags *Diagnostics) dropvalue.Value {
	switch e := expr.(type) {
	case dropvalue.Literal:
		return e.Value

	case dropvalue.VariableRef:
		v, ok := s.Lookup(e.Name)
		if !ok {
			if ctx.AssertionRefsAllowed && (e.Name == "assert" || e.Name == "response") {
				return dropvalue.Null
			}
			diags.Add(Diagnostic{Kind: UndefinedVariable, Subject: e.Name, Message: "no such variable in scope"})
			return dropvalue.Null
		}
		return v

	case dropvalue.Traversal:
		return s.evaluateTraversal(e, ctx, diags)

	case dropvalue.FunctionCall:
		return s.evaluateFunctionCall(e, ctx, diags)

	case dropvalue.Template:
		return s.evaluateTemplate(e, ctx, diags)

	case dropvalue.ArrayLiteral:
		items := make([]dropvalue.Value, len(e.Elements))
		for i, el := range e.Elements {
			items[i] = s.evaluate(el, ctx, diags)
		}
		return dropvalue.Array(items)

	case dropvalue.ObjectLiteral:
		obj := dropvalue.NewObject()
		for _, entry := range e.Entries {
			key := s.evaluateKey(entry.Key, ctx, diags)
			val := s.evaluate(entry.Value, ctx, diags)
			obj.Set(key, val)
		}
		return dropvalue.ObjectValue(obj)

	default:
		diags.Add(Diagnostic{Kind: TypeErrorKind, Message: fmt.Sprintf("unsupported expression node %T", expr)})
		return dropvalue.Null
	}
}

// evaluateKey evaluates an object-literal key expression to a string,
// accepting bare variable references as literal identifier keys (HCL
// object-literal keys are frequently unquoted identifiers rather than
// variable lookups).
func (s *Scope) evaluateKey(expr dropvalue.Expression, ctx EvalContext, diags *Diagnostics) string {
	if ref, ok := expr.(dropvalue.VariableRef); ok {
		if _, bound := s.Lookup(ref.Name); !bound {
			return ref.Name
		}
	}
	v := s.evaluate(expr, ctx, diags)
	if str, ok := v.AsString(); ok {
		return str
	}
	return v.String()
}

func (s *Scope) evaluateTraversal(t dropvalue.Traversal, ctx EvalContext, diags *Diagnostics) dropvalue.Value {
	root := s.evaluate(t.Root, ctx, diags)
	if root.IsNull() && len(diags.Items) > 0 {
		last := diags.Items[len(diags.Items)-1]
		if last.Kind == UndefinedVariable {
			// root itself failed to resolve; walking further would only
			// produce noise.
			return dropvalue.Null
		}
	}

	pathPrefix := ""
	if ref, ok := t.Root.(dropvalue.VariableRef); ok {
		pathPrefix = ref.Name
	}

	current := root
	for _, op := range t.Operators {
		current = stepTraversal(current, op, pathPrefix, diags)
		pathPrefix = extendPath(pathPrefix, op)
	}
	return current
}

// extendPath appends one traversal step to a dotted diagnostic subject
// path, so a diagnostic raised mid-traversal is still tagged with its
// root tier (secrets, response, ...) for classification in internal/eval.
func extendPath(prefix string, op dropvalue.TraversalOp) string {
	var seg string
	switch op.Kind {
	case dropvalue.OpAttr:
		seg = op.Attr
	case dropvalue.OpStrIndex:
		seg = op.StrIndex
	case dropvalue.OpIntIndex:
		seg = fmt.Sprintf("%d", op.IntIndex)
	case dropvalue.OpSplat:
		seg = "*"
	}
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

func stepTraversal(current dropvalue.Value, op dropvalue.TraversalOp, pathPrefix string, diags *Diagnostics) dropvalue.Value {
	subject := extendPath(pathPrefix, op)
	switch op.Kind {
	case dropvalue.OpAttr, dropvalue.OpStrIndex:
		key := op.Attr
		if op.Kind == dropvalue.OpStrIndex {
			key = op.StrIndex
		}
		obj, ok := current.AsObject()
		if !ok {
			diags.Add(Diagnostic{Kind: TypeErrorKind, Subject: subject, Message: "cannot index non-object value"})
			return dropvalue.Null
		}
		v, ok := obj.Get(key)
		if !ok {
			diags.Add(Diagnostic{Kind: NoSuchKey, Subject: subject, Message: "key not present in object"})
			return dropvalue.Null
		}
		return v

	case dropvalue.OpIntIndex:
		arr, ok := current.AsArray()
		if !ok {
			diags.Add(Diagnostic{Kind: TypeErrorKind, Subject: subject, Message: "cannot index non-array value with an integer"})
			return dropvalue.Null
		}
		idx := op.IntIndex
		if idx < 0 || int(idx) >= len(arr) {
			diags.Add(Diagnostic{Kind: NoSuchKey, Subject: subject, Message: fmt.Sprintf("array index %d out of bounds", idx)})
			return dropvalue.Null
		}
		return arr[idx]

	case dropvalue.OpSplat:
		arr, ok := current.AsArray()
		if !ok {
			return dropvalue.Array([]dropvalue.Value{current})
		}
		return dropvalue.Array(arr)

	default:
		diags.Add(Diagnostic{Kind: TypeErrorKind, Subject: subject, Message: "unsupported traversal operator"})
		return dropvalue.Null
	}
}

func (s *Scope) evaluateFunctionCall(call dropvalue.FunctionCall, ctx EvalContext, diags *Diagnostics) dropvalue.Value {
	def, ok := s.LookupFunc(call.Name)
	if !ok {
		diags.Add(Diagnostic{Kind: UndefinedVariable, Subject: call.Name, Message: "no such function"})
		return dropvalue.Null
	}

	args := make([]dropvalue.Value, len(call.Args))
	for i, a := range call.Args {
		args[i] = s.evaluate(a, ctx, diags)
	}

	if !def.Variadic && len(args) != len(def.Params) {
		diags.Add(Diagnostic{Kind: ArityErrorKind, Subject: call.Name, Message: fmt.Sprintf("expected %d argument(s), got %d", len(def.Params), len(args))})
		return dropvalue.Null
	}

	for i, kind := range def.Params {
		if i >= len(args) {
			break
		}
		if !paramKindMatches(kind, args[i]) {
			diags.Add(Diagnostic{Kind: TypeErrorKind, Subject: call.Name, Message: fmt.Sprintf("argument %d has wrong type", i)})
			return dropvalue.Null
		}
	}

	result, err := def.Call(args)
	if err != nil {
		diags.Add(Diagnostic{Kind: TypeErrorKind, Subject: call.Name, Message: err.Error()})
		return dropvalue.Null
	}
	return result
}

func paramKindMatches(kind dropvalue.ParamKind, v dropvalue.Value) bool {
	switch kind {
	case dropvalue.ParamString:
		_, ok := v.AsString()
		return ok
	case dropvalue.ParamNumber:
		_, ok := v.AsNumber()
		return ok
	default:
		return true
	}
}

func (s *Scope) evaluateTemplate(t dropvalue.Template, ctx EvalContext, diags *Diagnostics) dropvalue.Value {
	var out string
	for _, part := range t.Parts {
		if part.IsLiteral {
			out += part.Literal
			continue
		}
		v := s.evaluate(part.Expr, ctx, diags)
		if str, ok := v.AsString(); ok {
			out += str
		} else {
			out += v.String()
		}
	}
	return dropvalue.Str(out)
}
