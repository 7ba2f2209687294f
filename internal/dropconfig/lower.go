package dropconfig

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/dropctl/dropctl/internal/dropvalue"
)

// lowerExpr converts a parsed hclsyntax expression into the module's own
// Expression tree, so that internal/scope never needs to know HCL exists
// (spec.md §1: the parser is an external collaborator).
func lowerExpr(expr hclsyntax.Expression) (dropvalue.Expression, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		v, err := ctyToValue(e.Val)
		if err != nil {
			return nil, err
		}
		return dropvalue.Literal{Value: v}, nil

	case *hclsyntax.TemplateExpr:
		return lowerTemplate(e)

	case *hclsyntax.TemplateWrapExpr:
		return lowerExpr(e.Wrapped)

	case *hclsyntax.ScopeTraversalExpr:
		return lowerTraversal(e.Traversal)

	case *hclsyntax.RelativeTraversalExpr:
		root, err := lowerExpr(e.Source)
		if err != nil {
			return nil, err
		}
		ops, err := lowerTraverserOps(e.Traversal)
		if err != nil {
			return nil, err
		}
		return dropvalue.Traversal{Root: root, Operators: ops}, nil

	case *hclsyntax.FunctionCallExpr:
		args := make([]dropvalue.Expression, 0, len(e.Args))
		for _, a := range e.Args {
			lowered, err := lowerExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, lowered)
		}
		return dropvalue.FunctionCall{Name: e.Name, Args: args}, nil

	case *hclsyntax.TupleConsExpr:
		elems := make([]dropvalue.Expression, 0, len(e.Exprs))
		for _, el := range e.Exprs {
			lowered, err := lowerExpr(el)
			if err != nil {
				return nil, err
			}
			elems = append(elems, lowered)
		}
		return dropvalue.ArrayLiteral{Elements: elems}, nil

	case *hclsyntax.ObjectConsExpr:
		entries := make([]dropvalue.ObjectEntry, 0, len(e.Items))
		for _, item := range e.Items {
			keyExpr, err := lowerObjectKey(item.KeyExpr)
			if err != nil {
				return nil, err
			}
			valExpr, err := lowerExpr(item.ValueExpr)
			if err != nil {
				return nil, err
			}
			entries = append(entries, dropvalue.ObjectEntry{Key: keyExpr, Value: valExpr})
		}
		return dropvalue.ObjectLiteral{Entries: entries}, nil

	default:
		// Best-effort fallback for expressions this module doesn't model
		// explicitly (unary/binary operators, conditionals): if the
		// expression has no variable references it can be evaluated to a
		// constant cty.Value right now.
		if len(expr.Variables()) == 0 {
			val, diags := expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("lowering expression: %s", diags.Error())
			}
			v, err := ctyToValue(val)
			if err != nil {
				return nil, err
			}
			return dropvalue.Literal{Value: v}, nil
		}
		return nil, fmt.Errorf("unsupported expression type %T", expr)
	}
}

// lowerObjectKey handles the common cases HCL produces for object-literal
// keys: a bare identifier (parsed as a traversal naming a single root
// variable, treated as a literal string key) or any other expression.
func lowerObjectKey(expr hclsyntax.Expression) (dropvalue.Expression, error) {
	if wrapped, ok := expr.(*hclsyntax.ObjectConsKeyExpr); ok {
		if trav, ok := wrapped.Wrapped.(*hclsyntax.ScopeTraversalExpr); ok && !wrapped.ForceNonLiteral {
			if len(trav.Traversal) == 1 {
				if root, ok := trav.Traversal[0].(hcl.TraverseRoot); ok {
					return dropvalue.Literal{Value: dropvalue.Str(root.Name)}, nil
				}
			}
		}
		return lowerExpr(wrapped.Wrapped)
	}
	return lowerExpr(expr)
}

func lowerTemplate(e *hclsyntax.TemplateExpr) (dropvalue.Expression, error) {
	if e.IsStringLiteral() {
		val, diags := e.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("lowering string literal: %s", diags.Error())
		}
		return dropvalue.Literal{Value: dropvalue.Str(val.AsString())}, nil
	}

	parts := make([]dropvalue.TemplatePart, 0, len(e.Parts))
	for _, p := range e.Parts {
		if lit, ok := p.(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type() == cty.String {
			parts = append(parts, dropvalue.TemplatePart{Literal: lit.Val.AsString(), IsLiteral: true})
			continue
		}
		lowered, err := lowerExpr(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, dropvalue.TemplatePart{Expr: lowered})
	}
	return dropvalue.Template{Parts: parts}, nil
}

func lowerTraversal(t hcl.Traversal) (dropvalue.Expression, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("empty traversal")
	}
	root, ok := t[0].(hcl.TraverseRoot)
	if !ok {
		return nil, fmt.Errorf("traversal does not begin with a root variable")
	}
	ops, err := lowerTraverserOps(t[1:])
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return dropvalue.VariableRef{Name: root.Name}, nil
	}
	return dropvalue.Traversal{Root: dropvalue.VariableRef{Name: root.Name}, Operators: ops}, nil
}

func lowerTraverserOps(traversers []hcl.Traverser) ([]dropvalue.TraversalOp, error) {
	ops := make([]dropvalue.TraversalOp, 0, len(traversers))
	for _, step := range traversers {
		switch t := step.(type) {
		case hcl.TraverseRoot:
			ops = append(ops, dropvalue.TraversalOp{Kind: dropvalue.OpAttr, Attr: t.Name})
		case hcl.TraverseAttr:
			ops = append(ops, dropvalue.TraversalOp{Kind: dropvalue.OpAttr, Attr: t.Name})
		case hcl.TraverseIndex:
			switch t.Key.Type() {
			case cty.String:
				ops = append(ops, dropvalue.TraversalOp{Kind: dropvalue.OpStrIndex, StrIndex: t.Key.AsString()})
			case cty.Number:
				f := t.Key.AsBigFloat()
				n, _ := f.Int64()
				ops = append(ops, dropvalue.TraversalOp{Kind: dropvalue.OpIntIndex, IntIndex: n})
			default:
				return nil, fmt.Errorf("unsupported traversal index type %s", t.Key.Type().FriendlyName())
			}
		case hcl.TraverseSplat:
			ops = append(ops, dropvalue.TraversalOp{Kind: dropvalue.OpSplat})
		default:
			return nil, fmt.Errorf("unsupported traversal step %T", step)
		}
	}
	return ops, nil
}

// ctyToValue converts a cty.Value (as produced by a literal HCL expression)
// into the module's own Value union.
func ctyToValue(v cty.Value) (dropvalue.Value, error) {
	if v.IsNull() {
		return dropvalue.Null, nil
	}
	switch v.Type() {
	case cty.String:
		return dropvalue.Str(v.AsString()), nil
	case cty.Bool:
		return dropvalue.Bool(v.True()), nil
	case cty.Number:
		return dropvalue.Number(v.AsBigFloat()), nil
	}
	if v.Type().IsTupleType() || v.Type().IsListType() || v.Type().IsSetType() {
		items := make([]dropvalue.Value, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			converted, err := ctyToValue(elem)
			if err != nil {
				return dropvalue.Value{}, err
			}
			items = append(items, converted)
		}
		return dropvalue.Array(items), nil
	}
	if v.Type().IsObjectType() || v.Type().IsMapType() {
		obj := dropvalue.NewObject()
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			converted, err := ctyToValue(elem)
			if err != nil {
				return dropvalue.Value{}, err
			}
			obj.Set(key.AsString(), converted)
		}
		return dropvalue.ObjectValue(obj), nil
	}
	return dropvalue.Value{}, fmt.Errorf("unsupported cty type %s", v.Type().FriendlyName())
}
