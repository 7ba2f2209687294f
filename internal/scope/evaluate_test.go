package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropctl/dropctl/internal/dropvalue"
)

func TestEvaluate_LiteralAndVariableRef(t *testing.T) {
	t.Parallel()

	s := New()
	s.DeclareVar("name", dropvalue.Str("dropctl"))

	v, diags := s.Evaluate(dropvalue.Literal{Value: dropvalue.Int(7)}, EvalContext{})
	require.False(t, diags.HasErrors())
	n, _ := v.AsInt64()
	require.Equal(t, int64(7), n)

	v2, diags2 := s.Evaluate(dropvalue.VariableRef{Name: "name"}, EvalContext{})
	require.False(t, diags2.HasErrors())
	str, _ := v2.AsString()
	require.Equal(t, "dropctl", str)
}

func TestEvaluate_UndefinedVariableProducesDiagnostic(t *testing.T) {
	t.Parallel()

	s := New()
	v, diags := s.Evaluate(dropvalue.VariableRef{Name: "missing"}, EvalContext{})
	require.True(t, v.IsNull())
	require.True(t, diags.HasErrors())
	require.Equal(t, UndefinedVariable, diags.Items[0].Kind)
}

func TestEvaluate_AssertionRefsAllowedResolvesToNull(t *testing.T) {
	t.Parallel()

	s := New()
	v, diags := s.Evaluate(dropvalue.VariableRef{Name: "response"}, EvalContext{AssertionRefsAllowed: true})
	require.True(t, v.IsNull())
	require.False(t, diags.HasErrors())
}

func TestEvaluate_TraversalWalksNestedObject(t *testing.T) {
	t.Parallel()

	s := New()
	inner := dropvalue.NewObject()
	inner.Set("id", dropvalue.Int(42))
	outer := dropvalue.NewObject()
	outer.Set("body", dropvalue.ObjectValue(inner))
	s.OverlayObject(TierResponse, outer)

	traversal := dropvalue.Traversal{
		Root: dropvalue.VariableRef{Name: TierResponse},
		Operators: []dropvalue.TraversalOp{
			{Kind: dropvalue.OpAttr, Attr: "body"},
			{Kind: dropvalue.OpAttr, Attr: "id"},
		},
	}

	v, diags := s.Evaluate(traversal, EvalContext{})
	require.False(t, diags.HasErrors())
	n, _ := v.AsInt64()
	require.Equal(t, int64(42), n)
}

func TestEvaluate_TraversalMissingKeyRaisesNoSuchKey(t *testing.T) {
	t.Parallel()

	s := New()
	s.OverlayObject(TierMod, dropvalue.NewObject())

	traversal := dropvalue.Traversal{
		Root:      dropvalue.VariableRef{Name: TierMod},
		Operators: []dropvalue.TraversalOp{{Kind: dropvalue.OpAttr, Attr: "missing"}},
	}

	_, diags := s.Evaluate(traversal, EvalContext{})
	require.True(t, diags.HasErrors())
	require.Equal(t, NoSuchKey, diags.Items[0].Kind)
}

func TestEvaluate_TraversalIntIndexOutOfBounds(t *testing.T) {
	t.Parallel()

	s := New()
	s.DeclareVar("items", dropvalue.Array([]dropvalue.Value{dropvalue.Int(1)}))

	traversal := dropvalue.Traversal{
		Root:      dropvalue.VariableRef{Name: "items"},
		Operators: []dropvalue.TraversalOp{{Kind: dropvalue.OpIntIndex, IntIndex: 5}},
	}

	_, diags := s.Evaluate(traversal, EvalContext{})
	require.True(t, diags.HasErrors())
	require.Equal(t, NoSuchKey, diags.Items[0].Kind)
}

func TestEvaluate_FunctionCallArityError(t *testing.T) {
	t.Parallel()

	s := New()
	call := dropvalue.FunctionCall{Name: "bearer_auth", Args: []dropvalue.Expression{}}

	_, diags := s.Evaluate(call, EvalContext{})
	require.True(t, diags.HasErrors())
	require.Equal(t, ArityErrorKind, diags.Items[0].Kind)
}

func TestEvaluate_FunctionCallTypeError(t *testing.T) {
	t.Parallel()

	s := New()
	call := dropvalue.FunctionCall{
		Name: "bearer_auth",
		Args: []dropvalue.Expression{dropvalue.Literal{Value: dropvalue.Int(1)}},
	}

	_, diags := s.Evaluate(call, EvalContext{})
	require.True(t, diags.HasErrors())
	require.Equal(t, TypeErrorKind, diags.Items[0].Kind)
}

func TestEvaluate_FunctionCallSuccess(t *testing.T) {
	t.Parallel()

	s := New()
	call := dropvalue.FunctionCall{
		Name: "bearer_auth",
		Args: []dropvalue.Expression{dropvalue.Literal{Value: dropvalue.Str("tok")}},
	}

	v, diags := s.Evaluate(call, EvalContext{})
	require.False(t, diags.HasErrors())
	str, _ := v.AsString()
	require.Equal(t, "Bearer tok", str)
}

func TestEvaluate_TemplateConcatenatesParts(t *testing.T) {
	t.Parallel()

	s := New()
	s.DeclareVar("token", dropvalue.Str("abc"))

	tmpl := dropvalue.Template{Parts: []dropvalue.TemplatePart{
		{IsLiteral: true, Literal: "Bearer "},
		{Expr: dropvalue.VariableRef{Name: "token"}},
	}}

	v, diags := s.Evaluate(tmpl, EvalContext{})
	require.False(t, diags.HasErrors())
	str, _ := v.AsString()
	require.Equal(t, "Bearer abc", str)
}

func TestEvaluate_ArrayAndObjectLiterals(t *testing.T) {
	t.Parallel()

	s := New()
	arrLit := dropvalue.ArrayLiteral{Elements: []dropvalue.Expression{
		dropvalue.Literal{Value: dropvalue.Int(1)},
		dropvalue.Literal{Value: dropvalue.Int(2)},
	}}
	v, diags := s.Evaluate(arrLit, EvalContext{})
	require.False(t, diags.HasErrors())
	arr, ok := v.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 2)

	objLit := dropvalue.ObjectLiteral{Entries: []dropvalue.ObjectEntry{
		{Key: dropvalue.VariableRef{Name: "name"}, Value: dropvalue.Literal{Value: dropvalue.Str("x")}},
	}}
	v2, diags2 := s.Evaluate(objLit, EvalContext{})
	require.False(t, diags2.HasErrors())
	obj, ok := v2.AsObject()
	require.True(t, ok)
	val, ok := obj.Get("name")
	require.True(t, ok)
	str, _ := val.AsString()
	require.Equal(t, "x", str)
}
