package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/scope"
)

func TestEvaluateAttributes_ClassifiesAssertAndResponseAsSilent(t *testing.T) {
	t.Parallel()

	s := scope.New()
	attrs := []AttributeExpr{
		{Key: "check", Expr: dropvalue.Traversal{
			Root:      dropvalue.VariableRef{Name: "response"},
			Operators: []dropvalue.TraversalOp{{Kind: dropvalue.OpAttr, Attr: "status"}},
		}},
	}

	_, diags := EvaluateAttributes(attrs, s, scope.EvalContext{AssertionRefsAllowed: true})
	require.Empty(t, diags.Deferred)
	require.Empty(t, diags.Fatal)
}

func TestEvaluateAttributes_ClassifiesSecretsAndInputsAsDeferred(t *testing.T) {
	t.Parallel()

	s := scope.New()
	attrs := []AttributeExpr{
		{Key: "token", Expr: dropvalue.Traversal{
			Root:      dropvalue.VariableRef{Name: scope.TierSecrets},
			Operators: []dropvalue.TraversalOp{{Kind: dropvalue.OpAttr, Attr: "api_key"}},
		}},
	}
	s.OverlayObject(scope.TierSecrets, dropvalue.NewObject())

	_, diags := EvaluateAttributes(attrs, s, scope.EvalContext{})
	require.Len(t, diags.Deferred, 1)
	require.Empty(t, diags.Fatal)
}

func TestEvaluateAttributes_ClassifiesOthersAsFatal(t *testing.T) {
	t.Parallel()

	s := scope.New()
	attrs := []AttributeExpr{
		{Key: "x", Expr: dropvalue.VariableRef{Name: "totally_unbound"}},
	}

	_, diags := EvaluateAttributes(attrs, s, scope.EvalContext{})
	require.Len(t, diags.Fatal, 1)
}

func TestShouldAbort_MoreFatalThanDeferred(t *testing.T) {
	t.Parallel()

	d := &Diagnostics{
		Fatal: []Finding{
			{Path: "a", Diag: scope.Diagnostic{Kind: scope.UndefinedVariable, Subject: "a", Message: "m1"}},
			{Path: "b", Diag: scope.Diagnostic{Kind: scope.UndefinedVariable, Subject: "b", Message: "m2"}},
		},
		Deferred: []Finding{
			{Path: "c", Diag: scope.Diagnostic{Kind: scope.NoSuchKey, Subject: "secrets.x", Message: "deferred"}},
		},
	}
	require.True(t, d.ShouldAbort())
}

func TestShouldAbort_FalseWhenDeferredOutnumbersFatal(t *testing.T) {
	t.Parallel()

	d := &Diagnostics{
		Fatal: []Finding{
			{Path: "a", Diag: scope.Diagnostic{Kind: scope.UndefinedVariable, Subject: "a", Message: "m1"}},
		},
		Deferred: []Finding{
			{Path: "b", Diag: scope.Diagnostic{Kind: scope.NoSuchKey, Subject: "secrets.x", Message: "d1"}},
			{Path: "c", Diag: scope.Diagnostic{Kind: scope.NoSuchKey, Subject: "secrets.y", Message: "d2"}},
		},
	}
	require.False(t, d.ShouldAbort())
}

func TestEvaluateInputs_StrictObjectExpression(t *testing.T) {
	t.Parallel()

	s := scope.New()
	expr := dropvalue.ObjectLiteral{Entries: []dropvalue.ObjectEntry{
		{Key: dropvalue.VariableRef{Name: "id"}, Value: dropvalue.Literal{Value: dropvalue.Int(5)}},
	}}

	obj, err := EvaluateInputs(expr, s)
	require.NoError(t, err)
	v, ok := obj.Get("id")
	require.True(t, ok)
	n, _ := v.AsInt64()
	require.Equal(t, int64(5), n)
}

func TestEvaluateInputs_NonObjectExpressionErrors(t *testing.T) {
	t.Parallel()

	s := scope.New()
	_, err := EvaluateInputs(dropvalue.Literal{Value: dropvalue.Int(1)}, s)
	require.Error(t, err)
}

type fakeModuleSource struct {
	global map[string][]AttributeExpr
	envs   map[string][]AttributeExpr
	mods   map[string][]AttributeExpr
}

func (f fakeModuleSource) GlobalAttrs() []AttributeExpr { return f.global["global"] }
func (f fakeModuleSource) EnvironmentAttrs(name string) ([]AttributeExpr, bool) {
	a, ok := f.envs[name]
	return a, ok
}
func (f fakeModuleSource) ModuleAttrs(name string) ([]AttributeExpr, bool) {
	a, ok := f.mods[name]
	return a, ok
}

func TestBuildModuleScope_LayersGlobalEnvMod(t *testing.T) {
	t.Parallel()

	src := fakeModuleSource{
		global: map[string][]AttributeExpr{"global": {
			{Key: "base_url", Expr: dropvalue.Literal{Value: dropvalue.Str("https://api.example.com")}},
		}},
		envs: map[string][]AttributeExpr{"base": {}},
		mods: map[string][]AttributeExpr{"users": {
			{Key: "path", Expr: dropvalue.Literal{Value: dropvalue.Str("/users")}},
		}},
	}

	s, diags, err := BuildModuleScope(src, "base", "users")
	require.NoError(t, err)
	require.False(t, diags.HasFatal())

	v, ok := s.Lookup("base_url")
	require.True(t, ok)
	str, _ := v.AsString()
	require.Equal(t, "https://api.example.com", str)

	mod, ok := s.Lookup(scope.TierMod)
	require.True(t, ok)
	modObj, _ := mod.AsObject()
	path, ok := modObj.Get("path")
	require.True(t, ok)
	pathStr, _ := path.AsString()
	require.Equal(t, "/users", pathStr)
}

func TestBuildModuleScope_MissingNonBaseEnvironmentIsFatal(t *testing.T) {
	t.Parallel()

	src := fakeModuleSource{
		global: map[string][]AttributeExpr{},
		envs:   map[string][]AttributeExpr{},
		mods:   map[string][]AttributeExpr{},
	}

	_, diags, err := BuildModuleScope(src, "staging", "users")
	require.Error(t, err)
	require.True(t, diags.HasFatal())
}
