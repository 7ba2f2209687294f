package assertion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/walker"
)

func ops(t *testing.T, path string) []dropvalue.TraversalOp {
	t.Helper()
	_, ops, err := dropvalue.ParseTraversalPath(path)
	require.NoError(t, err)
	return ops
}

func TestEvaluate_EqualsPassAndFail(t *testing.T) {
	t.Parallel()

	resp := walker.Response{Body: `{"id": 5}`}
	results := Evaluate([]Assertion{
		{DisplayName: "response.body.id", Operator: OpEquals, Operand: dropvalue.Int(5), Ops: ops(t, "response.body.id")},
		{DisplayName: "response.body.id", Operator: OpEquals, Operand: dropvalue.Int(6), Ops: ops(t, "response.body.id")},
	}, resp)

	require.Equal(t, Success, results[0].Outcome)
	require.Equal(t, TestFailure, results[1].Outcome)
}

func TestEvaluate_ExistAndNotExist(t *testing.T) {
	t.Parallel()

	resp := walker.Response{Body: `{"id": 5}`}
	results := Evaluate([]Assertion{
		{DisplayName: "response.body.id", Operator: OpExist, Ops: ops(t, "response.body.id")},
		{DisplayName: "response.body.missing", Operator: OpExist, Ops: ops(t, "response.body.missing")},
		{DisplayName: "response.body.missing", Operator: OpNotExist, Ops: ops(t, "response.body.missing")},
		{DisplayName: "response.body.id", Operator: OpNotExist, Ops: ops(t, "response.body.id")},
	}, resp)

	require.Equal(t, Success, results[0].Outcome)
	require.Equal(t, TestFailure, results[1].Outcome)
	require.Equal(t, Success, results[2].Outcome)
	require.Equal(t, TestFailure, results[3].Outcome)
}

func TestEvaluate_WalkErrorMapsToFailureOnErrorForNonExistOperators(t *testing.T) {
	t.Parallel()

	resp := walker.Response{Body: `{"id": 5}`}
	results := Evaluate([]Assertion{
		{DisplayName: "response.body.missing", Operator: OpContains, Operand: dropvalue.Str("x"), Ops: ops(t, "response.body.missing")},
	}, resp)

	require.Equal(t, FailureOnError, results[0].Outcome)
}

func TestEvaluate_ContainsStartsWithLength(t *testing.T) {
	t.Parallel()

	resp := walker.Response{Body: `{"name": "dropctl", "tags": ["a", "b", "c"]}`}
	results := Evaluate([]Assertion{
		{DisplayName: "n", Operator: OpContains, Operand: dropvalue.Str("rop"), Ops: ops(t, "response.body.name")},
		{DisplayName: "n", Operator: OpStartsWith, Operand: dropvalue.Str("drop"), Ops: ops(t, "response.body.name")},
		{DisplayName: "t", Operator: OpLength, Operand: dropvalue.Int(3), Ops: ops(t, "response.body.tags")},
	}, resp)

	for _, r := range results {
		require.Equal(t, Success, r.Outcome)
	}
}

func TestEvaluate_LessThanGreaterThan(t *testing.T) {
	t.Parallel()

	resp := walker.Response{Body: `{"count": 10}`}
	results := Evaluate([]Assertion{
		{DisplayName: "c", Operator: OpLessThan, Operand: dropvalue.Int(20), Ops: ops(t, "response.body.count")},
		{DisplayName: "c", Operator: OpGreaterThan, Operand: dropvalue.Int(5), Ops: ops(t, "response.body.count")},
		{DisplayName: "c", Operator: OpLessThan, Operand: dropvalue.Int(5), Ops: ops(t, "response.body.count")},
	}, resp)

	require.Equal(t, Success, results[0].Outcome)
	require.Equal(t, Success, results[1].Outcome)
	require.Equal(t, TestFailure, results[2].Outcome)
}

func TestAllPassed(t *testing.T) {
	t.Parallel()

	require.True(t, AllPassed([]Result{{Outcome: Success}, {Outcome: Success}}))
	require.False(t, AllPassed([]Result{{Outcome: Success}, {Outcome: TestFailure}}))
}
