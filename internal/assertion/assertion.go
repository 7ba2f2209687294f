// Package assertion implements C5: the typed assertion engine and its
// tabular report, grounded in original_source/src/assert/assertion.rs,
// assertions.rs, and types.rs.
package assertion

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/walker"
)

// Operator tags one of the eight assertion predicates spec.md §4.4 names.
type Operator int

const (
	OpEquals Operator = iota
	OpContains
	OpStartsWith
	OpLength
	OpLessThan
	OpGreaterThan
	OpExist
	OpNotExist
)

func (o Operator) String() string {
	switch o {
	case OpEquals:
		return "equals"
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts_with"
	case OpLength:
		return "length"
	case OpLessThan:
		return "less_than"
	case OpGreaterThan:
		return "greater_than"
	case OpExist:
		return "exist"
	case OpNotExist:
		return "not_exist"
	default:
		return "unknown"
	}
}

// Assertion is a traversal path paired with the operator to test and its
// expected operand (ignored for exist/not_exist).
type Assertion struct {
	DisplayName string // the traversal path as written in config
	Operator    Operator
	Operand     dropvalue.Value
	Ops         []dropvalue.TraversalOp // response.* traversal operators, minus the root
}

// Outcome is one of the three results spec.md §4.4 defines.
type Outcome int

const (
	Success Outcome = iota
	TestFailure
	FailureOnError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "pass"
	case TestFailure:
		return "fail"
	default:
		return "error"
	}
}

// Result is one row of the assertion report.
type Result struct {
	DisplayName string
	Operator    string
	Outcome     Outcome
	Detail      string
}

// Evaluate runs every assertion against resp, producing one Result per
// assertion in input order. No assertion failure aborts evaluation of the
// rest (spec.md §4.4: "All assertions for a call are evaluated").
func Evaluate(assertions []Assertion, resp walker.Response) []Result {
	results := make([]Result, 0, len(assertions))
	for _, a := range assertions {
		results = append(results, evaluateOne(a, resp))
	}
	return results
}

func evaluateOne(a Assertion, resp walker.Response) Result {
	_, walked, err := walker.Walk(a.Ops, resp)

	switch a.Operator {
	case OpExist:
		if err != nil {
			return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: TestFailure, Detail: err.Error()}
		}
		return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: Success}

	case OpNotExist:
		if err != nil {
			return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: Success}
		}
		return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: TestFailure, Detail: "value exists"}
	}

	if err != nil {
		return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: FailureOnError, Detail: err.Error()}
	}

	switch a.Operator {
	case OpEquals:
		return boolResult(a, dropvalue.Equal(walked, a.Operand), "")

	case OpContains:
		ws, ok1 := walked.AsString()
		es, ok2 := a.Operand.AsString()
		if !ok1 || !ok2 {
			return errResult(a, "contains requires string values")
		}
		return boolResult(a, strings.Contains(ws, es), "")

	case OpStartsWith:
		ws, ok1 := walked.AsString()
		es, ok2 := a.Operand.AsString()
		if !ok1 || !ok2 {
			return errResult(a, "starts_with requires string values")
		}
		return boolResult(a, strings.HasPrefix(ws, es), "")

	case OpLength:
		arr, ok := walked.AsArray()
		n, ok2 := a.Operand.AsInt64()
		if !ok || !ok2 {
			return errResult(a, "length requires an array value and an integer operand")
		}
		return boolResult(a, int64(len(arr)) == n, "")

	case OpLessThan:
		wn, ok1 := walked.AsNumber()
		en, ok2 := a.Operand.AsNumber()
		if !ok1 || !ok2 {
			return errResult(a, "less_than requires numeric values")
		}
		return boolResult(a, wn.Cmp(en) < 0, "")

	case OpGreaterThan:
		wn, ok1 := walked.AsNumber()
		en, ok2 := a.Operand.AsNumber()
		if !ok1 || !ok2 {
			return errResult(a, "greater_than requires numeric values")
		}
		return boolResult(a, wn.Cmp(en) > 0, "")

	default:
		return errResult(a, "unsupported operator")
	}
}

func boolResult(a Assertion, pass bool, detail string) Result {
	if pass {
		return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: Success, Detail: detail}
	}
	return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: TestFailure, Detail: detail}
}

func errResult(a Assertion, msg string) Result {
	return Result{DisplayName: a.DisplayName, Operator: a.Operator.String(), Outcome: FailureOnError, Detail: msg}
}

// Render returns a colored tabular report of results as a string, mirroring the
// original's cli-table-based assertion report (assert/types.rs).
func Render(results []Result) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader([]string{"Assertion", "Operator", "Outcome", "Detail"})

	for _, r := range results {
		outcome := r.Outcome.String()
		switch r.Outcome {
		case Success:
			outcome = color.GreenString(outcome)
		case TestFailure:
			outcome = color.YellowString(outcome)
		case FailureOnError:
			outcome = color.RedString(outcome)
		}
		table.Append([]string{r.DisplayName, r.Operator, outcome, r.Detail})
	}

	table.Render()
	return b.String()
}

// AllPassed reports whether every result in results is Success.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if r.Outcome != Success {
			return false
		}
	}
	return true
}

// Summary renders a one-line pass/fail/error count, used in the `hit`
// command's terminal output.
func Summary(results []Result) string {
	var pass, fail, errCount int
	for _, r := range results {
		switch r.Outcome {
		case Success:
			pass++
		case TestFailure:
			fail++
		case FailureOnError:
			errCount++
		}
	}
	return fmt.Sprintf("%d passed, %d failed, %d errored", pass, fail, errCount)
}
