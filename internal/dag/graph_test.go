package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, edges map[string][]string) *Graph {
	t.Helper()
	g := NewGraph()
	for id, deps := range edges {
		g.AddNode(id, deps)
	}
	require.NoError(t, g.Link())
	return g
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"b"},
	})

	require.NoError(t, g.TopologicalSort())
	require.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, g.Levels)
}

func TestTopologicalSort_ParallelBranches(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, map[string][]string{
		"a": nil,
		"b": nil,
		"c": {"a", "b"},
	})

	require.NoError(t, g.TopologicalSort())
	require.Len(t, g.Levels, 2)
	require.ElementsMatch(t, []string{"a", "b"}, g.Levels[0])
	require.ElementsMatch(t, []string{"c"}, g.Levels[1])
}

func TestTopologicalSort_DetectsCycle(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, map[string][]string{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
	})

	err := g.TopologicalSort()
	require.Error(t, err)
}

func TestLink_UnknownDependencyErrors(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	g.AddNode("a", []string{"ghost"})
	err := g.Link()
	require.Error(t, err)
}
