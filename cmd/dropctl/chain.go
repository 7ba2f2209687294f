package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dropctl/dropctl/internal/assertion"
	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/caller"
	"github.com/dropctl/dropctl/internal/dag"
	"github.com/dropctl/dropctl/internal/dropconfig"
	"github.com/dropctl/dropctl/internal/dropctx"
	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/pool"
	"github.com/dropctl/dropctl/internal/postaction"
	"github.com/dropctl/dropctl/internal/walker"
)

// runChain resolves a Chain block's nodes, infers their dependency graph
// from the traversals each node's own attributes reference (spec.md §4.7:
// "a node depends on any node whose outputs are referenced... by any of
// its chain.<other>.… traversals"), and drives them all through the Pool
// (spec.md §4.8: "for a 'chain' command it receives one DropRun per
// ChainNode plus a dependency graph").
func runChain(ctx context.Context, dctx *dropctx.Context, out io.Writer, chainBlock dropconfig.Block) error {
	nodeBlocks, err := resolveChainNodeBlocks(dctx, chainBlock)
	if err != nil {
		return err
	}

	graph, err := buildChainGraph(nodeBlocks)
	if err != nil {
		return err
	}
	if err := graph.Link(); err != nil {
		return err
	}
	if err := graph.TopologicalSort(); err != nil {
		return err
	}

	log := dctx.LoggerFor("chain")
	p := pool.New(caller.New(log), postaction.New(dctx.Store, dctx.Store, out, log), log)

	runs := make([]pool.DropRun, 0, len(nodeBlocks))
	for _, node := range nodeBlocks {
		node := node
		localName := node.DropID.ResourceName()
		runs = append(runs, pool.DropRun{
			NodeID:    localName,
			DependsOn: graph.Nodes[localName].DependsOn,
			ResolveCall: func(mergedInputs *dropvalue.Object) (call.Call, error) {
				resolved, _, err := resolveWrapperCall(dctx, node, mergedInputs, true)
				return resolved, err
			},
		})
	}

	if err := p.RunAll(ctx, runs); err != nil {
		return err
	}

	return reportChainResults(out, nodeBlocks, p)
}

// resolveChainNodeBlocks looks up every block a Chain's `nodes = [...]`
// list names, in declared order.
func resolveChainNodeBlocks(dctx *dropctx.Context, chainBlock dropconfig.Block) ([]dropconfig.Block, error) {
	blocks := make([]dropconfig.Block, 0, len(chainBlock.Nodes))
	for _, nodeExpr := range chainBlock.Nodes {
		path, err := dropconfig.ExprToDottedPath(nodeExpr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", chainBlock.DropID, err)
		}
		block, ok := dctx.Config.FindChainNode(path)
		if !ok {
			return nil, fmt.Errorf("%s: chain_node %q not found", chainBlock.DropID, path)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// buildChainGraph infers each node's dependencies by walking its own
// attribute expressions for `chain.<node>.…` traversals
// (dropvalue.ChainNodeReferences), matching only names that name a node
// actually present in this chain (spec.md §4.7).
func buildChainGraph(nodeBlocks []dropconfig.Block) (*dag.Graph, error) {
	localNames := make(map[string]bool, len(nodeBlocks))
	for _, node := range nodeBlocks {
		localNames[node.DropID.ResourceName()] = true
	}

	graph := dag.NewGraph()
	for _, node := range nodeBlocks {
		localName := node.DropID.ResourceName()
		seen := make(map[string]bool)
		var deps []string
		for _, attr := range node.Attrs {
			for _, ref := range dropvalue.ChainNodeReferences(attr.Expr) {
				if ref == localName || !localNames[ref] || seen[ref] {
					continue
				}
				seen[ref] = true
				deps = append(deps, ref)
			}
		}
		graph.AddNode(localName, deps)
	}
	return graph, nil
}

// reportChainResults prints each node's resolved outputs and, for any
// node whose Call declared assertions, an assertion table (mirroring
// executeAndReport's hit/run reporting, spec.md §6).
func reportChainResults(out io.Writer, nodeBlocks []dropconfig.Block, p *pool.Pool) error {
	for _, node := range nodeBlocks {
		localName := node.DropID.ResourceName()
		fmt.Fprintf(out, "%s (%s):\n", localName, node.DropID)

		if outputs, ok := p.Results().Get(localName); ok {
			for _, k := range outputs.Keys() {
				v, _ := outputs.Get(k)
				fmt.Fprintf(out, "  %s = %s\n", k, v.String())
			}
		}

		result, ok := p.Records().Get(localName)
		if !ok || result.Assertions == nil || result.Assertions.Len() == 0 {
			continue
		}

		assertions, err := assertion.FromValue(result.Assertions)
		if err != nil {
			return fmt.Errorf("decoding assertions for %s: %w", node.DropID, err)
		}
		resp := walker.Response{Body: result.Record.ResponseBody, Headers: result.Record.ResponseHeaders}
		results := assertion.Evaluate(assertions, resp)
		fmt.Fprintln(out, assertion.Render(results))
		fmt.Fprintln(out, assertion.Summary(results))
	}
	return nil
}
