package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/dropctx"
)

func newGiveCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "give <drop_id>",
		Short: "Resolve a call, run, or chain and print it without sending any request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(root, func(ctx *dropctx.Context) error {
				return runGive(ctx, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

// runGive resolves dropID exactly as `hit` would but never sends the
// request and never writes to the secret store (SPEC_FULL.md §D.1,
// original's GiveCommand.run). A Chain target prints every node it
// contains, since a chain has no single resolved Call of its own.
func runGive(dctx *dropctx.Context, out io.Writer, dropID string) error {
	if block, ok := dctx.Config.FindCall(dropID); ok {
		resolved, diags, err := resolveCallBlock(dctx, block)
		if err != nil {
			return err
		}
		logDeferred(dctx.LoggerFor("give"), diags)
		printResolvedCall(out, resolved)
		return nil
	}

	if block, ok := dctx.Config.FindRun(dropID); ok {
		resolved, diags, err := resolveWrapperCall(dctx, block, nil, false)
		if err != nil {
			return err
		}
		logDeferred(dctx.LoggerFor("give"), diags)
		printResolvedCall(out, resolved)
		return nil
	}

	if chainBlock, ok := dctx.Config.FindChain(dropID); ok {
		nodeBlocks, err := resolveChainNodeBlocks(dctx, chainBlock)
		if err != nil {
			return err
		}
		for _, node := range nodeBlocks {
			resolved, diags, err := resolveWrapperCall(dctx, node, nil, true)
			if err != nil {
				return err
			}
			logDeferred(dctx.LoggerFor("give"), diags)
			fmt.Fprintf(out, "%s:\n", node.DropID)
			printResolvedCall(out, resolved)
		}
		return nil
	}

	return fmt.Errorf("no call, run, or chain found for drop id %q", dropID)
}

// printResolvedCall pretty-prints a resolved Call's method, URL, headers,
// body, outputs, asserts, and after-actions as indented text.
func printResolvedCall(out io.Writer, c call.Call) {
	fmt.Fprintf(out, "  %s %s\n", c.Method, c.URL())

	if len(c.Headers) > 0 {
		fmt.Fprintln(out, "  headers:")
		for name, value := range c.Headers {
			fmt.Fprintf(out, "    %s: %s\n", name, value)
		}
	}

	if c.Body != nil {
		fmt.Fprintf(out, "  body:\n    %s\n", c.Body.String())
	}

	if len(c.Outputs) > 0 {
		fmt.Fprintln(out, "  outputs:")
		for _, o := range c.Outputs {
			fmt.Fprintf(out, "    %s\n", o.Path)
		}
	}

	if c.Assertions != nil && c.Assertions.Len() > 0 {
		fmt.Fprintln(out, "  assert:")
		for _, k := range c.Assertions.Keys() {
			v, _ := c.Assertions.Get(k)
			fmt.Fprintf(out, "    %s = %s\n", k, v.String())
		}
	}

	if len(c.After) > 0 {
		fmt.Fprintln(out, "  after:")
		for _, a := range c.After {
			fmt.Fprintf(out, "    %s\n", a.Type)
		}
	}
}
