package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dropctl/dropctl/internal/assertion"
	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/caller"
	"github.com/dropctl/dropctl/internal/dlog"
	"github.com/dropctl/dropctl/internal/dropctx"
	"github.com/dropctl/dropctl/internal/eval"
	"github.com/dropctl/dropctl/internal/postaction"
	"github.com/dropctl/dropctl/internal/walker"
)

func newHitCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hit <drop_id>",
		Short: "Execute a single call, run, or chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(root, func(ctx *dropctx.Context) error {
				return runHit(cmd.Context(), ctx, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

// runHit dispatches a drop id to its call/run/chain resolver (spec.md §6:
// "hit <drop_id> — execute a single call or run or chain") and reports the
// result the same way regardless of which kind it resolved to.
func runHit(ctx context.Context, dctx *dropctx.Context, out io.Writer, dropID string) error {
	log := dctx.LoggerFor("hit")
	c := caller.New(log)
	actions := postaction.New(dctx.Store, dctx.Store, out, log)

	if block, ok := dctx.Config.FindCall(dropID); ok {
		resolved, diags, err := resolveCallBlock(dctx, block)
		if err != nil {
			return err
		}
		logDeferred(log, diags)
		return executeAndReport(ctx, c, actions, resolved, out)
	}

	if block, ok := dctx.Config.FindRun(dropID); ok {
		resolved, diags, err := resolveWrapperCall(dctx, block, nil, false)
		if err != nil {
			return err
		}
		logDeferred(log, diags)
		return executeAndReport(ctx, c, actions, resolved, out)
	}

	if block, ok := dctx.Config.FindChain(dropID); ok {
		return runChain(ctx, dctx, out, block)
	}

	return fmt.Errorf("no call, run, or chain found for drop id %q", dropID)
}

// executeAndReport sends resolved, runs the post-action pipeline, and
// renders any declared assertions. Per spec.md §6, assertion outcomes
// never change the exit code; only a transport or decode failure does.
func executeAndReport(ctx context.Context, c *caller.Caller, actions *postaction.Pipeline, resolved call.Call, out io.Writer) error {
	record, err := c.Send(ctx, resolved)
	if err != nil {
		return err
	}

	actions.Run(record, resolved.After)

	if resolved.Assertions == nil || resolved.Assertions.Len() == 0 {
		return nil
	}

	assertions, err := assertion.FromValue(resolved.Assertions)
	if err != nil {
		return fmt.Errorf("decoding assertions for %s: %w", resolved.DropID, err)
	}

	resp := walker.Response{Body: record.ResponseBody, Headers: record.ResponseHeaders}
	results := assertion.Evaluate(assertions, resp)
	fmt.Fprintln(out, assertion.Render(results))
	fmt.Fprintln(out, assertion.Summary(results))
	return nil
}

func logDeferred(log *dlog.Logger, diags *eval.Diagnostics) {
	if report := diags.Report(); report != "" {
		log.Warn(report)
	}
}
