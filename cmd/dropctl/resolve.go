package main

import (
	"fmt"

	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/dropconfig"
	"github.com/dropctl/dropctl/internal/dropctx"
	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/eval"
	"github.com/dropctl/dropctl/internal/scope"
)

var httpMethods = map[string]call.Method{
	"get":    call.MethodGet,
	"post":   call.MethodPost,
	"put":    call.MethodPut,
	"patch":  call.MethodPatch,
	"delete": call.MethodDelete,
}

// resolveCallBlock evaluates a bare Call block against its module's Scope
// and builds the concrete Call to send (spec.md §4.8: "for a hit command
// the Pool receives a single DropRun with no dependencies").
func resolveCallBlock(ctx *dropctx.Context, block dropconfig.Block) (call.Call, *eval.Diagnostics, error) {
	s, diags, err := ctx.BuildScope(block.DropID.Module)
	if err != nil {
		return call.Call{}, diags, err
	}
	return finishCallResolution(s, diags, block)
}

// finishCallResolution evaluates a Call block's own attributes against an
// already-layered Scope and decodes the result into a call.Call.
func finishCallResolution(s *scope.Scope, diags *eval.Diagnostics, callBlock dropconfig.Block) (call.Call, *eval.Diagnostics, error) {
	evalCtx := scope.EvalContext{AssertionRefsAllowed: true}
	obj, d := eval.EvaluateAttributes(callBlock.Attrs, s, evalCtx)
	diags.Deferred = append(diags.Deferred, d.Deferred...)
	diags.Fatal = append(diags.Fatal, d.Fatal...)

	if diags.ShouldAbort() {
		return call.Call{}, diags, fmt.Errorf("fatal evaluation errors for %s:\n%s", callBlock.DropID, diags.Report())
	}

	method := httpMethods[callBlock.DropID.CallMethod]
	c, err := dropconfig.CallFromAttrs(callBlock.DropID.String(), method, obj, callBlock.Outputs)
	return c, diags, err
}

// resolveWrapperCall evaluates a Run or ChainNode block: it declares
// `chain` in the Scope as mergedInputs (a dependency node id -> outputs
// object, spec.md §4.7) so the block's own attributes can reference
// `chain.<node>.<output>`, re-declares `inputs` as the wrapper's own
// declared inputs layered over any dependency-supplied values, evaluates
// the referenced Call block, and applies the wrapper's
// assert/outputs/after overrides (spec.md §4.8 step 3, original_source's
// DropRun::get_drop_call). namedOutputs selects ChainNode's keyed outputs
// form instead of Run's positional one.
func resolveWrapperCall(ctx *dropctx.Context, block dropconfig.Block, mergedInputs *dropvalue.Object, namedOutputs bool) (call.Call, *eval.Diagnostics, error) {
	s, diags, err := ctx.BuildScope(block.DropID.Module)
	if err != nil {
		return call.Call{}, diags, err
	}
	evalCtx := scope.EvalContext{AssertionRefsAllowed: true}

	chainInputs := mergedInputs
	if chainInputs == nil {
		chainInputs = dropvalue.NewObject()
	}
	s.OverlayObject(scope.TierChain, chainInputs)

	ownObj, d := eval.EvaluateAttributes(block.Attrs, s, evalCtx)
	diags.Deferred = append(diags.Deferred, d.Deferred...)
	diags.Fatal = append(diags.Fatal, d.Fatal...)

	ownInputs, _ := objField(ownObj, "inputs")
	s.OverlayObject(scope.TierInputs, mergeObjects(mergedInputs, ownInputs))

	hitPath, err := dropconfig.ExprToDottedPath(block.Hit)
	if err != nil {
		return call.Call{}, diags, fmt.Errorf("%s: %w", block.DropID, err)
	}
	callBlock, ok := ctx.Config.FindCall(hitPath)
	if !ok {
		return call.Call{}, diags, fmt.Errorf("%s: call %q not found", block.DropID, hitPath)
	}

	c, diags, err := finishCallResolution(s, diags, callBlock)
	if err != nil {
		return call.Call{}, diags, err
	}
	c.DropID = block.DropID.String()

	ov := call.Overrides{}
	if a, ok := objField(ownObj, "assert"); ok {
		ov.Assertions = a
	}
	if namedOutputs && len(block.NamedOutputs) > 0 {
		outs, err := dropconfig.NamedOutputsFromEntries(block.NamedOutputs)
		if err != nil {
			return call.Call{}, diags, err
		}
		ov.Outputs = outs
	} else if !namedOutputs && len(block.Outputs) > 0 {
		outs, err := dropconfig.OutputsFromExpressions(block.Outputs)
		if err != nil {
			return call.Call{}, diags, err
		}
		ov.Outputs = outs
	}
	if v, ok := ownObj.Get("after"); ok {
		actions, err := dropconfig.AfterActionsFromValue(v)
		if err != nil {
			return call.Call{}, diags, err
		}
		ov.After = actions
	}

	return call.ApplyOverrides(c, ov), diags, nil
}

func objField(obj *dropvalue.Object, key string) (*dropvalue.Object, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return nil, false
	}
	return v.AsObject()
}

func mergeObjects(a, b *dropvalue.Object) *dropvalue.Object {
	merged := dropvalue.NewObject()
	if a != nil {
		for _, k := range a.Keys() {
			v, _ := a.Get(k)
			merged.Set(k, v)
		}
	}
	if b != nil {
		for _, k := range b.Keys() {
			v, _ := b.Get(k)
			merged.Set(k, v)
		}
	}
	return merged
}
