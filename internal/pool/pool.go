// Package pool implements C10: the Pool/DropRunner concurrency harness,
// grounded in original_source/src/runner/run_pool.rs, drop_runner.rs, and
// drop_run.rs. The Pool owns the worker concurrency and wires each
// DropRun into the C9 DAG scheduler (spec.md §4.8: "The Pool owns the
// worker concurrency and wires each DropRun into the scheduler"), which
// is what actually orders execution, enforces per-node deadlines, and
// cancels the descendants of a failed or timed-out node (spec.md §4.7).
package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/caller"
	"github.com/dropctl/dropctl/internal/dag"
	"github.com/dropctl/dropctl/internal/dlog"
	"github.com/dropctl/dropctl/internal/dropvalue"
	"github.com/dropctl/dropctl/internal/postaction"
)

// DefaultNodeTimeout is the per-node scheduler deadline used when a Pool
// isn't given a more specific one (spec.md §5: "configurable per node
// (defaults implementation-defined)").
const DefaultNodeTimeout = 30 * time.Second

// ResultMap is the mutex-guarded node_id -> outputs mapping dependent
// DropRuns read from (spec.md §4.8, §5 "Shared resources").
type ResultMap struct {
	mu     sync.Mutex
	values map[string]*dropvalue.Object
}

// NewResultMap creates an empty ResultMap.
func NewResultMap() *ResultMap {
	return &ResultMap{values: make(map[string]*dropvalue.Object)}
}

// Set deposits a node's resolved outputs.
func (r *ResultMap) Set(nodeID string, outputs *dropvalue.Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[nodeID] = outputs
}

// Get reads a node's outputs, if already deposited.
func (r *ResultMap) Get(nodeID string) (*dropvalue.Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[nodeID]
	return v, ok
}

// NodeResult pairs a finished Record with the Assertions object its Call
// declared, so a caller can render per-node assertion tables without the
// pool itself depending on the assertion package.
type NodeResult struct {
	Record     *call.Record
	Assertions *dropvalue.Object
}

// RecordMap is the mutex-guarded node_id -> NodeResult mapping, letting a
// caller (the chain command) render per-node assertions after the pool
// completes.
type RecordMap struct {
	mu      sync.Mutex
	records map[string]NodeResult
}

// NewRecordMap creates an empty RecordMap.
func NewRecordMap() *RecordMap {
	return &RecordMap{records: make(map[string]NodeResult)}
}

// Set deposits a node's finished NodeResult.
func (r *RecordMap) Set(nodeID string, result NodeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[nodeID] = result
}

// Get reads a node's NodeResult, if already deposited.
func (r *RecordMap) Get(nodeID string) (NodeResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.records[nodeID]
	return v, ok
}

// CallResolver builds the concrete Call for a DropRun once its merged
// inputs are known (spec.md §4.8 step 3: get_drop_call). It covers
// re-declaring `inputs` in the scope, evaluating the Call block, and
// applying Run/ChainNode overrides.
type CallResolver func(mergedInputs *dropvalue.Object) (call.Call, error)

// DropRun is one executable unit: a node id, its declared dependencies,
// and the means to resolve a concrete Call once inputs are merged.
type DropRun struct {
	NodeID      string
	DependsOn   []string
	OwnInputs   *dropvalue.Object
	ResolveCall CallResolver
}

// Pool owns the shared ResultMap/RecordMap and drives every DropRun
// through a dag.Scheduler (spec.md §4.8, §5: "The number of live tasks
// equals the number of DropRuns").
type Pool struct {
	results     *ResultMap
	records     *RecordMap
	caller      *caller.Caller
	actions     *postaction.Pipeline
	log         *dlog.Logger
	nodeTimeout time.Duration
}

// New builds a Pool with the default per-node deadline.
func New(c *caller.Caller, actions *postaction.Pipeline, log *dlog.Logger) *Pool {
	if log == nil {
		log = dlog.Nop()
	}
	return &Pool{
		results:     NewResultMap(),
		records:     NewRecordMap(),
		caller:      c,
		actions:     actions,
		log:         log,
		nodeTimeout: DefaultNodeTimeout,
	}
}

// SetNodeTimeout overrides the per-node scheduler deadline (spec.md §5's
// "configurable per node"); New's DefaultNodeTimeout applies otherwise.
func (p *Pool) SetNodeTimeout(d time.Duration) { p.nodeTimeout = d }

// Results exposes the pool's shared result map, used by the chain
// command to report final per-node outputs.
func (p *Pool) Results() *ResultMap { return p.results }

// Records exposes the pool's shared record map, used by the chain command
// to render per-node assertion tables after RunAll completes.
func (p *Pool) Records() *RecordMap { return p.records }

// RunAll builds a dag.Graph from runs' declared dependencies and drives
// it to completion through a dag.Scheduler, whose control loop starts
// each node only once its predecessors are Success-processed, enforces
// the per-node deadline, and cancels the descendants of any node that
// fails or times out (spec.md §4.7) instead of leaving them blocked
// forever. It returns the first real failure (a node whose own
// ResolveCall or transport call errored); a node that was merely
// cancelled because a predecessor failed is reported through that
// predecessor's error, not its own.
func (p *Pool) RunAll(ctx context.Context, runs []DropRun) error {
	if len(runs) == 0 {
		return nil
	}

	runsByID := make(map[string]DropRun, len(runs))
	graph := dag.NewGraph()
	for _, run := range runs {
		runsByID[run.NodeID] = run
		graph.AddNode(run.NodeID, run.DependsOn)
	}
	if err := graph.Link(); err != nil {
		return err
	}
	if err := graph.TopologicalSort(); err != nil {
		return err
	}

	executor := dag.ExecutorFunc(func(ctx context.Context, nodeID string) error {
		return p.runOne(ctx, runsByID[nodeID])
	})

	scheduler := dag.New(graph, executor, p.nodeTimeout)
	scheduler.Run(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}
	return firstFailure(scheduler.Statuses())
}

// runOne merges a DropRun's dependency outputs and own inputs, resolves
// and sends its Call, runs post-actions, and deposits its outputs and
// record (spec.md §4.8 steps 2-6). Waiting for dependencies and
// publishing completion are the scheduler's job, not this function's.
func (p *Pool) runOne(ctx context.Context, run DropRun) error {
	entry := p.log.With(map[string]any{"node_id": run.NodeID, "trace_id": uuid.NewString()})

	merged := p.mergeInputs(run)

	resolved, err := run.ResolveCall(merged)
	if err != nil {
		entry.Error(err, "failed to resolve call")
		return err
	}

	record, err := p.caller.Send(ctx, resolved)
	if err != nil {
		entry.Error(err, "transport failure")
		return err
	}

	if p.actions != nil {
		p.actions.Run(record, resolved.After)
	}

	if p.records != nil {
		p.records.Set(run.NodeID, NodeResult{Record: record, Assertions: resolved.Assertions})
	}

	outputs := dropvalue.NewObject()
	for _, o := range record.Outputs {
		outputs.Set(o.Key, dropvalue.Str(o.Value))
	}
	p.results.Set(run.NodeID, outputs)

	return nil
}

// mergeInputs layers dependency outputs under their node id, then the
// DropRun's own declared inputs on top (spec.md §4.8 step 2).
func (p *Pool) mergeInputs(run DropRun) *dropvalue.Object {
	merged := dropvalue.NewObject()
	for _, dep := range run.DependsOn {
		if outputs, ok := p.results.Get(dep); ok {
			merged.Set(dep, dropvalue.ObjectValue(outputs))
		}
	}
	if run.OwnInputs != nil {
		for _, k := range run.OwnInputs.Keys() {
			v, _ := run.OwnInputs.Get(k)
			merged.Set(k, v)
		}
	}
	return merged
}

// firstFailure walks statuses in node-id order and returns the first
// node's own Failed/TimedOut error, skipping Cancelled nodes since their
// cancellation is only a symptom of some other node's failure.
func firstFailure(statuses map[string]dag.NodeStatus) error {
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		st := statuses[id]
		switch st.State {
		case dag.Failed:
			return fmt.Errorf("%s: %w", id, st.Err)
		case dag.TimedOut:
			return fmt.Errorf("%s: node exceeded its deadline", id)
		}
	}
	return nil
}
