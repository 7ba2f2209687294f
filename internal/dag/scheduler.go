package dag

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Executor runs the underlying work for one node. It must respect ctx
// cancellation and return promptly once the DAG's deadline has passed,
// though spec.md §5 only requires cooperative cancellation: an in-flight
// call MAY be left running to completion and its result discarded.
type Executor interface {
	Execute(ctx context.Context, nodeID string) error
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx context.Context, nodeID string) error

func (f ExecutorFunc) Execute(ctx context.Context, nodeID string) error { return f(ctx, nodeID) }

// result is posted by a worker goroutine to the scheduler's single
// result channel (spec.md §4.7: "posts (node_id, next_state, payload) to
// a single result channel").
type result struct {
	nodeID string
	state  State
	err    error
}

// Scheduler drives one chain's Graph through the node state machine
// described in spec.md §4.7.
type Scheduler struct {
	graph    *Graph
	executor Executor
	timeout  time.Duration

	mu       sync.Mutex
	statuses map[string]*NodeStatus
	started  map[string]bool
	deadline map[string]time.Time

	results chan result
	pollEvery time.Duration
}

// New builds a Scheduler for graph, executing ready nodes via executor
// with a per-node timeout.
func New(graph *Graph, executor Executor, timeout time.Duration) *Scheduler {
	statuses := make(map[string]*NodeStatus, len(graph.Nodes))
	for id := range graph.Nodes {
		statuses[id] = &NodeStatus{State: Pending}
	}
	return &Scheduler{
		graph:     graph,
		executor:  executor,
		timeout:   timeout,
		statuses:  statuses,
		started:   make(map[string]bool),
		deadline:  make(map[string]time.Time),
		results:   make(chan result, len(graph.Nodes)),
		pollEvery: 20 * time.Millisecond,
	}
}

// Statuses returns a snapshot of every node's current status.
func (s *Scheduler) Statuses() map[string]NodeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]NodeStatus, len(s.statuses))
	for id, st := range s.statuses {
		out[id] = *st
	}
	return out
}

// Run drives the control loop to completion: every node reaches a
// terminal, processed state, or ctx is cancelled (spec.md §4.7, §5
// SignalInterrupt).
func (s *Scheduler) Run(ctx context.Context) {
	stopListen := make(chan struct{})

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.listen(gctx, stopListen)
		return nil
	})

	s.controlLoop(ctx)
	close(stopListen)
	_ = group.Wait()
}

// listen drains results into the status map until told to stop. The
// results channel is never closed — late-arriving goroutines (a node
// whose deadline fired while its HTTP call was still in flight, per
// spec.md §5) write into its buffer harmlessly after listen exits.
func (s *Scheduler) listen(ctx context.Context, stop <-chan struct{}) {
	for {
		select {
		case r := <-s.results:
			s.mu.Lock()
			st := s.statuses[r.nodeID]
			if !st.State.IsTerminal() {
				st.State = r.state
				st.Err = r.err
			}
			s.mu.Unlock()
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) controlLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.cancelAllNonTerminal(CancelSigTerm)
		}

		s.startReadyNodes(ctx)
		s.processTerminalNodes()
		s.enforceDeadlines()

		if s.allProcessed() {
			return
		}

		select {
		case <-time.After(s.pollEvery):
		case <-ctx.Done():
		}
	}
}

func (s *Scheduler) startReadyNodes(ctx context.Context) {
	s.mu.Lock()
	var toStart []string
	for id, st := range s.statuses {
		if st.State != Pending || s.started[id] {
			continue
		}
		if s.allDependenciesSuccessProcessed(id) {
			toStart = append(toStart, id)
		}
	}
	for _, id := range toStart {
		s.started[id] = true
		s.statuses[id].State = Running
		s.deadline[id] = time.Now().Add(s.timeout)
	}
	s.mu.Unlock()

	for _, id := range toStart {
		s.spawn(ctx, id)
	}
}

// allDependenciesSuccessProcessed must be called with s.mu held.
func (s *Scheduler) allDependenciesSuccessProcessed(id string) bool {
	node := s.graph.Nodes[id]
	for _, dep := range node.DependsOn {
		depStatus := s.statuses[dep]
		if depStatus.State != Success || !depStatus.Processed {
			return false
		}
	}
	return true
}

func (s *Scheduler) spawn(ctx context.Context, id string) {
	go func() {
		err := s.executor.Execute(ctx, id)
		state := Success
		if err != nil {
			state = Failed
		}
		select {
		case s.results <- result{nodeID: id, state: state, err: err}:
		default:
		}
	}()
}

func (s *Scheduler) processTerminalNodes() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range s.statuses {
		if st.Processed {
			continue
		}
		switch st.State {
		case Success:
			st.Processed = true
		case TimedOut, Failed:
			st.Processed = true
			s.cancelDependentsLocked(id, CancelDependencyFailure)
		case Cancelled:
			st.Processed = true
			s.cancelDependentsLocked(id, st.Reason)
		}
	}
}

// cancelDependentsLocked marks direct dependents of id as Cancelled. It
// propagates one hop per control-loop iteration; repeated iterations walk
// the cancellation outward across the graph (spec.md §4.7).
func (s *Scheduler) cancelDependentsLocked(id string, reason CancelReason) {
	node, ok := s.graph.Nodes[id]
	if !ok {
		return
	}
	for _, dep := range node.Dependents {
		st := s.statuses[dep]
		if st.State.IsTerminal() {
			continue
		}
		st.State = Cancelled
		st.Reason = reason
	}
}

func (s *Scheduler) cancelAllNonTerminal(reason CancelReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statuses {
		if !st.State.IsTerminal() {
			st.State = Cancelled
			st.Reason = reason
		}
	}
}

func (s *Scheduler) enforceDeadlines() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, st := range s.statuses {
		if st.State != Running {
			continue
		}
		if dl, ok := s.deadline[id]; ok && dl.Before(now) {
			st.State = TimedOut
		}
	}
}

func (s *Scheduler) allProcessed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statuses {
		if !st.State.IsTerminal() || !st.Processed {
			return false
		}
	}
	return true
}
