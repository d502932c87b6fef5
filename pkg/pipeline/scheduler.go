package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Observer receives stage lifecycle notifications. Calls arrive from the
// goroutines executing the stages, so implementations must be safe for
// concurrent use.
type Observer interface {
	StageStarted(runID, stageID string)
	StageFinished(runID, stageID string, elapsed time.Duration, err error)
}

// Scheduler executes a Graph against an initial input.
//
// A Scheduler runs one graph at a time; a second overlapping Run returns
// ErrRunInProgress.
type Scheduler struct {
	observer Observer
	timeout  time.Duration
	newRunID func() string
	running  atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers an observer for stage lifecycle events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithTimeout bounds every run. A run that exceeds it is cancelled and the
// cancellation reaches the stages through their context.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithRunIDs sets the generator for run identifiers passed to the observer.
func WithRunIDs(gen func() string) Option {
	return func(s *Scheduler) {
		s.newRunID = gen
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{}
	for _, opt := range opts {
		opt(s)
	}
	if s.newRunID == nil {
		var seq atomic.Int64
		s.newRunID = func() string {
			return fmt.Sprintf("run-%d", seq.Add(1))
		}
	}
	return s
}

// Result is the outcome of a successful run.
type Result struct {
	RunID string
	State *State
	// Outputs holds what each stage returned, keyed by stage ID.
	Outputs map[string]Outputs
	// Completed lists stage IDs in the order they finished.
	Completed []string
}

// Run executes g with input loaded into a fresh State.
//
// Stages start as soon as all of their dependencies have completed; stages
// that become ready together run concurrently. A stage with several
// dependencies waits behind a counter that only reaches zero once every one
// of them has committed its outputs.
//
// If any stage fails the run fails: stages already running are allowed to
// finish but their results are discarded, nothing new is launched, and the
// returned *StageExecutionError names the first stage that failed. If ctx is
// cancelled or the scheduler timeout elapses, stages that have not started
// never start and Run returns the context error.
func (s *Scheduler) Run(ctx context.Context, g *Graph, input Outputs) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("pipeline: nil graph")
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	state := NewState()
	for _, k := range sortedKeys(input) {
		if err := state.Set(InputWriter, k, input[k]); err != nil {
			return nil, err
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	r := &run{
		id:        s.newRunID(),
		graph:     g,
		state:     state,
		observer:  s.observer,
		eg:        eg,
		ctx:       egCtx,
		pending:   make([]int, len(g.stages)),
		outputs:   make(map[string]Outputs, len(g.stages)),
		completed: make([]string, 0, len(g.stages)),
	}
	for i := range g.stages {
		r.pending[i] = len(g.incoming[i])
	}

	r.mu.Lock()
	for i := range g.stages {
		if r.pending[i] == 0 {
			r.launch(i)
		}
	}
	r.mu.Unlock()

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if len(r.completed) != len(g.stages) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: run aborted: %w", err)
		}
		return nil, fmt.Errorf("pipeline: run finished with %d of %d stages completed", len(r.completed), len(g.stages))
	}

	return &Result{
		RunID:     r.id,
		State:     state,
		Outputs:   r.outputs,
		Completed: r.completed,
	}, nil
}

// run is the bookkeeping for a single Scheduler.Run call.
type run struct {
	id       string
	graph    *Graph
	state    *State
	observer Observer
	eg       *errgroup.Group
	ctx      context.Context

	mu        sync.Mutex
	failed    bool
	pending   []int
	outputs   map[string]Outputs
	completed []string
}

// launch starts stage i. Callers must hold r.mu.
func (r *run) launch(i int) {
	if r.failed || r.ctx.Err() != nil {
		return
	}
	st := r.graph.stages[i]
	r.eg.Go(func() error {
		return r.execute(i, st)
	})
}

func (r *run) execute(i int, st Stage) error {
	id := st.ID()
	if r.observer != nil {
		r.observer.StageStarted(r.id, id)
	}

	start := time.Now()
	out, err := st.Execute(r.ctx, r.state.Snapshot())

	// The outcome is recorded before the observer hears of it. Once the run
	// has failed, later results are dropped without touching state.
	r.mu.Lock()
	discarded := r.failed
	if err == nil && !discarded {
		err = r.commit(st, out)
	}
	if err != nil {
		r.failed = true
	} else if !discarded {
		r.outputs[id] = out
		r.completed = append(r.completed, id)
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.StageFinished(r.id, id, time.Since(start), err)
	}

	if err != nil {
		return &StageExecutionError{StageID: id, Err: err}
	}
	if discarded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.graph.outgoing[i] {
		r.pending[j]--
		if r.pending[j] == 0 {
			r.launch(j)
		}
	}
	return nil
}

// commit writes a stage's outputs into the run state, rejecting fields the
// stage never declared.
func (r *run) commit(st Stage, out Outputs) error {
	declared := make(map[string]struct{}, len(st.Outputs()))
	for _, f := range st.Outputs() {
		declared[f] = struct{}{}
	}

	keys := make([]string, 0, len(out))
	for k := range out {
		if _, ok := declared[k]; !ok {
			return fmt.Errorf("%w: %q", ErrUndeclaredOutput, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := r.state.Set(st.ID(), k, out[k]); err != nil {
			return err
		}
	}
	return nil
}

// IsSingleWriterViolation reports whether err stems from a field being
// written twice.
func IsSingleWriterViolation(err error) bool {
	var sw *SingleWriterError
	return errors.As(err, &sw)
}
