package quantum

import (
	"fmt"
)

// Runner executes a batch of circuits against a backend and returns one raw
// measurement result per circuit, in order. The mitigation core always calls
// it with a single-element batch.
type Runner interface {
	Run(circuits []*Circuit) ([]*MeasurementResult, error)
}

// RunFunc adapts a plain single-circuit execution function to the Runner
// interface, so bare callables and the richer Executor form are accepted
// interchangeably by code that consumes Runner.
type RunFunc func(*Circuit) (*MeasurementResult, error)

// Run executes each circuit in turn through the wrapped function.
func (f RunFunc) Run(circuits []*Circuit) ([]*MeasurementResult, error) {
	results := make([]*MeasurementResult, 0, len(circuits))
	for i, circuit := range circuits {
		result, err := f(circuit)
		if err != nil {
			return nil, fmt.Errorf("quantum: executor failed on circuit %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithName sets the executor's descriptive name.
func WithName(name string) ExecutorOption {
	return func(e *Executor) { e.name = name }
}

// WithDoc sets the executor's documentation string.
func WithDoc(doc string) ExecutorOption {
	return func(e *Executor) { e.doc = doc }
}

// Executor wraps a backend execution function together with a descriptor
// (name and documentation string). Wrappers that change an executor's return
// contract copy the descriptor so introspection by callers is unaffected.
type Executor struct {
	name string
	doc  string
	run  RunFunc
}

// NewExecutor creates an executor from a single-circuit execution function.
func NewExecutor(run RunFunc, opts ...ExecutorOption) *Executor {
	e := &Executor{run: run}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the executor's descriptive name.
func (e *Executor) Name() string { return e.name }

// Doc returns the executor's documentation string.
func (e *Executor) Doc() string { return e.doc }

// Run executes a batch of circuits.
func (e *Executor) Run(circuits []*Circuit) ([]*MeasurementResult, error) {
	return RunFunc(e.run).Run(circuits)
}

// Execute runs a single circuit through the runner and evaluates the
// observable on the raw, unmitigated measurement result.
func Execute(circuit *Circuit, runner Runner, observable *Observable) (float64, error) {
	if observable == nil {
		return 0, fmt.Errorf("quantum: observable is required")
	}
	results, err := runner.Run([]*Circuit{circuit})
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("quantum: executor returned %d results for 1 circuit", len(results))
	}
	return observable.Expectation(results)
}
