package rci

import (
	"fmt"
	"reflect"

	"github.com/quanterr/rci/pkg/quantum"
)

// MitigatedExecutor is the readout-mitigated counterpart of a
// quantum.Executor: it carries the wrapped executor's descriptor unchanged
// but returns a mitigated expectation value instead of a raw measurement
// result.
type MitigatedExecutor struct {
	name string
	doc  string
	eval func(*quantum.Circuit) (float64, error)
}

// Name returns the wrapped executor's descriptive name.
func (m *MitigatedExecutor) Name() string { return m.name }

// Doc returns the wrapped executor's documentation string.
func (m *MitigatedExecutor) Doc() string { return m.doc }

// Execute runs the circuit through the wrapped executor with readout
// confusion inversion applied, returning the mitigated expectation value.
func (m *MitigatedExecutor) Execute(circuit *quantum.Circuit) (float64, error) {
	return m.eval(circuit)
}

// MitigateExecutor wraps an executor with readout confusion inversion. The
// returned executor preserves the original's name and documentation string
// and evaluates observable on the corrected measurement result.
func MitigateExecutor(executor *quantum.Executor, observable *quantum.Observable, source InverseSource, opts ...Option) *MitigatedExecutor {
	return &MitigatedExecutor{
		name: executor.Name(),
		doc:  executor.Doc(),
		eval: func(circuit *quantum.Circuit) (float64, error) {
			return ExecuteWithRCI(circuit, executor, observable, source, opts...)
		},
	}
}

// Decorator returns a function that wraps executors with readout confusion
// inversion, for use at executor construction sites:
//
//	wrap, err := rci.Decorator(observable, rci.ProvidedMatrix{M: inv})
//	mitigated := wrap(executor)
//
// observable must be a *quantum.Observable or nil. Passing an executor or
// any callable in its place means the decorator was applied to an executor
// without its parameter list; that misuse fails fast with ErrDecoratorUsage
// instead of misbehaving at call time.
func Decorator(observable any, source InverseSource, opts ...Option) (func(*quantum.Executor) *MitigatedExecutor, error) {
	var obs *quantum.Observable
	switch v := observable.(type) {
	case nil:
	case *quantum.Observable:
		obs = v
	default:
		if _, isRunner := observable.(quantum.Runner); isRunner {
			return nil, ErrDecoratorUsage
		}
		if reflect.ValueOf(observable).Kind() == reflect.Func {
			return nil, ErrDecoratorUsage
		}
		return nil, fmt.Errorf("rci: unsupported observable type %T", observable)
	}
	return func(executor *quantum.Executor) *MitigatedExecutor {
		return MitigateExecutor(executor, obs, source, opts...)
	}, nil
}
