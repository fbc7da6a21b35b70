package rci

import (
	"errors"
	"fmt"
)

// ErrDecoratorUsage reports that Decorator was given an executor or callable
// in the observable position, i.e. it was applied directly to an executor
// instead of being called with its parameter list first.
var ErrDecoratorUsage = errors.New(
	"rci: Decorator must be called with its parameters first " +
		"(rci.Decorator(observable, source)) and the returned function applied to the executor")

// DimensionError reports an inverse confusion matrix whose size does not
// match 2^numQubits. It is a precondition failure: no sampling or correction
// work is performed once it is detected.
type DimensionError struct {
	Rows      int
	Cols      int
	NumQubits int
}

func (e *DimensionError) Error() string {
	want := 1 << e.NumQubits
	return fmt.Sprintf("rci: inverse confusion matrix is %dx%d, want %dx%d for %d qubits",
		e.Rows, e.Cols, want, want, e.NumQubits)
}
