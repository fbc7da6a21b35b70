package rci

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanterr/rci/pkg/quantum"
)

func noiselessExecutor() *quantum.Executor {
	sim := quantum.NewSimulator(
		quantum.WithShots(100),
		quantum.WithRand(rand.New(rand.NewSource(1))),
	)
	return quantum.NewExecutor(
		func(c *quantum.Circuit) (*quantum.MeasurementResult, error) {
			results, err := sim.Run([]*quantum.Circuit{c})
			if err != nil {
				return nil, err
			}
			return results[0], nil
		},
		quantum.WithName("noiseless_simulator"),
		quantum.WithDoc("Executes circuits with ideal readout."),
	)
}

func TestMitigateExecutor_PreservesDescriptor(t *testing.T) {
	executor := noiselessExecutor()
	mitigated := MitigateExecutor(executor, sumOfZ(), ProvidedMatrix{M: identityMatrix(4)})

	assert.Equal(t, executor.Name(), mitigated.Name())
	assert.Equal(t, executor.Doc(), mitigated.Doc())
}

func TestMitigateExecutor_ReturnsMitigatedValue(t *testing.T) {
	mitigated := MitigateExecutor(noiselessExecutor(), sumOfZ(),
		ProvidedMatrix{M: identityMatrix(4)},
		WithRand(rand.New(rand.NewSource(2))),
	)

	value, err := mitigated.Execute(quantum.NewCircuit(2).AddX(0).AddX(1))
	require.NoError(t, err)
	assert.Equal(t, -2.0, value)
}

func TestDecorator_WrapsExecutor(t *testing.T) {
	wrap, err := Decorator(sumOfZ(),
		ProvidedMatrix{M: identityMatrix(4)},
		WithRand(rand.New(rand.NewSource(3))),
	)
	require.NoError(t, err)

	executor := noiselessExecutor()
	mitigated := wrap(executor)
	assert.Equal(t, executor.Name(), mitigated.Name())

	value, err := mitigated.Execute(quantum.NewCircuit(2).AddX(0).AddX(1))
	require.NoError(t, err)
	assert.Equal(t, -2.0, value)
}

func TestDecorator_RejectsExecutorInObservablePosition(t *testing.T) {
	_, err := Decorator(noiselessExecutor(), ProvidedMatrix{M: identityMatrix(4)})
	assert.ErrorIs(t, err, ErrDecoratorUsage)
}

func TestDecorator_RejectsCallableInObservablePosition(t *testing.T) {
	run := func(c *quantum.Circuit) (*quantum.MeasurementResult, error) {
		return quantum.NewMeasurementResult([][]int{{0}}, []int{0})
	}
	_, err := Decorator(run, ProvidedMatrix{M: identityMatrix(2)})
	assert.ErrorIs(t, err, ErrDecoratorUsage)

	_, err = Decorator(quantum.RunFunc(run), ProvidedMatrix{M: identityMatrix(2)})
	assert.ErrorIs(t, err, ErrDecoratorUsage)
}

func TestDecorator_RejectsUnsupportedObservableType(t *testing.T) {
	_, err := Decorator("ZZ", ProvidedMatrix{M: identityMatrix(4)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDecoratorUsage)
}

func TestDecorator_NilObservable(t *testing.T) {
	wrap, err := Decorator(nil, ProvidedMatrix{M: identityMatrix(4)})
	require.NoError(t, err)

	// The wrapped executor still demands an observable at execution time.
	mitigated := wrap(noiselessExecutor())
	_, err = mitigated.Execute(quantum.NewCircuit(2))
	assert.Error(t, err)
}
