package rci

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/pkg/quantum"
)

func identityMatrix(dim int) *mat.Dense {
	m := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// antiDiagonalMatrix is the inverse confusion matrix of a readout that flips
// every bit with certainty (the permutation X ⊗ ... ⊗ X).
func antiDiagonalMatrix(dim int) *mat.Dense {
	m := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		m.Set(i, dim-1-i, 1)
	}
	return m
}

// sumOfZ is Z on each of two qubits; its value on |11> is exactly -2.
func sumOfZ() *quantum.Observable {
	return quantum.NewObservable(
		quantum.NewPauliString("ZI"),
		quantum.NewPauliString("IZ"),
	)
}

func TestExecuteWithRCI_IdentityInverseKeepsIdealValue(t *testing.T) {
	sim := quantum.NewSimulator(
		quantum.WithShots(200),
		quantum.WithRand(rand.New(rand.NewSource(1))),
	)
	circuit := quantum.NewCircuit(2).AddX(0).AddX(1)

	value, err := ExecuteWithRCI(circuit, sim, sumOfZ(),
		ProvidedMatrix{M: identityMatrix(4)},
		WithRand(rand.New(rand.NewSource(2))),
	)
	require.NoError(t, err)
	assert.Equal(t, -2.0, value)
}

func TestExecuteWithRCI_CorrectsDeterministicFullFlip(t *testing.T) {
	// Every bit flips with certainty, so the raw result reads |00> and the
	// unmitigated value has the wrong sign.
	sim := quantum.NewSimulator(
		quantum.WithFlipProbabilities(1, 1),
		quantum.WithShots(200),
		quantum.WithRand(rand.New(rand.NewSource(3))),
	)
	circuit := quantum.NewCircuit(2).AddX(0).AddX(1)

	unmitigated, err := quantum.Execute(circuit, sim, sumOfZ())
	require.NoError(t, err)
	assert.Equal(t, 2.0, unmitigated)

	mitigated, err := ExecuteWithRCI(circuit, sim, sumOfZ(),
		ProvidedMatrix{M: antiDiagonalMatrix(4)},
		WithRand(rand.New(rand.NewSource(4))),
	)
	require.NoError(t, err)
	assert.Equal(t, -2.0, mitigated)
}

func TestExecuteWithRCI_DimensionMismatchFailsBeforeExecution(t *testing.T) {
	executed := false
	runner := quantum.RunFunc(func(c *quantum.Circuit) (*quantum.MeasurementResult, error) {
		executed = true
		return quantum.NewMeasurementResult([][]int{{0, 0}}, []int{0, 1})
	})
	circuit := quantum.NewCircuit(2)

	_, err := ExecuteWithRCI(circuit, runner, sumOfZ(), ProvidedMatrix{M: identityMatrix(2)})

	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 2, dimErr.Rows)
	assert.Equal(t, 2, dimErr.NumQubits)
	assert.False(t, executed, "executor must not run when the matrix dimension is wrong")
}

func TestExecuteWithRCI_RequiresObservable(t *testing.T) {
	sim := quantum.NewSimulator(quantum.WithShots(10))
	_, err := ExecuteWithRCI(quantum.NewCircuit(1), sim, nil, ProvidedMatrix{M: identityMatrix(2)})
	assert.Error(t, err)
}

func TestExecuteWithRCI_NilSourceCalibratesWithDefaults(t *testing.T) {
	sim := quantum.NewSimulator(
		quantum.WithShots(2000),
		quantum.WithRand(rand.New(rand.NewSource(5))),
	)
	circuit := quantum.NewCircuit(1).AddX(0)
	observable := quantum.NewObservable(quantum.NewPauliString("Z"))

	value, err := ExecuteWithRCI(circuit, sim, observable, nil,
		WithRand(rand.New(rand.NewSource(6))),
		WithCalibrationShots(2000),
	)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, value, 0.05)
}

func TestExecuteWithRCI_ImprovesNoisyExpectation(t *testing.T) {
	// With 25% flip probability on both levels, Z on each of two true-1
	// qubits reads roughly -0.5 instead of -1, so the raw value sits near
	// -1.0 instead of -2.0. Inversion recovers the ideal value up to shot
	// noise.
	sim := quantum.NewSimulator(
		quantum.WithFlipProbabilities(0.25, 0.25),
		quantum.WithShots(8192),
		quantum.WithRand(rand.New(rand.NewSource(7))),
	)
	circuit := quantum.NewCircuit(2).AddX(0).AddX(1)

	unmitigated, err := quantum.Execute(circuit, sim, sumOfZ())
	require.NoError(t, err)
	assert.InDelta(t, -1.0, unmitigated, 0.15)

	mitigated, err := ExecuteWithRCI(circuit, sim, sumOfZ(),
		ComputeFromCalibration{P0: 0.25, P1: 0.25},
		WithRand(rand.New(rand.NewSource(8))),
		WithCalibrationShots(20000),
	)
	require.NoError(t, err)
	assert.InDelta(t, -2.0, mitigated, 0.15)

	ideal := -2.0
	assert.Less(t, math.Abs(mitigated-ideal), math.Abs(unmitigated-ideal),
		"mitigated value should be closer to the ideal than the raw value")
}

func TestApplyInverseConfusion_PermutationInverseRelabelsShots(t *testing.T) {
	noisy, err := quantum.NewMeasurementResult([][]int{
		{1, 1},
		{1, 1},
		{0, 1},
	}, []int{0, 1})
	require.NoError(t, err)

	corrected, err := ApplyInverseConfusion(noisy, antiDiagonalMatrix(4), 2, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"00": 2, "10": 1}, corrected.Counts())
	assert.Equal(t, []int{0, 1}, corrected.QubitIndices())
}

func TestApplyInverseConfusion_QubitCountMismatch(t *testing.T) {
	noisy, err := quantum.NewMeasurementResult([][]int{{0}}, []int{0})
	require.NoError(t, err)

	_, err = ApplyInverseConfusion(noisy, identityMatrix(4), 2, rand.New(rand.NewSource(10)))
	assert.Error(t, err)
}

func TestApplyInverseConfusion_DegenerateCorrectedRow(t *testing.T) {
	// Column 0 of the inverse carries no positive mass, so a |0> shot has no
	// state to be resampled into.
	inverse := mat.NewDense(2, 2, []float64{
		0, 1,
		0, 1,
	})
	noisy, err := quantum.NewMeasurementResult([][]int{{0}}, []int{0})
	require.NoError(t, err)

	_, err = ApplyInverseConfusion(noisy, inverse, 1, rand.New(rand.NewSource(11)))
	assert.True(t, errors.Is(err, quantum.ErrDegenerateWeights))
}

func TestProvidedMatrix_RequiresMatrix(t *testing.T) {
	sim := quantum.NewSimulator(quantum.WithShots(10))
	_, err := ExecuteWithRCI(quantum.NewCircuit(1), sim,
		quantum.NewObservable(quantum.NewPauliString("Z")), ProvidedMatrix{})
	assert.Error(t, err)
}
