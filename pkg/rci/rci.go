// Package rci implements readout confusion inversion, a post-processing
// error-mitigation technique for quantum measurement results. Systematic
// readout bit flips are corrected by applying an inverse confusion matrix to
// the probability vectors implied by noisy measurement shots, re-sampling
// corrected shots, and evaluating the observable on the corrected result.
//
// The correction assumes a tensor-product error structure: per-qubit readout
// errors are independent, so the joint confusion matrix is a Kronecker
// product of single-qubit 2x2 confusion matrices. Correlated multi-qubit
// readout error is out of scope.
package rci

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/pkg/quantum"
)

// Default flip probabilities used when calibration parameters are not given.
const (
	DefaultP0 = 0.01
	DefaultP1 = 0.01
)

type options struct {
	rng              *rand.Rand
	log              zerolog.Logger
	calibrationShots int
}

// Option configures the evaluator and corrector.
type Option func(*options)

// WithRand sets the random source used for resampling corrected probability
// vectors and for calibration sampling, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithLogger sets the logger used for the informational calibration notice.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithCalibrationShots sets the repetitions per calibration circuit when the
// inverse matrix is computed from calibration.
func WithCalibrationShots(shots int) Option {
	return func(o *options) { o.calibrationShots = shots }
}

func resolveOptions(opts []Option) *options {
	o := &options{
		log:              zerolog.Nop(),
		calibrationShots: DefaultCalibrationShots,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// InverseSource selects how the evaluator obtains its inverse confusion
// matrix. It is resolved exactly once, at the start of ExecuteWithRCI.
type InverseSource interface {
	inverseMatrix(numQubits int, o *options) (*mat.Dense, error)
}

// ProvidedMatrix supplies a precomputed inverse confusion matrix, skipping
// calibration sampling entirely. The matrix is trusted beyond a dimension
// check against the circuit's qubit count.
type ProvidedMatrix struct {
	M *mat.Dense
}

func (p ProvidedMatrix) inverseMatrix(numQubits int, _ *options) (*mat.Dense, error) {
	if p.M == nil {
		return nil, fmt.Errorf("rci: ProvidedMatrix requires a non-nil matrix")
	}
	if err := checkDimensions(p.M, numQubits); err != nil {
		return nil, err
	}
	return p.M, nil
}

// ComputeFromCalibration measures per-qubit confusion matrices against a
// noisy readout backend biased with the given flip probabilities, combines
// them by Kronecker product and inverts the result. This performs
// calibration sampling on every call; matrices are never cached.
type ComputeFromCalibration struct {
	P0 float64
	P1 float64
}

func (c ComputeFromCalibration) inverseMatrix(numQubits int, o *options) (*mat.Dense, error) {
	o.log.Info().
		Int("num_qubits", numQubits).
		Float64("p0", c.P0).
		Float64("p1", c.P1).
		Int("shots", o.calibrationShots).
		Msg("No inverse confusion matrix provided, measuring one via calibration sampling")

	sampler := quantum.NewSimulator(
		quantum.WithFlipProbabilities(c.P0, c.P1),
		quantum.WithShots(o.calibrationShots),
		quantum.WithRand(o.rng),
	)
	qubits := make([]int, numQubits)
	for i := range qubits {
		qubits[i] = i
	}
	calibration, err := MeasureConfusionMatrix(sampler, qubits, o.calibrationShots)
	if err != nil {
		return nil, err
	}
	return calibration.CorrectionMatrix()
}

func checkDimensions(inverse *mat.Dense, numQubits int) error {
	rows, cols := inverse.Dims()
	if dim := 1 << numQubits; rows != dim || cols != dim {
		return &DimensionError{Rows: rows, Cols: cols, NumQubits: numQubits}
	}
	return nil
}

// ApplyInverseConfusion corrects a noisy measurement result with the given
// inverse confusion matrix.
//
// Each shot is lifted to its one-hot probability vector over the
// 2^numQubits basis states (big-endian bit order, see quantum.StateIndexOf),
// the shot vectors are stacked into a matrix with shots as rows, and the
// inverse matrix is applied to every row in one batch multiplication.
// Corrected rows may contain negative or non-normalized entries; that is
// expected, and each row is resampled into a single corrected shot under the
// clamp-then-normalize policy of quantum.SampleStateIndex. A row left with
// no positive finite mass aborts the whole correction.
//
// The corrected result shares the input's qubit-index ordering. The inverse
// matrix dimension is a hard precondition: a mismatch fails with
// *DimensionError before any work is done.
func ApplyInverseConfusion(noisy *quantum.MeasurementResult, inverse *mat.Dense, numQubits int, rng *rand.Rand) (*quantum.MeasurementResult, error) {
	if err := checkDimensions(inverse, numQubits); err != nil {
		return nil, err
	}
	if noisy.NumQubits() != numQubits {
		return nil, fmt.Errorf("rci: measurement result has %d qubits, want %d", noisy.NumQubits(), numQubits)
	}

	dim := 1 << numQubits
	numShots := noisy.NumShots()
	stacked := mat.NewDense(numShots, dim, nil)
	for i := 0; i < numShots; i++ {
		stacked.Set(i, noisy.StateIndex(i), 1)
	}

	// inverse @ row for every row, as (S · Mᵀ).
	var corrected mat.Dense
	corrected.Mul(stacked, inverse.T())

	shots := make([][]int, numShots)
	row := make([]float64, dim)
	for i := 0; i < numShots; i++ {
		mat.Row(row, i, &corrected)
		index, err := quantum.SampleStateIndex(row, rng)
		if err != nil {
			return nil, fmt.Errorf("rci: resampling corrected shot %d: %w", i, err)
		}
		shots[i] = quantum.BitsOfStateIndex(index, numQubits)
	}
	return quantum.NewMeasurementResult(shots, noisy.QubitIndices())
}

// ExecuteWithRCI returns the readout error mitigated expectation value of
// observable for circuit, executed through runner.
//
// source selects the inverse confusion matrix: ProvidedMatrix to skip
// calibration, ComputeFromCalibration to measure one first. A nil source
// defaults to ComputeFromCalibration with DefaultP0/DefaultP1.
func ExecuteWithRCI(circuit *quantum.Circuit, runner quantum.Runner, observable *quantum.Observable, source InverseSource, opts ...Option) (float64, error) {
	if observable == nil {
		return 0, fmt.Errorf("rci: observable is required")
	}
	o := resolveOptions(opts)
	if source == nil {
		source = ComputeFromCalibration{P0: DefaultP0, P1: DefaultP1}
	}

	inverse, err := source.inverseMatrix(circuit.NumQubits, o)
	if err != nil {
		return 0, err
	}

	results, err := runner.Run([]*quantum.Circuit{circuit})
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("rci: executor returned %d results for 1 circuit", len(results))
	}

	corrected, err := ApplyInverseConfusion(results[0], inverse, circuit.NumQubits, o.rng)
	if err != nil {
		return 0, err
	}
	return observable.Expectation([]*quantum.MeasurementResult{corrected})
}
