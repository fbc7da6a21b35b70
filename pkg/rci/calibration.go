package rci

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/pkg/quantum"
)

// DefaultCalibrationShots is the number of repetitions used per calibration
// circuit when the caller does not override it.
const DefaultCalibrationShots = 1000

// TensoredCalibration holds independently estimated single-qubit confusion
// matrices for an ordered set of qubits. The joint matrices it produces
// assume no cross-qubit readout correlation: they are Kronecker products of
// the per-qubit factors, in register order (first qubit = leftmost factor =
// most significant bit, matching quantum.StateIndexOf).
type TensoredCalibration struct {
	qubits  []int
	factors []*mat.Dense
}

// Qubits returns the ordered qubit indices the calibration covers.
func (t *TensoredCalibration) Qubits() []int {
	qubits := make([]int, len(t.qubits))
	copy(qubits, t.qubits)
	return qubits
}

// Factor returns the 2x2 confusion matrix of the i-th qubit. Entry (o, s) is
// the probability of observing o given true state s; columns sum to one.
func (t *TensoredCalibration) Factor(i int) *mat.Dense {
	return t.factors[i]
}

// ConfusionMatrix returns the joint 2^n x 2^n confusion matrix, the
// Kronecker product of the per-qubit factors in register order.
func (t *TensoredCalibration) ConfusionMatrix() *mat.Dense {
	joint := t.factors[0]
	for _, factor := range t.factors[1:] {
		joint = kronecker(joint, factor)
	}
	// Copy so callers cannot alias the first factor for n=1.
	var out mat.Dense
	out.CloneFrom(joint)
	return &out
}

// CorrectionMatrix returns the inverse of the joint confusion matrix. A
// singular or ill-conditioned confusion matrix fails with the underlying
// linear-algebra error; no pseudo-inverse is substituted.
func (t *TensoredCalibration) CorrectionMatrix() (*mat.Dense, error) {
	confusion := t.ConfusionMatrix()
	var inverse mat.Dense
	if err := inverse.Inverse(confusion); err != nil {
		return nil, fmt.Errorf("rci: confusion matrix inversion failed: %w", err)
	}
	return &inverse, nil
}

// MeasureConfusionMatrix estimates a single-qubit confusion matrix for each
// qubit by running readout calibration circuits against the sampler: for
// each qubit, one circuit preparing |0> and one preparing |1>, repeated
// `repetitions` times each (DefaultCalibrationShots when repetitions <= 0).
//
// The sampler is expected to be a noisy execution backend; calibration
// consumes execution budget, which is why callers that already hold an
// inverse matrix skip this stage entirely.
func MeasureConfusionMatrix(sampler quantum.Runner, qubits []int, repetitions int) (*TensoredCalibration, error) {
	if len(qubits) == 0 {
		return nil, fmt.Errorf("rci: calibration requires at least one qubit")
	}
	if repetitions <= 0 {
		repetitions = DefaultCalibrationShots
	}

	factors := make([]*mat.Dense, 0, len(qubits))
	for range qubits {
		// Per-qubit errors are assumed independent, so each qubit is
		// calibrated on its own single-qubit register.
		prep0 := quantum.NewCircuit(1)
		prep1 := quantum.NewCircuit(1).AddX(0)

		factor := mat.NewDense(2, 2, nil)
		for state, circuit := range []*quantum.Circuit{prep0, prep1} {
			results, err := sampler.Run([]*quantum.Circuit{circuit})
			if err != nil {
				return nil, fmt.Errorf("rci: calibration sampling failed: %w", err)
			}
			if len(results) != 1 {
				return nil, fmt.Errorf("rci: calibration sampler returned %d results for 1 circuit", len(results))
			}
			ones := 0
			total := results[0].NumShots()
			if total == 0 {
				return nil, fmt.Errorf("rci: calibration sampler returned no shots")
			}
			for i := 0; i < total; i++ {
				ones += results[0].Shot(i)[0]
			}
			pOne := float64(ones) / float64(total)
			factor.Set(0, state, 1-pOne)
			factor.Set(1, state, pOne)
		}
		factors = append(factors, factor)
	}

	indices := make([]int, len(qubits))
	copy(indices, qubits)
	return &TensoredCalibration{qubits: indices, factors: factors}, nil
}

// singleQubitConfusion returns the analytic 2x2 confusion matrix for the
// given flip probabilities: column s holds the readout distribution for true
// state s.
func singleQubitConfusion(p0, p1 float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		1 - p0, p1,
		p0, 1 - p1,
	})
}

// GenerateInverseConfusionMatrix builds the analytic inverse confusion
// matrix for numQubits qubits sharing the same flip probabilities: the
// Kronecker product of identical single-qubit confusion matrices, inverted.
// Flip probabilities outside [0,1] are rejected; a singular confusion matrix
// (e.g. p0+p1 = 1) propagates the inversion error.
func GenerateInverseConfusionMatrix(numQubits int, p0, p1 float64) (*mat.Dense, error) {
	if numQubits < 1 {
		return nil, fmt.Errorf("rci: numQubits must be at least 1, got %d", numQubits)
	}
	if p0 < 0 || p0 > 1 || p1 < 0 || p1 > 1 {
		return nil, fmt.Errorf("rci: flip probabilities must be in [0,1], got p0=%v p1=%v", p0, p1)
	}
	confusion := singleQubitConfusion(p0, p1)
	joint := confusion
	for i := 1; i < numQubits; i++ {
		joint = kronecker(joint, confusion)
	}
	var inverse mat.Dense
	if err := inverse.Inverse(joint); err != nil {
		return nil, fmt.Errorf("rci: confusion matrix inversion failed: %w", err)
	}
	return &inverse, nil
}

// kronecker computes the Kronecker product a ⊗ b.
func kronecker(a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			scale := a.At(i, j)
			for k := 0; k < br; k++ {
				for l := 0; l < bc; l++ {
					out.Set(i*br+k, j*bc+l, scale*b.At(k, l))
				}
			}
		}
	}
	return out
}
