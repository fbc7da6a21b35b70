package quantum

import (
	"fmt"
	"strings"
)

// MeasurementResult holds the raw outcome of running a circuit: an ordered
// sequence of shots, each a fixed-width bit vector, together with the ordered
// qubit indices the bits correspond to.
//
// Bit ordering convention (applied consistently across the repository): the
// first qubit in QubitIndices is the most significant bit of a shot's basis
// state index. The same ordering governs Kronecker factor order during
// confusion-matrix construction, so encode/decode and matrix indices agree.
type MeasurementResult struct {
	shots        [][]int
	qubitIndices []int
}

// NewMeasurementResult builds a result from per-shot bit vectors and the
// qubit indices they were measured on. Every shot must have exactly one bit
// (0 or 1) per qubit index.
func NewMeasurementResult(shots [][]int, qubitIndices []int) (*MeasurementResult, error) {
	if len(qubitIndices) == 0 {
		return nil, fmt.Errorf("quantum: measurement result requires at least one qubit index")
	}
	for i, shot := range shots {
		if len(shot) != len(qubitIndices) {
			return nil, fmt.Errorf("quantum: shot %d has %d bits, want %d", i, len(shot), len(qubitIndices))
		}
		for j, b := range shot {
			if b != 0 && b != 1 {
				return nil, fmt.Errorf("quantum: shot %d bit %d is %d, want 0 or 1", i, j, b)
			}
		}
	}
	copied := make([][]int, len(shots))
	for i, shot := range shots {
		row := make([]int, len(shot))
		copy(row, shot)
		copied[i] = row
	}
	indices := make([]int, len(qubitIndices))
	copy(indices, qubitIndices)
	return &MeasurementResult{shots: copied, qubitIndices: indices}, nil
}

// NumShots returns the number of shots in the result.
func (r *MeasurementResult) NumShots() int {
	return len(r.shots)
}

// NumQubits returns the number of measured qubits.
func (r *MeasurementResult) NumQubits() int {
	return len(r.qubitIndices)
}

// QubitIndices returns a copy of the ordered qubit indices.
func (r *MeasurementResult) QubitIndices() []int {
	indices := make([]int, len(r.qubitIndices))
	copy(indices, r.qubitIndices)
	return indices
}

// Shot returns the bit vector of shot i. The returned slice is owned by the
// result and must not be mutated.
func (r *MeasurementResult) Shot(i int) []int {
	return r.shots[i]
}

// StateIndex returns the basis-state index of shot i under the big-endian
// convention (first qubit index is the most significant bit).
func (r *MeasurementResult) StateIndex(i int) int {
	return StateIndexOf(r.shots[i])
}

// Counts aggregates shots into a bitstring histogram, keyed by the shot bits
// in register order ("01" means first qubit read 0, second read 1).
func (r *MeasurementResult) Counts() map[string]int {
	counts := make(map[string]int)
	for _, shot := range r.shots {
		var sb strings.Builder
		for _, b := range shot {
			if b == 0 {
				sb.WriteByte('0')
			} else {
				sb.WriteByte('1')
			}
		}
		counts[sb.String()]++
	}
	return counts
}

// StateIndexOf encodes a bit vector as a basis-state index, most significant
// bit first.
func StateIndexOf(bits []int) int {
	idx := 0
	for _, b := range bits {
		idx = idx<<1 | (b & 1)
	}
	return idx
}

// BitsOfStateIndex decodes a basis-state index into a bit vector of width
// numQubits, most significant bit first. The inverse of StateIndexOf.
func BitsOfStateIndex(index, numQubits int) []int {
	bits := make([]int, numQubits)
	for i := 0; i < numQubits; i++ {
		bits[numQubits-1-i] = (index >> i) & 1
	}
	return bits
}
