// Package quantum provides the measurement-level building blocks consumed by
// the readout confusion inversion pipeline: a minimal circuit model, raw
// measurement results, diagonal observables, executor abstractions and a
// readout-noise simulator backend.
package quantum

// GateType identifies a circuit gate.
type GateType string

const (
	// GateX is a bit-flip gate on a single target qubit.
	GateX GateType = "X"
	// GateMeasure marks a terminal measurement. Circuits measure all of
	// their qubits, so the gate carries no target.
	GateMeasure GateType = "MEASURE"
)

// Gate is one operation in a circuit.
type Gate struct {
	Type   GateType
	Target int
}

// Circuit is a minimal circuit model sufficient for readout calibration and
// mitigation: a register of qubits prepared in a computational basis state by
// X gates, followed by measurement of every qubit.
//
// Qubits are indexed 0..NumQubits-1. The register order is load-bearing: it
// is the order used for Kronecker factors when confusion matrices are built,
// and the order of bits in measurement shots.
type Circuit struct {
	NumQubits int
	Gates     []Gate
}

// NewCircuit creates an empty circuit over numQubits qubits.
func NewCircuit(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// AddX appends a bit-flip gate on target and returns the circuit for
// chaining. Target validity is checked at execution time.
func (c *Circuit) AddX(target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Type: GateX, Target: target})
	return c
}

// Qubits returns the measured qubit indices in register order.
func (c *Circuit) Qubits() []int {
	qubits := make([]int, c.NumQubits)
	for i := range qubits {
		qubits[i] = i
	}
	return qubits
}

// BasisState returns the computational basis state the circuit prepares, as
// one bit per qubit in register order. X gates toggle their target bit;
// gates with out-of-range targets are reported by Validate, not here.
func (c *Circuit) BasisState() []int {
	bits := make([]int, c.NumQubits)
	for _, g := range c.Gates {
		if g.Type == GateX && g.Target >= 0 && g.Target < c.NumQubits {
			bits[g.Target] ^= 1
		}
	}
	return bits
}

// Validate checks structural validity of the circuit.
func (c *Circuit) Validate() error {
	if c.NumQubits < 1 {
		return &CircuitError{Reason: "circuit must have at least one qubit"}
	}
	for _, g := range c.Gates {
		switch g.Type {
		case GateMeasure:
			// no target
		case GateX:
			if g.Target < 0 || g.Target >= c.NumQubits {
				return &CircuitError{Reason: "gate target out of range"}
			}
		default:
			return &CircuitError{Reason: "unsupported gate type " + string(g.Type)}
		}
	}
	return nil
}

// CircuitError reports a structurally invalid circuit.
type CircuitError struct {
	Reason string
}

func (e *CircuitError) Error() string {
	return "quantum: invalid circuit: " + e.Reason
}
