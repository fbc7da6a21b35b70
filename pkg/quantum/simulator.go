package quantum

import (
	"fmt"
	"math/rand"
	"time"
)

const defaultSimulatorShots = 8192

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithFlipProbabilities sets the readout bit-flip probabilities: p0 is the
// probability that a true 0 reads as 1, p1 that a true 1 reads as 0.
func WithFlipProbabilities(p0, p1 float64) SimulatorOption {
	return func(s *Simulator) {
		s.p0 = p0
		s.p1 = p1
	}
}

// WithShots sets the number of repetitions per circuit.
func WithShots(shots int) SimulatorOption {
	return func(s *Simulator) { s.shots = shots }
}

// WithRand sets the random source, for deterministic tests.
func WithRand(rng *rand.Rand) SimulatorOption {
	return func(s *Simulator) { s.rng = rng }
}

// Simulator is a readout-only backend: it prepares the computational basis
// state implied by a circuit's X gates and samples each qubit's readout,
// flipping bits independently with the configured probabilities. It is the
// noisy execution backend consumed by readout calibration, and doubles as a
// noiseless executor when both flip probabilities are zero.
type Simulator struct {
	p0    float64
	p1    float64
	shots int
	rng   *rand.Rand
}

// NewSimulator creates a simulator. Defaults: noiseless readout, 8192 shots,
// time-seeded randomness.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{shots: defaultSimulatorShots}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Run executes each circuit, returning one measurement result per circuit.
func (s *Simulator) Run(circuits []*Circuit) ([]*MeasurementResult, error) {
	if s.p0 < 0 || s.p0 > 1 || s.p1 < 0 || s.p1 > 1 {
		return nil, fmt.Errorf("quantum: flip probabilities must be in [0,1], got p0=%v p1=%v", s.p0, s.p1)
	}
	if s.shots < 1 {
		return nil, fmt.Errorf("quantum: shots must be positive, got %d", s.shots)
	}
	results := make([]*MeasurementResult, 0, len(circuits))
	for _, circuit := range circuits {
		if err := circuit.Validate(); err != nil {
			return nil, err
		}
		ideal := circuit.BasisState()
		shots := make([][]int, s.shots)
		for i := range shots {
			row := make([]int, len(ideal))
			for q, b := range ideal {
				row[q] = s.readBit(b)
			}
			shots[i] = row
		}
		result, err := NewMeasurementResult(shots, circuit.Qubits())
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// readBit samples the observed value of a single readout bit.
func (s *Simulator) readBit(ideal int) int {
	if ideal == 0 {
		if s.rng.Float64() < s.p0 {
			return 1
		}
		return 0
	}
	if s.rng.Float64() < s.p1 {
		return 0
	}
	return 1
}
