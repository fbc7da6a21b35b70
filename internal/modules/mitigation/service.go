// Package mitigation exposes readout confusion inversion as a service:
// clients submit measurement counts and receive corrected counts and,
// optionally, a mitigated expectation value.
package mitigation

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/internal/modules/calibration"
	"github.com/quanterr/rci/pkg/quantum"
	"github.com/quanterr/rci/pkg/rci"
)

// ErrInvalidInput marks request validation failures, mapped to client
// errors by the HTTP layer.
var ErrInvalidInput = errors.New("invalid input")

// Service applies readout confusion inversion to submitted measurement data.
type Service struct {
	calibrations *calibration.Service
	defaultP0    float64
	defaultP1    float64
	log          zerolog.Logger
}

// NewService creates a new mitigation service. The default flip
// probabilities are used for the analytic fallback matrix when a request
// carries neither an inverse matrix nor its own probabilities and no stored
// calibration exists.
func NewService(calibrations *calibration.Service, defaultP0, defaultP1 float64, log zerolog.Logger) *Service {
	return &Service{
		calibrations: calibrations,
		defaultP0:    defaultP0,
		defaultP1:    defaultP1,
		log:          log.With().Str("service", "mitigation").Logger(),
	}
}

// CorrectCounts expands a bitstring histogram into shots, applies the
// inverse confusion matrix and returns the corrected result. When inverse is
// nil the latest stored calibration for the register size is used, falling
// back to the analytic matrix for the given flip probabilities.
func (s *Service) CorrectCounts(numQubits int, counts map[string]int, inverse *mat.Dense, p0, p1 float64) (*quantum.MeasurementResult, error) {
	noisy, err := resultFromCounts(numQubits, counts)
	if err != nil {
		return nil, err
	}

	if inverse == nil {
		inverse, err = s.calibrations.InverseFor(numQubits, p0, p1)
		if err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	corrected, err := rci.ApplyInverseConfusion(noisy, inverse, numQubits, rng)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("num_qubits", numQubits).
		Int("shots", corrected.NumShots()).
		Msg("Corrected measurement counts")
	return corrected, nil
}

// Expectation corrects the submitted counts and evaluates the observable on
// the corrected result.
func (s *Service) Expectation(numQubits int, counts map[string]int, inverse *mat.Dense, p0, p1 float64, observable *quantum.Observable) (float64, *quantum.MeasurementResult, error) {
	corrected, err := s.CorrectCounts(numQubits, counts, inverse, p0, p1)
	if err != nil {
		return 0, nil, err
	}
	value, err := observable.Expectation([]*quantum.MeasurementResult{corrected})
	if err != nil {
		return 0, nil, err
	}
	return value, corrected, nil
}

// resultFromCounts expands a histogram into an ordered measurement result.
// Keys are iterated in sorted order so the expansion is deterministic.
func resultFromCounts(numQubits int, counts map[string]int) (*quantum.MeasurementResult, error) {
	if numQubits < 1 {
		return nil, fmt.Errorf("mitigation: num_qubits must be at least 1, got %d: %w", numQubits, ErrInvalidInput)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("mitigation: counts must not be empty: %w", ErrInvalidInput)
	}

	keys := make([]string, 0, len(counts))
	total := 0
	for key, n := range counts {
		if len(key) != numQubits {
			return nil, fmt.Errorf("mitigation: counts key %q has %d bits, want %d: %w", key, len(key), numQubits, ErrInvalidInput)
		}
		if n < 0 {
			return nil, fmt.Errorf("mitigation: counts value for %q is negative: %w", key, ErrInvalidInput)
		}
		keys = append(keys, key)
		total += n
	}
	if total == 0 {
		return nil, fmt.Errorf("mitigation: counts contain no shots: %w", ErrInvalidInput)
	}
	sort.Strings(keys)

	shots := make([][]int, 0, total)
	for _, key := range keys {
		bits := make([]int, numQubits)
		for i, ch := range key {
			switch ch {
			case '0':
				bits[i] = 0
			case '1':
				bits[i] = 1
			default:
				return nil, fmt.Errorf("mitigation: counts key %q contains non-binary character: %w", key, ErrInvalidInput)
			}
		}
		for n := 0; n < counts[key]; n++ {
			shot := make([]int, numQubits)
			copy(shot, bits)
			shots = append(shots, shot)
		}
	}

	qubits := make([]int, numQubits)
	for i := range qubits {
		qubits[i] = i
	}
	return quantum.NewMeasurementResult(shots, qubits)
}

// ParseMatrix converts a row-major JSON matrix into a dense matrix,
// validating that it is square and rectangular.
func ParseMatrix(rows [][]float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("mitigation: inverse matrix must not be empty: %w", ErrInvalidInput)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("mitigation: inverse matrix row %d has %d columns, want %d: %w", i, len(row), n, ErrInvalidInput)
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}
