package calibration

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/pkg/quantum"
	"github.com/quanterr/rci/pkg/rci"
)

// Service runs readout calibrations against the built-in noisy simulator
// backend and persists the results.
type Service struct {
	store *Store
	log   zerolog.Logger
}

// NewService creates a new calibration service.
func NewService(store *Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("service", "calibration").Logger(),
	}
}

// Calibrate measures per-qubit confusion matrices for a register of
// numQubits qubits with the given readout flip probabilities, builds the
// joint confusion matrix and its inverse, and stores the result.
func (s *Service) Calibrate(numQubits int, p0, p1 float64, shots int) (*Record, error) {
	if numQubits < 1 {
		return nil, fmt.Errorf("calibration requires at least 1 qubit, got %d", numQubits)
	}

	sampler := quantum.NewSimulator(
		quantum.WithFlipProbabilities(p0, p1),
		quantum.WithShots(shots),
	)
	qubits := make([]int, numQubits)
	for i := range qubits {
		qubits[i] = i
	}

	calibration, err := rci.MeasureConfusionMatrix(sampler, qubits, shots)
	if err != nil {
		return nil, err
	}
	inverse, err := calibration.CorrectionMatrix()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		NumQubits: numQubits,
		P0:        p0,
		P1:        p1,
		Shots:     shots,
		Confusion: calibration.ConfusionMatrix(),
		Inverse:   inverse,
	}
	if err := s.store.Save(rec); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("id", rec.ID).
		Int("num_qubits", numQubits).
		Float64("p0", p0).
		Float64("p1", p1).
		Int("shots", shots).
		Msg("Stored readout calibration")
	return rec, nil
}

// Get returns a stored calibration by ID, or nil if it does not exist.
func (s *Service) Get(id string) (*Record, error) {
	return s.store.Get(id)
}

// Latest returns the most recent calibration for a register size, or nil.
func (s *Service) Latest(numQubits int) (*Record, error) {
	return s.store.Latest(numQubits)
}

// InverseFor returns an inverse confusion matrix for a register size: the
// most recently stored calibration when one exists, otherwise the analytic
// matrix for the given flip probabilities.
func (s *Service) InverseFor(numQubits int, p0, p1 float64) (*mat.Dense, error) {
	rec, err := s.Latest(numQubits)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec.Inverse, nil
	}
	s.log.Debug().
		Int("num_qubits", numQubits).
		Msg("No stored calibration, using analytic inverse confusion matrix")
	return rci.GenerateInverseConfusionMatrix(numQubits, p0, p1)
}
