package mitigation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/pkg/quantum"
	"github.com/quanterr/rci/pkg/rci"
)

// Handler handles mitigation HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new mitigation handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "mitigation").Logger(),
	}
}

// Routes returns the mitigation routes, mounted under /api/mitigation.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/counts", h.HandleCorrectCounts)
	r.Post("/expectation", h.HandleExpectation)
	return r
}

type observableTerm struct {
	Pauli       string  `json:"pauli"`
	Coefficient float64 `json:"coefficient"`
}

type correctRequest struct {
	NumQubits     int              `json:"num_qubits"`
	Counts        map[string]int   `json:"counts"`
	InverseMatrix [][]float64      `json:"inverse_matrix,omitempty"`
	P0            *float64         `json:"p0,omitempty"`
	P1            *float64         `json:"p1,omitempty"`
	Observable    []observableTerm `json:"observable,omitempty"`
}

func (h *Handler) parseRequest(r *http.Request) (*correctRequest, *mat.Dense, float64, float64, error) {
	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, 0, 0, err
	}

	var inverse *mat.Dense
	if len(req.InverseMatrix) > 0 {
		parsed, err := ParseMatrix(req.InverseMatrix)
		if err != nil {
			return nil, nil, 0, 0, err
		}
		inverse = parsed
	}

	p0 := h.service.defaultP0
	if req.P0 != nil {
		p0 = *req.P0
	}
	p1 := h.service.defaultP1
	if req.P1 != nil {
		p1 = *req.P1
	}
	return &req, inverse, p0, p1, nil
}

// HandleCorrectCounts handles POST /api/mitigation/counts
func (h *Handler) HandleCorrectCounts(w http.ResponseWriter, r *http.Request) {
	req, inverse, p0, p1, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	corrected, err := h.service.CorrectCounts(req.NumQubits, req.Counts, inverse, p0, p1)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"num_qubits":       req.NumQubits,
			"corrected_counts": corrected.Counts(),
			"shots":            corrected.NumShots(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleExpectation handles POST /api/mitigation/expectation
func (h *Handler) HandleExpectation(w http.ResponseWriter, r *http.Request) {
	req, inverse, p0, p1, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Observable) == 0 {
		h.writeError(w, http.StatusBadRequest, errors.New("observable is required"))
		return
	}

	terms := make([]quantum.PauliString, 0, len(req.Observable))
	for _, t := range req.Observable {
		for _, letter := range t.Pauli {
			if letter != 'I' && letter != 'Z' {
				h.writeError(w, http.StatusBadRequest, errors.New("observable terms must use only I and Z"))
				return
			}
		}
		coeff := t.Coefficient
		if coeff == 0 {
			coeff = 1
		}
		terms = append(terms, quantum.NewPauliString(t.Pauli).WithCoefficient(coeff))
	}
	observable := quantum.NewObservable(terms...)

	value, corrected, err := h.service.Expectation(req.NumQubits, req.Counts, inverse, p0, p1, observable)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"num_qubits":        req.NumQubits,
			"expectation_value": value,
			"corrected_counts":  corrected.Counts(),
			"shots":             corrected.NumShots(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeServiceError maps service failures to status codes: precondition
// violations are client errors, everything else is a server error.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var dimErr *rci.DimensionError
	switch {
	case errors.As(err, &dimErr):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, quantum.ErrDegenerateWeights):
		h.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error().Err(err).Msg("Mitigation request failed")
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
