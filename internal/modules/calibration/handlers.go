package calibration

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Defaults are applied to calibration requests that omit parameters.
type Defaults struct {
	NumQubits int
	P0        float64
	P1        float64
	Shots     int
}

// Handler handles calibration HTTP requests
type Handler struct {
	service  *Service
	defaults Defaults
	log      zerolog.Logger
}

// NewHandler creates a new calibration handler.
func NewHandler(service *Service, defaults Defaults, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		defaults: defaults,
		log:      log.With().Str("handler", "calibration").Logger(),
	}
}

// Routes returns the calibration routes, mounted under /api/calibration.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleCalibrate)
	r.Get("/latest", h.HandleLatest)
	r.Get("/{id}", h.HandleGet)
	return r
}

type calibrateRequest struct {
	NumQubits int      `json:"num_qubits"`
	P0        *float64 `json:"p0,omitempty"`
	P1        *float64 `json:"p1,omitempty"`
	Shots     int      `json:"shots,omitempty"`
}

// HandleCalibrate handles POST /api/calibration
func (h *Handler) HandleCalibrate(w http.ResponseWriter, r *http.Request) {
	req := calibrateRequest{NumQubits: h.defaults.NumQubits, Shots: h.defaults.Shots}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.NumQubits == 0 {
		req.NumQubits = h.defaults.NumQubits
	}
	if req.Shots == 0 {
		req.Shots = h.defaults.Shots
	}
	p0 := h.defaults.P0
	if req.P0 != nil {
		p0 = *req.P0
	}
	p1 := h.defaults.P1
	if req.P1 != nil {
		p1 = *req.P1
	}
	if req.NumQubits < 1 || req.Shots < 1 {
		h.writeError(w, http.StatusBadRequest, errors.New("num_qubits and shots must be positive"))
		return
	}

	rec, err := h.service.Calibrate(req.NumQubits, p0, p1, req.Shots)
	if err != nil {
		h.log.Error().Err(err).Msg("Calibration failed")
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeRecord(w, http.StatusCreated, rec)
}

// HandleLatest handles GET /api/calibration/latest?num_qubits=N
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	numQubits := h.defaults.NumQubits
	if raw := r.URL.Query().Get("num_qubits"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, errors.New("num_qubits must be a positive integer"))
			return
		}
		numQubits = parsed
	}

	rec, err := h.service.Latest(numQubits)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest calibration")
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		h.writeError(w, http.StatusNotFound, errors.New("no calibration stored for this register size"))
		return
	}
	h.writeRecord(w, http.StatusOK, rec)
}

// HandleGet handles GET /api/calibration/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to load calibration")
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		h.writeError(w, http.StatusNotFound, errors.New("calibration not found"))
		return
	}
	h.writeRecord(w, http.StatusOK, rec)
}

func (h *Handler) writeRecord(w http.ResponseWriter, status int, rec *Record) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": map[string]interface{}{
			"id":               rec.ID,
			"num_qubits":       rec.NumQubits,
			"p0":               rec.P0,
			"p1":               rec.P1,
			"shots":            rec.Shots,
			"confusion_matrix": matrixRows(rec.Confusion),
			"inverse_matrix":   matrixRows(rec.Inverse),
			"created_at":       rec.CreatedAt.Format(time.RFC3339),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// matrixRows converts a dense matrix into the row-major JSON form.
func matrixRows(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		copy(row, m.RawRowView(i))
		out[i] = row
	}
	return out
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
