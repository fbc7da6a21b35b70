// Package calibration persists readout calibration results so the
// mitigation service can correct submitted measurement data without
// re-sampling a confusion matrix on every request.
package calibration

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// Record is one stored calibration: the measured joint confusion matrix and
// its inverse, with the parameters that produced them.
type Record struct {
	ID        string
	NumQubits int
	P0        float64
	P1        float64
	Shots     int
	Confusion *mat.Dense
	Inverse   *mat.Dense
	CreatedAt time.Time
}

// matrixBlob is the msgpack wire form of a dense matrix.
type matrixBlob struct {
	Rows int       `msgpack:"rows"`
	Cols int       `msgpack:"cols"`
	Data []float64 `msgpack:"data"`
}

func encodeMatrix(m *mat.Dense) ([]byte, error) {
	rows, cols := m.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return msgpack.Marshal(matrixBlob{Rows: rows, Cols: cols, Data: data})
}

func decodeMatrix(blob []byte) (*mat.Dense, error) {
	var b matrixBlob
	if err := msgpack.Unmarshal(blob, &b); err != nil {
		return nil, fmt.Errorf("failed to decode matrix blob: %w", err)
	}
	if b.Rows < 1 || b.Cols < 1 || len(b.Data) != b.Rows*b.Cols {
		return nil, fmt.Errorf("matrix blob has inconsistent shape %dx%d with %d values", b.Rows, b.Cols, len(b.Data))
	}
	return mat.NewDense(b.Rows, b.Cols, b.Data), nil
}

// Store handles calibration database operations.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a new calibration store.
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("store", "calibration").Logger(),
	}
}

// Init creates the calibrations table if it does not exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS calibrations (
			id         TEXT PRIMARY KEY,
			num_qubits INTEGER NOT NULL,
			p0         REAL NOT NULL,
			p1         REAL NOT NULL,
			shots      INTEGER NOT NULL,
			confusion  BLOB NOT NULL,
			inverse    BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_calibrations_qubits_created
			ON calibrations (num_qubits, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize calibration schema: %w", err)
	}
	return nil
}

// Save persists a calibration record, assigning an ID and timestamp if the
// record does not carry them.
func (s *Store) Save(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	confusion, err := encodeMatrix(rec.Confusion)
	if err != nil {
		return fmt.Errorf("failed to encode confusion matrix: %w", err)
	}
	inverse, err := encodeMatrix(rec.Inverse)
	if err != nil {
		return fmt.Errorf("failed to encode inverse matrix: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO calibrations (id, num_qubits, p0, p1, shots, confusion, inverse, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.NumQubits, rec.P0, rec.P1, rec.Shots, confusion, inverse, rec.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save calibration %s: %w", rec.ID, err)
	}

	s.log.Debug().
		Str("id", rec.ID).
		Int("num_qubits", rec.NumQubits).
		Msg("Saved calibration")
	return nil
}

// Get retrieves a calibration by ID. Returns nil if it does not exist.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, num_qubits, p0, p1, shots, confusion, inverse, created_at
		FROM calibrations WHERE id = ?
	`, id)
	return scanRecord(row)
}

// Latest retrieves the most recent calibration for a register size. Returns
// nil if none has been stored yet.
func (s *Store) Latest(numQubits int) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, num_qubits, p0, p1, shots, confusion, inverse, created_at
		FROM calibrations WHERE num_qubits = ?
		ORDER BY created_at DESC LIMIT 1
	`, numQubits)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		rec       Record
		confusion []byte
		inverse   []byte
		createdAt int64
	)
	err := row.Scan(&rec.ID, &rec.NumQubits, &rec.P0, &rec.P1, &rec.Shots, &confusion, &inverse, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan calibration: %w", err)
	}
	if rec.Confusion, err = decodeMatrix(confusion); err != nil {
		return nil, err
	}
	if rec.Inverse, err = decodeMatrix(inverse); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &rec, nil
}
