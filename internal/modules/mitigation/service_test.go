package mitigation

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/internal/database"
	"github.com/quanterr/rci/internal/modules/calibration"
	"github.com/quanterr/rci/pkg/quantum"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "calibrations.db"),
		Name: "calibrations_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := calibration.NewStore(db.Conn(), zerolog.Nop())
	require.NoError(t, store.Init())
	calibrations := calibration.NewService(store, zerolog.Nop())
	return NewService(calibrations, 0.01, 0.01, zerolog.Nop())
}

// antiDiagonal is the inverse confusion matrix of a readout that flips every
// bit with certainty.
func antiDiagonal(dim int) *mat.Dense {
	m := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		m.Set(i, dim-1-i, 1)
	}
	return m
}

func TestService_CorrectCounts_PermutationInverse(t *testing.T) {
	service := newTestService(t)

	corrected, err := service.CorrectCounts(2, map[string]int{"11": 40, "01": 10}, antiDiagonal(4), 0, 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"00": 40, "10": 10}, corrected.Counts())
	assert.Equal(t, 50, corrected.NumShots())
}

func TestService_CorrectCounts_NoInverseUsesAnalyticFallback(t *testing.T) {
	service := newTestService(t)

	// Noiseless probabilities give an identity inverse, so counts survive
	// unchanged.
	corrected, err := service.CorrectCounts(1, map[string]int{"1": 20}, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 20}, corrected.Counts())
}

func TestService_CorrectCounts_Validation(t *testing.T) {
	service := newTestService(t)

	_, err := service.CorrectCounts(0, map[string]int{"1": 1}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.CorrectCounts(2, map[string]int{}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.CorrectCounts(2, map[string]int{"011": 1}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.CorrectCounts(2, map[string]int{"0x": 1}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.CorrectCounts(2, map[string]int{"01": -1}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.CorrectCounts(2, map[string]int{"01": 0}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_Expectation(t *testing.T) {
	service := newTestService(t)
	observable := quantum.NewObservable(
		quantum.NewPauliString("ZI"),
		quantum.NewPauliString("IZ"),
	)

	identity := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		identity.Set(i, i, 1)
	}

	value, corrected, err := service.Expectation(2, map[string]int{"11": 10}, identity, 0, 0, observable)
	require.NoError(t, err)
	assert.Equal(t, -2.0, value)
	assert.Equal(t, map[string]int{"11": 10}, corrected.Counts())
}

func TestParseMatrix(t *testing.T) {
	m, err := ParseMatrix([][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)

	_, err = ParseMatrix(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseMatrix([][]float64{{1, 0}, {0}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
