package calibration

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "calibrations.db"),
		Name: "calibrations_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db.Conn(), zerolog.Nop())
	require.NoError(t, store.Init())
	return store
}

func testRecord(numQubits int) *Record {
	dim := 1 << numQubits
	confusion := mat.NewDense(dim, dim, nil)
	inverse := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		confusion.Set(i, i, 0.9)
		inverse.Set(i, i, 1.0/0.9)
	}
	return &Record{
		NumQubits: numQubits,
		P0:        0.05,
		P1:        0.1,
		Shots:     1000,
		Confusion: confusion,
		Inverse:   inverse,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	rec := testRecord(2)
	require.NoError(t, store.Save(rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	loaded, err := store.Get(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, 2, loaded.NumQubits)
	assert.Equal(t, 0.05, loaded.P0)
	assert.Equal(t, 0.1, loaded.P1)
	assert.Equal(t, 1000, loaded.Shots)
	assert.True(t, mat.EqualApprox(rec.Confusion, loaded.Confusion, 1e-12))
	assert.True(t, mat.EqualApprox(rec.Inverse, loaded.Inverse, 1e-12))
}

func TestStore_GetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Get("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_LatestPicksNewestForRegisterSize(t *testing.T) {
	store := newTestStore(t)

	older := testRecord(2)
	older.P0 = 0.01
	require.NoError(t, store.Save(older))

	newer := testRecord(2)
	newer.P0 = 0.02
	// created_at is stored at second resolution, so force a later second.
	newer.CreatedAt = older.CreatedAt.Add(time.Second)
	require.NoError(t, store.Save(newer))

	other := testRecord(3)
	require.NoError(t, store.Save(other))

	latest, err := store.Latest(2)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, 0.02, latest.P0)

	none, err := store.Latest(5)
	require.NoError(t, err)
	assert.Nil(t, none)
}
