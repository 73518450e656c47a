package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) ContinuationStore {
	t.Helper()
	// A fresh shared-cache in-memory database per test; SQLite's shared
	// cache mode keeps it alive for the connection pool's lifetime.
	st, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	rec := Record{
		Key:         "script-1",
		MethodToken: 42,
		Format:      "binary",
		Data:        []byte{1, 2, 3, 4},
		UpdatedAt:   time.Now().UTC().Round(time.Second),
	}
	require.NoError(t, st.Save(ctx, rec))

	got, err := st.Load(ctx, "script-1")
	require.NoError(t, err)
	assert.Equal(t, rec.MethodToken, got.MethodToken)
	assert.Equal(t, rec.Format, got.Format)
	assert.Equal(t, rec.Data, got.Data)
}

func TestSaveOverwritesExistingKey(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, Record{Key: "k", MethodToken: 1, Format: "json", Data: []byte("a")}))
	require.NoError(t, st.Save(ctx, Record{Key: "k", MethodToken: 2, Format: "json", Data: []byte("b")}))

	got, err := st.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.MethodToken)
	assert.Equal(t, []byte("b"), got.Data)
}

func TestLoadMissingKeyReturnsErrNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Load(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteRemovesRecord(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, Record{Key: "k", MethodToken: 1, Format: "binary", Data: []byte("x")}))
	require.NoError(t, st.Delete(ctx, "k"))

	_, err := st.Load(ctx, "k")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOpenByDSNDispatchesSQLite(t *testing.T) {
	st, err := OpenByDSN(context.Background(), "sqlite::memory:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Save(context.Background(), Record{Key: "a", MethodToken: 7, Format: "json", Data: []byte("z")}))
	got, err := st.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int32(7), got.MethodToken)
}

func TestOpenByDSNRejectsUnknownDriver(t *testing.T) {
	_, err := OpenByDSN(context.Background(), "oracle:whatever")
	assert.Error(t, err)
}
