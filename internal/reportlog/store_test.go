package reportlog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNilStoreIsNoop(t *testing.T) {
	var store *Store
	entry, err := store.Record(context.Background(), Entry{Entity: "materials", Format: "pdf"})
	require.NoError(t, err)
	require.Equal(t, "materials", entry.Entity)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPrepareFillsDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	entry, err := prepare(Entry{Entity: " borrows ", Format: "pdf"}, now)
	require.NoError(t, err)
	require.Equal(t, "borrows", entry.Entity)
	require.NotEqual(t, uuid.Nil, entry.ID)
	require.Equal(t, now.UTC(), entry.CreatedAt)

	id := uuid.New()
	entry, err = prepare(Entry{ID: id, Entity: "x", Format: "csv"}, now)
	require.NoError(t, err)
	require.Equal(t, id, entry.ID)
}

func TestPrepareRejectsMissingFields(t *testing.T) {
	_, err := prepare(Entry{Entity: "materials"}, time.Now())
	require.ErrorIs(t, err, ErrInvalidEntry)
	_, err = prepare(Entry{Format: "pdf"}, time.Now())
	require.ErrorIs(t, err, ErrInvalidEntry)
}
