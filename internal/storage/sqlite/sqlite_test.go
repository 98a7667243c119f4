package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/internal/storage/storagetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "splitwiser-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "ledger.db")
	ctx := context.Background()

	store, err := New(dbPath)
	require.NoError(t, err)
	group := storagetest.NewGroup(t, store, "Trip", "alice", "bob")
	err = store.InTx(ctx, group.ID, []storage.Pair{storage.NewPair("alice", "bob")}, func(tx storage.Tx) error {
		return tx.UpsertEdge(ctx, "bob", "alice", decimal.RequireFromString("12.34"))
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	edges, err := reopened.ListEdges(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "bob", edges[0].DebtorID)
	assert.Equal(t, "alice", edges[0].CreditorID)
	assert.Equal(t, "12.34", edges[0].Amount.StringFixed(2))
}

func TestSQLiteStore_RejectsSelfEdge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := storagetest.NewGroup(t, store, "Flat", "alice", "bob")

	err := store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
		return tx.UpsertEdge(ctx, "alice", "alice", decimal.NewFromInt(5))
	})
	require.Error(t, err)

	edges, err := store.ListEdges(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestClassify(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, classify(plain))
	assert.False(t, errors.Is(classify(fmt.Errorf("wrapped: %w", plain)), models.ErrConcurrencyConflict))
}
