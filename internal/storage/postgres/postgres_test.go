package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/internal/storage/storagetest"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"lock not available", &pq.Error{Code: "55P03"}, true},
		{"unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"check violation", &pq.Error{Code: "23514"}, false},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.Equal(t, tc.conflict, errors.Is(got, models.ErrConcurrencyConflict))
		})
	}
}

// TestPostgresStore runs the shared store checks when TEST_DATABASE_URL points at a
// scratch database.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx := context.Background()
		store, err := New(ctx, url, PoolConfig{MaxOpenConns: 5, MaxIdleConns: 2, ConnMaxLifetimeS: 60})
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = store.db.ExecContext(ctx, "TRUNCATE groups CASCADE")
			store.Close()
		})
		_, err = store.db.ExecContext(ctx, "TRUNCATE groups CASCADE")
		require.NoError(t, err)
		return store
	})
}
