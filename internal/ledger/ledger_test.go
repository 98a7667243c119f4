package ledger

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/money"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/internal/storage/memory"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
	"github.com/mmynk/splitwiser/internal/storage/storagetest"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T, members ...string) (*Ledger, storage.Store, string) {
	t.Helper()
	store := memory.New()
	group := storagetest.NewGroup(t, store, "Test group", members...)
	return New(store), store, group.ID
}

// edgeBetween returns the only edge between a and b, failing if there are several.
func edgeBetween(t *testing.T, l *Ledger, groupID, a, b string) *models.Balance {
	t.Helper()
	edges, err := l.Snapshot(context.Background(), groupID)
	require.NoError(t, err)

	var found *models.Balance
	for i := range edges {
		if edges[i].Involves(a, b) {
			require.Nil(t, found, "more than one edge between %s and %s", a, b)
			found = &edges[i]
		}
	}
	return found
}

func assertEdge(t *testing.T, l *Ledger, groupID, debtor, creditor, amount string) {
	t.Helper()
	edge := edgeBetween(t, l, groupID, debtor, creditor)
	require.NotNil(t, edge, "expected edge %s->%s", debtor, creditor)
	assert.Equal(t, debtor, edge.DebtorID)
	assert.Equal(t, creditor, edge.CreditorID)
	assert.True(t, edge.Amount.Equal(d(amount)), "amount %s, want %s", edge.Amount, amount)
}

func TestApplySplit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates edge", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("40.00")))
		assertEdge(t, l, g, "B", "A", "40")
	})

	t.Run("adds to same direction", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("40")))
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("2.50")))
		assertEdge(t, l, g, "B", "A", "42.50")
	})

	t.Run("reduces reverse edge", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "A", "B", d("30")))
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("10")))
		assertEdge(t, l, g, "A", "B", "20")
	})

	t.Run("flips reverse edge", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "A", "B", d("30")))
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("45")))
		assertEdge(t, l, g, "B", "A", "15")
	})

	t.Run("zeroes reverse edge within tolerance", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "A", "B", d("30")))
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("29.995")))
		assert.Nil(t, edgeBetween(t, l, g, "A", "B"))
	})

	t.Run("creates edge for a single cent", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("0.01")))
		assertEdge(t, l, g, "B", "A", "0.01")
	})

	t.Run("accumulates repeated small splits", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		for i := 0; i < 100; i++ {
			require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("0.01")))
		}
		assertEdge(t, l, g, "B", "A", "1.00")
	})

	t.Run("skips payer's own share", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "A", "A", d("10")))
		edges, err := l.Snapshot(ctx, g)
		require.NoError(t, err)
		assert.Empty(t, edges)
		assert.Zero(t, l.Version(g))
	})

	t.Run("rejects negative delta", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		err := l.ApplySplit(ctx, g, "B", "A", d("-1"))
		assert.Equal(t, models.ReasonNonPositiveAmount, models.ReasonOf(err))
	})

	t.Run("unknown group", func(t *testing.T) {
		l, _, _ := setup(t, "A", "B")
		err := l.ApplySplit(ctx, "missing", "B", "A", d("1"))
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestApplySettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("full payment deletes edge", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("40.00")))
		assertEdge(t, l, g, "B", "A", "40")

		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("40.00")))
		assert.Nil(t, edgeBetween(t, l, g, "A", "B"))
	})

	t.Run("overpayment flips direction", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("40.00")))
		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("60.00")))
		assertEdge(t, l, g, "A", "B", "20")
	})

	t.Run("partial payment reduces edge", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("40.00")))
		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("15.25")))
		assertEdge(t, l, g, "B", "A", "24.75")
	})

	t.Run("payment within tolerance deletes edge", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("33.33")))
		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("33.34")))
		assert.Nil(t, edgeBetween(t, l, g, "A", "B"))
	})

	t.Run("payment against reverse edge deepens it", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "A", "B", d("10")))
		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("5")))
		assertEdge(t, l, g, "A", "B", "15")
	})

	t.Run("payment without prior debt leaves recipient owing payer", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("25")))
		assertEdge(t, l, g, "A", "B", "25")
	})

	t.Run("small payment without prior debt is kept", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("0.01")))
		assertEdge(t, l, g, "A", "B", "0.01")
	})

	t.Run("zero amount is a no-op", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		require.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("40")))
		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("40")))
		version := l.Version(g)

		require.NoError(t, l.ApplySettlement(ctx, g, "B", "A", decimal.Zero))
		assert.Nil(t, edgeBetween(t, l, g, "A", "B"))
		assert.Equal(t, version, l.Version(g))
	})

	t.Run("validation", func(t *testing.T) {
		l, _, g := setup(t, "A", "B")
		assert.Equal(t, models.ReasonSelfSettlement, models.ReasonOf(l.ApplySettlement(ctx, g, "A", "A", d("1"))))
		assert.Equal(t, models.ReasonNonPositiveAmount, models.ReasonOf(l.ApplySettlement(ctx, g, "B", "A", d("-1"))))
		assert.Equal(t, models.ReasonMissingField, models.ReasonOf(l.ApplySettlement(ctx, g, "", "A", d("1"))))
		assert.Equal(t, models.ReasonMissingField, models.ReasonOf(l.ApplySettlement(ctx, "", "B", "A", d("1"))))
	})
}

// TestSingleEdgeInvariant replays random mutations and compares the ledger against
// a signed running total per pair.
func TestSingleEdgeInvariant(t *testing.T) {
	ctx := context.Background()
	members := []string{"A", "B", "C", "D"}
	l, _, g := setup(t, members...)

	rng := rand.New(rand.NewSource(42))
	expected := make(map[storage.Pair]decimal.Decimal) // amount Lo owes Hi

	for i := 0; i < 300; i++ {
		a := members[rng.Intn(len(members))]
		b := members[rng.Intn(len(members))]
		if a == b {
			continue
		}
		amount := decimal.New(int64(rng.Intn(10000)), -2)
		pair := storage.NewPair(a, b)

		// signed is the change in what a owes b.
		signed := amount
		if rng.Intn(2) == 0 {
			require.NoError(t, l.ApplySplit(ctx, g, a, b, amount))
		} else {
			require.NoError(t, l.ApplySettlement(ctx, g, a, b, amount))
			signed = amount.Neg()
		}
		if a != pair.Lo {
			signed = signed.Neg()
		}
		prev := expected[pair]
		next := prev.Add(signed)
		if !prev.IsZero() && money.IsNegligible(next) {
			next = decimal.Zero
		}
		expected[pair] = next

		edges, err := l.Snapshot(ctx, g)
		require.NoError(t, err)
		seen := make(map[storage.Pair]bool)
		for _, e := range edges {
			p := storage.NewPair(e.DebtorID, e.CreditorID)
			require.False(t, seen[p], "both directions stored for %v", p)
			seen[p] = true
			require.True(t, e.Amount.IsPositive())
		}
	}

	edges, err := l.Snapshot(ctx, g)
	require.NoError(t, err)
	got := make(map[storage.Pair]decimal.Decimal)
	for _, e := range edges {
		p := storage.NewPair(e.DebtorID, e.CreditorID)
		if e.DebtorID == p.Lo {
			got[p] = e.Amount
		} else {
			got[p] = e.Amount.Neg()
		}
	}
	for pair, want := range expected {
		if want.IsZero() {
			_, ok := got[pair]
			assert.False(t, ok, "pair %v should be settled", pair)
			continue
		}
		assert.True(t, want.Equal(got[pair]), "pair %v: got %s, want %s", pair, got[pair], want)
	}
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	l, _, g := setup(t, "A", "B", "C")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.ApplySplit(ctx, g, "B", "A", d("2")))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, l.ApplySettlement(ctx, g, "B", "A", d("1")))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, l.ApplySplit(ctx, g, "C", "B", d("1")))
		}()
	}
	wg.Wait()

	assertEdge(t, l, g, "B", "A", "50")
	assertEdge(t, l, g, "C", "B", "50")
	assert.Equal(t, uint64(150), l.Version(g))
	assert.Zero(t, l.locks.size())
}

func TestSnapshot_UnknownGroup(t *testing.T) {
	l, _, _ := setup(t, "A")
	_, err := l.Snapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSnapshot_JoinsDisplayNames(t *testing.T) {
	ctx := context.Background()
	l, _, g := setup(t, "alice", "bob")
	require.NoError(t, l.ApplySplit(ctx, g, "bob", "alice", d("5")))

	edges, err := l.Snapshot(ctx, g)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "Member bob", edges[0].DebtorName)
	assert.Equal(t, "Member alice", edges[0].CreditorName)
}

// conflictStore fails the first n transactions with a concurrency conflict.
type conflictStore struct {
	storage.Store
	mu    sync.Mutex
	n     int
	calls int
}

func (s *conflictStore) InTx(ctx context.Context, groupID string, pairs []storage.Pair, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.n
	s.mu.Unlock()
	if fail {
		return models.ErrConcurrencyConflict
	}
	return s.Store.InTx(ctx, groupID, pairs, fn)
}

func TestConflictRetry(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	group := storagetest.NewGroup(t, base, "Retry", "A", "B")

	t.Run("retries until success", func(t *testing.T) {
		store := &conflictStore{Store: base, n: 2}
		reg := prometheus.NewRegistry()
		l := New(store, WithMaxRetries(3), WithMetrics(NewMetrics(reg)))
		l.backoff = 0

		require.NoError(t, l.ApplySplit(ctx, group.ID, "B", "A", d("10")))
		assert.Equal(t, 3, store.calls)
		assert.Equal(t, float64(2), testutil.ToFloat64(l.metrics.conflicts.WithLabelValues("split")))
		assert.Equal(t, float64(1), testutil.ToFloat64(l.metrics.mutations.WithLabelValues("split", "ok")))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		store := &conflictStore{Store: base, n: 10}
		l := New(store, WithMaxRetries(1))
		l.backoff = 0

		err := l.ApplySplit(ctx, group.ID, "B", "A", d("10"))
		assert.ErrorIs(t, err, models.ErrConcurrencyConflict)
		assert.Equal(t, 2, store.calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		store := &conflictStore{Store: base, n: 10}
		l := New(store)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := l.ApplySplit(cctx, group.ID, "B", "A", d("10"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// failingStore wraps transactions so that the nth UpsertEdge call fails.
type failingStore struct {
	storage.Store
	failOn int
}

type failingTx struct {
	storage.Tx
	upserts *int
	failOn  int
}

func (s *failingStore) InTx(ctx context.Context, groupID string, pairs []storage.Pair, fn func(tx storage.Tx) error) error {
	count := 0
	return s.Store.InTx(ctx, groupID, pairs, func(tx storage.Tx) error {
		return fn(&failingTx{Tx: tx, upserts: &count, failOn: s.failOn})
	})
}

func (tx *failingTx) UpsertEdge(ctx context.Context, debtor, creditor string, amount decimal.Decimal) error {
	*tx.upserts++
	if *tx.upserts == tx.failOn {
		return errors.New("disk full")
	}
	return tx.Tx.UpsertEdge(ctx, debtor, creditor, amount)
}

func TestRecordExpense_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	group := storagetest.NewGroup(t, base, "Atomic", "A", "B", "C")
	l := New(&failingStore{Store: base, failOn: 2})

	_, err := l.RecordExpense(ctx, ExpenseInput{
		GroupID:      group.ID,
		PaidBy:       "A",
		Amount:       d("90"),
		Participants: []string{"A", "B", "C"},
		Policy:       models.Equal(),
	})
	require.Error(t, err)

	edges, err := base.ListEdges(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
	expenses, err := base.ListExpensesByGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, expenses)
	assert.Zero(t, l.Version(group.ID))
}

func TestLedger_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	group := storagetest.NewGroup(t, store, "Flat", "A", "B", "C")
	l := New(store)

	_, err = l.RecordExpense(ctx, ExpenseInput{
		GroupID:      group.ID,
		PaidBy:       "A",
		Amount:       d("90"),
		Participants: []string{"A", "B", "C"},
		Policy:       models.Equal(),
	})
	require.NoError(t, err)
	require.NoError(t, l.ApplySettlement(ctx, group.ID, "B", "A", d("50")))

	assertEdge(t, l, group.ID, "A", "B", "20")
	assertEdge(t, l, group.ID, "C", "A", "30")
}
