// Package ledger maintains the pairwise net debts of each group.
//
// Every mutation is a signed shift of the amount one member owes another. The shift
// is applied inside a store transaction that covers the affected pairs; the result is
// normalized so that a pair has at most one edge, its amount is strictly positive and
// an existing edge brought within money.Tolerance of zero is removed.
//
// Writers on the same pair are serialized by an in-process lock per pair and again by
// the store's transaction boundary across processes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/money"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/pkg/logging"
)

const defaultMaxRetries = 3

// Ledger applies split and settlement mutations to a storage.Store.
type Ledger struct {
	store      storage.Store
	locks      *pairLocks
	notifier   *Notifier
	metrics    *Metrics
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration

	// remainderToPayer assigns the equal-split residual to the payer when set.
	remainderToPayer bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxRetries bounds how often a transaction is retried on models.ErrConcurrencyConflict.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithMetrics records mutation counters and timings.
func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithNotifier shares a notifier between ledgers.
func WithNotifier(n *Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithRemainderToPayer assigns the rounding residual of equal splits to the payer
// when the payer participates in the expense.
func WithRemainderToPayer(enabled bool) Option {
	return func(l *Ledger) { l.remainderToPayer = enabled }
}

// New creates a Ledger over store.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		locks:      newPairLocks(),
		maxRetries: defaultMaxRetries,
		backoff:    5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.notifier == nil {
		l.notifier = NewNotifier()
	}
	return l
}

// ApplySplit records that debtor owes creditor a further delta.
// A debtor equal to the creditor is the payer's own share and is skipped.
func (l *Ledger) ApplySplit(ctx context.Context, groupID, debtor, creditor string, delta decimal.Decimal) error {
	if err := requireFields(groupID, debtor, creditor); err != nil {
		return err
	}
	if delta.IsNegative() {
		return models.Invalid(models.ReasonNonPositiveAmount, "split amount must not be negative, got %s", delta)
	}
	if debtor == creditor || delta.IsZero() {
		return nil
	}

	pair := storage.NewPair(debtor, creditor)
	return l.mutate(ctx, "split", groupID, []storage.Pair{pair}, func(ctx context.Context, tx storage.Tx) error {
		return l.shift(ctx, tx, groupID, debtor, creditor, delta)
	})
}

// ApplySettlement records that from paid to amount. A zero amount is a no-op.
//
// The debt from owes to shrinks by amount; an overpayment flips the edge, a payment
// against a reverse edge deepens it, and a payment with no prior edge leaves to owing from.
func (l *Ledger) ApplySettlement(ctx context.Context, groupID, from, to string, amount decimal.Decimal) error {
	if err := validateSettlement(groupID, from, to, amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}

	pair := storage.NewPair(from, to)
	return l.mutate(ctx, "settlement", groupID, []storage.Pair{pair}, func(ctx context.Context, tx storage.Tx) error {
		return l.shift(ctx, tx, groupID, from, to, amount.Neg())
	})
}

// Snapshot returns every non-zero edge of the group with member display names.
func (l *Ledger) Snapshot(ctx context.Context, groupID string) ([]models.Balance, error) {
	if _, err := l.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	edges, err := l.store.ListEdges(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}

	seen := make(map[storage.Pair]bool, len(edges))
	for _, e := range edges {
		p := storage.NewPair(e.DebtorID, e.CreditorID)
		if seen[p] {
			l.log(ctx).Error("both directions stored for pair",
				"group_id", groupID, "member_a", p.Lo, "member_b", p.Hi)
			return nil, fmt.Errorf("pair %s/%s: %w", p.Lo, p.Hi, models.ErrInvariantViolation)
		}
		seen[p] = true
	}
	return edges, nil
}

// Version returns the group's mutation counter.
func (l *Ledger) Version(groupID string) uint64 {
	return l.notifier.Version(groupID)
}

// Subscribe delivers the group's version after every committed mutation.
// Slow subscribers miss intermediate versions but always see the latest one.
func (l *Ledger) Subscribe(groupID string) (<-chan uint64, func()) {
	return l.notifier.Subscribe(groupID)
}

// shift adds delta to what debtor owes creditor and stores the normalized result.
func (l *Ledger) shift(ctx context.Context, tx storage.Tx, groupID, debtor, creditor string, delta decimal.Decimal) error {
	edge, err := tx.LoadEdge(ctx, debtor, creditor)
	if err != nil {
		return fmt.Errorf("failed to load edge: %w", err)
	}

	owed := decimal.Zero
	if edge != nil {
		switch {
		case edge.DebtorID == debtor && edge.CreditorID == creditor:
			owed = edge.Amount
		case edge.DebtorID == creditor && edge.CreditorID == debtor:
			owed = edge.Amount.Neg()
		default:
			l.log(ctx).Error("loaded edge does not match pair",
				"group_id", groupID, "debtor", debtor, "creditor", creditor,
				"edge_debtor", edge.DebtorID, "edge_creditor", edge.CreditorID)
			return fmt.Errorf("edge %s->%s for pair %s/%s: %w",
				edge.DebtorID, edge.CreditorID, debtor, creditor, models.ErrInvariantViolation)
		}
		if !edge.Amount.IsPositive() {
			l.log(ctx).Error("stored edge is not positive",
				"group_id", groupID, "debtor", edge.DebtorID, "creditor", edge.CreditorID, "amount", edge.Amount)
			return fmt.Errorf("edge %s->%s amount %s: %w",
				edge.DebtorID, edge.CreditorID, edge.Amount, models.ErrInvariantViolation)
		}
	}

	next := owed.Add(delta)
	logger := l.log(ctx).With("group_id", groupID, "debtor", debtor, "creditor", creditor,
		"before", owed.String(), "after", next.String())

	// Only an existing edge is cleared by the tolerance; a new debt is stored as is.
	switch {
	case edge != nil && money.IsNegligible(next):
		logger.Debug("edge settled")
		return tx.DeleteEdge(ctx, debtor, creditor)
	case next.IsPositive():
		logger.Debug("edge updated")
		return tx.UpsertEdge(ctx, debtor, creditor, next)
	case next.IsNegative():
		logger.Debug("edge reversed")
		return tx.UpsertEdge(ctx, creditor, debtor, next.Neg())
	default:
		return nil
	}
}

// mutate runs fn in a store transaction under the pair locks, retrying conflicts.
func (l *Ledger) mutate(ctx context.Context, op, groupID string, pairs []storage.Pair, fn func(ctx context.Context, tx storage.Tx) error) error {
	start := time.Now()
	pairs = storage.SortPairs(pairs)

	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key(groupID)
	}
	unlock := l.locks.lock(keys)
	defer unlock()

	var err error
	for attempt := 0; ; attempt++ {
		err = l.store.InTx(ctx, groupID, pairs, func(tx storage.Tx) error {
			return fn(ctx, tx)
		})
		if err == nil || !errors.Is(err, models.ErrConcurrencyConflict) || attempt >= l.maxRetries {
			break
		}
		l.metrics.conflict(op)
		l.log(ctx).Warn("ledger conflict, retrying",
			"op", op, "group_id", groupID, "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			l.metrics.observe(op, ctx.Err(), time.Since(start))
			return ctx.Err()
		case <-time.After(l.backoff * time.Duration(attempt+1)):
		}
	}

	l.metrics.observe(op, err, time.Since(start))
	if err != nil {
		return err
	}
	l.notifier.Bump(groupID)
	return nil
}

func (l *Ledger) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, l.logger)
}

func requireFields(groupID string, members ...string) error {
	if groupID == "" {
		return models.Invalid(models.ReasonMissingField, "group_id is required")
	}
	for _, m := range members {
		if m == "" {
			return models.Invalid(models.ReasonMissingField, "member id is required")
		}
	}
	return nil
}

func validateSettlement(groupID, from, to string, amount decimal.Decimal) error {
	if err := requireFields(groupID, from, to); err != nil {
		return err
	}
	if from == to {
		return models.Invalid(models.ReasonSelfSettlement, "cannot settle with yourself")
	}
	if amount.IsNegative() {
		return models.Invalid(models.ReasonNonPositiveAmount, "settlement amount must not be negative, got %s", amount)
	}
	return nil
}
