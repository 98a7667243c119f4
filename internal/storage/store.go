// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

// Store defines the persistence collaborator of the ledger.
// This abstraction allows swapping storage backends (memory, SQLite, PostgreSQL)
// without changing the ledger or the service layer.
type Store interface {
	// CreateGroup persists a new group with its members.
	// The group.ID and group.CreatedAt fields are populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group and its members.
	// Returns an error wrapping models.ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups retrieves all groups.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// AddGroupMembers adds members to a group; members already present are ignored.
	AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error

	// DeleteGroup removes a group with its edges, expenses and settlements.
	DeleteGroup(ctx context.Context, groupID string) error

	// ListEdges returns every stored edge of the group joined with member display names.
	ListEdges(ctx context.Context, groupID string) ([]models.Balance, error)

	// ListExpensesByGroup returns expenses with their splits, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// GetExpense returns one expense of the group with its splits.
	// Returns an error wrapping models.ErrNotFound if it does not exist in that group.
	GetExpense(ctx context.Context, groupID, expenseID string) (*models.Expense, error)

	// ListSettlementsByGroup returns settlement records, newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// InTx runs fn inside one transaction scoped to groupID. Every pair fn touches must
	// be listed in pairs: the store serializes transactions that share a pair, and either
	// every write made through tx is committed or none is.
	InTx(ctx context.Context, groupID string, pairs []Pair, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the per-transaction view of one group's ledger tables.
type Tx interface {
	// LoadEdge returns the single edge between a and b regardless of direction,
	// or nil when the pair is settled.
	LoadEdge(ctx context.Context, a, b string) (*models.Balance, error)

	// UpsertEdge creates or overwrites the pair's edge as debtor -> creditor,
	// replacing an edge stored in the opposite direction.
	UpsertEdge(ctx context.Context, debtor, creditor string, amount decimal.Decimal) error

	// DeleteEdge removes the pair's edge; it is a no-op when none exists.
	DeleteEdge(ctx context.Context, a, b string) error

	// AppendSettlementRecord appends an immutable settlement record.
	AppendSettlementRecord(ctx context.Context, settlement *models.Settlement) error

	// CreateExpense persists an expense and its splits.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes an expense and its splits.
	// It wraps models.ErrNotFound when the expense is not in the group.
	DeleteExpense(ctx context.Context, expenseID string) error

	// RemoveMember drops a member from the group. It wraps models.ErrNotFound for a
	// non-member and models.ErrOutstandingBalance while any edge references the member.
	RemoveMember(ctx context.Context, memberID string) error
}

// Pair is an unordered member pair in canonical (Lo < Hi) order.
type Pair struct {
	Lo string
	Hi string
}

// NewPair orders a and b canonically.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{Lo: a, Hi: b}
}

// Key identifies the pair inside a group.
func (p Pair) Key(groupID string) string {
	return groupID + "/" + p.Lo + "/" + p.Hi
}

// SortPairs dedupes pairs and sorts them so that locks are always taken in the same order.
func SortPairs(pairs []Pair) []Pair {
	seen := make(map[Pair]bool, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Lo == p.Hi || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lo != out[j].Lo {
			return out[i].Lo < out[j].Lo
		}
		return out[i].Hi < out[j].Hi
	})
	return out
}
