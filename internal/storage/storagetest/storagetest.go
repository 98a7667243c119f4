// Package storagetest holds behaviour checks shared by every storage.Store implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// NewGroup creates a group with the given member IDs; display names are "Member <id>".
func NewGroup(t *testing.T, store storage.Store, name string, memberIDs ...string) *models.Group {
	t.Helper()
	group := &models.Group{Name: name}
	for _, id := range memberIDs {
		group.Members = append(group.Members, models.Member{ID: id, DisplayName: "Member " + id})
	}
	require.NoError(t, store.CreateGroup(context.Background(), group))
	return group
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("CreateGroup generates ID and keeps members", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Roommates", "alice", "bob")

		assert.NotEmpty(t, group.ID)
		assert.NotZero(t, group.CreatedAt)

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, "Roommates", got.Name)
		require.Len(t, got.Members, 2)
		assert.Equal(t, "alice", got.Members[0].ID)
		assert.Equal(t, "Member bob", got.Members[1].DisplayName)
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetGroup(ctx, "nonexistent-id")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("AddGroupMembers ignores existing members", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Trip", "alice")

		err := store.AddGroupMembers(ctx, group.ID, []models.Member{
			{ID: "alice", DisplayName: "Alice again"},
			{ID: "carol", DisplayName: "Carol"},
		})
		require.NoError(t, err)

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "carol"}, got.MemberIDs())
		assert.Equal(t, "Member alice", got.Members[0].DisplayName)

		err = store.AddGroupMembers(ctx, "nonexistent-id", []models.Member{{ID: "x"}})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ListGroups returns every group", func(t *testing.T) {
		store := newStore(t)
		NewGroup(t, store, "One", "a")
		NewGroup(t, store, "Two", "b", "c")

		groups, err := store.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		names := []string{groups[0].Name, groups[1].Name}
		assert.ElementsMatch(t, []string{"One", "Two"}, names)
	})

	t.Run("edges keep a single direction per pair", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Flat", "alice", "bob")
		pairs := []storage.Pair{storage.NewPair("alice", "bob")}

		err := store.InTx(ctx, group.ID, pairs, func(tx storage.Tx) error {
			return tx.UpsertEdge(ctx, "bob", "alice", decimal.RequireFromString("40.00"))
		})
		require.NoError(t, err)

		err = store.InTx(ctx, group.ID, pairs, func(tx storage.Tx) error {
			edge, err := tx.LoadEdge(ctx, "alice", "bob")
			if err != nil {
				return err
			}
			require.NotNil(t, edge)
			assert.Equal(t, "bob", edge.DebtorID)
			assert.Equal(t, "40", edge.Amount.String())
			return tx.UpsertEdge(ctx, "alice", "bob", decimal.RequireFromString("20"))
		})
		require.NoError(t, err)

		edges, err := store.ListEdges(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, "alice", edges[0].DebtorID)
		assert.Equal(t, "bob", edges[0].CreditorID)
		assert.Equal(t, "20", edges[0].Amount.String())
		assert.Equal(t, "Member alice", edges[0].DebtorName)
		assert.Equal(t, "Member bob", edges[0].CreditorName)
		assert.Equal(t, group.ID, edges[0].GroupID)
	})

	t.Run("DeleteEdge removes the pair and is idempotent", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Flat", "alice", "bob")
		pairs := []storage.Pair{storage.NewPair("alice", "bob")}

		require.NoError(t, store.InTx(ctx, group.ID, pairs, func(tx storage.Tx) error {
			return tx.UpsertEdge(ctx, "bob", "alice", decimal.NewFromInt(5))
		}))
		for i := 0; i < 2; i++ {
			require.NoError(t, store.InTx(ctx, group.ID, pairs, func(tx storage.Tx) error {
				return tx.DeleteEdge(ctx, "alice", "bob")
			}))
		}

		edges, err := store.ListEdges(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, edges)
	})

	t.Run("failed transaction leaves no partial state", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Flat", "alice", "bob", "carol")
		boom := errors.New("boom")

		err := store.InTx(ctx, group.ID, []storage.Pair{storage.NewPair("alice", "bob"), storage.NewPair("alice", "carol")}, func(tx storage.Tx) error {
			if err := tx.UpsertEdge(ctx, "bob", "alice", decimal.NewFromInt(10)); err != nil {
				return err
			}
			if err := tx.AppendSettlementRecord(ctx, &models.Settlement{PayerID: "bob", PayeeID: "alice", Amount: decimal.NewFromInt(1)}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		edges, err := store.ListEdges(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, edges)
		records, err := store.ListSettlementsByGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("settlement records are listed newest first", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Flat", "alice", "bob")
		pairs := []storage.Pair{storage.NewPair("alice", "bob")}

		for i, amount := range []string{"10", "20"} {
			rec := &models.Settlement{
				PayerID:   "bob",
				PayeeID:   "alice",
				Amount:    decimal.RequireFromString(amount),
				CreatedAt: int64(1000 + i),
				CreatedBy: "bob",
				Note:      "cash",
			}
			require.NoError(t, store.InTx(ctx, group.ID, pairs, func(tx storage.Tx) error {
				return tx.AppendSettlementRecord(ctx, rec)
			}))
			assert.NotEmpty(t, rec.ID)
		}

		records, err := store.ListSettlementsByGroup(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "20", records[0].Amount.String())
		assert.Equal(t, "10", records[1].Amount.String())
		assert.Equal(t, "cash", records[1].Note)
		assert.Equal(t, group.ID, records[1].GroupID)
		assert.Equal(t, "bob", records[1].PayerID)
		assert.Equal(t, "alice", records[1].PayeeID)
	})

	t.Run("expenses round trip with splits", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Trip", "alice", "bob")
		pct := decimal.NewFromInt(60)
		pct2 := decimal.NewFromInt(40)

		expense := &models.Expense{
			PaidBy:      "alice",
			Description: "Dinner",
			Amount:      decimal.RequireFromString("100.00"),
			SplitKind:   models.SplitPercentage,
			Splits: []models.ExpenseSplit{
				{MemberID: "alice", Amount: decimal.RequireFromString("60"), Percentage: &pct},
				{MemberID: "bob", Amount: decimal.RequireFromString("40"), Percentage: &pct2},
			},
			CreatedBy: "alice",
		}
		require.NoError(t, store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
			return tx.CreateExpense(ctx, expense)
		}))
		assert.NotEmpty(t, expense.ID)
		assert.NotZero(t, expense.CreatedAt)

		expenses, err := store.ListExpensesByGroup(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		got := expenses[0]
		assert.Equal(t, "Dinner", got.Description)
		assert.Equal(t, models.SplitPercentage, got.SplitKind)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
		require.Len(t, got.Splits, 2)
		assert.Equal(t, "alice", got.Splits[0].MemberID)
		require.NotNil(t, got.Splits[1].Percentage)
		assert.True(t, got.Splits[1].Percentage.Equal(pct2))
	})

	t.Run("GetExpense and DeleteExpense", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Trip", "alice", "bob")
		other := NewGroup(t, store, "Other", "alice")

		expense := &models.Expense{
			PaidBy:    "alice",
			Amount:    decimal.NewFromInt(10),
			SplitKind: models.SplitEqual,
			Splits: []models.ExpenseSplit{
				{MemberID: "alice", Amount: decimal.NewFromInt(5)},
				{MemberID: "bob", Amount: decimal.NewFromInt(5)},
			},
		}
		require.NoError(t, store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
			return tx.CreateExpense(ctx, expense)
		}))

		got, err := store.GetExpense(ctx, group.ID, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.PaidBy)
		require.Len(t, got.Splits, 2)
		assert.Equal(t, "bob", got.Splits[1].MemberID)

		_, err = store.GetExpense(ctx, other.ID, expense.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		err = store.InTx(ctx, other.ID, nil, func(tx storage.Tx) error {
			return tx.DeleteExpense(ctx, expense.ID)
		})
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
			return tx.DeleteExpense(ctx, expense.ID)
		}))
		_, err = store.GetExpense(ctx, group.ID, expense.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		expenses, err := store.ListExpensesByGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, expenses)

		err = store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
			return tx.DeleteExpense(ctx, expense.ID)
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("RemoveMember refuses members with edges", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Flat", "alice", "bob", "carol")
		pair := storage.NewPair("alice", "bob")
		require.NoError(t, store.InTx(ctx, group.ID, []storage.Pair{pair}, func(tx storage.Tx) error {
			return tx.UpsertEdge(ctx, "bob", "alice", decimal.NewFromInt(7))
		}))

		err := store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
			return tx.RemoveMember(ctx, "bob")
		})
		assert.ErrorIs(t, err, models.ErrOutstandingBalance)

		err = store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
			return tx.RemoveMember(ctx, "dave")
		})
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, store.InTx(ctx, group.ID, nil, func(tx storage.Tx) error {
			return tx.RemoveMember(ctx, "carol")
		}))
		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, got.MemberIDs())

		// Settling in the same transaction makes the removal legal.
		require.NoError(t, store.InTx(ctx, group.ID, []storage.Pair{pair}, func(tx storage.Tx) error {
			if err := tx.DeleteEdge(ctx, "alice", "bob"); err != nil {
				return err
			}
			return tx.RemoveMember(ctx, "bob")
		}))
		got, err = store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, got.MemberIDs())

		// A member added back goes to the end of the join order.
		require.NoError(t, store.AddGroupMembers(ctx, group.ID, []models.Member{{ID: "carol", DisplayName: "Carol"}}))
		got, err = store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "carol"}, got.MemberIDs())
	})

	t.Run("InTx on unknown group returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		err := store.InTx(ctx, "nonexistent-id", nil, func(tx storage.Tx) error { return nil })
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("DeleteGroup removes ledger state", func(t *testing.T) {
		store := newStore(t)
		group := NewGroup(t, store, "Old", "alice", "bob")
		require.NoError(t, store.InTx(ctx, group.ID, []storage.Pair{storage.NewPair("alice", "bob")}, func(tx storage.Tx) error {
			return tx.UpsertEdge(ctx, "alice", "bob", decimal.NewFromInt(3))
		}))

		require.NoError(t, store.DeleteGroup(ctx, group.ID))

		_, err := store.GetGroup(ctx, group.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		edges, err := store.ListEdges(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, edges)
		assert.ErrorIs(t, store.DeleteGroup(ctx, group.ID), models.ErrNotFound)
	})
}
