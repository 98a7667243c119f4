package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// ExpenseInput describes an expense to record.
type ExpenseInput struct {
	GroupID     string
	PaidBy      string
	Description string
	Amount      decimal.Decimal
	// Participants share the expense; the payer may be one of them.
	Participants []string
	Policy       models.SplitPolicy
	CreatedBy    string
}

// SettlementInput describes a payment from one member to another.
type SettlementInput struct {
	GroupID   string
	From      string
	To        string
	Amount    decimal.Decimal
	Note      string
	CreatedBy string
}

// RecordExpense computes the splits, stores the expense and applies every split to the
// ledger in one transaction. Either all of it is committed or none of it is.
func (l *Ledger) RecordExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	if err := requireFields(in.GroupID, in.PaidBy); err != nil {
		return nil, err
	}

	group, err := l.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(in.PaidBy) {
		return nil, fmt.Errorf("payer %s in group %s: %w", in.PaidBy, in.GroupID, models.ErrNotFound)
	}
	for _, p := range in.Participants {
		if p != "" && !group.HasMember(p) {
			return nil, fmt.Errorf("participant %s in group %s: %w", p, in.GroupID, models.ErrNotFound)
		}
	}

	policy := in.Policy
	if l.remainderToPayer && policy.Kind == models.SplitEqual && policy.RemainderTo == "" && contains(in.Participants, in.PaidBy) {
		policy.RemainderTo = in.PaidBy
	}
	splits, err := calculator.ComputeSplits(in.Amount, policy, in.Participants)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		PaidBy:      in.PaidBy,
		Description: in.Description,
		Amount:      in.Amount,
		SplitKind:   policy.Kind,
		Splits:      splits,
		CreatedBy:   in.CreatedBy,
	}

	var pairs []storage.Pair
	for _, s := range splits {
		pairs = append(pairs, storage.NewPair(s.MemberID, in.PaidBy))
	}

	err = l.mutate(ctx, "expense", in.GroupID, pairs, func(ctx context.Context, tx storage.Tx) error {
		// Reset on retry so the store assigns fresh identifiers.
		expense.ID, expense.CreatedAt = "", 0
		if err := tx.CreateExpense(ctx, expense); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}
		for _, s := range splits {
			if s.MemberID == in.PaidBy || s.Amount.IsZero() {
				continue
			}
			if err := l.shift(ctx, tx, in.GroupID, s.MemberID, in.PaidBy, s.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log(ctx).Info("expense recorded",
		"group_id", in.GroupID, "expense_id", expense.ID, "paid_by", in.PaidBy,
		"amount", in.Amount.String(), "split_kind", policy.Kind, "participants", len(splits))
	return expense, nil
}

// RecordSettlement appends the settlement record and applies it to the ledger in one
// transaction. Both parties must be members of the group.
func (l *Ledger) RecordSettlement(ctx context.Context, in SettlementInput) (*models.Settlement, error) {
	if err := validateSettlement(in.GroupID, in.From, in.To, in.Amount); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, models.Invalid(models.ReasonNonPositiveAmount, "settlement amount must be positive")
	}

	group, err := l.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	for _, m := range []string{in.From, in.To} {
		if !group.HasMember(m) {
			return nil, fmt.Errorf("member %s in group %s: %w", m, in.GroupID, models.ErrNotFound)
		}
	}

	settlement := &models.Settlement{
		GroupID:   in.GroupID,
		PayerID:   in.From,
		PayeeID:   in.To,
		Amount:    in.Amount,
		CreatedBy: in.CreatedBy,
		Note:      in.Note,
	}

	pair := storage.NewPair(in.From, in.To)
	err = l.mutate(ctx, "settlement", in.GroupID, []storage.Pair{pair}, func(ctx context.Context, tx storage.Tx) error {
		settlement.ID, settlement.CreatedAt = "", 0
		if err := tx.AppendSettlementRecord(ctx, settlement); err != nil {
			return fmt.Errorf("failed to append settlement: %w", err)
		}
		return l.shift(ctx, tx, in.GroupID, in.From, in.To, in.Amount.Neg())
	})
	if err != nil {
		return nil, err
	}

	l.log(ctx).Info("settlement recorded",
		"group_id", in.GroupID, "settlement_id", settlement.ID,
		"from", in.From, "to", in.To, "amount", in.Amount.String())
	return settlement, nil
}

// DeleteExpense removes an expense and takes its splits back off the ledger in one
// transaction. A concurrent delete of the same expense finds it gone and changes nothing.
func (l *Ledger) DeleteExpense(ctx context.Context, groupID, expenseID string) (*models.Expense, error) {
	if err := requireFields(groupID); err != nil {
		return nil, err
	}
	if expenseID == "" {
		return nil, models.Invalid(models.ReasonMissingField, "expense_id is required")
	}

	expense, err := l.store.GetExpense(ctx, groupID, expenseID)
	if err != nil {
		return nil, err
	}

	var pairs []storage.Pair
	for _, s := range expense.Splits {
		pairs = append(pairs, storage.NewPair(s.MemberID, expense.PaidBy))
	}

	err = l.mutate(ctx, "delete_expense", groupID, pairs, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.DeleteExpense(ctx, expense.ID); err != nil {
			return err
		}
		for _, s := range expense.Splits {
			if s.MemberID == expense.PaidBy || s.Amount.IsZero() {
				continue
			}
			if err := l.shift(ctx, tx, groupID, s.MemberID, expense.PaidBy, s.Amount.Neg()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log(ctx).Info("expense deleted",
		"group_id", groupID, "expense_id", expense.ID, "paid_by", expense.PaidBy,
		"amount", expense.Amount.String())
	return expense, nil
}

// RemoveMember drops a settled-up member from the group. Every pair the member forms
// with the rest of the group is locked, so no split or settlement can open a new edge
// for them while the removal commits.
func (l *Ledger) RemoveMember(ctx context.Context, groupID, memberID string) error {
	if err := requireFields(groupID, memberID); err != nil {
		return err
	}

	group, err := l.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(memberID) {
		return fmt.Errorf("member %s in group %s: %w", memberID, groupID, models.ErrNotFound)
	}

	var pairs []storage.Pair
	for _, other := range group.MemberIDs() {
		pairs = append(pairs, storage.NewPair(memberID, other))
	}

	err = l.mutate(ctx, "remove_member", groupID, pairs, func(ctx context.Context, tx storage.Tx) error {
		return tx.RemoveMember(ctx, memberID)
	})
	if err != nil {
		return err
	}

	l.log(ctx).Info("member removed", "group_id", groupID, "member_id", memberID)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
