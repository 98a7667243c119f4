package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

// CreateExpense inserts the expense and its splits.
func (t *sqliteTx) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	expense.GroupID = t.groupID

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, paid_by, description, amount, split_kind, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.PaidBy, expense.Description,
		expense.Amount.String(), string(expense.SplitKind), expense.CreatedAt, expense.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", classify(err))
	}

	for i, split := range expense.Splits {
		var pct decimal.NullDecimal
		if split.Percentage != nil {
			pct = decimal.NewNullDecimal(*split.Percentage)
		}
		_, err = t.tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, member_id, amount, percentage, position)
			 VALUES (?, ?, ?, ?, ?)`,
			expense.ID, split.MemberID, split.Amount.String(), pct, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense split: %w", classify(err))
		}
	}
	return nil
}

// ListExpensesByGroup retrieves the group's expenses with their splits, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, paid_by, description, amount, split_kind, created_at, created_by
		 FROM expenses WHERE group_id = ? ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		e := &models.Expense{}
		var kind string
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PaidBy, &e.Description, &e.Amount, &kind, &e.CreatedAt, &e.CreatedBy); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.SplitKind = models.SplitKind(kind)
		expenses = append(expenses, e)
		byID[e.ID] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	splitRows, err := s.db.QueryContext(ctx,
		`SELECT s.expense_id, s.member_id, s.amount, s.percentage
		 FROM expense_splits s JOIN expenses e ON e.id = s.expense_id
		 WHERE e.group_id = ?
		 ORDER BY s.expense_id, s.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID string
		var split models.ExpenseSplit
		var pct decimal.NullDecimal
		if err := splitRows.Scan(&expenseID, &split.MemberID, &split.Amount, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan expense split: %w", err)
		}
		if pct.Valid {
			p := pct.Decimal
			split.Percentage = &p
		}
		if e, ok := byID[expenseID]; ok {
			e.Splits = append(e.Splits, split)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense splits: %w", err)
	}
	return expenses, nil
}

// GetExpense retrieves one expense of the group with its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, groupID, expenseID string) (*models.Expense, error) {
	e := &models.Expense{}
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, paid_by, description, amount, split_kind, created_at, created_by
		 FROM expenses WHERE id = ? AND group_id = ?`,
		expenseID, groupID,
	).Scan(&e.ID, &e.GroupID, &e.PaidBy, &e.Description, &e.Amount, &kind, &e.CreatedAt, &e.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	e.SplitKind = models.SplitKind(kind)

	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, amount, percentage FROM expense_splits
		 WHERE expense_id = ? ORDER BY position`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.ExpenseSplit
		var pct decimal.NullDecimal
		if err := rows.Scan(&split.MemberID, &split.Amount, &pct); err != nil {
			return nil, fmt.Errorf("failed to scan expense split: %w", err)
		}
		if pct.Valid {
			p := pct.Decimal
			split.Percentage = &p
		}
		e.Splits = append(e.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense splits: %w", err)
	}
	return e, nil
}

// DeleteExpense removes the expense; its splits go with it through the foreign key.
func (t *sqliteTx) DeleteExpense(ctx context.Context, expenseID string) error {
	result, err := t.tx.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND group_id = ?", expenseID, t.groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	return nil
}
