package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

func (t *pgTx) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	expense.GroupID = t.groupID

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, paid_by, description, amount, split_kind, created_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		expense.ID, expense.GroupID, expense.PaidBy, expense.Description,
		expense.Amount, string(expense.SplitKind), expense.CreatedAt, expense.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("CreateExpense: %w", classify(err))
	}

	for i, split := range expense.Splits {
		var pct decimal.NullDecimal
		if split.Percentage != nil {
			pct = decimal.NewNullDecimal(*split.Percentage)
		}
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, member_id, amount, percentage, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			expense.ID, split.MemberID, split.Amount, pct, i,
		)
		if err != nil {
			return fmt.Errorf("CreateExpense: split %s: %w", split.MemberID, classify(err))
		}
	}
	return nil
}

func (t *pgTx) AppendSettlementRecord(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	settlement.GroupID = t.groupID

	var note sql.NullString
	if settlement.Note != "" {
		note = sql.NullString{String: settlement.Note, Valid: true}
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, payer_id, payee_id, amount, created_at, created_by, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		settlement.ID, settlement.GroupID, settlement.PayerID, settlement.PayeeID,
		settlement.Amount, settlement.CreatedAt, settlement.CreatedBy, note,
	)
	if err != nil {
		return fmt.Errorf("AppendSettlementRecord: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, paid_by, description, amount, split_kind, created_at, created_by
		 FROM expenses WHERE group_id = $1 ORDER BY created_at DESC, seq DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListExpensesByGroup: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	var ids []string
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		e := &models.Expense{}
		var kind string
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PaidBy, &e.Description, &e.Amount, &kind, &e.CreatedAt, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("ListExpensesByGroup: scan: %w", err)
		}
		e.SplitKind = models.SplitKind(kind)
		expenses = append(expenses, e)
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListExpensesByGroup: rows: %w", err)
	}
	if len(ids) == 0 {
		return expenses, nil
	}

	splitRows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, member_id, amount, percentage FROM expense_splits
		 WHERE expense_id = ANY($1) ORDER BY expense_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("ListExpensesByGroup: splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID string
		var split models.ExpenseSplit
		var pct decimal.NullDecimal
		if err := splitRows.Scan(&expenseID, &split.MemberID, &split.Amount, &pct); err != nil {
			return nil, fmt.Errorf("ListExpensesByGroup: scan split: %w", err)
		}
		if pct.Valid {
			p := pct.Decimal
			split.Percentage = &p
		}
		byID[expenseID].Splits = append(byID[expenseID].Splits, split)
	}
	return expenses, splitRows.Err()
}

func (s *PostgresStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer_id, payee_id, amount, created_at, created_by, note
		 FROM settlements WHERE group_id = $1 ORDER BY created_at DESC, seq DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListSettlementsByGroup: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		st := &models.Settlement{}
		var note sql.NullString
		if err := rows.Scan(&st.ID, &st.GroupID, &st.PayerID, &st.PayeeID,
			&st.Amount, &st.CreatedAt, &st.CreatedBy, &note); err != nil {
			return nil, fmt.Errorf("ListSettlementsByGroup: scan: %w", err)
		}
		st.Note = note.String
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

func (s *PostgresStore) GetExpense(ctx context.Context, groupID, expenseID string) (*models.Expense, error) {
	e := &models.Expense{}
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, paid_by, description, amount, split_kind, created_at, created_by
		 FROM expenses WHERE id = $1 AND group_id = $2`,
		expenseID, groupID,
	).Scan(&e.ID, &e.GroupID, &e.PaidBy, &e.Description, &e.Amount, &kind, &e.CreatedAt, &e.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetExpense: %w", err)
	}
	e.SplitKind = models.SplitKind(kind)

	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, amount, percentage FROM expense_splits
		 WHERE expense_id = $1 ORDER BY position`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetExpense: splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.ExpenseSplit
		var pct decimal.NullDecimal
		if err := rows.Scan(&split.MemberID, &split.Amount, &pct); err != nil {
			return nil, fmt.Errorf("GetExpense: scan split: %w", err)
		}
		if pct.Valid {
			p := pct.Decimal
			split.Percentage = &p
		}
		e.Splits = append(e.Splits, split)
	}
	return e, rows.Err()
}

func (t *pgTx) DeleteExpense(ctx context.Context, expenseID string) error {
	result, err := t.tx.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = $1 AND group_id = $2", expenseID, t.groupID,
	)
	if err != nil {
		return fmt.Errorf("DeleteExpense: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteExpense: rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	return nil
}
