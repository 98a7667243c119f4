package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

// ListEdges returns every edge of the group joined with member display names.
func (s *SQLiteStore) ListEdges(ctx context.Context, groupID string) ([]models.Balance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.debtor_id, b.creditor_id, b.amount, b.updated_at,
		        COALESCE(d.display_name, ''), COALESCE(c.display_name, '')
		 FROM balances b
		 LEFT JOIN group_members d ON d.group_id = b.group_id AND d.member_id = b.debtor_id
		 LEFT JOIN group_members c ON c.group_id = b.group_id AND c.member_id = b.creditor_id
		 WHERE b.group_id = ?
		 ORDER BY b.member_lo, b.member_hi`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	var edges []models.Balance
	for rows.Next() {
		b := models.Balance{GroupID: groupID}
		if err := rows.Scan(&b.DebtorID, &b.CreditorID, &b.Amount, &b.UpdatedAt, &b.DebtorName, &b.CreditorName); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}
	return edges, nil
}

func (t *sqliteTx) LoadEdge(ctx context.Context, a, b string) (*models.Balance, error) {
	pair := storage.NewPair(a, b)
	edge := &models.Balance{GroupID: t.groupID}
	err := t.tx.QueryRowContext(ctx,
		`SELECT debtor_id, creditor_id, amount, updated_at FROM balances
		 WHERE group_id = ? AND member_lo = ? AND member_hi = ?`,
		t.groupID, pair.Lo, pair.Hi,
	).Scan(&edge.DebtorID, &edge.CreditorID, &edge.Amount, &edge.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load edge: %w", classify(err))
	}
	return edge, nil
}

func (t *sqliteTx) UpsertEdge(ctx context.Context, debtor, creditor string, amount decimal.Decimal) error {
	if debtor == creditor {
		return fmt.Errorf("refusing self edge for %s", debtor)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("refusing non-positive edge amount %s", amount)
	}
	pair := storage.NewPair(debtor, creditor)
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO balances (group_id, member_lo, member_hi, debtor_id, creditor_id, amount, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (group_id, member_lo, member_hi) DO UPDATE SET
		     debtor_id = excluded.debtor_id,
		     creditor_id = excluded.creditor_id,
		     amount = excluded.amount,
		     updated_at = excluded.updated_at`,
		t.groupID, pair.Lo, pair.Hi, debtor, creditor, amount.String(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", classify(err))
	}
	return nil
}

func (t *sqliteTx) DeleteEdge(ctx context.Context, a, b string) error {
	pair := storage.NewPair(a, b)
	_, err := t.tx.ExecContext(ctx,
		"DELETE FROM balances WHERE group_id = ? AND member_lo = ? AND member_hi = ?",
		t.groupID, pair.Lo, pair.Hi,
	)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", classify(err))
	}
	return nil
}
