package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

func (s *PostgresStore) ListEdges(ctx context.Context, groupID string) ([]models.Balance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.debtor_id, b.creditor_id, b.amount, b.updated_at,
		        COALESCE(d.display_name, ''), COALESCE(c.display_name, '')
		 FROM balances b
		 LEFT JOIN group_members d ON d.group_id = b.group_id AND d.member_id = b.debtor_id
		 LEFT JOIN group_members c ON c.group_id = b.group_id AND c.member_id = b.creditor_id
		 WHERE b.group_id = $1
		 ORDER BY b.member_lo, b.member_hi`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListEdges: %w", err)
	}
	defer rows.Close()

	var edges []models.Balance
	for rows.Next() {
		b := models.Balance{GroupID: groupID}
		if err := rows.Scan(&b.DebtorID, &b.CreditorID, &b.Amount, &b.UpdatedAt, &b.DebtorName, &b.CreditorName); err != nil {
			return nil, fmt.Errorf("ListEdges: scan: %w", err)
		}
		edges = append(edges, b)
	}
	return edges, rows.Err()
}

func (t *pgTx) LoadEdge(ctx context.Context, a, b string) (*models.Balance, error) {
	pair := storage.NewPair(a, b)
	edge := &models.Balance{GroupID: t.groupID}
	err := t.tx.QueryRowContext(ctx,
		`SELECT debtor_id, creditor_id, amount, updated_at FROM balances
		 WHERE group_id = $1 AND member_lo = $2 AND member_hi = $3
		 FOR UPDATE`,
		t.groupID, pair.Lo, pair.Hi,
	).Scan(&edge.DebtorID, &edge.CreditorID, &edge.Amount, &edge.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LoadEdge: %w", classify(err))
	}
	return edge, nil
}

func (t *pgTx) UpsertEdge(ctx context.Context, debtor, creditor string, amount decimal.Decimal) error {
	if debtor == creditor {
		return fmt.Errorf("UpsertEdge: refusing self edge for %s", debtor)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("UpsertEdge: refusing non-positive amount %s", amount)
	}
	pair := storage.NewPair(debtor, creditor)
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO balances (group_id, member_lo, member_hi, debtor_id, creditor_id, amount, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (group_id, member_lo, member_hi) DO UPDATE SET
		     debtor_id = EXCLUDED.debtor_id,
		     creditor_id = EXCLUDED.creditor_id,
		     amount = EXCLUDED.amount,
		     updated_at = EXCLUDED.updated_at`,
		t.groupID, pair.Lo, pair.Hi, debtor, creditor, amount, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("UpsertEdge: %w", classify(err))
	}
	return nil
}

func (t *pgTx) DeleteEdge(ctx context.Context, a, b string) error {
	pair := storage.NewPair(a, b)
	_, err := t.tx.ExecContext(ctx,
		"DELETE FROM balances WHERE group_id = $1 AND member_lo = $2 AND member_hi = $3",
		t.groupID, pair.Lo, pair.Hi,
	)
	if err != nil {
		return fmt.Errorf("DeleteEdge: %w", classify(err))
	}
	return nil
}
