package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitwiser/internal/models"
)

const settlementColumns = `id, group_id, payer_id, payee_id, amount, created_at, created_by, note`

// AppendSettlementRecord inserts an immutable settlement record into the
// transaction's group. Records are never updated or deleted.
func (t *sqliteTx) AppendSettlementRecord(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	settlement.GroupID = t.groupID

	note := sql.NullString{String: settlement.Note, Valid: settlement.Note != ""}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO settlements (`+settlementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.PayerID, settlement.PayeeID,
		settlement.Amount.String(), settlement.CreatedAt, settlement.CreatedBy, note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", classify(err))
	}
	return nil
}

// ListSettlementsByGroup retrieves all settlements for a group, newest first.
// Records written in the same second keep their insertion order reversed.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements
		 WHERE group_id = ? ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

func scanSettlement(rows *sql.Rows) (*models.Settlement, error) {
	st := &models.Settlement{}
	var note sql.NullString
	if err := rows.Scan(&st.ID, &st.GroupID, &st.PayerID, &st.PayeeID,
		&st.Amount, &st.CreatedAt, &st.CreatedBy, &note); err != nil {
		return nil, fmt.Errorf("failed to scan settlement: %w", err)
	}
	st.Note = note.String
	return st, nil
}
