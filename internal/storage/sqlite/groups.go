package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitwiser/internal/models"
)

// CreateGroup inserts a group and its members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)",
		group.ID, group.Name, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group.ID, 0, group.Members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.membersByGroup(ctx, "WHERE group_id = ?", groupID)
	if err != nil {
		return nil, err
	}
	group.Members = members[groupID]
	return group, nil
}

// ListGroups retrieves all groups, newest first.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM groups ORDER BY created_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	// The single pooled connection must be released before the next query.
	members, err := s.membersByGroup(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.Members = members[g.ID]
	}
	return groups, nil
}

// AddGroupMembers inserts members that are not yet in the group.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM group_members WHERE group_id = ?", groupID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to get next member position: %w", err)
	}

	if err := insertMembers(ctx, tx, groupID, next, members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// DeleteGroup removes a group; foreign keys cascade to its ledger tables.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	return nil
}

// insertMembers adds members starting at position offset; duplicates are ignored.
func insertMembers(ctx context.Context, tx *sql.Tx, groupID string, offset int, members []models.Member) error {
	for i, m := range members {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, member_id, display_name, position)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (group_id, member_id) DO NOTHING`,
			groupID, m.ID, m.DisplayName, offset+i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

// membersByGroup loads members keyed by group ID, in join order.
func (s *SQLiteStore) membersByGroup(ctx context.Context, where string, args ...any) (map[string][]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, member_id, display_name FROM group_members "+where+" ORDER BY group_id, position",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]models.Member)
	for rows.Next() {
		var groupID string
		var m models.Member
		if err := rows.Scan(&groupID, &m.ID, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members[groupID] = append(members[groupID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// RemoveMember deletes the membership row once no edge references the member.
func (t *sqliteTx) RemoveMember(ctx context.Context, memberID string) error {
	var open int
	err := t.tx.QueryRowContext(ctx,
		`SELECT 1 FROM balances
		 WHERE group_id = ? AND (member_lo = ? OR member_hi = ?) LIMIT 1`,
		t.groupID, memberID, memberID,
	).Scan(&open)
	if err == nil {
		return fmt.Errorf("member %s: %w", memberID, models.ErrOutstandingBalance)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check member balances: %w", classify(err))
	}

	result, err := t.tx.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND member_id = ?", t.groupID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}
	return nil
}
