package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mmynk/splitwiser/internal/models"
)

func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateGroup: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_at) VALUES ($1, $2, $3)",
		group.ID, group.Name, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("CreateGroup: insert group: %w", err)
	}
	if err := insertMembers(ctx, tx, group.ID, 0, group.Members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateGroup: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = $1", groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetGroup: %w", err)
	}

	members, err := s.membersByGroup(ctx, []string{groupID})
	if err != nil {
		return nil, err
	}
	group.Members = members[groupID]
	return group, nil
}

func (s *PostgresStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM groups ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("ListGroups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	var ids []string
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListGroups: scan: %w", err)
		}
		groups = append(groups, g)
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListGroups: rows: %w", err)
	}

	members, err := s.membersByGroup(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.Members = members[g.ID]
	}
	return groups, nil
}

func (s *PostgresStore) AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AddGroupMembers: begin: %w", err)
	}
	defer tx.Rollback()

	// Row lock on the group serializes concurrent member additions.
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = $1 FOR UPDATE", groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("AddGroupMembers: lock group: %w", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM group_members WHERE group_id = $1", groupID,
	).Scan(&next); err != nil {
		return fmt.Errorf("AddGroupMembers: next position: %w", err)
	}

	if err := insertMembers(ctx, tx, groupID, next, members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("AddGroupMembers: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = $1", groupID)
	if err != nil {
		return fmt.Errorf("DeleteGroup: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteGroup: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, groupID string, offset int, members []models.Member) error {
	for i, m := range members {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, member_id, display_name, position)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (group_id, member_id) DO NOTHING`,
			groupID, m.ID, m.DisplayName, offset+i,
		)
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) membersByGroup(ctx context.Context, groupIDs []string) (map[string][]models.Member, error) {
	members := make(map[string][]models.Member)
	if len(groupIDs) == 0 {
		return members, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, member_id, display_name FROM group_members
		 WHERE group_id = ANY($1) ORDER BY group_id, position`,
		pq.Array(groupIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID string
		var m models.Member
		if err := rows.Scan(&groupID, &m.ID, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members[groupID] = append(members[groupID], m)
	}
	return members, rows.Err()
}

// RemoveMember locks the membership row, then deletes it once no edge references the member.
func (t *pgTx) RemoveMember(ctx context.Context, memberID string) error {
	var exists int
	err := t.tx.QueryRowContext(ctx,
		"SELECT 1 FROM group_members WHERE group_id = $1 AND member_id = $2 FOR UPDATE",
		t.groupID, memberID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("member %s: %w", memberID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("RemoveMember: lock member: %w", classify(err))
	}

	var open int
	err = t.tx.QueryRowContext(ctx,
		`SELECT 1 FROM balances
		 WHERE group_id = $1 AND (member_lo = $2 OR member_hi = $2) LIMIT 1`,
		t.groupID, memberID,
	).Scan(&open)
	if err == nil {
		return fmt.Errorf("member %s: %w", memberID, models.ErrOutstandingBalance)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("RemoveMember: check balances: %w", classify(err))
	}

	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = $1 AND member_id = $2", t.groupID, memberID,
	); err != nil {
		return fmt.Errorf("RemoveMember: %w", classify(err))
	}
	return nil
}
