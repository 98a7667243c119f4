package postgres

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id)
);

CREATE TABLE IF NOT EXISTS balances (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    member_lo TEXT NOT NULL,
    member_hi TEXT NOT NULL,
    debtor_id TEXT NOT NULL,
    creditor_id TEXT NOT NULL,
    amount NUMERIC(18, 6) NOT NULL CHECK (amount > 0),
    updated_at BIGINT NOT NULL,
    PRIMARY KEY (group_id, member_lo, member_hi),
    CHECK (member_lo < member_hi),
    CHECK (debtor_id <> creditor_id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    paid_by TEXT NOT NULL,
    description TEXT NOT NULL,
    amount NUMERIC(18, 6) NOT NULL,
    split_kind TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    created_by TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    amount NUMERIC(18, 6) NOT NULL,
    percentage NUMERIC(9, 6),
    position INTEGER NOT NULL,
    PRIMARY KEY (expense_id, member_id)
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    payer_id TEXT NOT NULL,
    payee_id TEXT NOT NULL,
    amount NUMERIC(18, 6) NOT NULL,
    created_at BIGINT NOT NULL,
    created_by TEXT NOT NULL,
    note TEXT
);

CREATE INDEX IF NOT EXISTS idx_balances_group_id ON balances(group_id);
CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);
CREATE INDEX IF NOT EXISTS idx_settlements_group_id ON settlements(group_id);
`

func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
