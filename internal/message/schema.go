package message

import (
	"context"
	"database/sql"
	"fmt"

	"webhook-receiver/internal/database"
)

// schemaStatements builds the idempotent DDL for the messages table.
// ts and message_id use the dialect's byte-wise text type so ordering and the
// since filter are plain lexical comparisons.
func schemaStatements(d database.Dialect) []string {
	text := d.TextType()
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS messages (
  message_id  %s PRIMARY KEY,
  from_msisdn %s NOT NULL,
  to_msisdn   TEXT NOT NULL,
  ts          %s NOT NULL,
  text        TEXT,
  created_at  TEXT NOT NULL
);
`, text, text, text),
		`
CREATE INDEX IF NOT EXISTS idx_messages_ts
ON messages (ts, message_id);
`,
		`
CREATE INDEX IF NOT EXISTS idx_messages_from_ts
ON messages (from_msisdn, ts, message_id);
`,
	}
}

// EnsureSchema creates the messages table and its indexes if they are absent.
// It is safe to call on every start.
func EnsureSchema(ctx context.Context, db *sql.DB, d database.Dialect) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range schemaStatements(d) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
