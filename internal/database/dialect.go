package database

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Dialect captures the few places where SQLite and Postgres differ for the message store.
type Dialect interface {
	// Name is "sqlite" or "postgres".
	Name() string
	// Rebind rewrites '?' placeholders into the engine's native form.
	Rebind(query string) string
	// Contains returns a case-sensitive substring predicate on column.
	// The needle is bound as the next placeholder.
	Contains(column string) string
	// TextType is the column type for text that must sort and compare byte-wise.
	TextType() string
	// IsUniqueViolation reports whether err is a primary key or unique constraint failure.
	IsUniqueViolation(err error) bool
	// SnapshotTxOptions returns options for a transaction whose reads all see
	// one snapshot. nil means the engine's default already does.
	SnapshotTxOptions() *sql.TxOptions
}

// SQLite is the dialect for github.com/mattn/go-sqlite3.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Rebind(query string) string { return query }

// instr() is case-sensitive, unlike SQLite's LIKE.
func (SQLite) Contains(column string) string { return "instr(" + column + ", ?) > 0" }

// SQLite's default BINARY collation already compares byte-wise.
func (SQLite) TextType() string { return "TEXT" }

// A SQLite read transaction holds one snapshot until it ends.
func (SQLite) SnapshotTxOptions() *sql.TxOptions { return nil }

func (SQLite) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// Postgres is the dialect for the pgx stdlib driver.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Postgres) Contains(column string) string { return "strpos(" + column + ", ?) > 0" }

// The "C" collation gives plain byte ordering regardless of the database locale.
func (Postgres) TextType() string { return `TEXT COLLATE "C"` }

// READ COMMITTED takes a new snapshot per statement, REPEATABLE READ per transaction.
func (Postgres) SnapshotTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (Postgres) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation
}
