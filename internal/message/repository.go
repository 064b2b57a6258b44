package message

//go:generate mockgen -destination=./repository_mock_test.go -package=message -source=repository.go Repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"webhook-receiver/internal/database"
	"webhook-receiver/internal/domain" // Shared domain models
)

// createdAtLayout is ISO-8601 UTC with microseconds, e.g. 2025-01-15T10:00:00.123456Z.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

// Repository is the storage engine for inbound messages.
// It is the only component that owns persistent state.
type Repository interface {
	// Insert stores a new message. An existing message_id is reported as
	// InsertDuplicate and the stored row is left untouched.
	Insert(ctx context.Context, msg *domain.Message) (domain.InsertResult, error)
	// List returns one page of messages matching the filter plus the total match count.
	List(ctx context.Context, filter domain.ListFilter) (*domain.MessagePage, error)
	// Stats computes aggregate figures over the whole table.
	Stats(ctx context.Context) (*domain.Stats, error)
}

// sqlRepository implements Repository on database/sql for any supported dialect.
type sqlRepository struct {
	db      *sql.DB // The database connection pool.
	dialect database.Dialect
	now     func() time.Time
}

// NewSQLRepository is the constructor for the repository.
func NewSQLRepository(db *sql.DB, dialect database.Dialect) Repository {
	return &sqlRepository{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
}

// Insert writes the row inside a single transaction. Uniqueness is enforced by
// the primary key, so two concurrent inserts of one id cannot both succeed.
func (sr *sqlRepository) Insert(ctx context.Context, msg *domain.Message) (domain.InsertResult, error) {
	// created_at is always server receipt time.
	msg.CreatedAt = sr.now().UTC().Format(createdAtLayout)

	query := `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	tx, err := sr.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("could not begin insert transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, sr.dialect.Rebind(query),
		msg.MessageID,
		msg.FromMSISDN,
		msg.ToMSISDN,
		msg.TS,
		nullString(msg.Text),
		msg.CreatedAt,
	)
	if err != nil {
		// First write wins. The conflict is an expected outcome, not a failure.
		if sr.dialect.IsUniqueViolation(err) {
			return domain.InsertDuplicate, nil
		}
		return "", fmt.Errorf("could not insert message %q: %w", msg.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		if sr.dialect.IsUniqueViolation(err) {
			return domain.InsertDuplicate, nil
		}
		return "", fmt.Errorf("could not commit message %q: %w", msg.MessageID, err)
	}

	return domain.InsertCreated, nil
}

// List runs the count and the page query with the same WHERE clause inside one
// snapshot transaction, so total and data describe the same data.
func (sr *sqlRepository) List(ctx context.Context, filter domain.ListFilter) (*domain.MessagePage, error) {
	filter = filter.Normalize()
	where, args := sr.whereClause(filter)

	tx, err := sr.db.BeginTx(ctx, sr.dialect.SnapshotTxOptions())
	if err != nil {
		return nil, fmt.Errorf("could not begin list transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var total int64
	countQuery := "SELECT COUNT(*) FROM messages" + where
	if err := tx.QueryRowContext(ctx, sr.dialect.Rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("could not count messages: %w", err)
	}

	pageQuery := `
		SELECT message_id, from_msisdn, to_msisdn, ts, text, created_at
		FROM messages` + where + `
		ORDER BY ts ASC, message_id ASC
		LIMIT ? OFFSET ?
	`
	pageArgs := append(append([]any{}, args...), filter.Limit, filter.Offset)

	rows, err := tx.QueryContext(ctx, sr.dialect.Rebind(pageQuery), pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("could not query messages: %w", err)
	}
	defer rows.Close()

	// data is never null in the response.
	messages := make([]*domain.Message, 0, filter.Limit)
	for rows.Next() {
		var msg domain.Message
		var text sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.FromMSISDN, &msg.ToMSISDN, &msg.TS, &text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan message: %w", err)
		}
		if text.Valid {
			msg.Text = &text.String
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not finish list transaction: %w", err)
	}

	return &domain.MessagePage{
		Data:   messages,
		Total:  int(total),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Stats computes every figure in one aggregate query.
func (sr *sqlRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT from_msisdn), MIN(ts), MAX(ts)
		FROM messages
	`

	var total, senders int64
	var first, last sql.NullString
	if err := sr.db.QueryRowContext(ctx, query).Scan(&total, &senders, &first, &last); err != nil {
		return nil, fmt.Errorf("could not compute stats: %w", err)
	}

	stats := &domain.Stats{
		TotalMessages: int(total),
		SendersCount:  int(senders),
	}
	// Avoid division by zero on an empty table.
	if senders > 0 {
		stats.MessagesPerSender = float64(total) / float64(senders)
	}
	if first.Valid {
		stats.FirstMessageTS = &first.String
	}
	if last.Valid {
		stats.LastMessageTS = &last.String
	}
	return stats, nil
}

// whereClause ANDs together the filters that are set. Empty values are ignored.
func (sr *sqlRepository) whereClause(filter domain.ListFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.From != "" {
		clauses = append(clauses, "from_msisdn = ?")
		args = append(args, filter.From)
	}
	if filter.Since != "" {
		// Lexical comparison, callers must send comparable timestamps.
		clauses = append(clauses, "ts >= ?")
		args = append(args, filter.Since)
	}
	if filter.Query != "" {
		clauses = append(clauses, sr.dialect.Contains("text"))
		args = append(args, filter.Query)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
