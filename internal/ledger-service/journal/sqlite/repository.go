// Package sqlite provides a SQLite-backed implementation of journal.Repository.
//
// WAL mode is enabled on Open so the HTTP and gRPC handlers can read the
// history while the ledger appends.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/journal"

	// pure-Go driver, no CGO
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_journal (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id     TEXT    NOT NULL UNIQUE,
    order_id     INTEGER NOT NULL,
    action       TEXT    NOT NULL,
    from_status  TEXT    NOT NULL DEFAULT '',
    to_status    TEXT    NOT NULL DEFAULT '',
    product_key  TEXT    NOT NULL DEFAULT '',
    quantity     INTEGER NOT NULL DEFAULT 0,
    total        TEXT    NOT NULL DEFAULT '0.00',
    trace_id     TEXT    NOT NULL DEFAULT '',
    span_id      TEXT    NOT NULL DEFAULT '',
    recorded_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_journal_order_id ON order_journal(order_id, seq);
CREATE INDEX IF NOT EXISTS idx_order_journal_trace_id ON order_journal(trace_id);
`

const timeLayout = "2006-01-02T15:04:05.999999999Z"

type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/journal.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Append inserts one entry.
func (r *Repository) Append(ctx context.Context, e *journal.Entry) error {
	const q = `
		INSERT INTO order_journal
			(entry_id, order_id, action, from_status, to_status, product_key, quantity, total, trace_id, span_id, recorded_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.OrderID,
		string(e.Action),
		e.FromStatus,
		e.ToStatus,
		e.ProductKey,
		e.Quantity,
		e.Total,
		e.TraceID,
		e.SpanID,
		e.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append journal entry for order %d: %w", e.OrderID, err)
	}
	return nil
}

// History returns the entries of one order in insertion order.
func (r *Repository) History(ctx context.Context, orderID int) ([]journal.Entry, error) {
	const q = `
		SELECT entry_id, order_id, action, from_status, to_status, product_key,
		       quantity, total, trace_id, span_id, recorded_at
		FROM   order_journal
		WHERE  order_id = ?
		ORDER  BY seq`

	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: history of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var (
			e          journal.Entry
			action     string
			recordedAt string
		)
		if err := rows.Scan(
			&e.ID,
			&e.OrderID,
			&action,
			&e.FromStatus,
			&e.ToStatus,
			&e.ProductKey,
			&e.Quantity,
			&e.Total,
			&e.TraceID,
			&e.SpanID,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan journal entry: %w", err)
		}
		e.Action = journal.Action(action)
		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: history of order %d: %w", orderID, err)
	}
	return entries, nil
}
