package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/cracklens/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	subject TEXT NOT NULL,
	task    TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_subject ON records(subject, task);
`

// Log implements ports.RecordLog on a SQLite table.
// Rows are only inserted or deleted; the autoincrement id is the append order.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Log, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Replay returns every record ordered by insertion.
func (l *Log) Replay(ctx context.Context) ([]domain.Record, int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT payload FROM records ORDER BY id`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	skipped := 0
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			skipped++
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil || rec.Subject == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, skipped, nil
}

// Append inserts one row.
func (l *Log) Append(ctx context.Context, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO records (subject, task, payload) VALUES (?, ?, ?)`,
		record.Subject, string(record.Context.Task), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Truncate deletes every row.
func (l *Log) Truncate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to truncate records: %w", err)
	}
	return nil
}

// DB exposes the handle for maintenance commands and tests.
func (l *Log) DB() *sql.DB {
	return l.db
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}
