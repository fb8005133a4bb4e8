package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/cracklens/pkg/domain"
)

// Log implements ports.RecordLog in memory.
// Records are kept as encoded JSON so replay goes through the same decoding as the
// durable backends. Safe for concurrent use.
type Log struct {
	lines [][]byte
	mu    sync.RWMutex
}

// NewLog creates a new in-memory log.
func NewLog() *Log {
	return &Log{}
}

// Replay decodes every stored entry in append order.
func (l *Log) Replay(ctx context.Context) ([]domain.Record, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]domain.Record, 0, len(l.lines))
	skipped := 0
	for _, line := range l.lines {
		var rec domain.Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.Subject == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Append stores the encoded record.
func (l *Log) Append(ctx context.Context, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, data)
	return nil
}

// AppendRaw stores an arbitrary entry. It exists to simulate corrupt log lines.
func (l *Log) AppendRaw(line []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, append([]byte(nil), line...))
}

// Len returns the number of stored entries, corrupt ones included.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lines)
}

// Truncate drops every entry.
func (l *Log) Truncate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
	return nil
}
