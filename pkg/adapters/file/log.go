package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/cracklens/pkg/domain"
)

// DefaultPath is the log location used when none is configured.
var DefaultPath = filepath.Join(".cracklens", "memory_store.jsonl")

// maxLineSize bounds a single JSONL entry; longer lines are skipped as corrupt.
const maxLineSize = 4 * 1024 * 1024

// Log implements ports.RecordLog as a line-delimited JSON file.
// Each Append writes exactly one line; the file is only ever appended to or removed.
type Log struct {
	Path string
	mu   sync.Mutex
}

// New creates a new Log at the given path.
// If path is empty, it defaults to DefaultPath.
func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{Path: path}
}

// Replay reads every line of the log. Lines that are not valid JSON records are skipped.
func (l *Log) Replay(ctx context.Context) ([]domain.Record, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Record{}, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to open memory log: %w", err)
	}
	defer f.Close()

	records := []domain.Record{}
	skipped := 0

	reader := bufio.NewReader(f)
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		raw, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, 0, fmt.Errorf("failed to read memory log: %w", readErr)
		}

		line := bytes.TrimSpace(raw)
		switch {
		case len(line) == 0:
		case len(line) > maxLineSize:
			skipped++
		default:
			var rec domain.Record
			if err := json.Unmarshal(line, &rec); err != nil || rec.Subject == "" {
				skipped++
			} else {
				records = append(records, rec)
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	return records, skipped, nil
}

// Append serializes the record as one line at the end of the log.
// The parent directory is created on demand.
func (l *Log) Append(ctx context.Context, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return fmt.Errorf("failed to ensure memory directory: %w", err)
	}

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open memory log: %w", err)
	}

	// A crash may have left a partial last line; start on a fresh one.
	terminated, err := endsWithNewline(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to inspect memory log: %w", err)
	}
	if !terminated {
		data = append([]byte{'\n'}, data...)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append record: %w", err)
	}

	// Fsync to ensure durability
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to fsync memory log: %w", err)
	}

	return f.Close()
}

func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

// Truncate deletes the log file.
func (l *Log) Truncate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := os.Remove(l.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete memory log: %w", err)
	}
	return nil
}
