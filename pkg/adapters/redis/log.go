package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/cracklens/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Log implements ports.RecordLog as a Redis list.
// RPUSH preserves append order, so LRANGE 0 -1 is a faithful replay.
type Log struct {
	client *backend.Client
	prefix string
}

type Option func(*Log)

// WithPrefix sets the key prefix for the log.
func WithPrefix(prefix string) Option {
	return func(l *Log) {
		l.prefix = prefix
	}
}

// New creates a new Redis log with options.
func New(address, password string, db int, opts ...Option) *Log {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis log from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Log {
	l := &Log{
		client: client,
		prefix: "cracklens:memory:",
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Client exposes the underlying client so a Locker can share the connection.
func (l *Log) Client() *backend.Client {
	return l.client
}

// Prefix returns the configured key prefix.
func (l *Log) Prefix() string {
	return l.prefix
}

func (l *Log) key() string {
	return l.prefix + "records"
}

// Replay returns every record in append order, skipping entries that fail to decode.
func (l *Log) Replay(ctx context.Context) ([]domain.Record, int, error) {
	vals, err := l.client.LRange(ctx, l.key(), 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read from redis: %w", err)
	}

	records := make([]domain.Record, 0, len(vals))
	skipped := 0
	for _, val := range vals {
		var rec domain.Record
		if err := json.Unmarshal([]byte(val), &rec); err != nil || rec.Subject == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Append pushes one encoded record to the tail of the list.
func (l *Log) Append(ctx context.Context, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := l.client.RPush(ctx, l.key(), data).Err(); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Truncate deletes the list.
func (l *Log) Truncate(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key()).Err(); err != nil {
		return fmt.Errorf("failed to truncate redis log: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (l *Log) Close() error {
	return l.client.Close()
}
