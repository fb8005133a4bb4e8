package ports

import (
	"context"

	"github.com/aretw0/cracklens/pkg/domain"
)

// RecordLog defines the interface for the append-only memory log.
// The log is the source of truth: the memory controller replays it fully on startup.
type RecordLog interface {
	// Replay returns every persisted record in append order.
	// Entries that cannot be decoded are skipped and counted in skipped; they are never fatal.
	Replay(ctx context.Context) (records []domain.Record, skipped int, err error)

	// Append persists one record at the end of the log.
	Append(ctx context.Context, record domain.Record) error

	// Truncate removes every persisted record.
	Truncate(ctx context.Context) error
}
