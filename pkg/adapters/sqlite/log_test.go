package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/cracklens/pkg/adapters/sqlite"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteLog_Contract(t *testing.T) {
	log, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "db", "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	ports.RunRecordLogContract(t, log)
}

func TestSQLiteLog_InMemory(t *testing.T) {
	log, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	ports.RunRecordLogContract(t, log)
}

func TestSQLiteLog_SkipsCorruptRows(t *testing.T) {
	ctx := context.Background()
	log, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	require.NoError(t, log.Append(ctx, domain.NewRecord("img01", domain.TaskSegment, nil, nil)))
	_, err = log.DB().ExecContext(ctx, `INSERT INTO records (subject, task, payload) VALUES ('x', 'segment', '{oops')`)
	require.NoError(t, err)

	records, skipped, err := log.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Len(t, records, 1)
}

func TestSQLiteLog_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")

	log, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, domain.NewRecord("img01", domain.TaskQuantify, domain.Scale(0.5), map[string]any{"Length (mm)": 3.2})))
	require.NoError(t, log.Close())

	reopened, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	records, _, err := reopened.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 3.2, records[0].Observation["Length (mm)"], 1e-9)
}
