package file_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/cracklens/pkg/adapters/file"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLog_Contract(t *testing.T) {
	log := file.New(filepath.Join(t.TempDir(), "nested", "memory.jsonl"))
	ports.RunRecordLogContract(t, log)
}

func TestFileLog_DefaultPath(t *testing.T) {
	assert.Equal(t, file.DefaultPath, file.New("").Path)
}

func TestFileLog_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.jsonl")
	log := file.New(path)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, domain.NewRecord("img01", domain.TaskSegment, nil, map[string]any{"mask_path": "m.png"})))

	// Simulate garbage plus a crash mid-write.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not json at all\n\n{\"subject\":\"img02\",\"context\":{\"task\":\"quan")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, skipped, err := log.Replay(ctx)
	require.NoError(t, err, "corrupt lines must never fail replay")
	assert.Equal(t, 2, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, "img01", records[0].Subject)
}

func TestFileLog_OneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.jsonl")
	log := file.New(path)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := domain.NewRecord("img01", domain.TaskQuantify, domain.Scale(0.5), map[string]any{"Length (mm)": float64(i)})
		require.NoError(t, log.Append(ctx, rec))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestFileLog_OversizedLineInTheMiddle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.jsonl")
	log := file.New(path)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, domain.NewRecord("img01", domain.TaskSegment, nil, map[string]any{"mask_path": "m1.png"})))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(strings.Repeat("x", 5*1024*1024) + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(ctx, domain.NewRecord("img02", domain.TaskSegment, nil, map[string]any{"mask_path": "m2.png"})))

	records, skipped, err := log.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "img01", records[0].Subject)
	assert.Equal(t, "img02", records[1].Subject)
}

func TestFileLog_AppendAfterPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.jsonl")
	log := file.New(path)
	ctx := context.Background()

	// A crash mid-write leaves no trailing newline.
	require.NoError(t, os.WriteFile(path, []byte(`{"subject":"img01","context":{"ta`), 0644))
	require.NoError(t, log.Append(ctx, domain.NewRecord("img02", domain.TaskSegment, nil, map[string]any{"mask_path": "m2.png"})))

	records, skipped, err := log.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, "img02", records[0].Subject)
}
