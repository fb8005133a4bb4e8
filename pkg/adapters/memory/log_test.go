package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/cracklens/pkg/adapters/memory"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLog_Contract(t *testing.T) {
	log := memory.NewLog()
	ports.RunRecordLogContract(t, log)
}

func TestMemoryLog_SkipsCorruptEntries(t *testing.T) {
	log := memory.NewLog()
	ctx := context.Background()

	log.AppendRaw([]byte("{broken"))
	require.NoError(t, log.Append(ctx, domain.NewRecord("img01", domain.TaskSegment, nil, nil)))
	log.AppendRaw([]byte(`{"context":{"task":"segment"}}`))

	records, skipped, err := log.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, 3, log.Len())
}
