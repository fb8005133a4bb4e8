package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/config"
	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/plan"
	"github.com/aretw0/cracklens/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_RebasesOnDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte("pixel_size_mm: 0.2\n"), 0644))

	cfg, err := LoadConfig(Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.PixelSizeMM)
	assert.Equal(t, filepath.Join(dir, "memory", "memory_store.jsonl"), cfg.Memory.Path)
	assert.Equal(t, filepath.Join(dir, "tools.yaml"), cfg.ToolsFile)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("memory:\n  backend: nowhere\n"), 0644))

	_, err := LoadConfig(Options{ConfigPath: path})
	assert.Error(t, err)
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("File", func(t *testing.T) {
		b, err := OpenBackend(ctx, config.MemoryConfig{Backend: config.BackendFile, Path: filepath.Join(dir, "log.jsonl")})
		require.NoError(t, err)
		assert.Nil(t, b.Locker)
		assert.NoError(t, b.Close())
	})

	t.Run("Memory", func(t *testing.T) {
		b, err := OpenBackend(ctx, config.MemoryConfig{Backend: config.BackendMemory})
		require.NoError(t, err)
		assert.NotNil(t, b.Log)
	})

	t.Run("SQLite", func(t *testing.T) {
		b, err := OpenBackend(ctx, config.MemoryConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "db", "memory.db")})
		require.NoError(t, err)
		defer b.Close()
		require.NoError(t, b.Log.Append(ctx, domain.NewRecord("img01", domain.TaskSegment, nil, map[string]any{"mask_path": "m.png"})))
		records, skipped, err := b.Log.Replay(ctx)
		require.NoError(t, err)
		assert.Zero(t, skipped)
		assert.Len(t, records, 1)
	})

	t.Run("RedisWithLock", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := OpenBackend(ctx, config.MemoryConfig{Backend: config.BackendRedis, Address: mr.Addr(), Prefix: "test:", Lock: true})
		require.NoError(t, err)
		defer b.Close()
		require.NotNil(t, b.Locker)

		unlock, err := b.Locker.Lock(ctx, "img01", time.Second)
		require.NoError(t, err)
		assert.True(t, mr.Exists("test:lock:img01"))
		require.NoError(t, unlock(ctx))
	})

	t.Run("RedisUnreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := OpenBackend(ctx, config.MemoryConfig{Backend: config.BackendRedis, Address: addr})
		assert.Error(t, err)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := OpenBackend(ctx, config.MemoryConfig{Backend: "etcd"})
		assert.Error(t, err)
	})
}

func TestNewEngine(t *testing.T) {
	dir := t.TempDir()
	tools := `
tools:
  - name: crack_probe
    command: cat
    description: Echo the request back
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools.yaml"), []byte(tools), 0644))

	cfg := config.Default().Rebase(dir)
	cfg.Memory.Backend = config.BackendMemory

	var started []string
	var mu sync.Mutex
	hooks := domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			mu.Lock()
			defer mu.Unlock()
			started = append(started, e.ToolName)
		},
	}

	eng, backend, err := NewEngine(context.Background(), cfg, logging.NewNop(), hooks)
	require.NoError(t, err)
	defer backend.Close()

	_, ok := eng.Registry().Lookup("crack_probe")
	assert.True(t, ok, "non-role processes become tools")
	_, ok = eng.Registry().Lookup(domain.ToolSegment)
	assert.True(t, ok)

	eng.Execute(context.Background(), []domain.Step{{Tool: "not_a_tool"}})
	assert.Equal(t, []string{"not_a_tool"}, started)

	_, err = eng.ExecutePlanID(context.Background(), "inspect")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound, "no plans directory means no library")
}

func TestNewEngine_BadToolsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tools.yaml"), []byte("tools:\n  - name: x\n"), 0644))
	cfg := config.Default().Rebase(dir)
	cfg.Memory.Backend = config.BackendMemory

	_, _, err := NewEngine(context.Background(), cfg, logging.NewNop())
	assert.Error(t, err)
}

type fakeExecutor struct {
	results []domain.StepResult
}

func (f *fakeExecutor) Execute(ctx context.Context, steps []domain.Step) []domain.StepResult {
	return f.results
}

func (f *fakeExecutor) ExecutePlanID(ctx context.Context, id string) ([]domain.StepResult, error) {
	if id == "" {
		return nil, domain.ErrPlanNotFound
	}
	return f.results, nil
}

func TestRunPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var out bytes.Buffer
		eng := &fakeExecutor{results: []domain.StepResult{{Tool: domain.ToolSegment, Subject: "img01", Status: domain.ResultCached}}}
		require.NoError(t, RunPlan(ctx, eng, nil, &out, nil))
		assert.Contains(t, out.String(), "| 1 | `segment_crack_image` | img01 | cached |")
	})

	t.Run("FailuresAreReported", func(t *testing.T) {
		var out bytes.Buffer
		eng := &fakeExecutor{results: []domain.StepResult{
			{Tool: domain.ToolSegment, Status: domain.ResultSuccess},
			{Tool: "x", Status: domain.ResultError, Error: "boom"},
		}}
		err := RunPlanID(ctx, eng, "inspect", &out, nil)
		var failed *StepsFailedError
		require.True(t, errors.As(err, &failed))
		assert.Equal(t, 1, failed.Failed)
		assert.Equal(t, 2, failed.Total)
		assert.Contains(t, out.String(), "boom")
	})

	t.Run("MissingPlan", func(t *testing.T) {
		err := RunPlanID(ctx, &fakeExecutor{}, "", &bytes.Buffer{}, nil)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})
}

func TestLoadPlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - tool: segment_crack_image\n    args:\n      image_path: img01.jpg\n"), 0644))

	p, err := LoadPlanFile(path)
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, domain.ToolSegment, p.Steps[0].Tool)

	_, err = LoadPlanFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, 10*time.Millisecond, logging.NewNop(), func(data []byte) {
			changes <- string(data)
		})
	}()

	assert.Equal(t, "v1", waitFor(t, changes))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	assert.Equal(t, "v2", waitFor(t, changes))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Empty(t, changes, "unchanged content must not trigger a run")
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}

type fakeAsker struct {
	asked []string
}

func (f *fakeAsker) Ask(ctx context.Context, text string) (cracklens.Answer, error) {
	f.asked = append(f.asked, text)
	if strings.Contains(text, "fail") {
		return cracklens.Answer{}, errors.New("planner offline")
	}
	return cracklens.Answer{
		Intents: []plan.Intent{{Action: plan.ActionSegment}, {Action: plan.ActionQuantify}},
		Steps:   []domain.Step{{Tool: domain.ToolSegment}},
		Results: []domain.StepResult{{Tool: domain.ToolSegment, Status: domain.ResultSuccess}},
		Reply:   "Segmented img01.",
	}, nil
}

func TestChat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session", "chat_log.jsonl")
	transcript := session.NewTranscript(path)
	asker := &fakeAsker{}

	in := strings.NewReader("segment image 1\n\nplease fail\nquit\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, Chat(context.Background(), asker, transcript, in, &out, nil, logging.NewNop()))

	assert.Equal(t, []string{"segment image 1", "please fail"}, asker.asked)
	assert.Contains(t, out.String(), "Segmented img01.")
	assert.Contains(t, out.String(), "planner offline")

	entries, err := session.ReadTranscript(path)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, session.RoleUser, entries[0]["role"])
	assert.Equal(t, "segment+quantify", entries[1]["intent"])
	assert.Equal(t, "Segmented img01.", entries[2]["message"])
	assert.Equal(t, "please fail", entries[3]["message"])
	assert.Contains(t, entries[4]["message"], "planner offline")
}

func TestChat_EOF(t *testing.T) {
	asker := &fakeAsker{}
	var out bytes.Buffer
	require.NoError(t, Chat(context.Background(), asker, nil, strings.NewReader("segment image 2"), &out, nil, logging.NewNop()))
	assert.Equal(t, []string{"segment image 2"}, asker.asked)
}

func TestDebugHooks(t *testing.T) {
	hooks := DebugHooks(logging.NewNop())
	assert.NotPanics(t, func() {
		hooks.OnPlanStart(context.Background(), &domain.PlanEvent{Steps: 1})
		hooks.OnStepEnd(context.Background(), &domain.StepEvent{Status: domain.ResultError})
	})
}
