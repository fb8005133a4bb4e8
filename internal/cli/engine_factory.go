package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/config"
	"github.com/aretw0/cracklens/pkg/adapters/file"
	"github.com/aretw0/cracklens/pkg/adapters/loam"
	"github.com/aretw0/cracklens/pkg/adapters/memory"
	"github.com/aretw0/cracklens/pkg/adapters/process"
	"github.com/aretw0/cracklens/pkg/adapters/redis"
	"github.com/aretw0/cracklens/pkg/adapters/sqlite"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/ports"
)

// Backend is an opened record log with the resources it holds.
type Backend struct {
	Log    ports.RecordLog
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend connection, if any.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend opens the record log selected by cfg.
func OpenBackend(ctx context.Context, cfg config.MemoryConfig) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return &Backend{Log: file.New(cfg.Path)}, nil

	case config.BackendMemory:
		return &Backend{Log: memory.NewLog()}, nil

	case config.BackendRedis:
		log := redis.New(cfg.Address, cfg.Password, cfg.DB, redis.WithPrefix(cfg.Prefix))
		if err := log.Client().Ping(ctx).Err(); err != nil {
			_ = log.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
		}
		b := &Backend{Log: log, close: log.Close}
		if cfg.Lock {
			b.Locker = redis.NewLocker(log.Client(), cfg.Prefix)
		}
		return b, nil

	case config.BackendSQLite:
		log, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Backend{Log: log, close: log.Close}, nil
	}
	return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
}

// NewEngine builds an engine from the configuration: memory backend, plan library,
// external processes and aliases. The returned backend must be closed by the caller.
func NewEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*cracklens.Engine, *Backend, error) {
	backend, err := OpenBackend(ctx, cfg.Memory)
	if err != nil {
		return nil, nil, err
	}

	engineOpts := []cracklens.Option{
		cracklens.WithLogger(logger),
		cracklens.WithLayout(cfg.Layout),
		cracklens.WithDefaultScale(cfg.PixelSizeMM),
	}
	if len(cfg.Aliases) > 0 {
		engineOpts = append(engineOpts, cracklens.WithAliases(cfg.Aliases))
	}
	if backend.Locker != nil {
		engineOpts = append(engineOpts, cracklens.WithLocker(backend.Locker))
	}
	for _, h := range hooks {
		engineOpts = append(engineOpts, cracklens.WithLifecycleHooks(h))
	}

	// Saved plans are optional: only wire the library when the directory exists.
	if isDir(cfg.PlansDir) {
		lib, err := loam.Open(cfg.PlansDir)
		if err != nil {
			_ = backend.Close()
			return nil, nil, fmt.Errorf("error opening plan library: %w", err)
		}
		engineOpts = append(engineOpts, cracklens.WithPlanLibrary(lib))
	}

	toolConfig, err := process.LoadTools(cfg.ToolsFile)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	if len(toolConfig) > 0 {
		logger.Debug("External processes configured", "path", cfg.ToolsFile, "count", len(toolConfig))
		engineOpts = append(engineOpts, cracklens.WithProcesses(process.NewRunner(
			process.WithRegistry(toolConfig),
			process.WithLogger(logger),
		)))
	}

	engine, err := cracklens.New(ctx, backend.Log, engineOpts...)
	if err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, backend, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
