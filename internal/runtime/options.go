package runtime

import (
	"log/slog"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/objects"
)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the executor.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObjectStore shares an object store with the executor instead of a private one.
func WithObjectStore(store *objects.Store) ExecutorOption {
	return func(e *Executor) {
		if store != nil {
			e.objects = store
		}
	}
}

// WithInputDir sets the directory bare file names in path arguments resolve against.
func WithInputDir(dir string) ExecutorOption {
	return func(e *Executor) {
		e.inputDir = dir
	}
}

// WithDefaultScale sets the pixel scale used when neither the step nor memory provide one.
func WithDefaultScale(mm float64) ExecutorOption {
	return func(e *Executor) {
		if mm > 0 {
			e.scale = mm
		}
	}
}
