package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sc.sigCh)
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// CreateLogger configures the application logger.
// Logs go to Stderr so they never mix with reports on Stdout.
func CreateLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelWarn)
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// DebugHooks logs every plan and step event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPlanStart: func(ctx context.Context, e *domain.PlanEvent) {
			logger.Debug("Plan Start", "run_id", e.RunID, "steps", e.Steps)
		},
		OnPlanEnd: func(ctx context.Context, e *domain.PlanEvent) {
			logger.Debug("Plan End", "run_id", e.RunID, "failures", e.Failures)
		},
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Step Start", "index", e.Index, "tool_name", e.ToolName, "subject", e.Subject)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			if e.Status == domain.ResultError {
				logger.Debug("Step End (Error)", "index", e.Index, "tool_name", e.ToolName, "duration", e.Duration)
			} else {
				logger.Debug("Step End", "index", e.Index, "tool_name", e.ToolName, "status", e.Status, "duration", e.Duration)
			}
		},
	}
}
