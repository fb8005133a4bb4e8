package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
)

// StreamManager fans engine events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a subscriber. The returned function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber. Slow subscribers miss messages.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message")
		}
	}
}

// Hooks returns lifecycle hooks that broadcast plan and step completions.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPlanEnd: func(ctx context.Context, e *domain.PlanEvent) {
			sm.publish(e)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			sm.publish(e)
		},
	}
}

func (sm *StreamManager) publish(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		sm.logger.Warn("SSE: Event encode failed", "err", err)
		return
	}
	sm.Broadcast(string(data))
}
