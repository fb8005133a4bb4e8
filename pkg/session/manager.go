package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/cracklens/internal/logging"
)

const (
	// DefaultBaseDir is where session directories are created.
	DefaultBaseDir = "logs"

	idLayout = "session_2006-01-02_15-04-05"

	TranscriptFile = "chat_log.jsonl"
	MemoryLogFile  = "memory_store.jsonl"
	SummaryFile    = "summary.json"
)

// Snapshotter writes a memory summary to a file.
type Snapshotter interface {
	ExportSnapshot(path string) error
}

// Session is one started session.
type Session struct {
	ID         string
	Dir        string
	Transcript *Transcript
}

// MemoryLogPath is the memory log kept inside the session directory.
func (s *Session) MemoryLogPath() string {
	return filepath.Join(s.Dir, MemoryLogFile)
}

// SummaryPath is where the memory snapshot is exported on close.
func (s *Session) SummaryPath() string {
	return filepath.Join(s.Dir, SummaryFile)
}

// Manager creates session directories.
type Manager struct {
	baseDir string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source used to name sessions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Session Manager rooted at baseDir ("logs" when empty).
func NewManager(baseDir string, opts ...Option) *Manager {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	m := &Manager{
		baseDir: baseDir,
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates the directory of a new session named after the current time.
// Two sessions started within the same second share a directory.
func (m *Manager) Start() (*Session, error) {
	id := m.now().Format(idLayout)
	dir := filepath.Join(m.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	m.logger.Info("Session started", "session_id", id, "dir", dir)
	return &Session{
		ID:         id,
		Dir:        dir,
		Transcript: NewTranscript(filepath.Join(dir, TranscriptFile)),
	}, nil
}

// Close exports the memory summary of s. mem may be nil.
func (m *Manager) Close(s *Session, mem Snapshotter) error {
	if mem == nil {
		return nil
	}
	if err := mem.ExportSnapshot(s.SummaryPath()); err != nil {
		return fmt.Errorf("failed to export session summary: %w", err)
	}
	m.logger.Info("Session closed", "session_id", s.ID, "summary", s.SummaryPath())
	return nil
}
