package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Entry is a plain chat line of the transcript.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Role      string `json:"role"`
	Message   string `json:"message"`
}

// Turn is the structured record of one handled request.
type Turn struct {
	Intent    string `json:"intent"`
	UserInput string `json:"user_input"`
	Steps     any    `json:"steps,omitempty"`
	ToolPlan  any    `json:"tool_plan,omitempty"`
	Result    any    `json:"result,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Transcript appends chat entries to a JSONL file. It is safe for concurrent use.
type Transcript struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewTranscript creates a transcript writing to path. The file is created on first write.
func NewTranscript(path string) *Transcript {
	return &Transcript{
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Path returns the transcript file.
func (t *Transcript) Path() string {
	return t.path
}

// LogUser records a message typed by the user.
func (t *Transcript) LogUser(message string) error {
	return t.write(Entry{Role: RoleUser, Message: strings.TrimSpace(message)})
}

// LogAgent records a reply of the agent.
func (t *Transcript) LogAgent(message string) error {
	return t.write(Entry{Role: RoleAgent, Message: strings.TrimSpace(message)})
}

// LogTurn records what the agent did for a request.
func (t *Transcript) LogTurn(turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	return t.write(fields)
}

func (t *Transcript) write(entry any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts := t.now().Format(time.RFC3339Nano)
	switch e := entry.(type) {
	case Entry:
		e.Timestamp = ts
		entry = e
	case map[string]any:
		e["timestamp"] = ts
		e["role"] = RoleAgent
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to ensure transcript directory: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to transcript: %w", err)
	}
	return nil
}

// ReadTranscript returns every entry of a transcript file as a generic map.
// Lines that are not JSON objects are skipped.
func ReadTranscript(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, scanner.Err()
}
