package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/cracklens/internal/logging"
)

// ErrNotRegistered is returned when calling a process missing from the allow-list.
var ErrNotRegistered = errors.New("process not registered")

// DefaultGracePeriod is how long a canceled process has to exit after an interrupt
// before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Runner executes allow-listed local commands that speak JSON: the request is
// written to stdin and the response read from stdout.
type Runner struct {
	registry map[string]RegisteredProcess
	baseDir  string
	grace    time.Duration
	logger   *slog.Logger
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command     string
	Args        []string
	Env         map[string]string
	Description string
	Timeout     time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			timeout, _ := time.ParseDuration(tool.Timeout)
			r.registry[name] = RegisteredProcess{
				Command:     tool.Command,
				Args:        tool.Args,
				Env:         tool.Environment,
				Description: tool.Description,
				Timeout:     timeout,
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod sets how long a canceled process may take to exit.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]RegisteredProcess),
		grace:    DefaultGracePeriod,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Has reports whether name is allow-listed.
func (r *Runner) Has(name string) bool {
	_, ok := r.registry[name]
	return ok
}

// Names returns the allow-listed names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for n := range r.registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns the configured description of name.
func (r *Runner) Describe(name string) string {
	return r.registry[name].Description
}

// Call runs the process registered as name with req encoded as JSON on stdin and
// decodes its stdout into resp. resp may be nil when only the exit status matters.
//
// A response object carrying a non-empty "error" field is returned as an error.
// On cancellation the process receives an interrupt and is killed after the grace period.
func (r *Runner) Call(ctx context.Context, name string, req any, resp any) error {
	proc, ok := r.registry[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	input, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", name, err)
	}

	if proc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proc.Timeout)
		defer cancel()
	}

	// Requests travel on stdin, never as flags, so values cannot inject arguments.
	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.grace

	env := []string{"CRACKLENS_PROCESS=" + name}
	for k, v := range proc.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.DebugContext(ctx, "Process finished", "process", name, "duration", time.Since(start), "err", err)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("execution of %s failed: %w. Stderr: %s", name, ctxErr, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("execution of %s failed: %v. Stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	output := bytes.TrimSpace(stdout.Bytes())
	if len(output) == 0 {
		if resp != nil {
			return fmt.Errorf("%s returned no output", name)
		}
		return nil
	}

	var failure struct {
		Error string `json:"error"`
	}
	if output[0] == '{' && json.Unmarshal(output, &failure) == nil && failure.Error != "" {
		return fmt.Errorf("%s reported: %s", name, failure.Error)
	}

	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(output, resp); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", name, err)
	}
	return nil
}
