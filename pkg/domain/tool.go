package domain

import (
	"fmt"
	"time"
)

// ResultStatus is the tag of a tool or step result.
type ResultStatus string

const (
	ResultSuccess  ResultStatus = "success"
	ResultError    ResultStatus = "error"
	ResultCached   ResultStatus = "cached"
	ResultNoOutput ResultStatus = "no_output"
)

// OK reports whether the status represents a usable outcome.
func (s ResultStatus) OK() bool {
	return s == ResultSuccess || s == ResultCached
}

// ToolResult is the single result shape shared by every tool implementation.
type ToolResult struct {
	Status         ResultStatus      `json:"status"`
	Summary        string            `json:"summary"`
	Outputs        map[string]any    `json:"outputs,omitempty"`
	Visualizations map[string]string `json:"visualizations,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Success builds a successful result.
func Success(summary string, outputs map[string]any) ToolResult {
	return ToolResult{Status: ResultSuccess, Summary: summary, Outputs: outputs}
}

// Failure builds an error result.
func Failure(summary string, err error) ToolResult {
	r := ToolResult{Status: ResultError, Summary: summary}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Validate checks the result against the tool contract.
func (r ToolResult) Validate() error {
	switch r.Status {
	case ResultSuccess, ResultCached, ResultNoOutput:
		return nil
	case ResultError:
		if r.Error == "" && r.Summary == "" {
			return fmt.Errorf("%w: error result without error or summary", ErrInvalidResult)
		}
		return nil
	case "":
		return fmt.Errorf("%w: missing status", ErrInvalidResult)
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidResult, r.Status)
	}
}

// StepResult is what the execution engine reports for one plan step.
type StepResult struct {
	Tool           string            `json:"tool"`
	Status         ResultStatus      `json:"status"`
	Summary        string            `json:"summary"`
	Outputs        map[string]any    `json:"outputs"`
	Visualizations map[string]string `json:"visualizations"`
	Error          string            `json:"error,omitempty"`
	Args           map[string]any    `json:"args"`
	Subject        string            `json:"subject"`
	Action         string            `json:"action"`
	Duration       time.Duration     `json:"duration_ns,omitempty"`
}

// ToolInfo describes a registered tool for listings (CLI, HTTP, MCP).
type ToolInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}
