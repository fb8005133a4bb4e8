package domain

import (
	"math"
	"time"
)

// Task tags a record with the kind of work that produced it.
type Task string

const (
	TaskSegment   Task = "segment"
	TaskQuantify  Task = "quantify"
	TaskSave      Task = "save"
	TaskVisualize Task = "visualize"
)

// ConfigTolerance is the epsilon used when comparing numeric configuration values.
const ConfigTolerance = 1e-6

// RecordContext describes under which task and configuration an observation was made.
type RecordContext struct {
	Task        Task      `json:"task"`
	PixelSizeMM *float64  `json:"pixel_size_mm,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Record is one durable entry of the memory log.
type Record struct {
	Subject     string         `json:"subject"`
	Context     RecordContext  `json:"context"`
	Observation map[string]any `json:"observation"`
}

// NewRecord creates a record stamped with the current UTC time.
// A nil scale means the task carries no numeric configuration.
func NewRecord(subject string, task Task, scale *float64, observation map[string]any) Record {
	if observation == nil {
		observation = make(map[string]any)
	}
	return Record{
		Subject: subject,
		Context: RecordContext{
			Task:        task,
			PixelSizeMM: scale,
			Timestamp:   time.Now().UTC(),
		},
		Observation: observation,
	}
}

// Key returns the cache key of the record.
func (r Record) Key() CacheKey {
	return CacheKey{Subject: r.Subject, Task: r.Context.Task, Scale: r.Context.PixelSizeMM}
}

// Clone returns a copy whose observation map can be mutated independently.
func (r Record) Clone() Record {
	c := r
	c.Observation = make(map[string]any, len(r.Observation))
	for k, v := range r.Observation {
		c.Observation[k] = v
	}
	if r.Context.PixelSizeMM != nil {
		v := *r.Context.PixelSizeMM
		c.Context.PixelSizeMM = &v
	}
	return c
}

// CacheKey identifies a unit of work for idempotence checks.
type CacheKey struct {
	Subject string
	Task    Task
	Scale   *float64
}

// Matches reports whether the record satisfies the key.
// A key without a scale matches on subject and task alone. A key with a scale
// only matches records whose scale is within ConfigTolerance.
func (k CacheKey) Matches(r Record) bool {
	if r.Subject != k.Subject || r.Context.Task != k.Task {
		return false
	}
	if k.Scale == nil {
		return true
	}
	if r.Context.PixelSizeMM == nil {
		return false
	}
	return ScaleEqual(*r.Context.PixelSizeMM, *k.Scale)
}

// String renders the key for logs and lock names.
func (k CacheKey) String() string {
	if k.Scale == nil {
		return k.Subject + "/" + string(k.Task)
	}
	return k.Subject + "/" + string(k.Task) + "/" + formatScale(*k.Scale)
}

// ScaleEqual compares two pixel scales with ConfigTolerance.
func ScaleEqual(a, b float64) bool {
	return math.Abs(a-b) < ConfigTolerance
}

// Scale returns a pointer to v, for building keys and records inline.
func Scale(v float64) *float64 {
	return &v
}
