package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/ports"
)

// Controller is the append-only knowledge base of past observations.
//
// Records are kept in memory in log order and every write is persisted through a
// ports.RecordLog before it becomes visible. Lookups return the newest matching
// record (last write wins). A Controller is safe for concurrent use.
type Controller struct {
	log     ports.RecordLog
	locker  ports.DistributedLocker
	logger  *slog.Logger
	aliases *AliasTable
	exists  func(path string) bool
	keys    *keyLocks

	mu      sync.RWMutex
	records []domain.Record
	skipped int
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger configures a logger for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLocker enables distributed locking around check-then-append.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *Controller) {
		c.locker = locker
	}
}

// WithAliases extends the built-in metric alias table. Entries override defaults.
func WithAliases(aliases map[string]string) Option {
	return func(c *Controller) {
		merged := DefaultAliases()
		for k, v := range aliases {
			merged[k] = v
		}
		c.aliases = NewAliasTable(merged)
	}
}

// WithFileCheck replaces the function used to verify that cached artifacts are still on disk.
func WithFileCheck(fn func(path string) bool) Option {
	return func(c *Controller) {
		if fn != nil {
			c.exists = fn
		}
	}
}

// NewController creates a Controller and replays the log into memory.
// Corrupt entries are skipped; only I/O failures are returned.
func NewController(ctx context.Context, log ports.RecordLog, opts ...Option) (*Controller, error) {
	c := &Controller{
		log:     log,
		logger:  logging.NewNop(),
		aliases: NewAliasTable(DefaultAliases()),
		exists:  fileExists,
		keys:    newKeyLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload discards the in-memory view and replays the log.
func (c *Controller) Reload(ctx context.Context) error {
	records, skipped, err := c.log.Replay(ctx)
	if err != nil {
		return fmt.Errorf("failed to load memory: %w", err)
	}
	if skipped > 0 {
		c.logger.Warn("Skipped corrupt memory entries", "count", skipped)
	}

	c.mu.Lock()
	c.records = records
	c.skipped = skipped
	c.mu.Unlock()

	c.logger.Debug("Memory loaded", "records", len(records))
	return nil
}

// Records returns a copy of every record in log order.
func (c *Controller) Records() []domain.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Record, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// Skipped returns how many corrupt entries the last replay ignored.
func (c *Controller) Skipped() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skipped
}

// RecordExists reports whether any record matches (subject, task[, scale]).
func (c *Controller) RecordExists(subject string, task domain.Task, scale *float64) bool {
	key := domain.CacheKey{Subject: subject, Task: task, Scale: scale}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.newestLocked(key) >= 0
}

// AppendRecord persists the record and adds it to memory.
func (c *Controller) AppendRecord(ctx context.Context, rec domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(ctx, rec)
}

// AppendIfAbsent appends the record unless one with the same cache key exists.
// The check and the append are atomic with respect to other writers of this
// Controller and, with a locker, to other processes sharing the log.
func (c *Controller) AppendIfAbsent(ctx context.Context, rec domain.Record) (bool, error) {
	key := rec.Key()
	appended := false

	err := c.withKeyLock(ctx, key.String(), func(ctx context.Context, distributed bool) error {
		if distributed {
			if err := c.Reload(ctx); err != nil {
				return err
			}
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.newestLocked(key) >= 0 {
			return nil
		}
		if err := c.appendLocked(ctx, rec); err != nil {
			return err
		}
		appended = true
		return nil
	})
	return appended, err
}

// merge appends a record for key carrying the newest observation plus obs.
// Nothing is written when the newest record already holds every value of obs.
func (c *Controller) merge(ctx context.Context, key domain.CacheKey, obs map[string]any) error {
	if len(obs) == 0 {
		return nil
	}
	return c.withKeyLock(ctx, key.String(), func(ctx context.Context, distributed bool) error {
		if distributed {
			if err := c.Reload(ctx); err != nil {
				return err
			}
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		var rec domain.Record
		idx := c.newestLocked(key)
		if idx >= 0 {
			rec = c.records[idx].Clone()
		} else {
			rec = domain.NewRecord(key.Subject, key.Task, key.Scale, nil)
		}

		changed := idx < 0
		for k, v := range obs {
			if cur, ok := rec.Observation[k]; ok && reflect.DeepEqual(cur, v) {
				continue
			}
			rec.Observation[k] = v
			changed = true
		}
		if !changed {
			return nil
		}
		rec.Context.Timestamp = time.Now().UTC()
		return c.appendLocked(ctx, rec)
	})
}

// MetricsFor returns a copy of the newest quantify observation for subject, optionally
// restricted to a pixel scale. It returns nil when nothing is cached.
func (c *Controller) MetricsFor(subject string, scale *float64) map[string]any {
	key := domain.CacheKey{Subject: subject, Task: domain.TaskQuantify, Scale: scale}

	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := c.newestLocked(key)
	if idx < 0 {
		return nil
	}
	return c.records[idx].Clone().Observation
}

// HasMetrics reports whether every requested metric name matches a key of the cached
// observation for (subject, scale). Matching is approximate, see AliasTable.Matches.
// An empty request is satisfied by any cached observation.
func (c *Controller) HasMetrics(subject string, names []string, scale *float64) bool {
	obs := c.MetricsFor(subject, scale)
	if obs == nil {
		return false
	}
	for _, name := range names {
		if !c.matchesAny(name, obs) {
			return false
		}
	}
	return true
}

func (c *Controller) matchesAny(name string, obs map[string]any) bool {
	for key := range obs {
		if c.aliases.Matches(name, key) {
			return true
		}
	}
	return false
}

// PathFor returns the newest recorded overlay path for a layer, or "".
func (c *Controller) PathFor(subject, layer string) string {
	return c.newestString(subject, domain.OverlayKey(layer))
}

// MaskPath returns the newest recorded mask path for subject, or "".
func (c *Controller) MaskPath(subject string) string {
	return c.newestString(subject, domain.KeyMaskPath)
}

func (c *Controller) newestString(subject, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.records) - 1; i >= 0; i-- {
		r := c.records[i]
		if r.Subject != subject {
			continue
		}
		raw, ok := r.Observation[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok || s == "" {
			c.logger.Warn("Ignoring non-path memory value", "subject", subject, "key", key)
			continue
		}
		return s
	}
	return ""
}

// ConfigFor returns the pixel scale of the newest quantify record of subject.
// Save and segment records never answer it.
func (c *Controller) ConfigFor(subject string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.findConfigLocked(subject)
}

func (c *Controller) findConfigLocked(subject string) (float64, bool) {
	for i := len(c.records) - 1; i >= 0; i-- {
		r := c.records[i]
		if r.Subject == subject && r.Context.Task == domain.TaskQuantify && r.Context.PixelSizeMM != nil {
			return *r.Context.PixelSizeMM, true
		}
	}
	return 0, false
}

// configLocked is findConfigLocked with the default pixel size as fallback.
func (c *Controller) configLocked(subject string) float64 {
	if v, ok := c.findConfigLocked(subject); ok {
		return v
	}
	return domain.DefaultPixelSizeMM
}

// UpdateVisualizationPath stores the path of one layer for subject.
func (c *Controller) UpdateVisualizationPath(ctx context.Context, subject, layer, path string) error {
	return c.SaveVisualizations(ctx, subject, nil, map[string]string{domain.OverlayKey(layer): path})
}

// SaveVisualizations patches the newest save record of subject with the given
// observation keys (e.g. "skeleton_overlay"), or creates one when none exists.
// A created record uses scale, else the subject's known scale, else the default.
// The patched record is appended again, so replay yields the same view.
func (c *Controller) SaveVisualizations(ctx context.Context, subject string, scale *float64, overlays map[string]string) error {
	if len(overlays) == 0 {
		return nil
	}
	key := domain.CacheKey{Subject: subject, Task: domain.TaskSave}

	return c.withKeyLock(ctx, key.String(), func(ctx context.Context, distributed bool) error {
		if distributed {
			if err := c.Reload(ctx); err != nil {
				return err
			}
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		var rec domain.Record
		idx := c.newestLocked(key)
		if idx >= 0 {
			rec = c.records[idx].Clone()
		} else {
			if scale == nil {
				scale = domain.Scale(c.configLocked(subject))
			}
			rec = domain.NewRecord(subject, domain.TaskSave, scale, nil)
		}

		changed := idx < 0
		for k, p := range overlays {
			if cur, ok := rec.Observation[k].(string); ok && cur == p {
				continue
			}
			rec.Observation[k] = p
			changed = true
		}
		if !changed {
			return nil
		}
		rec.Context.Timestamp = time.Now().UTC()

		if err := c.log.Append(ctx, rec); err != nil {
			return fmt.Errorf("failed to persist visualization paths: %w", err)
		}
		c.records = append(c.records, rec)

		c.logger.Debug("Visualization paths saved", "subject", subject, "count", len(overlays))
		return nil
	})
}

// SaveMaskPath records the mask of subject unless it is already the newest one.
func (c *Controller) SaveMaskPath(ctx context.Context, subject, path string) error {
	if c.MaskPath(subject) == path {
		return nil
	}
	return c.AppendRecord(ctx, domain.NewRecord(subject, domain.TaskSegment, nil, map[string]any{domain.KeyMaskPath: path}))
}

// SaveMetrics appends a quantify observation. It always writes, so it supersedes
// any earlier metrics at the same scale.
func (c *Controller) SaveMetrics(ctx context.Context, subject string, scale *float64, metrics map[string]any) error {
	return c.AppendRecord(ctx, domain.NewRecord(subject, domain.TaskQuantify, scale, metrics))
}

// Reset clears every record and truncates the log.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.log.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to reset memory: %w", err)
	}
	c.records = nil
	c.skipped = 0
	c.logger.Info("Memory reset")
	return nil
}

func (c *Controller) appendLocked(ctx context.Context, rec domain.Record) error {
	if rec.Subject == "" {
		return fmt.Errorf("%w: record without subject", domain.ErrInvalidArgs)
	}
	if rec.Observation == nil {
		rec.Observation = make(map[string]any)
	}
	if err := c.log.Append(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}
	c.records = append(c.records, rec)
	c.logger.Debug("Record appended", "key", rec.Key().String())
	return nil
}

// newestLocked returns the index of the newest record matching key, or -1.
func (c *Controller) newestLocked(key domain.CacheKey) int {
	for i := len(c.records) - 1; i >= 0; i-- {
		if key.Matches(c.records[i]) {
			return i
		}
	}
	return -1
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
