package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"log/slog"
	"os"
	"time"
)

// DefaultWatchInterval is how often a watched plan file is checked.
const DefaultWatchInterval = 500 * time.Millisecond

// WatchFile calls onChange with the file content once at start and again every
// time the content changes, until ctx is done. Read errors are logged and retried
// on the next tick, so a file being rewritten does not stop the watch.
func WatchFile(ctx context.Context, path string, interval time.Duration, logger *slog.Logger, onChange func(data []byte)) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last [md5.Size]byte
	seen := false
	for {
		data, err := os.ReadFile(path)
		switch {
		case err != nil:
			logger.Warn("Failed to read watched file", "path", path, "err", err)
		default:
			sum := md5.Sum(data)
			if !seen || sum != last {
				if seen {
					logger.Info("Change detected, running again", "path", path)
				}
				seen = true
				last = sum
				onChange(data)
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
