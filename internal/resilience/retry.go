package resilience

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"blockwatch/internal/config"
)

// Transient SQLite failure modes worth waiting out. Anything else fails the
// attempt immediately.
var transientMarkers = []string{
	"database is locked",
	"database table is locked",
	"attempt to write a readonly database",
	"sqlite_busy",
}

// IsTransientStorageErr reports whether err looks like a short-lived
// storage lock. Corruption is deliberately not in this set; it needs manual
// recovery, not a retry.
func IsTransientStorageErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping with exponential
// backoff between attempts. Only transient storage-lock errors are retried;
// any other error returns immediately. The backoff state is a local value,
// one per call, never shared across jobs.
func Retry(ctx context.Context, logger *zap.Logger, name string, cfg config.RetryConfig, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	b := backoff.Backoff{
		Min:    cfg.BaseDelay,
		Max:    cfg.MaxDelay,
		Factor: 2,
	}
	if b.Min <= 0 {
		b.Min = time.Second
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransientStorageErr(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		delay := b.Duration()
		logger.Warn("transient storage error, will retry",
			zap.String("job", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	logger.Error("retry budget exhausted",
		zap.String("job", name),
		zap.Int("attempts", attempts),
		zap.Error(err))
	return fmt.Errorf("resilience: %s failed after %d attempts: %w", name, attempts, err)
}
