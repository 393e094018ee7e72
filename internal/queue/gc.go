package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultDLQRetention is how long dead-lettered jobs are kept for inspection
const DefaultDLQRetention = 24 * time.Hour

// DefaultDLQInterval is how often the dead-letter queue is purged
const DefaultDLQInterval = time.Hour

// GarbageCollector periodically removes dead-lettered jobs older than retention
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger
}

// NewGarbageCollector creates a garbage collector. Non-positive interval and
// retention fall back to DefaultDLQInterval and DefaultDLQRetention.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, log *zap.Logger) *GarbageCollector {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultDLQInterval
	}
	if retention <= 0 {
		retention = DefaultDLQRetention
	}
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Start purges once, then every interval until ctx is cancelled
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if err := gc.collect(ctx); err != nil && ctx.Err() == nil {
		gc.log.Error("dlq_gc_failed", zap.Error(err))
	}
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.collect(ctx); err != nil {
				gc.log.Error("dlq_gc_failed", zap.Error(err))
			}
		}
	}
}

// collect runs a single purge bounded to two minutes
func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("failed to purge dead-letter queue: %w", err)
	}
	if n > 0 {
		gc.log.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return nil
}
