package logging

import (
	"log/slog"

	"github.com/google/uuid"
)

// WithKey decorates base with resource-key context.
//
// Example:
//
//	log := logging.WithKey(m.logger, key)
//	log.Debug("grant evaluated", "conflict", false)
func WithKey(base *slog.Logger, key any) *slog.Logger {
	return base.With("key", key)
}

// WithLockerKey decorates base with both locker and key context, the most
// common pair for lock lifecycle events.
//
// Example:
//
//	log := logging.WithLockerKey(m.logger, l.ID(), key)
//	log.Info("blocked", "for_write", true)
func WithLockerKey(base *slog.Logger, id uuid.UUID, key any) *slog.Logger {
	return base.With("locker_id", id.String(), "key", key)
}

// WithShard decorates base with shard-index context. Useful when logging
// key-map sharding and lock-table maintenance.
//
// Example:
//
//	log := logging.WithShard(m.logger, 3)
//	log.Debug("lock removed from shard", "key", key)
func WithShard(base *slog.Logger, shard int) *slog.Logger {
	return base.With("shard", shard)
}

// WithConflict decorates base with conflict-type context.
//
// Example:
//
//	log := logging.WithConflict(m.logger, "DEADLOCK")
//	log.Warn("wait resolved", "elapsed_ms", 42)
func WithConflict(base *slog.Logger, conflictType string) *slog.Logger {
	return base.With("conflict_type", conflictType)
}

// WithComponent decorates base with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent(logging.GetLogger(), "deadlock.Arbiter")
//	log.Info("component initialized")
func WithComponent(base *slog.Logger, component string) *slog.Logger {
	return base.With("component", component)
}
