package lock

import (
	"log/slog"

	"github.com/benbjohnson/clock"
)

// Option configures a LockManager at construction time. There is
// deliberately no runtime reconfiguration: all tunables are fixed for the
// manager's lifetime, matching the "no environment dependency" stance of
// the library.
type Option[K comparable] func(*LockManager[K])

// WithClock injects the time source the manager uses for deadlines and
// condition-variable timers. Tests should supply a *clock.Mock; production
// callers can omit this option to get clock.New().
func WithClock[K comparable](c clock.Clock) Option[K] {
	return func(m *LockManager[K]) {
		m.clock = c
	}
}

// WithMetrics injects a Metrics implementation. Defaults to NoopMetrics.
func WithMetrics[K comparable](metrics Metrics) Option[K] {
	return func(m *LockManager[K]) {
		m.metrics = metrics
	}
}

// WithLogger injects a structured logger. Defaults to logging.GetLogger().
func WithLogger[K comparable](logger *slog.Logger) Option[K] {
	return func(m *LockManager[K]) {
		m.logger = logger
	}
}
