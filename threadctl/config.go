package threadctl

import (
	"os"
	"time"

	"go.uber.org/zap"
)

// Option to configure a managed thread.
type Option interface {
	apply(*config)
}

type config struct {
	name           string
	logger         *zap.Logger
	suspendTimeout time.Duration
	manager        *Manager
}

const (
	defaultSuspendTimeout = 5 * time.Second

	ENV_SUSPEND_TIMEOUT = "SIDE_EYE_THREADS_SUSPEND_TIMEOUT"
)

func makeDefaultConfig() config {
	cfg := config{
		logger:         zap.L(),
		suspendTimeout: defaultSuspendTimeout,
		manager:        defaultManager,
	}
	if v := os.Getenv(ENV_SUSPEND_TIMEOUT); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.suspendTimeout = d
		} else {
			cfg.logger.Warn("ignoring invalid suspend timeout",
				zap.String("env", ENV_SUSPEND_TIMEOUT), zap.String("value", v))
		}
	}
	return cfg
}

type optionFunc func(cfg *config)

func (f optionFunc) apply(cfg *config) {
	f(cfg)
}

// WithName sets a human-readable name for the thread. It shows up in logs,
// the debug page and RPC responses.
func WithName(name string) Option {
	return optionFunc(func(cfg *config) {
		cfg.name = name
	})
}

// WithLogger sets the logger for the thread's suspend machinery. Defaults to
// zap.L() at the time the thread is started.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(cfg *config) {
		cfg.logger = l
	})
}

// WithSuspendTimeout sets how long Suspend waits for the thread to reach a
// checkpoint. Defaults to the SIDE_EYE_THREADS_SUSPEND_TIMEOUT environment
// variable, or 5s. Zero means Suspend waits until its context is done.
func WithSuspendTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *config) {
		cfg.suspendTimeout = d
	})
}

// WithManager sets the Manager that tracks the thread. Defaults to
// DefaultManager().
func WithManager(m *Manager) Option {
	return optionFunc(func(cfg *config) {
		cfg.manager = m
	})
}
