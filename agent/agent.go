// Package agent exposes this process's managed threads to remote controllers
// over gRPC.
package agent

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/DataExMachina-dev/side-eye-threads/internal/agentconn"
	"github.com/DataExMachina-dev/side-eye-threads/threadctl"
)

// Option to configure the agent.
type Option interface {
	apply(*agentconn.Config)
}

type optionFunc func(cfg *agentconn.Config)

func (f optionFunc) apply(cfg *agentconn.Config) {
	f(cfg)
}

const ENV_LISTEN_ADDR = agentconn.ENV_LISTEN_ADDR

// WithListenAddr sets the TCP address to serve on. Defaults to the
// SIDE_EYE_THREADS_LISTEN_ADDR environment variable, or 127.0.0.1:0.
func WithListenAddr(addr string) Option {
	return optionFunc(func(cfg *agentconn.Config) {
		cfg.ListenAddr = addr
	})
}

// WithListener serves on l instead of listening on a TCP address. The agent
// takes ownership of l.
func WithListener(l net.Listener) Option {
	return optionFunc(func(cfg *agentconn.Config) {
		cfg.Listener = l
	})
}

// WithManager sets the Manager whose threads are exposed. Defaults to
// threadctl.DefaultManager().
func WithManager(m *threadctl.Manager) Option {
	return optionFunc(func(cfg *agentconn.Config) {
		cfg.Manager = m
	})
}

// WithLogger sets the logger of the agent.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(cfg *agentconn.Config) {
		cfg.Logger = l
	})
}

// WithErrorLogger sets a function to be called with errors (for example for
// logging them).
func WithErrorLogger(f func(err error)) Option {
	return optionFunc(func(cfg *agentconn.Config) {
		cfg.ErrorLogger = f
	})
}

// Init starts serving the ThreadControl service. If the agent was already
// running, it is restarted with the new options.
func Init(
	ctx context.Context,
	opts ...Option,
) error {
	cfg := agentconn.MakeDefaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := singletonConn.Start(cfg); err != nil {
		return fmt.Errorf("failed to start thread control agent: %w", err)
	}
	return nil
}

// Stop stops serving. It is a no-op if Init() hasn't been called. Init() can
// be called again after Stop().
func Stop() {
	singletonConn.Close()
}

// Addr returns the address the agent serves on, or nil if it is not running.
func Addr() net.Addr {
	return singletonConn.Addr()
}

type Status = agentconn.Status

const (
	UnknownStatus = agentconn.UnknownStatus
	Uninitialized = agentconn.Uninitialized
	Serving       = agentconn.Serving
	Failed        = agentconn.Failed
)

// CurrentStatus returns the state of the agent.
func CurrentStatus() Status {
	return singletonConn.Status()
}

// singletonConn is the connection manipulated by Init() / Stop().
var singletonConn = agentconn.NewConn()
