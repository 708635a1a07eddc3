// Package agentconn serves the ThreadControl gRPC service for this process.
package agentconn

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/DataExMachina-dev/side-eye-threads/internal/server"
	"github.com/DataExMachina-dev/side-eye-threads/internal/suspendsig"
	"github.com/DataExMachina-dev/side-eye-threads/internal/threadctlpb"
	"github.com/DataExMachina-dev/side-eye-threads/threadctl"
)

type Config struct {
	// ListenAddr is the TCP address to serve on. Ignored if Listener is set.
	ListenAddr string
	// Listener, if set, is served instead of listening on ListenAddr. The
	// connection takes ownership of it.
	Listener    net.Listener
	Manager     *threadctl.Manager
	Logger      *zap.Logger
	ErrorLogger func(err error)
}

const (
	defaultListenAddr = "127.0.0.1:0"

	ENV_LISTEN_ADDR = "SIDE_EYE_THREADS_LISTEN_ADDR"
)

func MakeDefaultConfig() Config {
	cfg := Config{
		ListenAddr:  defaultListenAddr,
		Manager:     threadctl.DefaultManager(),
		Logger:      zap.NewNop(),
		ErrorLogger: func(err error) {},
	}
	if os.Getenv(ENV_LISTEN_ADDR) != "" {
		cfg.ListenAddr = os.Getenv(ENV_LISTEN_ADDR)
	}
	return cfg
}

// Approximate process start time, part of the process fingerprint.
var processStart = time.Now()

// Conn owns the listener and gRPC server of the agent.
type Conn struct {
	// Fields that change in Start/Close.
	mu struct {
		sync.Mutex
		active Config
		// fingerprint identifies this agent instance to clients.
		fingerprint uuid.UUID
		// processFingerprint adds the pid and process start time.
		processFingerprint string

		listener   net.Listener
		server     *server.Server
		grpcServer *grpc.Server
		serveErr   error
		wg         *sync.WaitGroup
	}
}

func NewConn() *Conn {
	c := &Conn{}
	c.mu.active = Config{
		// no-op loggers
		Logger:      zap.NewNop(),
		ErrorLogger: func(err error) {},
	}
	return c
}

// ActiveConfig returns the configuration of the last successful Start.
func (c *Conn) ActiveConfig() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.active
}

func (c *Conn) Fingerprint() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.fingerprint
}

func (c *Conn) ProcessFingerprint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.processFingerprint
}

// Start starts serving the threads of cfg.Manager. A goroutine is started to
// handle incoming RPCs.
//
// c.Close() should be called to stop serving.
func (c *Conn) Start(cfg Config) error {
	// If we were already serving, stop.
	c.Close()

	if cfg.Manager == nil {
		return fmt.Errorf("missing thread manager")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ErrorLogger == nil {
		cfg.ErrorLogger = func(err error) {}
	}
	if err := suspendsig.PlatformSupported(); err != nil {
		cfg.Logger.Warn("suspending threads is degraded on this platform", zap.Error(err))
	}

	fingerprint, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("failed to generate fingerprint: %w", err)
	}
	processFingerprint := fmt.Sprintf(
		"%s:%d:%d.%d",
		fingerprint.String(),
		os.Getpid(),
		processStart.Unix(),
		processStart.Nanosecond(),
	)

	l := cfg.Listener
	if l == nil {
		l, err = net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
		}
	}

	s := grpc.NewServer()
	srv := server.NewServer(fingerprint, cfg.Manager, cfg.Logger.Named("server"))
	threadctlpb.RegisterThreadControlServer(s, srv)
	c.mu.Lock()
	c.mu.active = cfg
	c.mu.fingerprint = fingerprint
	c.mu.processFingerprint = processFingerprint
	c.mu.server = srv
	c.mu.grpcServer = s
	c.mu.listener = l
	c.mu.serveErr = nil
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.mu.wg = wg
	c.mu.Unlock()

	cfg.Logger.Info("serving thread control", zap.Stringer("addr", l.Addr()),
		zap.String("fingerprint", processFingerprint))
	go func() {
		defer wg.Done() // unblock Close()
		err := s.Serve(l)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			cfg.ErrorLogger(fmt.Errorf("failed to serve: %w", err))
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.mu.grpcServer == s {
			c.mu.serveErr = err
		}
	}()
	return nil
}

func (c *Conn) listener() net.Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.listener
}

// Addr returns the address being served, or nil if not started.
func (c *Conn) Addr() net.Addr {
	l := c.listener()
	if l == nil {
		return nil
	}
	return l.Addr()
}

// Close stops serving. It's a no-op if the connection was never started.
// Start() can be called again after Close().
func (c *Conn) Close() {
	c.mu.Lock()
	wg := c.mu.wg
	started := c.mu.listener != nil
	c.mu.Unlock()
	if !started {
		return
	}

	c.closeInner()

	// Synchronize with the goroutine handling RPCs.
	wg.Wait()
}

// closeInner stops the server. Unlike Close(), it doesn't wait for the server
// goroutine to terminate.
func (c *Conn) closeInner() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mu.listener == nil {
		// Already closed.
		return
	}
	// Stop closes the listener.
	c.mu.grpcServer.Stop()
	c.mu.grpcServer = nil
	c.mu.server = nil
	c.mu.listener = nil
	c.mu.serveErr = nil
}

type Status int

const (
	UnknownStatus Status = iota
	// Uninitialized means Start() was never called, or Close() was called.
	Uninitialized
	Serving
	// Failed means the server stopped on its own, for example because its
	// listener was closed.
	Failed
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Serving:
		return "serving"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.mu.listener == nil:
		return Uninitialized
	case c.mu.serveErr != nil:
		return Failed
	default:
		return Serving
	}
}
