// Package controls implements the suspend/resume handshake between a managed
// thread and the controllers that pause it.
//
// A managed thread runs its task inside Start, which binds a Controls to the
// goroutine (locked to its OS thread) and makes it suspendable. A controller
// calls Suspend, which raises a pending request and signals the thread; the
// thread honours the request at its next Checkpoint by capturing its execution
// context and parking on the suspend semaphore. Resume releases it.
//
// The semaphore carries the whole handshake:
//
//	 1  idle, a Suspend may claim it
//	 0  a Suspend claimed it; the request is in flight
//	-1  the thread is parked in Checkpoint
//
// Resume posts twice, returning both the controller's and the handler's
// decrements.
package controls

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/DataExMachina-dev/side-eye-threads/internal/execctx"
	"github.com/DataExMachina-dev/side-eye-threads/internal/sema"
)

// Phase is the controller-visible suspend state of a thread.
type Phase uint32

const (
	// PhaseIdle means no suspend is in progress.
	PhaseIdle Phase = iota
	// PhaseSuspendRequested means a controller claimed the suspend slot and is
	// waiting for the thread to park.
	PhaseSuspendRequested
	// PhaseParked means the thread is blocked in Checkpoint and its captured
	// context may be read.
	PhaseParked
)

var phaseStrings = [...]string{
	PhaseIdle:             "idle",
	PhaseSuspendRequested: "suspend-requested",
	PhaseParked:           "parked",
}

func (p Phase) String() string {
	if int(p) < len(phaseStrings) {
		return phaseStrings[p]
	}
	return fmt.Sprintf("Phase(%d)", uint32(p))
}

// Controls is the per-thread suspend-control state. It is shared between the
// thread that owns it and any number of controllers.
type Controls struct {
	// handle is the OS thread id; goid the goroutine id. Both are set once by
	// Install.
	handle atomic.Int64
	goid   atomic.Int64

	// running is written only by the owning thread. It is false while the
	// thread is parked and after its task returned.
	running atomic.Bool
	// exited is set once the task returned.
	exited atomic.Bool

	// pending is the suspend "signal". A controller sets it; the handler or a
	// withdrawing controller clears it with a CAS, whichever comes first.
	pending atomic.Bool
	// captureFailed is set by the handler when it gave up on a request.
	captureFailed atomic.Bool

	phase atomic.Uint32
	sem   *sema.Semaphore

	// capturedMu guards captured. The handler writes it before it parks;
	// controllers copy it only while phase is PhaseParked.
	capturedMu sync.Mutex
	captured   execctx.Context

	logger         *zap.Logger
	handlerLogger  *zap.Logger
	suspendTimeout time.Duration
}

// Option configures a Controls.
type Option interface {
	apply(*Controls)
}

type optionFunc func(c *Controls)

func (f optionFunc) apply(c *Controls) {
	f(c)
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *Controls) {
		c.logger = l
	})
}

// WithSuspendTimeout bounds how long Suspend waits for the thread to park.
// Zero waits until the caller's context is done.
func WithSuspendTimeout(d time.Duration) Option {
	return optionFunc(func(c *Controls) {
		c.suspendTimeout = d
	})
}

// New constructs a Controls for a thread that has not started yet. It cannot
// be suspended until Start releases the initial semaphore slot.
func New(opts ...Option) *Controls {
	c := &Controls{
		sem:    sema.New(0, 1),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(c)
	}
	c.handlerLogger = c.logger.Named("handler")
	c.logger = c.logger.Named("controller")
	// Not started yet counts as running; the semaphore keeps it unsuspendable.
	c.running.Store(true)
	return c
}

// Handle returns the OS thread id of the owning thread, or 0 if it is unknown.
func (c *Controls) Handle() int {
	return int(c.handle.Load())
}

// GoroutineID returns the id of the owning goroutine.
func (c *Controls) GoroutineID() int64 {
	return c.goid.Load()
}

// Running reports whether the thread is executing (or has not yet started)
// its task.
func (c *Controls) Running() bool {
	return c.running.Load()
}

// Exited reports whether the thread's task returned.
func (c *Controls) Exited() bool {
	return c.exited.Load()
}

// Phase returns the current suspend phase.
func (c *Controls) Phase() Phase {
	return Phase(c.phase.Load())
}

// SemaphoreValue returns the suspend semaphore's count.
func (c *Controls) SemaphoreValue() int32 {
	return c.sem.Value()
}

// Context returns the execution context captured by the last completed
// Suspend. ok is false unless the thread is currently parked.
//
// The copy is consistent even if the thread is resumed and suspended again
// concurrently, but it may then describe the earlier suspension.
func (c *Controls) Context() (ctx execctx.Context, ok bool) {
	c.capturedMu.Lock()
	defer c.capturedMu.Unlock()
	if c.Phase() != PhaseParked {
		return execctx.Context{}, false
	}
	return c.captured, true
}

// markExited moves the thread to its terminal state.
func (c *Controls) markExited() {
	c.running.Store(false)
	c.exited.Store(true)
}
