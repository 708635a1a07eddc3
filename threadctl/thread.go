// Package threadctl starts managed threads that other goroutines can suspend,
// inspect and resume.
//
// A managed thread is a goroutine locked to its own OS thread for the lifetime
// of its task. The task cooperates by calling Checkpoint wherever it may be
// stopped:
//
//	t, err := threadctl.Go(func(t *threadctl.Thread) {
//		for {
//			doWork()
//			t.Checkpoint()
//		}
//	}, threadctl.WithName("worker"))
//
//	ctx, err := t.Suspend(context.Background())
//	// t is parked; ctx holds its stack.
//	err = t.Resume()
package threadctl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DataExMachina-dev/side-eye-threads/internal/controls"
	"github.com/DataExMachina-dev/side-eye-threads/internal/execctx"
)

var (
	ErrNotRunning           = controls.ErrNotRunning
	ErrContextCaptureFailed = controls.ErrContextCaptureFailed
	ErrSignalDeliveryFailed = controls.ErrSignalDeliveryFailed
	ErrSuspendTimeout       = controls.ErrSuspendTimeout
	ErrNotSuspended         = controls.ErrNotSuspended
	ErrMisc                 = controls.ErrMisc
)

// Context is the execution context captured when a thread is suspended.
type Context = execctx.Context

// Frame is a symbolized entry of a Context.
type Frame = execctx.Frame

// State summarizes a thread's suspend state.
type State int

const (
	UnknownState State = iota
	// Running means the thread is executing its task and may be suspended.
	Running
	// Suspending means a Suspend is waiting for the thread to reach a
	// checkpoint.
	Suspending
	// Suspended means the thread is parked.
	Suspended
	// Exited means the task returned.
	Exited
)

var stateStrings = [...]string{
	UnknownState: "unknown",
	Running:      "running",
	Suspending:   "suspending",
	Suspended:    "suspended",
	Exited:       "exited",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateStrings) {
		return stateStrings[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Thread is a handle to a managed thread.
type Thread struct {
	id        uuid.UUID
	name      string
	startedAt time.Time
	controls  *controls.Controls
	done      chan struct{}
}

var (
	registryOnce sync.Once
	registry     *controls.Registry

	// byControls maps the registry's entries back to their Thread for
	// Current.
	byControls sync.Map
)

func processRegistry() *controls.Registry {
	registryOnce.Do(func() {
		registry = controls.NewRegistry(zap.L().Named("threadctl"))
	})
	return registry
}

// Go starts task on a new managed thread and returns once the thread can be
// suspended. The task receives its own handle.
//
// A panic in task is not recovered.
func Go(task func(t *Thread), opts ...Option) (*Thread, error) {
	cfg := makeDefaultConfig()
	for _, o := range opts {
		o.apply(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate thread id: %w", err)
	}
	if cfg.name == "" {
		cfg.name = id.String()[:8]
	}
	t := &Thread{
		id:   id,
		name: cfg.name,
		controls: controls.New(
			controls.WithLogger(cfg.logger.Named("threadctl").With(zap.String("thread", cfg.name))),
			controls.WithSuspendTimeout(cfg.suspendTimeout),
		),
		done: make(chan struct{}),
	}

	ready := make(chan error, 1)
	go func() {
		defer close(t.done)
		controls.Start(processRegistry(), t.controls, func(err error) {
			if err == nil {
				t.startedAt = time.Now()
				byControls.Store(t.controls, t)
				cfg.manager.add(t)
			}
			ready <- err
		}, func() {
			defer byControls.Delete(t.controls)
			defer cfg.manager.remove(t)
			task(t)
		})
	}()
	if err := <-ready; err != nil {
		return nil, fmt.Errorf("failed to start thread %s: %w", cfg.name, err)
	}
	return t, nil
}

// Current returns the handle of the managed thread running the caller, or nil
// if the caller is not a managed thread.
func Current() *Thread {
	c := processRegistry().Current()
	if c == nil {
		return nil
	}
	t, ok := byControls.Load(c)
	if !ok {
		return nil
	}
	return t.(*Thread)
}

// Checkpoint is a suspend point for the calling managed thread. It is a no-op
// for goroutines that are not managed threads. Tasks holding their *Thread
// should prefer t.Checkpoint, which avoids the goroutine lookup.
func Checkpoint() {
	if c := processRegistry().Current(); c != nil {
		c.Checkpoint()
	}
}

// ID returns the thread's unique id.
func (t *Thread) ID() uuid.UUID {
	return t.id
}

// Name returns the thread's name.
func (t *Thread) Name() string {
	return t.name
}

// StartedAt returns the time the thread became suspendable.
func (t *Thread) StartedAt() time.Time {
	return t.startedAt
}

// Handle returns the OS thread id, or 0 where thread ids are unavailable.
func (t *Thread) Handle() int {
	return t.controls.Handle()
}

// GoroutineID returns the id of the goroutine running the task.
func (t *Thread) GoroutineID() int64 {
	return t.controls.GoroutineID()
}

// Running reports whether the thread is executing its task.
func (t *Thread) Running() bool {
	return t.controls.Running()
}

// State returns the thread's suspend state.
func (t *Thread) State() State {
	if t.controls.Exited() {
		return Exited
	}
	switch t.controls.Phase() {
	case controls.PhaseIdle:
		return Running
	case controls.PhaseSuspendRequested:
		return Suspending
	case controls.PhaseParked:
		return Suspended
	default:
		return UnknownState
	}
}

// Checkpoint is the thread's suspend point. It must only be called from the
// thread's own task.
func (t *Thread) Checkpoint() {
	t.controls.Checkpoint()
}

// Suspend stops the thread at its next checkpoint and returns its execution
// context. The thread stays parked until Resume.
func (t *Thread) Suspend(ctx context.Context) (Context, error) {
	if err := t.controls.Suspend(ctx); err != nil {
		return Context{}, fmt.Errorf("failed to suspend thread %s: %w", t.name, err)
	}
	c, _ := t.controls.Context()
	return c, nil
}

// Resume releases a suspended thread and returns once it is running again.
func (t *Thread) Resume() error {
	if err := t.controls.Resume(); err != nil {
		return fmt.Errorf("failed to resume thread %s: %w", t.name, err)
	}
	return nil
}

// Context returns the captured execution context while the thread is
// suspended. It is safe to call concurrently with Suspend and Resume; the
// result then reflects whichever suspension was current when it was read.
func (t *Thread) Context() (Context, bool) {
	return t.controls.Context()
}

// CaptureStack suspends the thread, copies its execution context and resumes
// it.
func (t *Thread) CaptureStack(ctx context.Context) (Context, error) {
	c, err := t.Suspend(ctx)
	if err != nil {
		return Context{}, err
	}
	if err := t.Resume(); err != nil {
		return Context{}, err
	}
	return c, nil
}

// Done returns a channel that is closed once the task returned.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task returned.
func (t *Thread) Wait() {
	<-t.done
}
