package controls

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/DataExMachina-dev/side-eye-threads/internal/metrics"
	"github.com/DataExMachina-dev/side-eye-threads/internal/suspendsig"
)

// Suspend stops the owning thread at its next checkpoint and returns once the
// thread is parked with its execution context captured. It must not be called
// from the owning thread.
//
// Suspend fails with ErrNotRunning, without side effects, if the thread is not
// running or is already being suspended. If the thread does not park before
// ctx is done or the configured timeout expires, the request is withdrawn and
// ErrSuspendTimeout is returned.
func (c *Controls) Suspend(ctx context.Context) error {
	start := time.Now()
	err := c.suspend(ctx)
	metrics.ObserveSuspend(resultLabel(err), time.Since(start))
	return err
}

func (c *Controls) suspend(ctx context.Context) error {
	if !c.running.Load() || c.exited.Load() {
		c.logger.Debug("refusing to suspend a thread whose running flag is false",
			zap.Int("tid", c.Handle()))
		return ErrNotRunning
	}
	if !c.phase.CompareAndSwap(uint32(PhaseIdle), uint32(PhaseSuspendRequested)) {
		return fmt.Errorf("%w: thread is %s", ErrNotRunning, c.Phase())
	}
	if !c.sem.TryAcquire(1) {
		v := c.sem.Value()
		c.phase.Store(uint32(PhaseIdle))
		return fmt.Errorf("%w: suspend semaphore count is %d", ErrNotRunning, v)
	}

	c.captureFailed.Store(false)
	c.pending.Store(true)

	tid := c.Handle()
	c.logger.Debug("sending suspend signal", zap.Int("tid", tid))
	if err := suspendsig.Deliver(tid); err != nil {
		if c.withdraw() {
			c.logger.Error("failed to send suspend signal", zap.Int("tid", tid), zap.Error(err))
			return fmt.Errorf("%w: %v", ErrSignalDeliveryFailed, err)
		}
		// The thread saw the request anyway.
	}

	if err := c.awaitParked(ctx); err != nil {
		return err
	}
	c.phase.Store(uint32(PhaseParked))
	return nil
}

// withdraw cancels a request the handler has not taken yet and returns the
// controller's claim on the semaphore. It reports false if the handler
// already took the request.
func (c *Controls) withdraw() bool {
	if !c.pending.CompareAndSwap(true, false) {
		return false
	}
	c.sem.Post()
	c.phase.Store(uint32(PhaseIdle))
	return true
}

// Number of Gosched rounds before a spinner starts sleeping.
const spinYields = 16

func newSpinBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Microsecond
	b.MaxInterval = time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// spinner paces a polling loop: it yields for the first rounds and then
// sleeps with exponential backoff.
type spinner struct {
	rounds int
	b      *backoff.ExponentialBackOff
	timer  *time.Timer
}

// wait blocks for one round or until done is closed. A nil done never fires.
func (s *spinner) wait(done <-chan struct{}) {
	s.rounds++
	if s.rounds <= spinYields {
		runtime.Gosched()
		return
	}
	if s.b == nil {
		s.b = newSpinBackOff()
	}
	d := s.b.NextBackOff()
	if s.timer == nil {
		s.timer = time.NewTimer(d)
	} else {
		s.timer.Reset(d)
	}
	select {
	case <-done:
		if !s.timer.Stop() {
			select {
			case <-s.timer.C:
			default:
			}
		}
	case <-s.timer.C:
	}
}

func (s *spinner) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// awaitParked polls the semaphore until the handler's own decrement shows up
// as a count of -1.
func (c *Controls) awaitParked(ctx context.Context) error {
	if c.suspendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.suspendTimeout)
		defer cancel()
	}
	done := ctx.Done()

	var s spinner
	defer s.stop()

	for {
		v := c.sem.Value()
		if v == -1 {
			return nil
		}
		if v != 0 {
			invariantViolated(c.logger, "suspend semaphore count while awaiting park", zap.Int32("count", v))
			if c.withdraw() {
				return fmt.Errorf("%w: suspend semaphore count is %d", ErrMisc, v)
			}
		}
		if c.captureFailed.CompareAndSwap(true, false) {
			c.sem.Post()
			c.phase.Store(uint32(PhaseIdle))
			return ErrContextCaptureFailed
		}
		if done != nil && (c.exited.Load() || ctx.Err() != nil) {
			exited := c.exited.Load()
			if c.withdraw() {
				if exited {
					return fmt.Errorf("%w: thread exited before reaching a checkpoint", ErrNotRunning)
				}
				c.logger.Warn("thread did not reach a checkpoint", zap.Int("tid", c.Handle()), zap.Error(ctx.Err()))
				return fmt.Errorf("%w: %v", ErrSuspendTimeout, ctx.Err())
			}
			// The handler took the request and is parking; finish the handshake.
			done = nil
		} else if done == nil && c.exited.Load() && c.pending.Load() {
			// No deadline and nobody left to take the request.
			if c.withdraw() {
				return fmt.Errorf("%w: thread exited before reaching a checkpoint", ErrNotRunning)
			}
		}
		s.wait(done)
	}
}

// Resume releases a thread parked by Suspend. It fails with ErrNotSuspended,
// leaving all state untouched, unless a Suspend completed and no Resume
// followed it.
//
// Resume returns once the released thread has set its running flag again, so
// a Suspend that follows it does not fail with ErrNotRunning. The wait is
// bounded by the suspend timeout, if one is configured; it also ends early if
// the thread exits or another controller suspends it again.
func (c *Controls) Resume() error {
	err := c.resume()
	metrics.ObserveResume(resultLabel(err))
	return err
}

func (c *Controls) resume() error {
	if !c.phase.CompareAndSwap(uint32(PhaseParked), uint32(PhaseIdle)) {
		return fmt.Errorf("%w: thread is %s, suspend semaphore count is %d",
			ErrNotSuspended, c.Phase(), c.sem.Value())
	}
	if v := c.sem.Value(); v != -1 {
		invariantViolated(c.logger, "suspend semaphore count at resume", zap.Int32("count", v))
	}
	if c.running.Load() {
		invariantViolated(c.logger, "resuming a thread whose running flag is true")
	}

	// Twice: once for the controller's claim and once for the parked handler.
	c.sem.Post()
	c.sem.Post()
	c.awaitRunning()
	return nil
}

// awaitRunning waits for a released thread to leave park.
func (c *Controls) awaitRunning() {
	var done <-chan struct{}
	if c.suspendTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.suspendTimeout)
		defer cancel()
		done = ctx.Done()
	}

	var s spinner
	defer s.stop()

	for !c.running.Load() && !c.exited.Load() && c.Phase() == PhaseIdle {
		select {
		case <-done:
			c.logger.Warn("resumed thread did not start running", zap.Int("tid", c.Handle()),
				zap.Duration("timeout", c.suspendTimeout))
			return
		default:
		}
		s.wait(done)
	}
}
