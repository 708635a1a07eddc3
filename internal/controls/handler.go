package controls

import (
	"go.uber.org/zap"

	"github.com/DataExMachina-dev/side-eye-threads/internal/execctx"
)

// captureContext is replaced in tests.
var captureContext = (*execctx.Context).Capture

// Checkpoint is the suspend handler. The owning thread calls it at points
// where it may be stopped. Without a pending request it is a single atomic
// load.
//
// With a pending request it captures the thread's execution context, clears
// the running flag and blocks on the suspend semaphore until Resume. It must
// only be called by the thread that owns c.
func (c *Controls) Checkpoint() {
	if !c.pending.Load() {
		return
	}
	c.park()
}

//go:noinline
func (c *Controls) park() {
	// The controller may have withdrawn the request in the meantime.
	if !c.pending.CompareAndSwap(true, false) {
		return
	}
	c.handlerLogger.Debug("suspend request received", zap.Int64("goid", c.goid.Load()))

	// Skip park so the innermost frame is Checkpoint.
	c.capturedMu.Lock()
	err := captureContext(&c.captured, 1, c.goid.Load(), c.Handle())
	c.capturedMu.Unlock()
	if err != nil {
		c.handlerLogger.Error("couldn't capture thread context within suspend handler", zap.Error(err))
		c.captureFailed.Store(true)
		return
	}

	c.running.Store(false)

	// The controller claimed the semaphore before raising the request.
	if v := c.sem.Value(); v != 0 {
		invariantViolated(c.handlerLogger, "suspend semaphore count at park", zap.Int32("count", v))
	}
	c.sem.Wait()

	c.handlerLogger.Debug("resumed", zap.Int64("goid", c.goid.Load()))
	c.running.Store(true)
}
