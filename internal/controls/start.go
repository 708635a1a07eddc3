package controls

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/DataExMachina-dev/side-eye-threads/internal/metrics"
)

// Start is the entry point of every managed thread. It locks the calling
// goroutine to its OS thread, installs c in reg, makes c suspendable and calls
// ready before running task. ready receives the installation error, if any,
// in which case task is not run.
//
// When task returns, c is marked not running for good. A panic in task is not
// recovered.
func Start(reg *Registry, c *Controls, ready func(error), task func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := reg.Install(c); err != nil {
		c.markExited()
		ready(err)
		return
	}
	defer reg.Remove(c)

	c.running.Store(true)
	// Release the initial slot: 0 -> 1, suspendable.
	c.sem.Post()
	c.logger.Debug("thread started",
		zap.Int("tid", c.Handle()), zap.Int64("goid", c.GoroutineID()))

	metrics.ManagedThreads.Inc()
	defer metrics.ManagedThreads.Dec()
	defer c.markExited()

	ready(nil)
	task()
}
