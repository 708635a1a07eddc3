package controls

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/DataExMachina-dev/side-eye-threads/internal/suspendsig"
)

// Registry binds Controls to the goroutines that own them. Install and Remove
// take a lock and publish a new copy of the table; lookups read the published
// copy without locking.
type Registry struct {
	logger *zap.Logger

	mu       sync.Mutex
	slots    atomic.Pointer[map[int64]*Controls]
	delivery sync.Once
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger.Named("registry")}
	empty := map[int64]*Controls{}
	r.slots.Store(&empty)
	return r
}

// Install binds c to the calling goroutine, records the calling thread's id as
// c's handle and marks c running.
//
// If the goroutine already has Controls bound, they are replaced and marked
// exited, and a warning is logged. Otherwise this is the thread's first
// installation: the suspend signal is unblocked in the thread's signal mask
// and the process-wide delivery mechanism is initialized.
func (r *Registry) Install(c *Controls) error {
	goid := currentGoroutineID()

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.slots.Load()
	if old, ok := cur[goid]; ok {
		r.logger.Warn("installing thread controls on a goroutine that already has them",
			zap.Int64("goid", goid), zap.Int("tid", old.Handle()))
		old.markExited()
	} else {
		if err := suspendsig.UnblockOnCurrentThread(); err != nil {
			r.logger.Error("failed to set the thread's signal mask", zap.Error(err))
			return fmt.Errorf("failed to unblock %v: %w", suspendsig.Signal, err)
		}
		r.delivery.Do(r.checkDelivery)
	}

	c.handle.Store(int64(suspendsig.CurrentThreadID()))
	c.goid.Store(goid)
	c.running.Store(true)

	next := make(map[int64]*Controls, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[goid] = c
	r.slots.Store(&next)
	return nil
}

// checkDelivery reports once per Registry whether suspend signals can reach
// individual threads. The runtime owns the signal handler.
func (r *Registry) checkDelivery() {
	if err := suspendsig.PlatformSupported(); err != nil {
		r.logger.Warn("suspend requests will only be observed at checkpoints", zap.Error(err))
		return
	}
	r.logger.Debug("suspend signal delivery enabled", zap.Stringer("signal", suspendsig.Signal))
}

// Remove unbinds c from the calling goroutine. It is a no-op if other
// Controls are bound.
func (r *Registry) Remove(c *Controls) {
	goid := currentGoroutineID()

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.slots.Load()
	if cur[goid] != c {
		return
	}
	next := make(map[int64]*Controls, len(cur))
	for k, v := range cur {
		if k != goid {
			next[k] = v
		}
	}
	r.slots.Store(&next)
}

// Current returns the Controls bound to the calling goroutine, or nil.
func (r *Registry) Current() *Controls {
	return (*r.slots.Load())[currentGoroutineID()]
}

// Len returns the number of bound goroutines.
func (r *Registry) Len() int {
	return len(*r.slots.Load())
}
