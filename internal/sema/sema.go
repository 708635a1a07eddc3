// Package sema contains a counting semaphore whose count is observable and may
// go negative, one unit per blocked waiter.
package sema

import (
	"go.uber.org/atomic"
)

// Semaphore is a counting semaphore. Wait decrements the count and blocks
// while the result is negative; Post increments it and wakes one waiter if the
// count was negative.
//
// Unlike sem_getvalue on Linux, Value reports negative counts: -n means n
// goroutines are blocked in Wait.
type Semaphore struct {
	count atomic.Int32
	// wake carries one token per pending wakeup. Its capacity bounds the number
	// of concurrent waiters, so Post never blocks.
	wake chan struct{}
}

// New constructs a Semaphore with the given initial count that supports up to
// maxWaiters goroutines blocked in Wait at the same time.
func New(initial int32, maxWaiters int) *Semaphore {
	if maxWaiters < 1 {
		maxWaiters = 1
	}
	s := &Semaphore{wake: make(chan struct{}, maxWaiters)}
	s.count.Store(initial)
	return s
}

// Wait decrements the semaphore, blocking until a matching Post if the count
// becomes negative.
func (s *Semaphore) Wait() {
	if s.count.Dec() >= 0 {
		return
	}
	<-s.wake
}

// TryAcquire decrements the count from exactly expected to expected-1. It
// reports whether it did so. It never blocks.
func (s *Semaphore) TryAcquire(expected int32) bool {
	return s.count.CompareAndSwap(expected, expected-1)
}

// Post increments the semaphore, releasing one blocked waiter if there is one.
func (s *Semaphore) Post() {
	if s.count.Inc() <= 0 {
		s.wake <- struct{}{}
	}
}

// Value returns the current count.
func (s *Semaphore) Value() int32 {
	return s.count.Load()
}
