// Package execctx contains the execution context captured on a managed thread
// when it parks for a suspend request.
package execctx

import (
	"errors"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/minio/highwayhash"
)

// MaxDepth is the maximum number of program counters recorded per capture.
const MaxDepth = 64

// ErrEmptyStack is returned by Capture when the runtime reported no frames.
var ErrEmptyStack = errors.New("no frames captured")

// Context is a fixed-size snapshot of a thread's execution state. Capture
// writes into an existing Context and does not allocate, so it can be embedded
// in long-lived per-thread state.
type Context struct {
	Goid       int64
	Tid        int
	CapturedAt time.Time

	depth int
	pcs   [MaxDepth]uintptr
}

// Capture records the calling goroutine's stack into c. skip is the number of
// frames to omit above Capture's caller, as for runtime.Callers.
//
//go:noinline
func (c *Context) Capture(skip int, goid int64, tid int) error {
	// +2 skips runtime.Callers and Capture itself.
	n := runtime.Callers(skip+2, c.pcs[:])
	if n == 0 {
		c.depth = 0
		return ErrEmptyStack
	}
	c.depth = n
	c.Goid = goid
	c.Tid = tid
	c.CapturedAt = time.Now()
	return nil
}

// Reset clears the snapshot.
func (c *Context) Reset() {
	*c = Context{}
}

// Valid reports whether c holds a snapshot.
func (c *Context) Valid() bool {
	return c.depth > 0
}

// Depth returns the number of recorded program counters.
func (c *Context) Depth() int {
	return c.depth
}

// PCs returns the recorded program counters. The slice aliases c.
func (c *Context) PCs() []uintptr {
	return c.pcs[:c.depth]
}

// PC returns the innermost recorded program counter, or 0.
func (c *Context) PC() uintptr {
	if c.depth == 0 {
		return 0
	}
	return c.pcs[0]
}

var digestKey = [32]byte{}

// Digest returns a HighwayHash-64 of the recorded program counters. Two
// captures of the same stack have the same digest.
func (c *Context) Digest() uint64 {
	if c.depth == 0 {
		return 0
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&c.pcs[0])), uintptr(c.depth)*unsafe.Sizeof(uintptr(0)))
	return highwayhash.Sum64(b, digestKey[:])
}

// Frame is a symbolized program counter. As with runtime.Frame, PC is the
// raw return address minus one, so it falls inside the calling instruction.
// It does not equal the value returned by Context.PC or listed by PCs.
type Frame struct {
	PC       uintptr
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s\n\t%s:%d", f.Function, f.File, f.Line)
}

// Frames symbolizes the snapshot. It allocates and must not be called on the
// parked thread.
func (c *Context) Frames() []Frame {
	if c.depth == 0 {
		return nil
	}
	frames := runtime.CallersFrames(c.PCs())
	out := make([]Frame, 0, c.depth)
	for {
		f, more := frames.Next()
		out = append(out, Frame{PC: f.PC, Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return out
}
