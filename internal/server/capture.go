package server

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/DataExMachina-dev/side-eye-threads/internal/threadctlpb"
	"github.com/DataExMachina-dev/side-eye-threads/threadctl"
)

// stackCapturer coalesces concurrent stack captures of the same thread: while
// one caller has the thread suspended, others wait for its result instead of
// failing with ErrNotRunning.
type stackCapturer struct {
	g singleflight.Group
}

func newStackCapturer() *stackCapturer {
	return &stackCapturer{}
}

// Capture returns once the shared capture finished or ctx is done. The shared
// capture is detached from any one caller's cancellation and is bounded by
// the thread's suspend timeout instead.
func (s *stackCapturer) Capture(ctx context.Context, t *threadctl.Thread) (threadctlpb.Context, error) {
	ch := s.g.DoChan(t.ID().String(), func() (interface{}, error) {
		c, err := t.CaptureStack(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return contextInfo(t, c), nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return threadctlpb.Context{}, res.Err
		}
		return res.Val.(threadctlpb.Context), nil
	case <-ctx.Done():
		return threadctlpb.Context{}, ctx.Err()
	}
}
