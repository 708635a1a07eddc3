//go:build linux && (amd64 || arm64)

package controls

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// A thread blocked in a system call keeps blocking after the suspend signal
// lands; it parks at the checkpoint that follows the call.
func TestSignalDoesNotInterruptSyscall(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	reads := make(chan int, 1)
	w := startWorker(t, NewRegistry(nil), func(w *worker) {
		buf := make([]byte, 1)
		n, err := unix.Read(fds[0], buf)
		assert.NoError(t, err)
		reads <- n
		w.countingTask()
	}, WithSuspendTimeout(50*time.Millisecond))

	require.ErrorIs(t, w.c.Suspend(context.Background()), ErrSuspendTimeout)
	require.Empty(t, reads)
	requireIdle(t, w.c)

	_, err := unix.Write(fds[1], []byte{1})
	require.NoError(t, err)
	require.Equal(t, 1, <-reads)

	require.NoError(t, w.c.Suspend(context.Background()))
	require.Equal(t, PhaseParked, w.c.Phase())
	require.NoError(t, w.c.Resume())
}
