//go:build linux && (amd64 || arm64)

package suspendsig

import (
	"golang.org/x/sys/unix"
)

// Signal is the signal sent to a thread when it is asked to suspend.
const Signal = unix.SIGURG

// OsArchSupported returns whether the combination of OS and architecture are
// supported.
func OsArchSupported() bool {
	return true
}

// CurrentThreadID returns the kernel id of the calling OS thread. The caller
// should be locked to its thread for the value to stay meaningful.
func CurrentThreadID() int {
	return unix.Gettid()
}

// UnblockOnCurrentThread removes Signal from the calling thread's signal mask.
func UnblockOnCurrentThread() error {
	var set unix.Sigset_t
	bit := uint(Signal) - 1
	set.Val[bit/64] |= 1 << (bit % 64)
	return unix.PthreadSigmask(unix.SIG_UNBLOCK, &set, nil)
}

// Deliver sends Signal to the thread tid of this process.
func Deliver(tid int) error {
	if tid <= 0 {
		return nil
	}
	return unix.Tgkill(unix.Getpid(), tid, Signal)
}
