//go:build !(linux && (amd64 || arm64))

package suspendsig

import "syscall"

// Signal is the signal that would be sent on supported platforms.
const Signal = syscall.Signal(0)

// OsArchSupported returns whether the combination of OS and architecture are
// supported.
func OsArchSupported() bool {
	return false
}

// CurrentThreadID returns 0; thread ids are not available.
func CurrentThreadID() int {
	return 0
}

// UnblockOnCurrentThread is a no-op.
func UnblockOnCurrentThread() error {
	return nil
}

// Deliver is a no-op. Targets are only stopped at checkpoints.
func Deliver(tid int) error {
	return nil
}
