// Package suspendsig delivers the suspend signal to managed threads.
//
// The suspend request itself is a flag the target observes at its next
// checkpoint. The signal is sent in addition to nudge the runtime's
// asynchronous preemption of the target and to surface delivery failures,
// such as a thread that no longer exists, to the controller. It does not
// interrupt system calls: the runtime restarts them, so a thread blocked in
// one reaches a checkpoint only after the call returns. SIGURG is used
// because the Go runtime installs a handler for it on every thread and treats
// unsolicited deliveries as no-ops.
package suspendsig

import (
	"errors"
	"fmt"
	"runtime"
)

// PlatformSupported returns an error if signals cannot be delivered to
// individual threads on this platform. Suspend still works without signal
// delivery as long as the target reaches a checkpoint on its own.
func PlatformSupported() error {
	if !OsArchSupported() {
		return fmt.Errorf("%w: %s/%s", ErrUnsupported, runtime.GOOS, runtime.GOARCH)
	}
	return nil
}

// ErrUnsupported is wrapped by PlatformSupported.
var ErrUnsupported = errors.New("thread-directed signals not supported")
