package controls

import (
	"errors"

	"github.com/DataExMachina-dev/side-eye-threads/internal/metrics"
)

var (
	// ErrNotRunning is returned by Suspend when the target is not executing
	// its task, has already been suspended, or another controller owns the
	// suspend slot.
	ErrNotRunning = errors.New("thread is not running")
	// ErrContextCaptureFailed is returned by Suspend when the target could not
	// snapshot its execution context. The target keeps running.
	ErrContextCaptureFailed = errors.New("failed to capture thread context")
	// ErrSignalDeliveryFailed is returned by Suspend when the suspend signal
	// could not be sent to the target thread.
	ErrSignalDeliveryFailed = errors.New("failed to deliver suspend signal")
	// ErrSuspendTimeout is returned by Suspend when the target did not reach a
	// checkpoint before the deadline. The request is withdrawn.
	ErrSuspendTimeout = errors.New("timed out waiting for thread to suspend")
	// ErrNotSuspended is returned by Resume when there is no completed Suspend
	// to undo.
	ErrNotSuspended = errors.New("thread is not suspended")
	// ErrMisc covers protocol state that could not be interpreted.
	ErrMisc = errors.New("suspend protocol error")
)

// resultLabel maps a protocol error to its metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.SuccessLabel
	case errors.Is(err, ErrNotRunning):
		return metrics.NotRunningLabel
	case errors.Is(err, ErrContextCaptureFailed):
		return metrics.CaptureFailedLabel
	case errors.Is(err, ErrSignalDeliveryFailed):
		return metrics.SignalFailedLabel
	case errors.Is(err, ErrSuspendTimeout):
		return metrics.TimeoutLabel
	case errors.Is(err, ErrNotSuspended):
		return metrics.NotSuspendedLabel
	default:
		return metrics.MiscLabel
	}
}
