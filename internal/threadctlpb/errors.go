package threadctlpb

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is the errdetails.ErrorInfo domain of ThreadControl errors.
const ErrorDomain = "threadctl.side-eye.io"

// Reason classifies a failed ThreadControl call. It travels in the
// errdetails.ErrorInfo attached to the status.
type Reason string

const (
	ReasonUnknown        Reason = ""
	ReasonThreadMissing  Reason = "THREAD_MISSING"
	ReasonInvalidID      Reason = "INVALID_THREAD_ID"
	ReasonNotRunning     Reason = "NOT_RUNNING"
	ReasonNotSuspended   Reason = "NOT_SUSPENDED"
	ReasonSuspendTimeout Reason = "SUSPEND_TIMEOUT"
	ReasonCaptureFailed  Reason = "CAPTURE_FAILED"
	ReasonSignalFailed   Reason = "SIGNAL_FAILED"
	ReasonMisc           Reason = "MISC"
)

// NewError builds a status error carrying reason.
func NewError(code codes.Code, reason Reason, msg string) error {
	s := status.New(code, msg)
	if reason == ReasonUnknown {
		return s.Err()
	}
	withDetails, err := s.WithDetails(&errdetails.ErrorInfo{
		Reason: string(reason),
		Domain: ErrorDomain,
	})
	if err != nil {
		return s.Err()
	}
	return withDetails.Err()
}

// ReasonOf extracts the Reason attached to a status by NewError.
func ReasonOf(s *status.Status) Reason {
	for _, d := range s.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return Reason(info.GetReason())
		}
	}
	return ReasonUnknown
}
