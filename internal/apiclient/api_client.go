package apiclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/DataExMachina-dev/side-eye-threads/internal/threadctlpb"
)

const ENV_AGENT_URL = "SIDE_EYE_THREADS_AGENT_URL"

type APIClient struct {
	conn   *grpc.ClientConn
	client threadctlpb.ThreadControlClient
}

// NewAPIClient creates a new APIClient for talking to the agent at agentURL,
// an http:// or https:// URL. extra dial options are appended to the ones
// derived from the URL.
//
// Close() needs to be called on the client when it is no longer needed to
// release resources.
func NewAPIClient(agentURL string, extra ...grpc.DialOption) (*APIClient, error) {
	// Turn the URL into a gRPC address.
	parsed, err := url.Parse(agentURL)
	if err != nil {
		return nil, err
	}
	var grpcAddress string
	var dialOpts []grpc.DialOption
	switch parsed.Scheme {
	case "http":
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		ip := net.ParseIP(parsed.Hostname())
		if ip != nil && parsed.Port() != "" {
			grpcAddress = net.JoinHostPort(ip.String(), parsed.Port())
		} else if ip != nil {
			grpcAddress = ip.String()
		} else {
			grpcAddress = fmt.Sprintf("dns:///%s", parsed.Host)
		}
	case "https":
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
		grpcAddress = fmt.Sprintf("dns:///%s", parsed.Host)
	default:
		return nil, fmt.Errorf("unsupported agent URL scheme %q", parsed.Scheme)
	}
	dialOpts = append(dialOpts, extra...)

	grpcClient, err := grpc.Dial(grpcAddress, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the thread control agent: %w", err)
	}
	client := threadctlpb.NewThreadControlClient(grpcClient)
	return &APIClient{conn: grpcClient, client: client}, nil
}

// Close closes the client's network connection.
func (c *APIClient) Close() {
	_ /* err */ = c.conn.Close()
}

func (c *APIClient) ListThreads(ctx context.Context) (threadctlpb.Process, error) {
	res, err := c.client.ListThreads(ctx, &emptypb.Empty{})
	if err != nil {
		return threadctlpb.Process{}, convertError(uuid.Nil, err)
	}
	return threadctlpb.ProcessFromStruct(res)
}

func (c *APIClient) Suspend(ctx context.Context, id uuid.UUID) (threadctlpb.Context, error) {
	res, err := c.client.Suspend(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return threadctlpb.Context{}, convertError(id, err)
	}
	return threadctlpb.ContextFromStruct(res)
}

func (c *APIClient) Resume(ctx context.Context, id uuid.UUID) error {
	if _, err := c.client.Resume(ctx, wrapperspb.String(id.String())); err != nil {
		return convertError(id, err)
	}
	return nil
}

func (c *APIClient) CaptureStack(ctx context.Context, id uuid.UUID) (threadctlpb.Context, error) {
	res, err := c.client.CaptureStack(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return threadctlpb.Context{}, convertError(id, err)
	}
	return threadctlpb.ContextFromStruct(res)
}

// convertError recognizes the reasons attached by the agent and turns them
// into typed errors.
func convertError(id uuid.UUID, err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch threadctlpb.ReasonOf(s) {
	case threadctlpb.ReasonThreadMissing:
		return ThreadMissingError{ThreadID: id}
	case threadctlpb.ReasonNotRunning:
		return NotRunningError{ThreadID: id, msg: s.Message()}
	case threadctlpb.ReasonNotSuspended:
		return NotSuspendedError{ThreadID: id}
	case threadctlpb.ReasonSuspendTimeout:
		return SuspendTimeoutError{ThreadID: id, msg: s.Message()}
	case threadctlpb.ReasonCaptureFailed:
		return CaptureFailedError{ThreadID: id, msg: s.Message()}
	}
	switch s.Code() {
	case codes.Unavailable:
		return fmt.Errorf("failed to connect to thread control agent: %w", err)
	}
	return err
}

// ThreadMissingError is returned when the agent does not know the thread.
// Threads disappear from the agent once their task returns.
type ThreadMissingError struct {
	ThreadID uuid.UUID
}

var _ error = ThreadMissingError{}

func (e ThreadMissingError) Error() string {
	return fmt.Sprintf("thread %s not found", e.ThreadID)
}

// NotRunningError is returned by Suspend when the thread is already suspended
// or being suspended by another controller.
type NotRunningError struct {
	ThreadID uuid.UUID
	msg      string
}

var _ error = NotRunningError{}

func (e NotRunningError) Error() string {
	return e.msg
}

// NotSuspendedError is returned by Resume when the thread is not suspended.
type NotSuspendedError struct {
	ThreadID uuid.UUID
}

var _ error = NotSuspendedError{}

func (e NotSuspendedError) Error() string {
	return fmt.Sprintf("thread %s is not suspended", e.ThreadID)
}

// SuspendTimeoutError is returned when the thread did not reach a checkpoint
// in time. The thread keeps running.
type SuspendTimeoutError struct {
	ThreadID uuid.UUID
	msg      string
}

var _ error = SuspendTimeoutError{}

func (e SuspendTimeoutError) Error() string {
	return e.msg
}

type CaptureFailedError struct {
	ThreadID uuid.UUID
	msg      string
}

var _ error = CaptureFailedError{}

func (e CaptureFailedError) Error() string {
	return e.msg
}
