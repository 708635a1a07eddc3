// Package threadctlclient controls the managed threads of a remote process
// running the thread control agent.
package threadctlclient

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/DataExMachina-dev/side-eye-threads/internal/apiclient"
	"github.com/DataExMachina-dev/side-eye-threads/internal/threadctlpb"
)

// Client is a client for a thread control agent.
type Client struct {
	client *apiclient.APIClient
}

const (
	ENV_AGENT_URL = apiclient.ENV_AGENT_URL
)

type (
	Process = threadctlpb.Process
	Thread  = threadctlpb.Thread
	Context = threadctlpb.Context
	Frame   = threadctlpb.Frame

	ThreadMissingError  = apiclient.ThreadMissingError
	NotRunningError     = apiclient.NotRunningError
	NotSuspendedError   = apiclient.NotSuspendedError
	SuspendTimeoutError = apiclient.SuspendTimeoutError
	CaptureFailedError  = apiclient.CaptureFailedError
)

// NewClient creates a new Client. WithAgentURL or WithAgentURLFromEnv need to
// be specified as an option to locate the agent.
//
// Close() needs to be called on the client when it is no longer needed to
// release resources.
func NewClient(option ...ClientOption) (*Client, error) {
	opts := clientOpts{}
	for _, o := range option {
		if err := o.apply(&opts); err != nil {
			return nil, err
		}
	}
	if opts.agentURL == "" {
		return nil, fmt.Errorf("missing agent URL: use WithAgentURL or WithAgentURLFromEnv")
	}
	innerClient, err := apiclient.NewAPIClient(opts.agentURL, opts.dialOptions...)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: innerClient,
	}, nil
}

// Close closes the client's network connection.
func (c *Client) Close() {
	c.client.Close()
}

type clientOpts struct {
	agentURL    string
	dialOptions []grpc.DialOption
}

// ClientOption is the interface implemented by options for NewClient.
type ClientOption interface {
	apply(*clientOpts) error
}

// WithAgentURL is a string option for NewClient naming the agent, for example
// "http://127.0.0.1:7777".
type WithAgentURL string

var _ ClientOption = WithAgentURL("")

// apply implements the ClientOption interface.
func (u WithAgentURL) apply(opts *clientOpts) error {
	opts.agentURL = string(u)
	return nil
}

// WithAgentURLFromEnv is an option for NewClient that reads the agent URL from
// the SIDE_EYE_THREADS_AGENT_URL environment variable. If that variable is not
// set, NewClient will return an error.
type WithAgentURLFromEnv struct{}

var _ ClientOption = WithAgentURLFromEnv{}

// apply implements the ClientOption interface.
func (w WithAgentURLFromEnv) apply(opts *clientOpts) error {
	u, ok := os.LookupEnv(ENV_AGENT_URL)
	if !ok {
		return fmt.Errorf("%s environment variable required by WithAgentURLFromEnv is not set", ENV_AGENT_URL)
	}
	opts.agentURL = u
	return nil
}

// WithDialOptions adds gRPC dial options, for example a custom dialer.
func WithDialOptions(dialOpts ...grpc.DialOption) ClientOption {
	return dialOptions(dialOpts)
}

type dialOptions []grpc.DialOption

func (d dialOptions) apply(opts *clientOpts) error {
	opts.dialOptions = append(opts.dialOptions, d...)
	return nil
}

// ListThreads lists the agent's managed threads.
func (c *Client) ListThreads(ctx context.Context) (Process, error) {
	return c.client.ListThreads(ctx)
}

// Suspend parks the thread and returns its execution context. The thread stays
// suspended until Resume.
//
// Besides generic errors, Suspend can return ThreadMissingError,
// NotRunningError, SuspendTimeoutError or CaptureFailedError.
func (c *Client) Suspend(ctx context.Context, id uuid.UUID) (Context, error) {
	return c.client.Suspend(ctx, id)
}

// Resume releases a thread suspended with Suspend.
//
// Besides generic errors, Resume can return ThreadMissingError or
// NotSuspendedError.
func (c *Client) Resume(ctx context.Context, id uuid.UUID) error {
	return c.client.Resume(ctx, id)
}

// CaptureStack suspends the thread, captures its execution context and
// resumes it.
func (c *Client) CaptureStack(ctx context.Context, id uuid.UUID) (Context, error) {
	return c.client.CaptureStack(ctx, id)
}
