package agent_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/DataExMachina-dev/side-eye-threads/agent"
	"github.com/DataExMachina-dev/side-eye-threads/internal/threadctlpb"
	"github.com/DataExMachina-dev/side-eye-threads/threadctl"
)

func TestInitServesThreads(t *testing.T) {
	m := threadctl.NewManager()
	stop := make(chan struct{})
	th, err := threadctl.Go(func(self *threadctl.Thread) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			self.Checkpoint()
		}
	}, threadctl.WithManager(m), threadctl.WithName("served"))
	require.NoError(t, err)
	defer func() {
		close(stop)
		th.Wait()
	}()

	lis := bufconn.Listen(1 << 20)
	require.NoError(t, agent.Init(context.Background(),
		agent.WithListener(lis),
		agent.WithManager(m),
		agent.WithLogger(zaptest.NewLogger(t))))
	defer agent.Stop()
	require.Equal(t, agent.Serving, agent.CurrentStatus())
	require.Equal(t, lis.Addr(), agent.Addr())

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := threadctlpb.NewThreadControlClient(conn)

	res, err := client.ListThreads(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	p, err := threadctlpb.ProcessFromStruct(res)
	require.NoError(t, err)
	require.Len(t, p.Threads, 1)
	require.Equal(t, "served", p.Threads[0].Name)

	res, err = client.CaptureStack(context.Background(), wrapperspb.String(th.ID().String()))
	require.NoError(t, err)
	c, err := threadctlpb.ContextFromStruct(res)
	require.NoError(t, err)
	require.NotEmpty(t, c.Frames)

	agent.Stop()
	require.Equal(t, agent.Uninitialized, agent.CurrentStatus())
	require.Nil(t, agent.Addr())
}

func TestInitCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, agent.Init(ctx), context.Canceled)
	require.Equal(t, agent.Uninitialized, agent.CurrentStatus())
}

func TestHTTPHandler(t *testing.T) {
	defer agent.Stop()
	srv := httptest.NewServer(agent.HTTPHandler())
	defer srv.Close()

	read := func(resp *http.Response, err error) (int, string) {
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, page := read(http.Get(srv.URL))
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, page, "uninitialized")

	code, page = read(http.PostForm(srv.URL, url.Values{
		"start": {"Restart"},
		"addr":  {"127.0.0.1:0"},
	}))
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, page, "serving")
	require.Equal(t, agent.Serving, agent.CurrentStatus())
	require.NotNil(t, agent.Addr())
	require.Contains(t, page, agent.Addr().String())

	code, page = read(http.PostForm(srv.URL, url.Values{"stop": {"Stop"}}))
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, page, "uninitialized")
	require.Equal(t, agent.Uninitialized, agent.CurrentStatus())

	code, _ = read(http.PostForm(srv.URL, url.Values{"start": {"Restart"}}))
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = read(http.PostForm(srv.URL, url.Values{}))
	require.Equal(t, http.StatusBadRequest, code)
}
