package agentconn

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/DataExMachina-dev/side-eye-threads/internal/threadctlpb"
	"github.com/DataExMachina-dev/side-eye-threads/threadctl"
)

func dialBuf(t *testing.T, lis *bufconn.Listener) threadctlpb.ThreadControlClient {
	t.Helper()
	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return threadctlpb.NewThreadControlClient(conn)
}

func TestStartServesManager(t *testing.T) {
	m := threadctl.NewManager()
	stop := make(chan struct{})
	th, err := threadctl.Go(func(*threadctl.Thread) { <-stop }, threadctl.WithManager(m))
	require.NoError(t, err)
	defer func() {
		close(stop)
		th.Wait()
	}()

	lis := bufconn.Listen(1 << 20)
	c := NewConn()
	require.Equal(t, Uninitialized, c.Status())
	require.Nil(t, c.Addr())

	cfg := MakeDefaultConfig()
	cfg.Listener = lis
	cfg.Manager = m
	cfg.Logger = zaptest.NewLogger(t)
	require.NoError(t, c.Start(cfg))
	defer c.Close()
	require.Equal(t, Serving, c.Status())
	require.Equal(t, lis.Addr(), c.Addr())
	require.Contains(t, c.ProcessFingerprint(), c.Fingerprint().String())

	res, err := dialBuf(t, lis).ListThreads(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	p, err := threadctlpb.ProcessFromStruct(res)
	require.NoError(t, err)
	require.Equal(t, c.Fingerprint().String(), p.Fingerprint)
	require.Len(t, p.Threads, 1)
	require.Equal(t, th.ID().String(), p.Threads[0].ID)

	c.Close()
	require.Equal(t, Uninitialized, c.Status())
	// Closing twice is a no-op.
	c.Close()
}

func TestRestartChangesFingerprint(t *testing.T) {
	c := NewConn()
	cfg := MakeDefaultConfig()
	cfg.Manager = threadctl.NewManager()
	cfg.ListenAddr = "127.0.0.1:0"

	require.NoError(t, c.Start(cfg))
	first := c.Fingerprint()
	addr := c.Addr()
	require.NotNil(t, addr)

	require.NoError(t, c.Start(cfg))
	defer c.Close()
	require.NotEqual(t, first, c.Fingerprint())
	require.Equal(t, Serving, c.Status())
}

func TestListenerFailure(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	errs := make(chan error, 1)
	c := NewConn()
	cfg := MakeDefaultConfig()
	cfg.Listener = lis
	cfg.Manager = threadctl.NewManager()
	cfg.ErrorLogger = func(err error) { errs <- err }
	require.NoError(t, c.Start(cfg))
	defer c.Close()

	require.NoError(t, lis.Close())
	select {
	case err := <-errs:
		require.ErrorContains(t, err, "failed to serve")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not report the closed listener")
	}
	require.Eventually(t, func() bool {
		return c.Status() == Failed
	}, 5*time.Second, time.Millisecond)
}

func TestMissingManager(t *testing.T) {
	c := NewConn()
	cfg := MakeDefaultConfig()
	cfg.Manager = nil
	require.ErrorContains(t, c.Start(cfg), "missing thread manager")
	require.Equal(t, Uninitialized, c.Status())
}

func TestListenAddrFromEnv(t *testing.T) {
	t.Setenv(ENV_LISTEN_ADDR, "127.0.0.1:4242")
	require.Equal(t, "127.0.0.1:4242", MakeDefaultConfig().ListenAddr)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "serving", Serving.String())
	require.Equal(t, "unknown", Status(99).String())
}
