package threadctl_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"

	"github.com/DataExMachina-dev/side-eye-threads/threadctl"
)

type counter struct {
	n    atomic.Int64
	stop chan struct{}
}

func newCounter() *counter {
	return &counter{stop: make(chan struct{})}
}

//go:noinline
func (c *counter) run(t *threadctl.Thread) {
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		c.n.Inc()
		t.Checkpoint()
	}
}

func startCounter(t *testing.T, opts ...threadctl.Option) (*threadctl.Thread, *counter) {
	t.Helper()
	c := newCounter()
	m := threadctl.NewManager()
	opts = append([]threadctl.Option{
		threadctl.WithLogger(zaptest.NewLogger(t)),
		threadctl.WithManager(m),
	}, opts...)
	th, err := threadctl.Go(c.run, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if th.State() == threadctl.Suspended {
			_ = th.Resume()
		}
		close(c.stop)
		th.Wait()
	})
	return th, c
}

func TestGoSuspendResume(t *testing.T) {
	th, c := startCounter(t, threadctl.WithName("counter"))
	require.Equal(t, "counter", th.Name())
	require.Equal(t, threadctl.Running, th.State())

	captured, err := th.Suspend(context.Background())
	require.NoError(t, err)
	require.Equal(t, threadctl.Suspended, th.State())
	require.False(t, th.Running())
	require.True(t, captured.Valid())
	require.Equal(t, th.GoroutineID(), captured.Goid)

	stopped := c.n.Load()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, stopped, c.n.Load())

	require.NoError(t, th.Resume())
	require.Eventually(t, func() bool {
		return th.Running() && c.n.Load() > stopped
	}, 5*time.Second, time.Millisecond)
}

func TestSuspendErrorsWrapSentinels(t *testing.T) {
	th, _ := startCounter(t)

	err := th.Resume()
	require.ErrorIs(t, err, threadctl.ErrNotSuspended)

	_, err = th.Suspend(context.Background())
	require.NoError(t, err)
	_, err = th.Suspend(context.Background())
	require.ErrorIs(t, err, threadctl.ErrNotRunning)
	require.NoError(t, th.Resume())
}

func TestCaptureStack(t *testing.T) {
	th, c := startCounter(t)

	captured, err := th.CaptureStack(context.Background())
	require.NoError(t, err)
	var found bool
	for _, f := range captured.Frames() {
		if strings.Contains(f.Function, "(*counter).run") {
			found = true
		}
	}
	require.True(t, found)

	before := c.n.Load()
	require.Eventually(t, func() bool {
		return c.n.Load() > before
	}, 5*time.Second, time.Millisecond)
}

func TestResumeReturnsRunningThread(t *testing.T) {
	th, _ := startCounter(t)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		_, err := th.Suspend(ctx)
		require.NoError(t, err, "cycle %d", i)
		require.NoError(t, th.Resume(), "cycle %d", i)
		require.Equal(t, threadctl.Running, th.State())
		require.True(t, th.Running())
	}
	for i := 0; i < 50; i++ {
		_, err := th.CaptureStack(ctx)
		require.NoError(t, err, "capture %d", i)
	}
}

func TestPackageCheckpointAndCurrent(t *testing.T) {
	stop := make(chan struct{})
	self := make(chan *threadctl.Thread, 1)
	m := threadctl.NewManager()
	th, err := threadctl.Go(func(_ *threadctl.Thread) {
		self <- threadctl.Current()
		for {
			select {
			case <-stop:
				return
			default:
			}
			threadctl.Checkpoint()
		}
	}, threadctl.WithManager(m))
	require.NoError(t, err)
	require.Same(t, th, <-self)
	require.Nil(t, threadctl.Current())
	// Not a managed thread: no-op.
	threadctl.Checkpoint()

	_, err = th.Suspend(context.Background())
	require.NoError(t, err)
	require.NoError(t, th.Resume())

	close(stop)
	th.Wait()
	require.Equal(t, threadctl.Exited, th.State())
	_, err = th.Suspend(context.Background())
	require.ErrorIs(t, err, threadctl.ErrNotRunning)
}

func TestSuspendTimeoutOption(t *testing.T) {
	release := make(chan struct{})
	m := threadctl.NewManager()
	th, err := threadctl.Go(func(self *threadctl.Thread) {
		<-release
		self.Checkpoint()
	}, threadctl.WithManager(m), threadctl.WithSuspendTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = th.Suspend(context.Background())
	require.ErrorIs(t, err, threadctl.ErrSuspendTimeout)
	require.Equal(t, threadctl.Running, th.State())

	close(release)
	th.Wait()
}

func TestSuspendTimeoutFromEnv(t *testing.T) {
	t.Setenv(threadctl.ENV_SUSPEND_TIMEOUT, "15ms")
	release := make(chan struct{})
	th, err := threadctl.Go(func(*threadctl.Thread) {
		<-release
	}, threadctl.WithManager(threadctl.NewManager()))
	require.NoError(t, err)
	defer func() {
		close(release)
		th.Wait()
	}()

	start := time.Now()
	_, err = th.Suspend(context.Background())
	require.ErrorIs(t, err, threadctl.ErrSuspendTimeout)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestManagerTracksLiveThreads(t *testing.T) {
	m := threadctl.NewManager()
	stop := make(chan struct{})
	var threads []*threadctl.Thread
	for i := 0; i < 3; i++ {
		th, err := threadctl.Go(func(*threadctl.Thread) { <-stop }, threadctl.WithManager(m))
		require.NoError(t, err)
		threads = append(threads, th)
	}
	require.Equal(t, 3, m.Len())
	require.ElementsMatch(t, threads, m.List())
	for _, th := range threads {
		got, ok := m.Lookup(th.ID())
		require.True(t, ok)
		require.Same(t, th, got)
	}
	_, ok := m.Lookup(uuid.New())
	require.False(t, ok)

	close(stop)
	for _, th := range threads {
		th.Wait()
	}
	require.Equal(t, 0, m.Len())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "suspended", threadctl.Suspended.String())
	require.Equal(t, "State(42)", threadctl.State(42).String())
}

func TestDebugPage(t *testing.T) {
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
	}, threadctl.WithManager(m), threadctl.WithName("page-worker"))
	require.NoError(t, err)
	defer func() {
		if th.State() == threadctl.Suspended {
			_ = th.Resume()
		}
		close(stop)
		th.Wait()
	}()

	srv := httptest.NewServer(threadctl.DebugMux(m, prometheus.NewRegistry(), zaptest.NewLogger(t)))
	defer srv.Close()

	read := func(resp *http.Response, err error) (int, string) {
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}
	post := func(form url.Values) (int, string) {
		return read(http.PostForm(srv.URL+"/threads", form))
	}

	code, page := read(http.Get(srv.URL + "/threads"))
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, page, "page-worker")
	require.Contains(t, page, `name="suspend"`)

	code, page = post(url.Values{"suspend": {th.ID().String()}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, threadctl.Suspended, th.State())
	require.Contains(t, page, `name="resume"`)
	require.Contains(t, page, "<pre>")

	code, page = post(url.Values{"resume": {th.ID().String()}})
	require.Equal(t, http.StatusOK, code)
	require.NotContains(t, page, "<pre>")
	require.Eventually(t, th.Running, 5*time.Second, time.Millisecond)

	// Resuming a running thread reports the failure on the page.
	code, page = post(url.Values{"resume": {th.ID().String()}})
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, page, "not suspended")

	code, _ = post(url.Values{"resume": {"not-a-uuid"}})
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = post(url.Values{"suspend": {uuid.NewString()}})
	require.Equal(t, http.StatusNotFound, code)
	code, _ = post(url.Values{})
	require.Equal(t, http.StatusBadRequest, code)

	code, page = read(http.Get(srv.URL + "/metrics"))
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, page, "side_eye_threads_suspend_total")
}
