package sema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitDoesNotBlockWhenPositive(t *testing.T) {
	s := New(1, 1)
	s.Wait()
	require.Equal(t, int32(0), s.Value())
}

func TestNegativeCountTracksWaiters(t *testing.T) {
	s := New(0, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Wait()
	}()
	require.Eventually(t, func() bool { return s.Value() == -1 }, time.Second, time.Millisecond)

	select {
	case <-done:
		t.Fatal("waiter returned before Post")
	case <-time.After(10 * time.Millisecond):
	}

	s.Post()
	<-done
	require.Equal(t, int32(0), s.Value())
}

func TestPostBeforeWaitIsNotLost(t *testing.T) {
	s := New(-1, 1)
	// A waiter has "decremented" but not yet received; Post must leave a token.
	s.Post()
	select {
	case <-s.wake:
	default:
		t.Fatal("expected a wake token")
	}
}

func TestTryAcquire(t *testing.T) {
	s := New(1, 1)
	require.False(t, s.TryAcquire(0))
	require.True(t, s.TryAcquire(1))
	require.Equal(t, int32(0), s.Value())
	require.False(t, s.TryAcquire(1))
}

func TestDoublePostRestoresIdle(t *testing.T) {
	s := New(1, 1)
	require.True(t, s.TryAcquire(1))
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Wait()
	}()
	require.Eventually(t, func() bool { return s.Value() == -1 }, time.Second, time.Millisecond)
	s.Post()
	s.Post()
	<-done
	require.Equal(t, int32(1), s.Value())
}
