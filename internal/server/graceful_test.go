package server

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockCloser struct {
	closed bool
}

func (m *mockCloser) Close() error {
	m.closed = true
	return nil
}

// runShutdown starts the signal loop, triggers a manual shutdown, and waits
// for completion.
func runShutdown(t *testing.T, gs *GracefulShutdown) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		gs.Start()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	gs.Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete in time")
	}
}

func TestShutdownFunc(t *testing.T) {
	called := false
	fn := NewShutdownFunc("test", func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.Equal(t, "test", fn.Name())
	require.NoError(t, fn.Shutdown(context.Background()))
	assert.True(t, called)
}

func TestShutdownFuncError(t *testing.T) {
	fn := NewShutdownFunc("failing", func(ctx context.Context) error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, fn.Shutdown(context.Background()))
}

func TestShutdownRunsAllComponents(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	record := func(name string) *ShutdownFunc {
		return NewShutdownFunc(name, func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name)
			return nil
		})
	}

	gs := New(Config{
		Server:          &http.Server{Addr: ":0"},
		Logger:          zaptest.NewLogger(t),
		Shutdownables:   []Shutdownable{record("db"), record("redis")},
		ShutdownTimeout: 5 * time.Second,
	})
	gs.AddShutdownFunc("tracer", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, "tracer")
		return nil
	})

	runShutdown(t, gs)

	// Components shut down concurrently; only membership is guaranteed.
	assert.ElementsMatch(t, []string{"db", "redis", "tracer"}, calls)
}

func TestShutdownTimesOutSlowComponent(t *testing.T) {
	slow := NewShutdownFunc("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	gs := New(Config{
		Server:          &http.Server{Addr: ":0"},
		Logger:          zaptest.NewLogger(t),
		Shutdownables:   []Shutdownable{slow},
		ShutdownTimeout: 100 * time.Millisecond,
	})

	start := time.Now()
	runShutdown(t, gs)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestShutdownContinuesPastComponentError(t *testing.T) {
	okCalled := false
	gs := New(Config{
		Server: &http.Server{Addr: ":0"},
		Logger: zaptest.NewLogger(t),
		Shutdownables: []Shutdownable{
			NewShutdownFunc("error", func(ctx context.Context) error { return assert.AnError }),
			NewShutdownFunc("ok", func(ctx context.Context) error { okCalled = true; return nil }),
		},
		ShutdownTimeout: time.Second,
	})

	runShutdown(t, gs)
	assert.True(t, okCalled)
}

func TestStartWithContext(t *testing.T) {
	gs := New(Config{
		Server: &http.Server{Addr: ":0"},
		Logger: zaptest.NewLogger(t),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		gs.StartWithContext(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StartWithContext did not return on context cancellation")
	}
}

func TestDefaultShutdownTimeout(t *testing.T) {
	gs := New(Config{
		Server: &http.Server{Addr: ":0"},
		Logger: zaptest.NewLogger(t),
	})
	assert.Equal(t, 30*time.Second, gs.shutdownTimeout)
}

func TestHelpers(t *testing.T) {
	t.Run("CloseDB", func(t *testing.T) {
		db := &mockCloser{}
		s := CloseDB(db)
		assert.Equal(t, "database", s.Name())
		require.NoError(t, s.Shutdown(context.Background()))
		assert.True(t, db.closed)
	})

	t.Run("CloseRedis", func(t *testing.T) {
		rdb := &mockCloser{}
		s := CloseRedis(rdb)
		assert.Equal(t, "redis", s.Name())
		require.NoError(t, s.Shutdown(context.Background()))
		assert.True(t, rdb.closed)
	})

	t.Run("CloseTracer", func(t *testing.T) {
		called := false
		s := CloseTracer(func(ctx context.Context) error { called = true; return nil })
		assert.Equal(t, "tracer", s.Name())
		require.NoError(t, s.Shutdown(context.Background()))
		assert.True(t, called)
	})
}
