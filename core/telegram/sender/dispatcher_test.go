package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(context.Background(), 0, "send.text", "sendMessage", func() error {
			ran.Add(1)
			return nil
		}))
	}
	d.Close()

	assert.EqualValues(t, 10, ran.Load())
	assert.EqualValues(t, 10, d.SentCount())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), 0, "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	}))
	d.Close()

	assert.EqualValues(t, 3, calls.Load())
	assert.EqualValues(t, 1, d.SentCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), 0, "send.text", "sendMessage", func() error {
		calls.Add(1)
		return errors.New("telegram: bot was blocked by the user (403)")
	}))
	d.Close()

	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), 0, "a", "b", func() error { return nil }), ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), 0, "a", "b", nil))
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 0, "a", "", func() error { close(started); <-block; return nil }))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 0, "a", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), 0, "a", "", func() error { return nil }), ErrQueueFull)
	close(block)
	d.Close()
}

func TestDispatcherKeepsOrderPerChat(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4})
	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	const chat = int64(-100500)
	require.NoError(t, d.Enqueue(context.Background(), chat, "send.text", "sendMessage", func() error {
		time.Sleep(50 * time.Millisecond)
		record("prompt 1")
		return nil
	}))
	require.NoError(t, d.Enqueue(context.Background(), chat, "send.text", "sendMessage", func() error {
		record("prompt 2")
		return nil
	}))
	d.Close()

	assert.Equal(t, []string{"prompt 1", "prompt 2"}, order)
}

func TestDispatcherChatsDoNotBlockEachOther(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	block := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 0, "a", "", func() error { <-block; return nil }))

	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "a", "", func() error { close(done); return nil }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job for another chat waited behind a blocked one")
	}
	close(block)
	d.Close()
}

func TestDispatcherEnqueueWait(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 0, "a", "", func() error { close(started); <-block; return nil }))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 0, "a", "", func() error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.EnqueueWait(ctx, 0, "a", "", func() error { return nil }), ErrQueueFull)

	var ran atomic.Bool
	accepted := make(chan error, 1)
	go func() {
		accepted <- d.EnqueueWait(context.Background(), 0, "a", "", func() error { ran.Store(true); return nil })
	}()
	close(block)
	require.NoError(t, <-accepted)
	d.Close()
	assert.True(t, ran.Load())
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{&net.OpError{Op: "read", Err: errors.New("reset")}, "network"},
		{&net.DNSError{Err: "no such host"}, "dns"},
		{errors.New("telegram: chat not found (400)"), "http_4xx"},
		{errors.New("telegram: internal (502)"), "http_5xx"},
		{errors.New("telegram: too many requests (429)"), "flood"},
		{fmt.Errorf("wrap: %w", errors.New("weird")), "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyError(tc.err), "%v", tc.err)
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendPhoto": dial tcp`)
	got := SanitizeError(err)
	assert.NotContains(t, got, "123456:AA-bb_cc")
	assert.Contains(t, got, "bot<redacted>/sendPhoto")
}
