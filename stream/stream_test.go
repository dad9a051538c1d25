package stream

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamOrderedDelivery(t *testing.T) {
	s := New("thread-1", nil)

	go func() {
		s.Push("hello ")
		s.Push("wor")
		s.Push("ld")
		s.End()
	}()

	var got []string
	for {
		fragment, ok := s.Next()
		if !ok {
			break
		}
		got = append(got, fragment)
	}
	assert.Equal(t, []string{"hello ", "wor", "ld"}, got)
}

func TestStreamThreadID(t *testing.T) {
	s := New("thread-42", nil)
	assert.Equal(t, "thread-42", s.ThreadID())
}

func TestStreamPushAfterClose(t *testing.T) {
	s := New("thread-1", nil)
	s.Close()

	assert.False(t, s.Push("ignored"))
}

func TestStreamPushBlocksUntilConsumed(t *testing.T) {
	s := New("thread-1", nil)

	var pushed atomic.Bool
	go func() {
		s.Push("fragment")
		pushed.Store(true)
		s.End()
	}()

	// The producer cannot complete the push before the consumer reads.
	time.Sleep(10 * time.Millisecond)
	assert.False(t, pushed.Load())

	fragment, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "fragment", fragment)
}

func TestStreamFail(t *testing.T) {
	s := New("thread-1", nil)

	go s.Fail("I encountered an error: boom")

	fragment, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "I encountered an error: boom", fragment)

	_, ok = s.Next()
	assert.False(t, ok)
}

func TestStreamEndIdempotent(t *testing.T) {
	s := New("thread-1", nil)

	assert.NotPanics(t, func() {
		s.End()
		s.End()
	})

	_, ok := s.Next()
	assert.False(t, ok)
}

func TestStreamCloseCancelsProducer(t *testing.T) {
	var cancelled atomic.Bool
	s := New("thread-1", func() { cancelled.Store(true) })

	s.Close()
	assert.True(t, cancelled.Load())

	// Close is safe to repeat and cancels only once.
	assert.NotPanics(t, s.Close)
}

func TestStreamCollect(t *testing.T) {
	s := New("thread-1", nil)

	go func() {
		s.Push("a")
		s.Push("b")
		s.Push("c")
		s.End()
	}()

	assert.Equal(t, "abc", s.Collect())
}
