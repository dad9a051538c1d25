package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/smartsource/agentloop"
)

func userMessage(text string) ai.Message {
	return ai.Message{ID: ai.GenerateMessageID(), Role: ai.RoleUser, Content: text}
}

func TestThreadStoreCreate(t *testing.T) {
	ctx := context.Background()
	s := NewThreadStore(nil)

	id, err := s.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ok, err := s.Has(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	msgs, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestThreadStoreAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := NewThreadStore(nil)

	id, err := s.Create(ctx)
	require.NoError(t, err)

	want := []string{"first", "second", "third", "fourth"}
	for _, text := range want {
		require.NoError(t, s.Append(ctx, id, userMessage(text)))
	}

	msgs, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, len(want))
	for i, text := range want {
		assert.Equal(t, text, msgs[i].Content)
	}
}

func TestThreadStoreLazyCreation(t *testing.T) {
	ctx := context.Background()
	s := NewThreadStore(nil)

	t.Run("get unknown thread yields empty history", func(t *testing.T) {
		msgs, err := s.Get(ctx, "never-seen")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("append to unknown thread creates it", func(t *testing.T) {
		require.NoError(t, s.Append(ctx, "fresh-thread", userMessage("hello")))

		msgs, err := s.Get(ctx, "fresh-thread")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hello", msgs[0].Content)
	})
}

func TestThreadStoreWriteThrough(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	s := NewThreadStore(adapter)
	id, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, id, userMessage("persisted")))

	// A fresh store over the same adapter sees the history, so threads
	// survive a process restart with a persistent adapter.
	fresh := NewThreadStore(adapter)
	msgs, err := fresh.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].Content)
}

func TestThreadStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewThreadStore(nil)

	id, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, id, userMessage("original")))

	msgs, err := s.Get(ctx, id)
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}

func TestThreadStoreLockSerializes(t *testing.T) {
	ctx := context.Background()
	s := NewThreadStore(nil)

	id, err := s.Create(ctx)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock(id)
			defer unlock()

			// Read-modify-write under the thread lock; without it these
			// turns would overwrite each other.
			_, err := s.Get(ctx, id)
			assert.NoError(t, err)
			assert.NoError(t, s.Append(ctx, id, userMessage("turn")))
		}()
	}
	wg.Wait()

	msgs, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, workers)
}

func TestMemoryAdapter(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAdapter()

	require.NoError(t, a.Set(ctx, "k1", []byte(`{"v":1}`)))
	require.NoError(t, a.Set(ctx, "k2", []byte(`{"v":2}`)))

	raw, found, err := a.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"v":1}`, string(raw))

	_, found, err = a.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := a.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := a.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"k1", "k2"}, keys)

	require.NoError(t, a.Delete(ctx, "k1"))
	ok, err := a.Has(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Clear(ctx))
	n, err = a.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
