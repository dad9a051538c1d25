package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	ai "github.com/smartsource/agentloop"
)

// ThreadStore keeps per-thread conversation history.
//
// History is append-only and ordered: messages are returned in the order
// they were appended, and an append is visible to every subsequent read of
// the same thread. Unknown thread ids are created lazily with empty history
// rather than rejected.
//
// Writes go through to the configured Adapter so threads survive restarts
// when a persistent adapter is used; a warm in-process cache serves reads.
type ThreadStore struct {
	adapter Adapter

	mu    sync.RWMutex
	cache map[string][]ai.Message

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewThreadStore creates a thread store backed by the given adapter.
// A nil adapter falls back to in-memory storage.
func NewThreadStore(adapter Adapter) *ThreadStore {
	if adapter == nil {
		adapter = NewMemoryAdapter()
	}
	return &ThreadStore{
		adapter: adapter,
		cache:   make(map[string][]ai.Message),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Create allocates a new thread with empty history and returns its id.
func (s *ThreadStore) Create(ctx context.Context) (string, error) {
	id := uuid.New().String()

	if err := s.persist(ctx, id, nil); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cache[id] = nil
	s.mu.Unlock()

	return id, nil
}

// Get returns a copy of the thread's message history in append order.
// Unknown thread ids yield empty history, not an error.
func (s *ThreadStore) Get(ctx context.Context, threadID string) ([]ai.Message, error) {
	s.mu.RLock()
	msgs, ok := s.cache[threadID]
	s.mu.RUnlock()

	if !ok {
		loaded, found, err := s.load(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if found {
			s.mu.Lock()
			s.cache[threadID] = loaded
			s.mu.Unlock()
		}
		msgs = loaded
	}

	out := make([]ai.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Append adds messages to the end of the thread's history and writes the
// updated history through to the adapter. The thread is created lazily if
// it does not exist yet.
func (s *ThreadStore) Append(ctx context.Context, threadID string, msgs ...ai.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	history, ok := s.cache[threadID]
	s.mu.Unlock()

	if !ok {
		loaded, _, err := s.load(ctx, threadID)
		if err != nil {
			return err
		}
		history = loaded
	}

	updated := make([]ai.Message, 0, len(history)+len(msgs))
	updated = append(updated, history...)
	updated = append(updated, msgs...)

	if err := s.persist(ctx, threadID, updated); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[threadID] = updated
	s.mu.Unlock()

	return nil
}

// Has reports whether the thread exists in cache or in the adapter.
func (s *ThreadStore) Has(ctx context.Context, threadID string) (bool, error) {
	s.mu.RLock()
	_, ok := s.cache[threadID]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}
	return s.adapter.Has(ctx, threadID)
}

// Lock acquires the per-thread mutex and returns its unlock function.
// Callers that read history, call the model, and append results should hold
// the lock for the whole exchange so concurrent invocations of the same
// thread serialize instead of overwriting each other.
func (s *ThreadStore) Lock(threadID string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[threadID] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *ThreadStore) load(ctx context.Context, threadID string) ([]ai.Message, bool, error) {
	raw, found, err := s.adapter.Get(ctx, threadID)
	if err != nil {
		return nil, false, fmt.Errorf("store: load thread %s: %w", threadID, err)
	}
	if !found || len(raw) == 0 {
		return nil, found, nil
	}

	var msgs []ai.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false, fmt.Errorf("store: decode thread %s: %w", threadID, err)
	}
	return msgs, true, nil
}

func (s *ThreadStore) persist(ctx context.Context, threadID string, msgs []ai.Message) error {
	if msgs == nil {
		msgs = []ai.Message{}
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("store: encode thread %s: %w", threadID, err)
	}
	if err := s.adapter.Set(ctx, threadID, raw); err != nil {
		return fmt.Errorf("store: persist thread %s: %w", threadID, err)
	}
	return nil
}
