// Package stream delivers ordered text fragments from a producing agent
// invocation to a single consumer.
//
// A Stream is lazy, finite, and not restartable: fragments are handed over
// one at a time on an unbuffered channel, so the producer runs no further
// ahead than the consumer has read. Closing the stream from the consumer
// side cancels the producer.
package stream

import (
	"context"
	"sync"
)

// Stream carries the ordered text fragments of one streaming invocation.
type Stream struct {
	threadID string
	ch       chan string
	done     chan struct{}
	endOnce  sync.Once
	doneOnce sync.Once
	cancel   context.CancelFunc
}

// New creates a stream for the given thread. The cancel function, if any,
// is invoked when the consumer closes the stream.
func New(threadID string, cancel context.CancelFunc) *Stream {
	return &Stream{
		threadID: threadID,
		ch:       make(chan string),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
}

// ThreadID returns the id of the thread this stream belongs to.
func (s *Stream) ThreadID() string {
	return s.threadID
}

// Push hands a fragment to the consumer, blocking until it is taken.
// It returns false once the consumer has closed the stream; the producer
// should stop generating when that happens.
func (s *Stream) Push(fragment string) bool {
	select {
	case s.ch <- fragment:
		return true
	case <-s.done:
		return false
	}
}

// Fail delivers exactly one error description fragment and ends the stream.
func (s *Stream) Fail(description string) {
	s.Push(description)
	s.End()
}

// End marks the fragment sequence complete. Safe to call more than once.
func (s *Stream) End() {
	s.endOnce.Do(func() {
		close(s.ch)
	})
}

// Next returns the next fragment in order, blocking until one is available.
// It returns false when the sequence has ended.
func (s *Stream) Next() (string, bool) {
	fragment, ok := <-s.ch
	return fragment, ok
}

// C returns the fragment channel for select-based consumption.
// The channel is closed when the sequence ends.
func (s *Stream) C() <-chan string {
	return s.ch
}

// Close abandons the stream from the consumer side and cancels the
// producer, stopping any further remote calls. Safe to call more than once.
func (s *Stream) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Collect drains the stream and returns the concatenated fragments.
func (s *Stream) Collect() string {
	var out string
	for fragment := range s.ch {
		out += fragment
	}
	return out
}
