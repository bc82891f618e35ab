package cart

import (
	"context"
	"sync"
)

// Serializer runs functions one at a time per key. Different keys proceed
// independently. Waiting honours context cancellation.
type Serializer struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewSerializer creates an empty Serializer.
func NewSerializer() *Serializer {
	return &Serializer{slots: make(map[string]*slot)}
}

// Do waits for key to be free, then runs fn. If ctx ends first, fn is not
// run and ctx.Err() is returned.
func (s *Serializer) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	sl := s.acquire(key)
	defer s.release(key, sl)

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sl.ch }()

	return fn(ctx)
}

func (s *Serializer) acquire(key string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		s.slots[key] = sl
	}
	sl.refs++
	return sl
}

func (s *Serializer) release(key string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, key)
	}
}

// Pending returns the number of keys with a running or waiting function.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
