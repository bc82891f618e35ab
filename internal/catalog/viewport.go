package catalog

import "sync"

// Trigger emits a signal whenever the end of the rendered list comes into
// view. The detection mechanism lives outside this package.
type Trigger interface {
	// Subscribe returns a channel of signals and a function that stops
	// delivery. No signal is sent on the channel after unsubscribe returns.
	Subscribe() (signals <-chan struct{}, unsubscribe func())
}

// Signal is a Trigger fired by hand (a key press, a scroll callback, a test).
// Bursts coalesce: a subscriber that has not drained its last signal does
// not receive another.
type Signal struct {
	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

// NewSignal creates a Signal with no subscribers.
func NewSignal() *Signal {
	return &Signal{subs: make(map[chan struct{}]struct{})}
}

func (s *Signal) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				// Drop an undelivered signal so nothing is read after teardown.
				select {
				case <-ch:
				default:
				}
				close(ch)
			}
		})
	}
}

// Fire delivers one signal to every subscriber without blocking.
func (s *Signal) Fire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Signal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close ends every subscription. Later subscribers get a closed channel.
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
