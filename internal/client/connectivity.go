// ABOUTME: Connectivity stream: a behavior-subject style boolean multicast
// ABOUTME: New subscribers see the current value immediately, then every transition

package client

import "sync"

// connectivityBuffer bounds each watcher channel. A full watcher drops
// intermediate values but the channel always ends on the latest state once
// drained.
const connectivityBuffer = 32

type connectivity struct {
	mu       sync.Mutex
	current  bool
	watchers map[int]chan bool
	next     int
}

func newConnectivity() *connectivity {
	return &connectivity{watchers: make(map[int]chan bool)}
}

// watch registers a subscriber. The current value is queued immediately so
// it is visible without waiting for the next transition.
func (s *connectivity) watch() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan bool, connectivityBuffer)
	ch <- s.current
	s.watchers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[id]; !ok {
			return
		}
		delete(s.watchers, id)
		close(ch)
	}
	return ch, cancel
}

// set records the new value and multicasts it to every watcher. Called
// synchronously on every state transition, including repeated false values
// during reconnection attempts.
func (s *connectivity) set(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = v
	for _, ch := range s.watchers {
		select {
		case ch <- v:
		default:
		}
	}
}
