package socket

import "sync"

// Status is the observable connected/disconnected state of a Socket.
// Transitions are driven only by the socket; any number of readers may
// query or watch it.
type Status struct {
	mu        sync.Mutex
	connected bool
	nextID    uint64
	watchers  []statusWatcher
}

type statusWatcher struct {
	id uint64
	fn func(connected bool)
}

// Connected reports the current state.
func (s *Status) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Watch calls fn with the current state and again on every change.
// The returned function stops the notifications.
func (s *Status) Watch(fn func(connected bool)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, statusWatcher{id: id, fn: fn})
	current := s.connected
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, w := range s.watchers {
				if w.id == id {
					s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

// set updates the state and notifies watchers if it changed.
func (s *Status) set(connected bool) {
	s.mu.Lock()
	if s.connected == connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected
	watchers := make([]statusWatcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	for _, w := range watchers {
		w.fn(connected)
	}
}
