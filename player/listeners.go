package player

import "sync"

// listenerSet is the per-handle registry used by handle implementations.
type listenerSet struct {
	mu      sync.Mutex
	entries map[Event][]listenerEntry
}

func newListenerSet() *listenerSet {
	return &listenerSet{entries: make(map[Event][]listenerEntry)}
}

func (s *listenerSet) add(event Event, id ListenerID, fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[event] {
		if e.id == id {
			return
		}
	}
	s.entries[event] = append(s.entries[event], listenerEntry{id: id, fn: fn})
}

func (s *listenerSet) remove(event Event, id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entries[event]
	for i, e := range entries {
		if e.id == id {
			s.entries[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

func (s *listenerSet) count(event Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[event])
}

// fire calls the listeners for ev.Event in registration order, outside the lock.
func (s *listenerSet) fire(ev EventData) {
	s.mu.Lock()
	entries := append([]listenerEntry(nil), s.entries[ev.Event]...)
	s.mu.Unlock()
	for _, e := range entries {
		e.fn(ev)
	}
}
