package cart

import "sync"

// Listener receives every Snapshot in revision order. It runs with no store
// lock held, usually on the goroutine that made the change; under contention
// another changing goroutine may deliver it. Listeners may read the store and
// may change the cart, in which case the new snapshot is delivered after the
// current listeners return. They must not call Hydrate, Refresh or Close.
type Listener func(Snapshot)

type subscription struct {
	id uint64
	fn Listener
}

// Subscribe registers l and returns a function that removes it. The returned
// function is safe to call more than once.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) deliver(snap Snapshot) {
	s.listenersMu.RLock()
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.listenersMu.RUnlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}
