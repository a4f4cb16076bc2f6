package lifecycle

import "sync"

// stayLocks serializes all mutation of a single stay, including hold expiry
// and the branch commands. Entries are refcounted so the map does not grow
// with every stay ever touched.
type stayLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newStayLocks() *stayLocks {
	return &stayLocks{entries: make(map[string]*lockEntry)}
}

// lock acquires the per-stay lock and returns its release function.
func (l *stayLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}
