package whatsapp

import "sync"

const defaultLedgerCapacity = 1024

// sentLedger remembers the IDs of the last messages the session sent.
// The oldest ID is forgotten once capacity is reached.
type sentLedger struct {
	mu       sync.Mutex
	capacity int
	order    []string
	ids      map[string]struct{}
}

func newSentLedger(capacity int) *sentLedger {
	if capacity <= 0 {
		capacity = defaultLedgerCapacity
	}
	return &sentLedger{capacity: capacity, ids: make(map[string]struct{}, capacity)}
}

func (l *sentLedger) Remember(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; ok {
		return
	}
	if len(l.order) == l.capacity {
		delete(l.ids, l.order[0])
		l.order = l.order[1:]
	}
	l.order = append(l.order, id)
	l.ids[id] = struct{}{}
}

func (l *sentLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}
