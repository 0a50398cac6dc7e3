package identity

import (
	"sort"
	"sync"

	"github.com/kingrea/newsroom/internal/domain"
)

// EventKind classifies a session change.
type EventKind string

const (
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is a session change notification. Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Session *domain.Session
}

// Listener receives session change events. Listeners run on the publishing
// goroutine and must not block.
type Listener func(Event)

type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) publish(evt Event) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(evt)
	}
}
