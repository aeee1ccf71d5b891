package navigator

import "sync"

// Listeners is an in-process EventSource. Emit runs the registered listeners
// for a kind synchronously, in registration order.
type Listeners struct {
	mu     sync.Mutex
	byKind map[EventKind][]*listener
}

type listener struct {
	fn func()
}

func NewListeners() *Listeners {
	return &Listeners{byKind: make(map[EventKind][]*listener)}
}

func (l *Listeners) AddListener(kind EventKind, fn func()) (remove func()) {
	ln := &listener{fn: fn}
	l.mu.Lock()
	l.byKind[kind] = append(l.byKind[kind], ln)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		cur := l.byKind[kind]
		for i, c := range cur {
			if c == ln {
				l.byKind[kind] = append(cur[:i:i], cur[i+1:]...)
				break
			}
		}
		if len(l.byKind[kind]) == 0 {
			delete(l.byKind, kind)
		}
	}
}

// Emit delivers an event to every listener of kind.
func (l *Listeners) Emit(kind EventKind) {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.byKind[kind]))
	for _, ln := range l.byKind[kind] {
		fns = append(fns, ln.fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len reports how many listeners are registered for kind.
func (l *Listeners) Len(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKind[kind])
}
