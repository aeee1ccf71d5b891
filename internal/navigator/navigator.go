package navigator

import (
	"log/slog"
	"sync"
)

// DefaultHeaderOffset is the height of the fixed page header. Click targets
// are scrolled this far below the top of the viewport.
const DefaultHeaderOffset = 62

// State is the visual navigation state of one mounted page.
type State struct {
	ActiveAnchor    string `json:"activeAnchor"` // empty when nothing is active
	ShowScrollToTop bool   `json:"showScrollToTop"`
}

// Viewport is the scrolling surface the navigator drives.
type Viewport interface {
	ScrollTop() float64
	DocumentTop() float64
	// ElementTop reports the top of the element with the given id.
	ElementTop(id string) (float64, bool)
	SmoothScrollTo(y float64)
}

// EventKind identifies viewport events the navigator listens to.
type EventKind int

const (
	EventScroll EventKind = iota
	EventResize
)

func (k EventKind) String() string {
	switch k {
	case EventScroll:
		return "scroll"
	case EventResize:
		return "resize"
	default:
		return "unknown"
	}
}

// EventSource registers listeners for viewport events. The returned func
// removes the listener.
type EventSource interface {
	AddListener(kind EventKind, fn func()) (remove func())
}

// Trigger describes how the scroll-to-top control was activated.
type Trigger string

const (
	TriggerPointer Trigger = "pointer"
	TriggerEnter   Trigger = "Enter"
	TriggerSpace   Trigger = " "
)

func (t Trigger) activates() bool {
	switch t {
	case TriggerPointer, TriggerEnter, TriggerSpace:
		return true
	}
	return false
}

// Navigator tracks the active anchor and the scroll-to-top control.
type Navigator struct {
	mu           sync.Mutex
	state        State
	viewport     Viewport
	headerOffset float64
	log          *slog.Logger

	subs   map[int]func(State)
	nextID int
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithHeaderOffset overrides DefaultHeaderOffset.
func WithHeaderOffset(offset float64) Option {
	return func(n *Navigator) { n.headerOffset = offset }
}

// WithLogger sets the logger used for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(n *Navigator) { n.log = log }
}

func New(vp Viewport, opts ...Option) *Navigator {
	n := &Navigator{
		viewport:     vp,
		headerOffset: DefaultHeaderOffset,
		log:          slog.New(slog.DiscardHandler),
		subs:         make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// State returns the current state.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Click activates anchorID and smooth-scrolls to its element. A missing
// element leaves the viewport where it is.
func (n *Navigator) Click(anchorID string) {
	n.mu.Lock()
	n.state.ActiveAnchor = anchorID
	top, ok := n.viewport.ElementTop(anchorID)
	var target float64
	if ok {
		target = top - n.viewport.DocumentTop() - n.headerOffset
	}
	st := n.state
	n.mu.Unlock()

	if ok {
		n.viewport.SmoothScrollTo(target)
	} else {
		n.log.Debug("anchor target missing", "anchor", anchorID)
	}
	n.notify(st)
}

// Scroll recomputes the visibility of the scroll-to-top control.
func (n *Navigator) Scroll() {
	n.mu.Lock()
	show := n.viewport.ScrollTop() != 0
	changed := show != n.state.ShowScrollToTop
	n.state.ShowScrollToTop = show
	st := n.state
	n.mu.Unlock()

	if changed {
		n.notify(st)
	}
}

// ActivateTop scrolls back to the top of the page. It reports whether the
// control reacted: it must be visible and the trigger must be a pointer click
// or an activating key.
func (n *Navigator) ActivateTop(t Trigger) bool {
	if !t.activates() {
		return false
	}
	n.mu.Lock()
	visible := n.state.ShowScrollToTop
	n.mu.Unlock()
	if !visible {
		return false
	}
	n.viewport.SmoothScrollTo(0)
	return true
}

// Reset returns to the initial state, as on navigation to a new page.
func (n *Navigator) Reset() {
	n.mu.Lock()
	n.state = State{}
	st := n.state
	n.mu.Unlock()
	n.notify(st)
}

// Mount registers scroll and resize listeners on src. The returned func
// removes them; calling it more than once is safe.
func (n *Navigator) Mount(src EventSource) (unmount func()) {
	removeScroll := src.AddListener(EventScroll, n.Scroll)
	removeResize := src.AddListener(EventResize, n.Scroll)

	var once sync.Once
	return func() {
		once.Do(func() {
			removeScroll()
			removeResize()
		})
	}
}

// Subscribe calls fn with the new state after every change.
func (n *Navigator) Subscribe(fn func(State)) (cancel func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *Navigator) notify(st State) {
	n.mu.Lock()
	fns := make([]func(State), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
