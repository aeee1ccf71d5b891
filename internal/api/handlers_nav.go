package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dgallion1/docnav/internal/navigator"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxNavMessage = 64 << 10

// navRequest is a message from the browser.
type navRequest struct {
	Type        string             `json:"type"`
	Anchor      string             `json:"anchor,omitempty"`
	Trigger     string             `json:"trigger,omitempty"`
	ScrollTop   *float64           `json:"scrollTop,omitempty"`
	DocumentTop *float64           `json:"documentTop,omitempty"`
	Elements    map[string]float64 `json:"elements,omitempty"`
}

// navResponse is a scrollTo or error message to the browser.
type navResponse struct {
	Type     string   `json:"type"`
	Top      *float64 `json:"top,omitempty"`
	Behavior string   `json:"behavior,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// stateMessage reports navigator state. ActiveAnchor is null when nothing is
// active.
type stateMessage struct {
	Type            string  `json:"type"`
	Session         string  `json:"session,omitempty"`
	ActiveAnchor    *string `json:"activeAnchor"`
	ShowScrollToTop bool    `json:"showScrollToTop"`
}

// remoteViewport mirrors the browser's last reported layout. It is only
// touched from the session's read loop.
type remoteViewport struct {
	scrollTop   float64
	documentTop float64
	elements    map[string]float64
	send        func(any)
}

func (v *remoteViewport) ScrollTop() float64   { return v.scrollTop }
func (v *remoteViewport) DocumentTop() float64 { return v.documentTop }

func (v *remoteViewport) ElementTop(id string) (float64, bool) {
	top, ok := v.elements[id]
	return top, ok
}

func (v *remoteViewport) SmoothScrollTo(y float64) {
	v.send(navResponse{Type: "scrollTo", Top: &y, Behavior: "smooth"})
}

// navSession is one mounted page driven over a websocket.
type navSession struct {
	id        string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	viewport  *remoteViewport
	nav       *navigator.Navigator
	listeners *navigator.Listeners
}

func (s *Server) handleNavSession(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageFor(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxNavMessage)

	sess := &navSession{
		id:        uuid.NewString(),
		conn:      conn,
		listeners: navigator.NewListeners(),
	}
	log := s.log.With("session", sess.id, "slug", page.Slug)

	sess.viewport = &remoteViewport{elements: map[string]float64{}, send: func(resp any) {
		if err := sess.write(resp); err != nil {
			log.Warn("websocket write", "error", err)
		}
	}}
	sess.nav = navigator.New(sess.viewport,
		navigator.WithHeaderOffset(s.cfg.HeaderOffset),
		navigator.WithLogger(log),
	)

	cancel := sess.nav.Subscribe(func(st navigator.State) {
		sess.viewport.send(stateResponse(st))
	})
	defer cancel()
	unmount := sess.nav.Mount(sess.listeners)
	defer unmount()

	initial := stateResponse(sess.nav.State())
	initial.Session = sess.id
	sess.viewport.send(initial)
	log.Debug("navigation session opened")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read", "error", err)
			}
			break
		}

		var req navRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			sess.viewport.send(navResponse{Type: "error", Message: "invalid message"})
			continue
		}
		if errMsg := sess.handle(req); errMsg != "" {
			sess.viewport.send(navResponse{Type: "error", Message: errMsg})
		}
	}
	log.Debug("navigation session closed")
}

// handle applies one browser message. It returns a non-empty error message
// when the request is rejected.
func (sess *navSession) handle(req navRequest) string {
	vp := sess.viewport
	switch req.Type {
	case "layout":
		if req.DocumentTop != nil {
			vp.documentTop = *req.DocumentTop
		}
		if req.ScrollTop != nil {
			vp.scrollTop = *req.ScrollTop
		}
		if req.Elements != nil {
			vp.elements = req.Elements
		}
	case "scroll", "resize":
		if req.ScrollTop != nil {
			vp.scrollTop = *req.ScrollTop
		}
		kind := navigator.EventScroll
		if req.Type == "resize" {
			kind = navigator.EventResize
		}
		sess.listeners.Emit(kind)
	case "click":
		if req.Anchor == "" {
			return "click requires an anchor"
		}
		sess.nav.Click(req.Anchor)
	case "top":
		trigger := navigator.Trigger(req.Trigger)
		if trigger == "" {
			trigger = navigator.TriggerPointer
		}
		sess.nav.ActivateTop(trigger)
	default:
		return "unknown message type: " + req.Type
	}
	return ""
}

func (sess *navSession) write(resp any) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	return sess.conn.WriteJSON(resp)
}

func stateResponse(st navigator.State) stateMessage {
	msg := stateMessage{Type: "state", ShowScrollToTop: st.ShowScrollToTop}
	if st.ActiveAnchor != "" {
		active := st.ActiveAnchor
		msg.ActiveAnchor = &active
	}
	return msg
}
