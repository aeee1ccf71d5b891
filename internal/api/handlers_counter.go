package api

import "net/http"

// counterValue returns the displayed star count, or nil when there is none.
func (s *Server) counterValue() *int {
	if s.counter == nil {
		return nil
	}
	v, ok := s.counter.Value()
	if !ok {
		return nil
	}
	return &v
}

func (s *Server) handleCounter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"value": s.counterValue()})
}
