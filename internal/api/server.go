package api

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/content"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// Counter is the star counter state a page binds to.
type Counter interface {
	Value() (int, bool)
}

// Server is the HTTP server for the documentation site.
type Server struct {
	router    chi.Router
	library   *content.Library
	counter   Counter
	templates *template.Template
	upgrader  websocket.Upgrader
	log       *slog.Logger
	cfg       *config.Config
}

// NewServer creates and configures the HTTP server. counter may be nil when
// the star counter is disabled.
func NewServer(lib *content.Library, counter Counter, log *slog.Logger, cfg *config.Config) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	s := &Server{
		library:   lib,
		counter:   counter,
		templates: tmpl,
		log:       log,
		cfg:       cfg,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	// Pages.
	r.Get("/", s.handleIndex)
	r.Get("/docs/*", s.handlePage)

	// JSON API.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/api/docs", s.handleListDocs)
		r.Get("/api/docs/*", s.handleOutline)
		r.Get("/api/counter", s.handleCounter)
	})

	// Navigation sessions.
	r.Get("/ws/nav/*", s.handleNavSession)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
