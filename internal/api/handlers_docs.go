package api

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/dgallion1/docnav/internal/content"
	"github.com/dgallion1/docnav/internal/outline"
	"github.com/go-chi/chi/v5"
)

type pageLink struct {
	Slug  string
	Title string
}

// handleIndex lists every page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	pages := s.library.List()
	links := make([]pageLink, 0, len(pages))
	for _, p := range pages {
		links = append(links, pageLink{Slug: p.Slug, Title: p.Title})
	}

	s.render(w, "index", map[string]any{
		"Pages":   links,
		"Counter": s.counterValue(),
	})
}

// handlePage renders a page with its outline. Nothing is active on first load.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageFor(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var toc bytes.Buffer
	if err := outline.RenderHTML(&toc, outline.Build(page.Outline, "", outline.DefaultClassifier)); err != nil {
		s.log.Error("render outline", "slug", page.Slug, "error", err)
		toc.Reset()
	}

	s.render(w, "page", map[string]any{
		"Slug":         page.Slug,
		"Title":        page.Title,
		"Body":         template.HTML(page.HTML),
		"Outline":      template.HTML(toc.String()),
		"HeaderOffset": s.cfg.HeaderOffset,
		"Counter":      s.counterValue(),
	})
}

// handleListDocs returns page slugs and titles.
func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	pages := s.library.List()
	docs := make([]map[string]any, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, map[string]any{
			"slug":     p.Slug,
			"title":    p.Title,
			"headings": len(p.Headings),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleOutline returns a page outline. ?active=<anchor> marks the active entry.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageFor(r)
	if !ok {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	items := outline.Build(page.Outline, r.URL.Query().Get("active"), outline.DefaultClassifier)
	if items == nil {
		items = []outline.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slug":    page.Slug,
		"title":   page.Title,
		"outline": items,
	})
}

func (s *Server) pageFor(r *http.Request) (*content.Page, bool) {
	slug := strings.Trim(chi.URLParam(r, "*"), "/")
	if slug == "" {
		return nil, false
	}
	return s.library.Get(slug)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render template", "template", name, "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
