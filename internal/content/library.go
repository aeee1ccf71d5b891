package content

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/parser"
)

// Page is a loaded document with its outline. Pages are immutable once
// published; a reload replaces the whole Page.
type Page struct {
	Slug     string                 `json:"slug"`
	Title    string                 `json:"title"`
	Source   string                 `json:"-"`
	HTML     []byte                 `json:"-"`
	Headings []doctree.Heading      `json:"headings"`
	Outline  []*doctree.OutlineNode `json:"outline"`
	LoadedAt time.Time              `json:"loaded_at"`
}

// Library holds every page found under a content directory.
type Library struct {
	dir     string
	exclude []string
	log     *slog.Logger

	mu    sync.RWMutex
	pages map[string]*Page
}

func NewLibrary(dir string, exclude []string, log *slog.Logger) *Library {
	return &Library{
		dir:     dir,
		exclude: exclude,
		log:     log,
		pages:   make(map[string]*Page),
	}
}

// Dir returns the content root.
func (l *Library) Dir() string {
	return l.dir
}

// Load scans the content directory and replaces the page set. Pages that
// fail to parse are logged and skipped.
func (l *Library) Load() error {
	pages := make(map[string]*Page)
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		slug, ok := l.slugFor(path)
		if !ok {
			return nil
		}
		page, err := l.loadFile(path, slug)
		if err != nil {
			l.log.Warn("skipping page", "path", path, "error", err)
			return nil
		}
		pages[slug] = page
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", l.dir, err)
	}

	l.mu.Lock()
	l.pages = pages
	l.mu.Unlock()
	l.log.Info("content loaded", "dir", l.dir, "pages", len(pages))
	return nil
}

// Reload re-reads a single file, removing its page when the file is gone.
func (l *Library) Reload(path string) error {
	slug, ok := l.slugFor(path)
	if !ok {
		return nil
	}
	page, err := l.loadFile(path, slug)
	if errors.Is(err, fs.ErrNotExist) {
		l.mu.Lock()
		delete(l.pages, slug)
		l.mu.Unlock()
		l.log.Info("page removed", "slug", slug)
		return nil
	}
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.pages[slug] = page
	l.mu.Unlock()
	l.log.Info("page reloaded", "slug", slug, "headings", len(page.Headings))
	return nil
}

// Get returns the page for slug.
func (l *Library) Get(slug string) (*Page, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.pages[slug]
	return p, ok
}

// List returns all pages sorted by slug.
func (l *Library) List() []*Page {
	l.mu.RLock()
	out := make([]*Page, 0, len(l.pages))
	for _, p := range l.pages {
		out = append(out, p)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// loadFile parses a page and builds its outline before it is published.
func (l *Library) loadFile(path, slug string) (*Page, error) {
	p, err := parser.ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	forest, err := doctree.BuildTree(doc.Headings)
	if err != nil {
		return nil, fmt.Errorf("outline %s: %w", path, err)
	}
	if missing, err := parser.MissingAnchors(doc.HTML, forest); err == nil && len(missing) > 0 {
		l.log.Warn("outline anchors without targets", "slug", slug, "anchors", missing)
	}
	if empty := parser.UnanchoredHeadings(forest); len(empty) > 0 {
		l.log.Warn("headings without anchor ids", "slug", slug, "headings", empty)
	}

	return &Page{
		Slug:     slug,
		Title:    doc.Title,
		Source:   path,
		HTML:     doc.HTML,
		Headings: doc.Headings,
		Outline:  forest,
		LoadedAt: time.Now(),
	}, nil
}

// slugFor maps a file path to its page slug: the slash-separated path
// relative to the content root, without extension.
func (l *Library) slugFor(path string) (string, bool) {
	if !parser.IsSupportedExtension(path) {
		return "", false
	}
	rel, err := filepath.Rel(l.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range l.exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return "", false
		}
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel)), true
}
