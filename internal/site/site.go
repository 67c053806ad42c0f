// Package site serves page files from the site directory, caching their
// bytes until the directory watcher reports a change.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sitekeeper/internal/content"
	"sitekeeper/internal/markup"

	"go.uber.org/zap"
)

// Pages names the page files of the site.
type Pages struct {
	Projects string `yaml:"projects"`
	Members  string `yaml:"members"`
	Finances string `yaml:"finances"`
	Edit     string `yaml:"edit"`
}

func DefaultPages() Pages {
	return Pages{
		Projects: "projects.html",
		Members:  "member.html",
		Finances: "finances.html",
		Edit:     "edit.html",
	}
}

// ErrNotFound is returned for page names outside the site directory or
// files that do not exist.
var ErrNotFound = errors.New("site: page not found")

type Site struct {
	dir   string
	pages Pages
	log   *zap.Logger

	mu    sync.RWMutex
	cache map[string][]byte
	gen   uint64 // bumped by every invalidation
	subs  []func(name string)

	readFile func(name string) ([]byte, error)

	w *watcher
}

func Open(dir string, pages Pages, log *zap.Logger) (*Site, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("site dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site dir: %s is not a directory", abs)
	}
	def := DefaultPages()
	if pages.Projects == "" {
		pages.Projects = def.Projects
	}
	if pages.Members == "" {
		pages.Members = def.Members
	}
	if pages.Finances == "" {
		pages.Finances = def.Finances
	}
	if pages.Edit == "" {
		pages.Edit = def.Edit
	}
	return &Site{dir: abs, pages: pages, log: log, cache: map[string][]byte{}, readFile: os.ReadFile}, nil
}

func (s *Site) Dir() string { return s.dir }

func (s *Site) Pages() Pages { return s.pages }

// KindFor returns the content kind rendered on the named page.
func (s *Site) KindFor(name string) (content.Kind, bool) {
	switch name {
	case s.pages.Projects:
		return content.Projects, true
	case s.pages.Members:
		return content.Members, true
	case s.pages.Finances:
		return content.Finances, true
	}
	return "", false
}

// PageFor returns the page file name for kind.
func (s *Site) PageFor(kind content.Kind) string {
	switch kind {
	case content.Projects:
		return s.pages.Projects
	case content.Members:
		return s.pages.Members
	case content.Finances:
		return s.pages.Finances
	}
	return ""
}

// Read returns the bytes of the named page, from cache when possible.
func (s *Site) Read(name string) ([]byte, error) {
	name, err := clean(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	b, ok := s.cache[name]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		return b, nil
	}

	b, err = s.readFile(filepath.Join(s.dir, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	// A change reported during the read may have raced it; serve the bytes
	// but leave the cache to the next read.
	s.mu.Lock()
	if s.gen == gen {
		s.cache[name] = b
	}
	s.mu.Unlock()
	return b, nil
}

// EditPage returns the site's edit page, or the built-in editor shell when
// the site has none.
func (s *Site) EditPage() ([]byte, error) {
	b, err := s.Read(s.pages.Edit)
	if errors.Is(err, ErrNotFound) {
		return markup.EditShell(), nil
	}
	return b, err
}

// OnChange registers fn to run after a watched page changes.
func (s *Site) OnChange(fn func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Site) invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.gen++
	subs := append([]func(string){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(name)
	}
}

func clean(name string) (string, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return name, nil
}
