package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"sitekeeper/internal/codec"
	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"
	"sitekeeper/internal/editor"
	"sitekeeper/internal/kv"
	"sitekeeper/internal/markup"
	"sitekeeper/internal/reconcile"
	"sitekeeper/internal/render"
	"sitekeeper/internal/site"

	"go.uber.org/zap"
)

// DefaultMaxUpload bounds the in-memory part of a submitted form.
const DefaultMaxUpload = 32 << 20

type ServerConfig struct {
	Addr      string
	Site      *site.Site
	Store     kv.Store
	Logger    *zap.Logger
	NoticeTTL time.Duration
	MaxUpload int64
}

type Server struct {
	mu  sync.RWMutex
	cfg ServerConfig

	rec    *reconcile.Reconciler
	page   *editor.Page
	render *render.Renderer
	log    *zap.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.Site == nil {
		return nil, errors.New("web: site is nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("web: store is nil")
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rec := reconcile.New(content.NewAccessor(cfg.Store, log), markup.Must(), log)
	srv := &Server{
		cfg:    cfg,
		rec:    rec,
		page:   editor.New(rec, editor.Config{NoticeTTL: cfg.NoticeTTL, Logger: log}),
		render: render.New(rec, log),
		log:    log,
	}
	if err := srv.loadEditPage(context.Background()); err != nil {
		return nil, err
	}
	editName := cfg.Site.Pages().Edit
	cfg.Site.OnChange(func(name string) {
		if name != editName {
			return
		}
		if err := srv.loadEditPage(context.Background()); err != nil {
			log.Warn("reloading edit page", zap.Error(err))
		}
	})
	return srv, nil
}

func (s *Server) loadEditPage(ctx context.Context) error {
	b, err := s.site().EditPage()
	if err != nil {
		return err
	}
	return s.page.Load(ctx, bytes.NewReader(b))
}

func (s *Server) site() *site.Site {
	s.mu.RLock()
	st := s.cfg.Site
	s.mu.RUnlock()
	return st
}

func (s *Server) maxUpload() int64 {
	s.mu.RLock()
	n := s.cfg.MaxUpload
	s.mu.RUnlock()
	return n
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /edit", s.handleEdit)
	mux.HandleFunc("POST /edit/{kind}/add", s.handleAdd)
	mux.HandleFunc("POST /edit/{kind}/{index}", s.handleSubmit)
	mux.HandleFunc("POST /edit/{kind}/{index}/remove", s.handleRemove)
	mux.HandleFunc("POST /edit/{kind}/{index}/preview", s.handlePreview)
	mux.HandleFunc("POST /edit/finances/items/add", s.handleItemAdd)
	mux.HandleFunc("POST /edit/finances/items/{index}/remove", s.handleItemRemove)
	mux.HandleFunc("GET /", s.handlePage)
	return mux
}

func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	ref := strings.TrimSpace(r.Header.Get("Referer"))
	if ref != "" {
		http.Redirect(w, r, ref, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var b bytes.Buffer
	if err := s.page.Render(&b); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b.Bytes())
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	if !kind.IsList() {
		http.NotFound(w, r)
		return
	}
	if err := s.page.Add(r.Context(), kind); err != nil {
		s.fail(w, r, err)
		return
	}
	redirectBack(w, r, markup.EditPath)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	kind, index, ok := pathPosition(w, r)
	if !ok {
		return
	}
	ev, cleanup, err := s.readEvent(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanup()
	if err := s.page.Submit(r.Context(), kind, index, ev); err != nil {
		s.fail(w, r, err)
		return
	}
	redirectBack(w, r, markup.EditPath)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	kind, index, ok := pathPosition(w, r)
	if !ok {
		return
	}
	if err := s.page.Remove(r.Context(), kind, index); err != nil {
		s.fail(w, r, err)
		return
	}
	redirectBack(w, r, markup.EditPath)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	kind, index, ok := pathPosition(w, r)
	if !ok {
		return
	}
	ev, cleanup, err := s.readEvent(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanup()
	field := strings.TrimSpace(r.URL.Query().Get("field"))
	if field == "" {
		for name := range ev.Files {
			field = name
			break
		}
	}
	if field == "" {
		http.Error(w, "preview: no file selected", http.StatusBadRequest)
		return
	}
	if err := s.page.Preview(r.Context(), kind, index, field, ev); err != nil {
		s.fail(w, r, err)
		return
	}
	redirectBack(w, r, markup.EditPath)
}

func (s *Server) handleItemAdd(w http.ResponseWriter, r *http.Request) {
	if err := s.page.AddItem(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	redirectBack(w, r, markup.EditPath)
}

func (s *Server) handleItemRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid item index", http.StatusBadRequest)
		return
	}
	if err := s.page.RemoveItem(r.Context(), index); err != nil {
		s.fail(w, r, err)
		return
	}
	redirectBack(w, r, markup.EditPath)
}

// handlePage renders kind pages from storage and serves every other file
// of the site directory as is. Dotfiles are never served.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" {
		name = "index.html"
	}
	if hasDotSegment(name) {
		http.NotFound(w, r)
		return
	}
	st := s.site()
	b, err := st.Read(name)
	if errors.Is(err, site.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if kind, ok := st.KindFor(name); ok {
		out, err := s.render.Page(r.Context(), kind, b)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(out)
		return
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(b))
}

func hasDotSegment(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// readEvent collects posted values and selected files. Multipart bodies
// carry files; urlencoded bodies carry values only.
func (s *Server) readEvent(r *http.Request) (editor.Event, func(), error) {
	ev := editor.Event{Values: content.Record{}, Files: codec.Files{}}
	noop := func() {}

	err := r.ParseMultipartForm(s.maxUpload())
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return ev, noop, err
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				ev.Values[k] = vs[0]
			}
		}
		return ev, noop, nil
	}
	if err != nil {
		return ev, noop, err
	}

	form := r.MultipartForm
	for k, vs := range form.Value {
		if len(vs) > 0 {
			ev.Values[k] = vs[0]
		}
	}
	for k, fhs := range form.File {
		if len(fhs) == 0 || (fhs[0].Filename == "" && fhs[0].Size == 0) {
			continue
		}
		ev.Files[k] = uploadedFile(fhs[0])
	}
	return ev, func() { _ = form.RemoveAll() }, nil
}

func uploadedFile(fh *multipart.FileHeader) codec.File {
	return codec.File{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func pathKind(w http.ResponseWriter, r *http.Request) (content.Kind, bool) {
	kind, err := content.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return "", false
	}
	return kind, true
}

func pathPosition(w http.ResponseWriter, r *http.Request) (content.Kind, int, bool) {
	kind, ok := pathKind(w, r)
	if !ok {
		return "", 0, false
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return "", 0, false
	}
	return kind, index, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, dom.ErrMissingAnchor) {
		s.log.Debug("request target missing", zap.String("path", r.URL.Path), zap.Error(err))
		http.NotFound(w, r)
		return
	}
	s.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
