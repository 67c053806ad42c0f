package site

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type watcher struct {
	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// Watch starts invalidating cached pages when files in the site directory
// change. It is a no-op when already watching. Close stops it.
func (s *Site) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(s.dir); err != nil {
		_ = fsw.Close()
		return err
	}
	s.w = &watcher{fsw: fsw, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	go s.run(s.w)
	s.log.Info("watching site directory", zap.String("dir", s.dir))
	return nil
}

func (s *Site) run(w *watcher) {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			s.log.Warn("site watcher", zap.Error(err))
		}
	}
}

func (s *Site) handleEvent(ev fsnotify.Event) {
	var op string
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = "create"
	case ev.Op&fsnotify.Write != 0:
		op = "modify"
	case ev.Op&fsnotify.Remove != 0:
		op = "delete"
	case ev.Op&fsnotify.Rename != 0:
		op = "rename"
	default:
		return
	}
	name := filepath.ToSlash(filepath.Base(ev.Name))
	s.log.Debug("site page changed", zap.String("name", name), zap.String("op", op))
	s.invalidate(name)
}

// Close stops the watcher, if running.
func (s *Site) Close() error {
	s.mu.Lock()
	w := s.w
	s.w = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	var err error
	w.once.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		err = w.fsw.Close()
	})
	return err
}
