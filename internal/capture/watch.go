package capture

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// reloadDelay coalesces the burst of events editors emit when saving.
const reloadDelay = 100 * time.Millisecond

// FileSource serves an image file as a video source and reloads it whenever
// the file is rewritten. A file that fails to decode keeps the last good
// frame.
type FileSource struct {
	path string
	log  *logrus.Entry

	mu       sync.Mutex
	img      *image.RGBA
	stopped  bool
	reloads  int
	watcher  *fsnotify.Watcher
	debounce *time.Timer
	done     chan struct{}
}

// OpenFileSource decodes path and starts watching it. When the watcher
// cannot be created the source still serves the first decode.
func OpenFileSource(path string) (*FileSource, error) {
	path = filepath.Clean(path)
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	s := &FileSource{
		path: path,
		img:  toRGBA(img),
		log:  logrus.WithFields(logrus.Fields{"component": "file-source", "path": path}),
		done: make(chan struct{}),
	}
	if err := s.watch(); err != nil {
		s.log.WithError(err).Warn("file will not be reloaded")
		close(s.done)
	}
	return s, nil
}

func (s *FileSource) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// The directory is watched so files replaced by rename are still seen.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	s.watcher = w
	go s.loop(w)
	return nil
}

func (s *FileSource) loop(w *fsnotify.Watcher) {
	defer close(s.done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.mu.Lock()
			if s.debounce != nil {
				s.debounce.Stop()
			}
			if !s.stopped {
				s.debounce = time.AfterFunc(reloadDelay, s.reload)
			}
			s.mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("watch error")
		}
	}
}

func (s *FileSource) reload() {
	img, err := decodeFile(s.path)
	if err != nil {
		s.log.WithError(err).Debug("reload skipped")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.img = toRGBA(img)
	s.reloads++
	s.log.WithField("size", s.img.Bounds().Size()).Debug("file reloaded")
}

// Frame returns the latest decode.
func (s *FileSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	return s.img, nil
}

// Size returns the size of the latest decode.
func (s *FileSource) Size() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img.Bounds().Size()
}

// Active reports whether Stop has not been called.
func (s *FileSource) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Reloads returns how many times the file has been reloaded.
func (s *FileSource) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// Stop ends the source and its watcher.
func (s *FileSource) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.debounce != nil {
		s.debounce.Stop()
	}
	w := s.watcher
	s.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			s.log.WithError(err).Debug("close watcher")
		}
	}
	<-s.done
}
