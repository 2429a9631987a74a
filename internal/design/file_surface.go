package design

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/wrapstudio/wrapview/internal/logger"
)

// debounceWindow coalesces the bursts of write events editors emit when
// saving a file into a single change notification.
const debounceWindow = 50 * time.Millisecond

// FileSurface is a design surface backed by an image file on disk. Saving
// the file from any editor fires the change subscribers, which makes the
// standalone viewer usable alongside an external paint tool.
type FileSurface struct {
	path string

	mu          sync.Mutex
	img         image.Image
	subscribers []func()

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// OpenFileSurface loads the design image and starts watching it.
func OpenFileSurface(path string) (*FileSurface, error) {
	s := &FileSurface{
		path: path,
		done: make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("design watcher: %w", err)
	}
	// Watch the directory: editors that save via rename replace the file
	// inode, which silently drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	s.watcher = watcher

	go s.watch()
	return s, nil
}

// Rasterize renders the design at its logical size times multiplier,
// using Catmull-Rom resampling for upscale quality.
func (s *FileSurface) Rasterize(multiplier float64) (*image.RGBA, error) {
	s.mu.Lock()
	src := s.img
	s.mu.Unlock()

	if src == nil {
		return nil, fmt.Errorf("design surface %s has no image", s.path)
	}

	bounds := src.Bounds()
	w := int(float64(bounds.Dx()) * multiplier)
	h := int(float64(bounds.Dy()) * multiplier)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("rasterize multiplier %v yields empty image", multiplier)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if multiplier == 1 {
		draw.Copy(dst, image.Point{}, src, bounds, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	}
	return dst, nil
}

// Subscribe registers a change callback.
func (s *FileSurface) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Size returns the logical pixel dimensions of the design.
func (s *FileSurface) Size() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Close stops the file watcher.
func (s *FileSurface) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *FileSurface) reload() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("opening design %s: %w", s.path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding design %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.img = img
	s.mu.Unlock()

	logger.Debug("design loaded",
		zap.String("path", s.path),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return nil
}

func (s *FileSurface) watch() {
	var timer *time.Timer
	target := filepath.Clean(s.path)

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Debounce: reset the timer on every event in the burst.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, s.notify)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("design watcher error", zap.Error(err))
		}
	}
}

func (s *FileSurface) notify() {
	if err := s.reload(); err != nil {
		// Editors writing non-atomically can leave a half-written file;
		// keep the previous image and wait for the next event.
		logger.Warn("design reload failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
