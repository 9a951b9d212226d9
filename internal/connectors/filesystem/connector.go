// Package filesystem reads contract files from a local directory and
// watches it for new ones.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/logger"
	"github.com/custodia-labs/clause/internal/normalisers"
)

// DefaultSettle is how long a file must be quiet before it is read.
// Editors and copy tools often write a file in several steps.
const DefaultSettle = 200 * time.Millisecond

// ErrClosed is returned when using a closed connector.
var ErrClosed = errors.New("connector closed")

// Option configures a Connector.
type Option func(*Connector)

// WithSettle sets the quiet period before a changed file is emitted.
func WithSettle(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.settle = d
		}
	}
}

// WithFilter restricts the connector to paths accepted by keep.
func WithFilter(keep func(path string) bool) Option {
	return func(c *Connector) {
		c.keep = keep
	}
}

// Connector reads documents below a root directory.
// Each path is reported at most once, by Scan or by Watch.
type Connector struct {
	root   string
	settle time.Duration
	keep   func(path string) bool

	mu       sync.Mutex
	closed   bool
	seen     map[string]bool
	watchers []*fsnotify.Watcher
}

// New creates a connector rooted at root.
func New(root string, opts ...Option) *Connector {
	c := &Connector{
		root:   root,
		settle: DefaultSettle,
		seen:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.root
}

// Scan returns the files currently below the root, skipping hidden
// files and directories. Returned paths count as seen.
func (c *Connector) Scan(ctx context.Context) ([]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	var paths []string
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != c.root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if c.claim(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.root, err)
	}

	logger.Debug("filesystem: scanned %d files in %s", len(paths), c.root)
	return paths, nil
}

// Watch emits documents for files created or written below the root
// after the call. The channel is closed when ctx ends or the connector
// is closed. Files already seen are not emitted again.
func (c *Connector) Watch(ctx context.Context) (<-chan *domain.RawDocument, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addDirs(w, c.root); err != nil {
		_ = w.Close()
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = w.Close()
		return nil, ErrClosed
	}
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	out := make(chan *domain.RawDocument)
	go c.watchLoop(ctx, w, out)
	return out, nil
}

// Close stops all watches. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}

func (c *Connector) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- *domain.RawDocument) {
	defer close(out)
	defer func() { _ = w.Close() }()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(c.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			c.handleEvent(w, ev, pending)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem: watch %s: %v", c.root, err)
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < c.settle {
					continue
				}
				delete(pending, path)
				if !c.claim(path) {
					continue
				}
				doc, err := ReadDocument(path)
				if err != nil {
					logger.Warn("filesystem: %v", err)
					continue
				}
				select {
				case out <- doc:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (c *Connector) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event, pending map[string]time.Time) {
	if isHidden(ev.Name) || !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			c.watchNewDir(w, ev.Name, pending)
		}
		return
	}
	if info.Mode().IsRegular() {
		pending[ev.Name] = time.Now()
	}
}

// watchNewDir watches a directory created after Watch started. Files
// written into it before the watch was added are queued directly.
func (c *Connector) watchNewDir(w *fsnotify.Watcher, dir string, pending map[string]time.Time) {
	if err := addDirs(w, dir); err != nil {
		logger.Warn("filesystem: %v", err)
		return
	}
	now := time.Now()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != dir && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			pending[path] = now
		}
		return nil
	})
}

// claim marks path as seen, reporting false if it was already seen or
// is rejected by the filter.
func (c *Connector) claim(path string) bool {
	if c.keep != nil && !c.keep(path) {
		logger.Debug("filesystem: skipping unsupported file %s", path)
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[path] {
		logger.Debug("filesystem: %s already loaded, ignoring change", path)
		return false
	}
	c.seen[path] = true
	return true
}

func (c *Connector) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.root)
	}
	return nil
}

func addDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// ReadDocument loads a file as a raw document, detecting its MIME type
// from the extension.
func ReadDocument(path string) (*domain.RawDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	uri := path
	if abs, err := filepath.Abs(path); err == nil {
		uri = abs
	}

	return &domain.RawDocument{
		URI:      uri,
		MIMEType: normalisers.DetectMIMEType(path),
		Content:  content,
		Metadata: map[string]any{domain.MetaSource: filepath.Base(path)},
	}, nil
}

// ResolvePath converts a file:// URI to a local path. Other values pass
// through unchanged.
func ResolvePath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
