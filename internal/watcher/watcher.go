// Package watcher rebuilds the graph whenever site content changes.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/linkgraph/internal/builder"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// tmpPrefix matches the storage layer's atomic-write temp files.
const tmpPrefix = ".linkgraph-tmp-"

// Rebuilder runs one full build.
type Rebuilder interface {
	Build(ctx context.Context) (*builder.Result, error)
}

// Callback receives the outcome of each watcher-driven build.
type Callback func(res *builder.Result, err error)

// Config lists absolute paths the watcher cares about.
type Config struct {
	// Dirs are watched recursively. A dir that does not exist yet is
	// picked up once it is created.
	Dirs []string
	// Files are single files whose changes trigger a rebuild.
	Files []string
	// Ignore holds paths whose events are discarded, typically the output.
	Ignore   []string
	Debounce time.Duration
}

// Watch watches cfg until ctx is cancelled, running one build per burst of
// relevant events. Build errors go to cb and the log; watching continues.
func Watch(ctx context.Context, b Rebuilder, cfg Config, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	cfg = cfg.cleaned()

	for _, d := range cfg.Dirs {
		if err := watchDir(w, d); err != nil {
			return err
		}
	}
	for _, f := range cfg.Files {
		if err := watchAncestor(w, filepath.Dir(f)); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.Any("dirs", cfg.Dirs), slog.Any("files", cfg.Files))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(cfg.Debounce)
			fire = timer.C
		} else {
			timer.Reset(cfg.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			res, err := b.Build(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Error("watcher: build failed", slog.String("error", err.Error()))
			}
			if cb != nil {
				cb(res, err)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !cfg.relevant(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := watchDir(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (c Config) cleaned() Config {
	clean := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, p := range in {
			if p != "" {
				out = append(out, filepath.Clean(p))
			}
		}
		return out
	}
	c.Dirs = clean(c.Dirs)
	c.Files = clean(c.Files)
	c.Ignore = clean(c.Ignore)
	return c
}

// relevant reports whether an event on path should trigger a rebuild.
func (c Config) relevant(path string) bool {
	path = filepath.Clean(path)
	if strings.HasPrefix(filepath.Base(path), tmpPrefix) {
		return false
	}
	for _, p := range c.Ignore {
		if path == p {
			return false
		}
	}
	for _, f := range c.Files {
		if path == f {
			return true
		}
	}
	for _, d := range c.Dirs {
		// An ancestor of a watched dir matters while the dir is missing.
		if within(path, d) || within(d, path) {
			return true
		}
	}
	return false
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// watchDir adds dir and its subdirectories, or the closest existing
// ancestor when dir is missing.
func watchDir(w *fsnotify.Watcher, dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return watchAncestor(w, filepath.Dir(dir))
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return addDirsRecursive(w, dir)
}

func watchAncestor(w *fsnotify.Watcher, dir string) error {
	for {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return w.Add(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
