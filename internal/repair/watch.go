package repair

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/davidahmann/fleetpolicy/internal/crypto"
)

// DefaultDebounce is how long the watcher collects events before a pass.
const DefaultDebounce = 500 * time.Millisecond

// Watch applies mode to documents under dir whenever their content changes,
// until ctx is cancelled. Documents present at start are recorded but not
// processed. onResult, when set, receives every per-file result.
func (r *Runner) Watch(ctx context.Context, dir string, mode Mode, debounce time.Duration, onResult func(FileResult)) error {
	pass, err := r.pipeline.Pass(mode)
	if err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fsw.Close()

	if err := r.addWatches(fsw, base); err != nil {
		return err
	}

	// hashes holds the last content seen per document so our own writes
	// do not trigger another pass.
	hashes := make(map[string]string)
	existing, err := r.Discover(base)
	if err != nil {
		return err
	}
	for _, path := range existing {
		if h, ok := fileDigest(path); ok {
			hashes[path] = h
		}
	}

	log := r.log.With(zap.String("dir", base), zap.String("mode", string(mode)))
	log.Info("watching", zap.Int("documents", len(hashes)), zap.Duration("debounce", debounce))

	pending := make(map[string]struct{})
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := r.addWatches(fsw, ev.Name); err != nil {
						log.Warn("failed to watch directory", zap.String("path", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				delete(hashes, ev.Name)
				delete(pending, ev.Name)
				continue
			}
			if r.matches(base, ev.Name) {
				pending[ev.Name] = struct{}{}
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", zap.Error(err))

		case <-ticker.C:
			for path := range pending {
				delete(pending, path)
				h, ok := fileDigest(path)
				if !ok || hashes[path] == h {
					continue
				}
				res := r.runFile(path, pass)
				if res.Err != nil {
					log.Error("processing failed", zap.String("file", path), zap.Error(res.Err))
					// keep the broken content so it is not retried until edited again
					hashes[path] = h
				} else {
					hashes[path] = res.Hash
					log.Info("processed",
						zap.String("file", path),
						zap.Int("changes", res.Report.Changes()),
						zap.Int("pending", res.Report.Pending),
						zap.Bool("written", res.Written))
				}
				if onResult != nil {
					onResult(res)
				}
			}
		}
	}
}

func (r *Runner) addWatches(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// matches reports whether path is a document the runner would discover.
func (r *Runner) matches(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	if r.skipped(rel) {
		return false
	}
	ok, err := doublestar.Match(r.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

func fileDigest(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return crypto.DigestWithPrefix(data), true
}
