package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/periodic/internal/periodic"
	"github.com/starford/periodic/internal/vault"
)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and keeps the index in
// step with file events until ctx is cancelled. It calls cb (if non-nil)
// after each index change.
//
// New directories are added to the watch list and trigger a reconciliation
// pass, as do renames: fsnotify reports only the old name of a renamed file.
// Hidden directories are not watched.
func Watch(ctx context.Context, db *DB, store vault.Provider, vaultRoot string, snap Snapshot, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := reconcile(db, store, snap, logger, cb); err != nil {
				logger.Warn("reconcile: incomplete", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if hidden(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Files may have landed before the watch was added.
					scheduleReconcile()
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				handleWrite(db, store, snap, rel, ev.Op&fsnotify.Create != 0, logger, cb)

			case ev.Op&fsnotify.Remove != 0:
				handleRemove(db, rel, logger, cb)

			case ev.Op&fsnotify.Rename != 0:
				handleRemove(db, rel, logger, cb)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handleWrite indexes rel if it is a periodic note and drops its entry if it
// no longer is one.
func handleWrite(db *DB, store vault.Provider, snap Snapshot, rel string, created bool, logger *slog.Logger, cb EventCallback) {
	lib, cfg := snap()
	g, date, ok := periodic.Classify(lib, cfg, rel)
	if !ok {
		handleRemove(db, rel, logger, cb)
		return
	}
	f, err := store.Stat(rel)
	if err != nil {
		logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	date = lib.StartOf(date, g.Unit())
	uid := periodic.DateUID(lib, date, g)
	if err := IndexFile(db, f, data, g, date, uid); err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind := "updated"
	if created {
		kind = "created"
	}
	logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind), slog.String("uid", uid))
	if cb != nil {
		cb(kind, rel)
	}
}

func handleRemove(db *DB, rel string, logger *slog.Logger, cb EventCallback) {
	existed, err := db.DeleteByPath(rel)
	if err != nil {
		logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if !existed {
		return
	}
	logger.Debug("watcher: deleted", slog.String("path", rel))
	if cb != nil {
		cb("deleted", rel)
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
