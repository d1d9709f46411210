package index

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/starford/periodic/internal/checksum"
	"github.com/starford/periodic/internal/models"
	"github.com/starford/periodic/internal/parser"
	"github.com/starford/periodic/internal/periodic"
	"github.com/starford/periodic/internal/vault"
)

// Snapshot returns the date library and note configuration that files are
// classified with. It is called once per pass so settings changes apply to
// the next pass.
type Snapshot func() (periodic.DateLibrary, periodic.Config)

// EventCallback is called after an index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Sync walks the folders of every enabled granularity and brings the index
// up to date:
//   - periodic notes that are new, changed or now resolve to another period
//     are parsed and stored
//   - entries whose file is gone or no longer resolves are removed
//
// Unreadable folders are reported in the returned error; the rest of the
// vault is still indexed.
func Sync(db *DB, store vault.Provider, snap Snapshot, logger *slog.Logger) error {
	return reconcile(db, store, snap, logger, nil)
}

func reconcile(db *DB, store vault.Provider, snap Snapshot, logger *slog.Logger, cb EventCallback) error {
	lib, cfg := snap()
	known, err := db.fingerprints()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	var errs []error
	for _, folder := range scanFolders(cfg) {
		err := store.Walk(folder, func(f models.File) error {
			if f.IsDir {
				return nil
			}
			if _, dup := seen[f.Path]; dup {
				return nil
			}
			g, date, ok := periodic.Classify(lib, cfg, f.Path)
			if !ok {
				return nil
			}
			seen[f.Path] = struct{}{}
			date = lib.StartOf(date, g.Unit())

			content, err := store.CachedRead(f.Path)
			if err != nil {
				logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				return nil
			}
			uid := periodic.DateUID(lib, date, g)
			prev, existed := known[f.Path]
			if existed && prev.uid == uid && prev.checksum == checksum.Sum([]byte(content)) {
				return nil
			}
			if err := IndexFile(db, f, []byte(content), g, date, uid); err != nil {
				logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				return nil
			}
			logger.Debug("sync: indexed", slog.String("path", f.Path), slog.String("uid", uid))
			if cb != nil {
				if existed {
					cb("updated", f.Path)
				} else {
					cb("created", f.Path)
				}
			}
			return nil
		})
		if err != nil {
			logger.Warn("sync: walk failed", slog.String("folder", folder), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for p := range known {
		if _, ok := seen[p]; ok {
			continue
		}
		if _, err := db.DeleteByPath(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil {
			cb("deleted", p)
		}
	}

	return errors.Join(errs...)
}

// scanFolders returns the distinct folders of the enabled granularities. A
// vault-root folder makes every other folder redundant.
func scanFolders(cfg periodic.Config) []string {
	var out []string
	for _, g := range periodic.Granularities {
		nc := cfg.Get(g)
		if !nc.Enabled {
			continue
		}
		folder := strings.TrimPrefix(periodic.JoinPath(nc.Folder), "/")
		if folder == "" {
			return []string{""}
		}
		if !slices.Contains(out, folder) {
			out = append(out, folder)
		}
	}
	return out
}

// IndexFile parses data and stores it as the note of the given period.
func IndexFile(db *DB, f models.File, data []byte, g periodic.Granularity, date time.Time, uid string) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return db.Put(models.PeriodicNote{
		UID:         uid,
		Granularity: g,
		Date:        date,
		Path:        f.Path,
		Title:       res.Title,
		Sticker:     res.Sticker,
		Words:       res.Words,
		Checksum:    checksum.Sum(data),
		UpdatedAt:   f.ModTime,
	})
}
