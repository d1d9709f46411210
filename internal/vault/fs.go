package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/periodic/internal/apperr"
	"github.com/starford/periodic/internal/models"
)

const readCacheSize = 256

type cachedFile struct {
	modTime time.Time
	size    int64
	content string
}

var _ Provider = (*FS)(nil)

// FS implements Provider backed by the local file system.
type FS struct {
	root  string // absolute path to vault directory
	cache *lru.Cache[string, cachedFile]
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	cache, err := lru.New[string, cachedFile](readCacheSize)
	if err != nil {
		return nil, fmt.Errorf("vault: read cache: %w", err)
	}
	return &FS{root: abs, cache: cache}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string {
	return f.root
}

// Rel converts an absolute path inside the vault to a vault path.
func (f *FS) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return "", fmt.Errorf("vault: rel: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("vault: path outside vault: %s", abs)
	}
	return filepath.ToSlash(rel), nil
}

// safePath resolves a vault path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" || rel == "/" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}

func (f *FS) file(abs string, info fs.FileInfo) models.File {
	rel, _ := f.Rel(abs)
	return models.File{
		Path:    rel,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// Stat returns the file or folder at path.
func (f *FS) Stat(path string) (models.File, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return models.File{}, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return models.File{}, fmt.Errorf("vault: stat %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return models.File{}, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	return f.file(abs, info), nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("vault: read %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	return data, nil
}

// CachedRead returns the content of a vault file. Entries are keyed by path
// and revalidated against size and modification time.
func (f *FS) CachedRead(path string) (string, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		f.cache.Remove(abs)
		return "", fmt.Errorf("vault: read %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", path, err)
	}
	if c, ok := f.cache.Get(abs); ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.content, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", path, err)
	}
	f.cache.Add(abs, cachedFile{modTime: info.ModTime(), size: info.Size(), content: string(data)})
	return string(data), nil
}

// writeTemp writes content to a synced temp file next to abs and returns its
// name. The caller owns the temp file.
func writeTemp(abs string, content []byte) (string, error) {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("vault: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".periodic-tmp-*")
	if err != nil {
		return "", fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("vault: close temp: %w", err)
	}
	return tmpName, nil
}

// Create writes a new file. The content becomes visible in one step and an
// existing file is never replaced.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	tmpName, err := writeTemp(abs, content)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)

	if err := os.Link(tmpName, abs); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("vault: create %s: %w", path, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("vault: create %s: %w", path, err)
	}
	return nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	tmpName, err := writeTemp(abs, content)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("vault: rename: %w", err)
	}
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("vault: delete %s: %w", path, apperr.ErrNotFound)
		}
		return fmt.Errorf("vault: delete %s: %w", path, err)
	}
	f.cache.Remove(abs)
	return nil
}

// Move renames a file within the vault.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("vault: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("vault: move: %w", err)
	}
	f.cache.Remove(absOld)
	return nil
}

// Walk visits every entry below folder in lexical order, folders before
// their contents. Entries whose name starts with "." are skipped.
func (f *FS) Walk(folder string, fn func(models.File) error) error {
	base, err := f.safePath(folder)
	if err != nil {
		return err
	}
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == base {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(f.file(p, info))
	})
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("vault: walk %s: %w", folder, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("vault: walk %s: %w", folder, err)
	}
	return nil
}

// EnsureFolder creates folder and any missing parents.
func (f *FS) EnsureFolder(folder string) error {
	abs, err := f.safePath(folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("vault: ensure folder %s: %w", folder, err)
	}
	return nil
}
