// Package vault gives access to the Markdown vault on disk.
package vault

import "github.com/starford/periodic/internal/models"

// Provider is the interface for vault file operations. Paths are relative to
// the vault root and use "/" as separator.
type Provider interface {
	// Stat returns the entry at path, or apperr.ErrNotFound.
	Stat(path string) (models.File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// CachedRead returns the file content, served from memory while the file
	// is unchanged on disk.
	CachedRead(path string) (string, error)
	// Create writes a new file and fails with apperr.ErrAlreadyExists if path
	// is taken.
	Create(path string, content []byte) error
	// Write atomically writes content to path, replacing any existing file.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Walk calls fn for every entry below folder. Hidden entries are skipped.
	Walk(folder string, fn func(models.File) error) error
	// EnsureFolder creates folder and its parents. An existing folder is not
	// an error.
	EnsureFolder(folder string) error
}
