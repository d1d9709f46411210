// Package testutil provides shared test helpers for setting up vaults,
// indexes and date libraries.
package testutil

import (
	"testing"
	"time"

	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/index"
	"github.com/starford/periodic/internal/vault"
)

// TestDB opens an in-memory index that is closed when the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(index.MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a file-system provider.
func TestVault(t *testing.T) (string, *vault.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// FixedLibrary returns an English, UTC date library whose clock is stuck at
// now.
func FixedLibrary(now time.Time, opts ...dateformat.Option) *dateformat.Library {
	base := []dateformat.Option{
		dateformat.WithLocation(time.UTC),
		dateformat.WithClock(func() time.Time { return now }),
	}
	return dateformat.New(append(base, opts...)...)
}
