// Package testutil provides shared test helpers: temporary stores and a fake
// of the hosted-repository contents API.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/localstore"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestKV creates a file-backed key-value store in a temp directory.
func TestKV(t *testing.T) *kv.FS {
	t.Helper()
	store, err := kv.NewFS(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestLocal creates a localstore over a fresh file-backed store.
func TestLocal(t *testing.T) (*localstore.Store, *kv.FS) {
	t.Helper()
	backend := TestKV(t)
	return localstore.New(backend, Logger()), backend
}
