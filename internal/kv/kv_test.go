package kv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/memodesk/internal/apperr"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFS(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "memodesk.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]Store{"file": fs, "sqlite": db}
}

func TestPutAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Put("memodesk.data", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := s.Get("memodesk.data")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"a":1}` {
				t.Errorf("value = %q", got)
			}

			if err := s.Put("memodesk.data", []byte(`{"a":2}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = s.Get("memodesk.data")
			if string(got) != `{"a":2}` {
				t.Errorf("value after overwrite = %q", got)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("nothing-here")
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Put("gone", []byte("x"))
			if err := s.Delete("gone"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get("gone"); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete("gone"); err != nil {
				t.Errorf("second delete: %v", err)
			}
		})
	}
}

func TestInvalidKeys(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"", "../escape", "/etc/passwd", ".hidden", "a/b"} {
				if err := s.Put(k, []byte("x")); err == nil {
					t.Errorf("expected error for key %q", k)
				}
				if _, err := s.Get(k); err == nil || errors.Is(err, apperr.ErrNotFound) {
					t.Errorf("expected validation error for key %q, got %v", k, err)
				}
			}
		})
	}
}

func TestFSNoLeftoverTempFiles(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Put("k", []byte("one"))
	_ = s.Put("k", []byte("two"))
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".memodesk-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "memodesk-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("redis", t.TempDir()); err == nil {
		t.Error("expected error for unknown driver")
	}
}
