package localstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/starford/memodesk/internal/checksum"
	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSnapshot() models.Snapshot {
	t0 := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return models.Snapshot{
		Folders: []models.Folder{
			{ID: "f2", Name: "Work", Visibility: models.Private, CreatedAt: t0},
			{ID: "f1", Name: "Home", Visibility: models.Public, CreatedAt: t0.Add(time.Minute)},
		},
		Memos: []models.Memo{
			{ID: "m2", FolderID: "f1", Title: "Groceries", Content: "milk, 卵", CreatedAt: t0, UpdatedAt: t0},
			{ID: "m1", FolderID: "f2", Title: "Plan", Content: "ship it", CreatedAt: t0, UpdatedAt: t0.Add(time.Hour)},
		},
		Passwords:   []models.PasswordEntry{{FolderID: "f2", Encoded: "MTIzNA=="}},
		LastUpdated: t0.Add(2 * time.Hour),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, driver := range []string{kv.DriverFile, kv.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			path := t.TempDir()
			if driver == kv.DriverSQLite {
				path += "/memodesk.db"
			}
			backend, err := kv.Open(driver, path)
			if err != nil {
				t.Fatal(err)
			}
			defer backend.Close()

			s := New(backend, quietLogger())
			in := sampleSnapshot()
			if err := s.Save(in); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(*got, in) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *got, in)
			}
		})
	}
}

func TestLoadEmpty(t *testing.T) {
	backend, _ := kv.NewFS(t.TempDir())
	got, err := New(backend, quietLogger()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("expected no data, got %+v", got)
	}
}

func TestLoadCorruptPropagates(t *testing.T) {
	backend, _ := kv.NewFS(t.TempDir())
	_ = backend.Put(DataKey, []byte("{broken"))
	if _, err := New(backend, quietLogger()).Load(); err == nil {
		t.Error("expected parse error")
	}
}

type brokenStore struct{ kv.Store }

func (brokenStore) Put(string, []byte) error { return errors.New("read-only file system") }

func TestFailedWriteIsNotRememberedAsOwn(t *testing.T) {
	backend, _ := kv.NewFS(t.TempDir())
	s := New(brokenStore{backend}, quietLogger())

	first, _ := Encode(sampleSnapshot())
	if err := s.SaveRaw(first); err == nil {
		t.Fatal("expected write error")
	}
	if s.isOwnWrite(checksum.Sum(first)) {
		t.Error("failed write is treated as our own")
	}
}

func TestFailedWriteKeepsPreviousOwnChecksum(t *testing.T) {
	backend, _ := kv.NewFS(t.TempDir())
	s := New(backend, quietLogger())
	first, _ := Encode(sampleSnapshot())
	if err := s.SaveRaw(first); err != nil {
		t.Fatal(err)
	}

	s.kv = brokenStore{backend}
	next := sampleSnapshot()
	next.Memos[0].Content = "changed"
	second, _ := Encode(next)
	if err := s.SaveRaw(second); err == nil {
		t.Fatal("expected write error")
	}
	if !s.isOwnWrite(checksum.Sum(first)) {
		t.Error("checksum of the write that did land was lost")
	}
	if s.isOwnWrite(checksum.Sum(second)) {
		t.Error("failed write is treated as our own")
	}
}

func TestEncodeUsesArraysForEmptySnapshot(t *testing.T) {
	data, err := Encode(models.Snapshot{})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"folders":[],"memos":[],"passwords":[],"lastUpdated":"0001-01-01T00:00:00Z"}`
	if string(data) != want {
		t.Errorf("Encode = %s", data)
	}
}

func TestWatchSeesExternalWritesOnly(t *testing.T) {
	dir := t.TempDir()
	backend, _ := kv.NewFS(dir)
	s := New(backend, quietLogger())

	changes := make(chan *models.Snapshot, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Watch(ctx, func(snap *models.Snapshot) { changes <- snap })
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(50 * time.Millisecond)

	// Own write is ignored.
	if err := s.Save(sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
		t.Fatal("own write should not be reported")
	case <-time.After(500 * time.Millisecond):
	}

	// A second process writing the same directory is reported.
	other, _ := kv.NewFS(dir)
	external := sampleSnapshot()
	external.Folders = external.Folders[:1]
	data, _ := Encode(external)
	if err := other.Put(DataKey, data); err != nil {
		t.Fatal(err)
	}
	select {
	case snap := <-changes:
		if len(snap.Folders) != 1 {
			t.Errorf("folders = %d, want 1", len(snap.Folders))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for external change")
	}
}

func TestWatchNonFileBackendReturns(t *testing.T) {
	db, err := kv.OpenSQLite(t.TempDir() + "/w.db")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := New(db, quietLogger()).Watch(context.Background(), nil); err != nil {
		t.Errorf("Watch: %v", err)
	}
}
