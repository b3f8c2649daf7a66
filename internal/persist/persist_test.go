package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/localstore"
	"github.com/starford/memodesk/internal/models"
	"github.com/starford/memodesk/internal/remote"
	"github.com/starford/memodesk/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (r *recorder) notify(kind string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
	r.errs = append(r.errs, err)
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), append([]error(nil), r.errs...)
}

func snap(title string) models.Snapshot {
	t0 := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	return models.Snapshot{
		Folders:     []models.Folder{{ID: "f", Name: "Inbox", Visibility: models.Public, CreatedAt: t0}},
		Memos:       []models.Memo{{ID: "m", FolderID: "f", Title: title, CreatedAt: t0, UpdatedAt: t0}},
		LastUpdated: t0,
	}
}

func remotePersister(t *testing.T, host *testutil.FakeHost) (*Persister, *recorder) {
	t.Helper()
	local, _ := testutil.TestLocal(t)
	s := models.Settings{Account: "octo", RepositoryName: "memos", AccessToken: "tok", StorageMode: models.StorageRemote, Configured: true}
	client := remote.NewClient(s, remote.Options{APIBase: host.APIBase(), RawBase: host.RawBase(), Branch: "main", Path: "data.json"}, nil)
	rec := &recorder{}
	p := New(local, remote.NewAdapter(s, client, local, testutil.Logger()), testutil.Logger(), rec.notify)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p, rec
}

func flush(t *testing.T, p *Persister) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestLocalOnlySave(t *testing.T) {
	local, _ := testutil.TestLocal(t)
	p := New(local, nil, testutil.Logger(), nil)
	if err := p.Save(snap("a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := p.Load(context.Background())
	if err != nil || got == nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Memos[0].Title != "a" {
		t.Errorf("title = %q", got.Memos[0].Title)
	}
	flush(t, p)
}

func TestPushReachesHost(t *testing.T) {
	host := testutil.NewFakeHost(t, "tok")
	p, rec := remotePersister(t, host)

	if err := p.Save(snap("first")); err != nil {
		t.Fatal(err)
	}
	flush(t, p)

	body, ok := host.Content()
	if !ok {
		t.Fatal("nothing pushed")
	}
	want, _ := localstore.Encode(snap("first"))
	if string(body) != string(want) {
		t.Errorf("hosted body = %s", body)
	}
	if events, _ := rec.snapshot(); len(events) != 1 || events[0] != EventSyncSucceeded {
		t.Errorf("events = %v", events)
	}
}

func TestOverlappingSavesCoalesce(t *testing.T) {
	host := testutil.NewFakeHost(t, "tok")
	host.SetDelay(300 * time.Millisecond)
	p, _ := remotePersister(t, host)

	_ = p.Save(snap("one"))
	time.Sleep(50 * time.Millisecond) // first push is now waiting on metadata
	_ = p.Save(snap("two"))
	_ = p.Save(snap("three"))
	_ = p.Save(snap("four"))
	flush(t, p)

	if _, _, puts := host.Stats(); puts != 2 {
		t.Errorf("puts = %d, want 2 (one in flight, one coalesced)", puts)
	}
	body, _ := host.Content()
	want, _ := localstore.Encode(snap("four"))
	if string(body) != string(want) {
		t.Errorf("hosted body is not the newest snapshot: %s", body)
	}
}

func TestUnchangedSnapshotIsNotPushedTwice(t *testing.T) {
	host := testutil.NewFakeHost(t, "tok")
	p, _ := remotePersister(t, host)

	_ = p.Save(snap("same"))
	flush(t, p)
	_ = p.Save(snap("same"))
	flush(t, p)

	if _, _, puts := host.Stats(); puts != 1 {
		t.Errorf("puts = %d, want 1", puts)
	}
}

func TestConflictNotifiesFailure(t *testing.T) {
	host := testutil.NewFakeHost(t, "tok")
	host.Seed([]byte(`{}`))
	host.SetRaceAfterMetadata(true)
	p, rec := remotePersister(t, host)

	_ = p.Save(snap("mine"))
	flush(t, p)

	events, errs := rec.snapshot()
	if len(events) != 1 || events[0] != EventSyncFailed {
		t.Fatalf("events = %v", events)
	}
	if !errors.Is(errs[0], apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", errs[0])
	}
}

func TestFailedPushDoesNotRollBackNewerLocalSave(t *testing.T) {
	host := testutil.NewFakeHost(t, "tok")
	host.SetDelay(200 * time.Millisecond)
	host.SetFailPuts(1)
	p, rec := remotePersister(t, host)

	_ = p.Save(snap("old"))
	time.Sleep(50 * time.Millisecond) // "old" is waiting on metadata
	_ = p.Save(snap("new"))
	flush(t, p)

	got, err := p.local.Load()
	if err != nil {
		t.Fatalf("local Load: %v", err)
	}
	if len(got.Memos) != 1 || got.Memos[0].Title != "new" {
		t.Errorf("local snapshot = %+v, want title new", got.Memos)
	}
	body, _ := host.Content()
	want, _ := localstore.Encode(snap("new"))
	if string(body) != string(want) {
		t.Errorf("hosted body = %s", body)
	}
	if events, _ := rec.snapshot(); len(events) != 2 || events[0] != EventSyncFailed || events[1] != EventSyncSucceeded {
		t.Errorf("events = %v", events)
	}
}

type failingKV struct{ kv.Store }

func (failingKV) Put(string, []byte) error { return errors.New("disk full") }

func TestLocalFailureSkipsPush(t *testing.T) {
	host := testutil.NewFakeHost(t, "tok")
	backend := failingKV{testutil.TestKV(t)}
	local := localstore.New(backend, testutil.Logger())
	s := models.Settings{Account: "o", RepositoryName: "r", AccessToken: "tok", StorageMode: models.StorageRemote}
	client := remote.NewClient(s, remote.Options{APIBase: host.APIBase(), RawBase: host.RawBase(), Branch: "main", Path: "data.json"}, nil)
	p := New(local, remote.NewAdapter(s, client, local, testutil.Logger()), testutil.Logger(), nil)

	if err := p.Save(snap("x")); err == nil {
		t.Fatal("expected local write error")
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("nothing should be pending: %v", err)
	}
	if _, meta, puts := host.Stats(); meta+puts != 0 {
		t.Error("push attempted after local failure")
	}
}
