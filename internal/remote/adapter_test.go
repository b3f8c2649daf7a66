package remote_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/localstore"
	"github.com/starford/memodesk/internal/models"
	"github.com/starford/memodesk/internal/remote"
	"github.com/starford/memodesk/internal/testutil"
)

const token = "ghp_test"

func remoteSettings(tok string) models.Settings {
	return models.Settings{
		Account:        "octo",
		RepositoryName: "memos",
		AccessToken:    tok,
		StorageMode:    models.StorageRemote,
		Configured:     true,
	}
}

func newAdapter(t *testing.T, host *testutil.FakeHost, s models.Settings, retries int) (*remote.Adapter, *localstore.Store) {
	t.Helper()
	local, _ := testutil.TestLocal(t)
	client := remote.NewClient(s, remote.Options{
		APIBase:     host.APIBase(),
		RawBase:     host.RawBase(),
		Branch:      "main",
		Path:        "data.json",
		ReadRetries: retries,
	}, nil)
	return remote.NewAdapter(s, client, local, testutil.Logger()), local
}

func snapshot() models.Snapshot {
	t0 := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	return models.Snapshot{
		Folders:     []models.Folder{{ID: "f1", Name: "Journal", Visibility: models.Public, CreatedAt: t0}},
		Memos:       []models.Memo{{ID: "m1", FolderID: "f1", Title: "Día 1 ✓", Content: "日本語のメモ", CreatedAt: t0, UpdatedAt: t0}},
		Passwords:   []models.PasswordEntry{},
		LastUpdated: t0,
	}
}

func TestSaveCreatesThenLoadRoundTrips(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	a, _ := newAdapter(t, host, remoteSettings(token), 0)
	ctx := context.Background()

	in := snapshot()
	if err := a.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, exists := host.Content(); !exists {
		t.Fatal("file was not created")
	}
	sha, msg := host.LastPut()
	if sha != "" {
		t.Errorf("create should not send a sha, sent %q", sha)
	}
	if !strings.HasPrefix(msg, "Update memos ") {
		t.Errorf("commit message = %q", msg)
	}

	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(*got, in) {
		t.Errorf("remote round trip mismatch:\n got  %+v\n want %+v", *got, in)
	}
}

func TestSaveUpdateSendsVersionToken(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	a, _ := newAdapter(t, host, remoteSettings(token), 0)
	ctx := context.Background()

	if err := a.Save(ctx, snapshot()); err != nil {
		t.Fatal(err)
	}
	next := snapshot()
	next.Memos[0].Content = "edited"
	if err := a.Save(ctx, next); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if sha, _ := host.LastPut(); sha == "" {
		t.Error("update should send the version token")
	}
	got, _ := a.Load(ctx)
	if got.Memos[0].Content != "edited" {
		t.Errorf("content = %q", got.Memos[0].Content)
	}
}

func TestStaleVersionTokenFallsBackAndPropagates(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	host.Seed([]byte(`{"folders":[],"memos":[],"passwords":[],"lastUpdated":"2026-01-01T00:00:00Z"}`))
	host.SetRaceAfterMetadata(true)
	a, local := newAdapter(t, host, remoteSettings(token), 0)

	in := snapshot()
	err := a.Save(context.Background(), in)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	var re *remote.Error
	if !errors.As(err, &re) || !strings.Contains(re.Message, "does not match") {
		t.Errorf("error should carry the API message, got %v", err)
	}

	saved, lerr := local.Load()
	if lerr != nil || saved == nil {
		t.Fatalf("local fallback missing: %v", lerr)
	}
	if !reflect.DeepEqual(*saved, in) {
		t.Error("local fallback does not hold the rejected snapshot")
	}
}

func TestRejectedUploadLeavesLocalStoreAlone(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	host.SetFailPuts(1)
	a, local := newAdapter(t, host, remoteSettings(token), 0)

	data, _ := localstore.Encode(snapshot())
	err := a.Upload(context.Background(), data)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if saved, _ := local.Load(); saved != nil {
		t.Error("Upload wrote the rejected snapshot locally")
	}
}

func TestSaveWithoutTokenIsNoop(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	a, _ := newAdapter(t, host, remoteSettings(""), 0)
	if err := a.Save(context.Background(), snapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.Active() {
		t.Error("adapter without token should not be active")
	}
	if _, meta, puts := host.Stats(); meta+puts != 0 {
		t.Errorf("expected no requests, got meta=%d puts=%d", meta, puts)
	}
}

func TestLocalModeNeverContactsHost(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	s := remoteSettings(token)
	s.StorageMode = models.StorageLocal
	a, local := newAdapter(t, host, s, 0)
	ctx := context.Background()

	_ = local.Save(snapshot())
	if err := a.Save(ctx, snapshot()); err != nil {
		t.Fatal(err)
	}
	got, err := a.Load(ctx)
	if err != nil || got == nil {
		t.Fatalf("Load: %v", err)
	}
	if raw, meta, puts := host.Stats(); raw+meta+puts != 0 {
		t.Errorf("host contacted in local mode: %d/%d/%d", raw, meta, puts)
	}
}

func TestLoadFallsBackToLocal(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	host.SetFailRaw(true)
	a, local := newAdapter(t, host, remoteSettings(token), 0)

	in := snapshot()
	_ = local.Save(in)
	got, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Folders[0].Name != "Journal" {
		t.Errorf("expected local snapshot, got %+v", got)
	}
}

func TestLoadRetriesRecoverableFailures(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	host.SetFailRaw(true)
	a, _ := newAdapter(t, host, remoteSettings(token), 2)

	got, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("no local data expected, got %+v", got)
	}
	if raw, _, _ := host.Stats(); raw != 3 {
		t.Errorf("raw gets = %d, want 3", raw)
	}
}

func TestPutUnauthorizedCarriesMessage(t *testing.T) {
	host := testutil.NewFakeHost(t, token)
	a, _ := newAdapter(t, host, remoteSettings("wrong"), 0)
	err := a.Save(context.Background(), snapshot())
	var re *remote.Error
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *remote.Error", err)
	}
	if re.Status != 401 || re.Message != "Bad credentials" {
		t.Errorf("got status %d message %q", re.Status, re.Message)
	}
}
