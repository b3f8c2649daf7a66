package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/memodesk/internal/localstore"
	"github.com/starford/memodesk/internal/metrics"
	"github.com/starford/memodesk/internal/models"
)

// ErrInactive is returned by Push when the adapter is not in remote mode or
// has no access token.
var ErrInactive = errors.New("remote: storage is not remote or no token configured")

// Adapter persists snapshots to the hosted file, falling back to the local
// store whenever the hosted copy cannot be read or written.
type Adapter struct {
	client *Client
	remote bool
	local  *localstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAdapter creates an Adapter. When s is not in remote mode every call
// defers to the local store.
func NewAdapter(s models.Settings, client *Client, local *localstore.Store, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		remote: s.Remote(),
		local:  local,
		logger: logger,
		now:    time.Now,
	}
}

// Active reports whether Save will contact the hosted repository.
func (a *Adapter) Active() bool {
	return a.remote && a.client != nil && a.client.HasToken()
}

// Load returns the hosted snapshot. Any failure to fetch or parse it falls
// back to the local snapshot.
func (a *Adapter) Load(ctx context.Context) (*models.Snapshot, error) {
	if !a.remote || a.client == nil {
		return a.local.Load()
	}
	data, err := a.client.FetchRaw(ctx)
	if err == nil {
		snap, perr := localstore.Decode(data)
		if perr == nil {
			a.logger.Info("remote: snapshot loaded", slog.Int("folders", len(snap.Folders)), slog.Int("memos", len(snap.Memos)))
			return snap, nil
		}
		err = perr
	}
	metrics.RemoteLoadFallbacks.Inc()
	a.logger.Warn("remote: load failed, using local snapshot", slog.String("error", err.Error()))
	return a.local.Load()
}

// Save serializes snap and pushes it. It is a logged no-op outside remote
// mode or without an access token.
func (a *Adapter) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := localstore.Encode(snap)
	if err != nil {
		return err
	}
	err = a.Push(ctx, data)
	if errors.Is(err, ErrInactive) {
		return nil
	}
	return err
}

// Push uploads an already serialized snapshot. A rejected upload writes
// data to the local store on a best-effort basis and returns the remote
// error.
func (a *Adapter) Push(ctx context.Context, data []byte) error {
	err := a.Upload(ctx, data)
	if err == nil || errors.Is(err, ErrInactive) {
		return err
	}
	return a.fallback(data, err)
}

// Upload reads the current version token, then PUTs data with it. Unlike
// Push it never touches the local store, for callers that already wrote
// data locally and may have written something newer since.
func (a *Adapter) Upload(ctx context.Context, data []byte) error {
	if !a.remote {
		a.logger.Debug("remote: save skipped, storage mode is local")
		return ErrInactive
	}
	if a.client == nil || !a.client.HasToken() {
		a.logger.Info("remote: save skipped, no access token configured")
		return ErrInactive
	}

	sha, found, err := a.client.FetchSHA(ctx)
	if err != nil {
		var re *Error
		if !errors.As(err, &re) {
			return err
		}
		// Push without a token and let the API decide.
		a.logger.Warn("remote: metadata lookup failed", slog.String("error", err.Error()))
		sha = ""
	} else if !found {
		a.logger.Info("remote: file does not exist yet, creating")
	}

	msg := fmt.Sprintf("Update memos %s", a.now().UTC().Format(time.RFC3339))
	if err := a.client.Put(ctx, data, sha, msg); err != nil {
		return err
	}
	a.logger.Info("remote: snapshot pushed", slog.Bool("created", !found), slog.Int("bytes", len(data)))
	return nil
}

func (a *Adapter) fallback(data []byte, cause error) error {
	if lerr := a.local.SaveRaw(data); lerr != nil {
		a.logger.Error("remote: local fallback write failed", slog.String("error", lerr.Error()))
	}
	return fmt.Errorf("remote: push failed, saved locally: %w", cause)
}
