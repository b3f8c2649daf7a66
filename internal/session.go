package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/localstore"
	"github.com/starford/memodesk/internal/models"
	"github.com/starford/memodesk/internal/persist"
	"github.com/starford/memodesk/internal/remote"
	"github.com/starford/memodesk/internal/settings"
	"github.com/starford/memodesk/internal/workspace"
)

// session is the storage and state stack every command works on.
type session struct {
	store     kv.Store
	settings  models.Settings
	local     *localstore.Store
	persister *persist.Persister
	ws        *workspace.Workspace
}

func newLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession opens the local store, reads the settings record, wires the
// persistence path and loads the initial snapshot into a workspace.
func openSession(ctx context.Context, cfg *Config, logger *slog.Logger, notify persist.Notifier, wsOpts ...workspace.Option) (*session, error) {
	store, err := kv.Open(cfg.Local.Driver, cfg.Local.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	s := settings.Load(store, logger)
	if !s.Configured {
		_ = store.Close()
		return nil, fmt.Errorf("%w: run the setup command first", apperr.ErrNotConfigured)
	}

	local := localstore.New(store, logger)

	var adapter *remote.Adapter
	if s.Remote() {
		client := remote.NewClient(s, cfg.Remote.Options(), nil)
		adapter = remote.NewAdapter(s, client, local, logger)
		if !adapter.Active() {
			logger.Warn("session: remote storage selected but no access token configured, saving locally only")
		}
	}
	p := persist.New(local, adapter, logger, notify)

	opts := append([]workspace.Option{
		workspace.WithScheme(cfg.Access.Scheme()),
		workspace.WithLogger(logger),
	}, wsOpts...)
	ws := workspace.New(p, opts...)

	snap, err := p.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	ws.Restore(snap)

	logger.Info("session: snapshot loaded",
		slog.String("storage_mode", s.StorageMode),
		slog.Bool("found", snap != nil),
		slog.Int("folders", len(ws.Folders())))

	return &session{
		store:     store,
		settings:  s,
		local:     local,
		persister: p,
		ws:        ws,
	}, nil
}

// watch reloads the workspace whenever another process rewrites the local
// snapshot.
func (s *session) watch(ctx context.Context, logger *slog.Logger) error {
	return s.local.Watch(ctx, func(snap *models.Snapshot) {
		logger.Info("session: snapshot changed on disk, reloading")
		s.ws.Reload(snap)
	})
}

func (s *session) Close() error {
	return s.store.Close()
}

// Setup validates and stores the connection settings. In remote mode with
// a token it also checks that the repository is reachable; an unreachable
// repository is reported but does not undo the save.
func Setup(ctx context.Context, cfg *Config, s models.Settings) error {
	store, err := kv.Open(cfg.Local.Driver, cfg.Local.Path)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer store.Close()

	if err := settings.Save(store, s); err != nil {
		return err
	}
	if !s.Remote() || s.AccessToken == "" {
		return nil
	}

	client := remote.NewClient(s, cfg.Remote.Options(), nil)
	if _, _, err := client.FetchSHA(ctx); err != nil {
		return fmt.Errorf("settings saved, but the repository check failed: %w", err)
	}
	return nil
}
