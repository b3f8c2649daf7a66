// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/memodesk/internal/api"
	"github.com/starford/memodesk/internal/mcpserver"
	"github.com/starford/memodesk/internal/sse"
	"github.com/starford/memodesk/internal/workspace"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg.App.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("local_driver", cfg.Local.Driver),
		slog.String("local_path", cfg.Local.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sess, err := openSession(ctx, cfg, logger, broker.NotifySync, workspace.WithObserver(broker.Notify))
	if err != nil {
		return err
	}
	defer sess.Close()

	apiRouter := api.NewRouter(sess.ws, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	// Background loops stop on runCtx; the shutdown goroutine cancels it
	// once the HTTP server is down so the persister can drain.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return sess.persister.Run(gCtx)
	})

	g.Go(func() error {
		return sess.ws.RunAutosave(gCtx, cfg.Autosave.Interval)
	})

	g.Go(func() error {
		if err := sess.watch(gCtx, logger); err != nil {
			logger.Warn("watcher: disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Keep whatever is open in the editor.
		if saved, err := sess.ws.Autosave(); err != nil {
			logger.Error("final autosave failed", slog.String("error", err.Error()))
		} else if saved {
			logger.Info("Open memo saved before shutdown")
		}

		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg.App.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	sess, err := openSession(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	srv := mcpserver.New(sess.ws, app.version)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return sess.persister.Run(gCtx)
	})
	g.Go(func() error {
		if err := sess.watch(gCtx, logger); err != nil {
			logger.Warn("watcher: disabled", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		logger.Info("MCP server listening on stdio")
		return srv.ServeStdio()
	})

	return g.Wait()
}

// ExportRequest selects what Export writes.
type ExportRequest struct {
	MemoID   string // empty exports the full snapshot
	Password string // needed for a memo in a private folder
	Out      string // destination file; empty writes to stdout
}

// Export writes the full snapshot or a single memo as JSON.
func Export(ctx context.Context, cfg *Config, req ExportRequest) error {
	logger := newLogger(cfg.App.LogLevel, os.Stderr)

	sess, err := openSession(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	var data []byte
	if req.MemoID == "" {
		data, err = sess.ws.Export()
	} else {
		data, err = exportMemo(sess.ws, req.MemoID, req.Password)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if req.Out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := writeFileAtomic(req.Out, data); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	logger.Info("export: written", slog.String("path", req.Out), slog.Int("bytes", len(data)))
	return nil
}

func exportMemo(ws *workspace.Workspace, id, password string) ([]byte, error) {
	for _, m := range ws.Snapshot().Memos {
		if m.ID != id {
			continue
		}
		if v, err := ws.Folder(m.FolderID); err == nil && v.Locked {
			if _, err := ws.Unlock(m.FolderID, password); err != nil {
				return nil, err
			}
		}
		break
	}
	return ws.ExportMemo(id)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".memodesk-export-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
