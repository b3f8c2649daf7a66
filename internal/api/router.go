package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memodesk/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ws *workspace.Workspace, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ws)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)
	r.Get("/folders/{id}", h.GetFolder)
	r.Delete("/folders/{id}", h.DeleteFolder)
	r.Post("/folders/{id}/select", h.SelectFolder)
	r.Post("/folders/{id}/unlock", h.UnlockFolder)
	r.Post("/folders/{id}/lock", h.LockFolder)
	r.Get("/folders/{id}/memos", h.ListMemos)

	// Memos.
	r.Get("/memos/{id}", h.GetMemo)
	r.Delete("/memos/{id}", h.DeleteMemo)
	r.Get("/memos/{id}/export", h.ExportMemo)

	// Editor.
	r.Get("/editor", h.GetEditor)
	r.Post("/editor", h.NewDraft)
	r.Put("/editor", h.UpdateDraft)
	r.Delete("/editor", h.CloseEditor)
	r.Post("/editor/save", h.SaveDraft)
	r.Post("/editor/{memoId}", h.OpenDraft)

	r.Get("/export", h.Export)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
