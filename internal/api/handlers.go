package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memodesk/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	ws *workspace.Workspace
}

// NewHandler creates a new Handler.
func NewHandler(ws *workspace.Workspace) *Handler {
	return &Handler{ws: ws}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return false
	}
	return true
}

// ListFolders handles GET /api/folders.
//
//	@Summary		List folders in creation order
//	@Tags			folders
//	@Produce		json
//	@Success		200		{object}	FolderListResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: h.ws.Folders()})
}

// CreateFolder handles POST /api/folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFolderRequest	true	"Folder to create"
//	@Success		201		{object}	models.Folder
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, err := h.ws.CreateFolder(req)
	if err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// GetFolder handles GET /api/folders/{id}.
func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	v, err := h.ws.Folder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get folder", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteFolder handles DELETE /api/folders/{id}. Without confirm=true it
// answers 409 with the number of memos the delete would remove.
//
//	@Summary		Delete a folder and all of its memos
//	@Tags			folders
//	@Produce		json
//	@Param			id		path		string	true	"Folder id"
//	@Param			confirm	query		bool	false	"Confirm the cascade"
//	@Success		200		{object}	DeleteFolderResponse
//	@Failure		409		{object}	DeleteConfirmation
//	@Security		BearerAuth
//	@Router			/folders/{id} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !confirmed {
		f, n, err := h.ws.DeletePreview(id)
		if err != nil {
			writeError(w, "delete folder", err)
			return
		}
		writeJSON(w, http.StatusConflict, DeleteConfirmation{
			Error:     "confirmation required",
			Folder:    f.Name,
			MemoCount: n,
		})
		return
	}
	removed, err := h.ws.DeleteFolder(id)
	if err != nil {
		writeError(w, "delete folder", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteFolderResponse{RemovedMemos: removed})
}

// SelectFolder handles POST /api/folders/{id}/select. A locked folder
// answers 423 so the client can prompt for the password.
func (h *Handler) SelectFolder(w http.ResponseWriter, r *http.Request) {
	f, err := h.ws.SelectFolder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "select folder", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// UnlockFolder handles POST /api/folders/{id}/unlock.
func (h *Handler) UnlockFolder(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	f, err := h.ws.Unlock(chi.URLParam(r, "id"), req.Password)
	if err != nil {
		writeError(w, "unlock folder", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// LockFolder handles POST /api/folders/{id}/lock.
func (h *Handler) LockFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Lock(chi.URLParam(r, "id")); err != nil {
		writeError(w, "lock folder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMemos handles GET /api/folders/{id}/memos?q=.
//
//	@Summary		List the memos of a folder, newest first
//	@Tags			memos
//	@Produce		json
//	@Param			id	path		string	true	"Folder id"
//	@Param			q	query		string	false	"Case-insensitive title/content filter"
//	@Success		200	{object}	MemoListResponse
//	@Failure		423	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id}/memos [get]
func (h *Handler) ListMemos(w http.ResponseWriter, r *http.Request) {
	memos, err := h.ws.Memos(chi.URLParam(r, "id"), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "list memos", err)
		return
	}
	writeJSON(w, http.StatusOK, MemoListResponse{Memos: memos})
}

// GetMemo handles GET /api/memos/{id}.
func (h *Handler) GetMemo(w http.ResponseWriter, r *http.Request) {
	m, err := h.ws.Memo(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get memo", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMemo handles DELETE /api/memos/{id}.
func (h *Handler) DeleteMemo(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DeleteMemo(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete memo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportMemo handles GET /api/memos/{id}/export.
func (h *Handler) ExportMemo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.ws.ExportMemo(id)
	if err != nil {
		writeError(w, "export memo", err)
		return
	}
	writeAttachment(w, "memo-"+id+".json", data)
}

// Export handles GET /api/export: the full snapshot, byte-identical to what
// the local store holds.
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	data, err := h.ws.Export()
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writeAttachment(w, "memodesk-export.json", data)
}
