package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetEditor handles GET /api/editor.
func (h *Handler) GetEditor(w http.ResponseWriter, _ *http.Request) {
	d, ok := h.ws.CurrentDraft()
	if !ok {
		writeJSON(w, http.StatusOK, EditorResponse{})
		return
	}
	writeJSON(w, http.StatusOK, EditorResponse{Open: true, Draft: &d})
}

// NewDraft handles POST /api/editor.
func (h *Handler) NewDraft(w http.ResponseWriter, r *http.Request) {
	var req NewDraftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FolderID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folderId is required"))
		return
	}
	d, err := h.ws.NewMemo(req.FolderID)
	if err != nil {
		writeError(w, "new memo", err)
		return
	}
	writeJSON(w, http.StatusCreated, EditorResponse{Open: true, Draft: &d})
}

// OpenDraft handles POST /api/editor/{memoId}.
func (h *Handler) OpenDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.ws.EditMemo(chi.URLParam(r, "memoId"))
	if err != nil {
		writeError(w, "open memo", err)
		return
	}
	writeJSON(w, http.StatusOK, EditorResponse{Open: true, Draft: &d})
}

// UpdateDraft handles PUT /api/editor.
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req UpdateDraftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.ws.UpdateDraft(req.Title, req.Content)
	if err != nil {
		writeError(w, "update draft", err)
		return
	}
	writeJSON(w, http.StatusOK, EditorResponse{Open: true, Draft: &d})
}

// SaveDraft handles POST /api/editor/save.
func (h *Handler) SaveDraft(w http.ResponseWriter, _ *http.Request) {
	m, err := h.ws.SaveMemo()
	if err != nil {
		writeError(w, "save memo", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CloseEditor handles DELETE /api/editor.
func (h *Handler) CloseEditor(w http.ResponseWriter, _ *http.Request) {
	h.ws.CloseEditor()
	w.WriteHeader(http.StatusNoContent)
}
