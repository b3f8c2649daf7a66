package api

import (
	"github.com/starford/memodesk/internal/models"
	"github.com/starford/memodesk/internal/workspace"
)

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest = workspace.NewFolder

// FolderView is a folder with its lock state and memo count.
type FolderView = workspace.FolderView

// FolderListResponse wraps the folder list.
type FolderListResponse struct {
	Folders []FolderView `json:"folders" validate:"required"`
}

// UnlockRequest carries the password for a private folder.
type UnlockRequest struct {
	Password string `json:"password" example:"1234" validate:"required"`
}

// DeleteConfirmation is returned with 409 when a folder delete was not
// confirmed. MemoCount is the number of memos that would be removed.
type DeleteConfirmation struct {
	Error     string `json:"error"`
	Folder    string `json:"folder" example:"Work"`
	MemoCount int    `json:"memoCount" example:"3"`
}

// DeleteFolderResponse reports a completed cascade delete.
type DeleteFolderResponse struct {
	RemovedMemos int `json:"removedMemos" example:"3"`
}

// MemoListResponse wraps a folder's memos.
type MemoListResponse struct {
	Memos []models.Memo `json:"memos" validate:"required"`
}

// NewDraftRequest opens an empty memo in a folder.
type NewDraftRequest struct {
	FolderID string `json:"folderId" validate:"required"`
}

// UpdateDraftRequest replaces the editor contents.
type UpdateDraftRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"milk, eggs"`
}

// EditorResponse describes the editor state. Draft is nil when no memo is
// open.
type EditorResponse struct {
	Open  bool             `json:"open"`
	Draft *workspace.Draft `json:"draft"`
}
