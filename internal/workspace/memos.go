package workspace

import (
	"strings"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/models"
)

// Draft is the scratch copy of the memo open in the editor.
type Draft struct {
	models.Memo
	IsNew bool `json:"isNew"`
}

// Memos lists the memos of a folder, newest first. A non-empty query keeps
// only memos whose title or content contains it, ignoring case.
func (w *Workspace) Memos(folderID, query string) ([]models.Memo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.accessibleLocked(folderID); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Memo{}
	for _, m := range w.memos {
		if m.FolderID != folderID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(m.Title), q) && !strings.Contains(strings.ToLower(m.Content), q) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Memo returns a memo by id.
func (w *Workspace) Memo(id string) (models.Memo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.memoIndexLocked(id)
	if i < 0 {
		return models.Memo{}, apperr.ErrNotFound
	}
	m := w.memos[i]
	if _, err := w.accessibleLocked(m.FolderID); err != nil {
		return models.Memo{}, err
	}
	return m, nil
}

// NewMemo opens an empty draft in folderID.
func (w *Workspace) NewMemo(folderID string) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.accessibleLocked(folderID); err != nil {
		return Draft{}, err
	}
	now := w.now().UTC()
	w.active = folderID
	w.draft = &Draft{
		Memo: models.Memo{
			ID:        newID(),
			FolderID:  folderID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		IsNew: true,
	}
	return *w.draft, nil
}

// EditMemo opens a copy of an existing memo in the editor.
func (w *Workspace) EditMemo(id string) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.memoIndexLocked(id)
	if i < 0 {
		return Draft{}, apperr.ErrNotFound
	}
	m := w.memos[i]
	if _, err := w.accessibleLocked(m.FolderID); err != nil {
		return Draft{}, err
	}
	w.active = m.FolderID
	w.draft = &Draft{Memo: m}
	return *w.draft, nil
}

// UpdateDraft replaces the title and content of the open draft.
func (w *Workspace) UpdateDraft(title, content string) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return Draft{}, apperr.ErrNoOpenMemo
	}
	w.draft.Title = title
	w.draft.Content = content
	return *w.draft, nil
}

// CurrentDraft returns the open draft, if any.
func (w *Workspace) CurrentDraft() (Draft, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return Draft{}, false
	}
	return *w.draft, true
}

// CloseEditor discards the draft without saving.
func (w *Workspace) CloseEditor() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = nil
}

// SaveMemo commits the draft: a new memo goes to the front of the list, an
// existing one is replaced in place. The editor stays open on the result.
func (w *Workspace) SaveMemo() (models.Memo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return models.Memo{}, apperr.ErrNoOpenMemo
	}
	m := w.commitLocked()
	return m, w.persistLocked()
}

// DeleteMemo removes a memo, closing the editor if it was open on it.
func (w *Workspace) DeleteMemo(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.memoIndexLocked(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	if _, err := w.accessibleLocked(w.memos[i].FolderID); err != nil {
		return err
	}
	w.memos = append(w.memos[:i:i], w.memos[i+1:]...)
	if w.draft != nil && w.draft.ID == id {
		w.draft = nil
	}
	w.emit(EventMemoDeleted, map[string]string{"id": id})
	return w.persistLocked()
}

func (w *Workspace) commitLocked() models.Memo {
	m := w.draft.Memo
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		m.Title = models.DefaultMemoTitle
	}
	m.UpdatedAt = w.now().UTC()

	if i := w.memoIndexLocked(m.ID); i >= 0 {
		w.memos[i] = m
	} else {
		w.memos = append([]models.Memo{m}, w.memos...)
	}
	w.draft = &Draft{Memo: m}
	w.emit(EventMemoSaved, map[string]string{"id": m.ID, "folderId": m.FolderID})
	return m
}

func (w *Workspace) memoIndexLocked(id string) int {
	for i, m := range w.memos {
		if m.ID == id {
			return i
		}
	}
	return -1
}
