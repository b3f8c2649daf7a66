package workspace

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/models"
)

// MinPasswordLength is the shortest accepted private-folder password.
const MinPasswordLength = 4

// NewFolder is the input to CreateFolder.
type NewFolder struct {
	Name       string            `json:"name"`
	Visibility models.Visibility `json:"visibility"`
	Password   string            `json:"password,omitempty"`
}

// Validate checks the folder input. Name is expected to be trimmed already.
func (n NewFolder) Validate() error {
	private := n.Visibility == models.Private
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required.Error("folder name is required")),
		validation.Field(&n.Visibility, validation.Required, validation.In(models.Public, models.Private)),
		validation.Field(&n.Password,
			validation.When(private,
				validation.Required.Error("a private folder needs a password"),
				validation.RuneLength(MinPasswordLength, 0).Error("password must be at least 4 characters"),
			),
		),
	)
}

// FolderView is a folder as listed to the UI.
type FolderView struct {
	models.Folder
	Locked    bool `json:"locked"`
	MemoCount int  `json:"memoCount"`
	Active    bool `json:"active"`
}

// Folders lists folders in creation order.
func (w *Workspace) Folders() []FolderView {
	w.mu.Lock()
	defer w.mu.Unlock()

	counts := make(map[string]int, len(w.folders))
	for _, m := range w.memos {
		counts[m.FolderID]++
	}
	out := make([]FolderView, 0, len(w.folders))
	for _, f := range w.folders {
		out = append(out, FolderView{
			Folder:    f,
			Locked:    w.lockedLocked(f),
			MemoCount: counts[f.ID],
			Active:    f.ID == w.active,
		})
	}
	return out
}

// Folder returns the folder view for id.
func (w *Workspace) Folder(id string) (FolderView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.folderLocked(id)
	if !ok {
		return FolderView{}, apperr.ErrNotFound
	}
	return FolderView{
		Folder:    f,
		Locked:    w.lockedLocked(f),
		MemoCount: w.countLocked(id),
		Active:    id == w.active,
	}, nil
}

// CreateFolder validates in, appends the folder and stores its password
// when private. The creating session is left unlocked.
func (w *Workspace) CreateFolder(in NewFolder) (models.Folder, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Visibility == "" {
		in.Visibility = models.Public
	}
	if err := in.Validate(); err != nil {
		return models.Folder{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f := models.Folder{
		ID:         newID(),
		Name:       in.Name,
		Visibility: in.Visibility,
		CreatedAt:  w.now().UTC(),
	}
	if f.IsPrivate() {
		if err := w.gate.Protect(f.ID, in.Password); err != nil {
			return models.Folder{}, err
		}
	}
	w.folders = append(w.folders, f)
	w.emit(EventFolderCreated, map[string]string{"id": f.ID, "name": f.Name})
	return f, w.persistLocked()
}

// DeletePreview reports how many memos deleting id would remove, for the
// confirmation warning.
func (w *Workspace) DeletePreview(id string) (models.Folder, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.folderLocked(id)
	if !ok {
		return models.Folder{}, 0, apperr.ErrNotFound
	}
	return f, w.countLocked(id), nil
}

// DeleteFolder removes the folder, every memo in it and its password. It
// returns the number of memos removed.
func (w *Workspace) DeleteFolder(id string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := -1
	for i, f := range w.folders {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, apperr.ErrNotFound
	}
	w.folders = append(w.folders[:idx:idx], w.folders[idx+1:]...)

	kept := w.memos[:0:0]
	removed := 0
	for _, m := range w.memos {
		if m.FolderID == id {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	w.memos = kept
	w.gate.Remove(id)

	if w.active == id {
		w.active = ""
	}
	if w.draft != nil && w.draft.FolderID == id {
		w.draft = nil
	}
	w.emit(EventFolderDeleted, map[string]string{"id": id})
	return removed, w.persistLocked()
}

// SelectFolder makes id the active folder. A private folder that has not
// been unlocked in this session yields apperr.ErrLocked, which the UI
// answers with a password prompt.
func (w *Workspace) SelectFolder(id string) (models.Folder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.folderLocked(id)
	if !ok {
		return models.Folder{}, apperr.ErrNotFound
	}
	if w.lockedLocked(f) {
		return models.Folder{}, apperr.ErrLocked
	}
	w.active = id
	return f, nil
}

// Unlock verifies password for a private folder and selects it on success.
// A wrong password changes nothing.
func (w *Workspace) Unlock(id, password string) (models.Folder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.folderLocked(id)
	if !ok {
		return models.Folder{}, apperr.ErrNotFound
	}
	if f.IsPrivate() && !w.gate.IsUnlocked(id) {
		if err := w.gate.Unlock(id, password); err != nil {
			return models.Folder{}, err
		}
	}
	w.active = id
	return f, nil
}

// Lock ends the session unlock of a private folder.
func (w *Workspace) Lock(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.folderLocked(id)
	if !ok {
		return apperr.ErrNotFound
	}
	w.gate.Lock(id)
	if f.IsPrivate() {
		if w.active == id {
			w.active = ""
		}
		if w.draft != nil && w.draft.FolderID == id {
			w.draft = nil
		}
	}
	return nil
}

// ActiveFolder returns the selected folder, if any.
func (w *Workspace) ActiveFolder() (models.Folder, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.folderLocked(w.active)
}

func (w *Workspace) folderLocked(id string) (models.Folder, bool) {
	if id == "" {
		return models.Folder{}, false
	}
	for _, f := range w.folders {
		if f.ID == id {
			return f, true
		}
	}
	return models.Folder{}, false
}

func (w *Workspace) lockedLocked(f models.Folder) bool {
	return f.IsPrivate() && !w.gate.IsUnlocked(f.ID)
}

func (w *Workspace) countLocked(folderID string) int {
	n := 0
	for _, m := range w.memos {
		if m.FolderID == folderID {
			n++
		}
	}
	return n
}

// accessibleLocked returns the folder if it exists and is not locked.
func (w *Workspace) accessibleLocked(id string) (models.Folder, error) {
	f, ok := w.folderLocked(id)
	if !ok {
		return models.Folder{}, apperr.ErrNotFound
	}
	if w.lockedLocked(f) {
		return models.Folder{}, apperr.ErrLocked
	}
	return f, nil
}
