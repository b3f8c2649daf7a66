// Package workspace owns the in-memory folders, memos and folder gate for a
// session, together with the selection and editor state that drive the UI.
// Every mutation goes through a Workspace method and ends with a save.
package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/memodesk/internal/access"
	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/localstore"
	"github.com/starford/memodesk/internal/models"
)

// Event kinds emitted to the Observer.
const (
	EventFolderCreated    = "folder.created"
	EventFolderDeleted    = "folder.deleted"
	EventMemoSaved        = "memo.saved"
	EventMemoDeleted      = "memo.deleted"
	EventSnapshotReloaded = "snapshot.reloaded"
)

// Saver persists a snapshot. *persist.Persister satisfies it.
type Saver interface {
	Save(snap models.Snapshot) error
}

// Observer receives change notifications. It is called with the workspace
// lock held and must not block or call back into the Workspace.
type Observer func(kind string, data map[string]string)

// Option configures a Workspace.
type Option func(*Workspace)

// WithScheme sets the encoding used for new folder passwords.
func WithScheme(s access.Scheme) Option {
	return func(w *Workspace) { w.gate = access.NewGate(s) }
}

// WithObserver registers a change observer.
func WithObserver(o Observer) Option {
	return func(w *Workspace) { w.observe = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// Workspace is the single owner of entity state for a session.
type Workspace struct {
	mu sync.Mutex

	saver   Saver
	gate    *access.Gate
	observe Observer
	now     func() time.Time
	logger  *slog.Logger

	folders     []models.Folder
	memos       []models.Memo
	lastUpdated time.Time

	active string // selected folder id
	draft  *Draft
}

// New creates an empty Workspace that saves through saver.
func New(saver Saver, opts ...Option) *Workspace {
	w := &Workspace{
		saver:  saver,
		gate:   access.NewGate(access.SchemeArgon2id),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Restore replaces the workspace data with snap without saving. It is used
// for the initial load; nothing is unlocked by it.
func (w *Workspace) Restore(snap *models.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.replaceLocked(snap)
}

// Reload applies a snapshot written elsewhere. Selection is kept only if its
// folder survived. The editor is kept only if its folder survived and, for
// an existing memo, the memo did too. Session unlocks are kept only for
// folders whose credential did not change.
func (w *Workspace) Reload(snap *models.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.replaceLocked(snap)

	if _, ok := w.folderLocked(w.active); !ok {
		w.active = ""
	}
	if w.draft != nil {
		if _, ok := w.folderLocked(w.draft.FolderID); !ok {
			w.draft = nil
		} else if !w.draft.IsNew && w.memoIndexLocked(w.draft.ID) < 0 {
			w.draft = nil
		}
	}
	w.emit(EventSnapshotReloaded, map[string]string{
		"folders": fmt.Sprint(len(w.folders)),
		"memos":   fmt.Sprint(len(w.memos)),
	})
}

func (w *Workspace) replaceLocked(snap *models.Snapshot) {
	if snap == nil {
		snap = &models.Snapshot{}
	}
	w.folders = append([]models.Folder(nil), snap.Folders...)
	w.memos = append([]models.Memo(nil), snap.Memos...)
	w.lastUpdated = snap.LastUpdated
	w.gate.Replace(snap.Passwords)
}

// Snapshot returns the current durable state.
func (w *Workspace) Snapshot() models.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Folders:     append([]models.Folder(nil), w.folders...),
		Memos:       append([]models.Memo(nil), w.memos...),
		Passwords:   w.gate.Entries(),
		LastUpdated: w.lastUpdated,
	}
	snap.Normalize()
	return snap
}

// Export serializes the full snapshot exactly as the local store writes it.
func (w *Workspace) Export() ([]byte, error) {
	return localstore.Encode(w.Snapshot())
}

// ExportMemo serializes a single memo. Memos in locked folders are refused.
func (w *Workspace) ExportMemo(id string) ([]byte, error) {
	m, err := w.Memo(id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("workspace: encode memo: %w", err)
	}
	return data, nil
}

func (w *Workspace) persistLocked() error {
	w.lastUpdated = w.now().UTC()
	if err := w.saver.Save(w.snapshotLocked()); err != nil {
		w.logger.Error("workspace: save failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", apperr.ErrSaveFailed, err)
	}
	return nil
}

func (w *Workspace) emit(kind string, data map[string]string) {
	if w.observe != nil {
		w.observe(kind, data)
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
