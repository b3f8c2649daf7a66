// Package access gates private folders behind passwords.
//
// Stored credentials and session authorization are kept apart: credentials
// travel with the snapshot, while the unlocked set lives only in memory and
// is the sole input to "should this folder prompt?".
package access

import (
	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/models"
)

// Gate holds folder credentials and the folders unlocked in this session.
// It is not safe for concurrent use; the owner serializes access.
type Gate struct {
	scheme      Scheme
	order       []string
	credentials map[string]string
	unlocked    map[string]struct{}
}

// NewGate creates an empty Gate that encodes new passwords with scheme.
func NewGate(scheme Scheme) *Gate {
	return &Gate{
		scheme:      scheme,
		credentials: make(map[string]string),
		unlocked:    make(map[string]struct{}),
	}
}

// Protect stores password for folderID and unlocks the folder for the
// session that created it.
func (g *Gate) Protect(folderID, password string) error {
	encoded, err := Encode(g.scheme, password)
	if err != nil {
		return err
	}
	if _, ok := g.credentials[folderID]; !ok {
		g.order = append(g.order, folderID)
	}
	g.credentials[folderID] = encoded
	g.unlocked[folderID] = struct{}{}
	return nil
}

// Remove drops the credential and any unlock mark for folderID.
func (g *Gate) Remove(folderID string) {
	if _, ok := g.credentials[folderID]; ok {
		delete(g.credentials, folderID)
		for i, id := range g.order {
			if id == folderID {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
	}
	delete(g.unlocked, folderID)
}

// IsUnlocked reports whether the session has unlocked folderID.
func (g *Gate) IsUnlocked(folderID string) bool {
	_, ok := g.unlocked[folderID]
	return ok
}

// Unlock verifies password against the stored credential. On success the
// folder is marked unlocked; on failure nothing changes.
func (g *Gate) Unlock(folderID, password string) error {
	encoded, ok := g.credentials[folderID]
	if !ok || !Verify(encoded, password) {
		return apperr.ErrWrongPassword
	}
	g.unlocked[folderID] = struct{}{}
	return nil
}

// Lock forgets the session unlock for folderID.
func (g *Gate) Lock(folderID string) {
	delete(g.unlocked, folderID)
}

// Entries returns the credentials in insertion order.
func (g *Gate) Entries() []models.PasswordEntry {
	out := make([]models.PasswordEntry, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, models.PasswordEntry{FolderID: id, Encoded: g.credentials[id]})
	}
	return out
}

// Replace loads credentials from a snapshot. Loading never unlocks a
// folder; unlock marks survive only for folders whose credential is
// unchanged.
func (g *Gate) Replace(entries []models.PasswordEntry) {
	prev := g.credentials
	g.order = g.order[:0]
	g.credentials = make(map[string]string, len(entries))
	for _, e := range entries {
		if _, dup := g.credentials[e.FolderID]; !dup {
			g.order = append(g.order, e.FolderID)
		}
		g.credentials[e.FolderID] = e.Encoded
	}
	for id := range g.unlocked {
		if cur, ok := g.credentials[id]; !ok || prev[id] != cur {
			delete(g.unlocked, id)
		}
	}
}
