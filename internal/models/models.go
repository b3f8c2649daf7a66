// Package models defines the domain types for memodesk.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Visibility controls whether a folder is password-gated.
type Visibility string

// Folder visibilities.
const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Storage modes.
const (
	StorageLocal  = "local"
	StorageRemote = "remote"
)

// DefaultMemoTitle replaces a title that is empty after trimming.
const DefaultMemoTitle = "Untitled memo"

// Folder is a named grouping of memos.
type Folder struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IsPrivate reports whether the folder requires a password.
func (f Folder) IsPrivate() bool {
	return f.Visibility == Private
}

// Memo is a titled free-text note belonging to exactly one folder.
type Memo struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PasswordEntry pairs a folder id with its encoded password.
// It serializes as a two-element JSON array: ["<folderId>", "<encoded>"].
type PasswordEntry struct {
	FolderID string
	Encoded  string
}

// MarshalJSON implements json.Marshaler.
func (p PasswordEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.FolderID, p.Encoded})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PasswordEntry) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("password entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("password entry: want 2 elements, got %d", len(pair))
	}
	p.FolderID, p.Encoded = pair[0], pair[1]
	return nil
}

// Snapshot is the whole durable state, persisted as a single JSON document.
type Snapshot struct {
	Folders     []Folder        `json:"folders"`
	Memos       []Memo          `json:"memos"`
	Passwords   []PasswordEntry `json:"passwords"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Normalize replaces nil slices with empty ones so the document always
// carries arrays rather than nulls.
func (s *Snapshot) Normalize() {
	if s.Folders == nil {
		s.Folders = []Folder{}
	}
	if s.Memos == nil {
		s.Memos = []Memo{}
	}
	if s.Passwords == nil {
		s.Passwords = []PasswordEntry{}
	}
}

// Settings holds the connection settings loaded once at startup.
type Settings struct {
	Account        string `json:"account"`
	RepositoryName string `json:"repositoryName"`
	AccessToken    string `json:"accessToken"`
	StorageMode    string `json:"storageMode"`
	Configured     bool   `json:"configured"`
}

// Remote reports whether the settings target the hosted repository.
func (s Settings) Remote() bool {
	return s.StorageMode == StorageRemote
}
