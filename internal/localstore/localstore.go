// Package localstore persists the data snapshot in the local key-value store.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/checksum"
	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/models"
)

// DataKey is the local store key of the snapshot record.
const DataKey = "memodesk.data"

// Store reads and writes the snapshot record.
type Store struct {
	kv     kv.Store
	logger *slog.Logger

	mu          sync.Mutex
	lastWritten string // checksum of the last payload this process wrote
}

// New creates a Store over the given key-value store.
func New(store kv.Store, logger *slog.Logger) *Store {
	return &Store{kv: store, logger: logger}
}

// Encode serializes a snapshot exactly as Save writes it.
func Encode(snap models.Snapshot) ([]byte, error) {
	snap.Normalize()
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("localstore: encode: %w", err)
	}
	return data, nil
}

// Decode parses a serialized snapshot.
func Decode(data []byte) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("localstore: parse snapshot: %w", err)
	}
	snap.Normalize()
	return &snap, nil
}

// Save writes the snapshot unconditionally.
func (s *Store) Save(snap models.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	return s.SaveRaw(data)
}

// SaveRaw writes an already serialized snapshot.
func (s *Store) SaveRaw(data []byte) error {
	sum := checksum.Sum(data)
	s.mu.Lock()
	prev := s.lastWritten
	s.lastWritten = sum
	s.mu.Unlock()

	if err := s.kv.Put(DataKey, data); err != nil {
		s.mu.Lock()
		if s.lastWritten == sum {
			s.lastWritten = prev
		}
		s.mu.Unlock()
		return fmt.Errorf("localstore: write: %w", err)
	}
	s.logger.Debug("localstore: saved", slog.String("checksum", checksum.Short(data)), slog.Int("bytes", len(data)))
	return nil
}

// Load returns the stored snapshot, or nil when nothing has been saved yet.
// A stored record that fails to parse is an error.
func (s *Store) Load() (*models.Snapshot, error) {
	data, err := s.kv.Get(DataKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return Decode(data)
}

func (s *Store) isOwnWrite(sum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWritten == sum
}
