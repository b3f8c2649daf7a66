// Package kv defines the local key-value store that holds the persisted
// settings record and the data snapshot.
package kv

import (
	"fmt"
	"regexp"
)

// Drivers accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store is the interface for local key-value persistence.
type Store interface {
	// Get returns the value stored under key, or apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	Close() error
}

// Open returns a Store for the given driver. For DriverFile path is a
// directory (created if missing); for DriverSQLite it is a database file.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverFile, "":
		return NewFS(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", driver)
	}
}

func validKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("kv: invalid key %q", key)
	}
	return nil
}
