// Package settings loads and stores the connection settings record kept in
// the local key-value store.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/kv"
	"github.com/starford/memodesk/internal/models"
	"github.com/starford/memodesk/internal/obfuscate"
)

// Key is the local store key of the settings record.
const Key = "memodesk.config"

// Load reads the persisted settings record. A missing or malformed record
// yields the zero Settings with Configured=false; a token that fails to
// decode is dropped. Load never fails startup.
func Load(store kv.Store, logger *slog.Logger) models.Settings {
	data, err := store.Get(Key)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("settings: read failed", slog.String("error", err.Error()))
		}
		return models.Settings{StorageMode: models.StorageLocal}
	}

	var s models.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		logger.Warn("settings: malformed record ignored", slog.String("error", err.Error()))
		return models.Settings{StorageMode: models.StorageLocal}
	}

	if s.AccessToken != "" {
		token, err := obfuscate.Decode(s.AccessToken)
		if err != nil {
			logger.Warn("settings: access token could not be decoded", slog.String("error", err.Error()))
			token = ""
		}
		s.AccessToken = token
	}
	if s.StorageMode == "" {
		s.StorageMode = models.StorageLocal
	}
	return s
}

// Save validates s and writes it with the access token obfuscated.
func Save(store kv.Store, s models.Settings) error {
	s.Account = strings.TrimSpace(s.Account)
	s.RepositoryName = strings.TrimSpace(s.RepositoryName)
	if err := Validate(s); err != nil {
		return err
	}
	s.Configured = true
	if s.AccessToken != "" {
		s.AccessToken = obfuscate.Encode(s.AccessToken)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := store.Put(Key, data); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	return nil
}

// Validate checks that the storage mode is known and that remote mode names
// a repository to write to.
func Validate(s models.Settings) error {
	remote := s.StorageMode == models.StorageRemote
	return validation.ValidateStruct(&s,
		validation.Field(&s.StorageMode, validation.Required, validation.In(models.StorageLocal, models.StorageRemote)),
		validation.Field(&s.Account, validation.When(remote, validation.Required)),
		validation.Field(&s.RepositoryName, validation.When(remote, validation.Required)),
	)
}
