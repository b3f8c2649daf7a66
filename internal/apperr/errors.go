// Package apperr holds the sentinel errors shared across memodesk layers.
package apperr

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrLocked               = errors.New("folder is locked")
	ErrWrongPassword        = errors.New("wrong password")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNotConfigured        = errors.New("not configured")
	ErrNoOpenMemo           = errors.New("no memo open in editor")
	ErrSaveFailed           = errors.New("save failed")
)
