package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/starford/memodesk/internal/apperr"
)

// Error is a non-2xx answer from the hosting API.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s: HTTP %d", e.Op, e.Status)
	}
	return fmt.Sprintf("remote: %s: HTTP %d: %s", e.Op, e.Status, e.Message)
}

// Unwrap maps a 409 to apperr.ErrConflict so callers can test for a stale
// version token with errors.Is.
func (e *Error) Unwrap() error {
	if e.Status == http.StatusConflict {
		return apperr.ErrConflict
	}
	return nil
}

// recoverable reports whether err is worth retrying: network failures,
// timeouts, throttling and 5xx answers.
func recoverable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		switch {
		case re.Status == http.StatusRequestTimeout, re.Status == http.StatusTooManyRequests:
			return true
		case re.Status >= 500:
			return true
		default:
			return false
		}
	}
	return err != nil
}
