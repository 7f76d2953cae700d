// internal/browser/errors.go
package browser

import (
	"errors"
	"fmt"
)

// Sentinel errors for the profile and session lifecycle. Callers classify
// with errors.Is; the HTTP layer maps them onto status codes.
var (
	// ErrNotStarted is returned by every operation attempted before Start
	// or after Shutdown.
	ErrNotStarted = errors.New("browser manager not started")

	// ErrProfileNotFound is returned by strict lookups of unknown profile ids.
	ErrProfileNotFound = errors.New("browser profile not found")

	// ErrProfileExists is returned when creating a profile under an id that
	// is already live.
	ErrProfileExists = errors.New("browser profile already exists")

	// ErrDefaultProfile is returned when a caller tries to close the
	// reserved default profile.
	ErrDefaultProfile = errors.New("default browser profile cannot be closed")

	// ErrSessionNotFound is returned by strict session lookups.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError marks malformed caller input. It is produced at the
// boundary and never originates from driver failures.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

// IsValidation reports whether err carries a ValidationError anywhere in its
// chain.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
