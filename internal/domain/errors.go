package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations
var (
	// ErrAuthRequired indicates the operation needs a session and none is
	// established. Raised locally, before any network I/O.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNetwork indicates a transport-level failure with no server message.
	ErrNetwork = errors.New("server is unreachable")

	// ErrNotFound indicates the referenced entity is absent from the cache.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports an input rejected locally, before dispatch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteError carries a server rejection: a non-success status and the
// message the server attached to it.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("server rejected request: %s (status %d)", e.Message, e.Status)
}

// IsRemoteRejected reports whether err is a server-side rejection.
func IsRemoteRejected(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
