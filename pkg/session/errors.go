package session

import (
	"errors"
	"fmt"

	"github.com/getmockd/replayd/pkg/identity"
)

var (
	// ErrNoTargetURL is returned when a record session has no target URL.
	ErrNoTargetURL = errors.New("record mode requires at least one target URL")

	// ErrDirectory is returned when the mapping directory cannot be created.
	ErrDirectory = errors.New("mapping directory could not be created")

	// ErrInvalidTransition is returned for illegal lifecycle moves.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrNoSession is returned when no session or fallback URL can be resolved.
	ErrNoSession = errors.New("no mock session bound")
)

// StartError reports why a session could not start. The session is left
// STOPPED; starting is never retried.
type StartError struct {
	Identity identity.Identity
	Err      error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("mock session %s failed to start: %v", e.Identity, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
