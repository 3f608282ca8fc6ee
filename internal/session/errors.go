package session

import (
	"errors"
	"fmt"

	"github.com/voxprep/voxprep/internal/model"
)

// ErrNotFound is wrapped with the session ID by every operation that
// receives an unknown session.
var ErrNotFound = errors.New("session not found")

// ErrNoRoom is returned when a room operation is invoked on a text-mode
// session that has no media room.
var ErrNoRoom = errors.New("session has no media room")

// StateError reports an operation attempted in the wrong session state.
// These are the only errors the session manager surfaces to callers
// directly; everything below it degrades through fallbacks instead.
type StateError struct {
	SessionID string
	Op        string
	Expected  []model.SessionStatus
	Actual    model.SessionStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("session %s: cannot %s: expected state %v, actual %q",
		e.SessionID, e.Op, e.Expected, e.Actual)
}

func stateErr(id, op string, actual model.SessionStatus, expected ...model.SessionStatus) error {
	return &StateError{SessionID: id, Op: op, Expected: expected, Actual: actual}
}
