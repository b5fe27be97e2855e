// Package tracker owns the session lifecycle for flowstate users: starting,
// pausing, ending and cancelling sessions, plus the per-user tag vocabulary.
package tracker

import (
	"fmt"

	"github.com/thebtf/flowstate/pkg/models"
)

// ValidationError reports malformed input. No side effect occurs when one is
// returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a session id that does not exist or does not belong
// to the requesting user. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// InvalidTransitionError reports an operation that is not legal from the
// session's current status. The current status is included so callers can
// present an actionable message.
type InvalidTransitionError struct {
	SessionID string
	From      models.SessionStatus
	Op        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s session %s in status %q", e.Op, e.SessionID, e.From)
}
