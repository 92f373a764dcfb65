package chat

import "errors"

// ReasonNicknameTaken is sent verbatim to clients whose nickname collides
// with a current room member.
const ReasonNicknameTaken = "Nickname is already taken."

// ReasonUnavailable is sent when membership could not be determined.
const ReasonUnavailable = "Unable to join the room right now."

var (
	// ErrSessionNotFound is returned for a connection with no session.
	ErrSessionNotFound = errors.New("chat: session not found")
	// ErrSessionExists is returned when a connection is registered twice.
	ErrSessionExists = errors.New("chat: session already exists")
	// ErrAlreadyJoined is returned for a join request on a joined session.
	ErrAlreadyJoined = errors.New("chat: session already joined")
	// ErrNicknameTaken is returned when the sanitized nickname is in use in
	// the target room.
	ErrNicknameTaken = errors.New("chat: nickname taken")
	// ErrNotJoined is returned for room events sent before a join.
	ErrNotJoined = errors.New("chat: session not joined")
	// ErrUnknownEvent is returned for an inbound event name with no handler.
	ErrUnknownEvent = errors.New("chat: unknown event")
)

// JoinRejectedError reports a join request that was refused. Reason is the
// user-facing text delivered with joinFail.
type JoinRejectedError struct {
	Reason string
	Err    error
}

// Error implements error.
func (e *JoinRejectedError) Error() string {
	return "chat: join rejected: " + e.Reason
}

// Unwrap returns the underlying sentinel, if any.
func (e *JoinRejectedError) Unwrap() error {
	return e.Err
}
