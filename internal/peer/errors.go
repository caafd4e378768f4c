package peer

import (
	"errors"
	"fmt"
)

var (
	ErrChannelNotOpen = errors.New("data channel not open")
	ErrSessionClosed  = errors.New("session closed")
	ErrEmptyRoom      = errors.New("room id is empty")
)

// SessionError records a failed session operation and the room it ran in.
type SessionError struct {
	Op      string
	Room    string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	msg := e.Op
	if e.Room != "" {
		msg = fmt.Sprintf("%s [room %s]", msg, e.Room)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", msg, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func NewRoomError(op, room string, err error) *SessionError {
	return &SessionError{Op: op, Room: room, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
