package session

import (
	"errors"
	"fmt"
)

var (
	ErrSignalingError   = errors.New("signaling server error")
	ErrClosed           = errors.New("session closed")
	ErrBadTransition    = errors.New("invalid negotiation state")
	ErrUnknownPeer      = errors.New("unknown peer")
	ErrMediaUnavailable = errors.New("media source unavailable")
	ErrAlreadySharing   = errors.New("screen share already active")
	ErrNotSharing       = errors.New("no screen share active")
)

// SessionError wraps a failure with the operation and peer it belongs to.
// Negotiation failures stay scoped to one peer link.
type SessionError struct {
	Op   string
	Peer string
	Err  error
}

func (e *SessionError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func NewPeerError(op, peer string, err error) *SessionError {
	return &SessionError{Op: op, Peer: peer, Err: err}
}
