package bridge

import (
	"errors"
	"fmt"

	"github.com/comfohome/comfoconnect/pkg/protocol"
)

var (
	// ErrNotReachable means the TCP connect failed or timed out.
	ErrNotReachable = errors.New("bridge is not reachable")

	// ErrNotRegistered means the bridge refused the session and no pin
	// was available to register with.
	ErrNotRegistered = errors.New("app is not registered with the bridge")

	// ErrBadPin means the bridge rejected the registration pin.
	ErrBadPin = errors.New("bridge rejected the registration pin")

	// ErrAlreadyConnected means Connect was called on a live session.
	ErrAlreadyConnected = errors.New("session is already connected")

	// ErrNotOpen means the operation needs an open session.
	ErrNotOpen = errors.New("session is not open")

	// ErrTimeout means the per request deadline elapsed.
	ErrTimeout = errors.New("request timed out")

	// ErrSessionClosed means the session was torn down while the
	// request was in flight.
	ErrSessionClosed = errors.New("session closed")

	// ErrProtocolViolation means the bridge sent something the
	// protocol does not allow, e.g. a reply of the wrong type.
	ErrProtocolViolation = errors.New("protocol violation")
)

// RequestError is a request the bridge answered with a non-OK result.
type RequestError struct {
	Operation protocol.Operation
	Result    protocol.Result
	Reason    string
}

func (e *RequestError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v refused: %v (%s)", e.Operation, e.Result, e.Reason)
	}
	return fmt.Sprintf("%v refused: %v", e.Operation, e.Result)
}
