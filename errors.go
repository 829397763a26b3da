package comfoconnect

import (
	"github.com/comfohome/comfoconnect/pkg/bridge"
	"github.com/comfohome/comfoconnect/pkg/rmi"
)

// The error taxonomy, re-exported from the packages that produce the
// errors so callers of the high level client need only this package.
var (
	ErrNotReachable      = bridge.ErrNotReachable
	ErrNotRegistered     = bridge.ErrNotRegistered
	ErrBadPin            = bridge.ErrBadPin
	ErrAlreadyConnected  = bridge.ErrAlreadyConnected
	ErrNotOpen           = bridge.ErrNotOpen
	ErrTimeout           = bridge.ErrTimeout
	ErrSessionClosed     = bridge.ErrSessionClosed
	ErrProtocolViolation = bridge.ErrProtocolViolation
	ErrDecode            = rmi.ErrDecode
)

// RmiError is an appliance level RMI failure with its status byte.
type RmiError = rmi.RmiError

// RequestError is a bridge level refusal with its result code.
type RequestError = bridge.RequestError
