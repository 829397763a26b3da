package sensors

import "errors"

var ErrClosed = errors.New("subscription manager is closed")
