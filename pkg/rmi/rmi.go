// Package rmi builds and parses the byte payloads of the remote
// management interface tunneled through CnRmi envelopes. Requests are
// an opcode byte followed by unit, subunit and typed fields; responses
// start with a status byte, 0x00 meaning success.
package rmi

import (
	"fmt"
)

// Request opcodes understood by the appliance.
const (
	opPropertyRead  = 0x01
	opPropertyWrite = 0x03
	opScheduleGet   = 0x83
	opScheduleSet   = 0x84
	opScheduleClear = 0x85

	// Marker preceding the 16-bit property id in property requests.
	propertyIdMarker = 0x10
)

// RmiError is an appliance level failure: the response carried a
// non-zero status byte, preserved verbatim.
type RmiError struct {
	Status uint8
}

func (e *RmiError) Error() string {
	return fmt.Sprintf("rmi error status 0x%02x", e.Status)
}

// PropertyRead builds a typed property get request.
func PropertyRead(unit, subunit uint8, id uint16) []byte {
	return []byte{opPropertyRead, unit, subunit, propertyIdMarker, byte(id), byte(id >> 8)}
}

// PropertyWrite builds a typed property set request. The value bytes
// must already follow the property's type encoding, see EncodeValue.
func PropertyWrite(unit, subunit uint8, id uint16, value []byte) []byte {
	req := []byte{opPropertyWrite, unit, subunit, propertyIdMarker, byte(id), byte(id >> 8)}
	return append(req, value...)
}

// ParseResponse validates the status byte of an RMI response and
// returns the remaining payload. An empty response is a bare success.
func ParseResponse(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != 0 {
		return nil, &RmiError{Status: data[0]}
	}
	return data[1:], nil
}
