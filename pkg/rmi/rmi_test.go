package rmi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyRequests(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		req := PropertyRead(0x01, 0x01, 0x04)
		assert.Equal(t, []byte{0x01, 0x01, 0x01, 0x10, 0x04, 0x00}, req)
	})
	t.Run("read with high id byte", func(t *testing.T) {
		req := PropertyRead(0x1D, 0x01, 0x0304)
		assert.Equal(t, []byte{0x01, 0x1D, 0x01, 0x10, 0x04, 0x03}, req)
	})
	t.Run("write", func(t *testing.T) {
		value, err := EncodeValue(uint8(2), TypeUint8)
		require.Nil(t, err)
		req := PropertyWrite(0x1D, 0x01, 0x06, value)
		assert.Equal(t, []byte{0x03, 0x1D, 0x01, 0x10, 0x06, 0x00, 0x02}, req)
	})
}

func TestScheduleRequests(t *testing.T) {
	t.Run("immediate speed set", func(t *testing.T) {
		req := ScheduleSet(UnitSchedule, SubunitFanSpeed, SpeedLow)
		assert.Equal(t, []byte{0x84, 0x15, 0x01, 0x01}, req)
	})
	t.Run("timed boost", func(t *testing.T) {
		req := ScheduleSetTimed(UnitSchedule, SubunitFanSpeed, ScheduleBoost, 3600, SpeedHigh)
		assert.Equal(t, []byte{0x84, 0x15, 0x01, 0x06, 0x10, 0x0E, 0x00, 0x00, 0x03}, req)
	})
	t.Run("indefinite timeout is minus one", func(t *testing.T) {
		req := ScheduleSetTimed(UnitSchedule, SubunitBypass, ScheduleDefault, TimeoutIndefinite, BypassOn)
		assert.Equal(t, []byte{0x84, 0x15, 0x02, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}, req)
	})
	t.Run("clear", func(t *testing.T) {
		req := ScheduleClear(UnitSchedule, SubunitMode, ScheduleDefault)
		assert.Equal(t, []byte{0x85, 0x15, 0x08, 0x01}, req)
	})
	t.Run("get", func(t *testing.T) {
		req := ScheduleGet(UnitSchedule, SubunitMode, ScheduleDefault)
		assert.Equal(t, []byte{0x83, 0x15, 0x08, 0x01}, req)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("success strips status", func(t *testing.T) {
		payload, err := ParseResponse([]byte{0x00, 0xAB, 0xCD})
		require.Nil(t, err)
		assert.Equal(t, []byte{0xAB, 0xCD}, payload)
	})
	t.Run("empty response is success", func(t *testing.T) {
		payload, err := ParseResponse(nil)
		assert.Nil(t, err)
		assert.Nil(t, payload)
	})
	t.Run("status byte preserved verbatim", func(t *testing.T) {
		_, err := ParseResponse([]byte{0x8B})
		var rmiErr *RmiError
		require.True(t, errors.As(err, &rmiErr))
		assert.Equal(t, uint8(0x8B), rmiErr.Status)
	})
}
