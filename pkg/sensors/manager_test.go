package sensors

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comfohome/comfoconnect/pkg/rmi"
)

type rpdoCall struct {
	pdid    uint16
	zone    uint8
	typ     rmi.DataType
	timeout int32
}

type fakeSession struct {
	mu    sync.Mutex
	calls []rpdoCall
	fail  error
}

func (f *fakeSession) CmdRpdo(ctx context.Context, pdid uint16, zone uint8, typ rmi.DataType, timeout int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, rpdoCall{pdid, zone, typ, timeout})
	return nil
}

func (f *fakeSession) callLog() []rpdoCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rpdoCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func indoorTemperature(t *testing.T) Sensor {
	sensor, ok := Get(SensorIndoorTemperature)
	require.True(t, ok)
	return sensor
}

func TestRegisterSubscribesOnce(t *testing.T) {
	session := &fakeSession{}
	manager := NewManager(session)
	sensor := indoorTemperature(t)

	cancel1, err := manager.Register(context.Background(), sensor, func(Sensor, float64) {})
	require.Nil(t, err)
	cancel2, err := manager.Register(context.Background(), sensor, func(Sensor, float64) {})
	require.Nil(t, err)

	// One bridge side subscription regardless of local subscriber count.
	calls := session.callLog()
	require.Len(t, calls, 1)
	assert.Equal(t, rpdoCall{sensor.Id, 1, rmi.TypeInt16, -1}, calls[0])

	// First cancel keeps the subscription, the last one cancels with
	// timeout zero.
	require.Nil(t, cancel1())
	assert.Len(t, session.callLog(), 1)
	require.Nil(t, cancel2())
	calls = session.callLog()
	require.Len(t, calls, 2)
	assert.Equal(t, rpdoCall{sensor.Id, 1, rmi.TypeInt16, 0}, calls[1])
}

func TestHandleDecodesAndScales(t *testing.T) {
	session := &fakeSession{}
	manager := NewManager(session)
	sensor := indoorTemperature(t)

	var got []float64
	_, err := manager.Register(context.Background(), sensor, func(s Sensor, v float64) {
		assert.Equal(t, sensor.Id, s.Id)
		got = append(got, v)
	})
	require.Nil(t, err)

	// 0x0960 little endian = 2400 raw, scaled to 24.0 degrees.
	manager.Handle(sensor.Id, []byte{0x60, 0x09})
	require.Len(t, got, 1)
	assert.InDelta(t, 24.0, got[0], 1e-9)

	// Per pdo delivery preserves arrival order.
	manager.Handle(sensor.Id, []byte{0x61, 0x09})
	manager.Handle(sensor.Id, []byte{0x62, 0x09})
	require.Len(t, got, 3)
	assert.Less(t, got[1], got[2])
}

func TestHandleDropsBadSamples(t *testing.T) {
	session := &fakeSession{}
	manager := NewManager(session)
	sensor := indoorTemperature(t)

	fired := 0
	_, err := manager.Register(context.Background(), sensor, func(Sensor, float64) { fired++ })
	require.Nil(t, err)

	manager.Handle(sensor.Id, []byte{0x60}) // short sample
	manager.Handle(9999, []byte{0x60, 0x09})
	assert.Equal(t, 0, fired)
}

func TestCallbackMayDeregisterWithoutDeadlock(t *testing.T) {
	session := &fakeSession{}
	manager := NewManager(session)
	sensor := indoorTemperature(t)

	var cancel func() error
	fired := 0
	cancel, err := manager.Register(context.Background(), sensor, func(Sensor, float64) {
		fired++
		_ = cancel()
	})
	require.Nil(t, err)

	manager.Handle(sensor.Id, []byte{0x60, 0x09})
	manager.Handle(sensor.Id, []byte{0x60, 0x09})
	assert.Equal(t, 1, fired)
}

func TestDeregisterIsIdempotent(t *testing.T) {
	session := &fakeSession{}
	manager := NewManager(session)
	sensor := indoorTemperature(t)

	_, err := manager.Register(context.Background(), sensor, func(Sensor, float64) {})
	require.Nil(t, err)
	require.Nil(t, manager.Deregister(context.Background(), sensor))
	require.Nil(t, manager.Deregister(context.Background(), sensor))
	assert.Len(t, session.callLog(), 2)
}

func TestRegisterFailurePropagates(t *testing.T) {
	session := &fakeSession{fail: context.DeadlineExceeded}
	manager := NewManager(session)

	_, err := manager.Register(context.Background(), indoorTemperature(t), func(Sensor, float64) {})
	assert.NotNil(t, err)
}

func TestCloseStopsDelivery(t *testing.T) {
	session := &fakeSession{}
	manager := NewManager(session)
	sensor := indoorTemperature(t)

	fired := 0
	_, err := manager.Register(context.Background(), sensor, func(Sensor, float64) { fired++ })
	require.Nil(t, err)

	manager.Close()
	manager.Handle(sensor.Id, []byte{0x60, 0x09})
	assert.Equal(t, 0, fired)

	_, err = manager.Register(context.Background(), sensor, func(Sensor, float64) {})
	assert.ErrorIs(t, err, ErrClosed)
}
