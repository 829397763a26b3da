package comfoconnect

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comfohome/comfoconnect/internal/bridgetest"
	"github.com/comfohome/comfoconnect/pkg/protocol"
	"github.com/comfohome/comfoconnect/pkg/sensors"
)

var testAppUuid = uuid.UUID{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x13, 0x37,
}

// rmiEcho answers every RMI request with an empty success.
func rmiEcho(server *bridgetest.Server) {
	server.On(protocol.OpCnRmiRequest, func(env *protocol.Envelope) []*protocol.Envelope {
		resp := &protocol.CnRmiResponse{Message: []byte{0x00}}
		return []*protocol.Envelope{server.Reply(env, protocol.ResultOk, resp.Marshal())}
	})
}

func startClient(t *testing.T) (*bridgetest.Server, *ComfoConnect) {
	t.Helper()
	server, err := bridgetest.Start()
	require.Nil(t, err)
	t.Cleanup(server.Close)
	rmiEcho(server)

	client := New(server.Addr(), server.Uuid)
	pin := uint32(0)
	require.Nil(t, client.Connect(context.Background(), testAppUuid, &pin))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return server, client
}

// The wire sequence of the registration plus speed change flow:
// session start with reference 1, then the RMI with reference 2
// carrying the documented schedule override bytes.
func TestSetSpeedWireSequence(t *testing.T) {
	server, client := startClient(t)

	require.Nil(t, client.SetSpeed(context.Background(), SpeedLow))

	received := server.Received()
	require.GreaterOrEqual(t, len(received), 2)
	assert.Equal(t, protocol.OpStartSessionRequest, received[0].Operation)
	assert.Equal(t, uint32(1), received[0].Reference)

	rmiReq := received[1]
	assert.Equal(t, protocol.OpCnRmiRequest, rmiReq.Operation)
	assert.Equal(t, uint32(2), rmiReq.Reference)
	decoded, err := protocol.UnmarshalCnRmiRequest(rmiReq.Payload)
	require.Nil(t, err)
	assert.Equal(t, uint32(1), decoded.NodeId)
	assert.Equal(t, []byte{0x84, 0x15, 0x01, 0x01}, decoded.Message)
}

func TestConvenienceWirePayloads(t *testing.T) {
	server, client := startClient(t)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want []byte
	}{
		{"set mode auto", func() error { return client.SetMode(ctx, ModeAuto) },
			[]byte{0x85, 0x15, 0x08, 0x01}},
		{"set mode manual", func() error { return client.SetMode(ctx, ModeManual) },
			[]byte{0x84, 0x15, 0x08, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
		{"set speed high", func() error { return client.SetSpeed(ctx, SpeedHigh) },
			[]byte{0x84, 0x15, 0x01, 0x03}},
		{"boost one hour", func() error { return client.SetBoost(ctx, true, time.Hour) },
			[]byte{0x84, 0x15, 0x01, 0x06, 0x10, 0x0E, 0x00, 0x00, 0x03}},
		{"boost off", func() error { return client.SetBoost(ctx, false, 0) },
			[]byte{0x85, 0x15, 0x01, 0x06}},
		{"bypass on indefinitely", func() error { return client.SetBypass(ctx, BypassOn, 0) },
			[]byte{0x84, 0x15, 0x02, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}},
		{"bypass auto", func() error { return client.SetBypass(ctx, BypassAuto, 0) },
			[]byte{0x85, 0x15, 0x02, 0x01}},
		{"profile cool", func() error { return client.SetTemperatureProfile(ctx, ProfileCool, 0) },
			[]byte{0x84, 0x15, 0x03, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}},
		{"ventmode humidity comfort off", func() error { return client.SetSensorVentmodeHumidityComfort(ctx, VentModeOff) },
			[]byte{0x03, 0x1D, 0x01, 0x10, 0x06, 0x00, 0x02}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := len(server.Received())
			require.Nil(t, tc.call())
			received := server.Received()
			require.Greater(t, len(received), before)
			decoded, err := protocol.UnmarshalCnRmiRequest(received[before].Payload)
			require.Nil(t, err)
			assert.Equal(t, tc.want, decoded.Message)
		})
	}
}

func TestGetModeDefaultsToAuto(t *testing.T) {
	_, client := startClient(t)
	mode, err := client.GetMode(context.Background())
	require.Nil(t, err)
	assert.Equal(t, ModeAuto, mode)
}

func TestSensorSubscriptionDeliversScaledValue(t *testing.T) {
	server, client := startClient(t)
	ctx := context.Background()

	sensor, ok := sensors.Get(sensors.SensorIndoorTemperature)
	require.True(t, ok)

	values := make(chan float64, 1)
	_, err := client.RegisterSensor(ctx, sensor, func(s sensors.Sensor, v float64) {
		values <- v
	})
	require.Nil(t, err)

	// The subscription request must reach the bridge before samples
	// flow.
	assert.Eventually(t, func() bool {
		for _, env := range server.Received() {
			if env.Operation == protocol.OpCnRpdoRequest {
				req, err := protocol.UnmarshalCnRpdoRequest(env.Payload)
				return err == nil && req.Pdid == uint32(sensor.Id) && int32(req.Timeout) == -1
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	require.Nil(t, server.Notify([protocol.UUIDSize]byte(testAppUuid), sensor.Id, []byte{0x60, 0x09}))
	select {
	case v := <-values:
		assert.InDelta(t, 24.0, v, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no sensor update delivered")
	}
}

func TestNoCallbackAfterDisconnect(t *testing.T) {
	server, client := startClient(t)
	ctx := context.Background()

	sensor, ok := sensors.Get(sensors.SensorIndoorTemperature)
	require.True(t, ok)

	fired := make(chan struct{}, 8)
	_, err := client.RegisterSensor(ctx, sensor, func(sensors.Sensor, float64) {
		fired <- struct{}{}
	})
	require.Nil(t, err)

	require.Nil(t, client.Disconnect(ctx))
	_ = server.Notify([protocol.UUIDSize]byte(testAppUuid), sensor.Id, []byte{0x60, 0x09})

	select {
	case <-fired:
		t.Fatal("callback fired after disconnect")
	case <-time.After(100 * time.Millisecond):
	}
}
