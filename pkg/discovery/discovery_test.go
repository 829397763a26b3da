package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comfohome/comfoconnect/pkg/protocol"
)

func validReply() []byte {
	reply := &protocol.SearchGatewayResponse{
		IPAddress: "192.168.1.213",
		Uuid:      make([]byte, protocol.UUIDSize),
		Version:   1,
	}
	reply.Uuid[15] = 0x42
	return reply.Marshal()
}

func TestParseReply(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 9), Port: Port}

	t.Run("valid reply from any source", func(t *testing.T) {
		bridge, ok := parseReply(validReply(), addr)
		require.True(t, ok)
		assert.Equal(t, "192.168.1.213", bridge.Host)
		assert.Equal(t, byte(0x42), bridge.Uuid[15])
		assert.Equal(t, uint32(1), bridge.Version)
	})

	t.Run("own probe is skipped", func(t *testing.T) {
		_, ok := parseReply([]byte{0x0a, 0x00}, addr)
		assert.False(t, ok)
	})

	t.Run("garbage is skipped", func(t *testing.T) {
		_, ok := parseReply([]byte{0xFF, 0xFF, 0xFF}, addr)
		assert.False(t, ok)
	})

	t.Run("short uuid is skipped", func(t *testing.T) {
		reply := &protocol.SearchGatewayResponse{IPAddress: "10.0.0.1", Uuid: []byte{1, 2, 3}}
		_, ok := parseReply(reply.Marshal(), addr)
		assert.False(t, ok)
	})

	t.Run("invalid address is skipped", func(t *testing.T) {
		reply := &protocol.SearchGatewayResponse{IPAddress: "not-an-ip", Uuid: make([]byte, protocol.UUIDSize)}
		_, ok := parseReply(reply.Marshal(), addr)
		assert.False(t, ok)
	})
}

func TestProbeBytes(t *testing.T) {
	// The bridge only answers this exact search message.
	assert.Equal(t, []byte{0x0a, 0x00}, probe)
}

func TestBroadcastAddrs(t *testing.T) {
	addrs, err := broadcastAddrs()
	require.Nil(t, err)
	for _, addr := range addrs {
		assert.Len(t, addr, net.IPv4len)
		assert.False(t, addr.IsLoopback())
	}
}
