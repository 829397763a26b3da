package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := testEnvelope(42)
	env.Result = ResultNotAllowed
	env.ResultDescription = "no such app"

	decoded, err := UnmarshalEnvelope(MarshalEnvelope(env))
	require.Nil(t, err)
	assert.Equal(t, env.Src, decoded.Src)
	assert.Equal(t, env.Dst, decoded.Dst)
	assert.Equal(t, env.Operation, decoded.Operation)
	assert.Equal(t, env.Reference, decoded.Reference)
	assert.Equal(t, env.Result, decoded.Result)
	assert.Equal(t, env.ResultDescription, decoded.ResultDescription)
}

func TestEnvelopeKnownBytes(t *testing.T) {
	// Field 1 and 2 are the 16 byte uuids, field 3 the operation,
	// field 4 the reference.
	env := &Envelope{Operation: OpKeepAlive, Reference: 1}
	raw := MarshalEnvelope(env)
	assert.Equal(t, byte(0x0A), raw[0]) // tag 1, bytes
	assert.Equal(t, byte(16), raw[1])
	assert.Equal(t, byte(0x12), raw[18]) // tag 2, bytes
	assert.Equal(t, byte(16), raw[19])
	assert.Equal(t, []byte{0x18, 101, 0x20, 1}, raw[36:]) // op 101, ref 1
}

func TestEnvelopeRejectsBadUuid(t *testing.T) {
	raw := []byte{0x0A, 0x03, 1, 2, 3}
	_, err := UnmarshalEnvelope(raw)
	assert.ErrorIs(t, err, ErrBadUUID)
}

func TestEnvelopeSkipsUnknownFields(t *testing.T) {
	raw := MarshalEnvelope(testEnvelope(3))
	// Append field 15 varint, which this client does not know.
	raw = append(raw, 0x78, 0x2A)
	decoded, err := UnmarshalEnvelope(raw)
	require.Nil(t, err)
	assert.Equal(t, uint32(3), decoded.Reference)
}

func TestReplyMappingIsTotalForRequests(t *testing.T) {
	requests := []Operation{
		OpRegisterAppRequest, OpStartSessionRequest, OpCloseSessionRequest,
		OpListRegisteredAppsRequest, OpDeregisterAppRequest, OpChangePinRequest,
		OpVersionRequest, OpCnTimeRequest, OpCnRmiRequest, OpCnRmiAsyncRequest,
		OpCnRpdoRequest,
	}
	for _, op := range requests {
		reply, ok := op.Reply()
		assert.True(t, ok, "no reply mapping for %v", op)
		assert.NotEqual(t, Operation(0), reply)
	}
	_, ok := OpKeepAlive.Reply()
	assert.False(t, ok)
	_, ok = OpCnRpdoNotification.Reply()
	assert.False(t, ok)
}

func TestCnRmiRoundTrip(t *testing.T) {
	req := &CnRmiRequest{NodeId: 1, Message: []byte{0x84, 0x15, 0x01, 0x01}}
	decoded, err := UnmarshalCnRmiRequest(req.Marshal())
	require.Nil(t, err)
	assert.Equal(t, req.NodeId, decoded.NodeId)
	assert.Equal(t, req.Message, decoded.Message)
}

func TestCnRpdoRequestEncodesSignedTimeout(t *testing.T) {
	negOneTimeout := int32(-1)
	req := &CnRpdoRequest{Pdid: 276, Zone: 1, Type: 6, Timeout: uint32(negOneTimeout)}
	decoded, err := UnmarshalCnRpdoRequest(req.Marshal())
	require.Nil(t, err)
	assert.Equal(t, uint32(276), decoded.Pdid)
	assert.Equal(t, int32(-1), int32(decoded.Timeout))
}

func TestListRegisteredAppsRoundTrip(t *testing.T) {
	confirm := &ListRegisteredAppsConfirm{Apps: []App{
		{Uuid: make([]byte, UUIDSize), DeviceName: "phone"},
		{Uuid: make([]byte, UUIDSize), DeviceName: "wall panel"},
	}}
	decoded, err := UnmarshalListRegisteredAppsConfirm(confirm.Marshal())
	require.Nil(t, err)
	require.Len(t, decoded.Apps, 2)
	assert.Equal(t, "phone", decoded.Apps[0].DeviceName)
	assert.Equal(t, "wall panel", decoded.Apps[1].DeviceName)
}

func TestSearchGatewayResponseParse(t *testing.T) {
	reply := &SearchGatewayResponse{
		IPAddress: "192.168.1.213",
		Uuid:      make([]byte, UUIDSize),
		Version:   1,
	}
	decoded, err := UnmarshalSearchGatewayResponse(reply.Marshal())
	require.Nil(t, err)
	assert.Equal(t, "192.168.1.213", decoded.IPAddress)
	assert.Equal(t, uint32(1), decoded.Version)
}
