package bridge

import (
	"context"
	"time"

	"github.com/comfohome/comfoconnect/pkg/protocol"
	"github.com/comfohome/comfoconnect/pkg/rmi"
)

// Low level command surface. Each method maps one to one onto a bridge
// operation; the high level client composes these.

// CmdStartSession sends a bare session start request. Connect already
// performs the full handshake; this is the escape hatch.
func (b *Bridge) CmdStartSession(ctx context.Context, takeover bool) error {
	req := &protocol.StartSessionRequest{Takeover: takeover}
	env, err := b.request(ctx, protocol.OpStartSessionRequest, req.Marshal(), b.handshakeTimeout)
	if err != nil {
		return err
	}
	return resultError(env)
}

// CmdCloseSession asks the bridge to end the session.
func (b *Bridge) CmdCloseSession(ctx context.Context) error {
	_, err := b.request(ctx, protocol.OpCloseSessionRequest, nil, b.closeTimeout)
	return err
}

// CmdKeepAlive sends one keepalive envelope. Fire and forget.
func (b *Bridge) CmdKeepAlive() error {
	return b.send(protocol.OpKeepAlive, nil)
}

// CmdRegisterApp registers an application uuid on the bridge using the
// pairing pin printed on the unit.
func (b *Bridge) CmdRegisterApp(ctx context.Context, uuid [protocol.UUIDSize]byte, deviceName string, pin uint32) error {
	req := &protocol.RegisterAppRequest{Uuid: uuid[:], Pin: pin, DeviceName: deviceName}
	env, err := b.rpc(ctx, protocol.OpRegisterAppRequest, req.Marshal())
	if err != nil {
		return err
	}
	return resultError(env)
}

// CmdDeregisterApp removes a registration slot.
func (b *Bridge) CmdDeregisterApp(ctx context.Context, uuid [protocol.UUIDSize]byte) error {
	req := &protocol.DeregisterAppRequest{Uuid: uuid[:]}
	env, err := b.rpc(ctx, protocol.OpDeregisterAppRequest, req.Marshal())
	if err != nil {
		return err
	}
	return resultError(env)
}

// CmdListRegisteredApps returns the bridge's registration table.
func (b *Bridge) CmdListRegisteredApps(ctx context.Context) ([]protocol.App, error) {
	env, err := b.rpc(ctx, protocol.OpListRegisteredAppsRequest, nil)
	if err != nil {
		return nil, err
	}
	if err := resultError(env); err != nil {
		return nil, err
	}
	confirm, err := protocol.UnmarshalListRegisteredAppsConfirm(env.Payload)
	if err != nil {
		return nil, err
	}
	return confirm.Apps, nil
}

// CmdChangePin replaces the pairing pin.
func (b *Bridge) CmdChangePin(ctx context.Context, oldPin, newPin uint32) error {
	req := &protocol.ChangePinRequest{OldPin: oldPin, NewPin: newPin}
	env, err := b.rpc(ctx, protocol.OpChangePinRequest, req.Marshal())
	if err != nil {
		return err
	}
	return resultError(env)
}

// CmdVersion reads bridge and ComfoNet version information.
func (b *Bridge) CmdVersion(ctx context.Context) (*protocol.VersionConfirm, error) {
	env, err := b.rpc(ctx, protocol.OpVersionRequest, nil)
	if err != nil {
		return nil, err
	}
	if err := resultError(env); err != nil {
		return nil, err
	}
	return protocol.UnmarshalVersionConfirm(env.Payload)
}

// CmdTime reads the unit clock.
func (b *Bridge) CmdTime(ctx context.Context) (time.Time, error) {
	return b.cmdTime(ctx, 0)
}

// CmdSetTime sets the unit clock and returns the clock it reports
// back.
func (b *Bridge) CmdSetTime(ctx context.Context, t time.Time) (time.Time, error) {
	secs, err := rmi.EncodeTime(t)
	if err != nil {
		return time.Time{}, err
	}
	return b.cmdTime(ctx, secs)
}

func (b *Bridge) cmdTime(ctx context.Context, set uint32) (time.Time, error) {
	req := &protocol.CnTimeRequest{SetTime: set}
	env, err := b.rpc(ctx, protocol.OpCnTimeRequest, req.Marshal())
	if err != nil {
		return time.Time{}, err
	}
	if err := resultError(env); err != nil {
		return time.Time{}, err
	}
	confirm, err := protocol.UnmarshalCnTimeConfirm(env.Payload)
	if err != nil {
		return time.Time{}, err
	}
	return rmi.DecodeTime(confirm.CurrentTime), nil
}

// CmdRmi sends a raw RMI request to a node and returns the response
// payload with the status byte stripped. A non-zero appliance status
// surfaces as *rmi.RmiError; the session stays healthy.
func (b *Bridge) CmdRmi(ctx context.Context, nodeId uint8, message []byte) ([]byte, error) {
	req := &protocol.CnRmiRequest{NodeId: uint32(nodeId), Message: message}
	env, err := b.rpc(ctx, protocol.OpCnRmiRequest, req.Marshal())
	if err != nil {
		return nil, err
	}
	return parseRmiReply(env)
}

// CmdRmiAsync sends an RMI request on the asynchronous channel. The
// call still blocks until the async response arrives; the bridge
// acknowledges acceptance with a confirm first.
func (b *Bridge) CmdRmiAsync(ctx context.Context, nodeId uint8, message []byte) ([]byte, error) {
	req := &protocol.CnRmiRequest{NodeId: uint32(nodeId), Message: message}
	env, err := b.rpc(ctx, protocol.OpCnRmiAsyncRequest, req.Marshal())
	if err != nil {
		return nil, err
	}
	return parseRmiReply(env)
}

func parseRmiReply(env *protocol.Envelope) ([]byte, error) {
	if err := resultError(env); err != nil {
		return nil, err
	}
	resp, err := protocol.UnmarshalCnRmiResponse(env.Payload)
	if err != nil {
		return nil, err
	}
	if resp.Result != 0 {
		return nil, &rmi.RmiError{Status: uint8(resp.Result)}
	}
	return rmi.ParseResponse(resp.Message)
}

// CmdRpdo subscribes to or cancels a process data object. Timeout -1
// subscribes until cancelled, 0 cancels, positive values let the
// bridge expire the subscription on its own.
func (b *Bridge) CmdRpdo(ctx context.Context, pdid uint16, zone uint8, typ rmi.DataType, timeout int32) error {
	req := &protocol.CnRpdoRequest{
		Pdid:    uint32(pdid),
		Zone:    uint32(zone),
		Type:    uint32(typ),
		Timeout: uint32(timeout),
	}
	env, err := b.rpc(ctx, protocol.OpCnRpdoRequest, req.Marshal())
	if err != nil {
		return err
	}
	return resultError(env)
}

// resultError maps a confirm's result code to the error taxonomy.
func resultError(env *protocol.Envelope) error {
	if env.Result == protocol.ResultOk {
		return nil
	}
	return &RequestError{Operation: env.Operation, Result: env.Result, Reason: env.ResultDescription}
}
