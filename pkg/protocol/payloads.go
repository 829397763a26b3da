package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Inner messages carried in the payload section of an envelope. Field
// numbers are fixed by the bridge firmware and must not change. The
// bridge tolerates absent fields (proto3 semantics), so zero values are
// omitted except where the firmware requires the field.

// RegisterAppRequest pairs a new application uuid with the bridge.
type RegisterAppRequest struct {
	Uuid       []byte
	Pin        uint32
	DeviceName string
}

func (m *RegisterAppRequest) Marshal() []byte {
	b := make([]byte, 0, 32)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Uuid)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Pin))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, m.DeviceName)
	return b
}

// StartSessionRequest opens the command session. Takeover displaces a
// session another client left behind.
type StartSessionRequest struct {
	Takeover bool
}

func (m *StartSessionRequest) Marshal() []byte {
	var b []byte
	if m.Takeover {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

type StartSessionConfirm struct {
	DeviceName string
	Resumed    bool
}

func UnmarshalStartSessionConfirm(data []byte) (*StartSessionConfirm, error) {
	m := &StartSessionConfirm{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			m.DeviceName, data, err = consumeString(data)
		case 2:
			var v uint64
			v, data, err = consumeVarint(data)
			m.Resumed = v != 0
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// App describes one registration slot on the bridge.
type App struct {
	Uuid       []byte
	DeviceName string
}

func (m *App) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Uuid)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.DeviceName)
	return b
}

func unmarshalApp(data []byte) (App, error) {
	var app App
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return app, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			app.Uuid, data, err = consumeBytes(data)
		case 2:
			app.DeviceName, data, err = consumeString(data)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return app, err
		}
	}
	return app, nil
}

type ListRegisteredAppsConfirm struct {
	Apps []App
}

func (m *ListRegisteredAppsConfirm) Marshal() []byte {
	var b []byte
	for i := range m.Apps {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Apps[i].Marshal())
	}
	return b
}

func UnmarshalListRegisteredAppsConfirm(data []byte) (*ListRegisteredAppsConfirm, error) {
	m := &ListRegisteredAppsConfirm{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			raw, rest, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			app, err := unmarshalApp(raw)
			if err != nil {
				return nil, err
			}
			m.Apps = append(m.Apps, app)
			data = rest
		default:
			rest, err := skipField(num, typ, data)
			if err != nil {
				return nil, err
			}
			data = rest
		}
	}
	return m, nil
}

type DeregisterAppRequest struct {
	Uuid []byte
}

func (m *DeregisterAppRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Uuid)
	return b
}

type ChangePinRequest struct {
	OldPin uint32
	NewPin uint32
}

func (m *ChangePinRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.OldPin))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.NewPin))
	return b
}

type VersionConfirm struct {
	GatewayVersion  uint32
	SerialNumber    string
	ComfoNetVersion uint32
}

func (m *VersionConfirm) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.GatewayVersion))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.SerialNumber)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ComfoNetVersion))
	return b
}

func UnmarshalVersionConfirm(data []byte) (*VersionConfirm, error) {
	m := &VersionConfirm{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			var v uint64
			v, data, err = consumeVarint(data)
			m.GatewayVersion = uint32(v)
		case 2:
			m.SerialNumber, data, err = consumeString(data)
		case 3:
			var v uint64
			v, data, err = consumeVarint(data)
			m.ComfoNetVersion = uint32(v)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CnTimeRequest reads the unit clock, or sets it when SetTime is
// non-zero (seconds since 2000-01-01 UTC).
type CnTimeRequest struct {
	SetTime uint32
}

func (m *CnTimeRequest) Marshal() []byte {
	var b []byte
	if m.SetTime != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.SetTime))
	}
	return b
}

type CnTimeConfirm struct {
	CurrentTime uint32
}

func (m *CnTimeConfirm) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.CurrentTime))
	return b
}

func UnmarshalCnTimeConfirm(data []byte) (*CnTimeConfirm, error) {
	m := &CnTimeConfirm{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			var v uint64
			v, data, err = consumeVarint(data)
			m.CurrentTime = uint32(v)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CnRmiRequest tunnels a raw RMI byte string to a node of the unit.
type CnRmiRequest struct {
	NodeId  uint32
	Message []byte
}

func (m *CnRmiRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.NodeId))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Message)
	return b
}

func UnmarshalCnRmiRequest(data []byte) (*CnRmiRequest, error) {
	m := &CnRmiRequest{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			var v uint64
			v, data, err = consumeVarint(data)
			m.NodeId = uint32(v)
		case 2:
			m.Message, data, err = consumeBytes(data)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CnRmiResponse carries the RMI result. Result is the bridge level
// status; the first byte of Message is the appliance level status.
// The async response uses the same shape.
type CnRmiResponse struct {
	Result  uint32
	Message []byte
}

func (m *CnRmiResponse) Marshal() []byte {
	var b []byte
	if m.Result != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Result))
	}
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Message)
	return b
}

func UnmarshalCnRmiResponse(data []byte) (*CnRmiResponse, error) {
	m := &CnRmiResponse{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			var v uint64
			v, data, err = consumeVarint(data)
			m.Result = uint32(v)
		case 2:
			m.Message, data, err = consumeBytes(data)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CnRpdoRequest subscribes to or cancels a process data object.
// Timeout is the two's-complement encoding of the signed seconds value:
// -1 subscribes until cancelled, 0 cancels.
type CnRpdoRequest struct {
	Pdid    uint32
	Zone    uint32
	Type    uint32
	Timeout uint32
}

func (m *CnRpdoRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Pdid))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Zone))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Type))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Timeout))
	return b
}

func UnmarshalCnRpdoRequest(data []byte) (*CnRpdoRequest, error) {
	m := &CnRpdoRequest{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		var v uint64
		switch num {
		case 1:
			v, data, err = consumeVarint(data)
			m.Pdid = uint32(v)
		case 2:
			v, data, err = consumeVarint(data)
			m.Zone = uint32(v)
		case 3:
			v, data, err = consumeVarint(data)
			m.Type = uint32(v)
		case 4:
			v, data, err = consumeVarint(data)
			m.Timeout = uint32(v)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CnRpdoNotification is an unsolicited process data sample.
type CnRpdoNotification struct {
	Pdid uint32
	Data []byte
}

func (m *CnRpdoNotification) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Pdid))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Data)
	return b
}

func UnmarshalCnRpdoNotification(data []byte) (*CnRpdoNotification, error) {
	m := &CnRpdoNotification{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			var v uint64
			v, data, err = consumeVarint(data)
			m.Pdid = uint32(v)
		case 2:
			m.Data, data, err = consumeBytes(data)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CnAlarmNotification reports an active appliance error.
type CnAlarmNotification struct {
	Zone             uint32
	ProductId        uint32
	ProductVariant   uint32
	SerialNumber     string
	SwProgramVersion uint32
	Errors           []byte
}

func (m *CnAlarmNotification) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Zone))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ProductId))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ProductVariant))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendString(b, m.SerialNumber)
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.SwProgramVersion))
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Errors)
	return b
}

func UnmarshalCnAlarmNotification(data []byte) (*CnAlarmNotification, error) {
	m := &CnAlarmNotification{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		var v uint64
		switch num {
		case 1:
			v, data, err = consumeVarint(data)
			m.Zone = uint32(v)
		case 2:
			v, data, err = consumeVarint(data)
			m.ProductId = uint32(v)
		case 3:
			v, data, err = consumeVarint(data)
			m.ProductVariant = uint32(v)
		case 4:
			m.SerialNumber, data, err = consumeString(data)
		case 5:
			v, data, err = consumeVarint(data)
			m.SwProgramVersion = uint32(v)
		case 6:
			m.Errors, data, err = consumeBytes(data)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// GatewayNotification signals bridge side events, e.g. pending alarms.
type GatewayNotification struct {
	PushUUIDs [][]byte
	Alarm     bool
}

func UnmarshalGatewayNotification(data []byte) (*GatewayNotification, error) {
	m := &GatewayNotification{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			raw, rest, err := consumeBytes(data)
			if err != nil {
				return nil, err
			}
			m.PushUUIDs = append(m.PushUUIDs, raw)
			data = rest
		case 2:
			v, rest, err := consumeVarint(data)
			if err != nil {
				return nil, err
			}
			m.Alarm = v != 0
			data = rest
		default:
			rest, err := skipField(num, typ, data)
			if err != nil {
				return nil, err
			}
			data = rest
		}
	}
	return m, nil
}

// SearchGatewayResponse is the discovery reply datagram.
type SearchGatewayResponse struct {
	IPAddress string
	Uuid      []byte
	Version   uint32
}

func (m *SearchGatewayResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.IPAddress)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Uuid)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Version))
	return b
}

func UnmarshalSearchGatewayResponse(data []byte) (*SearchGatewayResponse, error) {
	m := &SearchGatewayResponse{}
	var err error
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformed
		}
		data = data[n:]
		switch num {
		case 1:
			m.IPAddress, data, err = consumeString(data)
		case 2:
			m.Uuid, data, err = consumeBytes(data)
		case 3:
			var v uint64
			v, data, err = consumeVarint(data)
			m.Version = uint32(v)
		default:
			data, err = skipField(num, typ, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}
