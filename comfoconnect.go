// Package comfoconnect is a client for the Zehnder ComfoConnect LAN C
// bridge, the network appliance fronting ComfoAir Q heat recovery
// ventilation units. It discovers bridges on the local network, runs
// the registration and session handshake, and exposes the unit's
// settings and sensors.
//
//	bridges, _ := discovery.Discover(ctx, 0)
//	client := comfoconnect.New(bridges[0].Host, bridges[0].Uuid)
//	pin := uint32(0)
//	if err := client.Connect(ctx, appUuid, &pin); err != nil { ... }
//	defer client.Disconnect(ctx)
//	client.SetSpeed(ctx, comfoconnect.SpeedLow)
package comfoconnect

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/comfohome/comfoconnect/pkg/bridge"
	"github.com/comfohome/comfoconnect/pkg/protocol"
	"github.com/comfohome/comfoconnect/pkg/rmi"
	"github.com/comfohome/comfoconnect/pkg/sensors"
)

// DefaultNode addresses the master unit on the ComfoNet bus.
const DefaultNode = 1

// Ventilation mode.
type Mode uint8

const (
	ModeAuto   Mode = rmi.ModeAuto
	ModeManual Mode = rmi.ModeManual
)

// Fan speed.
type Speed uint8

const (
	SpeedAway   Speed = rmi.SpeedAway
	SpeedLow    Speed = rmi.SpeedLow
	SpeedMedium Speed = rmi.SpeedMedium
	SpeedHigh   Speed = rmi.SpeedHigh
)

// Bypass position.
type Bypass uint8

const (
	BypassAuto Bypass = rmi.BypassAuto
	BypassOff  Bypass = rmi.BypassOff
	BypassOn   Bypass = rmi.BypassOn
)

// Temperature profile.
type Profile uint8

const (
	ProfileWarm   Profile = rmi.ProfileWarm
	ProfileNormal Profile = rmi.ProfileNormal
	ProfileCool   Profile = rmi.ProfileCool
)

// Balance mode of the supply and exhaust fans.
type Balance uint8

const (
	BalanceBalance Balance = iota
	BalanceSupplyOnly
	BalanceExhaustOnly
)

// ComfoCool mode.
type ComfoCool uint8

const (
	ComfoCoolAuto ComfoCool = 0
	ComfoCoolOff  ComfoCool = 1
)

// Sensor based ventilation mode.
type VentMode uint8

const (
	VentModeAuto VentMode = VentMode(sensors.VentModeAuto)
	VentModeOn   VentMode = VentMode(sensors.VentModeOn)
	VentModeOff  VentMode = VentMode(sensors.VentModeOff)
)

// ComfoConnect is the high level client: one bridge session plus the
// sensor subscription manager. Create with New, then Connect.
type ComfoConnect struct {
	bridge  *bridge.Bridge
	manager *sensors.Manager
	node    uint8
}

// New creates a client for the bridge at host. The uuid comes from
// discovery or a previous pairing.
func New(host string, bridgeUuid [protocol.UUIDSize]byte) *ComfoConnect {
	c := &ComfoConnect{
		bridge: bridge.NewBridge(host, bridgeUuid),
		node:   DefaultNode,
	}
	c.manager = sensors.NewManager(c.bridge)
	c.bridge.SetRpdoHandler(c.manager.Handle)
	return c
}

// Bridge exposes the underlying session for the low level command
// surface.
func (c *ComfoConnect) Bridge() *bridge.Bridge { return c.bridge }

// Connect opens the session. When the app uuid is unknown to the
// bridge and pin is non-nil the app registers first.
func (c *ComfoConnect) Connect(ctx context.Context, appUuid uuid.UUID, pin *uint32) error {
	return c.bridge.Connect(ctx, [protocol.UUIDSize]byte(appUuid), pin)
}

// Disconnect ends the session. After it returns no sensor callback
// fires.
func (c *ComfoConnect) Disconnect(ctx context.Context) error {
	err := c.bridge.Disconnect(ctx)
	c.manager.Close()
	return err
}

// RegisterSensor subscribes a callback to a sensor from the registry.
// The returned cancel function removes it again.
func (c *ComfoConnect) RegisterSensor(ctx context.Context, sensor sensors.Sensor, cb sensors.Callback) (func() error, error) {
	return c.manager.Register(ctx, sensor, cb)
}

// DeregisterSensor drops all callbacks of a sensor.
func (c *ComfoConnect) DeregisterSensor(ctx context.Context, sensor sensors.Sensor) error {
	return c.manager.Deregister(ctx, sensor)
}

// rmiRequest sends an RMI payload to the unit's master node.
func (c *ComfoConnect) rmiRequest(ctx context.Context, payload []byte) ([]byte, error) {
	return c.bridge.CmdRmi(ctx, c.node, payload)
}

// timeoutSeconds converts a duration into the signed wire encoding;
// zero or negative means indefinite.
func timeoutSeconds(d time.Duration) int32 {
	if d <= 0 {
		return rmi.TimeoutIndefinite
	}
	return int32(d / time.Second)
}

// GetMode reads the ventilation mode. No active override on the mode
// schedule means the unit runs in auto.
func (c *ComfoConnect) GetMode(ctx context.Context) (Mode, error) {
	resp, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitMode, rmi.ScheduleDefault))
	if err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return ModeAuto, nil
	}
	return Mode(resp[len(resp)-1]), nil
}

// SetMode switches between automatic and manual ventilation.
func (c *ComfoConnect) SetMode(ctx context.Context, mode Mode) error {
	var payload []byte
	if mode == ModeAuto {
		payload = rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitMode, rmi.ScheduleDefault)
	} else {
		payload = rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitMode, rmi.ScheduleDefault, rmi.TimeoutIndefinite, rmi.ModeManual)
	}
	_, err := c.rmiRequest(ctx, payload)
	return err
}

// GetSpeed reads the current fan speed setting.
func (c *ComfoConnect) GetSpeed(ctx context.Context) (Speed, error) {
	resp, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitFanSpeed, rmi.ScheduleDefault))
	if err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return 0, ErrProtocolViolation
	}
	return Speed(resp[len(resp)-1]), nil
}

// SetSpeed sets the fan speed.
func (c *ComfoConnect) SetSpeed(ctx context.Context, speed Speed) error {
	_, err := c.rmiRequest(ctx, rmi.ScheduleSet(rmi.UnitSchedule, rmi.SubunitFanSpeed, byte(speed)))
	return err
}

// GetBoost reports whether a boost override is active.
func (c *ComfoConnect) GetBoost(ctx context.Context) (bool, error) {
	resp, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitFanSpeed, rmi.ScheduleBoost))
	if err != nil {
		return false, err
	}
	return len(resp) > 0 && resp[len(resp)-1] == rmi.SpeedHigh, nil
}

// SetBoost runs the fans at high speed for the given duration, or
// cancels the boost.
func (c *ComfoConnect) SetBoost(ctx context.Context, on bool, d time.Duration) error {
	var payload []byte
	if on {
		payload = rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitFanSpeed, rmi.ScheduleBoost, timeoutSeconds(d), rmi.SpeedHigh)
	} else {
		payload = rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitFanSpeed, rmi.ScheduleBoost)
	}
	_, err := c.rmiRequest(ctx, payload)
	return err
}

// GetAway reports whether the away override is active.
func (c *ComfoConnect) GetAway(ctx context.Context) (bool, error) {
	resp, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitFanSpeed, rmi.ScheduleAway))
	if err != nil {
		return false, err
	}
	return len(resp) > 0 && resp[len(resp)-1] == rmi.SpeedAway, nil
}

// SetAway drops the fans to away speed for the given duration, or
// cancels the override.
func (c *ComfoConnect) SetAway(ctx context.Context, on bool, d time.Duration) error {
	var payload []byte
	if on {
		payload = rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitFanSpeed, rmi.ScheduleAway, timeoutSeconds(d), rmi.SpeedAway)
	} else {
		payload = rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitFanSpeed, rmi.ScheduleAway)
	}
	_, err := c.rmiRequest(ctx, payload)
	return err
}

// GetBypass reads the bypass override position.
func (c *ComfoConnect) GetBypass(ctx context.Context) (Bypass, error) {
	resp, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitBypass, rmi.ScheduleDefault))
	if err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return BypassAuto, nil
	}
	return Bypass(resp[len(resp)-1]), nil
}

// SetBypass overrides the bypass position for the given duration.
// BypassAuto clears the override.
func (c *ComfoConnect) SetBypass(ctx context.Context, mode Bypass, d time.Duration) error {
	var payload []byte
	if mode == BypassAuto {
		payload = rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitBypass, rmi.ScheduleDefault)
	} else {
		payload = rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitBypass, rmi.ScheduleDefault, timeoutSeconds(d), byte(mode))
	}
	_, err := c.rmiRequest(ctx, payload)
	return err
}

// GetTemperatureProfile reads the active temperature profile.
func (c *ComfoConnect) GetTemperatureProfile(ctx context.Context) (Profile, error) {
	resp, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitTemperatureProfile, rmi.ScheduleDefault))
	if err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return ProfileNormal, nil
	}
	return Profile(resp[len(resp)-1]), nil
}

// SetTemperatureProfile selects the temperature profile for the given
// duration (indefinite when zero).
func (c *ComfoConnect) SetTemperatureProfile(ctx context.Context, profile Profile, d time.Duration) error {
	payload := rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitTemperatureProfile, rmi.ScheduleDefault, timeoutSeconds(d), byte(profile))
	_, err := c.rmiRequest(ctx, payload)
	return err
}

// GetComfoCoolMode reads the ComfoCool override.
func (c *ComfoConnect) GetComfoCoolMode(ctx context.Context) (ComfoCool, error) {
	resp, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitComfoCool, rmi.ScheduleDefault))
	if err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return ComfoCoolAuto, nil
	}
	return ComfoCoolOff, nil
}

// SetComfoCoolMode forces the ComfoCool off for the given duration or
// returns it to automatic control.
func (c *ComfoConnect) SetComfoCoolMode(ctx context.Context, mode ComfoCool, d time.Duration) error {
	var payload []byte
	if mode == ComfoCoolAuto {
		payload = rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitComfoCool, rmi.ScheduleDefault)
	} else {
		payload = rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitComfoCool, rmi.ScheduleDefault, timeoutSeconds(d), 0x00)
	}
	_, err := c.rmiRequest(ctx, payload)
	return err
}

// GetBalanceMode derives the balance mode from the supply and exhaust
// fan overrides.
func (c *ComfoConnect) GetBalanceMode(ctx context.Context) (Balance, error) {
	supply, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitSupplyFan, rmi.ScheduleDefault))
	if err != nil {
		return 0, err
	}
	exhaust, err := c.rmiRequest(ctx, rmi.ScheduleGet(rmi.UnitSchedule, rmi.SubunitExhaustFan, rmi.ScheduleDefault))
	if err != nil {
		return 0, err
	}
	switch {
	case len(exhaust) > 0 && len(supply) == 0:
		return BalanceSupplyOnly, nil
	case len(supply) > 0 && len(exhaust) == 0:
		return BalanceExhaustOnly, nil
	default:
		return BalanceBalance, nil
	}
}

// SetBalanceMode runs both fans, only the supply fan or only the
// exhaust fan for the given duration. Stopping a fan is an override to
// away speed on its subunit.
func (c *ComfoConnect) SetBalanceMode(ctx context.Context, mode Balance, d time.Duration) error {
	clearSupply := rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitSupplyFan, rmi.ScheduleDefault)
	clearExhaust := rmi.ScheduleClear(rmi.UnitSchedule, rmi.SubunitExhaustFan, rmi.ScheduleDefault)
	var first, second []byte
	switch mode {
	case BalanceSupplyOnly:
		first = rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitExhaustFan, rmi.ScheduleDefault, timeoutSeconds(d), rmi.SpeedAway)
		second = clearSupply
	case BalanceExhaustOnly:
		first = rmi.ScheduleSetTimed(rmi.UnitSchedule, rmi.SubunitSupplyFan, rmi.ScheduleDefault, timeoutSeconds(d), rmi.SpeedAway)
		second = clearExhaust
	default:
		first = clearSupply
		second = clearExhaust
	}
	if _, err := c.rmiRequest(ctx, first); err != nil {
		return err
	}
	_, err := c.rmiRequest(ctx, second)
	return err
}

// Sensor based ventilation mode toggles: property writes on the
// temperature and humidity control unit.

func (c *ComfoConnect) GetSensorVentmodeTemperaturePassive(ctx context.Context) (VentMode, error) {
	return c.getVentmode(ctx, sensors.PropertyPassiveTempMode)
}

func (c *ComfoConnect) SetSensorVentmodeTemperaturePassive(ctx context.Context, mode VentMode) error {
	return c.setVentmode(ctx, sensors.PropertyPassiveTempMode, mode)
}

func (c *ComfoConnect) GetSensorVentmodeHumidityComfort(ctx context.Context) (VentMode, error) {
	return c.getVentmode(ctx, sensors.PropertyHumidityComfortMode)
}

func (c *ComfoConnect) SetSensorVentmodeHumidityComfort(ctx context.Context, mode VentMode) error {
	return c.setVentmode(ctx, sensors.PropertyHumidityComfortMode, mode)
}

func (c *ComfoConnect) GetSensorVentmodeHumidityProtection(ctx context.Context) (VentMode, error) {
	return c.getVentmode(ctx, sensors.PropertyHumidityProtectMode)
}

func (c *ComfoConnect) SetSensorVentmodeHumidityProtection(ctx context.Context, mode VentMode) error {
	return c.setVentmode(ctx, sensors.PropertyHumidityProtectMode, mode)
}

func (c *ComfoConnect) getVentmode(ctx context.Context, prop sensors.Property) (VentMode, error) {
	v, err := c.GetProperty(ctx, prop)
	if err != nil {
		return 0, err
	}
	return VentMode(v.(uint64)), nil
}

func (c *ComfoConnect) setVentmode(ctx context.Context, prop sensors.Property, mode VentMode) error {
	return c.SetProperty(ctx, prop, uint8(mode))
}

// GetProperty reads a device property and decodes it per its
// descriptor type. Array typed descriptors are not decoded: they fail
// with rmi.ErrTypeMismatch.
func (c *ComfoConnect) GetProperty(ctx context.Context, prop sensors.Property) (any, error) {
	resp, err := c.rmiRequest(ctx, rmi.PropertyRead(prop.Unit, prop.Subunit, prop.Id))
	if err != nil {
		return nil, err
	}
	return rmi.DecodeValue(resp, prop.Type)
}

// SetProperty encodes a value per the descriptor type and writes it.
// Array typed descriptors are not encoded: they fail with
// rmi.ErrTypeMismatch.
func (c *ComfoConnect) SetProperty(ctx context.Context, prop sensors.Property, value any) error {
	encoded, err := rmi.EncodeValue(value, prop.Type)
	if err != nil {
		return err
	}
	_, err = c.rmiRequest(ctx, rmi.PropertyWrite(prop.Unit, prop.Subunit, prop.Id, encoded))
	return err
}
