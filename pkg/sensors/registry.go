// Package sensors holds the static process data and property tables of
// the ComfoAir Q family and the subscription manager that turns RPDO
// notifications into typed sensor updates.
package sensors

import (
	"sort"

	"github.com/comfohome/comfoconnect/pkg/rmi"
)

// Sensor describes one process data object published by the unit.
// Scale is applied after the sample type decode; temperatures are
// reported in centidegrees, hence scale 0.01.
type Sensor struct {
	Id    uint16
	Name  string
	Unit  string
	Type  rmi.DataType
	Scale float64
	Zone  uint8
}

// Well known sensor ids.
const (
	SensorFanSpeedSetting     = 65
	SensorBypassMode          = 66
	SensorTemperatureProfile  = 67
	SensorFanNextChange       = 81
	SensorExhaustFanDuty      = 117
	SensorSupplyFanDuty       = 118
	SensorExhaustAirflow      = 119
	SensorSupplyAirflow       = 120
	SensorExhaustFanSpeed     = 121
	SensorSupplyFanSpeed      = 122
	SensorPowerUsage          = 128
	SensorDaysToFilterChange  = 192
	SensorRunningMeanOutdoor  = 209
	SensorTargetTemperature   = 212
	SensorIndoorTemperature   = 276
	SensorExtractTemperature  = 274
	SensorExhaustTemperature  = 275
	SensorExtractHumidity     = 290
	SensorExhaustHumidity     = 291
	SensorOutdoorHumidity     = 292
	SensorSupplyHumidity      = 294
)

var registry = []Sensor{
	{16, "Away indicator", "", rmi.TypeUint8, 1, 1},
	{33, "Operating mode bitset", "", rmi.TypeUint32, 1, 1},
	{37, "Changing filters", "", rmi.TypeBool, 1, 1},
	{49, "Operating mode", "", rmi.TypeUint8, 1, 1},
	{50, "Fans running", "", rmi.TypeBool, 1, 1},
	{53, "Unit state", "", rmi.TypeUint8, 1, 1},
	{54, "Standby state", "", rmi.TypeUint8, 1, 1},
	{55, "Bypass available", "", rmi.TypeBool, 1, 1},
	{56, "Ventilation mode", "", rmi.TypeUint8, 1, 1},
	{65, "Fan speed setting", "", rmi.TypeUint8, 1, 1},
	{66, "Bypass activation mode", "", rmi.TypeUint8, 1, 1},
	{67, "Temperature profile", "", rmi.TypeUint8, 1, 1},
	{70, "Supply fan mode", "", rmi.TypeUint8, 1, 1},
	{71, "Exhaust fan mode", "", rmi.TypeUint8, 1, 1},
	{81, "Next fan speed change", "s", rmi.TypeUint32, 1, 1},
	{82, "Bypass override remaining", "s", rmi.TypeUint32, 1, 1},
	{83, "Fan speed override remaining", "s", rmi.TypeUint32, 1, 1},
	{84, "Temperature profile remaining", "s", rmi.TypeUint32, 1, 1},
	{85, "Supply fan override remaining", "s", rmi.TypeUint32, 1, 1},
	{86, "Exhaust fan override remaining", "s", rmi.TypeUint32, 1, 1},
	{87, "Ventilation mode remaining", "s", rmi.TypeUint32, 1, 1},
	{96, "ComfoCool override remaining", "s", rmi.TypeUint32, 1, 1},
	{97, "Boost remaining", "s", rmi.TypeUint32, 1, 1},
	{98, "Away remaining", "s", rmi.TypeUint32, 1, 1},
	{117, "Exhaust fan duty", "%", rmi.TypeUint8, 1, 1},
	{118, "Supply fan duty", "%", rmi.TypeUint8, 1, 1},
	{119, "Exhaust fan airflow", "m³/h", rmi.TypeUint16, 1, 1},
	{120, "Supply fan airflow", "m³/h", rmi.TypeUint16, 1, 1},
	{121, "Exhaust fan speed", "rpm", rmi.TypeUint16, 1, 1},
	{122, "Supply fan speed", "rpm", rmi.TypeUint16, 1, 1},
	{128, "Power usage", "W", rmi.TypeUint16, 1, 1},
	{129, "Energy usage this year", "kWh", rmi.TypeUint16, 1, 1},
	{130, "Energy usage total", "kWh", rmi.TypeUint16, 1, 1},
	{131, "Energy usage this month", "kWh", rmi.TypeUint16, 1, 1},
	{144, "Preheater energy this year", "kWh", rmi.TypeUint16, 1, 1},
	{145, "Preheater energy total", "kWh", rmi.TypeUint16, 1, 1},
	{146, "Preheater power usage", "W", rmi.TypeUint16, 1, 1},
	{147, "Preheater energy this month", "kWh", rmi.TypeUint16, 1, 1},
	{160, "RF pairing mode", "", rmi.TypeUint8, 1, 1},
	{162, "RF remote count", "", rmi.TypeUint8, 1, 1},
	{176, "Frost protection state", "", rmi.TypeUint8, 1, 1},
	{177, "Preheater mode", "", rmi.TypeUint8, 1, 1},
	{192, "Days until filter change", "d", rmi.TypeUint16, 1, 1},
	{208, "Device temperature unit", "", rmi.TypeUint8, 1, 1},
	{209, "Running mean outdoor temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{210, "Heating season active", "", rmi.TypeBool, 1, 1},
	{211, "Heating period RMOT", "°C", rmi.TypeInt16, 0.01, 1},
	{212, "Target temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{213, "Avoided heating power", "W", rmi.TypeUint16, 1, 1},
	{214, "Avoided heating this year", "kWh", rmi.TypeUint16, 1, 1},
	{215, "Avoided heating total", "kWh", rmi.TypeUint16, 1, 1},
	{216, "Avoided cooling power", "W", rmi.TypeUint16, 1, 1},
	{217, "Avoided cooling this year", "kWh", rmi.TypeUint16, 1, 1},
	{218, "Avoided cooling total", "kWh", rmi.TypeUint16, 1, 1},
	{219, "Avoided cooling this month", "kWh", rmi.TypeUint16, 1, 1},
	{220, "Preheated outdoor temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{221, "Supply temperature after exchanger", "°C", rmi.TypeInt16, 0.01, 1},
	{224, "Device airflow constraint", "", rmi.TypeUint8, 1, 1},
	{225, "Season detection mode", "", rmi.TypeUint8, 1, 1},
	{226, "Ventilation constraint bitset", "", rmi.TypeUint16, 1, 1},
	{227, "Bypass position", "%", rmi.TypeUint8, 1, 1},
	{228, "Frost protection preheater", "W", rmi.TypeUint16, 1, 1},
	{229, "Exchanger efficiency", "%", rmi.TypeUint8, 1, 1},
	{230, "Bypass open time total", "h", rmi.TypeUint32, 1, 1},
	{256, "Comfort control mode", "", rmi.TypeUint8, 1, 1},
	{257, "Scheduler state", "", rmi.TypeUint8, 1, 1},
	{274, "Extract air temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{275, "Exhaust air temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{276, "Indoor air temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{277, "Outdoor air temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{278, "Preheater intake temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{290, "Extract air humidity", "%", rmi.TypeUint8, 1, 1},
	{291, "Exhaust air humidity", "%", rmi.TypeUint8, 1, 1},
	{292, "Outdoor air humidity", "%", rmi.TypeUint8, 1, 1},
	{293, "Preheated outdoor humidity", "%", rmi.TypeUint8, 1, 1},
	{294, "Supply air humidity", "%", rmi.TypeUint8, 1, 1},
	{321, "ComfoCool state", "", rmi.TypeUint8, 1, 1},
	{322, "ComfoCool target temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{324, "ComfoCool condensate alarm", "", rmi.TypeBool, 1, 1},
	{325, "ComfoCool compressor state", "", rmi.TypeUint8, 1, 1},
	{336, "Fan speed override state", "", rmi.TypeUint32, 1, 1},
	{337, "Away function state", "", rmi.TypeUint32, 1, 1},
	{338, "Bypass override state", "", rmi.TypeUint32, 1, 1},
	{341, "Temperature profile override state", "", rmi.TypeUint32, 1, 1},
	{342, "Ventilation mode override state", "", rmi.TypeUint32, 1, 1},
	{368, "Analog input mode", "", rmi.TypeUint8, 1, 1},
	{369, "Analog input 1", "V", rmi.TypeUint8, 0.1, 1},
	{370, "Analog input 2", "V", rmi.TypeUint8, 0.1, 1},
	{371, "Analog input 3", "V", rmi.TypeUint8, 0.1, 1},
	{372, "Analog input 4", "V", rmi.TypeUint8, 0.1, 1},
	{384, "Fan pressure difference", "Pa", rmi.TypeInt16, 0.1, 1},
	{385, "Supply pressure", "Pa", rmi.TypeInt16, 0.1, 1},
	{386, "Exhaust pressure", "Pa", rmi.TypeInt16, 0.1, 1},
	{400, "Post heater temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{401, "Post heater power usage", "W", rmi.TypeUint16, 1, 1},
	{402, "Post heater present", "", rmi.TypeBool, 1, 1},
	{403, "Post heater target temperature", "°C", rmi.TypeInt16, 0.01, 1},
	{416, "Outdoor temperature uncorrected", "°C", rmi.TypeInt16, 0.01, 1},
	{417, "Frost disbalance", "%", rmi.TypeUint8, 1, 1},
	{418, "Active error", "", rmi.TypeError, 1, 1},
	{419, "System uptime", "s", rmi.TypeTime, 1, 1},
	{420, "Filter dirtiness", "%", rmi.TypeUint8, 1, 1},
	{421, "Service due", "", rmi.TypeBool, 1, 1},
	{784, "Operating hours total", "h", rmi.TypeUint32, 1, 1},
	{801, "Supply fan operating hours", "h", rmi.TypeUint32, 1, 1},
	{802, "Exhaust fan operating hours", "h", rmi.TypeUint32, 1, 1},
}

var byId = func() map[uint16]Sensor {
	m := make(map[uint16]Sensor, len(registry))
	for _, s := range registry {
		m[s.Id] = s
	}
	return m
}()

// Get returns the sensor definition for a process data id.
func Get(id uint16) (Sensor, bool) {
	s, ok := byId[id]
	return s, ok
}

// All returns the registry ordered by id.
func All() []Sensor {
	out := make([]Sensor, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}
