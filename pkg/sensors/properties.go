package sensors

import "github.com/comfohome/comfoconnect/pkg/rmi"

// Property addresses one device property reachable over RMI.
type Property struct {
	Name    string
	Unit    uint8
	Subunit uint8
	Id      uint16
	Type    rmi.DataType
}

// Node general properties.
var (
	PropertySerialNumber    = Property{"serial-number", rmi.UnitNode, 0x01, 0x04, rmi.TypeString}
	PropertyFirmwareVersion = Property{"firmware-version", rmi.UnitNode, 0x01, 0x06, rmi.TypeUint32}
	PropertyModel           = Property{"model", rmi.UnitNode, 0x01, 0x08, rmi.TypeString}
	PropertyArticleNumber   = Property{"article-number", rmi.UnitNode, 0x01, 0x0B, rmi.TypeString}
	PropertyCountry         = Property{"country", rmi.UnitNode, 0x01, 0x0D, rmi.TypeString}
	PropertyDeviceName      = Property{"device-name", rmi.UnitNode, 0x01, 0x14, rmi.TypeString}
)

// Temperature and humidity control properties.
var (
	PropertyRmotCoolLimit       = Property{"rmot-cool-limit", rmi.UnitTempHumControl, 0x01, 0x02, rmi.TypeInt16}
	PropertyRmotHeatLimit       = Property{"rmot-heat-limit", rmi.UnitTempHumControl, 0x01, 0x03, rmi.TypeInt16}
	PropertyPassiveTempMode     = Property{"passive-temperature-mode", rmi.UnitTempHumControl, 0x01, 0x04, rmi.TypeUint8}
	PropertyHumidityComfortMode = Property{"humidity-comfort-mode", rmi.UnitTempHumControl, 0x01, 0x06, rmi.TypeUint8}
	PropertyHumidityProtectMode = Property{"humidity-protection-mode", rmi.UnitTempHumControl, 0x01, 0x07, rmi.TypeUint8}
)

// Ventilation configuration properties.
var (
	PropertyVentilationRange    = Property{"ventilation-range", rmi.UnitVentilation, 0x01, 0x02, rmi.TypeArray}
	PropertyBathroomSwitchDelay = Property{"bathroom-switch-delay", rmi.UnitVentilation, 0x01, 0x04, rmi.TypeUint8}
	PropertyFilterDuration      = Property{"filter-duration", rmi.UnitVentilation, 0x01, 0x05, rmi.TypeUint16}
	PropertyMaintenanceReset    = Property{"maintenance-reset", rmi.UnitVentilation, 0x01, 0x08, rmi.TypeBool}
)

// Sensor based ventilation mode values for the temphum control
// properties.
const (
	VentModeAuto uint8 = 0
	VentModeOn   uint8 = 1
	VentModeOff  uint8 = 2
)

// Properties lists every known descriptor, for enumeration by callers
// like the CLI.
var Properties = []Property{
	PropertySerialNumber,
	PropertyFirmwareVersion,
	PropertyModel,
	PropertyArticleNumber,
	PropertyCountry,
	PropertyDeviceName,
	PropertyRmotCoolLimit,
	PropertyRmotHeatLimit,
	PropertyPassiveTempMode,
	PropertyHumidityComfortMode,
	PropertyHumidityProtectMode,
	PropertyVentilationRange,
	PropertyBathroomSwitchDelay,
	PropertyFilterDuration,
	PropertyMaintenanceReset,
}

// PropertyByName resolves a descriptor by its CLI name.
func PropertyByName(name string) (Property, bool) {
	for _, p := range Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}
