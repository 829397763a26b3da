package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comfohome/comfoconnect/pkg/rmi"
)

func TestRegistryLookup(t *testing.T) {
	sensor, ok := Get(SensorIndoorTemperature)
	require.True(t, ok)
	assert.Equal(t, "Indoor air temperature", sensor.Name)
	assert.Equal(t, rmi.TypeInt16, sensor.Type)
	assert.Equal(t, 0.01, sensor.Scale)

	_, ok = Get(0xFFFF)
	assert.False(t, ok)
}

func TestRegistryIsConsistent(t *testing.T) {
	seen := map[uint16]bool{}
	for _, sensor := range All() {
		assert.False(t, seen[sensor.Id], "duplicate sensor id %d", sensor.Id)
		seen[sensor.Id] = true
		assert.NotEmpty(t, sensor.Name)
		assert.NotZero(t, sensor.Scale, "sensor %d has zero scale", sensor.Id)
		assert.NotZero(t, sensor.Type.Size(), "sensor %d has a variable width type", sensor.Id)
		assert.Equal(t, uint8(1), sensor.Zone)
	}
}

func TestAllIsSortedCopy(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Id, all[i].Id)
	}
	all[0].Name = "mutated"
	fresh := All()
	assert.NotEqual(t, "mutated", fresh[0].Name)
}

func TestPropertyByName(t *testing.T) {
	prop, ok := PropertyByName("serial-number")
	require.True(t, ok)
	assert.Equal(t, PropertySerialNumber, prop)

	_, ok = PropertyByName("unknown")
	assert.False(t, ok)
}
