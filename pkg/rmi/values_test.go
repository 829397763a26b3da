package rmi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		typ   DataType
		value any
		want  any
	}{
		{"bool true", TypeBool, true, true},
		{"bool false", TypeBool, false, false},
		{"uint8", TypeUint8, uint8(240), uint64(240)},
		{"int8 negative", TypeInt8, int8(-5), int64(-5)},
		{"uint16", TypeUint16, uint16(0x0960), uint64(0x0960)},
		{"int16 negative", TypeInt16, int16(-1200), int64(-1200)},
		{"uint32", TypeUint32, uint32(86400), uint64(86400)},
		{"int32 negative", TypeInt32, int32(-1), int64(-1)},
		{"int64", TypeInt64, int64(1 << 40), int64(1 << 40)},
		{"fixed8.8", TypeFixed88, 9.375, 9.375},
		{"fixed8.8 negative", TypeFixed88, -0.5, -0.5},
		{"string", TypeString, "ComfoAir Q450", "ComfoAir Q450"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := EncodeValue(tc.value, tc.typ)
			require.Nil(t, err)
			decoded, err := DecodeValue(encoded, tc.typ)
			require.Nil(t, err)
			assert.Equal(t, tc.want, decoded)
		})
	}
}

func TestValueWireEncoding(t *testing.T) {
	t.Run("little endian uint16", func(t *testing.T) {
		encoded, err := EncodeValue(uint16(0x0960), TypeUint16)
		require.Nil(t, err)
		assert.Equal(t, []byte{0x60, 0x09}, encoded)
	})
	t.Run("string is nul terminated", func(t *testing.T) {
		encoded, err := EncodeValue("abc", TypeString)
		require.Nil(t, err)
		assert.Equal(t, []byte{'a', 'b', 'c', 0}, encoded)
	})
	t.Run("fixed8.8 divides by 256", func(t *testing.T) {
		decoded, err := DecodeValue([]byte{0x60, 0x09}, TypeFixed88)
		require.Nil(t, err)
		assert.Equal(t, 9.375, decoded)
	})
}

func TestTimeEpoch(t *testing.T) {
	// The appliance counts seconds from 2000-01-01 UTC.
	encoded, err := EncodeValue(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC), TypeTime)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x80, 0x51, 0x01, 0x00}, encoded)

	decoded, err := DecodeValue(encoded, TypeTime)
	require.Nil(t, err)
	assert.Equal(t, time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC), decoded)

	secs, err := EncodeTime(time.Date(2000, 1, 1, 0, 1, 0, 0, time.UTC))
	require.Nil(t, err)
	assert.Equal(t, uint32(60), secs)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 1, 0, 0, time.UTC), DecodeTime(60))
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	_, err := EncodeValue(300, TypeUint8)
	assert.ErrorIs(t, err, ErrValueRange)
	_, err = EncodeValue(-1, TypeUint16)
	assert.ErrorIs(t, err, ErrValueRange)
	_, err = EncodeValue("nope", TypeUint8)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestDecodeRejectsShortSamples(t *testing.T) {
	_, err := DecodeValue([]byte{0x01}, TypeUint16)
	assert.ErrorIs(t, err, ErrDecode)
	_, err = DecodeSample([]byte{}, TypeUint8)
	assert.ErrorIs(t, err, ErrDecode)
	_, err = DecodeSample([]byte{1, 2, 3}, TypeInt64)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeSampleSignExtends(t *testing.T) {
	v, err := DecodeSample([]byte{0xFF, 0xFF}, TypeInt16)
	require.Nil(t, err)
	assert.Equal(t, float64(-1), v)

	v, err = DecodeSample([]byte{0x60, 0x09}, TypeInt16)
	require.Nil(t, err)
	assert.Equal(t, float64(2400), v)
}

func TestArrayRoundTrip(t *testing.T) {
	encoded, err := EncodeArray([]any{uint8(1), uint8(2), uint8(3)}, TypeUint8)
	require.Nil(t, err)
	assert.Equal(t, []byte{3, 1, 2, 3}, encoded)

	decoded, err := DecodeArray(encoded, TypeUint8)
	require.Nil(t, err)
	assert.Equal(t, []any{uint64(1), uint64(2), uint64(3)}, decoded)

	_, err = DecodeArray([]byte{4, 1, 2}, TypeUint8)
	assert.ErrorIs(t, err, ErrDecode)
}
