package rmi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// DataType describes how a property value or process data sample is
// laid out on the wire. The numeric codes are also what the bridge
// expects in the type field of an RPDO subscription.
type DataType uint8

const (
	TypeBool    DataType = 0
	TypeUint8   DataType = 1
	TypeUint16  DataType = 2
	TypeUint32  DataType = 3
	TypeInt8    DataType = 5
	TypeInt16   DataType = 6
	TypeInt32   DataType = 7
	TypeInt64   DataType = 8
	TypeFixed88 DataType = 9
	TypeTime    DataType = 10
	TypeError   DataType = 11
	TypeString  DataType = 12
	TypeBytes   DataType = 13
	TypeArray   DataType = 14
)

var (
	ErrDecode       = errors.New("sample shorter than its type requires")
	ErrTypeMismatch = errors.New("value does not match property type")
	ErrValueRange   = errors.New("value out of range for property type")
)

// timeBase is the appliance epoch. Time values on the wire are seconds
// since this instant.
var timeBase = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// EncodeTime converts a wall clock instant to appliance epoch seconds.
func EncodeTime(t time.Time) (uint32, error) {
	secs := int64(t.UTC().Sub(timeBase) / time.Second)
	if secs < 0 || secs > math.MaxUint32 {
		return 0, ErrValueRange
	}
	return uint32(secs), nil
}

// DecodeTime converts appliance epoch seconds to a wall clock instant.
func DecodeTime(secs uint32) time.Time {
	return timeBase.Add(time.Duration(secs) * time.Second)
}

// Size returns the wire size of a fixed-width type and 0 for the
// variable-width ones.
func (t DataType) Size() int {
	switch t {
	case TypeBool, TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16, TypeFixed88:
		return 2
	case TypeUint32, TypeInt32, TypeTime, TypeError:
		return 4
	case TypeInt64:
		return 8
	default:
		return 0
	}
}

func (t DataType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFixed88:
		return "fixed8.8"
	case TypeTime:
		return "time"
	case TypeError:
		return "error"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

// EncodeValue serializes a Go value for a property write. Integer
// kinds accept int64, the exact-width Go integer, or bool for
// TypeBool. Little-endian throughout, strings NUL-terminated UTF-8.
func EncodeValue(v any, t DataType) ([]byte, error) {
	switch t {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, ErrTypeMismatch
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeUint8, TypeInt8:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(n, t); err != nil {
			return nil, err
		}
		return []byte{byte(n)}, nil

	case TypeUint16, TypeInt16:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(n, t); err != nil {
			return nil, err
		}
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, uint16(n))
		return data, nil

	case TypeUint32, TypeInt32, TypeError:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(n, t); err != nil {
			return nil, err
		}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(n))
		return data, nil

	case TypeInt64:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, uint64(n))
		return data, nil

	case TypeFixed88:
		f, ok := v.(float64)
		if !ok {
			return nil, ErrTypeMismatch
		}
		raw := int64(math.Round(f * 256))
		if raw < math.MinInt16 || raw > math.MaxInt16 {
			return nil, ErrValueRange
		}
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, uint16(int16(raw)))
		return data, nil

	case TypeTime:
		ts, ok := v.(time.Time)
		if !ok {
			return nil, ErrTypeMismatch
		}
		secs := int64(ts.UTC().Sub(timeBase) / time.Second)
		if secs < 0 || secs > math.MaxUint32 {
			return nil, ErrValueRange
		}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(secs))
		return data, nil

	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return append([]byte(s), 0), nil

	case TypeBytes:
		raw, ok := v.([]byte)
		if !ok {
			return nil, ErrTypeMismatch
		}
		return raw, nil

	default:
		return nil, ErrTypeMismatch
	}
}

// DecodeValue parses property response bytes into the Go value for the
// type: bool, int64/uint64 for the integer kinds, float64 for
// fixed8.8, time.Time, string, or []byte.
func DecodeValue(data []byte, t DataType) (any, error) {
	if size := t.Size(); size > 0 && len(data) < size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrDecode, t, size, len(data))
	}
	switch t {
	case TypeBool:
		return data[0] != 0, nil
	case TypeUint8:
		return uint64(data[0]), nil
	case TypeInt8:
		return int64(int8(data[0])), nil
	case TypeUint16:
		return uint64(binary.LittleEndian.Uint16(data)), nil
	case TypeInt16:
		return int64(int16(binary.LittleEndian.Uint16(data))), nil
	case TypeUint32, TypeError:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	case TypeInt32:
		return int64(int32(binary.LittleEndian.Uint32(data))), nil
	case TypeInt64:
		return int64(binary.LittleEndian.Uint64(data)), nil
	case TypeFixed88:
		raw := int16(binary.LittleEndian.Uint16(data))
		return float64(raw) / 256, nil
	case TypeTime:
		// The unit reports either 4 or 8 byte timestamps depending on
		// firmware generation.
		var secs int64
		if len(data) >= 8 {
			secs = int64(binary.LittleEndian.Uint64(data))
		} else {
			secs = int64(binary.LittleEndian.Uint32(data))
		}
		return timeBase.Add(time.Duration(secs) * time.Second), nil
	case TypeString:
		for i, c := range data {
			if c == 0 {
				return string(data[:i]), nil
			}
		}
		return string(data), nil
	case TypeBytes:
		return data, nil
	default:
		return nil, ErrTypeMismatch
	}
}

// DecodeSample parses a process data sample into its numeric value
// before scaling. Bool maps to 0/1, fixed8.8 divides by 256, time and
// error report the raw counter.
func DecodeSample(data []byte, t DataType) (float64, error) {
	if size := t.Size(); size == 0 || len(data) < size {
		return 0, fmt.Errorf("%w: %s sample of %d bytes", ErrDecode, t, len(data))
	}
	switch t {
	case TypeBool:
		if data[0] != 0 {
			return 1, nil
		}
		return 0, nil
	case TypeUint8:
		return float64(data[0]), nil
	case TypeInt8:
		return float64(int8(data[0])), nil
	case TypeUint16:
		return float64(binary.LittleEndian.Uint16(data)), nil
	case TypeInt16:
		return float64(int16(binary.LittleEndian.Uint16(data))), nil
	case TypeUint32, TypeTime, TypeError:
		return float64(binary.LittleEndian.Uint32(data)), nil
	case TypeInt32:
		return float64(int32(binary.LittleEndian.Uint32(data))), nil
	case TypeInt64:
		return float64(int64(binary.LittleEndian.Uint64(data))), nil
	case TypeFixed88:
		return float64(int16(binary.LittleEndian.Uint16(data))) / 256, nil
	default:
		return 0, ErrTypeMismatch
	}
}

// EncodeArray serializes an array property: element count followed by
// the elements, each encoded per the element type.
func EncodeArray(values []any, elem DataType) ([]byte, error) {
	if len(values) > 255 {
		return nil, ErrValueRange
	}
	out := []byte{byte(len(values))}
	for _, v := range values {
		data, err := EncodeValue(v, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// DecodeArray parses an array property into its elements.
func DecodeArray(data []byte, elem DataType) ([]any, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: missing array count", ErrDecode)
	}
	count := int(data[0])
	size := elem.Size()
	if size == 0 {
		return nil, ErrTypeMismatch
	}
	data = data[1:]
	if len(data) < count*size {
		return nil, fmt.Errorf("%w: array of %d %s elements in %d bytes", ErrDecode, count, elem, len(data))
	}
	out := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := DecodeValue(data[i*size:(i+1)*size], elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, ErrValueRange
		}
		return int64(n), nil
	default:
		return 0, ErrTypeMismatch
	}
}

func checkRange(n int64, t DataType) error {
	var lo, hi int64
	switch t {
	case TypeUint8:
		lo, hi = 0, math.MaxUint8
	case TypeInt8:
		lo, hi = math.MinInt8, math.MaxInt8
	case TypeUint16:
		lo, hi = 0, math.MaxUint16
	case TypeInt16:
		lo, hi = math.MinInt16, math.MaxInt16
	case TypeUint32, TypeError:
		lo, hi = 0, math.MaxUint32
	case TypeInt32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return nil
	}
	if n < lo || n > hi {
		return ErrValueRange
	}
	return nil
}
