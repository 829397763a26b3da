package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// UUIDSize is the size of application and bridge identifiers.
const UUIDSize = 16

var (
	ErrMalformed = errors.New("malformed protobuf message")
	ErrBadUUID   = errors.New("uuid field must be 16 bytes")
)

// Envelope is the outer message exchanged with the bridge. Src and Dst
// carry the application and bridge uuids, Operation selects the type of
// the Payload bytes and Reference correlates requests with replies.
// Result and ResultDescription are only meaningful on confirms.
type Envelope struct {
	Src               [UUIDSize]byte
	Dst               [UUIDSize]byte
	Operation         Operation
	Reference         uint32
	Result            Result
	ResultDescription string
	Payload           []byte
}

// Envelope protobuf field numbers
const (
	envFieldSrc               = 1
	envFieldDst               = 2
	envFieldOperation         = 3
	envFieldReference         = 4
	envFieldResult            = 5
	envFieldResultDescription = 6
)

// MarshalEnvelope encodes the envelope section only. The payload is
// carried in its own length-prefixed section by the framer.
func MarshalEnvelope(env *Envelope) []byte {
	b := make([]byte, 0, 64)
	b = protowire.AppendTag(b, envFieldSrc, protowire.BytesType)
	b = protowire.AppendBytes(b, env.Src[:])
	b = protowire.AppendTag(b, envFieldDst, protowire.BytesType)
	b = protowire.AppendBytes(b, env.Dst[:])
	b = protowire.AppendTag(b, envFieldOperation, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Operation))
	if env.Reference != 0 {
		b = protowire.AppendTag(b, envFieldReference, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(env.Reference))
	}
	if env.Result != ResultOk {
		b = protowire.AppendTag(b, envFieldResult, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(env.Result))
	}
	if env.ResultDescription != "" {
		b = protowire.AppendTag(b, envFieldResultDescription, protowire.BytesType)
		b = protowire.AppendString(b, env.ResultDescription)
	}
	return b
}

// UnmarshalEnvelope decodes the envelope section. The payload section
// is attached separately by the framer.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case envFieldSrc, envFieldDst:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			if len(v) != UUIDSize {
				return nil, ErrBadUUID
			}
			if num == envFieldSrc {
				copy(env.Src[:], v)
			} else {
				copy(env.Dst[:], v)
			}
			data = data[n:]
		case envFieldOperation:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			env.Operation = Operation(v)
			data = data[n:]
		case envFieldReference:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			env.Reference = uint32(v)
			data = data[n:]
		case envFieldResult:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			env.Result = Result(v)
			data = data[n:]
		case envFieldResultDescription:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			env.ResultDescription = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return env, nil
}

// consume helpers shared by the inner message parsers

func consumeVarint(data []byte) (uint64, []byte, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	return v, data[n:], nil
}

func consumeBytes(data []byte) ([]byte, []byte, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, data[n:], nil
}

func consumeString(data []byte) (string, []byte, error) {
	v, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	return v, data[n:], nil
}

func skipField(num protowire.Number, typ protowire.Type, data []byte) ([]byte, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	return data[n:], nil
}
