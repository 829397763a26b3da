package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MaxFrameSize is the ceiling for a single length-prefixed section.
// The bridge never sends anything close to this; larger lengths mean
// the stream is out of sync.
const MaxFrameSize = 1 << 20

// minEnvelopeSize is the smallest valid envelope: two 16-byte uuid
// fields with their tags and lengths plus the operation field.
const minEnvelopeSize = 2*(2+UUIDSize) + 2

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrShortFrame    = errors.New("frame shorter than minimum envelope")
)

// Framer converts between the TCP byte stream and discrete envelopes.
// Each message on the wire is two back to back length-prefixed
// sections: a big-endian uint32 envelope length followed by the
// envelope protobuf, then a big-endian uint32 payload length followed
// by the operation payload. Writes serialize through an internal lock
// so concurrent senders cannot interleave sections; reads are expected
// from a single reader loop.
type Framer struct {
	wmu sync.Mutex
	r   *bufio.Reader
	w   io.Writer
}

func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		r: bufio.NewReaderSize(rw, 4096),
		w: rw,
	}
}

func (f *Framer) readSection(min int) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(f.r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	if int(length) < min {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, length)
	}
	section := make([]byte, length)
	if _, err := io.ReadFull(f.r, section); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return section, nil
}

// Read blocks for the next complete message. io.EOF is returned only
// on a clean close between messages; a close mid-message surfaces as
// io.ErrUnexpectedEOF.
func (f *Framer) Read() (*Envelope, error) {
	section, err := f.readSection(minEnvelopeSize)
	if err != nil {
		return nil, err
	}
	env, err := UnmarshalEnvelope(section)
	if err != nil {
		return nil, err
	}
	payload, err := f.readSection(0)
	if err != nil {
		return nil, err
	}
	env.Payload = payload
	log.Debugf("[RX] %v ref=%d payload=%d bytes", env.Operation, env.Reference, len(payload))
	return env, nil
}

// Write emits the envelope and payload sections atomically with
// respect to other Write calls on the same framer.
func (f *Framer) Write(env *Envelope) error {
	section := MarshalEnvelope(env)
	buf := make([]byte, 0, 8+len(section)+len(env.Payload))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(section)))
	buf = append(buf, section...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(env.Payload)))
	buf = append(buf, env.Payload...)

	f.wmu.Lock()
	defer f.wmu.Unlock()
	log.Debugf("[TX] %v ref=%d payload=%d bytes", env.Operation, env.Reference, len(env.Payload))
	_, err := f.w.Write(buf)
	return err
}
