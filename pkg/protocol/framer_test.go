package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope(ref uint32) *Envelope {
	env := &Envelope{
		Operation: OpCnRmiRequest,
		Reference: ref,
		Payload:   []byte{0x84, 0x15, 0x01, 0x01},
	}
	copy(env.Src[:], bytes.Repeat([]byte{0xAA}, UUIDSize))
	copy(env.Dst[:], bytes.Repeat([]byte{0xBB}, UUIDSize))
	return env
}

func TestFramerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	framer := NewFramer(&buf)

	sent := testEnvelope(7)
	require.Nil(t, framer.Write(sent))

	got, err := framer.Read()
	require.Nil(t, err)
	assert.Equal(t, sent.Src, got.Src)
	assert.Equal(t, sent.Dst, got.Dst)
	assert.Equal(t, sent.Operation, got.Operation)
	assert.Equal(t, sent.Reference, got.Reference)
	assert.Equal(t, sent.Payload, got.Payload)
}

func TestFramerWireLayout(t *testing.T) {
	var buf bytes.Buffer
	framer := NewFramer(&buf)
	require.Nil(t, framer.Write(testEnvelope(1)))

	raw := buf.Bytes()
	envLen := binary.BigEndian.Uint32(raw[:4])
	assert.Greater(t, int(envLen), minEnvelopeSize-1)
	payloadOffset := 4 + int(envLen)
	payloadLen := binary.BigEndian.Uint32(raw[payloadOffset : payloadOffset+4])
	assert.Equal(t, uint32(4), payloadLen)
	assert.Equal(t, []byte{0x84, 0x15, 0x01, 0x01}, raw[payloadOffset+4:])
	assert.Len(t, raw, payloadOffset+4+int(payloadLen))
}

func TestFramerRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], MaxFrameSize+1)
	buf.Write(header[:])

	framer := NewFramer(&buf)
	_, err := framer.Read()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFramerRejectsShortEnvelope(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 3)
	buf.Write(header[:])
	buf.Write([]byte{1, 2, 3})

	framer := NewFramer(&buf)
	_, err := framer.Read()
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestFramerPeerClose(t *testing.T) {
	t.Run("between messages", func(t *testing.T) {
		var buf bytes.Buffer
		framer := NewFramer(&buf)
		_, err := framer.Read()
		assert.Equal(t, io.EOF, err)
	})
	t.Run("mid message", func(t *testing.T) {
		var buf bytes.Buffer
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], 64)
		buf.Write(header[:])
		buf.Write([]byte{1, 2, 3})
		framer := NewFramer(&buf)
		_, err := framer.Read()
		assert.Equal(t, io.ErrUnexpectedEOF, err)
	})
}

// lockedWriter records whether two writes ever interleaved.
type lockedWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	active bool
	torn   bool
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	if w.active {
		w.torn = true
	}
	w.active = true
	w.mu.Unlock()

	n, err := w.buf.Write(p)

	w.mu.Lock()
	w.active = false
	w.mu.Unlock()
	return n, err
}

func (w *lockedWriter) Read(p []byte) (int, error) { return w.buf.Read(p) }

func TestFramerSerializesConcurrentWrites(t *testing.T) {
	w := &lockedWriter{}
	framer := NewFramer(w)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(ref uint32) {
			defer wg.Done()
			assert.Nil(t, framer.Write(testEnvelope(ref)))
		}(uint32(i + 1))
	}
	wg.Wait()
	assert.False(t, w.torn)

	reader := NewFramer(w)
	for i := 0; i < 16; i++ {
		_, err := reader.Read()
		require.Nil(t, err)
	}
}
