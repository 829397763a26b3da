// Package bridge implements the command session with a ComfoConnect
// LAN C bridge: a full duplex, length prefixed, protobuf framed TCP
// connection multiplexing request/response commands, asynchronous
// process data notifications and periodic keepalives.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/comfohome/comfoconnect/pkg/protocol"
)

// Port is the TCP port of the bridge command interface.
const Port = 56747

// Default deadlines. The handshake deadline is load bearing: a bridge
// that silently refuses registration would otherwise hang Connect
// forever.
const (
	DefaultHandshakeTimeout  = 5 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultCloseTimeout      = 2 * time.Second
	DefaultKeepaliveInterval = 60 * time.Second

	// A bridge silent for this many keepalive intervals is dead.
	keepaliveMissLimit = 3
)

// State of the session lifecycle.
type State uint32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingStart
	StateRegistering
	StateSessionOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateAwaitingStart:
		return "AwaitingStart"
	case StateRegistering:
		return "Registering"
	case StateSessionOpen:
		return "SessionOpen"
	case StateClosing:
		return "Closing"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// NotificationSink receives the unsolicited notifications a session
// may emit. Implementations must not block for long; they run on the
// session read loop.
type NotificationSink interface {
	OnAlarm(*protocol.CnAlarmNotification)
	OnGateway(*protocol.GatewayNotification)
}

// RpdoHandler receives raw process data samples.
type RpdoHandler func(pdid uint16, data []byte)

type pending struct {
	reference uint32
	expect    protocol.Operation
	async     bool
	resolved  bool
	done      chan struct{}
	env       *protocol.Envelope
	err       error
}

// Bridge is a session with one ComfoConnect LAN C bridge. A zero
// Bridge is not usable; create one with NewBridge. All methods are
// safe for concurrent use.
type Bridge struct {
	host       string
	uuid       [protocol.UUIDSize]byte
	deviceName string

	handshakeTimeout  time.Duration
	requestTimeout    time.Duration
	closeTimeout      time.Duration
	keepaliveInterval time.Duration

	// sendMu orders reference allocation with wire writes, so requests
	// hit the wire in reference order.
	sendMu sync.Mutex

	mu        sync.Mutex
	state     State
	conn      net.Conn
	framer    *protocol.Framer
	localUuid [protocol.UUIDSize]byte
	reference uint32
	pending   map[uint32]*pending

	rpdoHandler RpdoHandler
	sink        NotificationSink

	readDone      chan struct{}
	keepaliveStop chan struct{}
	lastRx        atomic.Int64
}

// NewBridge creates a session for the bridge at host with the given
// bridge uuid, as obtained from discovery.
func NewBridge(host string, uuid [protocol.UUIDSize]byte) *Bridge {
	return &Bridge{
		host:              host,
		uuid:              uuid,
		deviceName:        "comfoconnect-go",
		handshakeTimeout:  DefaultHandshakeTimeout,
		requestTimeout:    DefaultRequestTimeout,
		closeTimeout:      DefaultCloseTimeout,
		keepaliveInterval: DefaultKeepaliveInterval,
	}
}

// Host returns the bridge address.
func (b *Bridge) Host() string { return b.host }

// Uuid returns the bridge uuid.
func (b *Bridge) Uuid() [protocol.UUIDSize]byte { return b.uuid }

// State returns the current session state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetDeviceName sets the name the bridge displays for this app when
// registering. Must be called before Connect.
func (b *Bridge) SetDeviceName(name string) { b.deviceName = name }

// SetRequestTimeout overrides the default per request deadline.
func (b *Bridge) SetRequestTimeout(d time.Duration) { b.requestTimeout = d }

// SetKeepaliveInterval overrides the keepalive period. Must be called
// before Connect.
func (b *Bridge) SetKeepaliveInterval(d time.Duration) { b.keepaliveInterval = d }

// SetRpdoHandler installs the receiver for process data samples. Must
// be called before Connect.
func (b *Bridge) SetRpdoHandler(h RpdoHandler) { b.rpdoHandler = h }

// SetNotificationSink installs an optional receiver for alarm and
// gateway notifications. Must be called before Connect.
func (b *Bridge) SetNotificationSink(sink NotificationSink) { b.sink = sink }

// Connect dials the bridge and runs the registration and session
// start handshake. When the bridge does not know the local uuid and a
// pin is given, the app is registered first; without a pin Connect
// fails with ErrNotRegistered. Every handshake request is bounded by
// the handshake deadline.
func (b *Bridge) Connect(ctx context.Context, localUuid [protocol.UUIDSize]byte, pin *uint32) error {
	b.mu.Lock()
	if b.state != StateDisconnected {
		b.mu.Unlock()
		return ErrAlreadyConnected
	}
	b.state = StateConnecting
	b.mu.Unlock()

	addr := b.host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprintf("%d", Port))
	}
	dialer := net.Dialer{Timeout: b.handshakeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		b.mu.Lock()
		b.state = StateDisconnected
		b.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNotReachable, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	b.mu.Lock()
	b.conn = conn
	b.framer = protocol.NewFramer(conn)
	b.localUuid = localUuid
	b.reference = 0
	b.pending = map[uint32]*pending{}
	b.readDone = make(chan struct{})
	b.keepaliveStop = make(chan struct{})
	b.state = StateAwaitingStart
	b.mu.Unlock()
	b.lastRx.Store(time.Now().UnixNano())

	go b.readLoop(b.framer, b.readDone)

	if err := b.handshake(ctx, pin); err != nil {
		b.teardown(err)
		<-b.readDone
		return err
	}

	b.mu.Lock()
	if b.state != StateAwaitingStart {
		// Torn down between the confirm and here.
		b.mu.Unlock()
		<-b.readDone
		return ErrSessionClosed
	}
	b.state = StateSessionOpen
	b.mu.Unlock()
	go b.keepaliveLoop()
	log.Debugf("session open with bridge %x at %s", b.uuid, b.host)
	return nil
}

func (b *Bridge) handshake(ctx context.Context, pin *uint32) error {
	registered := false
	for {
		req := &protocol.StartSessionRequest{Takeover: true}
		env, err := b.request(ctx, protocol.OpStartSessionRequest, req.Marshal(), b.handshakeTimeout)
		if err != nil {
			return err
		}
		switch env.Result {
		case protocol.ResultOk:
			return nil
		case protocol.ResultNotAllowed:
			if pin == nil {
				return ErrNotRegistered
			}
			if registered {
				// Registration succeeded but the session is still
				// refused; do not loop forever.
				return &RequestError{Operation: protocol.OpStartSessionRequest, Result: env.Result, Reason: env.ResultDescription}
			}
			if err := b.register(ctx, *pin); err != nil {
				return err
			}
			registered = true
		default:
			return &RequestError{Operation: protocol.OpStartSessionRequest, Result: env.Result, Reason: env.ResultDescription}
		}
	}
}

func (b *Bridge) register(ctx context.Context, pin uint32) error {
	b.mu.Lock()
	b.state = StateRegistering
	localUuid := b.localUuid
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		if b.state == StateRegistering {
			b.state = StateAwaitingStart
		}
		b.mu.Unlock()
	}()

	req := &protocol.RegisterAppRequest{
		Uuid:       localUuid[:],
		Pin:        pin,
		DeviceName: b.deviceName,
	}
	env, err := b.request(ctx, protocol.OpRegisterAppRequest, req.Marshal(), b.handshakeTimeout)
	if err != nil {
		return err
	}
	switch env.Result {
	case protocol.ResultOk:
		return nil
	case protocol.ResultNotAllowed:
		return ErrBadPin
	default:
		return &RequestError{Operation: protocol.OpRegisterAppRequest, Result: env.Result, Reason: env.ResultDescription}
	}
}

// Disconnect closes the session. A close request is sent and awaited
// briefly, then the transport is released unconditionally. All pending
// requests resolve with ErrSessionClosed before Disconnect returns.
// Calling Disconnect on a disconnected session is a no-op.
func (b *Bridge) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	state := b.state
	readDone := b.readDone
	b.mu.Unlock()
	if state == StateDisconnected {
		return nil
	}

	if state == StateSessionOpen {
		// Best effort: the bridge may already be gone.
		_, err := b.request(ctx, protocol.OpCloseSessionRequest, nil, b.closeTimeout)
		if err != nil {
			log.Debugf("close session request: %v", err)
		}
	}
	b.teardown(ErrSessionClosed)
	if readDone != nil {
		<-readDone
	}
	return nil
}

// request allocates a reference, registers the pending slot, writes
// the envelope and waits for the correlated reply, the deadline or the
// caller's context, whichever comes first.
func (b *Bridge) request(ctx context.Context, op protocol.Operation, payload []byte, timeout time.Duration) (*protocol.Envelope, error) {
	expect, ok := op.Reply()
	if !ok {
		return nil, fmt.Errorf("%w: %v expects no reply", ErrProtocolViolation, op)
	}
	if timeout <= 0 {
		timeout = b.requestTimeout
	}

	b.sendMu.Lock()
	b.mu.Lock()
	if b.conn == nil || b.state == StateDisconnected || b.state == StateClosing {
		b.mu.Unlock()
		b.sendMu.Unlock()
		return nil, ErrSessionClosed
	}
	b.reference++
	ref := b.reference
	p := &pending{
		reference: ref,
		expect:    expect,
		async:     op == protocol.OpCnRmiAsyncRequest,
		done:      make(chan struct{}),
	}
	b.pending[ref] = p
	framer := b.framer
	env := &protocol.Envelope{
		Src:       b.localUuid,
		Dst:       b.uuid,
		Operation: op,
		Reference: ref,
		Payload:   payload,
	}
	b.mu.Unlock()

	err := framer.Write(env)
	b.sendMu.Unlock()
	if err != nil {
		b.dropPending(ref)
		b.teardown(fmt.Errorf("%w: write: %v", ErrSessionClosed, err))
		return nil, fmt.Errorf("%w: write: %v", ErrSessionClosed, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return p.env, p.err
	case <-timer.C:
		b.dropPending(ref)
		return nil, fmt.Errorf("%w: %v ref=%d", ErrTimeout, op, ref)
	case <-ctx.Done():
		b.dropPending(ref)
		// A caller supplied deadline is still a timeout for the error
		// taxonomy; only genuine cancellation passes through raw.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// rpc is request for public commands: only valid on an open session.
func (b *Bridge) rpc(ctx context.Context, op protocol.Operation, payload []byte) (*protocol.Envelope, error) {
	b.mu.Lock()
	open := b.state == StateSessionOpen
	b.mu.Unlock()
	if !open {
		return nil, ErrNotOpen
	}
	return b.request(ctx, op, payload, b.requestTimeout)
}

// send writes a fire and forget envelope.
func (b *Bridge) send(op protocol.Operation, payload []byte) error {
	b.mu.Lock()
	framer := b.framer
	if framer == nil {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	env := &protocol.Envelope{
		Src:       b.localUuid,
		Dst:       b.uuid,
		Operation: op,
		Payload:   payload,
	}
	b.mu.Unlock()
	return framer.Write(env)
}

// dropPending removes a slot the caller no longer waits on. A late
// reply for it is discarded by the read loop.
func (b *Bridge) dropPending(ref uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pending[ref]; ok && !p.resolved {
		delete(b.pending, ref)
	}
}

// resolve completes a slot exactly once. Caller must hold b.mu.
func (b *Bridge) resolve(p *pending, env *protocol.Envelope, err error) {
	if p.resolved {
		return
	}
	p.resolved = true
	p.env = env
	p.err = err
	delete(b.pending, p.reference)
	close(p.done)
}

func (b *Bridge) readLoop(framer *protocol.Framer, done chan struct{}) {
	defer close(done)
	for {
		env, err := framer.Read()
		if err != nil {
			if err != io.EOF {
				log.Debugf("read loop: %v", err)
			}
			b.teardown(ErrSessionClosed)
			return
		}
		b.lastRx.Store(time.Now().UnixNano())
		b.dispatch(env)
	}
}

func (b *Bridge) dispatch(env *protocol.Envelope) {
	switch env.Operation {
	case protocol.OpKeepAlive:
		// Activity already recorded.

	case protocol.OpCnRpdoNotification:
		notif, err := protocol.UnmarshalCnRpdoNotification(env.Payload)
		if err != nil {
			log.Warnf("dropping malformed rpdo notification: %v", err)
			return
		}
		if b.rpdoHandler != nil {
			b.rpdoHandler(uint16(notif.Pdid), notif.Data)
		}

	case protocol.OpCnAlarmNotification:
		notif, err := protocol.UnmarshalCnAlarmNotification(env.Payload)
		if err != nil {
			log.Warnf("dropping malformed alarm notification: %v", err)
			return
		}
		log.Warnf("alarm from unit %s zone %d", notif.SerialNumber, notif.Zone)
		if b.sink != nil {
			b.sink.OnAlarm(notif)
		}

	case protocol.OpGatewayNotification:
		notif, err := protocol.UnmarshalGatewayNotification(env.Payload)
		if err != nil {
			log.Warnf("dropping malformed gateway notification: %v", err)
			return
		}
		if b.sink != nil {
			b.sink.OnGateway(notif)
		}

	case protocol.OpCnNodeNotification:
		log.Debugf("node notification, %d bytes", len(env.Payload))

	case protocol.OpCloseSessionRequest, protocol.OpCloseSessionNotification:
		log.Debugf("bridge requested session close")
		b.teardown(ErrSessionClosed)

	default:
		b.dispatchReply(env)
	}
}

// dispatchReply routes a correlated reply to its pending slot. Replies
// for unknown references are logged and discarded.
func (b *Bridge) dispatchReply(env *protocol.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[env.Reference]
	if !ok {
		log.Warnf("discarding %v for unknown reference %d", env.Operation, env.Reference)
		return
	}
	if env.Operation != p.expect {
		b.resolve(p, nil, fmt.Errorf("%w: expected %v for ref=%d, got %v", ErrProtocolViolation, p.expect, p.reference, env.Operation))
		return
	}
	// An async RMI resolves on the async response; the confirm only
	// acknowledges acceptance.
	if p.async && env.Operation == protocol.OpCnRmiAsyncConfirm {
		if env.Result != protocol.ResultOk {
			b.resolve(p, env, nil)
			return
		}
		p.expect = protocol.OpCnRmiAsyncResponse
		return
	}
	b.resolve(p, env, nil)
}

func (b *Bridge) keepaliveLoop() {
	b.mu.Lock()
	stop := b.keepaliveStop
	b.mu.Unlock()
	if stop == nil {
		return
	}
	ticker := time.NewTicker(b.keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			silence := time.Since(time.Unix(0, b.lastRx.Load()))
			if silence > time.Duration(keepaliveMissLimit)*b.keepaliveInterval {
				log.Errorf("bridge silent for %v, closing session", silence.Round(time.Second))
				b.teardown(ErrSessionClosed)
				return
			}
			if err := b.send(protocol.OpKeepAlive, nil); err != nil {
				log.Errorf("keepalive send failed: %v", err)
				b.teardown(ErrSessionClosed)
				return
			}
		}
	}
}

// teardown moves the session to Disconnected: pending requests resolve
// with the cause, the keepalive stops and the transport is released.
// Safe to call from any goroutine and idempotent.
func (b *Bridge) teardown(cause error) {
	b.mu.Lock()
	if b.state == StateDisconnected {
		b.mu.Unlock()
		return
	}
	b.state = StateClosing
	for _, p := range b.pending {
		b.resolve(p, nil, cause)
	}
	conn := b.conn
	b.conn = nil
	b.framer = nil
	if b.keepaliveStop != nil {
		close(b.keepaliveStop)
		b.keepaliveStop = nil
	}
	b.state = StateDisconnected
	b.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}
