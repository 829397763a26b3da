package sensors

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/comfohome/comfoconnect/pkg/rmi"
)

// DefaultZone is the PDO zone selector; always 1 on this appliance
// family.
const DefaultZone = 1

// Subscription timeouts understood by the bridge: -1 keeps the RPDO
// alive until cancelled, 0 cancels it.
const (
	SubscribeIndefinite int32 = -1
	SubscribeCancel     int32 = 0
)

// Callback receives decoded sensor updates.
type Callback func(Sensor, float64)

// RpdoRequester is the slice of the session the manager needs: issuing
// RPDO subscription requests towards the bridge.
type RpdoRequester interface {
	CmdRpdo(ctx context.Context, pdid uint16, zone uint8, typ rmi.DataType, timeout int32) error
}

type subscription struct {
	sensor    Sensor
	nextId    uint64
	callbacks map[uint64]Callback
	order     []uint64
}

// Manager tracks which process data objects the session is subscribed
// to and fans decoded samples out to the registered callbacks. The
// bridge sees at most one subscription per pdo id regardless of the
// local subscriber count.
type Manager struct {
	mu      sync.Mutex
	session RpdoRequester
	subs    map[uint16]*subscription
	closed  bool
}

func NewManager(session RpdoRequester) *Manager {
	return &Manager{
		session: session,
		subs:    map[uint16]*subscription{},
	}
}

// Register subscribes a callback to a sensor. The first registration
// for a pdo id triggers the bridge side subscription; later ones only
// join the local set. The returned cancel function removes this
// callback and, for the last one, cancels at the bridge.
func (m *Manager) Register(ctx context.Context, sensor Sensor, cb Callback) (func() error, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	sub, ok := m.subs[sensor.Id]
	first := !ok
	if first {
		sub = &subscription{sensor: sensor, callbacks: map[uint64]Callback{}}
		m.subs[sensor.Id] = sub
	}
	sub.nextId++
	id := sub.nextId
	sub.callbacks[id] = cb
	sub.order = append(sub.order, id)
	m.mu.Unlock()

	if first {
		zone := sensor.Zone
		if zone == 0 {
			zone = DefaultZone
		}
		if err := m.session.CmdRpdo(ctx, sensor.Id, zone, sensor.Type, SubscribeIndefinite); err != nil {
			m.mu.Lock()
			delete(m.subs, sensor.Id)
			m.mu.Unlock()
			return nil, err
		}
	}

	cancel := func() error {
		return m.remove(context.Background(), sensor.Id, id)
	}
	return cancel, nil
}

// Deregister drops every callback of a sensor and cancels the bridge
// side subscription. Idempotent.
func (m *Manager) Deregister(ctx context.Context, sensor Sensor) error {
	m.mu.Lock()
	_, ok := m.subs[sensor.Id]
	if ok {
		delete(m.subs, sensor.Id)
	}
	closed := m.closed
	m.mu.Unlock()
	if !ok || closed {
		return nil
	}
	zone := sensor.Zone
	if zone == 0 {
		zone = DefaultZone
	}
	return m.session.CmdRpdo(ctx, sensor.Id, zone, sensor.Type, SubscribeCancel)
}

func (m *Manager) remove(ctx context.Context, pdid uint16, id uint64) error {
	m.mu.Lock()
	sub, ok := m.subs[pdid]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if _, ok := sub.callbacks[id]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(sub.callbacks, id)
	for i, v := range sub.order {
		if v == id {
			sub.order = append(sub.order[:i], sub.order[i+1:]...)
			break
		}
	}
	last := len(sub.callbacks) == 0
	if last {
		delete(m.subs, pdid)
	}
	closed := m.closed
	m.mu.Unlock()

	if !last || closed {
		return nil
	}
	zone := sub.sensor.Zone
	if zone == 0 {
		zone = DefaultZone
	}
	return m.session.CmdRpdo(ctx, pdid, zone, sub.sensor.Type, SubscribeCancel)
}

// Handle decodes an incoming process data sample and delivers it.
// Callbacks run outside the manager lock so a callback may register or
// deregister sensors without deadlocking. Called from the session read
// loop, which preserves per pdo arrival order.
func (m *Manager) Handle(pdid uint16, data []byte) {
	m.mu.Lock()
	sub, ok := m.subs[pdid]
	if !ok || m.closed {
		m.mu.Unlock()
		log.Debugf("dropping sample for unsubscribed pdo %d", pdid)
		return
	}
	sensor := sub.sensor
	callbacks := make([]Callback, 0, len(sub.order))
	for _, id := range sub.order {
		callbacks = append(callbacks, sub.callbacks[id])
	}
	m.mu.Unlock()

	raw, err := rmi.DecodeSample(data, sensor.Type)
	if err != nil {
		log.Warnf("dropping sample for pdo %d: %v", pdid, err)
		return
	}
	value := raw * sensor.Scale
	for _, cb := range callbacks {
		cb(sensor, value)
	}
}

// Close drops all subscriptions without talking to the bridge; the
// session is gone. No callback fires after Close returns.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = map[uint16]*subscription{}
}
