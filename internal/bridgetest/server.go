// Package bridgetest runs an in-process fake bridge speaking the real
// frame layout over TCP, for session and client tests.
package bridgetest

import (
	"net"
	"sync"

	"github.com/comfohome/comfoconnect/pkg/protocol"
)

// Handler produces the replies for one received envelope. Returning
// nil leaves the request unanswered.
type Handler func(env *protocol.Envelope) []*protocol.Envelope

// Server is a scripted bridge. Handlers run on the connection's read
// loop, in arrival order. By default session start, close and keepalive
// behave like a healthy bridge.
type Server struct {
	Uuid [protocol.UUIDSize]byte

	ln net.Listener

	mu       sync.Mutex
	handlers map[protocol.Operation]Handler
	received []*protocol.Envelope
	framer   *protocol.Framer
	conn     net.Conn
	wg       sync.WaitGroup
}

// Start listens on an ephemeral localhost port and serves connections
// until Close.
func Start() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:       ln,
		handlers: map[protocol.Operation]Handler{},
	}
	copy(s.Uuid[:], []byte("fake-bridge-0001"))
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns host:port for dialing.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// On installs the handler for an operation, replacing any default.
func (s *Server) On(op protocol.Operation, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[op] = h
}

// Received returns a snapshot of every envelope seen so far, in
// arrival order.
func (s *Server) Received() []*protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*protocol.Envelope, len(s.received))
	copy(out, s.received)
	return out
}

// Reply builds a confirm for a request: addressing mirrored, reference
// echoed, operation set to the request's expected reply.
func (s *Server) Reply(req *protocol.Envelope, result protocol.Result, payload []byte) *protocol.Envelope {
	reply, _ := req.Operation.Reply()
	return &protocol.Envelope{
		Src:       s.Uuid,
		Dst:       req.Src,
		Operation: reply,
		Reference: req.Reference,
		Result:    result,
		Payload:   payload,
	}
}

// Push sends an unsolicited envelope on the active connection.
func (s *Server) Push(env *protocol.Envelope) error {
	s.mu.Lock()
	framer := s.framer
	s.mu.Unlock()
	if framer == nil {
		return net.ErrClosed
	}
	return framer.Write(env)
}

// Notify pushes a process data notification.
func (s *Server) Notify(dst [protocol.UUIDSize]byte, pdid uint16, data []byte) error {
	notif := &protocol.CnRpdoNotification{Pdid: uint32(pdid), Data: data}
	return s.Push(&protocol.Envelope{
		Src:       s.Uuid,
		Dst:       dst,
		Operation: protocol.OpCnRpdoNotification,
		Payload:   notif.Marshal(),
	})
}

// DropConnection closes the active connection without a close
// notification, as a crashing bridge would.
func (s *Server) DropConnection() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Close stops the server and any active connection.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.DropConnection()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.conn = conn
		s.framer = protocol.NewFramer(conn)
		framer := s.framer
		s.mu.Unlock()
		s.serve(framer)
	}
}

func (s *Server) serve(framer *protocol.Framer) {
	for {
		env, err := framer.Read()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, env)
		handler := s.handlers[env.Operation]
		s.mu.Unlock()

		var replies []*protocol.Envelope
		if handler != nil {
			replies = handler(env)
		} else {
			replies = s.defaultReplies(env)
		}
		for _, reply := range replies {
			if err := framer.Write(reply); err != nil {
				return
			}
		}
	}
}

// defaultReplies answers like a healthy bridge that knows the app.
func (s *Server) defaultReplies(env *protocol.Envelope) []*protocol.Envelope {
	switch env.Operation {
	case protocol.OpKeepAlive:
		return nil
	default:
		if _, ok := env.Operation.Reply(); ok {
			return []*protocol.Envelope{s.Reply(env, protocol.ResultOk, nil)}
		}
		return nil
	}
}
