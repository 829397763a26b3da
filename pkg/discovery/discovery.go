// Package discovery locates ComfoConnect LAN C bridges on the local
// network segments via UDP broadcast.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/comfohome/comfoconnect/pkg/protocol"
)

// Port is the UDP and TCP port the bridge listens on.
const Port = 56747

// DefaultTimeout bounds the wait for discovery replies.
const DefaultTimeout = 5 * time.Second

// probe is the fixed search message the bridge answers to.
var probe = []byte{0x0a, 0x00}

var ErrNoInterfaces = errors.New("no broadcast capable interfaces found")

// Bridge is a discovered appliance endpoint.
type Bridge struct {
	Host    string
	Uuid    [protocol.UUIDSize]byte
	Version uint32
}

// Discover probes every non-loopback IPv4 interface with the bridge
// search message and collects replies until the timeout elapses. The
// directed broadcast of each interface is used rather than the global
// broadcast address, which multi-homed hosts do not route reliably.
// Replies are deduplicated by bridge uuid. On timeout the bridges
// gathered so far are returned without error.
func Discover(ctx context.Context, timeout time.Duration) ([]Bridge, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	targets, err := broadcastAddrs()
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoInterfaces
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var soErr error
			err := c.Control(func(fd uintptr) {
				soErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if soErr != nil {
					return
				}
				soErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return soErr
		},
	}
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", Port))
	if err != nil {
		return nil, fmt.Errorf("discovery socket: %w", err)
	}
	defer conn.Close()

	for _, target := range targets {
		dst := &net.UDPAddr{IP: target, Port: Port}
		if _, err := conn.WriteTo(probe, dst); err != nil {
			log.Warnf("discovery probe to %v failed: %v", dst, err)
		}
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetReadDeadline(deadline)

	var bridges []Bridge
	seen := map[[protocol.UUIDSize]byte]bool{}
	buf := make([]byte, 1500)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return bridges, nil
			}
			return bridges, fmt.Errorf("discovery receive: %w", err)
		}
		bridge, ok := parseReply(buf[:n], addr)
		if !ok {
			continue
		}
		if seen[bridge.Uuid] {
			continue
		}
		seen[bridge.Uuid] = true
		log.Debugf("discovered bridge %s at %s (version %d)", formatUuid(bridge.Uuid), bridge.Host, bridge.Version)
		bridges = append(bridges, bridge)
	}
}

// parseReply validates one datagram. Our own probe and datagrams from
// other searching clients fail validation and are skipped. A valid
// reply is accepted whatever its source address; the payload names the
// bridge address authoritatively.
func parseReply(data []byte, addr net.Addr) (Bridge, bool) {
	reply, err := protocol.UnmarshalSearchGatewayResponse(data)
	if err != nil || len(reply.Uuid) != protocol.UUIDSize || reply.IPAddress == "" {
		return Bridge{}, false
	}
	if net.ParseIP(reply.IPAddress) == nil {
		log.Debugf("discovery reply from %v names invalid address %q", addr, reply.IPAddress)
		return Bridge{}, false
	}
	bridge := Bridge{Host: reply.IPAddress, Version: reply.Version}
	copy(bridge.Uuid[:], reply.Uuid)
	return bridge, true
}

// broadcastAddrs returns the directed broadcast address of every up,
// non-loopback, broadcast capable IPv4 interface.
func broadcastAddrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			mask := ipnet.Mask
			if len(mask) == net.IPv6len {
				mask = mask[12:]
			}
			bcast := make(net.IP, net.IPv4len)
			for i := 0; i < net.IPv4len; i++ {
				bcast[i] = ip4[i] | ^mask[i]
			}
			out = append(out, bcast)
		}
	}
	return out, nil
}

func formatUuid(uuid [protocol.UUIDSize]byte) string {
	return fmt.Sprintf("%x", uuid[:])
}
