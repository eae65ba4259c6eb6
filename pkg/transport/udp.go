package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/logging"
)

// maxDatagramSize is comfortably under typical local-network MTU;
// spec §6 notes IHAVE (the largest payload) is bounded by
// ihave_max_ids, which in practice stays well under this.
const maxDatagramSize = 16 * 1024

// UDPTransport binds one UDP endpoint on 0.0.0.0:port, matching spec
// §6's transport requirement exactly. Grounded on the teacher's
// network.NewP2PNetwork constructor shape (bind, log, spawn a receive
// goroutine) adapted from libp2p host construction to a bare UDP
// socket, since the protocol here is a flat datagram exchange rather
// than a multiplexed stream host.
type UDPTransport struct {
	conn    *net.UDPConn
	log     *logging.Logger
	packets chan Packet

	closeOnce sync.Once
	closed    chan struct{}
}

// Listen binds a UDP socket on 0.0.0.0:port and starts its receive
// loop. The receive loop is the sole suspension point permitted to
// yield on "waiting for a datagram" (spec §5).
func Listen(port int, log *logging.Logger) (*UDPTransport, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind 0.0.0.0:%d: %w", port, err)
	}

	t := &UDPTransport{
		conn:    conn,
		log:     log,
		packets: make(chan Packet, 256),
		closed:  make(chan struct{}),
	}
	go t.receiveLoop()
	return t, nil
}

func (t *UDPTransport) receiveLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.closed:
				close(t.packets)
				return
			default:
			}
			if t.log != nil {
				t.log.WithField("error", err.Error()).Warn("udp read error")
			}
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case t.packets <- Packet{Data: data, Addr: addr.String()}:
		case <-t.closed:
			close(t.packets)
			return
		}
	}
}

func (t *UDPTransport) Send(addr string, data []byte) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	_, err = t.conn.WriteToUDP(data, udpAddr)
	if err != nil {
		return fmt.Errorf("transport: send to %s: %w", addr, err)
	}
	return nil
}

func (t *UDPTransport) Packets() <-chan Packet { return t.packets }

func (t *UDPTransport) LocalAddr() string { return t.conn.LocalAddr().String() }

func (t *UDPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.conn.Close()
	})
	return err
}
