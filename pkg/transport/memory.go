package transport

import (
	"fmt"
	"sync"
)

// Network is an in-memory packet switch connecting any number of
// MemTransport endpoints by address, for fast and deterministic
// multi-node tests (spec §4.16). It plays the role the original test
// suite filled by launching real OS processes bound to localhost
// ports; here the "wire" is a set of Go channels instead.
type Network struct {
	mu    sync.RWMutex
	nodes map[string]*MemTransport
}

func NewNetwork() *Network {
	return &Network{nodes: make(map[string]*MemTransport)}
}

// MemTransport is one endpoint on a Network.
type MemTransport struct {
	net     *Network
	addr    string
	packets chan Packet

	closeOnce sync.Once
}

// Listen registers a new endpoint at addr on this network. addr must
// be unique within the network, matching the peer table's "address
// unique" invariant.
func (n *Network) Listen(addr string) (*MemTransport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.nodes[addr]; exists {
		return nil, fmt.Errorf("transport: address %s already bound", addr)
	}
	t := &MemTransport{
		net:     n,
		addr:    addr,
		packets: make(chan Packet, 256),
	}
	n.nodes[addr] = t
	return t, nil
}

func (t *MemTransport) Send(addr string, data []byte) error {
	t.net.mu.RLock()
	dst, ok := t.net.nodes[addr]
	t.net.mu.RUnlock()
	if !ok {
		// No listener at addr: indistinguishable from a lost UDP
		// datagram (spec §7: TransportError is logged, not fatal).
		return fmt.Errorf("transport: no endpoint at %s", addr)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case dst.packets <- Packet{Data: cp, Addr: t.addr}:
		return nil
	default:
		return fmt.Errorf("transport: send to %s: receiver backlog full", addr)
	}
}

func (t *MemTransport) Packets() <-chan Packet { return t.packets }

func (t *MemTransport) LocalAddr() string { return t.addr }

func (t *MemTransport) Close() error {
	t.closeOnce.Do(func() {
		t.net.mu.Lock()
		delete(t.net.nodes, t.addr)
		t.net.mu.Unlock()
		close(t.packets)
	})
	return nil
}
