// Package dispatcher implements spec §4.4: decode an inbound datagram,
// refresh the peer table's liveness signal, and route to the handler
// registered for the envelope's msg_type. Handlers never yield; any
// network I/O they perform must be a non-blocking send (enforced by
// convention here, since Go can't express "non-blocking" as a type).
package dispatcher

import (
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/codec"
)

// Handler processes one decoded envelope. fromAddr is the transport-
// level source address, kept only for diagnostics — protocol logic
// must key off env.SenderAddr, the self-reported address a peer wants
// others to dial back into (spec §3/§4.2).
type Handler func(env *codec.Envelope, fromAddr string)

// TouchFunc refreshes the peer table's liveness signal for a sender.
type TouchFunc func(addr, nodeID string)

// MalformedFunc is invoked when a datagram fails to decode.
type MalformedFunc func(fromAddr string, err error)

// Dispatcher routes decoded envelopes to per-type handlers.
type Dispatcher struct {
	handlers map[codec.MsgType]Handler
	touch    TouchFunc
	// deferredTouch holds message types whose handler is responsible
	// for calling TouchFunc itself (conditionally), rather than having
	// the dispatcher touch unconditionally before dispatch. HELLO is
	// the only member: its handler must validate any required PoW
	// proof before a sender is allowed into the peer table (spec
	// §4.10), which the blanket "touch for every valid inbound
	// message" rule in §4.4 would otherwise bypass.
	deferredTouch map[codec.MsgType]bool
	onMalformed   MalformedFunc
	onUnhandled   Handler
}

// New builds a Dispatcher. touch is called for every valid inbound
// message except the types listed in deferredTouch.
func New(touch TouchFunc, onMalformed MalformedFunc) *Dispatcher {
	return &Dispatcher{
		handlers:      make(map[codec.MsgType]Handler),
		touch:         touch,
		deferredTouch: map[codec.MsgType]bool{codec.MsgHello: true},
		onMalformed:   onMalformed,
	}
}

// Handle registers the handler for a message type.
func (d *Dispatcher) Handle(t codec.MsgType, h Handler) {
	d.handlers[t] = h
}

// OnUnhandled sets a fallback invoked when no handler is registered
// for a (structurally valid) message type.
func (d *Dispatcher) OnUnhandled(h Handler) {
	d.onUnhandled = h
}

// Dispatch decodes data and routes it. Decode failures are reported
// via onMalformed and otherwise ignored — spec §7: MalformedMessage is
// silently dropped and counted, never raised.
func (d *Dispatcher) Dispatch(data []byte, fromAddr string) {
	env, err := codec.Decode(data)
	if err != nil {
		if d.onMalformed != nil {
			d.onMalformed(fromAddr, err)
		}
		return
	}

	if d.touch != nil && !d.deferredTouch[env.MsgType] {
		d.touch(env.SenderAddr, env.SenderID)
	}

	h, ok := d.handlers[env.MsgType]
	if !ok {
		if d.onUnhandled != nil {
			d.onUnhandled(env, fromAddr)
		}
		return
	}
	h(env, fromAddr)
}
