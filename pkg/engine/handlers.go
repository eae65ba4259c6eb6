package engine

import (
	"time"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/codec"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/dispatcher"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/events"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/pow"
)

// dispatcherBinding adapts an Engine's handler methods to the
// dispatcher.Dispatcher contract. Splitting it from Engine keeps the
// per-type handlers free of the dispatcher's own registration
// bookkeeping.
type dispatcherBinding struct {
	d *dispatcher.Dispatcher
	e *Engine
}

func newDispatcherBinding(e *Engine) *dispatcherBinding {
	b := &dispatcherBinding{e: e}
	b.d = dispatcher.New(b.touch, b.malformed)
	b.d.Handle(codec.MsgHello, b.handleHello)
	b.d.Handle(codec.MsgGetPeers, b.handleGetPeers)
	b.d.Handle(codec.MsgPeersList, b.handlePeersList)
	b.d.Handle(codec.MsgGossip, b.handleGossip)
	b.d.Handle(codec.MsgPing, b.handlePing)
	b.d.Handle(codec.MsgPong, b.handlePong)
	b.d.Handle(codec.MsgIHave, b.handleIHave)
	b.d.Handle(codec.MsgIWant, b.handleIWant)
	return b
}

func (b *dispatcherBinding) dispatch(data []byte, fromAddr string) {
	b.d.Dispatch(data, fromAddr)
}

func (b *dispatcherBinding) touch(addr, nodeID string) {
	b.e.peers.Touch(addr, nodeID, time.Now())
}

func (b *dispatcherBinding) malformed(fromAddr string, err error) {
	b.e.log.WithFields(map[string]interface{}{
		"from":  fromAddr,
		"error": err.Error(),
	}).Warn("dropping malformed message")
	b.e.sink.Emit(events.Event{TimestampMs: nowMs(), Direction: events.Drop, PeerAddr: fromAddr})
}

// handleHello validates admission before the sender is allowed into
// the peer table, then answers with a snapshot of known peers so the
// joiner can continue peer exchange without a separate GET_PEERS
// round trip.
func (b *dispatcherBinding) handleHello(env *codec.Envelope, fromAddr string) {
	e := b.e
	var payload codec.HelloPayload
	if err := codec.DecodePayload(env, &payload); err != nil {
		return
	}

	if e.cfg.PowK > 0 {
		if payload.PoW == nil {
			e.log.WithField("from", fromAddr).Warn("hello rejected: missing pow proof")
			e.sink.Emit(events.Event{TimestampMs: nowMs(), Direction: events.Drop, MsgType: codec.MsgHello, MsgID: env.MsgID, PeerAddr: fromAddr})
			return
		}
		proof := pow.Proof{K: payload.PoW.K, Nonce: payload.PoW.Nonce, Hash: payload.PoW.Hash}
		if !pow.Validate(env.SenderID, proof, e.cfg.PowK) {
			e.log.WithField("from", fromAddr).Warn("hello rejected: pow validation failed")
			e.sink.Emit(events.Event{TimestampMs: nowMs(), Direction: events.Drop, MsgType: codec.MsgHello, MsgID: env.MsgID, PeerAddr: fromAddr})
			return
		}
	}

	e.peers.Touch(env.SenderAddr, env.SenderID, time.Now())
	e.sink.Emit(events.Event{TimestampMs: nowMs(), Direction: events.Recv, MsgType: codec.MsgHello, MsgID: env.MsgID, PeerAddr: env.SenderAddr})

	snapshot := e.peers.Snapshot(e.cfg.PeerLimit)
	entries := make([]codec.PeerEntry, 0, len(snapshot))
	for _, r := range snapshot {
		if r.Addr == env.SenderAddr {
			continue
		}
		entries = append(entries, codec.PeerEntry{NodeID: r.NodeID, Addr: r.Addr})
	}
	reply := codec.PeersList(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), entries)
	e.sendTo(env.SenderAddr, reply)
}

func (b *dispatcherBinding) handleGetPeers(env *codec.Envelope, fromAddr string) {
	e := b.e
	var payload codec.GetPeersPayload
	_ = codec.DecodePayload(env, &payload)

	max := payload.MaxPeers
	if max <= 0 || max > e.cfg.PeerLimit {
		max = e.cfg.PeerLimit
	}
	snapshot := e.peers.Snapshot(max)
	entries := make([]codec.PeerEntry, 0, len(snapshot))
	for _, r := range snapshot {
		if r.Addr == env.SenderAddr {
			continue
		}
		entries = append(entries, codec.PeerEntry{NodeID: r.NodeID, Addr: r.Addr})
	}
	reply := codec.PeersList(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), entries)
	e.sendTo(env.SenderAddr, reply)
}

// handlePeersList learns about newly-advertised peers by greeting
// them directly, and — when this node is mid-bootstrap — treats the
// reply as proof of successful admission.
func (b *dispatcherBinding) handlePeersList(env *codec.Envelope, fromAddr string) {
	e := b.e
	var payload codec.PeersListPayload
	_ = codec.DecodePayload(env, &payload)
	e.sink.Emit(events.Event{TimestampMs: nowMs(), Direction: events.Recv, MsgType: codec.MsgPeersList, MsgID: env.MsgID, PeerAddr: env.SenderAddr})

	for _, p := range payload.Peers {
		if p.Addr == "" || p.Addr == e.selfAddr || e.peers.Has(p.Addr) {
			continue
		}
		e.sendHelloTo(p.Addr)
	}

	if e.BootstrapState() == StateJoining {
		e.setBootstrapState(StateJoined)
		e.joinedOnce.Do(func() { close(e.joinedCh) })
	}
}

// handleGossip implements the push-dissemination core: dedup, retain,
// decrement TTL, and re-fan-out to a fresh random sample (spec §4.5).
func (b *dispatcherBinding) handleGossip(env *codec.Envelope, fromAddr string) {
	e := b.e
	var payload codec.GossipPayload
	if err := codec.DecodePayload(env, &payload); err != nil {
		return
	}

	isNew := e.store.MarkSeen(env.MsgID)
	if !isNew {
		e.sink.Emit(events.Event{TimestampMs: nowMs(), Direction: events.Drop, MsgType: codec.MsgGossip, MsgID: env.MsgID, PeerAddr: env.SenderAddr})
		return
	}
	e.store.Store(env)
	e.sink.Emit(events.Event{
		TimestampMs:       nowMs(),
		Direction:         events.Recv,
		MsgType:           codec.MsgGossip,
		MsgID:             env.MsgID,
		PeerAddr:          env.SenderAddr,
		OriginID:          payload.OriginID,
		OriginTimestampMs: payload.OriginTimestampMs,
	})

	newTTL := env.TTL - 1
	if newTTL <= 0 {
		return
	}
	forwarded := codec.Gossip(codec.GossipParams{
		MsgID:             env.MsgID,
		SenderID:          e.nodeID,
		SenderAddr:        e.selfAddr,
		TimestampMs:       nowMs(),
		TTL:               newTTL,
		Topic:             payload.Topic,
		Data:              payload.Data,
		OriginID:          payload.OriginID,
		OriginTimestampMs: payload.OriginTimestampMs,
	})
	e.forward(forwarded, env.SenderAddr)
}

func (b *dispatcherBinding) handlePing(env *codec.Envelope, fromAddr string) {
	e := b.e
	var payload codec.PingPayload
	_ = codec.DecodePayload(env, &payload)
	reply := codec.Pong(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), payload.PingID, payload.Seq)
	e.sendTo(env.SenderAddr, reply)
}

func (b *dispatcherBinding) handlePong(env *codec.Envelope, fromAddr string) {
	var payload codec.PongPayload
	_ = codec.DecodePayload(env, &payload)
	delete(b.e.pendingPings, payload.PingID)
}

// handleIHave is the pull side's advertisement handler: request
// anything advertised that we haven't already seen (spec §4.7).
func (b *dispatcherBinding) handleIHave(env *codec.Envelope, fromAddr string) {
	e := b.e
	var payload codec.IHavePayload
	if err := codec.DecodePayload(env, &payload); err != nil {
		return
	}
	var wanted []string
	for _, id := range payload.IDs {
		if !e.store.Seen(id) {
			wanted = append(wanted, id)
		}
	}
	if len(wanted) == 0 {
		return
	}
	req := codec.IWant(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), wanted)
	e.sendTo(env.SenderAddr, req)
}

// handleIWant repairs a peer that's missing a message by rebuilding
// it with this node as sender and ttl=1, so the recipient receives a
// direct copy without re-forwarding it any further (spec §4.8): this
// is point-to-point repair, not renewed flooding.
func (b *dispatcherBinding) handleIWant(env *codec.Envelope, fromAddr string) {
	e := b.e
	var payload codec.IWantPayload
	if err := codec.DecodePayload(env, &payload); err != nil {
		return
	}
	for _, id := range payload.IDs {
		stored, ok := e.store.Fetch(id)
		if !ok {
			continue
		}
		var gossip codec.GossipPayload
		if err := codec.DecodePayload(stored, &gossip); err != nil {
			continue
		}
		repaired := codec.Gossip(codec.GossipParams{
			MsgID:             stored.MsgID,
			SenderID:          e.nodeID,
			SenderAddr:        e.selfAddr,
			TimestampMs:       nowMs(),
			TTL:               1,
			Topic:             gossip.Topic,
			Data:              gossip.Data,
			OriginID:          gossip.OriginID,
			OriginTimestampMs: gossip.OriginTimestampMs,
		})
		e.sendTo(env.SenderAddr, repaired)
	}
}
