package engine

import (
	"context"
	"time"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/codec"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/config"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/events"
)

// run is the engine's single actor-loop goroutine. Every mutation of
// the peer table, store, and pending-ping map happens here and only
// here; everything else talks to this loop through a channel.
func (e *Engine) run(ctx context.Context) {
	livenessInterval := durationFromSeconds(e.cfg.PingIntervalS)
	livenessTicker := time.NewTicker(livenessInterval)
	defer livenessTicker.Stop()

	var pullC <-chan time.Time
	if e.cfg.Mode == config.ModeHybrid {
		pullTicker := time.NewTicker(durationFromSeconds(e.cfg.PullIntervalS))
		defer pullTicker.Stop()
		pullC = pullTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case pkt, ok := <-e.transport.Packets():
			if !ok {
				return
			}
			e.disp.dispatch(pkt.Data, pkt.Addr)
		case req := <-e.originateCh:
			e.originate(req)
		case <-livenessTicker.C:
			e.runLivenessTick()
		case <-pullC:
			e.runPullTick()
		}
	}
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// originate builds and disseminates a fresh GOSSIP for data the local
// application wants to broadcast (spec §4.6: origination looks exactly
// like receiving a brand-new message with ttl already at its starting
// value).
func (e *Engine) originate(req originateRequest) {
	env := codec.Gossip(codec.GossipParams{
		MsgID:             req.msgID,
		SenderID:          e.nodeID,
		SenderAddr:        e.selfAddr,
		TimestampMs:       nowMs(),
		TTL:               e.cfg.TTL,
		Topic:             req.topic,
		Data:              req.data,
		OriginID:          e.nodeID,
		OriginTimestampMs: nowMs(),
	})
	e.store.Store(env)
	e.forward(env, "")
}

// runLivenessTick expires silent peers and probes a fresh random
// sample of the rest with PING (spec §4.6 step 3: select up to fanout
// peers via sample). Liveness itself is driven by the dispatcher's
// blanket touch-on-receipt rule; PING/PONG exists to proactively
// surface a peer that has gone quiet before its timeout lapses.
func (e *Engine) runLivenessTick() {
	now := time.Now()
	timeout := durationFromSeconds(e.cfg.PeerTimeoutS)

	for _, addr := range e.peers.Expire(now, timeout) {
		e.log.WithField("addr", addr).Debug("peer expired")
	}

	for pingID, pp := range e.pendingPings {
		if now.Sub(pp.sendTime) > timeout {
			delete(e.pendingPings, pingID)
		}
	}

	for _, rec := range e.peers.Sample(e.cfg.Fanout, nil) {
		pingID := e.nextPingID()
		e.pingSeq++
		e.pendingPings[pingID] = pendingPing{addr: rec.Addr, sendTime: now}
		ping := codec.Ping(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), pingID, e.pingSeq)
		e.sendTo(rec.Addr, ping)
	}
}

// runPullTick advertises recently retained ids to a fresh random
// sample of peers (spec §4.7's hybrid-mode repair path).
func (e *Engine) runPullTick() {
	ids := e.store.RecentIDs(e.cfg.IHaveMaxIDs)
	if len(ids) == 0 {
		return
	}
	targets := e.peers.Sample(e.cfg.Fanout, nil)
	if len(targets) == 0 {
		return
	}
	ihave := codec.IHave(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), ids, e.cfg.IHaveMaxIDs)
	data, err := codec.Encode(ihave)
	if err != nil {
		return
	}
	for _, rec := range targets {
		e.sendRaw(rec.Addr, data, codec.MsgIHave, ihave.MsgID)
	}
}

// forward fans env out to a fresh random sample of peers, excluding
// excludeAddr (the peer we received it from, if any). The envelope is
// encoded exactly once and the same bytes are reused for every target
// (spec §9: per-target message reuse, not a fresh encode per send).
func (e *Engine) forward(env *codec.Envelope, excludeAddr string) {
	exclude := map[string]bool{}
	if excludeAddr != "" {
		exclude[excludeAddr] = true
	}
	targets := e.peers.Sample(e.cfg.Fanout, exclude)
	if len(targets) == 0 {
		return
	}
	data, err := codec.Encode(env)
	if err != nil {
		e.log.WithField("error", err.Error()).Error("failed to encode outbound gossip")
		return
	}
	for _, rec := range targets {
		e.sendRaw(rec.Addr, data, env.MsgType, env.MsgID)
	}
}

// sendTo encodes and sends a single envelope to one address.
func (e *Engine) sendTo(addr string, env *codec.Envelope) error {
	data, err := codec.Encode(env)
	if err != nil {
		e.log.WithField("error", err.Error()).Error("failed to encode outbound message")
		return err
	}
	return e.sendRaw(addr, data, env.MsgType, env.MsgID)
}

func (e *Engine) sendRaw(addr string, data []byte, msgType codec.MsgType, msgID string) error {
	if err := e.transport.Send(addr, data); err != nil {
		e.log.WithFields(map[string]interface{}{"addr": addr, "error": err.Error()}).Warn("send failed")
		return err
	}
	e.sink.Emit(events.Event{TimestampMs: nowMs(), Direction: events.Sent, MsgType: msgType, MsgID: msgID, PeerAddr: addr})
	return nil
}

// sendHelloTo greets a newly-learned peer. When pow_k > 0 it attaches
// whatever proof this node currently holds: the zero-value proof until
// the PoW search has finished, and no proof at all if the search failed.
func (e *Engine) sendHelloTo(addr string) error {
	var proof *codec.PoWProof
	if e.cfg.PowK > 0 && !e.powFailed {
		proof = &codec.PoWProof{K: e.powProof.K, Nonce: e.powProof.Nonce, Hash: e.powProof.Hash}
	}
	hello := codec.Hello(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), proof)
	return e.sendTo(addr, hello)
}

// sendGetPeersTo requests addr's peer view directly, rather than
// waiting on the PEERS_LIST a HELLO reply already triggers (spec
// §4.9 step 1: HELLO and GET_PEERS are sent together to the seed).
func (e *Engine) sendGetPeersTo(addr string) error {
	req := codec.GetPeers(e.nextMsgID(), e.nodeID, e.selfAddr, nowMs(), e.cfg.PeerLimit)
	return e.sendTo(addr, req)
}
