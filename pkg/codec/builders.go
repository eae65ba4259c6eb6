package codec

// newEnvelope builds the common envelope fields shared by every
// message-type constructor below. timestampMs is injected by the
// caller rather than read from the wall clock here, so the codec stays
// free of time-source decisions (spec §9: wall clock on the wire,
// monotonic internally — the boundary is owned by the caller).
func newEnvelope(msgType MsgType, msgID, senderID, senderAddr string, ttl int, timestampMs int64) *Envelope {
	return &Envelope{
		Version:     ProtocolVersion,
		MsgID:       msgID,
		MsgType:     msgType,
		SenderID:    senderID,
		SenderAddr:  senderAddr,
		TimestampMs: timestampMs,
		TTL:         ttl,
	}
}

// Hello builds a HELLO envelope, optionally carrying a PoW proof.
func Hello(msgID, senderID, senderAddr string, timestampMs int64, pow *PoWProof) *Envelope {
	e := newEnvelope(MsgHello, msgID, senderID, senderAddr, 0, timestampMs)
	_ = EncodePayload(e, HelloPayload{Capabilities: []string{"udp", "json"}, PoW: pow})
	return e
}

// GetPeers builds a GET_PEERS envelope.
func GetPeers(msgID, senderID, senderAddr string, timestampMs int64, maxPeers int) *Envelope {
	e := newEnvelope(MsgGetPeers, msgID, senderID, senderAddr, 0, timestampMs)
	_ = EncodePayload(e, GetPeersPayload{MaxPeers: maxPeers})
	return e
}

// PeersList builds a PEERS_LIST envelope.
func PeersList(msgID, senderID, senderAddr string, timestampMs int64, peers []PeerEntry) *Envelope {
	e := newEnvelope(MsgPeersList, msgID, senderID, senderAddr, 0, timestampMs)
	_ = EncodePayload(e, PeersListPayload{Peers: peers})
	return e
}

// GossipParams collects the fields needed to build or forward a GOSSIP
// envelope; grouping them avoids an unwieldy positional-argument list
// for a constructor called from both origination and forwarding paths.
type GossipParams struct {
	MsgID             string
	SenderID          string
	SenderAddr        string
	TimestampMs       int64
	TTL               int
	Topic             string
	Data              string
	OriginID          string
	OriginTimestampMs int64
}

// Gossip builds a GOSSIP envelope. Callers forwarding an existing
// message must pass through the original MsgID, OriginID, and
// OriginTimestampMs unchanged (spec §3 invariant).
func Gossip(p GossipParams) *Envelope {
	e := newEnvelope(MsgGossip, p.MsgID, p.SenderID, p.SenderAddr, p.TTL, p.TimestampMs)
	_ = EncodePayload(e, GossipPayload{
		Topic:             p.Topic,
		Data:              p.Data,
		OriginID:          p.OriginID,
		OriginTimestampMs: p.OriginTimestampMs,
	})
	return e
}

// Ping builds a PING envelope.
func Ping(msgID, senderID, senderAddr string, timestampMs int64, pingID string, seq int64) *Envelope {
	e := newEnvelope(MsgPing, msgID, senderID, senderAddr, 0, timestampMs)
	_ = EncodePayload(e, PingPayload{PingID: pingID, Seq: seq})
	return e
}

// Pong builds a PONG envelope echoing a ping_id/seq.
func Pong(msgID, senderID, senderAddr string, timestampMs int64, pingID string, seq int64) *Envelope {
	e := newEnvelope(MsgPong, msgID, senderID, senderAddr, 0, timestampMs)
	_ = EncodePayload(e, PongPayload{PingID: pingID, Seq: seq})
	return e
}

// IHave builds an IHAVE envelope, truncating ids to maxIDs (spec §6).
func IHave(msgID, senderID, senderAddr string, timestampMs int64, ids []string, maxIDs int) *Envelope {
	if len(ids) > maxIDs {
		ids = ids[:maxIDs]
	}
	e := newEnvelope(MsgIHave, msgID, senderID, senderAddr, 0, timestampMs)
	_ = EncodePayload(e, IHavePayload{IDs: ids, MaxIDs: maxIDs})
	return e
}

// IWant builds an IWANT envelope.
func IWant(msgID, senderID, senderAddr string, timestampMs int64, ids []string) *Envelope {
	e := newEnvelope(MsgIWant, msgID, senderID, senderAddr, 0, timestampMs)
	_ = EncodePayload(e, IWantPayload{IDs: ids})
	return e
}
