// Package codec defines the wire envelope for the Gossip protocol and
// its JSON encoding/decoding rules.
package codec

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the only version this codec accepts.
const ProtocolVersion = 1

// MsgType enumerates the recognised envelope types.
type MsgType string

const (
	MsgHello     MsgType = "HELLO"
	MsgGetPeers  MsgType = "GET_PEERS"
	MsgPeersList MsgType = "PEERS_LIST"
	MsgGossip    MsgType = "GOSSIP"
	MsgPing      MsgType = "PING"
	MsgPong      MsgType = "PONG"
	MsgIHave     MsgType = "IHAVE"
	MsgIWant     MsgType = "IWANT"
)

var knownTypes = map[MsgType]bool{
	MsgHello:     true,
	MsgGetPeers:  true,
	MsgPeersList: true,
	MsgGossip:    true,
	MsgPing:      true,
	MsgPong:      true,
	MsgIHave:     true,
	MsgIWant:     true,
}

// Valid reports whether t is one of the eight recognised message types.
func (t MsgType) Valid() bool {
	return knownTypes[t]
}

// MalformedMessage is returned by Decode when a datagram fails to parse
// into a structurally valid envelope. It is never fatal to the caller.
type MalformedMessage struct {
	Reason string
}

func (e *MalformedMessage) Error() string {
	return fmt.Sprintf("malformed message: %s", e.Reason)
}

// PoWProof is the wire representation of a proof-of-work solution.
// elapsed_ms deliberately does not appear here: it must never reach the wire.
type PoWProof struct {
	K     int    `json:"k"`
	Nonce int64  `json:"nonce"`
	Hash  string `json:"hash"`
}

// HelloPayload is the HELLO message body.
type HelloPayload struct {
	Capabilities []string  `json:"capabilities"`
	PoW          *PoWProof `json:"pow,omitempty"`
}

// GetPeersPayload is the GET_PEERS message body.
type GetPeersPayload struct {
	MaxPeers int `json:"max_peers"`
}

// PeerEntry is one entry in a PEERS_LIST reply.
type PeerEntry struct {
	NodeID string `json:"node_id"`
	Addr   string `json:"addr"`
}

// PeersListPayload is the PEERS_LIST message body.
type PeersListPayload struct {
	Peers []PeerEntry `json:"peers"`
}

// GossipPayload is the GOSSIP message body.
type GossipPayload struct {
	Topic             string `json:"topic"`
	Data              string `json:"data"`
	OriginID          string `json:"origin_id"`
	OriginTimestampMs int64  `json:"origin_timestamp_ms"`
}

// PingPayload is the PING message body.
type PingPayload struct {
	PingID string `json:"ping_id"`
	Seq    int64  `json:"seq"`
}

// PongPayload is the PONG message body.
type PongPayload struct {
	PingID string `json:"ping_id"`
	Seq    int64  `json:"seq"`
}

// IHavePayload is the IHAVE message body.
type IHavePayload struct {
	IDs    []string `json:"ids"`
	MaxIDs int      `json:"max_ids"`
}

// IWantPayload is the IWANT message body.
type IWantPayload struct {
	IDs []string `json:"ids"`
}

// Envelope is the logical message envelope described in spec §3. Payload
// is kept as raw JSON and decoded into a typed struct on demand by the
// dispatcher, since different msg_types need different payload shapes.
type Envelope struct {
	Version      int             `json:"version"`
	MsgID        string          `json:"msg_id"`
	MsgType      MsgType         `json:"msg_type"`
	SenderID     string          `json:"sender_id"`
	SenderAddr   string          `json:"sender_addr"`
	TimestampMs  int64           `json:"timestamp_ms"`
	TTL          int             `json:"ttl"`
	Payload      json.RawMessage `json:"payload"`
}

// wireEnvelope is the on-the-wire shape; unexported so Decode can tolerate
// unknown additional top-level fields without leaking them back out.
type wireEnvelope struct {
	Version     *int            `json:"version"`
	MsgID       *string         `json:"msg_id"`
	MsgType     *string         `json:"msg_type"`
	SenderID    *string         `json:"sender_id"`
	SenderAddr  *string         `json:"sender_addr"`
	TimestampMs *int64          `json:"timestamp_ms"`
	TTL         *int            `json:"ttl"`
	Payload     json.RawMessage `json:"payload"`
}

// Encode serialises an envelope as UTF-8 JSON, one message per datagram.
func Encode(e *Envelope) ([]byte, error) {
	if e.Payload == nil {
		e.Payload = json.RawMessage("{}")
	}
	return json.Marshal(e)
}

// Decode parses a datagram into an Envelope, enforcing the structural
// invariants from spec §4.1. Unknown additional fields are tolerated;
// missing required fields, an unknown version, or an unrecognised
// msg_type all yield *MalformedMessage.
func Decode(data []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &MalformedMessage{Reason: "invalid JSON: " + err.Error()}
	}

	if w.Version == nil {
		return nil, &MalformedMessage{Reason: "missing version"}
	}
	if *w.Version != ProtocolVersion {
		return nil, &MalformedMessage{Reason: fmt.Sprintf("unsupported version %d", *w.Version)}
	}
	if w.MsgType == nil {
		return nil, &MalformedMessage{Reason: "missing msg_type"}
	}
	mt := MsgType(*w.MsgType)
	if !mt.Valid() {
		return nil, &MalformedMessage{Reason: fmt.Sprintf("unknown msg_type %q", *w.MsgType)}
	}
	if w.MsgID == nil || *w.MsgID == "" {
		return nil, &MalformedMessage{Reason: "missing msg_id"}
	}
	if w.SenderID == nil {
		return nil, &MalformedMessage{Reason: "missing sender_id"}
	}
	if w.SenderAddr == nil || *w.SenderAddr == "" {
		return nil, &MalformedMessage{Reason: "missing sender_addr"}
	}
	if w.TTL == nil {
		return nil, &MalformedMessage{Reason: "missing ttl"}
	}
	if *w.TTL < 0 {
		return nil, &MalformedMessage{Reason: "ttl out of range"}
	}

	ts := int64(0)
	if w.TimestampMs != nil {
		ts = *w.TimestampMs
	}

	payload := w.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	return &Envelope{
		Version:     *w.Version,
		MsgID:       *w.MsgID,
		MsgType:     mt,
		SenderID:    *w.SenderID,
		SenderAddr:  *w.SenderAddr,
		TimestampMs: ts,
		TTL:         *w.TTL,
		Payload:     payload,
	}, nil
}

// DecodePayload unmarshals the envelope's raw payload into dst. An empty
// payload for a type whose handler tolerates it (spec §4.1: "the codec
// never throws on semantically empty payloads") still decodes cleanly
// into the zero value.
func DecodePayload(e *Envelope, dst interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, dst)
}

// EncodePayload marshals a typed payload into the envelope's raw slot.
func EncodePayload(e *Envelope, src interface{}) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	e.Payload = raw
	return nil
}
