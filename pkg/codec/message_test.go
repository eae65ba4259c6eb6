package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAllTypes(t *testing.T) {
	cases := []*Envelope{
		Hello("m1", "node-a", "127.0.0.1:9000", 1000, &PoWProof{K: 4, Nonce: 99, Hash: "0000abc"}),
		GetPeers("m2", "node-a", "127.0.0.1:9000", 1000, 20),
		PeersList("m3", "node-a", "127.0.0.1:9000", 1000, []PeerEntry{{NodeID: "node-b", Addr: "127.0.0.1:9001"}}),
		Gossip(GossipParams{
			MsgID: "m4", SenderID: "node-a", SenderAddr: "127.0.0.1:9000",
			TimestampMs: 1000, TTL: 8, Topic: "news", Data: "hello",
			OriginID: "node-a", OriginTimestampMs: 999,
		}),
		Ping("m5", "node-a", "127.0.0.1:9000", 1000, "ping-1", 7),
		Pong("m6", "node-a", "127.0.0.1:9000", 1000, "ping-1", 7),
		IHave("m7", "node-a", "127.0.0.1:9000", 1000, []string{"a", "b"}, 32),
		IWant("m8", "node-a", "127.0.0.1:9000", 1000, []string{"a", "b"}),
	}

	for _, original := range cases {
		t.Run(string(original.MsgType), func(t *testing.T) {
			data, err := Encode(original)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)

			assert.Equal(t, original.Version, decoded.Version)
			assert.Equal(t, original.MsgID, decoded.MsgID)
			assert.Equal(t, original.MsgType, decoded.MsgType)
			assert.Equal(t, original.SenderID, decoded.SenderID)
			assert.Equal(t, original.SenderAddr, decoded.SenderAddr)
			assert.Equal(t, original.TimestampMs, decoded.TimestampMs)
			assert.Equal(t, original.TTL, decoded.TTL)
			assert.JSONEq(t, string(original.Payload), string(decoded.Payload))
		})
	}
}

func TestDecodeRejectsBadJSON(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.Error(t, err)
	var mm *MalformedMessage
	assert.ErrorAs(t, err, &mm)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte(`{"version":2,"msg_id":"x","msg_type":"PING","sender_id":"a","sender_addr":"1.2.3.4:1","ttl":0}`))
	require.Error(t, err)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"version":1,"msg_id":"x","msg_type":"FROBNICATE","sender_id":"a","sender_addr":"1.2.3.4:1","ttl":0}`))
	require.Error(t, err)
}

func TestDecodeRejectsMissingField(t *testing.T) {
	_, err := Decode([]byte(`{"version":1,"msg_type":"PING","sender_id":"a","sender_addr":"1.2.3.4:1","ttl":0}`))
	require.Error(t, err)
}

func TestDecodeRejectsNegativeTTL(t *testing.T) {
	_, err := Decode([]byte(`{"version":1,"msg_id":"x","msg_type":"PING","sender_id":"a","sender_addr":"1.2.3.4:1","ttl":-1}`))
	require.Error(t, err)
}

func TestDecodeToleratesUnknownFields(t *testing.T) {
	data := []byte(`{"version":1,"msg_id":"x","msg_type":"PING","sender_id":"a","sender_addr":"1.2.3.4:1","ttl":0,"timestamp_ms":5,"payload":{"ping_id":"p","seq":1},"future_field":"ignored"}`)
	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, MsgPing, env.MsgType)
}

func TestDecodeEmptyPayloadIsNotAnError(t *testing.T) {
	data := []byte(`{"version":1,"msg_id":"x","msg_type":"GET_PEERS","sender_id":"a","sender_addr":"1.2.3.4:1","ttl":0}`)
	env, err := Decode(data)
	require.NoError(t, err)

	var p GetPeersPayload
	require.NoError(t, DecodePayload(env, &p))
	assert.Zero(t, p.MaxPeers)
}

func TestHelloWirePayloadNeverContainsElapsedMs(t *testing.T) {
	e := Hello("m1", "node-a", "127.0.0.1:9000", 1000, &PoWProof{K: 4, Nonce: 1, Hash: "abc"})
	data, err := Encode(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "elapsed_ms")
}

func TestIHaveTruncatesToMaxIDs(t *testing.T) {
	e := IHave("m1", "node-a", "127.0.0.1:9000", 1000, []string{"a", "b", "c"}, 2)
	var p IHavePayload
	require.NoError(t, DecodePayload(e, &p))
	assert.Len(t, p.IDs, 2)
}
