package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/codec"
)

func TestMarkSeenReturnsTrueOnlyOnce(t *testing.T) {
	s := New(10)
	assert.True(t, s.MarkSeen("a"))
	assert.False(t, s.MarkSeen("a"))
	assert.True(t, s.MarkSeen("b"))
}

func TestStoreKeepsInvariantSubsetOfSeen(t *testing.T) {
	s := New(10)
	msg := codec.Gossip(codec.GossipParams{MsgID: "m1", SenderID: "x", SenderAddr: "1:1", TTL: 8})
	s.Store(msg)
	assert.True(t, s.Seen("m1"))
	got, ok := s.Fetch("m1")
	assert.True(t, ok)
	assert.Equal(t, "m1", got.MsgID)
}

func TestBoundedMemoryEvictsOldestFIFO(t *testing.T) {
	s := New(10000)
	for i := 0; i < 20000; i++ {
		id := fmt.Sprintf("msg-%06d", i)
		msg := codec.Gossip(codec.GossipParams{MsgID: id, SenderID: "x", SenderAddr: "1:1", TTL: 8})
		s.Store(msg)
	}
	assert.Equal(t, 10000, s.SeenSize())
	assert.Equal(t, 10000, s.StoreSize())

	// the 10000 most recently inserted ids (10000..19999) are retained
	assert.True(t, s.Seen(fmt.Sprintf("msg-%06d", 19999)))
	assert.True(t, s.Seen(fmt.Sprintf("msg-%06d", 10000)))
	assert.False(t, s.Seen(fmt.Sprintf("msg-%06d", 9999)))
}

func TestRecentIDsOrderedOldestToNewest(t *testing.T) {
	s := New(10)
	for _, id := range []string{"a", "b", "c"} {
		s.MarkSeen(id)
	}
	assert.Equal(t, []string{"b", "c"}, s.RecentIDs(2))
	assert.Equal(t, []string{"a", "b", "c"}, s.RecentIDs(10))
}

func TestRecentIDsOnEmptyStore(t *testing.T) {
	s := New(10)
	assert.Empty(t, s.RecentIDs(5))
}
