// Package store implements the bounded dedup set and message
// retention cache from spec §4.3: an insertion-ordered map capped at
// SEEN_CAP entries with FIFO eviction. Grounded on the teacher's
// network.GossipProtocol.seenMessages map (seen-before test keyed by
// message id) generalised from its time-based cleanup into the
// spec's strict capacity-based FIFO eviction, using container/list for
// the ordering structure the same way other retrieval-pack peers
// (e.g. the daemon peer tables) use it for bounded history.
package store

import (
	"container/list"
	"sync"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/codec"
)

// Cap is the default bound for both the seen set and the message
// store (spec §3: SEEN_CAP = 10 000).
const Cap = 10_000

// Store tracks which msg_ids have been seen and retains the full
// envelope for recently-seen GOSSIP messages so they can be replayed
// in response to IWANT. Every stored id is also a seen id (spec §3
// invariant: store.keys ⊆ seen.keys) — store never inserts independently
// of MarkSeen.
type Store struct {
	mu       sync.Mutex
	cap      int
	order    *list.List               // front = oldest
	elems    map[string]*list.Element // msg_id -> position in order
	messages map[string]*codec.Envelope
}

func New(cap int) *Store {
	return &Store{
		cap:      cap,
		order:    list.New(),
		elems:    make(map[string]*list.Element),
		messages: make(map[string]*codec.Envelope),
	}
}

// MarkSeen records id as seen, returning true if it was newly
// inserted and false if it was already present (spec §4.3). On
// overflow the oldest entry — in both seen and message store — is
// evicted.
func (s *Store) MarkSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markSeenLocked(id)
}

func (s *Store) markSeenLocked(id string) bool {
	if _, ok := s.elems[id]; ok {
		return false
	}
	elem := s.order.PushBack(id)
	s.elems[id] = elem
	s.evictIfOverLocked()
	return true
}

func (s *Store) evictIfOverLocked() {
	for s.order.Len() > s.cap {
		oldest := s.order.Front()
		if oldest == nil {
			return
		}
		oldestID := oldest.Value.(string)
		s.order.Remove(oldest)
		delete(s.elems, oldestID)
		delete(s.messages, oldestID)
	}
}

// Store records the full envelope for msg.MsgID, marking it seen if
// it wasn't already (store entries must also be seen entries).
func (s *Store) Store(msg *codec.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markSeenLocked(msg.MsgID)
	s.messages[msg.MsgID] = msg
}

// Fetch returns the stored envelope for id, if still retained.
func (s *Store) Fetch(id string) (*codec.Envelope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	return msg, ok
}

// Seen reports whether id has been marked seen.
func (s *Store) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.elems[id]
	return ok
}

// RecentIDs returns the n most recently inserted msg_ids still
// retained, most-recent last, for building an IHAVE advertisement.
func (s *Store) RecentIDs(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.order.Len()
	if n > total {
		n = total
	}
	if n <= 0 {
		return nil
	}

	out := make([]string, n)
	elem := s.order.Back()
	for i := n - 1; i >= 0 && elem != nil; i-- {
		out[i] = elem.Value.(string)
		elem = elem.Prev()
	}
	return out
}

// SeenSize returns the number of tracked msg_ids.
func (s *Store) SeenSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// StoreSize returns the number of retained full messages.
func (s *Store) StoreSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
