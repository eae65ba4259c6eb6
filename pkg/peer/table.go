// Package peer implements the bounded peer table from spec §4.2: an
// LRU-by-last_seen membership set keyed by address, plus the seeded
// random sampling that drives all dissemination fanout. Grounded on
// the teacher's network.GossipProtocol.SelectPeersForGossip (random
// sampling without replacement) and the original implementation's
// GossipNode._add_peer / _evict_oldest_peer / ping-loop expiry.
package peer

import (
	"math/rand"
	"sync"
	"time"
)

// Record is one entry in the peer table.
type Record struct {
	NodeID   string
	Addr     string
	LastSeen time.Time
}

// Table is the bounded, address-keyed peer membership set. All methods
// are safe to call from multiple goroutines, but in this engine's
// actor model only the single actor goroutine ever calls them — the
// mutex exists for the rare embedding case (spec §9) where a harness
// inspects the table from outside the actor loop (e.g. test
// snapshots), not because concurrent writers are expected.
type Table struct {
	mu    sync.RWMutex
	limit int
	rng   *rand.Rand
	peers map[string]*Record
}

// New builds an empty table bounded at limit entries, using seed for
// the deterministic sampling RNG (spec §3: "seed: RNG seed for
// reproducible peer selection").
func New(limit int, seed int64) *Table {
	return &Table{
		limit: limit,
		rng:   rand.New(rand.NewSource(seed)),
		peers: make(map[string]*Record),
	}
}

// Touch inserts or updates the record for addr, refreshing LastSeen.
// If the table is at capacity and addr is new, the LRU (smallest
// LastSeen) entry is evicted first; if that eviction victim happens to
// be addr itself, the new insert still wins (spec §4.2).
func (t *Table) Touch(addr, nodeID string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.peers[addr]; ok {
		rec.LastSeen = now
		if nodeID != "" {
			rec.NodeID = nodeID
		}
		return
	}

	if len(t.peers) >= t.limit {
		t.evictLRULocked()
	}

	t.peers[addr] = &Record{NodeID: nodeID, Addr: addr, LastSeen: now}
}

func (t *Table) evictLRULocked() {
	var oldestAddr string
	var oldestTime time.Time
	first := true
	for addr, rec := range t.peers {
		if first || rec.LastSeen.Before(oldestTime) {
			oldestAddr = addr
			oldestTime = rec.LastSeen
			first = false
		}
	}
	if !first {
		delete(t.peers, oldestAddr)
	}
}

// Remove deletes the entry for addr, if any. Idempotent.
func (t *Table) Remove(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, addr)
}

// Sample returns up to k distinct peer addresses not present in
// exclude, chosen uniformly at random without replacement using the
// table's seeded RNG. This randomness is the sole driver of
// dissemination redundancy (spec §4.2) — never replace it with a
// deterministic order.
func (t *Table) Sample(k int, exclude map[string]bool) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	candidates := make([]*Record, 0, len(t.peers))
	for addr, rec := range t.peers {
		if exclude != nil && exclude[addr] {
			continue
		}
		candidates = append(candidates, rec)
	}

	if k > len(candidates) {
		k = len(candidates)
	}
	if k <= 0 {
		return nil
	}

	t.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	out := make([]Record, k)
	for i := 0; i < k; i++ {
		out[i] = *candidates[i]
	}
	return out
}

// Snapshot returns up to max (node_id, addr) pairs, in no particular
// order, for answering GET_PEERS.
func (t *Table) Snapshot(max int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, 0, len(t.peers))
	for _, rec := range t.peers {
		if len(out) >= max {
			break
		}
		out = append(out, *rec)
	}
	return out
}

// Expire removes every peer whose silence exceeds timeout as of now.
func (t *Table) Expire(now time.Time, timeout time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for addr, rec := range t.peers {
		if now.Sub(rec.LastSeen) > timeout {
			removed = append(removed, addr)
			delete(t.peers, addr)
		}
	}
	return removed
}

// Has reports whether addr is currently tracked.
func (t *Table) Has(addr string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.peers[addr]
	return ok
}

// Size returns the current number of tracked peers.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// Limit returns the configured capacity.
func (t *Table) Limit() int {
	return t.limit
}
