package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTouchInsertsAndRefreshes(t *testing.T) {
	tbl := New(20, 1)
	now := time.Now()
	tbl.Touch("127.0.0.1:9001", "node-a", now)
	assert.True(t, tbl.Has("127.0.0.1:9001"))
	assert.Equal(t, 1, tbl.Size())

	later := now.Add(time.Second)
	tbl.Touch("127.0.0.1:9001", "node-a-renamed", later)
	assert.Equal(t, 1, tbl.Size())
}

func TestTouchEvictsLRUAtCapacity(t *testing.T) {
	tbl := New(2, 1)
	now := time.Now()
	tbl.Touch("a", "na", now)
	tbl.Touch("b", "nb", now.Add(time.Second))
	assert.Equal(t, 2, tbl.Size())

	// "a" is LRU; inserting "c" should evict it.
	tbl.Touch("c", "nc", now.Add(2*time.Second))
	assert.Equal(t, 2, tbl.Size())
	assert.False(t, tbl.Has("a"))
	assert.True(t, tbl.Has("b"))
	assert.True(t, tbl.Has("c"))
}

func TestTouchNeverExceedsLimit(t *testing.T) {
	tbl := New(5, 1)
	now := time.Now()
	for i := 0; i < 50; i++ {
		tbl.Touch(string(rune('a'+i%26))+string(rune('0'+i/26)), "n", now.Add(time.Duration(i)*time.Millisecond))
		assert.LessOrEqual(t, tbl.Size(), tbl.Limit())
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	tbl := New(20, 1)
	tbl.Remove("nope")
	tbl.Touch("a", "na", time.Now())
	tbl.Remove("a")
	tbl.Remove("a")
	assert.Equal(t, 0, tbl.Size())
}

func TestSampleBoundedByFanoutAndExclusion(t *testing.T) {
	tbl := New(20, 42)
	now := time.Now()
	for _, addr := range []string{"a", "b", "c"} {
		tbl.Touch(addr, "n-"+addr, now)
	}

	got := tbl.Sample(10, nil)
	assert.Len(t, got, 3)

	got = tbl.Sample(2, map[string]bool{"a": true})
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.NotEqual(t, "a", r.Addr)
	}
}

func TestSampleOnEmptyPoolReturnsNothing(t *testing.T) {
	tbl := New(20, 42)
	got := tbl.Sample(3, nil)
	assert.Empty(t, got)
}

func TestExpireRemovesStalePeers(t *testing.T) {
	tbl := New(20, 1)
	base := time.Now()
	tbl.Touch("stale", "n1", base)
	tbl.Touch("fresh", "n2", base.Add(5*time.Second))

	removed := tbl.Expire(base.Add(10*time.Second), 6*time.Second)
	assert.ElementsMatch(t, []string{"stale"}, removed)
	assert.False(t, tbl.Has("stale"))
	assert.True(t, tbl.Has("fresh"))
}

func TestSnapshotRespectsMax(t *testing.T) {
	tbl := New(20, 1)
	now := time.Now()
	for _, addr := range []string{"a", "b", "c"} {
		tbl.Touch(addr, "n-"+addr, now)
	}
	snap := tbl.Snapshot(2)
	assert.Len(t, snap, 2)
}
