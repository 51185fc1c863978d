package errorlog

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(id string) *Record {
	return NewRecord(id, "description"+id, "rendering"+id, "time"+id, EntryURL(DefaultPath, id), nil)
}

// TestRingEviction verifies that overflowing inserts keep exactly the last
// capacity records, newest first.
func TestRingEviction(t *testing.T) {
	for _, capacity := range []int{1, 2, 5, 10} {
		for _, n := range []int{0, 1, capacity, capacity + 1, 3*capacity + 2} {
			t.Run(strconv.Itoa(capacity)+"/"+strconv.Itoa(n), func(t *testing.T) {
				ring := NewRing(capacity)
				for i := 0; i < n; i++ {
					ring.Insert(testRecord(strconv.Itoa(i)))
					require.LessOrEqual(t, ring.Len(), capacity)
				}

				want := min(n, capacity)
				records := ring.Snapshot()
				require.Len(t, records, want)

				for i, rec := range records {
					assert.Equal(t, strconv.Itoa(n-1-i), rec.Identifier())
				}
			})
		}
	}
}

// TestRingLookup tests lookup of present, evicted and unknown identifiers.
func TestRingLookup(t *testing.T) {
	ring := NewRing(2)
	for i := 0; i < 3; i++ {
		ring.Insert(testRecord(strconv.Itoa(i)))
	}

	rec, ok := ring.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, "rendering2\n\n{}\n", rec.Text())

	_, ok = ring.Lookup("1")
	assert.True(t, ok)

	rec, ok = ring.Lookup("0")
	assert.False(t, ok, "evicted record must not be found")
	assert.Nil(t, rec)

	_, ok = ring.Lookup("never")
	assert.False(t, ok)
}

func TestRingDefaults(t *testing.T) {
	assert.Equal(t, DefaultKeep, NewRing(0).Cap())
	assert.Equal(t, DefaultKeep, NewRing(-3).Cap())
	assert.Equal(t, 7, NewRing(7).Cap())
	assert.Zero(t, NewRing(7).Len())
}

// TestRingSnapshotIsCopy verifies that snapshots do not alias the ring.
func TestRingSnapshotIsCopy(t *testing.T) {
	ring := NewRing(3)
	ring.Insert(testRecord("0"))

	snap := ring.Snapshot()
	ring.Insert(testRecord("1"))

	require.Len(t, snap, 1)
	assert.Equal(t, "0", snap[0].Identifier())
}
