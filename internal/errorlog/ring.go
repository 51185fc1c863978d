package errorlog

// DefaultKeep is the ring capacity used when none is configured.
const DefaultKeep = 20

// Ring is a bounded list of records ordered newest first. When full, an
// insert evicts the oldest record.
//
// Ring is not safe for concurrent use; Dispatcher guards its ring with the
// same mutex as its id counter.
type Ring struct {
	capacity int
	records  []*Record
}

// NewRing creates an empty ring holding at most capacity records.
// Non-positive capacities select DefaultKeep.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = DefaultKeep
	}

	return &Ring{
		capacity: capacity,
		records:  make([]*Record, 0, capacity),
	}
}

// Insert prepends rec, evicting the oldest record first when the ring is
// at capacity.
func (r *Ring) Insert(rec *Record) {
	if len(r.records) >= r.capacity {
		r.records[len(r.records)-1] = nil
		r.records = r.records[:r.capacity-1]
	}

	r.records = append(r.records, nil)
	copy(r.records[1:], r.records)
	r.records[0] = rec
}

// Lookup returns the record with the given identifier.
func (r *Ring) Lookup(identifier string) (*Record, bool) {
	for _, rec := range r.records {
		if rec != nil && rec.identifier == identifier {
			return rec, true
		}
	}

	return nil, false
}

// Snapshot returns a copy of the records, newest first.
func (r *Ring) Snapshot() []*Record {
	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records held.
func (r *Ring) Len() int {
	return len(r.records)
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return r.capacity
}
