package domain

// DefaultTrackerSize is the default capacity of a RepetitionTracker.
const DefaultTrackerSize = 50

// RepetitionTracker remembers recently returned chunk ids for one session.
// Oldest ids are evicted first once the capacity is reached.
// It has a single owner and is not safe for concurrent use.
type RepetitionTracker struct {
	capacity int
	order    []string
	seen     map[string]struct{}
}

// NewRepetitionTracker creates a tracker holding at most capacity ids.
// A non-positive capacity uses DefaultTrackerSize.
func NewRepetitionTracker(capacity int) *RepetitionTracker {
	if capacity <= 0 {
		capacity = DefaultTrackerSize
	}
	return &RepetitionTracker{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		seen:     make(map[string]struct{}, capacity),
	}
}

// Seen reports whether id was returned recently.
func (t *RepetitionTracker) Seen(id string) bool {
	if t == nil {
		return false
	}
	_, ok := t.seen[id]
	return ok
}

// Record adds ids, evicting the oldest when full. Known ids are ignored.
func (t *RepetitionTracker) Record(ids ...string) {
	if t == nil {
		return
	}
	for _, id := range ids {
		if _, ok := t.seen[id]; ok {
			continue
		}
		if len(t.order) == t.capacity {
			oldest := t.order[0]
			t.order = t.order[1:]
			delete(t.seen, oldest)
		}
		t.order = append(t.order, id)
		t.seen[id] = struct{}{}
	}
}

// Len returns the number of tracked ids.
func (t *RepetitionTracker) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Capacity returns the maximum number of tracked ids.
func (t *RepetitionTracker) Capacity() int {
	if t == nil {
		return 0
	}
	return t.capacity
}

// IDs returns tracked ids, oldest first.
func (t *RepetitionTracker) IDs() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Reset forgets all ids.
func (t *RepetitionTracker) Reset() {
	if t == nil {
		return
	}
	t.order = t.order[:0]
	clear(t.seen)
}
