package draw

// RepetitionEntry is the occurrence record of one position.
type RepetitionEntry struct {
	Key      PositionKey
	Count    int
	FirstPly int
	Plies    []int
	// AllInCheck stays true while every occurrence had the side to move in check.
	AllInCheck bool
}

// RepetitionTracker counts how often each exact position occurred in a game.
// Entries are never removed before Reset.
type RepetitionTracker struct {
	buckets  map[uint64][]*RepetitionEntry
	maxCount int
	size     int
}

func NewRepetitionTracker() *RepetitionTracker {
	return &RepetitionTracker{buckets: make(map[uint64][]*RepetitionEntry)}
}

// Record registers one occurrence of key at ply and returns the new count.
func (t *RepetitionTracker) Record(key PositionKey, ply int, inCheck bool) int {
	if e := t.lookup(key); e != nil {
		e.Count++
		e.Plies = append(e.Plies, ply)
		e.AllInCheck = e.AllInCheck && inCheck
		if e.Count > t.maxCount {
			t.maxCount = e.Count
		}
		return e.Count
	}
	e := &RepetitionEntry{
		Key:        key,
		Count:      1,
		FirstPly:   ply,
		Plies:      []int{ply},
		AllInCheck: inCheck,
	}
	// hash collisions land in the same bucket and stay distinct entries
	t.buckets[key.Hash] = append(t.buckets[key.Hash], e)
	t.size++
	if t.maxCount < 1 {
		t.maxCount = 1
	}
	return 1
}

// Count returns how many times key has been recorded.
func (t *RepetitionTracker) Count(key PositionKey) int {
	if e := t.lookup(key); e != nil {
		return e.Count
	}
	return 0
}

// Entry returns a copy of the record for key.
func (t *RepetitionTracker) Entry(key PositionKey) (RepetitionEntry, bool) {
	e := t.lookup(key)
	if e == nil {
		return RepetitionEntry{}, false
	}
	out := *e
	out.Plies = append([]int(nil), e.Plies...)
	return out, true
}

// MaxCount is the highest occurrence count of any position so far.
func (t *RepetitionTracker) MaxCount() int { return t.maxCount }

// Len is the number of distinct positions seen.
func (t *RepetitionTracker) Len() int { return t.size }

// Entries returns copies of all records, unordered.
func (t *RepetitionTracker) Entries() []RepetitionEntry {
	out := make([]RepetitionEntry, 0, t.size)
	for _, bucket := range t.buckets {
		for _, e := range bucket {
			cp := *e
			cp.Plies = append([]int(nil), e.Plies...)
			out = append(out, cp)
		}
	}
	return out
}

func (t *RepetitionTracker) Reset() {
	t.buckets = make(map[uint64][]*RepetitionEntry)
	t.maxCount = 0
	t.size = 0
}

func (t *RepetitionTracker) lookup(key PositionKey) *RepetitionEntry {
	for _, e := range t.buckets[key.Hash] {
		if e.Key.Equal(key) {
			return e
		}
	}
	return nil
}
