package pipeline

import (
	"sort"
	"sync"

	"github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/trip"
)

// Accumulator concatenates processed batches into the final ResultSet.
//
// Add appends in call order. AddAt is the order-preserving variant for
// concurrent producers: it buffers batches that arrive ahead of their turn
// and releases them strictly by Seq, so every Seq from 0 upward must be
// delivered exactly once, including empty batches. Do not mix the two.
type Accumulator struct {
	mu      sync.Mutex
	records []trip.Record
	next    int
	pending map[int]trip.Batch
	added   int
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{pending: map[int]trip.Batch{}}
}

// Add appends b. Empty batches are ignored.
func (a *Accumulator) Add(b trip.Batch) {
	if b.Len() == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, b.Records...)
	a.added++
}

// AddAt records b at position b.Seq and flushes every contiguous batch that
// is now ready. It is safe for concurrent use.
func (a *Accumulator) AddAt(b trip.Batch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[b.Seq] = b
	for {
		nb, ok := a.pending[a.next]
		if !ok {
			return
		}
		delete(a.pending, a.next)
		a.next++
		if nb.Len() > 0 {
			a.records = append(a.records, nb.Records...)
			a.added++
		}
	}
}

// Pending reports how many batches AddAt is holding back.
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Batches reports how many non-empty batches have been released.
func (a *Accumulator) Batches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.added
}

// Result returns the accumulated records in arrival order. Batches still
// held by AddAt are appended in Seq order. With nothing added the result is
// the canonical empty ResultSet.
func (a *Accumulator) Result() trip.ResultSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) > 0 {
		seqs := make([]int, 0, len(a.pending))
		for s := range a.pending {
			seqs = append(seqs, s)
		}
		sort.Ints(seqs)
		for _, s := range seqs {
			a.records = append(a.records, a.pending[s].Records...)
			delete(a.pending, s)
		}
	}
	if len(a.records) == 0 {
		return trip.ResultSet{}
	}
	return trip.ResultSet{Records: a.records}
}
