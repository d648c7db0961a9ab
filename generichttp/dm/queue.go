package dm

import (
	"errors"
	"sync"
)

// ErrQueueExhausted is returned by NextPattern when there is nothing
// left to apply
var ErrQueueExhausted = errors.New("dm: pattern queue is empty or exhausted")

// SoftwareQueue steps through stored patterns on software command, for
// mirrors whose SDKs have no native pattern queue.  Drivers embed it to
// satisfy PatternQueuer.
type SoftwareQueue struct {
	mu       sync.Mutex
	patterns [][]float64
	next     int
	applier  PatternApplier
}

// NewSoftwareQueue returns a queue that applies patterns through d
func NewSoftwareQueue(d PatternApplier) *SoftwareQueue {
	return &SoftwareQueue{applier: d}
}

// QueuePatterns replaces the stored sequence and rewinds to its start
func (q *SoftwareQueue) QueuePatterns(patterns [][]float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.patterns = patterns
	q.next = 0
	return nil
}

// NextPattern applies the next stored pattern to the mirror
func (q *SoftwareQueue) NextPattern() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.patterns) {
		return ErrQueueExhausted
	}
	pat := q.patterns[q.next]
	q.next++
	return q.applier.ApplyPattern(pat)
}
