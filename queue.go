package luamachine

import (
	"sync"
)

// DefaultQueueCapacity bounds a BufferedQueue created with capacity <= 0.
const DefaultQueueCapacity = 256

// BufferedQueue is a bounded FIFO SignalQueue safe for concurrent use.
// Signals pushed beyond capacity are dropped and Push returns false.
type BufferedQueue struct {
	mu       sync.Mutex
	signals  []Signal
	capacity int
}

// NewBufferedQueue creates a queue holding at most capacity signals.
func NewBufferedQueue(capacity int) *BufferedQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &BufferedQueue{capacity: capacity}
}

// Push appends a signal, reporting false if the queue is full.
func (q *BufferedQueue) Push(sig Signal) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.signals) >= q.capacity {
		return false
	}
	q.signals = append(q.signals, sig)
	return true
}

// Pop removes and returns the oldest pending signal.
func (q *BufferedQueue) Pop() (Signal, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.signals) == 0 {
		return Signal{}, false
	}
	sig := q.signals[0]
	copy(q.signals, q.signals[1:])
	q.signals = q.signals[:len(q.signals)-1]
	return sig, true
}

// Len returns the number of pending signals.
func (q *BufferedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.signals)
}

// Clear drops all pending signals.
func (q *BufferedQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.signals = q.signals[:0]
}
