package queue

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/thoughtweave/internal/model"
)

// MemoryQueue is an in-process IndexQueue used by tests and by the
// single-binary deployment mode where a separate indexer process is not
// worth running. It honors the same MaxDeliver contract as NATSQueue.
type MemoryQueue struct {
	mu      sync.Mutex
	pending []model.IndexJob
	notify  chan struct{}
}

var _ IndexQueue = (*MemoryQueue)(nil)

// NewMemoryQueue returns an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{notify: make(chan struct{}, 1)}
}

func (q *MemoryQueue) Send(_ context.Context, job model.IndexJob) error {
	q.mu.Lock()
	q.pending = append(q.pending, job)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, batchSize int, wait time.Duration) ([]Message, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	deadline := time.Now().Add(wait)
	for {
		q.mu.Lock()
		n := len(q.pending)
		if n > batchSize {
			n = batchSize
		}
		batch := append([]model.IndexJob(nil), q.pending[:n]...)
		q.pending = q.pending[n:]
		q.mu.Unlock()

		if len(batch) > 0 {
			out := make([]Message, len(batch))
			for i, j := range batch {
				out[i] = &memoryMessage{job: j}
			}
			return out, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) Close() error { return nil }

// memoryMessage does not model redelivery: MemoryQueue is a single-process
// convenience backend, not a substitute for NATSQueue's dead-letter
// semantics.
type memoryMessage struct {
	job model.IndexJob
}

func (m *memoryMessage) Job() (model.IndexJob, error) { return m.job, nil }
func (m *memoryMessage) Ack() error                   { return nil }
func (m *memoryMessage) Fail() error                  { return nil }
