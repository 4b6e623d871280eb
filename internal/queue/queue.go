// Package queue is the index queue: the asynchronous hand-off between
// capture ingest and the indexer worker. It is backed by NATS JetStream, a
// pull consumer with a visibility timeout (AckWait) long enough to cover
// the worst-case single-message processing budget and a bounded redelivery
// count (MaxDeliver) that implements the partial-batch-failure / dead
// letter contract the indexer relies on.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kart-io/thoughtweave/internal/model"
)

const (
	// StreamName is the JetStream stream backing the index queue.
	StreamName = "THOUGHTWEAVE_INDEX"
	// SubjectName is the single subject every index job is published to;
	// job.Type discriminates thought vs. conversation payloads.
	SubjectName = "thoughtweave.index"
	// ConsumerName is the durable pull-consumer name shared by every
	// indexer worker process (horizontal scale-out via NATS's
	// work-queue delivery).
	ConsumerName = "thoughtweave-indexer"

	// AckWait must exceed the indexer's 120 s per-message budget so a
	// message in flight is never redelivered out from under its own
	// worker.
	AckWait = 130 * time.Second
	// MaxDeliver bounds redelivery attempts before a message is
	// considered dead-lettered.
	MaxDeliver = 3
)

// Message is one delivered, not-yet-acknowledged index job.
type Message interface {
	Job() (model.IndexJob, error)
	// Ack marks the job successfully processed; it will not be
	// redelivered.
	Ack() error
	// Fail marks the job failed; JetStream redelivers it up to
	// MaxDeliver times, then it is dropped (dead-lettered).
	Fail() error
}

// IndexQueue is the capture → indexer hand-off.
type IndexQueue interface {
	Send(ctx context.Context, job model.IndexJob) error
	// Receive pulls up to batchSize messages, waiting up to wait for at
	// least one to arrive. An empty, nil-error result means the queue
	// was empty at the deadline, not a failure.
	Receive(ctx context.Context, batchSize int, wait time.Duration) ([]Message, error)
	Close() error
}

// NATSQueue is the JetStream-backed IndexQueue.
type NATSQueue struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	sub  *nats.Subscription
}

var _ IndexQueue = (*NATSQueue)(nil)

// NewNATSQueue connects to url, ensures the stream and durable pull
// consumer exist, and returns a ready-to-use queue.
func NewNATSQueue(url string) (*NATSQueue, error) {
	conn, err := nats.Connect(url, nats.Name("thoughtweave"))
	if err != nil {
		return nil, fmt.Errorf("queue: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(StreamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     StreamName,
			Subjects: []string{SubjectName},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("queue: add stream: %w", err)
		}
	}

	sub, err := js.PullSubscribe(SubjectName, ConsumerName, nats.ManualAck(),
		nats.AckWait(AckWait),
		nats.MaxDeliver(MaxDeliver),
		nats.BindStream(StreamName),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: pull subscribe: %w", err)
	}

	return &NATSQueue{conn: conn, js: js, sub: sub}, nil
}

func (q *NATSQueue) Send(ctx context.Context, job model.IndexJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	_, err = q.js.Publish(SubjectName, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("queue: publish: %w", err)
	}
	return nil
}

func (q *NATSQueue) Receive(ctx context.Context, batchSize int, wait time.Duration) ([]Message, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	// Fetch accepts MaxWait or a context, never both; a per-call child
	// context carries the wait budget and the caller's cancellation.
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	msgs, err := q.sub.Fetch(batchSize, nats.Context(fetchCtx))
	if err != nil && err != nats.ErrTimeout && err != context.DeadlineExceeded {
		return nil, fmt.Errorf("queue: fetch: %w", err)
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &natsMessage{msg: m})
	}
	return out, nil
}

func (q *NATSQueue) Close() error {
	if q.sub != nil {
		_ = q.sub.Unsubscribe()
	}
	q.conn.Close()
	return nil
}

type natsMessage struct {
	msg *nats.Msg
}

func (m *natsMessage) Job() (model.IndexJob, error) {
	var job model.IndexJob
	if err := json.Unmarshal(m.msg.Data, &job); err != nil {
		return model.IndexJob{}, fmt.Errorf("queue: unmarshal job: %w", err)
	}
	return job, nil
}

func (m *natsMessage) Ack() error  { return m.msg.Ack() }
func (m *natsMessage) Fail() error { return m.msg.Nak() }
