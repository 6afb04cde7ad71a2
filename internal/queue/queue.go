package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clipforge/ffdispatch/internal/job"
)

// Event identifies a job lifecycle transition published to subscribers.
type Event string

const (
	EventStarted   Event = "job_started"
	EventCompleted Event = "job_completed"
	EventFailed    Event = "job_failed"
)

// Handler receives a job when a subscribed event is published.
type Handler func(*job.Job)

// Queue is the in-memory FIFO handoff between the registration path and
// the worker pool, plus a publish/subscribe channel for lifecycle events.
// A job enters the sequence at most once and is removed by exactly one
// worker.
type Queue struct {
	logger *slog.Logger

	mu    sync.Mutex
	items []*job.Job
	wake  chan struct{}

	subMu sync.RWMutex
	subs  map[Event][]Handler
}

// New creates an empty queue.
func New(logger *slog.Logger) *Queue {
	return &Queue{
		logger: logger,
		wake:   make(chan struct{}, 1),
		subs:   make(map[Event][]Handler),
	}
}

// Enqueue appends a job to the tail. It never blocks.
func (q *Queue) Enqueue(j *job.Job) {
	q.mu.Lock()
	q.items = append(q.items, j)
	q.mu.Unlock()
	q.signal()
}

// Dequeue removes and returns the head, blocking until a job is
// available or the context is canceled.
func (q *Queue) Dequeue(ctx context.Context) (*job.Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			j := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// The wake channel holds a single token; hand it on so
				// other blocked consumers see the remaining work.
				q.signal()
			}
			return j, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

// Size returns the current pending count. Eventually consistent under
// concurrent mutation.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Subscribe registers a handler for an event. Handlers run in
// registration order when the event is published.
func (q *Queue) Subscribe(event Event, fn Handler) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	q.subs[event] = append(q.subs[event], fn)
}

// Publish invokes every subscriber registered for the event, in order.
// A panicking subscriber does not prevent the remaining subscribers from
// running.
func (q *Queue) Publish(event Event, j *job.Job) {
	q.subMu.RLock()
	handlers := make([]Handler, len(q.subs[event]))
	copy(handlers, q.subs[event])
	q.subMu.RUnlock()

	for _, fn := range handlers {
		q.invoke(event, j, fn)
	}
}

func (q *Queue) invoke(event Event, j *job.Job, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Event subscriber panicked",
				slog.String("event", string(event)),
				slog.String("job_id", j.ID),
				slog.Any("panic", r),
			)
		}
	}()
	fn(j)
}
