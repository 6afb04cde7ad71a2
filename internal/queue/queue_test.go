package queue

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/clipforge/ffdispatch/internal/job"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newJob() *job.Job {
	return job.New(job.TypeTranscode, "-c copy", nil, job.FileMap{{Key: "out_1", Path: "o.mp4"}})
}

func TestQueue_FIFO(t *testing.T) {
	q := New(testLogger())

	first := newJob()
	second := newJob()
	third := newJob()
	q.Enqueue(first)
	q.Enqueue(second)
	q.Enqueue(third)

	assert.Equal(t, 3, q.Size())

	ctx := context.Background()
	for _, want := range []*job.Job{first, second, third} {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Same(t, want, got)
	}
	assert.Equal(t, 0, q.Size())
}

func TestQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := New(testLogger())
	j := newJob()

	got := make(chan *job.Job, 1)
	go func() {
		dequeued, err := q.Dequeue(context.Background())
		if err == nil {
			got <- dequeued
		}
	}()

	// Give the consumer time to block
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(j)

	select {
	case dequeued := <-got:
		assert.Same(t, j, dequeued)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up after enqueue")
	}
}

func TestQueue_DequeueHonorsContextCancel(t *testing.T) {
	q := New(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after cancel")
	}
}

func TestQueue_SingleConsumerWins(t *testing.T) {
	const (
		consumers = 8
		jobs      = 200
	)

	q := New(testLogger())

	var mu sync.Mutex
	seen := make(map[string]int)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				j, err := q.Dequeue(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[j.ID]++
				mu.Unlock()
			}
		}()
	}

	ids := make([]string, 0, jobs)
	for i := 0; i < jobs; i++ {
		j := newJob()
		ids = append(ids, j.ID)
		q.Enqueue(j)
	}

	// Wait for the queue to drain, then stop the consumers
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == jobs
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, 1, seen[id], "job %s delivered more than once", id)
	}
}

func TestQueue_PublishInvokesSubscribersInOrder(t *testing.T) {
	q := New(testLogger())
	j := newJob()

	var order []int
	q.Subscribe(EventStarted, func(*job.Job) { order = append(order, 1) })
	q.Subscribe(EventStarted, func(*job.Job) { order = append(order, 2) })
	q.Subscribe(EventCompleted, func(*job.Job) { order = append(order, 99) })

	q.Publish(EventStarted, j)

	assert.Equal(t, []int{1, 2}, order)
}

func TestQueue_PanickingSubscriberDoesNotStopOthers(t *testing.T) {
	q := New(testLogger())
	j := newJob()

	var ran bool
	q.Subscribe(EventFailed, func(*job.Job) { panic("subscriber bug") })
	q.Subscribe(EventFailed, func(*job.Job) { ran = true })

	assert.NotPanics(t, func() {
		q.Publish(EventFailed, j)
	})
	assert.True(t, ran)
}

func TestQueue_PublishWithoutSubscribers(t *testing.T) {
	q := New(testLogger())
	assert.NotPanics(t, func() {
		q.Publish(EventCompleted, newJob())
	})
}
