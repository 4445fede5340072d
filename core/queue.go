package core

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type queueResult struct {
	resp Response
	err  error
}

// QueuedRequest is one deferred call waiting for connectivity. Each entry
// settles exactly once: on successful replay, terminal replay failure,
// overflow eviction, or explicit queue clear.
type QueuedRequest struct {
	ID         string
	Descriptor RequestDescriptor
	EnqueuedAt time.Time

	settleOnce sync.Once
	result     chan queueResult
}

func (r *QueuedRequest) settle(resp Response, err error) {
	if r == nil {
		return
	}
	r.settleOnce.Do(func() {
		r.result <- queueResult{resp: resp, err: err}
	})
}

// ReplayFunc re-enters one queued entry into the dispatcher pipeline.
// requeued=true means the network dropped again; Drain stops and puts the
// entry, and everything still behind it, back at the head unsettled.
type ReplayFunc func(ctx context.Context, entry *QueuedRequest) (resp Response, requeued bool, err error)

// RequestQueue holds calls that could not be sent while offline, in arrival
// order, for later replay. Draining is single-flight and strictly FIFO.
type RequestQueue struct {
	mu        sync.Mutex
	entries   []*QueuedRequest
	draining  bool
	maxLength int

	clock           Clock
	logger          Logger
	metricsRecorder MetricsRecorder
}

func newRequestQueue(maxLength int, clock Clock, logger Logger, metrics MetricsRecorder) *RequestQueue {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RequestQueue{
		maxLength:       maxLength,
		clock:           clock,
		logger:          logger,
		metricsRecorder: metrics,
	}
}

// Enqueue appends to the tail and returns the entry whose result channel
// settles when the call is eventually replayed or the queue is cleared.
// When the bound is exceeded the oldest entry is evicted and rejected.
func (q *RequestQueue) Enqueue(ctx context.Context, desc RequestDescriptor) *QueuedRequest {
	entry := &QueuedRequest{
		ID:         uuid.NewString(),
		Descriptor: desc,
		EnqueuedAt: q.clock.Now(),
		result:     make(chan queueResult, 1),
	}

	var evicted *QueuedRequest
	q.mu.Lock()
	q.entries = append(q.entries, entry)
	if q.maxLength > 0 && len(q.entries) > q.maxLength {
		evicted = q.entries[0]
		q.entries = q.entries[1:]
	}
	depth := len(q.entries)
	q.mu.Unlock()

	if evicted != nil {
		evicted.settle(Response{}, newClientError(
			"core: offline queue is full, oldest request dropped",
			goerrors.CategoryRateLimit,
			ClientErrorQueueOverflow,
		))
		if q.logger != nil {
			q.logger.Error("offline queue overflow", "evicted_id", evicted.ID, "max_length", q.maxLength)
		}
	}
	if q.metricsRecorder != nil {
		q.metricsRecorder.IncCounter(ctx, MetricQueueEnqueued, 1, map[string]string{"operation": "enqueue"})
		q.metricsRecorder.ObserveHistogram(ctx, MetricQueueDepth, float64(depth), map[string]string{"operation": "enqueue"})
	}
	return entry
}

// requeueFront restores not-yet-replayed entries at the head, keeping their
// original waiters and their order ahead of anything enqueued mid-drain.
func (q *RequestQueue) requeueFront(entries []*QueuedRequest) {
	if q == nil || len(entries) == 0 {
		return
	}
	restored := make([]*QueuedRequest, 0, len(entries))
	restored = append(restored, entries...)
	q.mu.Lock()
	q.entries = append(restored, q.entries...)
	q.mu.Unlock()
}

// remove drops an entry whose caller abandoned the wait (context cancel).
func (q *RequestQueue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, entry := range q.entries {
		if entry.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Drain replays queued entries strictly in enqueue order, sequentially. A
// drain already in progress makes this a no-op (single-flight). Entries
// whose replay finds the network down again are re-queued with their
// original waiters and picked up by the next drain.
func (q *RequestQueue) Drain(ctx context.Context, replay ReplayFunc) {
	if q == nil || replay == nil {
		return
	}
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	snapshot := q.entries
	q.entries = nil
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	if len(snapshot) == 0 {
		return
	}
	if q.logger != nil {
		q.logger.Info("draining offline queue", "entries", len(snapshot))
	}

	for i, entry := range snapshot {
		resp, requeued, err := replay(ctx, entry)
		if requeued {
			q.requeueFront(snapshot[i:])
			return
		}
		entry.settle(resp, err)
	}
}

// Clear rejects every pending entry and empties the queue. Used on logout
// and final teardown.
func (q *RequestQueue) Clear(ctx context.Context) int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	snapshot := q.entries
	q.entries = nil
	q.mu.Unlock()

	for _, entry := range snapshot {
		entry.settle(Response{}, newClientError(
			"core: offline queue cleared",
			goerrors.CategoryOperation,
			ClientErrorQueueCleared,
		))
	}
	if len(snapshot) > 0 && q.metricsRecorder != nil {
		q.metricsRecorder.IncCounter(ctx, MetricQueueCleared, int64(len(snapshot)), map[string]string{"operation": "clear"})
	}
	return len(snapshot)
}

// Len reports the number of waiting entries.
func (q *RequestQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
