package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRequestQueue_DrainReplaysInFIFOOrder(t *testing.T) {
	ctx := context.Background()
	q := newRequestQueue(0, newFakeClock(), nil, nil)

	entryA := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/a"})
	entryB := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/b"})
	entryC := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/c"})

	var replayed []string
	q.Drain(ctx, func(_ context.Context, entry *QueuedRequest) (Response, bool, error) {
		replayed = append(replayed, entry.Descriptor.Path)
		return Response{StatusCode: 200}, false, nil
	})

	if len(replayed) != 3 || replayed[0] != "/a" || replayed[1] != "/b" || replayed[2] != "/c" {
		t.Fatalf("expected FIFO replay /a,/b,/c; got %v", replayed)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after drain, got %d", q.Len())
	}

	for _, entry := range []*QueuedRequest{entryA, entryB, entryC} {
		select {
		case result := <-entry.result:
			if result.err != nil || result.resp.StatusCode != 200 {
				t.Fatalf("expected settled success, got %+v", result)
			}
		default:
			t.Fatalf("expected entry %s to be settled", entry.ID)
		}
	}
}

func TestRequestQueue_DrainIsSingleFlight(t *testing.T) {
	ctx := context.Background()
	q := newRequestQueue(0, newFakeClock(), nil, nil)
	q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/slow"})

	started := make(chan struct{})
	release := make(chan struct{})
	var replays int
	var mu sync.Mutex

	go q.Drain(ctx, func(_ context.Context, _ *QueuedRequest) (Response, bool, error) {
		close(started)
		<-release
		mu.Lock()
		replays++
		mu.Unlock()
		return Response{StatusCode: 200}, false, nil
	})

	<-started
	// Second drain while the first is in progress must be a no-op.
	q.Drain(ctx, func(_ context.Context, _ *QueuedRequest) (Response, bool, error) {
		mu.Lock()
		replays++
		mu.Unlock()
		return Response{StatusCode: 200}, false, nil
	})
	close(release)

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return replays == 1
	})
}

func TestRequestQueue_RequeuedEntriesKeepTheirWaiter(t *testing.T) {
	ctx := context.Background()
	q := newRequestQueue(0, newFakeClock(), nil, nil)
	flaky := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/flaky"})
	behind := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/behind"})

	var replays int
	q.Drain(ctx, func(_ context.Context, _ *QueuedRequest) (Response, bool, error) {
		replays++
		return Response{}, true, nil
	})

	// The drain stops at the requeued entry; the one behind it never replays
	// out of order and neither settles.
	if replays != 1 {
		t.Fatalf("expected drain to stop after the requeued entry, got %d replays", replays)
	}
	for _, entry := range []*QueuedRequest{flaky, behind} {
		select {
		case <-entry.result:
			t.Fatalf("requeued entry %s must not settle", entry.Descriptor.Path)
		default:
		}
	}
	if q.Len() != 2 {
		t.Fatalf("expected both entries back on the queue, got len %d", q.Len())
	}

	var order []string
	q.Drain(ctx, func(_ context.Context, got *QueuedRequest) (Response, bool, error) {
		order = append(order, got.ID)
		return Response{StatusCode: 200}, false, nil
	})
	if len(order) != 2 || order[0] != flaky.ID || order[1] != behind.ID {
		t.Fatalf("expected original order on second drain, got %v", order)
	}

	result := <-flaky.result
	if result.err != nil || result.resp.StatusCode != 200 {
		t.Fatalf("expected original waiter settled with success, got %+v", result)
	}
}

func TestRequestQueue_RequeueKeepsOrderAheadOfMidDrainArrivals(t *testing.T) {
	ctx := context.Background()
	q := newRequestQueue(0, newFakeClock(), nil, nil)
	first := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/first"})

	var late *QueuedRequest
	q.Drain(ctx, func(_ context.Context, _ *QueuedRequest) (Response, bool, error) {
		late = q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/late"})
		return Response{}, true, nil
	})

	var order []string
	q.Drain(ctx, func(_ context.Context, got *QueuedRequest) (Response, bool, error) {
		order = append(order, got.ID)
		return Response{StatusCode: 200}, false, nil
	})
	if len(order) != 2 || order[0] != first.ID || order[1] != late.ID {
		t.Fatalf("expected requeued entry ahead of mid-drain arrival, got %v", order)
	}
}

func TestRequestQueue_OverflowEvictsOldest(t *testing.T) {
	ctx := context.Background()
	q := newRequestQueue(2, newFakeClock(), nil, nil)

	oldest := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/1"})
	q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/2"})
	q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/3"})

	if q.Len() != 2 {
		t.Fatalf("expected bounded queue of 2, got %d", q.Len())
	}

	result := <-oldest.result
	if result.err == nil {
		t.Fatalf("expected evicted entry to be rejected")
	}
	if TextCode(result.err) != ClientErrorQueueOverflow {
		t.Fatalf("expected %s, got %q", ClientErrorQueueOverflow, TextCode(result.err))
	}
}

func TestRequestQueue_ClearRejectsAllWaiters(t *testing.T) {
	ctx := context.Background()
	q := newRequestQueue(0, newFakeClock(), nil, nil)

	entries := []*QueuedRequest{
		q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/1"}),
		q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/2"}),
	}

	cleared := q.Clear(ctx)
	if cleared != 2 {
		t.Fatalf("expected 2 cleared entries, got %d", cleared)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after clear, got %d", q.Len())
	}

	for _, entry := range entries {
		result := <-entry.result
		if TextCode(result.err) != ClientErrorQueueCleared {
			t.Fatalf("expected %s, got %q", ClientErrorQueueCleared, TextCode(result.err))
		}
	}
}

func TestRequestQueue_RemoveDropsAbandonedEntry(t *testing.T) {
	ctx := context.Background()
	q := newRequestQueue(0, newFakeClock(), nil, nil)

	entry := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/abandoned"})
	kept := q.Enqueue(ctx, RequestDescriptor{Method: "GET", Path: "/kept"})

	q.remove(entry.ID)
	if q.Len() != 1 {
		t.Fatalf("expected 1 entry after remove, got %d", q.Len())
	}

	var replayed []string
	q.Drain(ctx, func(_ context.Context, got *QueuedRequest) (Response, bool, error) {
		replayed = append(replayed, got.ID)
		return Response{StatusCode: 200}, false, nil
	})
	if len(replayed) != 1 || replayed[0] != kept.ID {
		t.Fatalf("expected only the kept entry to replay, got %v", replayed)
	}
}

func TestRequestQueue_SettleIsIdempotent(t *testing.T) {
	q := newRequestQueue(0, newFakeClock(), nil, nil)
	entry := q.Enqueue(context.Background(), RequestDescriptor{Method: "GET", Path: "/once"})

	entry.settle(Response{StatusCode: 200}, nil)
	entry.settle(Response{StatusCode: 500}, nil)

	result := <-entry.result
	if result.resp.StatusCode != 200 {
		t.Fatalf("expected first settle to win, got %d", result.resp.StatusCode)
	}
	select {
	case <-entry.result:
		t.Fatalf("expected exactly one settled result")
	default:
	}
}
