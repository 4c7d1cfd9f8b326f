package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes the buffering and batching of AsyncWriter.
type AsyncOptions struct {
	// BufferSize is the number of events held in memory before Store falls
	// back to a synchronous write. Default 1000.
	BufferSize int
	// BatchSize is the flush threshold. Default 100.
	BatchSize int
	// FlushInterval bounds how long a partial batch waits. Default 100ms.
	FlushInterval time.Duration
	// StoreTimeout bounds each flush against slow storage. Default 5s.
	StoreTimeout time.Duration
}

func (o *AsyncOptions) fillDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 100 * time.Millisecond
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
}

// AsyncWriter decouples audit writes from request latency. Events are queued
// and flushed in batches by a background goroutine; when the queue is full
// the write degrades to a synchronous one rather than dropping the event.
// Reads pass through to the underlying storage.
type AsyncWriter struct {
	inner   Storage
	batcher BatchStorage
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	opts    AsyncOptions

	mu     sync.Mutex
	closed bool
}

// NewAsyncWriter wraps storage with buffered batching. Call Close during
// shutdown to drain the queue.
func NewAsyncWriter(storage Storage, opts AsyncOptions) *AsyncWriter {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	opts.fillDefaults()

	aw := &AsyncWriter{
		inner: storage,
		queue: make(chan Event, opts.BufferSize),
		done:  make(chan struct{}),
		opts:  opts,
	}
	if b, ok := storage.(BatchStorage); ok {
		aw.batcher = b
	}
	aw.wg.Add(1)
	go aw.worker()
	return aw
}

// Store queues the event without waiting for persistence. A full queue falls
// back to writing through synchronously so no event is lost.
func (aw *AsyncWriter) Store(ctx context.Context, event Event) error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return ErrStorageUnavailable
	}
	select {
	case aw.queue <- event:
		aw.mu.Unlock()
		return nil
	default:
		aw.mu.Unlock()
		return aw.flush(ctx, []Event{event})
	}
}

// Query passes through to the underlying storage. Recently queued events may
// not be visible yet.
func (aw *AsyncWriter) Query(ctx context.Context, c Criteria) ([]Event, error) {
	return aw.inner.Query(ctx, c)
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Event, 0, aw.opts.BatchSize)
	ticker := time.NewTicker(aw.opts.FlushInterval)
	defer ticker.Stop()

	// Flushes run against a detached context so a slow storage cannot hold
	// request contexts hostage, and vice versa.
	flushPending := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), aw.opts.StoreTimeout)
		_ = aw.flush(ctx, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-aw.queue:
			batch = append(batch, e)
			if len(batch) >= aw.opts.BatchSize {
				flushPending()
			}
		case <-ticker.C:
			flushPending()
		case <-aw.done:
			for {
				select {
				case e := <-aw.queue:
					batch = append(batch, e)
				default:
					flushPending()
					return
				}
			}
		}
	}
}

func (aw *AsyncWriter) flush(ctx context.Context, events []Event) error {
	if aw.batcher != nil {
		return aw.batcher.StoreBatch(ctx, events)
	}
	var firstErr error
	for _, e := range events {
		if err := aw.inner.Store(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close stops accepting events and drains the queue. The context bounds the
// drain; on expiry remaining events are lost.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return nil
	}
	aw.closed = true
	close(aw.done)
	aw.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
