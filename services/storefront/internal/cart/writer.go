package cart

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cyrasubia/phoinix-storefront/pkg/tracing"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

const tracerName = "github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"

// write is either a full copy of the lines to store, or a barrier when done
// is set. A barrier with resume set also holds the writer until resume is
// closed.
type write struct {
	items  domain.Lines
	done   chan struct{}
	resume <-chan struct{}
}

func (w write) barrier() bool { return w.done != nil }

// writeQueue is the FIFO between mutations and the writer goroutine. push
// never blocks: once size line writes are waiting, a new one replaces the
// newest waiting line write. Every write is a whole-list overwrite, so the
// last write to land is still the latest state.
type writeQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []write
	lines   int
	size    int
	closed  bool
}

func newWriteQueue(size int) *writeQueue {
	q := &writeQueue{size: size}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push queues w. It reports false once the queue is closed, and coalesced
// when w replaced a waiting write.
func (q *writeQueue) push(w write) (ok, coalesced bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, false
	}
	if !w.barrier() && q.lines >= q.size {
		if last := len(q.pending) - 1; last >= 0 && !q.pending[last].barrier() {
			q.pending[last] = w
			return true, true
		}
	}
	q.pending = append(q.pending, w)
	if !w.barrier() {
		q.lines++
	}
	q.cond.Signal()
	return true, false
}

// pop waits for the next write. It reports false when the queue is closed
// and empty.
func (q *writeQueue) pop() (write, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return write{}, false
	}
	w := q.pending[0]
	q.pending[0] = write{}
	q.pending = q.pending[1:]
	if !w.barrier() {
		q.lines--
	}
	return w, true
}

// close stops new pushes. Writes already queued are still handed out.
func (q *writeQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// enqueueLocked queues items for the writer. The caller must hold mu, which
// keeps queue order equal to mutation order. It never blocks.
func (s *Store) enqueueLocked(items domain.Lines) {
	ok, coalesced := s.writes.push(write{items: items})
	switch {
	case !ok:
		s.logger.Warn("cart store closed, change kept in memory only",
			slog.Int("lines", len(items)),
		)
	case coalesced:
		s.logger.Debug("cart write queue full, replaced newest queued write",
			slog.Int("lines", len(items)),
		)
	}
}

func (s *Store) runWriter() {
	defer close(s.writerDone)
	for {
		w, ok := s.writes.pop()
		if !ok {
			return
		}
		if w.barrier() {
			close(w.done)
			if w.resume != nil {
				<-w.resume
			}
			continue
		}
		s.persist(w.items)
	}
}

func (s *Store) persist(items domain.Lines) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()

	ctx, span := tracing.Tracer(tracerName).Start(ctx, "cart.persist")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.key", s.opts.Key),
		attribute.Int("cart.lines", len(items)),
	)

	data, err := Encode(items, s.opts.Now())
	if err == nil {
		err = s.kv.Set(ctx, s.opts.Key, data)
	}
	if err != nil {
		tracing.RecordError(span, err)
		s.logger.ErrorContext(ctx, "cart persist failed, in-memory state kept",
			slog.String("key", s.opts.Key),
			slog.Int("lines", len(items)),
			slog.String("error", err.Error()),
		)
		if s.opts.OnPersistError != nil {
			s.opts.OnPersistError(err)
		}
		return
	}
	s.logger.DebugContext(ctx, "cart persisted",
		slog.Int("lines", len(items)),
		slog.Int("bytes", len(data)),
	)
}

// Flush waits until every write queued before the call has been attempted.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if ok, _ := s.writes.push(write{done: done}); !ok {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes and waits for queued ones to finish. Later
// mutations still change the in-memory cart.
func (s *Store) Close() {
	s.writes.close()
	<-s.writerDone
}
